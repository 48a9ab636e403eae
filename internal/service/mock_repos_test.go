package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/lookfree/techAssis-sub000/internal/model"
	"github.com/lookfree/techAssis-sub000/internal/realtime"
	"github.com/lookfree/techAssis-sub000/internal/repository"
	pkgerrors "github.com/lookfree/techAssis-sub000/pkg/errors"
)

// ── Mock ClassroomRepository ──

type mockClassroomRepo struct {
	rooms map[string]*model.Classroom
}

func newMockClassroomRepo() *mockClassroomRepo {
	return &mockClassroomRepo{rooms: make(map[string]*model.Classroom)}
}

func (m *mockClassroomRepo) Create(_ context.Context, room *model.Classroom) error {
	if room.ClassroomID == "" {
		room.ClassroomID = "room-" + room.Name
	}
	m.rooms[room.ClassroomID] = room
	return nil
}

func (m *mockClassroomRepo) GetByID(_ context.Context, id string) (*model.Classroom, error) {
	if r, ok := m.rooms[id]; ok {
		return r, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockClassroomRepo) List(_ context.Context, onlyActive bool) ([]model.Classroom, error) {
	var result []model.Classroom
	for _, r := range m.rooms {
		if onlyActive && !r.IsActive {
			continue
		}
		result = append(result, *r)
	}
	return result, nil
}

func (m *mockClassroomRepo) Update(_ context.Context, room *model.Classroom) error {
	m.rooms[room.ClassroomID] = room
	return nil
}

func (m *mockClassroomRepo) Delete(_ context.Context, id string, _ string) error {
	delete(m.rooms, id)
	return nil
}

// ── Mock BookingRepository ──

type mockBookingRepo struct {
	mu       sync.Mutex
	bookings map[string]*model.Booking
	seq      int
}

func newMockBookingRepo() *mockBookingRepo {
	return &mockBookingRepo{bookings: make(map[string]*model.Booking)}
}

// BindExclusive 与真实实现同语义：互斥地做重叠检查和插入
func (m *mockBookingRepo) BindExclusive(_ context.Context, booking *model.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, b := range m.bookings {
		if b.ClassroomID != booking.ClassroomID || b.Status != model.BookingStatusActive {
			continue
		}
		if b.CourseID == booking.CourseID {
			continue
		}
		if booking.ConflictsWith(b) {
			return repository.ErrBookingOverlap
		}
	}
	// 同课程改绑：旧 active 预订自动取消
	for _, b := range m.bookings {
		if b.CourseID == booking.CourseID && b.Status == model.BookingStatusActive {
			b.Status = model.BookingStatusCancelled
		}
	}

	m.seq++
	if booking.BookingID == "" {
		booking.BookingID = fmt.Sprintf("booking-%03d", m.seq)
	}
	m.bookings[booking.BookingID] = booking
	return nil
}

func (m *mockBookingRepo) GetByID(_ context.Context, id string) (*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.bookings[id]; ok {
		return b, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockBookingRepo) List(_ context.Context, classroomID, courseID, status string) ([]model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.Booking
	for _, b := range m.bookings {
		if classroomID != "" && b.ClassroomID != classroomID {
			continue
		}
		if courseID != "" && b.CourseID != courseID {
			continue
		}
		if status != "" && b.Status != status {
			continue
		}
		result = append(result, *b)
	}
	return result, nil
}

func (m *mockBookingRepo) ListActiveByClassroom(_ context.Context, classroomID string) ([]model.Booking, error) {
	return m.List(context.Background(), classroomID, "", model.BookingStatusActive)
}

func (m *mockBookingRepo) GetActiveByCourse(_ context.Context, courseID string) (*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.bookings {
		if b.CourseID == courseID && b.Status == model.BookingStatusActive {
			return b, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockBookingRepo) Cancel(_ context.Context, id string, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	b.Status = model.BookingStatusCancelled
	return nil
}

// ── Mock SessionRepository ──

type mockSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*model.AttendanceSession
	seq      int
}

func newMockSessionRepo() *mockSessionRepo {
	return &mockSessionRepo{sessions: make(map[string]*model.AttendanceSession)}
}

func (m *mockSessionRepo) Create(_ context.Context, session *model.AttendanceSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	if session.SessionID == "" {
		session.SessionID = fmt.Sprintf("session-%03d", m.seq)
	}
	m.sessions[session.SessionID] = session
	return nil
}

func (m *mockSessionRepo) GetByID(_ context.Context, id string) (*model.AttendanceSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		copied := *s
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSessionRepo) GetActiveByCourse(_ context.Context, courseID string) (*model.AttendanceSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.CourseID == courseID && s.Status == model.SessionStatusActive {
			copied := *s
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSessionRepo) GetByCourseAndDate(_ context.Context, courseID string, date time.Time) (*model.AttendanceSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := date.Format("2006-01-02")
	for _, s := range m.sessions {
		if s.CourseID == courseID && s.SessionDate.Format("2006-01-02") == want {
			copied := *s
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSessionRepo) CountByCourse(_ context.Context, courseID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, s := range m.sessions {
		if s.CourseID == courseID {
			n++
		}
	}
	return n, nil
}

func (m *mockSessionRepo) UpdateExpiry(_ context.Context, id string, expiresAt time.Time, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || s.Status != model.SessionStatusActive {
		return nil
	}
	t := expiresAt
	s.ExpiresAt = &t
	return nil
}

func (m *mockSessionRepo) CloseIfActive(_ context.Context, id string, closedAt time.Time, _ string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return false, gorm.ErrRecordNotFound
	}
	if s.Status == model.SessionStatusClosed {
		return false, nil
	}
	s.Status = model.SessionStatusClosed
	t := closedAt
	s.ClosedAt = &t
	return true, nil
}

func (m *mockSessionRepo) ListExpiredActive(_ context.Context, now time.Time) ([]model.AttendanceSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.AttendanceSession
	for _, s := range m.sessions {
		if s.Status == model.SessionStatusActive && s.IsExpired(now) {
			result = append(result, *s)
		}
	}
	return result, nil
}

func (m *mockSessionRepo) ListActive(_ context.Context) ([]model.AttendanceSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.AttendanceSession
	for _, s := range m.sessions {
		if s.Status == model.SessionStatusActive {
			result = append(result, *s)
		}
	}
	return result, nil
}

// ── Mock SeatRepository ──

type mockSeatRepo struct {
	mu    sync.Mutex
	seats map[string]*model.Seat // key: sessionID|seatID
}

func newMockSeatRepo() *mockSeatRepo {
	return &mockSeatRepo{seats: make(map[string]*model.Seat)}
}

func seatKey(sessionID, seatID string) string { return sessionID + "|" + seatID }

func (m *mockSeatRepo) ReplaceForSession(_ context.Context, sessionID string, seats []model.Seat) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, s := range m.seats {
		if s.SessionID == sessionID {
			delete(m.seats, k)
		}
	}
	for i := range seats {
		s := seats[i]
		m.seats[seatKey(sessionID, s.SeatID)] = &s
	}
	return nil
}

func (m *mockSeatRepo) ListBySession(_ context.Context, sessionID string) ([]model.Seat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.Seat
	for _, s := range m.seats {
		if s.SessionID == sessionID {
			result = append(result, *s)
		}
	}
	return result, nil
}

func (m *mockSeatRepo) Get(_ context.Context, sessionID, seatID string) (*model.Seat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.seats[seatKey(sessionID, seatID)]; ok {
		copied := *s
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSeatRepo) GetByStudent(_ context.Context, sessionID, studentID string) (*model.Seat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.seats {
		if s.SessionID == sessionID && s.StudentID != nil && *s.StudentID == studentID {
			copied := *s
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// AssignIfAvailable 与真实实现同语义的 compare-and-set
func (m *mockSeatRepo) AssignIfAvailable(_ context.Context, sessionID, seatID, studentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.seats[seatKey(sessionID, seatID)]
	if !ok || s.Status != model.SeatStatusAvailable {
		return repository.ErrSeatUnavailable
	}
	sid := studentID
	s.Status = model.SeatStatusOccupied
	s.StudentID = &sid
	s.Confirmed = true
	return nil
}

func (m *mockSeatRepo) ReleaseIfOccupied(_ context.Context, sessionID, seatID, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.seats[seatKey(sessionID, seatID)]
	if !ok || s.Status != model.SeatStatusOccupied {
		return pkgerrors.ErrOptimisticLock
	}
	s.Status = model.SeatStatusAvailable
	s.StudentID = nil
	s.Confirmed = false
	return nil
}

// ── Mock RecordRepository ──

type mockRecordRepo struct {
	mu      sync.Mutex
	records map[string]*model.AttendanceRecord // key: sessionID|studentID
}

func newMockRecordRepo() *mockRecordRepo {
	return &mockRecordRepo{records: make(map[string]*model.AttendanceRecord)}
}

func recordKey(sessionID, studentID string) string { return sessionID + "|" + studentID }

func (m *mockRecordRepo) CreateIfAbsent(_ context.Context, record *model.AttendanceRecord) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := recordKey(record.SessionID, record.StudentID)
	if _, ok := m.records[key]; ok {
		return false, nil
	}
	copied := *record
	m.records[key] = &copied
	return true, nil
}

func (m *mockRecordRepo) Upsert(_ context.Context, record *model.AttendanceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *record
	m.records[recordKey(record.SessionID, record.StudentID)] = &copied
	return nil
}

func (m *mockRecordRepo) UpdateSeat(_ context.Context, sessionID, studentID, seatID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.records[recordKey(sessionID, studentID)]; ok {
		r.SeatID = &seatID
	}
	return nil
}

func (m *mockRecordRepo) GetBySessionAndStudent(_ context.Context, sessionID, studentID string) (*model.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.records[recordKey(sessionID, studentID)]; ok {
		copied := *r
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockRecordRepo) ListBySession(_ context.Context, sessionID string) ([]model.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []model.AttendanceRecord
	for _, r := range m.records {
		if r.SessionID == sessionID {
			result = append(result, *r)
		}
	}
	return result, nil
}

func (m *mockRecordRepo) BackfillAbsent(_ context.Context, records []model.AttendanceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range records {
		key := recordKey(records[i].SessionID, records[i].StudentID)
		if _, ok := m.records[key]; ok {
			continue
		}
		copied := records[i]
		m.records[key] = &copied
	}
	return nil
}

// ── Mock CourseRepository / EnrollmentRepository ──

type mockCourseRepo struct {
	courses map[string]*model.Course
}

func newMockCourseRepo() *mockCourseRepo {
	return &mockCourseRepo{courses: make(map[string]*model.Course)}
}

func (m *mockCourseRepo) GetByID(_ context.Context, id string) (*model.Course, error) {
	if c, ok := m.courses[id]; ok {
		return c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type mockEnrollmentRepo struct {
	enrollments []model.Enrollment
}

func newMockEnrollmentRepo() *mockEnrollmentRepo {
	return &mockEnrollmentRepo{}
}

func (m *mockEnrollmentRepo) ListByCourse(_ context.Context, courseID string) ([]model.Enrollment, error) {
	var result []model.Enrollment
	for _, e := range m.enrollments {
		if e.CourseID == courseID {
			result = append(result, e)
		}
	}
	return result, nil
}

func (m *mockEnrollmentRepo) IsEnrolled(_ context.Context, courseID, studentID string) (bool, error) {
	for _, e := range m.enrollments {
		if e.CourseID == courseID && e.StudentID == studentID {
			return true, nil
		}
	}
	return false, nil
}

// ── Mock Publisher ──

type mockPublisher struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (m *mockPublisher) Publish(event realtime.Event, _ ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
}

func (m *mockPublisher) eventsOfType(t string) []realtime.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []realtime.Event
	for _, e := range m.events {
		if e.Type == t {
			result = append(result, e)
		}
	}
	return result
}

// ── 聚合辅助 ──

type testRepos struct {
	classroom  *mockClassroomRepo
	booking    *mockBookingRepo
	session    *mockSessionRepo
	seat       *mockSeatRepo
	record     *mockRecordRepo
	course     *mockCourseRepo
	enrollment *mockEnrollmentRepo
}

func newTestRepos() (*repository.Repository, *testRepos) {
	mocks := &testRepos{
		classroom:  newMockClassroomRepo(),
		booking:    newMockBookingRepo(),
		session:    newMockSessionRepo(),
		seat:       newMockSeatRepo(),
		record:     newMockRecordRepo(),
		course:     newMockCourseRepo(),
		enrollment: newMockEnrollmentRepo(),
	}
	repo := &repository.Repository{
		Classroom:  mocks.classroom,
		Booking:    mocks.booking,
		Session:    mocks.session,
		Seat:       mocks.seat,
		Record:     mocks.record,
		Course:     mocks.course,
		Enrollment: mocks.enrollment,
	}
	return repo, mocks
}
