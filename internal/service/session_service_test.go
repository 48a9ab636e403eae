package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/lookfree/techAssis-sub000/config"
	"github.com/lookfree/techAssis-sub000/internal/dto"
	"github.com/lookfree/techAssis-sub000/internal/model"
	"github.com/lookfree/techAssis-sub000/internal/realtime"
)

// ── 测试辅助 ──

// fakeClock 可拨动的测试时钟；基准取真实时间 +1 小时，
// 保证 Start 挂的真实定时器不会在测试期间触发。
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Now().Add(time.Hour).Truncate(time.Minute)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type sessionTestEnv struct {
	svc   SessionService
	seat  SeatService
	mocks *testRepos
	pub   *mockPublisher
	clock *fakeClock
}

func setupTestSessionService(t *testing.T) *sessionTestEnv {
	t.Helper()
	repo, mocks := newTestRepos()

	mocks.course.courses["course-001"] = &model.Course{
		CourseID:  "course-001",
		Name:      "操作系统",
		TeacherID: "teacher-001",
	}
	for _, e := range []model.Enrollment{
		{CourseID: "course-001", StudentID: "stu-001", StudentName: "张三", StudentNo: "2023001"},
		{CourseID: "course-001", StudentID: "stu-002", StudentName: "李四", StudentNo: "2023002"},
		{CourseID: "course-001", StudentID: "stu-003", StudentName: "王五", StudentNo: "2023003"},
	} {
		mocks.enrollment.enrollments = append(mocks.enrollment.enrollments, e)
	}
	mocks.classroom.rooms["room-101"] = &model.Classroom{
		ClassroomID:      "room-101",
		Name:             "教一楼101",
		Rows:             2,
		SeatsPerRow:      3,
		Capacity:         6,
		UnavailableSeats: model.StringArray{"B3"},
		IsActive:         true,
	}
	// 课程一默认绑定教室
	mocks.booking.bookings["booking-001"] = &model.Booking{
		BookingID:   "booking-001",
		ClassroomID: "room-101",
		CourseID:    "course-001",
		TeacherID:   "teacher-001",
		DayOfWeek:   1,
		StartTime:   "08:00",
		EndTime:     "10:00",
		Recurring:   true,
		Status:      model.BookingStatusActive,
	}

	cfg := &config.Config{
		Server: config.ServerConfig{BaseURL: "http://localhost:8080"},
		Attendance: config.AttendanceConfig{
			DefaultDurationMinutes: 30,
			DefaultGraceMinutes:    10,
			CodeLength:             4,
		},
	}

	pub := &mockPublisher{}
	logger := zap.NewNop()
	seat := NewSeatService(repo, pub, logger)
	svc := NewSessionService(cfg, repo, nil, seat, pub, logger)

	clock := newFakeClock()
	svc.(*sessionService).nowFn = clock.Now

	t.Cleanup(svc.Stop)
	return &sessionTestEnv{svc: svc, seat: seat, mocks: mocks, pub: pub, clock: clock}
}

func mustStart(t *testing.T, env *sessionTestEnv, method string) *dto.SessionResponse {
	t.Helper()
	session, err := env.svc.Start(context.Background(), "course-001",
		&dto.StartSessionRequest{Method: method}, "teacher-001", "teacher")
	if err != nil {
		t.Fatalf("Start 应成功: %v", err)
	}
	return session
}

// ── Start 测试 ──

func TestSessionService_Start_Code(t *testing.T) {
	env := setupTestSessionService(t)

	session := mustStart(t, env, model.MethodCode)
	if session.Status != model.SessionStatusActive {
		t.Errorf("期望Status=active，实际=%s", session.Status)
	}
	if len(session.Code) != 4 {
		t.Errorf("验证码应为 4 位，实际=%q", session.Code)
	}
	if session.SessionNumber != 1 {
		t.Errorf("期望SessionNumber=1，实际=%d", session.SessionNumber)
	}
	if session.ClassroomID == nil || *session.ClassroomID != "room-101" {
		t.Error("会话应继承课程绑定的教室")
	}
	if len(env.pub.eventsOfType(realtime.EventSessionStarted)) != 1 {
		t.Error("应广播 session_started 事件")
	}

	// 快照中不再下发验证码
	snapshot, err := env.svc.Snapshot(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("Snapshot 应成功: %v", err)
	}
	if snapshot.Session.Code != "" {
		t.Error("快照不应包含验证码")
	}
}

func TestSessionService_Start_DuplicateActive(t *testing.T) {
	env := setupTestSessionService(t)

	mustStart(t, env, model.MethodCode)
	_, err := env.svc.Start(context.Background(), "course-001",
		&dto.StartSessionRequest{Method: model.MethodCode}, "teacher-001", "teacher")
	if !errors.Is(err, ErrSessionAlreadyActive) {
		t.Errorf("期望 ErrSessionAlreadyActive，实际: %v", err)
	}
}

func TestSessionService_Start_NotTeacher(t *testing.T) {
	env := setupTestSessionService(t)

	_, err := env.svc.Start(context.Background(), "course-001",
		&dto.StartSessionRequest{Method: model.MethodCode}, "teacher-999", "teacher")
	if !errors.Is(err, ErrNotSessionTeacher) {
		t.Errorf("期望 ErrNotSessionTeacher，实际: %v", err)
	}
}

func TestSessionService_Start_SeatWithoutBooking(t *testing.T) {
	env := setupTestSessionService(t)

	// 解除课程的教室绑定
	env.mocks.booking.bookings["booking-001"].Status = model.BookingStatusCancelled

	_, err := env.svc.Start(context.Background(), "course-001",
		&dto.StartSessionRequest{Method: model.MethodSeat}, "teacher-001", "teacher")
	if !errors.Is(err, ErrNoClassroomBound) {
		t.Errorf("期望 ErrNoClassroomBound，实际: %v", err)
	}
}

func TestSessionService_Start_SeatMaterializes(t *testing.T) {
	env := setupTestSessionService(t)

	session := mustStart(t, env, model.MethodSeat)
	seats, _ := env.mocks.seat.ListBySession(context.Background(), session.ID)
	if len(seats) != 6 {
		t.Fatalf("2×3 教室应物化 6 个座位，实际=%d", len(seats))
	}
	unavailable := 0
	for _, s := range seats {
		if s.Status == model.SeatStatusUnavailable {
			unavailable++
		}
	}
	if unavailable != 1 {
		t.Errorf("应有 1 个不可用座位（B3），实际=%d", unavailable)
	}
}

// ── CheckIn 测试 ──

func TestSessionService_CheckIn_CodePresent(t *testing.T) {
	env := setupTestSessionService(t)
	ctx := context.Background()

	session := mustStart(t, env, model.MethodCode)
	env.clock.Advance(5 * time.Minute)

	// 验证码大小写不敏感
	record, err := env.svc.CheckIn(ctx, session.ID,
		&dto.CheckInRequest{Code: strings.ToLower(session.Code)}, "stu-001", "student")
	if err != nil {
		t.Fatalf("CheckIn 应成功: %v", err)
	}
	if record.Status != model.RecordStatusPresent {
		t.Errorf("宽限期内签到应为 present，实际=%s", record.Status)
	}
	if len(env.pub.eventsOfType(realtime.EventAttendanceUpdate)) != 1 {
		t.Error("签到成功应广播 attendance_update")
	}
}

func TestSessionService_CheckIn_WrongCode(t *testing.T) {
	env := setupTestSessionService(t)

	session := mustStart(t, env, model.MethodCode)
	_, err := env.svc.CheckIn(context.Background(), session.ID,
		&dto.CheckInRequest{Code: "XXXX"}, "stu-001", "student")
	if !errors.Is(err, ErrCodeMismatch) {
		t.Errorf("期望 ErrCodeMismatch，实际: %v", err)
	}
	// 验证失败不应留下记录
	if _, err := env.mocks.record.GetBySessionAndStudent(context.Background(), session.ID, "stu-001"); err == nil {
		t.Error("验证失败不应写入签到记录")
	}
}

func TestSessionService_CheckIn_LateAfterGrace(t *testing.T) {
	env := setupTestSessionService(t)

	session := mustStart(t, env, model.MethodCode)
	env.clock.Advance(15 * time.Minute) // 宽限期 10 分钟

	record, err := env.svc.CheckIn(context.Background(), session.ID,
		&dto.CheckInRequest{Code: session.Code}, "stu-001", "student")
	if err != nil {
		t.Fatalf("CheckIn 应成功: %v", err)
	}
	if record.Status != model.RecordStatusLate {
		t.Errorf("宽限期后签到应为 late，实际=%s", record.Status)
	}
}

func TestSessionService_CheckIn_ExpiredLazyClose(t *testing.T) {
	env := setupTestSessionService(t)
	ctx := context.Background()

	session := mustStart(t, env, model.MethodCode)
	env.clock.Advance(31 * time.Minute) // 窗口 30 分钟

	_, err := env.svc.CheckIn(ctx, session.ID,
		&dto.CheckInRequest{Code: session.Code}, "stu-001", "student")
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("期望 ErrSessionExpired，实际: %v", err)
	}

	// 惰性检测应已触发关闭与补签
	closed, _ := env.mocks.session.GetByID(ctx, session.ID)
	if closed.Status != model.SessionStatusClosed {
		t.Errorf("过期会话应被惰性关闭，实际=%s", closed.Status)
	}
	records, _ := env.mocks.record.ListBySession(ctx, session.ID)
	if len(records) != 3 {
		t.Errorf("关闭后应为 3 名学生补齐记录，实际=%d", len(records))
	}
	for _, r := range records {
		if r.Status != model.RecordStatusAbsent {
			t.Errorf("未签到学生应为 absent，实际 %s=%s", r.StudentID, r.Status)
		}
	}
}

func TestSessionService_CheckIn_DuplicateIdempotent(t *testing.T) {
	env := setupTestSessionService(t)
	ctx := context.Background()

	session := mustStart(t, env, model.MethodCode)
	env.clock.Advance(5 * time.Minute)

	first, err := env.svc.CheckIn(ctx, session.ID,
		&dto.CheckInRequest{Code: session.Code}, "stu-001", "student")
	if err != nil {
		t.Fatalf("首次 CheckIn 应成功: %v", err)
	}

	// 宽限期过后重复签到：保留首签的 present，不降级
	env.clock.Advance(20 * time.Minute)
	second, err := env.svc.CheckIn(ctx, session.ID,
		&dto.CheckInRequest{Code: session.Code}, "stu-001", "student")
	if err != nil {
		t.Fatalf("重复 CheckIn 应幂等成功: %v", err)
	}
	if second.Status != first.Status {
		t.Errorf("重复签到不应改变状态：首次=%s 第二次=%s", first.Status, second.Status)
	}
	if second.CheckInTime == nil || *second.CheckInTime != *first.CheckInTime {
		t.Error("重复签到不应覆盖首签时间")
	}
}

func TestSessionService_CheckIn_NotEnrolled(t *testing.T) {
	env := setupTestSessionService(t)

	session := mustStart(t, env, model.MethodCode)
	_, err := env.svc.CheckIn(context.Background(), session.ID,
		&dto.CheckInRequest{Code: session.Code}, "stu-999", "student")
	if !errors.Is(err, ErrNotEnrolled) {
		t.Errorf("期望 ErrNotEnrolled，实际: %v", err)
	}
}

func TestSessionService_CheckIn_ManualByTeacher(t *testing.T) {
	env := setupTestSessionService(t)
	ctx := context.Background()

	session := mustStart(t, env, model.MethodManual)

	// 缺学生
	if _, err := env.svc.CheckIn(ctx, session.ID,
		&dto.CheckInRequest{}, "teacher-001", "teacher"); !errors.Is(err, ErrStudentRequired) {
		t.Errorf("期望 ErrStudentRequired，实际: %v", err)
	}
	// 非授课教师代签
	if _, err := env.svc.CheckIn(ctx, session.ID,
		&dto.CheckInRequest{StudentID: "stu-001"}, "teacher-999", "teacher"); !errors.Is(err, ErrNotSessionTeacher) {
		t.Errorf("期望 ErrNotSessionTeacher，实际: %v", err)
	}

	record, err := env.svc.CheckIn(ctx, session.ID,
		&dto.CheckInRequest{StudentID: "stu-002"}, "teacher-001", "teacher")
	if err != nil {
		t.Fatalf("教师点名应成功: %v", err)
	}
	if record.StudentID != "stu-002" {
		t.Errorf("记录主体应为被点名学生，实际=%s", record.StudentID)
	}
}

func TestSessionService_CheckIn_SeatFlow(t *testing.T) {
	env := setupTestSessionService(t)
	ctx := context.Background()

	session := mustStart(t, env, model.MethodSeat)

	record, err := env.svc.CheckIn(ctx, session.ID,
		&dto.CheckInRequest{SeatID: "A1"}, "stu-001", "student")
	if err != nil {
		t.Fatalf("选座签到应成功: %v", err)
	}
	if record.SeatID == nil || *record.SeatID != "A1" {
		t.Error("签到记录应携带座位号")
	}

	// 他人抢占同一座位
	if _, err := env.svc.CheckIn(ctx, session.ID,
		&dto.CheckInRequest{SeatID: "A1"}, "stu-002", "student"); !errors.Is(err, ErrSeatTaken) {
		t.Errorf("期望 ErrSeatTaken，实际: %v", err)
	}

	// 已占座学生换座提交：保留原座位（幂等）
	again, err := env.svc.CheckIn(ctx, session.ID,
		&dto.CheckInRequest{SeatID: "A2"}, "stu-001", "student")
	if err != nil {
		t.Fatalf("重复选座应幂等成功: %v", err)
	}
	if again.SeatID == nil || *again.SeatID != "A1" {
		t.Errorf("重复提交应保留原座位 A1，实际=%v", again.SeatID)
	}

	// 不可用座位不可抢
	if _, err := env.svc.CheckIn(ctx, session.ID,
		&dto.CheckInRequest{SeatID: "B3"}, "stu-003", "student"); !errors.Is(err, ErrSeatNotFound) {
		t.Errorf("不可用座位应拒绝，实际: %v", err)
	}
}

func TestSessionService_Start_MaterializeFailReclaims(t *testing.T) {
	env := setupTestSessionService(t)
	ctx := context.Background()

	// 教室绑定还在，但教室本身已从目录中删除：物化座位表会失败
	delete(env.mocks.classroom.rooms, "room-101")

	_, err := env.svc.Start(ctx, "course-001",
		&dto.StartSessionRequest{Method: model.MethodSeat}, "teacher-001", "teacher")
	if !errors.Is(err, ErrClassroomNotFound) {
		t.Fatalf("期望 ErrClassroomNotFound，实际: %v", err)
	}

	// 失败的会话必须被回收，不能以 active 状态挡住后续重试
	if _, err := env.mocks.session.GetActiveByCourse(ctx, "course-001"); err == nil {
		t.Fatal("物化失败后不应残留 active 会话")
	}
	if _, err := env.svc.Start(ctx, "course-001",
		&dto.StartSessionRequest{Method: model.MethodCode}, "teacher-001", "teacher"); err != nil {
		t.Errorf("回收后重试开启应成功: %v", err)
	}
}

func TestSessionService_CheckIn_SeatReassignUpdatesRecord(t *testing.T) {
	env := setupTestSessionService(t)
	ctx := context.Background()

	session := mustStart(t, env, model.MethodSeat)

	if _, err := env.svc.CheckIn(ctx, session.ID,
		&dto.CheckInRequest{SeatID: "A1"}, "stu-001", "student"); err != nil {
		t.Fatalf("首次选座应成功: %v", err)
	}

	// 教师释放 A1 后学生改占 B1
	if err := env.svc.ReleaseSeat(ctx, session.ID, "A1", "teacher-001", "teacher"); err != nil {
		t.Fatalf("释放座位应成功: %v", err)
	}
	record, err := env.svc.CheckIn(ctx, session.ID,
		&dto.CheckInRequest{SeatID: "B1"}, "stu-001", "student")
	if err != nil {
		t.Fatalf("换座重签应成功: %v", err)
	}

	// 座位表与签到记录必须一致指向新座位
	if record.SeatID == nil || *record.SeatID != "B1" {
		t.Errorf("返回记录应指向新座位 B1，实际=%v", record.SeatID)
	}
	stored, _ := env.mocks.record.GetBySessionAndStudent(ctx, session.ID, "stu-001")
	if stored.SeatID == nil || *stored.SeatID != "B1" {
		t.Errorf("落库记录应指向新座位 B1，实际=%v", stored.SeatID)
	}
	if stored.Status != model.RecordStatusPresent {
		t.Errorf("换座不应改动签到状态，实际=%s", stored.Status)
	}
	seat, _ := env.mocks.seat.GetByStudent(ctx, session.ID, "stu-001")
	if seat == nil || seat.SeatID != "B1" {
		t.Error("座位表应显示学生占 B1")
	}
}

// ── End 测试 ──

func TestSessionService_End_BackfillAndIdempotent(t *testing.T) {
	env := setupTestSessionService(t)
	ctx := context.Background()

	session := mustStart(t, env, model.MethodCode)
	env.clock.Advance(5 * time.Minute)
	if _, err := env.svc.CheckIn(ctx, session.ID,
		&dto.CheckInRequest{Code: session.Code}, "stu-001", "student"); err != nil {
		t.Fatalf("CheckIn 应成功: %v", err)
	}

	snapshot, err := env.svc.End(ctx, session.ID, "teacher-001", "teacher")
	if err != nil {
		t.Fatalf("End 应成功: %v", err)
	}
	if snapshot.Session.Status != model.SessionStatusClosed {
		t.Errorf("结束后状态应为 closed，实际=%s", snapshot.Session.Status)
	}
	if len(snapshot.Records) != 3 {
		t.Fatalf("快照应包含全部 3 名学生，实际=%d", len(snapshot.Records))
	}
	statusOf := make(map[string]string)
	for _, r := range snapshot.Records {
		statusOf[r.StudentID] = r.Status
	}
	if statusOf["stu-001"] != model.RecordStatusPresent {
		t.Errorf("已签到学生应保持 present，实际=%s", statusOf["stu-001"])
	}
	if statusOf["stu-002"] != model.RecordStatusAbsent || statusOf["stu-003"] != model.RecordStatusAbsent {
		t.Error("未签到学生应补为 absent")
	}
	if len(env.pub.eventsOfType(realtime.EventSessionClosed)) != 1 {
		t.Error("关闭应广播 session_closed 事件")
	}

	// 重复 End 幂等：不重复补签、不重复广播
	if _, err := env.svc.End(ctx, session.ID, "teacher-001", "teacher"); err != nil {
		t.Fatalf("重复 End 应幂等成功: %v", err)
	}
	if n := len(env.pub.eventsOfType(realtime.EventSessionClosed)); n != 1 {
		t.Errorf("重复 End 不应再次广播，事件数=%d", n)
	}

	// 关闭后签到被拒
	if _, err := env.svc.CheckIn(ctx, session.ID,
		&dto.CheckInRequest{Code: session.Code}, "stu-002", "student"); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("期望 ErrSessionClosed，实际: %v", err)
	}
	// 结束后可开启新会话，次数递增
	next := mustStart(t, env, model.MethodCode)
	if next.SessionNumber != 2 {
		t.Errorf("新会话次数应为 2，实际=%d", next.SessionNumber)
	}
}

func TestSessionService_End_NotTeacher(t *testing.T) {
	env := setupTestSessionService(t)

	session := mustStart(t, env, model.MethodCode)
	if _, err := env.svc.End(context.Background(), session.ID, "stu-001", "student"); !errors.Is(err, ErrNotSessionTeacher) {
		t.Errorf("期望 ErrNotSessionTeacher，实际: %v", err)
	}
}

// ── Extend 测试 ──

func TestSessionService_Extend(t *testing.T) {
	env := setupTestSessionService(t)
	ctx := context.Background()

	session := mustStart(t, env, model.MethodCode)
	env.clock.Advance(25 * time.Minute)

	extended, err := env.svc.Extend(ctx, session.ID,
		&dto.ExtendSessionRequest{ExtraMinutes: 10}, "teacher-001", "teacher")
	if err != nil {
		t.Fatalf("Extend 应成功: %v", err)
	}
	if *extended.ExpiresAt <= *session.ExpiresAt {
		t.Error("延长后截止时间应晚于原截止时间")
	}

	// 密钥不轮换：原验证码在延长窗口内依然有效
	env.clock.Advance(10 * time.Minute) // t0+35，仍在 40 分钟窗口内
	if _, err := env.svc.CheckIn(ctx, session.ID,
		&dto.CheckInRequest{Code: session.Code}, "stu-001", "student"); err != nil {
		t.Errorf("延长后原验证码应仍然有效: %v", err)
	}
}

func TestSessionService_Extend_AfterExpiry(t *testing.T) {
	env := setupTestSessionService(t)

	session := mustStart(t, env, model.MethodCode)
	env.clock.Advance(31 * time.Minute)

	_, err := env.svc.Extend(context.Background(), session.ID,
		&dto.ExtendSessionRequest{ExtraMinutes: 10}, "teacher-001", "teacher")
	if !errors.Is(err, ErrSessionExpired) {
		t.Errorf("过期后延长应被拒绝，实际: %v", err)
	}
}

// ── ManualOverride 测试 ──

func TestSessionService_ManualOverride_AfterClose(t *testing.T) {
	env := setupTestSessionService(t)
	ctx := context.Background()

	session := mustStart(t, env, model.MethodCode)
	if _, err := env.svc.End(ctx, session.ID, "teacher-001", "teacher"); err != nil {
		t.Fatalf("End 应成功: %v", err)
	}

	// 关闭后教师仍可修正：请假
	record, err := env.svc.ManualOverride(ctx, session.ID, "stu-002",
		&dto.ManualOverrideRequest{Status: model.RecordStatusExcused, Notes: "病假"}, "teacher-001", "teacher")
	if err != nil {
		t.Fatalf("ManualOverride 应成功: %v", err)
	}
	if record.Status != model.RecordStatusExcused {
		t.Errorf("期望 excused，实际=%s", record.Status)
	}

	stored, _ := env.mocks.record.GetBySessionAndStudent(ctx, session.ID, "stu-002")
	if stored.Status != model.RecordStatusExcused || stored.Notes != "病假" {
		t.Error("修正结果应覆盖补签的 absent 记录")
	}
}

func TestSessionService_ManualOverride_NotEnrolled(t *testing.T) {
	env := setupTestSessionService(t)

	session := mustStart(t, env, model.MethodCode)
	_, err := env.svc.ManualOverride(context.Background(), session.ID, "stu-999",
		&dto.ManualOverrideRequest{Status: model.RecordStatusPresent}, "teacher-001", "teacher")
	if !errors.Is(err, ErrNotEnrolled) {
		t.Errorf("期望 ErrNotEnrolled，实际: %v", err)
	}
}

func TestSessionService_ManualOverride_NotCourseTeacher(t *testing.T) {
	env := setupTestSessionService(t)
	ctx := context.Background()

	session := mustStart(t, env, model.MethodCode)

	// 其他课程的教师不能修正本课程的记录
	_, err := env.svc.ManualOverride(ctx, session.ID, "stu-001",
		&dto.ManualOverrideRequest{Status: model.RecordStatusPresent}, "teacher-999", "teacher")
	if !errors.Is(err, ErrNotSessionTeacher) {
		t.Errorf("期望 ErrNotSessionTeacher，实际: %v", err)
	}
	if _, err := env.mocks.record.GetBySessionAndStudent(ctx, session.ID, "stu-001"); err == nil {
		t.Error("越权修正不应写入记录")
	}

	// 管理员不受授课教师限制
	if _, err := env.svc.ManualOverride(ctx, session.ID, "stu-001",
		&dto.ManualOverrideRequest{Status: model.RecordStatusExcused}, "admin-001", "admin"); err != nil {
		t.Errorf("管理员修正应成功: %v", err)
	}
}

// ── 查询与二维码 ──

func TestSessionService_FindByCourseAndDate(t *testing.T) {
	env := setupTestSessionService(t)
	ctx := context.Background()

	session := mustStart(t, env, model.MethodCode)

	found, err := env.svc.FindByCourseAndDate(ctx, "course-001", env.clock.Now().Format("2006-01-02"))
	if err != nil {
		t.Fatalf("FindByCourseAndDate 应成功: %v", err)
	}
	if found.ID != session.ID {
		t.Errorf("期望找到 %s，实际=%s", session.ID, found.ID)
	}

	if _, err := env.svc.FindByCourseAndDate(ctx, "course-001", "1999-01-01"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("无会话日期应返回 ErrSessionNotFound，实际: %v", err)
	}
}

func TestSessionService_QRCodePNG(t *testing.T) {
	env := setupTestSessionService(t)
	ctx := context.Background()

	qrSession := mustStart(t, env, model.MethodQR)
	png, err := env.svc.QRCodePNG(ctx, qrSession.ID)
	if err != nil {
		t.Fatalf("QRCodePNG 应成功: %v", err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Error("输出应为 PNG 格式")
	}

	if _, err := env.svc.End(ctx, qrSession.ID, "teacher-001", "teacher"); err != nil {
		t.Fatalf("End 应成功: %v", err)
	}

	codeSession := mustStart(t, env, model.MethodCode)
	if _, err := env.svc.QRCodePNG(ctx, codeSession.ID); !errors.Is(err, ErrNotQRSession) {
		t.Errorf("期望 ErrNotQRSession，实际: %v", err)
	}
}

// ── SweepExpired 测试 ──

func TestSessionService_SweepExpired(t *testing.T) {
	env := setupTestSessionService(t)
	ctx := context.Background()

	session := mustStart(t, env, model.MethodCode)
	env.clock.Advance(31 * time.Minute)

	env.svc.SweepExpired(ctx)

	closed, _ := env.mocks.session.GetByID(ctx, session.ID)
	if closed.Status != model.SessionStatusClosed {
		t.Errorf("兜底扫描应关闭过期会话，实际=%s", closed.Status)
	}
	records, _ := env.mocks.record.ListBySession(ctx, session.ID)
	if len(records) != 3 {
		t.Errorf("扫描关闭也应补签，记录数=%d", len(records))
	}
}
