package repository

import "gorm.io/gorm"

// Repository 所有 Repository 的聚合入口
type Repository struct {
	Classroom  ClassroomRepository
	Booking    BookingRepository
	Session    SessionRepository
	Seat       SeatRepository
	Record     RecordRepository
	Course     CourseRepository
	Enrollment EnrollmentRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		Classroom:  NewClassroomRepo(db),
		Booking:    NewBookingRepo(db),
		Session:    NewSessionRepo(db),
		Seat:       NewSeatRepo(db),
		Record:     NewRecordRepo(db),
		Course:     NewCourseRepo(db),
		Enrollment: NewEnrollmentRepo(db),
	}
}
