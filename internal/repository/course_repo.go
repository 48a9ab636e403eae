package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/lookfree/techAssis-sub000/internal/model"
)

// CourseRepository 课程数据访问接口（课程主数据由主平台同步，此处只读）
type CourseRepository interface {
	GetByID(ctx context.Context, id string) (*model.Course, error)
}

type courseRepo struct {
	db *gorm.DB
}

// NewCourseRepo 创建 CourseRepository 实例
func NewCourseRepo(db *gorm.DB) CourseRepository {
	return &courseRepo{db: db}
}

func (r *courseRepo) GetByID(ctx context.Context, id string) (*model.Course, error) {
	var course model.Course
	err := r.db.WithContext(ctx).
		Where("course_id = ?", id).
		First(&course).Error
	if err != nil {
		return nil, err
	}
	return &course, nil
}

// EnrollmentRepository 选课名单数据访问接口
type EnrollmentRepository interface {
	ListByCourse(ctx context.Context, courseID string) ([]model.Enrollment, error)
	IsEnrolled(ctx context.Context, courseID, studentID string) (bool, error)
}

type enrollmentRepo struct {
	db *gorm.DB
}

// NewEnrollmentRepo 创建 EnrollmentRepository 实例
func NewEnrollmentRepo(db *gorm.DB) EnrollmentRepository {
	return &enrollmentRepo{db: db}
}

func (r *enrollmentRepo) ListByCourse(ctx context.Context, courseID string) ([]model.Enrollment, error) {
	var enrollments []model.Enrollment
	err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("student_no ASC").
		Find(&enrollments).Error
	return enrollments, err
}

func (r *enrollmentRepo) IsEnrolled(ctx context.Context, courseID, studentID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Enrollment{}).
		Where("course_id = ? AND student_id = ?", courseID, studentID).
		Count(&count).Error
	return count > 0, err
}
