package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/lookfree/techAssis-sub000/internal/model"
)

// ClassroomRepository 教室数据访问接口
type ClassroomRepository interface {
	Create(ctx context.Context, room *model.Classroom) error
	GetByID(ctx context.Context, id string) (*model.Classroom, error)
	List(ctx context.Context, onlyActive bool) ([]model.Classroom, error)
	Update(ctx context.Context, room *model.Classroom) error
	Delete(ctx context.Context, id string, deletedBy string) error
}

type classroomRepo struct {
	db *gorm.DB
}

// NewClassroomRepo 创建 ClassroomRepository 实例
func NewClassroomRepo(db *gorm.DB) ClassroomRepository {
	return &classroomRepo{db: db}
}

func (r *classroomRepo) Create(ctx context.Context, room *model.Classroom) error {
	return r.db.WithContext(ctx).Create(room).Error
}

func (r *classroomRepo) GetByID(ctx context.Context, id string) (*model.Classroom, error) {
	var room model.Classroom
	err := r.db.WithContext(ctx).
		Where("classroom_id = ?", id).
		First(&room).Error
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *classroomRepo) List(ctx context.Context, onlyActive bool) ([]model.Classroom, error) {
	var rooms []model.Classroom
	db := r.db.WithContext(ctx)
	if onlyActive {
		db = db.Where("is_active = ?", true)
	}
	err := db.Order("building ASC, room_number ASC, name ASC").Find(&rooms).Error
	return rooms, err
}

func (r *classroomRepo) Update(ctx context.Context, room *model.Classroom) error {
	return r.db.WithContext(ctx).Save(room).Error
}

func (r *classroomRepo) Delete(ctx context.Context, id string, deletedBy string) error {
	return r.db.WithContext(ctx).
		Model(&model.Classroom{}).
		Where("classroom_id = ?", id).
		Updates(map[string]interface{}{
			"deleted_by": deletedBy,
			"deleted_at": gorm.Expr("NOW()"),
		}).Error
}
