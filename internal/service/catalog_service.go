package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/lookfree/techAssis-sub000/internal/dto"
	"github.com/lookfree/techAssis-sub000/internal/model"
	"github.com/lookfree/techAssis-sub000/internal/repository"
)

// ── 教室模块业务错误 ──

var (
	ErrClassroomNotFound = errors.New("教室不存在")
	ErrInvalidSeatID     = errors.New("不可用座位号超出教室座位范围")
)

// CatalogService 教室目录业务接口（纯数据管理，管理员维护）
type CatalogService interface {
	Create(ctx context.Context, req *dto.CreateClassroomRequest, callerID string) (*dto.ClassroomResponse, error)
	GetByID(ctx context.Context, id string) (*dto.ClassroomResponse, error)
	List(ctx context.Context, onlyActive bool) ([]dto.ClassroomResponse, error)
	Update(ctx context.Context, id string, req *dto.UpdateClassroomRequest, callerID string) (*dto.ClassroomResponse, error)
	Delete(ctx context.Context, id string, callerID string) error
}

type catalogService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewCatalogService 创建 CatalogService 实例
func NewCatalogService(repo *repository.Repository, logger *zap.Logger) CatalogService {
	return &catalogService{repo: repo, logger: logger}
}

func (s *catalogService) Create(ctx context.Context, req *dto.CreateClassroomRequest, callerID string) (*dto.ClassroomResponse, error) {
	room := &model.Classroom{
		Name:             req.Name,
		Building:         req.Building,
		RoomNumber:       req.RoomNumber,
		Rows:             req.Rows,
		SeatsPerRow:      req.SeatsPerRow,
		Capacity:         req.Rows * req.SeatsPerRow,
		UnavailableSeats: model.StringArray(req.UnavailableSeats),
		IsActive:         true,
	}
	if room.UnavailableSeats == nil {
		room.UnavailableSeats = model.StringArray{}
	}
	if err := validateUnavailableSeats(room); err != nil {
		return nil, err
	}
	room.CreatedBy = &callerID
	room.UpdatedBy = &callerID

	if err := s.repo.Classroom.Create(ctx, room); err != nil {
		s.logger.Error("创建教室失败", zap.Error(err))
		return nil, err
	}

	return s.toClassroomResponse(room), nil
}

func (s *catalogService) GetByID(ctx context.Context, id string) (*dto.ClassroomResponse, error) {
	room, err := s.repo.Classroom.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClassroomNotFound
		}
		s.logger.Error("查询教室失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return s.toClassroomResponse(room), nil
}

func (s *catalogService) List(ctx context.Context, onlyActive bool) ([]dto.ClassroomResponse, error) {
	rooms, err := s.repo.Classroom.List(ctx, onlyActive)
	if err != nil {
		s.logger.Error("列出教室失败", zap.Error(err))
		return nil, err
	}
	result := make([]dto.ClassroomResponse, 0, len(rooms))
	for i := range rooms {
		result = append(result, *s.toClassroomResponse(&rooms[i]))
	}
	return result, nil
}

func (s *catalogService) Update(ctx context.Context, id string, req *dto.UpdateClassroomRequest, callerID string) (*dto.ClassroomResponse, error) {
	room, err := s.repo.Classroom.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClassroomNotFound
		}
		return nil, err
	}

	if req.Name != nil {
		room.Name = *req.Name
	}
	if req.Building != nil {
		room.Building = *req.Building
	}
	if req.RoomNumber != nil {
		room.RoomNumber = *req.RoomNumber
	}
	if req.Rows != nil {
		room.Rows = *req.Rows
	}
	if req.SeatsPerRow != nil {
		room.SeatsPerRow = *req.SeatsPerRow
	}
	if req.UnavailableSeats != nil {
		room.UnavailableSeats = model.StringArray(*req.UnavailableSeats)
	}
	if req.IsActive != nil {
		room.IsActive = *req.IsActive
	}
	room.Capacity = room.Rows * room.SeatsPerRow
	if err := validateUnavailableSeats(room); err != nil {
		return nil, err
	}
	room.UpdatedBy = &callerID

	if err := s.repo.Classroom.Update(ctx, room); err != nil {
		s.logger.Error("更新教室失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return s.toClassroomResponse(room), nil
}

func (s *catalogService) Delete(ctx context.Context, id string, callerID string) error {
	if _, err := s.repo.Classroom.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrClassroomNotFound
		}
		return err
	}
	if err := s.repo.Classroom.Delete(ctx, id, callerID); err != nil {
		s.logger.Error("删除教室失败", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

// validateUnavailableSeats 校验不可用座位号落在几何范围内
func validateUnavailableSeats(room *model.Classroom) error {
	valid := make(map[string]struct{}, room.Rows*room.SeatsPerRow)
	for _, id := range room.SeatIDs() {
		valid[id] = struct{}{}
	}
	for _, id := range room.UnavailableSeats {
		if _, ok := valid[id]; !ok {
			return ErrInvalidSeatID
		}
	}
	return nil
}

// ── 内部辅助方法 ──

func (s *catalogService) toClassroomResponse(room *model.Classroom) *dto.ClassroomResponse {
	return &dto.ClassroomResponse{
		ID:                room.ClassroomID,
		Name:              room.Name,
		Building:          room.Building,
		RoomNumber:        room.RoomNumber,
		Rows:              room.Rows,
		SeatsPerRow:       room.SeatsPerRow,
		Capacity:          room.Capacity,
		EffectiveCapacity: room.EffectiveCapacity(),
		UnavailableSeats:  room.UnavailableSeats,
		IsActive:          room.IsActive,
		CreatedAt:         room.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt:         room.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}
