package service

import (
	"go.uber.org/zap"

	"github.com/lookfree/techAssis-sub000/config"
	"github.com/lookfree/techAssis-sub000/internal/realtime"
	"github.com/lookfree/techAssis-sub000/internal/repository"
	"github.com/lookfree/techAssis-sub000/pkg/redis"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Catalog CatalogService
	Booking BookingService
	Session SessionService
	Seat    SeatService
	Export  ExportService
}

// NewService 创建 Service 聚合
// rdb 可为 nil（Redis 不可用时密钥缓存与限流降级）
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	rdb *redis.Client,
	pub realtime.Publisher,
	logger *zap.Logger,
) *Service {
	seat := NewSeatService(repo, pub, logger)
	return &Service{
		Catalog: NewCatalogService(repo, logger),
		Booking: NewBookingService(repo, logger),
		Session: NewSessionService(cfg, repo, rdb, seat, pub, logger),
		Seat:    seat,
		Export:  NewExportService(repo, logger),
	}
}
