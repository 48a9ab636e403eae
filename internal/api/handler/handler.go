package handler

import (
	"go.uber.org/zap"

	"github.com/lookfree/techAssis-sub000/internal/realtime"
	"github.com/lookfree/techAssis-sub000/internal/service"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Classroom *ClassroomHandler
	Booking   *BookingHandler
	Session   *SessionHandler
	Seat      *SeatHandler
	Export    *ExportHandler
	WS        *WSHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service, hub *realtime.Hub, logger *zap.Logger) *Handler {
	return &Handler{
		Classroom: NewClassroomHandler(svc.Catalog),
		Booking:   NewBookingHandler(svc.Booking),
		Session:   NewSessionHandler(svc.Session),
		Seat:      NewSeatHandler(svc.Session),
		Export:    NewExportHandler(svc.Export),
		WS:        NewWSHandler(hub, logger),
	}
}
