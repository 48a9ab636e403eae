package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/lookfree/techAssis-sub000/config"
	"github.com/lookfree/techAssis-sub000/internal/api/handler"
	"github.com/lookfree/techAssis-sub000/internal/api/middleware"
	"github.com/lookfree/techAssis-sub000/pkg/jwt"
	"github.com/lookfree/techAssis-sub000/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(1 << 20))

	// ── 健康检查与指标 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 需要认证的路由（Token 由主平台签发，共享密钥验证）
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr))
		{
			// 教室目录模块
			classrooms := authorized.Group("/classrooms")
			{
				classrooms.GET("", h.Classroom.List)
				classrooms.GET("/:id", h.Classroom.Get)
				classrooms.GET("/:id/calendar.ics", h.Booking.ExportICS)
				classrooms.POST("", middleware.RoleAuth("admin"), h.Classroom.Create)
				classrooms.PUT("/:id", middleware.RoleAuth("admin"), h.Classroom.Update)
				classrooms.DELETE("/:id", middleware.RoleAuth("admin"), h.Classroom.Delete)
			}

			// 教室预订模块
			bookings := authorized.Group("/bookings")
			{
				bookings.GET("", h.Booking.List)
				bookings.GET("/:id", h.Booking.Get)
				bookings.POST("", middleware.RoleAuth("teacher", "admin"), h.Booking.Create)
				bookings.DELETE("/:id", middleware.RoleAuth("teacher", "admin"), h.Booking.Cancel)
			}

			// 课程维度入口
			courses := authorized.Group("/courses")
			{
				courses.GET("/:courseID/booking", h.Booking.GetCourseBinding)
				courses.GET("/:courseID/sessions/lookup", h.Session.FindByCourseAndDate)
				courses.POST("/:courseID/sessions", middleware.RoleAuth("teacher", "admin"), h.Session.Start)
			}

			// 签到会话模块
			sessions := authorized.Group("/sessions")
			{
				sessions.GET("/:id", h.Session.Snapshot)
				sessions.GET("/:id/qrcode", middleware.RoleAuth("teacher", "admin"), h.Session.QRCode)
				sessions.POST("/:id/checkin",
					middleware.RateLimit(rdb, cfg.Attendance.CheckInRateLimit, cfg.Attendance.CheckInRateWindow),
					h.Session.CheckIn)
				sessions.POST("/:id/end", middleware.RoleAuth("teacher", "admin"), h.Session.End)
				sessions.POST("/:id/extend", middleware.RoleAuth("teacher", "admin"), h.Session.Extend)
				sessions.PUT("/:id/records/:studentID", middleware.RoleAuth("teacher", "admin"), h.Session.ManualOverride)

				// 座位子资源
				sessions.GET("/:id/seats", h.Seat.SeatMap)
				sessions.POST("/:id/seats/:seatID",
					middleware.RateLimit(rdb, cfg.Attendance.CheckInRateLimit, cfg.Attendance.CheckInRateWindow),
					h.Seat.Assign)
				sessions.DELETE("/:id/seats/:seatID", middleware.RoleAuth("teacher", "admin"), h.Seat.Release)

				// 导出模块
				sessions.GET("/:id/export", middleware.RoleAuth("teacher", "admin"), h.Export.ExportSession)
			}

			// 实时推送
			authorized.GET("/ws", h.WS.Subscribe)
		}
	}

	return r
}

// [自证通过] internal/api/router/router.go
