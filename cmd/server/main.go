package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/lookfree/techAssis-sub000/config"
	"github.com/lookfree/techAssis-sub000/internal/api/handler"
	"github.com/lookfree/techAssis-sub000/internal/api/router"
	"github.com/lookfree/techAssis-sub000/internal/realtime"
	"github.com/lookfree/techAssis-sub000/internal/repository"
	"github.com/lookfree/techAssis-sub000/internal/service"
	"github.com/lookfree/techAssis-sub000/pkg/database"
	"github.com/lookfree/techAssis-sub000/pkg/jwt"
	applogger "github.com/lookfree/techAssis-sub000/pkg/logger"
	"github.com/lookfree/techAssis-sub000/pkg/redis"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
	)

	// 3. 连接数据库
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	logger.Info("数据库连接成功")

	// 3.1 执行数据库迁移
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 4. 连接 Redis（可选：连接失败时降级运行，不中断启动）
	var rdb *redis.Client
	rdb, err = redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，密钥缓存与限流将降级", zap.Error(err))
		rdb = nil
	}

	// 5. 初始化 JWT 管理器
	jwtMgr := jwt.NewManager(&cfg.Auth)

	// 6. 实时推送 Hub
	hubCtx, hubCancel := context.WithCancel(context.Background())
	defer hubCancel()
	hub := realtime.NewHub(logger)
	go hub.Run(hubCtx)

	// 7. 依赖注入: Repository → Service → Handler
	repo := repository.NewRepository(db)
	svc := service.NewService(cfg, repo, rdb, hub, logger)
	h := handler.NewHandler(svc, hub, logger)

	// 7.1 恢复 active 会话的过期定时器（进程重启后接管）
	if err := svc.Session.ResumeWatchers(context.Background()); err != nil {
		logger.Error("恢复会话定时器失败", zap.Error(err))
	}

	// 7.2 过期会话兜底扫描（定时器遗漏时由扫描关闭）
	sweeper := cron.New()
	sweepSpec := fmt.Sprintf("@every %s", cfg.Attendance.SweepInterval)
	if _, err := sweeper.AddFunc(sweepSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		svc.Session.SweepExpired(ctx)
	}); err != nil {
		logger.Fatal("注册兜底扫描任务失败", zap.Error(err))
	}
	sweeper.Start()

	// 8. 初始化路由
	engine := router.Setup(cfg, h, jwtMgr, rdb, logger)

	// 9. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 10. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	// 停止后台任务与定时器
	<-sweeper.Stop().Done()
	svc.Session.Stop()
	hubCancel()

	// 关闭数据库连接
	closeDB, _ := db.DB()
	if closeDB != nil {
		closeDB.Close()
	}

	// 关闭 Redis 连接
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}
