package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 模块级指标，/metrics 由 promhttp 暴露
var (
	// CheckInTotal 按签到方式与结果统计签到请求
	CheckInTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "techassis",
		Subsystem: "attendance",
		Name:      "checkin_total",
		Help:      "签到请求总数（按方式与结果）",
	}, []string{"method", "result"})

	// SessionsOpen 当前处于 active 状态的签到会话数
	SessionsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "techassis",
		Subsystem: "attendance",
		Name:      "sessions_open",
		Help:      "当前开启中的签到会话数",
	})

	// BookingConflictTotal 预订冲突被拒次数
	BookingConflictTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "techassis",
		Subsystem: "booking",
		Name:      "conflict_total",
		Help:      "教室预订因时间冲突被拒绝的次数",
	})

	// WSClients 当前在线的实时订阅连接数
	WSClients = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "techassis",
		Subsystem: "realtime",
		Name:      "ws_clients",
		Help:      "当前 WebSocket 订阅连接数",
	})
)
