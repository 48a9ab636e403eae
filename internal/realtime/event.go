package realtime

import "time"

// 事件类型（推送给课堂所有订阅端的状态增量）
const (
	EventSessionStarted   = "session_started"
	EventAttendanceUpdate = "attendance_update"
	EventSeatMapUpdate    = "seat_map_update"
	EventSessionClosed    = "session_closed"
)

// Event 实时广播事件
// 尽力送达，不持久化不重放；晚到订阅端通过快照接口补全当前状态。
type Event struct {
	Type        string      `json:"type"`
	SessionID   string      `json:"session_id,omitempty"`
	CourseID    string      `json:"course_id,omitempty"`
	ClassroomID string      `json:"classroom_id,omitempty"`
	Payload     interface{} `json:"payload,omitempty"`
	Timestamp   time.Time   `json:"timestamp"`
}

// ── 订阅范围（scope）──
// 事件按 scope 路由：教师面板订阅会话，教室大屏订阅教室。

// SessionScope 会话级订阅范围
func SessionScope(sessionID string) string { return "session:" + sessionID }

// ClassroomScope 教室级订阅范围
func ClassroomScope(classroomID string) string { return "classroom:" + classroomID }

// Publisher 事件发布边界
// Service 层只依赖该接口，不感知传输方式（WebSocket / SSE / 轮询）
type Publisher interface {
	Publish(event Event, scopes ...string)
}

// NopPublisher 空实现（测试与降级用）
type NopPublisher struct{}

// Publish 丢弃事件
func (NopPublisher) Publish(Event, ...string) {}
