package dto

// ── 签到会话模块 DTO ──

// StartSessionRequest 开启签到请求
// grace_minutes 不传时取全局配置默认值（迟到判定宽限期是显式配置输入，不是隐藏常量）
type StartSessionRequest struct {
	Method          string  `json:"method"           binding:"required,oneof=code qr seat manual"`
	DurationMinutes int     `json:"duration_minutes" binding:"omitempty,min=1,max=180"`
	GraceMinutes    *int    `json:"grace_minutes"    binding:"omitempty,min=0,max=60"`
	SessionDate     *string `json:"session_date"     binding:"omitempty,datetime=2006-01-02"`
}

// CheckInRequest 学生签到请求（按会话签到方式取用对应字段）
type CheckInRequest struct {
	Code      string `json:"code"       binding:"omitempty,max=8"`  // method=code
	Token     string `json:"token"      binding:"omitempty,max=64"` // method=qr
	SeatID    string `json:"seat_id"    binding:"omitempty,max=10"` // method=seat
	StudentID string `json:"student_id" binding:"omitempty,uuid"`   // method=manual：教师代签的学生
}

// ExtendSessionRequest 延长签到窗口请求
type ExtendSessionRequest struct {
	ExtraMinutes int `json:"extra_minutes" binding:"required,min=1,max=60"`
}

// ManualOverrideRequest 教师手动修正记录请求
type ManualOverrideRequest struct {
	Status string `json:"status" binding:"required,oneof=present late absent excused"`
	Notes  string `json:"notes"  binding:"omitempty,max=500"`
}

// SessionResponse 会话信息响应
// code 仅对开启会话的教师下发一次（start 响应），快照中不含密钥
type SessionResponse struct {
	ID              string          `json:"id"`
	CourseID        string          `json:"course_id"`
	CourseName      string          `json:"course_name,omitempty"`
	ClassroomID     *string         `json:"classroom_id,omitempty"`
	Classroom       *ClassroomBrief `json:"classroom,omitempty"`
	SessionNumber   int             `json:"session_number"`
	SessionDate     string          `json:"session_date"`
	Method          string          `json:"method"`
	Status          string          `json:"status"`
	DurationMinutes int             `json:"duration_minutes"`
	GraceMinutes    int             `json:"grace_minutes"`
	Code            string          `json:"code,omitempty"`
	StartedAt       *string         `json:"started_at,omitempty"`
	ExpiresAt       *string         `json:"expires_at,omitempty"`
	ClosedAt        *string         `json:"closed_at,omitempty"`
}

// AttendanceRecordResponse 签到记录响应
type AttendanceRecordResponse struct {
	StudentID   string  `json:"student_id"`
	StudentName string  `json:"student_name,omitempty"`
	StudentNo   string  `json:"student_no,omitempty"`
	Status      string  `json:"status"`
	CheckInTime *string `json:"check_in_time,omitempty"`
	Method      *string `json:"method,omitempty"`
	SeatID      *string `json:"seat_id,omitempty"`
	Notes       string  `json:"notes,omitempty"`
}

// SessionSnapshotResponse 会话快照：断线重连 / 晚订阅客户端的全量同步读
type SessionSnapshotResponse struct {
	Session *SessionResponse           `json:"session"`
	Records []AttendanceRecordResponse `json:"records"`
	SeatMap *SeatMapResponse           `json:"seat_map,omitempty"`
}
