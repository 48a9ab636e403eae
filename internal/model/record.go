package model

import "time"

// 签到记录状态
const (
	RecordStatusPresent = "present"
	RecordStatusLate    = "late"
	RecordStatusAbsent  = "absent"
	RecordStatusExcused = "excused"
)

// ValidRecordStatus 校验记录状态取值（手动修正接口用）
func ValidRecordStatus(s string) bool {
	switch s {
	case RecordStatusPresent, RecordStatusLate, RecordStatusAbsent, RecordStatusExcused:
		return true
	}
	return false
}

// AttendanceRecord 签到记录表 — 对应 attendance_records
// 每个 (session_id, student_id) 恰好一条；首次签到或会话关闭补签时懒创建，
// 手动修正可覆盖，永不删除。
type AttendanceRecord struct {
	RecordID    string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"record_id"`
	SessionID   string     `gorm:"type:uuid;not null;uniqueIndex:uq_record_per_student" json:"session_id"`
	StudentID   string     `gorm:"type:uuid;not null;uniqueIndex:uq_record_per_student" json:"student_id"`
	Status      string     `gorm:"type:varchar(10);not null"                      json:"status"`
	CheckInTime *time.Time `json:"check_in_time,omitempty"`
	Method      *string    `gorm:"type:varchar(10)"                               json:"method,omitempty"`
	SeatID      *string    `gorm:"type:varchar(10)"                               json:"seat_id,omitempty"`
	Notes       string     `gorm:"type:varchar(500)"                              json:"notes,omitempty"`
	BaseModel
}

// TableName 指定表名
func (AttendanceRecord) TableName() string { return "attendance_records" }
