package model

// 座位状态
const (
	SeatStatusAvailable   = "available"
	SeatStatusOccupied    = "occupied"
	SeatStatusReserved    = "reserved"
	SeatStatusUnavailable = "unavailable"
)

// Seat 座位表 — 对应 seats
// 按会话物化：开启选座签到时从教室几何生成整张座位表，
// 每个新会话在同一教室上重置。(session_id, seat_id) 唯一约束是并发抢座的仲裁者。
type Seat struct {
	SeatRecordID string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"seat_record_id"`
	SessionID    string  `gorm:"type:uuid;not null;uniqueIndex:uq_seat_per_session" json:"session_id"`
	ClassroomID  string  `gorm:"type:uuid;not null"                             json:"classroom_id"`
	SeatID       string  `gorm:"type:varchar(10);not null;uniqueIndex:uq_seat_per_session" json:"seat_id"`
	Status       string  `gorm:"type:varchar(15);not null;default:'available'"  json:"status"`
	StudentID    *string `gorm:"type:uuid"                                      json:"student_id,omitempty"`
	Confirmed    bool    `gorm:"not null;default:false"                         json:"confirmed"`
	BaseModel
}

// TableName 指定表名
func (Seat) TableName() string { return "seats" }
