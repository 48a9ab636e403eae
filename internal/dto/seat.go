package dto

// ── 座位模块 DTO ──

// AssignSeatRequest 选座请求
// student_id 仅教师代选时传入，学生自助选座取 JWT 身份
type AssignSeatRequest struct {
	StudentID *string `json:"student_id" binding:"omitempty,uuid"`
}

// SeatResponse 座位信息响应
type SeatResponse struct {
	SeatID    string  `json:"seat_id"`
	Status    string  `json:"status"`
	StudentID *string `json:"student_id,omitempty"`
	Confirmed bool    `json:"confirmed"`
}

// SeatMapResponse 会话座位表响应（按行优先顺序）
type SeatMapResponse struct {
	SessionID   string         `json:"session_id"`
	ClassroomID string         `json:"classroom_id"`
	Rows        int            `json:"rows"`
	SeatsPerRow int            `json:"seats_per_row"`
	Seats       []SeatResponse `json:"seats"`
}
