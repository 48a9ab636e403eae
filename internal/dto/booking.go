package dto

// ── 教室预订模块 DTO ──

// CreateBookingRequest 课程绑定教室请求
// recurring=true 时按 day_of_week 每周生效；
// recurring=false 时 booking_date 必填，仅该日生效。
type CreateBookingRequest struct {
	ClassroomID string  `json:"classroom_id" binding:"required,uuid"`
	CourseID    string  `json:"course_id"    binding:"required,uuid"`
	DayOfWeek   int     `json:"day_of_week"  binding:"omitempty,min=1,max=7"`
	StartTime   string  `json:"start_time"   binding:"required"` // "08:00"
	EndTime     string  `json:"end_time"     binding:"required"` // "10:00"
	BookingDate *string `json:"booking_date" binding:"omitempty,datetime=2006-01-02"`
	Recurring   bool    `json:"recurring"`
}

// BookingListRequest 预订列表查询参数
type BookingListRequest struct {
	ClassroomID string `form:"classroom_id" binding:"omitempty,uuid"`
	CourseID    string `form:"course_id"    binding:"omitempty,uuid"`
	Status      string `form:"status"       binding:"omitempty,oneof=active cancelled"`
}

// BookingResponse 预订信息响应
type BookingResponse struct {
	ID          string          `json:"id"`
	ClassroomID string          `json:"classroom_id"`
	Classroom   *ClassroomBrief `json:"classroom,omitempty"`
	CourseID    string          `json:"course_id"`
	CourseName  string          `json:"course_name,omitempty"`
	TeacherID   string          `json:"teacher_id"`
	DayOfWeek   int             `json:"day_of_week"`
	StartTime   string          `json:"start_time"`
	EndTime     string          `json:"end_time"`
	BookingDate *string         `json:"booking_date,omitempty"`
	Recurring   bool            `json:"recurring"`
	Status      string          `json:"status"`
	CreatedAt   string          `json:"created_at"`
}
