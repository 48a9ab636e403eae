package dto

// ── 教室模块 DTO ──

// CreateClassroomRequest 创建教室请求
type CreateClassroomRequest struct {
	Name             string   `json:"name"              binding:"required,min=2,max=100"`
	Building         string   `json:"building"          binding:"omitempty,max=100"`
	RoomNumber       string   `json:"room_number"       binding:"omitempty,max=30"`
	Rows             int      `json:"rows"              binding:"required,min=1,max=26"`
	SeatsPerRow      int      `json:"seats_per_row"     binding:"required,min=1,max=99"`
	UnavailableSeats []string `json:"unavailable_seats" binding:"omitempty,dive,max=10"`
}

// UpdateClassroomRequest 更新教室请求（管理员编辑）
type UpdateClassroomRequest struct {
	Name             *string   `json:"name"              binding:"omitempty,min=2,max=100"`
	Building         *string   `json:"building"          binding:"omitempty,max=100"`
	RoomNumber       *string   `json:"room_number"       binding:"omitempty,max=30"`
	Rows             *int      `json:"rows"              binding:"omitempty,min=1,max=26"`
	SeatsPerRow      *int      `json:"seats_per_row"     binding:"omitempty,min=1,max=99"`
	UnavailableSeats *[]string `json:"unavailable_seats" binding:"omitempty,dive,max=10"`
	IsActive         *bool     `json:"is_active"`
}

// ClassroomResponse 教室信息响应
type ClassroomResponse struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Building          string   `json:"building,omitempty"`
	RoomNumber        string   `json:"room_number,omitempty"`
	Rows              int      `json:"rows"`
	SeatsPerRow       int      `json:"seats_per_row"`
	Capacity          int      `json:"capacity"`
	EffectiveCapacity int      `json:"effective_capacity"`
	UnavailableSeats  []string `json:"unavailable_seats"`
	IsActive          bool     `json:"is_active"`
	CreatedAt         string   `json:"created_at"`
	UpdatedAt         string   `json:"updated_at"`
}

// ClassroomBrief 教室简要信息（嵌入预订/会话响应）
type ClassroomBrief struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
