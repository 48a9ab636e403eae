package model

// Course 课程表 — 对应 courses
// 课程主数据由主平台维护，本服务只读取授课教师与选课名单。
type Course struct {
	CourseID  string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"course_id"`
	Name      string `gorm:"type:varchar(100);not null"                     json:"name"`
	TeacherID string `gorm:"type:uuid;not null"                             json:"teacher_id"`
	SoftDeleteModel
}

// TableName 指定表名
func (Course) TableName() string { return "courses" }

// Enrollment 选课名单表 — 对应 enrollments
type Enrollment struct {
	EnrollmentID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"enrollment_id"`
	CourseID     string `gorm:"type:uuid;not null;uniqueIndex:uq_enrollment"   json:"course_id"`
	StudentID    string `gorm:"type:uuid;not null;uniqueIndex:uq_enrollment"   json:"student_id"`
	StudentName  string `gorm:"type:varchar(50);not null"                      json:"student_name"`
	StudentNo    string `gorm:"type:varchar(30);not null"                      json:"student_no"`
	BaseModel
}

// TableName 指定表名
func (Enrollment) TableName() string { return "enrollments" }
