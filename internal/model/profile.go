package model

import "time"

type UserRole string

const (
	RoleStudent    UserRole = "student"
	RoleInstructor UserRole = "instructor"
	RoleAdmin      UserRole = "admin"
)

// IsElevated 管理员和讲师的角色不会被报名流程覆盖
func (r UserRole) IsElevated() bool {
	return r == RoleAdmin || r == RoleInstructor
}

// Profile 每个认证用户一条，ID 由身份提供方在注册时生成
// swagger:model Profile
type Profile struct {
	ID            string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	FullName      string    `gorm:"size:150" json:"fullName"`
	Email         string    `gorm:"size:255;index" json:"email"`
	Phone         string    `gorm:"size:32" json:"phone"`
	Address       string    `gorm:"size:255" json:"address"`
	City          string    `gorm:"size:100" json:"city"`
	State         string    `gorm:"size:100" json:"state"`
	Country       string    `gorm:"size:100" json:"country"`
	Pincode       string    `gorm:"size:20" json:"pincode"`
	Qualification string    `gorm:"size:255" json:"qualification"`
	Role          UserRole  `gorm:"size:20" json:"role"`
	StudentID     *string   `gorm:"size:32;uniqueIndex" json:"studentId"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (Profile) TableName() string {
	return "profiles"
}

// HasStudentID student_id 一旦写入即视为不可变
func (p *Profile) HasStudentID() bool {
	return p.StudentID != nil && *p.StudentID != ""
}
