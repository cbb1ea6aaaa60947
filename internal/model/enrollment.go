package model

import "time"

type EnrollmentStatus string

const (
	EnrollmentActive    EnrollmentStatus = "active"
	EnrollmentCompleted EnrollmentStatus = "completed"
	EnrollmentCancelled EnrollmentStatus = "cancelled"
)

// Enrollment 每个 (user_id, course_id) 至多一行，由唯一索引保证；不做软删除，取消报名使用 EnrollmentCancelled
// swagger:model Enrollment
type Enrollment struct {
	UUIDModel
	UserID      string           `gorm:"type:varchar(36);not null;uniqueIndex:idx_enrollments_user_course" json:"userId"`
	CourseID    string           `gorm:"type:varchar(36);not null;uniqueIndex:idx_enrollments_user_course" json:"courseId"`
	Status      EnrollmentStatus `gorm:"size:20;not null;default:'active'" json:"status"`
	Progress    int              `gorm:"not null;default:0" json:"progress"`
	EnrolledAt  time.Time        `gorm:"not null" json:"enrolledAt"`
	CompletedAt *time.Time       `json:"completedAt,omitempty"`

	Course *Course `gorm:"foreignKey:CourseID" json:"course,omitempty"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}
