package model

import "time"

// Class 由市场的课程模块维护，这里只读
type Class struct {
	BaseModel
	Name        string `gorm:"size:150;not null" json:"name"`
	Subject     string `gorm:"size:100" json:"subject"`
	TeacherID   uint   `gorm:"index;not null" json:"teacherId"`
	InstituteID *uint  `gorm:"index" json:"instituteId,omitempty"`
}

func (Class) TableName() string {
	return "classes"
}

type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "Active"
	SubscriptionInactive SubscriptionStatus = "Inactive"
)

type StudentSubscription struct {
	BaseModel
	StudentID uint               `gorm:"index:idx_sub_student_class;not null" json:"studentId"`
	ClassID   uint               `gorm:"index:idx_sub_student_class;not null" json:"classId"`
	Status    SubscriptionStatus `gorm:"size:20;not null;default:'Inactive'" json:"status"`
	ExpiresAt *time.Time         `json:"expiresAt,omitempty"`
}

func (StudentSubscription) TableName() string {
	return "student_subscriptions"
}

// Entitles 状态为 Active 且未过期
func (s *StudentSubscription) Entitles(now time.Time) bool {
	if s.Status != SubscriptionActive {
		return false
	}
	return s.ExpiresAt == nil || s.ExpiresAt.After(now)
}
