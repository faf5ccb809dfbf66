package models

import "time"

// Student is keyed by the college ID printed on the student's ID card (e.g. TU4F2222016).
// Email and Password stay nil for students created implicitly by an application
// submission until they self-register.
type Student struct {
	ID         string    `gorm:"primaryKey;size:32" json:"id"`
	Name       string    `gorm:"size:100;not null" json:"name"`
	DOB        string    `gorm:"column:dob;size:10;not null" json:"dob"`
	Email      *string   `gorm:"uniqueIndex;size:255" json:"email"`
	Password   *string   `gorm:"size:255" json:"-"`
	Category   string    `gorm:"size:50" json:"category"`
	Department string    `gorm:"size:32;index" json:"department"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Registered reports whether the student has completed self-registration.
func (s *Student) Registered() bool {
	return s.Email != nil || s.Password != nil
}
