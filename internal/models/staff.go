package models

import "time"

type Staff struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Name       string    `gorm:"size:100;not null" json:"name"`
	Email      string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password   string    `gorm:"size:255;not null" json:"-"`
	Department string    `gorm:"size:32;not null;index" json:"department"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (Staff) TableName() string {
	return "staff"
}
