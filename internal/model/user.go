package model

import "time"

// User is a staff member that records are attributed to.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"size:150;not null;uniqueIndex" json:"username"`
	// bcrypt-хеш; пустой у пользователей, входящих только по токену
	Password  string    `gorm:"size:100" json:"-"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
