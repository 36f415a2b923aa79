package model

import "time"

// PhotoBlob stores photo bytes in the database when the db photo backend is used.
type PhotoBlob struct {
	Key         string    `gorm:"column:blob_key;primaryKey;size:255"`
	ContentType string    `gorm:"size:100;not null"`
	Data        []byte    `gorm:"not null"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}
