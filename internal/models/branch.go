package models

import "time"

// Branch does not enumerate its members; users and sales records point at it.
type Branch struct {
	ID        uint      `gorm:"primaryKey" json:"_id"`
	Name      string    `gorm:"size:100;not null;unique" json:"name"`
	Location  string    `gorm:"size:255;not null" json:"location"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
