package models

import (
	"time"

	"opentimes/internal/timetable"
)

// Schedule holds one member's weekly availability grid for one group.
// There is exactly one row per (user, group) pair; submissions replace the
// stored grid in place. Rows are removed when the member leaves or the
// group is deleted.
type Schedule struct {
	GroupID   uint           `gorm:"primaryKey;autoIncrement:false" json:"group_id"`
	Group     *Group         `gorm:"foreignKey:GroupID" json:"group,omitempty"`
	UserID    uint           `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	User      *User          `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Slots     timetable.Grid `gorm:"type:char(168);not null" json:"slots"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
