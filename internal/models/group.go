package models

import "time"

// Group is a scheduling circle identified by an opaque slug. The slug is
// generated server-side at creation and is never reused after deletion, so
// stale client links cannot resolve to an unrelated group.
type Group struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Slug            string    `gorm:"size:36;not null;uniqueIndex" json:"slug"`
	Name            string    `gorm:"size:120;not null" json:"name"`
	Location        string    `gorm:"size:255" json:"location"`
	Description     string    `gorm:"type:text" json:"description"`
	CreatedByUserID uint      `gorm:"not null;index" json:"created_by_user_id"`
	CreatedByUser   *User     `gorm:"foreignKey:CreatedByUserID" json:"created_by_user,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (Group) TableName() string {
	return "groups"
}
