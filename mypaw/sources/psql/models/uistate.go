package models

import "time"

// UIState mirrors the session engine's restoration slots per user: the last
// non-landing/non-auth screen and a snapshot of the last selected pet.
// Only the session engine reads or writes rows in this table.
type UIState struct {
	UserID     int       `json:"user_id" gorm:"primaryKey"`
	User       User      `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE"`
	LastScreen string    `json:"last_screen" gorm:"type:varchar(50)"`
	// LastPet is a JSON snapshot of the selected pet, empty when cleared.
	LastPet   string    `json:"last_pet" gorm:"type:text"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}
