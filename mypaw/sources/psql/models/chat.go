package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChatMessage struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:uuid_generate_v4()"`
	PetID     uuid.UUID `json:"pet_id" gorm:"type:uuid;not null;index"`
	Pet       Pet       `json:"-" gorm:"foreignKey:PetID;references:ID;constraint:OnDelete:CASCADE"`
	UserID    int       `json:"user_id" gorm:"not null;index"`
	User      User      `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE"`
	Message   string    `json:"message" gorm:"type:text;not null"`
	IsFromPet bool      `json:"is_from_pet" gorm:"not null"`
	// Reasoning is only meaningful on persona-originated messages.
	Reasoning *string   `json:"reasoning,omitempty" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP;index"`
}

func (m *ChatMessage) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
