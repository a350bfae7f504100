package models

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrInvalidPersonality = errors.New("personality is not valid JSON")

// Personality is the structured payload stored in Pet.Personality.
type Personality struct {
	Characteristics []string `json:"characteristics"`
	CareTips        []string `json:"care_tips"`
}

type Pet struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:uuid_generate_v4()"`
	UserID      int       `json:"user_id" gorm:"not null;index"`
	User        User      `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE"`
	Name        string    `json:"name" gorm:"type:varchar(255);not null"`
	Type        string    `json:"type" gorm:"type:varchar(100);not null"`
	Breed       *string   `json:"breed,omitempty" gorm:"type:varchar(255)"`
	Description string    `json:"description" gorm:"type:text;not null"`
	// Personality always holds a JSON document of shape Personality,
	// never free text. Validated in BeforeCreate.
	Personality string    `json:"personality" gorm:"type:text;not null"`
	ImageURL    string    `json:"image_url" gorm:"type:varchar(512);not null"`
	CreatedAt   time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (p *Pet) BeforeCreate(tx *gorm.DB) error {
	if tx.Dialector.Name() == "postgres" {
		if err := tx.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
			return err
		}
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	var check Personality
	if err := json.Unmarshal([]byte(p.Personality), &check); err != nil {
		return ErrInvalidPersonality
	}
	return nil
}

// DecodePersonality parses the stored personality payload.
func (p *Pet) DecodePersonality() (Personality, error) {
	var out Personality
	if err := json.Unmarshal([]byte(p.Personality), &out); err != nil {
		return out, ErrInvalidPersonality
	}
	return out, nil
}

// BreedOrType is what prompts address the pet as when no breed was
// identified.
func (p *Pet) BreedOrType() string {
	if p.Breed != nil && *p.Breed != "" {
		return *p.Breed
	}
	return p.Type
}
