package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DayPlan is one day's meal slots inside PlanData.WeeklyPlan.
type DayPlan struct {
	Breakfast string `json:"breakfast"`
	Lunch     string `json:"lunch"`
	Dinner    string `json:"dinner"`
	Treats    string `json:"treats"`
	Notes     string `json:"notes"`
}

// PlanData is the structured weekly plan the text generator produces.
// WeeklyPlan is keyed by English weekday names ("Monday" ... "Sunday").
type PlanData struct {
	WeeklyPlan            map[string]DayPlan `json:"weekly_plan"`
	NutritionalGuidelines []string           `json:"nutritional_guidelines"`
	FeedingSchedule       string             `json:"feeding_schedule"`
	PortionSizes          string             `json:"portion_sizes"`
	SpecialConsiderations []string           `json:"special_considerations"`
}

type DietPlan struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:uuid_generate_v4()"`
	PetID     uuid.UUID `json:"pet_id" gorm:"type:uuid;not null;index"`
	Pet       Pet       `json:"-" gorm:"foreignKey:PetID;references:ID;constraint:OnDelete:CASCADE"`
	UserID    int       `json:"user_id" gorm:"not null;index"`
	User      User      `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE"`
	PlanData  string    `json:"plan_data" gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP;index"`
}

func (d *DietPlan) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// DecodePlanData parses the stored plan payload.
func (d *DietPlan) DecodePlanData() (PlanData, error) {
	var out PlanData
	err := json.Unmarshal([]byte(d.PlanData), &out)
	return out, err
}
