package dao

import (
	"context"

	"mypaw/mypaw/sources/psql/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DietPlanDAO struct {
	DB *gorm.DB
}

func NewDietPlanDAO(db *gorm.DB) *DietPlanDAO {
	return &DietPlanDAO{DB: db}
}

func (dao *DietPlanDAO) CreateDietPlan(ctx context.Context, plan *models.DietPlan) (*models.DietPlan, error) {
	err := dao.DB.WithContext(ctx).Create(plan).Error
	if err != nil {
		return nil, err
	}
	return plan, nil
}

// GetLatestDietPlan returns the most recently created plan for the pet, or
// nil when none exists. Older plans are retained but not surfaced here.
func (dao *DietPlanDAO) GetLatestDietPlan(ctx context.Context, userID int, petID uuid.UUID) (*models.DietPlan, error) {
	var plan models.DietPlan
	err := dao.DB.WithContext(ctx).
		Where("pet_id = ? AND user_id = ?", petID, userID).
		Order("created_at DESC").
		First(&plan).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &plan, nil
}
