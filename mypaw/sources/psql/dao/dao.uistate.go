package dao

import (
	"context"

	"mypaw/mypaw/sources/psql/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UIStateDAO persists the session engine's restoration slots. It is the
// durable mirror behind session.StateStore.
type UIStateDAO struct {
	DB *gorm.DB
}

func NewUIStateDAO(db *gorm.DB) *UIStateDAO {
	return &UIStateDAO{DB: db}
}

func (dao *UIStateDAO) Get(ctx context.Context, userID int) (*models.UIState, error) {
	var state models.UIState
	err := dao.DB.WithContext(ctx).Where("user_id = ?", userID).First(&state).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func (dao *UIStateDAO) SaveScreen(ctx context.Context, userID int, screen string) error {
	state := models.UIState{UserID: userID, LastScreen: screen}
	return dao.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_screen", "updated_at"}),
	}).Create(&state).Error
}

func (dao *UIStateDAO) SavePet(ctx context.Context, userID int, petJSON string) error {
	state := models.UIState{UserID: userID, LastPet: petJSON}
	return dao.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_pet", "updated_at"}),
	}).Create(&state).Error
}

func (dao *UIStateDAO) Clear(ctx context.Context, userID int) error {
	return dao.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.UIState{}).Error
}
