package dao

import (
	"context"

	"mypaw/mypaw/sources/psql/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PetDAO struct {
	DB *gorm.DB
}

func NewPetDAO(db *gorm.DB) *PetDAO {
	return &PetDAO{DB: db}
}

// GetPetsByUser returns the user's pets newest first, matching the order
// the dashboard displays them in.
func (dao *PetDAO) GetPetsByUser(ctx context.Context, userID int) ([]models.Pet, error) {
	var pets []models.Pet
	err := dao.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&pets).Error
	if err != nil {
		return nil, err
	}
	return pets, nil
}

func (dao *PetDAO) GetPetByID(ctx context.Context, userID int, petID uuid.UUID) (*models.Pet, error) {
	var pet models.Pet
	err := dao.DB.WithContext(ctx).
		Where("id = ? AND user_id = ?", petID, userID).
		First(&pet).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &pet, nil
}

func (dao *PetDAO) CreatePet(ctx context.Context, pet *models.Pet) (*models.Pet, error) {
	err := dao.DB.WithContext(ctx).Create(pet).Error
	if err != nil {
		return nil, err
	}
	return pet, nil
}
