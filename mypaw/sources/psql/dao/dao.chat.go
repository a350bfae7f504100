package dao

import (
	"context"

	"mypaw/mypaw/sources/psql/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChatMessageDAO struct {
	DB *gorm.DB
}

func NewChatMessageDAO(db *gorm.DB) *ChatMessageDAO {
	return &ChatMessageDAO{DB: db}
}

func (dao *ChatMessageDAO) SaveMessage(ctx context.Context, msg *models.ChatMessage) (*models.ChatMessage, error) {
	err := dao.DB.WithContext(ctx).Create(msg).Error
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// GetMessagesByPet returns the pet's conversation ascending by creation
// time. This order is the canonical history fed back to the text generator.
func (dao *ChatMessageDAO) GetMessagesByPet(ctx context.Context, userID int, petID uuid.UUID) ([]models.ChatMessage, error) {
	var msgs []models.ChatMessage
	err := dao.DB.WithContext(ctx).
		Where("pet_id = ? AND user_id = ?", petID, userID).
		Order("created_at ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	return msgs, nil
}
