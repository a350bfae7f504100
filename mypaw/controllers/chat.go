package controllers

import (
	"context"
	"fmt"
	"time"

	"mypaw/mypaw/services/persona"
	"mypaw/mypaw/sources/psql/dao"
	"mypaw/mypaw/sources/psql/models"
	"mypaw/mypaw/utils/logging"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ChatController struct {
	chatDAO *dao.ChatMessageDAO
	petDAO  *dao.PetDAO
	planDAO *dao.DietPlanDAO
	persona *persona.Service
}

func NewChatController(chatDAO *dao.ChatMessageDAO, petDAO *dao.PetDAO, planDAO *dao.DietPlanDAO, personaSvc *persona.Service) *ChatController {
	return &ChatController{chatDAO: chatDAO, petDAO: petDAO, planDAO: planDAO, persona: personaSvc}
}

// Send persists the human message, asks the persona for its reply, and
// persists that too. Returned messages are (human, persona) in order.
func (c *ChatController) Send(ctx context.Context, userID int, petID uuid.UUID, message string) ([]models.ChatMessage, error) {
	pet, err := c.petDAO.GetPetByID(ctx, userID, petID)
	if err != nil {
		return nil, err
	}
	if pet == nil {
		return nil, fmt.Errorf("pet %s not found", petID)
	}

	history, err := c.historyForPet(ctx, userID, petID)
	if err != nil {
		return nil, err
	}

	userMsg, err := c.chatDAO.SaveMessage(ctx, &models.ChatMessage{
		PetID:     petID,
		UserID:    userID,
		Message:   message,
		IsFromPet: false,
	})
	if err != nil {
		return nil, err
	}

	// The reply degrades gracefully without a plan; a lookup failure only
	// costs the diet context, not the message.
	plan, err := c.planDAO.GetLatestDietPlan(ctx, userID, petID)
	if err != nil {
		logging.ErrorLogger.Error("loading diet plan for chat failed", zap.Error(err))
		plan = nil
	}
	today := time.Now().Weekday().String()
	reply := c.persona.Chat(ctx, message, persona.ContextForPet(pet, plan, today), history)

	reasoning := reply.Reasoning
	petMsg, err := c.chatDAO.SaveMessage(ctx, &models.ChatMessage{
		PetID:     petID,
		UserID:    userID,
		Message:   reply.Response,
		IsFromPet: true,
		Reasoning: &reasoning,
	})
	if err != nil {
		return nil, err
	}
	return []models.ChatMessage{*userMsg, *petMsg}, nil
}

func (c *ChatController) ListMessages(ctx context.Context, userID int, petID uuid.UUID) ([]models.ChatMessage, error) {
	return c.chatDAO.GetMessagesByPet(ctx, userID, petID)
}

func (c *ChatController) historyForPet(ctx context.Context, userID int, petID uuid.UUID) ([]persona.Turn, error) {
	msgs, err := c.chatDAO.GetMessagesByPet(ctx, userID, petID)
	if err != nil {
		return nil, err
	}
	history := make([]persona.Turn, 0, len(msgs))
	for _, m := range msgs {
		role := "user"
		if m.IsFromPet {
			role = "assistant"
		}
		history = append(history, persona.Turn{Role: role, Content: m.Message})
	}
	return history, nil
}
