package controllers

import (
	"context"
	"fmt"

	"mypaw/mypaw/services/persona"
	"mypaw/mypaw/sources/psql/dao"

	"github.com/google/uuid"
)

type MoodController struct {
	petDAO  *dao.PetDAO
	persona *persona.Service
}

func NewMoodController(petDAO *dao.PetDAO, personaSvc *persona.Service) *MoodController {
	return &MoodController{petDAO: petDAO, persona: personaSvc}
}

// Next generates one mood-quiz scenario for the pet. Scenarios are not
// persisted: one question, consumed once.
func (c *MoodController) Next(ctx context.Context, userID int, petID uuid.UUID) (*persona.MoodScenario, error) {
	pet, err := c.petDAO.GetPetByID(ctx, userID, petID)
	if err != nil {
		return nil, err
	}
	if pet == nil {
		return nil, fmt.Errorf("pet %s not found", petID)
	}
	return c.persona.GenerateMoodScenario(ctx, persona.ContextForPet(pet, nil, ""))
}
