package controllers

import (
	"context"
	"encoding/json"
	"fmt"

	"mypaw/mypaw/services/persona"
	"mypaw/mypaw/sources/psql/dao"
	"mypaw/mypaw/sources/psql/models"

	"github.com/google/uuid"
)

type DietController struct {
	planDAO *dao.DietPlanDAO
	petDAO  *dao.PetDAO
	persona *persona.Service
}

func NewDietController(planDAO *dao.DietPlanDAO, petDAO *dao.PetDAO, personaSvc *persona.Service) *DietController {
	return &DietController{planDAO: planDAO, petDAO: petDAO, persona: personaSvc}
}

func (c *DietController) Latest(ctx context.Context, userID int, petID uuid.UUID) (*models.DietPlan, error) {
	return c.planDAO.GetLatestDietPlan(ctx, userID, petID)
}

// Generate asks the persona service for a fresh weekly plan and stores it
// as the pet's new current plan.
func (c *DietController) Generate(ctx context.Context, userID int, petID uuid.UUID) (*models.DietPlan, error) {
	pet, err := c.petDAO.GetPetByID(ctx, userID, petID)
	if err != nil {
		return nil, err
	}
	if pet == nil {
		return nil, fmt.Errorf("pet %s not found", petID)
	}
	data, err := c.persona.GenerateDietPlan(ctx, persona.ContextForPet(pet, nil, ""))
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return c.planDAO.CreateDietPlan(ctx, &models.DietPlan{
		PetID:    petID,
		UserID:   userID,
		PlanData: string(payload),
	})
}
