package controllers

import (
	"context"

	"mypaw/mypaw/services/pets"
	"mypaw/mypaw/services/vision"
	"mypaw/mypaw/sources/psql/dao"
	"mypaw/mypaw/sources/psql/models"
)

type PetController struct {
	petDAO   *dao.PetDAO
	registry *pets.Service
	vision   *vision.GeminiClient
}

func NewPetController(petDAO *dao.PetDAO, registry *pets.Service, visionClient *vision.GeminiClient) *PetController {
	return &PetController{petDAO: petDAO, registry: registry, vision: visionClient}
}

func (c *PetController) ListPets(ctx context.Context, userID int) ([]models.Pet, error) {
	return c.petDAO.GetPetsByUser(ctx, userID)
}

func (c *PetController) Identify(ctx context.Context, image []byte, mimeType string) (*vision.PetProfile, error) {
	return c.vision.Identify(ctx, image, mimeType)
}

// RegisterPet runs the stateless variant of the save-pet flow: identify the
// image, then upload/insert/greet through the shared sequence.
func (c *PetController) RegisterPet(ctx context.Context, userID int, name string, image []byte, mimeType string) (*models.Pet, error) {
	profile, err := c.vision.Identify(ctx, image, mimeType)
	if err != nil {
		return nil, err
	}
	return c.registry.Register(ctx, userID, name, profile, image, mimeType)
}
