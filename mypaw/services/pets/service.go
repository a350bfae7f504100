package pets

import (
	"context"
	"encoding/json"
	"fmt"

	"mypaw/mypaw/services/persona"
	"mypaw/mypaw/services/vision"
	"mypaw/mypaw/sources/psql/models"

	"github.com/google/uuid"
)

type PetStore interface {
	CreatePet(ctx context.Context, pet *models.Pet) (*models.Pet, error)
}

type MessageStore interface {
	SaveMessage(ctx context.Context, msg *models.ChatMessage) (*models.ChatMessage, error)
}

type ImageStore interface {
	UploadPetImage(ctx context.Context, data []byte, scopingKey, ext, contentType string) (string, error)
}

type Greeter interface {
	Greeting(ctx context.Context, p persona.Context) string
}

// Service runs the save-pet sequence: image upload, pet record, persona
// greeting. The sequence is all-or-nothing from the caller's point of view:
// any failing sub-step returns an error and the result must not be treated
// as a saved pet.
type Service struct {
	pets     PetStore
	messages MessageStore
	images   ImageStore
	greeter  Greeter
}

func NewService(pets PetStore, messages MessageStore, images ImageStore, greeter Greeter) *Service {
	return &Service{pets: pets, messages: messages, images: images, greeter: greeter}
}

func (s *Service) Register(ctx context.Context, userID int, name string, profile *vision.PetProfile, image []byte, mimeType string) (*models.Pet, error) {
	// The scoping key namespaces the upload before the pet record exists.
	scopingKey := "temp-" + uuid.New().String()
	imageURL, err := s.images.UploadPetImage(ctx, image, scopingKey, ExtForMime(mimeType), mimeType)
	if err != nil {
		return nil, fmt.Errorf("image upload: %w", err)
	}

	personality, err := json.Marshal(models.Personality{
		Characteristics: profile.Characteristics,
		CareTips:        profile.CareTips,
	})
	if err != nil {
		return nil, err
	}
	pet := &models.Pet{
		UserID:      userID,
		Name:        name,
		Type:        profile.Type,
		Description: profile.Description,
		Personality: string(personality),
		ImageURL:    imageURL,
	}
	if profile.Breed != "" {
		breed := profile.Breed
		pet.Breed = &breed
	}
	saved, err := s.pets.CreatePet(ctx, pet)
	if err != nil {
		return nil, fmt.Errorf("save pet: %w", err)
	}

	greeting := s.greeter.Greeting(ctx, persona.Context{
		Name:        name,
		Type:        profile.Type,
		BreedOrType: profile.BreedOrType(),
		Info:        profile.Description,
	})
	_, err = s.messages.SaveMessage(ctx, &models.ChatMessage{
		PetID:     saved.ID,
		UserID:    userID,
		Message:   greeting,
		IsFromPet: true,
	})
	if err != nil {
		return nil, fmt.Errorf("save greeting: %w", err)
	}
	return saved, nil
}

func ExtForMime(mime string) string {
	switch mime {
	case "image/png":
		return "png"
	case "image/webp":
		return "webp"
	case "image/gif":
		return "gif"
	default:
		return "jpg"
	}
}
