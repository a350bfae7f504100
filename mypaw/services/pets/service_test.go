package pets

import (
	"context"
	"errors"
	"testing"

	"mypaw/mypaw/services/persona"
	"mypaw/mypaw/services/vision"
	"mypaw/mypaw/sources/psql/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePetStore struct {
	created *models.Pet
	err     error
}

func (f *fakePetStore) CreatePet(ctx context.Context, pet *models.Pet) (*models.Pet, error) {
	if f.err != nil {
		return nil, f.err
	}
	pet.ID = uuid.New()
	f.created = pet
	return pet, nil
}

type fakeMessageStore struct {
	saved []models.ChatMessage
	err   error
}

func (f *fakeMessageStore) SaveMessage(ctx context.Context, msg *models.ChatMessage) (*models.ChatMessage, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.saved = append(f.saved, *msg)
	return msg, nil
}

type fakeImageStore struct {
	url string
	err error
}

func (f *fakeImageStore) UploadPetImage(ctx context.Context, data []byte, scopingKey, ext, contentType string) (string, error) {
	return f.url, f.err
}

type fakeGreeter struct{ greeting string }

func (f *fakeGreeter) Greeting(ctx context.Context, p persona.Context) string {
	return f.greeting
}

func labProfile() *vision.PetProfile {
	return &vision.PetProfile{
		Type:            "dog",
		Breed:           "Labrador",
		Description:     "A golden lab",
		Characteristics: []string{"friendly"},
		CareTips:        []string{"daily walks"},
	}
}

func TestRegisterRunsFullSequence(t *testing.T) {
	pets := &fakePetStore{}
	messages := &fakeMessageStore{}
	images := &fakeImageStore{url: "https://cdn.example.com/pets/x.jpg"}
	greeter := &fakeGreeter{greeting: "Woof, I'm Rex!"}
	s := NewService(pets, messages, images, greeter)

	pet, err := s.Register(context.Background(), 1, "Rex", labProfile(), []byte("jpeg"), "image/jpeg")
	require.NoError(t, err)

	assert.Equal(t, "Rex", pet.Name)
	assert.Equal(t, "dog", pet.Type)
	require.NotNil(t, pet.Breed)
	assert.Equal(t, "Labrador", *pet.Breed)
	assert.Equal(t, images.url, pet.ImageURL)

	personality, err := pet.DecodePersonality()
	require.NoError(t, err)
	assert.Equal(t, []string{"friendly"}, personality.Characteristics)

	require.Len(t, messages.saved, 1, "greeting must be persisted as the first message")
	assert.True(t, messages.saved[0].IsFromPet)
	assert.Equal(t, "Woof, I'm Rex!", messages.saved[0].Message)
	assert.Equal(t, pet.ID, messages.saved[0].PetID)
}

func TestRegisterOmitsEmptyBreed(t *testing.T) {
	pets := &fakePetStore{}
	s := NewService(pets, &fakeMessageStore{}, &fakeImageStore{url: "u"}, &fakeGreeter{greeting: "hi"})

	profile := labProfile()
	profile.Breed = ""
	pet, err := s.Register(context.Background(), 1, "Rex", profile, []byte("x"), "image/jpeg")
	require.NoError(t, err)
	assert.Nil(t, pet.Breed)
	assert.Equal(t, "dog", pet.BreedOrType())
}

func TestRegisterSubStepFailures(t *testing.T) {
	boom := errors.New("boom")

	t.Run("upload failure", func(t *testing.T) {
		pets := &fakePetStore{}
		s := NewService(pets, &fakeMessageStore{}, &fakeImageStore{err: boom}, &fakeGreeter{})
		_, err := s.Register(context.Background(), 1, "Rex", labProfile(), []byte("x"), "image/jpeg")
		require.Error(t, err)
		assert.Nil(t, pets.created, "no pet record without an uploaded image")
	})

	t.Run("create failure", func(t *testing.T) {
		messages := &fakeMessageStore{}
		s := NewService(&fakePetStore{err: boom}, messages, &fakeImageStore{url: "u"}, &fakeGreeter{})
		_, err := s.Register(context.Background(), 1, "Rex", labProfile(), []byte("x"), "image/jpeg")
		require.Error(t, err)
		assert.Empty(t, messages.saved, "no greeting without a pet record")
	})

	t.Run("greeting save failure", func(t *testing.T) {
		s := NewService(&fakePetStore{}, &fakeMessageStore{err: boom}, &fakeImageStore{url: "u"}, &fakeGreeter{})
		_, err := s.Register(context.Background(), 1, "Rex", labProfile(), []byte("x"), "image/jpeg")
		require.Error(t, err, "a saved pet without its greeting is not a completed registration")
	})
}

func TestExtForMime(t *testing.T) {
	cases := map[string]string{
		"image/png":  "png",
		"image/webp": "webp",
		"image/gif":  "gif",
		"image/jpeg": "jpg",
		"":           "jpg",
	}
	for mime, want := range cases {
		if got := ExtForMime(mime); got != want {
			t.Errorf("ExtForMime(%q) = %q, want %q", mime, got, want)
		}
	}
}
