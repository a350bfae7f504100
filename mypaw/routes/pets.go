package routes

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"mypaw/mypaw/config"
	"mypaw/mypaw/controllers"
	"mypaw/mypaw/middlewares"
	"mypaw/mypaw/services/vision"
	"mypaw/mypaw/types"

	"github.com/go-chi/chi/v5"
)

// 10 MB cap on uploaded photos.
const maxImageBytes = 10 << 20

func PetRoutes(ctrl *controllers.PetController, cfg config.Config) chi.Router {
	r := chi.NewRouter()
	r.Group(func(gr chi.Router) {
		gr.Use(middlewares.AuthMiddleware(cfg))

		gr.Get("/", handleJSON(func(r *http.Request) (any, int, error) {
			userID, ok := middlewares.UserID(r)
			if !ok {
				return nil, http.StatusUnauthorized, errors.New("unauthorized")
			}
			pets, err := ctrl.ListPets(r.Context(), userID)
			if err != nil {
				return nil, http.StatusInternalServerError, err
			}
			return pets, http.StatusOK, nil
		}))

		// POST /pets/identify : multipart image -> identification profile
		gr.Post("/identify", handleJSON(func(r *http.Request) (any, int, error) {
			image, mimeType, err := readImage(r)
			if err != nil {
				return nil, http.StatusBadRequest, err
			}
			profile, err := ctrl.Identify(r.Context(), image, mimeType)
			if err != nil {
				if errors.Is(err, vision.ErrIdentification) {
					return nil, http.StatusUnprocessableEntity, err
				}
				return nil, http.StatusInternalServerError, err
			}
			return profile, http.StatusOK, nil
		}))

		// POST /pets/ : one-shot registration (identify + save)
		gr.Post("/", handleJSON(func(r *http.Request) (any, int, error) {
			userID, ok := middlewares.UserID(r)
			if !ok {
				return nil, http.StatusUnauthorized, errors.New("unauthorized")
			}
			var req types.RegisterPetRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				return nil, http.StatusBadRequest, err
			}
			if req.Name == "" {
				return nil, http.StatusBadRequest, errors.New("name is required")
			}
			image, err := decodeBase64Image(req.ImageBase64)
			if err != nil {
				return nil, http.StatusBadRequest, err
			}
			pet, err := ctrl.RegisterPet(r.Context(), userID, req.Name, image, req.MimeType)
			if err != nil {
				if errors.Is(err, vision.ErrIdentification) {
					return nil, http.StatusUnprocessableEntity, err
				}
				return nil, http.StatusInternalServerError, err
			}
			return pet, http.StatusOK, nil
		}))
	})
	return r
}

func readImage(r *http.Request) ([]byte, string, error) {
	if err := r.ParseMultipartForm(maxImageBytes); err != nil {
		return nil, "", err
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		return nil, "", err
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, maxImageBytes))
	if err != nil {
		return nil, "", err
	}
	return data, header.Header.Get("Content-Type"), nil
}
