package routes

import (
	"errors"
	"net/http"

	"mypaw/mypaw/config"
	"mypaw/mypaw/controllers"
	"mypaw/mypaw/middlewares"
	"mypaw/mypaw/services/persona"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func MoodRoutes(ctrl *controllers.MoodController, cfg config.Config) chi.Router {
	r := chi.NewRouter()
	r.Group(func(gr chi.Router) {
		gr.Use(middlewares.AuthMiddleware(cfg))

		// GET /mood/{pet_id}/next : one fresh mood-quiz scenario
		gr.Get("/{pet_id}/next", handleJSON(func(r *http.Request) (any, int, error) {
			userID, ok := middlewares.UserID(r)
			if !ok {
				return nil, http.StatusUnauthorized, errors.New("unauthorized")
			}
			petID, err := uuid.Parse(chi.URLParam(r, "pet_id"))
			if err != nil {
				return nil, http.StatusBadRequest, err
			}
			scenario, err := ctrl.Next(r.Context(), userID, petID)
			if err != nil {
				if errors.Is(err, persona.ErrNoResult) {
					return nil, http.StatusBadGateway, err
				}
				return nil, http.StatusInternalServerError, err
			}
			return scenario, http.StatusOK, nil
		}))
	})
	return r
}
