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

func DietRoutes(ctrl *controllers.DietController, cfg config.Config) chi.Router {
	r := chi.NewRouter()
	r.Group(func(gr chi.Router) {
		gr.Use(middlewares.AuthMiddleware(cfg))

		// GET /diet/{pet_id} : most recent plan, 404 when none exists
		gr.Get("/{pet_id}", handleJSON(func(r *http.Request) (any, int, error) {
			userID, ok := middlewares.UserID(r)
			if !ok {
				return nil, http.StatusUnauthorized, errors.New("unauthorized")
			}
			petID, err := uuid.Parse(chi.URLParam(r, "pet_id"))
			if err != nil {
				return nil, http.StatusBadRequest, err
			}
			plan, err := ctrl.Latest(r.Context(), userID, petID)
			if err != nil {
				return nil, http.StatusInternalServerError, err
			}
			if plan == nil {
				return nil, http.StatusNotFound, errors.New("no diet plan yet")
			}
			return plan, http.StatusOK, nil
		}))

		// POST /diet/{pet_id} : generate and persist a new current plan.
		// Generation failure is retryable, surfaced as 502.
		gr.Post("/{pet_id}", handleJSON(func(r *http.Request) (any, int, error) {
			userID, ok := middlewares.UserID(r)
			if !ok {
				return nil, http.StatusUnauthorized, errors.New("unauthorized")
			}
			petID, err := uuid.Parse(chi.URLParam(r, "pet_id"))
			if err != nil {
				return nil, http.StatusBadRequest, err
			}
			plan, err := ctrl.Generate(r.Context(), userID, petID)
			if err != nil {
				if errors.Is(err, persona.ErrNoResult) {
					return nil, http.StatusBadGateway, err
				}
				return nil, http.StatusInternalServerError, err
			}
			return plan, http.StatusOK, nil
		}))
	})
	return r
}
