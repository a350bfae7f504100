package routes

import (
	"encoding/json"
	"errors"
	"net/http"

	"mypaw/mypaw/config"
	"mypaw/mypaw/controllers"
	"mypaw/mypaw/middlewares"
	"mypaw/mypaw/types"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func ChatRoutes(ctrl *controllers.ChatController, cfg config.Config) chi.Router {
	r := chi.NewRouter()
	r.Group(func(gr chi.Router) {
		gr.Use(middlewares.AuthMiddleware(cfg))

		// POST /chat/{pet_id} : send message, returns (human, persona) pair
		gr.Post("/{pet_id}", handleJSON(func(r *http.Request) (any, int, error) {
			userID, ok := middlewares.UserID(r)
			if !ok {
				return nil, http.StatusUnauthorized, errors.New("unauthorized")
			}
			petID, err := uuid.Parse(chi.URLParam(r, "pet_id"))
			if err != nil {
				return nil, http.StatusBadRequest, err
			}
			var req types.ChatSendRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				return nil, http.StatusBadRequest, err
			}
			if req.Message == "" {
				return nil, http.StatusBadRequest, errors.New("message is required")
			}
			msgs, err := ctrl.Send(r.Context(), userID, petID, req.Message)
			if err != nil {
				return nil, http.StatusInternalServerError, err
			}
			return msgs, http.StatusOK, nil
		}))

		// GET /chat/{pet_id}/messages : full conversation ascending by time
		gr.Get("/{pet_id}/messages", handleJSON(func(r *http.Request) (any, int, error) {
			userID, ok := middlewares.UserID(r)
			if !ok {
				return nil, http.StatusUnauthorized, errors.New("unauthorized")
			}
			petID, err := uuid.Parse(chi.URLParam(r, "pet_id"))
			if err != nil {
				return nil, http.StatusBadRequest, err
			}
			msgs, err := ctrl.ListMessages(r.Context(), userID, petID)
			if err != nil {
				return nil, http.StatusInternalServerError, err
			}
			return msgs, http.StatusOK, nil
		}))
	})
	return r
}
