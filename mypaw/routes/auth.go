package routes

import (
	"errors"
	"net/http"

	"mypaw/mypaw/controllers"
	"mypaw/mypaw/services/auth"
	"mypaw/mypaw/types"

	"encoding/json"

	"github.com/go-chi/chi/v5"
)

func AuthRoutes(ctrl *controllers.AuthController) chi.Router {
	r := chi.NewRouter()

	r.Post("/signup", handleJSON(func(r *http.Request) (any, int, error) {
		var req types.CredentialsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, http.StatusBadRequest, err
		}
		user, token, err := ctrl.SignUp(r.Context(), req.Email, req.Password)
		if err != nil {
			return nil, authStatus(err), err
		}
		return types.AuthResponse{Token: token, User: user}, http.StatusOK, nil
	}))

	r.Post("/signin", handleJSON(func(r *http.Request) (any, int, error) {
		var req types.CredentialsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, http.StatusBadRequest, err
		}
		user, token, err := ctrl.SignIn(r.Context(), req.Email, req.Password)
		if err != nil {
			return nil, authStatus(err), err
		}
		return types.AuthResponse{Token: token, User: user}, http.StatusOK, nil
	}))

	return r
}

func authStatus(err error) int {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrEmailTaken):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
