package controllers

import (
	"context"

	"mypaw/mypaw/services/auth"
	"mypaw/mypaw/sources/psql/models"
)

type AuthController struct {
	svc *auth.Service
}

func NewAuthController(svc *auth.Service) *AuthController {
	return &AuthController{svc: svc}
}

func (c *AuthController) SignUp(ctx context.Context, email, password string) (*models.User, string, error) {
	return c.svc.Register(ctx, email, password)
}

func (c *AuthController) SignIn(ctx context.Context, email, password string) (*models.User, string, error) {
	return c.svc.Login(ctx, email, password)
}
