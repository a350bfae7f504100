package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mypaw/mypaw/config"
	"mypaw/mypaw/controllers"
	"mypaw/mypaw/routes"
	"mypaw/mypaw/services/auth"
	"mypaw/mypaw/services/llm"
	"mypaw/mypaw/services/persona"
	"mypaw/mypaw/services/pets"
	"mypaw/mypaw/services/vision"
	"mypaw/mypaw/sources/psql"
	"mypaw/mypaw/sources/psql/dao"
	"mypaw/mypaw/sources/storage"
	"mypaw/mypaw/utils/logging"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func main() {
	logging.InitLogger()
	cfg := config.LoadConfig()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	db, err := psql.NewDatabase(ctx, cfg)
	if err != nil {
		logging.Logger.Error("database connection error", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	userDAO := dao.NewUserDAO(db.DB)
	petDAO := dao.NewPetDAO(db.DB)
	chatDAO := dao.NewChatMessageDAO(db.DB)
	planDAO := dao.NewDietPlanDAO(db.DB)
	uiStateDAO := dao.NewUIStateDAO(db.DB)

	minioClient, err := storage.NewMinIOClient(cfg)
	if err != nil {
		logging.Logger.Error("minio connection error", "error", err)
		os.Exit(1)
	}

	overrides, err := config.LoadPromptOverrides(cfg.PromptFile)
	if err != nil {
		logging.Logger.Error("prompt overrides load error", "error", err)
		os.Exit(1)
	}

	authSvc := auth.NewService(userDAO, cfg)
	runner := llm.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL)
	personaSvc := persona.NewService(runner, cfg.OpenAIModel, cfg.OpenAIPlanModel, overrides)
	visionClient := vision.NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModel, overrides.Identify)
	registry := pets.NewService(petDAO, chatDAO, minioClient, personaSvc)

	healthCtrl := controllers.NewHealthController()
	authCtrl := controllers.NewAuthController(authSvc)
	petCtrl := controllers.NewPetController(petDAO, registry, visionClient)
	chatCtrl := controllers.NewChatController(chatDAO, petDAO, planDAO, personaSvc)
	dietCtrl := controllers.NewDietController(planDAO, petDAO, personaSvc)
	moodCtrl := controllers.NewMoodController(petDAO, personaSvc)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Mount("/health", routes.HealthRoutes(healthCtrl))
	r.Mount("/auth", routes.AuthRoutes(authCtrl))
	r.Mount("/pets", routes.PetRoutes(petCtrl, cfg))
	r.Mount("/chat", routes.ChatRoutes(chatCtrl, cfg))
	r.Mount("/diet", routes.DietRoutes(dietCtrl, cfg))
	r.Mount("/mood", routes.MoodRoutes(moodCtrl, cfg))
	r.Mount("/session", routes.SessionRoutes(routes.SessionDeps{
		Auth:     authSvc,
		Pets:     petDAO,
		Messages: chatDAO,
		Plans:    planDAO,
		UIState:  uiStateDAO,
		Registry: registry,
		Vision:   visionClient,
		Persona:  personaSvc,
		Config:   cfg,
	}))

	srv := &http.Server{
		Addr:    ":8000",
		Handler: r,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Logger.Error("server listen error", "error", err)
		}
	}()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Logger.Error("server shutdown error", "error", err)
	}
	logging.Logger.Info("server shutdown complete")
}
