// Command-line interface for driving a MyPaw session locally
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"mypaw/mypaw/config"
	"mypaw/mypaw/services/auth"
	"mypaw/mypaw/services/llm"
	"mypaw/mypaw/services/persona"
	"mypaw/mypaw/services/pets"
	"mypaw/mypaw/services/vision"
	"mypaw/mypaw/session"
	"mypaw/mypaw/sources/psql"
	"mypaw/mypaw/sources/psql/dao"
	"mypaw/mypaw/sources/storage"
	"mypaw/mypaw/utils/logging"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func main() {
	logging.InitLogger()
	cfg := config.LoadConfig()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	args := os.Args[1:]
	if len(args) < 1 || args[0] != "connect" {
		fmt.Println("MyPaw CLI usage:")
		fmt.Println("  mypaw connect   # Open an interactive session")
		os.Exit(1)
	}

	db, err := psql.NewDatabase(ctx, cfg)
	if err != nil {
		logging.ErrorLogger.Error("database connection error", zap.Error(err))
		os.Exit(1)
	}
	defer db.Close()

	minioClient, err := storage.NewMinIOClient(cfg)
	if err != nil {
		logging.ErrorLogger.Error("minio connection error", zap.Error(err))
		os.Exit(1)
	}
	overrides, err := config.LoadPromptOverrides(cfg.PromptFile)
	if err != nil {
		logging.ErrorLogger.Error("prompt overrides load error", zap.Error(err))
		os.Exit(1)
	}

	userDAO := dao.NewUserDAO(db.DB)
	petDAO := dao.NewPetDAO(db.DB)
	chatDAO := dao.NewChatMessageDAO(db.DB)
	planDAO := dao.NewDietPlanDAO(db.DB)
	uiStateDAO := dao.NewUIStateDAO(db.DB)

	authSvc := auth.NewService(userDAO, cfg)
	runner := llm.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL)
	personaSvc := persona.NewService(runner, cfg.OpenAIModel, cfg.OpenAIPlanModel, overrides)
	visionClient := vision.NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModel, overrides.Identify)
	registry := pets.NewService(petDAO, chatDAO, minioClient, personaSvc)

	client := authSvc.NewSessionClient("")
	engine := session.NewEngine(session.Deps{
		Auth:        client,
		Pets:        petDAO,
		Messages:    chatDAO,
		Plans:       planDAO,
		Registrar:   registry,
		Vision:      visionClient,
		Persona:     personaSvc,
		Store:       session.NewDBStore(uiStateDAO),
		AuthTimeout: cfg.AuthCheckTimeout,
	})

	runCtx := context.Background()
	engine.ConsumeAuthEvents(runCtx, client.Events())
	engine.Start(runCtx)

	fmt.Printf("\n🐾 MyPaw session open!\n\n")
	fmt.Println("Commands:")
	fmt.Println("  begin | signup <email> <pass> | signin <email> <pass> | signout")
	fmt.Println("  pets | select <pet-id> | add | capture <image-path> | continue | save <name>")
	fmt.Println("  say <message> | diet | plan | mood | quiz | chat | back")
	fmt.Println("  state | exit")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Printf("mypaw[%s]> ", engine.Snapshot().Screen)
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "exit" || line == "quit" {
			fmt.Println("👋 Goodbye!")
			break
		}
		if line == "" {
			continue
		}
		if err := runCommand(runCtx, engine, line); err != nil {
			fmt.Println("⚠️ ", err)
		}
	}
}

func runCommand(ctx context.Context, engine *session.Engine, line string) error {
	fields := strings.Fields(line)
	cmd, rest := fields[0], strings.TrimSpace(strings.TrimPrefix(line, fields[0]))

	switch cmd {
	case "begin":
		return engine.Begin()
	case "signup", "signin":
		if len(fields) != 3 {
			return fmt.Errorf("usage: %s <email> <password>", cmd)
		}
		if cmd == "signup" {
			return engine.SignUp(ctx, fields[1], fields[2])
		}
		return engine.SignIn(ctx, fields[1], fields[2])
	case "signout":
		engine.SignOut(ctx)
		return nil
	case "pets":
		snap := engine.Snapshot()
		if len(snap.Pets) == 0 {
			fmt.Println("(no pets yet)")
		}
		for _, p := range snap.Pets {
			fmt.Printf("  %s  %s (%s)\n", p.ID, p.Name, p.BreedOrType())
		}
		return nil
	case "select":
		if len(fields) != 2 {
			return fmt.Errorf("usage: select <pet-id>")
		}
		petID, err := uuid.Parse(fields[1])
		if err != nil {
			return err
		}
		if err := engine.SelectPet(ctx, petID); err != nil {
			return err
		}
		printMessages(engine)
		return nil
	case "add":
		return engine.AddPet()
	case "capture":
		if rest == "" {
			return fmt.Errorf("usage: capture <image-path>")
		}
		image, err := os.ReadFile(rest)
		if err != nil {
			return err
		}
		if err := engine.CaptureImage(ctx, image, mimeForPath(rest)); err != nil {
			return err
		}
		if profile := engine.Snapshot().PendingProfile; profile != nil {
			fmt.Printf("🔍 Identified: %s (%s)\n%s\n", profile.Type, profile.BreedOrType(), profile.Description)
		}
		return nil
	case "continue":
		return engine.ContinueToRegister()
	case "save":
		if rest == "" {
			return fmt.Errorf("usage: save <name>")
		}
		return engine.SavePet(ctx, rest)
	case "say":
		if rest == "" {
			return fmt.Errorf("usage: say <message>")
		}
		if err := engine.SendMessage(ctx, rest); err != nil {
			return err
		}
		snap := engine.Snapshot()
		if n := len(snap.Messages); n > 0 {
			last := snap.Messages[n-1]
			fmt.Printf("%s: %s\n", snap.CurrentPet.Name, last.Message)
		}
		return nil
	case "diet":
		return engine.ShowDietPlan()
	case "plan":
		plan, err := engine.GenerateDietPlan(ctx)
		if err != nil {
			return err
		}
		data, err := plan.DecodePlanData()
		if err != nil {
			return err
		}
		for day, slots := range data.WeeklyPlan {
			fmt.Printf("  %s: breakfast %s / lunch %s / dinner %s\n", day, slots.Breakfast, slots.Lunch, slots.Dinner)
		}
		return nil
	case "mood":
		return engine.ShowPawMood()
	case "quiz":
		scenario, err := engine.NextMoodScenario(ctx)
		if err != nil {
			return err
		}
		fmt.Println("🎭", scenario.Scenario)
		for i, opt := range scenario.MoodOptions {
			fmt.Printf("  %d) %s\n", i+1, opt)
		}
		fmt.Printf("Answer: %s — %s\n", scenario.CorrectMood, scenario.Explanation)
		return nil
	case "chat":
		return engine.BackToChat(ctx)
	case "back":
		return engine.BackToDashboard()
	case "state":
		snap := engine.Snapshot()
		fmt.Printf("screen=%s user=%v pets=%d busy=%v\n", snap.Screen, snap.User != nil, len(snap.Pets), snap.ChatBusy)
		return nil
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func printMessages(engine *session.Engine) {
	snap := engine.Snapshot()
	for _, m := range snap.Messages {
		who := "you"
		if m.IsFromPet && snap.CurrentPet != nil {
			who = snap.CurrentPet.Name
		}
		fmt.Printf("%s: %s\n", who, m.Message)
	}
}

func mimeForPath(path string) string {
	switch {
	case strings.HasSuffix(path, ".png"):
		return "image/png"
	case strings.HasSuffix(path, ".webp"):
		return "image/webp"
	case strings.HasSuffix(path, ".gif"):
		return "image/gif"
	default:
		return "image/jpeg"
	}
}
