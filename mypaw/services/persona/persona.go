package persona

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"mypaw/mypaw/config"
	"mypaw/mypaw/services/llm"
	"mypaw/mypaw/sources/psql/models"
	"mypaw/mypaw/utils/jsonutils"
	"mypaw/mypaw/utils/logging"

	"go.uber.org/zap"
)

// ErrNoResult means generation failed with no sensible fallback; the caller
// should surface a retry affordance.
var ErrNoResult = errors.New("no generated result")

const (
	fallbackGreeting     = "Hi there! I'm so happy to meet you! Let's be best friends! 🐾"
	fallbackSleepyReply  = "I'm a bit sleepy right now, can you try again? 🐾"
	fallbackSleepyReason = "An error occurred while processing your message. Please try again."
	fallbackParseReason  = "The AI response couldn't be parsed properly. This might be a temporary issue."
	fallbackEmptyReply   = "Woof! I didn't quite catch that!"

	historyWindow = 10
)

// Turn is one (role, content) tuple of generator context.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Reply is a normalized in-character chat answer. Chat never fails: every
// error path degrades to a fallback Reply.
type Reply struct {
	Response  string `json:"response"`
	Reasoning string `json:"reasoning"`
}

// MoodScenario is ephemeral: generated on demand, consumed once, discarded.
type MoodScenario struct {
	Scenario    string   `json:"scenario"`
	CorrectMood string   `json:"correct_mood"`
	MoodOptions []string `json:"mood_options"`
	Explanation string   `json:"explanation"`
}

type Service struct {
	runner    llm.Runner
	chatModel string
	planModel string
	prompts   prompts
	shuffle   func(n int, swap func(i, j int))
}

func NewService(runner llm.Runner, chatModel, planModel string, ov config.PromptOverrides) *Service {
	if chatModel == "" {
		chatModel = "gpt-4o-mini"
	}
	if planModel == "" {
		planModel = "gpt-3.5-turbo"
	}
	return &Service{
		runner:    runner,
		chatModel: chatModel,
		planModel: planModel,
		prompts:   newPrompts(ov),
		shuffle:   rand.Shuffle,
	}
}

// Greeting produces the persona's first message for a freshly registered
// pet. It degrades to a fixed friendly greeting rather than failing.
func (s *Service) Greeting(ctx context.Context, p Context) string {
	if !p.valid() {
		return fallbackGreeting
	}
	out, err := s.runner.Run(ctx, llm.ChatRequest{
		Model: s.chatModel,
		Messages: []llm.Message{
			{Role: "system", Content: s.prompts.greetingSystem(p)},
			{Role: "user", Content: fmt.Sprintf("Introduce yourself to your new human companion! Your name is %s.", p.Name)},
		},
		MaxTokens:   150,
		Temperature: 0.8,
	})
	if err != nil || out == "" {
		logging.ErrorLogger.Error("greeting generation failed", zap.Error(err))
		return fallbackGreeting
	}
	return out
}

// Chat sends the user's message with bounded recent history and normalizes
// the model's JSON answer. Malformed output falls back to the raw text with
// a placeholder reasoning; transport failure falls back to a fixed reply.
func (s *Service) Chat(ctx context.Context, message string, p Context, history []Turn) Reply {
	msgs := []llm.Message{{Role: "system", Content: s.prompts.chatSystem(p)}}
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	for _, t := range history {
		msgs = append(msgs, llm.Message{Role: t.Role, Content: t.Content})
	}
	msgs = append(msgs, llm.Message{Role: "user", Content: message})

	out, err := s.runner.Run(ctx, llm.ChatRequest{
		Model:       s.chatModel,
		Messages:    msgs,
		MaxTokens:   200,
		Temperature: 0.4,
	})
	if err != nil {
		logging.ErrorLogger.Error("chat generation failed", zap.Error(err))
		return Reply{Response: fallbackSleepyReply, Reasoning: fallbackSleepyReason}
	}

	var reply Reply
	if decodeErr := jsonutils.DecodeObject(out, &reply); decodeErr != nil || reply.Response == "" || reply.Reasoning == "" {
		logging.AppLogger.Warn("chat reply not parseable, using raw text", zap.String("raw", out))
		response := out
		if response == "" {
			response = fallbackEmptyReply
		}
		return Reply{Response: response, Reasoning: fallbackParseReason}
	}
	return reply
}

// GenerateDietPlan asks for a structured weekly plan. There is no sensible
// fallback, so malformed or failed generations return ErrNoResult.
func (s *Service) GenerateDietPlan(ctx context.Context, p Context) (*models.PlanData, error) {
	out, err := s.runner.Run(ctx, llm.ChatRequest{
		Model: s.planModel,
		Messages: []llm.Message{
			{Role: "system", Content: s.prompts.dietPlanSystem(p)},
			{Role: "user", Content: fmt.Sprintf("Create a weekly diet plan for my %s named %s.", p.BreedOrType, p.Name)},
		},
		MaxTokens:   2000,
		Temperature: 0.7,
	})
	if err != nil {
		logging.ErrorLogger.Error("diet plan generation failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrNoResult, err)
	}

	var plan models.PlanData
	if err := jsonutils.DecodeObject(out, &plan); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoResult, err)
	}
	if len(plan.WeeklyPlan) == 0 {
		return nil, ErrNoResult
	}
	return &plan, nil
}

// GenerateMoodScenario asks for one mood-quiz question. The candidate moods
// are re-shuffled on every call so option position never leaks the answer,
// and the correct label always appears exactly once.
func (s *Service) GenerateMoodScenario(ctx context.Context, p Context) (*MoodScenario, error) {
	out, err := s.runner.Run(ctx, llm.ChatRequest{
		Model: s.planModel,
		Messages: []llm.Message{
			{Role: "system", Content: s.prompts.moodScenarioSystem(p)},
			{Role: "user", Content: fmt.Sprintf("Create a mood reading scenario for my %s named %s.", p.BreedOrType, p.Name)},
		},
		MaxTokens:   500,
		Temperature: 0.8,
	})
	if err != nil {
		logging.ErrorLogger.Error("mood scenario generation failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrNoResult, err)
	}

	var sc MoodScenario
	if err := jsonutils.DecodeObject(out, &sc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoResult, err)
	}
	if sc.Scenario == "" || sc.CorrectMood == "" || len(sc.MoodOptions) == 0 {
		return nil, ErrNoResult
	}

	options := make([]string, 0, len(sc.MoodOptions))
	seenCorrect := false
	for _, opt := range sc.MoodOptions {
		if opt == sc.CorrectMood {
			if seenCorrect {
				continue
			}
			seenCorrect = true
		}
		options = append(options, opt)
	}
	if !seenCorrect {
		return nil, ErrNoResult
	}
	s.shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})
	sc.MoodOptions = options
	return &sc, nil
}

// ContextForPet derives the prompt context for a stored pet, folding in
// today's diet slots when a plan is loaded.
func ContextForPet(pet *models.Pet, plan *models.DietPlan, today string) Context {
	info := pet.Description
	if personality, err := pet.DecodePersonality(); err == nil && len(personality.Characteristics) > 0 {
		info += ". Characteristics: " + strings.Join(personality.Characteristics, ", ")
	}
	if plan != nil {
		if data, err := plan.DecodePlanData(); err == nil {
			if day, ok := data.WeeklyPlan[today]; ok {
				info += fmt.Sprintf(". Today's diet plan: Breakfast: %s, Lunch: %s, Dinner: %s, Treats: %s",
					day.Breakfast, day.Lunch, day.Dinner, day.Treats)
			}
		}
	}
	return Context{
		Name:        pet.Name,
		Type:        pet.Type,
		BreedOrType: pet.BreedOrType(),
		Info:        info,
	}
}
