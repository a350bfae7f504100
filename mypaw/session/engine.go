package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"mypaw/mypaw/services/auth"
	"mypaw/mypaw/services/persona"
	"mypaw/mypaw/services/vision"
	"mypaw/mypaw/sources/psql/models"
	"mypaw/mypaw/utils/logging"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrNotAuthenticated  = errors.New("not authenticated")
	ErrInvalidTransition = errors.New("intent not valid on current screen")
	ErrChatBusy          = errors.New("a message is already awaiting its reply")
	ErrInvalidName       = errors.New("pet name must not be empty")
	ErrNoPendingPet      = errors.New("no pending identification result")
	ErrNoActivePet       = errors.New("no pet selected")
)

// Auth is what the engine needs from the auth layer; auth.SessionClient
// satisfies it.
type Auth interface {
	SignUp(ctx context.Context, email, password string) (*models.User, error)
	SignIn(ctx context.Context, email, password string) (*models.User, error)
	SignOut(ctx context.Context) error
	CurrentUser(ctx context.Context) (*models.User, error)
}

// PetStore matches dao.PetDAO.
type PetStore interface {
	GetPetsByUser(ctx context.Context, userID int) ([]models.Pet, error)
	CreatePet(ctx context.Context, pet *models.Pet) (*models.Pet, error)
}

// MessageStore matches dao.ChatMessageDAO.
type MessageStore interface {
	SaveMessage(ctx context.Context, msg *models.ChatMessage) (*models.ChatMessage, error)
	GetMessagesByPet(ctx context.Context, userID int, petID uuid.UUID) ([]models.ChatMessage, error)
}

// PlanStore matches dao.DietPlanDAO.
type PlanStore interface {
	CreateDietPlan(ctx context.Context, plan *models.DietPlan) (*models.DietPlan, error)
	GetLatestDietPlan(ctx context.Context, userID int, petID uuid.UUID) (*models.DietPlan, error)
}

// Registrar matches pets.Service: the all-or-nothing save-pet sequence.
type Registrar interface {
	Register(ctx context.Context, userID int, name string, profile *vision.PetProfile, image []byte, mimeType string) (*models.Pet, error)
}

// Identifier matches vision.GeminiClient.
type Identifier interface {
	Identify(ctx context.Context, image []byte, mimeType string) (*vision.PetProfile, error)
}

// Persona matches persona.Service.
type Persona interface {
	Chat(ctx context.Context, message string, p persona.Context, history []persona.Turn) persona.Reply
	GenerateDietPlan(ctx context.Context, p persona.Context) (*models.PlanData, error)
	GenerateMoodScenario(ctx context.Context, p persona.Context) (*persona.MoodScenario, error)
}

type Deps struct {
	Auth      Auth
	Pets      PetStore
	Messages  MessageStore
	Plans     PlanStore
	Registrar Registrar
	Vision    Identifier
	Persona   Persona
	Store     StateStore

	// AuthTimeout bounds the initial auth check; zero means 5s.
	AuthTimeout time.Duration
	// Now is the clock used to pick today's diet slot; nil means time.Now.
	Now func() time.Time
}

// Engine is the session/navigation controller: the single authority over
// which screen is showing and which pet/chat/diet context is active. One
// engine serves one presentation connection. Intents run to completion
// under the engine mutex; the chat round-trip alone releases it and holds a
// busy flag instead so a second send is rejected rather than queued.
type Engine struct {
	deps Deps

	mu       sync.Mutex
	screen   Screen
	user     *models.User
	pets     []models.Pet
	current  *models.Pet
	messages []models.ChatMessage
	history  []persona.Turn
	plan     *models.DietPlan

	pendingProfile *vision.PetProfile
	pendingImage   []byte
	pendingMime    string

	chatBusy bool
	// epoch advances on every reset. An in-flight chat round-trip carries
	// the epoch it started under and drops its in-memory updates if a
	// sign-out landed in between.
	epoch uint64
}

func NewEngine(deps Deps) *Engine {
	if deps.AuthTimeout <= 0 {
		deps.AuthTimeout = 5 * time.Second
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Store == nil {
		deps.Store = NewMemoryStore()
	}
	return &Engine{deps: deps, screen: ScreenLanding}
}

// Snapshot is the read-only view the presentation layer renders from.
type Snapshot struct {
	Screen         Screen               `json:"screen"`
	User           *models.User         `json:"user,omitempty"`
	Pets           []models.Pet         `json:"pets"`
	CurrentPet     *models.Pet          `json:"current_pet,omitempty"`
	Messages       []models.ChatMessage `json:"messages"`
	DietPlan       *models.DietPlan     `json:"diet_plan,omitempty"`
	PendingProfile *vision.PetProfile   `json:"pending_profile,omitempty"`
	ChatBusy       bool                 `json:"chat_busy"`
}

func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	snap := Snapshot{
		Screen:         e.screen,
		User:           e.user,
		Pets:           append([]models.Pet(nil), e.pets...),
		CurrentPet:     e.current,
		Messages:       append([]models.ChatMessage(nil), e.messages...),
		DietPlan:       e.plan,
		PendingProfile: e.pendingProfile,
		ChatBusy:       e.chatBusy,
	}
	return snap
}

// Start runs the bounded initial auth check. A backend that has not
// answered within AuthTimeout is treated as "no session"; a late signed-in
// event still reconciles through HandleAuthEvent.
func (e *Engine) Start(ctx context.Context) {
	tctx, cancel := context.WithTimeout(ctx, e.deps.AuthTimeout)
	defer cancel()
	user, err := e.deps.Auth.CurrentUser(tctx)

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil || user == nil {
		if err != nil {
			logging.AppLogger.Warn("auth check failed, proceeding unauthenticated", zap.Error(err))
		}
		e.screen = ScreenLanding
		return
	}
	e.user = user
	e.restoreLocked(ctx, false)
}

// Begin leaves the landing screen for the auth form.
func (e *Engine) Begin() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.screen != ScreenLanding {
		return ErrInvalidTransition
	}
	e.screen = ScreenAuth
	return nil
}

func (e *Engine) SignUp(ctx context.Context, email, password string) error {
	user, err := e.deps.Auth.SignUp(ctx, email, password)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.user = user
	e.restoreLocked(ctx, true)
	return nil
}

func (e *Engine) SignIn(ctx context.Context, email, password string) error {
	user, err := e.deps.Auth.SignIn(ctx, email, password)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.user = user
	e.restoreLocked(ctx, true)
	return nil
}

// SignOut always resets to landing and clears both restoration slots,
// whatever state the engine was in.
func (e *Engine) SignOut(ctx context.Context) {
	if err := e.deps.Auth.SignOut(ctx); err != nil {
		logging.ErrorLogger.Error("sign-out failed", zap.Error(err))
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resetLocked(ctx)
}

// HandleAuthEvent reconciles an auth-state notification. Events can race a
// manual sign-in, so the update is idempotent and convergent: it never
// clobbers an active flow, only pre-auth screens get restored.
func (e *Engine) HandleAuthEvent(ctx context.Context, ev auth.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if ev.Kind == auth.EventSignedOut || ev.User == nil {
		e.resetLocked(ctx)
		return
	}
	if e.user != nil && e.user.ID == ev.User.ID {
		e.user = ev.User
		if e.screen.preAuth() {
			e.restoreLocked(ctx, false)
		}
		return
	}
	e.user = ev.User
	e.restoreLocked(ctx, false)
}

// ConsumeAuthEvents pumps the auth-state stream into the engine until ctx
// ends.
func (e *Engine) ConsumeAuthEvents(ctx context.Context, events <-chan auth.Event) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				e.HandleAuthEvent(ctx, ev)
			}
		}
	}()
}

// SelectPet loads the pet's conversation and current diet plan, then moves
// to chat.
func (e *Engine) SelectPet(ctx context.Context, petID uuid.UUID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.screen != ScreenDashboard {
		return ErrInvalidTransition
	}
	for i := range e.pets {
		if e.pets[i].ID == petID {
			e.setCurrentLocked(ctx, &e.pets[i])
			e.loadPetContextLocked(ctx)
			e.setScreenLocked(ctx, ScreenChat)
			return nil
		}
	}
	return fmt.Errorf("pet %s not found", petID)
}

// AddPet starts the capture flow for another pet.
func (e *Engine) AddPet() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.screen != ScreenDashboard {
		return ErrInvalidTransition
	}
	e.setScreenLocked(context.Background(), ScreenUpload)
	return nil
}

// CaptureImage identifies the photographed pet. On identification failure
// the engine stays on upload and the caller surfaces the error.
func (e *Engine) CaptureImage(ctx context.Context, image []byte, mimeType string) error {
	e.mu.Lock()
	if e.screen != ScreenUpload {
		e.mu.Unlock()
		return ErrInvalidTransition
	}
	e.mu.Unlock()

	profile, err := e.deps.Vision.Identify(ctx, image, mimeType)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.screen != ScreenUpload {
		return ErrInvalidTransition
	}
	e.pendingProfile = profile
	e.pendingImage = image
	e.pendingMime = mimeType
	e.setScreenLocked(ctx, ScreenIdentify)
	return nil
}

// ContinueToRegister acknowledges the identification result.
func (e *Engine) ContinueToRegister() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.screen != ScreenIdentify {
		return ErrInvalidTransition
	}
	e.setScreenLocked(context.Background(), ScreenRegister)
	return nil
}

// SavePet persists the pending pet under the given name: image upload, pet
// record, persona greeting. Any sub-step failing keeps the register screen
// and no partial pet is considered valid.
func (e *Engine) SavePet(ctx context.Context, name string) error {
	e.mu.Lock()
	if e.screen != ScreenRegister {
		e.mu.Unlock()
		return ErrInvalidTransition
	}
	if e.user == nil {
		e.mu.Unlock()
		return ErrNotAuthenticated
	}
	if name == "" {
		e.mu.Unlock()
		return ErrInvalidName
	}
	if e.pendingProfile == nil || len(e.pendingImage) == 0 {
		e.mu.Unlock()
		return ErrNoPendingPet
	}
	profile := e.pendingProfile
	image := e.pendingImage
	mime := e.pendingMime
	userID := e.user.ID
	e.mu.Unlock()

	saved, err := e.deps.Registrar.Register(ctx, userID, name, profile, image, mime)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.pets = append([]models.Pet{*saved}, e.pets...)
	e.setCurrentLocked(ctx, &e.pets[0])
	e.loadPetContextLocked(ctx)
	e.pendingProfile = nil
	e.pendingImage = nil
	e.pendingMime = ""
	e.setScreenLocked(ctx, ScreenDashboard)
	return nil
}

// SendMessage runs one human→persona chat round-trip. A second send while
// one is in flight is rejected with ErrChatBusy; the final message order is
// strictly alternating.
func (e *Engine) SendMessage(ctx context.Context, text string) error {
	e.mu.Lock()
	if e.screen != ScreenChat {
		e.mu.Unlock()
		return ErrInvalidTransition
	}
	if e.current == nil {
		e.mu.Unlock()
		return ErrNoActivePet
	}
	if e.chatBusy {
		e.mu.Unlock()
		return ErrChatBusy
	}
	e.chatBusy = true
	epoch := e.epoch
	pet := e.current
	plan := e.plan
	userID := e.user.ID
	history := append([]persona.Turn(nil), e.history...)
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		if e.epoch == epoch {
			e.chatBusy = false
		}
		e.mu.Unlock()
	}()

	userMsg, err := e.deps.Messages.SaveMessage(ctx, &models.ChatMessage{
		PetID:     pet.ID,
		UserID:    userID,
		Message:   text,
		IsFromPet: false,
	})
	if err != nil {
		return fmt.Errorf("save message: %w", err)
	}
	e.mu.Lock()
	if e.sameChatLocked(epoch, pet.ID) {
		e.messages = append(e.messages, *userMsg)
		e.history = append(e.history, persona.Turn{Role: "user", Content: text})
	}
	e.mu.Unlock()

	today := e.deps.Now().Weekday().String()
	reply := e.deps.Persona.Chat(ctx, text, persona.ContextForPet(pet, plan, today), history)

	reasoning := reply.Reasoning
	petMsg, err := e.deps.Messages.SaveMessage(ctx, &models.ChatMessage{
		PetID:     pet.ID,
		UserID:    userID,
		Message:   reply.Response,
		IsFromPet: true,
		Reasoning: &reasoning,
	})
	if err != nil {
		return fmt.Errorf("save reply: %w", err)
	}
	e.mu.Lock()
	if e.sameChatLocked(epoch, pet.ID) {
		e.messages = append(e.messages, *petMsg)
		e.history = append(e.history, persona.Turn{Role: "assistant", Content: reply.Response})
	}
	e.mu.Unlock()
	return nil
}

// sameChatLocked reports whether a round-trip started under the given epoch
// may still update the in-memory conversation. The messages are persisted
// either way; only the live view is protected. A sign-out (epoch bump) or a
// switch to another pet mid-flight means the reply belongs to a conversation
// no longer on screen.
func (e *Engine) sameChatLocked(epoch uint64, petID uuid.UUID) bool {
	return e.epoch == epoch && e.current != nil && e.current.ID == petID
}

func (e *Engine) ShowDietPlan() error {
	return e.fromChatTo(ScreenDiet)
}

func (e *Engine) ShowPawMood() error {
	return e.fromChatTo(ScreenPawMood)
}

func (e *Engine) fromChatTo(target Screen) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.screen != ScreenChat {
		return ErrInvalidTransition
	}
	e.setScreenLocked(context.Background(), target)
	return nil
}

// BackToDashboard leaves the current pet flow.
func (e *Engine) BackToDashboard() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch e.screen {
	case ScreenChat, ScreenDiet, ScreenPawMood, ScreenUpload:
		e.setScreenLocked(context.Background(), ScreenDashboard)
		return nil
	}
	return ErrInvalidTransition
}

// BackToChat returns from diet/pawmood, reloading the diet plan on the way.
func (e *Engine) BackToChat(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.screen != ScreenDiet && e.screen != ScreenPawMood {
		return ErrInvalidTransition
	}
	if e.current != nil {
		e.loadPlanLocked(ctx)
	}
	e.setScreenLocked(ctx, ScreenChat)
	return nil
}

// GenerateDietPlan asks the persona service for a weekly plan and persists
// it as the pet's new current plan.
func (e *Engine) GenerateDietPlan(ctx context.Context) (*models.DietPlan, error) {
	e.mu.Lock()
	if e.screen != ScreenDiet {
		e.mu.Unlock()
		return nil, ErrInvalidTransition
	}
	if e.current == nil {
		e.mu.Unlock()
		return nil, ErrNoActivePet
	}
	pet := e.current
	userID := e.user.ID
	e.mu.Unlock()

	data, err := e.deps.Persona.GenerateDietPlan(ctx, persona.ContextForPet(pet, nil, ""))
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	plan, err := e.deps.Plans.CreateDietPlan(ctx, &models.DietPlan{
		PetID:    pet.ID,
		UserID:   userID,
		PlanData: string(payload),
	})
	if err != nil {
		return nil, fmt.Errorf("save diet plan: %w", err)
	}

	e.mu.Lock()
	e.plan = plan
	e.mu.Unlock()
	return plan, nil
}

// NextMoodScenario generates one mood-quiz question. Scenarios are
// ephemeral: nothing is persisted.
func (e *Engine) NextMoodScenario(ctx context.Context) (*persona.MoodScenario, error) {
	e.mu.Lock()
	if e.screen != ScreenPawMood {
		e.mu.Unlock()
		return nil, ErrInvalidTransition
	}
	if e.current == nil {
		e.mu.Unlock()
		return nil, ErrNoActivePet
	}
	pet := e.current
	e.mu.Unlock()

	return e.deps.Persona.GenerateMoodScenario(ctx, persona.ContextForPet(pet, nil, ""))
}

// restoreLocked re-derives the active screen and pet after an auth event.
// force is true only on a fresh manual sign-in; background refreshes never
// overwrite an active flow.
func (e *Engine) restoreLocked(ctx context.Context, force bool) {
	pets, err := e.deps.Pets.GetPetsByUser(ctx, e.user.ID)
	if err != nil {
		logging.ErrorLogger.Error("pet fetch failed during restoration", zap.Error(err))
		if e.screen.preAuth() {
			e.setScreenLocked(ctx, ScreenUpload)
		}
		return
	}
	e.pets = pets

	if !force && !e.screen.preAuth() {
		return
	}

	if screen, snap, ok := e.deps.Store.Load(ctx, e.user.ID); ok && knownScreens[screen] && screen.Mirrored() {
		for i := range pets {
			if pets[i].ID == snap.ID {
				// Continuity for the screen, freshness for the pet.
				e.setCurrentLocked(ctx, &e.pets[i])
				e.loadPetContextLocked(ctx)
				e.setScreenLocked(ctx, screen)
				return
			}
		}
		// The recorded pet no longer exists server-side; discard silently.
		if err := e.deps.Store.SavePet(ctx, e.user.ID, nil); err != nil {
			logging.ErrorLogger.Error("clearing stale pet snapshot failed", zap.Error(err))
		}
	}

	e.current = nil
	if len(pets) > 0 {
		e.setScreenLocked(ctx, ScreenDashboard)
	} else {
		e.setScreenLocked(ctx, ScreenUpload)
	}
}

func (e *Engine) resetLocked(ctx context.Context) {
	e.epoch++
	if e.user != nil {
		if err := e.deps.Store.Clear(ctx, e.user.ID); err != nil {
			logging.ErrorLogger.Error("clearing restoration slots failed", zap.Error(err))
		}
	}
	e.user = nil
	e.pets = nil
	e.current = nil
	e.messages = nil
	e.history = nil
	e.plan = nil
	e.pendingProfile = nil
	e.pendingImage = nil
	e.pendingMime = ""
	e.chatBusy = false
	e.screen = ScreenLanding
}

func (e *Engine) setScreenLocked(ctx context.Context, s Screen) {
	e.screen = s
	if !s.Mirrored() || e.user == nil {
		return
	}
	if err := e.deps.Store.SaveScreen(ctx, e.user.ID, s); err != nil {
		logging.ErrorLogger.Error("recording screen failed", zap.Error(err))
	}
}

func (e *Engine) setCurrentLocked(ctx context.Context, pet *models.Pet) {
	e.current = pet
	if e.user == nil {
		return
	}
	if err := e.deps.Store.SavePet(ctx, e.user.ID, pet); err != nil {
		logging.ErrorLogger.Error("recording pet snapshot failed", zap.Error(err))
	}
}

func (e *Engine) loadPetContextLocked(ctx context.Context) {
	e.messages = nil
	e.history = nil
	e.plan = nil
	if e.current == nil || e.user == nil {
		return
	}
	msgs, err := e.deps.Messages.GetMessagesByPet(ctx, e.user.ID, e.current.ID)
	if err != nil {
		logging.ErrorLogger.Error("loading chat messages failed", zap.Error(err))
	} else {
		e.messages = msgs
		for _, m := range msgs {
			role := "user"
			if m.IsFromPet {
				role = "assistant"
			}
			e.history = append(e.history, persona.Turn{Role: role, Content: m.Message})
		}
	}
	e.loadPlanLocked(ctx)
}

func (e *Engine) loadPlanLocked(ctx context.Context) {
	plan, err := e.deps.Plans.GetLatestDietPlan(ctx, e.user.ID, e.current.ID)
	if err != nil {
		logging.ErrorLogger.Error("loading diet plan failed", zap.Error(err))
		return
	}
	e.plan = plan
}
