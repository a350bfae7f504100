package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"mypaw/mypaw/services/auth"
	"mypaw/mypaw/services/persona"
	"mypaw/mypaw/services/vision"
	"mypaw/mypaw/sources/psql/models"
	"mypaw/mypaw/utils/logging"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Fakes ---

type fakeAuth struct {
	user      *models.User
	signInErr error
	checkErr  error
}

func (f *fakeAuth) SignUp(ctx context.Context, email, password string) (*models.User, error) {
	return f.user, f.signInErr
}

func (f *fakeAuth) SignIn(ctx context.Context, email, password string) (*models.User, error) {
	return f.user, f.signInErr
}

func (f *fakeAuth) SignOut(ctx context.Context) error { return nil }

func (f *fakeAuth) CurrentUser(ctx context.Context) (*models.User, error) {
	return f.user, f.checkErr
}

type fakePets struct {
	pets []models.Pet
	err  error
}

func (f *fakePets) GetPetsByUser(ctx context.Context, userID int) ([]models.Pet, error) {
	if f.err != nil {
		return nil, f.err
	}
	return append([]models.Pet(nil), f.pets...), nil
}

func (f *fakePets) CreatePet(ctx context.Context, pet *models.Pet) (*models.Pet, error) {
	f.pets = append(f.pets, *pet)
	return pet, nil
}

type fakeMessages struct {
	stored  []models.ChatMessage
	saveErr error
}

func (f *fakeMessages) SaveMessage(ctx context.Context, msg *models.ChatMessage) (*models.ChatMessage, error) {
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	msg.ID = uuid.New()
	msg.CreatedAt = time.Now()
	f.stored = append(f.stored, *msg)
	return msg, nil
}

func (f *fakeMessages) GetMessagesByPet(ctx context.Context, userID int, petID uuid.UUID) ([]models.ChatMessage, error) {
	var out []models.ChatMessage
	for _, m := range f.stored {
		if m.PetID == petID {
			out = append(out, m)
		}
	}
	return out, nil
}

type fakePlans struct {
	latest *models.DietPlan
}

func (f *fakePlans) CreateDietPlan(ctx context.Context, plan *models.DietPlan) (*models.DietPlan, error) {
	plan.ID = uuid.New()
	f.latest = plan
	return plan, nil
}

func (f *fakePlans) GetLatestDietPlan(ctx context.Context, userID int, petID uuid.UUID) (*models.DietPlan, error) {
	return f.latest, nil
}

type fakeRegistrar struct {
	pet *models.Pet
	err error
}

func (f *fakeRegistrar) Register(ctx context.Context, userID int, name string, profile *vision.PetProfile, image []byte, mimeType string) (*models.Pet, error) {
	if f.err != nil {
		return nil, f.err
	}
	pet := *f.pet
	pet.Name = name
	return &pet, nil
}

type fakeVision struct {
	profile *vision.PetProfile
	err     error
}

func (f *fakeVision) Identify(ctx context.Context, image []byte, mimeType string) (*vision.PetProfile, error) {
	return f.profile, f.err
}

type fakePersona struct {
	reply    persona.Reply
	plan     *models.PlanData
	planErr  error
	scenario *persona.MoodScenario
	// block, when set, stalls Chat until released; used to hold the
	// round-trip in flight.
	block chan struct{}
}

func (f *fakePersona) Chat(ctx context.Context, message string, p persona.Context, history []persona.Turn) persona.Reply {
	if f.block != nil {
		<-f.block
	}
	return f.reply
}

func (f *fakePersona) GenerateDietPlan(ctx context.Context, p persona.Context) (*models.PlanData, error) {
	return f.plan, f.planErr
}

func (f *fakePersona) GenerateMoodScenario(ctx context.Context, p persona.Context) (*persona.MoodScenario, error) {
	return f.scenario, nil
}

// --- Helpers ---

type testEnv struct {
	engine   *Engine
	auth     *fakeAuth
	pets     *fakePets
	messages *fakeMessages
	plans    *fakePlans
	reg      *fakeRegistrar
	vis      *fakeVision
	persona  *fakePersona
	store    *MemoryStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logging.InitLogger()
	env := &testEnv{
		auth:     &fakeAuth{},
		pets:     &fakePets{},
		messages: &fakeMessages{},
		plans:    &fakePlans{},
		reg:      &fakeRegistrar{},
		vis:      &fakeVision{},
		persona:  &fakePersona{reply: persona.Reply{Response: "Woof!", Reasoning: "happy"}},
		store:    NewMemoryStore(),
	}
	env.engine = NewEngine(Deps{
		Auth:      env.auth,
		Pets:      env.pets,
		Messages:  env.messages,
		Plans:     env.plans,
		Registrar: env.reg,
		Vision:    env.vis,
		Persona:   env.persona,
		Store:     env.store,
	})
	return env
}

func testUser() *models.User {
	return &models.User{ID: 1, Email: "rex@example.com"}
}

func testPet(name string) models.Pet {
	return models.Pet{
		ID:          uuid.New(),
		UserID:      1,
		Name:        name,
		Type:        "dog",
		Description: "A friendly dog",
		Personality: `{"characteristics": [], "care_tips": []}`,
	}
}

// signIn drives the engine from landing to a signed-in state.
func (env *testEnv) signIn(t *testing.T) {
	t.Helper()
	env.auth.user = testUser()
	require.NoError(t, env.engine.Begin())
	require.NoError(t, env.engine.SignIn(context.Background(), "rex@example.com", "secret"))
}

// toChat signs in with one pet and selects it.
func (env *testEnv) toChat(t *testing.T) models.Pet {
	t.Helper()
	pet := testPet("Rex")
	env.pets.pets = []models.Pet{pet}
	env.signIn(t)
	require.NoError(t, env.engine.SelectPet(context.Background(), pet.ID))
	return pet
}

// --- Startup and auth ---

func TestStartUnauthenticatedLandsOnLanding(t *testing.T) {
	env := newTestEnv(t)
	env.engine.Start(context.Background())
	assert.Equal(t, ScreenLanding, env.engine.Snapshot().Screen)
}

func TestStartAuthCheckFailureLandsOnLanding(t *testing.T) {
	env := newTestEnv(t)
	env.auth.checkErr = errors.New("backend down")
	env.engine.Start(context.Background())
	snap := env.engine.Snapshot()
	assert.Equal(t, ScreenLanding, snap.Screen)
	assert.Nil(t, snap.User)
}

func TestStartWithSessionAndPetsLandsOnDashboard(t *testing.T) {
	env := newTestEnv(t)
	env.auth.user = testUser()
	env.pets.pets = []models.Pet{testPet("Rex")}
	env.engine.Start(context.Background())
	snap := env.engine.Snapshot()
	assert.Equal(t, ScreenDashboard, snap.Screen)
	assert.Len(t, snap.Pets, 1)
}

func TestSignInWithoutPetsLandsOnUpload(t *testing.T) {
	env := newTestEnv(t)
	env.signIn(t)
	assert.Equal(t, ScreenUpload, env.engine.Snapshot().Screen)
}

func TestBeginOnlyFromLanding(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.engine.Begin())
	assert.ErrorIs(t, env.engine.Begin(), ErrInvalidTransition)
}

func TestSignOutResetsEverything(t *testing.T) {
	env := newTestEnv(t)
	env.toChat(t)

	env.engine.SignOut(context.Background())
	snap := env.engine.Snapshot()
	assert.Equal(t, ScreenLanding, snap.Screen)
	assert.Nil(t, snap.User)
	assert.Nil(t, snap.CurrentPet)
	assert.Empty(t, snap.Pets)
	assert.Empty(t, snap.Messages)

	_, _, ok := env.store.Load(context.Background(), 1)
	assert.False(t, ok, "restoration slots must be cleared on sign-out")
}

func TestPetFetchFailureFallsBackToUpload(t *testing.T) {
	env := newTestEnv(t)
	env.pets.err = errors.New("db down")
	env.signIn(t)
	assert.Equal(t, ScreenUpload, env.engine.Snapshot().Screen)
}

// --- Restoration ---

func TestSignInRestoresRecordedScreenAndPet(t *testing.T) {
	env := newTestEnv(t)
	pet := testPet("Rex")
	env.pets.pets = []models.Pet{pet}
	env.store.SaveScreen(context.Background(), 1, ScreenDiet)
	env.store.SavePet(context.Background(), 1, &pet)

	env.signIn(t)
	snap := env.engine.Snapshot()
	assert.Equal(t, ScreenDiet, snap.Screen)
	require.NotNil(t, snap.CurrentPet)
	assert.Equal(t, pet.ID, snap.CurrentPet.ID)
}

func TestRestorationUsesFreshPetData(t *testing.T) {
	env := newTestEnv(t)
	stale := testPet("Rex")
	fresh := stale
	fresh.Description = "Renamed on another device"
	env.pets.pets = []models.Pet{fresh}
	env.store.SaveScreen(context.Background(), 1, ScreenChat)
	env.store.SavePet(context.Background(), 1, &stale)

	env.signIn(t)
	snap := env.engine.Snapshot()
	require.NotNil(t, snap.CurrentPet)
	assert.Equal(t, "Renamed on another device", snap.CurrentPet.Description)
}

func TestRestorationDiscardsDeletedPetSilently(t *testing.T) {
	env := newTestEnv(t)
	gone := testPet("Ghost")
	remaining := testPet("Rex")
	env.pets.pets = []models.Pet{remaining}
	env.store.SaveScreen(context.Background(), 1, ScreenChat)
	env.store.SavePet(context.Background(), 1, &gone)

	env.signIn(t)
	snap := env.engine.Snapshot()
	assert.Equal(t, ScreenDashboard, snap.Screen)
	assert.Nil(t, snap.CurrentPet, "restoration must never select a pet absent from the fresh list")

	_, _, ok := env.store.Load(context.Background(), 1)
	assert.False(t, ok, "stale pet slot must be cleared")
}

func TestRestorationIgnoresCorruptedScreenSlot(t *testing.T) {
	env := newTestEnv(t)
	pet := testPet("Rex")
	env.pets.pets = []models.Pet{pet}
	env.store.SaveScreen(context.Background(), 1, Screen("bogus"))
	env.store.SavePet(context.Background(), 1, &pet)

	env.signIn(t)
	assert.Equal(t, ScreenDashboard, env.engine.Snapshot().Screen)
}

// --- Background auth events ---

func TestAuthEventNeverClobbersActiveFlow(t *testing.T) {
	env := newTestEnv(t)
	env.toChat(t)
	require.Equal(t, ScreenChat, env.engine.Snapshot().Screen)

	env.engine.HandleAuthEvent(context.Background(), auth.Event{Kind: auth.EventSignedIn, User: testUser()})
	assert.Equal(t, ScreenChat, env.engine.Snapshot().Screen, "a same-user refresh must not move an active flow")
}

func TestAuthEventSignedOutResets(t *testing.T) {
	env := newTestEnv(t)
	env.toChat(t)

	env.engine.HandleAuthEvent(context.Background(), auth.Event{Kind: auth.EventSignedOut})
	snap := env.engine.Snapshot()
	assert.Equal(t, ScreenLanding, snap.Screen)
	assert.Nil(t, snap.User)
}

func TestAuthEventRestoresFromPreAuthScreen(t *testing.T) {
	env := newTestEnv(t)
	env.pets.pets = []models.Pet{testPet("Rex")}
	require.NoError(t, env.engine.Begin())

	env.engine.HandleAuthEvent(context.Background(), auth.Event{Kind: auth.EventSignedIn, User: testUser()})
	assert.Equal(t, ScreenDashboard, env.engine.Snapshot().Screen)
}

// --- Pet onboarding ---

func TestCaptureIdentifyRegisterSaveFlow(t *testing.T) {
	env := newTestEnv(t)
	env.signIn(t)
	require.Equal(t, ScreenUpload, env.engine.Snapshot().Screen)

	env.vis.profile = &vision.PetProfile{Type: "dog", Breed: "Labrador", Description: "A lab"}
	saved := testPet("")
	env.reg.pet = &saved

	ctx := context.Background()
	require.NoError(t, env.engine.CaptureImage(ctx, []byte("jpegdata"), "image/jpeg"))
	snap := env.engine.Snapshot()
	assert.Equal(t, ScreenIdentify, snap.Screen)
	require.NotNil(t, snap.PendingProfile)

	require.NoError(t, env.engine.ContinueToRegister())
	require.NoError(t, env.engine.SavePet(ctx, "Rex"))

	snap = env.engine.Snapshot()
	assert.Equal(t, ScreenDashboard, snap.Screen)
	require.Len(t, snap.Pets, 1)
	assert.Equal(t, "Rex", snap.Pets[0].Name)
	require.NotNil(t, snap.CurrentPet)
	assert.Nil(t, snap.PendingProfile, "pending identification must be consumed")
}

func TestCaptureImageIdentificationFailureStaysOnUpload(t *testing.T) {
	env := newTestEnv(t)
	env.signIn(t)
	env.vis.err = vision.ErrIdentification

	err := env.engine.CaptureImage(context.Background(), []byte("x"), "image/jpeg")
	assert.ErrorIs(t, err, vision.ErrIdentification)
	assert.Equal(t, ScreenUpload, env.engine.Snapshot().Screen)
}

func TestSavePetSubStepFailureKeepsRegisterScreen(t *testing.T) {
	env := newTestEnv(t)
	env.signIn(t)
	env.vis.profile = &vision.PetProfile{Type: "dog", Description: "A dog"}
	env.reg.err = errors.New("upload failed")

	ctx := context.Background()
	require.NoError(t, env.engine.CaptureImage(ctx, []byte("x"), "image/jpeg"))
	require.NoError(t, env.engine.ContinueToRegister())

	err := env.engine.SavePet(ctx, "Rex")
	require.Error(t, err)
	snap := env.engine.Snapshot()
	assert.Equal(t, ScreenRegister, snap.Screen, "failed save must not leave register")
	assert.Empty(t, snap.Pets, "no partial pet may appear")
	assert.NotNil(t, snap.PendingProfile, "pending data must survive for a retry")
}

func TestSavePetValidations(t *testing.T) {
	env := newTestEnv(t)
	env.signIn(t)
	env.vis.profile = &vision.PetProfile{Type: "dog", Description: "A dog"}

	ctx := context.Background()
	require.NoError(t, env.engine.CaptureImage(ctx, []byte("x"), "image/jpeg"))
	require.NoError(t, env.engine.ContinueToRegister())

	assert.ErrorIs(t, env.engine.SavePet(ctx, ""), ErrInvalidName)
	assert.Equal(t, ScreenRegister, env.engine.Snapshot().Screen)
}

func TestAddPetOnlyFromDashboard(t *testing.T) {
	env := newTestEnv(t)
	env.pets.pets = []models.Pet{testPet("Rex")}
	env.signIn(t)

	require.NoError(t, env.engine.AddPet())
	assert.Equal(t, ScreenUpload, env.engine.Snapshot().Screen)
	assert.ErrorIs(t, env.engine.AddPet(), ErrInvalidTransition)
}

// --- Chat ---

func TestSelectPetLoadsConversation(t *testing.T) {
	env := newTestEnv(t)
	pet := testPet("Rex")
	env.pets.pets = []models.Pet{pet}
	env.messages.stored = []models.ChatMessage{
		{ID: uuid.New(), PetID: pet.ID, UserID: 1, Message: "Hi there!", IsFromPet: true},
	}
	env.signIn(t)

	require.NoError(t, env.engine.SelectPet(context.Background(), pet.ID))
	snap := env.engine.Snapshot()
	assert.Equal(t, ScreenChat, snap.Screen)
	require.Len(t, snap.Messages, 1)
	assert.Equal(t, "Hi there!", snap.Messages[0].Message)
}

func TestSelectUnknownPetFails(t *testing.T) {
	env := newTestEnv(t)
	env.pets.pets = []models.Pet{testPet("Rex")}
	env.signIn(t)
	assert.Error(t, env.engine.SelectPet(context.Background(), uuid.New()))
}

func TestSendMessageAppendsAlternatingPair(t *testing.T) {
	env := newTestEnv(t)
	env.toChat(t)

	require.NoError(t, env.engine.SendMessage(context.Background(), "hello"))
	snap := env.engine.Snapshot()
	require.Len(t, snap.Messages, 2)
	assert.Equal(t, "hello", snap.Messages[0].Message)
	assert.False(t, snap.Messages[0].IsFromPet)
	assert.Equal(t, "Woof!", snap.Messages[1].Message)
	assert.True(t, snap.Messages[1].IsFromPet)
	require.NotNil(t, snap.Messages[1].Reasoning)
	assert.Equal(t, "happy", *snap.Messages[1].Reasoning)
	assert.False(t, snap.ChatBusy)
}

func TestSendMessageWhileBusyIsRejected(t *testing.T) {
	env := newTestEnv(t)
	env.toChat(t)
	env.persona.block = make(chan struct{})

	firstDone := make(chan error, 1)
	go func() {
		firstDone <- env.engine.SendMessage(context.Background(), "first")
	}()

	// Wait until the first round-trip is visibly in flight.
	require.Eventually(t, func() bool {
		return env.engine.Snapshot().ChatBusy
	}, time.Second, time.Millisecond)

	err := env.engine.SendMessage(context.Background(), "second")
	assert.ErrorIs(t, err, ErrChatBusy)

	close(env.persona.block)
	require.NoError(t, <-firstDone)

	snap := env.engine.Snapshot()
	assert.False(t, snap.ChatBusy)
	require.Len(t, snap.Messages, 2, "the rejected send must leave no trace")
}

func TestSignOutDuringInflightSendDropsLateReply(t *testing.T) {
	env := newTestEnv(t)
	env.toChat(t)
	env.persona.block = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		done <- env.engine.SendMessage(context.Background(), "hello")
	}()
	require.Eventually(t, func() bool {
		return env.engine.Snapshot().ChatBusy
	}, time.Second, time.Millisecond)

	env.engine.SignOut(context.Background())
	close(env.persona.block)
	require.NoError(t, <-done)

	snap := env.engine.Snapshot()
	assert.Equal(t, ScreenLanding, snap.Screen)
	assert.Nil(t, snap.User)
	assert.Empty(t, snap.Messages, "a late reply must not repopulate signed-out state")
	assert.False(t, snap.ChatBusy)
	assert.Len(t, env.messages.stored, 2, "the round-trip still persists normally")
}

func TestPetSwitchDuringInflightSendDropsLateReply(t *testing.T) {
	env := newTestEnv(t)
	rex := testPet("Rex")
	milo := testPet("Milo")
	env.pets.pets = []models.Pet{rex, milo}
	env.signIn(t)
	require.NoError(t, env.engine.SelectPet(context.Background(), rex.ID))

	env.persona.block = make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- env.engine.SendMessage(context.Background(), "hello")
	}()
	require.Eventually(t, func() bool {
		return env.engine.Snapshot().ChatBusy
	}, time.Second, time.Millisecond)

	require.NoError(t, env.engine.BackToDashboard())
	require.NoError(t, env.engine.SelectPet(context.Background(), milo.ID))
	close(env.persona.block)
	require.NoError(t, <-done)

	snap := env.engine.Snapshot()
	require.NotNil(t, snap.CurrentPet)
	assert.Equal(t, milo.ID, snap.CurrentPet.ID)
	for _, m := range snap.Messages {
		assert.Equal(t, milo.ID, m.PetID, "another pet's reply must not leak into the open conversation")
	}
}

func TestSendMessagePersistFailureReleasesBusy(t *testing.T) {
	env := newTestEnv(t)
	env.toChat(t)
	env.messages.saveErr = errors.New("db down")

	require.Error(t, env.engine.SendMessage(context.Background(), "hello"))
	assert.False(t, env.engine.Snapshot().ChatBusy)
}

func TestSendMessageOffChatScreenRejected(t *testing.T) {
	env := newTestEnv(t)
	env.pets.pets = []models.Pet{testPet("Rex")}
	env.signIn(t)
	assert.ErrorIs(t, env.engine.SendMessage(context.Background(), "hi"), ErrInvalidTransition)
}

// --- Diet and mood ---

func TestGenerateDietPlanPersistsAndUpdatesContext(t *testing.T) {
	env := newTestEnv(t)
	env.toChat(t)
	env.persona.plan = &models.PlanData{
		WeeklyPlan: map[string]models.DayPlan{"Monday": {Breakfast: "kibble"}},
	}

	require.NoError(t, env.engine.ShowDietPlan())
	plan, err := env.engine.GenerateDietPlan(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, env.plans.latest, "plan must be persisted")

	data, err := plan.DecodePlanData()
	require.NoError(t, err)
	assert.Equal(t, "kibble", data.WeeklyPlan["Monday"].Breakfast)
	assert.Equal(t, plan, env.engine.Snapshot().DietPlan)
}

func TestGenerateDietPlanFailureKeepsScreen(t *testing.T) {
	env := newTestEnv(t)
	env.toChat(t)
	env.persona.planErr = persona.ErrNoResult

	require.NoError(t, env.engine.ShowDietPlan())
	_, err := env.engine.GenerateDietPlan(context.Background())
	assert.ErrorIs(t, err, persona.ErrNoResult)
	assert.Equal(t, ScreenDiet, env.engine.Snapshot().Screen)
}

func TestMoodScenarioIsEphemeral(t *testing.T) {
	env := newTestEnv(t)
	env.toChat(t)
	env.persona.scenario = &persona.MoodScenario{
		Scenario:    "Rex wags his tail",
		CorrectMood: "happy",
		MoodOptions: []string{"happy", "sad"},
	}

	require.NoError(t, env.engine.ShowPawMood())
	sc, err := env.engine.NextMoodScenario(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "happy", sc.CorrectMood)
	assert.Nil(t, env.plans.latest, "mood scenarios must not persist anything")
}

func TestBackToChatReloadsPlan(t *testing.T) {
	env := newTestEnv(t)
	env.toChat(t)
	require.NoError(t, env.engine.ShowDietPlan())

	// A plan appears while we're away (another device, say).
	env.plans.latest = &models.DietPlan{ID: uuid.New(), PlanData: `{"weekly_plan": {}}`}
	require.NoError(t, env.engine.BackToChat(context.Background()))
	snap := env.engine.Snapshot()
	assert.Equal(t, ScreenChat, snap.Screen)
	assert.Equal(t, env.plans.latest.ID, snap.DietPlan.ID)
}

func TestBackToDashboardFromPetFlows(t *testing.T) {
	env := newTestEnv(t)
	env.toChat(t)
	require.NoError(t, env.engine.BackToDashboard())
	assert.Equal(t, ScreenDashboard, env.engine.Snapshot().Screen)
}

// --- Durable mirror ---

func TestMirroredScreensAreRecorded(t *testing.T) {
	env := newTestEnv(t)
	pet := env.toChat(t)

	screen, snap, ok := env.store.Load(context.Background(), 1)
	require.True(t, ok)
	assert.Equal(t, ScreenChat, screen)
	assert.Equal(t, pet.ID, snap.ID)

	require.NoError(t, env.engine.ShowDietPlan())
	screen, _, _ = env.store.Load(context.Background(), 1)
	assert.Equal(t, ScreenDiet, screen)
}

func TestPreAuthScreensAreNotRecorded(t *testing.T) {
	env := newTestEnv(t)
	env.engine.Start(context.Background())
	require.NoError(t, env.engine.Begin())

	_, _, ok := env.store.Load(context.Background(), 1)
	assert.False(t, ok)
}
