package routes

import (
	"context"
	"encoding/json"
	"net/http"

	"mypaw/mypaw/config"
	"mypaw/mypaw/services/auth"
	"mypaw/mypaw/services/persona"
	"mypaw/mypaw/services/pets"
	"mypaw/mypaw/services/vision"
	"mypaw/mypaw/session"
	"mypaw/mypaw/sources/psql/dao"
	"mypaw/mypaw/utils/logging"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionDeps is everything one live session connection needs.
type SessionDeps struct {
	Auth     *auth.Service
	Pets     *dao.PetDAO
	Messages *dao.ChatMessageDAO
	Plans    *dao.DietPlanDAO
	UIState  *dao.UIStateDAO
	Registry *pets.Service
	Vision   *vision.GeminiClient
	Persona  *persona.Service
	Config   config.Config
}

// sessionIntent is one client->server command on the session channel.
type sessionIntent struct {
	Intent string `json:"intent"`

	Email    string `json:"email,omitempty"`
	Password string `json:"password,omitempty"`

	PetID       string `json:"pet_id,omitempty"`
	Name        string `json:"name,omitempty"`
	Message     string `json:"message,omitempty"`
	ImageBase64 string `json:"image_base64,omitempty"`
	MimeType    string `json:"mime_type,omitempty"`
}

// sessionFrame is one server->client state push. The snapshot is always
// current, even when the intent failed. Scenario rides along only on a
// next_mood_scenario answer; mood quizzes are ephemeral and never enter
// the snapshot.
type sessionFrame struct {
	Snapshot session.Snapshot      `json:"snapshot"`
	Token    string                `json:"token,omitempty"`
	Scenario *persona.MoodScenario `json:"scenario,omitempty"`
	Error    string                `json:"error,omitempty"`
}

// SessionRoutes exposes the stateful session channel: one websocket, one
// engine. The client sends intents, the server answers each with the full
// snapshot; auth events arriving out of band also push a frame.
func SessionRoutes(deps SessionDeps) chi.Router {
	r := chi.NewRouter()
	r.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusInternalError, "internal error")

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// A previously persisted token rides in on the query string so the
		// initial auth check can restore the session.
		client := deps.Auth.NewSessionClient(r.URL.Query().Get("token"))
		engine := session.NewEngine(session.Deps{
			Auth:        client,
			Pets:        deps.Pets,
			Messages:    deps.Messages,
			Plans:       deps.Plans,
			Registrar:   deps.Registry,
			Vision:      deps.Vision,
			Persona:     deps.Persona,
			Store:       session.NewDBStore(deps.UIState),
			AuthTimeout: deps.Config.AuthCheckTimeout,
		})
		engine.ConsumeAuthEvents(ctx, client.Events())
		engine.Start(ctx)

		push := func(scenario *persona.MoodScenario, errMsg string) error {
			frame := sessionFrame{
				Snapshot: engine.Snapshot(),
				Token:    client.Token(),
				Scenario: scenario,
				Error:    errMsg,
			}
			payload, err := json.Marshal(frame)
			if err != nil {
				return err
			}
			return conn.Write(ctx, websocket.MessageText, payload)
		}

		if err := push(nil, ""); err != nil {
			return
		}

		for {
			typ, data, err := conn.Read(ctx)
			if err != nil {
				return
			}
			if typ != websocket.MessageText {
				conn.Close(websocket.StatusUnsupportedData, "unsupported data")
				return
			}
			var intent sessionIntent
			if err := json.Unmarshal(data, &intent); err != nil {
				if err := push(nil, "invalid json"); err != nil {
					return
				}
				continue
			}
			errMsg := ""
			scenario, err := dispatchIntent(ctx, engine, intent)
			if err != nil {
				errMsg = err.Error()
			}
			if err := push(scenario, errMsg); err != nil {
				return
			}
		}
	})
	return r
}

func dispatchIntent(ctx context.Context, engine *session.Engine, intent sessionIntent) (*persona.MoodScenario, error) {
	defer logging.LogDuration(ctx, "session intent "+intent.Intent)()

	switch intent.Intent {
	case "begin":
		return nil, engine.Begin()
	case "sign_up":
		return nil, engine.SignUp(ctx, intent.Email, intent.Password)
	case "sign_in":
		return nil, engine.SignIn(ctx, intent.Email, intent.Password)
	case "sign_out":
		engine.SignOut(ctx)
		return nil, nil
	case "select_pet":
		petID, err := uuid.Parse(intent.PetID)
		if err != nil {
			return nil, err
		}
		return nil, engine.SelectPet(ctx, petID)
	case "add_pet":
		return nil, engine.AddPet()
	case "capture_image":
		image, err := decodeBase64Image(intent.ImageBase64)
		if err != nil {
			return nil, err
		}
		return nil, engine.CaptureImage(ctx, image, intent.MimeType)
	case "continue_to_register":
		return nil, engine.ContinueToRegister()
	case "save_pet":
		return nil, engine.SavePet(ctx, intent.Name)
	case "send_message":
		return nil, engine.SendMessage(ctx, intent.Message)
	case "show_diet_plan":
		return nil, engine.ShowDietPlan()
	case "show_paw_mood":
		return nil, engine.ShowPawMood()
	case "back_to_dashboard":
		return nil, engine.BackToDashboard()
	case "back_to_chat":
		return nil, engine.BackToChat(ctx)
	case "generate_diet_plan":
		_, err := engine.GenerateDietPlan(ctx)
		return nil, err
	case "next_mood_scenario":
		return engine.NextMoodScenario(ctx)
	default:
		logging.AppLogger.Warn("unknown session intent", zap.String("intent", intent.Intent))
		return nil, session.ErrInvalidTransition
	}
}
