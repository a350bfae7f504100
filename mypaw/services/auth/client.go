package auth

import (
	"context"
	"sync"

	"mypaw/mypaw/sources/psql/models"
)

type EventKind string

const (
	EventSignedIn  EventKind = "signed_in"
	EventSignedOut EventKind = "signed_out"
)

// Event is one auth-state-change notification.
type Event struct {
	Kind EventKind
	User *models.User
}

// SessionClient is the stateful per-connection view of the auth service: it
// holds the current token and publishes auth-state changes, the way a
// hosted-auth SDK does on the client side.
type SessionClient struct {
	svc *Service

	mu    sync.Mutex
	token string

	events chan Event
}

// NewSessionClient builds a client. initialToken may carry a token the
// presentation layer persisted from a previous run.
func (s *Service) NewSessionClient(initialToken string) *SessionClient {
	return &SessionClient{
		svc:    s,
		token:  initialToken,
		events: make(chan Event, 8),
	}
}

// Events is the auth-state-change stream. Emissions are best-effort: if the
// consumer lags behind the buffer, the notification is dropped rather than
// blocking the auth path.
func (c *SessionClient) Events() <-chan Event {
	return c.events
}

func (c *SessionClient) SignUp(ctx context.Context, email, password string) (*models.User, error) {
	user, token, err := c.svc.Register(ctx, email, password)
	if err != nil {
		return nil, err
	}
	c.setToken(token)
	c.emit(Event{Kind: EventSignedIn, User: user})
	return user, nil
}

func (c *SessionClient) SignIn(ctx context.Context, email, password string) (*models.User, error) {
	user, token, err := c.svc.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	c.setToken(token)
	c.emit(Event{Kind: EventSignedIn, User: user})
	return user, nil
}

func (c *SessionClient) SignOut(ctx context.Context) error {
	c.setToken("")
	c.emit(Event{Kind: EventSignedOut})
	return nil
}

// CurrentUser resolves the held token, or (nil, nil) when signed out.
func (c *SessionClient) CurrentUser(ctx context.Context) (*models.User, error) {
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()
	if token == "" {
		return nil, nil
	}
	user, err := c.svc.UserFromToken(ctx, token)
	if err == ErrInvalidToken {
		return nil, nil
	}
	return user, err
}

// Token exposes the current bearer token so the presentation layer can
// persist it across runs.
func (c *SessionClient) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

func (c *SessionClient) setToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *SessionClient) emit(ev Event) {
	select {
	case c.events <- ev:
	default:
	}
}
