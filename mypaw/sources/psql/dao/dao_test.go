package dao

import (
	"context"
	"testing"

	"mypaw/mypaw/sources/psql/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// --- Helpers ---
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.UIState{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

// --- UserDAO ---

func TestUserDAOLookups(t *testing.T) {
	d := NewUserDAO(setupTestDB(t))
	ctx := context.Background()

	user, err := d.CreateUser(ctx, "rex@example.com", "hashed")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	byID, err := d.GetUserByID(ctx, user.ID)
	if err != nil || byID == nil || byID.Email != "rex@example.com" {
		t.Errorf("by-id lookup failed: %v %+v", err, byID)
	}

	byEmail, err := d.GetUserByEmail(ctx, "rex@example.com")
	if err != nil || byEmail == nil || byEmail.ID != user.ID {
		t.Errorf("by-email lookup failed: %v %+v", err, byEmail)
	}

	missing, err := d.GetUserByEmail(ctx, "nobody@example.com")
	if err != nil || missing != nil {
		t.Errorf("expected nil for unknown email, got %v %+v", err, missing)
	}
	missing, err = d.GetUserByID(ctx, 9999)
	if err != nil || missing != nil {
		t.Errorf("expected nil for unknown id, got %v %+v", err, missing)
	}
}

// --- UIStateDAO ---

func TestUIStateUpsertKeepsOtherSlot(t *testing.T) {
	d := NewUIStateDAO(setupTestDB(t))
	ctx := context.Background()

	if err := d.SaveScreen(ctx, 1, "chat"); err != nil {
		t.Fatalf("save screen failed: %v", err)
	}
	if err := d.SavePet(ctx, 1, `{"id": "abc"}`); err != nil {
		t.Fatalf("save pet failed: %v", err)
	}

	state, err := d.Get(ctx, 1)
	if err != nil || state == nil {
		t.Fatalf("get failed: %v", err)
	}
	if state.LastScreen != "chat" || state.LastPet != `{"id": "abc"}` {
		t.Errorf("unexpected state: %+v", state)
	}

	// Updating one slot must not wipe the other.
	if err := d.SaveScreen(ctx, 1, "diet"); err != nil {
		t.Fatalf("save screen failed: %v", err)
	}
	state, _ = d.Get(ctx, 1)
	if state.LastScreen != "diet" {
		t.Errorf("expected screen 'diet', got %q", state.LastScreen)
	}
	if state.LastPet != `{"id": "abc"}` {
		t.Errorf("pet slot was clobbered: %q", state.LastPet)
	}
}

func TestUIStateClear(t *testing.T) {
	d := NewUIStateDAO(setupTestDB(t))
	ctx := context.Background()

	if err := d.SaveScreen(ctx, 1, "chat"); err != nil {
		t.Fatalf("save screen failed: %v", err)
	}
	if err := d.Clear(ctx, 1); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	state, err := d.Get(ctx, 1)
	if err != nil || state != nil {
		t.Errorf("expected no state after clear, got %v %+v", err, state)
	}

	// Clearing an absent row is a no-op, not an error.
	if err := d.Clear(ctx, 42); err != nil {
		t.Errorf("clear of missing row failed: %v", err)
	}
}

func TestUIStateScopedPerUser(t *testing.T) {
	d := NewUIStateDAO(setupTestDB(t))
	ctx := context.Background()

	d.SaveScreen(ctx, 1, "chat")
	d.SaveScreen(ctx, 2, "diet")

	one, _ := d.Get(ctx, 1)
	two, _ := d.Get(ctx, 2)
	if one == nil || two == nil || one.LastScreen != "chat" || two.LastScreen != "diet" {
		t.Errorf("states not scoped per user: %+v %+v", one, two)
	}
}
