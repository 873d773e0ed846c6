package app_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"notiplay/internal/app"
	"notiplay/internal/domain"
	"notiplay/internal/infra/memory"
)

func newProfileService(backend *memory.Backend, guard app.InFlightGuard) *app.ProfileService {
	return app.NewProfileService(backend, backend, backend, backend, guard, discardLogger())
}

func TestUpdateProfileTrimsAndValidates(t *testing.T) {
	ctx := context.Background()
	backend := memory.NewBackend(testData())
	service := newProfileService(backend, memory.NewGuard())
	session := app.Session{UserID: "u1"}

	user, err := service.Update(ctx, session, domain.ProfileUpdate{FirstName: "  Ana María ", LastName: "Quispe"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if user.FirstName != "Ana María" || user.FullName() != "Ana María Quispe" {
		t.Fatalf("unexpected user %+v", user)
	}

	if _, err := service.Update(ctx, session, domain.ProfileUpdate{FirstName: "   "}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for blank name, got %v", err)
	}
	if _, err := service.Update(ctx, session, domain.ProfileUpdate{FirstName: "Ana", Image: "not a url"}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for image, got %v", err)
	}
	if _, err := service.Update(ctx, app.Anonymous(), domain.ProfileUpdate{FirstName: "Ana"}); err != domain.ErrUnauthenticated {
		t.Fatalf("expected unauthenticated, got %v", err)
	}
}

func TestUploadAvatarOverwritesAndVersions(t *testing.T) {
	ctx := context.Background()
	backend := memory.NewBackend(testData())
	service := newProfileService(backend, memory.NewGuard())
	session := app.Session{UserID: "u1"}

	first, err := service.UploadAvatar(ctx, session, "me.PNG", []byte("one"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	second, err := service.UploadAvatar(ctx, session, "me.png", []byte("two"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if first == second || !strings.Contains(second, "?v=") {
		t.Fatalf("expected distinct versioned urls, got %s and %s", first, second)
	}

	data, err := backend.Avatar(ctx, "u1/avatar.png")
	if err != nil || string(data) != "two" {
		t.Fatalf("expected overwritten avatar, got %q", data)
	}
	user, _ := backend.User(ctx, "u1")
	if user.Image != "memory://avatars/u1/avatar.png" {
		t.Fatalf("profile image not updated: %s", user.Image)
	}

	if _, err := service.UploadAvatar(ctx, session, "me.exe", []byte("x")); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestBadgesUnlockEarned(t *testing.T) {
	backend := memory.NewBackend(testData())
	service := newProfileService(backend, memory.NewGuard())

	badges, err := service.Badges(context.Background(), app.Session{UserID: "u1"})
	if err != nil {
		t.Fatalf("badges: %v", err)
	}
	if len(badges) != len(domain.Badges) {
		t.Fatalf("expected every badge listed, got %d", len(badges))
	}
	unlocked := map[string]bool{}
	for _, b := range badges {
		unlocked[b.Name] = b.Unlocked
	}
	if !unlocked["Explorador"] || !unlocked["Maestro Lector"] || unlocked["Lector Constante"] {
		t.Fatalf("unexpected unlock set %v", unlocked)
	}
}

func TestSaveCategoriesDedupes(t *testing.T) {
	ctx := context.Background()
	backend := memory.NewBackend(testData())
	guard := memory.NewGuard()
	service := newProfileService(backend, guard)
	session := app.Session{UserID: "u1"}

	if err := service.SaveCategories(ctx, session, []string{"world", "", "science", "world"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := service.UserCategories(ctx, session)
	if err != nil {
		t.Fatalf("user categories: %v", err)
	}
	if strings.Join(got, ",") != "world,science" {
		t.Fatalf("unexpected categories %v", got)
	}
	if guard.Held("categories:u1") {
		t.Fatalf("guard should be released after save")
	}

	release, _ := guard.Acquire(ctx, "categories:u1")
	defer release()
	if err := service.SaveCategories(ctx, session, []string{"sports"}); err != domain.ErrInFlight {
		t.Fatalf("expected in flight, got %v", err)
	}
}
