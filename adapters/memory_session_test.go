package adapters

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/satriahrh/agribot/domain/entities"
	"github.com/satriahrh/agribot/domain/repositories"
)

func TestMemorySessionRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySessionRepository()

	t.Run("CreateAndGet", func(t *testing.T) {
		session, err := repo.Create(ctx, entities.Kannada)
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		if session.Language() != entities.Kannada {
			t.Errorf("Expected kn, got %s", session.Language())
		}

		got, err := repo.Get(ctx, session.ID)
		if err != nil {
			t.Fatalf("Failed to get session: %v", err)
		}
		if got != session {
			t.Error("Expected the live session to be returned")
		}
	})

	t.Run("DefaultLanguage", func(t *testing.T) {
		session, err := repo.Create(ctx, "")
		if err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
		if session.Language() != entities.English {
			t.Errorf("Expected en, got %s", session.Language())
		}
	})

	t.Run("UnsupportedLanguage", func(t *testing.T) {
		if _, err := repo.Create(ctx, "fr"); err == nil {
			t.Error("Expected error for unsupported language")
		}
	})

	t.Run("GetMissing", func(t *testing.T) {
		if _, err := repo.Get(ctx, "nope"); !errors.Is(err, repositories.ErrSessionNotFound) {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}
		if _, err := repo.Get(ctx, ""); err == nil {
			t.Error("Expected error for empty ID")
		}
	})

	t.Run("Delete", func(t *testing.T) {
		session, _ := repo.Create(ctx, entities.English)
		if err := repo.Delete(ctx, session.ID); err != nil {
			t.Fatalf("Failed to delete session: %v", err)
		}
		if err := repo.Delete(ctx, session.ID); !errors.Is(err, repositories.ErrSessionNotFound) {
			t.Errorf("Expected ErrSessionNotFound on second delete, got %v", err)
		}
	})
}

func TestMemorySessionRepository_ExpireIdle(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySessionRepository()

	for i := 0; i < 3; i++ {
		if _, err := repo.Create(ctx, entities.English); err != nil {
			t.Fatalf("Failed to create session: %v", err)
		}
	}

	removed, err := repo.ExpireIdle(ctx, time.Hour)
	if err != nil || removed != 0 {
		t.Errorf("Expected no fresh session to expire, got %d, %v", removed, err)
	}

	removed, err = repo.ExpireIdle(ctx, -time.Nanosecond)
	if err != nil || removed != 3 {
		t.Errorf("Expected 3 sessions to expire, got %d, %v", removed, err)
	}

	if repo.Count() != 0 {
		t.Errorf("Expected empty repository, got %d", repo.Count())
	}
}

func TestMemorySessionRepository_Concurrent(t *testing.T) {
	ctx := context.Background()
	repo := NewMemorySessionRepository()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			session, err := repo.Create(ctx, entities.Kannada)
			if err != nil {
				t.Errorf("Create failed: %v", err)
				return
			}
			if _, err := repo.Get(ctx, session.ID); err != nil {
				t.Errorf("Get failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if repo.Count() != 50 {
		t.Errorf("Expected 50 sessions, got %d", repo.Count())
	}
}
