package storage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lehigh-university-libraries/vibetrack/internal/coordinator"
	"github.com/lehigh-university-libraries/vibetrack/internal/models"
	"github.com/lehigh-university-libraries/vibetrack/internal/providers"
	"github.com/lehigh-university-libraries/vibetrack/internal/staging"
)

type noEnrich struct{}

func (noEnrich) EnrichAll(ctx context.Context, songs []models.SongSuggestion) []models.EnrichedSong {
	return make([]models.EnrichedSong, len(songs))
}

func newCoordinator(previews *staging.Previews) *coordinator.Coordinator {
	suggester := providers.SuggesterFunc(func(ctx context.Context, req providers.Request) ([]models.SongSuggestion, error) {
		return nil, providers.ErrEmptyResponse
	})
	return coordinator.New(suggester, noEnrich{}, previews)
}

// 1x1 GIF
var gif = []byte("GIF89a\x01\x00\x01\x00\x80\x00\x00\x00\x00\x00\xff\xff\xff!\xf9\x04\x01\x00\x00\x00\x00,\x00\x00\x00\x00\x01\x00\x01\x00\x00\x02\x02D\x01\x00;")

func TestCreateGetDelete(t *testing.T) {
	previews := staging.NewPreviews()
	store := New()

	session := store.Create(newCoordinator(previews))
	if session.ID == "" {
		t.Fatal("Expected an ID")
	}
	if _, err := session.Coordinator.AddImages(staging.Upload{Name: "a.gif", Data: gif}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	got, ok := store.Get(session.ID)
	if !ok || got != session {
		t.Fatalf("Expected to find session %s", session.ID)
	}

	if !store.Delete(session.ID) {
		t.Error("Expected delete to report an existing session")
	}
	if _, ok := store.Get(session.ID); ok {
		t.Error("Expected session to be gone")
	}
	if previews.Live() != 0 {
		t.Errorf("Expected delete to release previews, %d live", previews.Live())
	}
	if store.Delete(session.ID) {
		t.Error("Expected second delete to report false")
	}
}

func TestGetAllOrderedByCreation(t *testing.T) {
	store := New()
	previews := staging.NewPreviews()

	first := store.Create(newCoordinator(previews))
	second := store.Create(newCoordinator(previews))
	first.CreatedAt = time.Now().Add(-time.Minute)

	all := store.GetAll()
	if len(all) != 2 || all[0] != first || all[1] != second {
		t.Errorf("Expected creation order, got %v", all)
	}
}

func TestCloseAll(t *testing.T) {
	previews := staging.NewPreviews()
	store := New()
	for i := 0; i < 3; i++ {
		s := store.Create(newCoordinator(previews))
		_, _ = s.Coordinator.AddImages(staging.Upload{Name: "x.gif", Data: gif})
	}

	if n := store.CloseAll(); n != 3 {
		t.Errorf("Expected 3 closed, got %d", n)
	}
	if len(store.GetAll()) != 0 || previews.Live() != 0 {
		t.Errorf("Expected empty store and registry")
	}
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestEvictIdle(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	previews := staging.NewPreviews()
	store := New()
	store.now = clock.Now

	stale := store.Create(newCoordinator(previews))
	if _, err := stale.Coordinator.AddImages(staging.Upload{Name: "a.gif", Data: gif}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	active := store.Create(newCoordinator(previews))

	clock.Advance(45 * time.Minute)
	store.Get(active.ID)
	clock.Advance(30 * time.Minute)

	if n := store.EvictIdle(0); n != 0 {
		t.Errorf("Expected a zero TTL to evict nothing, got %d", n)
	}
	if n := store.EvictIdle(time.Hour); n != 1 {
		t.Fatalf("Expected 1 evicted, got %d", n)
	}
	if _, ok := store.Get(stale.ID); ok {
		t.Error("Expected idle session to be gone")
	}
	if _, ok := store.Get(active.ID); !ok {
		t.Error("Expected recently used session to survive")
	}
	if previews.Live() != 0 {
		t.Errorf("Expected eviction to release previews, %d live", previews.Live())
	}
	if _, err := stale.Coordinator.AddImages(staging.Upload{Name: "b.gif", Data: gif}); !errors.Is(err, coordinator.ErrClosed) {
		t.Errorf("Expected evicted coordinator to be closed, got %v", err)
	}
}

func TestEvictIdleEveryStopsWithContext(t *testing.T) {
	store := New()
	store.Create(newCoordinator(staging.NewPreviews()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		store.EvictIdleEvery(ctx, time.Millisecond, time.Nanosecond)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for len(store.GetAll()) != 0 {
		select {
		case <-deadline:
			t.Fatal("Timed out waiting for eviction")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Expected eviction loop to stop")
	}
}
