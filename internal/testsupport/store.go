package testsupport

import (
	"context"
	"testing"

	"newsreel/internal/config"
	"newsreel/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewJob inserts a pending job for tests using the provided store.
func NewJob(t testing.TB, store *queue.Store, title, url string) *queue.Job {
	t.Helper()

	job, err := store.NewJob(context.Background(), queue.NewsItem{Title: title, URL: url})
	if err != nil {
		t.Fatalf("store.NewJob: %v", err)
	}
	return job
}

// SampleScript returns a valid script with one prompt per scene, for tests
// that need a job advanced past scripting.
func SampleScript() *queue.Script {
	return &queue.Script{
		Narration: "Trade talks concluded with a new rail corridor agreement.",
		VisualPrompts: []string{
			"two delegations shaking hands in a marble hall",
			"a freight train crossing a mountain bridge at dawn",
			"cranes loading containers at a busy port",
			"a crowd celebrating under falling confetti",
		},
	}
}
