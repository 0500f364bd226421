// internal/api/job/store_test.go
package job

import (
	"errors"
	"testing"
	"time"

	"github.com/newthinker/signaledge/internal/core"
)

func TestStore_CreateAndGet(t *testing.T) {
	store := NewStore(100, time.Hour)

	job := store.Create("backtest")
	if job.ID == "" {
		t.Error("expected job ID")
	}
	if job.Status != StatusPending {
		t.Errorf("expected pending, got %s", job.Status)
	}

	retrieved, err := store.Get(job.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if retrieved.ID != job.ID {
		t.Error("IDs don't match")
	}
}

func TestStore_UniqueIDs(t *testing.T) {
	store := NewStore(100, time.Hour)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		id := store.Create("backtest").ID
		if seen[id] {
			t.Fatalf("duplicate job ID %s", id)
		}
		seen[id] = true
	}
}

func TestStore_Update(t *testing.T) {
	store := NewStore(100, time.Hour)
	job := store.Create("backtest")

	err := store.Update(job.ID, func(j *Job) {
		j.Status = StatusRunning
		j.Progress = 50
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	retrieved, _ := store.Get(job.ID)
	if retrieved.Status != StatusRunning {
		t.Errorf("expected running, got %s", retrieved.Status)
	}
	if retrieved.Progress != 50 {
		t.Errorf("expected 50, got %d", retrieved.Progress)
	}
}

func TestStore_MaxSize(t *testing.T) {
	store := NewStore(2, time.Hour)

	job1 := store.Create("backtest")
	store.Create("backtest")
	store.Create("backtest") // Should evict job1

	_, err := store.Get(job1.ID)
	if err == nil {
		t.Error("expected job1 to be evicted")
	}
}

func TestStore_NotFound(t *testing.T) {
	store := NewStore(100, time.Hour)

	_, err := store.Get("nonexistent")
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
	if err := store.Update("nonexistent", func(*Job) {}); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected NOT_FOUND from Update, got %v", err)
	}
}

func TestStore_List(t *testing.T) {
	store := NewStore(100, time.Hour)
	first := store.Create("backtest")
	store.Create("sweep")

	jobs := store.List()
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0].ID != first.ID {
		t.Error("expected oldest job first")
	}
}

func TestStore_TTLExpiresFinishedJobs(t *testing.T) {
	store := NewStore(100, time.Minute)
	now := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	done := store.Create("backtest")
	running := store.Create("backtest")
	store.Update(done.ID, func(j *Job) { j.Status = StatusComplete })
	store.Update(running.ID, func(j *Job) { j.Status = StatusRunning })

	now = now.Add(2 * time.Minute)

	if _, err := store.Get(done.ID); err == nil {
		t.Error("expected finished job to expire")
	}
	if _, err := store.Get(running.ID); err != nil {
		t.Errorf("running job should not expire: %v", err)
	}

	store.Create("backtest")
	if len(store.List()) != 2 {
		t.Errorf("expected expired job to be purged, got %d jobs", len(store.List()))
	}
}

func TestStore_ActiveCount(t *testing.T) {
	store := NewStore(100, time.Hour)
	a := store.Create("backtest")
	store.Create("backtest")
	store.Create("sweep")
	store.Update(a.ID, func(j *Job) { j.Status = StatusFailed })

	if got := store.ActiveCount("backtest"); got != 1 {
		t.Errorf("expected 1 active backtest, got %d", got)
	}
	if got := store.ActiveCount("sweep"); got != 1 {
		t.Errorf("expected 1 active sweep, got %d", got)
	}
}
