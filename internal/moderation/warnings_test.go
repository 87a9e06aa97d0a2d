package moderation

import (
	"context"
	"sync"
	"testing"

	"github.com/iamwavecut/gmbot/internal/db"
	"github.com/iamwavecut/gmbot/internal/db/memory"
)

type staticSettings struct {
	settings *db.Settings
}

func (s *staticSettings) GetSettings(_ context.Context, chatID int64) (*db.Settings, error) {
	if s.settings != nil {
		return s.settings, nil
	}
	return db.DefaultSettings(chatID), nil
}

func TestWarningTrackerEscalation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tracker := NewWarningTracker(memory.NewClient(), &staticSettings{})
	chatID, userID := int64(-100500), int64(42)

	for i, want := range []struct {
		count uint
		muted bool
	}{
		{1, false},
		{2, false},
		{3, true},
	} {
		res, err := tracker.RecordWarning(ctx, chatID, userID)
		if err != nil {
			t.Fatalf("warning %d: %v", i+1, err)
		}
		if res.Count != want.count || res.Muted != want.muted {
			t.Fatalf("warning %d: got count=%d muted=%v, want count=%d muted=%v",
				i+1, res.Count, res.Muted, want.count, want.muted)
		}
	}

	count, err := tracker.GetCount(ctx, chatID, userID)
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Fatalf("counter after threshold: got %d, want 0", count)
	}
}

func TestWarningTrackerCustomThreshold(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	settings := db.DefaultSettings(-1)
	settings.WarnThreshold = 2
	settings.MuteDurationHours = 1
	tracker := NewWarningTracker(memory.NewClient(), &staticSettings{settings: settings})

	res, err := tracker.RecordWarning(ctx, -1, 7)
	if err != nil {
		t.Fatal(err)
	}
	if res.Muted {
		t.Fatal("first warning must not mute")
	}
	res, err = tracker.RecordWarning(ctx, -1, 7)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Muted || res.Count != 2 {
		t.Fatalf("second warning at threshold 2: got count=%d muted=%v", res.Count, res.Muted)
	}
}

func TestWarningTrackerConcurrentExactlyOnceMute(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tracker := NewWarningTracker(memory.NewClient(), &staticSettings{})
	chatID, userID := int64(-2), int64(9)

	const workers = 30
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		mutes int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := tracker.RecordWarning(ctx, chatID, userID)
			if err != nil {
				t.Error(err)
				return
			}
			if res.Muted {
				mu.Lock()
				mutes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if want := workers / int(db.DefaultWarnThreshold); mutes != want {
		t.Fatalf("got %d mute decisions for %d warnings, want %d", mutes, workers, want)
	}
	count, err := tracker.GetCount(ctx, chatID, userID)
	if err != nil {
		t.Fatal(err)
	}
	if count >= db.DefaultWarnThreshold {
		t.Fatalf("counter observable at threshold: %d", count)
	}
}

func TestWarningTrackerReset(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tracker := NewWarningTracker(memory.NewClient(), &staticSettings{})

	if _, err := tracker.RecordWarning(ctx, -3, 1); err != nil {
		t.Fatal(err)
	}
	if err := tracker.Reset(ctx, -3, 1); err != nil {
		t.Fatal(err)
	}
	count, err := tracker.GetCount(ctx, -3, 1)
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Fatalf("got %d after reset, want 0", count)
	}
}
