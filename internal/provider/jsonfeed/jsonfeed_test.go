package jsonfeed

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/edusis/campuscal/internal/calendar"
	"github.com/edusis/campuscal/internal/calsync"
)

var august = calendar.DateRange{
	From: calendar.Date{Year: 2024, Month: time.August, Day: 1},
	To:   calendar.Date{Year: 2024, Month: time.August, Day: 31},
}

func writeFeed(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "labs.jsonl")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write feed: %v", err)
	}
	return path
}

func TestListEvents(t *testing.T) {
	path := writeFeed(t, `# lab schedule
{"id":"lab-1","summary":"Networks lab","description":"quiz at the start","start_date":"2024-08-15"}

{"id":"lab-2","summary":"Office hours","start_time":"2024-08-20T10:00:00Z"}
{"id":"lab-3","summary":"Next term","start_date":"2024-09-02"}
{"id":"lab-4","summary":"No start"}
`)
	feed := New(path, time.UTC)

	if err := feed.Authenticate(context.Background()); err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}

	page, err := feed.ListEvents(context.Background(), august, "")
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}

	var ids []string
	for _, r := range page.Records {
		ids = append(ids, r.ID)
	}
	want := []string{"lab-1", "lab-2", "lab-4"}
	if len(ids) != len(want) {
		t.Fatalf("Got records %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("Record %d: got %s, want %s", i, ids[i], want[i])
		}
	}
	if page.NextPageToken != "" {
		t.Errorf("Feed should be a single page, got token %q", page.NextPageToken)
	}
	if page.Records[1].StartTime == nil || page.Records[1].StartTime.Hour() != 10 {
		t.Errorf("Start time not decoded: %v", page.Records[1].StartTime)
	}
}

func TestListEventsMalformed(t *testing.T) {
	path := writeFeed(t, `{"id":"ok","summary":"fine","start_date":"2024-08-15"}
not json
`)
	_, err := New(path, time.UTC).ListEvents(context.Background(), august, "")
	if !errors.Is(err, calsync.ErrMalformed) {
		t.Fatalf("Expected malformed error, got %v", err)
	}
}

func TestMissingFeed(t *testing.T) {
	feed := New(filepath.Join(t.TempDir(), "missing.jsonl"), nil)
	if err := feed.Authenticate(context.Background()); err == nil {
		t.Error("Expected error for a missing feed")
	}
	if feed.Name() != "json:missing.jsonl" {
		t.Errorf("Wrong name: %s", feed.Name())
	}
	if got := feed.WatchPaths(); len(got) != 1 || got[0] != feed.Path {
		t.Errorf("Wrong watch paths: %v", got)
	}
}

func TestFeedThroughAdapter(t *testing.T) {
	path := writeFeed(t, `{"id":"lab-1","summary":"Networks lab","description":"Quiz on chapter 5","start_date":"2024-08-15"}
`)
	store, err := calendar.NewStore()
	if err != nil {
		t.Fatal(err)
	}

	n, err := calsync.NewAdapter(New(path, time.UTC)).SyncNow(context.Background(), august, store)
	if err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("Expected 1 event, got %d", n)
	}
	ev, _ := store.Get("lab-1")
	if ev.Tag != calendar.TagQuiz || ev.Time != calendar.AllDay {
		t.Errorf("Unexpected mapped event: %v", ev)
	}
}
