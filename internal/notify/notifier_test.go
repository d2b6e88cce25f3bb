package notify

import (
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/reelsync/reelsync/internal/model"
	"github.com/reelsync/reelsync/internal/store"
)

func testConfig() *Config {
	return &Config{
		PollInterval:     25 * time.Millisecond,
		DebounceInterval: 10 * time.Millisecond,
		Logger:           log.New(os.Stderr, "[test] ", 0),
	}
}

func waitForChange(t *testing.T, ch <-chan Change) Change {
	t.Helper()
	select {
	case c, ok := <-ch:
		if !ok {
			t.Fatal("change channel closed unexpectedly")
		}
		return c
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a change notification")
	}
	return Change{}
}

func TestNotifiesOnOwnWrite(t *testing.T) {
	st := store.New(store.NewMemory(), log.New(os.Stderr, "[test] ", 0))
	defer st.Close()

	n, err := New(st, "", testConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ch := n.Subscribe()
	if err := n.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer n.Stop()

	if err := st.SetMood("cozy", nil); err != nil {
		t.Fatalf("mutation failed: %v", err)
	}
	change := waitForChange(t, ch)
	if change.Revision == 0 {
		t.Errorf("expected a nonzero revision, got %d", change.Revision)
	}
}

func TestNotifiesOnForeignWrite(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	logger := log.New(os.Stderr, "[test] ", 0)

	reader := store.Open(dbPath, logger)
	defer reader.Close()
	if !reader.Durable() {
		t.Skip("sqlite unavailable in this environment")
	}

	n, err := New(reader, dbPath, testConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ch := n.Subscribe()
	if err := n.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer n.Stop()

	// A second store over the same database stands in for another process.
	writer := store.Open(dbPath, logger)
	defer writer.Close()
	if err := writer.AddToWatchlist(model.MovieRef{ID: 550, Title: "Fight Club"}); err != nil {
		t.Fatalf("foreign write failed: %v", err)
	}

	waitForChange(t, ch)
	if !reader.GetAll().InWatchlist(550) {
		t.Error("reader does not see the foreign write after notification")
	}
}

func TestNoNotificationWithoutChange(t *testing.T) {
	st := store.New(store.NewMemory(), log.New(os.Stderr, "[test] ", 0))
	defer st.Close()

	n, err := New(st, "", testConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ch := n.Subscribe()
	if err := n.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer n.Stop()

	select {
	case c := <-ch:
		t.Errorf("unexpected notification: %+v", c)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSlowSubscriberGetsLatestRevision(t *testing.T) {
	st := store.New(store.NewMemory(), log.New(os.Stderr, "[test] ", 0))
	defer st.Close()

	n, err := New(st, "", testConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ch := n.Subscribe()
	if err := n.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer n.Stop()

	// Far more writes than the channel buffers; the subscriber never reads
	// until the end.
	for i := 1; i <= 50; i++ {
		if err := st.AddToViewHistory(i); err != nil {
			t.Fatalf("write %d failed: %v", i, err)
		}
		time.Sleep(2 * time.Millisecond)
	}
	final, err := st.Revision()
	if err != nil {
		t.Fatalf("revision failed: %v", err)
	}
	// Wait out one more poll cycle so the final revision is observed.
	time.Sleep(100 * time.Millisecond)

	var last Change
	for {
		select {
		case c := <-ch:
			last = c
			continue
		default:
		}
		break
	}
	if last.Revision != final {
		t.Errorf("expected latest revision %d to arrive, got %d", final, last.Revision)
	}
}

func TestStopClosesSubscribers(t *testing.T) {
	st := store.New(store.NewMemory(), log.New(os.Stderr, "[test] ", 0))
	defer st.Close()

	n, err := New(st, "", testConfig())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ch := n.Subscribe()
	if err := n.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := n.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected channel to be closed without a value")
		}
	case <-time.After(time.Second):
		t.Error("channel not closed after Stop")
	}
}
