// Package notify propagates local store changes to other open contexts.
//
// Two signals feed the notifier: a filesystem watch on the store's
// database files (the platform's storage-change signal; it fires when a
// foreign process writes) and a fixed-interval revision poll. The poll is
// the correctness backstop: it also covers the same-process case, where
// a writer does not receive its own file events in time, guaranteeing
// read-your-own-writes for components that read the aggregate
// independently of the mutator call path.
//
// Delivery is at-least-once and best-effort: duplicate notifications are
// allowed and subscribers that fall behind miss intermediate revisions,
// never the latest one.
package notify

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	gosync "sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/reelsync/reelsync/internal/store"
)

// Change describes a detected store change.
type Change struct {
	// Revision is the store revision observed after the change.
	Revision int64
	// At is when the change was detected (not when it was written).
	At time.Time
}

// Config holds notifier tuning.
type Config struct {
	// PollInterval is the backstop reconciliation interval.
	PollInterval time.Duration

	// DebounceInterval batches rapid file events together.
	DebounceInterval time.Duration

	// Logger for notifier activity.
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		PollInterval:     2 * time.Second,
		DebounceInterval: 100 * time.Millisecond,
		Logger:           log.New(os.Stderr, "[notify] ", log.LstdFlags),
	}
}

// Notifier watches the store for changes and fans them out to
// subscribers.
type Notifier struct {
	store  *store.Store
	dbPath string // empty disables the filesystem watch (in-memory store)
	config *Config

	watcher *fsnotify.Watcher

	mu          gosync.Mutex
	subscribers []chan Change
	lastRev     int64
	pending     bool // a file event arrived, revision check due
	pendingAt   time.Time
	running     bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     gosync.WaitGroup
}

// New creates a notifier over the given store. dbPath is the SQLite
// database file whose directory is watched; pass "" for in-memory stores,
// which disables the filesystem signal and leaves only the poll.
func New(st *store.Store, dbPath string, config *Config) (*Notifier, error) {
	if st == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.Logger == nil {
		config.Logger = log.New(os.Stderr, "[notify] ", log.LstdFlags)
	}

	ctx, cancel := context.WithCancel(context.Background())
	n := &Notifier{
		store:  st,
		dbPath: dbPath,
		config: config,
		ctx:    ctx,
		cancel: cancel,
	}

	if dbPath != "" {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			cancel()
			return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
		}
		n.watcher = watcher
	}

	return n, nil
}

// Start begins watching and polling. It returns immediately; use Stop to
// shut down.
func (n *Notifier) Start() error {
	n.mu.Lock()
	if n.running {
		n.mu.Unlock()
		return fmt.Errorf("notifier already running")
	}
	n.running = true
	rev, err := n.store.Revision()
	if err == nil {
		n.lastRev = rev
	}
	n.mu.Unlock()

	if n.watcher != nil {
		// Watch the directory, not the file: SQLite rotates WAL and
		// journal files next to the database.
		dir := filepath.Dir(n.dbPath)
		if err := n.watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		n.wg.Add(1)
		go n.watchFileEvents()
	}

	n.wg.Add(1)
	go n.pollLoop()

	return nil
}

// Stop shuts the notifier down and closes all subscriber channels.
func (n *Notifier) Stop() error {
	n.mu.Lock()
	if !n.running {
		n.mu.Unlock()
		return nil
	}
	n.running = false
	n.mu.Unlock()

	n.cancel()
	if n.watcher != nil {
		if err := n.watcher.Close(); err != nil {
			return fmt.Errorf("failed to close watcher: %w", err)
		}
	}
	n.wg.Wait()

	n.mu.Lock()
	for _, ch := range n.subscribers {
		close(ch)
	}
	n.subscribers = nil
	n.mu.Unlock()
	return nil
}

// Subscribe returns a channel that receives a Change whenever the store
// revision moves. The channel is buffered; if the subscriber falls behind
// intermediate changes are dropped, the latest always arrives.
func (n *Notifier) Subscribe() <-chan Change {
	ch := make(chan Change, 8)
	n.mu.Lock()
	n.subscribers = append(n.subscribers, ch)
	n.mu.Unlock()
	return ch
}

// watchFileEvents queues a revision check when store files change.
func (n *Notifier) watchFileEvents() {
	defer n.wg.Done()

	base := filepath.Base(n.dbPath)
	for {
		select {
		case <-n.ctx.Done():
			return

		case event, ok := <-n.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove) == 0 {
				continue
			}
			// The database file plus its -wal/-shm siblings.
			if !strings.HasPrefix(filepath.Base(event.Name), base) {
				continue
			}
			n.mu.Lock()
			n.pending = true
			n.pendingAt = time.Now()
			n.mu.Unlock()

		case err, ok := <-n.watcher.Errors:
			if !ok {
				return
			}
			n.config.Logger.Printf("Watcher error: %v", err)
		}
	}
}

// pollLoop runs the debounce check and the periodic backstop poll.
func (n *Notifier) pollLoop() {
	defer n.wg.Done()

	debounce := time.NewTicker(n.config.DebounceInterval)
	defer debounce.Stop()
	poll := time.NewTicker(n.config.PollInterval)
	defer poll.Stop()

	for {
		select {
		case <-n.ctx.Done():
			return

		case <-debounce.C:
			n.mu.Lock()
			due := n.pending && time.Since(n.pendingAt) >= n.config.DebounceInterval
			if due {
				n.pending = false
			}
			n.mu.Unlock()
			if due {
				n.checkRevision()
			}

		case <-poll.C:
			n.checkRevision()
		}
	}
}

// checkRevision compares the store revision against the last observed one
// and notifies subscribers on any movement (including a reset, which
// lowers it).
func (n *Notifier) checkRevision() {
	rev, err := n.store.Revision()
	if err != nil {
		n.config.Logger.Printf("WARNING: failed to read revision: %v", err)
		return
	}

	n.mu.Lock()
	if rev == n.lastRev {
		n.mu.Unlock()
		return
	}
	n.lastRev = rev
	subs := make([]chan Change, len(n.subscribers))
	copy(subs, n.subscribers)
	n.mu.Unlock()

	change := Change{Revision: rev, At: time.Now()}
	for _, ch := range subs {
		select {
		case ch <- change:
		default:
			// Drain one stale change so the latest always lands.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- change:
			default:
			}
		}
	}
}
