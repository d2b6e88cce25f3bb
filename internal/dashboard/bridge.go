package dashboard

import (
	"encoding/json"
	"log"
	"time"

	"github.com/reelsync/reelsync/internal/achieve"
	"github.com/reelsync/reelsync/internal/model"
	"github.com/reelsync/reelsync/internal/notify"
	"github.com/reelsync/reelsync/internal/sync"
	"github.com/reelsync/reelsync/internal/views"
)

// Bridge adapts the engine to the dashboard server: it implements Source
// over the orchestrator and pushes a fresh aggregate to the server
// whenever the change notifier fires.
type Bridge struct {
	orch   *sync.Orchestrator
	alog   *achieve.Log // may be nil (in-memory store)
	logger *log.Logger

	done chan struct{}
}

// NewBridge creates a bridge. alog may be nil when no achievement log is
// available; the summary then covers the aggregate only.
func NewBridge(orch *sync.Orchestrator, alog *achieve.Log, logger *log.Logger) *Bridge {
	if logger == nil {
		logger = log.Default()
	}
	return &Bridge{
		orch:   orch,
		alog:   alog,
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Aggregate implements Source.
func (b *Bridge) Aggregate() (json.RawMessage, error) {
	return model.Encode(b.orch.Local().GetAll())
}

// SyncStatus implements Source.
func (b *Bridge) SyncStatus() (json.RawMessage, error) {
	return json.Marshal(b.orch.Status())
}

// Summary implements Source.
func (b *Bridge) Summary() (json.RawMessage, error) {
	var entries []achieve.Entry
	if b.alog != nil {
		var err error
		entries, err = b.alog.Entries()
		if err != nil {
			b.logger.Printf("WARNING: failed to read achievement log: %v", err)
		}
	}
	return json.Marshal(views.Build(b.orch.Local().GetAll(), entries, time.Now()))
}

// Run forwards notifier changes to the server until the change channel
// closes or Stop is called. Call in a goroutine.
func (b *Bridge) Run(changes <-chan notify.Change, server *Server) {
	for {
		select {
		case <-b.done:
			return
		case change, ok := <-changes:
			if !ok {
				return
			}
			agg, err := b.Aggregate()
			if err != nil {
				b.logger.Printf("WARNING: failed to encode aggregate: %v", err)
				continue
			}
			server.Broadcast(Message{
				Type:     MessageTypeAggregate,
				Revision: change.Revision,
				Data:     agg,
			})
			if st, err := b.SyncStatus(); err == nil {
				server.Broadcast(Message{Type: MessageTypeSyncStatus, Data: st})
			}
		}
	}
}

// Stop terminates Run.
func (b *Bridge) Stop() {
	close(b.done)
}
