// Package syncer drains the local sync queue against the progress server.
//
// The processor is an explicitly constructed component: it owns its ticker
// and trigger channel, and Close tears both down. External stimuli (tick,
// connectivity regained, foreground regained, new item enqueued) all arrive
// through a single trigger port, keeping the drain algorithm independent of
// where the stimuli come from.
package syncer

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cybercompass/compass/internal/broadcast"
	"github.com/cybercompass/compass/internal/models"
	"github.com/cybercompass/compass/internal/syncclient"
)

// Trigger identifies the stimulus that requested a drain pass.
type Trigger int

const (
	// TriggerTick is the periodic timer.
	TriggerTick Trigger = iota
	// TriggerOnline fires when network connectivity is regained.
	TriggerOnline
	// TriggerVisible fires when the client regains foreground attention.
	TriggerVisible
	// TriggerEnqueue fires shortly after a new item is queued (debounced).
	TriggerEnqueue
)

func (t Trigger) String() string {
	switch t {
	case TriggerTick:
		return "tick"
	case TriggerOnline:
		return "online"
	case TriggerVisible:
		return "visible"
	case TriggerEnqueue:
		return "enqueue"
	}
	return "unknown"
}

// Queue is the slice of the local store the processor needs.
type Queue interface {
	PendingSyncItems() ([]models.SyncQueueItem, error)
	RemoveSyncItem(id int64) error
	IncrementRetryCount(id int64) (int, error)
}

// Remote is the slice of the progress API the processor needs.
type Remote interface {
	SubmitAnonymous(req *syncclient.SubmitRequest) (*syncclient.ProgressResponse, error)
	SendBeacon(items []syncclient.BeaconItem) error
}

// Options tunes the processor. Zero values get defaults.
type Options struct {
	Interval    time.Duration // periodic drain tick, default 30s
	Debounce    time.Duration // delay after TriggerEnqueue, default 500ms
	MaxRetries  int           // retry ceiling, default 3
	BeaconLimit int           // flush batch bound, default 5
}

func (o Options) withDefaults() Options {
	if o.Interval <= 0 {
		o.Interval = 30 * time.Second
	}
	if o.Debounce <= 0 {
		o.Debounce = 500 * time.Millisecond
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = 3
	}
	if o.BeaconLimit <= 0 {
		o.BeaconLimit = 5
	}
	return o
}

// Result summarises one drain pass.
type Result struct {
	Delivered int  // confirmed by the server and removed from the queue
	Retried   int  // failed, left queued for the next pass
	Dropped   int  // failed past the retry ceiling, removed permanently
	Skipped   bool // a pass was already in flight
}

// Processor reconciles the local queue with the remote API.
type Processor struct {
	queue  Queue
	remote Remote
	hub    *broadcast.Hub
	opts   Options

	inFlight  atomic.Bool
	triggers  chan Trigger
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New constructs a processor. The hub may be nil when no one listens.
func New(queue Queue, remote Remote, hub *broadcast.Hub, opts Options) *Processor {
	return &Processor{
		queue:    queue,
		remote:   remote,
		hub:      hub,
		opts:     opts.withDefaults(),
		triggers: make(chan Trigger, 8),
		done:     make(chan struct{}),
	}
}

// Start launches the background drain loop (non-blocking).
func (p *Processor) Start() {
	p.wg.Add(1)
	go p.run()
}

// Notify delivers an external stimulus through the trigger port. It never
// blocks; stimuli arriving faster than the loop consumes them coalesce.
func (p *Processor) Notify(t Trigger) {
	select {
	case p.triggers <- t:
	default:
	}
}

// Close stops the drain loop and waits for an in-flight pass to finish.
// The final Flush, if wanted, is the caller's responsibility.
func (p *Processor) Close() {
	p.closeOnce.Do(func() {
		close(p.done)
	})
	p.wg.Wait()
}

// run is the drain loop: a periodic tick plus debounced trigger handling.
func (p *Processor) run() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.opts.Interval)
	defer ticker.Stop()

	var debounce *time.Timer
	var debounceC <-chan time.Time

	for {
		select {
		case <-p.done:
			if debounce != nil {
				debounce.Stop()
			}
			return
		case <-ticker.C:
			p.process(TriggerTick)
		case <-debounceC:
			debounceC = nil
			p.process(TriggerEnqueue)
		case t := <-p.triggers:
			if t == TriggerEnqueue {
				// Debounce bursts of enqueues into one pass
				if debounce == nil {
					debounce = time.NewTimer(p.opts.Debounce)
				} else {
					debounce.Stop()
					debounce.Reset(p.opts.Debounce)
				}
				debounceC = debounce.C
				continue
			}
			p.process(t)
		}
	}
}

func (p *Processor) process(t Trigger) {
	res, err := p.Process()
	if err != nil {
		slog.Debug("sync pass", "trigger", t.String(), "err", err)
		return
	}
	if res.Delivered > 0 || res.Dropped > 0 {
		slog.Debug("sync pass", "trigger", t.String(),
			"delivered", res.Delivered, "retried", res.Retried, "dropped", res.Dropped)
	}
}

// Process runs one drain pass. A call while another pass is active is a
// no-op. Items queued during the pass are picked up on the next trigger.
func (p *Processor) Process() (Result, error) {
	if !p.inFlight.CompareAndSwap(false, true) {
		return Result{Skipped: true}, nil
	}
	defer p.inFlight.Store(false)

	items, err := p.queue.PendingSyncItems()
	if err != nil {
		return Result{}, fmt.Errorf("get pending items: %w", err)
	}
	if len(items) == 0 {
		return Result{}, nil
	}

	p.publishStatus(true)
	defer p.publishStatus(false)

	var res Result
	for _, item := range items {
		if err := p.submit(item); err != nil {
			count, cerr := p.queue.IncrementRetryCount(item.ID)
			if cerr != nil {
				slog.Warn("increment retry count", "id", item.ID, "err", cerr)
				continue
			}
			if count > p.opts.MaxRetries {
				// Permanent, unrecovered data loss past the ceiling
				if rerr := p.queue.RemoveSyncItem(item.ID); rerr != nil {
					slog.Warn("drop sync item", "id", item.ID, "err", rerr)
					continue
				}
				slog.Warn("dropping sync item after retry ceiling",
					"id", item.ID, "challenge", item.ChallengeID, "retries", count, "err", err)
				res.Dropped++
				continue
			}
			slog.Debug("sync item failed, will retry", "id", item.ID, "retries", count, "err", err)
			res.Retried++
			continue
		}

		if err := p.queue.RemoveSyncItem(item.ID); err != nil {
			return res, fmt.Errorf("remove delivered item %d: %w", item.ID, err)
		}
		res.Delivered++

		if p.hub != nil {
			p.hub.Publish(broadcast.Message{
				Type:        broadcast.TypeProgressUpdate,
				ChallengeID: item.ChallengeID,
				SessionID:   item.SessionID,
			})
		}
	}

	return res, nil
}

// submit delivers one queue item to the remote upsert endpoint.
func (p *Processor) submit(item models.SyncQueueItem) error {
	_, err := p.remote.SubmitAnonymous(&syncclient.SubmitRequest{
		SessionID:        item.SessionID,
		ChallengeID:      item.ChallengeID,
		SelectedOptionID: item.SelectedOptionID,
		IsCompleted:      item.IsCompleted,
	})
	return err
}

// Flush sends a bounded prefix of the pending queue as one fire-and-forget
// beacon. Items stay queued: no response is processed, and the server-side
// upsert makes duplicate delivery safe. Returns the number of items sent.
func (p *Processor) Flush() (int, error) {
	items, err := p.queue.PendingSyncItems()
	if err != nil {
		return 0, fmt.Errorf("get pending items: %w", err)
	}
	if len(items) == 0 {
		return 0, nil
	}
	if len(items) > p.opts.BeaconLimit {
		items = items[:p.opts.BeaconLimit]
	}

	batch := make([]syncclient.BeaconItem, len(items))
	for i, item := range items {
		batch[i] = syncclient.BeaconItem{
			Action:           string(item.Action),
			SessionID:        item.SessionID,
			ChallengeID:      item.ChallengeID,
			SelectedOptionID: item.SelectedOptionID,
			IsCompleted:      item.IsCompleted,
			Timestamp:        item.Timestamp.UTC().Format(time.RFC3339Nano),
		}
	}

	if err := p.remote.SendBeacon(batch); err != nil {
		// Fire-and-forget: log and move on, no retry
		slog.Debug("beacon send", "items", len(batch), "err", err)
	}
	return len(batch), nil
}

func (p *Processor) publishStatus(syncing bool) {
	if p.hub == nil {
		return
	}
	payload := `{"syncing":false}`
	if syncing {
		payload = `{"syncing":true}`
	}
	p.hub.Publish(broadcast.Message{
		Type:    broadcast.TypeSyncStatusChange,
		Payload: []byte(payload),
	})
}
