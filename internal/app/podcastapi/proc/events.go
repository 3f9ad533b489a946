package proc

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"podcastapi/internal/app/podcastapi/podcast"
)

// Event is a named domain event
type Event interface {
	Name() string
}

// Listener handles a published event
type Listener func(ctx context.Context, ev Event) error

// Dispatcher delivers events to listeners in background. Failed listeners are logged, not retried.
type Dispatcher struct {
	Timeout time.Duration

	mu        sync.RWMutex
	listeners map[string][]Listener
	closed    bool
	wg        sync.WaitGroup
}

// NewDispatcher makes dispatcher, timeout limits a single delivery
func NewDispatcher(timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Dispatcher{Timeout: timeout, listeners: map[string][]Listener{}}
}

// Subscribe adds listener for event name
func (d *Dispatcher) Subscribe(name string, l Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners[name] = append(d.listeners[name], l)
}

// Publish hands ev to its listeners and returns immediately
func (d *Dispatcher) Publish(ev Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		log.Printf("[WARN] dispatcher closed, %s dropped", ev.Name())
		return
	}
	listeners := append([]Listener(nil), d.listeners[ev.Name()]...)
	if len(listeners) == 0 {
		log.Printf("[DEBUG] no listeners for %s", ev.Name())
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.deliver(ev, listeners)
	}()
}

func (d *Dispatcher) deliver(ev Event, listeners []Listener) {
	ctx, cancel := context.WithTimeout(context.Background(), d.Timeout)
	defer cancel()

	var g errgroup.Group
	for _, l := range listeners {
		g.Go(func() error { return l(ctx, ev) })
	}
	if err := g.Wait(); err != nil {
		log.Printf("[WARN] %s listener failed, %v", ev.Name(), err)
	}
}

// Close stops accepting events and waits for deliveries in flight
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// DownloadRecorder writes one download log entry per EpisodeDownloadedEvent
type DownloadRecorder struct {
	Storage *SQLStore
}

// Handle is the Listener of EpisodeDownloadedEvent
func (r *DownloadRecorder) Handle(ctx context.Context, ev Event) error {
	e, ok := ev.(podcast.EpisodeDownloadedEvent)
	if !ok {
		return fmt.Errorf("unexpected event %T", ev)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("event id: %w", err)
	}

	d := &podcast.EpisodeDownloaded{
		EventID:    id.String(),
		EpisodeID:  e.EpisodeID,
		PodcastID:  e.PodcastID,
		OccurredAt: e.OccurredAt,
	}
	if err := r.Storage.SaveDownload(ctx, d); err != nil {
		return err
	}
	log.Printf("[DEBUG] download %s of episode %d recorded", d.EventID, d.EpisodeID)
	return nil
}
