// Package events fans domain events out to sinks on background workers.
package events

import (
	"context"
	"sync"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"

	"groupbuy-backend/internal/domain"
)

type Sink interface {
	Send(ev domain.Event) error
}

type Config struct {
	Workers     int
	ChannelSize int
}

// Dispatcher queues events and never blocks the caller. When the queue is
// full the event is dropped and logged. Events are sharded over workers by
// subject, so events about one subject reach the sinks in publish order.
type Dispatcher struct {
	shards []chan domain.Event
	sinks  []Sink
	log    *zap.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(cfg Config, log *zap.Logger, sinks ...Sink) *Dispatcher {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.ChannelSize < 1 {
		cfg.ChannelSize = 256
	}
	if log == nil {
		log = zap.NewNop()
	}
	per := cfg.ChannelSize / cfg.Workers
	if per < 1 {
		per = 1
	}
	d := &Dispatcher{shards: make([]chan domain.Event, cfg.Workers), sinks: sinks, log: log}
	for i := range d.shards {
		d.shards[i] = make(chan domain.Event, per)
		d.wg.Add(1)
		go d.worker(d.shards[i])
	}
	return d
}

func (d *Dispatcher) shard(subject string) chan domain.Event {
	return d.shards[xxhash.Sum64String(subject)%uint64(len(d.shards))]
}

func (d *Dispatcher) Publish(_ context.Context, ev domain.Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}
	select {
	case d.shard(ev.SubjectID) <- ev:
	default:
		d.log.Warn("event queue full, dropping", zap.String("type", ev.Type), zap.String("subject", ev.SubjectID))
	}
}

func (d *Dispatcher) worker(in <-chan domain.Event) {
	defer d.wg.Done()
	for ev := range in {
		for _, s := range d.sinks {
			if err := s.Send(ev); err != nil {
				d.log.Error("event sink failed", zap.String("type", ev.Type), zap.String("subject", ev.SubjectID), zap.Error(err))
			}
		}
	}
}

// Close stops intake and waits until queued events are delivered or ctx
// ends.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		for _, ch := range d.shards {
			close(ch)
		}
	}
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

// LogSink writes events to the application log.
type LogSink struct {
	Log *zap.Logger
}

func (s LogSink) Send(ev domain.Event) error {
	s.Log.Info("event", zap.String("type", ev.Type), zap.String("subject", ev.SubjectID), zap.Time("at", ev.At), zap.Any("data", ev.Data))
	return nil
}
