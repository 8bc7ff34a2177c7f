package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/dhcgn/mht-to-html/config"
	"github.com/dhcgn/mht-to-html/model"
	"github.com/dhcgn/mht-to-html/state"
	"github.com/dhcgn/mht-to-html/stats"
)

var ErrHashMissing = errors.New("document missing content hash")

type StageFunc func(context.Context) error

type stage struct {
	name string
	fn   StageFunc
}

type subscriber struct {
	name   string
	fn     func(context.Context, <-chan stats.Event) error
	events chan stats.Event
}

// Runner wires the source, bridge and conversion stages together. Stages and
// stats subscribers are registered first and launched by Start.
type Runner struct {
	cfg    config.Config
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	documents   chan model.Envelope
	conversions chan model.Document

	stages      []stage
	subscribers []*subscriber

	tracker state.Tracker

	workWG  sync.WaitGroup
	statsWG sync.WaitGroup

	errMu sync.Mutex
	err   error

	closeDocumentsOnce   sync.Once
	closeConversionsOnce sync.Once
	closeEventsOnce      sync.Once
	since                time.Time
}

// New creates a runner backed by a file tracker in cfg.StateDir.
func New(cfg config.Config, logger *slog.Logger) (*Runner, error) {
	tracker, err := state.NewFileTracker(cfg.StateDir, !cfg.DryRun && cfg.SkipConverted)
	if err != nil {
		return nil, fmt.Errorf("state tracker: %w", err)
	}
	r := NewWithTracker(cfg, logger, tracker)
	r.logger.Debug("state tracker ready", "path", tracker.Path(), "processed", tracker.Snapshot().Processed)
	return r, nil
}

// NewWithTracker creates a runner using the given tracker.
func NewWithTracker(cfg config.Config, logger *slog.Logger, tracker state.Tracker) *Runner {
	ctx, cancel := context.WithCancel(context.Background())
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	r := &Runner{
		cfg:         cfg,
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
		documents:   make(chan model.Envelope, 8),
		conversions: make(chan model.Document, 8),
		tracker:     tracker,
	}

	r.AddStage("bridge", r.bridge)
	return r
}

func (r *Runner) Tracker() state.Tracker {
	return r.tracker
}

func (r *Runner) DocumentWriter() chan<- model.Envelope {
	return r.documents
}

func (r *Runner) CloseDocuments() {
	r.closeDocumentsOnce.Do(func() {
		close(r.documents)
	})
}

func (r *Runner) Conversions() <-chan model.Document {
	return r.conversions
}

// EmitEvent delivers evt to every stats subscriber.
func (r *Runner) EmitEvent(evt stats.Event) {
	for _, sub := range r.subscribers {
		select {
		case <-r.ctx.Done():
			return
		case sub.events <- evt:
		}
	}
}

func (r *Runner) SubscribeStats(name string, fn func(context.Context, <-chan stats.Event) error) {
	r.subscribers = append(r.subscribers, &subscriber{
		name:   name,
		fn:     fn,
		events: make(chan stats.Event, 128),
	})
}

func (r *Runner) AddStage(name string, fn StageFunc) {
	r.stages = append(r.stages, stage{name: name, fn: fn})
}

// Start launches all subscribers and stages and blocks until every stage has
// returned. It reports the first stage failure.
func (r *Runner) Start() error {
	r.since = time.Now()

	for _, sub := range r.subscribers {
		r.statsWG.Add(1)
		go func(sub *subscriber) {
			defer r.statsWG.Done()
			if err := sub.fn(r.ctx, sub.events); err != nil && !errors.Is(err, context.Canceled) {
				r.fail(fmt.Errorf("%s stats: %w", sub.name, err))
			}
		}(sub)
	}

	for _, st := range r.stages {
		r.workWG.Add(1)
		go func(st stage) {
			defer r.workWG.Done()
			if err := st.fn(r.ctx); err != nil && !errors.Is(err, context.Canceled) {
				r.fail(fmt.Errorf("%s stage: %w", st.name, err))
			}
		}(st)
	}

	r.workWG.Wait()
	r.closeEvents()
	r.statsWG.Wait()

	r.cancel()

	if closer, ok := r.tracker.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			r.fail(fmt.Errorf("close state: %w", err))
		}
	}

	r.errMu.Lock()
	err := r.err
	r.errMu.Unlock()

	duration := time.Since(r.since)
	if err != nil {
		r.logger.Error("pipeline failed", "duration", duration, "err", err)
		return err
	}

	r.logger.Info("pipeline completed", "duration", duration)
	return nil
}

func (r *Runner) bridge(ctx context.Context) error {
	defer r.closeConversions()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case envelope, ok := <-r.documents:
			if !ok {
				return nil
			}

			if envelope.Err != nil {
				r.EmitEvent(stats.Event{Stage: stats.StageSource, Type: stats.EventTypeError, Path: envelope.Document.Path, Err: envelope.Err})
				if r.cfg.ContinueOnError {
					r.logger.Warn("skipping unreadable archive", "path", envelope.Document.Path, "err", envelope.Err)
					continue
				}
				r.fail(fmt.Errorf("source envelope: %w", envelope.Err))
				continue
			}

			doc := envelope.Document
			r.EmitEvent(stats.Event{Stage: stats.StageSource, Type: stats.EventTypeScanned, Path: doc.Path})

			if doc.Hash == "" {
				err := fmt.Errorf("%s: %w", doc.Path, ErrHashMissing)
				r.EmitEvent(stats.Event{Stage: stats.StageSource, Type: stats.EventTypeError, Path: doc.Path, Err: err})
				r.fail(err)
				continue
			}

			if r.cfg.SkipConverted {
				if output, done := r.tracker.Output(doc.Hash); done {
					r.EmitEvent(stats.Event{Stage: stats.StageSource, Type: stats.EventTypeDuplicate, Path: doc.Path, Detail: output})
					r.logger.Debug("archive already converted", "path", doc.Path, "output", output)
					continue
				}
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			case r.conversions <- doc:
				r.EmitEvent(stats.Event{Stage: stats.StageSource, Type: stats.EventTypeEnqueued, Path: doc.Path})
			}
		}
	}
}

func (r *Runner) closeConversions() {
	r.closeConversionsOnce.Do(func() {
		close(r.conversions)
	})
}

func (r *Runner) closeEvents() {
	r.closeEventsOnce.Do(func() {
		for _, sub := range r.subscribers {
			close(sub.events)
		}
	})
}

func (r *Runner) fail(err error) {
	if err == nil {
		return
	}
	r.errMu.Lock()
	if r.err == nil {
		r.err = err
		r.cancel()
	}
	r.errMu.Unlock()
}
