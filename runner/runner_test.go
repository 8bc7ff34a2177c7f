package runner

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhcgn/mht-to-html/config"
	"github.com/dhcgn/mht-to-html/model"
	"github.com/dhcgn/mht-to-html/state"
	"github.com/dhcgn/mht-to-html/stats"
)

// feed registers a source stage that sends envs and a sink stage that
// records what the bridge forwarded.
func feed(r *Runner, envs ...model.Envelope) *[]string {
	var mu sync.Mutex
	var forwarded []string

	r.AddStage("test-source", func(ctx context.Context) error {
		defer r.CloseDocuments()
		for _, env := range envs {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case r.DocumentWriter() <- env:
			}
		}
		return nil
	})
	r.AddStage("test-sink", func(ctx context.Context) error {
		for doc := range r.Conversions() {
			mu.Lock()
			forwarded = append(forwarded, doc.Path)
			mu.Unlock()
		}
		return nil
	})
	return &forwarded
}

func doc(path, hash string) model.Envelope {
	return model.Envelope{Document: model.Document{Path: path, Hash: hash}}
}

func TestRunner_ForwardsAndSkipsConverted(t *testing.T) {
	tracker := state.NewMemoryTracker()
	require.NoError(t, tracker.MarkProcessed("h2", "b_cleaned.html"))

	r := NewWithTracker(config.Config{SkipConverted: true}, nil, tracker)
	reporter := stats.NewReporter(r, nil)
	forwarded := feed(r, doc("a.mht", "h1"), doc("b.mht", "h2"), doc("c.mht", "h3"))

	require.NoError(t, r.Start())

	assert.Equal(t, []string{"a.mht", "c.mht"}, *forwarded)
	summary := reporter.Summary()
	assert.Equal(t, 3, summary.Scanned)
	assert.Equal(t, 2, summary.Enqueued)
	assert.Equal(t, 1, summary.Duplicates)
}

func TestRunner_ReconvertsWithoutSkip(t *testing.T) {
	tracker := state.NewMemoryTracker()
	require.NoError(t, tracker.MarkProcessed("h1", "a_cleaned.html"))

	r := NewWithTracker(config.Config{}, nil, tracker)
	forwarded := feed(r, doc("a.mht", "h1"))

	require.NoError(t, r.Start())
	assert.Equal(t, []string{"a.mht"}, *forwarded)
}

func TestRunner_SourceErrors(t *testing.T) {
	readErr := errors.New("permission denied")

	t.Run("keep going", func(t *testing.T) {
		r := NewWithTracker(config.Config{ContinueOnError: true}, nil, state.NewMemoryTracker())
		reporter := stats.NewReporter(r, nil)
		forwarded := feed(r,
			model.Envelope{Document: model.Document{Path: "broken.mht"}, Err: readErr},
			doc("ok.mht", "h1"),
		)

		require.NoError(t, r.Start())
		assert.Equal(t, []string{"ok.mht"}, *forwarded)
		assert.Equal(t, 1, reporter.Summary().Errors)
	})

	t.Run("stop", func(t *testing.T) {
		r := NewWithTracker(config.Config{}, nil, state.NewMemoryTracker())
		feed(r, model.Envelope{Document: model.Document{Path: "broken.mht"}, Err: readErr})

		err := r.Start()
		assert.ErrorIs(t, err, readErr)
	})
}

func TestRunner_MissingHash(t *testing.T) {
	r := NewWithTracker(config.Config{}, nil, state.NewMemoryTracker())
	feed(r, doc("nohash.mht", ""))

	err := r.Start()
	assert.ErrorIs(t, err, ErrHashMissing)
}

type closingTracker struct {
	*state.MemoryTracker
	closed bool
}

func (c *closingTracker) Close() error {
	c.closed = true
	return nil
}

func TestRunner_ClosesTracker(t *testing.T) {
	tracker := &closingTracker{MemoryTracker: state.NewMemoryTracker()}
	r := NewWithTracker(config.Config{}, nil, tracker)
	feed(r)

	require.NoError(t, r.Start())
	assert.True(t, tracker.closed)
}
