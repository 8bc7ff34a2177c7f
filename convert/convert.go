package convert

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/dhcgn/mht-to-html/mht"
	"github.com/dhcgn/mht-to-html/model"
	"github.com/dhcgn/mht-to-html/runner"
	"github.com/dhcgn/mht-to-html/sink"
	"github.com/dhcgn/mht-to-html/state"
	"github.com/dhcgn/mht-to-html/stats"
)

type Options struct {
	Workers         int
	DryRun          bool
	ContinueOnError bool
}

// Converter consumes documents from the runner, converts them and hands the
// result to a sink.
type Converter struct {
	opts        Options
	runner      *runner.Runner
	tracker     state.Tracker
	conversions <-chan model.Document
	sink        sink.Sink
	logger      *slog.Logger
}

func NewConverter(opts Options, r *runner.Runner, s sink.Sink, logger *slog.Logger) (*Converter, error) {
	if opts.Workers <= 0 {
		return nil, fmt.Errorf("workers must be positive")
	}
	if s == nil && !opts.DryRun {
		return nil, fmt.Errorf("sink must not be nil")
	}
	tracker := r.Tracker()
	if tracker == nil {
		return nil, fmt.Errorf("tracker must not be nil")
	}
	c := &Converter{
		opts:        opts,
		runner:      r,
		tracker:     tracker,
		conversions: r.Conversions(),
		sink:        s,
		logger:      logger,
	}
	r.AddStage("convert", c.run)
	return c, nil
}

func (c *Converter) run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < c.opts.Workers; i++ {
		g.Go(func() error {
			return c.work(gctx)
		})
	}
	return g.Wait()
}

func (c *Converter) work(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case doc, ok := <-c.conversions:
			if !ok {
				return nil
			}
			if err := c.process(ctx, doc); err != nil {
				c.runner.EmitEvent(stats.Event{Stage: stats.StageConvert, Type: stats.EventTypeError, Path: doc.Path, Err: err})
				if c.opts.ContinueOnError {
					if c.logger != nil {
						c.logger.Warn("conversion failed", "path", doc.Path, "err", err)
					}
					continue
				}
				return err
			}
		}
	}
}

func (c *Converter) process(ctx context.Context, doc model.Document) error {
	res, err := mht.Convert(string(doc.Raw), doc.Path)
	if err != nil {
		return fmt.Errorf("convert %s: %w", doc.Path, err)
	}
	conv := model.Conversion{Document: doc, Result: res}

	if c.opts.DryRun {
		if err := c.tracker.MarkProcessed(doc.Hash, res.FileName); err != nil {
			return err
		}
		c.runner.EmitEvent(stats.Event{Stage: stats.StageConvert, Type: stats.EventTypeDryRunConverted, Path: doc.Path, Detail: res.FileName, Images: res.Report.Images.Inlined})
		c.log("dry-run conversion", conv)
		return nil
	}

	if err := c.sink.Deliver(ctx, res.HTML, res.FileName, res.MIMEType); err != nil {
		return fmt.Errorf("deliver %s: %w", res.FileName, err)
	}

	target := res.FileName
	if loc, ok := c.sink.(sink.Locator); ok {
		target = loc.Target(res.FileName)
	}
	if err := c.tracker.MarkProcessed(doc.Hash, target); err != nil {
		return err
	}

	c.runner.EmitEvent(stats.Event{Stage: stats.StageConvert, Type: stats.EventTypeConverted, Path: doc.Path, Detail: target, Images: res.Report.Images.Inlined})
	c.log("converted archive", conv)
	return nil
}

func (c *Converter) log(msg string, conv model.Conversion) {
	if c.logger == nil {
		return
	}
	attrs := append([]any{"path", conv.Document.Path, "output", conv.Result.FileName, "bytes", len(conv.Result.HTML)}, conv.Result.Report.LogAttrs()...)
	c.logger.Debug(msg, attrs...)
	if r := conv.Result.Report.Images; r.Untouched > 0 || r.Dropped > 0 {
		c.logger.Warn("image count mismatch", "path", conv.Document.Path, "parts", r.Parts, "attributes", r.Attributes, "untouched", r.Untouched, "dropped", r.Dropped)
	}
}
