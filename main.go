package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dhcgn/mht-to-html/cmd"
	"github.com/dhcgn/mht-to-html/config"
	"github.com/dhcgn/mht-to-html/convert"
	"github.com/dhcgn/mht-to-html/filter"
	"github.com/dhcgn/mht-to-html/logging"
	"github.com/dhcgn/mht-to-html/progress"
	"github.com/dhcgn/mht-to-html/runner"
	"github.com/dhcgn/mht-to-html/sink"
	"github.com/dhcgn/mht-to-html/source"
	"github.com/dhcgn/mht-to-html/stats"
)

func main() {
	config.LoadEnv()

	rootCmd := &cobra.Command{
		Use:   "mht-to-html [archive or directory]...",
		Short: "Convert MHT step recordings into standalone HTML documents",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(cmd, args)
			if err != nil {
				return err
			}

			// stdout carries the document, so logs go elsewhere.
			var console io.Writer = os.Stdout
			if cfg.Stdout {
				console = os.Stderr
			}

			logger, cleanup, err := logging.Setup(cfg.LogLevel, cfg.LogDir, console)
			if err != nil {
				return err
			}
			defer func() {
				_ = cleanup()
			}()

			slog.SetDefault(logger)
			logger.Info("starting mht-to-html", "inputs", len(cfg.Inputs), "outDir", cfg.OutDir, "workers", cfg.Workers, "dryRun", cfg.DryRun)

			return run(cfg, logger)
		},
	}

	if err := config.RegisterFlags(rootCmd); err != nil {
		fmt.Fprintf(os.Stderr, "failed to register CLI flags: %v\n", err)
		os.Exit(1)
	}
	cmd.Register(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	total := 1
	if cfg.Stdout {
		// Several documents on one stream would be concatenated.
		if _, err := source.DiscoverOne(cfg.Inputs, cfg.Recursive); err != nil {
			return fmt.Errorf("--stdout: %w", err)
		}
	} else {
		files, err := source.Discover(cfg.Inputs, cfg.Recursive)
		if err != nil {
			return fmt.Errorf("source.Discover: %w", err)
		}
		total = len(files)
	}

	r, err := runner.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("runner.New: %w", err)
	}
	stats.NewReporter(r, logger)

	if !cfg.Stdout {
		bar := progress.New(total, cfg.LogLevel)
		progress.NewProgressReporter(r, bar, logger)
	}

	sourceOpts := source.Options{
		Paths:     cfg.Inputs,
		Recursive: cfg.Recursive,
		Filter: filter.Options{
			IncludePath:    cfg.IncludePath,
			IncludeContent: cfg.IncludeContent,
			ExcludePath:    cfg.ExcludePath,
			ExcludeContent: cfg.ExcludeContent,
		},
	}

	if _, err := source.NewProducer(sourceOpts, r, logger); err != nil {
		return fmt.Errorf("source.NewProducer: %w", err)
	}

	var out sink.Sink = sink.DirSink{Dir: cfg.OutDir, Overwrite: cfg.Overwrite}
	workers := cfg.Workers
	if cfg.Stdout {
		out = sink.NewWriterSink(os.Stdout)
		workers = 1
	}

	converterOpts := convert.Options{
		Workers:         workers,
		DryRun:          cfg.DryRun,
		ContinueOnError: cfg.ContinueOnError,
	}

	if _, err := convert.NewConverter(converterOpts, r, out, logger); err != nil {
		return fmt.Errorf("convert.NewConverter: %w", err)
	}

	return r.Start()
}
