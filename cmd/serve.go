package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dhcgn/mht-to-html/config"
	"github.com/dhcgn/mht-to-html/logging"
	"github.com/dhcgn/mht-to-html/server"
)

// newServeCmd builds the serve command. Flag defaults read the environment,
// so it must run after config.LoadEnv.
func newServeCmd() *cobra.Command {
	var (
		addr     string
		maxMB    int64
		logLevel string
	)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve an upload form that converts archives in the browser's download",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			level := config.NormalizeLogLevel(logLevel)
			if err := config.ValidateLogLevel(level); err != nil {
				return err
			}

			logger, cleanup, err := logging.Setup(level, "", os.Stdout)
			if err != nil {
				return err
			}
			defer func() {
				_ = cleanup()
			}()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := server.New(server.Options{Addr: addr, MaxUploadBytes: maxMB << 20}, logger)
			return srv.Run(ctx)
		},
	}

	serveCmd.Flags().StringVar(&addr, "addr", config.ServeAddr(), "Listen address")
	serveCmd.Flags().Int64Var(&maxMB, "max-upload-mb", server.DefaultMaxUploadBytes>>20, "Maximum accepted archive size in MiB")
	serveCmd.Flags().StringVar(&logLevel, "log-level", config.DefaultLogLevel(), "Logging level: debug, info, warn, error")
	return serveCmd
}

// Register attaches the subcommands to the root command. Call it after
// config.LoadEnv.
func Register(root *cobra.Command) {
	root.AddCommand(inspectCmd, newServeCmd())
}
