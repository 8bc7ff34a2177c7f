package cmd

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhcgn/mht-to-html/config"
)

func TestServeCmd_FlagDefaults(t *testing.T) {
	t.Setenv(config.EnvAddr, "")
	t.Setenv(config.EnvLogLevel, "")

	flags := newServeCmd().Flags()
	assert.Equal(t, config.DefaultAddr, flags.Lookup("addr").DefValue)
	assert.Equal(t, "info", flags.Lookup("log-level").DefValue)
}

func TestServeCmd_FlagDefaultsFromEnv(t *testing.T) {
	t.Setenv(config.EnvAddr, ":9999")
	t.Setenv(config.EnvLogLevel, "debug")

	flags := newServeCmd().Flags()
	assert.Equal(t, ":9999", flags.Lookup("addr").DefValue)
	assert.Equal(t, "debug", flags.Lookup("log-level").DefValue)
}

func TestRegister(t *testing.T) {
	root := &cobra.Command{Use: "mht-to-html"}
	Register(root)

	serve, _, err := root.Find([]string{"serve"})
	require.NoError(t, err)
	assert.Equal(t, "serve", serve.Name())

	inspect, _, err := root.Find([]string{"inspect"})
	require.NoError(t, err)
	assert.Equal(t, "inspect", inspect.Name())
}
