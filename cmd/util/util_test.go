package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestMustBindPFlag(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("log-format", "text", "")
	MustBindPFlag("util.test.logFormat", flags.Lookup("log-format"))

	require.NoError(t, flags.Parse([]string{"--log-format", "json"}))
	require.Equal(t, "json", viper.GetString("util.test.logFormat"))

	require.Panics(t, func() { MustBindPFlag("util.test.missing", nil) })
}

func TestMustBindEnv(t *testing.T) {
	t.Setenv("PHONNX_UTIL_TEST_LEVEL", "debug")
	MustBindEnv("util.test.level", "PHONNX_UTIL_TEST_LEVEL")
	require.Equal(t, "debug", viper.GetString("util.test.level"))

	require.Panics(t, func() { MustBindEnv() })
}

func TestPrepareTempConfigFile(t *testing.T) {
	PrepareTempConfigFile(t, "log:\n  level: warn\n")

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	raw, err := os.ReadFile(filepath.Join(home, ".phonnx", "config.yaml"))
	require.NoError(t, err)
	require.Equal(t, "log:\n  level: warn\n", string(raw))
}
