// Package cmd contains all the commands included in the binary file.
package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// NewRootCommand enables all children commands to read flags from CLI flags, environment variables prefixed with PHONNX, or config.yaml (in that order).
func NewRootCommand() *cobra.Command {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetEnvPrefix("PHONNX")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	configPaths := []string{"/etc/phonnx", "$HOME/.phonnx", "."}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	cmd := &cobra.Command{
		Use:   "phonnx",
		Short: "Drive model graphs whose node names describe their own inputs, attributes and stages",
		Long: `Drive model graphs whose node names describe their own inputs, attributes and stages.

phonnx inspects node names, builds and reads the nested JSON documents exchanged with
completion and embedding services, and runs single exchanges against those services.`,
		SilenceUsage: true,
	}

	bindConfigFlags(cmd)

	return cmd
}
