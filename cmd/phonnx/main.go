package main

import (
	"os"

	"github.com/beastbyte/phonnx/cmd"
)

func main() {
	rootCmd := cmd.NewRootCommand()

	rootCmd.AddCommand(cmd.NewNamesCommand())
	rootCmd.AddCommand(cmd.NewPathCommand())
	rootCmd.AddCommand(cmd.NewCompleteCommand())
	rootCmd.AddCommand(cmd.NewEmbedCommand())
	rootCmd.AddCommand(cmd.NewVersionCommand())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
