package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var noColor bool

var rootCmd = &cobra.Command{
	Use:     "unqflow",
	Short:   "UnQWorkFlow — social-media content automation dashboard",
	Version: version,
	Long: `unqflow runs the UnQWorkFlow dashboard server and provides a CLI
for queueing AI video generations, tracking their lifecycle, and
managing the connection to the AI Engine.`,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(connectCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(generationsCmd)
	rootCmd.AddCommand(notificationsCmd)
	rootCmd.AddCommand(themeCmd)
	rootCmd.AddCommand(metricsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(dataCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
