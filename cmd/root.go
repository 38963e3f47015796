// Package cmd implements the compass CLI commands.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version  string
	baseDir  string
	jsonMode bool
)

// SetVersion sets the version string
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

var rootCmd = &cobra.Command{
	Use:   "compass",
	Short: "Offline-first digital literacy training CLI",
	Long: `compass - Practice spotting catfishing, cyberbullying, deepfakes, and
disinformation. Progress is saved locally first and synced to the server in
the background, so the trainer works offline.`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initBaseDir)

	rootCmd.PersistentFlags().BoolVar(&jsonMode, "json", false, "output as JSON")

	rootCmd.AddGroup(
		&cobra.Group{ID: "core", Title: "Core Commands:"},
		&cobra.Group{ID: "sync", Title: "Sync Commands:"},
		&cobra.Group{ID: "system", Title: "System Commands:"},
	)
	rootCmd.SetHelpCommandGroupID("system")
	rootCmd.SetCompletionCommandGroupID("system")
}

func initBaseDir() {
	if dir := os.Getenv("COMPASS_BASE_DIR"); dir != "" {
		baseDir = dir
		return
	}
	var err error
	baseDir, err = os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot determine working directory: %v\n", err)
		os.Exit(1)
	}
}

// getBaseDir returns the workspace directory holding .compass/
func getBaseDir() string {
	return baseDir
}
