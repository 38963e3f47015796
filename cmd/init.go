package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cybercompass/compass/internal/output"
	"github.com/cybercompass/compass/internal/session"
	"github.com/cybercompass/compass/internal/store"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:     "init",
	Short:   "Initialize a compass workspace",
	Long:    `Creates the local .compass directory, progress store, and anonymous session.`,
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		baseDir := getBaseDir()

		if _, err := os.Stat(filepath.Join(baseDir, ".compass")); err == nil {
			output.Warning(".compass/ already exists")
			if sess, err := session.Get(baseDir); err == nil {
				fmt.Printf("Session: %s\n", sess.ID)
				return nil
			}
		}

		st, err := store.Open(baseDir)
		if err != nil {
			output.Error("failed to initialize store: %v", err)
			return err
		}
		defer st.Close()

		fmt.Println("INITIALIZED .compass/")
		fmt.Printf("Storage: %s\n", st.Kind())

		sess, err := session.GetOrCreate(baseDir)
		if err != nil {
			output.Error("failed to create session: %v", err)
			return err
		}

		fmt.Printf("Session: %s\n", sess.ID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
