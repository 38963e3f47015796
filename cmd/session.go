package cmd

import (
	"fmt"

	"github.com/cybercompass/compass/internal/output"
	"github.com/cybercompass/compass/internal/session"
	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:     "session",
	Short:   "Show the anonymous session",
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := currentSession()
		if err != nil {
			if jsonMode {
				output.JSONError("no_session", err.Error())
				return nil
			}
			return err
		}
		if jsonMode {
			return output.JSON(sess)
		}
		fmt.Printf("Session: %s\n", sess.ID)
		fmt.Printf("Started: %s\n", sess.StartedAt.Format("2006-01-02 15:04:05"))
		if sess.PreviousSessionID != "" {
			fmt.Printf("Previous: %s\n", sess.PreviousSessionID)
		}
		return nil
	},
}

var sessionNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Rotate to a fresh session",
	Long:  `Starts a new anonymous session. Progress recorded under the old session stays on disk but is no longer the active scope.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := session.ForceNew(getBaseDir())
		if err != nil {
			return err
		}
		if jsonMode {
			return output.JSON(sess)
		}
		output.Success("New session: %s", sess.ID)
		if sess.PreviousSessionID != "" {
			output.Info("previous session was %s", sess.PreviousSessionID)
		}
		return nil
	},
}

func init() {
	sessionCmd.AddCommand(sessionNewCmd)
	rootCmd.AddCommand(sessionCmd)
}
