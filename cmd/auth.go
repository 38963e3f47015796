package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/cybercompass/compass/internal/config"
	"github.com/cybercompass/compass/internal/migrate"
	"github.com/cybercompass/compass/internal/models"
	"github.com/cybercompass/compass/internal/output"
	"github.com/cybercompass/compass/internal/syncclient"
	"github.com/spf13/cobra"
)

var (
	loginAPIKey    string
	loginServer    string
	loginUserID    string
	loginNoMigrate bool
)

var authCmd = &cobra.Command{
	Use:     "auth",
	Short:   "Inspect authentication state",
	GroupID: "sync",
}

var loginCmd = &cobra.Command{
	Use:     "login",
	Short:   "Log in with an API key",
	GroupID: "sync",
	Long: `Verifies the API key against the server and stores it locally. Anonymous
progress recorded before login is migrated to the account shortly after;
progress already on the account is never overwritten.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if loginAPIKey == "" {
			return fmt.Errorf("--api-key is required")
		}

		serverURL := loginServer
		if serverURL == "" {
			serverURL = config.ServerURL()
		}

		deviceID, err := config.DeviceID()
		if err != nil {
			return err
		}

		client := syncclient.New(serverURL, loginAPIKey, deviceID)
		if _, err := client.GetProgress(); err != nil {
			if errors.Is(err, syncclient.ErrUnauthorized) {
				return fmt.Errorf("server rejected the API key")
			}
			return fmt.Errorf("verify key: %w", err)
		}

		if err := config.SaveAuth(&config.AuthCredentials{
			APIKey:    loginAPIKey,
			UserID:    loginUserID,
			ServerURL: serverURL,
			SavedAt:   time.Now().UTC().Format(time.RFC3339),
		}); err != nil {
			return fmt.Errorf("save credentials: %w", err)
		}
		output.Success("Logged in (%s)", serverURL)

		if loginNoMigrate {
			return nil
		}
		return runMigration(client, loginUserID)
	},
}

var logoutCmd = &cobra.Command{
	Use:     "logout",
	Short:   "Remove stored credentials",
	GroupID: "sync",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !config.IsAuthenticated() {
			fmt.Println("Not logged in.")
			return nil
		}
		if err := config.ClearAuth(); err != nil {
			return err
		}
		output.Success("Logged out")
		return nil
	},
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show authentication state",
	RunE: func(cmd *cobra.Command, args []string) error {
		creds, err := config.LoadAuth()
		if err != nil {
			return err
		}
		if creds == nil || creds.APIKey == "" {
			if jsonMode {
				return output.JSON(map[string]any{"authenticated": false})
			}
			fmt.Println("Not logged in.")
			return nil
		}
		if jsonMode {
			return output.JSON(map[string]any{
				"authenticated": true,
				"user_id":       creds.UserID,
				"server_url":    creds.ServerURL,
				"saved_at":      creds.SavedAt,
			})
		}
		fmt.Println("Logged in")
		if creds.UserID != "" {
			fmt.Printf("  user:   %s\n", creds.UserID)
		}
		fmt.Printf("  server: %s\n", creds.ServerURL)
		fmt.Printf("  since:  %s\n", creds.SavedAt)
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:     "migrate",
	Short:   "Migrate anonymous progress to your account",
	Long:    `Re-runs the anonymous-to-account migration. Records already on the account always win; local anonymous progress never overwrites them.`,
	GroupID: "sync",
	RunE: func(cmd *cobra.Command, args []string) error {
		creds, err := config.LoadAuth()
		if err != nil {
			return err
		}
		if creds == nil || creds.APIKey == "" {
			if jsonMode {
				output.JSONError("not_logged_in", "run 'compass login' first")
				return nil
			}
			return fmt.Errorf("not logged in: run 'compass login' first")
		}
		remote, err := newRemote()
		if err != nil {
			return err
		}
		return runMigration(remote, creds.UserID)
	},
}

// runMigration performs the anonymous-to-account migration and reports the
// outcome. Login schedules it with a short settle delay so the credential
// write lands first.
func runMigration(remote *syncclient.Client, userID string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	sess, err := currentSession()
	if err != nil {
		fmt.Println("No local session, nothing to migrate.")
		return nil
	}

	done := make(chan struct{})
	var result *models.MigrationResult
	var runErr error
	migrate.New(st, remote, nil).Schedule(userID, sess.ID, migrate.DefaultSettleDelay,
		func(r *models.MigrationResult, err error) {
			result, runErr = r, err
			close(done)
		})
	<-done

	if runErr != nil {
		if jsonMode {
			output.JSONError("network_error", runErr.Error())
			return nil
		}
		return fmt.Errorf("migrate: %w", runErr)
	}

	if jsonMode {
		return output.JSON(result)
	}
	if result.Total() == 0 {
		fmt.Println("No anonymous progress to migrate.")
		return nil
	}
	output.Success("Migrated %d item(s)", result.Migrated)
	if result.Conflicts > 0 {
		output.Info("%d item(s) skipped: the account already had progress for them", result.Conflicts)
	}
	if result.Failed > 0 {
		output.Warning("%d item(s) failed to migrate", result.Failed)
	}
	return nil
}

func init() {
	loginCmd.Flags().StringVar(&loginAPIKey, "api-key", "", "API key issued by the server")
	loginCmd.Flags().StringVar(&loginServer, "server", "", "server URL (defaults to configured server)")
	loginCmd.Flags().StringVar(&loginUserID, "user-id", "", "account user ID (informational)")
	loginCmd.Flags().BoolVar(&loginNoMigrate, "no-migrate", false, "skip the automatic progress migration")
	authCmd.AddCommand(authStatusCmd)
	rootCmd.AddCommand(loginCmd, logoutCmd, authCmd, migrateCmd)
}
