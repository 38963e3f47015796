package cmd

import (
	"fmt"

	"github.com/cybercompass/compass/internal/catalog"
	"github.com/cybercompass/compass/internal/config"
	"github.com/cybercompass/compass/internal/models"
	"github.com/cybercompass/compass/internal/output"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:     "status",
	Short:   "Show progress and sync state",
	GroupID: "core",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		sess, err := currentSession()
		if err != nil {
			if jsonMode {
				output.JSONError("no_session", err.Error())
				return nil
			}
			return err
		}

		records, err := st.GetAllProgress(sess.ID)
		if err != nil {
			return fmt.Errorf("read progress: %w", err)
		}
		done := make(map[string]bool, len(records))
		for _, r := range records {
			if r.IsCompleted {
				done[r.ChallengeID] = true
			}
		}

		pending, err := st.PendingSyncItems()
		if err != nil {
			return fmt.Errorf("read sync queue: %w", err)
		}

		auth, _ := config.LoadAuth()
		authenticated := auth != nil && auth.APIKey != ""

		type categoryCount struct {
			Category string `json:"category"`
			Done     int    `json:"done"`
			Total    int    `json:"total"`
		}
		counts := make([]categoryCount, 0, len(models.Categories))
		for _, cat := range models.Categories {
			cc := categoryCount{Category: cat}
			for _, c := range catalog.ByCategory(cat) {
				cc.Total++
				if done[c.ID] {
					cc.Done++
				}
			}
			counts = append(counts, cc)
		}

		if jsonMode {
			return output.JSON(map[string]any{
				"session_id":    sess.ID,
				"storage":       st.Kind(),
				"categories":    counts,
				"completed":     len(done),
				"total":         catalog.Count(),
				"queue_pending": len(pending),
				"authenticated": authenticated,
			})
		}

		fmt.Print(output.SectionHeader("session"))
		fmt.Printf("  %s\n", sess.ID)
		fmt.Printf("  storage: %s\n", st.Kind())
		if authenticated {
			fmt.Printf("  account: logged in (%s)\n", auth.UserID)
		} else {
			fmt.Println("  account: anonymous")
		}

		fmt.Print(output.SectionHeader("progress"))
		for _, cc := range counts {
			fmt.Printf("  %s %d/%d\n", output.FormatCategory(cc.Category), cc.Done, cc.Total)
		}
		fmt.Printf("  total: %d/%d\n", len(done), catalog.Count())

		fmt.Print(output.SectionHeader("sync"))
		if len(pending) == 0 {
			fmt.Println("  queue empty")
		} else {
			fmt.Printf("  %d item(s) pending\n", len(pending))
			for _, item := range pending {
				fmt.Printf("    %s %s (retries: %d, %s)\n",
					item.Action, item.ChallengeID, item.RetryCount, output.FormatTimeAgo(item.Timestamp))
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
