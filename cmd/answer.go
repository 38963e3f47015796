package cmd

import (
	"fmt"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/cybercompass/compass/internal/catalog"
	"github.com/cybercompass/compass/internal/config"
	"github.com/cybercompass/compass/internal/models"
	"github.com/cybercompass/compass/internal/output"
	"github.com/cybercompass/compass/internal/syncer"
	"github.com/spf13/cobra"
)

var answerOption string

var answerCmd = &cobra.Command{
	Use:     "answer <challenge-id> [option-id]",
	Short:   "Answer a challenge",
	Long:    `Records your answer locally, then pushes it to the server in the background. Works offline: unsent answers stay queued and are retried on the next sync.`,
	GroupID: "core",
	Args:    cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := catalog.Get(args[0])
		if err != nil {
			return err
		}

		selected := answerOption
		if len(args) > 1 {
			selected = args[1]
		}
		if selected == "" {
			selected, err = pickOption(c)
			if err != nil {
				return err
			}
		}

		opt := c.Option(selected)
		if opt == nil {
			return fmt.Errorf("unknown option %q for %s", selected, c.ID)
		}

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		sess, err := currentSession()
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		action := models.ActionSubmit
		if existing, err := st.GetProgress(sess.ID, c.ID); err == nil && existing != nil {
			action = models.ActionUpdate
		}

		rec := models.ProgressRecord{
			ChallengeID:      c.ID,
			SelectedOptionID: opt.ID,
			IsCompleted:      true,
			SessionID:        sess.ID,
			CompletedAt:      &now,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := st.SaveProgress(rec); err != nil {
			return fmt.Errorf("save progress: %w", err)
		}

		if _, err := st.QueueForSync(models.SyncQueueItem{
			Action:           action,
			ChallengeID:      c.ID,
			SelectedOptionID: opt.ID,
			IsCompleted:      true,
			SessionID:        sess.ID,
			Timestamp:        now,
		}); err != nil {
			return fmt.Errorf("queue for sync: %w", err)
		}

		if opt.IsCorrect {
			output.Success("Correct! %s", opt.Text)
		} else {
			correct := c.CorrectOption()
			output.Error("Not quite. The answer was: %s", correct.Text)
		}

		// Push immediately; on failure the item stays queued and a bounded
		// beacon batch goes out fire-and-forget before exit.
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		remote, err := newRemote()
		if err != nil {
			return err
		}
		proc := syncer.New(st, remote, nil, processorOptions(cfg))
		defer proc.Close()

		res, err := proc.Process()
		switch {
		case err != nil:
			output.Warning("sync failed: %v", err)
		case res.Retried > 0 || res.Dropped > 0:
			if n, ferr := proc.Flush(); ferr == nil && n > 0 {
				output.Warning("server unreachable, sent %d queued answer(s) as beacon; they stay queued until confirmed", n)
			} else {
				output.Warning("server unreachable, answer queued for next sync")
			}
		default:
			fmt.Println("Synced.")
		}

		return nil
	},
}

// pickOption runs an interactive selector over the challenge's options.
func pickOption(c *models.Challenge) (string, error) {
	opts := make([]huh.Option[string], 0, len(c.Options))
	for _, o := range c.Options {
		opts = append(opts, huh.NewOption(o.Text, o.ID))
	}

	var selected string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title(c.Title).
				Options(opts...).
				Value(&selected),
		),
	)
	if err := form.Run(); err != nil {
		return "", fmt.Errorf("select option: %w", err)
	}
	return selected, nil
}

func init() {
	answerCmd.Flags().StringVarP(&answerOption, "option", "o", "", "option ID to answer with (skips the picker)")
	rootCmd.AddCommand(answerCmd)
}
