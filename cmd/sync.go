package cmd

import (
	"fmt"

	"github.com/cybercompass/compass/internal/config"
	"github.com/cybercompass/compass/internal/output"
	"github.com/cybercompass/compass/internal/syncer"
	"github.com/spf13/cobra"
)

var syncFlush bool

var syncCmd = &cobra.Command{
	Use:     "sync",
	Short:   "Drain the sync queue now",
	Long: `Pushes queued progress to the server immediately instead of waiting for
the background interval. With --flush, sends a single bounded batch
fire-and-forget, the way the page-unload path does.`,
	GroupID: "sync",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

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

		if syncFlush {
			n, err := proc.Flush()
			if err != nil {
				return fmt.Errorf("flush: %w", err)
			}
			if jsonMode {
				return output.JSON(map[string]any{"flushed": n})
			}
			output.Success("flushed %d item(s)", n)
			return nil
		}

		res, err := proc.Process()
		if err != nil {
			if jsonMode {
				output.JSONError("network_error", err.Error())
				return nil
			}
			return fmt.Errorf("sync: %w", err)
		}

		if jsonMode {
			return output.JSON(map[string]any{
				"delivered": res.Delivered,
				"retried":   res.Retried,
				"dropped":   res.Dropped,
				"skipped":   res.Skipped,
			})
		}

		if res.Delivered == 0 && res.Retried == 0 && res.Dropped == 0 {
			fmt.Println("Queue empty, nothing to sync.")
			return nil
		}
		output.Success("delivered %d item(s)", res.Delivered)
		if res.Retried > 0 {
			output.Warning("%d item(s) failed and will be retried", res.Retried)
		}
		if res.Dropped > 0 {
			output.Warning("%d item(s) dropped after exhausting retries", res.Dropped)
		}
		return nil
	},
}

func init() {
	syncCmd.Flags().BoolVar(&syncFlush, "flush", false, "send one bounded batch fire-and-forget")
	rootCmd.AddCommand(syncCmd)
}
