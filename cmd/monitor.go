package cmd

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/cybercompass/compass/internal/broadcast"
	"github.com/cybercompass/compass/internal/config"
	"github.com/cybercompass/compass/internal/syncer"
	"github.com/cybercompass/compass/pkg/monitor"
	"github.com/spf13/cobra"
)

var monitorRefresh time.Duration

var monitorCmd = &cobra.Command{
	Use:     "monitor",
	Short:   "Live progress and sync dashboard",
	Long:    `Full-screen view of challenge progress and the sync queue. A background processor drains the queue while the dashboard is open; sync and migration events show up as they happen.`,
	GroupID: "core",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		sess, err := currentSession()
		if err != nil {
			return err
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		remote, err := newRemote()
		if err != nil {
			return err
		}

		hub := broadcast.NewHub()
		defer hub.Close()

		opts := processorOptions(cfg)
		proc := syncer.New(st, remote, hub, opts)
		proc.Start()
		defer proc.Close()

		watchDone := make(chan struct{})
		defer close(watchDone)
		go syncer.WatchConnectivity(watchDone, remote, proc, opts.Interval)

		m := monitor.NewModel(st, hub, sess.ID, monitorRefresh)
		m.OnFocus = func() { proc.Notify(syncer.TriggerVisible) }
		p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithReportFocus())
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("monitor: %w", err)
		}
		return nil
	},
}

func init() {
	monitorCmd.Flags().DurationVar(&monitorRefresh, "refresh", 2*time.Second, "data refresh interval")
	rootCmd.AddCommand(monitorCmd)
}
