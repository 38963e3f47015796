package cmd

import (
	"fmt"
	"strings"

	"github.com/cybercompass/compass/internal/catalog"
	"github.com/cybercompass/compass/internal/models"
	"github.com/cybercompass/compass/internal/output"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// categoryFlag validates --category against the known categories at parse
// time rather than after the store is opened.
type categoryFlag string

var _ pflag.Value = (*categoryFlag)(nil)

func (f *categoryFlag) String() string { return string(*f) }

func (f *categoryFlag) Type() string { return "category" }

func (f *categoryFlag) Set(v string) error {
	for _, cat := range models.Categories {
		if cat == v {
			*f = categoryFlag(v)
			return nil
		}
	}
	return fmt.Errorf("unknown category %q (one of: %s)", v, strings.Join(models.Categories, ", "))
}

var challengeCategory categoryFlag

var challengeCmd = &cobra.Command{
	Use:     "challenge",
	Short:   "Browse the challenge catalog",
	GroupID: "core",
	Aliases: []string{"ch"},
}

var challengeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List challenges with completion state",
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

		records, err := st.GetAllProgress(sess.ID)
		if err != nil {
			return fmt.Errorf("read progress: %w", err)
		}
		done := make(map[string]bool)
		for _, rec := range records {
			if rec.IsCompleted {
				done[rec.ChallengeID] = true
			}
		}

		var challenges []models.Challenge
		if challengeCategory != "" {
			challenges = catalog.ByCategory(string(challengeCategory))
		} else {
			challenges = catalog.All()
		}

		if jsonMode {
			type item struct {
				models.Challenge
				Completed bool `json:"completed"`
			}
			items := make([]item, 0, len(challenges))
			for _, c := range challenges {
				items = append(items, item{Challenge: c, Completed: done[c.ID]})
			}
			return output.JSON(items)
		}

		for _, c := range challenges {
			fmt.Println(output.FormatChallengeShort(c, done[c.ID]))
		}
		return nil
	},
}

var challengeShowCmd = &cobra.Command{
	Use:   "show <challenge-id>",
	Short: "Show a challenge prompt and its options",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := catalog.Get(args[0])
		if err != nil {
			if jsonMode {
				output.JSONError(output.ErrCodeNotFound, err.Error())
			}
			return err
		}

		if jsonMode {
			return output.JSON(c)
		}

		fmt.Printf("%s  %s\n", c.ID, output.FormatCategory(c.Category))
		fmt.Println(c.Title)

		fmt.Println(output.RenderMarkdown(c.Prompt))

		fmt.Print(output.SectionHeader("options"))
		for _, opt := range c.Options {
			fmt.Printf("  %s  %s\n", opt.ID, opt.Text)
		}
		return nil
	},
}

func init() {
	challengeListCmd.Flags().VarP(&challengeCategory, "category", "c", "filter by category")
	challengeCmd.AddCommand(challengeListCmd)
	challengeCmd.AddCommand(challengeShowCmd)
	rootCmd.AddCommand(challengeCmd)
}
