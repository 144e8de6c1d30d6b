// File: cmd/journal.go
package cmd

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/deskops/api/schemas"
	"github.com/xkilldash9x/deskops/internal/config"
	"github.com/xkilldash9x/deskops/internal/journal"
)

// newJournalCmd groups the run-journal inspection commands.
func newJournalCmd() *cobra.Command {
	journalCmd := &cobra.Command{
		Use:   "journal",
		Short: "Inspect run journals",
	}
	journalCmd.AddCommand(newJournalVerifyCmd())
	journalCmd.AddCommand(newJournalFollowCmd())
	return journalCmd
}

// resolveRunDir picks the explicit run directory or falls back to the most
// recent one under the configured runs root.
func resolveRunDir(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	cfg, err := config.NewConfigFromViper(viper.GetViper())
	if err != nil {
		return "", err
	}
	return journal.LatestRunDir(cfg.RunsDir)
}

// newJournalVerifyCmd renders the per-step verification table for a run.
func newJournalVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify [run-dir]",
		Short: "Renders the verification outcome of each step in a run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runDir, err := resolveRunDir(args)
			if err != nil {
				return err
			}

			steps, err := journal.ReadSteps(filepath.Join(runDir, journal.StepsFileName))
			if err != nil {
				return err
			}
			if len(steps) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No steps recorded in %s\n", runDir)
				return nil
			}

			// Screenshot existence checks touch the filesystem once per step;
			// do them concurrently.
			shots := make([]string, len(steps))
			var g errgroup.Group
			for i, rec := range steps {
				g.Go(func() error {
					shots[i] = screenshotState(rec.ScreenshotPath)
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			failed := 0
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
			fmt.Fprintln(w, "STEP\tACTION\tCENTER-DIST\tDELTA\tPASS\tSCREENSHOT")
			for i, rec := range steps {
				dist := centerDistance(rec)
				delta, pass := verifyColumns(rec)
				if pass == "FAIL" {
					failed++
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
					rec.StepIndex, rec.NextAction, dist, delta, pass, shots[i])
			}
			if err := w.Flush(); err != nil {
				return err
			}

			if failed > 0 {
				return fmt.Errorf("%d step(s) failed verification", failed)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "All available verifications passed.")
			return nil
		},
	}
}

// screenshotState reports whether a step's screenshot still exists on disk.
func screenshotState(path string) string {
	if path == "" {
		return "-"
	}
	if _, err := os.Stat(path); err != nil {
		return "missing"
	}
	return "ok"
}

// centerDistance is how far the resolved point landed from the screen
// center, when both are known.
func centerDistance(rec schemas.StepRecord) string {
	meta := rec.Meta
	if meta == nil || meta.Screen == nil || meta.Coords == nil {
		return "-"
	}
	final := meta.Coords.Final
	if len(final) < 2 || final[0] == nil || final[1] == nil {
		return "-"
	}
	cx := float64(meta.Screen.Width) / 2
	cy := float64(meta.Screen.Height) / 2
	d := math.Hypot(float64(*final[0])-cx, float64(*final[1])-cy)
	return fmt.Sprintf("%.1f", d)
}

// verifyColumns renders the delta and pass cells for one step.
func verifyColumns(rec schemas.StepRecord) (delta, pass string) {
	if rec.Meta == nil || rec.Meta.Verify == nil {
		return "-", "-"
	}
	v := rec.Meta.Verify
	if v.Pass {
		return fmt.Sprintf("%.4f", v.Delta), "ok"
	}
	return fmt.Sprintf("%.4f", v.Delta), "FAIL"
}

// newJournalFollowCmd tails a run journal live.
func newJournalFollowCmd() *cobra.Command {
	var fromStart bool

	followCmd := &cobra.Command{
		Use:   "follow [run-dir]",
		Short: "Streams journal lines of a run as they are appended",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runDir, err := resolveRunDir(args)
			if err != nil {
				return err
			}

			follower, err := journal.Follow(filepath.Join(runDir, journal.StepsFileName), fromStart)
			if err != nil {
				return err
			}
			defer follower.Stop()

			ctx := cmd.Context()
			for {
				select {
				case <-ctx.Done():
					return nil
				case line, ok := <-follower.Lines():
					if !ok {
						return nil
					}
					if line.Err != nil {
						return line.Err
					}
					fmt.Fprintln(cmd.OutOrStdout(), line.Text)
				}
			}
		},
	}
	followCmd.Flags().BoolVar(&fromStart, "from-start", false, "replay the existing journal before following")
	return followCmd
}

func init() {
	rootCmd.AddCommand(newJournalCmd())
}
