package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dirsync/james-connector/internal/domain/directory"
)

type runView struct {
	RunID      string    `json:"run_id" yaml:"run_id"`
	Task       string    `json:"task" yaml:"task"`
	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`
	Total      int       `json:"total" yaml:"total"`
	Succeeded  int       `json:"succeeded" yaml:"succeeded"`
	Failed     int       `json:"failed" yaml:"failed"`
}

type recordView struct {
	Operation      string    `json:"operation" yaml:"operation"`
	MainIdentifier string    `json:"main_identifier" yaml:"main_identifier"`
	Succeeded      bool      `json:"succeeded" yaml:"succeeded"`
	Diagnostic     string    `json:"diagnostic,omitempty" yaml:"diagnostic,omitempty"`
	AppliedAt      time.Time `json:"applied_at" yaml:"applied_at"`
}

func newRunsCmd(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Summarize the latest journaled runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				journal, err := a.journal(true)
				if err != nil {
					return err
				}
				runs, err := journal.LatestRuns(ctx, limit)
				if err != nil {
					return err
				}
				views := make([]runView, 0, len(runs))
				for _, r := range runs {
					views = append(views, runView{
						RunID:      r.RunID.String(),
						Task:       r.Task,
						StartedAt:  r.StartedAt,
						FinishedAt: r.FinishedAt,
						Total:      r.Total,
						Succeeded:  r.Succeeded,
						Failed:     r.Failed,
					})
				}
				return render(cmd.OutOrStdout(), opts.output, views)
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "number of runs to show")
	cmd.AddCommand(newRunShowCmd(opts))
	return cmd
}

func newRunShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "List the changes journaled for one run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("%w: invalid run id %q", directory.ErrConfiguration, args[0])
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				journal, err := a.journal(true)
				if err != nil {
					return err
				}
				records, err := journal.ListByRun(ctx, runID)
				if err != nil {
					return err
				}
				if len(records) == 0 {
					return fmt.Errorf("%w: run %s", directory.ErrNotFound, runID)
				}
				views := make([]recordView, 0, len(records))
				for _, r := range records {
					views = append(views, recordView{
						Operation:      string(r.Operation),
						MainIdentifier: r.MainIdentifier,
						Succeeded:      r.Succeeded,
						Diagnostic:     r.Diagnostic,
						AppliedAt:      r.AppliedAt,
					})
				}
				return render(cmd.OutOrStdout(), opts.output, views)
			})
		},
	}
}
