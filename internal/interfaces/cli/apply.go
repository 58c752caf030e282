package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dirsync/james-connector/internal/application/batch"
	"github.com/dirsync/james-connector/internal/domain/directory"
	"github.com/dirsync/james-connector/internal/infrastructure/changes"
)

func newApplyCmd(opts *rootOptions) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply a file of change descriptors to James",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				set, err := changes.LoadFile(file)
				if err != nil {
					return err
				}
				if set.Task != "" && set.Task != a.task.Name {
					return fmt.Errorf("%w: %s targets task %q, configured task is %q",
						directory.ErrConfiguration, file, set.Task, a.task.Name)
				}

				runnerOpts := []batch.Option{batch.WithLogger(a.logger)}
				journal, err := a.journal(false)
				if err != nil {
					return err
				}
				if journal != nil {
					runnerOpts = append(runnerOpts, batch.WithJournal(journal))
				}

				report, runErr := batch.NewRunner(a.service, runnerOpts...).Run(ctx, a.task.Name, set.Changes)
				if report != nil {
					if err := render(cmd.OutOrStdout(), opts.output, report); err != nil {
						return err
					}
				}
				if runErr != nil {
					return runErr
				}
				if report.Status != batch.RunStatusSuccess {
					return fmt.Errorf("run %s finished %s: %d of %d changes failed",
						report.RunID, report.Status, report.Failed, report.Total)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "change file (.yaml, .yml or .json)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
