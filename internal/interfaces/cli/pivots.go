package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dirsync/james-connector/internal/domain/directory"
)

func newPivotsCmd(opts *rootOptions) *cobra.Command {
	var cached bool

	cmd := &cobra.Command{
		Use:   "pivots",
		Short: "List every identifier and its datasets as seen in James",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				pivots, err := a.pivots(ctx, cached)
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), opts.output, pivots)
			})
		},
	}

	cmd.Flags().BoolVar(&cached, "cached", false, "serve the last snapshot when one is available")
	return cmd
}

func (a *app) pivots(ctx context.Context, cached bool) (directory.PivotMap, error) {
	store, err := a.snapshotStore(ctx)
	if err != nil {
		return nil, err
	}

	if cached {
		pivots, ok, err := store.Load(ctx, a.task.Name)
		if err != nil {
			a.logger.Warn("Snapshot unavailable", zap.String("task", a.task.Name), zap.Error(err))
		} else if ok {
			a.logger.Debug("Serving cached pivots", zap.String("task", a.task.Name), zap.Int("count", len(pivots)))
			return pivots, nil
		}
	}

	pivots, err := a.service.GetListPivots(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pivots of %s: %w", a.task.Name, err)
	}
	if err := store.Save(ctx, a.task.Name, pivots, a.cfg.Redis.SnapshotTTL); err != nil {
		a.logger.Warn("Failed to save snapshot", zap.String("task", a.task.Name), zap.Error(err))
	}
	return pivots, nil
}
