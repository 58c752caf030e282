package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dirsync/james-connector/internal/domain/directory"
	"github.com/dirsync/james-connector/internal/infrastructure/james"
)

func newDomainCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "domain",
		Short: "Manage the mail domains James accepts",
	}
	cmd.AddCommand(newDomainCreateCmd(opts), newDomainExistsCmd(opts))
	return cmd
}

func newDomainCreateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "create <domain>",
		Short: "Declare a domain so contacts and aliases can use it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				outcome, err := james.NewDomainGateway(a.client).CreateDomain(ctx, args[0])
				if err != nil {
					return err
				}
				if !outcome.Succeeded {
					return fmt.Errorf("%w: %s", directory.ErrService, outcome.Diagnostic)
				}
				a.logger.Info("Domain created", zap.String("domain", args[0]))
				return nil
			})
		},
	}
}

func newDomainExistsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "exists <domain>",
		Short: "Check whether James knows a domain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				exists, err := james.NewDomainGateway(a.client).DomainExists(ctx, args[0])
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), opts.output, map[string]any{
					"domain": args[0],
					"exists": exists,
				})
			})
		},
	}
}
