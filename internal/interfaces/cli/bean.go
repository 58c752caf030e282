package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dirsync/james-connector/internal/domain/directory"
)

type beanView struct {
	MainIdentifier string              `json:"main_identifier" yaml:"main_identifier"`
	Datasets       map[string][]string `json:"datasets" yaml:"datasets"`
}

func newBeanCmd(opts *rootOptions) *cobra.Command {
	var attribute string

	cmd := &cobra.Command{
		Use:   "bean <id>",
		Short: "Fetch the current state of one entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				id := args[0]
				datasets := directory.Datasets{}
				sameService := attribute == ""
				if sameService {
					datasets.Set(directory.AttrEmail, id)
				} else {
					datasets.Set(attribute, id)
				}

				bean, err := a.service.GetBean(ctx, attribute, datasets, sameService)
				if err != nil {
					return err
				}
				if bean == nil {
					return fmt.Errorf("%w: %s", directory.ErrNotFound, id)
				}
				return render(cmd.OutOrStdout(), opts.output, beanView{
					MainIdentifier: bean.MainIdentifier(),
					Datasets:       bean.Datasets(),
				})
			})
		},
	}

	cmd.Flags().StringVar(&attribute, "attribute", "", "look the entry up through this attribute instead of its email")
	return cmd
}

func newAttributesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "attributes",
		Short: "Print the attributes the configured task writes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(_ context.Context, a *app) error {
				return render(cmd.OutOrStdout(), opts.output, a.service.GetWriteDatasetIDs())
			})
		},
	}
}
