package cli

import (
	"fmt"

	"github.com/akolanti/GoIngest/internal/app"
	"github.com/akolanti/GoIngest/internal/changelog"
	"github.com/akolanti/GoIngest/internal/domain/commonModels"
	"github.com/spf13/cobra"
)

func newPublishCmd(opts *rootOptions) *cobra.Command {
	flags := &documentFlags{}
	var op string
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish a synthetic change event to the change log",
		Long: `Publish a change event shaped like the ones the CDC connector emits.

--op u (default) publishes an uploaded to ingesting update, which triggers ingestion.
--op c publishes a create in uploaded, which the worker ignores.
--op d publishes a delete, --file and --locator are optional for it.

Examples:
  ragctl publish --doc-id d1 --knowledge-id kb1 --file notes.md --locator file:///tmp/notes.md
  ragctl publish --op d --doc-id d1 --knowledge-id kb1`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ev, err := syntheticEvent(changelog.Op(op), flags)
			if err != nil {
				return err
			}
			value, err := changelog.Encode(ev)
			if err != nil {
				return fmt.Errorf("encode event: %w", err)
			}
			return withApp(cmd.Context(), opts, func(a *app.App) error {
				publisher, err := a.NewPublisher(cmd.Context())
				if err != nil {
					return fmt.Errorf("open change log: %w", err)
				}
				defer func() { _ = publisher.Close() }()
				if err := publisher.Publish(cmd.Context(), flags.docId, value); err != nil {
					return fmt.Errorf("publish: %w", err)
				}
				printf(cmd.OutOrStdout(), "Published %s event for %s\n", op, flags.docId)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&op, "op", string(changelog.OpUpdate), "event op: c, u or d")
	flags.register(cmd, false)
	cmd.Flags().StringVar(&flags.fileName, "file", "", "file name, its extension picks the converter")
	cmd.Flags().StringVar(&flags.locator, "locator", "", "s3://bucket/key, bucket/key or file:///path")
	return cmd
}

func syntheticEvent(op changelog.Op, flags *documentFlags) (changelog.Event, error) {
	switch op {
	case changelog.OpUpdate:
		if flags.fileName == "" || flags.locator == "" {
			return changelog.Event{}, fmt.Errorf("--file and --locator are required for op %q", op)
		}
		before := flags.document(commonModels.StatusUploaded)
		after := flags.document(commonModels.StatusIngesting)
		return changelog.Event{Op: op, Before: &before, After: &after}, nil
	case changelog.OpCreate:
		after := flags.document(commonModels.StatusUploaded)
		return changelog.Event{Op: op, After: &after}, nil
	case changelog.OpDelete:
		before := flags.document(commonModels.StatusReady)
		return changelog.Event{Op: op, Before: &before}, nil
	}
	return changelog.Event{}, fmt.Errorf("unsupported op %q", op)
}
