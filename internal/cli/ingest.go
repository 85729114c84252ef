package cli

import (
	"errors"
	"fmt"

	"github.com/akolanti/GoIngest/internal/app"
	"github.com/akolanti/GoIngest/internal/domain/commonModels"
	"github.com/akolanti/GoIngest/internal/domain/jobModel"
	"github.com/spf13/cobra"
)

type documentFlags struct {
	docId       string
	knowledgeId string
	fileName    string
	locator     string
}

func (f *documentFlags) register(cmd *cobra.Command, withSource bool) {
	cmd.Flags().StringVar(&f.docId, "doc-id", "", "document id")
	cmd.Flags().StringVar(&f.knowledgeId, "knowledge-id", "", "knowledge base id")
	_ = cmd.MarkFlagRequired("doc-id")
	_ = cmd.MarkFlagRequired("knowledge-id")
	if withSource {
		cmd.Flags().StringVar(&f.fileName, "file", "", "file name, its extension picks the converter")
		cmd.Flags().StringVar(&f.locator, "locator", "", "s3://bucket/key, bucket/key or file:///path")
		_ = cmd.MarkFlagRequired("file")
		_ = cmd.MarkFlagRequired("locator")
	}
}

func (f *documentFlags) document(status string) commonModels.Document {
	return commonModels.Document{
		Id:          f.docId,
		KnowledgeId: f.knowledgeId,
		FileName:    f.fileName,
		Locator:     f.locator,
		Status:      status,
	}
}

func newIngestCmd(opts *rootOptions) *cobra.Command {
	flags := &documentFlags{}
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Run the ingestion pipeline for one document",
		Long: `Run the ingestion pipeline for one document and report the outcome to the
system of record, exactly as the worker would after an ingesting transition.

Examples:
  ragctl ingest --doc-id d1 --knowledge-id kb1 --file handbook.pdf --locator s3://docs/handbook.pdf`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(a *app.App) error {
				run, err := a.Jobs.Ingest(cmd.Context(), flags.document(commonModels.StatusIngesting))
				if err != nil {
					return fmt.Errorf("ingest: %w", err)
				}
				printRun(cmd, run)
				if run.Status == jobModel.JobStatusError {
					return errors.New("ingestion failed")
				}
				return nil
			})
		},
	}
	flags.register(cmd, true)
	return cmd
}

func newDeleteCmd(opts *rootOptions) *cobra.Command {
	flags := &documentFlags{}
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Remove every chunk of a document from its knowledge base",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(a *app.App) error {
				if err := a.Jobs.Delete(cmd.Context(), flags.document("")); err != nil {
					return fmt.Errorf("delete: %w", err)
				}
				printf(cmd.OutOrStdout(), "Deleted chunks of %s from %s\n", flags.docId, flags.knowledgeId)
				return nil
			})
		},
	}
	flags.register(cmd, false)
	return cmd
}

func printRun(cmd *cobra.Command, run jobModel.Job) {
	out := cmd.OutOrStdout()
	printf(out, "run:    %s\n", run.Id)
	printf(out, "trace:  %s\n", run.TraceId)
	printf(out, "status: %s\n", run.Status)
	printf(out, "chunks: %d\n", run.ChunkCount)
	if run.Error != nil {
		printf(out, "error:  [%s/%s] %s\n", run.Error.Stage, run.Error.Kind, run.Error.Message)
	}
	if run.ReportPending {
		printf(out, "status report failed, the reconcile sweep will retry it\n")
	}
}
