package cli

import (
	"time"

	"github.com/spf13/cobra"
)

type MigrateOptions struct {
	*GlobalOptions
	IDs []string
}

func NewMigrateCmd(global *GlobalOptions) *cobra.Command {
	opts := &MigrateOptions{GlobalOptions: global}

	cmd := &cobra.Command{
		Use:   "migrate [entity...]",
		Short: "Migrate people, tasks, opportunities and leads (all when none given)",
		Long: `Reads every document of the selected entity types, maps it to a destination
row and upserts the rows in batches. Failed batches are retried with
exponential backoff and then recorded; the run always continues with the next
batch and the next entity type. The exit status is 1 when any record could not
be written, a source collection was unreachable or the run was interrupted.`,
		Example: `  crmmigrate migrate
  crmmigrate migrate people leads --batch-size 200
  crmmigrate migrate opportunities --ids 64b7...,64b8... --report-file report.json`,
		RunE: func(c *cobra.Command, args []string) error {
			return runMigration(c, args, opts)
		},
	}

	f := cmd.Flags()
	f.Int("batch-size", 100, "Records per batch (max 1000)")
	f.Int("max-attempts", 5, "Attempts per batch before it is recorded as failed")
	f.Duration("batch-timeout", 60*time.Second, "Time limit for one batch write")
	f.Bool("record-fallback", false, "Retry a failed batch one record at a time")
	f.Bool("dry-run", false, "Read and transform only; write nothing")
	f.String("report-file", "", "Write the summary to this file (.json, .yaml or .yml)")
	f.StringSliceVar(&opts.IDs, "ids", nil, "Only migrate these source ids")

	return cmd
}

func NewVerifyCmd(global *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify [entity...]",
		Short: "Count the tenant's rows in each destination table",
		RunE: func(c *cobra.Command, args []string) error {
			return runVerify(c, args, global)
		},
	}
}
