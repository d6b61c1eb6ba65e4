// Package cli handles the command-line interface logic
// using the Cobra library.
package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/BartekS5/crmmigrate/internal/config"
	"github.com/spf13/cobra"
)

// GlobalOptions are the flags shared by every command.
type GlobalOptions struct {
	ConfigFile string
}

func NewRootCmd() *cobra.Command {
	opts := &GlobalOptions{}

	rootCmd := &cobra.Command{
		Use:   "crmmigrate",
		Short: "crmmigrate - migrate Copper CRM records from MongoDB into SQL",
		Long: `crmmigrate copies people, tasks, opportunities and leads from the Copper
collections of a MongoDB database into relational tables, in retried batches,
for a single tenant. Every run ends with a per-entity summary.`,
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&opts.ConfigFile, "config", "", "Path to a config file (default ./crmmigrate.yaml if present)")
	pf.String("tenant", "", "Tenant identifier stored in company_id (env MIGRATE_TENANT_ID)")
	pf.String("source-uri", "", "MongoDB connection string (env MIGRATE_SOURCE_URI)")
	pf.String("source-db", "", "MongoDB database name (env MIGRATE_SOURCE_DATABASE)")
	pf.String("dest-driver", "", "Destination driver: postgres or sqlserver (env MIGRATE_DEST_DRIVER)")
	pf.String("dest-dsn", "", "Destination connection string (env MIGRATE_DEST_DSN)")
	pf.String("catalog", "", "Path to an entity catalog JSON file")
	pf.String("log-level", "", "Log level: debug, info, warn or error")
	pf.String("log-format", "", "Log format: console or json")
	pf.String("log-file", "", "Also write logs to this file")

	rootCmd.AddCommand(
		NewMigrateCmd(opts),
		NewVerifyCmd(opts),
		NewEntitiesCmd(opts),
	)

	return rootCmd
}

// NewEntitiesCmd lists the entity types with their source and destination.
func NewEntitiesCmd(opts *GlobalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "entities",
		Short: "List migratable entity types in migration order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("catalog")
			catalog, err := config.LoadCatalog(path)
			if err != nil {
				return err
			}
			tasks, err := catalog.Select(nil)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ENTITY\tCOLLECTION\tTABLE")
			for _, t := range tasks {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", t.Entity, t.SourceCollection, t.DestTable)
			}
			return tw.Flush()
		},
	}
}
