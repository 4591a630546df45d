package cli

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/fireconf"
	"github.com/m-mizutani/goerr/v2"
	"github.com/starlog-lab/starlog/pkg/repository/firestore"
	"github.com/starlog-lab/starlog/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdMigrate() *cli.Command {
	var projectID string
	var databaseID string
	var collectionPrefix string
	var dryRun bool

	return &cli.Command{
		Name:    "migrate",
		Aliases: []string{"m"},
		Usage:   "Migrate Firestore indexes",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "firestore-project-id",
				Usage:       "Firestore Project ID (required)",
				Required:    true,
				Sources:     cli.EnvVars("STARLOG_FIRESTORE_PROJECT_ID"),
				Destination: &projectID,
			},
			&cli.StringFlag{
				Name:        "firestore-database-id",
				Usage:       "Firestore Database ID",
				Value:       "(default)",
				Sources:     cli.EnvVars("STARLOG_FIRESTORE_DATABASE_ID"),
				Destination: &databaseID,
			},
			&cli.StringFlag{
				Name:        "firestore-collection-prefix",
				Usage:       "Prefix for top level Firestore collections",
				Sources:     cli.EnvVars("STARLOG_FIRESTORE_COLLECTION_PREFIX"),
				Destination: &collectionPrefix,
			},
			&cli.BoolFlag{
				Name:        "dry-run",
				Usage:       "Preview changes without applying",
				Destination: &dryRun,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := logging.Default()

			logger.Info("Migrate configuration",
				"projectID", projectID,
				"databaseID", databaseID,
				"collectionPrefix", collectionPrefix,
				"dryRun", dryRun)

			cfg := indexConfig(collectionPrefix)

			client, err := fireconf.New(ctx, projectID, databaseID, cfg,
				fireconf.WithLogger(logger),
				fireconf.WithDryRun(dryRun),
			)
			if err != nil {
				return goerr.Wrap(err, "failed to create fireconf client")
			}
			defer func() {
				if err := client.Close(); err != nil {
					logger.Error("failed to close fireconf client", "error", err.Error())
				}
			}()

			if dryRun {
				logger.Info("Dry run mode - previewing changes")
				names := make([]string, 0, len(cfg.Collections))
				for _, col := range cfg.Collections {
					names = append(names, col.Name)
				}
				current, err := client.Import(ctx, names...)
				if err != nil {
					return goerr.Wrap(err, "failed to import current indexes")
				}
				diff, err := client.DiffConfigs(current)
				if err != nil {
					return goerr.Wrap(err, "failed to diff index configuration")
				}
				if n := logMigrationDiff(logger, diff); n == 0 {
					logger.Info("No changes required")
				}
				return nil
			}

			logger.Info("Applying migrations")
			if err := client.Migrate(ctx); err != nil {
				return goerr.Wrap(err, "failed to apply migrations")
			}
			logger.Info("Migrations applied successfully")
			return nil
		},
	}
}

// logMigrationDiff logs one line per index change and returns how many there are.
func logMigrationDiff(logger *slog.Logger, diff *fireconf.DiffResult) int {
	var changes int
	for _, col := range diff.Collections {
		for _, idx := range col.IndexesToAdd {
			logger.Info("Migration step", "collection", col.Name, "operation", "create_index", "fields", indexFieldPaths(idx))
			changes++
		}
		for _, idx := range col.IndexesToDelete {
			logger.Info("Migration step", "collection", col.Name, "operation", "delete_index", "fields", indexFieldPaths(idx), "destructive", true)
			changes++
		}
		if col.TTLAction != "" {
			logger.Info("Migration step", "collection", col.Name, "operation", "ttl", "action", string(col.TTLAction))
			changes++
		}
	}
	return changes
}

func indexFieldPaths(idx fireconf.Index) []string {
	paths := make([]string, 0, len(idx.Fields))
	for _, f := range idx.Fields {
		paths = append(paths, f.Path+" "+string(f.Order))
	}
	return paths
}

// indexConfig returns the composite indexes the repositories query with.
// Timeline documents are read by key or scanned whole and need none.
func indexConfig(prefix string) *fireconf.Config {
	return &fireconf.Config{
		Collections: []fireconf.Collection{
			{
				Name: firestore.CollectionName(prefix, firestore.ArticlesCollection),
				Indexes: []fireconf.Index{
					// articles by source since a date: source ASC, published_at ASC
					{
						Fields: []fireconf.IndexField{
							{Path: "source", Order: fireconf.OrderAscending},
							{Path: "published_at", Order: fireconf.OrderAscending},
						},
					},
				},
			},
		},
	}
}
