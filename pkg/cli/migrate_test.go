package cli

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/m-mizutani/fireconf"
	"github.com/m-mizutani/gt"
)

func TestIndexConfig(t *testing.T) {
	cfg := indexConfig("stg")
	gt.NoError(t, cfg.Validate())
	gt.A(t, cfg.Collections).Length(1).Required()
	gt.String(t, cfg.Collections[0].Name).Equal("stg_articles")
	gt.A(t, cfg.Collections[0].Indexes).Length(1).Required()
	gt.A(t, cfg.Collections[0].Indexes[0].Fields).Equal([]fireconf.IndexField{
		{Path: "source", Order: fireconf.OrderAscending},
		{Path: "published_at", Order: fireconf.OrderAscending},
	})
}

func TestLogMigrationDiff(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	t.Run("no changes", func(t *testing.T) {
		buf.Reset()
		gt.Value(t, logMigrationDiff(logger, &fireconf.DiffResult{})).Equal(0)
		gt.String(t, buf.String()).Equal("")
	})

	t.Run("index added and removed", func(t *testing.T) {
		buf.Reset()
		diff := &fireconf.DiffResult{Collections: []fireconf.CollectionDiff{{
			Name:         "articles",
			Action:       fireconf.ActionModify,
			IndexesToAdd: indexConfig("").Collections[0].Indexes,
			IndexesToDelete: []fireconf.Index{{Fields: []fireconf.IndexField{
				{Path: "source", Order: fireconf.OrderDescending},
			}}},
		}}}
		gt.Value(t, logMigrationDiff(logger, diff)).Equal(2)
		gt.String(t, buf.String()).Contains("create_index")
		gt.String(t, buf.String()).Contains("published_at ASCENDING")
		gt.String(t, buf.String()).Contains("delete_index")
	})
}
