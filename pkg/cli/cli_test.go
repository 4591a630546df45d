package cli_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/starlog-lab/starlog/pkg/cli"
	"github.com/starlog-lab/starlog/pkg/usecase"
)

const figuresTOML = `
[[figure]]
name = "Kim Minji"
aliases = ["Minji"]

[[figure]]
name = "NewJeans"
group = true
members = ["Kim Minji"]
`

const articlesJSONL = `{"id": "a1", "title": "Comeback", "body": "NewJeans announced a comeback. Minji spoke at the showcase.", "published_at": "2024-05-01T00:00:00Z"}
{"id": "a2", "title": "Drama", "body": "An unrelated drama aired tonight.", "published_at": "2024-05-02T00:00:00Z"}
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	gt.NoError(t, os.WriteFile(path, []byte(content), 0600)).Required()
	return path
}

func run(t *testing.T, args ...string) error {
	t.Helper()
	base := []string{"starlog", "--log-level", "error"}
	return cli.Run(t.Context(), append(base, args...), "test")
}

func TestRun_IngestDryRun(t *testing.T) {
	figures := writeFile(t, "figures.toml", figuresTOML)
	articles := writeFile(t, "articles.jsonl", articlesJSONL)

	err := run(t, "ingest",
		"--repository-backend", "memory",
		"--figures", figures,
		"--articles", articles,
		"--dry-run",
	)
	gt.NoError(t, err)
}

func TestRun_IngestErrors(t *testing.T) {
	figures := writeFile(t, "figures.toml", figuresTOML)
	articles := writeFile(t, "articles.jsonl", articlesJSONL)

	t.Run("no article input", func(t *testing.T) {
		gt.Error(t, run(t, "ingest", "--repository-backend", "memory", "--figures", figures, "--dry-run"))
	})

	t.Run("both article inputs", func(t *testing.T) {
		gt.Error(t, run(t, "ingest", "--repository-backend", "memory", "--figures", figures,
			"--articles", articles, "--from-store", "--dry-run"))
	})

	t.Run("summarizer required without dry run", func(t *testing.T) {
		err := run(t, "ingest", "--repository-backend", "memory", "--figures", figures, "--articles", articles)
		gt.B(t, errors.Is(err, usecase.ErrNoSummarizer)).True()
	})

	t.Run("registry required", func(t *testing.T) {
		gt.Error(t, run(t, "ingest", "--repository-backend", "memory", "--articles", articles, "--dry-run"))
	})

	t.Run("conflicting registry", func(t *testing.T) {
		conflict := writeFile(t, "conflict.toml", `
[[figure]]
name = "Kim Minji"

[[figure]]
name = "kim-minji"
`)
		gt.Error(t, run(t, "ingest", "--repository-backend", "memory", "--figures", conflict,
			"--articles", articles, "--dry-run"))
	})

	t.Run("invalid figure filter", func(t *testing.T) {
		gt.Error(t, run(t, "ingest", "--repository-backend", "memory", "--figures", figures,
			"--articles", articles, "--dry-run", "--figure", "a/b"))
	})

	t.Run("invalid pipeline settings", func(t *testing.T) {
		gt.Error(t, run(t, "ingest", "--repository-backend", "memory", "--figures", figures,
			"--articles", articles, "--dry-run", "--chunk-size", "1000"))
	})
}

func TestRun_Compact(t *testing.T) {
	err := run(t, "compact", "--repository-backend", "memory")
	gt.B(t, errors.Is(err, usecase.ErrNoSummarizer)).True()
}

func TestRun_Diagnose(t *testing.T) {
	gt.NoError(t, run(t, "diagnose", "--repository-backend", "memory"))
	gt.NoError(t, run(t, "diagnose", "--repository-backend", "memory", "--figure", "Kim Minji", "--verbose", "--fail-on-anomaly"))
}

func TestRun_Reset(t *testing.T) {
	t.Run("requires a target", func(t *testing.T) {
		gt.Error(t, run(t, "reset", "--repository-backend", "memory"))
	})

	t.Run("rejects both targets", func(t *testing.T) {
		gt.Error(t, run(t, "reset", "--repository-backend", "memory", "--all", "--figure", "kimminji"))
	})

	t.Run("all on empty store", func(t *testing.T) {
		gt.NoError(t, run(t, "reset", "--repository-backend", "memory", "--all", "--only-anomalous"))
	})
}

func TestRun_InvalidLogger(t *testing.T) {
	gt.Error(t, cli.Run(t.Context(), []string{"starlog", "--log-format", "xml", "diagnose", "--repository-backend", "memory"}, "test"))
}
