package source

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"iter"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/starlog-lab/starlog/pkg/domain/model"
	"github.com/starlog-lab/starlog/pkg/utils/safe"
)

// maxLineSize bounds one JSONL record
const maxLineSize = 16 * 1024 * 1024

// ParseArticles streams JSON lines from r. Blank lines are skipped; a broken
// line is yielded as an error and reading continues.
func ParseArticles(r io.Reader) iter.Seq2[*model.Article, error] {
	return func(yield func(*model.Article, error) bool) {
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

		line := 0
		for scanner.Scan() {
			line++
			text := strings.TrimSpace(scanner.Text())
			if text == "" {
				continue
			}

			var a model.Article
			if err := json.Unmarshal([]byte(text), &a); err != nil {
				if !yield(nil, goerr.Wrap(err, "failed to parse article line", goerr.V("line", line))) {
					return
				}
				continue
			}
			if err := a.Validate(); err != nil {
				if !yield(nil, goerr.Wrap(err, "invalid article line", goerr.V("line", line))) {
					return
				}
				continue
			}
			if !yield(&a, nil) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			yield(nil, goerr.Wrap(err, "failed to read articles", goerr.V("line", line)))
		}
	}
}

// ReadArticles streams articles from a JSONL file on disk or in GCS
func ReadArticles(ctx context.Context, path string) iter.Seq2[*model.Article, error] {
	return func(yield func(*model.Article, error) bool) {
		r, err := open(ctx, path)
		if err != nil {
			yield(nil, err)
			return
		}
		defer safe.Close(ctx, r)

		for a, err := range ParseArticles(r) {
			if err != nil {
				err = goerr.Wrap(err, "article source error", goerr.V("path", path))
			}
			if !yield(a, err) {
				return
			}
		}
	}
}
