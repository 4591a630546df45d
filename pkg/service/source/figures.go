package source

import (
	"context"
	"io"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/starlog-lab/starlog/pkg/domain/model"
	"github.com/starlog-lab/starlog/pkg/domain/types"
	"github.com/starlog-lab/starlog/pkg/utils/safe"
)

// FigureFile is the TOML registry file
//
//	[[figure]]
//	name = "NewJeans"
//	aliases = ["뉴진스"]
//	group = true
//	members = ["Kim Minji", "Hanni Pham"]
//	nationality = "KR"
type FigureFile struct {
	Figures []FigureRecord `toml:"figure"`
}

// FigureRecord is one registry entry. Members are display names or IDs.
type FigureRecord struct {
	Name        string   `toml:"name"`
	Aliases     []string `toml:"aliases"`
	Group       bool     `toml:"group"`
	Members     []string `toml:"members"`
	Nationality string   `toml:"nationality"`
}

// Validate checks a record has enough to build a figure
func (r *FigureRecord) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return goerr.New("figure name is required")
	}
	if !r.Group && len(r.Members) > 0 {
		return goerr.New("only groups can have members", goerr.V("name", r.Name))
	}
	return nil
}

// ToModel converts the record to a PublicFigure
func (r *FigureRecord) ToModel() *model.PublicFigure {
	f := model.NewPublicFigure(strings.TrimSpace(r.Name), r.Aliases...)
	f.IsGroup = r.Group
	f.Nationality = r.Nationality
	for _, m := range r.Members {
		f.Members = append(f.Members, types.NormalizeFigureID(m))
	}
	return f
}

// ParseFigures decodes a TOML registry file
func ParseFigures(r io.Reader) ([]*model.PublicFigure, error) {
	var file FigureFile
	if err := toml.NewDecoder(r).Decode(&file); err != nil {
		return nil, goerr.Wrap(err, "failed to parse TOML figure file")
	}

	figures := make([]*model.PublicFigure, 0, len(file.Figures))
	for i, rec := range file.Figures {
		if err := rec.Validate(); err != nil {
			return nil, goerr.Wrap(err, "invalid figure record", goerr.V("index", i))
		}
		figures = append(figures, rec.ToModel())
	}
	return figures, nil
}

// LoadFigures reads the registry file from disk or gs://bucket/object
func LoadFigures(ctx context.Context, path string) ([]*model.PublicFigure, error) {
	r, err := open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer safe.Close(ctx, r)

	figures, err := ParseFigures(r)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load figures", goerr.V("path", path))
	}
	return figures, nil
}
