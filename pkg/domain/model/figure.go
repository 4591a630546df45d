package model

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/starlog-lab/starlog/pkg/domain/types"
)

// PublicFigure is an individual or a group that articles may mention
type PublicFigure struct {
	ID          types.FigureID
	DisplayName string
	Aliases     []string
	IsGroup     bool
	Members     []types.FigureID // only for groups, in declared order
	Nationality string
}

// NewPublicFigure creates a figure whose ID is derived from displayName
func NewPublicFigure(displayName string, aliases ...string) *PublicFigure {
	return &PublicFigure{
		ID:          types.NormalizeFigureID(displayName),
		DisplayName: displayName,
		Aliases:     aliases,
	}
}

// Validate checks that the figure has a usable identity
func (f *PublicFigure) Validate() error {
	if f.DisplayName == "" {
		return goerr.New("figure display name is required")
	}
	if err := f.ID.Validate(); err != nil {
		return goerr.Wrap(err, "invalid figure ID", goerr.V("display_name", f.DisplayName))
	}
	if want := types.NormalizeFigureID(f.DisplayName); f.ID != want {
		return goerr.New("figure ID does not match display name",
			goerr.V("id", f.ID), goerr.V("expected", want))
	}
	if !f.IsGroup && len(f.Members) > 0 {
		return goerr.New("only groups can have members", goerr.V("id", f.ID))
	}
	return nil
}

// FigureContext is what the summarizer is told about the figure it is writing for
type FigureContext struct {
	ID          types.FigureID
	DisplayName string
	Aliases     []string
	IsGroup     bool
	Groups      []string // display names of groups the figure belongs to
	Members     []string // display names of members, groups only
}
