package registry

import (
	"context"
	"slices"
	"sort"
	"unicode/utf8"

	"github.com/m-mizutani/goerr/v2"
	"github.com/starlog-lab/starlog/pkg/domain/model"
	"github.com/starlog-lab/starlog/pkg/domain/types"
	"github.com/starlog-lab/starlog/pkg/utils/logging"
)

var (
	// ErrRegistryConflict is returned when two figures share a canonical ID
	ErrRegistryConflict = goerr.New("figure ID conflict")

	// ErrUnknownFigure is returned for IDs that are not in the registry
	ErrUnknownFigure = goerr.New("unknown figure")
)

// MinAliasRunes is the shortest alias that is indexed. Shorter aliases match
// too much ordinary text.
const MinAliasRunes = 2

// Entry is one indexed alias in folded form
type Entry struct {
	Alias    string
	FigureID types.FigureID
}

// Registry is the immutable set of known figures with their alias index.
// It is safe for concurrent use.
type Registry struct {
	figures   map[types.FigureID]*model.PublicFigure
	ids       []types.FigureID
	groupsOf  map[types.FigureID][]types.FigureID
	aliases   map[string]types.FigureID
	ambiguous []string
}

type claim struct {
	id          types.FigureID
	displayName bool
}

// Build indexes figures. Two figures whose display names normalize to the
// same ID make the build fail with ErrRegistryConflict.
func Build(ctx context.Context, figures []*model.PublicFigure) (*Registry, error) {
	r := &Registry{
		figures:  make(map[types.FigureID]*model.PublicFigure, len(figures)),
		groupsOf: make(map[types.FigureID][]types.FigureID),
		aliases:  make(map[string]types.FigureID),
	}

	for _, f := range figures {
		if f.ID == "" {
			f.ID = types.NormalizeFigureID(f.DisplayName)
		}
		if err := f.Validate(); err != nil {
			return nil, goerr.Wrap(err, "invalid figure", goerr.V("display_name", f.DisplayName))
		}
		if existing, ok := r.figures[f.ID]; ok {
			return nil, goerr.Wrap(ErrRegistryConflict, "figures normalize to the same ID",
				goerr.V("id", f.ID),
				goerr.V("display_name", f.DisplayName),
				goerr.V("existing_display_name", existing.DisplayName))
		}
		r.figures[f.ID] = f
		r.ids = append(r.ids, f.ID)
	}
	slices.Sort(r.ids)

	logger := logging.From(ctx)
	for _, id := range r.ids {
		group := r.figures[id]
		if !group.IsGroup {
			continue
		}
		for _, memberID := range group.Members {
			if _, ok := r.figures[memberID]; !ok {
				logger.Warn("group member not found in registry, skipped",
					"group", group.ID, "member", memberID)
				continue
			}
			r.groupsOf[memberID] = append(r.groupsOf[memberID], group.ID)
		}
	}

	claims := make(map[string][]claim)
	for _, id := range r.ids {
		f := r.figures[id]
		displayKey := Fold(f.DisplayName)
		for _, alias := range r.ResolveAliases(f) {
			key := Fold(alias)
			if utf8.RuneCountInString(key) < MinAliasRunes {
				continue
			}
			claims[key] = append(claims[key], claim{id: id, displayName: key == displayKey})
		}
	}

	for key, cs := range claims {
		if owner, ok := resolveClaims(cs); ok {
			r.aliases[key] = owner
			continue
		}
		r.ambiguous = append(r.ambiguous, key)
	}
	sort.Strings(r.ambiguous)

	if len(r.ambiguous) > 0 {
		logger.Warn("ambiguous aliases dropped", "count", len(r.ambiguous), "aliases", r.ambiguous)
	}
	logger.Info("registry built", "figures", len(r.ids), "aliases", len(r.aliases))

	return r, nil
}

// resolveClaims picks the owner of an alias. A single claimant owns it; with
// several, a figure whose own display name it is wins, otherwise nobody does.
func resolveClaims(cs []claim) (types.FigureID, bool) {
	owners := map[types.FigureID]struct{}{}
	displayOwners := map[types.FigureID]struct{}{}
	for _, c := range cs {
		owners[c.id] = struct{}{}
		if c.displayName {
			displayOwners[c.id] = struct{}{}
		}
	}
	if len(owners) == 1 {
		return cs[0].id, true
	}
	if len(displayOwners) == 1 {
		for id := range displayOwners {
			return id, true
		}
	}
	return "", false
}

// ResolveAliases returns every surface form of f: the display name, explicit
// aliases ("A / B" values split into tokens) and, for individuals that belong
// to groups, "<Group> <alias>" forms. Groups do not receive member names.
func (r *Registry) ResolveAliases(f *model.PublicFigure) []string {
	var base []string
	seen := map[string]struct{}{}
	add := func(dst *[]string, v string) {
		key := Fold(v)
		if key == "" {
			return
		}
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		*dst = append(*dst, v)
	}

	for _, v := range append([]string{f.DisplayName}, f.Aliases...) {
		for _, token := range splitAlias(v) {
			add(&base, token)
		}
	}
	if f.IsGroup {
		return base
	}

	resolved := slices.Clone(base)
	for _, groupID := range r.groupsOf[f.ID] {
		group := r.figures[groupID]
		for _, alias := range base {
			add(&resolved, group.DisplayName+" "+alias)
		}
	}
	return resolved
}

// Lookup resolves a surface form to a figure. Matching is case-insensitive
// on folded text and falls back to canonical ID normalization.
func (r *Registry) Lookup(token string) (types.FigureID, bool) {
	if id, ok := r.aliases[Fold(token)]; ok {
		return id, true
	}
	id := types.NormalizeFigureID(token)
	if _, ok := r.figures[id]; ok {
		return id, true
	}
	return "", false
}

// Figure returns the figure with id
func (r *Registry) Figure(id types.FigureID) (*model.PublicFigure, bool) {
	f, ok := r.figures[id]
	return f, ok
}

// IDs returns all figure IDs in lexical order
func (r *Registry) IDs() []types.FigureID {
	return slices.Clone(r.ids)
}

func (r *Registry) Len() int {
	return len(r.ids)
}

// Groups returns the groups id belongs to
func (r *Registry) Groups(id types.FigureID) []types.FigureID {
	return slices.Clone(r.groupsOf[id])
}

// Ambiguous returns folded aliases claimed by more than one figure and
// therefore not indexed
func (r *Registry) Ambiguous() []string {
	return slices.Clone(r.ambiguous)
}

// Entries returns the alias index sorted by alias
func (r *Registry) Entries() []Entry {
	entries := make([]Entry, 0, len(r.aliases))
	for alias, id := range r.aliases {
		entries = append(entries, Entry{Alias: alias, FigureID: id})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Alias < entries[j].Alias
	})
	return entries
}

// FigureContext describes id for the summarizer
func (r *Registry) FigureContext(id types.FigureID) (model.FigureContext, error) {
	f, ok := r.figures[id]
	if !ok {
		return model.FigureContext{}, goerr.Wrap(ErrUnknownFigure, "figure not in registry", goerr.V("figure_id", id))
	}

	fc := model.FigureContext{
		ID:          f.ID,
		DisplayName: f.DisplayName,
		Aliases:     r.ResolveAliases(f),
		IsGroup:     f.IsGroup,
	}
	for _, groupID := range r.groupsOf[id] {
		fc.Groups = append(fc.Groups, r.figures[groupID].DisplayName)
	}
	if f.IsGroup {
		for _, memberID := range f.Members {
			if m, ok := r.figures[memberID]; ok {
				fc.Members = append(fc.Members, m.DisplayName)
			}
		}
	}
	return fc, nil
}
