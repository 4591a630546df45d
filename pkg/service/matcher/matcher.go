package matcher

import (
	"slices"
	"sort"
	"unicode"

	"github.com/starlog-lab/starlog/pkg/domain/types"
	"github.com/starlog-lab/starlog/pkg/service/registry"
)

// Match is one accepted alias occurrence. Start and End are rune offsets in
// the folded body (see registry.FoldRunes).
type Match struct {
	FigureID types.FigureID
	Alias    string
	Start    int
	End      int
}

type pattern struct {
	runes    []rune
	figureID types.FigureID
}

type node struct {
	next map[rune]int32
	fail int32
	// patterns ending here, including those reachable through fail links
	out []int32
}

// Matcher finds registry aliases in article text with an Aho-Corasick
// automaton. It is built once and safe for concurrent use.
type Matcher struct {
	patterns []pattern
	nodes    []node
}

// New builds the automaton over every indexed alias of reg
func New(reg *registry.Registry) *Matcher {
	m := &Matcher{nodes: []node{{next: map[rune]int32{}}}}
	for _, e := range reg.Entries() {
		m.insert(pattern{runes: []rune(e.Alias), figureID: e.FigureID})
	}
	m.link()
	return m
}

func (m *Matcher) insert(p pattern) {
	idx := int32(len(m.patterns))
	m.patterns = append(m.patterns, p)

	cur := int32(0)
	for _, r := range p.runes {
		nxt, ok := m.nodes[cur].next[r]
		if !ok {
			nxt = int32(len(m.nodes))
			m.nodes = append(m.nodes, node{next: map[rune]int32{}})
			m.nodes[cur].next[r] = nxt
		}
		cur = nxt
	}
	m.nodes[cur].out = append(m.nodes[cur].out, idx)
}

// link computes fail links breadth first and merges outputs along them
func (m *Matcher) link() {
	queue := make([]int32, 0, len(m.nodes))
	for _, child := range m.nodes[0].next {
		m.nodes[child].fail = 0
		queue = append(queue, child)
	}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for r, child := range m.nodes[cur].next {
			f := m.nodes[cur].fail
			for f != 0 {
				if _, ok := m.nodes[f].next[r]; ok {
					break
				}
				f = m.nodes[f].fail
			}
			if nxt, ok := m.nodes[f].next[r]; ok && nxt != child {
				m.nodes[child].fail = nxt
			} else {
				m.nodes[child].fail = 0
			}
			failOut := m.nodes[m.nodes[child].fail].out
			m.nodes[child].out = append(m.nodes[child].out, failOut...)
			queue = append(queue, child)
		}
	}
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// onBoundary reports whether text[start:end] is not glued to a neighbouring
// letter or digit. Edges of the alias that are not letters or digits need no
// boundary.
func onBoundary(text []rune, start, end int) bool {
	if isWordRune(text[start]) && start > 0 && isWordRune(text[start-1]) {
		return false
	}
	if isWordRune(text[end-1]) && end < len(text) && isWordRune(text[end]) {
		return false
	}
	return true
}

// Match returns the accepted alias occurrences in body ordered by position.
// Where candidates overlap the longest alias wins, ties going to the
// leftmost one.
func (m *Matcher) Match(body string) []Match {
	text := registry.FoldRunes(body)
	if len(text) == 0 || len(m.patterns) == 0 {
		return nil
	}

	var candidates []Match
	state := int32(0)
	for i, r := range text {
		for state != 0 {
			if _, ok := m.nodes[state].next[r]; ok {
				break
			}
			state = m.nodes[state].fail
		}
		if nxt, ok := m.nodes[state].next[r]; ok {
			state = nxt
		}

		for _, idx := range m.nodes[state].out {
			p := m.patterns[idx]
			end := i + 1
			start := end - len(p.runes)
			if !onBoundary(text, start, end) {
				continue
			}
			candidates = append(candidates, Match{
				FigureID: p.figureID,
				Alias:    string(p.runes),
				Start:    start,
				End:      end,
			})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		li := candidates[i].End - candidates[i].Start
		lj := candidates[j].End - candidates[j].Start
		if li != lj {
			return li > lj
		}
		return candidates[i].Start < candidates[j].Start
	})

	taken := make([]bool, len(text))
	var accepted []Match
	for _, c := range candidates {
		if slices.Contains(taken[c.Start:c.End], true) {
			continue
		}
		for i := c.Start; i < c.End; i++ {
			taken[i] = true
		}
		accepted = append(accepted, c)
	}

	sort.Slice(accepted, func(i, j int) bool {
		return accepted[i].Start < accepted[j].Start
	})
	return accepted
}

// FindMentions returns the distinct figures mentioned in body, sorted by ID
func (m *Matcher) FindMentions(body string) []types.FigureID {
	seen := map[types.FigureID]struct{}{}
	var ids []types.FigureID
	for _, match := range m.Match(body) {
		if _, ok := seen[match.FigureID]; ok {
			continue
		}
		seen[match.FigureID] = struct{}{}
		ids = append(ids, match.FigureID)
	}
	slices.Sort(ids)
	return ids
}

// Size returns the number of indexed aliases
func (m *Matcher) Size() int {
	return len(m.patterns)
}
