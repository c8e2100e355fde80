package pdn

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Game is a single game record reconstructed from a PDN document.
// A Game is immutable once built; accessors return copies.
type Game struct {
	tags        map[TagName]string
	extra       []ExtraTag
	moves       []string
	fingerprint string
}

func newGame() *Game {
	return &Game{tags: make(map[TagName]string)}
}

// setTag assigns a tag by its name as written in the document. Empty values
// leave the tag unset, as does the unknown marker on a required tag, which
// Dump writes back anyway. Other tags keep the marker verbatim.
func (g *Game) setTag(name, value string) {
	if value == "" {
		return
	}
	if t, ok := LookupTag(name); ok {
		if value == UnknownValue && t.Required() {
			return
		}
		g.tags[t] = value
		return
	}
	for i := range g.extra {
		if strings.EqualFold(g.extra[i].Name, name) {
			g.extra[i].Value = value
			return
		}
	}
	g.extra = append(g.extra, ExtraTag{Name: name, Value: value})
}

// seal derives the fingerprint and stores the moves. It is the last mutation
// a Game receives.
func (g *Game) seal(moves []string) error {
	fp, err := DecodeFingerprint(g.tags[FENTag])
	if err != nil {
		return err
	}
	g.fingerprint = fp
	g.moves = moves
	return nil
}

// Tag returns the value of a recognized tag and whether it is set.
func (g *Game) Tag(t TagName) (string, bool) {
	v, ok := g.tags[t]
	return v, ok
}

// Get returns the value of a recognized tag, or UnknownValue when unset.
func (g *Game) Get(t TagName) string {
	if v, ok := g.tags[t]; ok {
		return v
	}
	return UnknownValue
}

// Extra returns the value of a tag outside the recognized vocabulary.
func (g *Game) Extra(name string) (string, bool) {
	for _, e := range g.extra {
		if strings.EqualFold(e.Name, name) {
			return e.Value, true
		}
	}
	return "", false
}

// Extras returns the unrecognized tags in document order.
func (g *Game) Extras() []ExtraTag {
	out := make([]ExtraTag, len(g.extra))
	copy(out, g.extra)
	return out
}

// Tags returns every set tag keyed by its canonical name.
func (g *Game) Tags() map[string]string {
	out := make(map[string]string, len(g.tags)+len(g.extra))
	for t, v := range g.tags {
		out[t.String()] = v
	}
	for _, e := range g.extra {
		out[e.Name] = e.Value
	}
	return out
}

// Moves returns the move tokens, annotations included.
func (g *Game) Moves() []string {
	out := make([]string, len(g.moves))
	copy(out, g.moves)
	return out
}

// HasMoves reports whether a move block has been assigned.
func (g *Game) HasMoves() bool {
	return len(g.moves) > 0
}

// PlyCount counts the ply tokens, skipping annotations.
func (g *Game) PlyCount() int {
	n := 0
	for _, m := range g.moves {
		if !IsAnnotation(m) {
			n++
		}
	}
	return n
}

// Fingerprint returns the 50-character board occupancy string.
func (g *Game) Fingerprint() string {
	return g.fingerprint
}

// Year returns the first four characters of a known Date tag.
func (g *Game) Year() (string, bool) {
	date, ok := g.tags[DateTag]
	if !ok || len(date) < 4 {
		return "", false
	}
	return date[:4], true
}

func (g *Game) String() string {
	return fmt.Sprintf("%s vs %s, %s", g.Get(WhiteTag), g.Get(BlackTag), g.Get(DateTag))
}

// MarshalJSON renders the game for tool output.
func (g *Game) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Tags        map[string]string `json:"tags"`
		Moves       []string          `json:"moves"`
		Fingerprint string            `json:"fingerprint"`
	}{
		Tags:        g.Tags(),
		Moves:       g.Moves(),
		Fingerprint: g.fingerprint,
	})
}

// IsAnnotation reports whether a move token is a brace-delimited annotation.
func IsAnnotation(token string) bool {
	return strings.HasPrefix(token, "{")
}

// Builder constructs a Game outside of document parsing.
type Builder struct {
	g *Game
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{g: newGame()}
}

// Tag sets a tag by name; unrecognized names become extra tags.
func (b *Builder) Tag(name, value string) *Builder {
	b.g.setTag(name, value)
	return b
}

// Moves sets the move tokens.
func (b *Builder) Moves(moves ...string) *Builder {
	b.g.moves = append([]string(nil), moves...)
	return b
}

// Build derives the fingerprint and returns the finished Game.
func (b *Builder) Build() (*Game, error) {
	g := b.g
	b.g = newGame()
	if err := g.seal(g.moves); err != nil {
		return nil, err
	}
	return g, nil
}
