package pdn

import (
	"fmt"
	"strconv"
	"strings"
)

// gameSeparator sits between game blocks of a multi-game document.
const gameSeparator = "\n\n\n"

// Dump serializes a single game.
func Dump(g *Game) string {
	var sb strings.Builder
	for t := EventTag; t < numTags; t++ {
		v, ok := g.tags[t]
		switch {
		case ok:
			writeTag(&sb, t.String(), v)
		case int(t) < requiredTags:
			writeTag(&sb, t.String(), UnknownValue)
		}
	}
	for _, e := range g.extra {
		writeTag(&sb, e.Name, e.Value)
	}

	sb.WriteByte('\n')
	sb.WriteString(FormatMoves(g.moves))
	return strings.TrimSpace(sb.String())
}

// Dumps serializes games into one document.
func Dumps(games []*Game) string {
	blocks := make([]string, 0, len(games))
	for _, g := range games {
		blocks = append(blocks, Dump(g))
	}
	return strings.Join(blocks, gameSeparator)
}

// FormatMoves joins move tokens with spaces, numbering every second ply.
// Annotations are not counted.
func FormatMoves(moves []string) string {
	parts := make([]string, 0, len(moves)*3/2)
	ply := 0
	for _, m := range moves {
		if !IsAnnotation(m) {
			if ply%2 == 0 {
				parts = append(parts, strconv.Itoa(ply/2+1)+".")
			}
			ply++
		}
		parts = append(parts, m)
	}
	return strings.Join(parts, " ")
}

func writeTag(sb *strings.Builder, name, value string) {
	fmt.Fprintf(sb, "[%s \"%s\"]\n", name, value)
}
