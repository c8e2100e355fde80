package pdn

import (
	"regexp"
	"strings"
)

var moveNumberPrefix = regexp.MustCompile(`^\s*(\d+\.+\s*)?`)

// SplitMoves splits a move block into ply and annotation tokens. Move numbers
// are dropped; annotations keep their braces. Plies are separated by the
// space character only; a tab between two plies leaves them in one token.
func SplitMoves(block string) []string {
	var moves []string
	rest := block
	for rest != "" {
		rest = moveNumberPrefix.ReplaceAllString(rest, "")
		if rest == "" {
			break
		}

		var end int
		if strings.HasPrefix(rest, "{") {
			end = strings.Index(rest, "}") + 1
		} else {
			end = nearestPositive(strings.Index(rest, " "), strings.Index(rest, "{"))
		}

		if end <= 0 {
			moves = append(moves, rest)
			break
		}
		moves = append(moves, rest[:end])
		rest = rest[end:]
	}
	return moves
}

// nearestPositive returns the smaller of two positive offsets, or -1.
func nearestPositive(a, b int) int {
	switch {
	case a <= 0:
		return b
	case b <= 0:
		return a
	case a < b:
		return a
	default:
		return b
	}
}
