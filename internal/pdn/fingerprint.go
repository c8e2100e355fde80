package pdn

import (
	"strconv"
	"strings"
)

const (
	// BoardSquares is the number of playable squares on an international board.
	BoardSquares = 50

	EmptySquare = '-'
	manA        = 'o'
	manB        = 'x'
)

// DecodeFingerprint converts a FEN position field such as
// "W:W31,32,K33:B1,2." into a 50-character occupancy string. Empty squares
// are '-', men of the W group 'o', men of the other group 'x'; kings use the
// upper-case glyph.
//
// The field's last character is a terminator and is dropped unless it is a
// digit. Groups of a single character (the side-to-move marker) carry no
// squares and are skipped.
func DecodeFingerprint(field string) (string, error) {
	board := []byte(strings.Repeat(string(EmptySquare), BoardSquares))

	field = strings.TrimSpace(field)
	if n := len(field); n > 0 && !isDigit(field[n-1]) {
		field = field[:n-1]
	}
	if field == "" {
		return string(board), nil
	}

	for _, group := range strings.Split(field, ":") {
		group = strings.TrimSpace(group)
		if len(group) < 2 {
			continue
		}
		glyph := byte(manB)
		if group[0] == 'W' || group[0] == 'w' {
			glyph = manA
		}

		for _, desc := range strings.Split(group[1:], ",") {
			desc = strings.TrimSpace(desc)
			if desc == "" {
				continue
			}
			g := glyph
			if desc[0] == 'K' || desc[0] == 'k' {
				g = glyph - 'a' + 'A'
				desc = desc[1:]
			}
			square, err := parseSquare(desc)
			if err != nil {
				return "", &ParseError{Kind: ErrInvalidSquareIndex, Token: desc, Err: err}
			}
			board[square-1] = g
		}
	}
	return string(board), nil
}

func parseSquare(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n < 1 || n > BoardSquares {
		return 0, strconv.ErrRange
	}
	return n, nil
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
