package pdn

import (
	"regexp"
	"strings"
)

// tagLine matches `[Name "value"]` and `[Name [value]]`.
var tagLine = regexp.MustCompile(`^\[\s*(\w+)\s*(?:"(.*)"|\[(.*)\])\s*\]$`)

// ParseTag splits a tag token into its name and value. The name is returned
// as written; the value is stripped of surrounding quotes, brackets and spaces.
func ParseTag(token string) (string, string, error) {
	m := tagLine.FindStringSubmatch(strings.TrimSpace(token))
	if m == nil {
		return "", "", &ParseError{Kind: ErrMalformedTag, Token: token}
	}
	value := m[2]
	if value == "" {
		value = m[3]
	}
	return m[1], strings.Trim(value, `"[] `), nil
}

// boundaryState tracks the game currently being assembled.
type boundaryState int

const (
	noGame       boundaryState = iota // nothing assembled yet
	awaitingTags                      // current game accepts more tags
	hasMoves                          // current game is sealed
)

// transition decides what a token does to the current game. newGame reports
// whether the token opens a new Game before being applied. A move block that
// holds no moves (only move numbers) leaves the game open for more tags.
func transition(state boundaryState, kind TokenKind, emptyBlock bool) (next boundaryState, newGame bool, err error) {
	switch kind {
	case TagToken:
		switch state {
		case noGame, hasMoves:
			return awaitingTags, true, nil
		default:
			return awaitingTags, false, nil
		}
	case MoveBlockToken:
		if state == noGame {
			return state, false, ErrMovesWithoutGame
		}
		if emptyBlock {
			return state, false, nil
		}
		return hasMoves, false, nil
	}
	return state, false, nil
}

// Assemble builds Games from tokens in encounter order.
func Assemble(tokens []Token) ([]*Game, error) {
	a := &assembler{}
	for _, tok := range tokens {
		if err := a.feed(tok); err != nil {
			return nil, err
		}
	}
	return a.finish()
}

// Loads parses a document into Games.
func Loads(text string) ([]*Game, error) {
	t := NewTokenizer(text)
	a := &assembler{}
	for {
		tok, ok := t.Next()
		if !ok {
			break
		}
		if err := a.feed(tok); err != nil {
			return nil, err
		}
	}
	return a.finish()
}

type assembler struct {
	state   boundaryState
	current *Game
	games   []*Game
}

func (a *assembler) feed(tok Token) error {
	var moves []string
	if tok.Kind == MoveBlockToken {
		moves = SplitMoves(tok.Text)
	}

	next, open, err := transition(a.state, tok.Kind, len(moves) == 0)
	if err != nil {
		return &ParseError{Kind: err, Line: tok.Line, Token: tok.Text}
	}

	switch tok.Kind {
	case TagToken:
		name, value, err := ParseTag(tok.Text)
		if err != nil {
			return withLine(err, tok.Line)
		}
		if open {
			a.current = newGame()
			a.games = append(a.games, a.current)
		}
		a.current.setTag(name, value)
	case MoveBlockToken:
		if len(moves) == 0 {
			break
		}
		if err := a.current.seal(moves); err != nil {
			return withLine(err, tok.Line)
		}
	}
	a.state = next
	return nil
}

// finish seals a trailing game that never received a non-empty move block.
func (a *assembler) finish() ([]*Game, error) {
	if a.state == awaitingTags {
		if err := a.current.seal(nil); err != nil {
			return nil, err
		}
	}
	return a.games, nil
}

func withLine(err error, line int) error {
	if pe, ok := err.(*ParseError); ok && pe.Line == 0 {
		pe.Line = line
	}
	return err
}
