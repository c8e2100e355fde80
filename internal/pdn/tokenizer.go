// Package pdn reads and writes Portable Draughts Notation documents.
//
// A document is a sequence of tag lines (`[Event "..."]`) and move blocks
// (`1. 32-28 20-25 2. 31-27`). Loads turns a document into Games, Dumps turns
// Games back into a document that Loads reads into equivalent Games.
package pdn

import "strings"

// TokenKind distinguishes tag lines from move blocks.
type TokenKind int

const (
	TagToken TokenKind = iota
	MoveBlockToken
)

func (k TokenKind) String() string {
	switch k {
	case TagToken:
		return "tag"
	case MoveBlockToken:
		return "moves"
	default:
		return "unknown"
	}
}

// Token is a raw lexical unit of a document.
type Token struct {
	Kind TokenKind
	Text string
	Line int // 1-based line where the token starts
}

type sourceLine struct {
	text string
	num  int
}

// Tokenizer produces tokens lazily in document order. It consumes its input
// once and cannot be restarted.
type Tokenizer struct {
	lines []sourceLine
	pos   int
}

// NewTokenizer prepares text for tokenizing: line endings are normalized,
// end-of-line comments removed and blank lines dropped.
func NewTokenizer(text string) *Tokenizer {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var lines []sourceLine
	for i, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(stripComment(raw))
		if line == "" {
			continue
		}
		lines = append(lines, sourceLine{text: line, num: i + 1})
	}
	return &Tokenizer{lines: lines}
}

// Next returns the next token, or false once the input is exhausted.
func (t *Tokenizer) Next() (Token, bool) {
	if t.pos >= len(t.lines) {
		return Token{}, false
	}

	first := t.lines[t.pos]
	t.pos++
	if strings.HasPrefix(first.text, "[") {
		return Token{Kind: TagToken, Text: first.text, Line: first.num}, true
	}

	var sb strings.Builder
	sb.WriteString(first.text)
	for t.pos < len(t.lines) && !strings.HasPrefix(t.lines[t.pos].text, "[") {
		sb.WriteByte(' ')
		sb.WriteString(t.lines[t.pos].text)
		t.pos++
	}
	return Token{Kind: MoveBlockToken, Text: sb.String(), Line: first.num}, true
}

// Tokenize returns every token of text.
func Tokenize(text string) []Token {
	t := NewTokenizer(text)
	var tokens []Token
	for {
		tok, ok := t.Next()
		if !ok {
			return tokens
		}
		tokens = append(tokens, tok)
	}
}

// stripComment cuts the line at the first ';' not preceded by a backslash.
func stripComment(line string) string {
	for i := 0; i < len(line); i++ {
		if line[i] == ';' && (i == 0 || line[i-1] != '\\') {
			return line[:i]
		}
	}
	return line
}
