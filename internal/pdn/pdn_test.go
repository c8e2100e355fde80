package pdn

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDocument = `[Event "Training"]
[Site "Amsterdam"]
[Date "1990.04.01"]
[White "Sijbrands"]
[Black "Roozenburg"]
[Result "2-0"]
[FEN "W:W31,32,K33:B1,2,K3."]
[Annotator "Blom"]
[Opening "Raphael"] ; house convention
1. 32-28 19-23 2. 28x19 {forced} 14x23
3. 31-27

[Event "Club"]
[White "Weiss"]
[Black "Bronstring"]
1. 33-29 18-23
`

// gameView flattens a Game into comparable values.
type gameView struct {
	Tags        map[string]string
	Moves       []string
	Fingerprint string
}

func views(games []*Game) []gameView {
	out := make([]gameView, 0, len(games))
	for _, g := range games {
		out = append(out, gameView{Tags: g.Tags(), Moves: g.Moves(), Fingerprint: g.Fingerprint()})
	}
	return out
}

func TestLoads(t *testing.T) {
	games, err := Loads(sampleDocument)
	require.NoError(t, err)
	require.Len(t, games, 2)

	first := games[0]
	event, ok := first.Tag(EventTag)
	assert.True(t, ok)
	assert.Equal(t, "Training", event)
	assert.Equal(t, "Blom", first.Get(AnnotatorTag))
	opening, ok := first.Extra("opening")
	assert.True(t, ok)
	assert.Equal(t, "Raphael", opening)
	assert.Equal(t, []string{"32-28", "19-23", "28x19", "{forced}", "14x23", "31-27"}, first.Moves())
	assert.Equal(t, 5, first.PlyCount())

	year, ok := first.Year()
	assert.True(t, ok)
	assert.Equal(t, "1990", year)

	second := games[1]
	_, ok = second.Tag(DateTag)
	assert.False(t, ok, "unset tags are absent")
	assert.Equal(t, UnknownValue, second.Get(DateTag))
	assert.Equal(t, []string{"33-29", "18-23"}, second.Moves())
	assert.Equal(t, strings.Repeat("-", BoardSquares), second.Fingerprint())
}

func TestLoadsEmptyDocument(t *testing.T) {
	for _, doc := range []string{"", "\n\n", "   \r\n  ", "; only a comment\n"} {
		games, err := Loads(doc)
		require.NoError(t, err)
		assert.Empty(t, games)
	}
}

func TestLoadsTagNamesAreCaseInsensitive(t *testing.T) {
	games, err := Loads("[event \"Open\"]\n[WHITE \"A\"]\n1. 32-28")
	require.NoError(t, err)
	require.Len(t, games, 1)
	assert.Equal(t, map[string]string{"Event": "Open", "White": "A"}, games[0].Tags())
}

func TestLoadsUnknownMarkerLeavesTagUnset(t *testing.T) {
	games, err := Loads("[Event \"?\"]\n[Site \"\"]\n1. 32-28")
	require.NoError(t, err)
	_, ok := games[0].Tag(EventTag)
	assert.False(t, ok)
	_, ok = games[0].Tag(SiteTag)
	assert.False(t, ok)
}

func TestLoadsUnknownMarkerKeptOutsideRequiredBlock(t *testing.T) {
	games, err := Loads("[Event \"?\"]\n[GameType \"?\"]\n[FEN \"?\"]\n[Opening \"?\"]\n1. 32-28")
	require.NoError(t, err)
	g := games[0]

	v, ok := g.Tag(GameTypeTag)
	assert.True(t, ok)
	assert.Equal(t, UnknownValue, v)
	v, ok = g.Extra("Opening")
	assert.True(t, ok)
	assert.Equal(t, UnknownValue, v)
	assert.Equal(t, strings.Repeat("-", BoardSquares), g.Fingerprint())

	out := Dump(g)
	for _, line := range []string{`[Event "?"]`, `[GameType "?"]`, `[FEN "?"]`, `[Opening "?"]`} {
		assert.Contains(t, out, line)
	}
}

func TestTagRequired(t *testing.T) {
	for _, tag := range []TagName{EventTag, SiteTag, DateTag, RoundTag, WhiteTag, BlackTag, ResultTag} {
		assert.True(t, tag.Required(), tag.String())
	}
	for _, tag := range []TagName{GameTypeTag, SetupTag, FENTag, PlyCountTag, AnnotatorTag} {
		assert.False(t, tag.Required(), tag.String())
	}
}

func TestLoadsTrailingGameWithoutMoves(t *testing.T) {
	games, err := Loads("[Event \"A\"]\n1. 32-28\n[Event \"B\"]\n[FEN \"W:W1:B50.\"]\n")
	require.NoError(t, err)
	require.Len(t, games, 2)
	assert.False(t, games[1].HasMoves())
	assert.Len(t, games[1].Fingerprint(), BoardSquares)
	assert.Equal(t, byte('o'), games[1].Fingerprint()[0])
}

func TestLoadsMalformedTag(t *testing.T) {
	tests := []string{
		"[Event Foo",
		"[Event \"Foo\"",
		"[Event Foo]",
		"[\"Foo\"]",
	}
	for _, doc := range tests {
		t.Run(doc, func(t *testing.T) {
			_, err := Loads(doc)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedTag))

			var pe *ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, 1, pe.Line)
			assert.Equal(t, doc, pe.Token)
		})
	}
}

func TestLoadsMovesWithoutGame(t *testing.T) {
	_, err := Loads("\n\n1. 32-28 20-25\n[Event \"x\"]")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMovesWithoutGame)
	assert.Equal(t, "moves_without_game", KindOf(err))

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 3, pe.Line)
}

func TestLoadsInvalidSquareIndex(t *testing.T) {
	_, err := Loads("[FEN \"W:W1,x2:B3.\"]\n1. 32-28")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidSquareIndex)

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 2, pe.Line)
	assert.Equal(t, "x2", pe.Token)
}

func TestLoadsMoveNumbersOnlyDoNotEndGame(t *testing.T) {
	games, err := Loads("[Event \"a\"]\n1.\n[Site \"b\"]\n1. 32-28")
	require.NoError(t, err)
	require.Len(t, games, 1)
	assert.Equal(t, map[string]string{"Event": "a", "Site": "b"}, games[0].Tags())
	assert.Equal(t, []string{"32-28"}, games[0].Moves())
}

func TestLoadsFENAfterEmptyBlock(t *testing.T) {
	games, err := Loads("[Event \"a\"]\n12...\n[FEN \"W:W1:B50.\"]\n12... 20-25")
	require.NoError(t, err)
	require.Len(t, games, 1)
	assert.Equal(t, byte('o'), games[0].Fingerprint()[0])
	assert.Equal(t, byte('x'), games[0].Fingerprint()[49])
}

func TestRoundTrip(t *testing.T) {
	docs := map[string]string{
		"sample":             sampleDocument,
		"leading note":       "[Event \"x\"]\n{intro} 1. 32-28 {a b} 20-25",
		"black to move":      "[Event \"x\"]\n[FEN \"B:W31,K50:B1,K2.\"]\n1... 20-25 2. 32-28",
		"single game":        "[White \"A\"]\n[Black \"B\"]\n1. 32-28",
		"empty game first":   "[Event \"a\"]\n1.\n[Site \"b\"]\n1. 32-28\n[Event \"c\"]\n1. 33-29",
		"move numbers only":  "[Event \"a\"]\n1. 2...\n[Site \"b\"]\n1. 32-28 20-25\n\n[Event \"c\"]\n[FEN \"W:W31:B1.\"]\n",
		"moveless then game": "[Event \"a\"]\n[Event \"b\"]\n1. 32-28\n[Event \"c\"]",
	}
	for name, doc := range docs {
		t.Run(name, func(t *testing.T) {
			games, err := Loads(doc)
			require.NoError(t, err)

			again, err := Loads(Dumps(games))
			require.NoError(t, err)
			if diff := cmp.Diff(views(games), views(again)); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestGameAccessorsReturnCopies(t *testing.T) {
	games, err := Loads("[Event \"x\"]\n1. 32-28 20-25")
	require.NoError(t, err)
	moves := games[0].Moves()
	moves[0] = "changed"
	assert.Equal(t, "32-28", games[0].Moves()[0])
}
