package stats

import (
	"testing"

	"github.com/dmmcquay/pdn-mcp/internal/pdn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const collection = `[Event "Problemblad"]
[White "Blom"]
[Date "1921.03.01"]
1. 32-28 19-23

[Event "Het Damspel"]
[White "Weiss"]
[Date "1911"]
1. 33-29

[Event "Problemblad"]
[White "Blom"]
[Date "1921"]
1. 31-27 {note} 17-21 2. 27-22

[White "Bonnard"]
1. 34-30
`

func load(t *testing.T) []*pdn.Game {
	t.Helper()
	games, err := pdn.Loads(collection)
	require.NoError(t, err)
	require.Len(t, games, 4)
	return games
}

func TestByYear(t *testing.T) {
	assert.Equal(t, []Count{{"1911", 1}, {"1921", 2}}, ByYear(load(t)))
}

func TestByEvent(t *testing.T) {
	assert.Equal(t, []Count{
		{"Problemblad", 2},
		{"Het Damspel", 1},
		{"?", 1},
	}, ByEvent(load(t)))
}

func TestByAuthor(t *testing.T) {
	assert.Equal(t, []Count{
		{"Blom", 2},
		{"Weiss", 1},
		{"Bonnard", 1},
	}, ByAuthor(load(t)))
}

func TestSummarize(t *testing.T) {
	s := Summarize(load(t))
	assert.Equal(t, 4, s.Games)
	assert.Equal(t, 7, s.Plies)
	assert.Len(t, s.Years, 2)
}

func TestEmptyBatch(t *testing.T) {
	assert.Empty(t, ByYear(nil))
	assert.Empty(t, ByEvent(nil))
	s := Summarize(nil)
	assert.Zero(t, s.Games)
}

func TestYearGraph(t *testing.T) {
	assert.Equal(t, []Count{
		{"1911", 1},
		{"1921", 2},
	}, YearGraph([]string{"1921", "", "1911", "1921"}))
	assert.Equal(t, []Count{}, YearGraph(nil))
}
