package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmmcquay/pdn-mcp/internal/pdn"
	"github.com/dmmcquay/pdn-mcp/internal/stats"
)

const collection = `[Event "Problemblad"]
[Date "1921.03.01"]
[White "Blom"]
[FEN "W:W31,32:B1,2."]
1. 32-28

[Event "Problemblad"]
[White "Weiss"]
[FEN "W:W31,33:B1,2."]
1. 33-29

[Event "Het Damspel"]
[White "Bonnard"]
[FEN "W:W31,32:B1,3."]
1. 31-26
`

func writeCollection(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "games.pdn")
	require.NoError(t, os.WriteFile(path, []byte(collection), 0o644))
	return path
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.Execute()
	return out.String(), err
}

func TestCompareCmd(t *testing.T) {
	path := writeCollection(t)

	out, err := execute(t, "", "compare", path)
	require.NoError(t, err)
	assert.Equal(t, "0 1 2\n0 2 2\n1 2 4\n", out)

	out, err = execute(t, "", "compare", "--max-distance", "3", "--workers", "2", path)
	require.NoError(t, err)
	assert.Equal(t, "0 1 2\n0 2 2\n", out)

	out, err = execute(t, "", "compare", "--json", "--max-distance", "0", path)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", out)
}

func TestParseCmdReadsStdin(t *testing.T) {
	out, err := execute(t, collection, "parse", "-")
	require.NoError(t, err)

	var games []struct {
		Tags map[string]string `json:"tags"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &games))
	require.Len(t, games, 3)
	assert.Equal(t, "Bonnard", games[2].Tags["White"])
}

func TestExportCmd(t *testing.T) {
	out, err := execute(t, "", "export", writeCollection(t))
	require.NoError(t, err)

	games, err := pdn.Loads(collection)
	require.NoError(t, err)
	assert.Equal(t, pdn.Dumps(games), out)
}

func TestStatsCmd(t *testing.T) {
	out, err := execute(t, "", "stats", writeCollection(t))
	require.NoError(t, err)

	var s stats.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &s))
	assert.Equal(t, 3, s.Games)
	assert.Equal(t, []stats.Count{{Value: "1921", Count: 1}}, s.Years)
}

func TestCmdErrors(t *testing.T) {
	_, err := execute(t, "", "parse", filepath.Join(t.TempDir(), "missing.pdn"))
	assert.Error(t, err)

	_, err = execute(t, "1. 32-28\n", "parse", "-")
	assert.ErrorIs(t, err, pdn.ErrMovesWithoutGame)

	_, err = execute(t, "", "compare")
	assert.Error(t, err, "a file argument is required")
}
