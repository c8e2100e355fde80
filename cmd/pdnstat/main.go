// Command pdnstat inspects PDN files from the shell: it parses, compares,
// re-exports and summarizes collections without starting the MCP server.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/dmmcquay/pdn-mcp/internal/pdn"
	"github.com/dmmcquay/pdn-mcp/internal/similarity"
	"github.com/dmmcquay/pdn-mcp/internal/stats"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "pdnstat",
		Short:        "Inspect PDN draughts collections",
		SilenceUsage: true,
	}
	root.AddCommand(newParseCmd(), newCompareCmd(), newExportCmd(), newStatsCmd())
	return root
}

func newParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse FILE",
		Short: "Print the games of a PDN file as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			games, err := load(cmd, args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), games)
		},
	}
}

func newCompareCmd() *cobra.Command {
	var (
		maxDistance int
		workers     int
		asJSON      bool
	)
	cmd := &cobra.Command{
		Use:   "compare FILE",
		Short: "Print the Hamming distance of every pair of games",
		Long: `Compare decodes the FEN tag of every game into a 50-square fingerprint
and prints the number of differing squares for each pair. Pairs are listed
as i j distance with zero-based game indices.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			games, err := load(cmd, args[0])
			if err != nil {
				return err
			}
			distances, err := similarity.NewComparator(workers).CompareGames(games)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("max-distance") {
				distances = similarity.Within(distances, maxDistance)
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), distances)
			}
			for _, d := range distances {
				fmt.Fprintf(cmd.OutOrStdout(), "%d %d %d\n", d.I, d.J, d.Distance)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&maxDistance, "max-distance", 0, "only print pairs closer than this")
	cmd.Flags().IntVar(&workers, "workers", 0, "comparison goroutines (0 means GOMAXPROCS)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of text")
	return cmd
}

func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export FILE",
		Short: "Re-serialize a PDN file in canonical form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			games, err := load(cmd, args[0])
			if err != nil {
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), pdn.Dumps(games))
			return err
		},
	}
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats FILE",
		Short: "Count games by year, event and author",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			games, err := load(cmd, args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), stats.Summarize(games))
		},
	}
}

// load parses path, or standard input when path is "-".
func load(cmd *cobra.Command, path string) ([]*pdn.Game, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	games, err := pdn.Loads(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return games, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
