package similarity

import (
	"runtime"
	"sort"

	"github.com/dmmcquay/pdn-mcp/internal/pdn"
	"golang.org/x/sync/errgroup"
)

// Distance is the Hamming distance between games I and J of a batch, I < J.
type Distance struct {
	I        int `json:"i"`
	J        int `json:"j"`
	Distance int `json:"distance"`
}

// Comparator computes all pairwise distances of a batch.
type Comparator struct {
	workers int
}

// NewComparator returns a Comparator using up to workers goroutines.
// workers < 1 selects GOMAXPROCS; workers == 1 evaluates sequentially.
func NewComparator(workers int) *Comparator {
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Comparator{workers: workers}
}

// Workers returns the configured parallelism.
func (c *Comparator) Workers() int {
	return c.workers
}

// PairCount returns the number of unordered pairs in a batch of n.
func PairCount(n int) int {
	if n < 2 {
		return 0
	}
	return n * (n - 1) / 2
}

// Compare returns the distance of every pair (i, j), i < j, ordered by i then
// j. No pair is filtered out.
func (c *Comparator) Compare(fingerprints []string) ([]Distance, error) {
	n := len(fingerprints)
	if n < 2 {
		return []Distance{}, nil
	}
	// Checking every length against the first one reports the earliest
	// offending pair in (i, j) order regardless of scheduling.
	for j := 1; j < n; j++ {
		if len(fingerprints[j]) != len(fingerprints[0]) {
			return nil, &MismatchError{I: 0, J: j, LenI: len(fingerprints[0]), LenJ: len(fingerprints[j])}
		}
	}

	chunks := c.workers
	if chunks > n-1 {
		chunks = n - 1
	}
	if chunks == 1 {
		return compareRows(fingerprints, 0, 1)
	}

	partials := make([][]Distance, chunks)
	var g errgroup.Group
	g.SetLimit(c.workers)
	for k := 0; k < chunks; k++ {
		k := k
		g.Go(func() error {
			part, err := compareRows(fingerprints, k, chunks)
			partials[k] = part
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return merge(partials, PairCount(n)), nil
}

// CompareGames compares the fingerprints of a parsed batch.
func (c *Comparator) CompareGames(games []*pdn.Game) ([]Distance, error) {
	return c.Compare(Fingerprints(games))
}

// Fingerprints extracts the fingerprint of every game, in batch order.
func Fingerprints(games []*pdn.Game) []string {
	fps := make([]string, len(games))
	for i, g := range games {
		fps[i] = g.Fingerprint()
	}
	return fps
}

// compareRows evaluates rows first, first+stride, ... of the pair triangle.
// Interleaving rows keeps the work per chunk balanced.
func compareRows(fps []string, first, stride int) ([]Distance, error) {
	n := len(fps)
	var out []Distance
	for i := first; i < n-1; i += stride {
		for j := i + 1; j < n; j++ {
			d, err := Hamming(fps[i], fps[j])
			if err != nil {
				return nil, &MismatchError{I: i, J: j, LenI: len(fps[i]), LenJ: len(fps[j])}
			}
			out = append(out, Distance{I: i, J: j, Distance: d})
		}
	}
	return out, nil
}

func merge(partials [][]Distance, total int) []Distance {
	out := make([]Distance, 0, total)
	for _, p := range partials {
		out = append(out, p...)
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].I != out[b].I {
			return out[a].I < out[b].I
		}
		return out[a].J < out[b].J
	})
	return out
}

// Within returns the distances strictly below limit. Callers choose the limit;
// Compare itself never filters.
func Within(distances []Distance, limit int) []Distance {
	out := make([]Distance, 0, len(distances))
	for _, d := range distances {
		if d.Distance < limit {
			out = append(out, d)
		}
	}
	return out
}
