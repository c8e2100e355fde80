// Package library stores uploaded PDN documents as named collections and
// serves collection views with year histograms and distance matrices.
package library

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/multierr"

	"github.com/dmmcquay/pdn-mcp/internal/config"
	"github.com/dmmcquay/pdn-mcp/internal/logging"
	"github.com/dmmcquay/pdn-mcp/internal/pdn"
	"github.com/dmmcquay/pdn-mcp/internal/similarity"
	"github.com/dmmcquay/pdn-mcp/internal/stats"
	"github.com/dmmcquay/pdn-mcp/internal/store"
)

var (
	ErrNoFile         = errors.New("no file selected")
	ErrFileNotAllowed = errors.New("file type not accepted")
	ErrTooLarge       = errors.New("file too large")
	ErrNoName         = errors.New("no collection name given")
	ErrNameInUse      = store.ErrNameInUse
	ErrNotFound       = store.ErrNotFound
)

// Store is the persistence the library needs; *store.Store implements it.
type Store interface {
	CreateCollection(ctx context.Context, name string) (int64, error)
	DeleteCollection(ctx context.Context, id int64) error
	CollectionByName(ctx context.Context, name string) (store.Collection, error)
	ListCollections(ctx context.Context) ([]store.Collection, error)
	InsertGames(ctx context.Context, collectionID int64, games []store.Game) ([]int64, error)
	InsertDistances(ctx context.Context, collectionID int64, distances []store.Distance) error
	GamesByCollection(ctx context.Context, collectionID int64) ([]store.Game, error)
	DistancesByCollection(ctx context.Context, collectionID int64) ([]store.Distance, error)
	GameByID(ctx context.Context, id int64) (store.Game, error)
	DistanceByID(ctx context.Context, id int64) (store.Distance, error)
}

// Parser turns document text into games; *cache.Manager implements it.
type Parser interface {
	Load(text string) ([]*pdn.Game, bool, error)
}

// Library is the collections service.
type Library struct {
	store      Store
	parser     Parser
	comparator *similarity.Comparator
	upload     config.UploadConfig
	logger     logging.ContextLogger
}

func New(s Store, parser Parser, comparator *similarity.Comparator, upload config.UploadConfig, logger logging.ContextLogger) *Library {
	return &Library{
		store:      s,
		parser:     parser,
		comparator: comparator,
		upload:     upload,
		logger:     logger,
	}
}

// UploadResult describes a stored collection.
type UploadResult struct {
	Collection store.Collection `json:"collection"`
	Games      int              `json:"games"`
	Distances  int              `json:"distances"`
}

// Upload validates, parses and compares a document, then stores it as a new
// collection. The name is lower-cased first. Nothing is stored when parsing
// or comparison fails, and a partially stored collection is removed.
func (l *Library) Upload(ctx context.Context, name, filename, document string) (UploadResult, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	switch {
	case filename == "":
		return UploadResult{}, ErrNoFile
	case !l.upload.AllowedFile(filename):
		return UploadResult{}, fmt.Errorf("%s: %w", filename, ErrFileNotAllowed)
	case l.upload.MaxContentLength > 0 && int64(len(document)) > l.upload.MaxContentLength:
		return UploadResult{}, fmt.Errorf("%d bytes exceeds %d: %w", len(document), l.upload.MaxContentLength, ErrTooLarge)
	case name == "":
		return UploadResult{}, ErrNoName
	}

	if _, err := l.store.CollectionByName(ctx, name); err == nil {
		return UploadResult{}, fmt.Errorf("%q: %w", name, ErrNameInUse)
	} else if !errors.Is(err, store.ErrNotFound) {
		return UploadResult{}, err
	}

	games, _, err := l.parser.Load(document)
	if err != nil {
		return UploadResult{}, fmt.Errorf("parse %s: %w", filename, err)
	}
	distances, err := l.comparator.CompareGames(games)
	if err != nil {
		return UploadResult{}, fmt.Errorf("compare %s: %w", filename, err)
	}

	id, err := l.store.CreateCollection(ctx, name)
	if err != nil {
		return UploadResult{}, err
	}
	if err := l.persist(ctx, id, games, distances); err != nil {
		return UploadResult{}, multierr.Append(err, l.store.DeleteCollection(ctx, id))
	}

	l.logger.WithContext(ctx).Info("Stored collection",
		"collection", name, "games", len(games), "distances", len(distances))
	return UploadResult{
		Collection: store.Collection{ID: id, Name: name, Games: len(games)},
		Games:      len(games),
		Distances:  len(distances),
	}, nil
}

func (l *Library) persist(ctx context.Context, id int64, games []*pdn.Game, distances []similarity.Distance) error {
	rows := make([]store.Game, len(games))
	for i, g := range games {
		rows[i] = GameRow(i, g)
	}
	ids, err := l.store.InsertGames(ctx, id, rows)
	if err != nil {
		return err
	}

	pairs := make([]store.Distance, len(distances))
	for k, d := range distances {
		pairs[k] = store.Distance{Game1ID: ids[d.I], Game2ID: ids[d.J], Distance: d.Distance}
	}
	return l.store.InsertDistances(ctx, id, pairs)
}

// GameRow maps a parsed game to its stored form: White is the author, Event
// the source, and the year is kept only for a known date.
func GameRow(nr int, g *pdn.Game) store.Game {
	year, _ := g.Year()
	return store.Game{
		Nr:          nr,
		Author:      g.Get(pdn.WhiteTag),
		Source:      g.Get(pdn.EventTag),
		Year:        year,
		PDN:         pdn.Dump(g),
		Fingerprint: g.Fingerprint(),
	}
}

// GameLabel renders a stored game as "author (year)", with "?" for an
// unknown year.
func GameLabel(g store.Game) string {
	year := g.Year
	if year == "" {
		year = pdn.UnknownValue
	}
	return fmt.Sprintf("%s (%s)", g.Author, year)
}

func (l *Library) Collections(ctx context.Context) ([]store.Collection, error) {
	return l.store.ListCollections(ctx)
}

// MatrixCell is one [nr_i, nr_j, distance] entry of a distance matrix.
type MatrixCell [3]int

// View is everything shown for one collection.
type View struct {
	Collection store.Collection `json:"collection"`
	Games      []store.Game     `json:"games"`
	Labels     []string         `json:"labels"`
	Distances  []store.Distance `json:"distances"`
	YearGraph  []stats.Count    `json:"yearGraph"`
	Matrix     []MatrixCell     `json:"matrix"`
}

// Collection loads a collection by name. The matrix lists each stored
// distance in both directions followed by a zero diagonal entry per game.
func (l *Library) Collection(ctx context.Context, name string) (View, error) {
	c, err := l.store.CollectionByName(ctx, strings.ToLower(name))
	if err != nil {
		return View{}, err
	}
	games, err := l.store.GamesByCollection(ctx, c.ID)
	if err != nil {
		return View{}, err
	}
	distances, err := l.store.DistancesByCollection(ctx, c.ID)
	if err != nil {
		return View{}, err
	}

	v := View{
		Collection: c,
		Games:      games,
		Labels:     make([]string, len(games)),
		Distances:  distances,
		Matrix:     make([]MatrixCell, 0, 2*len(distances)+len(games)),
	}

	nr := make(map[int64]int, len(games))
	years := make([]string, len(games))
	for i, g := range games {
		nr[g.ID] = g.Nr
		years[i] = g.Year
		v.Labels[i] = GameLabel(g)
	}
	v.YearGraph = stats.YearGraph(years)

	for _, d := range distances {
		a, b := nr[d.Game1ID], nr[d.Game2ID]
		v.Matrix = append(v.Matrix, MatrixCell{a, b, d.Distance}, MatrixCell{b, a, d.Distance})
	}
	for _, g := range games {
		v.Matrix = append(v.Matrix, MatrixCell{g.Nr, g.Nr, 0})
	}
	return v, nil
}

func (l *Library) Game(ctx context.Context, id int64) (store.Game, error) {
	return l.store.GameByID(ctx, id)
}

// DistanceView is a stored distance with both games resolved.
type DistanceView struct {
	Distance store.Distance `json:"distance"`
	Game1    store.Game     `json:"game1"`
	Game2    store.Game     `json:"game2"`
}

func (l *Library) Distance(ctx context.Context, id int64) (DistanceView, error) {
	d, err := l.store.DistanceByID(ctx, id)
	if err != nil {
		return DistanceView{}, err
	}
	g1, err := l.store.GameByID(ctx, d.Game1ID)
	if err != nil {
		return DistanceView{}, err
	}
	g2, err := l.store.GameByID(ctx, d.Game2ID)
	if err != nil {
		return DistanceView{}, err
	}
	return DistanceView{Distance: d, Game1: g1, Game2: g2}, nil
}
