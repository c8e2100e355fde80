package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/dmmcquay/pdn-mcp/internal/config"
	"github.com/dmmcquay/pdn-mcp/internal/logging"
	"github.com/dmmcquay/pdn-mcp/internal/pdn"
)

// Recorder receives cache activity. *metrics.PrometheusCollector satisfies it.
type Recorder interface {
	RecordCacheHit()
	RecordCacheMiss()
	SetCacheStats(items, sizeBytes float64)
}

// Manager caches parse results keyed by the SHA-256 of the document text.
// Games are immutable once built, so cached slices are shared by callers that
// must not modify them.
type Manager struct {
	cache    *LRU[[]*pdn.Game]
	logger   logging.ContextLogger
	recorder Recorder
	enabled  bool
	ttl      time.Duration
	now      func() time.Time
}

// NewManager creates a cache manager. A nil or disabled config yields a
// manager that parses every time.
func NewManager(cfg *config.CacheConfig, logger logging.ContextLogger) *Manager {
	m := &Manager{logger: logger, now: time.Now}
	if cfg == nil || !cfg.Enabled {
		return m
	}
	m.cache = NewLRU[[]*pdn.Game](cfg.MaxItems, cfg.MaxSizeBytes)
	m.enabled = true
	m.ttl = time.Duration(cfg.TTLSeconds) * time.Second
	return m
}

// SetRecorder attaches a metrics recorder.
func (m *Manager) SetRecorder(r Recorder) {
	m.recorder = r
}

// Key returns the cache key for a document.
func Key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Load returns the games in text, parsing only on a miss. The bool reports a
// cache hit. Parse errors are never cached.
func (m *Manager) Load(text string) ([]*pdn.Game, bool, error) {
	if !m.enabled {
		games, err := pdn.Loads(text)
		return games, false, err
	}

	key := Key(text)
	if games, ok := m.get(key); ok {
		return games, true, nil
	}

	games, err := pdn.Loads(text)
	if err != nil {
		return nil, false, err
	}
	m.put(key, games, EstimateSize(text, games))
	return games, false, nil
}

func (m *Manager) get(key string) ([]*pdn.Game, bool) {
	games, storedAt, ok := m.cache.Get(key)
	if ok && m.ttl > 0 && m.now().Sub(storedAt) > m.ttl {
		m.cache.Delete(key)
		m.logger.Debug("Cache entry expired", "key", key, "age", m.now().Sub(storedAt))
		ok = false
	}

	if m.recorder != nil {
		if ok {
			m.recorder.RecordCacheHit()
		} else {
			m.recorder.RecordCacheMiss()
		}
	}
	return games, ok
}

func (m *Manager) put(key string, games []*pdn.Game, size int64) {
	m.cache.Put(key, games, size)
	m.logger.Debug("Cached parse result", "key", key, "games", len(games), "size", size)
	if m.recorder != nil {
		s := m.cache.Stats()
		m.recorder.SetCacheStats(float64(s.Items), float64(s.Size))
	}
}

func (m *Manager) Stats() Stats {
	if !m.enabled {
		return Stats{}
	}
	return m.cache.Stats()
}

func (m *Manager) Clear() {
	if m.enabled {
		m.cache.Clear()
	}
}

func (m *Manager) IsEnabled() bool {
	return m.enabled
}

// EstimateSize approximates the memory held by a parse result: the source
// text plus every move and tag string kept by the games.
func EstimateSize(text string, games []*pdn.Game) int64 {
	size := int64(len(text))
	for _, g := range games {
		size += int64(len(g.Fingerprint()))
		for _, mv := range g.Moves() {
			size += int64(len(mv))
		}
		for name, value := range g.Tags() {
			size += int64(len(name) + len(value))
		}
	}
	return size
}
