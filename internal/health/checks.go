package health

import (
	"context"
	"fmt"

	"github.com/dmmcquay/pdn-mcp/internal/pdn"
)

// Pinger is implemented by the collection store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StoreRecorder receives store check outcomes.
type StoreRecorder interface {
	RecordStoreHealthCheck(success bool)
}

// StoreCheck reports whether the store answers a ping. rec may be nil.
func StoreCheck(store Pinger, rec StoreRecorder) Check {
	return func(ctx context.Context) error {
		err := store.Ping(ctx)
		if rec != nil {
			rec.RecordStoreHealthCheck(err == nil)
		}
		if err != nil {
			return fmt.Errorf("store unreachable: %w", err)
		}
		return nil
	}
}

const (
	selfCheckDocument    = "[Event \"self-check\"]\n[FEN \"W:W50:BK1.\"]\n1. 50-45\n"
	selfCheckFingerprint = "X------------------------------------------------o"
)

// ParserCheck parses a fixed document and verifies the decoded fingerprint.
func ParserCheck() Check {
	return func(context.Context) error {
		games, err := pdn.Loads(selfCheckDocument)
		if err != nil {
			return fmt.Errorf("parser self-check failed: %w", err)
		}
		if len(games) != 1 || games[0].Fingerprint() != selfCheckFingerprint {
			return fmt.Errorf("parser self-check produced unexpected result")
		}
		return nil
	}
}
