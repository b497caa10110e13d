package domain

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// SettlementStore persists executed trades for auditability.
type SettlementStore interface {
	Insert(ctx context.Context, s Settlement) error
	ListByCollection(ctx context.Context, collection common.Address, opts ListOpts) ([]Settlement, error)
	ListByAddress(ctx context.Context, addr common.Address, opts ListOpts) ([]Settlement, error)
	ListRecent(ctx context.Context, opts ListOpts) ([]Settlement, error)
	// ListBefore returns settlements executed strictly before the cutoff,
	// used by the archiver.
	ListBefore(ctx context.Context, before time.Time) ([]Settlement, error)
}

// MintStore persists minted tokens.
type MintStore interface {
	Insert(ctx context.Context, m MintRecord) error
	ListByCollection(ctx context.Context, collection common.Address, opts ListOpts) ([]MintRecord, error)
}

// AuditStore records administrative actions (registry changes, pauses, role
// grants) as free-form entries.
type AuditStore interface {
	Log(ctx context.Context, action string, details map[string]any) error
}

// SignalBus is a lightweight publish/subscribe fabric for event fan-out.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// BlobWriter uploads a serialized object to blob storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data []byte, contentType string) error
}
