package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/autentica/marketplace/internal/domain"
)

// SettlementArchiveStore is the read surface the archiver needs. The
// Postgres settlement store satisfies it through ListBefore.
type SettlementArchiveStore interface {
	ListBefore(ctx context.Context, before time.Time) ([]domain.Settlement, error)
}

// Archiver exports settled trades older than a cutoff to blob storage as
// JSONL. Deletion from the primary store is intentionally not performed
// here; that is a separate step to run after the archive is verified.
type Archiver struct {
	writer      domain.BlobWriter
	settlements SettlementArchiveStore
	audit       domain.AuditStore
	logger      *slog.Logger
}

// NewArchiver creates an Archiver. The audit store may be nil.
func NewArchiver(writer domain.BlobWriter, settlements SettlementArchiveStore, audit domain.AuditStore, logger *slog.Logger) *Archiver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Archiver{
		writer:      writer,
		settlements: settlements,
		audit:       audit,
		logger:      logger.With(slog.String("component", "archiver")),
	}
}

// ArchiveSettlements exports every settlement executed strictly before the
// cutoff and returns the object path and the number of records written.
// Nothing is uploaded when there are no matching records.
func (a *Archiver) ArchiveSettlements(ctx context.Context, before time.Time) (string, int, error) {
	records, err := a.settlements.ListBefore(ctx, before)
	if err != nil {
		return "", 0, fmt.Errorf("s3blob: listing settlements for archive: %w", err)
	}
	if len(records) == 0 {
		return "", 0, nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return "", 0, fmt.Errorf("s3blob: encoding settlement %s: %w", rec.ID, err)
		}
	}

	path := fmt.Sprintf("settlements/%s/settlements-before-%s.jsonl",
		before.UTC().Format("2006/01/02"),
		before.UTC().Format("20060102T150405Z"))
	if err := a.writer.Put(ctx, path, buf.Bytes(), "application/x-ndjson"); err != nil {
		return "", 0, err
	}

	a.logger.Info("settlements archived",
		slog.String("path", path),
		slog.Int("count", len(records)),
		slog.Time("cutoff", before))

	if a.audit != nil {
		if err := a.audit.Log(ctx, "settlements_archived", map[string]any{
			"path":   path,
			"count":  len(records),
			"cutoff": before.UTC().Format(time.RFC3339),
		}); err != nil {
			a.logger.Warn("audit log failed", slog.String("error", err.Error()))
		}
	}

	return path, len(records), nil
}
