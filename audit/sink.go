package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/mssp-stack/portal-backend/monitoring"
)

// record is implemented by every append-only log model
type record interface {
	Validate() error
}

// sink is the single write boundary for the append-only log tables. By
// contract it never fails its caller: invalid entries and storage errors are
// logged to the operational log and dropped. Audit recording is best-effort;
// a lost entry must never fail the business operation it describes.
type sink struct {
	db *gorm.DB
}

func (s *sink) write(ctx context.Context, entry record) {
	if err := entry.Validate(); err != nil {
		slog.Error("Failed to validate audit record", "record", fmt.Sprintf("%T", entry), "error", err)
		return
	}

	start := time.Now()
	err := s.db.WithContext(ctx).Create(entry).Error
	monitoring.RecordDBLatency(ctx, "postgres", "audit_insert", time.Since(start))
	if err != nil {
		slog.Error("Failed to write audit record", "record", fmt.Sprintf("%T", entry), "error", err)
	}
}
