package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"

	"salesdesk/internal/core/id"
	"salesdesk/internal/domain/audit"
)

// CompressionAlgo specifies the compression algorithm used.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// auditRow is the storage shape of one audit log entry.
type auditRow struct {
	ID                id.ID           `db:"id"`
	EntityType        string          `db:"entity_type"`
	EntityID          string          `db:"entity_id"`
	Action            string          `db:"action"`
	UserID            string          `db:"user_id"`
	Changes           json.RawMessage `db:"changes"`
	ChangesCompressed []byte          `db:"changes_compressed"`
	CompressionAlgo   CompressionAlgo `db:"compression_algo"`
	CreatedAt         time.Time       `db:"created_at"`
}

// Compile-time check that AuditSink implements the domain recorder.
var _ audit.Recorder = (*AuditSink)(nil)

// AuditSink persists audit entries to the audit_log table, compressing
// large change payloads with zstd.
type AuditSink struct {
	txManager         *TxManager
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int // bytes, default 10KB
}

// NewAuditSink creates a new audit sink.
func NewAuditSink(txManager *TxManager) (*AuditSink, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &AuditSink{
		txManager:         txManager,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: 10 * 1024, // 10KB
	}, nil
}

// Record implements audit.Recorder.
func (s *AuditSink) Record(ctx context.Context, entry audit.Entry) error {
	row := auditRow{
		ID:              id.New(),
		EntityType:      entry.EntityType,
		EntityID:        entry.EntityID,
		Action:          string(entry.Action),
		UserID:          entry.UserID,
		CompressionAlgo: CompressionNone,
		CreatedAt:       entry.CreatedAt,
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}

	if entry.Changes != nil {
		changes, err := json.Marshal(entry.Changes)
		if err != nil {
			return fmt.Errorf("marshal changes: %w", err)
		}
		row.Changes = changes
	}

	// Compress large changes
	if len(row.Changes) > s.compressThreshold {
		row.ChangesCompressed = s.encoder.EncodeAll(row.Changes, nil)
		row.Changes = nil
		row.CompressionAlgo = CompressionZstd
	}

	sql := `
		INSERT INTO audit_log (
			id, entity_type, entity_id, action, user_id,
			changes, changes_compressed, compression_algo, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	querier := s.txManager.GetQuerier(ctx)
	_, err := querier.Exec(ctx, sql,
		row.ID, row.EntityType, row.EntityID, row.Action, row.UserID,
		row.Changes, row.ChangesCompressed, row.CompressionAlgo, row.CreatedAt,
	)

	return err
}

// History retrieves audit entries for an entity, newest first, with change
// payloads decompressed.
func (s *AuditSink) History(ctx context.Context, entityType, entityID string, limit int) ([]audit.Entry, error) {
	sql := `
		SELECT id, entity_type, entity_id, action, user_id,
			   changes, changes_compressed, compression_algo, created_at
		FROM audit_log
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY created_at DESC
		LIMIT $3
	`

	rows, err := s.txManager.GetQuerier(ctx).Query(ctx, sql, entityType, entityID, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []audit.Entry
	for rows.Next() {
		var r auditRow
		err := rows.Scan(
			&r.ID, &r.EntityType, &r.EntityID, &r.Action, &r.UserID,
			&r.Changes, &r.ChangesCompressed, &r.CompressionAlgo, &r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}

		// Decompress if needed
		if r.CompressionAlgo == CompressionZstd && len(r.ChangesCompressed) > 0 {
			decompressed, err := s.decoder.DecodeAll(r.ChangesCompressed, nil)
			if err != nil {
				return nil, fmt.Errorf("decompress changes: %w", err)
			}
			r.Changes = decompressed
		}

		var changes any
		if len(r.Changes) > 0 {
			if err := json.Unmarshal(r.Changes, &changes); err != nil {
				return nil, fmt.Errorf("unmarshal changes: %w", err)
			}
		}

		entries = append(entries, audit.Entry{
			EntityType: r.EntityType,
			EntityID:   r.EntityID,
			Action:     audit.Action(r.Action),
			UserID:     r.UserID,
			Changes:    changes,
			CreatedAt:  r.CreatedAt,
		})
	}

	return entries, rows.Err()
}
