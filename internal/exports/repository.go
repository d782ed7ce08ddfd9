// Package exports provides the conversion export bounded context: hashed
// API keys for external systems and a deduplicated CSV feed of pipeline
// conversion events.
package exports

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dealflow_backend/internal/auth/token"
	"dealflow_backend/platform/apperr"
)

const apiKeyPrefix = "dfx_"

// APIKey is an export API key stored hashed in the database.
type APIKey struct {
	ID         uuid.UUID  `json:"id"`
	Name       string     `json:"name"`
	KeyHash    string     `json:"-"`
	KeyPrefix  string     `json:"keyPrefix"`
	IsActive   bool       `json:"isActive"`
	CreatedBy  *uuid.UUID `json:"createdBy,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
	LastUsedAt *time.Time `json:"lastUsedAt,omitempty"`
}

// ConversionEvent is a status-change activity joined with its lead and
// property, the raw material for one conversion row.
type ConversionEvent struct {
	EventID    uuid.UUID
	LeadID     uuid.UUID
	ToStatus   string
	OccurredAt time.Time
	OwnerName  string
	Address    string
	Score      int
}

// ExportRecord is one conversion row persisted for deduplication.
type ExportRecord struct {
	LeadID          uuid.UUID
	ConversionName  string
	ConversionTime  time.Time
	ConversionValue float64
	OrderID         string
}

// Repository provides data access for export operations.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new exports repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GenerateAPIKey creates a new random API key and returns the plaintext
// key, its hash, and the display prefix. Only the hash is stored.
func GenerateAPIKey() (plaintext, hash, prefix string, err error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", "", "", err
	}
	plaintext = apiKeyPrefix + hex.EncodeToString(bytes)
	return plaintext, token.HashSHA256(plaintext), plaintext[:12], nil
}

// HashKey hashes a plaintext API key for lookup.
func HashKey(plaintext string) string {
	return token.HashSHA256(plaintext)
}

const apiKeyColumns = `id, name, key_hash, key_prefix, is_active, created_by, created_at, updated_at, last_used_at`

func scanAPIKey(row pgx.Row) (APIKey, error) {
	var key APIKey
	err := row.Scan(&key.ID, &key.Name, &key.KeyHash, &key.KeyPrefix, &key.IsActive,
		&key.CreatedBy, &key.CreatedAt, &key.UpdatedAt, &key.LastUsedAt)
	return key, err
}

// CreateAPIKey stores a new export API key record.
func (r *Repository) CreateAPIKey(ctx context.Context, name, keyHash, keyPrefix string, createdBy *uuid.UUID) (APIKey, error) {
	key, err := scanAPIKey(r.pool.QueryRow(ctx, `
		INSERT INTO export_api_keys (name, key_hash, key_prefix, created_by)
		VALUES ($1, $2, $3, $4)
		RETURNING `+apiKeyColumns, name, keyHash, keyPrefix, createdBy))
	if err != nil {
		return APIKey{}, fmt.Errorf("create export api key: %w", err)
	}
	return key, nil
}

// GetAPIKeyByHash retrieves an active API key by its hash.
func (r *Repository) GetAPIKeyByHash(ctx context.Context, keyHash string) (APIKey, error) {
	key, err := scanAPIKey(r.pool.QueryRow(ctx, `
		SELECT `+apiKeyColumns+` FROM export_api_keys
		WHERE key_hash = $1 AND is_active
	`, keyHash))
	if errors.Is(err, pgx.ErrNoRows) {
		return APIKey{}, apperr.Unauthorized("invalid export API key")
	}
	if err != nil {
		return APIKey{}, fmt.Errorf("get export api key: %w", err)
	}
	return key, nil
}

// ListAPIKeys returns all export API keys, newest first.
func (r *Repository) ListAPIKeys(ctx context.Context) ([]APIKey, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+apiKeyColumns+` FROM export_api_keys ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list export api keys: %w", err)
	}
	defer rows.Close()

	keys := make([]APIKey, 0)
	for rows.Next() {
		key, err := scanAPIKey(rows)
		if err != nil {
			return nil, fmt.Errorf("scan export api key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// RevokeAPIKey deactivates an export API key.
func (r *Repository) RevokeAPIKey(ctx context.Context, keyID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE export_api_keys SET is_active = false, updated_at = now()
		WHERE id = $1
	`, keyID)
	if err != nil {
		return fmt.Errorf("revoke export api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("export API key not found")
	}
	return nil
}

// TouchAPIKey updates the last_used_at timestamp. Best effort.
func (r *Repository) TouchAPIKey(ctx context.Context, keyID uuid.UUID) {
	_, _ = r.pool.Exec(ctx, `
		UPDATE export_api_keys SET last_used_at = now()
		WHERE id = $1
	`, keyID)
}

// ListConversionEvents returns status-change activities that moved a lead
// into a conversion-relevant status within the given window.
func (r *Repository) ListConversionEvents(ctx context.Context, from, to time.Time, limit int) ([]ConversionEvent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.id, a.lead_id, a.metadata->>'to', a.created_at,
			l.owner_name, l.score,
			p.address || ', ' || p.city || ', ' || p.state || ' ' || p.zip
		FROM lead_activities a
		JOIN leads l ON l.id = a.lead_id
		JOIN properties p ON p.id = l.property_id
		WHERE a.type = 'status_change'
			AND a.metadata->>'to' IN ('responded', 'under_contract', 'closed')
			AND a.created_at >= $1 AND a.created_at <= $2
		ORDER BY a.created_at ASC
		LIMIT $3
	`, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("list conversion events: %w", err)
	}
	defer rows.Close()

	items := make([]ConversionEvent, 0)
	for rows.Next() {
		var item ConversionEvent
		if err := rows.Scan(&item.EventID, &item.LeadID, &item.ToStatus, &item.OccurredAt,
			&item.OwnerName, &item.Score, &item.Address); err != nil {
			return nil, fmt.Errorf("scan conversion event: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ListExportedKeys returns the set of order_id::conversion_name pairs that
// have already been exported.
func (r *Repository) ListExportedKeys(ctx context.Context, orderIDs []string) (map[string]struct{}, error) {
	if len(orderIDs) == 0 {
		return map[string]struct{}{}, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT order_id, conversion_name
		FROM exported_conversions
		WHERE order_id = ANY($1)
	`, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("list exported conversions: %w", err)
	}
	defer rows.Close()

	result := make(map[string]struct{})
	for rows.Next() {
		var orderID, conversionName string
		if err := rows.Scan(&orderID, &conversionName); err != nil {
			return nil, fmt.Errorf("scan exported conversion: %w", err)
		}
		result[orderID+"::"+conversionName] = struct{}{}
	}
	return result, rows.Err()
}

// RecordExports stores export rows to prevent duplicates on future runs.
func (r *Repository) RecordExports(ctx context.Context, records []ExportRecord) error {
	if len(records) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(`
			INSERT INTO exported_conversions (lead_id, conversion_name, conversion_time, conversion_value, order_id)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (order_id, conversion_name) DO NOTHING
		`, rec.LeadID, rec.ConversionName, rec.ConversionTime, rec.ConversionValue, rec.OrderID)
	}
	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range records {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("record exported conversion: %w", err)
		}
	}
	return nil
}
