// internal/model/record.go
package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ScrapedRecord is one item fetched from an external system during a cycle.
// It only lives in memory until it has been reconciled.
type ScrapedRecord struct {
	Source     IntegrationType `json:"source"`
	ExternalID string          `json:"externalId"`
	Payload    json.RawMessage `json:"data"`
	TenantID   uuid.UUID       `json:"tenantId"`
}

// NaturalKey identifies a persisted record across cycles.
type NaturalKey struct {
	Source     IntegrationType
	ExternalID string
	TenantID   uuid.UUID
}

func (k NaturalKey) String() string {
	return fmt.Sprintf("%s:%s", k.Source, k.ExternalID)
}

// PersistedRecord is the durable form of a scraped record.
type PersistedRecord struct {
	ID         int64           `db:"id" json:"id"`
	Source     IntegrationType `db:"source" json:"source"`
	ExternalID string          `db:"external_id" json:"externalId"`
	Payload    json.RawMessage `db:"payload" json:"data,omitempty"`
	TenantID   uuid.UUID       `db:"tenant_id" json:"tenantId"`
	CreatedAt  time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time       `db:"updated_at" json:"updatedAt"`
}

func (r *PersistedRecord) Key() NaturalKey {
	return NaturalKey{Source: r.Source, ExternalID: r.ExternalID, TenantID: r.TenantID}
}

// UpsertResult is what a conditional write reports back.
type UpsertResult struct {
	ID        int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Inserted reports whether the write created the row. A freshly inserted row
// carries identical created and updated timestamps; any later write advances
// updated_at past created_at.
func (r UpsertResult) Inserted() bool {
	return r.CreatedAt.Equal(r.UpdatedAt)
}
