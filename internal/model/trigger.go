package model

import "github.com/google/uuid"

// ScrapeRequest asks for an out-of-schedule cycle. An empty TenantIDs list
// means every tenant.
type ScrapeRequest struct {
	TenantIDs []uuid.UUID `json:"tenant_ids"`
}
