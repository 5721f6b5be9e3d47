// internal/model/tenant.go
package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// IntegrationType tags the external system an integration talks to.
type IntegrationType string

const (
	IntegrationConfluence IntegrationType = "confluence"
	IntegrationJira       IntegrationType = "jira"
)

// AuthMethod selects how a connector authenticates against the external system.
type AuthMethod string

const (
	AuthBasic  AuthMethod = "basic"
	AuthBearer AuthMethod = "bearer"
	AuthAPIKey AuthMethod = "api_key"
	AuthOAuth  AuthMethod = "oauth"
)

type Tenant struct {
	ID           uuid.UUID           `db:"id" json:"id"`
	Name         string              `db:"name" json:"name"`
	Integrations []IntegrationConfig `db:"integrations" json:"integrations"`
	CreatedAt    time.Time           `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time           `db:"updated_at" json:"updatedAt"`
}

type IntegrationConfig struct {
	Type       IntegrationType  `json:"type"`
	Enabled    bool             `json:"enabled"`
	AuthMethod AuthMethod       `json:"authMethod"`
	Config     ConnectionConfig `json:"config"`
}

// ConnectionConfig holds the connection parameters of one integration.
// Keys other than baseUrl, username and apiToken are kept in Extra and
// written back out unchanged.
type ConnectionConfig struct {
	BaseURL  string
	Username string
	APIToken string
	Extra    map[string]any
}

// String returns the extra field named key, or "" when it is missing or not a string.
func (c ConnectionConfig) String(key string) string {
	if c.Extra == nil {
		return ""
	}
	s, _ := c.Extra[key].(string)
	return s
}

func (c ConnectionConfig) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(c.Extra)+3)
	for k, v := range c.Extra {
		out[k] = v
	}
	out["baseUrl"] = c.BaseURL
	out["username"] = c.Username
	out["apiToken"] = c.APIToken
	return json.Marshal(out)
}

func (c *ConnectionConfig) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = ConnectionConfig{}
	for k, v := range raw {
		switch k {
		case "baseUrl":
			c.BaseURL, _ = v.(string)
		case "username":
			c.Username, _ = v.(string)
		case "apiToken":
			c.APIToken, _ = v.(string)
		default:
			if c.Extra == nil {
				c.Extra = make(map[string]any)
			}
			c.Extra[k] = v
		}
	}
	return nil
}
