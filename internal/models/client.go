package models

import (
	"strings"
	"time"
)

// Dashboard permissions. Session access is namespaced so later
// surfaces can be granted independently of read access.
const (
	PermissionSessionsRead = "sessions:read"
	PermissionsWildcard    = "*"
)

// ApiClient is an authenticated consumer of the dashboard API: a
// recruiter UI or review tooling holding an API key. Candidates are not
// ApiClients; they are identified only by their anonymous client_id.
type ApiClient struct {
	ID          int               `json:"id"`
	Name        string            `json:"name"`
	ApiKey      string            `json:"-"` // Never serialize
	IsActive    bool              `json:"is_active"`
	CreatedAt   time.Time         `json:"created_at"`
	LastUsedAt  *time.Time        `json:"last_used_at,omitempty"`
	Permissions []string          `json:"permissions"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// HasPermission reports whether the client holds the required
// permission, either exactly, through a namespace wildcard
// ("sessions:*" covers "sessions:read"), or through the global "*".
// Inactive clients hold no permissions at all.
func (c *ApiClient) HasPermission(required string) bool {
	if c == nil || !c.IsActive {
		return false
	}

	for _, perm := range c.Permissions {
		switch {
		case perm == required || perm == PermissionsWildcard:
			return true
		case strings.HasSuffix(perm, ":*") &&
			strings.HasPrefix(required, strings.TrimSuffix(perm, "*")):
			return true
		}
	}

	return false
}

// MaskedApiKey returns the first 8 characters of the API key for logging
func (c *ApiClient) MaskedApiKey() string {
	if len(c.ApiKey) < 8 {
		return "***"
	}
	return c.ApiKey[:8] + "..."
}
