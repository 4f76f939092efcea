package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// AdminClient provides access to the Supabase Admin API. The only production
// use is resolving member user ids to email addresses and display names for
// room listings and notification mail.
type AdminClient struct {
	supabaseURL string
	serviceKey  string
	httpClient  *http.Client
}

// NewAdminClient creates a new Supabase Admin API client.
// Requires the service role key for elevated permissions.
func NewAdminClient(supabaseURL, serviceKey string) *AdminClient {
	return &AdminClient{
		supabaseURL: supabaseURL,
		serviceKey:  serviceKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// IsConfigured reports whether the client has a service key. Without one,
// user lookups are skipped and callers fall back to ids.
func (c *AdminClient) IsConfigured() bool {
	return c != nil && c.supabaseURL != "" && c.serviceKey != ""
}

// AdminUser is the subset of the Supabase user record the API consumes.
type AdminUser struct {
	ID           string                 `json:"id"`
	Email        string                 `json:"email"`
	UserMetadata map[string]interface{} `json:"user_metadata"`
}

// FullName returns the user_metadata full_name if present.
func (u *AdminUser) FullName() string {
	if v, ok := u.UserMetadata["full_name"].(string); ok {
		return v
	}
	return ""
}

// GetUserByID fetches one user record.
func (c *AdminClient) GetUserByID(ctx context.Context, userID string) (*AdminUser, error) {
	url := fmt.Sprintf("%s/auth/v1/admin/users/%s", c.supabaseURL, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("apikey", c.serviceKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("get user failed with status %d: %s", resp.StatusCode, string(body))
	}

	var user AdminUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("failed to decode user response: %w", err)
	}

	return &user, nil
}

// GetUsersByIDs fetches several user records, skipping ids that fail to
// resolve. Lookup failures degrade the caller's output, not the request.
func (c *AdminClient) GetUsersByIDs(ctx context.Context, userIDs []string) map[string]*AdminUser {
	users := make(map[string]*AdminUser, len(userIDs))
	for _, id := range userIDs {
		user, err := c.GetUserByID(ctx, id)
		if err != nil {
			continue
		}
		users[id] = user
	}
	return users
}
