package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"trivia-rank-service/internal/domain"
)

const defaultTimeout = 2 * time.Second

// Client fetches user profiles from the identity provider's backend API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

type userPayload struct {
	Username       *string `json:"username"`
	FirstName      *string `json:"first_name"`
	LastName       *string `json:"last_name"`
	ImageURL       string  `json:"image_url"`
	EmailAddresses []struct {
		EmailAddress string `json:"email_address"`
	} `json:"email_addresses"`
}

// Profile implements app.ProfileLookup.
func (c *Client) Profile(ctx context.Context, externalID string) (domain.Profile, error) {
	endpoint := c.baseURL + "/users/" + url.PathEscape(externalID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.Profile{}, err
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("identity lookup %s: %w", externalID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return domain.Profile{}, fmt.Errorf("identity lookup %s: status %d", externalID, resp.StatusCode)
	}

	var p userPayload
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return domain.Profile{}, fmt.Errorf("identity lookup %s: %w", externalID, err)
	}
	out := domain.Profile{Label: label(p), AvatarURL: p.ImageURL}
	if len(p.EmailAddresses) > 0 {
		out.Email = p.EmailAddresses[0].EmailAddress
	}
	return out, nil
}

func label(p userPayload) string {
	if p.Username != nil && *p.Username != "" {
		return *p.Username
	}
	var parts []string
	for _, s := range []*string{p.FirstName, p.LastName} {
		if s != nil && *s != "" {
			parts = append(parts, *s)
		}
	}
	return strings.Join(parts, " ")
}
