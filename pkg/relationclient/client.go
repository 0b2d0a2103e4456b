/**
 * @description
 * This package provides a client for the guild relation authority: the
 * service that owns guild membership, pairwise relation state, and member
 * permissions. This service treats it as the single source of truth for who
 * is an enemy of whom; blocked sets are only a cache of its answers.
 *
 * @dependencies
 * - context, encoding/json, net/http, net/url, time: Standard Go libraries.
 * - github.com/google/uuid: Guild and member identifiers.
 */
package relationclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrUnavailable indicates the relation authority could not be reached or
// answered with a server error.
var ErrUnavailable = errors.New("relation authority: unavailable")

// Client is a client for the relation authority.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new relation-authority client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// EnemiesOf returns the guilds currently at ENEMY relation with the guild.
func (c *Client) EnemiesOf(ctx context.Context, guildID uuid.UUID) ([]uuid.UUID, error) {
	path := fmt.Sprintf("/internal/guilds/%s/enemies", guildID)
	var payload struct {
		Enemies []uuid.UUID `json:"enemies"`
	}
	if err := c.getJSON(ctx, path, &payload); err != nil {
		return nil, err
	}
	return payload.Enemies, nil
}

// GuildsOf returns the guilds a member belongs to. An empty slice means the
// member is guildless; that is not an error.
func (c *Client) GuildsOf(ctx context.Context, memberID uuid.UUID) ([]uuid.UUID, error) {
	path := fmt.Sprintf("/internal/members/%s/guilds", memberID)
	var payload struct {
		Guilds []uuid.UUID `json:"guilds"`
	}
	if err := c.getJSON(ctx, path, &payload); err != nil {
		return nil, err
	}
	return payload.Guilds, nil
}

// HasPermission reports whether a member holds a named permission within a
// guild, e.g. "shop.manage".
func (c *Client) HasPermission(ctx context.Context, memberID, guildID uuid.UUID, permission string) (bool, error) {
	path := fmt.Sprintf("/internal/guilds/%s/members/%s/permissions/%s", guildID, memberID, url.PathEscape(permission))
	var payload struct {
		Granted bool `json:"granted"`
	}
	if err := c.getJSON(ctx, path, &payload); err != nil {
		return false, err
	}
	return payload.Granted, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	if c.baseURL == "" {
		return fmt.Errorf("relation authority base url is empty: %w", ErrUnavailable)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("X-Internal-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("relation authority request failed: %v: %w", err, ErrUnavailable)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		return nil
	case resp.StatusCode >= 500:
		return fmt.Errorf("relation authority returned %d: %w", resp.StatusCode, ErrUnavailable)
	default:
		return fmt.Errorf("relation authority returned unexpected status %d", resp.StatusCode)
	}
}
