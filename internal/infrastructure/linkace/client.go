package linkace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"LinkClassifier/internal/domain"
	"LinkClassifier/internal/ports"
)

const serviceName = "linkace"

// Client talks to the LinkAce API with bearer-token authentication.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *slog.Logger
}

var _ ports.BookmarkService = (*Client)(nil)

// New creates a reusable client. The timeout bounds every individual
// request; retry policy belongs to the caller.
func New(baseURL, token string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: trimTrailingSlash(baseURL),
		token:   token,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type linkPayload struct {
	ID          int    `json:"id"`
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Lists       []struct {
		ID int `json:"id"`
	} `json:"lists"`
}

func (p linkPayload) toDomain() domain.Link {
	link := domain.Link{
		ID:          p.ID,
		URL:         p.URL,
		Title:       p.Title,
		Description: p.Description,
	}
	for _, l := range p.Lists {
		link.Lists = append(link.Lists, l.ID)
	}
	return link
}

// ListLinks fetches all links of a list, following next_page_url until the
// final page so callers always see the complete membership.
func (c *Client) ListLinks(ctx context.Context, listID int) ([]domain.Link, error) {
	pageURL := fmt.Sprintf("%s/lists/%d/links", c.baseURL, listID)
	var links []domain.Link

	for pageURL != "" {
		var page struct {
			Data        []linkPayload `json:"data"`
			CurrentPage int           `json:"current_page"`
			LastPage    int           `json:"last_page"`
			NextPageURL string        `json:"next_page_url"`
		}
		if err := c.get(ctx, pageURL, &page); err != nil {
			return nil, fmt.Errorf("list %d links: %w", listID, err)
		}

		for _, payload := range page.Data {
			links = append(links, payload.toDomain())
		}

		if c.logger != nil {
			c.logger.Debug("fetched links page",
				"list_id", listID, "page", page.CurrentPage, "last_page", page.LastPage, "count", len(page.Data))
		}

		pageURL = page.NextPageURL
	}

	return links, nil
}

// GetLink returns detailed information about one link.
func (c *Client) GetLink(ctx context.Context, linkID int) (domain.Link, error) {
	var body struct {
		Data linkPayload `json:"data"`
	}
	if err := c.get(ctx, fmt.Sprintf("%s/links/%d", c.baseURL, linkID), &body); err != nil {
		return domain.Link{}, fmt.Errorf("get link %d: %w", linkID, err)
	}
	return body.Data.toDomain(), nil
}

// UpdateLink replaces a link's list memberships.
func (c *Client) UpdateLink(ctx context.Context, linkID int, listIDs []int) error {
	payload := map[string][]int{"lists": listIDs}
	if err := c.put(ctx, fmt.Sprintf("%s/links/%d", c.baseURL, linkID), payload); err != nil {
		return fmt.Errorf("update link %d: %w", linkID, err)
	}
	return nil
}

// AddLinkToList adds a link to a list, preserving other memberships. A
// link already in the list is left untouched.
func (c *Client) AddLinkToList(ctx context.Context, linkID, listID int) error {
	link, err := c.GetLink(ctx, linkID)
	if err != nil {
		return err
	}
	for _, id := range link.Lists {
		if id == listID {
			return nil
		}
	}
	return c.UpdateLink(ctx, linkID, append(link.Lists, listID))
}

// RemoveLinkFromList removes a link from a list, preserving other
// memberships. A link already absent is left untouched.
func (c *Client) RemoveLinkFromList(ctx context.Context, linkID, listID int) error {
	link, err := c.GetLink(ctx, linkID)
	if err != nil {
		return err
	}

	remaining := make([]int, 0, len(link.Lists))
	found := false
	for _, id := range link.Lists {
		if id == listID {
			found = true
			continue
		}
		remaining = append(remaining, id)
	}
	if !found {
		return nil
	}
	return c.UpdateLink(ctx, linkID, remaining)
}

// Probe performs a lightweight liveness check against the API.
func (c *Client) Probe(ctx context.Context) error {
	return c.get(ctx, c.baseURL+"/user", nil)
}

func (c *Client) get(ctx context.Context, rawURL string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	return c.do(req, v)
}

func (c *Client) put(ctx context.Context, rawURL string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, rawURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, nil)
}

func (c *Client) do(req *http.Request, v any) error {
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &domain.UpstreamError{Service: serviceName, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &domain.UpstreamError{Service: serviceName, Status: resp.StatusCode}
	}

	if v == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func trimTrailingSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}
