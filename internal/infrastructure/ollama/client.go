package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"LinkClassifier/internal/domain"
	"LinkClassifier/internal/ports"
)

const (
	// maxSampleLinks bounds how many reference links per list appear in
	// the prompt.
	maxSampleLinks = 5

	generateTemperature = 0.1
	generateNumPredict  = 1000
)

// Client implements ports.InferenceClient against an Ollama server.
// It performs no retries; retry policy belongs to the caller.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

var _ ports.InferenceClient = (*Client)(nil)

// New builds a client from configuration. The timeout bounds the whole
// generate call, defaulting to 30s.
func New(baseURL, model string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Classify sends one structured prompt naming all candidate lists and
// parses the generated text into typed candidates. Responses that omit a
// required field, carry a confidence outside [0,1], or reference an
// unknown list id are rejected, never coerced.
func (c *Client) Classify(ctx context.Context, link domain.Link, categories map[int]domain.Category) ([]domain.Candidate, error) {
	if len(categories) == 0 {
		return nil, &domain.InferenceParseError{Reason: "no classification lists provided"}
	}

	payload, err := json.Marshal(map[string]any{
		"model":  c.model,
		"prompt": buildPrompt(link, categories),
		"stream": false,
		"options": map[string]any{
			"temperature": generateTemperature,
			"num_predict": generateNumPredict,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal generate payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &domain.InferenceUnavailableError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &domain.InferenceUnavailableError{Err: fmt.Errorf("ollama returned %s", resp.Status)}
	}

	var body struct {
		Response *string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &domain.InferenceParseError{Reason: fmt.Sprintf("decode generate response: %v", err)}
	}
	if body.Response == nil {
		return nil, &domain.InferenceParseError{Reason: "generate response missing response field"}
	}

	candidates, err := ParseCandidates(*body.Response, categories)
	if err != nil {
		return nil, err
	}

	if c.logger != nil {
		c.logger.Debug("classification complete", "url", link.URL, "candidates", len(candidates))
	}
	return candidates, nil
}

// Probe performs a lightweight liveness check against the Ollama server.
func (c *Client) Probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &domain.InferenceUnavailableError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &domain.InferenceUnavailableError{Err: fmt.Errorf("ollama returned %s", resp.Status)}
	}
	return nil
}

// ParseCandidates extracts the JSON object embedded in generated text and
// validates it against the supplied category context.
func ParseCandidates(text string, categories map[int]domain.Category) ([]domain.Candidate, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, &domain.InferenceParseError{Reason: "no JSON object in response"}
	}

	var parsed struct {
		Classifications []struct {
			ListID     *int     `json:"list_id"`
			Confidence *float64 `json:"confidence"`
			Reasoning  *string  `json:"reasoning"`
		} `json:"classifications"`
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &parsed); err != nil {
		return nil, &domain.InferenceParseError{Reason: fmt.Sprintf("malformed JSON: %v", err)}
	}

	candidates := make([]domain.Candidate, 0, len(parsed.Classifications))
	for i, entry := range parsed.Classifications {
		if entry.ListID == nil {
			return nil, &domain.InferenceParseError{Reason: fmt.Sprintf("classification %d missing list_id", i)}
		}
		if entry.Confidence == nil {
			return nil, &domain.InferenceParseError{Reason: fmt.Sprintf("classification %d missing confidence", i)}
		}
		if entry.Reasoning == nil {
			return nil, &domain.InferenceParseError{Reason: fmt.Sprintf("classification %d missing reasoning", i)}
		}
		if *entry.Confidence < 0 || *entry.Confidence > 1 {
			return nil, &domain.InferenceParseError{
				Reason: fmt.Sprintf("confidence %v outside [0,1] for list %d", *entry.Confidence, *entry.ListID),
			}
		}
		if _, ok := categories[*entry.ListID]; !ok {
			return nil, &domain.InferenceParseError{Reason: fmt.Sprintf("unknown list id %d", *entry.ListID)}
		}

		candidates = append(candidates, domain.Candidate{
			ListID:     *entry.ListID,
			Confidence: *entry.Confidence,
			Reasoning:  *entry.Reasoning,
		})
	}

	return candidates, nil
}

func buildPrompt(link domain.Link, categories map[int]domain.Category) string {
	var b strings.Builder

	b.WriteString("You are a link classifier. Your task is to analyze a link and\n")
	b.WriteString("determine which classification lists it belongs to based on the content and\n")
	b.WriteString("context of existing links in those lists.\n\n")

	fmt.Fprintf(&b, "LINK TO CLASSIFY:\nURL: %s\nTitle: %s\nDescription: %s\n\n",
		orNA(link.URL), orNA(link.Title), orNA(link.Description))

	b.WriteString("CLASSIFICATION LISTS:\n")

	ids := make([]int, 0, len(categories))
	for id := range categories {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	for _, id := range ids {
		cat := categories[id]
		fmt.Fprintf(&b, "\nList ID %d:\n", id)

		samples := cat.Links
		if len(samples) > maxSampleLinks {
			samples = samples[:maxSampleLinks]
		}
		for _, sample := range samples {
			fmt.Fprintf(&b, "  - %s (Title: %s)\n", orNA(sample.URL), orNA(sample.Title))
		}
		if len(cat.Links) > maxSampleLinks {
			fmt.Fprintf(&b, "  ... and %d more links\n", len(cat.Links)-maxSampleLinks)
		}
	}

	b.WriteString(`

TASK:
Analyze the link to classify and determine which classification lists it
belongs to. Consider:
1. URL domain and path similarity
2. Title and description content similarity
3. Thematic relevance to existing links in each list
4. Topic and subject matter alignment

For each classification list, provide a confidence score from 0.0 to 1.0
indicating how well the link fits that list.

RESPONSE FORMAT:
Provide your response in the following JSON format:
{
  "classifications": [
    {
      "list_id": <list_id>,
      "confidence": <0.0-1.0>,
      "reasoning": "<brief explanation>"
    }
  ]
}

Only include classifications where you have some confidence (>0.1). Be
precise with confidence scores.
`)

	return b.String()
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}
