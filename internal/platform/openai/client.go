// Package openai implements the domain.Analyzer collaborator against an
// OpenAI-compatible chat-completions API.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/dexiq/dexiq/internal/domain"
)

// ClientConfig holds connection parameters for the analysis collaborator.
type ClientConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxInsights int
	Timeout     time.Duration
}

// Client calls the chat-completions endpoint to produce a pair analysis. All
// upstream failures surface as domain.ErrAnalysisUnavailable so the trigger
// can publish a structured error event without inspecting transport details.
type Client struct {
	http        *resty.Client
	model       string
	maxInsights int
}

// NewClient creates a new analysis client.
func NewClient(cfg ClientConfig) *Client {
	maxInsights := cfg.MaxInsights
	if maxInsights <= 0 {
		maxInsights = 5
	}

	return &Client{
		http: resty.New().
			SetBaseURL(cfg.BaseURL).
			SetTimeout(cfg.Timeout).
			SetAuthToken(cfg.APIKey).
			SetHeader("Content-Type", "application/json"),
		model:       cfg.Model,
		maxInsights: maxInsights,
	}
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	ResponseFormat *struct {
		Type string `json:"type"`
	} `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// analysisPayload is the JSON shape the model is asked to return.
type analysisPayload struct {
	Summary  string   `json:"summary"`
	Insights []string `json:"insights"`
}

// Analyze sends the snapshot bundle to the model and returns its summary and
// insight list.
func (c *Client) Analyze(ctx context.Context, req domain.AnalysisRequest) (domain.AnalysisResult, error) {
	body := chatRequest{
		Model:       c.model,
		Temperature: 0.3,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildPrompt(req)},
		},
		ResponseFormat: &struct {
			Type string `json:"type"`
		}{Type: "json_object"},
	}

	var out chatResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		Post("/chat/completions")
	if err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("openai: chat completion: %v: %w", err, domain.ErrAnalysisUnavailable)
	}
	if resp.StatusCode() != http.StatusOK || len(out.Choices) == 0 {
		return domain.AnalysisResult{}, fmt.Errorf("openai: chat completion status %d: %w", resp.StatusCode(), domain.ErrAnalysisUnavailable)
	}

	content := out.Choices[0].Message.Content

	var payload analysisPayload
	if err := json.Unmarshal([]byte(content), &payload); err != nil || payload.Summary == "" {
		// The model ignored the JSON instruction; treat the whole reply as
		// the summary rather than failing the run.
		payload = analysisPayload{Summary: strings.TrimSpace(content)}
	}
	if payload.Summary == "" {
		return domain.AnalysisResult{}, fmt.Errorf("openai: empty completion: %w", domain.ErrAnalysisUnavailable)
	}

	if len(payload.Insights) > c.maxInsights {
		payload.Insights = payload.Insights[:c.maxInsights]
	}

	return domain.AnalysisResult{
		Summary:  payload.Summary,
		Insights: payload.Insights,
		Metadata: map[string]string{
			"model": c.model,
			"pair":  req.Token.PairLabel(),
		},
		GeneratedAt: time.Now().UTC(),
	}, nil
}
