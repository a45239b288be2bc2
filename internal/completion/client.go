// Package completion talks to an Azure OpenAI chat-completions deployment.
package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/uatops/uat-router/internal/config"
	"github.com/uatops/uat-router/internal/domain"
	apperrors "github.com/uatops/uat-router/pkg/util/errorutil"
)

// SystemInstruction is sent as the system turn of every routing request.
const SystemInstruction = "You are a deterministic UAT Router that provides technical, machine-readable " +
	"routing recommendations for Microsoft support workflows. Always follow the routing rules strictly and output valid JSON."

const (
	pingPrompt       = "test"
	pingMaxTokens    = 10
	maxErrorBodySize = 4 << 10
)

// Result is the raw completion text plus token accounting.
type Result struct {
	Text  string
	Usage domain.Usage
}

// Client issues chat completions with a fixed sampling configuration. It never retries.
type Client struct {
	url         string
	apiKey      string
	maxTokens   int
	temperature float64
	topP        float64
	http        *http.Client
	logger      *zap.Logger
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Messages         []message `json:"messages"`
	MaxTokens        int       `json:"max_tokens"`
	Temperature      *float64  `json:"temperature,omitempty"`
	TopP             *float64  `json:"top_p,omitempty"`
	FrequencyPenalty *float64  `json:"frequency_penalty,omitempty"`
	PresencePenalty  *float64  `json:"presence_penalty,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message *struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage *domain.Usage `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// NewClient builds a client for the configured deployment. A nil httpClient uses
// http.DefaultClient.
func NewClient(cfg config.CompletionConfig, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	endpoint := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		cfg.Endpoint, url.PathEscape(cfg.Deployment), url.QueryEscape(cfg.APIVersion))
	return &Client{
		url:         endpoint,
		apiKey:      cfg.APIKey,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		topP:        cfg.TopP,
		http:        httpClient,
		logger:      logger,
	}
}

// RequestCompletion sends prompt as the single user turn and returns the first choice.
func (c *Client) RequestCompletion(ctx context.Context, prompt string) (*Result, error) {
	zero := 0.0
	req := chatRequest{
		Messages: []message{
			{Role: "system", Content: SystemInstruction},
			{Role: "user", Content: prompt},
		},
		MaxTokens:        c.maxTokens,
		Temperature:      &c.temperature,
		TopP:             &c.topP,
		FrequencyPenalty: &zero,
		PresencePenalty:  &zero,
	}

	resp, err := c.post(ctx, req)
	if err != nil {
		c.logger.Error("completion request failed", zap.Error(err))
		return nil, apperrors.NewUpstreamError("completion request failed", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message == nil {
		c.logger.Error("completion response has no choices")
		return nil, apperrors.NewUpstreamError("completion response has no choices", nil)
	}

	result := &Result{Text: resp.Choices[0].Message.Content}
	if resp.Usage != nil {
		result.Usage = *resp.Usage
	}
	return result, nil
}

// Ping sends a minimal completion to verify the deployment answers.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.post(ctx, chatRequest{
		Messages:  []message{{Role: "user", Content: pingPrompt}},
		MaxTokens: pingMaxTokens,
	})
	return err
}

func (c *Client) post(ctx context.Context, body chatRequest) (*chatResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		var failure chatResponse
		if json.Unmarshal(raw, &failure) == nil && failure.Error != nil && failure.Error.Message != "" {
			return nil, fmt.Errorf("status %d: %s", resp.StatusCode, failure.Error.Message)
		}
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode completion response: %w", err)
	}
	return &out, nil
}
