package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"github/mosaic/backend/models"
)

const anthropicAPIVersion = "2023-06-01"

// TextGenerator is the narrow interface the narrative service needs from the
// generation endpoint. Tests substitute a stub.
type TextGenerator interface {
	// Complete sends a single user-role prompt and returns the generated
	// text. Errors are never retried here; the caller decides what a failed
	// generation means.
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// ClaudeClient talks to the Anthropic Messages API. A flat per-minute cap
// protects the account from runaway traffic.
type ClaudeClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client

	mu        sync.Mutex
	callCount int
	resetAt   time.Time
	maxPerMin int
}

// NewClaudeClient creates a Messages API client. The key may be empty; the
// controller rejects chat requests before a call can happen in that case.
func NewClaudeClient(client *http.Client, apiKey, baseURL, model string) *ClaudeClient {
	return &ClaudeClient{
		apiKey:     apiKey,
		baseURL:    baseURL,
		model:      model,
		httpClient: client,
		maxPerMin:  20,
	}
}

// Complete implements TextGenerator.
func (c *ClaudeClient) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("anthropic api key is not configured")
	}
	if err := c.checkRateLimit(); err != nil {
		return "", err
	}

	reqBody, err := json.Marshal(models.AnthropicRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		Messages: []models.AnthropicMessage{
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal anthropic request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewBuffer(reqBody))
	if err != nil {
		return "", fmt.Errorf("create anthropic request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicAPIVersion)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("call anthropic api: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read anthropic response: %w", err)
	}

	var apiResp models.AnthropicResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return "", fmt.Errorf("decode anthropic response: %w", err)
	}
	if apiResp.Error != nil {
		return "", fmt.Errorf("anthropic api error (%s): %s", apiResp.Error.Type, apiResp.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("anthropic api returned status %d: %s", resp.StatusCode, string(body))
	}
	if len(apiResp.Content) == 0 || apiResp.Content[0].Text == "" {
		return "", fmt.Errorf("anthropic response has no text content")
	}

	log.Printf("SERVICE: Claude call took %v (input_tokens=%d, output_tokens=%d)",
		time.Since(start), apiResp.Usage.InputTokens, apiResp.Usage.OutputTokens)
	return apiResp.Content[0].Text, nil
}

// checkRateLimit enforces the per-minute call cap.
func (c *ClaudeClient) checkRateLimit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	if now.After(c.resetAt) {
		c.callCount = 0
		c.resetAt = now.Add(time.Minute)
	}
	if c.callCount >= c.maxPerMin {
		return fmt.Errorf("generation rate limit exceeded (%d calls/min)", c.maxPerMin)
	}
	c.callCount++
	return nil
}
