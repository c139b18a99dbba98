package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	logger "github.com/sirupsen/logrus"
)

var (
	ErrRequestFailed = errors.New("API request failed")
	ErrEmptyResponse = errors.New("empty response from model")
)

// maxErrorBody caps how much of a failed response body ends up in an error.
const maxErrorBody = 4 << 10

// Options configures a Client.
type Options struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature *float64
	// Timeout bounds a single request. Zero means no timeout.
	Timeout time.Duration
}

// Client sends single-shot chat requests to an OpenAI-compatible API.
type Client struct {
	baseURL     string
	apiKey      string
	model       string
	temperature *float64
	timeout     time.Duration
	httpClient  *http.Client
}

// NewClient creates a new LLM client.
func NewClient(opts Options) *Client {
	return &Client{
		baseURL:     strings.TrimSuffix(opts.BaseURL, "/"),
		apiKey:      opts.APIKey,
		model:       opts.Model,
		temperature: opts.Temperature,
		timeout:     opts.Timeout,
		httpClient:  &http.Client{},
	}
}

// Model returns the model name requests are sent with.
func (c *Client) Model() string {
	return c.model
}

// Complete sends the system and user prompts and returns the reply text.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	messages := make([]Message, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, Message{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, Message{Role: "user", Content: userPrompt})

	bodyBytes, err := json.Marshal(ChatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
		Stream:      false,
	})
	if err != nil {
		return "", err
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	logger.Debugf("HTTP POST %s/chat/completions (model: %s, %d bytes)", c.baseURL, c.model, len(bodyBytes))

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Debugf("HTTP request failed: %v", err)
		return "", fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	logger.Debugf("HTTP response status: %d after %s", resp.StatusCode, time.Since(start).Round(time.Millisecond))

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", fmt.Errorf("%w: %d - %s", ErrRequestFailed, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var chatResp ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("%w: invalid response body: %w", ErrRequestFailed, err)
	}
	if chatResp.Error != nil {
		return "", fmt.Errorf("%w: %s", ErrRequestFailed, chatResp.Error.Message)
	}
	if chatResp.Usage != nil {
		logger.Debugf("usage: prompt=%d, completion=%d", chatResp.Usage.PromptTokens, chatResp.Usage.CompletionTokens)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices", ErrEmptyResponse)
	}
	msg := chatResp.Choices[0].Message
	if msg == nil || msg.Content == "" {
		return "", fmt.Errorf("%w: no message content", ErrEmptyResponse)
	}
	return msg.Content, nil
}
