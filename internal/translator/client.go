package translator

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

	"ai-todo/internal/model"
)

const maxResponseBytes = 1 << 20

const systemPrompt = `You are a task management AI assistant. Process the user's command and return a JSON response.
For each task, include these fields:
- id (if existing task)
- title (string)
- estimated_time (string like "30 minutes" or "2 hours")
- due_date (YYYY-MM-DD format)
- progress (number 0-100)
- category (optional category name)
- action (optional, set to "delete" for deletion requests)

Only include tasks that should be created, changed or deleted.
When a user asks to delete a task, set action="delete" and include the task id.

Example response for task creation:
{"tasks": [{"title": "Buy groceries", "estimated_time": "30 minutes", "due_date": "2025-02-25", "progress": 0, "category": "Shopping"}], "message": "Added task to buy groceries"}

Example response for task deletion:
{"tasks": [{"id": 123, "action": "delete"}], "message": "Deleted the task"}`

// ErrMalformedResponse marks a reply that is not the expected JSON shape.
var ErrMalformedResponse = errors.New("malformed translator response")

// Result is the translator's proposal: loosely typed patch records plus a
// message for the user.
type Result struct {
	Tasks   []map[string]any
	Message string
}

// Config configures Client.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Client talks to an OpenAI-compatible chat completions endpoint. Each
// Translate call makes exactly one request.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	timeout time.Duration
	client  *http.Client
	now     func() time.Time
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	ResponseFormat responseFormat `json:"response_format"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// NewClient creates a translator client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		timeout: timeout,
		client:  &http.Client{},
		now:     time.Now,
	}
}

// Translate sends the command together with the current task snapshot and
// returns the proposed patches.
func (c *Client) Translate(ctx context.Context, command string, tasks []model.Task) (*Result, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("XAI_API_KEY not set")
	}

	snapshot, err := json.Marshal(tasks)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt + "\n\nToday is " + c.now().Format(model.DateLayout) + "."},
			{Role: "user", Content: fmt.Sprintf("Current tasks: %s\nCommand: %s", snapshot, command)},
		},
		ResponseFormat: responseFormat{Type: "json_object"},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			return nil, fmt.Errorf("translator API error (%d): %s", resp.StatusCode, apiErr.Error.Message)
		}
		return nil, fmt.Errorf("translator API error (%d): %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var chat chatResponse
	if err := json.Unmarshal(respBody, &chat); err != nil {
		return nil, fmt.Errorf("%w: decode completion: %v", ErrMalformedResponse, err)
	}
	if len(chat.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices", ErrMalformedResponse)
	}

	return DecodeResult(chat.Choices[0].Message.Content)
}

// DecodeResult parses the model's JSON answer. The tasks field must be a
// JSON array of objects; a missing message is allowed.
func DecodeResult(content string) (*Result, error) {
	content = stripCodeFence(content)

	var raw struct {
		Tasks   json.RawMessage `json:"tasks"`
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, fmt.Errorf("%w: content is not a JSON object: %v", ErrMalformedResponse, err)
	}

	tasksJSON := bytes.TrimSpace(raw.Tasks)
	if len(tasksJSON) == 0 || tasksJSON[0] != '[' {
		return nil, fmt.Errorf("%w: tasks is not a list", ErrMalformedResponse)
	}

	result := &Result{}
	if err := json.Unmarshal(tasksJSON, &result.Tasks); err != nil {
		return nil, fmt.Errorf("%w: tasks must be objects: %v", ErrMalformedResponse, err)
	}
	for i, rec := range result.Tasks {
		if rec == nil {
			return nil, fmt.Errorf("%w: task %d is null", ErrMalformedResponse, i)
		}
	}

	if len(raw.Message) > 0 {
		// A non-string message is dropped rather than failing the command.
		_ = json.Unmarshal(raw.Message, &result.Message)
	}
	return result, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
