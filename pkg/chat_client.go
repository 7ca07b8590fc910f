package pkg

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

type RequestMessage struct {
	Role    string `json:"role"`
	Content string `json:"content,omitempty"`
	Name    string `json:"name,omitempty"`
}

type DeltaMessage struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

type ChatCompletionRequest struct {
	Model       string           `json:"model"`
	Messages    []RequestMessage `json:"messages"`
	MaxTokens   uint32           `json:"max_tokens,omitempty"`
	Temperature *float32         `json:"temperature,omitempty"`
	TopP        *float32         `json:"top_p,omitempty"`
	N           *uint32          `json:"n,omitempty"`
	Stream      *bool            `json:"stream,omitempty"`
	Stop        []string         `json:"stop,omitempty"`
	User        *string          `json:"user,omitempty"`
}

type StreamChoice struct {
	Index        uint32       `json:"index"`
	Delta        DeltaMessage `json:"delta"`
	FinishReason string       `json:"finish_reason"`
}

type StreamChatCompletionResponse struct {
	ID      string         `json:"id"`
	Object  string         `json:"object"`
	Created uint64         `json:"created"`
	Model   string         `json:"model"`
	Choices []StreamChoice `json:"choices"`
}

// Responder produces the next persona utterance for a conversation. Latency
// is unbounded and failures are expected; callers substitute a fallback
// reply rather than surfacing an error to the user.
type Responder interface {
	Respond(ctx context.Context, systemPrompt string, history []RequestMessage, ask string, stream func(chunk string)) (string, error)
}

// ChatClient talks to an OpenAI-compatible chat completion API
type ChatClient struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
}

func NewChatClient(baseURL, apiKey, model string) *ChatClient {
	return &ChatClient{
		client:  &http.Client{},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
	}
}

func (c *ChatClient) post(ctx context.Context, endpoint string, body interface{}) (*http.Response, error) {
	url := fmt.Sprintf("%s/%s", c.baseURL, endpoint)

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}

	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	return resp, nil
}

// Respond implements Responder by streaming a chat completion
func (c *ChatClient) Respond(ctx context.Context, systemPrompt string, history []RequestMessage, ask string, stream func(string)) (string, error) {
	messages := make([]RequestMessage, 0, len(history)+2)
	if systemPrompt == "" {
		systemPrompt = "You are a friendly companion."
	}
	messages = append(messages, RequestMessage{Role: "system", Content: systemPrompt})
	messages = append(messages, history...)
	messages = append(messages, RequestMessage{Role: "user", Content: ask})

	var fullResponse strings.Builder
	err := c.CreateChatCompletionStream(ctx, ChatCompletionRequest{
		Model:    c.model,
		Messages: messages,
	}, func(resp *StreamChatCompletionResponse) error {
		for _, choice := range resp.Choices {
			if choice.Delta.Content != "" {
				fullResponse.WriteString(choice.Delta.Content)
				if stream != nil {
					stream(choice.Delta.Content)
				}
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return fullResponse.String(), nil
}

// CreateChatCompletionStream handles streaming responses
func (c *ChatClient) CreateChatCompletionStream(ctx context.Context, request ChatCompletionRequest, handler func(*StreamChatCompletionResponse) error) error {
	// Ensure stream is set to true
	streamTrue := true
	request.Stream = &streamTrue

	resp, err := c.post(ctx, "chat/completions", request)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		// Skip empty lines or non-data lines
		if line == "" || !strings.HasPrefix(line, "data: ") {
			continue
		}

		// Check for stream end
		if line == "data: [DONE]" {
			break
		}

		// Parse the JSON data
		jsonData := line[6:] // Remove "data: " prefix
		var response StreamChatCompletionResponse
		err = json.Unmarshal([]byte(jsonData), &response)
		if err != nil {
			return fmt.Errorf("failed to unmarshal stream chunk: %v", err)
		}

		// Call the handler with the parsed response
		if err := handler(&response); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading stream: %v", err)
	}

	return nil
}
