// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package assist

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

	"github.com/taibuivan/keygate/internal/platform/apperr"
)

// invokeTimeout bounds a single completion request.
const invokeTimeout = 35 * time.Second

// maxCompletionBody caps how much of an upstream response is read.
const maxCompletionBody = 4 << 20

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// ChatInvoker calls an OpenAI-compatible /chat/completions endpoint.
type ChatInvoker struct {
	endpoint string
	apiKey   string
	model    string
	client   *http.Client
}

// NewChatInvoker creates an invoker for baseURL. An empty baseURL yields an
// invoker that answers every call with 503.
func NewChatInvoker(baseURL, apiKey, model string) *ChatInvoker {
	endpoint := ""
	if baseURL != "" {
		endpoint = strings.TrimSuffix(baseURL, "/") + "/chat/completions"
	}
	return &ChatInvoker{
		endpoint: endpoint,
		apiKey:   apiKey,
		model:    model,
		client:   &http.Client{Timeout: invokeTimeout},
	}
}

// Enabled reports whether an upstream endpoint is configured.
func (invoker *ChatInvoker) Enabled() bool {
	return invoker.endpoint != ""
}

/*
Invoke sends prompt as a single user message.

Returns:
  - *Completion: first choice's content
  - error: 503 when disabled, 502 for transport or upstream failures
*/
func (invoker *ChatInvoker) Invoke(ctx context.Context, prompt string) (*Completion, error) {
	if !invoker.Enabled() {
		return nil, apperr.ServiceUnavailable("Language model is not configured")
	}

	payload, err := json.Marshal(chatRequest{
		Model:    invoker.model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return nil, fmt.Errorf("assist_invoke_encode_failed: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, invoker.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("assist_invoke_request_failed: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")
	if invoker.apiKey != "" {
		request.Header.Set("Authorization", "Bearer "+invoker.apiKey)
	}

	response, err := invoker.client.Do(request)
	if err != nil {
		return nil, apperr.Upstream(fmt.Errorf("assist_invoke_transport_failed: %w", err))
	}
	defer response.Body.Close()

	body, err := io.ReadAll(io.LimitReader(response.Body, maxCompletionBody))
	if err != nil {
		return nil, apperr.Upstream(fmt.Errorf("assist_invoke_read_failed: %w", err))
	}

	var result chatResponse
	decodeErr := json.Unmarshal(body, &result)

	if response.StatusCode != http.StatusOK {
		if decodeErr == nil && result.Error != nil {
			return nil, apperr.Upstream(fmt.Errorf("assist_invoke_status_%d: %s", response.StatusCode, result.Error.Message))
		}
		return nil, apperr.Upstream(fmt.Errorf("assist_invoke_status_%d", response.StatusCode))
	}
	if decodeErr != nil {
		return nil, apperr.Upstream(fmt.Errorf("assist_invoke_decode_failed: %w", decodeErr))
	}
	if len(result.Choices) == 0 {
		return nil, apperr.Upstream(errors.New("assist_invoke_empty_choices"))
	}

	return &Completion{Content: result.Choices[0].Message.Content}, nil
}

var _ Invoker = (*ChatInvoker)(nil)
