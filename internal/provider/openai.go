// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"

	"github.com/pdiddy/evidence-engine/internal/httputil"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

const (
	openAIName             = "openai"
	defaultOpenAIModel     = "gpt-4o"
	defaultOpenAIMaxTokens = 1024
	defaultOpenAIBaseURL   = "https://api.openai.com/v1"
)

// OpenAI calls a chat-completions endpoint over plain HTTP.
type OpenAI struct {
	client    *http.Client
	apiKey    string
	model     string
	maxTokens int
	baseURL   string
	window    int
}

type chatRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	Messages  []chatMessage `json:"messages"`
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

// NewOpenAI returns an OpenAI backend whose HTTP client carries timeout.
func NewOpenAI(cfg types.ProviderConfig, timeout time.Duration, historyWindow int) *OpenAI {
	o := &OpenAI{
		client:    httputil.NewClient(timeout),
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		window:    historyWindow,
	}
	if o.model == "" {
		o.model = defaultOpenAIModel
	}
	if o.maxTokens <= 0 {
		o.maxTokens = defaultOpenAIMaxTokens
	}
	if o.baseURL == "" {
		o.baseURL = defaultOpenAIBaseURL
	}
	return o
}

func (o *OpenAI) Name() string { return openAIName }

func (o *OpenAI) Configured() bool { return o.apiKey != "" }

// Generate sends system prompt, normalised history and user message as one
// chat-completions request.
func (o *OpenAI) Generate(ctx context.Context, userMessage, systemPrompt string, history []types.ConversationTurn) (string, error) {
	if !o.Configured() {
		return "", &Error{Provider: openAIName, Message: "OpenAI API key not configured"}
	}

	turns := NormalizeHistory(history, userMessage, o.window)
	req := chatRequest{
		Model:     o.model,
		MaxTokens: o.maxTokens,
		Messages:  make([]chatMessage, 0, len(turns)+2),
	}
	req.Messages = append(req.Messages, chatMessage{Role: "system", Content: systemPrompt})
	for _, t := range turns {
		req.Messages = append(req.Messages, chatMessage{Role: string(t.Role), Content: t.Content})
	}
	req.Messages = append(req.Messages, chatMessage{Role: "user", Content: userMessage})

	var resp chatResponse
	headers := map[string]string{"Authorization": "Bearer " + o.apiKey}
	if err := httputil.PostJSON(ctx, o.client, o.baseURL+"/chat/completions", headers, req, &resp); err != nil {
		return "", &Error{
			Provider: openAIName,
			Message:  "Failed to get response from OpenAI: " + describe(err),
			Err:      eris.Wrap(err, "openai: chat completion"),
		}
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return EmptyResponse, nil
	}
	return resp.Choices[0].Message.Content, nil
}

// describe prefers the API's own error message over the raw body.
func describe(err error) string {
	var se *httputil.StatusError
	if !errors.As(err, &se) {
		return err.Error()
	}
	if msg := gjson.Get(se.Body, "error.message").String(); msg != "" {
		return fmt.Sprintf("%s (HTTP %d)", msg, se.StatusCode)
	}
	return se.Error()
}
