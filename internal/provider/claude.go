// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"

	"github.com/pdiddy/evidence-engine/internal/httputil"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

const (
	claudeName             = "claude"
	defaultClaudeModel     = "claude-sonnet-4-5"
	defaultClaudeMaxTokens = 4096
)

// Claude calls the Anthropic Messages API through the official SDK.
type Claude struct {
	client    sdk.Client
	apiKey    string
	model     string
	maxTokens int64
	window    int
}

// NewClaude returns a Claude backend. The SDK's own retries are disabled and
// timeout bounds each call.
func NewClaude(cfg types.ProviderConfig, timeout time.Duration, historyWindow int) *Claude {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
		option.WithHTTPClient(httputil.NewClient(timeout)),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	c := &Claude{
		client:    sdk.NewClient(opts...),
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		maxTokens: int64(cfg.MaxTokens),
		window:    historyWindow,
	}
	if c.model == "" {
		c.model = defaultClaudeModel
	}
	if c.maxTokens <= 0 {
		c.maxTokens = defaultClaudeMaxTokens
	}
	return c
}

func (c *Claude) Name() string { return claudeName }

func (c *Claude) Configured() bool { return c.apiKey != "" }

// Generate sends the system prompt as a system block, followed by the
// normalised history and the user message.
func (c *Claude) Generate(ctx context.Context, userMessage, systemPrompt string, history []types.ConversationTurn) (string, error) {
	if !c.Configured() {
		return "", &Error{Provider: claudeName, Message: "Claude API key not configured"}
	}

	turns := NormalizeHistory(history, userMessage, c.window)
	messages := make([]sdk.MessageParam, 0, len(turns)+1)
	for _, t := range turns {
		block := sdk.NewTextBlock(t.Content)
		if t.Role == types.RoleAssistant {
			messages = append(messages, sdk.NewAssistantMessage(block))
		} else {
			messages = append(messages, sdk.NewUserMessage(block))
		}
	}
	messages = append(messages, sdk.NewUserMessage(sdk.NewTextBlock(userMessage)))

	params := sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: c.maxTokens,
		Messages:  messages,
	}
	if systemPrompt != "" {
		params.System = []sdk.TextBlockParam{{Text: systemPrompt}}
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", &Error{
			Provider: claudeName,
			Message:  "Failed to get response from Claude: " + err.Error(),
			Err:      eris.Wrap(err, "anthropic: create message"),
		}
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return EmptyResponse, nil
	}
	return b.String(), nil
}
