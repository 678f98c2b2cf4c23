package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"

	"travel-gateway/pkg/providers"
	"travel-gateway/pkg/types"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o-mini"

	CodeNotConfigured   = "ai_not_configured"
	CodeAIError         = "ai_error"
	CodeInvalidResponse = "ai_invalid_response"

	upstream = "llm"
)

var ErrNotJSONObject = errors.New("completion is not a JSON object")

type Config struct {
	BaseURL     string  `mapstructure:"base_url"`
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model          string            `json:"model"`
	Messages       []message         `json:"messages"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format"`
}

type completionResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Client talks to an OpenAI compatible chat-completion endpoint and only
// accepts answers that are a single JSON object.
type Client struct {
	config Config
	caller *providers.Caller
	logger *logrus.Logger
}

func New(config Config, caller *providers.Caller, logger *logrus.Logger) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.Model == "" {
		config.Model = DefaultModel
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	return &Client{
		config: config,
		caller: caller,
		logger: logger,
	}
}

func (c *Client) Configured() bool {
	return c.config.APIKey != ""
}

// CompleteJSON sends the prompts and decodes the answer into a JSON object.
func (c *Client) CompleteJSON(ctx context.Context, system, user string) (map[string]interface{}, error) {
	if !c.Configured() {
		return nil, types.NewConfigurationMissing(http.StatusInternalServerError, CodeNotConfigured, "AI provider is not configured")
	}

	body, err := providers.JSON.Marshal(completionRequest{
		Model: c.config.Model,
		Messages: []message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature:    c.config.Temperature,
		ResponseFormat: map[string]string{"type": "json_object"},
	})
	if err != nil {
		return nil, types.NewInternal(fmt.Errorf("failed to encode completion request: %w", err))
	}

	reply, err := c.caller.Do(ctx, providers.Request{
		Upstream: upstream,
		Method:   fasthttp.MethodPost,
		URL:      c.config.BaseURL + "/chat/completions",
		Headers:  map[string]string{"Authorization": "Bearer " + c.config.APIKey},
		Body:     body,
	})
	if err != nil {
		c.logger.WithError(err).Error("AI request failed")
		return nil, types.NewUpstreamUnavailable(CodeAIError, err)
	}

	var resp completionResponse
	decodeErr := providers.JSON.Unmarshal(reply.Body, &resp)
	if !reply.OK() {
		detail := fmt.Sprintf("AI provider returned status %d", reply.StatusCode)
		if decodeErr == nil && resp.Error != nil && resp.Error.Message != "" {
			detail = resp.Error.Message
		}
		c.logger.WithFields(logrus.Fields{
			"status": reply.StatusCode,
			"detail": detail,
		}).Error("AI provider error")
		return nil, types.NewUpstreamRejected(http.StatusInternalServerError, CodeAIError, "AI provider error", detail)
	}
	if decodeErr != nil || len(resp.Choices) == 0 {
		return nil, types.NewUpstreamRejected(http.StatusBadRequest, CodeInvalidResponse, "AI returned an invalid response", "")
	}

	object, err := ParseObject(resp.Choices[0].Message.Content)
	if err != nil {
		c.logger.WithError(err).Warn("AI returned malformed content")
		return nil, types.NewUpstreamRejected(http.StatusBadRequest, CodeInvalidResponse, "AI returned an invalid response", "")
	}
	return object, nil
}

// ParseObject decodes content that must be exactly one JSON object. A
// markdown code fence around it is tolerated.
func ParseObject(content string) (map[string]interface{}, error) {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(content, "```")
		content = strings.TrimSpace(content)
	}
	if !strings.HasPrefix(content, "{") {
		return nil, ErrNotJSONObject
	}
	var object map[string]interface{}
	if err := providers.JSON.UnmarshalFromString(content, &object); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotJSONObject, err)
	}
	return object, nil
}
