package cronexec

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/loykin/cronsched/internal/cronmodel"
)

// OpenAIExecutor dispatches agent-mode jobs to an OpenAI-compatible chat
// completion endpoint, grounded on the liteclaw-liteclaw example repo's
// internal/agent/llm.OpenAIProvider. A cron job's AgentConfig supplies the
// per-job model/base URL/API key/system prompt; a single default client is
// reused across jobs that override neither the base URL nor the API key.
type OpenAIExecutor struct {
	defaultClient *openai.Client
}

// NewOpenAIExecutor builds an executor whose default client authenticates
// with apiKey against the standard OpenAI endpoint. A per-job
// AgentConfig.BaseURL or AgentConfig.APIKey builds a one-off client for that call.
func NewOpenAIExecutor(apiKey string) *OpenAIExecutor {
	return &OpenAIExecutor{defaultClient: openai.NewClient(apiKey)}
}

func (e *OpenAIExecutor) clientFor(cfg *cronmodel.AgentConfig) *openai.Client {
	if cfg.BaseURL == "" && cfg.APIKey == "" {
		return e.defaultClient
	}
	oaCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oaCfg.BaseURL = cfg.BaseURL
	}
	return openai.NewClientWithConfig(oaCfg)
}

// Execute implements cronexec.AgentExecutor.
func (e *OpenAIExecutor) Execute(ctx context.Context, cfg *cronmodel.AgentConfig, prompt, workingDir string) (string, error) {
	if cfg == nil {
		return "", errors.New("agent job missing agent_config")
	}
	client := e.clientFor(cfg)

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if cfg.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: cfg.SystemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    cfg.Model,
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
