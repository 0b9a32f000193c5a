package autoresponder

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	messagesDomain "github.com/wappanel/wappanel/messages/domain"
)

// Turn is one prior exchange replayed to the model.
type Turn struct {
	Role messagesDomain.Role
	Text string
}

// CompletionRequest carries everything one completion call needs.
type CompletionRequest struct {
	APIKey       string
	Model        string
	SystemPrompt string
	SessionID    string
	History      []Turn
	UserText     string
	// Metadata gives the model conversation context: phone, contact
	// name, instance, tenant, message type, source.
	Metadata map[string]string
}

// AIClient is the remote completion contract.
type AIClient interface {
	CreateSession(ctx context.Context, apiKey, systemPrompt string) (string, error)
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// OpenAIClient talks to an OpenAI-compatible chat completion API.
type OpenAIClient struct {
	baseURL string
	timeout time.Duration
}

func NewOpenAIClient(baseURL string, timeout time.Duration) *OpenAIClient {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &OpenAIClient{baseURL: baseURL, timeout: timeout}
}

// CreateSession mints the continuity token for a conversation. The
// chat completion API is stateless; history is replayed per turn, so
// no remote call is needed here.
func (c *OpenAIClient) CreateSession(ctx context.Context, apiKey, systemPrompt string) (string, error) {
	if apiKey == "" {
		return "", fmt.Errorf("api key is required")
	}
	return uuid.New().String(), nil
}

func (c *OpenAIClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	opts := []option.RequestOption{option.WithAPIKey(req.APIKey)}
	if c.baseURL != "" {
		opts = append(opts, option.WithBaseURL(c.baseURL))
	}
	client := openai.NewClient(opts...)

	var messages []openai.ChatCompletionMessageParamUnion
	if req.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(req.SystemPrompt))
	}
	if len(req.Metadata) > 0 {
		messages = append(messages, openai.SystemMessage(metadataContext(req.Metadata)))
	}
	for _, turn := range req.History {
		if turn.Role == messagesDomain.RoleAssistant {
			messages = append(messages, openai.AssistantMessage(turn.Text))
		} else {
			messages = append(messages, openai.UserMessage(turn.Text))
		}
	}
	messages = append(messages, openai.UserMessage(req.UserText))

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	completion, err := client.Chat.Completions.New(callCtx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(req.Model),
		Messages: messages,
	})
	if err != nil {
		return "", err
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("no completion choices returned")
	}
	return completion.Choices[0].Message.Content, nil
}

func metadataContext(metadata map[string]string) string {
	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("Conversation context:")
	for _, k := range keys {
		b.WriteString(fmt.Sprintf("\n- %s: %s", k, metadata[k]))
	}
	return b.String()
}
