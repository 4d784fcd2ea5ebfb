package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/matchwise-platform/matchwise/internal/config"
	"github.com/matchwise-platform/matchwise/internal/metrics"
)

// ChatOptions tune a single completion call.
type ChatOptions struct {
	Temperature float32
	MaxTokens   int
	JSONMode    bool
}

// JSONCompleter is implemented by providers that support structured JSON
// output mode. The preference extractor requires it.
type JSONCompleter interface {
	CompleteChatWithOptions(ctx context.Context, messages []Message, systemPrompt string, opts ChatOptions) (string, error)
}

// OpenAIProvider implements SemanticProvider against the OpenAI API.
type OpenAIProvider struct {
	client         *openai.Client
	chatModel      string
	embeddingModel string
	embeddingDim   int
}

// NewOpenAI creates a provider from config. The API key must be set; Load
// defaults cover the model names.
func NewOpenAI(cfg config.OpenAIConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai api key is not configured")
	}
	slog.Info("initializing OpenAI provider",
		"chat_model", cfg.ChatModel,
		"embedding_model", cfg.EmbeddingModel,
		"embedding_dim", cfg.EmbeddingDim,
	)
	return &OpenAIProvider{
		client:         openai.NewClient(cfg.APIKey),
		chatModel:      cfg.ChatModel,
		embeddingModel: cfg.EmbeddingModel,
		embeddingDim:   cfg.EmbeddingDim,
	}, nil
}

// EmbeddingDim returns the configured vector dimension.
func (p *OpenAIProvider) EmbeddingDim() int { return p.embeddingDim }

func (p *OpenAIProvider) CompleteChat(ctx context.Context, messages []Message, systemPrompt string) (string, error) {
	return p.CompleteChatWithOptions(ctx, messages, systemPrompt, ChatOptions{
		Temperature: 0.7,
		MaxTokens:   500,
	})
}

func (p *OpenAIProvider) CompleteChatWithOptions(ctx context.Context, messages []Message, systemPrompt string, opts ChatOptions) (string, error) {
	msgs := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	if systemPrompt != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompt,
		})
	}
	for _, m := range messages {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	req := openai.ChatCompletionRequest{
		Model:       p.chatModel,
		Messages:    msgs,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	}
	if opts.JSONMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		metrics.ProviderRequestsTotal.WithLabelValues("chat", "error").Inc()
		return "", classify("chat", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		metrics.ProviderRequestsTotal.WithLabelValues("chat", "error").Inc()
		return "", &Error{Kind: KindMalformed, Op: "chat", Err: errors.New("no choices returned")}
	}

	metrics.ProviderRequestsTotal.WithLabelValues("chat", "ok").Inc()
	return resp.Choices[0].Message.Content, nil
}

func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	// Empty text embeds as a zero vector rather than erroring, so a facet-less
	// query degrades to boost-only ranking downstream.
	if text == "" {
		return make([]float32, p.embeddingDim), nil
	}

	vectors, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (p *OpenAIProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	// The upstream API rejects empty inputs; substitute a single space,
	// matching how blank catalog descriptions are handled.
	input := make([]string, len(texts))
	for i, t := range texts {
		if t == "" {
			t = " "
		}
		input[i] = t
	}

	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(p.embeddingModel),
		Input: input,
	})
	if err != nil {
		metrics.ProviderRequestsTotal.WithLabelValues("embed", "error").Inc()
		return nil, classify("embed", err)
	}
	if len(resp.Data) != len(input) {
		metrics.ProviderRequestsTotal.WithLabelValues("embed", "error").Inc()
		return nil, &Error{
			Kind: KindMalformed,
			Op:   "embed",
			Err:  fmt.Errorf("expected %d embeddings, got %d", len(input), len(resp.Data)),
		}
	}

	vectors := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		vectors[i] = d.Embedding
	}

	metrics.ProviderRequestsTotal.WithLabelValues("embed", "ok").Inc()
	return vectors, nil
}

func classify(op string, err error) *Error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			return &Error{Kind: KindQuota, Op: op, Err: err}
		}
		if apiErr.HTTPStatusCode >= 400 && apiErr.HTTPStatusCode < 500 {
			return &Error{Kind: KindMalformed, Op: op, Err: err}
		}
	}
	return &Error{Kind: KindUnavailable, Op: op, Err: err}
}
