package openaiProvider

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/nkurra/CaseAPI/internal/capability"
	"github.com/nkurra/CaseAPI/internal/config"
	"github.com/nkurra/CaseAPI/pkg/logger_i"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Alternative provider to Gemini, behind the same capability interfaces.
// One client serves both generation and embeddings.

type Client struct {
	api            openai.Client
	model          string
	embeddingModel string
}

var logger *logger_i.Logger
var instance *Client
var once sync.Once

func GetOpenAIClient(apikey string) *Client {
	once.Do(func() {
		logger = logger_i.NewLogger("llm_openai")
		if apikey == "" {
			logger.Error("OpenAI API key is empty")
			return
		}
		instance = &Client{
			api:            openai.NewClient(option.WithAPIKey(apikey)),
			model:          config.OpenAIModelName,
			embeddingModel: config.OpenAIEmbeddingModel,
		}
		logger.Info("OpenAI client created", "model", config.OpenAIModelName)
	})
	return instance
}

var _ capability.Generator = (*Client)(nil)
var _ capability.Embedder = (*Client)(nil)

func (c *Client) GenerateText(ctx context.Context, prompt string, contextText string) (string, error) {
	log := logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	userPrompt := prompt
	if contextText != "" {
		userPrompt = fmt.Sprintf("Context:\n%s\n\n%s", contextText, prompt)
	}

	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(userPrompt),
		},
	})
	if err != nil {
		log.Error("OpenAI generation failed", "error", err)
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("empty generation response")
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *Client) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	vectors, err := c.BatchEmbedding(ctx, []string{query}, false)
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (c *Client) BatchEmbedding(ctx context.Context, texts []string, isHugeDataSet bool) ([][]float32, error) {
	log := logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "batch", len(texts))

	resp, err := c.api.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(c.embeddingModel),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
		Dimensions: openai.Int(int64(config.EmbeddingOutputDimensionality)),
	})
	if err != nil {
		log.Error("OpenAI embedding failed", "error", err)
		return nil, err
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	vectors := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		vec := make([]float32, len(d.Embedding))
		for j, v := range d.Embedding {
			vec[j] = float32(v)
		}
		vectors[i] = vec
	}
	return vectors, nil
}
