package gemini

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nkurra/CaseAPI/internal/capability"
	"github.com/nkurra/CaseAPI/internal/config"
	"github.com/nkurra/CaseAPI/pkg/logger_i"
	"google.golang.org/genai"
)

var embedLogger *logger_i.Logger
var embedOnce sync.Once
var embeddingClient *embedClient
var dimension int32 = config.EmbeddingOutputDimensionality

type embedClient struct {
	genAi *genai.Client
	model string
}

func GetGeminiEmbeddingClient(ctx context.Context, modelName string, apikey string) capability.Embedder {
	embedOnce.Do(func() {
		embedLogger = logger_i.NewLogger("gemini_embedding")
		newGeminiEmbedder(ctx, modelName, apikey)
	})

	//if init still fails
	if embeddingClient == nil {
		return nil
	}
	return &embedClient{genAi: embeddingClient.genAi, model: embeddingClient.model}
}

func newGeminiEmbedder(ctx context.Context, modelName string, apikey string) {
	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apikey})
	if err != nil {
		embedLogger.Error("Error creating Gemini embedding client:", "error", err)
	}
	if c != nil {
		embeddingClient = &embedClient{genAi: c, model: modelName}
		embedLogger.Info("Gemini embedding client created", "model", modelName)
	}
}

func (c *embedClient) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	log := embedLogger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	result, err := c.doCall(ctx, genai.Text(query))
	if err != nil {
		log.Error("Error getting embedding from Gemini", "error", err)
		return nil, err
	}
	if len(result.Embeddings) == 0 {
		return nil, errors.New("empty embedding response")
	}
	return result.Embeddings[0].Values, nil
}

func (c *embedClient) BatchEmbedding(ctx context.Context, texts []string, isHugeDataSet bool) ([][]float32, error) {
	log := embedLogger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "batch", len(texts))

	res, err := c.doCall(ctx, getContent(texts))
	if err != nil {
		if doRetry(err, log) {
			time.Sleep(5 * time.Second)
			log.Debug("Retrying after rate limit")
			res, err = c.doCall(ctx, getContent(texts))
		}
		if err != nil {
			log.Error("Error getting batch embeddings from Gemini", "error", err)
			return nil, err
		}
	}

	if len(res.Embeddings) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(res.Embeddings))
	}

	var vectors [][]float32
	for _, r := range res.Embeddings {
		vectors = append(vectors, r.Values)
	}
	return vectors, nil
}

func (c *embedClient) doCall(ctx context.Context, content []*genai.Content) (*genai.EmbedContentResponse, error) {
	return c.genAi.Models.EmbedContent(ctx, c.model, content,
		&genai.EmbedContentConfig{OutputDimensionality: &dimension, TaskType: "RETRIEVAL_DOCUMENT"})
}
