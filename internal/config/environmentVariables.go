package config

import (
	"log/slog"
	"time"
)

type ContextKey string

const (
	IS_PROD        = false
	LOG_LEVEL_PROD = slog.LevelInfo

	TRACE_ID_KEY ContextKey = "traceId"

	NoAuthBypass = true
	AuthToken    = ""

	RATE_LIMIT_PER_SECOND       = 2
	BURST_RATE_LIMIT_PER_SECOND = 5

	//worker pool
	RequestsPerNewWorkerCount int64 = 10
	MaxWorkerCount            int64 = 10
	MinWorkerCount            int64 = 1
	IdleWorkerTimeout               = 1 * time.Minute

	//serverTimeouts
	ReadTimeout            = 5 * time.Second
	WriteTimeout           = 10 * time.Second
	IdleTimeout            = 120 * time.Second
	ShutdownContextTimeout = 10 * time.Second

	ServerListenAddr = ":3000"

	//job requests buffer limit
	BufferLimit = 100

	//pipeline
	PipelineStageTimeout   = 120 * time.Second
	MaxRetryCount          = 3
	DocumentLockTTL        = 10 * time.Minute
	MaxUploadBytes   int64 = 50 * 1024 * 1024

	//classification sampling
	ClassifySampleBlocks    = 12
	ClassifySampleMaxChars  = 6000
	ClassifyMinConfidence   = 0.7
	LongDocumentPages       = 3 //sample across begin/middle/end past this
	BoilerplateSkipFirstPage = true

	//chunking
	MaxChunkChars        = 2000
	SimilarityThreshold  = 0.65
	SentenceEmbedBatch   = 32
	EmbeddingBatchSize   = 64

	//summarization
	ChunkSummaryMaxWords   = 75
	DocSummaryMaxWords     = 250
	SummaryInputBudget     = 8000 //chars per reduction level
	MaxReductionDepth      = 4

	//query engine
	RetrievalTopK        = 10
	ContextCharBudget    = 12000
	KeywordSearchLimit   = 10

	//vectorDB
	QdrantConnectionTimeout = 30 * time.Second
	QdrantHost              = ""
	QdrantGrpcPort          = 6334
	QdrantUseTLS            = false
	QdrantPoolSize          = 1
	ChunkCollectionName     = "case-chunks"

	EmbeddingOutputDimensionality int32 = 1536

	//llm + embeddings
	LLMProviderName      = "gemini" //or "openai"
	GeminiModelName      = "gemini-2.5-flash-lite-preview-09-2025"
	GoogleEmbeddingModel = "gemini-embedding-001"
	GoogleAPIKey         = ""
	OpenAIAPIKey         = ""
	OpenAIModelName      = "gpt-4o-mini"
	OpenAIEmbeddingModel = "text-embedding-3-small"
	ModelTemperature     float32 = 0.2
	CapabilityTimeout    = 60 * time.Second

	//blob store (MinIO)
	MinioEndpoint  = "127.0.0.1:9000"
	MinioAccessKey = "minioadmin"
	MinioSecretKey = "minioadmin"
	MinioUseSSL    = false
	MinioBucket    = "case-documents"

	//metadata store (sqlite)
	MetadataDBFile = "data/caseapi.db"

	//redis
	redisHost = "127.0.0.1"
	redisPort = "6379"
	RedisAddr = redisHost + ":" + redisPort

	RedisPassword = ""

	//redis has 16 DBs we can use
	RedisJobStore     = 0
	RedisSearchIndex  = 1
	RedisDocLockStore = 2

	RedisJobStoreTTL = 24 * time.Hour
)
