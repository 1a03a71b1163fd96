// @title           CaseAPI
// @version         1.0
// @description     Asynchronous legal document ingestion and case question answering
// @termsOfService  http://swagger.io/terms/

// @contact.name
// @contact.url
// @contact.email

// @license.name    Apache 2.0
// @license.url     http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:3000
// @BasePath  /
// @schemes   http https
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/nkurra/CaseAPI/internal/capability"
	"github.com/nkurra/CaseAPI/internal/capability/gemini"
	"github.com/nkurra/CaseAPI/internal/capability/openaiProvider"
	"github.com/nkurra/CaseAPI/internal/chunker"
	"github.com/nkurra/CaseAPI/internal/config"
	"github.com/nkurra/CaseAPI/internal/data/blob"
	"github.com/nkurra/CaseAPI/internal/data/metadata"
	"github.com/nkurra/CaseAPI/internal/data/searchindex"
	"github.com/nkurra/CaseAPI/internal/data/store"
	"github.com/nkurra/CaseAPI/internal/data/vectorstore/qdrantDB"
	jobmodel "github.com/nkurra/CaseAPI/internal/domain/jobModel"
	"github.com/nkurra/CaseAPI/internal/handlers"
	"github.com/nkurra/CaseAPI/internal/indexer"
	"github.com/nkurra/CaseAPI/internal/job"
	"github.com/nkurra/CaseAPI/internal/pipeline"
	"github.com/nkurra/CaseAPI/internal/query"
	"github.com/nkurra/CaseAPI/internal/server"
	"github.com/nkurra/CaseAPI/internal/summarizer"
	"github.com/nkurra/CaseAPI/internal/worker"
	"github.com/nkurra/CaseAPI/pkg/logger_i"
)

var (
	listenAddr        string
	requestCount      int64
	stopWorkerChannel chan bool
	workerWaitGroup   sync.WaitGroup
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {

	logger_i.Init()
	var logger = logger_i.NewLogger("main")

	//config
	flag.StringVar(&listenAddr, "listen-addr", config.ServerListenAddr, "server listen address")
	flag.Parse()

	//init buffered job channel
	jobChannel := make(chan jobmodel.Job, config.BufferLimit)
	dispatcherChannel := make(chan bool, 1)
	stopWorkerChannel = make(chan bool, 1)

	serviceContext, closeExternalServices := context.WithCancel(context.Background())
	defer closeExternalServices()

	//metadata store, sqlite is local so a failure here is fatal
	db, err := metadata.NewSQLiteDB(envOr("METADATA_DB_FILE", config.MetadataDBFile))
	if err != nil {
		logger.Error("Metadata store failed to open. Shutting down.", "error", err)
		return
	}
	defer db.Close()
	metaStore := metadata.NewStore(db)

	//blob store with in-memory fallback for local runs
	blobStore := blob.GetMinioStore(serviceContext)
	if blobStore == nil {
		logger.Error("MinIO is offline, falling back to in-memory blob store")
		blobStore = blob.NewInMemoryStore()
	}

	//init job service and job store
	serviceConfig := job.ServiceConfig{
		JobChannel:        jobChannel,
		RequestCount:      requestCount,
		DispatcherChannel: dispatcherChannel,
		JobStore:          store.GetRedisJobStore(serviceContext),
		Meta:              metaStore,
		Blobs:             blobStore,
	}
	logger.Info("Starting job service")

	docLock := store.GetRedisDocLock(serviceContext)
	if serviceConfig.JobStore == nil || docLock == nil {
		logger.Error("Redis stores are offline")
		serviceConfig.JobStore = store.InitInMemoryJobStore()
		docLock = store.InitInMemoryDocLock()
	}
	service := job.InitJobService(serviceConfig)

	searchIndex := searchindex.GetRedisSearchIndex(serviceContext)
	vectorDB := qdrantDB.GetQdrantStore(serviceContext)

	var generator capability.Generator
	var embedder capability.Embedder
	if config.LLMProviderName == "openai" {
		openaiClient := openaiProvider.GetOpenAIClient(envOr("OPENAI_API_KEY", config.OpenAIAPIKey))
		generator = openaiClient
		embedder = openaiClient
	} else {
		apikey := envOr("GOOGLE_API_KEY", config.GoogleAPIKey)
		generator = gemini.GetGeminiClient(serviceContext, config.GeminiModelName, apikey)
		embedder = gemini.GetGeminiEmbeddingClient(serviceContext, config.GoogleEmbeddingModel, apikey)
	}

	if vectorDB == nil || searchIndex == nil || embedder == nil || generator == nil {
		logger.Error("One or more external services failed to initialize. Shutting down.")
		logger.Debug("Available services : ", "VectorDB", vectorDB != nil, "SearchIndex", searchIndex != nil, "Embedder", embedder != nil, "Generator", generator != nil)
		return
	}

	orchestrator := &pipeline.Orchestrator{
		Meta:       metaStore,
		Blobs:      blobStore,
		Vectors:    vectorDB,
		Classifier: capability.NewLLMClassifier(generator),
		Analyzer:   capability.NewLLMAnalyzer(generator),
		Chunker:    chunker.New(embedder, generator),
		Indexer:    indexer.New(embedder, vectorDB, metaStore),
		Summarizer: summarizer.New(generator, metaStore, searchIndex),
		Extractor:  pipeline.NewDefaultExtractor(),
		Locker:     docLock,
	}

	queryEngine := query.NewEngine(metaStore, searchIndex, vectorDB, embedder, generator)

	handlers.InitJobHandler(service)

	//init worker pool
	worker.InitServices(service, orchestrator, queryEngine)
	worker.InitWorkerPool(stopWorkerChannel, &workerWaitGroup)

	//server handling
	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
	stopExecution := make(chan bool, 1)

	shutdownParams := server.ShutdownParams{
		GracefulShutdown: gracefulShutdown,
		StopExecution:    stopExecution,
		WorkerStop:       stopWorkerChannel,
		Group:            &workerWaitGroup,
		CloseServices:    closeExternalServices,
	}
	go server.ShutDownHandler(shutdownParams)
	go server.CreateServer(listenAddr)

	<-stopExecution
	logger.Info("Server stopped")
}
