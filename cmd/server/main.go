// Command server runs the semantic photo library service: upload and
// indexing, semantic/metadata search, the conversational agent, and the
// background point-cloud and recommendation workflows, all behind one
// HTTP listener, per spec.md §9's process model.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	qc "github.com/qdrant/go-client/qdrant"

	"github.com/lingxi-album/backend/internal/agent"
	"github.com/lingxi-album/backend/internal/config"
	"github.com/lingxi-album/backend/internal/embedding"
	"github.com/lingxi-album/backend/internal/imageedit"
	"github.com/lingxi-album/backend/internal/indexer"
	"github.com/lingxi-album/backend/internal/jobs"
	"github.com/lingxi-album/backend/internal/objectstore"
	"github.com/lingxi-album/backend/internal/pkg/xsync"
	"github.com/lingxi-album/backend/internal/pointcloud"
	"github.com/lingxi-album/backend/internal/reasoning"
	"github.com/lingxi-album/backend/internal/search"
	"github.com/lingxi-album/backend/internal/tool"
	"github.com/lingxi-album/backend/internal/transport"
	"github.com/lingxi-album/backend/internal/vectorstore"
	"github.com/lingxi-album/backend/internal/vectorstore/localfs"
	"github.com/lingxi-album/backend/internal/vectorstore/qdrant"
	"github.com/lingxi-album/backend/internal/vision"
	"github.com/lingxi-album/backend/internal/workflow"

	"github.com/anthropics/anthropic-sdk-go"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("config: failed to load", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	components, err := build(ctx, cfg, logger)
	if err != nil {
		logger.Error("server: failed to build components", "error", err)
		os.Exit(1)
	}
	defer components.jobsManager.Stop()
	defer components.indexPool.StopWait()
	defer components.jobsPool.StopWait()

	srv := components.server

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: srv.Routes(),
	}

	go func() {
		logger.Info("server: listening", "addr", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server: listen failed", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("server: shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("server: graceful shutdown failed", "error", err)
	}
}

// components holds everything build assembles that main needs to stop
// cleanly on shutdown, beyond the transport.Server itself.
type components struct {
	server      *transport.Server
	jobsManager *jobs.Manager
	indexPool   *xsync.WorkerPool
	jobsPool    *xsync.WorkerPool
}

// build wires every component spec.md §9 names, following the
// deployment-time choices in cfg.
func build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*components, error) {
	objects, err := objectstore.New(cfg.StorageRoot)
	if err != nil {
		return nil, err
	}

	embedProvider, err := buildEmbeddingProvider(cfg)
	if err != nil {
		return nil, err
	}

	vectors, err := buildVectorStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	indexPool := xsync.NewWorkerPool(cfg.IndexWorkerPoolSize)
	ix := indexer.New(objects, embedProvider, vectors, indexPool)
	searchEngine := search.New(embedProvider, vectors, objects)

	var visionClient *vision.Client
	if cfg.VisionModelAPIKey != "" {
		visionClient = vision.NewClient(cfg.VisionModelAPIKey, anthropic.Model(cfg.VisionModelName))
	}

	var editService *imageedit.Service
	if cfg.EditModelURL != "" {
		editClient := imageedit.NewClient(cfg.EditModelURL, cfg.EditModelKey, cfg.EditModelName, cfg.EditModelTimeout)
		editService = imageedit.NewService(editClient, ix)
	}

	var pointClouds *pointcloud.Manager
	if cfg.PointCloudServiceURL != "" {
		pcClient := pointcloud.NewClient(cfg.PointCloudServiceURL, cfg.PointCloudHTTPTimeout, cfg.PointCloudDownloadTimeout)
		pointClouds, err = pointcloud.NewManager(cfg.StorageRoot+"/pointclouds", pcClient, objects)
		if err != nil {
			return nil, err
		}
	}

	sessions := agent.NewSessionStore()
	jobsPool := xsync.NewWorkerPool(cfg.IndexWorkerPoolSize)
	jobsManager := jobs.NewManager(jobsPool, pointClouds, sessions, cfg.PointCloudPollInterval, cfg.PointCloudMonitorTimeout, logger)

	registry := tool.Default()
	reasoningEngine := reasoning.New(reasoning.Config{
		APIKey:        cfg.VisionModelAPIKey,
		Model:         anthropic.Model(cfg.VisionModelName),
		BaseURL:       cfg.AgentBaseURL,
		MaxIterations: cfg.OrchestratorMaxIterations,
		Logger:        logger,
	}, registry)

	orchestrator := agent.New(sessions, reasoningEngine, searchEngine, jobsManager.MonitorSession, logger)

	recommendation := workflow.NewRecommendationService(visionClient)
	deletion := workflow.NewDeletionService(objects, vectors)

	srv := &transport.Server{
		Objects:        objects,
		Indexer:        ix,
		Vectors:        vectors,
		Search:         searchEngine,
		Orchestrator:   orchestrator,
		Sessions:       sessions,
		Vision:         visionClient,
		ImageEdit:      editService,
		PointClouds:    pointClouds,
		Jobs:           jobsManager,
		Recommendation: recommendation,
		Deletion:       deletion,
		Logger:         logger,
	}
	return &components{
		server:      srv,
		jobsManager: jobsManager,
		indexPool:   indexPool,
		jobsPool:    jobsPool,
	}, nil
}

func buildEmbeddingProvider(cfg *config.Config) (embedding.Provider, error) {
	switch cfg.EmbeddingProvider {
	case config.EmbeddingProviderRemote:
		return embedding.NewRemoteBackend(cfg.RemoteEmbeddingURL, cfg.RemoteEmbeddingKey, cfg.EmbeddingDimension, cfg.EmbeddingTimeout), nil
	default:
		return embedding.NewLocalBackend(cfg.EmbeddingDimension), nil
	}
}

func buildVectorStore(ctx context.Context, cfg *config.Config) (vectorstore.Store, error) {
	switch cfg.VectorStoreMode {
	case config.VectorStoreModeRemote:
		host, port, err := splitHostPort(cfg.QdrantAddr)
		if err != nil {
			return nil, err
		}
		client, err := qc.NewClient(&qc.Config{Host: host, Port: port})
		if err != nil {
			return nil, err
		}
		return qdrant.Open(ctx, client, cfg.VectorStoreCollection, cfg.EmbeddingDimension)
	default:
		return localfs.New(cfg.EmbeddingDimension, cfg.VectorStoreCollection, cfg.LocalVectorIndexPath)
	}
}

func splitHostPort(addr string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, err
	}
	return host, port, nil
}
