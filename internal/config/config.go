// Package config loads the service configuration from environment
// variables, per spec.md §6's Configuration list. All fields are
// env-sourceable with sane local-dev defaults; Validate enforces the
// combinations that must agree (e.g. a remote embedding provider needs an
// API key).
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// VectorStoreMode selects the active C2 backend, per spec.md §4.3.
type VectorStoreMode string

const (
	VectorStoreModeLocalFile VectorStoreMode = "local-file"
	VectorStoreModeRemote    VectorStoreMode = "remote"
)

// EmbeddingProvider selects the active C1 backend, per spec.md §4.1.
type EmbeddingProvider string

const (
	EmbeddingProviderLocal  EmbeddingProvider = "local"
	EmbeddingProviderRemote EmbeddingProvider = "remote"
)

// Config is the process-wide configuration assembled once at startup and
// passed explicitly into constructors (no package-level globals), per the
// dependency-injection strategy in spec.md §9.
type Config struct {
	// HTTP
	ListenAddr string

	// Object store (C3)
	StorageRoot string

	// Embedding provider (C1)
	EmbeddingProvider  EmbeddingProvider
	EmbeddingDimension int64
	RemoteEmbeddingURL string
	RemoteEmbeddingKey string
	EmbeddingTimeout   time.Duration

	// Vector store (C2)
	VectorStoreMode       VectorStoreMode
	VectorStoreCollection string
	QdrantAddr            string
	LocalVectorIndexPath  string

	// Vision / recommendation LLM
	VisionModelAPIKey string
	VisionModelName   string
	VisionTimeout     time.Duration

	// Image edit model (external)
	EditModelURL     string
	EditModelKey     string
	EditModelName    string
	EditModelTimeout time.Duration

	// Point-cloud service (external)
	PointCloudServiceURL      string
	PointCloudHTTPTimeout     time.Duration
	PointCloudDownloadTimeout time.Duration
	PointCloudPollInterval    time.Duration
	PointCloudMonitorTimeout  time.Duration

	// Agent orchestrator (C7)
	OrchestratorMaxIterations int
	AgentBaseURL              string

	// Async job manager (C8)
	IndexWorkerPoolSize int
}

// Load builds a Config from the environment, applying the defaults named
// in spec.md. Validate is called before returning.
func Load() (*Config, error) {
	c := &Config{
		ListenAddr: getEnv("LISTEN_ADDR", ":8080"),

		StorageRoot: getEnv("STORAGE_ROOT", "./data/images"),

		EmbeddingProvider:  EmbeddingProvider(getEnv("EMBEDDING_PROVIDER", string(EmbeddingProviderLocal))),
		EmbeddingDimension: getEnvInt64("EMBEDDING_DIMENSION", 1024),
		RemoteEmbeddingURL: getEnv("REMOTE_EMBEDDING_URL", ""),
		RemoteEmbeddingKey: getEnv("REMOTE_EMBEDDING_API_KEY", ""),
		EmbeddingTimeout:   getEnvDuration("EMBEDDING_TIMEOUT", 60*time.Second),

		VectorStoreMode:       VectorStoreMode(getEnv("VECTOR_STORE_MODE", string(VectorStoreModeLocalFile))),
		VectorStoreCollection: getEnv("VECTOR_STORE_COLLECTION", "photos"),
		QdrantAddr:            getEnv("QDRANT_ADDR", "localhost:6334"),
		LocalVectorIndexPath:  getEnv("LOCAL_VECTOR_INDEX_PATH", "./data/vector-index.json"),

		VisionModelAPIKey: getEnv("VISION_MODEL_API_KEY", ""),
		VisionModelName:   getEnv("VISION_MODEL_NAME", "claude-sonnet-4-5"),
		VisionTimeout:     getEnvDuration("VISION_TIMEOUT", 120*time.Second),

		EditModelURL:     getEnv("EDIT_MODEL_URL", ""),
		EditModelKey:     getEnv("EDIT_MODEL_API_KEY", ""),
		EditModelName:    getEnv("EDIT_MODEL_NAME", ""),
		EditModelTimeout: getEnvDuration("EDIT_MODEL_TIMEOUT", 120*time.Second),

		PointCloudServiceURL:      getEnv("POINTCLOUD_SERVICE_URL", ""),
		PointCloudHTTPTimeout:     getEnvDuration("POINTCLOUD_HTTP_TIMEOUT", 300*time.Second),
		PointCloudDownloadTimeout: getEnvDuration("POINTCLOUD_DOWNLOAD_TIMEOUT", 30*time.Second),
		PointCloudPollInterval:    getEnvDuration("POINTCLOUD_POLL_INTERVAL", 5*time.Second),
		PointCloudMonitorTimeout:  getEnvDuration("POINTCLOUD_MONITOR_TIMEOUT", 10*time.Minute),

		OrchestratorMaxIterations: getEnvInt("ORCHESTRATOR_MAX_ITERATIONS", 15),
		AgentBaseURL:              getEnv("AGENT_BASE_URL", "http://localhost:8080"),

		IndexWorkerPoolSize: getEnvInt("INDEX_WORKER_POOL_SIZE", 4),
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate enforces the configuration combinations spec.md §4.1/§4.3
// require before the process can serve traffic.
func (c *Config) Validate() error {
	switch c.EmbeddingProvider {
	case EmbeddingProviderLocal, EmbeddingProviderRemote:
	default:
		return fmt.Errorf("config: unknown embedding provider %q", c.EmbeddingProvider)
	}

	if c.EmbeddingProvider == EmbeddingProviderRemote && c.RemoteEmbeddingKey == "" {
		return fmt.Errorf("config: REMOTE_EMBEDDING_API_KEY is required when EMBEDDING_PROVIDER=remote")
	}

	switch c.VectorStoreMode {
	case VectorStoreModeLocalFile, VectorStoreModeRemote:
	default:
		return fmt.Errorf("config: unknown vector store mode %q", c.VectorStoreMode)
	}

	if c.EmbeddingDimension <= 0 {
		return fmt.Errorf("config: embedding dimension must be > 0, got %d", c.EmbeddingDimension)
	}

	if c.OrchestratorMaxIterations <= 0 {
		return fmt.Errorf("config: orchestrator max iterations must be > 0")
	}

	if c.IndexWorkerPoolSize <= 0 {
		return fmt.Errorf("config: index worker pool size must be > 0")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvInt64(key string, fallback int64) int64 {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
