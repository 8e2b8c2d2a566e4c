package vector

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"askdoc/llm"
)

// DefaultTopK is the number of nearest chunks returned when the caller
// does not ask for a specific amount.
const DefaultTopK = 10

// Searcher is a query handle over a single collection.
type Searcher interface {
	// Search returns up to topK nearest chunks by vector distance, best-first.
	Search(ctx context.Context, query string, topK int) ([]llm.SearchResult, error)
}

// Store owns the mapping from collection name to its vector index.
type Store interface {
	// Add writes docs into the named collection. With overwrite set, any
	// existing storage for that name is destroyed first; otherwise docs are
	// appended, implicitly creating the collection when missing.
	Add(ctx context.Context, name string, docs []llm.Document, overwrite bool) error

	// List returns the names of all known collections. A store with no
	// collections returns an empty slice, not an error.
	List(ctx context.Context) ([]string, error)

	// Delete irreversibly removes the named collection and all its chunks.
	Delete(ctx context.Context, name string) error

	// Open returns a query handle for the named collection. Opening a name
	// with no prior storage fails with llm.ErrNotFound; a degenerate empty
	// handle is never returned.
	Open(ctx context.Context, name string) (Searcher, error)

	// Count returns the number of chunks stored in the named collection.
	Count(ctx context.Context, name string) (int64, error)

	// Close releases any connections or resources.
	Close() error
}

// StoreConfig holds configuration for the Redis-backed store.
type StoreConfig struct {
	Addr           string
	Password       string
	DB             int
	PoolSize       int
	Namespace      string
	VectorDim      int
	EFConstruction int
	M              int
}

const (
	defaultEFConstruction = 200
	defaultM              = 16
	defaultNamespace      = "rag"
)

// DefaultStoreConfig returns store configuration from environment variables.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		Addr:           getEnvString("REDIS_ADDR", "localhost:6379"),
		Password:       getEnvString("REDIS_PASSWORD", ""),
		DB:             getEnvInt("REDIS_DB", 0),
		PoolSize:       getEnvInt("REDIS_POOL_SIZE", 10),
		Namespace:      getEnvString("VECTOR_NAMESPACE", defaultNamespace),
		VectorDim:      getEnvInt("VECTOR_DIM", 1536),
		EFConstruction: getEnvInt("HNSW_EF_CONSTRUCTION", defaultEFConstruction),
		M:              getEnvInt("HNSW_M", defaultM),
	}
}

// validateCollectionName rejects names that would break the deterministic
// name-to-storage mapping. The colon is the namespace separator in both key
// prefixes and index names, so allowing it would let two distinct names
// alias the same storage.
func validateCollectionName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: collection name must not be empty", llm.ErrInvalidArgument)
	}
	if strings.ContainsAny(name, ": \t\n") {
		return fmt.Errorf("%w: collection name %q must not contain colons or whitespace", llm.ErrInvalidArgument, name)
	}
	return nil
}

// getEnvString reads a string from an environment variable.
func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// getEnvInt reads an integer from an environment variable.
func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}
