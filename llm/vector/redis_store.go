package vector

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"askdoc/llm"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/redis/go-redis/v9"
)

// Field names in Redis hashes.
const (
	fieldContent    = "content"
	fieldVector     = "vector"
	fieldSource     = "source"
	fieldChunkIndex = "chunk_index"
	fieldCreatedAt  = "created_at"
	fieldMetadata   = "metadata"

	// knnScoreAlias is the alias RediSearch attaches the KNN distance to.
	knnScoreAlias = "score"

	maxTopK = 100
)

// RedisStore implements Store on Redis with one RediSearch HNSW index per
// collection. The storage location of a collection is a pure function of its
// name: index idx:<ns>:<name>, hash keys <ns>:<name>:<id>. A registry set
// tracks which collections exist.
//
// Writes to the same collection serialize on a per-name advisory lock;
// searches proceed lock-free against the last committed state.
type RedisStore struct {
	client       *redis.Client
	embeddingSvc *EmbeddingService
	cfg          StoreConfig
	locks        sync.Map // collection name -> *sync.Mutex
}

// NewRedisStore creates a Redis-backed collection store. The embedder passed
// here is the one and only embedding function for every collection the store
// touches, at ingestion and at query time alike.
func NewRedisStore(ctx context.Context, embedder embedding.Embedder, cfg StoreConfig) (*RedisStore, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedding model is required")
	}
	if cfg.Namespace == "" {
		cfg.Namespace = defaultNamespace
	}
	if cfg.EFConstruction <= 0 {
		cfg.EFConstruction = defaultEFConstruction
	}
	if cfg.M <= 0 {
		cfg.M = defaultM
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to connect to Redis: %v", llm.ErrExternalService, err)
	}

	return &RedisStore{
		client:       client,
		embeddingSvc: NewEmbeddingService(embedder, cfg.VectorDim),
		cfg:          cfg,
	}, nil
}

func (s *RedisStore) registryKey() string {
	return s.cfg.Namespace + ":collections"
}

func (s *RedisStore) indexName(collection string) string {
	return "idx:" + s.cfg.Namespace + ":" + collection
}

func (s *RedisStore) keyPrefix(collection string) string {
	return s.cfg.Namespace + ":" + collection + ":"
}

func (s *RedisStore) lockFor(collection string) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(collection, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// exists reports registry membership for a collection name.
func (s *RedisStore) exists(ctx context.Context, name string) (bool, error) {
	ok, err := s.client.SIsMember(ctx, s.registryKey(), name).Result()
	if err != nil {
		return false, fmt.Errorf("%w: collection lookup failed: %v", llm.ErrExternalService, err)
	}
	return ok, nil
}

// ensureIndex creates the per-collection HNSW index if it does not exist yet.
func (s *RedisStore) ensureIndex(ctx context.Context, collection string) error {
	indexName := s.indexName(collection)
	if _, err := s.client.Do(ctx, "FT.INFO", indexName).Result(); err == nil {
		return nil
	}

	_, err := s.client.Do(ctx, "FT.CREATE", indexName,
		"ON", "HASH",
		"PREFIX", "1", s.keyPrefix(collection),
		"SCHEMA",
		fieldVector, "VECTOR", "HNSW", "10",
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(s.embeddingSvc.Dimension()),
		"DISTANCE_METRIC", "COSINE",
		"EF_CONSTRUCTION", strconv.Itoa(s.cfg.EFConstruction),
		"M", strconv.Itoa(s.cfg.M),
		fieldContent, "TEXT",
		fieldSource, "TAG",
		fieldChunkIndex, "NUMERIC",
		fieldCreatedAt, "NUMERIC",
	).Result()
	if err != nil {
		return fmt.Errorf("%w: failed to create index for collection %q: %v", llm.ErrExternalService, collection, err)
	}
	return nil
}

// dropStorage removes the collection's index together with all its documents.
func (s *RedisStore) dropStorage(ctx context.Context, collection string) error {
	// DD removes the indexed hashes along with the index itself.
	if _, err := s.client.Do(ctx, "FT.DROPINDEX", s.indexName(collection), "DD").Result(); err != nil {
		return fmt.Errorf("%w: failed to drop collection %q: %v", llm.ErrExternalService, collection, err)
	}
	return nil
}

// generateID derives a unique chunk ID from its origin and insert time.
func generateID(source string, chunkIndex int) string {
	h := sha256.New()
	h.Write([]byte(source))
	h.Write([]byte(strconv.Itoa(chunkIndex)))
	h.Write([]byte(strconv.FormatInt(time.Now().UnixNano(), 10)))
	return hex.EncodeToString(h.Sum(nil))[:32]
}

// Add implements Store. The overwrite flag is deliberately a required
// parameter: destroying or silently duplicating a collection must be an
// explicit caller decision.
func (s *RedisStore) Add(ctx context.Context, name string, docs []llm.Document, overwrite bool) error {
	if err := validateCollectionName(name); err != nil {
		return err
	}

	mu := s.lockFor(name)
	mu.Lock()
	defer mu.Unlock()

	known, err := s.exists(ctx, name)
	if err != nil {
		return err
	}

	if overwrite && known {
		if err := s.dropStorage(ctx, name); err != nil {
			return err
		}
	}
	if err := s.ensureIndex(ctx, name); err != nil {
		return err
	}

	if len(docs) > 0 {
		if err := s.insert(ctx, name, docs); err != nil {
			return err
		}
	}

	if err := s.client.SAdd(ctx, s.registryKey(), name).Err(); err != nil {
		return fmt.Errorf("%w: failed to register collection %q: %v", llm.ErrExternalService, name, err)
	}
	return nil
}

// insert embeds and writes a batch of chunks under the collection prefix.
func (s *RedisStore) insert(ctx context.Context, name string, docs []llm.Document) error {
	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Content
	}

	vectors, err := s.embeddingSvc.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("%w: %v", llm.ErrExternalService, err)
	}

	pipe := s.client.Pipeline()
	now := time.Now().Unix()

	for i, doc := range docs {
		if vectors[i] == nil {
			continue
		}
		if doc.ID == "" {
			doc.ID = generateID(doc.Source, doc.ChunkIndex)
		}

		metadataJSON, _ := json.Marshal(doc.Metadata)

		pipe.HSet(ctx, s.keyPrefix(name)+doc.ID,
			fieldContent, doc.Content,
			fieldVector, encodeVector(vectors[i]),
			fieldSource, doc.Source,
			fieldChunkIndex, doc.ChunkIndex,
			fieldCreatedAt, now,
			fieldMetadata, metadataJSON,
		)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: failed to insert documents: %v", llm.ErrExternalService, err)
	}
	return nil
}

// List implements Store.
func (s *RedisStore) List(ctx context.Context) ([]string, error) {
	names, err := s.client.SMembers(ctx, s.registryKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list collections: %v", llm.ErrExternalService, err)
	}
	sort.Strings(names)
	return names, nil
}

// Delete implements Store.
func (s *RedisStore) Delete(ctx context.Context, name string) error {
	if err := validateCollectionName(name); err != nil {
		return err
	}

	mu := s.lockFor(name)
	mu.Lock()
	defer mu.Unlock()

	known, err := s.exists(ctx, name)
	if err != nil {
		return err
	}
	if !known {
		return fmt.Errorf("%w: collection %q does not exist", llm.ErrNotFound, name)
	}

	if err := s.dropStorage(ctx, name); err != nil {
		return err
	}
	if err := s.client.SRem(ctx, s.registryKey(), name).Err(); err != nil {
		return fmt.Errorf("%w: failed to unregister collection %q: %v", llm.ErrExternalService, name, err)
	}
	return nil
}

// Open implements Store.
func (s *RedisStore) Open(ctx context.Context, name string) (Searcher, error) {
	if err := validateCollectionName(name); err != nil {
		return nil, err
	}

	known, err := s.exists(ctx, name)
	if err != nil {
		return nil, err
	}
	if !known {
		return nil, fmt.Errorf("%w: collection %q does not exist", llm.ErrNotFound, name)
	}

	return &Collection{store: s, name: name}, nil
}

// Count implements Store.
func (s *RedisStore) Count(ctx context.Context, name string) (int64, error) {
	if err := validateCollectionName(name); err != nil {
		return 0, err
	}

	info, err := s.client.Do(ctx, "FT.INFO", s.indexName(name)).Result()
	if err != nil {
		return 0, infoLookupError(name, err)
	}

	values, ok := info.([]interface{})
	if !ok {
		return 0, fmt.Errorf("unexpected FT.INFO reply format")
	}
	for i := 0; i < len(values)-1; i += 2 {
		if key, ok := values[i].(string); ok && key == "num_docs" {
			switch v := values[i+1].(type) {
			case int64:
				return v, nil
			case string:
				n, _ := strconv.ParseInt(v, 10, 64)
				return n, nil
			}
		}
	}
	return 0, nil
}

// infoLookupError separates "index does not exist" replies from transport
// failures. RediSearch versions disagree on the exact wording.
func infoLookupError(name string, err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "unknown index") || strings.Contains(msg, "no such index") {
		return fmt.Errorf("%w: collection %q does not exist", llm.ErrNotFound, name)
	}
	return fmt.Errorf("%w: lookup of collection %q failed: %v", llm.ErrExternalService, name, err)
}

// Close implements Store.
func (s *RedisStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// Collection is a query handle bound to one collection name. It shares the
// store's embedding service, so query vectors always come from the same
// embedding function as the ingested chunks.
type Collection struct {
	store *RedisStore
	name  string
}

// Name returns the collection name the handle is bound to.
func (c *Collection) Name() string {
	return c.name
}

// Search implements Searcher via a KNN query against the collection's index.
func (c *Collection) Search(ctx context.Context, query string, topK int) ([]llm.SearchResult, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: query must not be empty", llm.ErrInvalidArgument)
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	if topK > maxTopK {
		topK = maxTopK
	}

	queryVector, err := c.store.embeddingSvc.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", llm.ErrExternalService, err)
	}

	queryStr := fmt.Sprintf("*=>[KNN %d @%s $query_vector AS %s]", topK, fieldVector, knnScoreAlias)

	result, err := c.store.client.Do(ctx, "FT.SEARCH", c.store.indexName(c.name), queryStr,
		"PARAMS", "2", "query_vector", encodeVector(queryVector),
		"RETURN", "5", fieldContent, fieldSource, fieldChunkIndex, fieldMetadata, knnScoreAlias,
		"SORTBY", knnScoreAlias,
		"LIMIT", "0", strconv.Itoa(topK),
		"DIALECT", "2",
	).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: vector search failed: %v", llm.ErrExternalService, err)
	}

	results, err := parseSearchReply(result, c.name)
	if err != nil {
		return nil, fmt.Errorf("failed to parse search results: %w", err)
	}
	return results, nil
}

// parseSearchReply turns a raw FT.SEARCH reply into search results. The reply
// is a flat array: total count, then (key, field-value array) pairs.
func parseSearchReply(reply interface{}, collection string) ([]llm.SearchResult, error) {
	values, ok := reply.([]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected FT.SEARCH reply format")
	}
	if len(values) < 2 {
		return []llm.SearchResult{}, nil
	}

	var results []llm.SearchResult
	for i := 1; i+1 < len(values); i += 2 {
		key, ok := values[i].(string)
		if !ok {
			continue
		}
		fields, ok := values[i+1].([]interface{})
		if !ok {
			continue
		}

		doc, distance := parseDocumentFields(key, fields)
		doc.Collection = collection

		// RediSearch reports cosine distance; flip it into a similarity so
		// bigger means closer, matching the retrieval contract.
		results = append(results, llm.SearchResult{
			Document: doc,
			Score:    1 - distance,
		})
	}
	return results, nil
}

// parseDocumentFields decodes one (field, value) array from a search reply.
func parseDocumentFields(key string, fields []interface{}) (llm.Document, float32) {
	doc := llm.Document{
		ID:       chunkIDFromKey(key),
		Metadata: make(map[string]interface{}),
	}
	var distance float32

	for i := 0; i+1 < len(fields); i += 2 {
		name, ok := fields[i].(string)
		if !ok {
			continue
		}
		value, ok := fields[i+1].(string)
		if !ok {
			continue
		}

		switch name {
		case fieldContent:
			doc.Content = value
		case fieldSource:
			doc.Source = value
		case fieldChunkIndex:
			if n, err := strconv.Atoi(value); err == nil {
				doc.ChunkIndex = n
			}
		case fieldMetadata:
			_ = json.Unmarshal([]byte(value), &doc.Metadata)
		case knnScoreAlias:
			if f, err := strconv.ParseFloat(value, 32); err == nil {
				distance = float32(f)
			}
		}
	}
	return doc, distance
}

// chunkIDFromKey strips the namespace and collection prefix from a hash key.
func chunkIDFromKey(key string) string {
	for i := len(key) - 1; i >= 0; i-- {
		if key[i] == ':' {
			return key[i+1:]
		}
	}
	return key
}

// encodeVector packs a float32 vector into the little-endian byte blob
// RediSearch expects for FLOAT32 vector fields.
func encodeVector(vector []float32) []byte {
	buf := make([]byte, 4*len(vector))
	for i, f := range vector {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeVector unpacks a byte blob produced by encodeVector.
func decodeVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("vector blob length %d is not a multiple of 4", len(data))
	}
	out := make([]float32, len(data)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return out, nil
}
