// Package cache mirrors source collections into local JSON files so a
// migration can run without touching the source API.
package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ledgerlift/erp-migrator/client"
	"github.com/ledgerlift/erp-migrator/types"
)

type collectionFile struct {
	Data map[string]types.Record `json:"data"`
}

// CacheClient stores one <doctype>.json file per collection under Dir.
// Records are keyed by a generated uuid; lookups by id use the record's
// "id" field.
type CacheClient struct {
	Dir    string
	Logger *logrus.Logger

	mu          sync.Mutex
	collections map[types.SourceDocType]map[string]types.Record
}

func NewCacheClient(dir string, logger *logrus.Logger) *CacheClient {
	return &CacheClient{
		Dir:         dir,
		Logger:      logger,
		collections: map[types.SourceDocType]map[string]types.Record{},
	}
}

// Open checks that the cache directory exists.
func (cacheClient *CacheClient) Open() error {
	info, err := os.Stat(cacheClient.Dir)
	if err != nil {
		return fmt.Errorf("open cache %s: %w", cacheClient.Dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("open cache %s: not a directory", cacheClient.Dir)
	}
	return nil
}

func (cacheClient *CacheClient) GetAll(ctx context.Context, docType types.SourceDocType) ([]types.Record, error) {
	cacheClient.mu.Lock()
	defer cacheClient.mu.Unlock()

	collection, err := cacheClient.load(docType)
	if err != nil {
		return nil, err
	}
	return sortedRecords(collection), nil
}

func (cacheClient *CacheClient) Get(ctx context.Context, docType types.SourceDocType, id string) (types.Record, error) {
	records, err := cacheClient.Search(ctx, docType, []types.Filter{types.Equals("id", id)})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, &client.APIError{
			StatusCode: http.StatusNotFound,
			Method:     http.MethodGet,
			URL:        cacheClient.path(docType) + "#" + id,
		}
	}
	return records[0], nil
}

func (cacheClient *CacheClient) Search(ctx context.Context, docType types.SourceDocType, filters []types.Filter) ([]types.Record, error) {
	cacheClient.mu.Lock()
	defer cacheClient.mu.Unlock()

	collection, err := cacheClient.load(docType)
	if err != nil {
		return nil, err
	}

	var matches []types.Record
	for _, record := range sortedRecords(collection) {
		matched, err := matchesAll(record, filters)
		if err != nil {
			return nil, fmt.Errorf("search %s: %w", docType, err)
		}
		if matched {
			matches = append(matches, record)
		}
	}
	return matches, nil
}

// Create stores a single record and returns it.
func (cacheClient *CacheClient) Create(ctx context.Context, docType types.SourceDocType, record types.Record) (types.Record, error) {
	if err := cacheClient.CreateMany(ctx, docType, []types.Record{record}); err != nil {
		return nil, err
	}
	return record, nil
}

// CreateMany stores records and writes the collection file once.
func (cacheClient *CacheClient) CreateMany(ctx context.Context, docType types.SourceDocType, records []types.Record) error {
	cacheClient.mu.Lock()
	defer cacheClient.mu.Unlock()

	collection, err := cacheClient.load(docType)
	if err != nil {
		return err
	}
	for _, record := range records {
		collection[uuid.NewString()] = record
	}
	return cacheClient.export(docType, collection)
}

// Clear removes every collection file from the cache directory.
func (cacheClient *CacheClient) Clear() error {
	cacheClient.mu.Lock()
	defer cacheClient.mu.Unlock()

	files, err := filepath.Glob(filepath.Join(cacheClient.Dir, "*.json"))
	if err != nil {
		return err
	}
	for _, file := range files {
		if err := os.Remove(file); err != nil {
			return fmt.Errorf("clear cache: %w", err)
		}
	}
	cacheClient.collections = map[types.SourceDocType]map[string]types.Record{}
	return nil
}

func (cacheClient *CacheClient) path(docType types.SourceDocType) string {
	return filepath.Join(cacheClient.Dir, string(docType)+".json")
}

// load returns the in-memory collection, reading its file on first use.
// A missing file is an empty collection.
func (cacheClient *CacheClient) load(docType types.SourceDocType) (map[string]types.Record, error) {
	if collection, ok := cacheClient.collections[docType]; ok {
		return collection, nil
	}

	collection := map[string]types.Record{}
	content, err := os.ReadFile(cacheClient.path(docType))
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read cache %s: %w", docType, err)
	default:
		var file collectionFile
		decoder := json.NewDecoder(bytes.NewReader(content))
		decoder.UseNumber()
		if err := decoder.Decode(&file); err != nil {
			return nil, fmt.Errorf("parse cache %s: %w", docType, err)
		}
		if file.Data != nil {
			collection = file.Data
		}
	}

	cacheClient.collections[docType] = collection
	return collection, nil
}

func (cacheClient *CacheClient) export(docType types.SourceDocType, collection map[string]types.Record) error {
	content, err := json.Marshal(collectionFile{Data: collection})
	if err != nil {
		return fmt.Errorf("marshal cache %s: %w", docType, err)
	}

	if err := os.MkdirAll(cacheClient.Dir, 0755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	tmpPath := cacheClient.path(docType) + ".tmp"
	if err := os.WriteFile(tmpPath, content, 0644); err != nil {
		return fmt.Errorf("write cache %s: %w", docType, err)
	}
	return os.Rename(tmpPath, cacheClient.path(docType))
}

// sortedRecords orders records by their id, then by cache key.
func sortedRecords(collection map[string]types.Record) []types.Record {
	keys := make([]string, 0, len(collection))
	for key := range collection {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		left, right := collection[keys[i]].String("id"), collection[keys[j]].String("id")
		if left != right {
			return left < right
		}
		return keys[i] < keys[j]
	})

	records := make([]types.Record, 0, len(keys))
	for _, key := range keys {
		records = append(records, collection[key])
	}
	return records
}
