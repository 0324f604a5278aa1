package cache

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ledgerlift/erp-migrator/client"
	"github.com/ledgerlift/erp-migrator/types"
)

type ISnapshotClient interface {
	SnapshotAll(ctx context.Context, docTypes []types.SourceDocType) (map[types.SourceDocType]int, error)
}

// SnapshotClient copies source collections into a CacheClient.
type SnapshotClient struct {
	Source client.ISourceReader
	Cache  *CacheClient
	Logger *logrus.Logger
}

func NewSnapshotClient(source client.ISourceReader, cache *CacheClient, logger *logrus.Logger) *SnapshotClient {
	return &SnapshotClient{
		Source: source,
		Cache:  cache,
		Logger: logger,
	}
}

// SnapshotAll clears the cache and stores every collection in docTypes.
// A collection that cannot be fetched or stored is logged and skipped; the
// returned map holds the record count of each cached collection.
func (snapshotClient *SnapshotClient) SnapshotAll(ctx context.Context, docTypes []types.SourceDocType) (map[types.SourceDocType]int, error) {
	if err := snapshotClient.Cache.Clear(); err != nil {
		return nil, err
	}

	counts := map[types.SourceDocType]int{}
	for _, docType := range docTypes {
		if err := ctx.Err(); err != nil {
			return counts, err
		}

		records, err := snapshotClient.Source.GetAll(ctx, docType)
		if err != nil {
			snapshotClient.Logger.Errorf("Could not cache %s: %v", docType, err)
			continue
		}
		if err := snapshotClient.Cache.CreateMany(ctx, docType, records); err != nil {
			return counts, fmt.Errorf("cache %s: %w", docType, err)
		}

		counts[docType] = len(records)
		snapshotClient.Logger.Infof("Cached %d %s records", len(records), docType)
	}
	return counts, nil
}
