package migration

import "github.com/ledgerlift/erp-migrator/types"

// taxBuckets groups mapped invoice items by source tax id, remembering the
// order in which tax ids were first seen.
type taxBuckets struct {
	keys  []string
	items map[string][]types.Payload
}

func newTaxBuckets() *taxBuckets {
	return &taxBuckets{items: map[string][]types.Payload{}}
}

func (buckets *taxBuckets) add(taxID string, item types.Payload) {
	if _, ok := buckets.items[taxID]; !ok {
		buckets.keys = append(buckets.keys, taxID)
	}
	buckets.items[taxID] = append(buckets.items[taxID], item)
}
