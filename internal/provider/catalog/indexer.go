package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	es "github.com/elastic/go-elasticsearch/v8"
	"github.com/jonesrussell/north-cloud/exchange-search/internal/domain"
)

// ErrBulkItems is returned when the bulk request succeeds but some items fail.
var ErrBulkItems = errors.New("bulk index reported item errors")

// Indexer writes ranked programs back into the catalog.
type Indexer struct {
	client *es.Client
	index  string
	now    func() time.Time
}

// NewIndexer creates an Indexer.
func NewIndexer(client *es.Client, index string) *Indexer {
	return &Indexer{client: client, index: index, now: time.Now}
}

// Index bulk-upserts records. Records without a URL are skipped.
func (ix *Indexer) Index(ctx context.Context, records []domain.ProgramRecord) (int, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	now := ix.now().UTC()
	count := 0

	for i := range records {
		r := &records[i]
		if r.ProgramURL == "" {
			continue
		}
		meta := map[string]any{"index": map[string]any{"_index": ix.index, "_id": DocumentID(r)}}
		if err := enc.Encode(meta); err != nil {
			return 0, fmt.Errorf("encode bulk meta: %w", err)
		}
		if err := enc.Encode(newDocument(r, now)); err != nil {
			return 0, fmt.Errorf("encode bulk document: %w", err)
		}
		count++
	}
	if count == 0 {
		return 0, nil
	}

	res, err := ix.client.Bulk(
		bytes.NewReader(buf.Bytes()),
		ix.client.Bulk.WithContext(ctx),
		ix.client.Bulk.WithIndex(ix.index),
	)
	if err != nil {
		return 0, fmt.Errorf("elasticsearch bulk failed: %w", err)
	}
	defer func() {
		_ = res.Body.Close()
	}()

	if res.IsError() {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return 0, fmt.Errorf("elasticsearch returned error [%d]: %s", res.StatusCode, string(body))
	}

	var bulkResponse struct {
		Errors bool `json:"errors"`
	}
	if err = json.NewDecoder(res.Body).Decode(&bulkResponse); err != nil {
		return 0, fmt.Errorf("decode bulk response: %w", err)
	}
	if bulkResponse.Errors {
		return count, ErrBulkItems
	}
	return count, nil
}
