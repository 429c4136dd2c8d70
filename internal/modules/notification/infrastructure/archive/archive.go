// Package archive keeps a copy of notifications before they are purged.
// Each purge chunk becomes one JSON-lines object.
package archive

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/saransh1220/foodhub/internal/modules/notification/domain"
)

const contentType = "application/x-ndjson"

func encode(batch []domain.Notification) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i := range batch {
		if err := enc.Encode(&batch[i]); err != nil {
			return nil, fmt.Errorf("failed to encode notification %s: %w", batch[i].ID, err)
		}
	}
	return buf.Bytes(), nil
}

// objectKey names a chunk by date, time and the first record in it, e.g.
// 2024/03/01/purge-120000.000000000-1a2b3c4d.jsonl.
func objectKey(prefix string, at time.Time, batch []domain.Notification) string {
	at = at.UTC()
	first := "empty"
	if len(batch) > 0 {
		first = batch[0].ID.String()[:8]
	}
	name := fmt.Sprintf("purge-%s-%s.jsonl", at.Format("150405.000000000"), first)
	return path.Join(prefix, at.Format("2006/01/02"), name)
}
