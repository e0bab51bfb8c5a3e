package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/easybet/easybet/internal/domain"
)

// multipartThreshold is the payload size above which the archiver switches
// from a single PutObject to a multipart upload.
const multipartThreshold = 8 * 1024 * 1024

// SettlementArchive implements domain.SettlementArchiver by serializing a
// distribution batch to JSONL and uploading it to S3. The first line is the
// batch summary; each following line is one per-token payout result.
//
// Object keys:
//
//	settlements/{marketID}/{batchID}.jsonl
type SettlementArchive struct {
	writer domain.BlobWriter
	audit  domain.AuditStore
}

// NewSettlementArchive creates a new SettlementArchive.
func NewSettlementArchive(writer domain.BlobWriter, audit domain.AuditStore) *SettlementArchive {
	return &SettlementArchive{writer: writer, audit: audit}
}

// settlementHeader is the summary line at the top of each report.
type settlementHeader struct {
	MarketID  int64     `json:"market_id"`
	BatchID   string    `json:"batch_id"`
	TotalPaid int64     `json:"total_paid"`
	Remainder int64     `json:"remainder"`
	Complete  bool      `json:"complete"`
	Results   int       `json:"results"`
	RanAt     time.Time `json:"ran_at"`
}

// ArchiveSettlement uploads the report for one distribution batch and
// records the upload in the audit log. It returns the object key.
func (a *SettlementArchive) ArchiveSettlement(ctx context.Context, dist domain.Distribution) (string, error) {
	buf, err := marshalReport(dist)
	if err != nil {
		return "", fmt.Errorf("s3blob: settlement %s marshal: %w", dist.BatchID, err)
	}

	path := settlementPath(dist.MarketID, dist.BatchID)
	if len(buf) > multipartThreshold {
		err = a.writer.PutMultipart(ctx, path, bytes.NewReader(buf), 0)
	} else {
		err = a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson")
	}
	if err != nil {
		return "", fmt.Errorf("s3blob: settlement %s upload: %w", dist.BatchID, err)
	}

	if err := a.audit.Log(ctx, "settlement.archived", map[string]any{
		"path":       path,
		"market_id":  dist.MarketID,
		"batch_id":   dist.BatchID,
		"total_paid": dist.TotalPaid,
		"results":    len(dist.Results),
	}); err != nil {
		return path, fmt.Errorf("s3blob: settlement %s audit log: %w", dist.BatchID, err)
	}

	return path, nil
}

// SettlementPrefix returns the key prefix under which a market's settlement
// reports live, for listing via a BlobReader.
func SettlementPrefix(marketID int64) string {
	return fmt.Sprintf("settlements/%d/", marketID)
}

func settlementPath(marketID int64, batchID string) string {
	return fmt.Sprintf("settlements/%d/%s.jsonl", marketID, batchID)
}

// marshalReport serialises the distribution as newline-delimited JSON: the
// summary first, then one line per result.
func marshalReport(dist domain.Distribution) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	header := settlementHeader{
		MarketID:  dist.MarketID,
		BatchID:   dist.BatchID,
		TotalPaid: dist.TotalPaid,
		Remainder: dist.Remainder,
		Complete:  dist.Complete,
		Results:   len(dist.Results),
		RanAt:     dist.RanAt,
	}
	if err := enc.Encode(header); err != nil {
		return nil, fmt.Errorf("jsonl encode header: %w", err)
	}
	for i, res := range dist.Results {
		if err := enc.Encode(res); err != nil {
			return nil, fmt.Errorf("jsonl encode result %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// Compile-time interface check.
var _ domain.SettlementArchiver = (*SettlementArchive)(nil)
