package ocr

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/agnivade/levenshtein"

	"github.com/ledgerdesk/ledgerdesk/internal/store"
)

// ErrQueueClosed is returned by Enqueue after Close.
var ErrQueueClosed = errors.New("ocr queue closed")

// maxVendorDistance is the levenshtein cutoff for snapping a vendor guess to
// an already-known vendor.
const maxVendorDistance = 2

type job struct {
	purchaseImageID string
	image           []byte
	mimeType        string
}

// Queue serializes extraction work through one worker so the collaborator
// handles exactly one operation at a time, independent of the storage
// engine's own single-writer discipline.
type Queue struct {
	store    *store.Store
	provider Provider

	mu     sync.Mutex
	jobs   chan job
	closed bool
	wg     sync.WaitGroup
}

// NewQueue starts the worker. size bounds the backlog; Enqueue blocks when
// the backlog is full.
func NewQueue(st *store.Store, provider Provider, size int) *Queue {
	if size <= 0 {
		size = 16
	}
	q := &Queue{store: st, provider: provider, jobs: make(chan job, size)}
	q.wg.Add(1)
	go q.worker()
	return q
}

// Enqueue submits one image for extraction. The result lands in the
// append-only extraction trail; callers do not wait for it.
func (q *Queue) Enqueue(purchaseImageID string, image []byte, mimeType string) error {
	// The send happens under the lock so Close cannot close the channel
	// between the check and the send. The worker never takes the lock, so a
	// blocked send still drains; Close waits behind the lock until it lands.
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	q.jobs <- job{purchaseImageID: purchaseImageID, image: image, mimeType: mimeType}
	return nil
}

// Close drains pending jobs and stops the worker.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()
	close(q.jobs)
	q.wg.Wait()
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for j := range q.jobs {
		q.process(j)
	}
}

func (q *Queue) process(j job) {
	ctx := context.Background()
	res, err := q.provider.Extract(ctx, j.image, j.mimeType)
	if err != nil {
		slog.Warn("ocr extraction failed", "image", j.purchaseImageID, "error", err)
		_, aerr := q.store.AppendExtraction(ctx, store.OCRExtraction{
			PurchaseImageID: j.purchaseImageID,
			Status:          store.ExtractionFailed,
		})
		if aerr != nil {
			slog.Warn("ocr audit write failed", "image", j.purchaseImageID, "error", aerr)
		}
		return
	}

	vendor := res.VendorCandidate
	if vendor != nil {
		if known, err := q.store.ListVendors(ctx); err == nil {
			if match, ok := nearestVendor(*vendor, known); ok {
				vendor = &match
			}
		}
	}

	_, err = q.store.AppendExtraction(ctx, store.OCRExtraction{
		PurchaseImageID:      j.purchaseImageID,
		RawText:              res.RawText,
		AmountCandidateCents: res.AmountCandidateCents,
		VendorCandidate:      vendor,
		DateCandidate:        res.DateCandidate,
		AmountConfidence:     res.Confidence.Amount,
		VendorConfidence:     res.Confidence.Vendor,
		DateConfidence:       res.Confidence.Date,
		Status:               store.ExtractionCompleted,
	})
	if err != nil {
		slog.Warn("ocr audit write failed", "image", j.purchaseImageID, "error", err)
	}
}

// nearestVendor snaps candidate to the closest known vendor within the
// distance cutoff, comparing case-insensitively.
func nearestVendor(candidate string, known []string) (string, bool) {
	best := ""
	bestDist := maxVendorDistance + 1
	lc := strings.ToLower(strings.TrimSpace(candidate))
	if lc == "" {
		return "", false
	}
	for _, v := range known {
		d := levenshtein.ComputeDistance(lc, strings.ToLower(v))
		if d < bestDist {
			bestDist = d
			best = v
		}
	}
	if bestDist <= maxVendorDistance {
		return best, true
	}
	return "", false
}
