package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/playperu/tabletop/internal/playground"
)

// Source yields the current document.
type Source interface {
	Get() playground.State
}

// Writer copies the document to an adapter in the background. Any number of
// Schedule calls between two writes collapse into one write of the latest
// state, and a field whose content has not changed since the last successful
// write is not written again.
type Writer struct {
	source  Source
	adapter Adapter
	logger  *slog.Logger
	timeout time.Duration

	dirty chan struct{}

	// Owned by the goroutine calling Run or Flush.
	elementsSum  [blake2b.Size256]byte
	templatesSum [blake2b.Size256]byte
}

// NewWriter treats the source's current content as already stored.
func NewWriter(source Source, adapter Adapter, logger *slog.Logger, timeout time.Duration) *Writer {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	w := &Writer{
		source:  source,
		adapter: adapter,
		logger:  logger,
		timeout: timeout,
		dirty:   make(chan struct{}, 1),
	}
	st := source.Get()
	w.elementsSum, _ = sum(st.Elements)
	w.templatesSum, _ = sum(st.Templates)
	return w
}

// Schedule marks the document dirty. It never blocks.
func (w *Writer) Schedule() {
	select {
	case w.dirty <- struct{}{}:
	default:
	}
}

// Run writes after each Schedule until ctx is cancelled, then makes one last
// attempt if a write is still pending.
func (w *Writer) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			select {
			case <-w.dirty:
				w.logger.Info("flushing playground before shutdown")
				w.flushLogged(context.WithoutCancel(ctx))
			default:
			}
			return nil
		case <-w.dirty:
			w.flushLogged(ctx)
		}
	}
}

func (w *Writer) flushLogged(ctx context.Context) {
	if err := w.Flush(ctx); err != nil {
		w.logger.Error("persisting playground failed", "error", err)
	}
}

// Flush writes the fields that changed since the last successful write.
func (w *Writer) Flush(ctx context.Context) error {
	st := w.source.Get()

	elementsSum, err := sum(st.Elements)
	if err != nil {
		return err
	}
	templatesSum, err := sum(st.Templates)
	if err != nil {
		return err
	}

	var f Fields
	if elementsSum != w.elementsSum {
		f.Elements = &st.Elements
	}
	if templatesSum != w.templatesSum {
		f.Templates = &st.Templates
	}
	if f.Elements == nil && f.Templates == nil {
		w.logger.Debug("playground unchanged, skipping write")
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	start := time.Now()
	if err := w.adapter.ReplaceFields(ctx, f); err != nil {
		return err
	}
	w.elementsSum = elementsSum
	w.templatesSum = templatesSum

	w.logger.Debug("persisted playground",
		"elements", f.Elements != nil,
		"templates", f.Templates != nil,
		"duration", time.Since(start),
	)
	return nil
}

// sum hashes the JSON encoding of v. Map keys are encoded in sorted order,
// so equal documents hash equally.
func sum(v any) ([blake2b.Size256]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return [blake2b.Size256]byte{}, fmt.Errorf("encoding document: %w", err)
	}
	return blake2b.Sum256(data), nil
}
