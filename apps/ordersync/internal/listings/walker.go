package listings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"ordersync/apps/ordersync/internal/httpx"
	"ordersync/apps/ordersync/internal/markets"
	"ordersync/apps/ordersync/internal/normalize"
	"ordersync/apps/ordersync/internal/sink"
)

// CursorStore persists the walker's pagination position so an interrupted run
// is observable. Optional; a nil store disables bookkeeping.
type CursorStore interface {
	UpdateCursor(ctx context.Context, scope, cursor string, itemsProcessed int) error
}

// Result summarizes one walker run.
type Result struct {
	Pages             int
	Upserted          int
	NormalizeFailures int
	SinkFailures      int
}

// Walker drives a fetch-normalize-upsert loop over one marketplace's paginated
// active-listing endpoint until the source is exhausted.
type Walker struct {
	profile *markets.Profile
	apiKey  string
	client  *httpx.Throttle
	retry   httpx.Retry
	sink    sink.Sink
	states  CursorStore
	logger  *zap.Logger
}

func NewWalker(profile *markets.Profile, apiKey string, client *httpx.Throttle, retry httpx.Retry, s sink.Sink, states CursorStore, logger *zap.Logger) *Walker {
	return &Walker{
		profile: profile,
		apiKey:  apiKey,
		client:  client,
		retry:   retry,
		sink:    s,
		states:  states,
		logger:  logger,
	}
}

// Run walks every page of active listings for the collection. An empty page
// terminates cleanly, including an empty first page (zero results, not an
// error); in cursor mode an absent or empty next-cursor also terminates and
// is never retried with the same cursor. A fetch whose retry budget exhausts
// aborts the run with the fatal error; normalize and sink failures are
// counted and skipped.
func (w *Walker) Run(ctx context.Context, collection string) (Result, error) {
	var result Result
	cursor := ""
	offset := 0

	for {
		p, err := w.fetchPage(ctx, collection, cursor, offset)
		if err != nil {
			return result, fmt.Errorf("failed to fetch page %d: %w", result.Pages+1, err)
		}
		result.Pages++

		if len(p.entries) == 0 {
			break
		}

		for _, entry := range p.entries {
			order, err := normalize.Listing(w.profile, collection, entry)
			if err != nil {
				w.logger.Warn("Skipping unnormalizable listing",
					zap.String("marketplace", w.profile.Name),
					zap.Error(err))
				result.NormalizeFailures++
				continue
			}

			if err := w.sink.Upsert(ctx, order); err != nil {
				w.logger.Error("Failed to upsert listing",
					zap.String("marketplace", w.profile.Name),
					zap.String("identifier", order.Identifier),
					zap.Error(err))
				result.SinkFailures++
				continue
			}
			result.Upserted++
		}

		w.logger.Info("Processed listing page",
			zap.String("marketplace", w.profile.Name),
			zap.Int("page", result.Pages),
			zap.Int("entries", len(p.entries)),
			zap.String("cursor", cursor),
			zap.Int("offset", offset))

		switch w.profile.Pagination {
		case markets.PaginateCursor:
			if p.next == "" {
				w.persistPosition(ctx, collection, cursor, result.Upserted)
				return result, nil
			}
			cursor = p.next
		case markets.PaginateOffset:
			offset += len(p.entries)
			if len(p.entries) < w.profile.PageSize {
				w.persistPosition(ctx, collection, strconv.Itoa(offset), result.Upserted)
				return result, nil
			}
		default:
			return result, fmt.Errorf("unknown pagination mode %q", w.profile.Pagination)
		}

		w.persistPosition(ctx, collection, w.position(cursor, offset), result.Upserted)
	}

	w.persistPosition(ctx, collection, w.position(cursor, offset), result.Upserted)
	return result, nil
}

func (w *Walker) position(cursor string, offset int) string {
	if w.profile.Pagination == markets.PaginateOffset {
		return strconv.Itoa(offset)
	}
	return cursor
}

func (w *Walker) persistPosition(ctx context.Context, collection, position string, items int) {
	if w.states == nil {
		return
	}
	scope := w.profile.Name + ":" + strings.ToLower(collection)
	if err := w.states.UpdateCursor(ctx, scope, position, items); err != nil {
		w.logger.Error("Failed to persist pagination position",
			zap.String("scope", scope),
			zap.Error(err))
	}
}

// fetchPage fetches and decodes one page, retried under the walker's policy.
func (w *Walker) fetchPage(ctx context.Context, collection, cursor string, offset int) (page, error) {
	var p page
	err := w.retry.Do(ctx, func(ctx context.Context) error {
		req, err := w.buildRequest(ctx, collection, cursor, offset)
		if err != nil {
			return err
		}

		resp, err := w.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response body: %w", err)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &httpx.StatusError{Code: resp.StatusCode, Body: truncate(body, 512)}
		}

		p, err = parsePage(body)
		return err
	})
	return p, err
}

func (w *Walker) buildRequest(ctx context.Context, collection, cursor string, offset int) (*http.Request, error) {
	fields := map[string]string{
		"collection": collection,
		"sort":       w.profile.SortField,
		"direction":  w.profile.SortDirection,
		"limit":      strconv.Itoa(w.profile.PageSize),
	}
	switch w.profile.Pagination {
	case markets.PaginateCursor:
		if cursor != "" {
			fields["cursor"] = cursor
		}
	case markets.PaginateOffset:
		fields["offset"] = strconv.Itoa(offset)
	}

	endpoint := strings.TrimRight(w.profile.BaseURL, "/") + w.profile.ListingsPath

	var req *http.Request
	if w.profile.Method == http.MethodPost {
		body, err := json.Marshal(fields)
		if err != nil {
			return nil, err
		}
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
	} else {
		query := url.Values{}
		for key, value := range fields {
			query.Set(key, value)
		}
		var err error
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+query.Encode(), nil)
		if err != nil {
			return nil, err
		}
	}

	req.Header.Set("Accept", "application/json")
	if w.apiKey != "" && w.profile.APIKeyHeader != "" {
		req.Header.Set(w.profile.APIKeyHeader, w.apiKey)
	}

	return req, nil
}

func truncate(body []byte, max int) string {
	if len(body) > max {
		body = body[:max]
	}
	return string(body)
}
