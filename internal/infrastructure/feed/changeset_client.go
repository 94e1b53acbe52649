// Package feed talks to the external geospatial changeset service.
package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog"

	"github.com/kiwiprop/transfer-system/internal/core/domain"
)

const (
	windowTimeLayout = "2006-01-02T15:04:05Z"

	// Upstream error bodies can be arbitrarily large; keep only enough to
	// diagnose.
	maxErrorBody = 4 << 10
)

// Client fetches one window's raw feature collection per call. It carries no
// retry policy and no caching; a failed window aborts the caller's run and
// the operator re-runs. The caller bounds each call with a context timeout.
type Client struct {
	http        *http.Client
	urlTemplate string // two %s verbs: from and to timestamps
	apiKey      string
	log         zerolog.Logger
}

// NewClient builds a changeset client for the given URL template and API key.
func NewClient(urlTemplate, apiKey string, log zerolog.Logger) *Client {
	return &Client{
		http:        &http.Client{},
		urlTemplate: urlTemplate,
		apiKey:      apiKey,
		log:         log,
	}
}

// FetchWindow retrieves and decodes the changeset for the half-open UTC
// window [from, to). Any transport failure, non-success status, or undecodable
// body surfaces as a *domain.FetchError.
func (c *Client) FetchWindow(ctx context.Context, from, to time.Time) ([]*geojson.Feature, error) {
	url := fmt.Sprintf(c.urlTemplate, from.UTC().Format(windowTimeLayout), to.UTC().Format(windowTimeLayout))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &domain.FetchError{Message: err.Error()}
	}
	req.Header.Set("Authorization", "key "+c.apiKey)

	c.log.Debug().Time("from", from).Time("to", to).Msg("fetching changeset window")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &domain.FetchError{Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &domain.FetchError{StatusCode: resp.StatusCode, Message: string(body)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.FetchError{Message: err.Error()}
	}

	fc, err := geojson.UnmarshalFeatureCollection(body)
	if err != nil {
		return nil, &domain.FetchError{Message: fmt.Sprintf("decode changeset: %v", err)}
	}
	return fc.Features, nil
}
