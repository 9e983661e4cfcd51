package cataloginfra

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/Abraxas-365/craftable/errx"
	"github.com/dialogo-labs/dialogo/catalog"
	"github.com/dialogo-labs/dialogo/pkg/config"
)

// HTTPCatalogLookup consulta el servicio de catálogo del tenant.
type HTTPCatalogLookup struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	assets     catalog.AssetResolver
}

var _ catalog.Lookup = (*HTTPCatalogLookup)(nil)

// NewHTTPCatalogLookup creates the lookup client. assets may be nil; items
// then keep their raw image keys.
func NewHTTPCatalogLookup(cfg config.CatalogConfig, assets catalog.AssetResolver) *HTTPCatalogLookup {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &HTTPCatalogLookup{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		assets:     assets,
	}
}

func (l *HTTPCatalogLookup) ListItems(ctx context.Context, query catalog.Query) ([]catalog.Item, error) {
	params := url.Values{}
	params.Set("tenant_id", query.TenantID.String())
	if query.Category != "" {
		params.Set("category", query.Category)
	}
	if query.SortBy != "" {
		params.Set("sort_by", query.SortBy)
	}
	if query.Limit > 0 {
		params.Set("limit", fmt.Sprint(query.Limit))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+"/items?"+params.Encode(), nil)
	if err != nil {
		return nil, errx.Wrap(err, "failed to create catalog request", errx.TypeInternal)
	}
	req.Header.Set("Accept", "application/json")
	if l.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+l.apiKey)
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, catalog.ErrLookupUnavailable().WithDetail("cause", err.Error())
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusBadRequest:
		return nil, catalog.ErrUnknownCategory().WithDetail("category", query.Category)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, catalog.ErrLookupUnavailable().WithDetail("status", fmt.Sprint(resp.StatusCode))
	}

	var items []catalog.Item
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, errx.Wrap(err, "failed to decode catalog response", errx.TypeExternal)
	}

	// Resolve image URLs best-effort; a broken asset never fails the listing.
	if l.assets != nil {
		for i := range items {
			if items[i].ImageKey == "" || items[i].ImageURL != "" {
				continue
			}
			if imgURL, err := l.assets.ResolveImageURL(ctx, items[i].ImageKey); err == nil {
				items[i].ImageURL = imgURL
			}
		}
	}

	return items, nil
}
