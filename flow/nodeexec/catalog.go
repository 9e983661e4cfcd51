package nodeexec

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/dialogo-labs/dialogo/catalog"
	"github.com/dialogo-labs/dialogo/flow"
	"github.com/dialogo-labs/dialogo/pkg/kernel"
)

// CatalogExecutor lista productos o servicios del tenant. It never
// dead-ends: a failed lookup falls back to the static example catalog and
// still takes the response branch.
type CatalogExecutor struct {
	lookup  catalog.Lookup
	timeout time.Duration
}

var _ flow.NodeExecutor = (*CatalogExecutor)(nil)

func NewCatalogExecutor(lookup catalog.Lookup, timeout time.Duration) *CatalogExecutor {
	return &CatalogExecutor{lookup: lookup, timeout: timeout}
}

func (e *CatalogExecutor) Execute(ctx context.Context, tenantID kernel.TenantID, execCtx *flow.ExecContext, node flow.Node) (*flow.ExecResult, error) {
	fields := newFieldResolver(node, execCtx)

	query := catalog.Query{
		TenantID: tenantID,
		Category: fields.String("category", "categoria"),
		SortBy:   fields.String("sort_by", "sortBy"),
		Limit:    fields.Int(10, "limit", "max_items"),
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	items, err := e.lookup.ListItems(callCtx, query)
	usedFallback := false
	if err != nil {
		log.Printf("⚠️ catalog lookup failed for tenant %s, using example catalog: %v", tenantID.String(), err)
		items = catalog.ExampleItems()
		usedFallback = true
	}

	if query.Limit > 0 && len(items) > query.Limit {
		items = items[:query.Limit]
	}

	result := execCtx.Clone()
	result.Set("catalog_items", items)
	result.Set("catalog_items_count", len(items))
	result.Set("catalog_fallback", usedFallback)

	return &flow.ExecResult{
		NextBranch: flow.BranchResponse,
		Message:    e.renderListing(items),
		Context:    result,
	}, nil
}

func (e *CatalogExecutor) renderListing(items []catalog.Item) string {
	if len(items) == 0 {
		return "Por ahora no tenemos opciones publicadas en esta categoría."
	}

	var lines []string
	for _, item := range items {
		line := "• " + item.Name
		if item.Price > 0 {
			currency := item.Currency
			if currency == "" {
				currency = "USD"
			}
			line += fmt.Sprintf(" — %s %.0f", currency, item.Price)
		}
		if item.Description != "" {
			line += "\n  " + item.Description
		}
		lines = append(lines, line)
	}

	return "Estas son nuestras opciones:\n" + strings.Join(lines, "\n")
}

func (e *CatalogExecutor) SupportsType(nodeType flow.NodeType) bool {
	return nodeType == flow.NodeTypeCatalog
}

func (e *CatalogExecutor) ValidateConfig(data map[string]any) error {
	_ = data
	return nil
}
