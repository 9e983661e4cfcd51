package catalog

import "context"

// Lookup es el contrato del servicio externo de catálogo.
type Lookup interface {
	ListItems(ctx context.Context, query Query) ([]Item, error)
}

// AssetResolver turns an item's image key into a URL the channel can show.
type AssetResolver interface {
	ResolveImageURL(ctx context.Context, imageKey string) (string, error)
}
