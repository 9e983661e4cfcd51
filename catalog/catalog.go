package catalog

import "github.com/dialogo-labs/dialogo/pkg/kernel"

// ============================================================================
// Catalog Entities
// ============================================================================

// Item es un producto o servicio publicado por el tenant
type Item struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Category    string  `json:"category,omitempty"`
	Price       float64 `json:"price,omitempty"`
	Currency    string  `json:"currency,omitempty"`
	// ImageKey is the object key of the item picture in the assets bucket;
	// ImageURL is filled in by the assets resolver when a key is present.
	ImageKey string `json:"image_key,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

// Query filtros de listado
type Query struct {
	TenantID kernel.TenantID `json:"tenant_id"`
	Category string          `json:"category,omitempty"`
	SortBy   string          `json:"sort_by,omitempty"`
	Limit    int             `json:"limit,omitempty"`
}

// ExampleItems is the static fallback catalog the listing executor surfaces
// when the lookup service cannot be reached, so the conversation never
// dead-ends on a fetch failure.
func ExampleItems() []Item {
	return []Item{
		{ID: "ejemplo-1", Name: "Consulta general", Description: "Sesión de 30 minutos", Price: 25, Currency: "USD"},
		{ID: "ejemplo-2", Name: "Consulta premium", Description: "Sesión de 60 minutos con seguimiento", Price: 45, Currency: "USD"},
		{ID: "ejemplo-3", Name: "Paquete mensual", Description: "Cuatro sesiones al mes", Price: 150, Currency: "USD"},
	}
}
