package catalog

import (
	"net/http"

	"github.com/Abraxas-365/craftable/errx"
)

var ErrRegistry = errx.NewRegistry("CATALOG")

var (
	CodeLookupUnavailable = ErrRegistry.Register("LOOKUP_UNAVAILABLE", errx.TypeExternal, http.StatusBadGateway, "Catalog lookup unavailable")
	CodeUnknownCategory   = ErrRegistry.Register("UNKNOWN_CATEGORY", errx.TypeValidation, http.StatusBadRequest, "Unknown catalog category")
)

func ErrLookupUnavailable() *errx.Error {
	return ErrRegistry.New(CodeLookupUnavailable)
}

func ErrUnknownCategory() *errx.Error {
	return ErrRegistry.New(CodeUnknownCategory)
}
