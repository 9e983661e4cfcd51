package leads

import (
	"net/http"

	"github.com/Abraxas-365/craftable/errx"
)

var ErrRegistry = errx.NewRegistry("LEADS")

var (
	CodeCRMUnavailable = ErrRegistry.Register("CRM_UNAVAILABLE", errx.TypeExternal, http.StatusBadGateway, "Lead CRM unavailable")
	CodeLeadRejected   = ErrRegistry.Register("LEAD_REJECTED", errx.TypeBusiness, http.StatusUnprocessableEntity, "Lead rejected by CRM")
)

func ErrCRMUnavailable() *errx.Error {
	return ErrRegistry.New(CodeCRMUnavailable)
}

func ErrLeadRejected() *errx.Error {
	return ErrRegistry.New(CodeLeadRejected)
}
