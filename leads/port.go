package leads

import "context"

// CRM es el contrato del CRM externo de prospectos.
type CRM interface {
	SubmitLead(ctx context.Context, lead Lead) error
}
