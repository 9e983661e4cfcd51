package scheduling

import "context"

// Service es el contrato del servicio externo de agendamiento. Todas las
// operaciones llevan el context del turno; los timeouts los impone el
// ejecutor que llama.
type Service interface {
	Availability(ctx context.Context, query AvailabilityQuery) (*Availability, error)
	Book(ctx context.Context, req BookingRequest) (*Appointment, error)
	Reschedule(ctx context.Context, req RescheduleRequest) (*Appointment, error)
	Cancel(ctx context.Context, req CancelRequest) error
}
