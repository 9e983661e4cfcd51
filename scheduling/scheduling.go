package scheduling

import (
	"time"

	"github.com/dialogo-labs/dialogo/pkg/kernel"
)

// ============================================================================
// Scheduling Entities
// ============================================================================

// Slot es un rango horario disponible
type Slot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Availability es la respuesta de disponibilidad para una fecha
type Availability struct {
	Date  string `json:"date"`
	Slots []Slot `json:"slots"`
}

// HasOpenSlots reports whether any slot is open for the date.
func (a *Availability) HasOpenSlots() bool {
	return len(a.Slots) > 0
}

// AvailabilityQuery identifica qué agenda consultar
type AvailabilityQuery struct {
	TenantID   kernel.TenantID `json:"tenant_id"`
	Date       string          `json:"date"`
	TypeID     string          `json:"type_id,omitempty"`
	LocationID string          `json:"location_id,omitempty"`
	AgentID    string          `json:"agent_id,omitempty"`
}

// BookingRequest datos para agendar una cita
type BookingRequest struct {
	TenantID    kernel.TenantID `json:"tenant_id"`
	ClientName  string          `json:"client_name"`
	ClientPhone string          `json:"client_phone"`
	Slot        Slot            `json:"slot"`
	TypeID      string          `json:"type_id,omitempty"`
	LocationID  string          `json:"location_id,omitempty"`
	AgentID     string          `json:"agent_id,omitempty"`
}

// RescheduleRequest datos para reprogramar una cita existente
type RescheduleRequest struct {
	TenantID      kernel.TenantID      `json:"tenant_id"`
	AppointmentID kernel.AppointmentID `json:"appointment_id"`
	NewSlot       Slot                 `json:"new_slot"`
	Reason        string               `json:"reason,omitempty"`
}

// CancelRequest datos para cancelar una cita existente
type CancelRequest struct {
	TenantID      kernel.TenantID      `json:"tenant_id"`
	AppointmentID kernel.AppointmentID `json:"appointment_id"`
	Reason        string               `json:"reason,omitempty"`
}

// Appointment es la cita confirmada que devuelve el servicio
type Appointment struct {
	ID         kernel.AppointmentID `json:"id"`
	TenantID   kernel.TenantID      `json:"tenant_id"`
	Slot       Slot                 `json:"slot"`
	TypeID     string               `json:"type_id,omitempty"`
	LocationID string               `json:"location_id,omitempty"`
	AgentID    string               `json:"agent_id,omitempty"`
	Status     string               `json:"status"`
}
