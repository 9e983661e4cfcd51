package nodeexec

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/dialogo-labs/dialogo/flow"
	"github.com/dialogo-labs/dialogo/pkg/kernel"
	"github.com/dialogo-labs/dialogo/scheduling"
)

// BookExecutor agenda una cita con el slot elegido por el usuario.
type BookExecutor struct {
	scheduler scheduling.Service
	timeout   time.Duration
}

var _ flow.NodeExecutor = (*BookExecutor)(nil)

func NewBookExecutor(scheduler scheduling.Service, timeout time.Duration) *BookExecutor {
	return &BookExecutor{scheduler: scheduler, timeout: timeout}
}

func (e *BookExecutor) Execute(ctx context.Context, tenantID kernel.TenantID, execCtx *flow.ExecContext, node flow.Node) (*flow.ExecResult, error) {
	fields := newFieldResolver(node, execCtx)

	slot, ok := e.resolveSlot(execCtx, fields)
	if !ok {
		return &flow.ExecResult{
			NextBranch: flow.BranchError,
			Message:    "No pude identificar el horario que elegiste. ¿Podrías indicarlo de nuevo?",
		}, nil
	}

	clientName := fields.String("client_name", "nombre", "name")
	clientPhone := fields.String("client_phone", "telefono", "phone", "sender_id")
	if clientName == "" && clientPhone == "" {
		return &flow.ExecResult{
			NextBranch: flow.BranchError,
			Message:    "Me falta tu nombre o teléfono para confirmar la cita. ¿Me los compartes?",
		}, nil
	}

	req := scheduling.BookingRequest{
		TenantID:    tenantID,
		ClientName:  clientName,
		ClientPhone: clientPhone,
		Slot:        slot,
		TypeID:      fields.String("type_id", "appointmentTypeId", "service_id"),
		LocationID:  fields.String("location_id", "locationId", "sede"),
		AgentID:     fields.String("agent_id", "agentId", "profesional"),
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	appointment, err := e.scheduler.Book(callCtx, req)
	if err != nil {
		log.Printf("⚠️ booking failed for tenant %s: %v", tenantID.String(), err)
		return &flow.ExecResult{
			NextBranch: flow.BranchError,
			Message:    "Lo siento, no pude confirmar tu cita en este momento. Intenta de nuevo o escríbenos más tarde.",
		}, nil
	}

	result := execCtx.Clone()
	result.Set("appointment_id", appointment.ID.String())
	result.Set("appointment_time", formatSlot(appointment.Slot))
	result.Set("appointment_date", appointment.Slot.Start.Format("2006-01-02"))

	return &flow.ExecResult{
		NextBranch: flow.BranchSuccess,
		Message: fmt.Sprintf("¡Listo! Tu cita quedó confirmada para el %s de %s.",
			appointment.Slot.Start.Format("2006-01-02"), formatSlot(appointment.Slot)),
		Context: result,
	}, nil
}

// resolveSlot reads the chosen slot out of the context, falling back to the
// date/time pair the capture nodes usually produce.
func (e *BookExecutor) resolveSlot(execCtx *flow.ExecContext, fields fieldResolver) (scheduling.Slot, bool) {
	for _, key := range []string{"selected_slot", "slot", "chosen_slot"} {
		if v, ok := execCtx.Get(key); ok {
			if slot, ok := parseSlotValue(v); ok {
				return slot, true
			}
		}
	}

	date := fields.String("date", "fecha", "appointment_date", "availability_date")
	hour := fields.String("time", "hora", "appointment_time")
	if date != "" && hour != "" {
		if slot, ok := parseSlotValue(date + " " + hour); ok {
			return slot, true
		}
	}

	return scheduling.Slot{}, false
}

func (e *BookExecutor) SupportsType(nodeType flow.NodeType) bool {
	return nodeType == flow.NodeTypeBook
}

func (e *BookExecutor) ValidateConfig(data map[string]any) error {
	_ = data
	return nil
}
