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

// RescheduleExecutor reprograma una cita existente. Missing preconditions
// are not failures: they come back as needDateTime/needReason branches the
// flow author routes to a question node.
type RescheduleExecutor struct {
	scheduler scheduling.Service
	timeout   time.Duration
}

var _ flow.NodeExecutor = (*RescheduleExecutor)(nil)

func NewRescheduleExecutor(scheduler scheduling.Service, timeout time.Duration) *RescheduleExecutor {
	return &RescheduleExecutor{scheduler: scheduler, timeout: timeout}
}

func (e *RescheduleExecutor) Execute(ctx context.Context, tenantID kernel.TenantID, execCtx *flow.ExecContext, node flow.Node) (*flow.ExecResult, error) {
	fields := newFieldResolver(node, execCtx)

	appointmentID := fields.String("appointment_id", "appointmentId", "cita_id")
	if appointmentID == "" {
		return &flow.ExecResult{
			NextBranch: flow.BranchFailure,
			Message:    "No encontré una cita activa para reprogramar.",
		}, nil
	}

	newSlot, ok := e.resolveNewSlot(execCtx, fields)
	if !ok {
		// Precondition gating: ask for the missing datetime, do not call
		// the provider.
		return &flow.ExecResult{NextBranch: flow.BranchNeedDateTime}, nil
	}

	reason := fields.String("reschedule_reason", "reason", "motivo")
	if fields.Bool("require_reason", "requireReason") && reason == "" {
		return &flow.ExecResult{NextBranch: flow.BranchNeedReason}, nil
	}

	req := scheduling.RescheduleRequest{
		TenantID:      tenantID,
		AppointmentID: kernel.NewAppointmentID(appointmentID),
		NewSlot:       newSlot,
		Reason:        reason,
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	appointment, err := e.scheduler.Reschedule(callCtx, req)
	if err != nil {
		log.Printf("⚠️ reschedule failed for appointment %s: %v", appointmentID, err)
		return &flow.ExecResult{
			NextBranch: flow.BranchFailure,
			Message:    "No pude reprogramar tu cita en este momento. Intenta de nuevo más tarde.",
		}, nil
	}

	result := execCtx.Clone()
	result.Set("appointment_id", appointment.ID.String())
	result.Set("appointment_time", formatSlot(appointment.Slot))
	result.Set("appointment_date", appointment.Slot.Start.Format("2006-01-02"))

	return &flow.ExecResult{
		NextBranch: flow.BranchSuccess,
		Message: fmt.Sprintf("Tu cita quedó reprogramada para el %s de %s.",
			appointment.Slot.Start.Format("2006-01-02"), formatSlot(appointment.Slot)),
		Context: result,
	}, nil
}

func (e *RescheduleExecutor) resolveNewSlot(execCtx *flow.ExecContext, fields fieldResolver) (scheduling.Slot, bool) {
	for _, key := range []string{"new_slot", "new_datetime", "nueva_fecha"} {
		if v, ok := execCtx.Get(key); ok {
			if slot, ok := parseSlotValue(v); ok {
				return slot, true
			}
		}
	}

	date := fields.String("new_date")
	hour := fields.String("new_time")
	if date != "" && hour != "" {
		if slot, ok := parseSlotValue(date + " " + hour); ok {
			return slot, true
		}
	}

	return scheduling.Slot{}, false
}

func (e *RescheduleExecutor) SupportsType(nodeType flow.NodeType) bool {
	return nodeType == flow.NodeTypeReschedule
}

func (e *RescheduleExecutor) ValidateConfig(data map[string]any) error {
	_ = data
	return nil
}
