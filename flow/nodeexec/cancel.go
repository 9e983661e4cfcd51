package nodeexec

import (
	"context"
	"log"
	"time"

	"github.com/dialogo-labs/dialogo/flow"
	"github.com/dialogo-labs/dialogo/pkg/kernel"
	"github.com/dialogo-labs/dialogo/scheduling"
)

// CancelExecutor cancela una cita existente.
type CancelExecutor struct {
	scheduler scheduling.Service
	timeout   time.Duration
}

var _ flow.NodeExecutor = (*CancelExecutor)(nil)

func NewCancelExecutor(scheduler scheduling.Service, timeout time.Duration) *CancelExecutor {
	return &CancelExecutor{scheduler: scheduler, timeout: timeout}
}

func (e *CancelExecutor) Execute(ctx context.Context, tenantID kernel.TenantID, execCtx *flow.ExecContext, node flow.Node) (*flow.ExecResult, error) {
	fields := newFieldResolver(node, execCtx)

	appointmentID := fields.String("appointment_id", "appointmentId", "cita_id")
	if appointmentID == "" {
		return &flow.ExecResult{
			NextBranch: flow.BranchFailure,
			Message:    "No encontré una cita activa para cancelar.",
		}, nil
	}

	reason := fields.String("cancel_reason", "reason", "motivo")
	if fields.Bool("require_reason", "requireReason") && reason == "" {
		// Precondition gating: route to a node that asks for the reason.
		return &flow.ExecResult{NextBranch: flow.BranchNeedReason}, nil
	}

	req := scheduling.CancelRequest{
		TenantID:      tenantID,
		AppointmentID: kernel.NewAppointmentID(appointmentID),
		Reason:        reason,
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if err := e.scheduler.Cancel(callCtx, req); err != nil {
		log.Printf("⚠️ cancellation failed for appointment %s: %v", appointmentID, err)
		return &flow.ExecResult{
			NextBranch: flow.BranchFailure,
			Message:    "No pude cancelar tu cita en este momento. Intenta de nuevo más tarde.",
		}, nil
	}

	result := execCtx.Clone()
	result.Set("cancelled_appointment_id", appointmentID)
	if reason != "" {
		result.Set("cancel_reason", reason)
	}

	return &flow.ExecResult{
		NextBranch: flow.BranchSuccess,
		Message:    "Tu cita fue cancelada. Esperamos verte pronto.",
		Context:    result,
	}, nil
}

func (e *CancelExecutor) SupportsType(nodeType flow.NodeType) bool {
	return nodeType == flow.NodeTypeCancel
}

func (e *CancelExecutor) ValidateConfig(data map[string]any) error {
	_ = data
	return nil
}
