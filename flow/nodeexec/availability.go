package nodeexec

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/dialogo-labs/dialogo/flow"
	"github.com/dialogo-labs/dialogo/pkg/kernel"
	"github.com/dialogo-labs/dialogo/scheduling"
)

// AvailabilityExecutor consulta horarios disponibles para una fecha.
type AvailabilityExecutor struct {
	scheduler scheduling.Service
	timeout   time.Duration
}

var _ flow.NodeExecutor = (*AvailabilityExecutor)(nil)

func NewAvailabilityExecutor(scheduler scheduling.Service, timeout time.Duration) *AvailabilityExecutor {
	return &AvailabilityExecutor{scheduler: scheduler, timeout: timeout}
}

func (e *AvailabilityExecutor) Execute(ctx context.Context, tenantID kernel.TenantID, execCtx *flow.ExecContext, node flow.Node) (*flow.ExecResult, error) {
	fields := newFieldResolver(node, execCtx)

	date := fields.String("date", "fecha", "appointment_date")
	if date == "" {
		return &flow.ExecResult{
			NextBranch: flow.BranchError,
			Message:    "No pude identificar la fecha que quieres consultar. ¿Podrías indicarla de nuevo?",
		}, nil
	}

	query := scheduling.AvailabilityQuery{
		TenantID:   tenantID,
		Date:       date,
		TypeID:     fields.String("type_id", "appointmentTypeId", "service_id"),
		LocationID: fields.String("location_id", "locationId", "sede"),
		AgentID:    fields.String("agent_id", "agentId", "profesional"),
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	availability, err := e.scheduler.Availability(callCtx, query)
	if err != nil {
		log.Printf("⚠️ availability check failed for tenant %s: %v", tenantID.String(), err)
		return &flow.ExecResult{
			NextBranch: flow.BranchError,
			Message:    "Lo siento, no pude consultar la disponibilidad en este momento. Intenta de nuevo en unos minutos.",
		}, nil
	}

	if !availability.HasOpenSlots() {
		result := execCtx.Clone()
		result.Set("availability_date", date)
		result.Set("available_slots_count", 0)
		return &flow.ExecResult{
			NextBranch: flow.BranchNotAvailable,
			Message:    fmt.Sprintf("No hay horarios disponibles para el %s. ¿Quieres consultar otra fecha?", date),
			Context:    result,
		}, nil
	}

	var lines []string
	for _, slot := range availability.Slots {
		lines = append(lines, "• "+formatSlot(slot))
	}

	result := execCtx.Clone()
	result.Set("availability_date", date)
	result.Set("available_slots", availability.Slots)
	result.Set("available_slots_count", len(availability.Slots))

	return &flow.ExecResult{
		NextBranch: flow.BranchAvailable,
		Message:    fmt.Sprintf("Estos son los horarios disponibles para el %s:\n%s", date, strings.Join(lines, "\n")),
		Context:    result,
	}, nil
}

func (e *AvailabilityExecutor) SupportsType(nodeType flow.NodeType) bool {
	return nodeType == flow.NodeTypeAvailability
}

func (e *AvailabilityExecutor) ValidateConfig(data map[string]any) error {
	// date may come from context at runtime; nothing is mandatory here.
	_ = data
	return nil
}
