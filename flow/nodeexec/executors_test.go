package nodeexec_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dialogo-labs/dialogo/catalog"
	"github.com/dialogo-labs/dialogo/flow"
	"github.com/dialogo-labs/dialogo/flow/nodeexec"
	"github.com/dialogo-labs/dialogo/leads"
	"github.com/dialogo-labs/dialogo/pkg/kernel"
	"github.com/dialogo-labs/dialogo/scheduling"
	"github.com/dialogo-labs/dialogo/textgen"
)

var testTenant = kernel.NewTenantID("tenant-1")

// ============================================================================
// Fakes
// ============================================================================

// fakeScheduler records every call so tests can assert the provider was (or
// was not) reached.
type fakeScheduler struct {
	availability *scheduling.Availability
	appointment  *scheduling.Appointment
	err          error

	availabilityCalls []scheduling.AvailabilityQuery
	bookCalls         []scheduling.BookingRequest
	rescheduleCalls   []scheduling.RescheduleRequest
	cancelCalls       []scheduling.CancelRequest
}

func (f *fakeScheduler) Availability(ctx context.Context, query scheduling.AvailabilityQuery) (*scheduling.Availability, error) {
	f.availabilityCalls = append(f.availabilityCalls, query)
	return f.availability, f.err
}

func (f *fakeScheduler) Book(ctx context.Context, req scheduling.BookingRequest) (*scheduling.Appointment, error) {
	f.bookCalls = append(f.bookCalls, req)
	return f.appointment, f.err
}

func (f *fakeScheduler) Reschedule(ctx context.Context, req scheduling.RescheduleRequest) (*scheduling.Appointment, error) {
	f.rescheduleCalls = append(f.rescheduleCalls, req)
	return f.appointment, f.err
}

func (f *fakeScheduler) Cancel(ctx context.Context, req scheduling.CancelRequest) error {
	f.cancelCalls = append(f.cancelCalls, req)
	return f.err
}

type fakeCRM struct {
	err   error
	leads []leads.Lead
}

func (f *fakeCRM) SubmitLead(ctx context.Context, lead leads.Lead) error {
	f.leads = append(f.leads, lead)
	return f.err
}

type fakeCatalog struct {
	items []catalog.Item
	err   error
}

func (f *fakeCatalog) ListItems(ctx context.Context, query catalog.Query) ([]catalog.Item, error) {
	return f.items, f.err
}

type fakeGenerator struct {
	response string
	err      error
	requests []textgen.GenerationRequest
}

func (f *fakeGenerator) Generate(ctx context.Context, req textgen.GenerationRequest) (string, error) {
	f.requests = append(f.requests, req)
	return f.response, f.err
}

func testSlot() scheduling.Slot {
	start := time.Date(2026, 9, 15, 10, 0, 0, 0, time.UTC)
	return scheduling.Slot{Start: start, End: start.Add(30 * time.Minute)}
}

// ============================================================================
// Availability
// ============================================================================

func TestAvailability_OpenSlots(t *testing.T) {
	scheduler := &fakeScheduler{
		availability: &scheduling.Availability{
			Date:  "2026-09-15",
			Slots: []scheduling.Slot{testSlot()},
		},
	}
	exec := nodeexec.NewAvailabilityExecutor(scheduler, time.Second)

	execCtx := flow.NewExecContext()
	execCtx.Set("date", "2026-09-15")
	node := flow.Node{ID: "n1", Type: flow.NodeTypeAvailability, Data: map[string]any{}}

	result, err := exec.Execute(context.Background(), testTenant, execCtx, node)
	require.NoError(t, err)

	assert.Equal(t, flow.BranchAvailable, result.NextBranch)
	assert.Contains(t, result.Message, "10:00 - 10:30")
	assert.Equal(t, "1", result.Context.GetString("available_slots_count"))
	require.Len(t, scheduler.availabilityCalls, 1)
	assert.Equal(t, "2026-09-15", scheduler.availabilityCalls[0].Date)
}

func TestAvailability_ZeroSlots(t *testing.T) {
	scheduler := &fakeScheduler{
		availability: &scheduling.Availability{Date: "2026-09-15"},
	}
	exec := nodeexec.NewAvailabilityExecutor(scheduler, time.Second)

	execCtx := flow.NewExecContext()
	execCtx.Set("date", "2026-09-15")
	node := flow.Node{ID: "n1", Type: flow.NodeTypeAvailability, Data: map[string]any{}}

	result, err := exec.Execute(context.Background(), testTenant, execCtx, node)
	require.NoError(t, err)

	assert.Equal(t, flow.BranchNotAvailable, result.NextBranch)
	// no time ranges when nothing is open
	assert.NotContains(t, result.Message, ":")
	assert.NotContains(t, result.Message, "•")
	assert.Equal(t, "0", result.Context.GetString("available_slots_count"))
}

func TestAvailability_MissingDate(t *testing.T) {
	scheduler := &fakeScheduler{}
	exec := nodeexec.NewAvailabilityExecutor(scheduler, time.Second)

	node := flow.Node{ID: "n1", Type: flow.NodeTypeAvailability, Data: map[string]any{}}
	result, err := exec.Execute(context.Background(), testTenant, flow.NewExecContext(), node)
	require.NoError(t, err)

	assert.Equal(t, flow.BranchError, result.NextBranch)
	assert.NotEmpty(t, result.Message)
	assert.Empty(t, scheduler.availabilityCalls)
}

func TestAvailability_ProviderFailure(t *testing.T) {
	scheduler := &fakeScheduler{err: errors.New("upstream 503")}
	exec := nodeexec.NewAvailabilityExecutor(scheduler, time.Second)

	execCtx := flow.NewExecContext()
	execCtx.Set("date", "2026-09-15")
	node := flow.Node{ID: "n1", Type: flow.NodeTypeAvailability, Data: map[string]any{}}

	result, err := exec.Execute(context.Background(), testTenant, execCtx, node)
	require.NoError(t, err)
	assert.Equal(t, flow.BranchError, result.NextBranch)
	assert.NotEmpty(t, result.Message)
}

// ============================================================================
// Book
// ============================================================================

func TestBook_Success(t *testing.T) {
	scheduler := &fakeScheduler{
		appointment: &scheduling.Appointment{
			ID:     kernel.NewAppointmentID("apt-1"),
			Slot:   testSlot(),
			Status: "CONFIRMED",
		},
	}
	exec := nodeexec.NewBookExecutor(scheduler, time.Second)

	execCtx := flow.NewExecContext()
	execCtx.Set("selected_slot", "2026-09-15 10:00")
	execCtx.Set("client_name", "Ana")
	execCtx.Set("client_phone", "555-1234")
	node := flow.Node{ID: "n1", Type: flow.NodeTypeBook, Data: map[string]any{}}

	result, err := exec.Execute(context.Background(), testTenant, execCtx, node)
	require.NoError(t, err)

	assert.Equal(t, flow.BranchSuccess, result.NextBranch)
	assert.Equal(t, "apt-1", result.Context.GetString("appointment_id"))
	require.Len(t, scheduler.bookCalls, 1)
	assert.Equal(t, "Ana", scheduler.bookCalls[0].ClientName)
}

func TestBook_MissingIdentity(t *testing.T) {
	scheduler := &fakeScheduler{}
	exec := nodeexec.NewBookExecutor(scheduler, time.Second)

	execCtx := flow.NewExecContext()
	execCtx.Set("selected_slot", "2026-09-15 10:00")
	node := flow.Node{ID: "n1", Type: flow.NodeTypeBook, Data: map[string]any{}}

	result, err := exec.Execute(context.Background(), testTenant, execCtx, node)
	require.NoError(t, err)

	assert.Equal(t, flow.BranchError, result.NextBranch)
	assert.Empty(t, scheduler.bookCalls)
}

func TestBook_MissingSlot(t *testing.T) {
	scheduler := &fakeScheduler{}
	exec := nodeexec.NewBookExecutor(scheduler, time.Second)

	execCtx := flow.NewExecContext()
	execCtx.Set("client_name", "Ana")
	node := flow.Node{ID: "n1", Type: flow.NodeTypeBook, Data: map[string]any{}}

	result, err := exec.Execute(context.Background(), testTenant, execCtx, node)
	require.NoError(t, err)

	assert.Equal(t, flow.BranchError, result.NextBranch)
	assert.Empty(t, scheduler.bookCalls)
}

// ============================================================================
// Reschedule
// ============================================================================

func TestReschedule_NeedDateTime_ProviderNotCalled(t *testing.T) {
	scheduler := &fakeScheduler{}
	exec := nodeexec.NewRescheduleExecutor(scheduler, time.Second)

	execCtx := flow.NewExecContext()
	execCtx.Set("appointment_id", "apt-1")
	node := flow.Node{ID: "n1", Type: flow.NodeTypeReschedule, Data: map[string]any{}}

	result, err := exec.Execute(context.Background(), testTenant, execCtx, node)
	require.NoError(t, err)

	assert.Equal(t, flow.BranchNeedDateTime, result.NextBranch)
	assert.Empty(t, result.Message)
	assert.Empty(t, scheduler.rescheduleCalls)
}

func TestReschedule_NeedReason_WhenRequiredAndMissing(t *testing.T) {
	scheduler := &fakeScheduler{}
	exec := nodeexec.NewRescheduleExecutor(scheduler, time.Second)

	execCtx := flow.NewExecContext()
	execCtx.Set("appointment_id", "apt-1")
	execCtx.Set("new_slot", "2026-09-16 11:00")
	node := flow.Node{ID: "n1", Type: flow.NodeTypeReschedule, Data: map[string]any{
		"require_reason": true,
	}}

	result, err := exec.Execute(context.Background(), testTenant, execCtx, node)
	require.NoError(t, err)

	assert.Equal(t, flow.BranchNeedReason, result.NextBranch)
	assert.Empty(t, scheduler.rescheduleCalls)
}

func TestReschedule_Success(t *testing.T) {
	scheduler := &fakeScheduler{
		appointment: &scheduling.Appointment{
			ID:   kernel.NewAppointmentID("apt-1"),
			Slot: testSlot(),
		},
	}
	exec := nodeexec.NewRescheduleExecutor(scheduler, time.Second)

	execCtx := flow.NewExecContext()
	execCtx.Set("appointment_id", "apt-1")
	execCtx.Set("new_slot", "2026-09-15 10:00")
	node := flow.Node{ID: "n1", Type: flow.NodeTypeReschedule, Data: map[string]any{}}

	result, err := exec.Execute(context.Background(), testTenant, execCtx, node)
	require.NoError(t, err)

	assert.Equal(t, flow.BranchSuccess, result.NextBranch)
	require.Len(t, scheduler.rescheduleCalls, 1)
	assert.Equal(t, "apt-1", scheduler.rescheduleCalls[0].AppointmentID.String())
}

func TestReschedule_NoAppointment(t *testing.T) {
	scheduler := &fakeScheduler{}
	exec := nodeexec.NewRescheduleExecutor(scheduler, time.Second)

	node := flow.Node{ID: "n1", Type: flow.NodeTypeReschedule, Data: map[string]any{}}
	result, err := exec.Execute(context.Background(), testTenant, flow.NewExecContext(), node)
	require.NoError(t, err)

	assert.Equal(t, flow.BranchFailure, result.NextBranch)
	assert.Empty(t, scheduler.rescheduleCalls)
}

// ============================================================================
// Cancel
// ============================================================================

func TestCancel_Success(t *testing.T) {
	scheduler := &fakeScheduler{}
	exec := nodeexec.NewCancelExecutor(scheduler, time.Second)

	execCtx := flow.NewExecContext()
	execCtx.Set("appointment_id", "apt-1")
	node := flow.Node{ID: "n1", Type: flow.NodeTypeCancel, Data: map[string]any{}}

	result, err := exec.Execute(context.Background(), testTenant, execCtx, node)
	require.NoError(t, err)

	assert.Equal(t, flow.BranchSuccess, result.NextBranch)
	assert.Equal(t, "apt-1", result.Context.GetString("cancelled_appointment_id"))
	require.Len(t, scheduler.cancelCalls, 1)
}

func TestCancel_NeedReason(t *testing.T) {
	scheduler := &fakeScheduler{}
	exec := nodeexec.NewCancelExecutor(scheduler, time.Second)

	execCtx := flow.NewExecContext()
	execCtx.Set("appointment_id", "apt-1")
	node := flow.Node{ID: "n1", Type: flow.NodeTypeCancel, Data: map[string]any{
		"require_reason": true,
	}}

	result, err := exec.Execute(context.Background(), testTenant, execCtx, node)
	require.NoError(t, err)

	assert.Equal(t, flow.BranchNeedReason, result.NextBranch)
	assert.Empty(t, scheduler.cancelCalls)
}

// ============================================================================
// Lead qualification
// ============================================================================

func TestLeadQual_AllUrgentAnswersQualify(t *testing.T) {
	crm := &fakeCRM{}
	exec := nodeexec.NewLeadQualExecutor(crm, time.Second)

	execCtx := flow.NewExecContext()
	execCtx.Set("answer_1", "es urgente")
	execCtx.Set("answer_2", "lo necesito hoy")
	node := flow.Node{ID: "n1", Type: flow.NodeTypeLeadQual, Data: map[string]any{
		"questions": []any{"¿Qué tan pronto lo necesitas?", "¿Cuándo podrías empezar?"},
	}}

	result, err := exec.Execute(context.Background(), testTenant, execCtx, node)
	require.NoError(t, err)

	assert.Equal(t, flow.BranchQualified, result.NextBranch)
	assert.Equal(t, "2", result.Context.GetString("lead_score"))
	require.Len(t, crm.leads, 1)
	assert.Equal(t, leads.QualificationQualified, crm.leads[0].Qualification)
	assert.Equal(t, 2, crm.leads[0].Score)
}

func TestLeadQual_NotQualified(t *testing.T) {
	crm := &fakeCRM{}
	exec := nodeexec.NewLeadQualExecutor(crm, time.Second)

	execCtx := flow.NewExecContext()
	execCtx.Set("answer_1", "cuando se pueda")
	execCtx.Set("answer_2", "sin apuro")
	node := flow.Node{ID: "n1", Type: flow.NodeTypeLeadQual, Data: map[string]any{
		"questions": []any{"¿Qué tan pronto lo necesitas?", "¿Cuándo podrías empezar?"},
	}}

	result, err := exec.Execute(context.Background(), testTenant, execCtx, node)
	require.NoError(t, err)

	assert.Equal(t, flow.BranchNotQualified, result.NextBranch)
	require.Len(t, crm.leads, 1)
	assert.Equal(t, leads.QualificationNotQualified, crm.leads[0].Qualification)
}

func TestLeadQual_ShortMarkerMatchesWholeWordsOnly(t *testing.T) {
	crm := &fakeCRM{}
	exec := nodeexec.NewLeadQualExecutor(crm, time.Second)

	execCtx := flow.NewExecContext()
	execCtx.Set("answer_1", "estaba en la playa") // "ya" must not fire
	node := flow.Node{ID: "n1", Type: flow.NodeTypeLeadQual, Data: map[string]any{
		"questions": []any{"¿Qué tan pronto lo necesitas?"},
	}}

	result, err := exec.Execute(context.Background(), testTenant, execCtx, node)
	require.NoError(t, err)
	assert.Equal(t, flow.BranchNotQualified, result.NextBranch)
}

func TestLeadQual_CRMFailure(t *testing.T) {
	crm := &fakeCRM{err: errors.New("crm down")}
	exec := nodeexec.NewLeadQualExecutor(crm, time.Second)

	execCtx := flow.NewExecContext()
	execCtx.Set("answer_1", "urgente")
	node := flow.Node{ID: "n1", Type: flow.NodeTypeLeadQual, Data: map[string]any{
		"questions": []any{"¿Qué tan pronto lo necesitas?"},
	}}

	result, err := exec.Execute(context.Background(), testTenant, execCtx, node)
	require.NoError(t, err)
	assert.Equal(t, flow.BranchError, result.NextBranch)
	assert.NotEmpty(t, result.Message)
}

// ============================================================================
// Catalog
// ============================================================================

func TestCatalog_ListsItems(t *testing.T) {
	lookup := &fakeCatalog{items: []catalog.Item{
		{ID: "i1", Name: "Corte clásico", Price: 15, Currency: "USD"},
		{ID: "i2", Name: "Afeitado", Price: 10, Currency: "USD"},
	}}
	exec := nodeexec.NewCatalogExecutor(lookup, time.Second)

	node := flow.Node{ID: "n1", Type: flow.NodeTypeCatalog, Data: map[string]any{}}
	result, err := exec.Execute(context.Background(), testTenant, flow.NewExecContext(), node)
	require.NoError(t, err)

	assert.Equal(t, flow.BranchResponse, result.NextBranch)
	assert.Contains(t, result.Message, "Corte clásico")
	assert.Contains(t, result.Message, "USD 15")
	assert.Equal(t, "2", result.Context.GetString("catalog_items_count"))
	assert.Equal(t, "false", result.Context.GetString("catalog_fallback"))
}

func TestCatalog_LookupFailureFallsBack(t *testing.T) {
	lookup := &fakeCatalog{err: errors.New("catalog down")}
	exec := nodeexec.NewCatalogExecutor(lookup, time.Second)

	node := flow.Node{ID: "n1", Type: flow.NodeTypeCatalog, Data: map[string]any{}}
	result, err := exec.Execute(context.Background(), testTenant, flow.NewExecContext(), node)
	require.NoError(t, err)

	// still answers, with the example catalog
	assert.Equal(t, flow.BranchResponse, result.NextBranch)
	assert.NotEmpty(t, result.Message)
	assert.Equal(t, "true", result.Context.GetString("catalog_fallback"))
	assert.Equal(t, "3", result.Context.GetString("catalog_items_count"))
}

func TestCatalog_LimitApplied(t *testing.T) {
	lookup := &fakeCatalog{items: []catalog.Item{
		{ID: "i1", Name: "A"}, {ID: "i2", Name: "B"}, {ID: "i3", Name: "C"},
	}}
	exec := nodeexec.NewCatalogExecutor(lookup, time.Second)

	node := flow.Node{ID: "n1", Type: flow.NodeTypeCatalog, Data: map[string]any{
		"limit": 2,
	}}
	result, err := exec.Execute(context.Background(), testTenant, flow.NewExecContext(), node)
	require.NoError(t, err)
	assert.Equal(t, "2", result.Context.GetString("catalog_items_count"))
}

// ============================================================================
// Condition
// ============================================================================

func TestCondition_ExactMatch(t *testing.T) {
	exec := nodeexec.NewConditionExecutor()

	execCtx := flow.NewExecContext()
	execCtx.Set("selected_option", "cita")
	node := flow.Node{ID: "n1", Type: flow.NodeTypeCondition, Data: map[string]any{
		"options": []any{"cita", "info"},
	}}

	result, err := exec.Execute(context.Background(), testTenant, execCtx, node)
	require.NoError(t, err)
	assert.Equal(t, "cita", result.NextBranch)
	assert.Equal(t, "cita", result.Context.GetString("selected_option_matched"))
}

func TestCondition_CaseInsensitiveMatch(t *testing.T) {
	exec := nodeexec.NewConditionExecutor()

	execCtx := flow.NewExecContext()
	execCtx.Set("selected_option", "CITA")
	node := flow.Node{ID: "n1", Type: flow.NodeTypeCondition, Data: map[string]any{
		"options": []any{"cita", "info"},
	}}

	result, err := exec.Execute(context.Background(), testTenant, execCtx, node)
	require.NoError(t, err)
	assert.Equal(t, "cita", result.NextBranch)
}

func TestCondition_NumericIndexMatch(t *testing.T) {
	exec := nodeexec.NewConditionExecutor()

	execCtx := flow.NewExecContext()
	execCtx.Set("selected_option", "2")
	node := flow.Node{ID: "n1", Type: flow.NodeTypeCondition, Data: map[string]any{
		"options": []any{"cita", "info"},
	}}

	result, err := exec.Execute(context.Background(), testTenant, execCtx, node)
	require.NoError(t, err)
	assert.Equal(t, "info", result.NextBranch)
}

func TestCondition_NoMatchTakesDefault(t *testing.T) {
	exec := nodeexec.NewConditionExecutor()

	execCtx := flow.NewExecContext()
	execCtx.Set("selected_option", "otra cosa")
	node := flow.Node{ID: "n1", Type: flow.NodeTypeCondition, Data: map[string]any{
		"options": []any{"cita", "info"},
	}}

	result, err := exec.Execute(context.Background(), testTenant, execCtx, node)
	require.NoError(t, err)
	assert.Equal(t, nodeexec.BranchDefault, result.NextBranch)
	assert.False(t, result.Context.Has("selected_option_matched"))
}

func TestCondition_CELExpression(t *testing.T) {
	exec := nodeexec.NewConditionExecutor()

	execCtx := flow.NewExecContext()
	execCtx.Set("lead_score", 3)
	node := flow.Node{ID: "n1", Type: flow.NodeTypeCondition, Data: map[string]any{
		"expression": "lead_score >= 2",
	}}

	result, err := exec.Execute(context.Background(), testTenant, execCtx, node)
	require.NoError(t, err)
	assert.Equal(t, "true", result.NextBranch)
}

func TestCondition_CELFailureTakesDefault(t *testing.T) {
	exec := nodeexec.NewConditionExecutor()

	node := flow.Node{ID: "n1", Type: flow.NodeTypeCondition, Data: map[string]any{
		"expression": "this is (not CEL",
	}}

	result, err := exec.Execute(context.Background(), testTenant, flow.NewExecContext(), node)
	require.NoError(t, err)
	assert.Equal(t, nodeexec.BranchDefault, result.NextBranch)
}

// ============================================================================
// Text generation
// ============================================================================

func TestTextGen_RendersPromptAgainstContext(t *testing.T) {
	gen := &fakeGenerator{response: "Claro, te cuento sobre nuestros servicios."}
	exec := nodeexec.NewTextGenExecutor(gen, time.Second)

	execCtx := flow.NewExecContext()
	execCtx.Set("last_message", "¿qué servicios tienen?")
	node := flow.Node{ID: "n1", Type: flow.NodeTypeTextGen, Data: map[string]any{
		"prompt":        "Responde al cliente: {{last_message}}",
		"system_prompt": "Eres el asistente de una barbería.",
	}}

	result, err := exec.Execute(context.Background(), testTenant, execCtx, node)
	require.NoError(t, err)

	assert.Equal(t, flow.BranchResponse, result.NextBranch)
	assert.Equal(t, "Claro, te cuento sobre nuestros servicios.", result.Message)
	assert.Equal(t, result.Message, result.Context.GetString("generated_text"))
	require.Len(t, gen.requests, 1)
	assert.Equal(t, "Responde al cliente: ¿qué servicios tienen?", gen.requests[0].Prompt)
	assert.Equal(t, "Eres el asistente de una barbería.", gen.requests[0].SystemPrompt)
}

func TestTextGen_MissingPrompt(t *testing.T) {
	gen := &fakeGenerator{}
	exec := nodeexec.NewTextGenExecutor(gen, time.Second)

	node := flow.Node{ID: "n1", Type: flow.NodeTypeTextGen, Data: map[string]any{}}
	result, err := exec.Execute(context.Background(), testTenant, flow.NewExecContext(), node)
	require.NoError(t, err)

	assert.Equal(t, flow.BranchError, result.NextBranch)
	assert.Empty(t, gen.requests)
}

func TestTextGen_ProviderFailure(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("rate limited")}
	exec := nodeexec.NewTextGenExecutor(gen, time.Second)

	node := flow.Node{ID: "n1", Type: flow.NodeTypeTextGen, Data: map[string]any{
		"prompt": "hola",
	}}
	result, err := exec.Execute(context.Background(), testTenant, flow.NewExecContext(), node)
	require.NoError(t, err)

	assert.Equal(t, flow.BranchError, result.NextBranch)
	assert.NotEmpty(t, result.Message)
}

func TestTextGen_ValidateConfig(t *testing.T) {
	exec := nodeexec.NewTextGenExecutor(&fakeGenerator{}, time.Second)

	assert.Error(t, exec.ValidateConfig(map[string]any{}))
	assert.NoError(t, exec.ValidateConfig(map[string]any{"prompt": "hola"}))
}

func TestCondition_ValidateConfig(t *testing.T) {
	exec := nodeexec.NewConditionExecutor()

	assert.Error(t, exec.ValidateConfig(map[string]any{}))
	assert.NoError(t, exec.ValidateConfig(map[string]any{"options": []any{"a"}}))
	assert.NoError(t, exec.ValidateConfig(map[string]any{"expression": "x > 1"}))
}
