package msgprocessor_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Abraxas-365/craftable/errx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dialogo-labs/dialogo/flow"
	"github.com/dialogo-labs/dialogo/flow/msgprocessor"
	"github.com/dialogo-labs/dialogo/pkg/kernel"
)

// ============================================================================
// Fakes
// ============================================================================

type memMessageRepo struct {
	messages map[kernel.MessageID]flow.Message
}

func newMemMessageRepo() *memMessageRepo {
	return &memMessageRepo{messages: make(map[kernel.MessageID]flow.Message)}
}

func (r *memMessageRepo) Save(ctx context.Context, msg flow.Message) error {
	r.messages[msg.ID] = msg
	return nil
}

func (r *memMessageRepo) FindByID(ctx context.Context, id kernel.MessageID) (*flow.Message, error) {
	msg, ok := r.messages[id]
	if !ok {
		return nil, errx.New("message not found", errx.TypeNotFound)
	}
	return &msg, nil
}

func (r *memMessageRepo) FindBySession(ctx context.Context, sessionID kernel.SessionID) ([]*flow.Message, error) {
	var out []*flow.Message
	for id := range r.messages {
		msg := r.messages[id]
		if msg.SessionID == sessionID {
			out = append(out, &msg)
		}
	}
	return out, nil
}

func (r *memMessageRepo) List(ctx context.Context, req flow.MessageListRequest) (flow.MessageListResponse, error) {
	return flow.MessageListResponse{}, nil
}

func (r *memMessageRepo) outboundTexts(sessionID kernel.SessionID) []string {
	var out []string
	for _, msg := range r.messages {
		if msg.SessionID == sessionID && msg.Direction == flow.DirectionOutbound {
			out = append(out, msg.Text)
		}
	}
	return out
}

type stubFlowRepo struct {
	active *flow.Flow
	err    error
}

func (r *stubFlowRepo) Save(ctx context.Context, f flow.Flow) error { return nil }
func (r *stubFlowRepo) FindByID(ctx context.Context, id kernel.FlowID) (*flow.Flow, error) {
	return r.active, r.err
}
func (r *stubFlowRepo) FindByName(ctx context.Context, name string, tenantID kernel.TenantID) (*flow.Flow, error) {
	return r.active, r.err
}
func (r *stubFlowRepo) Delete(ctx context.Context, id kernel.FlowID, tenantID kernel.TenantID) error {
	return nil
}
func (r *stubFlowRepo) ExistsByName(ctx context.Context, name string, tenantID kernel.TenantID) (bool, error) {
	return false, nil
}
func (r *stubFlowRepo) FindByTenant(ctx context.Context, tenantID kernel.TenantID) ([]*flow.Flow, error) {
	return nil, nil
}
func (r *stubFlowRepo) FindActiveByChannel(ctx context.Context, channelID kernel.ChannelID, tenantID kernel.TenantID) (*flow.Flow, error) {
	return r.active, r.err
}
func (r *stubFlowRepo) List(ctx context.Context, req flow.FlowListRequest) (flow.FlowListResponse, error) {
	return flow.FlowListResponse{}, nil
}

type stubSessionManager struct {
	session *flow.Session
	updated []flow.Session
}

func (m *stubSessionManager) GetOrCreate(ctx context.Context, channelID kernel.ChannelID, senderID string, tenantID kernel.TenantID, flowID kernel.FlowID) (*flow.Session, error) {
	return m.session, nil
}
func (m *stubSessionManager) Update(ctx context.Context, session flow.Session) error {
	m.updated = append(m.updated, session)
	return nil
}
func (m *stubSessionManager) Get(ctx context.Context, sessionID kernel.SessionID) (*flow.Session, error) {
	return m.session, nil
}
func (m *stubSessionManager) ExtendSession(ctx context.Context, sessionID kernel.SessionID) error {
	return nil
}
func (m *stubSessionManager) SweepExpired(ctx context.Context) error { return nil }

type stubInterpreter struct {
	result *flow.TurnResult
	err    error
	calls  int
}

func (i *stubInterpreter) RunTurn(ctx context.Context, f *flow.Flow, session *flow.Session, inboundText string) (*flow.TurnResult, error) {
	i.calls++
	if i.err != nil {
		return nil, i.err
	}
	return i.result, nil
}

func (i *stubInterpreter) ValidateFlow(ctx context.Context, f flow.Flow) error { return nil }

type stubLocker struct {
	err      error
	acquired int
	released int
}

func (l *stubLocker) Acquire(ctx context.Context, sessionID kernel.SessionID) (func(), error) {
	if l.err != nil {
		return nil, l.err
	}
	l.acquired++
	return func() { l.released++ }, nil
}

type recordingResponder struct {
	sent [][]string
	err  error
}

func (r *recordingResponder) SendMessages(ctx context.Context, session *flow.Session, texts []string) error {
	r.sent = append(r.sent, texts)
	return r.err
}

// ============================================================================
// Fixtures
// ============================================================================

type processorFixture struct {
	processor   *msgprocessor.MessageProcessor
	messageRepo *memMessageRepo
	flowRepo    *stubFlowRepo
	sessions    *stubSessionManager
	interpreter *stubInterpreter
	locker      *stubLocker
	responder   *recordingResponder
	session     *flow.Session
}

func newFixture() *processorFixture {
	session := &flow.Session{
		ID:        kernel.NewSessionID("sess-1"),
		TenantID:  kernel.NewTenantID("tenant-1"),
		ChannelID: kernel.NewChannelID("chan-1"),
		SenderID:  "user-1",
		FlowID:    kernel.NewFlowID("flow-1"),
		Context:   flow.NewExecContext(),
		Status:    flow.SessionStatusActive,
		ExpiresAt: time.Now().Add(time.Hour),
	}

	fx := &processorFixture{
		messageRepo: newMemMessageRepo(),
		flowRepo: &stubFlowRepo{active: &flow.Flow{
			ID:       kernel.NewFlowID("flow-1"),
			TenantID: kernel.NewTenantID("tenant-1"),
			Name:     "test",
			IsActive: true,
		}},
		sessions: &stubSessionManager{session: session},
		interpreter: &stubInterpreter{result: &flow.TurnResult{
			Messages: []string{"Hola"},
			Status:   flow.SessionStatusSuspended,
		}},
		locker:    &stubLocker{},
		responder: &recordingResponder{},
		session:   session,
	}

	fx.processor = msgprocessor.NewMessageProcessor(
		fx.messageRepo, fx.flowRepo, fx.sessions, fx.interpreter, fx.locker, fx.responder,
	)
	return fx
}

func inboundMessage(id string) flow.Message {
	return flow.Message{
		ID:        kernel.NewMessageID(id),
		TenantID:  kernel.NewTenantID("tenant-1"),
		ChannelID: kernel.NewChannelID("chan-1"),
		SenderID:  "user-1",
		Text:      "hola",
	}
}

// ============================================================================
// Tests
// ============================================================================

func TestProcessMessage_HappyPath(t *testing.T) {
	fx := newFixture()

	result, err := fx.processor.ProcessMessage(context.Background(), inboundMessage("msg-1"))
	require.NoError(t, err)

	assert.Equal(t, []string{"Hola"}, result.Messages)
	assert.Equal(t, fx.session.ID, result.SessionID)
	assert.Equal(t, 1, fx.interpreter.calls)
	assert.Equal(t, 1, fx.locker.acquired)
	assert.Equal(t, 1, fx.locker.released)

	saved, err := fx.messageRepo.FindByID(context.Background(), kernel.NewMessageID("msg-1"))
	require.NoError(t, err)
	assert.Equal(t, flow.MessageStatusProcessed, saved.Status)
	assert.Equal(t, fx.session.ID, saved.SessionID)

	assert.Equal(t, []string{"Hola"}, fx.messageRepo.outboundTexts(fx.session.ID))
	require.Len(t, fx.responder.sent, 1)
	assert.Equal(t, []string{"Hola"}, fx.responder.sent[0])
	require.Len(t, fx.sessions.updated, 1)
}

func TestProcessMessage_RedeliveryRejected(t *testing.T) {
	fx := newFixture()

	_, err := fx.processor.ProcessMessage(context.Background(), inboundMessage("msg-1"))
	require.NoError(t, err)
	require.Equal(t, 1, fx.interpreter.calls)

	// redelivery of a processed message must not re-run side effects
	_, err = fx.processor.ProcessMessage(context.Background(), inboundMessage("msg-1"))
	require.Error(t, err)
	assert.Equal(t, 1, fx.interpreter.calls)
}

func TestProcessMessage_StructuralFailure(t *testing.T) {
	fx := newFixture()
	fx.interpreter.err = flow.ErrUnmatchedBranch().WithDetail("node_id", "menu")

	result, err := fx.processor.ProcessMessage(context.Background(), inboundMessage("msg-1"))
	require.NoError(t, err)

	assert.Equal(t, []string{msgprocessor.FallbackMessage}, result.Messages)
	assert.Equal(t, flow.SessionStatusFailed, result.Status)
	assert.Equal(t, flow.SessionStatusFailed, fx.session.Status)

	saved, findErr := fx.messageRepo.FindByID(context.Background(), kernel.NewMessageID("msg-1"))
	require.NoError(t, findErr)
	assert.Equal(t, flow.MessageStatusFailed, saved.Status)

	// the user still got an answer
	require.Len(t, fx.responder.sent, 1)
	assert.Equal(t, []string{msgprocessor.FallbackMessage}, fx.responder.sent[0])
}

func TestProcessMessage_NonStructuralErrorSurfaces(t *testing.T) {
	fx := newFixture()
	fx.interpreter.err = errors.New("db connection lost")

	_, err := fx.processor.ProcessMessage(context.Background(), inboundMessage("msg-1"))
	require.Error(t, err)

	saved, findErr := fx.messageRepo.FindByID(context.Background(), kernel.NewMessageID("msg-1"))
	require.NoError(t, findErr)
	assert.Equal(t, flow.MessageStatusFailed, saved.Status)
	assert.NotEqual(t, flow.SessionStatusFailed, fx.session.Status)
}

func TestProcessMessage_FailedMessageMayRetry(t *testing.T) {
	fx := newFixture()
	fx.interpreter.err = errors.New("transient failure")

	_, err := fx.processor.ProcessMessage(context.Background(), inboundMessage("msg-1"))
	require.Error(t, err)

	fx.interpreter.err = nil
	result, err := fx.processor.ProcessMessage(context.Background(), inboundMessage("msg-1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Hola"}, result.Messages)
	assert.Equal(t, 2, fx.interpreter.calls)
}

func TestProcessMessage_TurnInProgress(t *testing.T) {
	fx := newFixture()
	fx.locker.err = flow.ErrTurnInProgress()

	_, err := fx.processor.ProcessMessage(context.Background(), inboundMessage("msg-1"))
	require.Error(t, err)
	assert.Equal(t, 0, fx.interpreter.calls)

	// the message stays pending so the channel can redeliver it
	saved, findErr := fx.messageRepo.FindByID(context.Background(), kernel.NewMessageID("msg-1"))
	require.NoError(t, findErr)
	assert.Equal(t, flow.MessageStatusPending, saved.Status)
}

func TestProcessMessage_NoActiveFlow(t *testing.T) {
	fx := newFixture()
	fx.flowRepo.active = nil
	fx.flowRepo.err = flow.ErrFlowNotFound()

	_, err := fx.processor.ProcessMessage(context.Background(), inboundMessage("msg-1"))
	require.Error(t, err)
	assert.Equal(t, 0, fx.interpreter.calls)

	saved, findErr := fx.messageRepo.FindByID(context.Background(), kernel.NewMessageID("msg-1"))
	require.NoError(t, findErr)
	assert.Equal(t, flow.MessageStatusFailed, saved.Status)
}
