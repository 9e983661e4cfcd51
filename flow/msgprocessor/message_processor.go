package msgprocessor

import (
	"context"
	"log"
	"time"

	"github.com/Abraxas-365/craftable/errx"
	"github.com/google/uuid"

	"github.com/dialogo-labs/dialogo/flow"
	"github.com/dialogo-labs/dialogo/pkg/kernel"
)

// FallbackMessage es lo único que el usuario final ve cuando un turno
// muere por un error estructural del grafo; el detalle queda en los logs
// y en el transcript del operador.
const FallbackMessage = "Lo siento, algo salió mal. Por favor intenta de nuevo más tarde."

// MessageProcessor es el entry point de un mensaje entrante: dedup,
// lock por sesión, turno del intérprete, persistencia y entrega.
type MessageProcessor struct {
	messageRepo    flow.MessageRepository
	flowRepo       flow.FlowRepository
	sessionManager flow.SessionManager
	interpreter    flow.Interpreter
	locker         flow.SessionLocker
	responder      flow.Responder
}

var _ flow.TurnProcessor = (*MessageProcessor)(nil)

func NewMessageProcessor(
	messageRepo flow.MessageRepository,
	flowRepo flow.FlowRepository,
	sessionManager flow.SessionManager,
	interpreter flow.Interpreter,
	locker flow.SessionLocker,
	responder flow.Responder,
) *MessageProcessor {
	return &MessageProcessor{
		messageRepo:    messageRepo,
		flowRepo:       flowRepo,
		sessionManager: sessionManager,
		interpreter:    interpreter,
		locker:         locker,
		responder:      responder,
	}
}

// ProcessMessage procesa un mensaje entrante de principio a fin
func (mp *MessageProcessor) ProcessMessage(ctx context.Context, msg flow.Message) (*flow.TurnResult, error) {
	// 1. Dedup: a redelivered message never re-runs its side effects.
	if err := mp.registerInbound(ctx, &msg); err != nil {
		return nil, err
	}

	// 2. Resolve the tenant's active flow for this channel.
	f, err := mp.flowRepo.FindActiveByChannel(ctx, msg.ChannelID, msg.TenantID)
	if err != nil {
		mp.markFailed(ctx, &msg)
		return nil, errx.Wrap(err, "no active flow for channel", errx.TypeNotFound).
			WithDetail("channel_id", msg.ChannelID.String())
	}

	// 3. Get or create the session for this user/channel pair.
	session, err := mp.sessionManager.GetOrCreate(ctx, msg.ChannelID, msg.SenderID, msg.TenantID, f.ID)
	if err != nil {
		mp.markFailed(ctx, &msg)
		return nil, err
	}

	// 4. Serialize turns of the same session. A concurrent turn leaves the
	// message PENDING so the channel can redeliver it.
	release, err := mp.locker.Acquire(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	msg.SessionID = session.ID
	msg.MarkAsProcessing()
	if err := mp.messageRepo.Save(ctx, msg); err != nil {
		return nil, errx.Wrap(err, "failed to persist inbound message", errx.TypeInternal)
	}

	// 5. Run the turn.
	result, err := mp.interpreter.RunTurn(ctx, f, session, msg.Text)
	if err != nil {
		if flow.IsStructural(err) {
			return mp.failTurn(ctx, &msg, session, err)
		}
		mp.markFailed(ctx, &msg)
		return nil, err
	}

	// 6. Persist session, transcript and deliver the buffer.
	if err := mp.sessionManager.Update(ctx, *session); err != nil {
		mp.markFailed(ctx, &msg)
		return nil, err
	}

	mp.appendOutbound(ctx, session, result.Messages)

	if err := mp.responder.SendMessages(ctx, session, result.Messages); err != nil {
		log.Printf("⚠️ failed to deliver %d messages for session %s: %v",
			len(result.Messages), session.ID.String(), err)
	}

	msg.MarkAsProcessed()
	if err := mp.messageRepo.Save(ctx, msg); err != nil {
		return nil, errx.Wrap(err, "failed to mark message processed", errx.TypeInternal)
	}

	result.SessionID = session.ID
	return result, nil
}

// registerInbound saves a first delivery as PENDING and rejects
// redeliveries of anything already taken by a worker. A FAILED message may
// be retried.
func (mp *MessageProcessor) registerInbound(ctx context.Context, msg *flow.Message) error {
	existing, err := mp.messageRepo.FindByID(ctx, msg.ID)
	if err == nil {
		switch existing.Status {
		case flow.MessageStatusProcessing, flow.MessageStatusProcessed:
			return flow.ErrMessageAlreadyProcessed().
				WithDetail("message_id", msg.ID.String()).
				WithDetail("status", string(existing.Status))
		}
		return nil
	}
	if !errx.IsType(err, errx.TypeNotFound) {
		return errx.Wrap(err, "failed to check message", errx.TypeInternal)
	}

	now := time.Now()
	msg.Direction = flow.DirectionInbound
	msg.Status = flow.MessageStatusPending
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = now
	}
	msg.UpdatedAt = now
	if err := mp.messageRepo.Save(ctx, *msg); err != nil {
		return errx.Wrap(err, "failed to register inbound message", errx.TypeInternal)
	}
	return nil
}

// failTurn handles a structural error: the session dies, the user gets a
// generic fallback and the operator keeps the full diagnostic in the logs.
func (mp *MessageProcessor) failTurn(ctx context.Context, msg *flow.Message, session *flow.Session, cause error) (*flow.TurnResult, error) {
	log.Printf("❌ structural error in session %s: %v", session.ID.String(), cause)

	session.Fail()
	if err := mp.sessionManager.Update(ctx, *session); err != nil {
		log.Printf("⚠️ failed to persist failed session %s: %v", session.ID.String(), err)
	}

	messages := []string{FallbackMessage}
	mp.appendOutbound(ctx, session, messages)
	if err := mp.responder.SendMessages(ctx, session, messages); err != nil {
		log.Printf("⚠️ failed to deliver fallback for session %s: %v", session.ID.String(), err)
	}

	msg.MarkAsFailed()
	if err := mp.messageRepo.Save(ctx, *msg); err != nil {
		log.Printf("⚠️ failed to mark message %s failed: %v", msg.ID.String(), err)
	}

	return &flow.TurnResult{
		SessionID:     session.ID,
		Messages:      messages,
		Status:        session.Status,
		CurrentNodeID: session.CurrentNodeID,
		Context:       session.Context,
	}, nil
}

// appendOutbound records the turn's outgoing buffer in the transcript.
func (mp *MessageProcessor) appendOutbound(ctx context.Context, session *flow.Session, texts []string) {
	now := time.Now()
	for _, text := range texts {
		out := flow.Message{
			ID:        kernel.NewMessageID(uuid.New().String()),
			TenantID:  session.TenantID,
			SessionID: session.ID,
			ChannelID: session.ChannelID,
			SenderID:  session.SenderID,
			Direction: flow.DirectionOutbound,
			Text:      text,
			Status:    flow.MessageStatusProcessed,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := mp.messageRepo.Save(ctx, out); err != nil {
			log.Printf("⚠️ failed to append outbound transcript entry: %v", err)
		}
	}
}

func (mp *MessageProcessor) markFailed(ctx context.Context, msg *flow.Message) {
	msg.MarkAsFailed()
	if err := mp.messageRepo.Save(ctx, *msg); err != nil {
		log.Printf("⚠️ failed to mark message %s failed: %v", msg.ID.String(), err)
	}
}
