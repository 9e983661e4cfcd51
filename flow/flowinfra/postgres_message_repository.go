package flowinfra

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/Abraxas-365/craftable/errx"
	"github.com/Abraxas-365/craftable/storex"
	"github.com/jmoiron/sqlx"

	"github.com/dialogo-labs/dialogo/flow"
	"github.com/dialogo-labs/dialogo/pkg/kernel"
)

type PostgresMessageRepository struct {
	db *sqlx.DB
}

var _ flow.MessageRepository = (*PostgresMessageRepository)(nil)

func NewPostgresMessageRepository(db *sqlx.DB) *PostgresMessageRepository {
	return &PostgresMessageRepository{db: db}
}

const messageColumns = `
	id, tenant_id, session_id, channel_id, sender_id, direction,
	text, status, created_at, updated_at`

func (r *PostgresMessageRepository) Save(ctx context.Context, msg flow.Message) error {
	query := `
		INSERT INTO messages (
			id, tenant_id, session_id, channel_id, sender_id, direction,
			text, status, created_at, updated_at
		) VALUES (
			:id, :tenant_id, :session_id, :channel_id, :sender_id, :direction,
			:text, :status, :created_at, :updated_at
		)
		ON CONFLICT (id) DO UPDATE SET
			session_id = EXCLUDED.session_id,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at`

	_, err := r.db.NamedExecContext(ctx, query, msg)
	if err != nil {
		return errx.Wrap(err, "failed to save message", errx.TypeInternal).
			WithDetail("message_id", msg.ID.String())
	}

	return nil
}

func (r *PostgresMessageRepository) FindByID(ctx context.Context, id kernel.MessageID) (*flow.Message, error) {
	query := fmt.Sprintf(`SELECT %s FROM messages WHERE id = $1`, messageColumns)

	var msg flow.Message
	err := r.db.GetContext(ctx, &msg, query, id.String())
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errx.New("message not found", errx.TypeNotFound).
				WithDetail("message_id", id.String())
		}
		return nil, errx.Wrap(err, "failed to find message by id", errx.TypeInternal).
			WithDetail("message_id", id.String())
	}

	return &msg, nil
}

func (r *PostgresMessageRepository) FindBySession(ctx context.Context, sessionID kernel.SessionID) ([]*flow.Message, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM messages
		WHERE session_id = $1
		ORDER BY created_at ASC`, messageColumns)

	var messages []flow.Message
	err := r.db.SelectContext(ctx, &messages, query, sessionID.String())
	if err != nil {
		return nil, errx.Wrap(err, "failed to find messages by session", errx.TypeInternal).
			WithDetail("session_id", sessionID.String())
	}

	result := make([]*flow.Message, 0, len(messages))
	for i := range messages {
		result = append(result, &messages[i])
	}

	return result, nil
}

func (r *PostgresMessageRepository) List(ctx context.Context, req flow.MessageListRequest) (flow.MessageListResponse, error) {
	var conditions []string
	var args []any
	argPos := 1

	conditions = append(conditions, fmt.Sprintf("tenant_id = $%d", argPos))
	args = append(args, req.TenantID.String())
	argPos++

	if !req.SessionID.IsEmpty() {
		conditions = append(conditions, fmt.Sprintf("session_id = $%d", argPos))
		args = append(args, req.SessionID.String())
		argPos++
	}

	whereClause := strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM messages WHERE %s", whereClause)
	var total int
	err := r.db.GetContext(ctx, &total, countQuery, args...)
	if err != nil {
		return flow.MessageListResponse{}, errx.Wrap(err, "failed to count messages", errx.TypeInternal)
	}

	dataQuery := fmt.Sprintf(`
		SELECT %s
		FROM messages
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		messageColumns, whereClause, argPos, argPos+1)

	args = append(args, req.PageSize, req.GetOffset())

	var messages []flow.Message
	err = r.db.SelectContext(ctx, &messages, dataQuery, args...)
	if err != nil {
		return flow.MessageListResponse{}, errx.Wrap(err, "failed to list messages", errx.TypeInternal)
	}

	return storex.NewPaginated(messages, total, req.Page, req.PageSize), nil
}
