package flowinfra

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Abraxas-365/craftable/errx"
	"github.com/Abraxas-365/craftable/storex"
	"github.com/jmoiron/sqlx"

	"github.com/dialogo-labs/dialogo/flow"
	"github.com/dialogo-labs/dialogo/pkg/kernel"
)

type PostgresSessionRepository struct {
	db *sqlx.DB
}

var _ flow.SessionRepository = (*PostgresSessionRepository)(nil)

func NewPostgresSessionRepository(db *sqlx.DB) *PostgresSessionRepository {
	return &PostgresSessionRepository{db: db}
}

// dbSession is an intermediate struct for database operations
type dbSession struct {
	ID              string          `db:"id"`
	TenantID        string          `db:"tenant_id"`
	ChannelID       string          `db:"channel_id"`
	SenderID        string          `db:"sender_id"`
	FlowID          string          `db:"flow_id"`
	CurrentNodeID   sql.NullString  `db:"current_node_id"`
	Context         json.RawMessage `db:"context"`
	Status          string          `db:"status"`
	WaitingVariable sql.NullString  `db:"waiting_variable"`
	TurnCount       int             `db:"turn_count"`
	ExpiresAt       time.Time       `db:"expires_at"`
	CreatedAt       time.Time       `db:"created_at"`
	LastActivityAt  time.Time       `db:"last_activity_at"`
	ClosedAt        sql.NullTime    `db:"closed_at"`
}

// toDBSession converts domain Session to dbSession
func toDBSession(s flow.Session) (*dbSession, error) {
	contextJSON := []byte("[]")
	if s.Context != nil && s.Context.Len() > 0 {
		var err error
		contextJSON, err = json.Marshal(s.Context)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal context: %w", err)
		}
	}

	dbS := &dbSession{
		ID:             s.ID.String(),
		TenantID:       s.TenantID.String(),
		ChannelID:      s.ChannelID.String(),
		SenderID:       s.SenderID,
		FlowID:         s.FlowID.String(),
		Context:        contextJSON,
		Status:         string(s.Status),
		TurnCount:      s.TurnCount,
		ExpiresAt:      s.ExpiresAt,
		CreatedAt:      s.CreatedAt,
		LastActivityAt: s.LastActivityAt,
	}

	if s.CurrentNodeID != "" {
		dbS.CurrentNodeID = sql.NullString{String: s.CurrentNodeID, Valid: true}
	}
	if s.WaitingVariable != "" {
		dbS.WaitingVariable = sql.NullString{String: s.WaitingVariable, Valid: true}
	}
	if s.ClosedAt != nil {
		dbS.ClosedAt = sql.NullTime{Time: *s.ClosedAt, Valid: true}
	}

	return dbS, nil
}

// toDomainSession converts dbSession to domain Session
func toDomainSession(dbS *dbSession) (*flow.Session, error) {
	execCtx := flow.NewExecContext()
	if len(dbS.Context) > 0 && string(dbS.Context) != "null" {
		if err := json.Unmarshal(dbS.Context, execCtx); err != nil {
			return nil, fmt.Errorf("failed to unmarshal context: %w", err)
		}
	}

	s := &flow.Session{
		ID:             kernel.SessionID(dbS.ID),
		TenantID:       kernel.TenantID(dbS.TenantID),
		ChannelID:      kernel.ChannelID(dbS.ChannelID),
		SenderID:       dbS.SenderID,
		FlowID:         kernel.FlowID(dbS.FlowID),
		Context:        execCtx,
		Status:         flow.SessionStatus(dbS.Status),
		TurnCount:      dbS.TurnCount,
		ExpiresAt:      dbS.ExpiresAt,
		CreatedAt:      dbS.CreatedAt,
		LastActivityAt: dbS.LastActivityAt,
	}

	if dbS.CurrentNodeID.Valid {
		s.CurrentNodeID = dbS.CurrentNodeID.String
	}
	if dbS.WaitingVariable.Valid {
		s.WaitingVariable = dbS.WaitingVariable.String
	}
	if dbS.ClosedAt.Valid {
		closedAt := dbS.ClosedAt.Time
		s.ClosedAt = &closedAt
	}

	return s, nil
}

const sessionColumns = `
	id, tenant_id, channel_id, sender_id, flow_id, current_node_id,
	context, status, waiting_variable, turn_count, expires_at,
	created_at, last_activity_at, closed_at`

func (r *PostgresSessionRepository) Save(ctx context.Context, session flow.Session) error {
	dbS, err := toDBSession(session)
	if err != nil {
		return errx.Wrap(err, "failed to convert session", errx.TypeInternal).
			WithDetail("session_id", session.ID.String())
	}

	query := `
		INSERT INTO sessions (
			id, tenant_id, channel_id, sender_id, flow_id, current_node_id,
			context, status, waiting_variable, turn_count, expires_at,
			created_at, last_activity_at, closed_at
		) VALUES (
			:id, :tenant_id, :channel_id, :sender_id, :flow_id, :current_node_id,
			:context, :status, :waiting_variable, :turn_count, :expires_at,
			:created_at, :last_activity_at, :closed_at
		)
		ON CONFLICT (id) DO UPDATE SET
			current_node_id = EXCLUDED.current_node_id,
			context = EXCLUDED.context,
			status = EXCLUDED.status,
			waiting_variable = EXCLUDED.waiting_variable,
			turn_count = EXCLUDED.turn_count,
			expires_at = EXCLUDED.expires_at,
			last_activity_at = EXCLUDED.last_activity_at,
			closed_at = EXCLUDED.closed_at`

	_, err = r.db.NamedExecContext(ctx, query, dbS)
	if err != nil {
		return errx.Wrap(err, "failed to save session", errx.TypeInternal).
			WithDetail("session_id", session.ID.String())
	}

	return nil
}

func (r *PostgresSessionRepository) FindByID(ctx context.Context, id kernel.SessionID) (*flow.Session, error) {
	query := fmt.Sprintf(`SELECT %s FROM sessions WHERE id = $1`, sessionColumns)

	var dbS dbSession
	err := r.db.GetContext(ctx, &dbS, query, id.String())
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, flow.ErrSessionNotFound().WithDetail("session_id", id.String())
		}
		return nil, errx.Wrap(err, "failed to find session by id", errx.TypeInternal).
			WithDetail("session_id", id.String())
	}

	return toDomainSession(&dbS)
}

func (r *PostgresSessionRepository) Delete(ctx context.Context, id kernel.SessionID) error {
	query := `DELETE FROM sessions WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id.String())
	if err != nil {
		return errx.Wrap(err, "failed to delete session", errx.TypeInternal).
			WithDetail("session_id", id.String())
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errx.Wrap(err, "failed to get rows affected", errx.TypeInternal)
	}

	if rowsAffected == 0 {
		return flow.ErrSessionNotFound().WithDetail("session_id", id.String())
	}

	return nil
}

// FindOpenByChannelAndSender returns the most recent non-terminal session
// for a user/channel pair.
func (r *PostgresSessionRepository) FindOpenByChannelAndSender(ctx context.Context, channelID kernel.ChannelID, senderID string) (*flow.Session, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM sessions
		WHERE channel_id = $1 AND sender_id = $2 AND status IN ('ACTIVE', 'SUSPENDED')
		ORDER BY last_activity_at DESC
		LIMIT 1`, sessionColumns)

	var dbS dbSession
	err := r.db.GetContext(ctx, &dbS, query, channelID.String(), senderID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, flow.ErrSessionNotFound().
				WithDetail("channel_id", channelID.String()).
				WithDetail("sender_id", senderID)
		}
		return nil, errx.Wrap(err, "failed to find session by channel and sender", errx.TypeInternal).
			WithDetail("channel_id", channelID.String())
	}

	return toDomainSession(&dbS)
}

func (r *PostgresSessionRepository) FindExpired(ctx context.Context) ([]*flow.Session, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM sessions
		WHERE status IN ('ACTIVE', 'SUSPENDED') AND expires_at < NOW()`, sessionColumns)

	var dbSessions []dbSession
	err := r.db.SelectContext(ctx, &dbSessions, query)
	if err != nil {
		return nil, errx.Wrap(err, "failed to find expired sessions", errx.TypeInternal)
	}

	result := make([]*flow.Session, 0, len(dbSessions))
	for i := range dbSessions {
		s, err := toDomainSession(&dbSessions[i])
		if err != nil {
			return nil, errx.Wrap(err, "failed to convert session", errx.TypeInternal)
		}
		result = append(result, s)
	}

	return result, nil
}

func (r *PostgresSessionRepository) List(ctx context.Context, req flow.SessionListRequest) (flow.SessionListResponse, error) {
	var conditions []string
	var args []any
	argPos := 1

	conditions = append(conditions, fmt.Sprintf("tenant_id = $%d", argPos))
	args = append(args, req.TenantID.String())
	argPos++

	if req.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argPos))
		args = append(args, string(*req.Status))
		argPos++
	}

	whereClause := strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM sessions WHERE %s", whereClause)
	var total int
	err := r.db.GetContext(ctx, &total, countQuery, args...)
	if err != nil {
		return flow.SessionListResponse{}, errx.Wrap(err, "failed to count sessions", errx.TypeInternal)
	}

	dataQuery := fmt.Sprintf(`
		SELECT %s
		FROM sessions
		WHERE %s
		ORDER BY last_activity_at DESC
		LIMIT $%d OFFSET $%d`,
		sessionColumns, whereClause, argPos, argPos+1)

	args = append(args, req.PageSize, req.GetOffset())

	var dbSessions []dbSession
	err = r.db.SelectContext(ctx, &dbSessions, dataQuery, args...)
	if err != nil {
		return flow.SessionListResponse{}, errx.Wrap(err, "failed to list sessions", errx.TypeInternal)
	}

	sessions := make([]flow.Session, 0, len(dbSessions))
	for i := range dbSessions {
		s, err := toDomainSession(&dbSessions[i])
		if err != nil {
			return flow.SessionListResponse{}, errx.Wrap(err, "failed to convert session", errx.TypeInternal)
		}
		sessions = append(sessions, *s)
	}

	return storex.NewPaginated(sessions, total, req.Page, req.PageSize), nil
}

// MarkExpired closes an expired session so the next inbound message starts
// a fresh conversation.
func (r *PostgresSessionRepository) MarkExpired(ctx context.Context, id kernel.SessionID) error {
	query := `
		UPDATE sessions
		SET status = 'FAILED', closed_at = NOW(), last_activity_at = NOW()
		WHERE id = $1 AND status IN ('ACTIVE', 'SUSPENDED')`

	_, err := r.db.ExecContext(ctx, query, id.String())
	if err != nil {
		return errx.Wrap(err, "failed to mark session expired", errx.TypeInternal).
			WithDetail("session_id", id.String())
	}

	return nil
}

func (r *PostgresSessionRepository) CountActive(ctx context.Context, tenantID kernel.TenantID) (int, error) {
	query := `SELECT COUNT(*) FROM sessions WHERE tenant_id = $1 AND status IN ('ACTIVE', 'SUSPENDED')`

	var count int
	err := r.db.GetContext(ctx, &count, query, tenantID.String())
	if err != nil {
		return 0, errx.Wrap(err, "failed to count active sessions", errx.TypeInternal).
			WithDetail("tenant_id", tenantID.String())
	}

	return count, nil
}
