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
	"github.com/lib/pq"

	"github.com/dialogo-labs/dialogo/flow"
	"github.com/dialogo-labs/dialogo/pkg/kernel"
)

type PostgresFlowRepository struct {
	db *sqlx.DB
}

var _ flow.FlowRepository = (*PostgresFlowRepository)(nil)

func NewPostgresFlowRepository(db *sqlx.DB) *PostgresFlowRepository {
	return &PostgresFlowRepository{db: db}
}

// dbFlow is an intermediate struct for database operations
type dbFlow struct {
	ID          string          `db:"id"`
	TenantID    string          `db:"tenant_id"`
	Name        string          `db:"name"`
	Description string          `db:"description"`
	Definition  json.RawMessage `db:"definition"`
	IsActive    bool            `db:"is_active"`
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`
}

// toDBFlow converts domain Flow to dbFlow
func toDBFlow(f flow.Flow) (*dbFlow, error) {
	definitionJSON, err := json.Marshal(f.Definition)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal definition: %w", err)
	}

	return &dbFlow{
		ID:          f.ID.String(),
		TenantID:    f.TenantID.String(),
		Name:        f.Name,
		Description: f.Description,
		Definition:  definitionJSON,
		IsActive:    f.IsActive,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}, nil
}

// toDomainFlow converts dbFlow to domain Flow
func toDomainFlow(dbF *dbFlow) (*flow.Flow, error) {
	var definition flow.FlowDefinition
	if len(dbF.Definition) > 0 && string(dbF.Definition) != "null" {
		if err := json.Unmarshal(dbF.Definition, &definition); err != nil {
			return nil, fmt.Errorf("failed to unmarshal definition: %w", err)
		}
	}

	return &flow.Flow{
		ID:          kernel.FlowID(dbF.ID),
		TenantID:    kernel.TenantID(dbF.TenantID),
		Name:        dbF.Name,
		Description: dbF.Description,
		Definition:  definition,
		IsActive:    dbF.IsActive,
		CreatedAt:   dbF.CreatedAt,
		UpdatedAt:   dbF.UpdatedAt,
	}, nil
}

func (r *PostgresFlowRepository) Save(ctx context.Context, f flow.Flow) error {
	exists, err := r.flowExists(ctx, f.ID)
	if err != nil {
		return errx.Wrap(err, "failed to check flow existence", errx.TypeInternal)
	}

	if exists {
		return r.update(ctx, f)
	}
	return r.create(ctx, f)
}

func (r *PostgresFlowRepository) create(ctx context.Context, f flow.Flow) error {
	dbF, err := toDBFlow(f)
	if err != nil {
		return errx.Wrap(err, "failed to convert flow", errx.TypeInternal).
			WithDetail("flow_id", f.ID.String())
	}

	query := `
		INSERT INTO flows (
			id, tenant_id, name, description, definition,
			is_active, created_at, updated_at
		) VALUES (
			:id, :tenant_id, :name, :description, :definition,
			:is_active, :created_at, :updated_at
		)`

	_, err = r.db.NamedExecContext(ctx, query, dbF)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23505" && pqErr.Constraint == "flows_name_tenant_id_key" {
				return flow.ErrFlowAlreadyExists().
					WithDetail("name", f.Name).
					WithDetail("tenant_id", f.TenantID.String())
			}
		}
		return errx.Wrap(err, "failed to create flow", errx.TypeInternal).
			WithDetail("flow_id", f.ID.String())
	}

	return nil
}

func (r *PostgresFlowRepository) update(ctx context.Context, f flow.Flow) error {
	dbF, err := toDBFlow(f)
	if err != nil {
		return errx.Wrap(err, "failed to convert flow", errx.TypeInternal).
			WithDetail("flow_id", f.ID.String())
	}

	query := `
		UPDATE flows SET
			name = :name,
			description = :description,
			definition = :definition,
			is_active = :is_active,
			updated_at = :updated_at
		WHERE id = :id AND tenant_id = :tenant_id`

	result, err := r.db.NamedExecContext(ctx, query, dbF)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code == "23505" {
				return flow.ErrFlowAlreadyExists().WithDetail("name", f.Name)
			}
		}
		return errx.Wrap(err, "failed to update flow", errx.TypeInternal).
			WithDetail("flow_id", f.ID.String())
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errx.Wrap(err, "failed to get rows affected", errx.TypeInternal)
	}

	if rowsAffected == 0 {
		return flow.ErrFlowNotFound().WithDetail("flow_id", f.ID.String())
	}

	return nil
}

func (r *PostgresFlowRepository) FindByID(ctx context.Context, id kernel.FlowID) (*flow.Flow, error) {
	query := `
		SELECT
			id, tenant_id, name, description, definition,
			is_active, created_at, updated_at
		FROM flows
		WHERE id = $1`

	var dbF dbFlow
	err := r.db.GetContext(ctx, &dbF, query, id.String())
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, flow.ErrFlowNotFound().WithDetail("flow_id", id.String())
		}
		return nil, errx.Wrap(err, "failed to find flow by id", errx.TypeInternal).
			WithDetail("flow_id", id.String())
	}

	return toDomainFlow(&dbF)
}

func (r *PostgresFlowRepository) FindByName(ctx context.Context, name string, tenantID kernel.TenantID) (*flow.Flow, error) {
	query := `
		SELECT
			id, tenant_id, name, description, definition,
			is_active, created_at, updated_at
		FROM flows
		WHERE name = $1 AND tenant_id = $2`

	var dbF dbFlow
	err := r.db.GetContext(ctx, &dbF, query, name, tenantID.String())
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, flow.ErrFlowNotFound().WithDetail("name", name)
		}
		return nil, errx.Wrap(err, "failed to find flow by name", errx.TypeInternal).
			WithDetail("name", name)
	}

	return toDomainFlow(&dbF)
}

func (r *PostgresFlowRepository) Delete(ctx context.Context, id kernel.FlowID, tenantID kernel.TenantID) error {
	query := `DELETE FROM flows WHERE id = $1 AND tenant_id = $2`

	result, err := r.db.ExecContext(ctx, query, id.String(), tenantID.String())
	if err != nil {
		return errx.Wrap(err, "failed to delete flow", errx.TypeInternal).
			WithDetail("flow_id", id.String())
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errx.Wrap(err, "failed to get rows affected", errx.TypeInternal)
	}

	if rowsAffected == 0 {
		return flow.ErrFlowNotFound().WithDetail("flow_id", id.String())
	}

	return nil
}

func (r *PostgresFlowRepository) ExistsByName(ctx context.Context, name string, tenantID kernel.TenantID) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM flows WHERE name = $1 AND tenant_id = $2)`

	var exists bool
	err := r.db.GetContext(ctx, &exists, query, name, tenantID.String())
	if err != nil {
		return false, errx.Wrap(err, "failed to check flow existence by name", errx.TypeInternal).
			WithDetail("name", name)
	}

	return exists, nil
}

func (r *PostgresFlowRepository) FindByTenant(ctx context.Context, tenantID kernel.TenantID) ([]*flow.Flow, error) {
	query := `
		SELECT
			id, tenant_id, name, description, definition,
			is_active, created_at, updated_at
		FROM flows
		WHERE tenant_id = $1
		ORDER BY name ASC`

	var dbFlows []dbFlow
	err := r.db.SelectContext(ctx, &dbFlows, query, tenantID.String())
	if err != nil {
		return nil, errx.Wrap(err, "failed to find flows by tenant", errx.TypeInternal).
			WithDetail("tenant_id", tenantID.String())
	}

	result := make([]*flow.Flow, 0, len(dbFlows))
	for i := range dbFlows {
		f, err := toDomainFlow(&dbFlows[i])
		if err != nil {
			return nil, errx.Wrap(err, "failed to convert flow", errx.TypeInternal)
		}
		result = append(result, f)
	}

	return result, nil
}

// FindActiveByChannel resolves the flow a channel's inbound messages run
// against. One active flow per channel; ties break by most recent update.
func (r *PostgresFlowRepository) FindActiveByChannel(ctx context.Context, channelID kernel.ChannelID, tenantID kernel.TenantID) (*flow.Flow, error) {
	query := `
		SELECT
			f.id, f.tenant_id, f.name, f.description, f.definition,
			f.is_active, f.created_at, f.updated_at
		FROM flows f
		JOIN channel_flows cf ON cf.flow_id = f.id
		WHERE cf.channel_id = $1 AND f.tenant_id = $2 AND f.is_active = true
		ORDER BY f.updated_at DESC
		LIMIT 1`

	var dbF dbFlow
	err := r.db.GetContext(ctx, &dbF, query, channelID.String(), tenantID.String())
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, flow.ErrFlowNotFound().
				WithDetail("channel_id", channelID.String()).
				WithDetail("tenant_id", tenantID.String())
		}
		return nil, errx.Wrap(err, "failed to find active flow by channel", errx.TypeInternal).
			WithDetail("channel_id", channelID.String())
	}

	return toDomainFlow(&dbF)
}

func (r *PostgresFlowRepository) List(ctx context.Context, req flow.FlowListRequest) (flow.FlowListResponse, error) {
	var conditions []string
	var args []any
	argPos := 1

	conditions = append(conditions, fmt.Sprintf("tenant_id = $%d", argPos))
	args = append(args, req.TenantID.String())
	argPos++

	if req.IsActive != nil {
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", argPos))
		args = append(args, *req.IsActive)
		argPos++
	}

	if req.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", argPos, argPos+1))
		searchPattern := "%" + req.Search + "%"
		args = append(args, searchPattern, searchPattern)
		argPos += 2
	}

	whereClause := strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM flows WHERE %s", whereClause)
	var total int
	err := r.db.GetContext(ctx, &total, countQuery, args...)
	if err != nil {
		return flow.FlowListResponse{}, errx.Wrap(err, "failed to count flows", errx.TypeInternal)
	}

	dataQuery := fmt.Sprintf(`
		SELECT
			id, tenant_id, name, description, definition,
			is_active, created_at, updated_at
		FROM flows
		WHERE %s
		ORDER BY name ASC
		LIMIT $%d OFFSET $%d`,
		whereClause, argPos, argPos+1)

	args = append(args, req.PageSize, req.GetOffset())

	var dbFlows []dbFlow
	err = r.db.SelectContext(ctx, &dbFlows, dataQuery, args...)
	if err != nil {
		return flow.FlowListResponse{}, errx.Wrap(err, "failed to list flows", errx.TypeInternal)
	}

	flows := make([]flow.Flow, 0, len(dbFlows))
	for i := range dbFlows {
		f, err := toDomainFlow(&dbFlows[i])
		if err != nil {
			return flow.FlowListResponse{}, errx.Wrap(err, "failed to convert flow", errx.TypeInternal)
		}
		flows = append(flows, *f)
	}

	return storex.NewPaginated(flows, total, req.Page, req.PageSize), nil
}

func (r *PostgresFlowRepository) flowExists(ctx context.Context, id kernel.FlowID) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM flows WHERE id = $1)`

	var exists bool
	err := r.db.GetContext(ctx, &exists, query, id.String())
	if err != nil {
		return false, errx.Wrap(err, "failed to check flow existence", errx.TypeInternal)
	}

	return exists, nil
}
