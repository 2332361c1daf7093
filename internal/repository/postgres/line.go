package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/google/uuid"

	"github.com/MehdiEmrani/wazo-chatd/internal/models"
)

// lineColumns projects the two derived fields at read time: tenant_uuid
// from the owning user and state from the associated endpoint. LEFT
// JOINs because both associations are optional; a line without an
// endpoint reports the unavailable state, a line without a user reports
// the zero tenant.
const lineColumns = `
	SELECT l.id, l.user_uuid, l.endpoint_name, COALESCE(l.media, ''),
	       COALESCE(u.tenant_uuid, '00000000-0000-0000-0000-000000000000'::uuid),
	       COALESCE(e.state, 'unavailable')
	FROM chatd_line l
	LEFT JOIN chatd_user u ON u.uuid = l.user_uuid
	LEFT JOIN chatd_endpoint e ON e.name = l.endpoint_name`

type LineStore struct {
	pool *pgxpool.Pool
}

func NewLineStore(pool *pgxpool.Pool) *LineStore {
	return &LineStore{pool: pool}
}

func (s *LineStore) Find(ctx context.Context, lineID int) (*models.Line, error) {
	query := lineColumns + `
	WHERE l.id = $1`

	line, err := scanLine(s.pool.QueryRow(ctx, query, lineID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find line: %w", err)
	}
	return line, nil
}

func (s *LineStore) List(ctx context.Context) ([]models.Line, error) {
	rows, err := s.pool.Query(ctx, lineColumns)
	if err != nil {
		return nil, fmt.Errorf("list lines: %w", err)
	}
	return scanLines(rows)
}

// Update persists the stored columns of the line. The derived fields
// (TenantUUID, State) are read-only projections and are not written.
func (s *LineStore) Update(ctx context.Context, line *models.Line) error {
	query := `
		UPDATE chatd_line
		SET user_uuid = $2, endpoint_name = $3, media = $4
		WHERE id = $1`

	_, err := s.pool.Exec(ctx, query, line.ID, line.UserUUID, line.EndpointName, textOrNull(string(line.Media)))
	if err != nil {
		return fmt.Errorf("update line: %w", err)
	}
	return nil
}

// AssociateEndpoint points the line at an endpoint. Setting the same
// endpoint twice leaves the row identical, so redelivered events are
// harmless.
func (s *LineStore) AssociateEndpoint(ctx context.Context, lineID int, endpointName string) error {
	query := `
		UPDATE chatd_line
		SET endpoint_name = $2
		WHERE id = $1`

	_, err := s.pool.Exec(ctx, query, lineID, endpointName)
	if err != nil {
		return fmt.Errorf("associate endpoint: %w", err)
	}
	return nil
}

func (s *LineStore) DissociateEndpoint(ctx context.Context, lineID int) error {
	query := `
		UPDATE chatd_line
		SET endpoint_name = NULL
		WHERE id = $1`

	_, err := s.pool.Exec(ctx, query, lineID)
	if err != nil {
		return fmt.Errorf("dissociate endpoint: %w", err)
	}
	return nil
}

// linesByUser loads a user's line collection, shared with UserStore.
func linesByUser(ctx context.Context, q querier, userUUID uuid.UUID) ([]models.Line, error) {
	query := lineColumns + `
	WHERE l.user_uuid = $1`

	rows, err := q.Query(ctx, query, userUUID)
	if err != nil {
		return nil, fmt.Errorf("list user lines: %w", err)
	}
	return scanLines(rows)
}

func scanLine(row pgx.Row) (*models.Line, error) {
	var line models.Line
	var media, state string
	if err := row.Scan(
		&line.ID, &line.UserUUID, &line.EndpointName,
		&media, &line.TenantUUID, &state,
	); err != nil {
		return nil, err
	}
	line.Media = models.LineMedia(media)
	line.State = models.EndpointState(state)
	return &line, nil
}

func scanLines(rows pgx.Rows) ([]models.Line, error) {
	defer rows.Close()

	lines := make([]models.Line, 0)
	for rows.Next() {
		line, err := scanLine(rows)
		if err != nil {
			return nil, fmt.Errorf("scan line: %w", err)
		}
		lines = append(lines, *line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lines: %w", err)
	}

	return lines, nil
}
