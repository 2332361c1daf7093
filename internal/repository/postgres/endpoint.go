package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MehdiEmrani/wazo-chatd/internal/models"
	"github.com/MehdiEmrani/wazo-chatd/internal/repository"
)

type EndpointStore struct {
	pool *pgxpool.Pool
}

func NewEndpointStore(pool *pgxpool.Pool) *EndpointStore {
	return &EndpointStore{pool: pool}
}

func (s *EndpointStore) Create(ctx context.Context, endpoint *models.Endpoint) (*models.Endpoint, error) {
	// An empty state falls back to the column default (unavailable).
	query := `
		INSERT INTO chatd_endpoint (name, state)
		VALUES ($1, COALESCE($2, 'unavailable'))
		RETURNING name, state`

	var e models.Endpoint
	var state string
	err := s.pool.QueryRow(ctx, query, endpoint.Name, textOrNull(string(endpoint.State))).Scan(&e.Name, &state)
	if err != nil {
		return nil, fmt.Errorf("insert endpoint: %w", err)
	}
	e.State = models.EndpointState(state)
	return &e, nil
}

func (s *EndpointStore) Update(ctx context.Context, endpoint *models.Endpoint) error {
	query := `
		UPDATE chatd_endpoint
		SET state = $2
		WHERE name = $1`

	_, err := s.pool.Exec(ctx, query, endpoint.Name, string(endpoint.State))
	if err != nil {
		return fmt.Errorf("update endpoint: %w", err)
	}
	return nil
}

// Upsert inserts the endpoint or refreshes its state in one statement.
// Telephony events are redelivered out of order; applying the same
// state twice leaves the row identical, which keeps reconciliation
// commutative without a read-modify-write race.
func (s *EndpointStore) Upsert(ctx context.Context, endpoint *models.Endpoint) error {
	query := `
		INSERT INTO chatd_endpoint (name, state)
		VALUES ($1, COALESCE($2, 'unavailable'))
		ON CONFLICT (name) DO UPDATE
		SET state = EXCLUDED.state`

	_, err := s.pool.Exec(ctx, query, endpoint.Name, textOrNull(string(endpoint.State)))
	if err != nil {
		return fmt.Errorf("upsert endpoint: %w", err)
	}
	return nil
}

func (s *EndpointStore) FindByName(ctx context.Context, name string) (*models.Endpoint, error) {
	query := `
		SELECT name, state
		FROM chatd_endpoint
		WHERE name = $1`

	var e models.Endpoint
	var state string
	err := s.pool.QueryRow(ctx, query, name).Scan(&e.Name, &state)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find endpoint: %w", err)
	}
	e.State = models.EndpointState(state)
	return &e, nil
}

func (s *EndpointStore) GetByName(ctx context.Context, name string) (*models.Endpoint, error) {
	endpoint, err := s.FindByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if endpoint == nil {
		return nil, repository.NewUnknownEndpoint(name)
	}
	return endpoint, nil
}

func (s *EndpointStore) List(ctx context.Context) ([]models.Endpoint, error) {
	query := `
		SELECT name, state
		FROM chatd_endpoint`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list endpoints: %w", err)
	}
	defer rows.Close()

	endpoints := make([]models.Endpoint, 0)
	for rows.Next() {
		var e models.Endpoint
		var state string
		if err := rows.Scan(&e.Name, &state); err != nil {
			return nil, fmt.Errorf("scan endpoint: %w", err)
		}
		e.State = models.EndpointState(state)
		endpoints = append(endpoints, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate endpoints: %w", err)
	}

	return endpoints, nil
}

// DeleteAll clears the table before a full resynchronization against
// the telephony stack. Referencing lines keep their rows; the SET NULL
// foreign key clears their endpoint_name.
func (s *EndpointStore) DeleteAll(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM chatd_endpoint`); err != nil {
		return fmt.Errorf("delete endpoints: %w", err)
	}
	return nil
}
