package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MehdiEmrani/wazo-chatd/internal/models"
)

type TenantStore struct {
	pool *pgxpool.Pool
}

func NewTenantStore(pool *pgxpool.Pool) *TenantStore {
	return &TenantStore{pool: pool}
}

// Create inserts a tenant row. ON CONFLICT DO NOTHING: tenant
// provisioning events are redelivered, and re-creating an existing
// tenant must be a no-op rather than a constraint violation.
func (s *TenantStore) Create(ctx context.Context, tenant *models.Tenant) (*models.Tenant, error) {
	query := `
		INSERT INTO chatd_tenant (uuid)
		VALUES ($1)
		ON CONFLICT (uuid) DO NOTHING`

	_, err := s.pool.Exec(ctx, query, tenant.UUID)
	if err != nil {
		return nil, fmt.Errorf("insert tenant: %w", err)
	}
	return tenant, nil
}

func (s *TenantStore) Find(ctx context.Context, tenantUUID uuid.UUID) (*models.Tenant, error) {
	query := `
		SELECT uuid
		FROM chatd_tenant
		WHERE uuid = $1`

	var t models.Tenant
	err := s.pool.QueryRow(ctx, query, tenantUUID).Scan(&t.UUID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find tenant: %w", err)
	}
	return &t, nil
}

func (s *TenantStore) List(ctx context.Context) ([]models.Tenant, error) {
	query := `
		SELECT uuid
		FROM chatd_tenant`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	defer rows.Close()

	tenants := make([]models.Tenant, 0)
	for rows.Next() {
		var t models.Tenant
		if err := rows.Scan(&t.UUID); err != nil {
			return nil, fmt.Errorf("scan tenant: %w", err)
		}
		tenants = append(tenants, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tenants: %w", err)
	}

	return tenants, nil
}

// Delete removes the tenant. The foreign keys cascade the delete to the
// tenant's users and through them to sessions and lines, all inside the
// single implicit transaction of the statement.
func (s *TenantStore) Delete(ctx context.Context, tenantUUID uuid.UUID) error {
	query := `
		DELETE FROM chatd_tenant
		WHERE uuid = $1`

	_, err := s.pool.Exec(ctx, query, tenantUUID)
	if err != nil {
		return fmt.Errorf("delete tenant: %w", err)
	}
	return nil
}
