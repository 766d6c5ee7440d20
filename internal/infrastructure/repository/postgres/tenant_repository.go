package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/arcadeops/manual-search/internal/core/domain"
)

type TenantRepository struct {
	db *sql.DB
}

func NewTenantRepository(db *sql.DB) *TenantRepository {
	return &TenantRepository{db: db}
}

func (r *TenantRepository) ResolveToken(ctx context.Context, token string) (*domain.Tenant, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT t.id, t.name
FROM api_tokens k
JOIN tenants t ON t.id = k.tenant_id
WHERE k.token = $1
`, token)

	var tenant domain.Tenant
	if err := row.Scan(&tenant.ID, &tenant.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrUnauthorized, "resolve token", errors.New("unknown api token"))
		}
		return nil, fmt.Errorf("scan tenant: %w", err)
	}
	return &tenant, nil
}
