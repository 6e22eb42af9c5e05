package address

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"customer-address-manager/internal/db"
	"customer-address-manager/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const addressColumns = `a.id, a.customer_id, a.address_line1, COALESCE(a.address_line2, ''), a.city, a.state,
       a.pin_code, a.country, a.is_primary, a.created_at, a.updated_at`

const ownerColumns = `c.first_name, c.last_name, c.phone_number, COALESCE(c.email, '')`

var sortColumns = map[string]string{
	"city":       "a.city",
	"state":      "a.state",
	"created_at": "a.created_at",
}

type postgresRepo struct {
	q      db.Querier
	logger *log.Logger
}

// NewPostgres returns a Repository backed by Postgres. q may be the pool or
// an open transaction.
func NewPostgres(q db.Querier, logger *log.Logger) Repository {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &postgresRepo{q: q, logger: logger}
}

func (r *postgresRepo) Create(ctx context.Context, a domain.Address) (*domain.Address, error) {
	const q = `
INSERT INTO addresses AS a (customer_id, address_line1, address_line2, city, state, pin_code, country, is_primary)
VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8)
RETURNING ` + addressColumns
	return r.scanAddress(r.q.QueryRow(ctx, q,
		a.CustomerID,
		a.AddressLine1,
		a.AddressLine2,
		a.City,
		a.State,
		a.PinCode,
		a.Country,
		a.IsPrimary,
	))
}

func (r *postgresRepo) GetByID(ctx context.Context, id int64) (*domain.Address, error) {
	const q = `
SELECT ` + addressColumns + `
FROM addresses a
WHERE a.id = $1
`
	return r.scanAddress(r.q.QueryRow(ctx, q, id))
}

func (r *postgresRepo) GetDetail(ctx context.Context, id int64) (*domain.AddressDetail, error) {
	const q = `
SELECT ` + addressColumns + `, ` + ownerColumns + `
FROM addresses a
JOIN customers c ON c.id = a.customer_id
WHERE a.id = $1
`
	var d domain.AddressDetail
	err := r.q.QueryRow(ctx, q, id).Scan(detailDest(&d)...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAddressNotFound
		}
		r.logger.Printf("address repo: scan detail id=%d err=%v", id, err)
		return nil, err
	}
	return &d, nil
}

func (r *postgresRepo) Update(ctx context.Context, a domain.Address) (*domain.Address, error) {
	const q = `
UPDATE addresses AS a
SET address_line1 = $2,
    address_line2 = NULLIF($3, ''),
    city = $4,
    state = $5,
    pin_code = $6,
    country = $7,
    is_primary = $8,
    updated_at = now()
WHERE a.id = $1
RETURNING ` + addressColumns
	return r.scanAddress(r.q.QueryRow(ctx, q,
		a.ID,
		a.AddressLine1,
		a.AddressLine2,
		a.City,
		a.State,
		a.PinCode,
		a.Country,
		a.IsPrimary,
	))
}

func (r *postgresRepo) Delete(ctx context.Context, id int64) error {
	cmd, err := r.q.Exec(ctx, `DELETE FROM addresses WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrAddressNotFound
	}
	return nil
}

func (r *postgresRepo) DeleteByCustomer(ctx context.Context, customerID int64) (int64, error) {
	cmd, err := r.q.Exec(ctx, `DELETE FROM addresses WHERE customer_id = $1`, customerID)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *postgresRepo) ClearPrimary(ctx context.Context, customerID, exceptID int64) error {
	const q = `
UPDATE addresses
SET is_primary = FALSE,
    updated_at = now()
WHERE customer_id = $1 AND id <> $2 AND is_primary
`
	_, err := r.q.Exec(ctx, q, customerID, exceptID)
	return err
}

func (r *postgresRepo) CountByCustomer(ctx context.Context, customerID int64) (int, error) {
	var n int
	err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM addresses WHERE customer_id = $1`, customerID).Scan(&n)
	return n, err
}

func (r *postgresRepo) ListByCustomer(ctx context.Context, customerID int64) ([]domain.Address, error) {
	const q = `
SELECT ` + addressColumns + `
FROM addresses a
WHERE a.customer_id = $1
ORDER BY a.is_primary DESC, a.created_at ASC, a.id ASC
`
	rows, err := r.q.Query(ctx, q, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Address
	for rows.Next() {
		var a domain.Address
		if err := rows.Scan(addressDest(&a)...); err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

func (r *postgresRepo) ListByCustomers(ctx context.Context, customerIDs []int64) (map[int64][]domain.Address, error) {
	out := make(map[int64][]domain.Address, len(customerIDs))
	if len(customerIDs) == 0 {
		return out, nil
	}
	const q = `
SELECT ` + addressColumns + `
FROM addresses a
WHERE a.customer_id = ANY($1)
ORDER BY a.customer_id, a.is_primary DESC, a.created_at ASC, a.id ASC
`
	rows, err := r.q.Query(ctx, q, customerIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var a domain.Address
		if err := rows.Scan(addressDest(&a)...); err != nil {
			return nil, err
		}
		out[a.CustomerID] = append(out[a.CustomerID], a)
	}
	return out, rows.Err()
}

func (r *postgresRepo) List(ctx context.Context, query domain.AddressQuery) ([]domain.AddressDetail, int, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if query.CustomerID > 0 {
		where = append(where, "a.customer_id = "+arg(query.CustomerID))
	}
	filters := []struct{ column, value string }{
		{"a.city", query.City},
		{"a.state", query.State},
		{"a.pin_code", query.PinCode},
	}
	for _, f := range filters {
		if v := strings.TrimSpace(f.value); v != "" {
			where = append(where, f.column+" ILIKE "+arg(likePattern(v)))
		}
	}

	filter := ""
	if len(where) > 0 {
		filter = "WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM addresses a `+filter, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	column, ok := sortColumns[query.Sort]
	if !ok {
		column = "a.created_at"
	}
	dir := "DESC"
	if query.Order == domain.SortAsc {
		dir = "ASC"
	}
	limit := arg(query.Limit)
	offset := arg(query.Offset())
	q := fmt.Sprintf(`
SELECT %s, %s
FROM addresses a
JOIN customers c ON c.id = a.customer_id
%s
ORDER BY %s %s, a.id %s
LIMIT %s OFFSET %s
`, addressColumns, ownerColumns, filter, column, dir, dir, limit, offset)

	rows, err := r.q.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []domain.AddressDetail
	for rows.Next() {
		var d domain.AddressDetail
		if err := rows.Scan(detailDest(&d)...); err != nil {
			r.logger.Printf("address repo: scan list err=%v", err)
			return nil, 0, err
		}
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return result, total, nil
}

func (r *postgresRepo) scanAddress(row pgx.Row) (*domain.Address, error) {
	var a domain.Address
	if err := row.Scan(addressDest(&a)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAddressNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return nil, domain.ErrCustomerNotFound
		}
		r.logger.Printf("address repo: scan error=%v", err)
		return nil, err
	}
	return &a, nil
}

func addressDest(a *domain.Address) []any {
	return []any{
		&a.ID,
		&a.CustomerID,
		&a.AddressLine1,
		&a.AddressLine2,
		&a.City,
		&a.State,
		&a.PinCode,
		&a.Country,
		&a.IsPrimary,
		&a.CreatedAt,
		&a.UpdatedAt,
	}
}

func detailDest(d *domain.AddressDetail) []any {
	return append(addressDest(&d.Address), &d.FirstName, &d.LastName, &d.PhoneNumber, &d.Email)
}

// likePattern wraps s for a substring ILIKE match, escaping wildcards.
func likePattern(s string) string {
	s = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
	return "%" + s + "%"
}
