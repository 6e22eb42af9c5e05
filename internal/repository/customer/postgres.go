package customer

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
)

const customerColumns = `c.id, c.first_name, c.last_name, c.phone_number, COALESCE(c.email, ''),
       c.has_multiple_addresses, c.only_one_address, c.created_at, c.updated_at`

var sortColumns = map[string]string{
	"first_name":   "c.first_name",
	"last_name":    "c.last_name",
	"created_at":   "c.created_at",
	"phone_number": "c.phone_number",
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

func (r *postgresRepo) Create(ctx context.Context, c domain.Customer) (*domain.Customer, error) {
	const q = `
INSERT INTO customers AS c (first_name, last_name, phone_number, email)
VALUES ($1, $2, $3, NULLIF($4, ''))
RETURNING ` + customerColumns
	return r.scanCustomer(r.q.QueryRow(ctx, q, c.FirstName, c.LastName, c.PhoneNumber, c.Email))
}

func (r *postgresRepo) GetByID(ctx context.Context, id int64) (*domain.Customer, error) {
	const q = `
SELECT ` + customerColumns + `
FROM customers c
WHERE c.id = $1
`
	return r.scanCustomer(r.q.QueryRow(ctx, q, id))
}

func (r *postgresRepo) Lock(ctx context.Context, id int64) error {
	var locked int64
	err := r.q.QueryRow(ctx, `SELECT id FROM customers WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrCustomerNotFound
	}
	return err
}

func (r *postgresRepo) Update(ctx context.Context, c domain.Customer) (*domain.Customer, error) {
	const q = `
UPDATE customers AS c
SET first_name = $2,
    last_name = $3,
    phone_number = $4,
    email = NULLIF($5, ''),
    updated_at = now()
WHERE c.id = $1
RETURNING ` + customerColumns
	return r.scanCustomer(r.q.QueryRow(ctx, q, c.ID, c.FirstName, c.LastName, c.PhoneNumber, c.Email))
}

func (r *postgresRepo) Delete(ctx context.Context, id int64) error {
	cmd, err := r.q.Exec(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrCustomerNotFound
	}
	return nil
}

func (r *postgresRepo) PhoneTaken(ctx context.Context, phone string, excludeID int64) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM customers WHERE phone_number = $1 AND id <> $2)`
	var taken bool
	err := r.q.QueryRow(ctx, q, phone, excludeID).Scan(&taken)
	return taken, err
}

func (r *postgresRepo) EmailTaken(ctx context.Context, email string, excludeID int64) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM customers WHERE lower(email) = lower($1) AND id <> $2)`
	var taken bool
	err := r.q.QueryRow(ctx, q, email, excludeID).Scan(&taken)
	return taken, err
}

func (r *postgresRepo) SetAddressFlags(ctx context.Context, id int64, multiple, single bool) error {
	const q = `
UPDATE customers
SET has_multiple_addresses = $2,
    only_one_address = $3
WHERE id = $1
`
	cmd, err := r.q.Exec(ctx, q, id, multiple, single)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrCustomerNotFound
	}
	return nil
}

func (r *postgresRepo) List(ctx context.Context, query domain.CustomerQuery) ([]domain.Customer, int, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if s := strings.TrimSpace(query.Search); s != "" {
		p := arg(likePattern(s))
		where = append(where, fmt.Sprintf(
			"(c.first_name ILIKE %[1]s OR c.last_name ILIKE %[1]s OR (c.first_name || ' ' || c.last_name) ILIKE %[1]s OR c.phone_number ILIKE %[1]s OR c.email ILIKE %[1]s)", p))
	}
	addressFilters := []struct{ column, value string }{
		{"city", query.City},
		{"state", query.State},
		{"pin_code", query.PinCode},
	}
	for _, f := range addressFilters {
		if v := strings.TrimSpace(f.value); v != "" {
			where = append(where, fmt.Sprintf(
				"EXISTS (SELECT 1 FROM addresses a WHERE a.customer_id = c.id AND a.%s ILIKE %s)", f.column, arg(likePattern(v))))
		}
	}

	filter := ""
	if len(where) > 0 {
		filter = "WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM customers c `+filter, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	orderBy := orderClause(query.Sort, query.Order)
	limit := arg(query.Limit)
	offset := arg(query.Offset())
	q := fmt.Sprintf(`
SELECT %s
FROM customers c
%s
ORDER BY %s
LIMIT %s OFFSET %s
`, customerColumns, filter, orderBy, limit, offset)

	list, err := r.queryCustomers(ctx, q, false, args...)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *postgresRepo) ListByAddressCount(ctx context.Context, f CountFilter) ([]domain.Customer, error) {
	having, orderBy := "COUNT(a.id) > 1", "address_count DESC, c.id ASC"
	if f == SingleAddress {
		having, orderBy = "COUNT(a.id) = 1", "c.created_at DESC, c.id DESC"
	}
	q := fmt.Sprintf(`
SELECT %s, COUNT(a.id) AS address_count
FROM customers c
JOIN addresses a ON a.customer_id = c.id
GROUP BY c.id
HAVING %s
ORDER BY %s
`, customerColumns, having, orderBy)
	return r.queryCustomers(ctx, q, true)
}

func (r *postgresRepo) ListIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.q.Query(ctx, `SELECT id FROM customers ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *postgresRepo) Stats(ctx context.Context) (domain.Stats, error) {
	const q = `
SELECT
    (SELECT COUNT(*) FROM customers),
    (SELECT COUNT(*) FROM addresses),
    (SELECT COUNT(*) FROM (SELECT customer_id FROM addresses GROUP BY customer_id HAVING COUNT(*) > 1) m),
    (SELECT COUNT(*) FROM (SELECT customer_id FROM addresses GROUP BY customer_id HAVING COUNT(*) = 1) s),
    (SELECT COUNT(*) FROM customers c WHERE NOT EXISTS (SELECT 1 FROM addresses a WHERE a.customer_id = c.id))
`
	var s domain.Stats
	err := r.q.QueryRow(ctx, q).Scan(
		&s.TotalCustomers,
		&s.TotalAddresses,
		&s.CustomersWithMultiple,
		&s.CustomersWithSingle,
		&s.CustomersWithoutAddress,
	)
	return s, err
}

func (r *postgresRepo) queryCustomers(ctx context.Context, q string, withCount bool, args ...any) ([]domain.Customer, error) {
	rows, err := r.q.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Customer
	for rows.Next() {
		var c domain.Customer
		dest := []any{
			&c.ID,
			&c.FirstName,
			&c.LastName,
			&c.PhoneNumber,
			&c.Email,
			&c.HasMultipleAddresses,
			&c.OnlyOneAddress,
			&c.CreatedAt,
			&c.UpdatedAt,
		}
		var count int
		if withCount {
			dest = append(dest, &count)
		}
		if err := rows.Scan(dest...); err != nil {
			r.logger.Printf("customer repo: scan error=%v", err)
			return nil, err
		}
		if withCount {
			c.AddressCount = &count
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *postgresRepo) scanCustomer(row pgx.Row) (*domain.Customer, error) {
	var c domain.Customer
	err := row.Scan(
		&c.ID,
		&c.FirstName,
		&c.LastName,
		&c.PhoneNumber,
		&c.Email,
		&c.HasMultipleAddresses,
		&c.OnlyOneAddress,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCustomerNotFound
		}
		if constraint, ok := db.IsUniqueViolation(err); ok {
			return nil, duplicateError(constraint)
		}
		r.logger.Printf("customer repo: scan error=%v", err)
		return nil, err
	}
	return &c, nil
}

func duplicateError(constraint string) error {
	switch constraint {
	case "customers_phone_number_key":
		return domain.ErrDuplicatePhone
	case "customers_email_key":
		return domain.ErrDuplicateEmail
	default:
		return domain.ErrAlreadyExists
	}
}

func orderClause(sort string, order domain.SortOrder) string {
	column, ok := sortColumns[sort]
	if !ok {
		column = "c.created_at"
	}
	dir := "DESC"
	if order == domain.SortAsc {
		dir = "ASC"
	}
	return column + " " + dir + ", c.id " + dir
}

// likePattern wraps s for a substring ILIKE match, escaping wildcards.
func likePattern(s string) string {
	s = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
	return "%" + s + "%"
}
