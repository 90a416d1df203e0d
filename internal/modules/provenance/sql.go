package provenance

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/georgemunganga/traceability-backend/internal/modules/identity"
)

// sqlRepo stores each product as a JSON document keyed by id. The seq column
// keeps creation order.
type sqlRepo struct {
	db        *sqlx.DB
	forUpdate string
}

// NewSQLRepository returns a repository over a migrated postgres or sqlite
// database.
func NewSQLRepository(db *sqlx.DB) Repository {
	r := &sqlRepo{db: db}
	if db.DriverName() == "postgres" {
		r.forUpdate = " FOR UPDATE"
	}
	return r
}

type productRow struct {
	ID           string `db:"id"`
	Manufacturer string `db:"manufacturer"`
	Payload      []byte `db:"payload"`
}

func (row productRow) decode() (*Product, error) {
	p := &Product{}
	if err := json.Unmarshal(row.Payload, p); err != nil {
		return nil, errors.Wrapf(err, "decode product %s", row.ID)
	}
	return p, nil
}

func (r *sqlRepo) Create(ctx context.Context, p *Product) (retErr error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return errors.Wrap(err, "encode product")
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	var n int
	if err := tx.GetContext(ctx, &n, r.db.Rebind(`SELECT COUNT(*) FROM products WHERE id = ?`), p.ID); err != nil {
		return errors.Wrap(err, "check product id")
	}
	if n > 0 {
		return ErrDuplicateID
	}
	if _, err := tx.ExecContext(ctx, r.db.Rebind(
		`INSERT INTO products (id, manufacturer, payload) VALUES (?, ?, ?)`),
		p.ID, string(p.Manufacturer), string(payload)); err != nil {
		return errors.Wrap(err, "insert product")
	}
	return errors.Wrap(tx.Commit(), "commit")
}

func (r *sqlRepo) GetByID(ctx context.Context, id string) (*Product, error) {
	var row productRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(
		`SELECT id, manufacturer, payload FROM products WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "select product")
	}
	return row.decode()
}

func (r *sqlRepo) List(ctx context.Context) ([]*Product, error) {
	return r.list(ctx, `SELECT id, manufacturer, payload FROM products ORDER BY seq`)
}

func (r *sqlRepo) ListByManufacturer(ctx context.Context, m identity.Principal) ([]*Product, error) {
	return r.list(ctx, r.db.Rebind(
		`SELECT id, manufacturer, payload FROM products WHERE manufacturer = ? ORDER BY seq`), string(m))
}

func (r *sqlRepo) list(ctx context.Context, query string, args ...any) ([]*Product, error) {
	var rows []productRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "select products")
	}
	products := make([]*Product, 0, len(rows))
	for _, row := range rows {
		p, err := row.decode()
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, nil
}

func (r *sqlRepo) Update(ctx context.Context, id string, fn func(p *Product) error) (_ *Product, retErr error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "begin")
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()

	var row productRow
	err = tx.GetContext(ctx, &row, r.db.Rebind(
		`SELECT id, manufacturer, payload FROM products WHERE id = ?`+r.forUpdate), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "select product")
	}
	p, err := row.decode()
	if err != nil {
		return nil, err
	}
	if err := fn(p); err != nil {
		return nil, err
	}
	p.ID = row.ID

	payload, err := json.Marshal(p)
	if err != nil {
		return nil, errors.Wrap(err, "encode product")
	}
	if _, err := tx.ExecContext(ctx, r.db.Rebind(
		`UPDATE products SET manufacturer = ?, payload = ? WHERE id = ?`),
		string(p.Manufacturer), string(payload), id); err != nil {
		return nil, errors.Wrap(err, "update product")
	}
	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "commit")
	}
	return p, nil
}

func (r *sqlRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM products`); err != nil {
		return 0, errors.Wrap(err, "count products")
	}
	return n, nil
}
