package coding

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chartdesk/chartdesk/internal/platform/db"
)

// LookupPG resolves codes against the reference_code table in the workspace
// schema. Matching is case-insensitive exact on display text first, then a
// prefix match as a fallback.
type LookupPG struct {
	pool *pgxpool.Pool
}

func NewLookupPG(pool *pgxpool.Pool) *LookupPG {
	return &LookupPG{pool: pool}
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func (r *LookupPG) conn(ctx context.Context) rowQuerier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

func (r *LookupPG) LookupCode(ctx context.Context, text, system string) (*Code, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrNoMatch
	}
	q := r.conn(ctx)

	var c Code
	err := q.QueryRow(ctx, `
		SELECT code, display, system FROM reference_code
		WHERE system = $1 AND LOWER(display) = LOWER($2)
		LIMIT 1`, system, text).Scan(&c.Code, &c.Display, &c.System)
	if err == nil {
		c.Confidence = 1.0
		return &c, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	err = q.QueryRow(ctx, `
		SELECT code, display, system FROM reference_code
		WHERE system = $1 AND LOWER(display) LIKE LOWER($2) || '%'
		ORDER BY LENGTH(display) ASC
		LIMIT 1`, system, text).Scan(&c.Code, &c.Display, &c.System)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoMatch
		}
		return nil, err
	}
	c.Confidence = 0.7
	return &c, nil
}
