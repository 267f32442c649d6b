package errors

import (
	stdErrors "errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// ErrorDump is the log-side view of an error: its chain plus any postgres diagnostics.
type ErrorDump struct {
	Message string
	Code    Code
	Chain   []string
	PG      *PGDetails
}

// PGDetails mirrors the server fields shared by the pgx and lib/pq drivers.
type PGDetails struct {
	Code       string
	Message    string
	Detail     string
	Table      string
	Column     string
	Constraint string
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}
	d := ErrorDump{Message: err.Error(), PG: pgDetails(err)}
	if typed := As(err); typed != nil {
		d.Code = typed.Code()
	}
	for e := err; e != nil; e = stdErrors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T", e))
	}
	return d
}

// Fields flattens the dump for structured logging, leaving out empty values.
func (d ErrorDump) Fields() map[string]any {
	f := map[string]any{"error": d.Message}
	if d.Code != "" {
		f["error_code"] = string(d.Code)
	}
	if len(d.Chain) > 1 {
		f["error_chain"] = d.Chain
	}
	if pg := d.PG; pg != nil {
		for k, v := range map[string]string{
			"pg_code":       pg.Code,
			"pg_message":    pg.Message,
			"pg_detail":     pg.Detail,
			"pg_table":      pg.Table,
			"pg_column":     pg.Column,
			"pg_constraint": pg.Constraint,
		} {
			if v != "" {
				f[k] = v
			}
		}
	}
	return f
}

func pgDetails(err error) *PGDetails {
	var pgErr *pgconn.PgError
	if stdErrors.As(err, &pgErr) {
		return &PGDetails{
			Code:       pgErr.Code,
			Message:    pgErr.Message,
			Detail:     pgErr.Detail,
			Table:      pgErr.TableName,
			Column:     pgErr.ColumnName,
			Constraint: pgErr.ConstraintName,
		}
	}
	var pqErr *pq.Error
	if stdErrors.As(err, &pqErr) {
		return &PGDetails{
			Code:       string(pqErr.Code),
			Message:    pqErr.Message,
			Detail:     pqErr.Detail,
			Table:      pqErr.Table,
			Column:     pqErr.Column,
			Constraint: pqErr.Constraint,
		}
	}
	return nil
}
