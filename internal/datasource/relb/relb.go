// Package relb implements the C3 output-cursor family driver (§4.3.2),
// backed by PostgreSQL's native refcursor OUT-parameter support.
package relb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/leapstack-labs/ingestiond/internal/datasource/dsutil"
	"github.com/leapstack-labs/ingestiond/internal/model"
)

const (
	defaultCommandTimeout = 600 * time.Second
	cursorParamName       = "p_cursor"
)

// Driver is the relB (output-cursor family) extraction driver.
type Driver struct{}

// New builds a relB driver. Connections are opened per Extract call using
// the connectionString that call provides.
func New() *Driver { return &Driver{} }

// Extract runs query against connectionString. A plain SELECT/WITH/...
// statement streams rows directly; anything else is a (possibly
// package-qualified) stored procedure invoked with a trailing p_cursor
// refcursor OUT parameter that is FETCHed inside the same transaction
// (§4.3.2).
func (d *Driver) Extract(ctx context.Context, connectionString, query string, parameters model.ParameterList, commandTimeoutSec int) (*model.TabularData, error) {
	timeout := defaultCommandTimeout
	if commandTimeoutSec > 0 {
		timeout = time.Duration(commandTimeoutSec) * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, err := pgx.Connect(ctx, connectionString)
	if err != nil {
		return nil, fmt.Errorf("%w: opening connection: %v", model.ErrExtraction, err)
	}
	defer conn.Close(ctx)

	if dsutil.IsRawSQL(query) {
		return d.extractRaw(ctx, conn, query, parameters)
	}
	return d.extractCursor(ctx, conn, query, parameters)
}

func (d *Driver) extractRaw(ctx context.Context, conn *pgx.Conn, query string, parameters model.ParameterList) (*model.TabularData, error) {
	stmt, args := bindNamed(query, parameters)
	rows, err := conn.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: executing %q: %v", model.ErrExtraction, stmt, err)
	}
	defer rows.Close()

	table, err := scanPgxRows(rows)
	if err != nil {
		return nil, fmt.Errorf("%w: reading result set: %v", model.ErrExtraction, err)
	}
	return table, nil
}

func (d *Driver) extractCursor(ctx context.Context, conn *pgx.Conn, query string, parameters model.ParameterList) (*model.TabularData, error) {
	tx, err := conn.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: starting transaction: %v", model.ErrExtraction, err)
	}
	defer tx.Rollback(ctx)

	// Package-qualified procedures are already schema.function in Postgres,
	// so the query is used as the function name unchanged; the call site
	// has already routed raw SQL (dsutil.IsRawSQL) to extractRaw instead.
	proc := query

	cursorName := fmt.Sprintf("cur_%s", randomSuffix())
	placeholders, args := cursorCallArgs(parameters, cursorName)

	call := fmt.Sprintf("SELECT %s(%s)", proc, strings.Join(placeholders, ", "))
	if _, err := tx.Exec(ctx, call); err != nil {
		return nil, fmt.Errorf("%w: calling %q: %v", model.ErrExtraction, proc, err)
	}

	rows, err := tx.Query(ctx, fmt.Sprintf(`FETCH ALL FROM "%s"`, cursorName))
	if err != nil {
		return nil, fmt.Errorf("%w: fetching cursor %q: %v", model.ErrExtraction, cursorName, err)
	}
	table, err := scanPgxRows(rows)
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("%w: reading cursor result: %v", model.ErrExtraction, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("%w: committing: %v", model.ErrExtraction, err)
	}
	return table, nil
}

// cursorCallArgs builds the "$n" placeholder list and positional
// arguments for a cursor-style procedure call, in parameters' own
// declared order followed by the trailing cursor name (§4.3.2 "added in
// the dictionary's iteration order") — never re-sorted, since
// ParameterList already carries the dataset file's declaration order.
func cursorCallArgs(parameters model.ParameterList, cursorName string) ([]string, []any) {
	placeholders := make([]string, 0, len(parameters)+1)
	args := make([]any, 0, len(parameters)+1)
	for _, param := range parameters {
		if strings.EqualFold(param.Name, cursorParamName) {
			continue
		}
		args = append(args, dsutil.CoerceJSONScalar(param.Value))
		placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
	}
	args = append(args, cursorName)
	placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
	return placeholders, args
}

// bindNamed replaces ":name" tokens in raw SQL text with "$n" placeholders,
// tolerating a leading colon per §4.3.2.
func bindNamed(query string, parameters model.ParameterList) (string, []any) {
	var args []any
	var b strings.Builder
	i := 0
	for i < len(query) {
		if query[i] == ':' {
			j := i + 1
			for j < len(query) && isIdentChar(query[j]) {
				j++
			}
			name := query[i+1 : j]
			if value, ok := parameters.Get(name); ok {
				args = append(args, dsutil.CoerceJSONScalar(value))
				fmt.Fprintf(&b, "$%d", len(args))
				i = j
				continue
			}
		}
		b.WriteByte(query[i])
		i++
	}
	return b.String(), args
}

func isIdentChar(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
