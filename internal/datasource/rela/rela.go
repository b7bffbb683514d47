// Package rela implements the C3 stored-procedure family driver (§4.3.1),
// backed by MySQL.
package rela

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/leapstack-labs/ingestiond/internal/datasource/dsutil"
	"github.com/leapstack-labs/ingestiond/internal/model"
)

// defaultCommandTimeout is 300s: relA is not a cursor-style driver, so it
// takes the "otherwise" branch of §5's command-timeout default.
const defaultCommandTimeout = 300 * time.Second

// Driver is the relA (stored-procedure family) extraction driver.
type Driver struct{}

// New builds a relA driver. Connections are opened per Extract call using
// the connectionString that call provides.
func New() *Driver { return &Driver{} }

// Extract runs query (a stored-procedure name, or raw SQL text per
// §4.3.1's prefix detection) against connectionString.
func (d *Driver) Extract(ctx context.Context, connectionString, query string, parameters model.ParameterList, commandTimeoutSec int) (*model.TabularData, error) {
	timeout := defaultCommandTimeout
	if commandTimeoutSec > 0 {
		timeout = time.Duration(commandTimeoutSec) * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	db, err := sql.Open("mysql", connectionString)
	if err != nil {
		return nil, fmt.Errorf("%w: opening connection: %v", model.ErrExtraction, err)
	}
	defer db.Close()

	stmt, args, err := buildStatement(ctx, db, query, parameters)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: executing %q: %v", model.ErrExtraction, stmt, err)
	}
	defer rows.Close()

	table, err := dsutil.ScanRows(rows)
	if err != nil {
		return nil, fmt.Errorf("%w: reading result set: %v", model.ErrExtraction, err)
	}
	return table, nil
}

// buildStatement turns query + parameters into a runnable statement and
// its positional argument list. For a procedure call, "bound by name"
// (§4.3.1) can only mean binding against the procedure's own declared
// parameter order — go-sql-driver/mysql's CALL has no true named binding,
// and the dataset file's parameter order is incidental, not authoritative
// — so the declared order is resolved from INFORMATION_SCHEMA.PARAMETERS
// before any placeholders are built.
func buildStatement(ctx context.Context, db *sql.DB, query string, parameters model.ParameterList) (string, []any, error) {
	if dsutil.IsRawSQL(query) {
		stmt, args := bindNamed(query, parameters)
		return stmt, args, nil
	}

	order, err := declaredParameterOrder(ctx, db, query)
	if err != nil {
		return "", nil, err
	}
	if len(order) == 0 && len(parameters) > 0 {
		return "", nil, fmt.Errorf("%w: procedure %q declares no parameters in INFORMATION_SCHEMA but %d were supplied", model.ErrConfig, query, len(parameters))
	}
	declared := make(map[string]struct{}, len(order))
	for _, name := range order {
		declared[name] = struct{}{}
	}
	for _, param := range parameters {
		if _, ok := declared[param.Name]; !ok {
			return "", nil, fmt.Errorf("%w: parameter %q is not declared by procedure %q", model.ErrConfig, param.Name, query)
		}
	}

	placeholders := strings.Repeat("?,", len(order))
	placeholders = strings.TrimSuffix(placeholders, ",")
	stmt := fmt.Sprintf("CALL %s(%s)", query, placeholders)

	args := make([]any, 0, len(order))
	for _, name := range order {
		value, _ := parameters.Get(name)
		args = append(args, dsutil.CoerceJSONScalar(value))
	}
	return stmt, args, nil
}

// declaredParameterOrder resolves procedure's IN parameter names, in
// their declared ordinal position, via INFORMATION_SCHEMA.PARAMETERS.
// procedure may be schema-qualified ("schema.proc") or bare, in which
// case the connection's current database is used.
func declaredParameterOrder(ctx context.Context, db *sql.DB, procedure string) ([]string, error) {
	schema, name := splitProcedure(procedure)

	var rows *sql.Rows
	var err error
	if schema != "" {
		rows, err = db.QueryContext(ctx, `
			SELECT PARAMETER_NAME FROM INFORMATION_SCHEMA.PARAMETERS
			WHERE SPECIFIC_SCHEMA = ? AND SPECIFIC_NAME = ? AND ROUTINE_TYPE = 'PROCEDURE'
			  AND PARAMETER_NAME IS NOT NULL
			ORDER BY ORDINAL_POSITION`, schema, name)
	} else {
		rows, err = db.QueryContext(ctx, `
			SELECT PARAMETER_NAME FROM INFORMATION_SCHEMA.PARAMETERS
			WHERE SPECIFIC_SCHEMA = DATABASE() AND SPECIFIC_NAME = ? AND ROUTINE_TYPE = 'PROCEDURE'
			  AND PARAMETER_NAME IS NOT NULL
			ORDER BY ORDINAL_POSITION`, name)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: resolving declared parameter order for %q: %v", model.ErrExtraction, procedure, err)
	}
	defer rows.Close()

	var order []string
	for rows.Next() {
		var paramName string
		if err := rows.Scan(&paramName); err != nil {
			return nil, fmt.Errorf("%w: scanning declared parameter name: %v", model.ErrExtraction, err)
		}
		order = append(order, strings.TrimPrefix(paramName, "@"))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading declared parameter rows: %v", model.ErrExtraction, err)
	}
	return order, nil
}

func splitProcedure(procedure string) (schema, name string) {
	if i := strings.Index(procedure, "."); i >= 0 {
		return procedure[:i], procedure[i+1:]
	}
	return "", procedure
}

// bindNamed replaces ":name" tokens in raw SQL text with "?" placeholders
// and returns the matching positional argument slice, tolerating a
// leading colon per §4.3.2.
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
				b.WriteByte('?')
				args = append(args, dsutil.CoerceJSONScalar(value))
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
