package dsutil

import (
	"regexp"
	"strings"
)

var rawSQLPrefix = regexp.MustCompile(`(?i)^\s*(SELECT|WITH|EXEC|EXECUTE|INSERT|UPDATE|DELETE)\b`)

// IsRawSQL reports whether query is raw SQL text rather than a bare
// procedure/package name, per §4.3.1's prefix detection.
func IsRawSQL(query string) bool {
	return rawSQLPrefix.MatchString(query)
}

// IsPackageQualified reports whether query names a package-qualified
// procedure ("pkg.proc"), per §4.3.2.
func IsPackageQualified(query string) bool {
	return !IsRawSQL(query) && strings.Contains(query, ".")
}
