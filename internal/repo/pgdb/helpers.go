package pgdb

import "strings"

func joinColumns(columns []string) string {
	return strings.Join(columns, ", ")
}
