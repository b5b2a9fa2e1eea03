package persistence

import "strings"

// sortColumns maps the sort keys a listing accepts to table columns
type sortColumns map[string]string

// transactionSort is the sort whitelist for a unit's transaction history
var transactionSort = sortColumns{
	"created_at": "created_at",
	"updated_at": "updated_at",
	"paid_at":    "paid_at",
	"amount":     "amount",
	"method":     "payment_method",
}

// orderDirection returns ASC for "asc" in any case and DESC for everything else
func orderDirection(dir string) string {
	if strings.EqualFold(strings.TrimSpace(dir), "asc") {
		return "ASC"
	}
	return "DESC"
}

// column resolves key to a whitelisted column, falling back to def
func (s sortColumns) column(key, def string) string {
	if col, ok := s[strings.TrimSpace(key)]; ok {
		return col
	}
	return def
}

// orderBy builds the ORDER BY terms for a listing. Ties break on id in the same
// direction so pages stay stable.
func (s sortColumns) orderBy(key, dir, def string) []string {
	d := orderDirection(dir)
	return []string{s.column(key, def) + " " + d, "id " + d}
}
