package repository

import "github.com/doug-martin/goqu/v9"

// QueryBuilder collects optional equality filters coming from query strings.
type QueryBuilder interface {
	AddCondition(key string, value any)
	BuildConditions(aliases map[string]string) goqu.Ex
	IsEmpty() bool
}
