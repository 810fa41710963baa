package repository

import (
	"github.com/doug-martin/goqu/v9"
)

type queryBuilderImpl struct {
	conditions map[string]any
}

func NewQueryBuilder() QueryBuilder {
	return &queryBuilderImpl{
		conditions: make(map[string]any),
	}
}

// AddCondition ignores empty strings so callers can pass raw query values.
func (q *queryBuilderImpl) AddCondition(key string, value any) {
	if s, ok := value.(string); ok && s == "" {
		return
	}
	q.conditions[key] = value
}

func (q *queryBuilderImpl) IsEmpty() bool {
	return len(q.conditions) == 0
}

func (q *queryBuilderImpl) BuildConditions(aliases map[string]string) goqu.Ex {
	conditions := goqu.Ex{}
	for key, value := range q.conditions {
		if alias, ok := aliases[key]; ok {
			conditions[alias] = value
		} else {
			conditions[key] = value
		}
	}
	return conditions
}
