package repository

import (
	"testing"

	"github.com/doug-martin/goqu/v9"
	"github.com/stretchr/testify/assert"
)

func TestBuildConditionsAppliesAliases(t *testing.T) {
	qb := NewQueryBuilder()
	qb.AddCondition("status", "pending")
	qb.AddCondition("urgency", "")
	qb.AddCondition("coordinator_id", 4)

	conditions := qb.BuildConditions(map[string]string{"status": "a.status"})

	assert.Equal(t, goqu.Ex{"a.status": "pending", "coordinator_id": 4}, conditions)
	assert.False(t, qb.IsEmpty())
}

func TestEmptyQueryBuilder(t *testing.T) {
	qb := NewQueryBuilder()
	qb.AddCondition("item_type", "")

	assert.True(t, qb.IsEmpty())
	assert.Empty(t, qb.BuildConditions(nil))
}
