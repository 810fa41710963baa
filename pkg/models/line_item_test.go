package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineItemDecodesByItemType(t *testing.T) {
	payload := `[
		{"itemType": "money", "amount": 500, "purpose": "nutrition"},
		{"itemType": "books", "itemName": "Picture books", "quantity": 10, "priority": "high"},
		{"itemType": "toys", "itemName": "Blocks"},
		{"itemType": "clothes", "amount": 40}
	]`

	var items LineItems
	require.NoError(t, json.Unmarshal([]byte(payload), &items))
	require.Len(t, items, 4)

	money := items[0]
	assert.Equal(t, LineItemMoney, money.Kind)
	require.NotNil(t, money.Money)
	assert.Nil(t, money.Goods)
	assert.True(t, money.Money.Amount.Equal(decimal.NewFromInt(500)))
	assert.Equal(t, PriorityMedium, money.Priority)
	assert.True(t, money.Allocatable())

	books := items[1]
	assert.Equal(t, LineItemGoods, books.Kind)
	require.NotNil(t, books.Goods)
	assert.Nil(t, books.Money)
	assert.Equal(t, 10, books.Goods.Quantity)
	assert.Equal(t, PriorityHigh, books.Priority)
	assert.True(t, books.Allocatable())

	assert.False(t, items[2].Allocatable(), "goods line without quantity")
	assert.False(t, items[3].Allocatable(), "non-money line carrying only an amount")
}

func TestLineItemEncodesFlatDocument(t *testing.T) {
	raw, err := json.Marshal(NewGoodsLine(ItemFood, "Rice", 25))
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "food", doc["itemType"])
	assert.Equal(t, "Rice", doc["itemName"])
	assert.EqualValues(t, 25, doc["quantity"])
	assert.NotContains(t, doc, "amount")
}

func TestFulfilledItemKeepsTracking(t *testing.T) {
	payload := `{"itemType": "stationary", "quantity": 3, "trackingNumber": "TRK-1", "fulfillmentDate": "2026-01-02T00:00:00Z"}`

	var item FulfilledItem
	require.NoError(t, json.Unmarshal([]byte(payload), &item))
	assert.Equal(t, LineItemGoods, item.Kind)
	assert.Equal(t, "TRK-1", item.TrackingNumber)
	require.NotNil(t, item.FulfillmentDate)

	raw, err := json.Marshal(item)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"trackingNumber":"TRK-1"`)
}

func TestLineItemsScanNull(t *testing.T) {
	var items LineItems
	require.NoError(t, items.Scan(nil))
	assert.Nil(t, items)

	require.NoError(t, items.Scan([]byte(`[{"itemType":"money","amount":"12.50"}]`)))
	require.Len(t, items, 1)
	assert.True(t, items[0].Money.Amount.Equal(decimal.RequireFromString("12.50")))
}
