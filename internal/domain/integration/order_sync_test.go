package integration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func esimProperty(value string) LineItemProperty {
	return LineItemProperty{Name: EsimLineItemProperty, Value: value}
}

func TestOrder_FindEsimLineItem(t *testing.T) {
	tests := []struct {
		name       string
		items      []OrderLineItem
		expectedID int64
		found      bool
	}{
		{
			name: "selects the single esim item among many",
			items: []OrderLineItem{
				{ID: 1, Properties: []LineItemProperty{{Name: "gift_wrap", Value: "yes"}}},
				{ID: 2, Properties: []LineItemProperty{esimProperty("P1")}},
				{ID: 3},
			},
			expectedID: 2,
			found:      true,
		},
		{
			name:  "no esim items",
			items: []OrderLineItem{{ID: 1}, {ID: 2, Properties: []LineItemProperty{{Name: "note", Value: "x"}}}},
			found: false,
		},
		{
			name:  "empty property value is not selected",
			items: []OrderLineItem{{ID: 1, Properties: []LineItemProperty{esimProperty("")}}},
			found: false,
		},
		{
			name: "first non-empty wins",
			items: []OrderLineItem{
				{ID: 1, Properties: []LineItemProperty{esimProperty("")}},
				{ID: 2, Properties: []LineItemProperty{esimProperty("P2")}},
				{ID: 3, Properties: []LineItemProperty{esimProperty("P3")}},
			},
			expectedID: 2,
			found:      true,
		},
		{
			name:  "blank property value is not selected",
			items: []OrderLineItem{{ID: 1, Properties: []LineItemProperty{esimProperty("  \t")}}},
			found: false,
		},
		{
			name: "blank value skipped for a later esim item",
			items: []OrderLineItem{
				{ID: 1, Properties: []LineItemProperty{esimProperty(" ")}},
				{ID: 2, Properties: []LineItemProperty{esimProperty(" P9 ")}},
			},
			expectedID: 2,
			found:      true,
		},
		{
			name:  "no line items",
			found: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := &Order{ID: 100, LineItems: tt.items}
			item, ok := order.FindEsimLineItem()
			assert.Equal(t, tt.found, ok)
			if tt.found {
				require.NotNil(t, item)
				assert.Equal(t, tt.expectedID, item.ID)
			} else {
				assert.Nil(t, item)
			}
		})
	}
}

func TestOrderLineItem_ProviderSKU(t *testing.T) {
	item := OrderLineItem{Properties: []LineItemProperty{esimProperty(""), esimProperty("P7")}}
	assert.Equal(t, "P7", item.ProviderSKU())

	padded := OrderLineItem{Properties: []LineItemProperty{esimProperty(" P8 ")}}
	assert.Equal(t, "P8", padded.ProviderSKU())
	assert.True(t, item.IsEsim())
	assert.False(t, OrderLineItem{Properties: []LineItemProperty{esimProperty("")}}.IsEsim())

	assert.Equal(t, "", OrderLineItem{}.ProviderSKU())
}

func TestOrder_FindFulfillmentOrder(t *testing.T) {
	order := &Order{
		ID: 100,
		FulfillmentOrders: []FulfillmentOrder{
			{ID: 10, AssignedLocation: AssignedLocation{LocationID: 1}, LineItems: []FulfillmentOrderLineItem{{ID: 5}}},
			{ID: 11, AssignedLocation: AssignedLocation{LocationID: 2}, LineItems: []FulfillmentOrderLineItem{{ID: 900, LineItemID: 7}}},
			{ID: 12, AssignedLocation: AssignedLocation{LocationID: 3}, LineItems: []FulfillmentOrderLineItem{{ID: 8}}},
		},
	}

	t.Run("matches by line item id", func(t *testing.T) {
		fo, line, ok := order.FindFulfillmentOrder(8)
		require.True(t, ok)
		assert.Equal(t, int64(12), fo.ID)
		assert.Equal(t, int64(8), line.ID)
	})

	t.Run("matches by explicit line_item_id reference", func(t *testing.T) {
		fo, line, ok := order.FindFulfillmentOrder(7)
		require.True(t, ok)
		assert.Equal(t, int64(11), fo.ID)
		assert.Equal(t, int64(900), line.ID)
	})

	t.Run("explicit reference shadows the line id", func(t *testing.T) {
		_, _, ok := order.FindFulfillmentOrder(900)
		assert.False(t, ok)
	})

	t.Run("no match", func(t *testing.T) {
		fo, line, ok := order.FindFulfillmentOrder(42)
		assert.False(t, ok)
		assert.Nil(t, fo)
		assert.Nil(t, line)
	})
}

func TestOrder_Validate(t *testing.T) {
	assert.NoError(t, (&Order{ID: 1}).Validate())
	assert.ErrorIs(t, (&Order{}).Validate(), ErrOrderInvalid)

	var nilOrder *Order
	assert.ErrorIs(t, nilOrder.Validate(), ErrOrderInvalid)
}

func TestNewActivationRequest(t *testing.T) {
	order := &Order{ID: 100, Email: "buyer@example.com", Customer: Customer{ID: 55}}
	item := &OrderLineItem{ID: 2, Properties: []LineItemProperty{esimProperty("P1")}}

	req := NewActivationRequest(order, item)

	assert.Equal(t, ActivationRequest{
		ProductSKU:    "P1",
		CustomerEmail: "buyer@example.com",
		CustomerID:    55,
		ReferenceID:   100,
	}, req)
}

func TestNewFulfillmentRequest(t *testing.T) {
	order := &Order{ID: 100}
	fo := &FulfillmentOrder{ID: 10, AssignedLocation: AssignedLocation{LocationID: 77}}
	foLine := &FulfillmentOrderLineItem{ID: 2}
	item := &OrderLineItem{ID: 2, Quantity: 3}
	activation := &EsimActivation{QRCodeImageURL: "https://x/q.png", ActivationCode: "ABC123"}

	req := NewFulfillmentRequest(order, fo, foLine, item, activation)

	assert.Equal(t, int64(100), req.OrderID)
	assert.Equal(t, int64(10), req.FulfillmentOrderID)
	assert.Equal(t, int64(77), req.LocationID)
	assert.Equal(t, []FulfillmentLine{{ID: 2, Quantity: 3}}, req.Lines)
	assert.True(t, req.NotifyCustomer)
	assert.Equal(t, "Your eSIM QR Code: https://x/q.png\nActivation Code: ABC123", req.Message)
}
