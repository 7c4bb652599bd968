package integration

import (
	"fmt"
	"strings"
)

// EsimLineItemProperty is the line item property carrying the provider SKU
const EsimLineItemProperty = "maya.maya_product_id"

// ---------------------------------------------------------------------------
// Order payload
// ---------------------------------------------------------------------------

// Customer identifies the buyer of an order
type Customer struct {
	ID int64
}

// LineItemProperty is a name/value pair attached to a line item
type LineItemProperty struct {
	Name  string
	Value string
}

// OrderLineItem is a line of an order
type OrderLineItem struct {
	ID         int64
	Quantity   int
	Title      string
	Properties []LineItemProperty
}

// IsEsim reports whether the line item carries a non-blank provider SKU property
func (li OrderLineItem) IsEsim() bool {
	return li.ProviderSKU() != ""
}

// ProviderSKU returns the trimmed provider SKU of an eSIM line item, or ""
func (li OrderLineItem) ProviderSKU() string {
	for _, p := range li.Properties {
		if p.Name != EsimLineItemProperty {
			continue
		}
		if sku := strings.TrimSpace(p.Value); sku != "" {
			return sku
		}
	}
	return ""
}

// AssignedLocation is the location a fulfillment order is assigned to
type AssignedLocation struct {
	LocationID int64
}

// FulfillmentOrderLineItem references an order line item from a fulfillment order
type FulfillmentOrderLineItem struct {
	// ID is the fulfillment order line item id
	ID int64
	// LineItemID is the order line item id (zero when the payload omits it)
	LineItemID int64
	Quantity   int
}

// References reports whether this fulfillment order line refers to lineItemID
func (f FulfillmentOrderLineItem) References(lineItemID int64) bool {
	if f.LineItemID != 0 {
		return f.LineItemID == lineItemID
	}
	return f.ID == lineItemID
}

// FulfillmentOrder groups line items awaiting fulfillment at one location
type FulfillmentOrder struct {
	ID               int64
	AssignedLocation AssignedLocation
	LineItems        []FulfillmentOrderLineItem
}

// Order is a paid order delivered by the storefront webhook
type Order struct {
	ID                int64
	Name              string
	Email             string
	Customer          Customer
	LineItems         []OrderLineItem
	FulfillmentOrders []FulfillmentOrder
}

// Validate checks the minimum fields needed to process the order
func (o *Order) Validate() error {
	if o == nil || o.ID == 0 {
		return ErrOrderInvalid
	}
	return nil
}

// FindEsimLineItem returns the first line item carrying a non-empty provider SKU
func (o *Order) FindEsimLineItem() (*OrderLineItem, bool) {
	for i := range o.LineItems {
		if o.LineItems[i].IsEsim() {
			return &o.LineItems[i], true
		}
	}
	return nil, false
}

// FindFulfillmentOrder returns the fulfillment order, and its line, referencing lineItemID
func (o *Order) FindFulfillmentOrder(lineItemID int64) (*FulfillmentOrder, *FulfillmentOrderLineItem, bool) {
	for i := range o.FulfillmentOrders {
		fo := &o.FulfillmentOrders[i]
		for j := range fo.LineItems {
			if fo.LineItems[j].References(lineItemID) {
				return fo, &fo.LineItems[j], true
			}
		}
	}
	return nil, nil, false
}

// ---------------------------------------------------------------------------
// Activation
// ---------------------------------------------------------------------------

// ActivationRequest asks the provider to provision an eSIM
type ActivationRequest struct {
	ProductSKU    string
	CustomerEmail string
	CustomerID    int64
	// ReferenceID is the store order id, passed through as a reference token
	ReferenceID int64
}

// NewActivationRequest builds the activation request for an eSIM line item
func NewActivationRequest(order *Order, item *OrderLineItem) ActivationRequest {
	return ActivationRequest{
		ProductSKU:    item.ProviderSKU(),
		CustomerEmail: order.Email,
		CustomerID:    order.Customer.ID,
		ReferenceID:   order.ID,
	}
}

// EsimActivation carries the delivery credentials returned by the provider
type EsimActivation struct {
	QRCodeImageURL string
	ActivationCode string
	ICCID          string
}

// ---------------------------------------------------------------------------
// Fulfillment
// ---------------------------------------------------------------------------

// FulfillmentLine is a fulfillment order line item to fulfill
type FulfillmentLine struct {
	ID       int64
	Quantity int
}

// FulfillmentRequest records fulfillment of one fulfillment order
type FulfillmentRequest struct {
	OrderID            int64
	FulfillmentOrderID int64
	LocationID         int64
	Lines              []FulfillmentLine
	NotifyCustomer     bool
	Message            string
}

// Fulfillment is the store's record of a created fulfillment
type Fulfillment struct {
	ID     int64
	Status string
}

// FulfillmentMessage renders the customer-visible activation message
func FulfillmentMessage(a *EsimActivation) string {
	return fmt.Sprintf("Your eSIM QR Code: %s\nActivation Code: %s", a.QRCodeImageURL, a.ActivationCode)
}

// NewFulfillmentRequest builds the fulfillment for the eSIM line item
func NewFulfillmentRequest(
	order *Order,
	fo *FulfillmentOrder,
	foLine *FulfillmentOrderLineItem,
	item *OrderLineItem,
	activation *EsimActivation,
) FulfillmentRequest {
	return FulfillmentRequest{
		OrderID:            order.ID,
		FulfillmentOrderID: fo.ID,
		LocationID:         fo.AssignedLocation.LocationID,
		Lines: []FulfillmentLine{
			{ID: foLine.ID, Quantity: item.Quantity},
		},
		NotifyCustomer: true,
		Message:        FulfillmentMessage(activation),
	}
}
