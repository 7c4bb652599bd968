package ecommerce

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/esimbridge/backend/internal/domain/integration"
)

// orderValidator reports field errors by their JSON names.
var orderValidator = func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}()

// ---------------------------------------------------------------------------
// Product Types
// ---------------------------------------------------------------------------

// ShopifyProductsResponse is the response of GET products.json
type ShopifyProductsResponse struct {
	Products []ShopifyProduct `json:"products"`
}

// ShopifyProductResponse wraps a single product
type ShopifyProductResponse struct {
	Product ShopifyProduct `json:"product"`
}

// ShopifyProduct is a product resource
type ShopifyProduct struct {
	ID          int64            `json:"id"`
	Title       string           `json:"title"`
	ProductType string           `json:"product_type"`
	Vendor      string           `json:"vendor,omitempty"`
	Variants    []ShopifyVariant `json:"variants"`
}

// ShopifyVariant is a product variant resource.
// Metafields is nil when the payload does not embed them.
type ShopifyVariant struct {
	ID         int64              `json:"id"`
	ProductID  int64              `json:"product_id,omitempty"`
	SKU        string             `json:"sku"`
	Price      string             `json:"price"`
	Metafields []ShopifyMetafield `json:"metafields,omitempty"`
}

// ShopifyMetafield is a metafield resource
type ShopifyMetafield struct {
	ID        int64  `json:"id,omitempty"`
	Namespace string `json:"namespace"`
	Key       string `json:"key"`
	Value     string `json:"value"`
	Type      string `json:"type"`
}

// ShopifyMetafieldsResponse is the response of GET .../metafields.json
type ShopifyMetafieldsResponse struct {
	Metafields []ShopifyMetafield `json:"metafields"`
}

// ShopifyProductCreateRequest is the body of POST products.json
type ShopifyProductCreateRequest struct {
	Product ShopifyNewProduct `json:"product"`
}

// ShopifyNewProduct is a product to create
type ShopifyNewProduct struct {
	Title       string              `json:"title"`
	BodyHTML    string              `json:"body_html"`
	Vendor      string              `json:"vendor"`
	ProductType string              `json:"product_type"`
	Published   bool                `json:"published"`
	Variants    []ShopifyNewVariant `json:"variants"`
}

// ShopifyNewVariant is a variant to create. A nil InventoryManagement is sent as null.
type ShopifyNewVariant struct {
	SKU                 string             `json:"sku"`
	Price               string             `json:"price"`
	InventoryManagement *string            `json:"inventory_management"`
	RequiresShipping    bool               `json:"requires_shipping"`
	Metafields          []ShopifyMetafield `json:"metafields,omitempty"`
}

// ---------------------------------------------------------------------------
// Fulfillment Types
// ---------------------------------------------------------------------------

// ShopifyFulfillmentCreateRequest is the body of POST fulfillments.json
type ShopifyFulfillmentCreateRequest struct {
	Fulfillment ShopifyNewFulfillment `json:"fulfillment"`
}

// ShopifyNewFulfillment is a fulfillment to create
type ShopifyNewFulfillment struct {
	LocationID                  int64                                `json:"location_id,omitempty"`
	LineItemsByFulfillmentOrder []ShopifyFulfillmentOrderLineItemsRef `json:"line_items_by_fulfillment_order"`
	NotifyCustomer              bool                                 `json:"notify_customer"`
	Message                     string                               `json:"message,omitempty"`
}

// ShopifyFulfillmentOrderLineItemsRef selects lines of one fulfillment order
type ShopifyFulfillmentOrderLineItemsRef struct {
	FulfillmentOrderID        int64                      `json:"fulfillment_order_id"`
	FulfillmentOrderLineItems []ShopifyFulfillmentLineRef `json:"fulfillment_order_line_items"`
}

// ShopifyFulfillmentLineRef is a fulfillment order line and quantity
type ShopifyFulfillmentLineRef struct {
	ID       int64 `json:"id"`
	Quantity int   `json:"quantity"`
}

// ShopifyFulfillmentResponse is the response of POST fulfillments.json
type ShopifyFulfillmentResponse struct {
	Fulfillment struct {
		ID     int64  `json:"id"`
		Status string `json:"status"`
	} `json:"fulfillment"`
}

// ---------------------------------------------------------------------------
// Order Webhook Types
// ---------------------------------------------------------------------------

// ShopifyOrder is the orders/paid webhook payload
type ShopifyOrder struct {
	ID                int64                     `json:"id" validate:"required"`
	Name              string                    `json:"name"`
	Email             string                    `json:"email"`
	Customer          *ShopifyCustomer          `json:"customer"`
	LineItems         []ShopifyLineItem         `json:"line_items" validate:"dive"`
	FulfillmentOrders []ShopifyFulfillmentOrder `json:"fulfillment_orders" validate:"dive"`
}

// ShopifyCustomer is the customer embedded in an order
type ShopifyCustomer struct {
	ID    int64  `json:"id"`
	Email string `json:"email,omitempty"`
}

// ShopifyLineItem is an order line item
type ShopifyLineItem struct {
	ID         int64                     `json:"id" validate:"required"`
	Title      string                    `json:"title"`
	Quantity   int                       `json:"quantity" validate:"gte=0"`
	SKU        string                    `json:"sku,omitempty"`
	Properties []ShopifyLineItemProperty `json:"properties"`
}

// ShopifyLineItemProperty is a line item property. Value accepts any JSON scalar.
type ShopifyLineItemProperty struct {
	Name  string        `json:"name"`
	Value propertyValue `json:"value"`
}

// ShopifyFulfillmentOrder is a fulfillment order embedded in the order payload
type ShopifyFulfillmentOrder struct {
	ID               int64 `json:"id" validate:"required"`
	AssignedLocation struct {
		LocationID int64 `json:"location_id"`
	} `json:"assigned_location"`
	LineItems []ShopifyFulfillmentOrderLineItem `json:"line_items"`
}

// ShopifyFulfillmentOrderLineItem is a line of a fulfillment order
type ShopifyFulfillmentOrderLineItem struct {
	ID         int64 `json:"id"`
	LineItemID int64 `json:"line_item_id"`
	Quantity   int   `json:"quantity"`
}

// propertyValue decodes a line item property value into a string. Strings
// and non-zero numbers keep their text; null, booleans, zero and nested
// values decode to "" so they never read as a provider SKU.
type propertyValue string

func (v *propertyValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*v = ""
	if len(data) == 0 {
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = propertyValue(s)
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		n, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return fmt.Errorf("invalid property value %s: %w", data, err)
		}
		if n != 0 {
			*v = propertyValue(data)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Conversions
// ---------------------------------------------------------------------------

// DecodeOrderWebhook parses an orders/paid payload into the domain order
func DecodeOrderWebhook(body []byte) (*integration.Order, error) {
	var payload ShopifyOrder
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrOrderInvalid, err)
	}
	if err := orderValidator.Struct(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", integration.ErrOrderInvalid, err)
	}
	order := payload.toDomain()
	if err := order.Validate(); err != nil {
		return nil, err
	}
	return order, nil
}

func (o *ShopifyOrder) toDomain() *integration.Order {
	order := &integration.Order{
		ID:                o.ID,
		Name:              o.Name,
		Email:             o.Email,
		LineItems:         make([]integration.OrderLineItem, 0, len(o.LineItems)),
		FulfillmentOrders: make([]integration.FulfillmentOrder, 0, len(o.FulfillmentOrders)),
	}
	if o.Customer != nil {
		order.Customer.ID = o.Customer.ID
		if order.Email == "" {
			order.Email = o.Customer.Email
		}
	}

	for _, li := range o.LineItems {
		item := integration.OrderLineItem{
			ID:         li.ID,
			Quantity:   li.Quantity,
			Title:      li.Title,
			Properties: make([]integration.LineItemProperty, 0, len(li.Properties)),
		}
		for _, p := range li.Properties {
			item.Properties = append(item.Properties, integration.LineItemProperty{
				Name:  p.Name,
				Value: string(p.Value),
			})
		}
		order.LineItems = append(order.LineItems, item)
	}

	for _, fo := range o.FulfillmentOrders {
		domainFO := integration.FulfillmentOrder{
			ID:               fo.ID,
			AssignedLocation: integration.AssignedLocation{LocationID: fo.AssignedLocation.LocationID},
			LineItems:        make([]integration.FulfillmentOrderLineItem, 0, len(fo.LineItems)),
		}
		for _, line := range fo.LineItems {
			domainFO.LineItems = append(domainFO.LineItems, integration.FulfillmentOrderLineItem{
				ID:         line.ID,
				LineItemID: line.LineItemID,
				Quantity:   line.Quantity,
			})
		}
		order.FulfillmentOrders = append(order.FulfillmentOrders, domainFO)
	}
	return order
}

func (p *ShopifyProduct) toDomain() integration.StoreProduct {
	sp := integration.StoreProduct{
		ID:          p.ID,
		Title:       p.Title,
		ProductType: p.ProductType,
		Variants:    make([]integration.StoreVariant, 0, len(p.Variants)),
	}
	for _, v := range p.Variants {
		price, err := decimal.NewFromString(strings.TrimSpace(v.Price))
		if err != nil {
			price = decimal.Zero
		}
		sp.Variants = append(sp.Variants, integration.StoreVariant{
			ID:         v.ID,
			SKU:        v.SKU,
			Price:      price,
			Metafields: metafieldsToDomain(v.Metafields),
		})
	}
	return sp
}

func metafieldsToDomain(in []ShopifyMetafield) []integration.CustomField {
	out := make([]integration.CustomField, 0, len(in))
	for _, m := range in {
		out = append(out, integration.CustomField{
			Namespace: m.Namespace,
			Key:       m.Key,
			Value:     m.Value,
			Type:      m.Type,
		})
	}
	return out
}

func newShopifyProductCreateRequest(draft integration.StoreProductDraft) ShopifyProductCreateRequest {
	product := ShopifyNewProduct{
		Title:       draft.Title,
		BodyHTML:    draft.BodyHTML,
		Vendor:      draft.Vendor,
		ProductType: draft.ProductType,
		Published:   draft.Published,
		Variants:    make([]ShopifyNewVariant, 0, len(draft.Variants)),
	}
	for _, v := range draft.Variants {
		variant := ShopifyNewVariant{
			SKU:              v.SKU,
			Price:            v.Price.StringFixed(2),
			RequiresShipping: v.RequiresShipping,
		}
		if v.InventoryManagement != "" {
			im := v.InventoryManagement
			variant.InventoryManagement = &im
		}
		for _, f := range v.Metafields {
			variant.Metafields = append(variant.Metafields, ShopifyMetafield{
				Namespace: f.Namespace,
				Key:       f.Key,
				Value:     f.Value,
				Type:      f.Type,
			})
		}
		product.Variants = append(product.Variants, variant)
	}
	return ShopifyProductCreateRequest{Product: product}
}

func newShopifyFulfillmentCreateRequest(req integration.FulfillmentRequest) ShopifyFulfillmentCreateRequest {
	lines := make([]ShopifyFulfillmentLineRef, 0, len(req.Lines))
	for _, l := range req.Lines {
		lines = append(lines, ShopifyFulfillmentLineRef{ID: l.ID, Quantity: l.Quantity})
	}
	return ShopifyFulfillmentCreateRequest{
		Fulfillment: ShopifyNewFulfillment{
			LocationID: req.LocationID,
			LineItemsByFulfillmentOrder: []ShopifyFulfillmentOrderLineItemsRef{
				{
					FulfillmentOrderID:        req.FulfillmentOrderID,
					FulfillmentOrderLineItems: lines,
				},
			},
			NotifyCustomer: req.NotifyCustomer,
			Message:        req.Message,
		},
	}
}

// formatID renders a numeric resource id for URLs and logs
func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
