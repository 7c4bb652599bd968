package integration

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// ProviderProductIDKey is the custom field key joining a store variant to a provider product
	ProviderProductIDKey = "maya_product_id"
	// ProviderProductIDNamespace is the custom field namespace used when tagging new products
	ProviderProductIDNamespace = "maya"
	// ProviderProductIDFieldType is the metafield type used when tagging new products
	ProviderProductIDFieldType = "single_line_text_field"

	// EsimProductType is the store product type used for provider products
	EsimProductType = "eSIM"
	// EsimVendor is the vendor set on created store products
	EsimVendor = "Maya Mobile"
	// EsimSKUPrefix prefixes the generated store SKU
	EsimSKUPrefix = "MAYA_ESIM_"
)

// ---------------------------------------------------------------------------
// Provider catalog
// ---------------------------------------------------------------------------

// ProviderProduct is a product in the provider catalog
type ProviderProduct struct {
	ID          string
	Name        string
	Description string
	RetailPrice decimal.Decimal
	// DecodeError describes a catalog entry the adapter could not read; the
	// product is then never mirrored
	DecodeError string
}

// Validate checks the fields required to mirror the product into the store
func (p ProviderProduct) Validate() error {
	if p.DecodeError != "" {
		return fmt.Errorf("%w: %s", ErrProductSyncInvalidProduct, p.DecodeError)
	}
	if strings.TrimSpace(p.ID) == "" {
		return ErrProductSyncInvalidProduct
	}
	if p.RetailPrice.IsNegative() {
		return ErrProductSyncInvalidProduct
	}
	return nil
}

// StoreSKU returns the SKU generated for the store variant
func (p ProviderProduct) StoreSKU() string {
	return EsimSKUPrefix + p.ID
}

// ---------------------------------------------------------------------------
// Store catalog
// ---------------------------------------------------------------------------

// CustomField is a key/value field attached to a store variant (Shopify metafield)
type CustomField struct {
	Namespace string
	Key       string
	Value     string
	Type      string
}

// StoreVariant is a variant of a store product
type StoreVariant struct {
	ID         int64
	SKU        string
	Price      decimal.Decimal
	Metafields []CustomField
}

// ProviderProductID returns the provider product id carried by the variant, if any
func (v StoreVariant) ProviderProductID() (string, bool) {
	for _, f := range v.Metafields {
		if f.Key == ProviderProductIDKey {
			return f.Value, true
		}
	}
	return "", false
}

// StoreProduct is a product in the store catalog
type StoreProduct struct {
	ID          int64
	Title       string
	ProductType string
	Variants    []StoreVariant
}

// ProductIndex is a lookup of provider product ids present in the store,
// built once per sync run.
type ProductIndex struct {
	byProviderID map[string]int64
}

// NewProductIndex indexes every maya_product_id custom field of every variant
func NewProductIndex(store []StoreProduct) *ProductIndex {
	idx := &ProductIndex{byProviderID: make(map[string]int64)}
	for _, sp := range store {
		idx.Add(sp)
	}
	return idx
}

// Add indexes a single store product; the first product seen for an id wins
func (i *ProductIndex) Add(sp StoreProduct) {
	for _, v := range sp.Variants {
		for _, f := range v.Metafields {
			if f.Key != ProviderProductIDKey {
				continue
			}
			if _, exists := i.byProviderID[f.Value]; !exists {
				i.byProviderID[f.Value] = sp.ID
			}
		}
	}
}

// StoreProductID returns the store product whose variant carries a
// maya_product_id custom field equal to providerProductID
func (i *ProductIndex) StoreProductID(providerProductID string) (int64, bool) {
	id, ok := i.byProviderID[providerProductID]
	return id, ok
}

// Len returns the number of indexed provider product ids
func (i *ProductIndex) Len() int {
	return len(i.byProviderID)
}

// ---------------------------------------------------------------------------
// Store product creation
// ---------------------------------------------------------------------------

// StoreVariantDraft describes the variant of a product to create
type StoreVariantDraft struct {
	SKU                 string
	Price               decimal.Decimal
	RequiresShipping    bool
	InventoryManagement string // empty means the store does not track inventory
	Metafields          []CustomField
}

// StoreProductDraft describes a store product to create
type StoreProductDraft struct {
	Title       string
	BodyHTML    string
	Vendor      string
	ProductType string
	Published   bool
	Variants    []StoreVariantDraft
}

// NewStoreProductDraft mirrors a provider product into a store product draft.
// The variant carries the maya_product_id custom field so that later sync runs
// find it through the join.
func NewStoreProductDraft(p ProviderProduct) StoreProductDraft {
	return StoreProductDraft{
		Title:       p.Name,
		BodyHTML:    p.Description,
		Vendor:      EsimVendor,
		ProductType: EsimProductType,
		Published:   true,
		Variants: []StoreVariantDraft{
			{
				SKU:              p.StoreSKU(),
				Price:            p.RetailPrice,
				RequiresShipping: false,
				Metafields: []CustomField{
					{
						Namespace: ProviderProductIDNamespace,
						Key:       ProviderProductIDKey,
						Value:     p.ID,
						Type:      ProviderProductIDFieldType,
					},
				},
			},
		},
	}
}
