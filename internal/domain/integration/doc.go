// Package integration contains the Integration bounded context.
// This context bridges the storefront (Shopify) and the eSIM provider (Maya Mobile).
//
// Key concepts:
//   - StoreCatalog: Port interface for the storefront (product listing/creation, fulfillment)
//   - EsimProvider: Port interface for the eSIM provider (catalog listing, activation)
//   - ProviderProduct / StoreProduct: catalog entries joined by the maya_product_id custom field
//   - Order / FulfillmentOrder: paid-order payload delivered by the storefront webhook
//
// Design Pattern: Ports & Adapters
//   - Ports (interfaces) are defined here in the domain layer
//   - Adapters (implementations) are in the infrastructure layer
package integration
