package esim

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/esimbridge/backend/internal/domain/integration"
)

// MayaProductsResponse is the response of GET /product/v1/products.
// Entries are decoded one at a time so a malformed product cannot hide the
// rest of the catalog.
type MayaProductsResponse struct {
	Data []json.RawMessage `json:"data"`
}

// MayaProduct is a catalog entry. RetailPrice is a quoted or bare number and
// is parsed in toDomain.
type MayaProduct struct {
	ID          flexibleID      `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	RetailPrice json.RawMessage `json:"retail_price"`
}

// MayaActivationRequest is the body of POST /connectivity/v1/esim
type MayaActivationRequest struct {
	APIKey        string `json:"api_key"`
	ProductSKU    string `json:"product_sku"`
	CustomerEmail string `json:"customer_email"`
	CustomerID    int64  `json:"customer_id"`
	ReferenceID   int64  `json:"reference_id"`
}

// MayaActivationResponse is the response of POST /connectivity/v1/esim
type MayaActivationResponse struct {
	Data *MayaEsim `json:"data"`
}

// MayaEsim carries the delivery credentials of an activated eSIM
type MayaEsim struct {
	QRCodeImageURL string `json:"qrcode_image_url"`
	ActivationCode string `json:"activation_code"`
	ICCID          string `json:"iccid,omitempty"`
}

// flexibleID decodes an id sent either as a JSON string or number
type flexibleID string

func (id *flexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = flexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = flexibleID(n.String())
	return nil
}

// decodeMayaProduct reads one catalog entry. An entry that does not decode
// still yields a product, carrying whatever id could be read and the reason.
func decodeMayaProduct(raw json.RawMessage) integration.ProviderProduct {
	var p MayaProduct
	if err := json.Unmarshal(raw, &p); err != nil {
		var idOnly struct {
			ID flexibleID `json:"id"`
		}
		_ = json.Unmarshal(raw, &idOnly)
		return integration.ProviderProduct{
			ID:          strings.TrimSpace(string(idOnly.ID)),
			DecodeError: fmt.Sprintf("malformed product: %v", err),
		}
	}
	return p.toDomain()
}

func (p *MayaProduct) toDomain() integration.ProviderProduct {
	product := integration.ProviderProduct{
		ID:          strings.TrimSpace(string(p.ID)),
		Name:        p.Name,
		Description: p.Description,
	}
	price, err := parseRetailPrice(p.RetailPrice)
	if err != nil {
		product.DecodeError = err.Error()
		return product
	}
	product.RetailPrice = price
	return product
}

// parseRetailPrice accepts a JSON number or numeric string. An absent or
// null price is zero.
func parseRetailPrice(raw json.RawMessage) (decimal.Decimal, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return decimal.Zero, nil
	}
	var price decimal.Decimal
	if err := price.UnmarshalJSON(raw); err != nil {
		return decimal.Zero, fmt.Errorf("retail_price %s is not a number", raw)
	}
	return price, nil
}

func newMayaActivationRequest(apiKey string, req integration.ActivationRequest) MayaActivationRequest {
	return MayaActivationRequest{
		APIKey:        apiKey,
		ProductSKU:    req.ProductSKU,
		CustomerEmail: req.CustomerEmail,
		CustomerID:    req.CustomerID,
		ReferenceID:   req.ReferenceID,
	}
}
