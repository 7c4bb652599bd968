package integration

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/esimbridge/backend/internal/domain/integration"
)

// =============================================================================
// Mock ports
// =============================================================================

type MockStoreCatalog struct {
	mock.Mock
}

func (m *MockStoreCatalog) ListEsimProducts(ctx context.Context) ([]integration.StoreProduct, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]integration.StoreProduct), args.Error(1)
}

func (m *MockStoreCatalog) CreateProduct(ctx context.Context, draft integration.StoreProductDraft) (*integration.StoreProduct, error) {
	args := m.Called(ctx, draft)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.StoreProduct), args.Error(1)
}

func (m *MockStoreCatalog) CreateFulfillment(ctx context.Context, req integration.FulfillmentRequest) (*integration.Fulfillment, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.Fulfillment), args.Error(1)
}

type MockEsimProvider struct {
	mock.Mock
}

func (m *MockEsimProvider) ListProducts(ctx context.Context) ([]integration.ProviderProduct, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]integration.ProviderProduct), args.Error(1)
}

func (m *MockEsimProvider) ActivateEsim(ctx context.Context, req integration.ActivationRequest) (*integration.EsimActivation, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*integration.EsimActivation), args.Error(1)
}

var (
	_ integration.StoreCatalog = (*MockStoreCatalog)(nil)
	_ integration.EsimProvider = (*MockEsimProvider)(nil)
)
