package integration

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/esimbridge/backend/internal/domain/integration"
	"github.com/esimbridge/backend/internal/infrastructure/logger"
	"github.com/esimbridge/backend/internal/infrastructure/telemetry"
)

// FulfillmentService turns a paid order into a provisioned eSIM and a store fulfillment
type FulfillmentService struct {
	store    integration.StoreCatalog
	provider integration.EsimProvider
	logger   *zap.Logger
	metrics  *telemetry.BridgeMetrics
}

// NewFulfillmentService creates a new FulfillmentService
func NewFulfillmentService(store integration.StoreCatalog, provider integration.EsimProvider, log *zap.Logger) *FulfillmentService {
	if log == nil {
		log = zap.NewNop()
	}
	return &FulfillmentService{
		store:    store,
		provider: provider,
		logger:   log,
	}
}

// SetBridgeMetrics sets the business metrics recorder
func (s *FulfillmentService) SetBridgeMetrics(bm *telemetry.BridgeMetrics) {
	s.metrics = bm
}

// ProcessPaidOrder fulfills the eSIM line item of a paid order. Steps run
// strictly in order: find the eSIM line, find its fulfillment order, activate
// with the provider, create the store fulfillment. Activation is never retried.
//
// An order without an eSIM line item is skipped with a nil error. Every other
// failure is returned as a *FulfillmentError carrying the stage it stopped at.
func (s *FulfillmentService) ProcessPaidOrder(ctx context.Context, order *integration.Order) (*FulfillmentResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "fulfillment", "process_paid_order")
	defer span.End()

	log := logger.WithLogger(ctx, logger.FromContextOr(ctx, s.logger))

	if err := order.Validate(); err != nil {
		return nil, s.fail(ctx, span, StagePreActivation, 0, err)
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrOrderID, order.ID)
	log = log.With(zap.Int64("order_id", order.ID))

	item, ok := order.FindEsimLineItem()
	if !ok {
		log.Info("No eSIM line item in order, skipping")
		telemetry.SetAttributes(span, telemetry.SpanAttrOutcome, string(OutcomeSkipped))
		s.recordFulfillment(ctx, telemetry.OutcomeSkipped, "")
		return &FulfillmentResult{Outcome: OutcomeSkipped, OrderID: order.ID}, nil
	}

	sku := item.ProviderSKU()
	log = log.With(zap.Int64("line_item_id", item.ID), zap.String("product_sku", sku))
	telemetry.SetAttributes(span,
		telemetry.SpanAttrLineItemID, item.ID,
		telemetry.SpanAttrProductSKU, sku,
	)

	fo, foLine, ok := order.FindFulfillmentOrder(item.ID)
	if !ok {
		err := fmt.Errorf("%w: line item %d", integration.ErrDataInconsistency, item.ID)
		log.Warn("eSIM line item has no fulfillment order", zap.Error(err))
		return nil, s.fail(ctx, span, StagePreActivation, order.ID, err)
	}

	activation, err := s.provider.ActivateEsim(ctx, integration.NewActivationRequest(order, item))
	if err != nil {
		if !errors.Is(err, integration.ErrActivationOutcomeUnknown) && !errors.Is(err, integration.ErrActivationFailed) {
			err = fmt.Errorf("%w: %w", integration.ErrActivationFailed, err)
		}
		outcome := telemetry.OutcomeFailed
		if errors.Is(err, integration.ErrActivationOutcomeUnknown) {
			outcome = telemetry.OutcomeUnknown
			log.Error("eSIM activation outcome unknown",
				zap.Bool("manual_fulfillment_required", true),
				zap.Error(err),
			)
		} else {
			log.Error("eSIM activation failed", zap.Error(err))
		}
		s.recordActivation(ctx, outcome)
		return nil, s.fail(ctx, span, StageActivation, order.ID, err)
	}
	s.recordActivation(ctx, telemetry.OutcomeSuccess)
	telemetry.AddEvent(span, "esim_activated", "iccid", activation.ICCID)
	log.Info("eSIM activated", zap.String("iccid", activation.ICCID))

	req := integration.NewFulfillmentRequest(order, fo, foLine, item, activation)
	fulfillment, err := s.store.CreateFulfillment(ctx, req)
	if err != nil {
		err = fmt.Errorf("%w: %w", integration.ErrFulfillmentFailed, err)
		log.Error("eSIM provisioned but fulfillment failed",
			zap.Bool("manual_fulfillment_required", true),
			zap.Int64("fulfillment_order_id", fo.ID),
			zap.String("iccid", activation.ICCID),
			zap.String("qrcode_image_url", activation.QRCodeImageURL),
			zap.Error(err),
		)
		return nil, s.fail(ctx, span, StagePostActivation, order.ID, err)
	}

	log.Info("Order fulfilled",
		zap.Int64("fulfillment_order_id", fo.ID),
		zap.Int64("fulfillment_id", fulfillment.ID),
	)
	telemetry.SetAttributes(span,
		telemetry.SpanAttrOutcome, string(OutcomeFulfilled),
		telemetry.SpanAttrFulfillmentID, fulfillment.ID,
	)
	telemetry.SetOK(span)
	s.recordFulfillment(ctx, telemetry.OutcomeSuccess, "")

	return &FulfillmentResult{
		Outcome:            OutcomeFulfilled,
		OrderID:            order.ID,
		LineItemID:         item.ID,
		ProductSKU:         sku,
		FulfillmentOrderID: fo.ID,
		FulfillmentID:      fulfillment.ID,
		ICCID:              activation.ICCID,
	}, nil
}

func (s *FulfillmentService) fail(ctx context.Context, span trace.Span, stage Stage, orderID int64, err error) error {
	fe := &FulfillmentError{Stage: stage, OrderID: orderID, Err: err}
	telemetry.SetAttributes(span, telemetry.SpanAttrStage, stage.String())
	telemetry.RecordError(span, fe)
	s.recordFulfillment(ctx, telemetry.OutcomeFailed, stage.String())
	return fe
}

func (s *FulfillmentService) recordFulfillment(ctx context.Context, outcome, stage string) {
	if s.metrics != nil {
		s.metrics.RecordFulfillment(ctx, outcome, stage)
	}
}

func (s *FulfillmentService) recordActivation(ctx context.Context, outcome string) {
	if s.metrics != nil {
		s.metrics.RecordActivation(ctx, outcome)
	}
}
