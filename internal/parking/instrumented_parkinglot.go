package parking

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

type InstrumentedParkingLot struct {
	*ParkingLot
	telemetry *TelemetryProvider

	// Metrics
	occupancyOperations metric.Int64Counter
	revenueOperations   metric.Int64Counter
	occupancyGauge      metric.Int64UpDownCounter
	feesCollected       metric.Int64Counter
	operationDuration   metric.Float64Histogram
	totalSlotsGauge     metric.Int64UpDownCounter
}

func NewInstrumentedParkingLot(lot *ParkingLot, telemetry *TelemetryProvider) (*InstrumentedParkingLot, error) {
	meter := telemetry.Meter()

	occupancyOperations, err := meter.Int64Counter("occupancy_operations_total",
		metric.WithDescription("Total number of reserve/enter/exit operations"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	revenueOperations, err := meter.Int64Counter("revenue_operations_total",
		metric.WithDescription("Total number of withdraw/sweep/distribute operations"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	occupancyGauge, err := meter.Int64UpDownCounter("parking_lot_occupancy",
		metric.WithDescription("Current number of occupied parking slots"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	feesCollected, err := meter.Int64Counter("parking_fees_collected_total",
		metric.WithDescription("Total fee credits collected into the pool"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	operationDuration, err := meter.Float64Histogram("operation_duration_seconds",
		metric.WithDescription("Duration of parking lot operations"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	totalSlotsGauge, err := meter.Int64UpDownCounter("parking_lot_total_slots",
		metric.WithDescription("Total number of provisioned parking slots"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	return &InstrumentedParkingLot{
		ParkingLot:          lot,
		telemetry:           telemetry,
		occupancyOperations: occupancyOperations,
		revenueOperations:   revenueOperations,
		occupancyGauge:      occupancyGauge,
		feesCollected:       feesCollected,
		operationDuration:   operationDuration,
		totalSlotsGauge:     totalSlotsGauge,
	}, nil
}

func (ipl *InstrumentedParkingLot) CreateSlot(ctx context.Context, cap *AdminCapability, caller, owner Identity) (int, error) {
	ctx, span := ipl.telemetry.Tracer().Start(ctx, "parking_lot.create_slot")
	defer span.End()

	start := time.Now()
	number, err := ipl.ParkingLot.CreateSlot(cap, caller, owner)

	labels := []attribute.KeyValue{attribute.String("operation", "create_slot")}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		labels = append(labels, attribute.String("status", "failed"))
	} else {
		span.SetAttributes(attribute.Int("slot_number", number))
		labels = append(labels, attribute.String("status", "success"))
		ipl.totalSlotsGauge.Add(ctx, 1)
	}
	ipl.operationDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(labels...))

	return number, err
}

func (ipl *InstrumentedParkingLot) Reserve(ctx context.Context, slotNumber int, user Identity) error {
	ctx, span := ipl.telemetry.Tracer().Start(ctx, "parking_lot.reserve",
		trace.WithAttributes(attribute.Int("slot_number", slotNumber)))
	defer span.End()

	start := time.Now()
	err := ipl.ParkingLot.Reserve(slotNumber, user)

	labels := []attribute.KeyValue{
		attribute.String("operation", "reserve"),
		attribute.Int("slot_number", slotNumber),
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		labels = append(labels, attribute.String("status", "failed"))
	} else {
		span.AddEvent("slot_reserved")
		labels = append(labels, attribute.String("status", "success"))
	}
	ipl.occupancyOperations.Add(ctx, 1, metric.WithAttributes(labels...))
	ipl.operationDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(labels...))

	return err
}

func (ipl *InstrumentedParkingLot) Enter(ctx context.Context, slotNumber int, user Identity) error {
	ctx, span := ipl.telemetry.Tracer().Start(ctx, "parking_lot.enter",
		trace.WithAttributes(attribute.Int("slot_number", slotNumber)))
	defer span.End()

	start := time.Now()
	err := ipl.ParkingLot.Enter(slotNumber, user)

	labels := []attribute.KeyValue{
		attribute.String("operation", "enter"),
		attribute.Int("slot_number", slotNumber),
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		labels = append(labels, attribute.String("status", "failed"))
	} else {
		span.AddEvent("occupancy_started")
		labels = append(labels, attribute.String("status", "success"))
		ipl.occupancyGauge.Add(ctx, 1)
	}
	ipl.occupancyOperations.Add(ctx, 1, metric.WithAttributes(labels...))
	ipl.operationDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(labels...))

	return err
}

func (ipl *InstrumentedParkingLot) Exit(ctx context.Context, slotNumber int, user Identity, payer *Wallet) (PaymentRecord, error) {
	ctx, span := ipl.telemetry.Tracer().Start(ctx, "parking_lot.exit",
		trace.WithAttributes(attribute.Int("slot_number", slotNumber)))
	defer span.End()

	start := time.Now()
	record, err := ipl.ParkingLot.Exit(slotNumber, user, payer)

	labels := []attribute.KeyValue{
		attribute.String("operation", "exit"),
		attribute.Int("slot_number", slotNumber),
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		labels = append(labels, attribute.String("status", "failed"))
	} else {
		span.SetAttributes(attribute.Int64("fee", record.Amount))
		span.AddEvent("fee_settled", trace.WithAttributes(
			attribute.Int64("amount", record.Amount),
		))
		labels = append(labels, attribute.String("status", "success"))
		ipl.occupancyGauge.Add(ctx, -1)
		ipl.feesCollected.Add(ctx, record.Amount)
	}
	ipl.occupancyOperations.Add(ctx, 1, metric.WithAttributes(labels...))
	ipl.operationDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(labels...))

	return record, err
}

func (ipl *InstrumentedParkingLot) Withdraw(ctx context.Context, cap *AdminCapability, caller Identity, amount int64, dest *Wallet) (int64, error) {
	ctx, span := ipl.telemetry.Tracer().Start(ctx, "parking_lot.withdraw",
		trace.WithAttributes(attribute.Int64("amount", amount)))
	defer span.End()

	start := time.Now()
	withdrawn, err := ipl.ParkingLot.Withdraw(cap, caller, amount, dest)
	ipl.recordRevenueOp(ctx, span, "withdraw", start, err)
	return withdrawn, err
}

func (ipl *InstrumentedParkingLot) Sweep(ctx context.Context, cap *AdminCapability, caller Identity, dest *Wallet) (int64, error) {
	ctx, span := ipl.telemetry.Tracer().Start(ctx, "parking_lot.sweep")
	defer span.End()

	start := time.Now()
	swept, err := ipl.ParkingLot.Sweep(cap, caller, dest)
	if err == nil {
		span.SetAttributes(attribute.Int64("amount", swept))
	}
	ipl.recordRevenueOp(ctx, span, "sweep", start, err)
	return swept, err
}

func (ipl *InstrumentedParkingLot) Distribute(ctx context.Context, slotNumber int, caller Identity, adminDest, ownerDest *Wallet) error {
	ctx, span := ipl.telemetry.Tracer().Start(ctx, "parking_lot.distribute",
		trace.WithAttributes(attribute.Int("slot_number", slotNumber)))
	defer span.End()

	start := time.Now()
	err := ipl.ParkingLot.Distribute(slotNumber, caller, adminDest, ownerDest)
	ipl.recordRevenueOp(ctx, span, "distribute", start, err)
	return err
}

func (ipl *InstrumentedParkingLot) recordRevenueOp(ctx context.Context, span trace.Span, op string, start time.Time, err error) {
	labels := []attribute.KeyValue{attribute.String("operation", op)}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		labels = append(labels, attribute.String("status", "failed"))
	} else {
		labels = append(labels, attribute.String("status", "success"))
	}
	ipl.revenueOperations.Add(ctx, 1, metric.WithAttributes(labels...))
	ipl.operationDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(labels...))
}
