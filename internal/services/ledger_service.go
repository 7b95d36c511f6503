package services

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"litledger/internal/domain"
	applog "litledger/internal/log"
)

const instrumentation = "litledger/services"

type ItemStore interface {
	Get(ctx context.Context, name string) (domain.Item, error)
	GetByID(ctx context.Context, id int64) (domain.Item, error)
	List(ctx context.Context, f domain.Filter) ([]domain.Item, error)
	Create(ctx context.Context, in domain.NewItem) (domain.Item, error)
	SetStock(ctx context.Context, name string, stock int) (domain.Item, error)
	AdjustStock(ctx context.Context, name string, delta int) (domain.Item, error)
	RecordSale(ctx context.Context, name string, qty int) (domain.Sale, error)
	UpdateFields(ctx context.Context, id int64, p domain.ItemPatch) (domain.Item, error)
	Delete(ctx context.Context, id int64) (domain.Item, error)
}

type SnapshotStore interface {
	Archive(ctx context.Context, p domain.Period) (int, error)
	ForPeriod(ctx context.Context, p domain.Period) ([]domain.PeriodSnapshot, error)
	Periods(ctx context.Context) ([]domain.Period, error)
}

// Alerter is told when a sale takes an item down to its alert threshold.
type Alerter interface {
	LowStock(ctx context.Context, it domain.Item) error
}

// LedgerService is the single write path into the item store.
type LedgerService struct {
	Items     ItemStore
	Snapshots SnapshotStore
	Alerts    Alerter

	tracer trace.Tracer
	sales  metric.Int64Counter
	units  metric.Int64Counter
	alerts sync.WaitGroup
}

func NewLedgerService(items ItemStore, snaps SnapshotStore, alerts Alerter) *LedgerService {
	s := &LedgerService{Items: items, Snapshots: snaps, Alerts: alerts, tracer: otel.Tracer(instrumentation)}
	meter := otel.Meter(instrumentation)
	var err error
	if s.sales, err = meter.Int64Counter("ledger.sales", metric.WithDescription("Recorded sales")); err != nil {
		s.sales = noop.Int64Counter{}
	}
	if s.units, err = meter.Int64Counter("ledger.units_sold", metric.WithDescription("Units sold"), metric.WithUnit("{unit}")); err != nil {
		s.units = noop.Int64Counter{}
	}
	return s
}

func (s *LedgerService) start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *LedgerService) Item(ctx context.Context, name string) (domain.Item, error) {
	return s.Items.Get(ctx, name)
}

func (s *LedgerService) ItemByID(ctx context.Context, id int64) (domain.Item, error) {
	return s.Items.GetByID(ctx, id)
}

func (s *LedgerService) List(ctx context.Context, f domain.Filter) ([]domain.Item, error) {
	return s.Items.List(ctx, f)
}

func (s *LedgerService) CreateItem(ctx context.Context, in domain.NewItem) (it domain.Item, err error) {
	ctx, span := s.start(ctx, "ledger.create_item", attribute.String("item", in.Name))
	defer func() { finish(span, err) }()

	if it, err = s.Items.Create(ctx, in); err != nil {
		return it, err
	}
	applog.Audit(nil, "ledger.item.created", map[string]any{"item": it.Name, "id": it.ID, "price": it.Price.String()})
	return it, nil
}

func (s *LedgerService) SetStock(ctx context.Context, name string, stock int) (it domain.Item, err error) {
	ctx, span := s.start(ctx, "ledger.set_stock", attribute.String("item", name), attribute.Int("stock", stock))
	defer func() { finish(span, err) }()

	if it, err = s.Items.SetStock(ctx, name, stock); err != nil {
		return it, err
	}
	applog.Audit(nil, "ledger.stock.set", map[string]any{"item": name, "stock": stock})
	return it, nil
}

// RecordArrival adds a positive delivery to stock.
func (s *LedgerService) RecordArrival(ctx context.Context, name string, qty int) (it domain.Item, err error) {
	ctx, span := s.start(ctx, "ledger.arrival", attribute.String("item", name), attribute.Int("qty", qty))
	defer func() { finish(span, err) }()

	if qty <= 0 {
		return it, errors.Wrapf(domain.ErrValidation, "arrival quantity %d", qty)
	}
	if it, err = s.Items.AdjustStock(ctx, name, qty); err != nil {
		return it, err
	}
	applog.Audit(nil, "ledger.stock.arrival", map[string]any{"item": name, "qty": qty, "stock": it.Stock})
	return it, nil
}

// Sell records a whole sale or nothing.
func (s *LedgerService) Sell(ctx context.Context, name string, qty int) (sale domain.Sale, err error) {
	ctx, span := s.start(ctx, "ledger.sell", attribute.String("item", name), attribute.Int("qty", qty))
	defer func() { finish(span, err) }()

	if sale, err = s.Items.RecordSale(ctx, name, qty); err != nil {
		return sale, err
	}
	attrs := metric.WithAttributes(attribute.String("item", name))
	s.sales.Add(ctx, 1, attrs)
	s.units.Add(ctx, int64(qty), attrs)
	applog.Audit(nil, "ledger.sale.recorded", map[string]any{
		"item": name, "qty": qty, "stock": sale.NewStock, "amount": sale.Amount.String(),
	})

	// alert once, on the sale that crosses the threshold
	if sale.Item.Low() && sale.NewStock+qty > sale.Item.MinStock {
		s.alert(ctx, sale.Item)
	}
	return sale, nil
}

func (s *LedgerService) alert(ctx context.Context, it domain.Item) {
	if s.Alerts == nil {
		return
	}
	s.alerts.Add(1)
	go func() {
		defer s.alerts.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := s.Alerts.LowStock(ctx, it); err != nil {
			applog.Error(nil, "ledger.alert.failed", err, map[string]any{"item": it.Name})
		}
	}()
}

// Wait blocks until pending low-stock alerts have been delivered.
func (s *LedgerService) Wait() { s.alerts.Wait() }

func (s *LedgerService) UpdateItem(ctx context.Context, id int64, p domain.ItemPatch) (it domain.Item, err error) {
	ctx, span := s.start(ctx, "ledger.update_item", attribute.Int64("id", id))
	defer func() { finish(span, err) }()

	if it, err = s.Items.UpdateFields(ctx, id, p); err != nil {
		return it, err
	}
	applog.Audit(nil, "ledger.item.updated", map[string]any{"id": id, "item": it.Name})
	return it, nil
}

func (s *LedgerService) DeleteItem(ctx context.Context, id int64) (it domain.Item, err error) {
	ctx, span := s.start(ctx, "ledger.delete_item", attribute.Int64("id", id))
	defer func() { finish(span, err) }()

	if it, err = s.Items.Delete(ctx, id); err != nil {
		return it, err
	}
	applog.Audit(nil, "ledger.item.deleted", map[string]any{"id": id, "item": it.Name})
	return it, nil
}

// ArchivePeriod snapshots this period's sales and resets the live counters.
func (s *LedgerService) ArchivePeriod(ctx context.Context, p domain.Period) (n int, err error) {
	ctx, span := s.start(ctx, "ledger.archive", attribute.String("period", p.String()))
	defer func() { finish(span, err) }()

	n, err = s.Snapshots.Archive(ctx, p)
	applog.Audit(nil, "ledger.period.archived", map[string]any{"period": p.String(), "items": n})
	return n, err
}

// Import creates the given items, skipping names that already exist.
func (s *LedgerService) Import(ctx context.Context, in []domain.NewItem) (created, skipped int, err error) {
	for _, it := range in {
		_, err := s.CreateItem(ctx, it)
		switch {
		case err == nil:
			created++
		case errors.Is(err, domain.ErrDuplicateName):
			skipped++
		default:
			return created, skipped, err
		}
	}
	return created, skipped, nil
}
