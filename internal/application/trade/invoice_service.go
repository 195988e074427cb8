package trade

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/ledgerflow/internal/application/event"
	appinv "github.com/erp/ledgerflow/internal/application/inventory"
	appledger "github.com/erp/ledgerflow/internal/application/ledger"
	apppartner "github.com/erp/ledgerflow/internal/application/partner"
	"github.com/erp/ledgerflow/internal/application/uow"
	"github.com/erp/ledgerflow/internal/domain/ledger"
	"github.com/erp/ledgerflow/internal/domain/partner"
	"github.com/erp/ledgerflow/internal/domain/shared"
	"github.com/erp/ledgerflow/internal/domain/trade"
	"github.com/erp/ledgerflow/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// InvoiceService drives sale and purchase invoices through their state
// machine. Every command runs in one unit of work: postings, stock
// movements, balance changes and the invoice itself commit together.
type InvoiceService struct {
	scope      uow.TransactionScope
	engine     *appledger.Engine
	stock      *appinv.StockLedger
	plan       *ledger.AccountPlan
	dispatcher *event.Dispatcher
	logger     *zap.Logger
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(
	scope uow.TransactionScope,
	engine *appledger.Engine,
	stock *appinv.StockLedger,
	plan *ledger.AccountPlan,
	dispatcher *event.Dispatcher,
	logger *zap.Logger,
) *InvoiceService {
	return &InvoiceService{
		scope:      scope,
		engine:     engine,
		stock:      stock,
		plan:       plan,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Create stores a draft invoice numbered from the document sequence
func (s *InvoiceService) Create(ctx context.Context, in CreateInvoiceInput) (*trade.Invoice, error) {
	if !in.Type.IsInvoice() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Not an invoice type: "+string(in.Type))
	}
	currency := in.Currency
	if currency == "" {
		currency = s.plan.Currency
	}
	date := in.Date
	if date.IsZero() {
		date = time.Now()
	}

	var inv *trade.Invoice
	err := s.scope.ExecuteWithRetry(ctx, func(repos uow.TransactionalRepositories) error {
		cp, err := repos.Counterparties().FindByID(ctx, in.CounterpartyID)
		if err != nil {
			return err
		}
		if cp.Kind != counterpartyKind(in.Type) {
			return shared.NewDomainError(shared.CodeCounterpartyMismatch,
				fmt.Sprintf("A %s needs a %s, %s is a %s", in.Type, counterpartyKind(in.Type), cp.Code, cp.Kind))
		}

		number, err := uow.NextNumber(ctx, repos.Sequences(), numberPrefixes[in.Type])
		if err != nil {
			return err
		}
		if in.Type == trade.DocumentTypeSaleInvoice {
			inv, err = trade.NewSaleInvoice(number, date, in.CounterpartyID, in.WarehouseID, currency)
		} else {
			inv, err = trade.NewPurchaseInvoice(number, date, in.CounterpartyID, in.WarehouseID, currency)
		}
		if err != nil {
			return err
		}
		for _, l := range in.Lines {
			if _, err := inv.AddLine(l.ProductID, l.LotCode, l.ExpiryDate, l.Quantity, l.UnitPrice); err != nil {
				return err
			}
		}
		if !in.Discount.IsZero() {
			if err := inv.SetDiscount(in.Discount); err != nil {
				return err
			}
		}
		if !in.Tax.IsZero() {
			if err := inv.SetTax(in.Tax); err != nil {
				return err
			}
		}
		inv.Remark = in.Remark
		return repos.Invoices().Save(ctx, inv)
	})
	if err != nil {
		return nil, err
	}
	s.dispatcher.Dispatch(ctx, inv)
	return inv, nil
}

// Get returns an invoice with its lines and fulfillments
func (s *InvoiceService) Get(ctx context.Context, id uuid.UUID) (*trade.Invoice, error) {
	var inv *trade.Invoice
	err := s.scope.Execute(ctx, func(repos uow.TransactionalRepositories) error {
		found, err := repos.Invoices().FindByID(ctx, id)
		inv = found
		return err
	})
	return inv, err
}

// Confirm posts the invoice and raises the counterparty balance by what is
// outstanding. Confirming an invoice that is already confirmed or complete
// returns it unchanged.
func (s *InvoiceService) Confirm(ctx context.Context, id uuid.UUID) (*trade.Invoice, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "confirm",
		telemetry.WithAttribute(telemetry.SpanAttrDocumentID, id.String()))
	defer span.End()

	var inv *trade.Invoice
	var cp *partner.Counterparty
	err := s.scope.ExecuteWithRetry(ctx, func(repos uow.TransactionalRepositories) error {
		var err error
		inv, err = repos.Invoices().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if inv.IsPosted() {
			return nil
		}
		cp, err = apppartner.Lock(ctx, repos, inv.CounterpartyID, counterpartyKind(inv.Type))
		if err != nil {
			return err
		}
		if err := inv.Confirm(); err != nil {
			return err
		}

		outstanding := inv.Outstanding()
		kind := ledger.TemplatePurchaseConfirm
		if inv.IsSale() {
			kind = ledger.TemplateSaleConfirm
		}
		txn, err := s.engine.PostTemplate(ctx, repos, appledger.TemplateRequest{
			Kind:        kind,
			Date:        inv.Date,
			Description: fmt.Sprintf("%s %s", inv.Type, inv.Number),
			Source:      postingSource(inv.Type, inv.ID),
			Bindings:    bindingsFor(s.plan, inv.Type, inv.WarehouseID, cp),
			Amounts: ledger.Amounts{
				ledger.AmountPaid:        inv.Money(inv.PaidAmount),
				ledger.AmountOutstanding: inv.Money(outstanding),
				ledger.AmountNet:         inv.Money(inv.NetAmount()),
				ledger.AmountTax:         inv.Money(inv.Tax),
			},
		})
		if err != nil {
			return err
		}
		inv.AttachPosting(txn.ID)

		if err := apppartner.Adjust(ctx, repos, cp, outstanding, partner.ReasonInvoiceConfirm, balanceSource(inv.Type, inv.ID)); err != nil {
			return err
		}
		return repos.Invoices().Save(ctx, inv)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("invoice confirmed",
		zap.String("number", inv.Number),
		zap.String("status", inv.Status.String()),
		zap.String("grand_total", inv.GrandTotal.String()),
	)
	s.dispatcher.Dispatch(ctx, inv, cp)
	return inv, nil
}
