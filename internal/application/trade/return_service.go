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
	"github.com/erp/ledgerflow/internal/domain/inventory"
	"github.com/erp/ledgerflow/internal/domain/ledger"
	"github.com/erp/ledgerflow/internal/domain/partner"
	"github.com/erp/ledgerflow/internal/domain/shared"
	"github.com/erp/ledgerflow/internal/domain/trade"
	"github.com/erp/ledgerflow/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ReturnService drives sale and purchase returns
type ReturnService struct {
	scope      uow.TransactionScope
	engine     *appledger.Engine
	stock      *appinv.StockLedger
	plan       *ledger.AccountPlan
	dispatcher *event.Dispatcher
	logger     *zap.Logger
}

// NewReturnService creates a new ReturnService
func NewReturnService(
	scope uow.TransactionScope,
	engine *appledger.Engine,
	stock *appinv.StockLedger,
	plan *ledger.AccountPlan,
	dispatcher *event.Dispatcher,
	logger *zap.Logger,
) *ReturnService {
	return &ReturnService{
		scope:      scope,
		engine:     engine,
		stock:      stock,
		plan:       plan,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Create stores a draft return. A return that references an invoice is
// checked against what the invoice actually delivered or received.
func (s *ReturnService) Create(ctx context.Context, in CreateReturnInput) (*trade.Return, error) {
	if in.Type != trade.DocumentTypeSaleReturn && in.Type != trade.DocumentTypePurchaseReturn {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Not a return type: "+string(in.Type))
	}
	currency := in.Currency
	if currency == "" {
		currency = s.plan.Currency
	}
	date := in.Date
	if date.IsZero() {
		date = time.Now()
	}

	var ret *trade.Return
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
		if in.Type == trade.DocumentTypeSaleReturn {
			ret, err = trade.NewSaleReturn(number, date, in.CounterpartyID, in.WarehouseID, currency, in.InvoiceID)
		} else {
			ret, err = trade.NewPurchaseReturn(number, date, in.CounterpartyID, in.WarehouseID, currency, in.InvoiceID)
		}
		if err != nil {
			return err
		}
		for _, l := range in.Lines {
			if _, err := ret.AddLine(l.ProductID, l.LotCode, l.ExpiryDate, l.Quantity, l.UnitPrice); err != nil {
				return err
			}
		}
		if !in.Tax.IsZero() {
			if err := ret.SetTax(in.Tax); err != nil {
				return err
			}
		}
		ret.Reason = in.Reason

		if ret.InvoiceID != nil {
			if err := s.validateAgainstInvoice(ctx, repos, ret, false); err != nil {
				return err
			}
		}
		return repos.Returns().Save(ctx, ret)
	})
	if err != nil {
		return nil, err
	}
	s.dispatcher.Dispatch(ctx, ret)
	return ret, nil
}

// validateAgainstInvoice checks the return's lots against the linked
// invoice. With lock set the invoice row is locked, so concurrent confirms
// of returns against the same invoice serialize.
func (s *ReturnService) validateAgainstInvoice(ctx context.Context, repos uow.TransactionalRepositories, ret *trade.Return, lock bool) error {
	var (
		inv *trade.Invoice
		err error
	)
	if lock {
		inv, err = repos.Invoices().FindByIDForUpdate(ctx, *ret.InvoiceID)
	} else {
		inv, err = repos.Invoices().FindByID(ctx, *ret.InvoiceID)
	}
	if err != nil {
		return err
	}
	others, err := repos.Returns().FindByInvoice(ctx, inv.ID)
	if err != nil {
		return err
	}
	return ret.ValidateAgainstInvoice(inv, others)
}

// Get returns a return with its lines
func (s *ReturnService) Get(ctx context.Context, id uuid.UUID) (*trade.Return, error) {
	var ret *trade.Return
	err := s.scope.Execute(ctx, func(repos uow.TransactionalRepositories) error {
		found, err := repos.Returns().FindByID(ctx, id)
		ret = found
		return err
	})
	return ret, err
}

// Confirm posts the credit note and lowers the counterparty balance by the
// return total. Confirming again is a no-op.
func (s *ReturnService) Confirm(ctx context.Context, id uuid.UUID) (*trade.Return, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "return", "confirm",
		telemetry.WithAttribute(telemetry.SpanAttrDocumentID, id.String()))
	defer span.End()

	var (
		ret *trade.Return
		cp  *partner.Counterparty
	)
	err := s.scope.ExecuteWithRetry(ctx, func(repos uow.TransactionalRepositories) error {
		cp = nil
		var err error
		ret, err = repos.Returns().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if ret.IsConfirmedOrBeyond() {
			return nil
		}
		if ret.InvoiceID != nil {
			if err := s.validateAgainstInvoice(ctx, repos, ret, true); err != nil {
				return err
			}
		}
		cp, err = apppartner.Lock(ctx, repos, ret.CounterpartyID, counterpartyKind(ret.Type))
		if err != nil {
			return err
		}
		if err := ret.Confirm(); err != nil {
			return err
		}

		kind := ledger.TemplatePurchaseReturnConfirm
		if ret.IsSale() {
			kind = ledger.TemplateSaleReturnConfirm
		}
		txn, err := s.engine.PostTemplate(ctx, repos, appledger.TemplateRequest{
			Kind:        kind,
			Date:        ret.Date,
			Description: fmt.Sprintf("%s %s", ret.Type, ret.Number),
			Source:      postingSource(ret.Type, ret.ID),
			Bindings:    bindingsFor(s.plan, ret.Type, ret.WarehouseID, cp),
			Amounts: ledger.Amounts{
				ledger.AmountBase:  ret.Money(ret.Subtotal),
				ledger.AmountTax:   ret.Money(ret.Tax),
				ledger.AmountTotal: ret.Money(ret.Total),
			},
		})
		if err != nil {
			return err
		}
		ret.AttachPosting(txn.ID)

		if err := apppartner.Adjust(ctx, repos, cp, ret.Total.Neg(), partner.ReasonReturnConfirm, balanceSource(ret.Type, ret.ID)); err != nil {
			return err
		}
		return repos.Returns().Save(ctx, ret)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("return confirmed",
		zap.String("number", ret.Number),
		zap.String("total", ret.Total.String()),
	)
	s.dispatcher.Dispatch(ctx, ret, cp)
	return ret, nil
}

// Return moves the goods: a sale return restores stock into the named lots,
// a purchase return takes it out of them.
func (s *ReturnService) Return(ctx context.Context, id uuid.UUID) (*trade.Return, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "return", "return",
		telemetry.WithAttribute(telemetry.SpanAttrDocumentID, id.String()))
	defer span.End()

	var ret *trade.Return
	err := s.scope.ExecuteWithRetry(ctx, func(repos uow.TransactionalRepositories) error {
		var err error
		ret, err = repos.Returns().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := ret.EnsureCanReturn(); err != nil {
			return err
		}

		source := stockSource(ret.Type, ret.ID)
		for _, line := range ret.Lines {
			if !line.HasLot() {
				return shared.NewDomainError(shared.CodeInvalidInput,
					fmt.Sprintf("Return %s line %d has no lot", ret.Number, line.LineNo))
			}
			key := inventory.NewBatchKey(line.ProductID, ret.WarehouseID, line.LotCode)
			if ret.IsSale() {
				_, err = s.stock.Restore(ctx, repos, key, line.Quantity, appinv.RestoreOptions{
					ExpiryDate: line.ExpiryDate,
					UnitCost:   line.UnitPrice,
					Source:     source,
				})
			} else {
				_, err = s.stock.ConsumeExact(ctx, repos, key, line.Quantity, false, source)
			}
			if err != nil {
				return err
			}
		}
		if err := ret.MarkReturned(); err != nil {
			return err
		}
		return repos.Returns().Save(ctx, ret)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("return goods moved", zap.String("number", ret.Number))
	s.dispatcher.Dispatch(ctx, ret)
	return ret, nil
}

// Refund settles the unsettled remainder of a returned document in cash and
// raises the counterparty balance by the same amount
func (s *ReturnService) Refund(ctx context.Context, id uuid.UUID) (*trade.Return, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "return", "refund",
		telemetry.WithAttribute(telemetry.SpanAttrDocumentID, id.String()))
	defer span.End()

	var (
		ret    *trade.Return
		cp     *partner.Counterparty
		amount decimal.Decimal
	)
	err := s.scope.ExecuteWithRetry(ctx, func(repos uow.TransactionalRepositories) error {
		var err error
		ret, err = repos.Returns().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := ret.EnsureCanSettle(trade.ReturnStatusRefunded); err != nil {
			return err
		}
		cp, err = apppartner.Lock(ctx, repos, ret.CounterpartyID, counterpartyKind(ret.Type))
		if err != nil {
			return err
		}

		amount = ret.Refundable()
		var refundID *uuid.UUID
		if amount.IsPositive() {
			kind := ledger.TemplatePurchaseReturnRefund
			if ret.IsSale() {
				kind = ledger.TemplateSaleReturnRefund
			}
			txn, err := s.engine.PostTemplate(ctx, repos, appledger.TemplateRequest{
				Kind:        kind,
				Date:        time.Now(),
				Description: "Refund " + ret.Number,
				Source:      postingSource(ret.Type, ret.ID),
				Bindings:    bindingsFor(s.plan, ret.Type, ret.WarehouseID, cp),
				Amounts:     ledger.Amounts{ledger.AmountTotal: ret.Money(amount)},
			})
			if err != nil {
				return err
			}
			refundID = &txn.ID
		}
		if _, err := ret.Refund(refundID); err != nil {
			return err
		}
		if err := apppartner.Adjust(ctx, repos, cp, amount, partner.ReasonReturnRefund, balanceSource(ret.Type, ret.ID)); err != nil {
			return err
		}
		return repos.Returns().Save(ctx, ret)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("return refunded",
		zap.String("number", ret.Number),
		zap.String("amount", amount.String()),
	)
	s.dispatcher.Dispatch(ctx, ret, cp)
	return ret, nil
}

// Credit settles a returned document without cash. When the return is
// linked to an invoice the credit is applied there, capped at what the
// invoice still has outstanding. Nothing is posted: the credit note was
// posted at confirm.
func (s *ReturnService) Credit(ctx context.Context, id uuid.UUID) (*trade.Return, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "return", "credit",
		telemetry.WithAttribute(telemetry.SpanAttrDocumentID, id.String()))
	defer span.End()

	var (
		ret     *trade.Return
		inv     *trade.Invoice
		applied decimal.Decimal
	)
	err := s.scope.ExecuteWithRetry(ctx, func(repos uow.TransactionalRepositories) error {
		inv, applied = nil, decimal.Zero
		var err error
		ret, err = repos.Returns().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := ret.EnsureCanSettle(trade.ReturnStatusCredited); err != nil {
			return err
		}

		if ret.InvoiceID != nil {
			inv, err = repos.Invoices().FindByIDForUpdate(ctx, *ret.InvoiceID)
			if err != nil {
				return err
			}
			applied = decimal.Min(ret.Refundable(), inv.Outstanding())
			if applied.IsPositive() && inv.IsPosted() {
				if err := inv.ApplyCredit(applied); err != nil {
					return err
				}
				if err := repos.Invoices().Save(ctx, inv); err != nil {
					return err
				}
			} else {
				applied = decimal.Zero
			}
		}

		if err := ret.Credit(); err != nil {
			return err
		}
		return repos.Returns().Save(ctx, ret)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("return credited",
		zap.String("number", ret.Number),
		zap.String("applied_to_invoice", applied.String()),
	)
	s.dispatcher.Dispatch(ctx, ret, inv)
	return ret, nil
}

// Cancel discards a draft return, or withdraws a confirmed one by reversing
// its credit note and restoring the counterparty balance
func (s *ReturnService) Cancel(ctx context.Context, id uuid.UUID, reason string) (*trade.Return, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "return", "cancel",
		telemetry.WithAttribute(telemetry.SpanAttrDocumentID, id.String()))
	defer span.End()

	var (
		ret *trade.Return
		cp  *partner.Counterparty
	)
	err := s.scope.ExecuteWithRetry(ctx, func(repos uow.TransactionalRepositories) error {
		cp = nil
		var err error
		ret, err = repos.Returns().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if ret.Status == trade.ReturnStatusCancelled {
			return nil
		}
		if err := ret.EnsureCanSettle(trade.ReturnStatusCancelled); err != nil {
			return err
		}

		if ret.PostingID != nil {
			cp, err = apppartner.Lock(ctx, repos, ret.CounterpartyID, counterpartyKind(ret.Type))
			if err != nil {
				return err
			}
			txn, err := s.engine.Reverse(ctx, repos, *ret.PostingID, "Cancel "+ret.Number)
			if err != nil {
				return err
			}
			ret.AddReversal(txn.ID)
			if err := apppartner.Adjust(ctx, repos, cp, ret.Total, partner.ReasonReturnCancel, balanceSource(ret.Type, ret.ID)); err != nil {
				return err
			}
		}

		if err := ret.Cancel(reason); err != nil {
			return err
		}
		return repos.Returns().Save(ctx, ret)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("return cancelled", zap.String("number", ret.Number))
	s.dispatcher.Dispatch(ctx, ret, cp)
	return ret, nil
}
