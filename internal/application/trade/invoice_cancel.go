package trade

import (
	"context"
	"fmt"

	"github.com/erp/ledgerflow/internal/application/event"
	appinv "github.com/erp/ledgerflow/internal/application/inventory"
	appledger "github.com/erp/ledgerflow/internal/application/ledger"
	apppartner "github.com/erp/ledgerflow/internal/application/partner"
	"github.com/erp/ledgerflow/internal/application/uow"
	"github.com/erp/ledgerflow/internal/domain/finance"
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

// Cancel unwinds a confirmed or completed invoice: stock goes back to (or
// out of) the exact lots it touched, every receipt allocated to it is
// reversed, the primary posting is reversed and the counterparty balance
// is brought back. Cancelling a cancelled invoice returns it unchanged.
func (s *InvoiceService) Cancel(ctx context.Context, id uuid.UUID, in CancelInput) (*trade.Invoice, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "cancel",
		telemetry.WithAttribute(telemetry.SpanAttrDocumentID, id.String()))
	defer span.End()

	var (
		inv      *trade.Invoice
		cp       *partner.Counterparty
		receipts []finance.Receipt
		reversed decimal.Decimal
	)
	err := s.scope.ExecuteWithRetry(ctx, func(repos uow.TransactionalRepositories) error {
		cp, receipts, reversed = nil, nil, decimal.Zero
		var err error
		inv, err = repos.Invoices().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if inv.IsCancelled() {
			return nil
		}
		if err := inv.EnsureCancellable(); err != nil {
			return err
		}

		returns, err := repos.Returns().FindByInvoice(ctx, inv.ID)
		if err != nil {
			return err
		}
		if trade.HasActiveReturns(returns) && !in.Force {
			return shared.NewDomainError(shared.CodeDependentDocumentsExist,
				fmt.Sprintf("%s %s has active returns", inv.Type, inv.Number))
		}

		cp, err = apppartner.Lock(ctx, repos, inv.CounterpartyID, counterpartyKind(inv.Type))
		if err != nil {
			return err
		}

		if err := s.unwindStock(ctx, repos, inv, in.Force); err != nil {
			return err
		}

		receipts, reversed, err = s.reverseAllocations(ctx, repos, inv, cp)
		if err != nil {
			return err
		}

		if inv.PostingID != nil {
			txn, err := s.engine.Reverse(ctx, repos, *inv.PostingID, "Cancel "+inv.Number)
			if err != nil {
				return err
			}
			inv.AddReversal(txn.ID)
		}

		source := balanceSource(inv.Type, inv.ID)
		if err := apppartner.Adjust(ctx, repos, cp, reversed, partner.ReasonReceiptReversal, source); err != nil {
			return err
		}
		if err := apppartner.Adjust(ctx, repos, cp, inv.GrandTotal.Neg(), partner.ReasonInvoiceCancel, source); err != nil {
			return err
		}

		if err := inv.Cancel(in.Reason); err != nil {
			return err
		}
		return repos.Invoices().Save(ctx, inv)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("invoice cancelled",
		zap.String("number", inv.Number),
		zap.Bool("force", in.Force),
		zap.String("reversed_receipts", reversed.String()),
	)
	sources := []event.Source{inv, cp}
	for idx := range receipts {
		sources = append(sources, &receipts[idx])
	}
	s.dispatcher.Dispatch(ctx, sources...)
	return inv, nil
}

// unwindStock undoes every fulfillment. Sale deliveries are restored into
// their lots; purchase receipts are taken back out, flooring lots at zero
// only when forced.
func (s *InvoiceService) unwindStock(ctx context.Context, repos uow.TransactionalRepositories, inv *trade.Invoice, force bool) error {
	source := stockSource(inv.Type, inv.ID)
	for _, f := range inv.Fulfillments {
		key := inventory.NewBatchKey(f.ProductID, inv.WarehouseID, f.LotCode)
		if inv.IsSale() {
			opts := appinv.RestoreOptions{Source: source}
			if line := inv.Line(f.LineID); line != nil {
				opts.ExpiryDate = line.ExpiryDate
			}
			if _, err := s.stock.Restore(ctx, repos, key, f.Quantity, opts); err != nil {
				return err
			}
			continue
		}
		taken, err := s.stock.ConsumeExact(ctx, repos, key, f.Quantity, force, source)
		if err != nil {
			return err
		}
		if taken.Shortfall.IsPositive() {
			s.logger.Warn("cancelled purchase left lot short",
				zap.String("number", inv.Number),
				zap.String("lot", f.LotCode),
				zap.String("shortfall", taken.Shortfall.String()),
			)
		}
	}
	return nil
}

// reverseAllocations posts one reversal per receipt allocated to the
// invoice and returns the locked receipts with the total reversed
func (s *InvoiceService) reverseAllocations(ctx context.Context, repos uow.TransactionalRepositories, inv *trade.Invoice, cp *partner.Counterparty) ([]finance.Receipt, decimal.Decimal, error) {
	receipts, err := repos.Receipts().FindAllocatedToForUpdate(ctx, inv.ID)
	if err != nil {
		return nil, decimal.Zero, err
	}

	kind := ledger.TemplateSupplierPaymentReversal
	if inv.IsSale() {
		kind = ledger.TemplateCustomerReceiptReversal
	}

	total := decimal.Zero
	for idx := range receipts {
		receipt := &receipts[idx]
		amount := receipt.ActiveAllocatedTo(inv.ID)
		if !amount.IsPositive() {
			continue
		}
		txn, err := s.engine.PostTemplate(ctx, repos, appledger.TemplateRequest{
			Kind:        kind,
			Date:        inv.Date,
			Description: fmt.Sprintf("Reverse %s allocation to %s", receipt.Number, inv.Number),
			Source:      &ledger.Source{Type: receipt.Kind.SourceType(), ID: receipt.ID},
			Bindings:    bindingsFor(s.plan, inv.Type, receipt.WarehouseID, cp),
			Amounts:     ledger.Amounts{ledger.AmountTotal: receipt.Money(amount)},
		})
		if err != nil {
			return nil, decimal.Zero, err
		}
		total = total.Add(receipt.ReverseAllocationsTo(inv.ID, txn.ID))
		inv.AddReversal(txn.ID)
		if err := repos.Receipts().Save(ctx, receipt); err != nil {
			return nil, decimal.Zero, fmt.Errorf("failed to save receipt %s: %w", receipt.Number, err)
		}
	}
	return receipts, total, nil
}
