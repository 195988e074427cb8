// Package finance records receipts and payments and settles invoices
// against them.
package finance

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/ledgerflow/internal/application/event"
	appledger "github.com/erp/ledgerflow/internal/application/ledger"
	apppartner "github.com/erp/ledgerflow/internal/application/partner"
	"github.com/erp/ledgerflow/internal/application/uow"
	"github.com/erp/ledgerflow/internal/domain/finance"
	"github.com/erp/ledgerflow/internal/domain/ledger"
	"github.com/erp/ledgerflow/internal/domain/partner"
	"github.com/erp/ledgerflow/internal/domain/shared"
	"github.com/erp/ledgerflow/internal/domain/shared/valueobject"
	"github.com/erp/ledgerflow/internal/domain/trade"
	"github.com/erp/ledgerflow/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RecordReceiptInput records money received from a customer or paid to a
// supplier
type RecordReceiptInput struct {
	Kind           finance.ReceiptKind
	CounterpartyID uuid.UUID
	WarehouseID    uuid.UUID
	Amount         decimal.Decimal
	// Currency defaults to the account plan currency
	Currency valueobject.Currency
	Date     time.Time
	Remark   string
}

// SplitSettleInput settles an invoice's whole outstanding amount with a
// mix of cash and credit
type SplitSettleInput struct {
	DocumentType trade.DocumentType
	DocumentID   uuid.UUID
	Pay          decimal.Decimal
	Credit       decimal.Decimal
	Date         time.Time
}

// SplitSettlement is the outcome of SplitSettle. Receipt is nil when
// nothing was paid.
type SplitSettlement struct {
	Invoice *trade.Invoice
	Receipt *finance.Receipt
}

// OpeningBalanceInput seeds a counterparty balance carried over from
// before the ledger existed
type OpeningBalanceInput struct {
	CounterpartyID uuid.UUID
	WarehouseID    uuid.UUID
	Amount         decimal.Decimal
	Date           time.Time
}

// SettlementService records receipts and payments, allocates them to
// invoices and posts opening balances
type SettlementService struct {
	scope      uow.TransactionScope
	engine     *appledger.Engine
	plan       *ledger.AccountPlan
	dispatcher *event.Dispatcher
	logger     *zap.Logger
}

// NewSettlementService creates a new SettlementService
func NewSettlementService(
	scope uow.TransactionScope,
	engine *appledger.Engine,
	plan *ledger.AccountPlan,
	dispatcher *event.Dispatcher,
	logger *zap.Logger,
) *SettlementService {
	return &SettlementService{
		scope:      scope,
		engine:     engine,
		plan:       plan,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

func counterpartyKind(kind finance.ReceiptKind) partner.Kind {
	if kind == finance.ReceiptKindCustomer {
		return partner.KindCustomer
	}
	return partner.KindSupplier
}

func receiptKindFor(docType trade.DocumentType) (finance.ReceiptKind, error) {
	switch docType {
	case trade.DocumentTypeSaleInvoice:
		return finance.ReceiptKindCustomer, nil
	case trade.DocumentTypePurchaseInvoice:
		return finance.ReceiptKindSupplier, nil
	}
	return "", shared.NewDomainError(shared.CodeInvalidInput, "Only invoices can be settled, got "+string(docType))
}

func counterpartyBindings(plan *ledger.AccountPlan, warehouseID uuid.UUID, cp *partner.Counterparty) ledger.Bindings {
	role := ledger.RolePayable
	if cp.IsCustomer() {
		role = ledger.RoleReceivable
	}
	return plan.Bindings(warehouseID).With(role, cp.AccountID)
}

// Get returns a receipt with its allocations
func (s *SettlementService) Get(ctx context.Context, id uuid.UUID) (*finance.Receipt, error) {
	var receipt *finance.Receipt
	err := s.scope.Execute(ctx, func(repos uow.TransactionalRepositories) error {
		found, err := repos.Receipts().FindByID(ctx, id)
		receipt = found
		return err
	})
	return receipt, err
}

// RecordReceipt posts a customer receipt or supplier payment and lowers the
// counterparty balance by its amount. The whole amount starts unallocated.
func (s *SettlementService) RecordReceipt(ctx context.Context, in RecordReceiptInput) (*finance.Receipt, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "settlement", "record_receipt")
	defer span.End()

	var (
		receipt *finance.Receipt
		cp      *partner.Counterparty
	)
	err := s.scope.ExecuteWithRetry(ctx, func(repos uow.TransactionalRepositories) error {
		var err error
		cp, err = apppartner.Lock(ctx, repos, in.CounterpartyID, counterpartyKind(in.Kind))
		if err != nil {
			return err
		}
		receipt, err = s.recordReceipt(ctx, repos, cp, in)
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("receipt recorded",
		zap.String("number", receipt.Number),
		zap.String("kind", receipt.Kind.String()),
		zap.String("amount", receipt.Amount.String()),
	)
	s.dispatcher.Dispatch(ctx, receipt, cp)
	return receipt, nil
}

// recordReceipt does the work of RecordReceipt inside the caller's unit.
// cp must already be locked.
func (s *SettlementService) recordReceipt(ctx context.Context, repos uow.TransactionalRepositories, cp *partner.Counterparty, in RecordReceiptInput) (*finance.Receipt, error) {
	if !in.Kind.IsValid() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Invalid receipt kind: "+string(in.Kind))
	}
	currency := in.Currency
	if currency == "" {
		currency = s.plan.Currency
	}
	amount, err := valueobject.NewMoney(in.Amount, currency)
	if err != nil {
		return nil, err
	}
	date := in.Date
	if date.IsZero() {
		date = time.Now()
	}

	number, err := uow.NextNumber(ctx, repos.Sequences(), in.Kind.NumberPrefix())
	if err != nil {
		return nil, err
	}
	receipt, err := finance.NewReceipt(in.Kind, number, date, cp.ID, in.WarehouseID, amount)
	if err != nil {
		return nil, err
	}
	receipt.Remark = in.Remark

	kind := ledger.TemplateSupplierPayment
	if in.Kind == finance.ReceiptKindCustomer {
		kind = ledger.TemplateCustomerReceipt
	}
	txn, err := s.engine.PostTemplate(ctx, repos, appledger.TemplateRequest{
		Kind:        kind,
		Date:        date,
		Description: fmt.Sprintf("%s %s from %s", in.Kind, number, cp.Code),
		Source:      &ledger.Source{Type: in.Kind.SourceType(), ID: receipt.ID},
		Bindings:    counterpartyBindings(s.plan, in.WarehouseID, cp),
		Amounts:     ledger.Amounts{ledger.AmountTotal: amount},
	})
	if err != nil {
		return nil, err
	}
	receipt.AttachPosting(txn.ID)

	source := partner.Source{Type: in.Kind.SourceType(), ID: receipt.ID}
	if err := apppartner.Adjust(ctx, repos, cp, in.Amount.Neg(), partner.ReasonReceipt, source); err != nil {
		return nil, err
	}
	if err := repos.Receipts().Save(ctx, receipt); err != nil {
		return nil, fmt.Errorf("failed to save receipt %s: %w", number, err)
	}
	return receipt, nil
}

// Allocate applies part of a receipt's unallocated amount to an invoice.
// Nothing is posted; the receipt already moved the money.
func (s *SettlementService) Allocate(ctx context.Context, receiptID uuid.UUID, docType trade.DocumentType, docID uuid.UUID, amount decimal.Decimal) (*finance.Allocation, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "settlement", "allocate",
		telemetry.WithAttribute(telemetry.SpanAttrDocumentID, docID.String()))
	defer span.End()

	var (
		alloc   *finance.Allocation
		receipt *finance.Receipt
		inv     *trade.Invoice
	)
	err := s.scope.ExecuteWithRetry(ctx, func(repos uow.TransactionalRepositories) error {
		// invoice before receipt, the same order invoice cancellation locks in
		var err error
		inv, err = lockInvoice(ctx, repos, docType, docID)
		if err != nil {
			return err
		}
		receipt, err = repos.Receipts().FindByIDForUpdate(ctx, receiptID)
		if err != nil {
			return err
		}
		alloc, err = allocate(ctx, repos, receipt, inv, amount)
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("receipt allocated",
		zap.String("receipt", receipt.Number),
		zap.String("document", inv.Number),
		zap.String("amount", amount.String()),
		zap.String("payment_status", string(inv.PaymentStatus)),
	)
	s.dispatcher.Dispatch(ctx, receipt, inv)
	return alloc, nil
}

func lockInvoice(ctx context.Context, repos uow.TransactionalRepositories, docType trade.DocumentType, docID uuid.UUID) (*trade.Invoice, error) {
	if _, err := receiptKindFor(docType); err != nil {
		return nil, err
	}
	inv, err := repos.Invoices().FindByIDForUpdate(ctx, docID)
	if err != nil {
		return nil, err
	}
	if inv.Type != docType {
		return nil, shared.NewDomainError(shared.CodeInvalidInput,
			fmt.Sprintf("%s is a %s, not a %s", inv.Number, inv.Type, docType))
	}
	return inv, nil
}

// allocate links a locked receipt and a locked invoice and saves both
func allocate(ctx context.Context, repos uow.TransactionalRepositories, receipt *finance.Receipt, inv *trade.Invoice, amount decimal.Decimal) (*finance.Allocation, error) {
	if receipt.CounterpartyID != inv.CounterpartyID {
		return nil, shared.NewDomainError(shared.CodeCounterpartyMismatch,
			fmt.Sprintf("Receipt %s and %s belong to different counterparties", receipt.Number, inv.Number))
	}
	if receipt.Currency != inv.Currency {
		return nil, shared.NewDomainError(shared.CodeMixedCurrency,
			fmt.Sprintf("Receipt %s is in %s, %s is in %s", receipt.Number, receipt.Currency, inv.Number, inv.Currency))
	}
	if err := inv.ApplyPayment(amount); err != nil {
		return nil, err
	}
	alloc, err := receipt.Allocate(inv.Type, inv.ID, inv.Number, amount)
	if err != nil {
		return nil, err
	}
	if err := repos.Receipts().Save(ctx, receipt); err != nil {
		return nil, fmt.Errorf("failed to save receipt %s: %w", receipt.Number, err)
	}
	if err := repos.Invoices().Save(ctx, inv); err != nil {
		return nil, fmt.Errorf("failed to save %s: %w", inv.Number, err)
	}
	return alloc, nil
}

// SplitSettle settles exactly what an invoice has outstanding: pay is
// recorded as a receipt (or payment) and allocated in full, credit is
// applied as non-cash settlement. Any other total is AMOUNT_MISMATCH.
func (s *SettlementService) SplitSettle(ctx context.Context, in SplitSettleInput) (*SplitSettlement, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "settlement", "split_settle",
		telemetry.WithAttribute(telemetry.SpanAttrDocumentID, in.DocumentID.String()))
	defer span.End()

	if in.Pay.IsNegative() || in.Credit.IsNegative() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Pay and credit cannot be negative")
	}
	kind, err := receiptKindFor(in.DocumentType)
	if err != nil {
		return nil, err
	}

	var (
		result SplitSettlement
		cp     *partner.Counterparty
	)
	err = s.scope.ExecuteWithRetry(ctx, func(repos uow.TransactionalRepositories) error {
		result, cp = SplitSettlement{}, nil
		inv, err := lockInvoice(ctx, repos, in.DocumentType, in.DocumentID)
		if err != nil {
			return err
		}
		result.Invoice = inv

		outstanding := inv.Outstanding()
		if !in.Pay.Add(in.Credit).Equal(outstanding) {
			return shared.NewDomainError(shared.CodeAmountMismatch,
				fmt.Sprintf("Pay %s plus credit %s must equal outstanding %s on %s",
					in.Pay.String(), in.Credit.String(), outstanding.String(), inv.Number))
		}
		if !inv.IsPosted() {
			return shared.NewDomainError(shared.CodeInvalidState,
				fmt.Sprintf("%s %s cannot be settled in %s status", inv.Type, inv.Number, inv.Status))
		}

		if in.Pay.IsPositive() {
			cp, err = apppartner.Lock(ctx, repos, inv.CounterpartyID, counterpartyKind(kind))
			if err != nil {
				return err
			}
			receipt, err := s.recordReceipt(ctx, repos, cp, RecordReceiptInput{
				Kind:           kind,
				CounterpartyID: inv.CounterpartyID,
				WarehouseID:    inv.WarehouseID,
				Amount:         in.Pay,
				Currency:       inv.Currency,
				Date:           in.Date,
				Remark:         "Settlement of " + inv.Number,
			})
			if err != nil {
				return err
			}
			if _, err := allocate(ctx, repos, receipt, inv, in.Pay); err != nil {
				return err
			}
			result.Receipt = receipt
		}

		if in.Credit.IsPositive() {
			if err := inv.ApplyCredit(in.Credit); err != nil {
				return err
			}
			return repos.Invoices().Save(ctx, inv)
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("invoice settled",
		zap.String("document", result.Invoice.Number),
		zap.String("pay", in.Pay.String()),
		zap.String("credit", in.Credit.String()),
	)
	s.dispatcher.Dispatch(ctx, result.Invoice, result.Receipt, cp)
	return &result, nil
}

// PostOpeningBalance posts a receivable or payable carried over from an
// earlier system against opening equity and raises the running balance
func (s *SettlementService) PostOpeningBalance(ctx context.Context, in OpeningBalanceInput) (*ledger.Transaction, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "settlement", "opening_balance")
	defer span.End()

	if !in.Amount.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Opening balance must be positive")
	}
	date := in.Date
	if date.IsZero() {
		date = time.Now()
	}

	var (
		txn *ledger.Transaction
		cp  *partner.Counterparty
	)
	err := s.scope.ExecuteWithRetry(ctx, func(repos uow.TransactionalRepositories) error {
		var err error
		cp, err = repos.Counterparties().FindByIDForUpdate(ctx, in.CounterpartyID)
		if err != nil {
			return err
		}
		kind := ledger.TemplateOpeningPayable
		if cp.IsCustomer() {
			kind = ledger.TemplateOpeningReceivable
		}
		txn, err = s.engine.PostTemplate(ctx, repos, appledger.TemplateRequest{
			Kind:        kind,
			Date:        date,
			Description: "Opening balance " + cp.Code,
			Source:      &ledger.Source{Type: "opening_balance", ID: cp.ID},
			Bindings:    counterpartyBindings(s.plan, in.WarehouseID, cp),
			Amounts:     ledger.Amounts{ledger.AmountTotal: valueobject.MustMoney(in.Amount, s.plan.Currency)},
		})
		if err != nil {
			return err
		}
		return apppartner.Adjust(ctx, repos, cp, in.Amount, partner.ReasonOpeningBalance,
			partner.Source{Type: "opening_balance", ID: txn.ID})
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("opening balance posted",
		zap.String("counterparty", cp.Code),
		zap.String("amount", in.Amount.String()),
	)
	s.dispatcher.Dispatch(ctx, cp)
	return txn, nil
}
