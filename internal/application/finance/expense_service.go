package finance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/erp/ledgerflow/internal/application/event"
	appledger "github.com/erp/ledgerflow/internal/application/ledger"
	"github.com/erp/ledgerflow/internal/application/uow"
	"github.com/erp/ledgerflow/internal/domain/finance"
	"github.com/erp/ledgerflow/internal/domain/ledger"
	"github.com/erp/ledgerflow/internal/domain/shared"
	"github.com/erp/ledgerflow/internal/domain/shared/valueobject"
	"github.com/erp/ledgerflow/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	expensePrefix     = "EXP"
	sourceTypeExpense = "expense"
)

// CreateCategoryInput creates an expense category charging the account
// with the given code
type CreateCategoryInput struct {
	Name        string
	AccountCode string
}

// CreateExpenseInput creates a draft expense
type CreateExpenseInput struct {
	CategoryID  uuid.UUID
	WarehouseID uuid.UUID
	Date        time.Time
	Amount      decimal.Decimal
	// Currency defaults to the account plan currency
	Currency    valueobject.Currency
	Description string
	// PaymentAccountID overrides the warehouse cash-or-bank account
	PaymentAccountID uuid.UUID
}

// ExpenseService records non-trade expenses and posts them to the ledger
type ExpenseService struct {
	scope      uow.TransactionScope
	engine     *appledger.Engine
	plan       *ledger.AccountPlan
	dispatcher *event.Dispatcher
	logger     *zap.Logger
}

// NewExpenseService creates a new ExpenseService
func NewExpenseService(
	scope uow.TransactionScope,
	engine *appledger.Engine,
	plan *ledger.AccountPlan,
	dispatcher *event.Dispatcher,
	logger *zap.Logger,
) *ExpenseService {
	return &ExpenseService{
		scope:      scope,
		engine:     engine,
		plan:       plan,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// CreateCategory stores a category. The account must be an expense account.
func (s *ExpenseService) CreateCategory(ctx context.Context, in CreateCategoryInput) (*finance.ExpenseCategory, error) {
	var category *finance.ExpenseCategory
	err := s.scope.ExecuteWithRetry(ctx, func(repos uow.TransactionalRepositories) error {
		account, err := findAccount(ctx, repos, strings.TrimSpace(in.AccountCode))
		if err != nil {
			return err
		}
		if account.Type != ledger.AccountTypeExpense {
			return shared.NewDomainError(shared.CodeInvalidAccount,
				fmt.Sprintf("Account %s is %s, not an expense account", account.Code, account.Type))
		}
		category, err = finance.NewExpenseCategory(in.Name, account.ID)
		if err != nil {
			return err
		}
		return repos.ExpenseCategories().Create(ctx, category)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("expense category created", zap.String("name", category.Name))
	return category, nil
}

// Create stores a draft expense
func (s *ExpenseService) Create(ctx context.Context, in CreateExpenseInput) (*finance.Expense, error) {
	currency := in.Currency
	if currency == "" {
		currency = s.plan.Currency
	}
	amount, err := valueobject.NewMoney(in.Amount, currency)
	if err != nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, err.Error())
	}

	var expense *finance.Expense
	err = s.scope.ExecuteWithRetry(ctx, func(repos uow.TransactionalRepositories) error {
		if _, err := repos.ExpenseCategories().FindByID(ctx, in.CategoryID); err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return shared.NewDomainError(shared.CodeNotFound, "Expense category not found: "+in.CategoryID.String())
			}
			return err
		}
		if in.PaymentAccountID != uuid.Nil {
			account, err := repos.Accounts().FindByID(ctx, in.PaymentAccountID)
			if err != nil {
				if errors.Is(err, shared.ErrNotFound) {
					return shared.NewDomainError(shared.CodeInvalidAccount, "Payment account not found: "+in.PaymentAccountID.String())
				}
				return err
			}
			if account.Type != ledger.AccountTypeAsset {
				return shared.NewDomainError(shared.CodeInvalidAccount,
					fmt.Sprintf("Payment account %s must be a cash or bank asset account", account.Code))
			}
		}

		number, err := uow.NextNumber(ctx, repos.Sequences(), expensePrefix)
		if err != nil {
			return err
		}
		expense, err = finance.NewExpense(number, in.Date, in.CategoryID, in.WarehouseID, amount, in.PaymentAccountID, in.Description)
		if err != nil {
			return err
		}
		return repos.Expenses().Save(ctx, expense)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("expense created",
		zap.String("number", expense.Number),
		zap.String("amount", expense.Amount.String()),
	)
	s.dispatcher.Dispatch(ctx, expense)
	return expense, nil
}

// Get returns an expense
func (s *ExpenseService) Get(ctx context.Context, id uuid.UUID) (*finance.Expense, error) {
	var expense *finance.Expense
	err := s.scope.Execute(ctx, func(repos uow.TransactionalRepositories) error {
		found, err := repos.Expenses().FindByID(ctx, id)
		expense = found
		return err
	})
	return expense, err
}

// Post debits the category's expense account and credits the payment
// account. An expense is posted at most once.
func (s *ExpenseService) Post(ctx context.Context, id uuid.UUID) (*finance.Expense, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "expense", "post",
		telemetry.WithAttribute(telemetry.SpanAttrDocumentID, id.String()))
	defer span.End()

	var expense *finance.Expense
	err := s.scope.ExecuteWithRetry(ctx, func(repos uow.TransactionalRepositories) error {
		var err error
		expense, err = repos.Expenses().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := expense.CheckPostable(); err != nil {
			return err
		}
		category, err := repos.ExpenseCategories().FindByID(ctx, expense.CategoryID)
		if err != nil {
			return fmt.Errorf("failed to load expense category: %w", err)
		}

		bindings := s.plan.Bindings(expense.WarehouseID).With(ledger.RoleExpense, category.ExpenseAccountID)
		if expense.PaymentAccountID != uuid.Nil {
			bindings = bindings.With(ledger.RoleCash, expense.PaymentAccountID)
		}
		txn, err := s.engine.PostTemplate(ctx, repos, appledger.TemplateRequest{
			Kind:        ledger.TemplateExpensePost,
			Date:        expense.Date,
			Description: expense.Memo(),
			Source:      &ledger.Source{Type: sourceTypeExpense, ID: expense.ID},
			Bindings:    bindings,
			Amounts:     ledger.Amounts{ledger.AmountTotal: expense.Total()},
		})
		if err != nil {
			return err
		}
		if err := expense.MarkPosted(category.ExpenseAccountID, txn.ID); err != nil {
			return err
		}
		return repos.Expenses().Save(ctx, expense)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("expense posted",
		zap.String("number", expense.Number),
		zap.Stringer("transaction_id", *expense.PostingID),
	)
	s.dispatcher.Dispatch(ctx, expense)
	return expense, nil
}

// Cancel reverses the posting of a posted expense
func (s *ExpenseService) Cancel(ctx context.Context, id uuid.UUID, reason string) (*finance.Expense, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "expense", "cancel",
		telemetry.WithAttribute(telemetry.SpanAttrDocumentID, id.String()))
	defer span.End()

	var expense *finance.Expense
	err := s.scope.ExecuteWithRetry(ctx, func(repos uow.TransactionalRepositories) error {
		var err error
		expense, err = repos.Expenses().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := expense.CheckCancellable(); err != nil {
			return err
		}
		memo := reason
		if memo == "" {
			memo = "Cancel " + expense.Number
		}
		txn, err := s.engine.Reverse(ctx, repos, *expense.PostingID, memo)
		if err != nil {
			return err
		}
		if err := expense.MarkCancelled(txn.ID, reason); err != nil {
			return err
		}
		return repos.Expenses().Save(ctx, expense)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("expense cancelled", zap.String("number", expense.Number))
	s.dispatcher.Dispatch(ctx, expense)
	return expense, nil
}

func findAccount(ctx context.Context, repos uow.TransactionalRepositories, code string) (*ledger.Account, error) {
	if code == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Account code cannot be empty")
	}
	account, err := repos.Accounts().FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError(shared.CodeNotFound, "Account "+code+" does not exist")
		}
		return nil, err
	}
	return account, nil
}
