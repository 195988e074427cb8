package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/ledgerflow/internal/application/uow"
	"github.com/erp/ledgerflow/internal/domain/ledger"
	"github.com/erp/ledgerflow/internal/domain/shared"
	"github.com/erp/ledgerflow/internal/infrastructure/logger"
	"github.com/erp/ledgerflow/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PostRequest asks for an explicit set of legs to be posted
type PostRequest struct {
	Date        time.Time
	Description string
	Source      *ledger.Source
	Legs        []ledger.LegSpec
}

// TemplateRequest asks for a posting built from a template
type TemplateRequest struct {
	Kind        ledger.TemplateKind
	Date        time.Time
	Description string
	Source      *ledger.Source
	Bindings    ledger.Bindings
	Amounts     ledger.Amounts
}

// Engine posts and reverses ledger transactions. It never opens its own
// unit of work: callers pass the repositories of the unit they are in, so a
// failed posting rolls back everything else the command did.
type Engine struct {
	logger  *zap.Logger
	metrics *telemetry.LedgerMetrics
}

// NewEngine creates a posting engine
func NewEngine(log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{logger: log}
}

// WithMetrics records postings and reversals on m
func (e *Engine) WithMetrics(m *telemetry.LedgerMetrics) *Engine {
	e.metrics = m
	return e
}

// Post validates and persists a balanced transaction
func (e *Engine) Post(ctx context.Context, repos uow.TransactionalRepositories, req PostRequest) (*ledger.Transaction, error) {
	return e.post(ctx, repos, req, "")
}

func (e *Engine) post(ctx context.Context, repos uow.TransactionalRepositories, req PostRequest, template ledger.TemplateKind) (*ledger.Transaction, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "post",
		telemetry.WithAttribute(telemetry.SpanAttrLegCount, len(req.Legs)),
		telemetry.WithAttribute(telemetry.SpanAttrTemplate, string(template)))
	defer span.End()

	date := req.Date
	if date.IsZero() {
		date = time.Now()
	}

	txn, err := ledger.NewTransaction(date, req.Description, req.Legs)
	if err != nil {
		telemetry.RecordError(span, err)
		e.metrics.RecordPostingError(ctx, string(template))
		return nil, err
	}
	if err := e.checkAccounts(ctx, repos.Accounts(), txn); err != nil {
		telemetry.RecordError(span, err)
		e.metrics.RecordPostingError(ctx, string(template))
		return nil, err
	}
	if req.Source != nil {
		txn.WithSource(req.Source.Type, req.Source.ID)
	}

	if err := repos.Transactions().Create(ctx, txn); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to create ledger transaction: %w", err)
	}

	telemetry.SetAttribute(span, telemetry.SpanAttrTransactionID, txn.ID.String())
	e.metrics.RecordPosting(ctx, string(template))
	logger.WithTraceContext(ctx, e.logger).Debug("ledger transaction posted",
		zap.String("transaction_id", txn.ID.String()),
		zap.String("description", txn.Description),
		zap.String("total", txn.TotalDebit().String()),
		zap.Int("legs", len(txn.Legs)),
	)
	return txn, nil
}

// PostTemplate expands a template and posts the result
func (e *Engine) PostTemplate(ctx context.Context, repos uow.TransactionalRepositories, req TemplateRequest) (*ledger.Transaction, error) {
	tmpl, err := ledger.LookupTemplate(req.Kind)
	if err != nil {
		return nil, err
	}
	legs, err := tmpl.Build(req.Bindings, req.Amounts)
	if err != nil {
		e.metrics.RecordPostingError(ctx, string(req.Kind))
		return nil, err
	}
	return e.post(ctx, repos, PostRequest{
		Date:        req.Date,
		Description: req.Description,
		Source:      req.Source,
		Legs:        legs,
	}, req.Kind)
}

// Reverse posts the mirror image of a transaction. The original is
// row-locked first so two concurrent reversals cannot both pass the check.
func (e *Engine) Reverse(ctx context.Context, repos uow.TransactionalRepositories, transactionID uuid.UUID, memo string) (*ledger.Transaction, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "reverse",
		telemetry.WithAttribute(telemetry.SpanAttrTransactionID, transactionID.String()))
	defer span.End()

	original, err := repos.Transactions().FindByIDForUpdate(ctx, transactionID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	reversal, err := original.Reverse(time.Now(), memo)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := repos.Transactions().Create(ctx, reversal); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to create reversal: %w", err)
	}
	e.metrics.RecordReversal(ctx)

	logger.WithTraceContext(ctx, e.logger).Info("ledger transaction reversed",
		zap.String("original_id", original.ID.String()),
		zap.String("reversal_id", reversal.ID.String()),
	)
	return reversal, nil
}

func (e *Engine) checkAccounts(ctx context.Context, accounts ledger.AccountRepository, txn *ledger.Transaction) error {
	ids := txn.AccountIDs()
	found, err := accounts.FindByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to load accounts: %w", err)
	}
	byID := make(map[uuid.UUID]*ledger.Account, len(found))
	for i := range found {
		byID[found[i].ID] = &found[i]
	}
	for _, id := range ids {
		account, ok := byID[id]
		if !ok {
			return shared.NewDomainError(shared.CodeInvalidAccount, "Account "+id.String()+" does not exist")
		}
		if err := account.CanPost(txn.Currency); err != nil {
			return err
		}
	}
	return nil
}
