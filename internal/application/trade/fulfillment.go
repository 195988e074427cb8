package trade

import (
	"context"

	appinv "github.com/erp/ledgerflow/internal/application/inventory"
	"github.com/erp/ledgerflow/internal/application/uow"
	"github.com/erp/ledgerflow/internal/domain/inventory"
	"github.com/erp/ledgerflow/internal/domain/shared"
	"github.com/erp/ledgerflow/internal/domain/trade"
	"github.com/erp/ledgerflow/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Deliver ships quantities of a confirmed sale invoice. Lines with a lot
// are taken from that lot; the rest follow the FEFO policy. The invoice
// becomes DELIVERED once every line is complete.
func (s *InvoiceService) Deliver(ctx context.Context, id uuid.UUID, reqs []trade.LineRequest) (*trade.Invoice, error) {
	return s.fulfill(ctx, id, trade.DocumentTypeSaleInvoice, func(inv *trade.Invoice) []trade.LineRequest { return reqs })
}

// DeliverAll ships everything still outstanding on a sale invoice
func (s *InvoiceService) DeliverAll(ctx context.Context, id uuid.UUID) (*trade.Invoice, error) {
	return s.fulfill(ctx, id, trade.DocumentTypeSaleInvoice, remainingRequests)
}

// Receive books goods of a confirmed purchase invoice into lots. Every
// request needs a lot code, from the request or the line.
func (s *InvoiceService) Receive(ctx context.Context, id uuid.UUID, reqs []trade.LineRequest) (*trade.Invoice, error) {
	return s.fulfill(ctx, id, trade.DocumentTypePurchaseInvoice, func(inv *trade.Invoice) []trade.LineRequest { return reqs })
}

// ReceiveAll receives everything still outstanding on a purchase invoice
// into the lots named on its lines
func (s *InvoiceService) ReceiveAll(ctx context.Context, id uuid.UUID) (*trade.Invoice, error) {
	return s.fulfill(ctx, id, trade.DocumentTypePurchaseInvoice, remainingRequests)
}

func remainingRequests(inv *trade.Invoice) []trade.LineRequest {
	reqs := make([]trade.LineRequest, 0, len(inv.Lines))
	for _, l := range inv.Lines {
		if l.Remaining().IsPositive() {
			reqs = append(reqs, trade.LineRequest{LineID: l.ID, Quantity: l.Remaining()})
		}
	}
	return reqs
}

func (s *InvoiceService) fulfill(ctx context.Context, id uuid.UUID, docType trade.DocumentType, requests func(*trade.Invoice) []trade.LineRequest) (*trade.Invoice, error) {
	method := "deliver"
	if docType == trade.DocumentTypePurchaseInvoice {
		method = "receive"
	}
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", method,
		telemetry.WithAttribute(telemetry.SpanAttrDocumentID, id.String()))
	defer span.End()

	var inv *trade.Invoice
	err := s.scope.ExecuteWithRetry(ctx, func(repos uow.TransactionalRepositories) error {
		var err error
		inv, err = repos.Invoices().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if inv.Type != docType {
			return shared.NewDomainError(shared.CodeInvalidInput, "Invoice "+inv.Number+" is a "+inv.Type.String())
		}
		reqs := requests(inv)
		if len(reqs) == 0 {
			return shared.NewDomainError(shared.CodeInvalidInput, "Nothing to fulfill")
		}
		for _, req := range reqs {
			line, err := inv.ValidateFulfillment(req)
			if err != nil {
				return err
			}
			if inv.IsSale() {
				err = s.deliverLine(ctx, repos, inv, line, req)
			} else {
				err = s.receiveLine(ctx, repos, inv, line, req)
			}
			if err != nil {
				return err
			}
		}
		inv.CompleteIfFulfilled()
		return repos.Invoices().Save(ctx, inv)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("invoice fulfilled",
		zap.String("number", inv.Number),
		zap.String("status", inv.Status.String()),
		zap.String("progress", string(inv.Progress())),
	)
	s.dispatcher.Dispatch(ctx, inv)
	return inv, nil
}

func (s *InvoiceService) deliverLine(ctx context.Context, repos uow.TransactionalRepositories, inv *trade.Invoice, line *trade.Line, req trade.LineRequest) error {
	source := stockSource(inv.Type, inv.ID)
	lot := req.LotCode
	if lot == "" {
		lot = line.LotCode
	}

	if lot != "" {
		key := inventory.NewBatchKey(line.ProductID, inv.WarehouseID, lot)
		if _, err := s.stock.ConsumeExact(ctx, repos, key, req.Quantity, false, source); err != nil {
			return err
		}
		return inv.RecordFulfillment(line.ID, key.LotCode, req.Quantity)
	}

	if s.stock.Policy() == inventory.FEFOPolicySplit {
		taken, err := s.stock.ConsumeSplit(ctx, repos, line.ProductID, inv.WarehouseID, req.Quantity, source)
		if err != nil {
			return err
		}
		for _, c := range taken {
			if err := inv.RecordFulfillment(line.ID, c.Batch.LotCode, c.Removed); err != nil {
				return err
			}
		}
		return nil
	}

	taken, err := s.stock.ConsumeFEFO(ctx, repos, line.ProductID, inv.WarehouseID, req.Quantity, source)
	if err != nil {
		return err
	}
	return inv.RecordFulfillment(line.ID, taken.Batch.LotCode, req.Quantity)
}

func (s *InvoiceService) receiveLine(ctx context.Context, repos uow.TransactionalRepositories, inv *trade.Invoice, line *trade.Line, req trade.LineRequest) error {
	lot := req.LotCode
	if lot == "" {
		lot = line.LotCode
	}
	if lot == "" {
		return shared.NewDomainError(shared.CodeInvalidInput, "A lot code is required to receive line "+line.ID.String())
	}
	expiry := req.ExpiryDate
	if expiry == nil {
		expiry = line.ExpiryDate
	}
	cost := line.UnitPrice
	if req.UnitCost != nil {
		cost = *req.UnitCost
	}

	key := inventory.NewBatchKey(line.ProductID, inv.WarehouseID, lot)
	source := stockSource(inv.Type, inv.ID)
	if receivedBefore(inv, line.ID, key.LotCode) {
		_, err := s.stock.Restore(ctx, repos, key, req.Quantity, appinv.RestoreOptions{
			ExpiryDate: expiry,
			UnitCost:   cost,
			Source:     source,
		})
		if err != nil {
			return err
		}
	} else {
		_, err := s.stock.Receive(ctx, repos, appinv.ReceiveRequest{
			ProductID:   line.ProductID,
			WarehouseID: inv.WarehouseID,
			LotCode:     key.LotCode,
			Quantity:    req.Quantity,
			UnitCost:    cost,
			ExpiryDate:  expiry,
			Source:      source,
		})
		if err != nil {
			return err
		}
	}
	return inv.RecordFulfillment(line.ID, key.LotCode, req.Quantity)
}

// receivedBefore reports whether the line already booked stock into lot
func receivedBefore(inv *trade.Invoice, lineID uuid.UUID, lot string) bool {
	for _, f := range inv.Fulfillments {
		if f.LineID == lineID && f.LotCode == lot {
			return true
		}
	}
	return false
}
