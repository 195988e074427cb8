package inventory

import (
	"fmt"
	"sort"

	"github.com/erp/ledgerflow/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// FEFOPolicy controls how a delivery line without a lot is drawn
type FEFOPolicy string

const (
	// FEFOPolicySingleLot takes the whole quantity from one lot
	FEFOPolicySingleLot FEFOPolicy = "single_lot"
	// FEFOPolicySplit draws across lots in FEFO order
	FEFOPolicySplit FEFOPolicy = "split"
)

// IsValid checks if the policy is known
func (p FEFOPolicy) IsValid() bool {
	return p == FEFOPolicySingleLot || p == FEFOPolicySplit
}

// SortFEFO orders batches by expiry, earliest first. Batches without an
// expiry go last; ties fall back to the receipt time.
func SortFEFO(batches []Batch) {
	sort.SliceStable(batches, func(i, j int) bool {
		a, b := batches[i], batches[j]
		if a.ExpiryDate != nil && b.ExpiryDate != nil {
			if !a.ExpiryDate.Equal(*b.ExpiryDate) {
				return a.ExpiryDate.Before(*b.ExpiryDate)
			}
		} else if a.ExpiryDate != nil {
			return true
		} else if b.ExpiryDate != nil {
			return false
		}
		return a.ReceivedAt.Before(b.ReceivedAt)
	})
}

// SelectFEFO returns the earliest-expiring batch that can serve qty on its
// own. Lots that only partly cover the request are never combined.
func SelectFEFO(batches []Batch, qty decimal.Decimal) (*Batch, error) {
	if !qty.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Quantity must be positive")
	}

	eligible := make([]Batch, 0, len(batches))
	for _, b := range batches {
		if b.Covers(qty) {
			eligible = append(eligible, b)
		}
	}
	if len(eligible) == 0 {
		return nil, shared.NewDomainError(shared.CodeInsufficientStock,
			fmt.Sprintf("No single lot holds %s units", qty.String()))
	}

	SortFEFO(eligible)
	chosen := eligible[0]
	return &chosen, nil
}

// Draw is one lot's share of a split delivery
type Draw struct {
	Key      BatchKey
	Quantity decimal.Decimal
}

// PlanSplit spreads qty over batches in FEFO order. It fails without
// touching anything when the batches hold less than qty in total.
func PlanSplit(batches []Batch, qty decimal.Decimal) ([]Draw, error) {
	if !qty.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Quantity must be positive")
	}

	sorted := make([]Batch, 0, len(batches))
	for _, b := range batches {
		if b.HasStock() {
			sorted = append(sorted, b)
		}
	}
	SortFEFO(sorted)

	remaining := qty
	draws := make([]Draw, 0)
	for _, b := range sorted {
		if !remaining.IsPositive() {
			break
		}
		take := decimal.Min(b.Quantity, remaining)
		draws = append(draws, Draw{Key: b.Key(), Quantity: take})
		remaining = remaining.Sub(take)
	}

	if remaining.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeInsufficientStock,
			fmt.Sprintf("Short by %s units across all lots", remaining.String()))
	}
	return draws, nil
}
