package service

import (
	"fmt"
	"regexp"

	"github.com/avelis/commodex/internal/domain"
	"github.com/avelis/commodex/internal/ledger"
	"github.com/avelis/commodex/internal/sim"
)

var companyIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// ValidCompanyTypes lists the accepted company type values.
var ValidCompanyTypes = map[string]bool{
	"producer": true,
	"consumer": true,
	"trader":   true,
}

// CreateCompanyRequest represents the input for company creation.
type CreateCompanyRequest struct {
	ID            string
	Type          string
	StartingCash  int64
	InitialStocks map[string]int64
}

// CompanyService handles company creation and inventory reads.
type CompanyService struct {
	manager *sim.Manager
	goods   *domain.GoodRegistry
}

// NewCompanyService creates a new CompanyService.
func NewCompanyService(manager *sim.Manager, goods *domain.GoodRegistry) *CompanyService {
	return &CompanyService{
		manager: manager,
		goods:   goods,
	}
}

// CreateCompany validates the request and opens a ledger account.
func (s *CompanyService) CreateCompany(req CreateCompanyRequest) error {
	if !companyIDRegex.MatchString(req.ID) {
		return &domain.ValidationError{
			Message: "company_id must match ^[a-zA-Z0-9_-]{1,64}$",
		}
	}
	if !ValidCompanyTypes[req.Type] {
		return &domain.ValidationError{
			Message: fmt.Sprintf("Unknown company type: %s. Must be one of: producer, consumer, trader", req.Type),
		}
	}
	if req.StartingCash < 0 {
		return &domain.ValidationError{
			Message: "starting_cash must be >= 0",
		}
	}
	for goodID, qty := range req.InitialStocks {
		if !s.goods.Exists(goodID) {
			return domain.ErrGoodNotFound
		}
		if qty < 0 {
			return &domain.ValidationError{
				Message: fmt.Sprintf("initial stock for %s must be >= 0", goodID),
			}
		}
	}

	return s.manager.CreateCompany(req.ID, req.Type, req.StartingCash, req.InitialStocks)
}

// GetInventory returns the company's holdings valued at current market
// prices.
func (s *CompanyService) GetInventory(companyID string) (*ledger.InventorySnapshot, error) {
	return s.manager.Inventory(companyID)
}
