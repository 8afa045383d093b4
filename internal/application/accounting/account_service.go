package accounting

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/fiscal/internal/domain/accounting"
	"github.com/erp/fiscal/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AccountService manages the chart of accounts
type AccountService struct {
	accountRepo    accounting.AccountRepository
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewAccountService creates a new AccountService
func NewAccountService(accountRepo accounting.AccountRepository, logger *zap.Logger) *AccountService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountService{accountRepo: accountRepo, logger: logger}
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *AccountService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Create adds an account. An empty code is numbered after the highest code of the type.
func (s *AccountService) Create(ctx context.Context, tenantID uuid.UUID, req CreateAccountRequest) (*AccountResponse, error) {
	accountType := accounting.AccountType(req.Type)
	if !accountType.IsValid() {
		return nil, shared.NewDomainError("INVALID_ACCOUNT_TYPE", fmt.Sprintf("Unknown account type %q", req.Type))
	}

	code := req.Code
	if code == "" {
		last, err := s.accountRepo.LastCodeWithPrefix(ctx, tenantID, accountType.Prefix())
		if err != nil {
			return nil, fmt.Errorf("failed to read last account code: %w", err)
		}
		if code, err = accounting.NextAccountCode(accountType, last); err != nil {
			return nil, err
		}
	} else if err := s.ensureCodeFree(ctx, tenantID, code); err != nil {
		return nil, err
	}

	account, err := accounting.NewAccount(tenantID, code, req.Name, accountType)
	if err != nil {
		return nil, err
	}
	account.Description = req.Description
	if req.ParentID != nil {
		parent, err := s.accountRepo.FindByIDForTenant(ctx, tenantID, *req.ParentID)
		if err != nil {
			return nil, err
		}
		if err := account.SetParent(parent); err != nil {
			return nil, err
		}
	}

	if err := s.accountRepo.Save(ctx, account); err != nil {
		return nil, err
	}
	PublishEvents(ctx, s.eventPublisher, s.logger, account)

	response := ToAccountResponse(account)
	return &response, nil
}

func (s *AccountService) ensureCodeFree(ctx context.Context, tenantID uuid.UUID, code string) error {
	_, err := s.accountRepo.FindByCode(ctx, tenantID, code)
	if err == nil {
		return shared.NewDomainError("ALREADY_EXISTS", fmt.Sprintf("Account code %s already exists", code))
	}
	if errors.Is(err, shared.ErrNotFound) {
		return nil
	}
	return err
}

// Update renames an editable account or moves it under another parent
func (s *AccountService) Update(ctx context.Context, tenantID, id uuid.UUID, req UpdateAccountRequest) (*AccountResponse, error) {
	account, err := s.accountRepo.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if err := account.Update(req.Name, req.Description); err != nil {
		return nil, err
	}
	if req.ParentID != nil {
		parent, err := s.accountRepo.FindByIDForTenant(ctx, tenantID, *req.ParentID)
		if err != nil {
			return nil, err
		}
		if err := account.SetParent(parent); err != nil {
			return nil, err
		}
	}
	if err := s.accountRepo.Save(ctx, account); err != nil {
		return nil, err
	}
	response := ToAccountResponse(account)
	return &response, nil
}

// GetByID returns an account
func (s *AccountService) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*AccountResponse, error) {
	account, err := s.accountRepo.FindByIDForTenant(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	response := ToAccountResponse(account)
	return &response, nil
}

// GetByCode returns an account by code
func (s *AccountService) GetByCode(ctx context.Context, tenantID uuid.UUID, code string) (*AccountResponse, error) {
	account, err := s.accountRepo.FindByCode(ctx, tenantID, code)
	if err != nil {
		return nil, err
	}
	response := ToAccountResponse(account)
	return &response, nil
}

// List returns a page of the chart of accounts
func (s *AccountService) List(ctx context.Context, tenantID uuid.UUID, filter AccountListFilter) (*shared.Paginated[AccountResponse], error) {
	domainFilter := accounting.AccountFilter{
		Filter: shared.Filter{
			Page:     filter.Page,
			PageSize: filter.PageSize,
			OrderBy:  filter.OrderBy,
			OrderDir: filter.OrderDir,
			Search:   filter.Search,
		}.Normalize(),
		IsSystem: filter.IsSystem,
	}
	if filter.Type != "" {
		t := accounting.AccountType(filter.Type)
		domainFilter.Type = &t
	}

	accounts, err := s.accountRepo.FindAllForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, err
	}
	total, err := s.accountRepo.CountForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, err
	}
	items := make([]AccountResponse, len(accounts))
	for i := range accounts {
		items[i] = ToAccountResponse(&accounts[i])
	}
	result := shared.NewPaginated(items, total, domainFilter.Page, domainFilter.PageSize)
	return &result, nil
}

// EnsureSystemAccounts provisions every system account the ledger posts to
func (s *AccountService) EnsureSystemAccounts(ctx context.Context, tenantID uuid.UUID) ([]AccountResponse, error) {
	accounts, err := ResolveSystemAccounts(ctx, s.accountRepo, tenantID, accounting.SystemAccounts...)
	if err != nil {
		return nil, err
	}
	out := make([]AccountResponse, len(accounts))
	for i, a := range accounts {
		out[i] = ToAccountResponse(a)
	}
	return out, nil
}

// Seed creates the accounts of a seed file that do not exist yet. Parents are
// referenced by code and must appear earlier in the file or already exist.
func (s *AccountService) Seed(ctx context.Context, tenantID uuid.UUID, seed []SeedAccount) (*SeedResult, error) {
	result := &SeedResult{Created: []string{}, Skipped: []string{}}
	for _, item := range seed {
		_, err := s.accountRepo.FindByCode(ctx, tenantID, item.Code)
		if err == nil {
			result.Skipped = append(result.Skipped, item.Code)
			continue
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}

		accountType := accounting.AccountType(item.Type)
		if item.Type == "" {
			accountType, _ = accounting.AccountTypeFromCode(item.Code)
		}
		account, err := accounting.NewAccount(tenantID, item.Code, item.Name, accountType)
		if err != nil {
			return nil, fmt.Errorf("account %s: %w", item.Code, err)
		}
		account.Description = item.Description
		if item.Parent != "" {
			parent, err := s.accountRepo.FindByCode(ctx, tenantID, item.Parent)
			if err != nil {
				return nil, fmt.Errorf("parent %s of account %s: %w", item.Parent, item.Code, err)
			}
			if err := account.SetParent(parent); err != nil {
				return nil, err
			}
		}
		if err := s.accountRepo.Save(ctx, account); err != nil {
			return nil, err
		}
		PublishEvents(ctx, s.eventPublisher, s.logger, account)
		result.Created = append(result.Created, item.Code)
	}

	s.logger.Info("chart of accounts seeded",
		zap.String("tenant_id", tenantID.String()),
		zap.Int("created", len(result.Created)),
		zap.Int("skipped", len(result.Skipped)),
	)
	return result, nil
}
