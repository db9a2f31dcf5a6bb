package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/drive-admin-api/internal/models"
	appErrors "github.com/noah-isme/drive-admin-api/pkg/errors"
)

type accountReader interface {
	FindByID(ctx context.Context, id string) (*models.Account, error)
	List(ctx context.Context, filter models.AccountFilter) ([]models.Account, error)
}

// AccountService exposes account listings to administrators.
type AccountService struct {
	repo   accountReader
	logger *zap.Logger
}

// NewAccountService creates an instance of AccountService.
func NewAccountService(repo accountReader, logger *zap.Logger) *AccountService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountService{repo: repo, logger: logger}
}

// List returns accounts matching filter.
func (s *AccountService) List(ctx context.Context, filter models.AccountFilter) ([]models.AccountInfo, error) {
	if filter.Role != nil && *filter.Role != models.RoleStudent && *filter.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown role")
	}
	accounts, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to list accounts")
	}
	infos := make([]models.AccountInfo, 0, len(accounts))
	for _, account := range accounts {
		infos = append(infos, account.Info())
	}
	return infos, nil
}

// Get returns one account.
func (s *AccountService) Get(ctx context.Context, id string) (*models.AccountInfo, error) {
	account, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "account not found")
		}
		return nil, appErrors.Persistence(err, "failed to load account")
	}
	info := account.Info()
	return &info, nil
}
