package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/drive-admin-api/internal/models"
	appErrors "github.com/noah-isme/drive-admin-api/pkg/errors"
)

type paymentStore interface {
	FindLedger(ctx context.Context, userID string) (*models.StudentLedger, error)
	CreateLedger(ctx context.Context, ledger *models.StudentLedger) error
	UpdateLedger(ctx context.Context, ledger *models.StudentLedger) error
	GetGlobal(ctx context.Context) (*models.GlobalPaymentConfig, error)
	SaveGlobal(ctx context.Context, cfg *models.GlobalPaymentConfig) error
}

// imageStore persists an uploaded image and returns its public URL.
type imageStore interface {
	Store(ctx context.Context, folder string, payload []byte) (string, error)
}

// PaymentService exposes student ledgers and the global payment settings.
type PaymentService struct {
	store     paymentStore
	accounts  accountLookup
	images    imageStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPaymentService constructs a payment service.
func NewPaymentService(store paymentStore, accounts accountLookup, images imageStore, validate *validator.Validate, logger *zap.Logger) *PaymentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	return &PaymentService{store: store, accounts: accounts, images: images, validator: validate, logger: logger}
}

// StudentView merges the student's ledger with the global contact details.
func (s *PaymentService) StudentView(ctx context.Context, userID string) (*models.PaymentView, error) {
	var (
		ledger *models.StudentLedger
		global *models.GlobalPaymentConfig
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		ledger, err = findOptional(gctx, s.store.FindLedger, userID)
		return err
	})
	g.Go(func() (err error) {
		global, err = s.loadGlobal(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, appErrors.Persistence(err, "failed to load payment details")
	}
	view := MergePaymentView(userID, ledger, global)
	return &view, nil
}

// UpdateLedger applies an admin patch, creating the ledger when absent.
func (s *PaymentService) UpdateLedger(ctx context.Context, userID string, req models.UpdateLedgerRequest) (*models.StudentLedger, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid ledger payload")
	}
	if _, err := s.accounts.FindByID(ctx, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Persistence(err, "failed to load account")
	}

	ledger, err := findOptional(ctx, s.store.FindLedger, userID)
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to load ledger")
	}
	create := ledger == nil
	if create {
		ledger = &models.StudentLedger{UserID: userID}
	}
	if req.PaidAmount != nil {
		ledger.PaidAmount = *req.PaidAmount
	}
	if req.RemainingAmount != nil {
		ledger.RemainingAmount = *req.RemainingAmount
	}
	if req.UPIID != nil {
		ledger.UPIID = req.UPIID
	}
	if req.Phone != nil {
		ledger.Phone = req.Phone
	}
	ledger.Status = LedgerStatusFor(ledger.PaidAmount, ledger.RemainingAmount)

	if create {
		err = s.store.CreateLedger(ctx, ledger)
	} else {
		err = s.store.UpdateLedger(ctx, ledger)
	}
	if err != nil {
		return nil, appErrors.WriteFailure(err, "failed to save ledger")
	}
	return ledger, nil
}

// Global returns the global settings, or an inactive empty value when never configured.
func (s *PaymentService) Global(ctx context.Context) (*models.GlobalPaymentConfig, error) {
	global, err := s.loadGlobal(ctx)
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to load payment settings")
	}
	if global == nil {
		return &models.GlobalPaymentConfig{ID: models.GlobalPaymentID}, nil
	}
	return global, nil
}

// UpdateGlobal patches the global settings. The first write activates them.
func (s *PaymentService) UpdateGlobal(ctx context.Context, req models.UpdateGlobalPaymentRequest) (*models.GlobalPaymentConfig, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid payment settings payload")
	}
	global, err := s.loadGlobal(ctx)
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to load payment settings")
	}
	if global == nil {
		global = &models.GlobalPaymentConfig{Active: true}
	}
	if req.UPIID != nil {
		global.UPIID = req.UPIID
	}
	if req.Phone != nil {
		global.Phone = req.Phone
	}
	if req.Active != nil {
		global.Active = *req.Active
	}
	if err := s.store.SaveGlobal(ctx, global); err != nil {
		return nil, appErrors.Persistence(err, "failed to save payment settings")
	}
	return global, nil
}

// UploadGlobalQR stores a QR image and points the global settings at it.
// A failed upload leaves the settings untouched.
func (s *PaymentService) UploadGlobalQR(ctx context.Context, req models.UploadImageRequest) (*models.GlobalPaymentConfig, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid image payload")
	}
	url, err := s.images.Store(ctx, "payments", []byte(req.Image))
	if err != nil {
		return nil, appErrors.Upstream(err, "failed to store QR image")
	}
	global, err := s.loadGlobal(ctx)
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to load payment settings")
	}
	if global == nil {
		global = &models.GlobalPaymentConfig{Active: true}
	}
	global.QRImageURL = &url
	if err := s.store.SaveGlobal(ctx, global); err != nil {
		return nil, appErrors.Persistence(err, "failed to save payment settings")
	}
	return global, nil
}

func (s *PaymentService) loadGlobal(ctx context.Context) (*models.GlobalPaymentConfig, error) {
	global, err := s.store.GetGlobal(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return global, nil
}
