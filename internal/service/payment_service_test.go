package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/drive-admin-api/internal/models"
	appErrors "github.com/noah-isme/drive-admin-api/pkg/errors"
)

func TestPaymentServiceStudentViewFallsBackToGlobal(t *testing.T) {
	store := newFakePayments()
	store.global = &models.GlobalPaymentConfig{ID: models.GlobalPaymentID, Active: true, PaymentContact: models.PaymentContact{UPIID: strPtr("school@upi")}}
	svc := NewPaymentService(store, newFakeAccounts(studentAccount("u1")), &fakeImages{}, NewValidator(), zap.NewNop())

	view, err := svc.StudentView(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, view.IsUsingGlobal)
	assert.Equal(t, "school@upi", *view.UPIID)
}

func TestPaymentServiceStudentViewPersistenceFailure(t *testing.T) {
	store := newFakePayments()
	store.globalErr = errors.New("dial tcp")
	svc := NewPaymentService(store, newFakeAccounts(studentAccount("u1")), &fakeImages{}, nil, nil)

	_, err := svc.StudentView(context.Background(), "u1")
	assert.True(t, errors.Is(err, appErrors.ErrPersistence))
}

func TestPaymentServiceUpdateLedgerDerivesStatus(t *testing.T) {
	store := newFakePayments()
	svc := NewPaymentService(store, newFakeAccounts(studentAccount("u1")), &fakeImages{}, NewValidator(), zap.NewNop())
	ctx := context.Background()

	ledger, err := svc.UpdateLedger(ctx, "u1", models.UpdateLedgerRequest{PaidAmount: floatPtr(200), RemainingAmount: floatPtr(300)})
	require.NoError(t, err)
	assert.Equal(t, models.LedgerStatusPartial, ledger.Status)

	ledger, err = svc.UpdateLedger(ctx, "u1", models.UpdateLedgerRequest{RemainingAmount: floatPtr(0)})
	require.NoError(t, err)
	assert.Equal(t, 200.0, ledger.PaidAmount)
	assert.Equal(t, models.LedgerStatusPaid, ledger.Status)
	assert.Equal(t, models.LedgerStatusPaid, store.ledgers["u1"].Status)

	_, err = svc.UpdateLedger(ctx, "ghost", models.UpdateLedgerRequest{PaidAmount: floatPtr(1)})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = svc.UpdateLedger(ctx, "u1", models.UpdateLedgerRequest{PaidAmount: floatPtr(-1)})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestPaymentServiceGlobalSettings(t *testing.T) {
	store := newFakePayments()
	svc := NewPaymentService(store, newFakeAccounts(), &fakeImages{}, NewValidator(), zap.NewNop())
	ctx := context.Background()

	global, err := svc.Global(ctx)
	require.NoError(t, err)
	assert.False(t, global.Active)

	global, err = svc.UpdateGlobal(ctx, models.UpdateGlobalPaymentRequest{UPIID: strPtr("school@upi")})
	require.NoError(t, err)
	assert.True(t, global.Active)
	assert.Equal(t, models.GlobalPaymentID, store.global.ID)

	inactive := false
	global, err = svc.UpdateGlobal(ctx, models.UpdateGlobalPaymentRequest{Active: &inactive})
	require.NoError(t, err)
	assert.False(t, global.Active)
	assert.Equal(t, "school@upi", *global.UPIID)
}

func TestPaymentServiceUploadQRFailureLeavesSettings(t *testing.T) {
	store := newFakePayments()
	store.global = &models.GlobalPaymentConfig{ID: models.GlobalPaymentID, Active: true, PaymentContact: models.PaymentContact{QRImageURL: strPtr("/uploads/old.png")}}
	images := &fakeImages{err: errors.New("bucket unavailable")}
	svc := NewPaymentService(store, newFakeAccounts(), images, NewValidator(), zap.NewNop())

	_, err := svc.UploadGlobalQR(context.Background(), models.UploadImageRequest{Image: "data"})
	assert.True(t, errors.Is(err, appErrors.ErrUpstream))
	assert.Equal(t, "/uploads/old.png", *store.global.QRImageURL)

	images.err = nil
	images.url = "/uploads/payments/new.png"
	global, err := svc.UploadGlobalQR(context.Background(), models.UploadImageRequest{Image: "data"})
	require.NoError(t, err)
	assert.Equal(t, "/uploads/payments/new.png", *global.QRImageURL)
	assert.Equal(t, "payments", images.folder)
}
