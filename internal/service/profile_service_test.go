package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/drive-admin-api/internal/models"
	appErrors "github.com/noah-isme/drive-admin-api/pkg/errors"
)

func TestProfileServiceGetReturnsEmptyProfile(t *testing.T) {
	store := newFakeProfiles()
	svc := NewProfileService(store, newFakeAccounts(studentAccount("u1")), &fakeImages{}, NewValidator(), zap.NewNop())

	profile, err := svc.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", profile.UserID)
	assert.Empty(t, store.items)

	_, err = svc.Get(context.Background(), "ghost")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestProfileServiceUpdateCreatesThenPatches(t *testing.T) {
	store := newFakeProfiles()
	svc := NewProfileService(store, newFakeAccounts(studentAccount("u1")), &fakeImages{}, NewValidator(), zap.NewNop())
	ctx := context.Background()

	_, err := svc.Update(ctx, "u1", models.UpdateProfileRequest{Phone: strPtr("900")})
	require.NoError(t, err)

	profile, err := svc.Update(ctx, "u1", models.UpdateProfileRequest{Address: strPtr("4 Hill St")})
	require.NoError(t, err)
	assert.Equal(t, "900", *profile.Phone)
	assert.Equal(t, "4 Hill St", *profile.Address)
	assert.Equal(t, "4 Hill St", *store.items["u1"].Address)
}

func TestProfileServiceUpdateVanishedRowIsNotFound(t *testing.T) {
	store := newFakeProfiles(models.Profile{ID: "p1", UserID: "u1"})
	store.updateErr = sql.ErrNoRows
	svc := NewProfileService(store, newFakeAccounts(studentAccount("u1")), &fakeImages{}, NewValidator(), zap.NewNop())

	_, err := svc.Update(context.Background(), "u1", models.UpdateProfileRequest{Phone: strPtr("901")})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestProfileServiceUploadImageFailureWritesNothing(t *testing.T) {
	store := newFakeProfiles(models.Profile{ID: "p1", UserID: "u1", Phone: strPtr("900")})
	images := &fakeImages{err: errors.New("encode failed")}
	svc := NewProfileService(store, newFakeAccounts(studentAccount("u1")), images, NewValidator(), zap.NewNop())

	_, err := svc.UploadImage(context.Background(), "u1", models.UploadImageRequest{Image: "data"})
	assert.True(t, errors.Is(err, appErrors.ErrUpstream))
	assert.Nil(t, store.items["u1"].ImageURL)
	assert.Equal(t, "900", *store.items["u1"].Phone)

	images.err = nil
	images.url = "/uploads/profiles/u1.webp"
	profile, err := svc.UploadImage(context.Background(), "u1", models.UploadImageRequest{Image: "data"})
	require.NoError(t, err)
	assert.Equal(t, "/uploads/profiles/u1.webp", *profile.ImageURL)
	assert.Equal(t, "profiles", images.folder)
}

func TestProfileServiceUploadImageValidates(t *testing.T) {
	images := &fakeImages{}
	svc := NewProfileService(newFakeProfiles(), newFakeAccounts(studentAccount("u1")), images, NewValidator(), zap.NewNop())

	_, err := svc.UploadImage(context.Background(), "u1", models.UploadImageRequest{})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	assert.Zero(t, images.calls)
}
