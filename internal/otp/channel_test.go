package otp_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/HamzaElshennawy/qrsystem-sub000/internal/otp"
)

type fakeProvider struct {
	startedPhone string
	checkedID    string
	checkedCode  string
	checkErr     error
}

func (p *fakeProvider) StartVerification(_ context.Context, phone string) (string, error) {
	p.startedPhone = phone
	return "verification-1", nil
}

func (p *fakeProvider) CheckVerification(_ context.Context, providerID, code string) error {
	p.checkedID = providerID
	p.checkedCode = code
	return p.checkErr
}

type fakeHandleStore struct {
	saved map[string]otp.PendingVerification
}

func newFakeHandleStore() *fakeHandleStore {
	return &fakeHandleStore{saved: make(map[string]otp.PendingVerification)}
}

func (s *fakeHandleStore) Save(_ context.Context, handle string, pending otp.PendingVerification, _ time.Duration) error {
	s.saved[handle] = pending
	return nil
}

func (s *fakeHandleStore) Get(_ context.Context, handle string) (*otp.PendingVerification, error) {
	pending, ok := s.saved[handle]
	if !ok {
		return nil, nil
	}
	return &pending, nil
}

func (s *fakeHandleStore) Delete(_ context.Context, handle string) error {
	delete(s.saved, handle)
	return nil
}

func TestProviderChannelSendAndConfirm(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{}
	handles := newFakeHandleStore()
	channel := otp.NewProviderChannel(provider, handles, time.Minute, zap.NewNop())

	handle, err := channel.Send(ctx, "01012345678")
	require.NoError(t, err)
	require.NotEmpty(t, handle)
	require.Equal(t, "01012345678", provider.startedPhone)

	require.NoError(t, channel.Confirm(ctx, handle, "123456"))
	require.Equal(t, "verification-1", provider.checkedID)
	require.Equal(t, "123456", provider.checkedCode)

	// Confirmed handles are consumed.
	require.ErrorIs(t, channel.Confirm(ctx, handle, "123456"), otp.ErrInvalidCode)
}

func TestProviderChannelConfirmUnknownHandle(t *testing.T) {
	channel := otp.NewProviderChannel(&fakeProvider{}, newFakeHandleStore(), time.Minute, zap.NewNop())
	err := channel.Confirm(context.Background(), "never-issued", "123456")
	require.ErrorIs(t, err, otp.ErrInvalidCode)
}

func TestProviderChannelConfirmWrongCode(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{checkErr: otp.ErrInvalidCode}
	handles := newFakeHandleStore()
	channel := otp.NewProviderChannel(provider, handles, time.Minute, zap.NewNop())

	handle, err := channel.Send(ctx, "01012345678")
	require.NoError(t, err)

	require.ErrorIs(t, channel.Confirm(ctx, handle, "000000"), otp.ErrInvalidCode)

	// A failed check does not consume the handle; the right code still works.
	provider.checkErr = nil
	require.NoError(t, channel.Confirm(ctx, handle, "123456"))
}

func TestMemoryChannel(t *testing.T) {
	ctx := context.Background()
	channel := otp.NewMemoryChannel()

	handle, err := channel.Send(ctx, "01012345678")
	require.NoError(t, err)

	phone, ok := channel.Phone(handle)
	require.True(t, ok)
	require.Equal(t, "01012345678", phone)

	require.ErrorIs(t, channel.Confirm(ctx, handle, "999999"), otp.ErrInvalidCode)
	require.NoError(t, channel.Confirm(ctx, handle, otp.DefaultTestCode))
	require.ErrorIs(t, channel.Confirm(ctx, handle, otp.DefaultTestCode), otp.ErrInvalidCode)

	require.True(t, errors.Is(channel.Confirm(ctx, "unknown", otp.DefaultTestCode), otp.ErrInvalidCode))
}
