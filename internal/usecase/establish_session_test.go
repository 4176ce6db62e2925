package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rodrigoscoelho/mcp-anywhere-sub002/internal/domain"
	"github.com/rodrigoscoelho/mcp-anywhere-sub002/internal/usecase"
)

func TestEstablishSessionUseCase_Execute(t *testing.T) {
	ctx := context.Background()
	logger := testLogger()

	t.Run("Success - session returned as is", func(t *testing.T) {
		want := domain.Session{ID: "sess-42", ProtocolVersion: "2025-03-26", EstablishedAt: time.Now()}

		transport := new(MockSessionTransport)
		transport.On("Establish", mock.Anything).Return(want, nil).Once()

		uc := usecase.NewEstablishSessionUseCase(transport, logger)
		got, err := uc.Execute(ctx)

		require.NoError(t, err)
		assert.Equal(t, want, got)
		transport.AssertExpectations(t)
	})

	t.Run("Failure - handshake error passed through", func(t *testing.T) {
		hsErr := &domain.HandshakeError{Reason: "initialize response carried no Mcp-Session-Id header"}

		transport := new(MockSessionTransport)
		transport.On("Establish", mock.Anything).Return(domain.Session{}, hsErr).Once()

		uc := usecase.NewEstablishSessionUseCase(transport, logger)
		_, err := uc.Execute(ctx)

		var gotErr *domain.HandshakeError
		require.ErrorAs(t, err, &gotErr)
		assert.Same(t, hsErr, gotErr)
		transport.AssertExpectations(t)
	})

	t.Run("Failure - plain transport error wrapped as handshake error", func(t *testing.T) {
		cause := errors.New("connection refused")

		transport := new(MockSessionTransport)
		transport.On("Establish", mock.Anything).Return(domain.Session{}, cause).Once()

		uc := usecase.NewEstablishSessionUseCase(transport, logger)
		_, err := uc.Execute(ctx)

		var gotErr *domain.HandshakeError
		require.ErrorAs(t, err, &gotErr)
		assert.ErrorIs(t, err, cause)
		transport.AssertExpectations(t)
	})
}

func TestEstablishSessionUseCase_Terminate(t *testing.T) {
	ctx := context.Background()
	logger := testLogger()
	session := domain.Session{ID: "sess-42", EstablishedAt: time.Now()}

	t.Run("terminates a valid session", func(t *testing.T) {
		transport := new(MockSessionTransport)
		transport.On("Terminate", mock.Anything, session).Return(nil).Once()

		usecase.NewEstablishSessionUseCase(transport, logger).Terminate(ctx, session)
		transport.AssertExpectations(t)
	})

	t.Run("swallows downstream failures", func(t *testing.T) {
		transport := new(MockSessionTransport)
		transport.On("Terminate", mock.Anything, session).Return(errors.New("gone")).Once()

		usecase.NewEstablishSessionUseCase(transport, logger).Terminate(ctx, session)
		transport.AssertExpectations(t)
	})

	t.Run("skips invalid sessions", func(t *testing.T) {
		transport := new(MockSessionTransport)
		usecase.NewEstablishSessionUseCase(transport, logger).Terminate(ctx, domain.Session{})
		transport.AssertExpectations(t) // Terminate never called
	})
}
