package usecase_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rodrigoscoelho/mcp-anywhere-sub002/internal/domain"
	"github.com/rodrigoscoelho/mcp-anywhere-sub002/internal/usecase"
	"github.com/rodrigoscoelho/mcp-anywhere-sub002/pkg/shared/mcpwire"
)

// MockSessionTransport is a mock implementation of the SessionTransport
// interface, shared by the use case tests in this package.
type MockSessionTransport struct {
	mock.Mock
}

func (m *MockSessionTransport) Establish(ctx context.Context) (domain.Session, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.Session), args.Error(1)
}

func (m *MockSessionTransport) Terminate(ctx context.Context, session domain.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionTransport) ListTools(ctx context.Context, session domain.Session) ([]domain.ToolDescriptor, error) {
	args := m.Called(ctx, session)
	if v := args.Get(0); v != nil {
		return v.([]domain.ToolDescriptor), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSessionTransport) CallTool(ctx context.Context, session domain.Session, name string, params map[string]interface{}) (*mcpwire.Response, error) {
	args := m.Called(ctx, session, name, params)
	if v := args.Get(0); v != nil {
		return v.(*mcpwire.Response), args.Error(1)
	}
	return nil, args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestInvokeToolUseCase_Execute(t *testing.T) {
	ctx := context.Background()
	logger := testLogger()

	session := domain.Session{ID: "sess-1", ProtocolVersion: "2025-03-26", EstablishedAt: time.Now()}
	toolName := "weather__get_forecast"
	inputArgs := map[string]interface{}{"city": "Lisbon"}
	successPayload := json.RawMessage(`{"content":[{"type":"text","text":"sunny"}]}`)

	const timeout = 5 * time.Second

	tests := []struct {
		name        string
		session     domain.Session
		mockSetup   func(*MockSessionTransport)
		wantStatus  domain.InvocationStatus
		wantCode    string
		wantPayload json.RawMessage
		wantDSCode  int
	}{
		{
			name:    "Success - result envelope",
			session: session,
			mockSetup: func(tr *MockSessionTransport) {
				tr.On("CallTool", mock.Anything, session, toolName, inputArgs).
					Return(&mcpwire.Response{Version: mcpwire.Version, Result: successPayload, ID: "1"}, nil).Once()
			},
			wantStatus:  domain.StatusSuccess,
			wantPayload: successPayload,
		},
		{
			name:    "Error - downstream error envelope",
			session: session,
			mockSetup: func(tr *MockSessionTransport) {
				tr.On("CallTool", mock.Anything, session, toolName, inputArgs).
					Return(&mcpwire.Response{
						Version: mcpwire.Version,
						Error:   &mcpwire.Error{Code: mcpwire.CodeServerErrorToolFailed, Message: "boom"},
						ID:      "1",
					}, nil).Once()
			},
			wantStatus: domain.StatusError,
			wantCode:   domain.CodeDownstreamError,
			wantDSCode: mcpwire.CodeServerErrorToolFailed,
		},
		{
			name:    "Error - envelope with neither result nor error",
			session: session,
			mockSetup: func(tr *MockSessionTransport) {
				tr.On("CallTool", mock.Anything, session, toolName, inputArgs).
					Return(&mcpwire.Response{Version: mcpwire.Version, ID: "1"}, nil).Once()
			},
			wantStatus: domain.StatusError,
			wantCode:   domain.CodeMalformedEnvelope,
		},
		{
			name:    "Error - downstream rejected accept header",
			session: session,
			mockSetup: func(tr *MockSessionTransport) {
				tr.On("CallTool", mock.Anything, session, toolName, inputArgs).
					Return(nil, usecase.ErrNotAcceptable).Once()
			},
			wantStatus: domain.StatusError,
			wantCode:   domain.CodeNotAcceptable,
		},
		{
			name:    "Error - downstream forgot the session",
			session: session,
			mockSetup: func(tr *MockSessionTransport) {
				tr.On("CallTool", mock.Anything, session, toolName, inputArgs).
					Return(nil, usecase.ErrNoSession).Once()
			},
			wantStatus: domain.StatusError,
			wantCode:   domain.CodeNoSession,
		},
		{
			name:    "Error - unparseable reply",
			session: session,
			mockSetup: func(tr *MockSessionTransport) {
				tr.On("CallTool", mock.Anything, session, toolName, inputArgs).
					Return(nil, usecase.ErrMalformedEnvelope).Once()
			},
			wantStatus: domain.StatusError,
			wantCode:   domain.CodeMalformedEnvelope,
		},
		{
			name:       "Error - no session established, transport never called",
			session:    domain.Session{},
			mockSetup:  func(tr *MockSessionTransport) {},
			wantStatus: domain.StatusError,
			wantCode:   domain.CodeNoSession,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := new(MockSessionTransport)
			tt.mockSetup(transport)

			uc := usecase.NewInvokeToolUseCase(transport, timeout, logger)
			result := uc.Execute(ctx, tt.session, toolName, inputArgs)

			assert.Equal(t, tt.wantStatus, result.Status)
			assert.Equal(t, tt.wantCode, result.Code)
			assert.Equal(t, toolName, result.Tool)
			if tt.wantPayload != nil {
				assert.JSONEq(t, string(tt.wantPayload), string(result.Payload))
			}
			if tt.wantDSCode != 0 {
				assert.Equal(t, tt.wantDSCode, result.DownstreamCode)
			}

			// Duration and timestamp are always reported, bounded by the timeout.
			assert.GreaterOrEqual(t, result.Duration, time.Duration(0))
			assert.LessOrEqual(t, result.Duration, timeout)
			assert.False(t, result.Timestamp.IsZero())

			transport.AssertExpectations(t)
		})
	}
}

func TestInvokeToolUseCase_Timeout(t *testing.T) {
	logger := testLogger()
	session := domain.Session{ID: "sess-1", EstablishedAt: time.Now()}

	const timeout = 60 * time.Millisecond

	transport := new(MockSessionTransport)
	transport.On("CallTool", mock.Anything, session, "slow_tool", mock.Anything).
		Run(func(args mock.Arguments) {
			ctx := args.Get(0).(context.Context)
			<-ctx.Done() // hold the call until the invoke deadline fires
		}).
		Return(nil, context.DeadlineExceeded).Once()

	uc := usecase.NewInvokeToolUseCase(transport, timeout, logger)
	result := uc.Execute(context.Background(), session, "slow_tool", nil)

	require.Equal(t, domain.StatusError, result.Status)
	assert.Equal(t, domain.CodeTimeout, result.Code)
	assert.Empty(t, result.Payload, "no partial result may be retained")

	// Duration should land right around the configured timeout.
	assert.GreaterOrEqual(t, result.Duration, timeout)
	assert.Less(t, result.Duration, timeout+500*time.Millisecond)

	transport.AssertExpectations(t)
}

func TestInvokeToolUseCase_DefaultTimeout(t *testing.T) {
	uc := usecase.NewInvokeToolUseCase(new(MockSessionTransport), 0, testLogger())
	assert.Equal(t, usecase.DefaultInvokeTimeout, uc.Timeout())
}
