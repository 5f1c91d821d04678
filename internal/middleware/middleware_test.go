package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"connectrpc.com/connect"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/splitledger/internal/auth"
)

func TestRequireAuth(t *testing.T) {
	jwtManager := auth.NewJWTManager("secret", time.Hour)
	token, err := jwtManager.Generate("alice")
	require.NoError(t, err)

	var gotUser string
	handler := RequireAuth(jwtManager)(func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		gotUser = GetUserID(ctx)
		return connect.NewResponse(&struct{}{}), nil
	})

	tests := []struct {
		name   string
		header string
		want   string
		code   connect.Code
	}{
		{name: "valid token", header: "Bearer " + token, want: "alice"},
		{name: "missing header", code: connect.CodeUnauthenticated},
		{name: "wrong scheme", header: "Basic " + token, code: connect.CodeUnauthenticated},
		{name: "empty token", header: "Bearer ", code: connect.CodeUnauthenticated},
		{name: "bad token", header: "Bearer abc.def.ghi", code: connect.CodeUnauthenticated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotUser = ""
			req := connect.NewRequest(&struct{}{})
			if tt.header != "" {
				req.Header().Set("Authorization", tt.header)
			}

			_, err := handler(context.Background(), req)
			if tt.code != 0 {
				assert.Equal(t, tt.code, connect.CodeOf(err))
				assert.Empty(t, gotUser)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, gotUser)
		})
	}
}

func TestLoggingInterceptorPassesThrough(t *testing.T) {
	want := connect.NewError(connect.CodeNotFound, errors.New("expense x not found"))
	handler := LoggingInterceptor()(func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		return nil, want
	})

	_, err := handler(WithUserID(context.Background(), "alice"), connect.NewRequest(&struct{}{}))
	assert.Same(t, want, err)
}

func TestIsClientCode(t *testing.T) {
	assert.True(t, isClientCode(connect.CodeFailedPrecondition))
	assert.True(t, isClientCode(connect.CodePermissionDenied))
	assert.False(t, isClientCode(connect.CodeInternal))
	assert.False(t, isClientCode(connect.CodeUnavailable))
}

func TestRequestLogger(t *testing.T) {
	handler := chimw.RequestID(RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}
