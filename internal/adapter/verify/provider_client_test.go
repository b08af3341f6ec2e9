package verify_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/HamzaElshennawy/qrsystem-sub000/internal/adapter/verify"
	"github.com/HamzaElshennawy/qrsystem-sub000/internal/otp"
)

func TestStartVerification(t *testing.T) {
	var gotAuth, gotPhone string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/verifications", r.URL.Path)
		require.NoError(t, r.ParseForm())
		gotAuth = r.Header.Get("Authorization")
		gotPhone = r.PostForm.Get("phone")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"verification_id":"ver-123"}`))
	}))
	defer srv.Close()

	client := verify.NewHTTPProviderClient(srv.URL, "api-key", srv.Client())

	id, err := client.StartVerification(context.Background(), "01012345678")
	require.NoError(t, err)
	require.Equal(t, "ver-123", id)
	require.Equal(t, "Bearer api-key", gotAuth)
	require.Equal(t, "01012345678", gotPhone)
}

func TestStartVerificationMissingID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := verify.NewHTTPProviderClient(srv.URL, "", srv.Client())
	_, err := client.StartVerification(context.Background(), "01012345678")
	require.Error(t, err)
}

func TestCheckVerificationOutcomes(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		invalid bool
		failed  bool
	}{
		{"accepted", http.StatusOK, false, false},
		{"wrong code", http.StatusUnprocessableEntity, true, false},
		{"expired", http.StatusNotFound, true, false},
		{"provider down", http.StatusBadGateway, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, "/v1/verifications/check", r.URL.Path)
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			client := verify.NewHTTPProviderClient(srv.URL, "", srv.Client())
			err := client.CheckVerification(context.Background(), "ver-123", "123456")

			switch {
			case tt.invalid:
				require.ErrorIs(t, err, otp.ErrInvalidCode)
			case tt.failed:
				require.Error(t, err)
				require.NotErrorIs(t, err, otp.ErrInvalidCode)
			default:
				require.NoError(t, err)
			}
		})
	}
}
