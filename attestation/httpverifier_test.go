package attestation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPVerifierGetCardInfo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/card-info", r.URL.Path)
		assert.Equal(t, "CB7100000042", r.URL.Query().Get("cid"))
		assert.Equal(t, "0411", r.URL.Query().Get("pub"))

		json.NewEncoder(w).Encode(cardInfoResponse{
			CardID:    "CB7100000042",
			PublicKey: "0411",
			BatchID:   "B-17",
			Issuer:    "acme",
			Verified:  true,
		})
	}))
	defer server.Close()

	record, err := NewHTTPVerifier(server.URL).GetCardInfo(context.Background(), "CB7100000042", []byte{0x04, 0x11})
	require.NoError(t, err)

	assert.Equal(t, "CB7100000042", record.CardID)
	assert.Equal(t, []byte{0x04, 0x11}, record.PublicKey)
	assert.Equal(t, "B-17", record.BatchID)
	assert.Equal(t, "acme", record.Issuer)
}

func TestHTTPVerifierUnknownCard(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	_, err := NewHTTPVerifier(server.URL).GetCardInfo(context.Background(), "CB71", nil)
	assert.ErrorIs(t, err, ErrCardVerificationFailed)
}

func TestHTTPVerifierNotVerified(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(cardInfoResponse{CardID: "CB71", Verified: false})
	}))
	defer server.Close()

	_, err := NewHTTPVerifier(server.URL).GetCardInfo(context.Background(), "CB71", nil)
	assert.ErrorIs(t, err, ErrCardVerificationFailed)
}

func TestHTTPVerifierServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := NewHTTPVerifier(server.URL).GetCardInfo(context.Background(), "CB71", nil)

	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
}

func TestHTTPVerifierUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	_, err := NewHTTPVerifier(server.URL).GetCardInfo(context.Background(), "CB71", nil)

	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
}
