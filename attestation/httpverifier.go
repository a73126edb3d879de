package attestation

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// HTTPVerifier looks cards up in a verification service over HTTP.
type HTTPVerifier struct {
	baseURL string
	client  *http.Client
}

func NewHTTPVerifier(baseURL string) *HTTPVerifier {
	return &HTTPVerifier{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type cardInfoResponse struct {
	CardID    string `json:"card_id"`
	PublicKey string `json:"public_key"`
	BatchID   string `json:"batch_id"`
	Issuer    string `json:"issuer"`
	Verified  bool   `json:"verified"`
}

// GetCardInfo implements Verifier. Transport-level failures come back as
// *NetworkError; a negative answer from the service is a verification
// failure.
func (v *HTTPVerifier) GetCardInfo(ctx context.Context, cardID string, cardPublicKey []byte) (*VerificationRecord, error) {
	query := url.Values{}
	query.Set("cid", cardID)
	query.Set("pub", hex.EncodeToString(cardPublicKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+"/card-info?"+query.Encode(), nil)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrCardVerificationFailed
	case resp.StatusCode != http.StatusOK:
		return nil, &NetworkError{Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	var info cardInfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, &NetworkError{Err: err}
	}

	if !info.Verified {
		return nil, ErrCardVerificationFailed
	}

	publicKey, err := hex.DecodeString(info.PublicKey)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}

	return &VerificationRecord{
		CardID:    info.CardID,
		PublicKey: publicKey,
		BatchID:   info.BatchID,
		Issuer:    info.Issuer,
	}, nil
}
