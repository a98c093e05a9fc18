package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// WalletClient talks to the wallet service to place funds holds
type WalletClient struct {
	baseURL       string
	internalToken string
	httpClient    HTTPDoer
}

// NewWalletClient creates a new WalletClient
func NewWalletClient(baseURL, internalToken string, httpClient HTTPDoer) *WalletClient {
	return &WalletClient{
		baseURL:       baseURL,
		internalToken: internalToken,
		httpClient:    httpClient,
	}
}

// CreateHold places a hold of amount against the owner's wallet and returns
// the hold id. The hold is owned by the wallet service; the booking only
// stores the returned reference.
func (c *WalletClient) CreateHold(ctx context.Context, ownerID, referenceID string, amount int64) (string, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"ownerId":     ownerID,
		"referenceId": referenceID,
		"amount":      amount,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.baseURL + "/holds"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(internalTokenHeader, c.internalToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("wallet service call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", &StatusError{Service: "wallet", StatusCode: resp.StatusCode}
	}

	var hold struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&hold); err != nil {
		return "", fmt.Errorf("failed to decode hold response: %w", err)
	}
	if hold.ID == "" {
		return "", fmt.Errorf("wallet service returned empty hold id")
	}
	return hold.ID, nil
}
