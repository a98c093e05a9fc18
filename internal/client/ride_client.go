package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// RideInfo represents ride data fetched from the ride service
type RideInfo struct {
	ID              string    `json:"id"`
	PricePerSeat    int64     `json:"pricePerSeat"`
	OriginCity      string    `json:"originCity"`
	DestinationCity string    `json:"destinationCity"`
	DepartureAt     time.Time `json:"departureAt"`
}

// RideClient talks to the ride service for seat locking and ride lookups
type RideClient struct {
	baseURL       string
	internalToken string
	httpClient    HTTPDoer
}

// NewRideClient creates a new RideClient
func NewRideClient(baseURL, internalToken string, httpClient HTTPDoer) *RideClient {
	return &RideClient{
		baseURL:       baseURL,
		internalToken: internalToken,
		httpClient:    httpClient,
	}
}

// LockSeats decrements available seats on a ride
func (c *RideClient) LockSeats(ctx context.Context, rideID string, seats int) error {
	url := fmt.Sprintf("%s/rides/%s/lock", c.baseURL, rideID)
	return c.postSeats(ctx, url, seats)
}

// UnlockSeats returns previously locked seats to a ride
func (c *RideClient) UnlockSeats(ctx context.Context, rideID string, seats int) error {
	url := fmt.Sprintf("%s/rides/%s/unlock", c.baseURL, rideID)
	return c.postSeats(ctx, url, seats)
}

// GetRide fetches ride details, including the price per seat
func (c *RideClient) GetRide(ctx context.Context, rideID string) (*RideInfo, error) {
	url := fmt.Sprintf("%s/rides/%s", c.baseURL, rideID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set(internalTokenHeader, c.internalToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch ride: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Service: "ride", StatusCode: resp.StatusCode}
	}

	ride := &RideInfo{}
	if err := json.NewDecoder(resp.Body).Decode(ride); err != nil {
		return nil, fmt.Errorf("failed to decode ride response: %w", err)
	}
	return ride, nil
}

func (c *RideClient) postSeats(ctx context.Context, url string, seats int) error {
	payload, err := json.Marshal(map[string]int{"seats": seats})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(internalTokenHeader, c.internalToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ride service call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &StatusError{Service: "ride", StatusCode: resp.StatusCode}
	}
	return nil
}
