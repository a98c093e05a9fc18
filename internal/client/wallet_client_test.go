package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWalletClientCreateHold(t *testing.T) {
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/holds" || r.Method != http.MethodPost {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "hold-42"})
	}))
	defer srv.Close()

	c := NewWalletClient(srv.URL, "secret", http.DefaultClient)
	holdID, err := c.CreateHold(context.Background(), "P1", "bk-1", 2000)
	if err != nil {
		t.Fatalf("CreateHold() error = %v", err)
	}

	if holdID != "hold-42" {
		t.Errorf("holdID = %s, want hold-42", holdID)
	}
	if gotBody["ownerId"] != "P1" || gotBody["referenceId"] != "bk-1" {
		t.Errorf("request body = %v", gotBody)
	}
	if gotBody["amount"].(float64) != 2000 {
		t.Errorf("amount = %v, want 2000", gotBody["amount"])
	}
}

func TestWalletClientCreateHoldUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewWalletClient(srv.URL, "secret", http.DefaultClient)
	_, err := c.CreateHold(context.Background(), "P1", "bk-1", 2000)
	if err == nil {
		t.Fatal("expected error for 503 response")
	}

	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("error %v is not a StatusError", err)
	}
	if IsClientStatus(err) {
		t.Error("503 should not classify as a client status")
	}
}

func TestWalletClientCreateHoldEmptyID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer srv.Close()

	c := NewWalletClient(srv.URL, "secret", http.DefaultClient)
	_, err := c.CreateHold(context.Background(), "P1", "bk-1", 2000)
	if err == nil {
		t.Fatal("expected error for empty hold id")
	}
}
