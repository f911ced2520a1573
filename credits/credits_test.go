package credits

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPClientCheckCreditsParsesSufficientFlag(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("required") != "10" {
			t.Errorf("expected required=10, got %q", r.URL.Query().Get("required"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"sufficient":true}`))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "")
	ok, err := client.CheckCredits(context.Background(), "user-1", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Errorf("expected sufficient=true")
	}
}

func TestHTTPClientCheckCreditsRejectsNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "")
	if _, err := client.CheckCredits(context.Background(), "user-1", 10); err == nil {
		t.Fatalf("expected an error on non-200 status")
	}
}

func TestHTTPClientDeductCreditsSendsAmount(t *testing.T) {
	var gotAuth string
	var gotAmount int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		var body struct {
			Amount int `json:"amount"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode deduct body: %v", err)
		}
		gotAmount = body.Amount
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "secret-key")
	if err := client.DeductCredits(context.Background(), "user-1", 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotAmount != 5 {
		t.Errorf("expected amount 5 in request body, got %d", gotAmount)
	}
	if gotAuth != "Bearer secret-key" {
		t.Errorf("expected bearer auth header, got %q", gotAuth)
	}
}

func TestStubServiceUnlimitedAlwaysSufficient(t *testing.T) {
	stub := NewUnlimitedStub()
	ok, err := stub.CheckCredits(context.Background(), "user-1", 1_000_000)
	if err != nil || !ok {
		t.Fatalf("expected unlimited stub to report sufficient, got ok=%v err=%v", ok, err)
	}
	if err := stub.DeductCredits(context.Background(), "user-1", 1_000_000); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStubServiceEnforcesBalance(t *testing.T) {
	stub := NewStubService(map[string]int{"user-1": 10})

	ok, err := stub.CheckCredits(context.Background(), "user-1", 5)
	if err != nil || !ok {
		t.Fatalf("expected sufficient balance, got ok=%v err=%v", ok, err)
	}
	if err := stub.DeductCredits(context.Background(), "user-1", 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := stub.Balance("user-1"); got != 5 {
		t.Errorf("expected balance 5 after deduction, got %d", got)
	}

	ok, err = stub.CheckCredits(context.Background(), "user-1", 6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Errorf("expected insufficient balance for 6 when only 5 remain")
	}
}
