package wallet

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	boterr "github.com/voidexchange/walletbot/internal/errors"
	"github.com/voidexchange/walletbot/internal/httpx"
)

func newTestClient(t *testing.T, mux *http.ServeMux) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return New(httpx.New(2*time.Second, 0), srv.URL), srv
}

func TestStartAuthSessionSendsSnakeCasePayload(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/authentication/session-requests/start", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method %s", r.Method)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if body["device_fingerprint"] != "abc123" {
			t.Fatalf("missing device_fingerprint: %#v", body)
		}
		if body["public_key"] != "PUBKEY" {
			t.Fatalf("missing public_key: %#v", body)
		}
		if body["duration_in_seconds"] != float64(86400) {
			t.Fatalf("unexpected duration: %#v", body["duration_in_seconds"])
		}
		_, _ = w.Write([]byte(`{"success":true,"data":{"session_request_id":"sr-1","verification_code":"421337"}}`))
	})
	c, _ := newTestClient(t, mux)

	got, err := c.StartAuthSession(context.Background(), DeviceInfo{
		Fingerprint: "abc123",
		Hostname:    "host",
		Username:    "user",
		OS:          "linux",
		PublicKey:   "PUBKEY",
	}, 86400)
	if err != nil {
		t.Fatalf("StartAuthSession failed: %v", err)
	}
	if got.SessionRequestID != "sr-1" || got.VerificationCode != "421337" {
		t.Fatalf("unexpected session: %+v", got)
	}
}

func TestStartAuthSessionRejectsUnsuccessfulEnvelope(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/authentication/session-requests/start", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"message":"device blocked"}`))
	})
	c, _ := newTestClient(t, mux)

	_, err := c.StartAuthSession(context.Background(), DeviceInfo{}, 86400)
	if boterr.CodeOf(err) != boterr.CodeAuth {
		t.Fatalf("expected auth code, got %v", err)
	}
}

func TestAuthStatusParsesCompletedPayload(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/authentication/session-requests/status/sr-1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"data":{"status":"completed","encrypted_key":"EK","access_token":"AT"}}`))
	})
	c, _ := newTestClient(t, mux)

	got, err := c.AuthStatus(context.Background(), "sr-1")
	if err != nil {
		t.Fatalf("AuthStatus failed: %v", err)
	}
	if got.Status != StatusCompleted || got.EncryptedKey != "EK" || got.AccessToken != "AT" {
		t.Fatalf("unexpected status: %+v", got)
	}
}

func TestOverviewParsesBalances(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/wallets/w-1/overview", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("limit") != "10" {
			t.Fatalf("missing limit query: %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"success":true,"data":[
			{"balance":"125.0","available_balance":"125","value_usd":"5718.75","price_usd":"45.75",
			 "asset":{"id":"c469","name":"Solana","symbol":"SOL","decimals":9},
			 "network":{"name":"Solana"}}
		]}`))
	})
	c, _ := newTestClient(t, mux)

	got, err := c.Overview(context.Background(), "w-1")
	if err != nil {
		t.Fatalf("Overview failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("unexpected balance count: %d", len(got))
	}
	b := got[0]
	if b.Asset.Symbol != "SOL" || b.Asset.Decimals != 9 || b.AvailableBalance != "125" {
		t.Fatalf("unexpected balance: %+v", b)
	}
	if b.Network == nil || b.Network.Name != "Solana" {
		t.Fatalf("unexpected network: %+v", b.Network)
	}
}

func TestOverviewRequiresWalletID(t *testing.T) {
	c := New(httpx.New(time.Second, 0), "http://unused")
	_, err := c.Overview(context.Background(), "")
	if boterr.CodeOf(err) != boterr.CodeState {
		t.Fatalf("expected state code, got %v", err)
	}
}

func TestCreateWithdrawalSubmitsAndParses(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/wallets/w-1/withdrawal", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if body["asset_id"] != "a-1" || body["amount"] != "10" || body["recipient_address"] != "addr" {
			t.Fatalf("unexpected payload: %#v", body)
		}
		_, _ = w.Write([]byte(`{"success":true,"data":{"id":"tx-9","status":"pending_approval"}}`))
	})
	c, _ := newTestClient(t, mux)

	got, err := c.CreateWithdrawal(context.Background(), "w-1", "a-1", "10", "addr")
	if err != nil {
		t.Fatalf("CreateWithdrawal failed: %v", err)
	}
	if got.ID != "tx-9" || got.Status != "pending_approval" {
		t.Fatalf("unexpected withdrawal: %+v", got)
	}
}

func TestCreateWithdrawalBackendFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/wallets/w-1/withdrawal", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"message":"insufficient funds"}`))
	})
	c, _ := newTestClient(t, mux)

	_, err := c.CreateWithdrawal(context.Background(), "w-1", "a-1", "10", "addr")
	if boterr.CodeOf(err) != boterr.CodeBackend {
		t.Fatalf("expected backend code, got %v", err)
	}
}
