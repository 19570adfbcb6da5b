package twitch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRefreshToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
			t.Errorf("content type = %s", ct)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if got := r.PostForm.Get("grant_type"); got != "refresh_token" {
			t.Errorf("grant_type = %s", got)
		}
		if got := r.PostForm.Get("client_id"); got != "cid" {
			t.Errorf("client_id = %s", got)
		}
		if got := r.PostForm.Get("refresh_token"); got != "rt-old" {
			t.Errorf("refresh_token = %s", got)
		}
		json.NewEncoder(w).Encode(TokenResponse{
			AccessToken:  "at-new",
			RefreshToken: "rt-new",
			ExpiresIn:    14400,
			TokenType:    "bearer",
		})
	}))
	defer srv.Close()

	client := NewClient(WithTokenURL(srv.URL))
	tok, err := client.RefreshToken(context.Background(), "cid", "csec", "rt-old")
	if err != nil {
		t.Fatalf("RefreshToken: %v", err)
	}
	if tok.AccessToken != "at-new" || tok.RefreshToken != "rt-new" {
		t.Fatalf("unexpected token response: %+v", tok)
	}
}

func TestRefreshTokenMissingInputs(t *testing.T) {
	client := NewClient()
	if _, err := client.RefreshToken(context.Background(), "cid", "csec", ""); err == nil {
		t.Fatal("expected error for empty refresh token")
	}
	if _, err := client.RefreshToken(context.Background(), "", "", "rt"); err == nil {
		t.Fatal("expected error for missing client credentials")
	}
}

func TestRefreshTokenUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Invalid refresh token"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	client := NewClient(WithTokenURL(srv.URL))
	_, err := client.RefreshToken(context.Background(), "cid", "csec", "rt-bad")
	if err == nil {
		t.Fatal("expected error for 400 response")
	}
	if !strings.Contains(err.Error(), "status 400") {
		t.Fatalf("error does not mention status: %v", err)
	}
}

func TestRefreshTokenEmptyAccessToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(TokenResponse{RefreshToken: "rt"})
	}))
	defer srv.Close()

	client := NewClient(WithTokenURL(srv.URL))
	if _, err := client.RefreshToken(context.Background(), "cid", "csec", "rt"); err == nil {
		t.Fatal("expected error for response without access token")
	}
}

func TestValidate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "OAuth at-1" {
			t.Errorf("authorization = %s", got)
		}
		json.NewEncoder(w).Encode(ValidateResponse{
			ClientID: "cid",
			Login:    "bot_a",
			UserID:   "12345",
		})
	}))
	defer srv.Close()

	client := NewClient(WithValidateURL(srv.URL))
	resp, err := client.Validate(context.Background(), "at-1")
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if resp.UserID != "12345" || resp.Login != "bot_a" {
		t.Fatalf("unexpected validate response: %+v", resp)
	}
}

func TestValidateRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"invalid access token"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewClient(WithValidateURL(srv.URL))
	if _, err := client.Validate(context.Background(), "at-revoked"); err == nil {
		t.Fatal("expected error for 401 response")
	}
}

func TestSendChatMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer at-1" {
			t.Errorf("authorization = %s", got)
		}
		if got := r.Header.Get("Client-Id"); got != "cid" {
			t.Errorf("client id = %s", got)
		}
		if r.Header.Get("X-Request-Id") == "" {
			t.Error("missing request id")
		}

		var body chatMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body.BroadcasterID != "b-1" || body.SenderID != "u-1" || body.Message != "hello" {
			t.Errorf("unexpected body: %+v", body)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(WithChatURL(srv.URL), WithSendRate(100, 10))
	err := client.SendChatMessage(context.Background(), "at-1", "cid", "b-1", "u-1", "hello")
	if err != nil {
		t.Fatalf("SendChatMessage: %v", err)
	}
}

func TestSendChatMessageFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"forbidden"}`, http.StatusForbidden)
	}))
	defer srv.Close()

	client := NewClient(WithChatURL(srv.URL), WithSendRate(100, 10))
	err := client.SendChatMessage(context.Background(), "at-1", "cid", "b-1", "u-1", "hello")
	if err == nil {
		t.Fatal("expected error for 403 response")
	}
}

func TestSendChatMessageMissingIDs(t *testing.T) {
	client := NewClient()
	if err := client.SendChatMessage(context.Background(), "at", "cid", "", "u-1", "hi"); err == nil {
		t.Fatal("expected error for missing broadcaster id")
	}
	if err := client.SendChatMessage(context.Background(), "", "cid", "b-1", "u-1", "hi"); err == nil {
		t.Fatal("expected error for missing access token")
	}
}
