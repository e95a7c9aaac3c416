package mcpserver

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewIPAuthMiddlewareValidation(t *testing.T) {
	if _, err := NewIPAuthMiddleware(nil, false); err == nil {
		t.Fatal("expected error for empty allow list")
	}
	if _, err := NewIPAuthMiddleware([]string{"not-an-ip"}, false); err == nil {
		t.Fatal("expected error for invalid IP")
	}
	if _, err := NewIPAuthMiddleware([]string{"10.0.0.0/99"}, false); err == nil {
		t.Fatal("expected error for invalid CIDR")
	}
}

func TestIPAuthMiddlewareAllowAndDeny(t *testing.T) {
	middleware, err := NewIPAuthMiddleware([]string{"127.0.0.1", "10.0.0.0/8"}, false)
	if err != nil {
		t.Fatalf("NewIPAuthMiddleware failed: %v", err)
	}

	handlerCalled := false
	handler := middleware.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		w.WriteHeader(http.StatusOK)
	}))

	cases := []struct {
		remoteAddr string
		forwarded  string
		wantStatus int
	}{
		{"127.0.0.1:54321", "", http.StatusOK},
		{"10.20.30.40:443", "", http.StatusOK},
		{"192.168.1.5:80", "", http.StatusForbidden},
		{"192.168.1.5:80", "10.1.2.3", http.StatusOK},
		{"192.168.1.5:80", "8.8.8.8, 10.1.2.3", http.StatusForbidden},
	}

	for _, tc := range cases {
		handlerCalled = false
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = tc.remoteAddr
		if tc.forwarded != "" {
			req.Header.Set("X-Forwarded-For", tc.forwarded)
		}

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != tc.wantStatus {
			t.Fatalf("remote=%s forwarded=%q: got status %d, want %d", tc.remoteAddr, tc.forwarded, rec.Code, tc.wantStatus)
		}
		if (tc.wantStatus == http.StatusOK) != handlerCalled {
			t.Fatalf("remote=%s: handler called=%v, status=%d", tc.remoteAddr, handlerCalled, rec.Code)
		}
	}
}

func TestIsIPAllowed(t *testing.T) {
	middleware, err := NewIPAuthMiddleware([]string{"::1", "172.16.0.0/12"}, false)
	if err != nil {
		t.Fatalf("NewIPAuthMiddleware failed: %v", err)
	}

	if !middleware.IsIPAllowed("::1") {
		t.Fatal("expected IPv6 loopback to be allowed")
	}
	if !middleware.IsIPAllowed("172.20.1.1") {
		t.Fatal("expected address inside CIDR to be allowed")
	}
	if middleware.IsIPAllowed("172.32.0.1") {
		t.Fatal("expected address outside CIDR to be denied")
	}
	if middleware.IsIPAllowed("") {
		t.Fatal("expected empty address to be denied")
	}
}
