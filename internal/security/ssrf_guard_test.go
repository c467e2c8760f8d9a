package security

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSSRFGuard_NewClient_Timeout(t *testing.T) {
	for _, allowPrivate := range []bool{false, true} {
		guard := NewSSRFGuard(allowPrivate)
		client := guard.NewClient(5 * time.Second)
		if client == nil {
			t.Fatalf("NewClient(allowPrivate=%v) returned nil", allowPrivate)
		}
		if client.Timeout != 5*time.Second {
			t.Errorf("allowPrivate=%v: timeout = %v, want %v", allowPrivate, client.Timeout, 5*time.Second)
		}
	}
}

// TestSSRFGuard_NewClient_BlocksLoopback はhttptestサーバー（127.0.0.1）への接続が
// safeurlのクライアントでは拒否されることを検証する。
func TestSSRFGuard_NewClient_BlocksLoopback(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	client := NewSSRFGuard(false).NewClient(5 * time.Second)
	if _, err := client.Get(ts.URL); err == nil {
		t.Fatal("expected error for loopback address request, got nil")
	}
}

// TestSSRFGuard_NewClient_AllowPrivate はプライベートネットワークを許可した場合に接続できることを検証する。
func TestSSRFGuard_NewClient_AllowPrivate(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	client := NewSSRFGuard(true).NewClient(5 * time.Second)
	resp, err := client.Get(ts.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestSSRFGuard_ValidateURL(t *testing.T) {
	tests := []struct {
		name         string
		url          string
		allowPrivate bool
		wantErr      bool
	}{
		{"公開URL", "https://feeds.example.com/rss.xml", false, false},
		{"HTTP公開URL", "http://blog.example.org/feed", false, false},
		{"空URL", "", false, true},
		{"ftpスキーム", "ftp://example.com/feed", false, true},
		{"スキームなし", "example.com/feed", false, true},
		{"ホストなし", "https:///feed", false, true},
		{"プライベートIP", "http://192.168.1.10/feed", false, true},
		{"ループバック", "http://127.0.0.1:8080/feed", false, true},
		{"メタデータIP", "http://169.254.169.254/latest", false, true},
		{"IPv6ループバック", "http://[::1]/feed", false, true},
		{"localhost", "http://localhost/feed", false, true},
		{"localhostサブドメイン", "http://app.localhost/feed", false, true},
		{"公開IP", "http://93.184.216.34/feed", false, false},
		{"許可設定のプライベートIP", "http://192.168.1.10/feed", true, false},
		{"許可設定のlocalhost", "http://localhost:8080/feed", true, false},
		{"許可設定でもスキームは検証", "file:///etc/passwd", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewSSRFGuard(tt.allowPrivate).ValidateURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateURL(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
		})
	}
}
