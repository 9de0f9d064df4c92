package security

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNewSafeClientTimeout(t *testing.T) {
	guard := NewSSRFGuard()
	timeout := 5 * time.Second
	client := guard.NewSafeClient(timeout)
	if client.Timeout != timeout {
		t.Errorf("expected timeout %v, got %v", timeout, client.Timeout)
	}
	if client.Transport == nil || client.Transport == http.DefaultTransport {
		t.Fatal("expected custom Transport")
	}
}

// httptestサーバーはループバックかつ443以外のポートで起動するため拒否される。
func TestNewSafeClientBlocksLoopback(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	client := NewSSRFGuard().NewSafeClient(5 * time.Second)
	if _, err := client.Post(ts.URL, "application/json", nil); err == nil {
		t.Fatal("expected error for loopback address request, got nil")
	}
}

func TestValidateWebhookURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{name: "未設定は許可", url: "", wantErr: false},
		{name: "Discord Webhook", url: "https://discord.com/api/webhooks/1/abc", wantErr: false},
		{name: "明示的な443", url: "https://discord.com:443/api/webhooks/1/abc", wantErr: false},
		{name: "http", url: "http://discord.com/api/webhooks/1/abc", wantErr: true},
		{name: "443以外のポート", url: "https://discord.com:8443/api/webhooks/1/abc", wantErr: true},
		{name: "プライベートIP", url: "https://10.0.0.1/hook", wantErr: true},
		{name: "ループバック", url: "https://127.0.0.1/hook", wantErr: true},
		{name: "localhost", url: "https://localhost/hook", wantErr: true},
		{name: "メタデータIP", url: "https://169.254.169.254/latest/meta-data/", wantErr: true},
		{name: "IPv6ループバック", url: "https://[::1]/hook", wantErr: true},
		{name: "ホストなし", url: "https:///hook", wantErr: true},
		{name: "ftp", url: "ftp://example.com/hook", wantErr: true},
	}

	guard := NewSSRFGuard()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := guard.ValidateWebhookURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateWebhookURL(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
		})
	}
}
