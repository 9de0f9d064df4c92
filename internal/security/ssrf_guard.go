package security

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/doyensec/safeurl"
)

// SSRFGuardService は外部送信先（Discord Webhook）向けのSSRF防止機能のインターフェース。
type SSRFGuardService interface {
	// NewSafeClient はSSRF防止機能付きのHTTPクライアントを生成する。
	// プライベートIP、ループバック、リンクローカル、メタデータIPへの接続と
	// 443以外のポートへの接続はDialerレベルで拒否される。
	NewSafeClient(timeout time.Duration) *http.Client

	// ValidateWebhookURL は設定されたWebhook URLを起動時に静的検証する。
	ValidateWebhookURL(rawURL string) error
}

// webhookScheme はWebhook送信で許可する唯一のスキーム。
const webhookScheme = "https"

// webhookPort はWebhook送信で許可する唯一のポート。
const webhookPort = 443

// blockedNetworks はDNS解決前の静的検証でブロックするネットワーク範囲。
// 解決後のIPはsafeurlがDialerのControlフックで検証する。
var blockedNetworks []net.IPNet

func init() {
	cidrs := []string{
		// プライベートIPアドレス (RFC 1918)
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		// ループバック
		"127.0.0.0/8",
		// リンクローカル（メタデータIP 169.254.169.254 を含む）
		"169.254.0.0/16",
		"0.0.0.0/8",
		"::1/128",
		"fe80::/10",
		"fc00::/7",
	}
	for _, cidr := range cidrs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(fmt.Sprintf("invalid CIDR in blockedNetworks: %s: %v", cidr, err))
		}
		blockedNetworks = append(blockedNetworks, *network)
	}
}

type ssrfGuard struct{}

// NewSSRFGuard はSSRFGuardServiceの新しいインスタンスを生成する。
func NewSSRFGuard() *ssrfGuard {
	return &ssrfGuard{}
}

// NewSafeClient はHTTPS/443のみ許可するSSRF防止付きHTTPクライアントを生成する。
func (g *ssrfGuard) NewSafeClient(timeout time.Duration) *http.Client {
	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes(webhookScheme).
		SetAllowedPorts(webhookPort).
		Build()

	return safeurl.Client(config).Client
}

// ValidateWebhookURL はWebhook URLがhttpsで、明示ポートが443のみで、
// ブロック対象のホストを指していないことを検証する。
// 空文字列はWebhook無効の意味なのでエラーにしない。
func (g *ssrfGuard) ValidateWebhookURL(rawURL string) error {
	if rawURL == "" {
		return nil
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid webhook URL: %w", err)
	}

	if !strings.EqualFold(parsed.Scheme, webhookScheme) {
		return fmt.Errorf("webhook URL must use https, got %q", parsed.Scheme)
	}

	host := parsed.Hostname()
	if host == "" {
		return fmt.Errorf("empty host in webhook URL")
	}
	if port := parsed.Port(); port != "" && port != fmt.Sprint(webhookPort) {
		return fmt.Errorf("webhook URL port %s is not allowed", port)
	}

	if ip := net.ParseIP(host); ip != nil {
		if isBlockedIP(ip) {
			return fmt.Errorf("blocked IP address: %s", ip.String())
		}
		return nil
	}
	if strings.EqualFold(host, "localhost") {
		return fmt.Errorf("blocked host: %s", host)
	}
	return nil
}

func isBlockedIP(ip net.IP) bool {
	for _, network := range blockedNetworks {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// compile-time interface check
var _ SSRFGuardService = (*ssrfGuard)(nil)
