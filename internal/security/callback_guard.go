// Package security はコールバック先URLの安全性検証を提供する。
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

// CallbackGuard はコールバック配送用HTTPクライアントの生成とURL事前検証を行う。
// テスト用モックという性質上、通常はローカルのWebhookに向けてPOSTするため
// 許可的なガードがデフォルトとなる。共有環境に置く場合は厳格モードを使い、
// プライベートIPやループバックへの配送を拒否できる。
type CallbackGuard interface {
	// NewClient はコールバックPOST用のHTTPクライアントを生成する。
	NewClient(timeout time.Duration) *http.Client

	// ValidateURL はリクエスト送信前の静的検証を行う。
	ValidateURL(rawURL string) error
}

// NewCallbackGuard はモードに応じたCallbackGuardを返す。
func NewCallbackGuard(strict bool) CallbackGuard {
	if strict {
		return &strictGuard{}
	}
	return &permissiveGuard{}
}

// allowedSchemes は許可されるURLスキーム。両モード共通。
var allowedSchemes = []string{"http", "https"}

// --- 許可モード ---

// permissiveGuard はスキームとホストの形式のみ検証するガード。
// ローカル開発でのlocalhostコールバックを妨げない。
type permissiveGuard struct{}

// NewClient は素のHTTPクライアントを生成する。
func (g *permissiveGuard) NewClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// ValidateURL はスキームとホストの形式検証のみを行う。
func (g *permissiveGuard) ValidateURL(rawURL string) error {
	_, err := parseCallbackURL(rawURL)
	return err
}

// --- 厳格モード ---

// blockedNetworks は厳格モードでブロックされるネットワーク範囲。
// safeurlはnet.DialerレベルでDNS解決後のIPも検証するため、
// この静的リストはリクエスト送信前の早期失敗に使う。
var blockedNetworks []net.IPNet

func init() {
	cidrs := []string{
		// プライベートIPアドレス (RFC 1918)
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		// ループバック (RFC 1122)
		"127.0.0.0/8",
		// リンクローカル (RFC 3927) - クラウドメタデータIP (169.254.169.254) を含む
		"169.254.0.0/16",
		// カレントネットワーク
		"0.0.0.0/8",
		// IPv6ループバック
		"::1/128",
		// IPv6リンクローカル
		"fe80::/10",
		// IPv6ユニークローカル
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

// strictGuard はsafeurlベースのSSRF防止付きガード。
type strictGuard struct{}

// NewClient はSSRF防止機能付きのHTTPクライアントを生成する。
// プライベートIP、ループバック、リンクローカル、メタデータIPへの
// リクエストがDialer層でブロックされ、DNS再バインディングにも対応する。
func (g *strictGuard) NewClient(timeout time.Duration) *http.Client {
	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes(allowedSchemes...).
		SetAllowedPorts(80, 443).
		Build()

	return safeurl.Client(config).Client
}

// ValidateURL はDNS解決を伴わない静的検証を行う。
// IPアドレス直指定のブロック範囲照合と、localhost等の危険ホスト名拒否を含む。
func (g *strictGuard) ValidateURL(rawURL string) error {
	parsed, err := parseCallbackURL(rawURL)
	if err != nil {
		return err
	}

	host := parsed.Hostname()
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

// --- 共通ヘルパー ---

// parseCallbackURL はコールバックURLの形式検証を行う。
func parseCallbackURL(rawURL string) (*url.URL, error) {
	if rawURL == "" {
		return nil, fmt.Errorf("empty URL")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	if !isAllowedScheme(parsed.Scheme) {
		return nil, fmt.Errorf("disallowed scheme: %s (allowed: %v)", parsed.Scheme, allowedSchemes)
	}

	if parsed.Hostname() == "" {
		return nil, fmt.Errorf("empty host in URL: %s", rawURL)
	}

	return parsed, nil
}

// isAllowedScheme はURLスキームが許可リストに含まれるかを検証する。
func isAllowedScheme(scheme string) bool {
	for _, allowed := range allowedSchemes {
		if strings.EqualFold(scheme, allowed) {
			return true
		}
	}
	return false
}

// isBlockedIP はIPアドレスがブロック対象のネットワーク範囲に含まれるかを検証する。
func isBlockedIP(ip net.IP) bool {
	for _, network := range blockedNetworks {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}
