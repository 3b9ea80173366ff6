package security

import (
	"testing"
	"time"
)

func TestPermissiveGuard_ValidateURL(t *testing.T) {
	guard := NewCallbackGuard(false)

	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{name: "plain http", url: "http://example.com/cb", wantErr: false},
		{name: "https", url: "https://example.com/cb", wantErr: false},
		{name: "localhost allowed in permissive mode", url: "http://localhost:8081/cb", wantErr: false},
		{name: "loopback IP allowed in permissive mode", url: "http://127.0.0.1:8081/cb", wantErr: false},
		{name: "empty URL", url: "", wantErr: true},
		{name: "ftp scheme", url: "ftp://example.com/cb", wantErr: true},
		{name: "file scheme", url: "file:///etc/passwd", wantErr: true},
		{name: "missing host", url: "http:///cb", wantErr: true},
		{name: "no scheme", url: "example.com/cb", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := guard.ValidateURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateURL(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
		})
	}
}

func TestStrictGuard_ValidateURL(t *testing.T) {
	guard := NewCallbackGuard(true)

	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{name: "public host", url: "https://example.com/cb", wantErr: false},
		{name: "public IP", url: "http://93.184.216.34/cb", wantErr: false},
		{name: "localhost blocked", url: "http://localhost:8081/cb", wantErr: true},
		{name: "loopback blocked", url: "http://127.0.0.1/cb", wantErr: true},
		{name: "private 10.x blocked", url: "http://10.0.0.5/cb", wantErr: true},
		{name: "private 172.16.x blocked", url: "http://172.16.0.1/cb", wantErr: true},
		{name: "private 192.168.x blocked", url: "http://192.168.1.1/cb", wantErr: true},
		{name: "cloud metadata IP blocked", url: "http://169.254.169.254/latest/meta-data/", wantErr: true},
		{name: "IPv6 loopback blocked", url: "http://[::1]/cb", wantErr: true},
		{name: "disallowed scheme", url: "gopher://example.com/cb", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := guard.ValidateURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateURL(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
			}
		})
	}
}

func TestGuard_NewClient(t *testing.T) {
	for _, strict := range []bool{false, true} {
		guard := NewCallbackGuard(strict)
		client := guard.NewClient(5 * time.Second)
		if client == nil {
			t.Fatalf("NewClient(strict=%v) = nil", strict)
		}
		if client.Timeout != 5*time.Second && !strict {
			t.Errorf("client.Timeout = %v, want 5s", client.Timeout)
		}
	}
}
