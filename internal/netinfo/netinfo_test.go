package netinfo

import (
	"encoding/json"
	"net"
	"testing"
)

func TestLocalIPIsParseable(t *testing.T) {
	ip := LocalIP()
	if net.ParseIP(ip) == nil {
		t.Fatalf("LocalIP() = %q, not a valid IP", ip)
	}
}

func TestPairingEncode(t *testing.T) {
	p := PairingInfo("192.168.1.5", 8888)
	if p.Name == "" {
		t.Error("pairing name should never be empty")
	}

	encoded, err := p.Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(encoded), &decoded); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	if decoded["ip"] != "192.168.1.5" {
		t.Errorf("ip = %v, want 192.168.1.5", decoded["ip"])
	}
	if decoded["port"] != float64(8888) {
		t.Errorf("port = %v, want 8888", decoded["port"])
	}
}
