package netinfo

import (
	"encoding/json"
	"net"
	"os"
)

// LocalIP returns the LAN address of this machine by opening a UDP
// socket toward a public resolver. No packet is sent; the kernel just
// picks the outbound interface.
func LocalIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "127.0.0.1"
	}
	defer conn.Close()

	if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok {
		return addr.IP.String()
	}
	return "127.0.0.1"
}

// Pairing is the connection payload a phone app scans or types in.
type Pairing struct {
	IP   string `json:"ip"`
	Port int    `json:"port"`
	Name string `json:"name"`
}

func PairingInfo(ip string, port int) Pairing {
	name, err := os.Hostname()
	if err != nil || name == "" {
		name = "desktop"
	}
	return Pairing{IP: ip, Port: port, Name: name}
}

func (p Pairing) Encode() (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
