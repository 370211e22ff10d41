// Package publicip discovers the host's public address by asking
// well-known HTTPS resolvers.
package publicip

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"time"
)

// ErrNotFound is returned when no resolver produced a usable address.
var ErrNotFound = errors.New("not found public ip")

var resolvers = []string{
	"https://api.ipify.org",
	"https://ipinfo.io/ip",
	"https://icanhazip.com",
}

var client = &http.Client{Timeout: 10 * time.Second}

// Fetch tries each resolver in order and returns the first address that
// parses.
func Fetch() (string, error) {
	for _, url := range resolvers {
		ip, err := fetchFrom(url)
		if err != nil {
			log.Printf("[publicip] %s: %v", url, err)
			continue
		}
		return ip, nil
	}
	return "", ErrNotFound
}

func fetchFrom(url string) (string, error) {
	resp, err := client.Get(url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %s", resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 256))
	if err != nil {
		return "", err
	}
	raw := strings.TrimSpace(string(body))
	ip := net.ParseIP(raw)
	if ip == nil {
		return "", fmt.Errorf("unparseable address %q", raw)
	}
	return ip.String(), nil
}
