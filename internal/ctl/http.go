package ctl

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"hvxhost/pkg/types"
)

var client = &http.Client{Timeout: 5 * time.Second}

// baseURL turns ":8080" or "host:8080" into an http URL.
func baseURL(addr string) string {
	if strings.HasPrefix(addr, "http://") || strings.HasPrefix(addr, "https://") {
		return strings.TrimRight(addr, "/")
	}
	if strings.HasPrefix(addr, ":") {
		addr = "127.0.0.1" + addr
	}
	return "http://" + addr
}

func waitHTTP(url string, want int, timeout, every time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	for {
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		resp, err := client.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == want {
				return nil
			}
			debug("[wait] %s returned %d", url, resp.StatusCode)
		}
		select {
		case <-time.After(every):
		case <-ctx.Done():
			return fmt.Errorf("timed out waiting for %s to return %d", url, want)
		}
	}
}

// fetchStatus reads GET /status from the daemon.
func fetchStatus(ctx context.Context, addr string) (types.StatusResponse, error) {
	var st types.StatusResponse
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL(addr)+"/status", nil)
	if err != nil {
		return st, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return st, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		var er types.ErrorResponse
		if json.NewDecoder(resp.Body).Decode(&er) == nil && er.Error != "" {
			return st, fmt.Errorf("status: %s (%d)", er.Error, resp.StatusCode)
		}
		return st, fmt.Errorf("status: unexpected HTTP %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return st, fmt.Errorf("decode status: %w", err)
	}
	return st, nil
}
