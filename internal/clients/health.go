package clients

import (
	"context"
	"net/http"
	"time"
)

type HealthProbe struct {
	Name   string
	Client *Client
	Path   string
}

type HealthResult struct {
	Name       string `json:"name"`
	OK         bool   `json:"ok"`
	StatusCode int    `json:"statusCode,omitempty"`
	Error      string `json:"error,omitempty"`
}

// CheckHealth reports reachability only. Any answer below 500 counts, since
// most backend routes sit behind authentication.
func CheckHealth(ctx context.Context, probe HealthProbe) HealthResult {
	// Short probe timeout
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	resp, err := probe.Client.Do(ctx, http.MethodGet, probe.Path, "", nil, http.Header{})
	if err != nil {
		return HealthResult{Name: probe.Name, OK: false, Error: err.Error()}
	}
	defer resp.Body.Close()

	return HealthResult{Name: probe.Name, OK: resp.StatusCode < 500, StatusCode: resp.StatusCode}
}

// CheckAll runs every probe concurrently.
func CheckAll(ctx context.Context, probes []HealthProbe) []HealthResult {
	out := make([]HealthResult, len(probes))
	done := make(chan struct{}, len(probes))
	for i, p := range probes {
		go func(i int, p HealthProbe) {
			out[i] = CheckHealth(ctx, p)
			done <- struct{}{}
		}(i, p)
	}
	for range probes {
		<-done
	}
	return out
}
