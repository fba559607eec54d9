// Package gateway talks to the physical pump controller. The controller is an
// untrusted peer: its reports drive the UI and the dispense flow, but nothing
// here verifies physical delivery.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/example/fueldispenser/internal/config"
)

// Status is the controller's self-reported state.
type Status struct {
	UID          string `json:"uid"`
	MotorRunning bool   `json:"motorRunning"`
	Balance      int64  `json:"balance"`
}

// Client is the pump controller contract.
type Client interface {
	// Start asks the controller to dispense fuel worth amount.
	Start(ctx context.Context, amount int64) error
	// Status polls the controller.
	Status(ctx context.Context) (*Status, error)
}

// HTTPClient speaks the controller's plain HTTP/JSON protocol.
type HTTPClient struct {
	base   string
	client *http.Client
}

// NewHTTPClient creates a client for the configured controller.
func NewHTTPClient(cfg *config.DispenserConfig) *HTTPClient {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPClient{
		base:   strings.TrimRight(cfg.BaseURL, "/"),
		client: &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) Start(ctx context.Context, amount int64) error {
	body, err := json.Marshal(map[string]int64{"amount": amount})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/start", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("pump start: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("pump start: unexpected status %d", resp.StatusCode)
	}

	var out struct {
		OK  bool   `json:"ok"`
		Msg string `json:"msg"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("pump start: %w", err)
	}
	if !out.OK {
		return fmt.Errorf("pump start rejected: %s", out.Msg)
	}
	return nil
}

func (c *HTTPClient) Status(ctx context.Context) (*Status, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/status", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pump status: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pump status: unexpected status %d", resp.StatusCode)
	}

	var st Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return nil, fmt.Errorf("pump status: %w", err)
	}
	return &st, nil
}
