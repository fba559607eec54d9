package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	baseURL  = "http://localhost:8080"
	adminURL = "http://localhost:8081"
)

// Smoke test for a running deployment: walks every endpoint end to end.
// Run the public api, admin api and seeded database first.
func main() {
	fmt.Println("==========================================")
	fmt.Println("    full api smoke test")
	fmt.Println("==========================================")
	fmt.Println()

	fmt.Println("1. health...")
	if resp, err := httpGet(baseURL+"/health", ""); err != nil {
		fmt.Printf("   failed: %v\n", err)
		return
	} else {
		fmt.Printf("   ok: %v\n", resp)
	}

	fmt.Println("\n2. top up a fresh tag...")
	topup, err := httpPost(baseURL+"/api/users/topup", map[string]any{
		"rfid_uid":   "SMOKETAG",
		"amount":     50000,
		"car_number": "B 999 ZZ",
	}, "")
	if err != nil {
		fmt.Printf("   failed: %v\n", err)
		return
	}
	fmt.Printf("   balance after: %v\n", topup["balance_after"])

	fmt.Println("\n3. dispense within balance...")
	disp, err := httpPost(baseURL+"/api/dispense", map[string]any{
		"rfid_uid":     "SMOKETAG",
		"volume_litre": 1.5,
		"amount":       15000,
	}, "")
	if err != nil {
		fmt.Printf("   failed: %v\n", err)
	} else {
		fmt.Printf("   balance: %v -> %v\n", disp["balance_before"], disp["balance_after"])
	}

	fmt.Println("\n4. dispense over balance (expect rejection)...")
	if resp, err := httpPost(baseURL+"/api/dispense", map[string]any{
		"rfid_uid":     "SMOKETAG",
		"volume_litre": 99.0,
		"amount":       990000,
	}, ""); err != nil {
		fmt.Printf("   rejected as expected: %v\n", err)
	} else {
		fmt.Printf("   response: %v\n", resp)
	}

	fmt.Println("\n5. history for the tag...")
	if resp, err := httpGet(baseURL+"/api/dispense/history/SMOKETAG", ""); err != nil {
		fmt.Printf("   failed: %v\n", err)
	} else {
		fmt.Printf("   pagination: %v\n", resp["pagination"])
	}

	fmt.Println("\n6. stats...")
	if resp, err := httpGet(baseURL+"/api/dispense/stats", ""); err != nil {
		fmt.Printf("   failed: %v\n", err)
	} else {
		fmt.Printf("   overall: %v\n", resp["overall"])
	}

	fmt.Println("\n7. admin login...")
	login, err := httpPost(adminURL+"/api/login", map[string]any{"tag": "ABCD1234"}, "")
	if err != nil {
		fmt.Printf("   failed: %v\n", err)
		return
	}
	token, _ := login["token"].(string)
	fmt.Printf("   token issued (%d chars)\n", len(token))

	fmt.Println("\n8. admin user list...")
	if resp, err := httpGet(adminURL+"/api/users", token); err != nil {
		fmt.Printf("   failed: %v\n", err)
	} else {
		fmt.Printf("   pagination: %v\n", resp["pagination"])
	}

	fmt.Println("\n9. admin metrics...")
	if resp, err := httpGet(adminURL+"/api/metrics", token); err != nil {
		fmt.Printf("   failed: %v\n", err)
	} else {
		fmt.Printf("   engine: %v\n", resp["engine"])
	}

	fmt.Println("\n10. cleanup: delete the smoke tag...")
	if resp, err := httpDelete(adminURL+"/api/users/SMOKETAG", token); err != nil {
		fmt.Printf("   failed: %v\n", err)
	} else {
		fmt.Printf("   deleted: %v\n", resp["message"])
	}

	fmt.Println("\ndone")
}

var client = &http.Client{Timeout: 5 * time.Second}

func do(method, url string, payload any, token string) (map[string]any, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("status %d, body %s", resp.StatusCode, raw)
	}
	if resp.StatusCode >= 400 {
		return out, fmt.Errorf("status %d: %v", resp.StatusCode, out)
	}
	return out, nil
}

func httpGet(url, token string) (map[string]any, error) {
	return do(http.MethodGet, url, nil, token)
}

func httpPost(url string, payload any, token string) (map[string]any, error) {
	return do(http.MethodPost, url, payload, token)
}

func httpDelete(url, token string) (map[string]any, error) {
	return do(http.MethodDelete, url, nil, token)
}
