// Command smoke exercises a running server end to end.
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
)

func main() {
	baseURL := os.Getenv("SMOKE_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:3001"
	}

	// Wait for server to start
	time.Sleep(2 * time.Second)

	fmt.Println("Starting smoke test against", baseURL)

	steps := []struct {
		name string
		run  func() error
	}{
		{"catalog stats", func() error {
			_, err := sendRequest(baseURL, "GET", "/api/products/stats", nil)
			return err
		}},
		{"list products", func() error {
			_, err := sendRequest(baseURL, "GET", "/api/products?limit=5", nil)
			return err
		}},
		{"description search", func() error {
			_, err := sendRequest(baseURL, "POST", "/api/duplicates/search-description", map[string]interface{}{
				"description": "laptop lenovo t41",
				"threshold":   0.75,
			})
			return err
		}},
		{"range scan", func() error {
			return streamRange(baseURL, map[string]interface{}{
				"fromId":    1,
				"toId":      20,
				"threshold": 0.85,
			})
		}},
		{"duplicate stats", func() error {
			_, err := sendRequest(baseURL, "GET", "/api/duplicates/stats", nil)
			return err
		}},
	}

	for i, step := range steps {
		fmt.Printf("%d. %s...\n", i+1, step.name)
		if err := step.run(); err != nil {
			color.Red("FAILED: %s: %v", step.name, err)
			os.Exit(1)
		}
		color.Green("PASSED: %s", step.name)
	}
}

func sendRequest(baseURL, method, endpoint string, payload interface{}) ([]byte, error) {
	resp, err := do(baseURL, method, endpoint, payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(respBody))
	}
	fmt.Printf("Response: %s\n", truncate(string(respBody), 400))
	return respBody, nil
}

// streamRange reads the SSE stream until its terminal frame.
func streamRange(baseURL string, payload interface{}) error {
	resp, err := do(baseURL, "POST", "/api/duplicates/search-range", payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(respBody))
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line, ok := strings.CutPrefix(scanner.Text(), "data:")
		if !ok {
			continue
		}
		line = strings.TrimSpace(line)
		var frame struct {
			Type    string  `json:"type"`
			Current int     `json:"current"`
			Total   int     `json:"total"`
			Message string  `json:"message"`
			Result  *struct {
				Summary struct {
					GroupCount int `json:"groupCount"`
				} `json:"summary"`
			} `json:"result"`
		}
		if err := json.Unmarshal([]byte(line), &frame); err != nil {
			return fmt.Errorf("bad frame %q: %w", line, err)
		}
		switch frame.Type {
		case "progress":
			fmt.Printf("  progress %d/%d\r", frame.Current, frame.Total)
		case "complete":
			fmt.Printf("\n  groups found: %d\n", frame.Result.Summary.GroupCount)
			return nil
		case "error":
			return fmt.Errorf("scan failed: %s", frame.Message)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return fmt.Errorf("stream ended without a terminal frame")
}

func do(baseURL, method, endpoint string, payload interface{}) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		jsonBytes, _ := json.Marshal(payload)
		body = bytes.NewBuffer(jsonBytes)
	}

	req, err := http.NewRequest(method, baseURL+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 10 * time.Minute}
	return client.Do(req)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
