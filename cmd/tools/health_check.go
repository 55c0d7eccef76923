package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"
)

// Small CLI that probes a running instance's /health endpoint, intended
// for container health checks and deploy smoke tests.

func main() {
	url := flag.String("url", "http://localhost:8080/health", "health endpoint to probe")
	timeout := flag.Duration("timeout", 5*time.Second, "request timeout")
	flag.Parse()

	fmt.Println("tradeapt Health Check Utility")
	fmt.Println("-----------------------------")

	status, err := checkServiceHealth(*url, *timeout)
	if err != nil {
		log.Fatalf("Health check failed: %v", err)
	}

	fmt.Printf("Service is healthy: %v\n", status)
}

func checkServiceHealth(url string, timeout time.Duration) (map[string]any, error) {
	client := &http.Client{Timeout: timeout}

	resp, err := client.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("malformed health response: %w", err)
	}
	if body["status"] != "ok" {
		return nil, fmt.Errorf("service reports status %v", body["status"])
	}
	return body, nil
}
