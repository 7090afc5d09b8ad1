package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

func main() {
	baseURL := flag.String("url", "http://localhost:8080/api/v1", "API base URL")
	site := flag.String("site", "acme", "Site slug to log into")
	email := flag.String("email", "load@example.com", "Login email")
	password := flag.String("password", "password", "Login password")
	concurrency := flag.Int("c", 10, "Number of concurrent workers")
	duration := flag.Duration("d", 30*time.Second, "Duration of the load test")
	rps := flag.Int("rps", 200, "Requests per second limit")
	writeRatio := flag.Int("write-pct", 20, "Percentage of requests that are writes")
	flag.Parse()

	token, err := login(*baseURL, *site, *email, *password)
	if err != nil {
		log.Fatalf("login failed: %v", err)
	}

	log.Printf("Starting load test on %s", *baseURL)
	log.Printf("Concurrency: %d, Duration: %s, RPS: %d, Writes: %d%%", *concurrency, *duration, *rps, *writeRatio)

	var wg sync.WaitGroup
	var successCount, rateLimitedCount, errorCount atomic.Int64
	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	limiter := rate.NewLimiter(rate.Limit(*rps), 50)

	for i := 0; i < *concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			client := &http.Client{
				Timeout: 5 * time.Second,
			}
			rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

			for {
				select {
				case <-ctx.Done():
					return
				default:
					if err := limiter.Wait(ctx); err != nil {
						return
					}

					req, err := buildRequest(ctx, rng, *baseURL, token, *writeRatio, workerID)
					if err != nil {
						continue
					}

					resp, err := client.Do(req)
					if err != nil {
						errorCount.Add(1)
						continue
					}

					switch {
					case resp.StatusCode == http.StatusTooManyRequests:
						rateLimitedCount.Add(1)
					case resp.StatusCode < 400:
						successCount.Add(1)
					default:
						errorCount.Add(1)
					}
					resp.Body.Close()
				}
			}
		}(i)
	}

	wg.Wait()

	totalRequests := successCount.Load() + rateLimitedCount.Load() + errorCount.Load()
	actualRPS := float64(totalRequests) / duration.Seconds()

	log.Println("Load test finished.")
	log.Printf("Total Requests: %d", totalRequests)
	log.Printf("Successful: %d", successCount.Load())
	log.Printf("Rate Limited (429): %d", rateLimitedCount.Load())
	log.Printf("Errors: %d", errorCount.Load())
	log.Printf("Actual RPS: %.2f", actualRPS)
}

// buildRequest mixes reads and writes in the configured ratio. Reads split
// between plain list pages (cache friendly) and searches (content addressed);
// writes create interactions so that invalidation churn is part of the load.
func buildRequest(ctx context.Context, rng *rand.Rand, baseURL, token string, writeRatio, workerID int) (*http.Request, error) {
	var req *http.Request
	var err error

	switch {
	case rng.Intn(100) < writeRatio:
		payload := fmt.Sprintf(`{"title": "load test interaction from worker %d", "channel": "email", "contact": "contact-%d@load.test", "occurred_at": %q}`,
			workerID, rng.Intn(500), time.Now().Format(time.RFC3339Nano))
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/interactions/", bytes.NewBufferString(payload))
		if req != nil {
			req.Header.Set("Content-Type", "application/json")
		}
	case rng.Intn(2) == 0:
		page := rng.Intn(5) + 1
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/interactions/?page=%d&page_size=20", baseURL, page), nil)
	default:
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/interactions/?q=worker+%d", baseURL, rng.Intn(50)), nil)
	}
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+token)
	return req, nil
}

func login(baseURL, site, email, password string) (string, error) {
	payload, _ := json.Marshal(map[string]string{
		"site":     site,
		"email":    email,
		"password": password,
	})

	resp, err := http.Post(baseURL+"/auth/login", "application/json", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	return body.Token, nil
}
