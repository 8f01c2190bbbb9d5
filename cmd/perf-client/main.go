// Command perf-client hammers the endorsement endpoint with concurrent
// submissions against one campaign. Besides throughput numbers it checks the
// completion invariants afterward: progress must equal the number of accepted
// endorsements and at most one reward code may exist.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// PerfResult gathers aggregated metrics for the test run.
// Atomic counters are used to avoid lock-contention on hot paths.
// LatencySum & P95Latency are in nanoseconds.
//
// P95Latency is maintained via a lightweight reservoir sampler.
type PerfResult struct {
	TotalRequests int64
	SuccessCount  int64
	ErrorCount    int64
	LatencySum    int64
	P95Latency    int64
}

const (
	fixedWorkers   = 50
	fixedRPSTarget = 700
	fixedDuration  = 30 * time.Second
	defaultTimeout = 30 * time.Second
	ownerIdentity  = "load-owner@perf.test"
)

var baseURL = "http://localhost:8080"

func main() {
	if v := os.Getenv("PERF_BASE_URL"); v != "" {
		baseURL = v
	}

	rps := fixedRPSTarget
	duration := fixedDuration
	workers := fixedWorkers

	transport := &http.Transport{
		MaxIdleConns:        workers * 4,
		MaxIdleConnsPerHost: workers * 4,
		IdleConnTimeout:     90 * time.Second,
	}
	httpClient := &http.Client{
		Transport: transport,
		Timeout:   defaultTimeout,
	}

	campaignCode, err := createCampaign(httpClient)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create campaign: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Created campaign %s\n", campaignCode)

	fmt.Println("==========================================")
	fmt.Println("Endorsement load test")
	fmt.Println("==========================================")
	fmt.Printf("Campaign : %s\n", campaignCode)
	fmt.Printf("Target RPS : %d\n", rps)
	fmt.Printf("Duration : %v\n", duration)
	fmt.Println("==========================================")

	burst := rps / workers
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(rps), burst)

	ctx, cancel := context.WithTimeout(context.Background(), duration)
	defer cancel()

	var result PerfResult
	var wg sync.WaitGroup
	var seq int64

	// latencyChan collects latencies for P95 estimation.
	latencyChan := make(chan time.Duration, 4096)
	go trackP95(latencyChan, &result)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if err := limiter.Wait(ctx); err != nil { // context cancelled -> exit
					return
				}
				n := atomic.AddInt64(&seq, 1)
				doRequest(httpClient, campaignCode, n, &result, latencyChan)
			}
		}()
	}

	start := time.Now()
	<-ctx.Done() // wait for duration

	wg.Wait()
	close(latencyChan)

	totalDur := time.Since(start)

	fmt.Println("==========================================")
	fmt.Println("Results")
	fmt.Println("==========================================")
	fmt.Printf("Elapsed            : %.2fs\n", totalDur.Seconds())
	fmt.Printf("Total requests     : %d\n", result.TotalRequests)
	fmt.Printf("Accepted           : %d\n", result.SuccessCount)
	fmt.Printf("Rejected/errors    : %d\n", result.ErrorCount)

	actualRPS := float64(result.SuccessCount) / totalDur.Seconds()
	successRate := float64(result.SuccessCount) / float64(result.TotalRequests) * 100

	var avgLatency time.Duration
	if result.SuccessCount > 0 {
		avgLatency = time.Duration(result.LatencySum / result.SuccessCount)
	}

	fmt.Printf("Actual RPS         : %.2f\n", actualRPS)
	fmt.Printf("Success rate       : %.2f%%\n", successRate)
	fmt.Printf("Avg latency        : %v\n", avgLatency)
	fmt.Printf("P95 latency        : %v\n", time.Duration(result.P95Latency))
	fmt.Println("==========================================")

	fmt.Println("Consistency check")
	if err := verifyConsistency(httpClient, campaignCode, result.SuccessCount); err != nil {
		fmt.Printf("FAILED: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("OK: progress matches accepted endorsements, at most one reward")
}

// createCampaign creates the campaign the workers will endorse.
func createCampaign(httpClient *http.Client) (string, error) {
	body, _ := json.Marshal(map[string]string{"owner_identity": ownerIdentity})

	resp, err := httpClient.Post(baseURL+"/campaigns", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create campaign failed: %w", err)
	}
	defer resp.Body.Close()

	var parsed struct {
		Success  bool `json:"success"`
		Campaign struct {
			Code string `json:"code"`
		} `json:"campaign"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode campaign response: %w", err)
	}
	if !parsed.Success || parsed.Campaign.Code == "" {
		return "", fmt.Errorf("campaign response not usable (status %d)", resp.StatusCode)
	}
	return parsed.Campaign.Code, nil
}

// doRequest submits a single endorsement with a unique endorser identity.
func doRequest(httpClient *http.Client, campaignCode string, n int64, result *PerfResult, latencyChan chan<- time.Duration) {
	body, _ := json.Marshal(map[string]string{
		"endorser_identity": fmt.Sprintf("endorser-%d@perf.test", n),
		"kind":              "approval",
	})

	url := fmt.Sprintf("%s/campaigns/%s/endorsements", baseURL, campaignCode)

	start := time.Now()
	atomic.AddInt64(&result.TotalRequests, 1)

	resp, err := httpClient.Post(url, "application/json", bytes.NewReader(body))
	latency := time.Since(start)

	if err != nil {
		atomic.AddInt64(&result.ErrorCount, 1)
		return
	}
	resp.Body.Close()

	if resp.StatusCode == http.StatusCreated {
		atomic.AddInt64(&result.SuccessCount, 1)
		atomic.AddInt64(&result.LatencySum, latency.Nanoseconds())
		select {
		case latencyChan <- latency:
		default:
		}
	} else {
		atomic.AddInt64(&result.ErrorCount, 1)
	}
}

// verifyConsistency re-reads the campaign and checks the counting invariants.
func verifyConsistency(httpClient *http.Client, campaignCode string, accepted int64) error {
	resp, err := httpClient.Get(baseURL + "/campaigns/" + campaignCode)
	if err != nil {
		return fmt.Errorf("get campaign: %w", err)
	}
	defer resp.Body.Close()

	var parsed struct {
		Success  bool `json:"success"`
		Campaign struct {
			Progress     int     `json:"progress"`
			Threshold    int     `json:"threshold"`
			Status       string  `json:"status"`
			RewardCodeID *string `json:"reward_code_id"`
		} `json:"campaign"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return fmt.Errorf("decode campaign: %w", err)
	}

	if int64(parsed.Campaign.Progress) != accepted {
		return fmt.Errorf("progress %d does not match accepted endorsements %d",
			parsed.Campaign.Progress, accepted)
	}
	if accepted >= int64(parsed.Campaign.Threshold) {
		if parsed.Campaign.Status != "completed" {
			return fmt.Errorf("threshold crossed but status is %s", parsed.Campaign.Status)
		}
		if parsed.Campaign.RewardCodeID == nil {
			return fmt.Errorf("completed campaign without a reward code")
		}
	} else if parsed.Campaign.RewardCodeID != nil {
		return fmt.Errorf("reward code issued below threshold")
	}

	return nil
}

// trackP95 maintains a best-effort rolling P95 latency estimation.
func trackP95(latencies <-chan time.Duration, result *PerfResult) {
	const size = 1000
	buf := make([]int64, 0, size)

	for lat := range latencies {
		if len(buf) < size {
			buf = append(buf, lat.Nanoseconds())
		} else {
			// Replace random element (simple reservoir sampling)
			if idx := time.Now().UnixNano() % int64(size); idx < int64(size/10) {
				buf[idx] = lat.Nanoseconds()
			}
		}

		// Update P95 periodically
		if len(buf) >= 100 && len(buf)%100 == 0 {
			copyBuf := make([]int64, len(buf))
			copy(copyBuf, buf)
			quickSort(copyBuf)
			p95Index := int(float64(len(copyBuf)) * 0.95)
			if p95Index >= len(copyBuf) {
				p95Index = len(copyBuf) - 1
			}
			atomic.StoreInt64(&result.P95Latency, copyBuf[p95Index])
		}
	}
}

// quickSort sorts the array in ascending order
func quickSort(arr []int64) {
	if len(arr) < 2 {
		return
	}

	left, right := 0, len(arr)-1
	pivot := arr[len(arr)/2]

	for left <= right {
		for arr[left] < pivot {
			left++
		}
		for arr[right] > pivot {
			right--
		}
		if left <= right {
			arr[left], arr[right] = arr[right], arr[left]
			left++
			right--
		}
	}

	quickSort(arr[:right+1])
	quickSort(arr[left:])
}
