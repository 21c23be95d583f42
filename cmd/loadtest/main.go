package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"

	"github.com/Brownie44l1/lumistore/internal/payment"
)

// ==============================================
// OPTIONS
// ==============================================

type options struct {
	baseURL     string
	orderID     string
	trxID       string
	statusCode  int
	concurrency int
	iterations  int
	va          string
	apiKey      string
}

// ==============================================
// METRICS
// ==============================================

type results struct {
	mu            sync.Mutex
	byStatus      map[int]int
	totalRequests int64
	connErrors    int64
	totalDuration int64 // milliseconds
}

func (r *results) record(status int, d time.Duration) {
	atomic.AddInt64(&r.totalRequests, 1)
	atomic.AddInt64(&r.totalDuration, d.Milliseconds())
	r.mu.Lock()
	r.byStatus[status]++
	r.mu.Unlock()
}

func (r *results) print(elapsed time.Duration) {
	total := atomic.LoadInt64(&r.totalRequests)

	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Println("CALLBACK LOAD TEST RESULTS")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("Total Requests:     %d\n", total)
	fmt.Printf("Connection errors:  %d\n", atomic.LoadInt64(&r.connErrors))
	fmt.Println(strings.Repeat("-", 60))

	codes := make([]int, 0, len(r.byStatus))
	for code := range r.byStatus {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		fmt.Printf("HTTP %d:           %d\n", code, r.byStatus[code])
	}

	fmt.Println(strings.Repeat("-", 60))
	if total > 0 {
		fmt.Printf("Avg Response Time:  %dms\n", atomic.LoadInt64(&r.totalDuration)/total)
		fmt.Printf("Throughput:         %.2f requests/second\n", float64(total)/elapsed.Seconds())
	}
	fmt.Println(strings.Repeat("=", 60))
}

// ==============================================
// MAIN LOAD TEST
// ==============================================

func main() {
	var opts options

	cmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Replay one signed payment callback concurrently against a running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(opts)
		},
		SilenceUsage: true,
	}

	f := cmd.Flags()
	f.StringVar(&opts.baseURL, "base-url", "http://localhost:8080/api/v1", "API base URL")
	f.StringVar(&opts.orderID, "order", "", "order id to settle (required)")
	f.StringVar(&opts.trxID, "trx", "loadtest-trx", "gateway transaction id")
	f.IntVar(&opts.statusCode, "status-code", 1, "gateway status code (1 paid, -1 expired, -2 failed)")
	f.IntVar(&opts.concurrency, "concurrency", 10, "concurrent senders")
	f.IntVar(&opts.iterations, "iterations", 5, "callbacks per sender")
	f.StringVar(&opts.va, "va", os.Getenv("IPAYMU_VA"), "merchant virtual account")
	f.StringVar(&opts.apiKey, "api-key", os.Getenv("IPAYMU_API_KEY"), "merchant API key")
	_ = cmd.MarkFlagRequired("order")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(opts options) error {
	if opts.apiKey == "" {
		return fmt.Errorf("api key is required to sign callbacks")
	}

	body, err := json.Marshal(map[string]any{
		"trx_id":       opts.trxID,
		"status":       "loadtest",
		"status_code":  opts.statusCode,
		"reference_id": opts.orderID,
	})
	if err != nil {
		return err
	}
	signature := payment.NewVerifier(opts.va, opts.apiKey).Sign(payment.SignMethod, body)

	client := resty.New().
		SetBaseURL(opts.baseURL).
		SetTimeout(30 * time.Second)

	fmt.Println("Running health check...")
	resp, err := client.R().Get(strings.TrimSuffix(opts.baseURL, "/api/v1") + "/health")
	if err != nil || resp.IsError() {
		return fmt.Errorf("server is not healthy: %v", err)
	}

	fmt.Printf("Configuration: %d goroutines x %d iterations = %d callbacks for order %s\n\n",
		opts.concurrency, opts.iterations, opts.concurrency*opts.iterations, opts.orderID)

	res := &results{byStatus: make(map[int]int)}
	start := time.Now()

	var wg sync.WaitGroup
	for i := 0; i < opts.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < opts.iterations; j++ {
				t := time.Now()
				resp, err := client.R().
					SetHeader("Content-Type", "application/json").
					SetHeader("signature", signature).
					SetBody(body).
					Post("/payment/callback")
				if err != nil {
					atomic.AddInt64(&res.connErrors, 1)
					continue
				}
				res.record(resp.StatusCode(), time.Since(t))
			}
		}()
	}
	wg.Wait()

	res.print(time.Since(start))
	return nil
}
