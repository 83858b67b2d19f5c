package main

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/jessevdk/go-flags"
)

type Options struct {
	Concurrency int           `short:"c" long:"concurrency" default:"100" description:"Number of concurrent connections"`
	Requests    int           `short:"n" long:"requests" default:"10000" description:"Number of requests to make"`
	URL         string        `short:"u" long:"url" default:"http://localhost:8080/animals" description:"URL to benchmark"`
	Timeout     time.Duration `long:"timeout" default:"5s" description:"Per-request timeout"`
}

type result struct {
	duration time.Duration
	status   int
	err      error
}

func main() {
	opts := &Options{}
	if _, err := flags.NewParser(opts, flags.Default).Parse(); err != nil {
		os.Exit(2)
	}
	if opts.Concurrency < 1 || opts.Requests < 1 {
		log.Fatalf("concurrency and requests must be positive")
	}

	fmt.Printf("Benchmarking %s with %d requests using %d concurrent connections\n",
		opts.URL, opts.Requests, opts.Concurrency)

	client := &http.Client{
		Timeout: opts.Timeout,
		Transport: &http.Transport{
			MaxIdleConnsPerHost: opts.Concurrency,
		},
	}

	jobs := make(chan int)
	results := make(chan result, opts.Concurrency)

	var wg sync.WaitGroup
	for range opts.Concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range jobs {
				start := time.Now()
				resp, err := client.Get(opts.URL)
				r := result{err: err}
				if err == nil {
					_, _ = io.Copy(io.Discard, resp.Body)
					resp.Body.Close()
					r.status = resp.StatusCode
				}
				r.duration = time.Since(start)
				results <- r
			}
		}()
	}

	startTime := time.Now()
	go func() {
		for i := range opts.Requests {
			jobs <- i
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	var (
		durations  []time.Duration
		errorCount int
		statuses   = map[int]int{}
	)
	for r := range results {
		durations = append(durations, r.duration)
		if r.err != nil {
			errorCount++
			if errorCount <= 10 { // limit error output
				fmt.Printf("Request error: %v\n", r.err)
			}
		} else {
			statuses[r.status]++
		}

		// periodically report progress
		if n := len(durations); n%1000 == 0 {
			fmt.Printf("Completed %d requests (errors: %d)\n", n, errorCount)
		}
	}
	elapsed := time.Since(startTime)

	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })
	var total time.Duration
	for _, d := range durations {
		total += d
	}

	fmt.Printf("\nBenchmark Results:\n")
	fmt.Printf("Total requests: %d\n", opts.Requests)
	fmt.Printf("Failed requests: %d\n", errorCount)
	for status, count := range statuses {
		fmt.Printf("Status %d: %d\n", status, count)
	}
	fmt.Printf("Total time: %v\n", elapsed)
	fmt.Printf("Requests per second: %.2f\n", float64(opts.Requests)/elapsed.Seconds())
	fmt.Printf("Min response time: %v\n", durations[0])
	fmt.Printf("Avg response time: %v\n", total/time.Duration(len(durations)))
	fmt.Printf("P99 response time: %v\n", durations[len(durations)*99/100])
	fmt.Printf("Max response time: %v\n", durations[len(durations)-1])
}
