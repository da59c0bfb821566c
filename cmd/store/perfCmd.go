package store

import (
	"encoding/csv"
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ValentinKolb/sVS/cmd/util"
	"github.com/ValentinKolb/sVS/lib/document"
	"github.com/ValentinKolb/sVS/lib/stores"
	"github.com/ValentinKolb/sVS/rpc/common"
	"github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for sVS servers",
		Long:    "",
		RunE:    runPerf,
		PreRunE: processPerfConfig,
	}
	perfScratchKey = "__perf"
	perfStore      = "preferences"
	perfNumThreads = 10
	perfSkip       = make([]string, 0)
)

func init() {
	// add flags
	key := "store"
	perfTestCmd.Flags().String(key, "preferences", util.WrapString("Store to run the benchmarks against"))
	key = "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. fetch,mutate)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of threads to use for the mutate benchmark"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfStore = viper.GetString("store")
	perfNumThreads = viper.GetInt("threads")
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	return nil
}

func runPerf(_ *cobra.Command, _ []string) error {

	fmt.Println("Performance testing tool for sVS servers")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(util.GetClientConfig().String())
	fmt.Printf("Store: %s\n", perfStore)
	fmt.Printf("Threads: %d\n", perfNumThreads)
	fmt.Println()

	// Attach a seeded replica, all mutations run against the live server state
	desc, ok := stores.DescriptorFor(perfStore)
	if !ok {
		return fmt.Errorf("no built-in descriptor for store %q", perfStore)
	}
	rs, err := syncClient.NewStore(desc)
	if err != nil {
		return err
	}
	if err := syncClient.AwaitSeeded(perfStore); err != nil {
		return err
	}

	fmt.Println("starting tests...")

	// Results and per-op latency samples per benchmark
	results := make(map[string]testing.BenchmarkResult)
	timers := make(map[string]metrics.Timer)

	// Unique value per mutation so the equality check never discards one
	var opCounter atomic.Uint64
	nextValue := func() float64 { return float64(opCounter.Add(1)) }
	writeCounter := func(v float64) error {
		return rs.Mutate(func(doc document.Document) document.Document {
			document.Set(doc, v, perfScratchKey, "counter")
			return doc
		})
	}

	// waitDrained blocks until the authority state reflects the given counter
	// value, i.e. until the intent queue of the client is drained
	waitDrained := func(test string, want float64) {
		deadline := time.Now().Add(30 * time.Second)
		for time.Now().Before(deadline) {
			if doc, _, err := syncClient.Fetch(perfStore); err == nil {
				if v, ok := document.Get(doc, perfScratchKey, "counter"); ok {
					if f, ok := v.(float64); ok && f == want {
						return
					}
				}
			}
			time.Sleep(50 * time.Millisecond)
		}
		log.Printf("(%s) - timed out waiting for the intent queue to drain\n", test)
	}

	fetchTimer := metrics.NewTimer()
	fetchResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("fetch") {
			return
		}

		b.ResetTimer()

		// Fetch admits one in-flight read per store, so this benchmark runs
		// sequentially and measures the full request round trip
		for i := 0; i < b.N; i++ {
			start := time.Now()
			if _, _, err := syncClient.Fetch(perfStore); err != nil {
				log.Printf("(fetch) - error fetching store: %v\n", err)
			}
			fetchTimer.UpdateSince(start)
		}
	})

	results["fetch"] = fetchResult
	timers["fetch"] = fetchTimer
	printResult("fetch", fetchResult)
	printLatencies(fetchTimer)

	mutateResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("mutate") {
			return
		}

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		// Measures the optimistic local apply plus the intent enqueue, the
		// propagation to the server happens asynchronously
		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				if err := writeCounter(nextValue()); err != nil {
					log.Printf("(mutate) - error mutating store: %v\n", err)
				}
			}
		})

		// Drain the queued intents so the backlog is not attributed to the
		// following benchmarks
		b.StopTimer()
		if v, ok := document.Get(rs.Get(), perfScratchKey, "counter"); ok {
			if f, ok := v.(float64); ok {
				waitDrained("mutate", f)
			}
		}
	})

	results["mutate"] = mutateResult
	printResult("mutate", mutateResult)

	flushTimer := metrics.NewTimer()
	flushResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("flush") {
			return
		}

		b.ResetTimer()

		for i := 0; i < b.N; i++ {
			start := time.Now()
			if err := syncClient.Flush(perfStore); err != nil {
				log.Printf("(flush) - error flushing store: %v\n", err)
			}
			flushTimer.UpdateSince(start)
		}
	})

	results["flush"] = flushResult
	timers["flush"] = flushTimer
	printResult("flush", flushResult)
	printLatencies(flushTimer)

	mixedTimer := metrics.NewTimer()
	mixedResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("mixed") {
			return
		}

		b.ResetTimer()

		for i := 0; i < b.N; i++ {
			start := time.Now()
			var err error
			switch i % 3 {
			case 0: // mutate
				err = writeCounter(nextValue())
			case 1: // fetch
				_, _, err = syncClient.Fetch(perfStore)
			case 2: // flush
				err = syncClient.Flush(perfStore)
			}
			if err != nil {
				log.Printf("(mixed) - error performing operation (%d): %v\n", i%3, err)
			}
			mixedTimer.UpdateSince(start)
		}

		b.StopTimer()
		if v, ok := document.Get(rs.Get(), perfScratchKey, "counter"); ok {
			if f, ok := v.(float64); ok {
				waitDrained("mixed", f)
			}
		}
	})

	results["mixed"] = mixedResult
	timers["mixed"] = mixedTimer
	printResult("mixed", mixedResult)
	printLatencies(mixedTimer)

	// Write results to csv is specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results, timers, util.GetClientConfig()); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	// Remove the benchmark scratch data from the store, Close drains the
	// deleting intent before detaching
	if err := rs.Mutate(func(doc document.Document) document.Document {
		document.Delete(doc, perfScratchKey)
		return doc
	}); err != nil {
		log.Printf("error removing benchmark data: %v\n", err)
	}
	return syncClient.Close()
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func shouldSkip(test string) bool {
	// Check if the test is in the skip list
	for _, skip := range perfSkip {
		if test == skip {
			return true
		}
	}
	return false
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, result testing.BenchmarkResult) {
	if result.NsPerOp() == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}

	nsPerOp := math.Max(float64(result.NsPerOp()), 1) // prevent division by zero
	opsPerSec := 1.0 / (nsPerOp / 1e9)

	// Print the formatted result
	fmt.Printf("%-20s%.0fns/op (%s/op)\t%.0f ops/sec\n", test, nsPerOp, time.Duration(nsPerOp), opsPerSec)
}

// printLatencies prints the latency percentiles of a benchmark test
func printLatencies(timer metrics.Timer) {
	if timer.Count() == 0 {
		return
	}

	ps := timer.Percentiles([]float64{0.5, 0.95, 0.99})
	fmt.Printf("%-20sp50=%s p95=%s p99=%s max=%s\n", "",
		time.Duration(int64(ps[0])),
		time.Duration(int64(ps[1])),
		time.Duration(int64(ps[2])),
		time.Duration(timer.Max()))
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results map[string]testing.BenchmarkResult, timers map[string]metrics.Timer, config *common.ClientConfig) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	header := []string{
		"Test", "NsPerOp", "DurationPerOp", "OpsPerSec",
		"P50", "P95", "P99", "Skipped",
		"Endpoints", "TimeoutSec", "RetryCount",
		"Serializer", "Transport", "Threads", "Store",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	// Write test results
	for test, result := range results {
		var nsPerOp float64
		var opsPerSec float64
		var skipped string

		if result.NsPerOp() == 0 {
			skipped = "true"
			nsPerOp = 0
			opsPerSec = 0
		} else {
			skipped = "false"
			nsPerOp = math.Max(float64(result.NsPerOp()), 1)
			opsPerSec = 1.0 / (nsPerOp / 1e9)
		}

		var p50, p95, p99 string
		if timer, ok := timers[test]; ok && timer.Count() > 0 {
			ps := timer.Percentiles([]float64{0.5, 0.95, 0.99})
			p50 = time.Duration(int64(ps[0])).String()
			p95 = time.Duration(int64(ps[1])).String()
			p99 = time.Duration(int64(ps[2])).String()
		}

		row := []string{
			test,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.0f", opsPerSec),
			p50,
			p95,
			p99,
			skipped,
			strings.Join(config.Endpoints, ";"),
			strconv.Itoa(config.TimeoutSecond),
			strconv.Itoa(config.RetryCount),
			viper.GetString("serializer"),
			viper.GetString("transport"),
			strconv.Itoa(perfNumThreads),
			perfStore,
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", test, err)
		}
	}

	return nil
}
