package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	goShop "github.com/MrEthical07/goShop"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type install struct {
	email  string
	client *goShop.Client
}

func main() {
	var (
		installs    = flag.Int("installs", 200, "number of client installations to sign in")
		concurrency = flag.Int("concurrency", 32, "number of concurrent workers")
		ops         = flag.Int("ops", 2000, "operations per phase (restore + storefront)")
		server      = flag.String("server", "", "backend base URL; if empty, an in-process fake backend is used")
		password    = flag.String("password", "loadtest", "password sent for every install")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "gsload", "storage key prefix; each install appends its index")
	)
	flag.Parse()

	if *installs <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "installs, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		rdb     redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		rdb = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = rdb.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		rdb = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = rdb.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	baseURL := *server
	if baseURL == "" {
		srv := httptest.NewServer(http.HandlerFunc(fakeBackend))
		defer srv.Close()
		baseURL = srv.URL
		fmt.Printf("using in-process backend at %s\n", baseURL)
	}

	pool := make([]install, *installs)
	for i := range pool {
		cfg := goShop.DefaultConfig()
		cfg.API.BaseURL = baseURL
		cfg.Storage.Backend = goShop.StorageRedis
		cfg.Storage.RedisPrefix = *prefix + ":" + strconv.Itoa(i)
		cfg.Metrics.Enabled = true
		cfg.Metrics.EnableLatencyHistograms = true

		c, err := goShop.New().WithConfig(cfg).WithRedis(rdb).Build()
		if err != nil {
			fmt.Fprintf(os.Stderr, "build install %d: %v\n", i, err)
			os.Exit(1)
		}
		defer c.Close()
		pool[i] = install{email: fmt.Sprintf("load-%d@example.com", i), client: c}
	}

	signInStats := runSignInPhase(ctx, pool, *password, *concurrency)
	restoreStats := runPhase(pool, *ops, *concurrency, 7919, func(c *goShop.Client) error {
		if !c.Restore(ctx).Authenticated() {
			return goShop.ErrNotAuthenticated
		}
		return nil
	})
	storefrontStats := runPhase(pool, *ops, *concurrency, 6151, func(c *goShop.Client) error {
		sf, err := c.FetchStorefront(ctx)
		if err != nil {
			return err
		}
		return sf.Products.Err
	})

	fmt.Println("---- results ----")
	printStats("signin", signInStats)
	printStats("restore", restoreStats)
	printStats("storefront", storefrontStats)
}

func runSignInPhase(ctx context.Context, pool []install, password string, concurrency int) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, len(pool))
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= len(pool) {
					return
				}
				t0 := time.Now()
				err := signIn(ctx, pool[i], password)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

func signIn(ctx context.Context, in install, password string) error {
	flow, err := in.client.NewAuthFlow()
	if err != nil {
		return err
	}
	defer flow.Close()
	_, err = flow.Submit(ctx, goShop.Attempt{Email: in.email, Password: password})
	return err
}

func runPhase(pool []install, ops, concurrency int, seed int64, op func(*goShop.Client) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*seed))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				c := pool[r.Intn(len(pool))].client
				t0 := time.Now()
				err := op(c)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}

// fakeBackend answers sign-in, banner and product calls with fixed data.
func fakeBackend(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/auth/authenticate":
		var body struct {
			Email string `json:"email"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success":       true,
			"user":          map[string]any{"id": body.Email, "email": body.Email},
			"jwt_token":     "access-" + body.Email,
			"refresh_token": "refresh-" + body.Email,
		})
	case r.Method == http.MethodGet && r.URL.Path == "/banner":
		_ = json.NewEncoder(w).Encode(map[string]any{"data": []any{
			map[string]any{"id": 1, "title": "Sale", "image_url": "https://cdn.example.com/sale.png"},
		}})
	case r.Method == http.MethodGet && r.URL.Path == "/product":
		_ = json.NewEncoder(w).Encode(map[string]any{"data": []any{
			map[string]any{"id": "p1", "name": "Runner", "price": 99.5, "category": map[string]any{"id": 1, "name": "Shoes"}},
			map[string]any{"id": "p2", "name": "Tote", "price": 20, "category": map[string]any{"id": 2, "name": "Bags"}},
		}})
	default:
		http.NotFound(w, r)
	}
}
