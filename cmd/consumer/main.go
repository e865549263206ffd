package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"

	"github.com/example/crowdship/internal/models"
)

var (
	eventsConsumed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consumer_events_consumed_total",
		Help: "Total request lifecycle events consumed",
	})
	eventsInvalid = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consumer_events_invalid_total",
		Help: "Total invalid events received",
	})
	viewUpdates = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consumer_view_updates_total",
		Help: "Total successful view updates",
	})
	viewErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consumer_view_errors_total",
		Help: "Total redis view errors",
	})
)

func init() {
	prometheus.MustRegister(eventsConsumed, eventsInvalid, viewUpdates, viewErrors)
}

const countsKey = "requests:status_counts"

func stateKey(id string) string { return "request:state:" + id }

func main() {
	// allow some flags for local runs
	var metricsAddr string
	flag.StringVar(&metricsAddr, "metrics-addr", ":2112", "address to serve prometheus metrics on")
	flag.Parse()

	brokersEnv := os.Getenv("KAFKA_BROKERS")
	if brokersEnv == "" {
		brokersEnv = os.Getenv("KAFKA_BROKER")
	}
	brokers := []string{}
	if brokersEnv != "" {
		for _, b := range strings.Split(brokersEnv, ",") {
			if s := strings.TrimSpace(b); s != "" {
				brokers = append(brokers, s)
			}
		}
	} else {
		brokers = []string{"localhost:9092"}
	}

	topic := os.Getenv("KAFKA_TOPIC")
	if topic == "" {
		topic = "request-events"
	}
	group := os.Getenv("KAFKA_GROUP")
	if group == "" {
		group = "crowdship-view"
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	rc := redis.NewClient(&redis.Options{Addr: redisAddr, Password: os.Getenv("REDIS_PASSWORD")})
	radapter := &redisAdapter{c: rc}

	// start metrics and health server
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) })
		mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			// readiness: check redis connectivity
			if err := rc.Ping(r.Context()).Err(); err != nil {
				http.Error(w, "redis not ready", 503)
				return
			}
			w.WriteHeader(200)
			w.Write([]byte("ready"))
		})
		log.Printf("metrics/health listening on %s", metricsAddr)
		if err := http.ListenAndServe(metricsAddr, mux); err != nil {
			log.Printf("metrics server stopped: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r := kafka.NewReader(kafka.ReaderConfig{Brokers: brokers, Topic: topic, GroupID: group, MinBytes: 10e3, MaxBytes: 10e6})
	defer func() {
		_ = r.Close()
		_ = rc.Close()
	}()

	log.Printf("view consumer listening topic=%s brokers=%v group=%s", topic, brokers, group)

	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		m, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Println("shutting down consumer")
				return
			}
			log.Printf("kafka read error: %v; backing off %s", err, backoff)
			time.Sleep(backoff)
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}
		// reset backoff on success
		backoff = time.Second

		eventsConsumed.Inc()

		var ev models.RequestEvent
		if err := json.Unmarshal(m.Value, &ev); err != nil || ev.RequestID == "" {
			eventsInvalid.Inc()
			log.Printf("invalid event: %v", err)
			continue
		}

		// Update the view with retries and small backoff
		if err := updateViewWithRetry(ctx, radapter, ev, 3, 200*time.Millisecond); err != nil {
			viewErrors.Inc()
			log.Printf("view update failed for request=%s: %v", ev.RequestID, err)
			continue
		}
		viewUpdates.Inc()
	}
}

// ViewStore defines the small subset of redis operations we need for tests
// and production.
type ViewStore interface {
	HGet(ctx context.Context, key, field string) (string, error)
	HSet(ctx context.Context, key string, values map[string]interface{}) error
	HIncrBy(ctx context.Context, key, field string, incr int64) error
}

type redisAdapter struct{ c *redis.Client }

func (r *redisAdapter) HGet(ctx context.Context, key, field string) (string, error) {
	v, err := r.c.HGet(ctx, key, field).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return v, err
}

func (r *redisAdapter) HSet(ctx context.Context, key string, values map[string]interface{}) error {
	_, err := r.c.HSet(ctx, key, values).Result()
	return err
}

func (r *redisAdapter) HIncrBy(ctx context.Context, key, field string, incr int64) error {
	_, err := r.c.HIncrBy(ctx, key, field, incr).Result()
	return err
}

// applyEvent folds one lifecycle event into the view: per-request state hash
// plus per-status counters. The previous status comes from the view itself,
// so counters move when a request changes status and stay put on replays of
// the same status.
func applyEvent(ctx context.Context, v ViewStore, ev models.RequestEvent) error {
	old, err := v.HGet(ctx, stateKey(ev.RequestID), "status")
	if err != nil {
		return err
	}
	cur := string(ev.Status)
	if old != cur {
		if old != "" {
			if err := v.HIncrBy(ctx, countsKey, old, -1); err != nil {
				return err
			}
		}
		if err := v.HIncrBy(ctx, countsKey, cur, 1); err != nil {
			return err
		}
	}
	fields := map[string]interface{}{"status": cur, "updated": ev.At.Format(time.RFC3339)}
	if ev.TravelerID != "" {
		fields["traveler_id"] = ev.TravelerID
	}
	return v.HSet(ctx, stateKey(ev.RequestID), fields)
}

// updateViewWithRetry applies an event with retry/backoff.
func updateViewWithRetry(ctx context.Context, v ViewStore, ev models.RequestEvent, attempts int, delay time.Duration) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = applyEvent(ctx, v, ev); err == nil {
			return nil
		}
		if i < attempts-1 {
			time.Sleep(delay)
			delay *= 2
		}
	}
	return err
}
