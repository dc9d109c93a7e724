package influxdb

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/relayhub/internal/infrastructure/config"
)

// Measurement names.
const (
	MeasurementRelayState = "relay_state"
	MeasurementController = "controller_status"
)

const (
	pingTimeout = 5 * time.Second
	openTimeout = 10 * time.Second

	defaultBatchSize     = 100
	defaultFlushInterval = 10 // seconds
)

// Logger receives batch write failures.
type Logger interface {
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Error(string, ...any) {}

// Recorder writes relay telemetry to one InfluxDB bucket.
//
// It satisfies the engine's recorder contract: WriteRelayState is called on
// every relay change and WriteControllerStatus on each heartbeat
// transition. Both are called with the engine lock held, so they only queue
// the point; the client's batch writer sends it later.
//
// Thread Safety: all methods are safe for concurrent use.
type Recorder struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
	logger   Logger
	now      func() time.Time

	mu       sync.RWMutex
	closed   bool
	failures int
}

// Open connects to InfluxDB, checks the server answers a ping and starts
// the batch writer for cfg.Bucket.
//
// Returns ErrDisabled when cfg.Enabled is false; callers treat that as
// "run without telemetry".
func Open(cfg config.InfluxDBConfig, logger Logger) (*Recorder, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, writeOptions(cfg))

	ctx, cancel := context.WithTimeout(context.Background(), openTimeout)
	defer cancel()
	if err := ping(ctx, client); err != nil {
		client.Close()
		return nil, err
	}

	writeAPI := client.WriteAPI(cfg.Org, cfg.Bucket)
	r := newRecorder(client, writeAPI, logger)
	go r.drainErrors(writeAPI.Errors())

	return r, nil
}

func newRecorder(client influxdb2.Client, writeAPI api.WriteAPI, logger Logger) *Recorder {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Recorder{
		client:   client,
		writeAPI: writeAPI,
		logger:   logger,
		now:      time.Now,
	}
}

// writeOptions maps the batch settings, falling back to defaults for
// zero or negative values.
func writeOptions(cfg config.InfluxDBConfig) *influxdb2.Options {
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	flush := cfg.FlushInterval
	if flush <= 0 {
		flush = defaultFlushInterval
	}
	// #nosec G115 -- both positive
	return influxdb2.DefaultOptions().
		SetBatchSize(uint(batch)).
		SetFlushInterval(uint(flush) * 1000)
}

func ping(ctx context.Context, client influxdb2.Client) error {
	healthy, err := client.Ping(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnreachable, err)
	}
	if !healthy {
		return fmt.Errorf("%w: ping reported unhealthy", ErrUnreachable)
	}
	return nil
}

// drainErrors logs and counts failed batches until the write API closes
// the channel.
func (r *Recorder) drainErrors(errs <-chan error) {
	for err := range errs {
		r.mu.Lock()
		r.failures++
		r.mu.Unlock()
		r.logger.Error("influxdb write failed", "error", err)
	}
}

// WriteRelayState records one relay change.
//
// Tags: relay number and source (manual, schedule, auto, controller).
// Fields: the state string and a 0/1 "on" value for duty-cycle graphs.
func (r *Recorder) WriteRelayState(relayID int, state string, source string) {
	r.write(write.NewPointWithMeasurement(MeasurementRelayState).
		AddTag("relay", strconv.Itoa(relayID)).
		AddTag("source", source).
		AddField("state", state).
		AddField("on", flag(state == "ON")))
}

// WriteControllerStatus records a heartbeat transition of the physical
// controller.
func (r *Recorder) WriteControllerStatus(status string) {
	r.write(write.NewPointWithMeasurement(MeasurementController).
		AddField("status", status).
		AddField("online", flag(status == "ONLINE")))
}

func (r *Recorder) write(p *write.Point) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}
	r.writeAPI.WritePoint(p.SetTime(r.now()))
}

func flag(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Failures returns the number of batches the server rejected.
func (r *Recorder) Failures() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.failures
}

// HealthCheck pings the server.
func (r *Recorder) HealthCheck(ctx context.Context) error {
	r.mu.RLock()
	closed := r.closed
	r.mu.RUnlock()
	if closed {
		return ErrClosed
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return ping(ctx, r.client)
}

// Close flushes queued points and closes the client. Writes after Close
// are dropped. Calling Close twice is a no-op.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	r.writeAPI.Flush()
	if r.client != nil {
		r.client.Close()
	}
	return nil
}
