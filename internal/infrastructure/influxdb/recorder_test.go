package influxdb

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/relayhub/internal/infrastructure/config"
)

// fakeWriteAPI captures queued points. Methods it does not override panic
// through the nil embedded interface.
type fakeWriteAPI struct {
	api.WriteAPI

	mu      sync.Mutex
	points  []*write.Point
	flushed int
}

func (f *fakeWriteAPI) WritePoint(p *write.Point) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.points = append(f.points, p)
}

func (f *fakeWriteAPI) Flush() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushed++
}

type errorLog struct {
	mu   sync.Mutex
	msgs []string
}

func (l *errorLog) Error(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.msgs = append(l.msgs, msg)
}

var fixedTime = time.Date(2026, 3, 1, 7, 0, 0, 0, time.UTC)

func testRecorder() (*Recorder, *fakeWriteAPI) {
	w := &fakeWriteAPI{}
	r := newRecorder(nil, w, nil)
	r.now = func() time.Time { return fixedTime }
	return r, w
}

func tagsOf(p *write.Point) map[string]string {
	m := make(map[string]string)
	for _, t := range p.TagList() {
		m[t.Key] = t.Value
	}
	return m
}

func fieldsOf(p *write.Point) map[string]any {
	m := make(map[string]any)
	for _, f := range p.FieldList() {
		m[f.Key] = f.Value
	}
	return m
}

func TestRecorder_WriteRelayState(t *testing.T) {
	tests := []struct {
		name     string
		relay    int
		state    string
		source   string
		wantRelay string
		wantOn   int64
	}{
		{"schedule switches on", 3, "ON", "schedule", "3", 1},
		{"controller reports off", 8, "OFF", "controller", "8", 0},
		{"auto command", 1, "ON", "auto", "1", 1},
		{"manual toggle off", 12, "OFF", "manual", "12", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, w := testRecorder()
			r.WriteRelayState(tt.relay, tt.state, tt.source)

			if len(w.points) != 1 {
				t.Fatalf("points queued = %d, want 1", len(w.points))
			}
			p := w.points[0]
			if p.Name() != MeasurementRelayState {
				t.Errorf("measurement = %q, want %q", p.Name(), MeasurementRelayState)
			}
			tags := tagsOf(p)
			if tags["relay"] != tt.wantRelay || tags["source"] != tt.source {
				t.Errorf("tags = %v, want relay=%s source=%s", tags, tt.wantRelay, tt.source)
			}
			fields := fieldsOf(p)
			if fields["state"] != tt.state {
				t.Errorf("state = %v, want %s", fields["state"], tt.state)
			}
			if fields["on"] != tt.wantOn {
				t.Errorf("on = %v (%T), want %d", fields["on"], fields["on"], tt.wantOn)
			}
			if !p.Time().Equal(fixedTime) {
				t.Errorf("time = %v, want %v", p.Time(), fixedTime)
			}
		})
	}
}

func TestRecorder_WriteControllerStatus(t *testing.T) {
	tests := []struct {
		status     string
		wantOnline int64
	}{
		{"ONLINE", 1},
		{"OFFLINE", 0},
		{"REBOOTING", 0},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			r, w := testRecorder()
			r.WriteControllerStatus(tt.status)

			if len(w.points) != 1 {
				t.Fatalf("points queued = %d, want 1", len(w.points))
			}
			p := w.points[0]
			if p.Name() != MeasurementController {
				t.Errorf("measurement = %q, want %q", p.Name(), MeasurementController)
			}
			if len(p.TagList()) != 0 {
				t.Errorf("tags = %v, want none", tagsOf(p))
			}
			fields := fieldsOf(p)
			if fields["status"] != tt.status || fields["online"] != tt.wantOnline {
				t.Errorf("fields = %v", fields)
			}
		})
	}
}

func TestRecorder_CloseFlushesAndStopsWrites(t *testing.T) {
	r, w := testRecorder()
	r.WriteRelayState(2, "ON", "manual")

	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if w.flushed != 1 {
		t.Errorf("flushed = %d, want 1", w.flushed)
	}

	r.WriteRelayState(2, "OFF", "schedule")
	r.WriteControllerStatus("OFFLINE")
	if len(w.points) != 1 {
		t.Errorf("points queued = %d, want only the one before Close", len(w.points))
	}
}

func TestRecorder_HealthCheckAfterClose(t *testing.T) {
	r, _ := testRecorder()
	_ = r.Close()

	if err := r.HealthCheck(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("HealthCheck() = %v, want ErrClosed", err)
	}
}

func TestRecorder_DrainErrors(t *testing.T) {
	log := &errorLog{}
	r := newRecorder(nil, &fakeWriteAPI{}, log)

	errs := make(chan error, 2)
	errs <- errors.New("bucket not found")
	errs <- errors.New("unauthorized")
	close(errs)
	r.drainErrors(errs)

	if r.Failures() != 2 {
		t.Errorf("Failures() = %d, want 2", r.Failures())
	}
	if len(log.msgs) != 2 {
		t.Errorf("logged %d errors, want 2", len(log.msgs))
	}
}

func TestRecorder_ConcurrentWrites(t *testing.T) {
	r, w := testRecorder()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(relayID int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				r.WriteRelayState(relayID, "ON", "schedule")
			}
		}(i + 1)
	}
	wg.Wait()

	if len(w.points) != 200 {
		t.Errorf("points queued = %d, want 200", len(w.points))
	}
}

func TestWriteOptions(t *testing.T) {
	tests := []struct {
		name      string
		batch     int
		flush     int
		wantBatch uint
		wantFlush uint
	}{
		{"configured", 50, 2, 50, 2000},
		{"zero uses defaults", 0, 0, defaultBatchSize, defaultFlushInterval * 1000},
		{"negative uses defaults", -5, -1, defaultBatchSize, defaultFlushInterval * 1000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := writeOptions(config.InfluxDBConfig{BatchSize: tt.batch, FlushInterval: tt.flush})
			if opts.BatchSize() != tt.wantBatch {
				t.Errorf("BatchSize() = %d, want %d", opts.BatchSize(), tt.wantBatch)
			}
			if opts.FlushInterval() != tt.wantFlush {
				t.Errorf("FlushInterval() = %d, want %d", opts.FlushInterval(), tt.wantFlush)
			}
		})
	}
}

func TestOpen_Disabled(t *testing.T) {
	r, err := Open(config.InfluxDBConfig{Enabled: false}, nil)
	if !errors.Is(err, ErrDisabled) || r != nil {
		t.Errorf("Open(disabled) = %v, %v, want nil, ErrDisabled", r, err)
	}
}

func TestOpen_Unreachable(t *testing.T) {
	_, err := Open(config.InfluxDBConfig{Enabled: true, URL: "http://127.0.0.1:59999"}, nil)
	if !errors.Is(err, ErrUnreachable) {
		t.Errorf("Open(unreachable) = %v, want ErrUnreachable", err)
	}
}
