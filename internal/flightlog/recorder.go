package flightlog

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/flight-bridge/fcb/internal/config"
	"github.com/flight-bridge/fcb/internal/dji"
)

// Header is the first row of every flight log.
var Header = []string{
	"timestamp", "latitude", "longitude", "altitude",
	"velocity_x", "velocity_y", "velocity_z",
	"pitch", "roll", "yaw",
	"ultrasonic_height", "satellite_count", "flight_mode",
	"is_flying", "motors_on",
}

type session struct {
	path string
	file *os.File
	w    *csv.Writer
	stop chan struct{}
	wg   conc.WaitGroup

	mu   sync.Mutex
	rows int
	err  error
}

// Recorder samples FlightController.State() into one CSV file at a time.
type Recorder struct {
	sdk      dji.SDK
	dir      string
	interval time.Duration
	log      *slog.Logger
	now      func() time.Time

	mu     sync.Mutex
	active *session
}

// NewRecorder creates a recorder writing under cfg.Dir.
func NewRecorder(sdk dji.SDK, cfg config.RecorderConfig, log *slog.Logger) *Recorder {
	return &Recorder{
		sdk:      sdk,
		dir:      cfg.Dir,
		interval: cfg.SampleInterval,
		log:      log,
		now:      time.Now,
	}
}

// FileName turns a host-supplied name into a bare CSV file name. An empty
// name yields a timestamped one.
func FileName(name string, now time.Time) string {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "." || name == string(filepath.Separator) || name == "" {
		name = "flight-" + now.UTC().Format("20060102-150405")
	}
	if !strings.EqualFold(filepath.Ext(name), ".csv") {
		name += ".csv"
	}
	return name
}

// StartLogging opens a new log file. A log already in progress is closed
// first.
func (r *Recorder) StartLogging(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active != nil {
		if err := r.finish(r.active); err != nil {
			r.log.Warn("previous flight log closed with error", "path", r.active.path, "error", err)
		}
		r.active = nil
	}

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create flight log directory: %w", err)
	}
	path := filepath.Join(r.dir, FileName(name, r.now()))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create flight log: %w", err)
	}

	s := &session{path: path, file: f, w: csv.NewWriter(f), stop: make(chan struct{})}
	if err := s.w.Write(Header); err != nil {
		f.Close()
		return fmt.Errorf("failed to write flight log header: %w", err)
	}
	s.w.Flush()

	r.active = s
	s.wg.Go(func() { r.sample(s) })
	r.log.Info("flight log started", "path", path, "interval", r.interval)
	return nil
}

// StopLogging closes the active log. It is a no-op when nothing is being
// recorded.
func (r *Recorder) StopLogging() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == nil {
		return nil
	}
	s := r.active
	r.active = nil
	err := r.finish(s)
	r.log.Info("flight log stopped", "path", s.path, "rows", s.rowCount(), "error", err)
	return err
}

// Path returns the file being written, or "" when idle.
func (r *Recorder) Path() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == nil {
		return ""
	}
	return r.active.path
}

// Rows returns the number of samples written to the active log.
func (r *Recorder) Rows() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == nil {
		return 0
	}
	return r.active.rowCount()
}

// Close stops any active log.
func (r *Recorder) Close() error {
	return r.StopLogging()
}

func (r *Recorder) finish(s *session) error {
	close(s.stop)
	s.wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.w.Flush()
	err := s.err
	if err == nil {
		err = s.w.Error()
	}
	if cerr := s.file.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to write flight log %s: %w", filepath.Base(s.path), err)
	}
	return nil
}

func (r *Recorder) sample(s *session) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			product := r.sdk.Product()
			if product == nil {
				continue
			}
			fc := product.FlightController()
			if fc == nil {
				continue
			}
			if !s.write(r.now(), fc.State()) {
				return
			}
		}
	}
}

// write appends one row and reports whether sampling should continue.
func (s *session) write(ts time.Time, st dji.FlightControllerState) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.w.Write(Row(ts, st))
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		s.err = err
		return false
	}
	s.rows++
	return true
}

func (s *session) rowCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows
}

// Row formats one state snapshot in Header order.
func Row(ts time.Time, st dji.FlightControllerState) []string {
	f32 := func(v float32) string { return strconv.FormatFloat(float64(v), 'f', 3, 32) }
	return []string{
		ts.UTC().Format(time.RFC3339Nano),
		strconv.FormatFloat(st.Latitude, 'f', 7, 64),
		strconv.FormatFloat(st.Longitude, 'f', 7, 64),
		f32(st.Altitude),
		f32(st.VelocityX),
		f32(st.VelocityY),
		f32(st.VelocityZ),
		strconv.FormatFloat(st.Pitch, 'f', 2, 64),
		strconv.FormatFloat(st.Roll, 'f', 2, 64),
		strconv.FormatFloat(st.Yaw, 'f', 2, 64),
		f32(st.UltrasonicHeight),
		strconv.Itoa(st.SatelliteCount),
		st.FlightMode,
		strconv.FormatBool(st.IsFlying),
		strconv.FormatBool(st.AreMotorsOn),
	}
}
