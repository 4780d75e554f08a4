package stick

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/sourcegraph/conc"

	"github.com/flight-bridge/fcb/internal/config"
	"github.com/flight-bridge/fcb/internal/dji"
	"github.com/flight-bridge/fcb/internal/telemetry"
)

// Stop reasons reported in VirtualStickStopped events.
const (
	ReasonStopped     = "stopped"
	ReasonCompleted   = "completed"
	ReasonReplaced    = "replaced"
	ReasonUnavailable = "unavailable"
	ReasonError       = "error"
)

// Control limits.
const (
	MaxHorizontalSpeed = 15.0
	MaxYawRate         = 100.0
	MaxVerticalSpeed   = 4.0
	MinFrequencyHz     = 1.0
	DefaultFrequencyHz = 10.0
	MaxFrequencyHz     = 50.0
)

const modeSwitchTimeout = 5 * time.Second

// Parameters describes one virtual-stick run. Pitch and roll are m/s, yaw is
// deg/s and vertical throttle is m/s. DurationMs 0 runs until stopped.
type Parameters struct {
	Pitch                      float32 `mapstructure:"pitch"`
	Roll                       float32 `mapstructure:"roll"`
	Yaw                        float32 `mapstructure:"yaw"`
	VerticalThrottle           float32 `mapstructure:"verticalThrottle"`
	DurationMs                 int     `mapstructure:"durationMs"`
	FrequencyHz                float64 `mapstructure:"frequencyHz"`
	DoNotStopVirtualStickOnEnd bool    `mapstructure:"doNotStopVirtualStickOnEnd"`
}

// ParseParameters decodes host parameters. A nil map is an all-zero hover.
func ParseParameters(params map[string]any) (Parameters, error) {
	var p Parameters
	if params == nil {
		return p, nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &p,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return p, fmt.Errorf("failed to create stick decoder: %w", err)
	}
	if err := dec.Decode(params); err != nil {
		return p, fmt.Errorf("%w: %v", dji.ErrInvalidParameter, err)
	}
	return p, p.Validate()
}

// Validate checks control ranges.
func (p Parameters) Validate() error {
	switch {
	case !finite(float64(p.Pitch), float64(p.Roll), float64(p.Yaw), float64(p.VerticalThrottle), p.FrequencyHz):
		return fmt.Errorf("%w: stick values must be finite numbers", dji.ErrInvalidParameter)
	case abs(p.Pitch) > MaxHorizontalSpeed || abs(p.Roll) > MaxHorizontalSpeed:
		return fmt.Errorf("%w: pitch and roll must be within ±%.0f m/s", dji.ErrInvalidParameter, MaxHorizontalSpeed)
	case abs(p.Yaw) > MaxYawRate:
		return fmt.Errorf("%w: yaw must be within ±%.0f deg/s", dji.ErrInvalidParameter, MaxYawRate)
	case abs(p.VerticalThrottle) > MaxVerticalSpeed:
		return fmt.Errorf("%w: verticalThrottle must be within ±%.0f m/s", dji.ErrInvalidParameter, MaxVerticalSpeed)
	case p.DurationMs < 0:
		return fmt.Errorf("%w: durationMs must not be negative", dji.ErrInvalidParameter)
	case p.FrequencyHz != 0 && (p.FrequencyHz < MinFrequencyHz || p.FrequencyHz > MaxFrequencyHz):
		return fmt.Errorf("%w: frequencyHz must be 0 (default) or between %.0f and %.0f", dji.ErrInvalidParameter, MinFrequencyHz, MaxFrequencyHz)
	}
	return nil
}

func (p Parameters) controlData() dji.FlightControlData {
	return dji.FlightControlData{
		Pitch:            p.Pitch,
		Roll:             p.Roll,
		Yaw:              p.Yaw,
		VerticalThrottle: p.VerticalThrottle,
	}
}

func finite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func abs(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

// Publisher receives VirtualStickStopped events.
type Publisher interface {
	Publish(event telemetry.Event) error
}

type run struct {
	stop   chan string
	done   chan struct{}
	params Parameters
}

// Controller owns at most one active run.
type Controller struct {
	sdk       dji.SDK
	pub       Publisher
	log       *slog.Logger
	defaultHz float64

	mu     sync.Mutex
	active *run
	closed bool
	wg     conc.WaitGroup
}

// NewController creates a controller. cfg.FrequencyHz is used when a run
// does not set its own; values outside [1, 50] fall back to DefaultFrequencyHz.
func NewController(sdk dji.SDK, pub Publisher, cfg config.VirtualStickConfig, log *slog.Logger) *Controller {
	hz := cfg.FrequencyHz
	if !(hz >= MinFrequencyHz && hz <= MaxFrequencyHz) {
		hz = DefaultFrequencyHz
	}
	return &Controller{
		sdk:       sdk,
		pub:       pub,
		log:       log,
		defaultHz: hz,
	}
}

// Start begins a run, ending any previous run with ReasonReplaced first. It
// returns once the run is scheduled; mode switching and streaming happen in
// the background.
func (c *Controller) Start(p Parameters) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.FrequencyHz == 0 {
		p.FrequencyHz = c.defaultHz
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("%w: virtual stick controller closed", dji.ErrUnavailable)
	}
	if c.active != nil {
		c.end(c.active, ReasonReplaced)
	}

	r := &run{stop: make(chan string, 1), done: make(chan struct{}), params: p}
	c.active = r
	c.wg.Go(func() { c.loop(r) })
	return nil
}

// Stop signals the active run, if any, to end and returns without waiting
// for the mode switch. The run publishes VirtualStickStopped when it is done.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active != nil {
		c.active.signal(ReasonStopped)
	}
}

// signal asks r to end with reason. Only the first reason is kept.
func (r *run) signal(reason string) {
	select {
	case r.stop <- reason:
	default:
	}
}

// end signals r and waits for it. Caller holds c.mu.
func (c *Controller) end(r *run, reason string) {
	r.signal(reason)
	<-r.done
	if c.active == r {
		c.active = nil
	}
}

// Running reports whether a run is active.
func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return false
	}
	select {
	case <-c.active.done:
		return false
	default:
		return true
	}
}

// Close stops the active run and refuses new ones.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	if c.active != nil {
		c.end(c.active, ReasonStopped)
	}
	c.mu.Unlock()
	c.wg.Wait()
}

func (c *Controller) loop(r *run) {
	defer close(r.done)

	reason, cause := c.stream(r)

	data := map[string]any{"reason": reason}
	if cause != nil {
		data["error"] = cause.Error()
	}
	c.log.Info("virtual stick run ended", "reason", reason, "error", cause)
	if err := c.pub.Publish(telemetry.Event{Type: telemetry.EventVirtualStickStop, Data: data}); err != nil {
		c.log.Warn("failed to publish virtual stick event", "error", err)
	}
}

// stream runs the control loop and returns why it ended.
func (c *Controller) stream(r *run) (string, error) {
	product := c.sdk.Product()
	if product == nil {
		return ReasonUnavailable, fmt.Errorf("%w: could not get product instance", dji.ErrUnavailable)
	}
	fc := product.FlightController()
	if fc == nil {
		return ReasonUnavailable, fmt.Errorf("%w: flight controller unavailable", dji.ErrUnavailable)
	}

	if err := c.setMode(fc, true); err != nil {
		return ReasonError, err
	}

	interval := time.Duration(float64(time.Second) / r.params.FrequencyHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var deadline <-chan time.Time
	if r.params.DurationMs > 0 {
		timer := time.NewTimer(time.Duration(r.params.DurationMs) * time.Millisecond)
		defer timer.Stop()
		deadline = timer.C
	}

	sample := r.params.controlData()
	send := func(d dji.FlightControlData) {
		fc.SendVirtualStickFlightControlData(d, func(err error) {
			if err != nil {
				c.log.Debug("virtual stick sample rejected", "error", err)
			}
		})
	}
	send(sample)

	var reason string
loop:
	for {
		select {
		case reason = <-r.stop:
			break loop
		case <-deadline:
			reason = ReasonCompleted
			break loop
		case <-ticker.C:
			send(sample)
		}
	}

	send(dji.FlightControlData{})
	if !r.params.DoNotStopVirtualStickOnEnd {
		if err := c.setMode(fc, false); err != nil {
			return reason, err
		}
	}
	return reason, nil
}

func (c *Controller) setMode(fc dji.FlightController, enabled bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), modeSwitchTimeout)
	defer cancel()
	err := dji.Await(ctx, func(done dji.CompletionFunc) {
		fc.SetVirtualStickModeEnabled(enabled, done)
	})
	if err != nil {
		return dji.Wrap("setVirtualStickModeEnabled", err)
	}
	return nil
}
