// Package animate drives the render loop: a slowly rotating scene and a
// periodic change of the edge weights.
//
// A [Loop] owns two tickers. The frame ticker advances the rotation angle
// and reports it through OnFrame; the weight ticker bumps an epoch counter
// and reports it through OnWeightsChanged. Both stop when the context
// passed to [Loop.Run] is cancelled.
package animate

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/layerviz/pkg/errors"
)

// Defaults for the browser visualizer cadence.
const (
	DefaultFPS            = 60
	DefaultRotationSpeed  = 0.002
	DefaultWeightInterval = 2 * time.Second

	// MaxFPS bounds the frame rate so the frame interval stays positive.
	MaxFPS = 1000

	// NoWeightChanges as WeightInterval disables the weight ticker.
	NoWeightChanges time.Duration = -1
)

// Options configures a Loop. Zero values take the defaults. A negative
// WeightInterval, such as NoWeightChanges, disables weight changes.
type Options struct {
	FPS            int
	RotationSpeed  float64
	WeightInterval time.Duration
	// StartEpoch is the epoch reported before the first weight tick.
	StartEpoch uint64
	Logger     *log.Logger
}

// SetDefaults fills zero fields and caps FPS at MaxFPS.
func (o *Options) SetDefaults() {
	if o.FPS <= 0 {
		o.FPS = DefaultFPS
	}
	o.FPS = min(o.FPS, MaxFPS)
	if o.RotationSpeed == 0 {
		o.RotationSpeed = DefaultRotationSpeed
	}
	if o.WeightInterval == 0 {
		o.WeightInterval = DefaultWeightInterval
	}
}

// Loop is the animation scheduler.
type Loop struct {
	// OnFrame is called from the loop goroutine with the rotation angle
	// after each frame.
	OnFrame func(rotation float64)
	// OnWeightsChanged is called with the new epoch after each weight tick.
	OnWeightsChanged func(epoch uint64)

	opts     Options
	frames   atomic.Uint64
	epoch    atomic.Uint64
	rotation atomic.Uint64 // float64 bits
	running  atomic.Bool
}

// New returns a loop. Callbacks may be set on the result before Run.
func New(opts Options) *Loop {
	opts.SetDefaults()
	l := &Loop{opts: opts}
	l.epoch.Store(opts.StartEpoch)
	return l
}

// Frames reports the number of frames rendered so far.
func (l *Loop) Frames() uint64 { return l.frames.Load() }

// Epoch reports the current weight epoch.
func (l *Loop) Epoch() uint64 { return l.epoch.Load() }

// Rotation reports the current rotation angle in radians.
func (l *Loop) Rotation() float64 { return math.Float64frombits(l.rotation.Load()) }

// Running reports whether Run is active.
func (l *Loop) Running() bool { return l.running.Load() }

// Run blocks until ctx is cancelled. Running the same loop twice
// concurrently is an error.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return errors.New(errors.ErrCodeInvalidInput, "animation loop already running")
	}
	defer l.running.Store(false)

	frame := time.NewTicker(time.Second / time.Duration(l.opts.FPS))
	defer frame.Stop()

	var weightC <-chan time.Time
	if l.opts.WeightInterval > 0 {
		wt := time.NewTicker(l.opts.WeightInterval)
		defer wt.Stop()
		weightC = wt.C
	}

	if l.opts.Logger != nil {
		l.opts.Logger.Debug("animation started", "fps", l.opts.FPS, "weight_interval", l.opts.WeightInterval)
	}

	for {
		select {
		case <-ctx.Done():
			if l.opts.Logger != nil {
				l.opts.Logger.Debug("animation stopped", "frames", l.Frames(), "epoch", l.Epoch())
			}
			return nil
		case <-frame.C:
			l.step()
		case <-weightC:
			e := l.epoch.Add(1)
			if l.OnWeightsChanged != nil {
				l.OnWeightsChanged(e)
			}
		}
	}
}

func (l *Loop) step() {
	l.frames.Add(1)
	r := l.Rotation() + l.opts.RotationSpeed
	l.rotation.Store(math.Float64bits(r))
	if l.OnFrame != nil {
		l.OnFrame(r)
	}
}

// Start runs the loop in a goroutine. The returned function cancels it
// and waits for the goroutine to exit; calling it more than once is safe.
func (l *Loop) Start(ctx context.Context) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = l.Run(ctx)
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			wg.Wait()
		})
	}
}
