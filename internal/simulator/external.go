package simulator

import (
	"context"
	"errors"
	"sync"

	"thermostat_cosim/internal/frame"
	"thermostat_cosim/internal/model"
)

// Runtime is an opaque co-simulation runtime, such as a compiled building
// model instance, that has been prepared before the run. Close may be called
// while a Step that overran its deadline is still in flight; the runtime
// must abandon that step rather than wait for it.
type Runtime interface {
	Setup(spec InitSpec) error
	Step(ctx context.Context, t, step int64, inputs model.Values) (model.Values, error)
	Close() error
}

var errRuntimeClosed = errors.New("building runtime is closed")

// ExternalBuilding adapts a Runtime to the BuildingModel contract. The
// runtime handle is owned exclusively by this model.
type ExternalBuilding struct {
	name    string
	inputs  []model.Signal
	outputs []model.Signal

	// mu guards closed and is never held across runtime calls.
	mu      sync.Mutex
	runtime Runtime
	closed  bool
}

// NewExternalBuilding wraps rt. inputs are forwarded from the control,
// sensor and weather rows, in that order of precedence.
func NewExternalBuilding(name string, rt Runtime, inputs, outputs []model.Signal) *ExternalBuilding {
	return &ExternalBuilding{name: name, runtime: rt, inputs: inputs, outputs: outputs}
}

func (b *ExternalBuilding) Name() string                 { return b.name }
func (b *ExternalBuilding) InputStates() []model.Signal  { return b.inputs }
func (b *ExternalBuilding) OutputStates() []model.Signal { return b.outputs }

func (b *ExternalBuilding) Initialize(spec InitSpec) error {
	if b.isClosed() {
		return errRuntimeClosed
	}
	return b.runtime.Setup(spec)
}

func (b *ExternalBuilding) DoStep(ctx context.Context, clock Clock, control model.Values, sensors, weather frame.Row) (model.Values, error) {
	in := make(model.Values, len(b.inputs))
	for _, s := range b.inputs {
		if v, ok := control.Get(s); ok {
			in[s] = v
		} else if v, ok := sensors.Float(s); ok {
			in[s] = v
		} else if v, ok := weather.Float(s); ok {
			in[s] = v
		}
	}

	if b.isClosed() {
		return nil, errRuntimeClosed
	}
	return b.runtime.Step(ctx, clock.T, clock.Step, in)
}

// TearDown closes the runtime once, without waiting for an in-flight step.
func (b *ExternalBuilding) TearDown() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()
	return b.runtime.Close()
}

func (b *ExternalBuilding) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}
