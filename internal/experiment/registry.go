package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/pidloop/internal/integrators"
	"github.com/san-kum/pidloop/internal/metrics"
	"github.com/san-kum/pidloop/internal/plant"
)

type Registry struct {
	models map[string]func() *plant.Motor
}

func NewRegistry() *Registry {
	r := &Registry{
		models: make(map[string]func() *plant.Motor),
	}
	r.models["motor"] = plant.NewMotor
	r.models["arm"] = plant.NewArm
	return r
}

// Register adds or replaces a plant model.
func (r *Registry) Register(name string, fn func() *plant.Motor) {
	r.models[name] = fn
}

func (r *Registry) GetModel(name string) (*plant.Motor, error) {
	fn, ok := r.models[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", plant.ErrUnknownModel, name)
	}
	return fn(), nil
}

func (r *Registry) GetIntegrator(name string) (plant.Integrator, error) {
	return integrators.New(name)
}

func (r *Registry) ListModels() []string {
	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) DefaultMetrics() []metrics.Metric {
	return metrics.Standard()
}
