package integrators

import (
	"fmt"
	"sort"

	"github.com/san-kum/pidloop/internal/plant"
)

var registry = map[string]func() plant.Integrator{
	"euler": func() plant.Integrator { return NewEuler() },
	"rk4":   func() plant.Integrator { return NewRK4() },
}

// New returns a fresh integrator by name.
func New(name string) (plant.Integrator, error) {
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown integrator %q", name)
	}
	return f(), nil
}

func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
