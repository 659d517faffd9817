package handler

import (
	"github.com/zeebo/errs/v2"
)

var (
	ErrDuplicate  = errs.Tag("duplicate handler")
	ErrUnknownDep = errs.Tag("unknown handler dependency")
	ErrCycle      = errs.Tag("handler dependency cycle")
)

type registration struct {
	name    string
	handler Handler
	after   []string
}

// Registry is the fixed table of handlers that make up a pipeline. Handlers
// are registered once at startup; the processor freezes the dependency order
// before any event is processed.
type Registry struct {
	regs   []registration
	byName map[string]int
}

func NewRegistry() *Registry {
	return &Registry{byName: map[string]int{}}
}

// Register adds a handler under name. after lists handlers whose finalized
// data this handler reads; they must finalize first.
func (r *Registry) Register(name string, h Handler, after ...string) error {
	if _, ok := r.byName[name]; ok {
		return ErrDuplicate.Errorf("handler %q already registered", name)
	}
	r.byName[name] = len(r.regs)
	r.regs = append(r.regs, registration{name: name, handler: h, after: after})
	return nil
}

func (r *Registry) Handler(name string) (Handler, bool) {
	i, ok := r.byName[name]
	if !ok {
		return nil, false
	}
	return r.regs[i].handler, true
}

// Names returns handler names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.regs))
	for i, reg := range r.regs {
		names[i] = reg.name
	}
	return names
}

// Order returns handler names sorted so that every handler appears after all
// of its declared dependencies. Registration order breaks ties, so the result
// is stable across runs. Unknown dependencies and cycles are configuration
// errors.
func (r *Registry) Order() ([]string, error) {
	indegree := make(map[string]int, len(r.regs))
	dependents := make(map[string][]string, len(r.regs))
	for _, reg := range r.regs {
		for _, dep := range reg.after {
			if _, ok := r.byName[dep]; !ok {
				return nil, ErrUnknownDep.Errorf("handler %q depends on unregistered %q", reg.name, dep)
			}
			indegree[reg.name]++
			dependents[dep] = append(dependents[dep], reg.name)
		}
	}

	var ready []string
	for _, reg := range r.regs {
		if indegree[reg.name] == 0 {
			ready = append(ready, reg.name)
		}
	}

	order := make([]string, 0, len(r.regs))
	for len(ready) > 0 {
		name := ready[0]
		ready = ready[1:]
		order = append(order, name)
		for _, dep := range dependents[name] {
			indegree[dep]--
			if indegree[dep] == 0 {
				ready = append(ready, dep)
			}
		}
	}

	if len(order) != len(r.regs) {
		var stuck []string
		for _, reg := range r.regs {
			if indegree[reg.name] > 0 {
				stuck = append(stuck, reg.name)
			}
		}
		return nil, ErrCycle.Errorf("handlers %v depend on each other", stuck)
	}
	return order, nil
}
