package environment

import "slices"

// Kit is the immutable value a service keeps from its own construction: a
// back-reference to the hosting environment plus the identities of the
// dependencies it declared. The back-reference is how background work
// started by the service reaches sibling services later; it grants no
// registration or seal rights, only the post-seal access surface.
type Kit struct {
	env  *Environment
	deps []string
}

// Environment returns the back-reference to the hosting environment.
func (k *Kit) Environment() *Environment { return k.env }

// Dependencies returns the declared dependency identities in declaration
// order.
func (k *Kit) Dependencies() []string { return slices.Clone(k.deps) }

// KitBuilder accumulates dependency declarations while a service is being
// constructed. Obtain one with NewKit at the top of a StartFunc, declare
// dependencies with WithDependency, then freeze it with Build.
type KitBuilder struct {
	env  *Environment
	ed   *Editor
	deps []string
}

// NewKit binds a builder to the in-progress bootstrap.
func NewKit(env *Environment, ed *Editor) *KitBuilder {
	return &KitBuilder{env: env, ed: ed}
}

// WithDependency declares a dependency of the service under construction,
// registering and constructing it first if it is not already present. The
// dependency (and, recursively, its own dependencies) is fully constructed
// before this returns. Cycles are not detected; an accidental one recurses
// until the stack gives out, which is the fatal outcome it deserves.
func WithDependency[D any](b *KitBuilder, start StartFunc[D]) *KitBuilder {
	id := identityOf[D]()
	if !b.env.registered(id) {
		Register(b.ed, start)
	}
	b.deps = append(b.deps, id)
	return b
}

// Build finalizes the builder into the Kit the service stores. Later
// declarations on the builder do not leak into an already-built Kit.
func (b *KitBuilder) Build() *Kit {
	return &Kit{env: b.env, deps: slices.Clone(b.deps)}
}
