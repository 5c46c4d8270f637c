package environment

// Editor is the mutable registration path produced by Bootstrap. It aliases
// the same environment as the shared handle, so services registered early
// can already hold a back-reference to the whole while the caller keeps
// registering through the editor. Once FinishBootstrap runs, every
// registration through the editor panics.
type Editor struct {
	env *Environment
}

// Bootstrap creates a fresh, unsealed environment and hands back the shared
// handle plus the editor in one step. The two alias a single registry
// instance; nothing about the handshake requires the registry to be fully
// populated first, because access through the shared handle is rejected
// until FinishBootstrap anyway.
func Bootstrap() (*Environment, *Editor) {
	env := &Environment{services: make(map[string]*slot)}
	return env, &Editor{env: env}
}
