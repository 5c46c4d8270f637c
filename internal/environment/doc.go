// Package environment owns the controller's service registry.
//
// Ownership boundary:
// - type-keyed storage of long-lived service instances
// - staged bootstrap (register, then seal, then access)
// - per-service shared/exclusive borrow arbitration
// - the Kit used by services to declare dependencies during construction
//
// The environment never inspects service internals; it mediates identity,
// lifecycle, and access only. Misuse of the lifecycle (registering after
// seal, accessing before seal, conflicting acquisition) is a wiring bug in
// the assembling program and panics with a *FatalError.
package environment
