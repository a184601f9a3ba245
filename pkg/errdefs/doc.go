// Package errdefs defines the error taxonomy shared by the registry,
// dispatcher and HTTP layers.
//
// Invariants:
// - Every error produced by this package matches exactly one sentinel via errors.Is.
// - Wrapping with fmt.Errorf("...: %w") preserves the kind.
//
// Usage:
//
//	err := errdefs.NotFound("registry.resolve", "unknown worker: %s", name)
//	if errdefs.IsNotFound(err) {
//		// map to 404
//	}
package errdefs
