// Package processor wires the configured backend, key pool and session
// together and runs them: a one-shot generation from the command line,
// an interactive session, or a model listing. It is the main coordinator
// between all other components.
package processor
