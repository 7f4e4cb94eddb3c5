// Package httpapi exposes the Snapzy auth engine over REST.
//
// All routes live under /api/auth. Request and response bodies are JSON;
// failures are reported as {"error": "..."} with a status derived from the
// engine's sentinel errors.
//
// # Architecture boundaries
//
// This package translates HTTP to engine calls and back. It holds no
// business rules: state transitions, validation beyond JSON decoding, and
// error taxonomy all belong to the engine.
package httpapi
