// Package metrics defines the metrics sink contract the orchestrator calls
// into on every call, blocked request and health check, and ships a no-op
// default plus a Prometheus-backed reference sink.
package metrics

import (
	"time"

	"github.com/danielglennross/go-dcb/schema"
)

// CallRecord is passed to Sink.RecordCall.
type CallRecord struct {
	ID         string
	Outcome    schema.CallOutcome
	DurationMs int64
}

// BlockedRecord is passed to Sink.RecordBlockedRequest.
type BlockedRecord struct {
	ID string
}

// HealthCheckRecord is passed to Sink.RecordHealthCheck.
type HealthCheckRecord struct {
	ID         string
	Kind       schema.ProbeKind
	Outcome    schema.CallOutcome
	DurationMs int64
}

// Sink is the optional metrics collaborator the orchestrator calls into.
// Initialize is called once at construction.
type Sink interface {
	Initialize(id string)
	RecordCall(rec CallRecord)
	RecordBlockedRequest(rec BlockedRecord)
	RecordHealthCheck(rec HealthCheckRecord)
}

// Noop discards every call. It is the default when a caller supplies no
// Sink, grounded on the no-op pattern LerianStudio-lib-uncommons uses for
// its NopLogger (uncommons/log/nil.go).
type Noop struct{}

func (Noop) Initialize(string)                   {}
func (Noop) RecordCall(CallRecord)               {}
func (Noop) RecordBlockedRequest(BlockedRecord)  {}
func (Noop) RecordHealthCheck(HealthCheckRecord) {}

// Duration is a small helper so callers recording elapsed time don't need
// to import time themselves when building a CallRecord.
func Duration(d time.Duration) int64 {
	return d.Milliseconds()
}
