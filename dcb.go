// Package dcb is a distributed circuit breaker: many independent processes
// guarding the same downstream dependency share one circuit state over a
// coordination store (the only shipped implementation is Redis, see
// coordination/redis), with exactly one process elected leader at a time
// responsible for deciding state transitions and running health-check
// probes. Followers observe the same state and call-result log and append
// their own call results, but never write to the state log.
//
// Construct a breaker.CircuitBreaker with breaker.New, call Start, guard
// calls through Execute, and Stop on shutdown. The subpackages below are
// independently usable but are normally only touched directly when
// substituting a coordination store, a failure-detection strategy, or a
// backoff policy:
//
//   - coordination: the Log/Mutex/Store contracts a backing store must
//     satisfy, and the Log Reader every replicated store tails with.
//   - coordination/redis: the shipped Store, backed by Redis Streams and
//     Redlock.
//   - store/callresult, store/state: the two replicated stores the
//     orchestrator keeps current.
//   - election: the leader elector.
//   - healthcheck: the recovery/idle probing scheduler.
//   - strategy: pluggable failure-detection strategies.
//   - backoff: pluggable recovery-probe delay functions.
//   - metrics: the optional metrics sink contract.
//   - breaker: the orchestrator itself.
package dcb
