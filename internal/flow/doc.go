// Package flow is the scheduling engine: it decides which agent works on
// which ticket or task, in what order, and how many at once.
//
// Work items join named per-project queues as memberships. Within a queue,
// queued and in-progress memberships hold dense zero-based positions that
// define claim order. Every mutating operation builds exactly one storage
// batch and commits it under the engine's commit lock, so readers never
// observe duplicate or missing positions, and a claim can never be granted
// to two agents.
//
// The engine never executes work. Agents poll ClaimNext, then report
// Complete or Fail; retry is a caller decision informed by RetryAdvice.
package flow
