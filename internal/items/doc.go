// Package items stores the ticket and task records the Flow engine schedules.
//
// The scheduler only needs enough of each record to resolve work item
// references, enforce parent/child relationships, and enumerate a project's
// items; richer ticket content lives with the callers that produce it.
package items
