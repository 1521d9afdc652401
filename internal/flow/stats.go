package flow

import (
	"encoding/json"
	"fmt"
)

// ListMembers returns a queue's live memberships in positional order.
func (e *Engine) ListMembers(queueID string) ([]Membership, error) {
	if _, err := e.getQueue(queueID); err != nil {
		return nil, err
	}
	tokens, err := e.loadOrder(queueID)
	if err != nil {
		return nil, err
	}
	out := make([]Membership, 0, len(tokens))
	for _, tok := range tokens {
		r, err := parseToken(tok)
		if err != nil {
			return nil, err
		}
		m, err := e.liveMembership(r)
		if err != nil {
			return nil, err
		}
		if m == nil {
			return nil, fmt.Errorf("flow: order entry %s in queue %s has no live membership", tok, queueID)
		}
		out = append(out, *m)
	}
	return out, nil
}

// GetMembership returns the item's live membership, or nil when unqueued.
func (e *Engine) GetMembership(r Ref) (*Membership, error) {
	if _, err := e.resolveRef(r); err != nil {
		return nil, err
	}
	return e.liveMembership(r)
}

// History returns the item's archived memberships, oldest first. Failed and
// completed runs stay readable here after the live row is gone.
func (e *Engine) History(r Ref) ([]Membership, error) {
	if _, err := e.resolveRef(r); err != nil {
		return nil, err
	}
	var out []Membership
	err := e.db.ScanPrefix(itemHistPrefix(r.token()), func(_, value []byte) (bool, error) {
		var m Membership
		if err := json.Unmarshal(value, &m); err != nil {
			return false, err
		}
		out = append(out, m)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListUnqueued returns refs of a project's work items that have no live
// membership.
func (e *Engine) ListUnqueued(projectID string) ([]Ref, error) {
	var out []Ref
	ticketIDs, err := e.items.ProjectTickets(projectID)
	if err != nil {
		return nil, err
	}
	for _, tid := range ticketIDs {
		r := TicketRef(tid)
		m, err := e.liveMembership(r)
		if err != nil {
			return nil, err
		}
		if m == nil {
			out = append(out, r)
		}
	}
	taskIDs, err := e.items.ProjectTasks(projectID)
	if err != nil {
		return nil, err
	}
	for _, tid := range taskIDs {
		r := TaskRef(tid)
		m, err := e.liveMembership(r)
		if err != nil {
			return nil, err
		}
		if m == nil {
			out = append(out, r)
		}
	}
	return out, nil
}

// statSums carries the raw sums behind the averages, so aggregation across
// queues weights by run count rather than averaging averages.
type statSums struct {
	actSum, actCount int64
	estSum, estCount int64
}

func (e *Engine) queueStats(queueID string) (QueueStats, statSums, error) {
	if _, err := e.getQueue(queueID); err != nil {
		return QueueStats{}, statSums{}, err
	}
	stats := QueueStats{QueueID: queueID}
	var sums statSums

	members, err := e.ListMembers(queueID)
	if err != nil {
		return QueueStats{}, statSums{}, err
	}
	for _, m := range members {
		switch m.Status {
		case StatusQueued:
			stats.Queued++
		case StatusInProgress:
			stats.InProgress++
		}
		if m.EstimatedProcessingMs > 0 {
			sums.estSum += m.EstimatedProcessingMs
			sums.estCount++
		}
	}

	err = e.db.ScanPrefix(histPrefix(queueID), func(_, value []byte) (bool, error) {
		var m Membership
		if err := json.Unmarshal(value, &m); err != nil {
			return false, err
		}
		switch m.Status {
		case StatusCompleted:
			stats.Completed++
			if m.ActualProcessingMs > 0 {
				sums.actSum += m.ActualProcessingMs
				sums.actCount++
			}
		case StatusFailed:
			stats.Failed++
		case StatusCancelled:
			stats.Cancelled++
		}
		if m.EstimatedProcessingMs > 0 {
			sums.estSum += m.EstimatedProcessingMs
			sums.estCount++
		}
		return true, nil
	})
	if err != nil {
		return QueueStats{}, statSums{}, err
	}
	if sums.actCount > 0 {
		stats.AvgActualProcessingMs = sums.actSum / sums.actCount
	}
	if sums.estCount > 0 {
		stats.AvgEstimateMs = sums.estSum / sums.estCount
	}
	return stats, sums, nil
}

// QueueStats derives a queue's rollup from its live members and archived
// history.
func (e *Engine) QueueStats(queueID string) (QueueStats, error) {
	stats, _, err := e.queueStats(queueID)
	return stats, err
}

// ProjectStats aggregates QueueStats across a project's queues.
func (e *Engine) ProjectStats(projectID string) (ProjectStats, error) {
	queues, err := e.ListQueues(projectID)
	if err != nil {
		return ProjectStats{}, err
	}
	out := ProjectStats{ProjectID: projectID, Queues: make([]QueueStats, 0, len(queues))}
	var totals statSums
	for _, q := range queues {
		qs, sums, err := e.queueStats(q.ID)
		if err != nil {
			return ProjectStats{}, err
		}
		out.Queues = append(out.Queues, qs)
		out.Totals.Queued += qs.Queued
		out.Totals.InProgress += qs.InProgress
		out.Totals.Completed += qs.Completed
		out.Totals.Failed += qs.Failed
		out.Totals.Cancelled += qs.Cancelled
		totals.actSum += sums.actSum
		totals.actCount += sums.actCount
		totals.estSum += sums.estSum
		totals.estCount += sums.estCount
	}
	if totals.actCount > 0 {
		out.Totals.AvgActualProcessingMs = totals.actSum / totals.actCount
	}
	if totals.estCount > 0 {
		out.Totals.AvgEstimateMs = totals.estSum / totals.estCount
	}
	return out, nil
}
