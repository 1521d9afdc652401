package flow

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/brandon-schabel/Promptliano-sub009/internal/config"
	"github.com/brandon-schabel/Promptliano-sub009/internal/flowevent"
	"github.com/brandon-schabel/Promptliano-sub009/pkg/log"
)

// ReapStale fails in-progress claims whose holder is presumed dead. A claim
// is stale once now > startedAt + max(estimate*factor, minAge). Returns how
// many claims were failed. The sweep is bounded by cfg.MaxPerSweep.
func (e *Engine) ReapStale(ctx context.Context, cfg config.ReaperConfig) (int, error) {
	factor := cfg.EstimateFactor
	if factor <= 0 {
		factor = 3
	}
	minAgeMs := cfg.MinAge.Std().Milliseconds()
	if minAgeMs <= 0 {
		minAgeMs = (10 * time.Minute).Milliseconds()
	}
	limit := cfg.MaxPerSweep
	if limit <= 0 {
		limit = 256
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.nowMs()
	var stale []Ref
	err := e.db.ScanPrefix([]byte(prefixMember), func(_, value []byte) (bool, error) {
		var m Membership
		if err := json.Unmarshal(value, &m); err != nil {
			return false, err
		}
		if m.Status != StatusInProgress {
			return true, nil
		}
		deadlineMs := minAgeMs
		if m.EstimatedProcessingMs > 0 {
			if d := int64(float64(m.EstimatedProcessingMs) * factor); d > deadlineMs {
				deadlineMs = d
			}
		}
		if now-m.StartedAtMs > deadlineMs {
			stale = append(stale, m.Ref())
		}
		return len(stale) < limit, nil
	})
	if err != nil {
		return 0, err
	}
	if len(stale) == 0 {
		return 0, nil
	}

	t := e.newTxn()
	defer t.close()

	reaped := 0
	for _, r := range stale {
		m, err := t.member(r)
		if err != nil {
			return 0, err
		}
		if m == nil || m.Status != StatusInProgress {
			continue
		}
		tokens, err := t.order(m.QueueID)
		if err != nil {
			return 0, err
		}
		tok := r.token()
		kept := tokens[:0:0]
		for _, s := range tokens {
			if s != tok {
				kept = append(kept, s)
			}
		}
		t.setOrder(m.QueueID, kept)

		m.Status = StatusFailed
		m.CompletedAtMs = now
		m.ActualProcessingMs = now - m.StartedAtMs
		m.ErrorMessage = "claim expired: agent " + m.AgentID + " presumed gone"
		if err := t.archive(m); err != nil {
			return 0, err
		}
		t.removeMember(r)
		if err := t.event(flowevent.Record{
			ProjectID: m.ProjectID,
			Type:      flowevent.TypeReaped,
			ItemType:  string(m.ItemType),
			ItemID:    m.ItemID,
			QueueID:   m.QueueID,
			AgentID:   m.AgentID,
			Message:   m.ErrorMessage,
		}); err != nil {
			return 0, err
		}
		reaped++
	}
	if reaped == 0 {
		return 0, nil
	}
	if err := t.commit(ctx); err != nil {
		return 0, err
	}
	e.log.Info("reaped stale claims", log.Int("count", reaped),
		log.Str("refs", strings.Join(refStrings(stale), ",")))
	return reaped, nil
}

func refStrings(refs []Ref) []string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.String()
	}
	return out
}

// Reaper periodically runs ReapStale against an engine.
type Reaper struct {
	engine *Engine
	cfg    config.ReaperConfig
	logger log.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewReaper creates a stopped Reaper.
func NewReaper(engine *Engine, cfg config.ReaperConfig, logger log.Logger) *Reaper {
	ctx, cancel := context.WithCancel(context.Background())
	if logger == nil {
		logger = log.NewLogger()
	}
	return &Reaper{
		engine: engine,
		cfg:    cfg,
		logger: logger.With(log.Component("flow.reaper")),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins the sweep loop.
func (r *Reaper) Start() {
	r.wg.Add(1)
	go r.run()
}

// Stop halts the loop and waits for the in-flight sweep.
func (r *Reaper) Stop() {
	r.cancel()
	r.wg.Wait()
}

func (r *Reaper) run() {
	defer r.wg.Done()

	interval := r.cfg.Interval.Std()
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.logger.Info("reaper started", log.Dur("interval", interval))
	for {
		select {
		case <-r.ctx.Done():
			r.logger.Info("reaper stopped")
			return
		case <-ticker.C:
			if _, err := r.engine.ReapStale(r.ctx, r.cfg); err != nil {
				r.logger.Error("sweep failed", log.Err(err))
			}
		}
	}
}
