package flowsvc

import (
	"strings"
	"time"

	"github.com/google/cel-go/cel"

	"github.com/brandon-schabel/Promptliano-sub009/internal/flow"
)

// celFilter wraps a compiled CEL program evaluated against membership rows
// when listing queue members. When disabled, Eval always returns true.
type celFilter struct {
	prog    cel.Program
	enabled bool
}

func newCELFilter(expr string) (celFilter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return celFilter{enabled: false}, nil
	}
	env, err := cel.NewEnv(
		cel.Variable("item_type", cel.StringType),
		cel.Variable("item_id", cel.StringType),
		cel.Variable("queue_id", cel.StringType),
		cel.Variable("status", cel.StringType),
		cel.Variable("agent_id", cel.StringType),
		cel.Variable("priority", cel.IntType),
		cel.Variable("position", cel.IntType),
		cel.Variable("queued_at_ms", cel.IntType),
		cel.Variable("started_at_ms", cel.IntType),
		cel.Variable("estimate_ms", cel.IntType),
		// Current time in ms for windowed filters
		cel.Variable("now_ms", cel.IntType),
	)
	if err != nil {
		return celFilter{}, err
	}
	ast, iss := env.Parse(expr)
	if iss != nil && iss.Err() != nil {
		return celFilter{}, iss.Err()
	}
	checked, iss2 := env.Check(ast)
	if iss2 != nil && iss2.Err() != nil {
		return celFilter{}, iss2.Err()
	}
	prog, err := env.Program(checked)
	if err != nil {
		return celFilter{}, err
	}
	return celFilter{prog: prog, enabled: true}, nil
}

// Eval evaluates the expression against one membership. When disabled,
// returns true.
func (f celFilter) Eval(m flow.Membership) bool {
	if !f.enabled {
		return true
	}
	out, _, err := f.prog.Eval(map[string]any{
		"item_type":     string(m.ItemType),
		"item_id":       m.ItemID,
		"queue_id":      m.QueueID,
		"status":        string(m.Status),
		"agent_id":      m.AgentID,
		"priority":      int64(m.Priority),
		"position":      int64(m.Position),
		"queued_at_ms":  m.QueuedAtMs,
		"started_at_ms": m.StartedAtMs,
		"estimate_ms":   m.EstimatedProcessingMs,
		"now_ms":        time.Now().UnixMilli(),
	})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}
