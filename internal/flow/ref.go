package flow

import (
	"fmt"
	"strings"
)

// ItemType discriminates the two kinds of work item.
type ItemType string

// Work item kinds.
const (
	ItemTicket ItemType = "ticket"
	ItemTask   ItemType = "task"
)

// Valid reports whether t is a known item type.
func (t ItemType) Valid() bool { return t == ItemTicket || t == ItemTask }

// Ref addresses a work item. It is the unit every Flow operation accepts;
// payloads stay in the items store.
type Ref struct {
	Type ItemType `json:"itemType"`
	ID   string   `json:"itemId"`
}

// TicketRef builds a ticket reference.
func TicketRef(id string) Ref { return Ref{Type: ItemTicket, ID: id} }

// TaskRef builds a task reference.
func TaskRef(id string) Ref { return Ref{Type: ItemTask, ID: id} }

func (r Ref) String() string { return string(r.Type) + ":" + r.ID }

// token is the stable storage encoding of a Ref, used as the value of order
// index entries and as map keys inside operations.
func (r Ref) token() string { return r.String() }

func parseToken(s string) (Ref, error) {
	typ, id, ok := strings.Cut(s, ":")
	if !ok {
		return Ref{}, fmt.Errorf("flow: bad ref token %q", s)
	}
	r := Ref{Type: ItemType(typ), ID: id}
	if !r.Type.Valid() || r.ID == "" {
		return Ref{}, fmt.Errorf("flow: bad ref token %q", s)
	}
	return r, nil
}
