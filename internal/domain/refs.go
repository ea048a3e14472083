package domain

import "strings"

// ParentRef identifies the external content object a comment tree hangs off.
// The engine never dereferences it; permission gates and renderers may.
type ParentRef struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

func (r ParentRef) Valid() bool {
	return strings.TrimSpace(r.Type) != "" && strings.TrimSpace(r.ID) != ""
}

func (r ParentRef) String() string {
	return r.Type + ":" + r.ID
}

// ActorRef identifies the requesting user. Authentication is external; the
// engine only threads this through permission checks and version authorship.
type ActorRef struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

func (a ActorRef) Valid() bool {
	return strings.TrimSpace(a.ID) != ""
}
