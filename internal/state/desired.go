package state

import (
	"slices"
	"strings"
)

// DesiredState is the durable record of which destinations are pinned and the
// gateway they are currently anchored to. A nil Gateway means the routes have
// never been anchored.
type DesiredState struct {
	Gateway *string  `json:"gateway"`
	Routes  []string `json:"routes"`
}

// Empty returns the state used when nothing has been persisted yet.
func Empty() DesiredState {
	return DesiredState{Routes: []string{}}
}

// Anchored reports whether a gateway has ever been recorded.
func (s DesiredState) Anchored() bool {
	return s.Gateway != nil && *s.Gateway != ""
}

// GatewayString returns the anchored gateway or "" when unset.
func (s DesiredState) GatewayString() string {
	if s.Gateway == nil {
		return ""
	}
	return *s.Gateway
}

// SetGateway records gw as the anchor; an empty string clears it.
func (s *DesiredState) SetGateway(gw string) {
	if gw == "" {
		s.Gateway = nil
		return
	}
	s.Gateway = &gw
}

// Contains reports whether dest is pinned (exact, case-sensitive match).
func (s DesiredState) Contains(dest string) bool {
	return slices.Contains(s.Routes, dest)
}

// AddRoute appends dest if it is not already pinned. It reports whether the
// set changed.
func (s *DesiredState) AddRoute(dest string) bool {
	if s.Contains(dest) {
		return false
	}
	s.Routes = append(s.Routes, dest)
	return true
}

// RemoveRoute removes the stored entry matching input. An exact match wins;
// otherwise the first entry whose address part (before "/") equals input is
// removed, so "10.0.0.5" deletes a stored "10.0.0.5/32".
func (s *DesiredState) RemoveRoute(input string) (string, bool) {
	idx := slices.Index(s.Routes, input)
	if idx < 0 && !strings.Contains(input, "/") {
		idx = slices.IndexFunc(s.Routes, func(r string) bool {
			return strings.HasPrefix(r, input+"/")
		})
	}
	if idx < 0 {
		return "", false
	}
	removed := s.Routes[idx]
	s.Routes = slices.Delete(s.Routes, idx, idx+1)
	return removed, true
}

// Clone returns a deep copy.
func (s DesiredState) Clone() DesiredState {
	out := DesiredState{Routes: slices.Clone(s.Routes)}
	if out.Routes == nil {
		out.Routes = []string{}
	}
	if s.Gateway != nil {
		out.SetGateway(*s.Gateway)
	}
	return out
}

// Equal compares gateway and the ordered route list.
func (s DesiredState) Equal(o DesiredState) bool {
	if s.GatewayString() != o.GatewayString() {
		return false
	}
	return slices.Equal(s.Routes, o.Routes)
}

// normalize drops blank and duplicate entries while keeping order.
func (s *DesiredState) normalize() {
	routes := make([]string, 0, len(s.Routes))
	for _, r := range s.Routes {
		r = strings.TrimSpace(r)
		if r == "" || slices.Contains(routes, r) {
			continue
		}
		routes = append(routes, r)
	}
	s.Routes = routes
	if s.Gateway != nil && *s.Gateway == "" {
		s.Gateway = nil
	}
}
