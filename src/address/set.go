package address

import "strings"

// Set is an insertion-ordered collection of addresses, unique by Key.
// The zero value is not usable; call NewSet.
type Set struct {
	index map[string]int
	items []*Address
}

func NewSet(addrs ...*Address) *Set {
	s := &Set{index: make(map[string]int)}
	for _, a := range addrs {
		s.Add(a)
	}
	return s
}

// Add inserts a unless an equal address is already present. It reports
// whether the set changed.
func (s *Set) Add(a *Address) bool {
	if a == nil {
		return false
	}
	key := a.Key()
	if _, ok := s.index[key]; ok {
		return false
	}
	s.index[key] = len(s.items)
	s.items = append(s.items, a)
	return true
}

// Merge adds every address of other. A nil other is a no-op.
func (s *Set) Merge(other *Set) {
	if other == nil {
		return
	}
	for _, a := range other.items {
		s.Add(a)
	}
}

func (s *Set) Contains(a *Address) bool {
	if a == nil {
		return false
	}
	_, ok := s.index[a.Key()]
	return ok
}

// ContainsAddr reports membership by raw address string.
func (s *Set) ContainsAddr(addr string) bool {
	_, ok := s.index[strings.ToLower(addr)]
	return ok
}

func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// Addresses returns the members in insertion order.
func (s *Set) Addresses() []*Address {
	if s == nil {
		return nil
	}
	return append([]*Address(nil), s.items...)
}

// Addrs returns the bare mailbox strings in insertion order.
func (s *Set) Addrs() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.items))
	for i, a := range s.items {
		out[i] = a.Addr
	}
	return out
}

// Filter returns a new set holding the members for which keep returns true.
func (s *Set) Filter(keep func(*Address) bool) *Set {
	out := NewSet()
	if s == nil {
		return out
	}
	for _, a := range s.items {
		if keep(a) {
			out.Add(a)
		}
	}
	return out
}

// String joins the rendered addresses with ", ".
func (s *Set) String() string {
	if s == nil {
		return ""
	}
	parts := make([]string, len(s.items))
	for i, a := range s.items {
		parts[i] = a.String()
	}
	return strings.Join(parts, ", ")
}
