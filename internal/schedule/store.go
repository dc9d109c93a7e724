package schedule

import "fmt"

// Store keeps each relay's rules in insertion order.
//
// Relays without rules have no entry. The Store does not know how many relays
// exist; callers validate ids first. It is not safe for concurrent use.
type Store struct {
	rules map[int][]Rule
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{rules: make(map[int][]Rule)}
}

// Add appends a rule to a relay and returns its index.
func (s *Store) Add(relayID int, rule Rule) int {
	s.rules[relayID] = append(s.rules[relayID], rule.clone())
	return len(s.rules[relayID]) - 1
}

// RemoveAt deletes the rule at index and returns it. Indexes of later rules
// shift down by one. Removing a relay's last rule drops the relay's entry.
func (s *Store) RemoveAt(relayID, index int) (Rule, error) {
	rules := s.rules[relayID]
	if index < 0 || index >= len(rules) {
		return Rule{}, fmt.Errorf("%w: relay %d index %d", ErrRuleNotFound, relayID, index)
	}
	removed := rules[index]
	rules = append(rules[:index:index], rules[index+1:]...)
	if len(rules) == 0 {
		delete(s.rules, relayID)
	} else {
		s.rules[relayID] = rules
	}
	return removed, nil
}

// List returns a copy of a relay's rules.
func (s *Store) List(relayID int) []Rule {
	rules := s.rules[relayID]
	if len(rules) == 0 {
		return nil
	}
	out := make([]Rule, len(rules))
	for i, r := range rules {
		out[i] = r.clone()
	}
	return out
}

// ListAll returns a deep copy of every relay's rules.
func (s *Store) ListAll() map[int][]Rule {
	out := make(map[int][]Rule, len(s.rules))
	for id := range s.rules {
		out[id] = s.List(id)
	}
	return out
}

// Len returns the total number of rules across all relays.
func (s *Store) Len() int {
	n := 0
	for _, rules := range s.rules {
		n += len(rules)
	}
	return n
}
