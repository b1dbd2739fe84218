package dashboard

import "slices"

// Selection is a set of song IDs marked for bulk deletion.
// The zero value is an empty selection.
type Selection struct {
	ids map[string]struct{}
}

// NewSelection creates a selection holding the given IDs.
func NewSelection(ids ...string) Selection {
	s := Selection{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
	return s
}

// Len returns the number of selected IDs.
func (s Selection) Len() int {
	return len(s.ids)
}

// Has reports whether id is selected.
func (s Selection) Has(id string) bool {
	_, ok := s.ids[id]
	return ok
}

// Toggle flips membership of id.
func (s *Selection) Toggle(id string) {
	if s.ids == nil {
		s.ids = make(map[string]struct{})
	}
	if _, ok := s.ids[id]; ok {
		delete(s.ids, id)
		return
	}
	s.ids[id] = struct{}{}
}

// Remove drops every given ID from the selection.
func (s *Selection) Remove(ids ...string) {
	for _, id := range ids {
		delete(s.ids, id)
	}
}

// Retain drops every ID not present in valid and returns how many were dropped.
func (s *Selection) Retain(valid map[string]struct{}) int {
	dropped := 0
	for id := range s.ids {
		if _, ok := valid[id]; !ok {
			delete(s.ids, id)
			dropped++
		}
	}
	return dropped
}

// IDs returns the selected IDs in sorted order.
func (s Selection) IDs() []string {
	ids := make([]string, 0, len(s.ids))
	for id := range s.ids {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
