package model

// RequestFilter holds criteria for querying requests.
type RequestFilter struct {
	AuthorID string   `json:"author_id,omitempty"`
	Status   []Status `json:"status,omitempty"`
	Limit    int      `json:"limit,omitempty"`
	Offset   int      `json:"offset,omitempty"`
}

// Matches reports whether r satisfies the filter criteria.
// Limit and Offset are applied by the store, not here.
func (f RequestFilter) Matches(r *Request) bool {
	if f.AuthorID != "" && r.AuthorID != f.AuthorID {
		return false
	}
	if len(f.Status) > 0 {
		ok := false
		for _, s := range f.Status {
			if r.Status == s {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}
