package domain

// PageOptions bounds the window of results returned by a find.
type PageOptions struct {
	Skip  int `json:"skip,omitempty"`
	Limit int `json:"limit,omitempty"` // 0 means MaxLimit

	MaxLimit int `json:"-"` // Maximum allowed limit, 0 for none
}

// Validate validates page options
func (po PageOptions) Validate() error {
	if po.Limit < 0 {
		return Validation("limit cannot be negative")
	}
	if po.Skip < 0 {
		return Validation("skip cannot be negative")
	}
	if po.MaxLimit > 0 && po.Limit > po.MaxLimit {
		return Validation("limit %d exceeds maximum %d", po.Limit, po.MaxLimit)
	}
	return nil
}

// Window returns the [start, end) bounds of the page over n results. Without
// an explicit limit the page holds at most MaxLimit results.
func (po PageOptions) Window(n int) (int, int) {
	start := po.Skip
	if start > n {
		start = n
	}
	limit := po.Limit
	if limit == 0 {
		limit = po.MaxLimit
	}
	end := n
	if limit > 0 && start+limit < end {
		end = start + limit
	}
	return start, end
}
