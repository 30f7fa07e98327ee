package query

// DefaultStep is how many cards a view shows initially and adds per "load more"
const DefaultStep = 24

// Pager tracks how much of an already-fetched list is visible
type Pager struct {
	Step    int
	visible int
}

// NewPager returns a Pager showing its first step
func NewPager(step int) *Pager {
	if step <= 0 {
		step = DefaultStep
	}
	return &Pager{Step: step, visible: step}
}

// Visible is the number of items currently shown
func (p *Pager) Visible() int {
	return p.visible
}

// More extends the window by one step
func (p *Pager) More() {
	p.visible += p.Step
}

// Reset shrinks the window back to one step, as after a filter change
func (p *Pager) Reset() {
	p.visible = p.Step
}

// HasMore reports whether total items exceed the window
func (p *Pager) HasMore(total int) bool {
	return total > p.visible
}

// Window returns the visible prefix of items
func Window[T any](p *Pager, items []T) []T {
	if len(items) <= p.visible {
		return items
	}
	return items[:p.visible]
}

// Slice returns items[offset:offset+limit] clamped to bounds
func Slice[T any](items []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) || limit <= 0 {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
