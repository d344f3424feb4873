package watcher

type changeKind int

const (
	kindModified changeKind = iota + 1
	kindAdded
	kindRemoved
)

func (k changeKind) String() string {
	switch k {
	case kindModified:
		return "modified"
	case kindAdded:
		return "added"
	case kindRemoved:
		return "removed"
	default:
		return "none"
	}
}

// merge folds a new change into the pending one for the same path. A zero
// result drops the path from the batch.
func merge(previous, next changeKind) changeKind {
	switch {
	case previous == 0:
		return next
	case previous == kindAdded && next == kindRemoved:
		return 0
	case previous == kindAdded:
		return kindAdded
	case previous == kindRemoved && next == kindAdded:
		return kindModified
	default:
		return next
	}
}

// pendingBatch accumulates changes in first-seen order.
type pendingBatch struct {
	order []string
	kinds map[string]changeKind
}

func newPendingBatch() *pendingBatch {
	return &pendingBatch{kinds: make(map[string]changeKind)}
}

// record returns true when the change was folded into an earlier one.
func (p *pendingBatch) record(path string, kind changeKind) bool {
	previous, seen := p.kinds[path]
	if !seen {
		p.order = append(p.order, path)
	}
	p.kinds[path] = merge(previous, kind)
	return seen
}

func (p *pendingBatch) drain() Batch {
	var batch Batch
	for _, path := range p.order {
		switch p.kinds[path] {
		case kindModified:
			batch.Modified = append(batch.Modified, path)
		case kindAdded:
			batch.Added = append(batch.Added, path)
		case kindRemoved:
			batch.Removed = append(batch.Removed, path)
		}
	}
	p.order = nil
	p.kinds = make(map[string]changeKind)
	return batch
}

func (p *pendingBatch) len() int {
	return len(p.order)
}
