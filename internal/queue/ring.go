package queue

import "slices"

// Entry is one queued artifact.
type Entry struct {
	Seq  uint64
	Path string
	View View
}

// ring is an insertion-ordered arena of artifact paths keyed by sequence
// number. seqs is always ascending because numbers are only ever appended
// in increasing order.
type ring struct {
	seqs  []uint64
	paths map[uint64]string
	index map[string]uint64
}

func newRing() *ring {
	return &ring{
		paths: make(map[uint64]string),
		index: make(map[string]uint64),
	}
}

func (r *ring) len() int {
	return len(r.seqs)
}

// push appends path under seq. seq must exceed every number already present.
func (r *ring) push(seq uint64, path string) {
	if old, ok := r.index[path]; ok {
		r.removeSeq(old)
	}
	r.seqs = append(r.seqs, seq)
	r.paths[seq] = path
	r.index[path] = seq
}

// popOldest removes and returns the entry with the smallest sequence number.
func (r *ring) popOldest() (uint64, string, bool) {
	if len(r.seqs) == 0 {
		return 0, "", false
	}
	seq := r.seqs[0]
	path := r.paths[seq]
	r.seqs = r.seqs[1:]
	delete(r.paths, seq)
	delete(r.index, path)
	return seq, path, true
}

func (r *ring) contains(path string) bool {
	_, ok := r.index[path]
	return ok
}

// remove drops path, reporting whether it was present.
func (r *ring) remove(path string) bool {
	seq, ok := r.index[path]
	if !ok {
		return false
	}
	r.removeSeq(seq)
	return true
}

func (r *ring) removeSeq(seq uint64) {
	i, found := slices.BinarySearch(r.seqs, seq)
	if !found {
		return
	}
	r.seqs = slices.Delete(r.seqs, i, i+1)
	delete(r.index, r.paths[seq])
	delete(r.paths, seq)
}

// each visits entries oldest first.
func (r *ring) each(fn func(seq uint64, path string)) {
	for _, seq := range r.seqs {
		fn(seq, r.paths[seq])
	}
}

func (r *ring) reset() {
	r.seqs = nil
	clear(r.paths)
	clear(r.index)
}
