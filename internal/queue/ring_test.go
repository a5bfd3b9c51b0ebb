package queue

import (
	"slices"
	"testing"
)

func ringPaths(r *ring) []string {
	var out []string
	r.each(func(_ uint64, path string) { out = append(out, path) })
	return out
}

func TestRing(t *testing.T) {
	tests := []struct {
		name string
		ops  func(r *ring)
		want []string
	}{
		{
			name: "insertion order",
			ops: func(r *ring) {
				r.push(1, "a")
				r.push(2, "b")
				r.push(3, "c")
			},
			want: []string{"a", "b", "c"},
		},
		{
			name: "pop removes oldest",
			ops: func(r *ring) {
				r.push(1, "a")
				r.push(2, "b")
				r.popOldest()
			},
			want: []string{"b"},
		},
		{
			name: "remove from middle keeps order",
			ops: func(r *ring) {
				r.push(1, "a")
				r.push(2, "b")
				r.push(3, "c")
				r.remove("b")
			},
			want: []string{"a", "c"},
		},
		{
			name: "re-push moves path to the end",
			ops: func(r *ring) {
				r.push(1, "a")
				r.push(2, "b")
				r.push(3, "a")
			},
			want: []string{"b", "a"},
		},
		{
			name: "reset empties",
			ops: func(r *ring) {
				r.push(1, "a")
				r.reset()
			},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRing()
			tt.ops(r)
			if got := ringPaths(r); !slices.Equal(got, tt.want) {
				t.Errorf("paths = %v, want %v", got, tt.want)
			}
			if r.len() != len(tt.want) {
				t.Errorf("len() = %d, want %d", r.len(), len(tt.want))
			}
		})
	}
}

func TestRing_PopOldest(t *testing.T) {
	r := newRing()
	if _, _, ok := r.popOldest(); ok {
		t.Error("popOldest on empty ring should report false")
	}

	r.push(7, "x")
	r.push(9, "y")
	seq, path, ok := r.popOldest()
	if !ok || seq != 7 || path != "x" {
		t.Errorf("popOldest() = %d, %q, %v", seq, path, ok)
	}
	if r.contains("x") {
		t.Error("popped path still indexed")
	}
}

func TestRing_RemoveAbsent(t *testing.T) {
	r := newRing()
	r.push(1, "a")
	if r.remove("missing") {
		t.Error("remove of absent path reported true")
	}
	if !r.remove("a") || r.remove("a") {
		t.Error("remove should succeed once")
	}
}
