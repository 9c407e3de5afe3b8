package player

import (
	"math/rand"
	"testing"
)

func TestShuffler_SingleTrackAlwaysZero(t *testing.T) {
	s := newShuffler(rand.New(rand.NewSource(1)), 1)
	for i := 0; i < 5; i++ {
		if got := s.next(0); got != 0 {
			t.Fatalf("next = %d, want 0", got)
		}
	}
}

func TestShuffler_EveryRoundIsAPermutation(t *testing.T) {
	const n = 6
	s := newShuffler(rand.New(rand.NewSource(42)), n)

	cur := 0
	for round := 0; round < 4; round++ {
		seen := make(map[int]bool)
		for i := 0; i < n; i++ {
			cur = s.next(cur)
			if seen[cur] {
				t.Fatalf("round %d: index %d drawn twice", round, cur)
			}
			seen[cur] = true
		}
		if len(seen) != n {
			t.Fatalf("round %d covered %d indices, want %d", round, len(seen), n)
		}
	}
}

func TestShuffler_NoImmediateRepeat(t *testing.T) {
	for _, n := range []int{2, 3, 10} {
		s := newShuffler(rand.New(rand.NewSource(7)), n)
		cur := 0
		for i := 0; i < 100; i++ {
			got := s.next(cur)
			if got == cur {
				t.Fatalf("n=%d step %d: immediate repeat of %d", n, i, got)
			}
			cur = got
		}
	}
}

func TestShuffler_PrevRetracesHistory(t *testing.T) {
	s := newShuffler(rand.New(rand.NewSource(3)), 5)

	path := []int{0}
	cur := 0
	for i := 0; i < 4; i++ {
		cur = s.next(cur)
		path = append(path, cur)
	}

	for i := len(path) - 2; i >= 0; i-- {
		cur = s.prev(cur)
		if cur != path[i] {
			t.Fatalf("prev = %d, want %d (path %v)", cur, path[i], path)
		}
	}

	// 历史空了就停在原地
	if got := s.prev(cur); got != cur {
		t.Errorf("prev with empty history = %d, want %d", got, cur)
	}
}
