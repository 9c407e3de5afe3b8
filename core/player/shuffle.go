package player

import "math/rand"

// shuffler 维护随机模式下的访问顺序。
//
// 进入随机模式（或歌单变化后首次使用）时铺满一轮候选集，一轮覆盖整个歌单；
// "下一首"从本轮尚未访问的候选中均匀抽取，且不原地重复当前曲目，
// 抽尽后重新铺满开始新一轮。这样得到"一轮抽尽前不重复"的随机性，
// 而不是每次独立随机（后者在小歌单上会反复命中同一首，
// 两首歌的歌单会退化成无限抛硬币）。"上一首"沿访问历史回退。
type shuffler struct {
	rng       *rand.Rand
	n         int
	remaining []int // 本轮尚未访问的歌单下标
	history   []int // 已访问的歌单下标，末尾为最近离开的曲目
}

// newShuffler 建立覆盖 n 首曲目的一轮候选。
func newShuffler(rng *rand.Rand, n int) *shuffler {
	s := &shuffler{rng: rng, n: n}
	s.refill()
	return s
}

// refill 铺满一轮候选。当前曲目也在候选内，由 next 的抽取规则
// 保证它不会被紧接着再次抽中。
func (s *shuffler) refill() {
	s.remaining = s.remaining[:0]
	for i := 0; i < s.n; i++ {
		s.remaining = append(s.remaining, i)
	}
}

// next 抽取下一首的歌单下标。候选抽尽后重新铺满。
// 抽中当前曲目且还有其它候选时换抽一次；下标互不相同，
// 与 current 相等的至多一个，因此换抽是 O(1) 的。n==1 时永远返回 0。
func (s *shuffler) next(current int) int {
	if s.n <= 1 {
		return 0
	}
	if len(s.remaining) == 0 {
		s.refill()
	}
	k := s.rng.Intn(len(s.remaining))
	if s.remaining[k] == current && len(s.remaining) > 1 {
		k2 := s.rng.Intn(len(s.remaining) - 1)
		if k2 >= k {
			k2++
		}
		k = k2
	}
	pick := s.remaining[k]
	s.remaining = append(s.remaining[:k], s.remaining[k+1:]...)
	s.history = append(s.history, current)
	return pick
}

// prev 沿历史回退一步；没有历史时停在当前曲目。
// 回退让出的当前曲目重新成为本轮候选。
func (s *shuffler) prev(current int) int {
	if len(s.history) == 0 {
		return current
	}
	last := s.history[len(s.history)-1]
	s.history = s.history[:len(s.history)-1]
	if !contains(s.remaining, current) {
		s.remaining = append(s.remaining, current)
	}
	return last
}

func contains(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}
