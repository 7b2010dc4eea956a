package hnsw

import (
	"container/heap"
	"math"
	"sort"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

type candidate struct {
	id   uint32
	dist float32
}

// add links a record into the graph. Caller holds the write lock and has
// checked the dimension and that the ID is not live.
func (ix *Index) add(r domain.VectorRecord) {
	id := uint32(len(ix.nodes)) //nolint:gosec // node count is bounded by memory
	level := ix.randomLevel()
	n := &node{
		record: r,
		vec:    normalise(r.Embedding),
		links:  make([][]uint32, level+1),
	}
	ix.nodes = append(ix.nodes, n)
	ix.byID[r.ID] = id
	ix.byDoc[r.DocumentID] = append(ix.byDoc[r.DocumentID], id)

	if ix.entry < 0 {
		ix.entry = int(id)
		ix.maxLevel = level
		return
	}

	ep := uint32(ix.entry) //nolint:gosec // entry is a node index
	for l := ix.maxLevel; l > level; l-- {
		ep = ix.greedy(n.vec, ep, l)
	}

	for l := min(level, ix.maxLevel); l >= 0; l-- {
		cands := ix.searchLayer(n.vec, ep, ix.cfg.EfConstruction, l)
		neighbours := closest(cands, ix.cfg.M)
		n.links[l] = neighbours

		maxLinks := ix.maxLinks(l)
		for _, nb := range neighbours {
			other := ix.nodes[nb]
			other.links[l] = append(other.links[l], id)
			if len(other.links[l]) > maxLinks {
				other.links[l] = ix.prune(other.vec, other.links[l], maxLinks)
			}
		}
		ep = cands[0].id
	}

	if level > ix.maxLevel {
		ix.maxLevel = level
		ix.entry = int(id)
	}
}

func (ix *Index) maxLinks(level int) int {
	if level == 0 {
		return 2 * ix.cfg.M
	}
	return ix.cfg.M
}

func (ix *Index) randomLevel() int {
	u := 1 - ix.rng.Float64() // (0, 1]
	return int(-math.Log(u) * ix.levelMult)
}

// greedy walks to the closest node reachable on one layer.
func (ix *Index) greedy(q []float32, ep uint32, level int) uint32 {
	best := ep
	bestDist := distance(q, ix.nodes[ep].vec)
	for changed := true; changed; {
		changed = false
		for _, nb := range ix.linksAt(best, level) {
			if d := distance(q, ix.nodes[nb].vec); d < bestDist {
				best, bestDist = nb, d
				changed = true
			}
		}
	}
	return best
}

// searchLayer is the beam search from the HNSW paper. It returns up to ef
// candidates sorted by ascending distance. Tombstoned nodes are traversed
// like any other.
func (ix *Index) searchLayer(q []float32, ep uint32, ef, level int) []candidate {
	visited := map[uint32]bool{ep: true}
	start := candidate{id: ep, dist: distance(q, ix.nodes[ep].vec)}

	frontier := &minHeap{start}
	results := &maxHeap{start}

	for frontier.Len() > 0 {
		c := heap.Pop(frontier).(candidate)
		if c.dist > (*results)[0].dist && results.Len() >= ef {
			break
		}
		for _, nb := range ix.linksAt(c.id, level) {
			if visited[nb] {
				continue
			}
			visited[nb] = true
			d := distance(q, ix.nodes[nb].vec)
			if results.Len() < ef || d < (*results)[0].dist {
				heap.Push(frontier, candidate{id: nb, dist: d})
				heap.Push(results, candidate{id: nb, dist: d})
				if results.Len() > ef {
					heap.Pop(results)
				}
			}
		}
	}

	out := make([]candidate, results.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(results).(candidate)
	}
	return out
}

func (ix *Index) linksAt(id uint32, level int) []uint32 {
	links := ix.nodes[id].links
	if level >= len(links) {
		return nil
	}
	return links[level]
}

// prune keeps the maxLinks links closest to vec.
func (ix *Index) prune(vec []float32, links []uint32, maxLinks int) []uint32 {
	cands := make([]candidate, len(links))
	for i, nb := range links {
		cands[i] = candidate{id: nb, dist: distance(vec, ix.nodes[nb].vec)}
	}
	sort.Slice(cands, func(i, j int) bool { return cands[i].dist < cands[j].dist })
	return closest(cands, maxLinks)
}

// closest returns the ids of the first n candidates, which must be sorted.
func closest(cands []candidate, n int) []uint32 {
	n = min(n, len(cands))
	out := make([]uint32, n)
	for i := range n {
		out[i] = cands[i].id
	}
	return out
}

func normalise(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	if sum == 0 {
		return out
	}
	inv := 1 / math.Sqrt(sum)
	for i, x := range v {
		out[i] = float32(float64(x) * inv)
	}
	return out
}

// distance is cosine distance between normalised vectors.
func distance(a, b []float32) float32 {
	var dot float32
	for i := range a {
		dot += a[i] * b[i]
	}
	return 1 - dot
}

type minHeap []candidate

func (h minHeap) Len() int           { return len(h) }
func (h minHeap) Less(i, j int) bool { return h[i].dist < h[j].dist }
func (h minHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *minHeap) Push(x any)        { *h = append(*h, x.(candidate)) }
func (h *minHeap) Pop() any {
	old := *h
	x := old[len(old)-1]
	*h = old[:len(old)-1]
	return x
}

type maxHeap []candidate

func (h maxHeap) Len() int           { return len(h) }
func (h maxHeap) Less(i, j int) bool { return h[i].dist > h[j].dist }
func (h maxHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *maxHeap) Push(x any)        { *h = append(*h, x.(candidate)) }
func (h *maxHeap) Pop() any {
	old := *h
	x := old[len(old)-1]
	*h = old[:len(old)-1]
	return x
}
