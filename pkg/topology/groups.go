package topology

import "sort"

// groupEdges joins the four parallel edges of each block direction with a
// union-find. Group ids follow discovery order: blocks, then x, y, z.
func (x *extraction) groupEdges(t *Topology) {
	parent := make([]int, len(t.Edges))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		if parent[i] != i {
			parent[i] = find(parent[i])
		}
		return parent[i]
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[rb] = ra
		}
	}

	t.blockEdges = make([][12]EdgeID, len(t.Blocks))
	for _, b := range t.Blocks {
		for i := range BlockEdgeCorners {
			u, v := b.EdgeCorners(i)
			t.blockEdges[b.ID][i] = t.edgeIndex[pairKey(u, v)]
		}
		for d := 0; d < 3; d++ {
			first := int(t.blockEdges[b.ID][d*4])
			for k := 1; k < 4; k++ {
				union(first, int(t.blockEdges[b.ID][d*4+k]))
			}
		}
	}

	rootGroup := make(map[int]GroupID)
	t.groupOf = make(map[EdgeID]GroupID)
	for _, b := range t.Blocks {
		for _, e := range t.blockEdges[b.ID] {
			if _, ok := t.groupOf[e]; ok {
				continue
			}
			r := find(int(e))
			g, ok := rootGroup[r]
			if !ok {
				g = GroupID(len(t.Groups))
				rootGroup[r] = g
				t.Groups = append(t.Groups, EdgeGroup{ID: g})
			}
			t.groupOf[e] = g
			t.Groups[g].Edges = append(t.Groups[g].Edges, e)
		}
	}
}

type edgeUse struct {
	node int // block*3 + direction
	edge EdgeID
	sign int // +1 when the block axis runs U to V
}

// orientEdges picks one direction per group and propagates it through
// shared edges, flipping edges whose authored direction disagrees.
func (x *extraction) orientEdges(t *Topology) {
	nodes := len(t.Blocks) * 3
	byNode := make([][]edgeUse, nodes)
	byEdge := make(map[EdgeID][]edgeUse)
	for _, b := range t.Blocks {
		for i, e := range t.blockEdges[b.ID] {
			from, _ := b.EdgeCorners(i)
			u := edgeUse{node: int(b.ID)*3 + i/4, edge: e, sign: -1}
			if from == t.Edges[e].U {
				u.sign = 1
			}
			byNode[u.node] = append(byNode[u.node], u)
			byEdge[e] = append(byEdge[e], u)
		}
	}

	flip := make([]int, nodes)
	dir := make(map[EdgeID]int)
	for start := 0; start < nodes; start++ {
		if flip[start] != 0 {
			continue
		}
		flip[start] = 1
		queue := []int{start}
		for len(queue) > 0 {
			n := queue[0]
			queue = queue[1:]
			for _, use := range byNode[n] {
				want := use.sign * flip[n]
				if got, ok := dir[use.edge]; !ok {
					dir[use.edge] = want
				} else if got != want {
					x.logf("edge %d: orientation conflict in block %d %s, keeping first", use.edge, n/3, Direction(n%3))
					continue
				}
				for _, other := range byEdge[use.edge] {
					need := dir[use.edge] * other.sign
					if flip[other.node] == 0 {
						flip[other.node] = need
						queue = append(queue, other.node)
					} else if flip[other.node] != need {
						x.logf("edge %d: parity conflict between block %d and %d", use.edge, n/3, other.node/3)
					}
				}
			}
		}
	}

	for e, d := range dir {
		if d < 0 {
			t.Edges[e].U, t.Edges[e].V = t.Edges[e].V, t.Edges[e].U
			t.Reversed = append(t.Reversed, e)
		}
	}
	sort.Slice(t.Reversed, func(i, j int) bool { return t.Reversed[i] < t.Reversed[j] })
}
