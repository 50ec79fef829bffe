package pattern

/*
Aho–Corasick automaton over the ACGT alphabet.

- buildAC(pats) builds the trie and BFS failure links, propagating outputs.
- scanAC(seq, nodes) emits (endPos, patIdx) for every occurrence. Any
  non-ACGT byte resets the automaton to the root.
*/

type acNode struct {
	next [4]int // 0 => absent (root is state 0)
	fail int
	out  []int // pattern indexes that end at this state
}

func buildAC(pats [][]byte) []acNode {
	nodes := make([]acNode, 1)

	for i, p := range pats {
		cur := 0
		for _, c := range p {
			b := baseIndex(c)
			if nodes[cur].next[b] == 0 {
				nodes = append(nodes, acNode{})
				nodes[cur].next[b] = len(nodes) - 1
			}
			cur = nodes[cur].next[b]
		}
		nodes[cur].out = append(nodes[cur].out, i)
	}

	queue := make([]int, 0, len(nodes))
	for c := 0; c < 4; c++ {
		if child := nodes[0].next[c]; child != 0 {
			queue = append(queue, child)
		}
	}
	for len(queue) > 0 {
		r := queue[0]
		queue = queue[1:]
		for c := 0; c < 4; c++ {
			s := nodes[r].next[c]
			if s == 0 {
				continue
			}
			queue = append(queue, s)
			f := nodes[r].fail
			for f > 0 && nodes[f].next[c] == 0 {
				f = nodes[f].fail
			}
			if nodes[f].next[c] != 0 {
				f = nodes[f].next[c]
			}
			nodes[s].fail = f
			if len(nodes[f].out) > 0 {
				nodes[s].out = append(nodes[s].out, nodes[f].out...)
			}
		}
	}
	return nodes
}

type acHit struct {
	End    int // index of the last matched byte
	PatIdx int
}

func scanAC(seq []byte, nodes []acNode) []acHit {
	state := 0
	var out []acHit
	for i, c := range seq {
		b := baseIndex(c)
		if b < 0 {
			state = 0
			continue
		}
		for state > 0 && nodes[state].next[b] == 0 {
			state = nodes[state].fail
		}
		if next := nodes[state].next[b]; next != 0 {
			state = next
		}
		for _, idx := range nodes[state].out {
			out = append(out, acHit{End: i, PatIdx: idx})
		}
	}
	return out
}
