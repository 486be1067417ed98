package graph

import (
	"container/heap"
)

// Path is a node sequence with its accumulated search cost
type Path struct {
	Nodes []int64
	Cost  float64
}

type pqItem struct {
	node     int64
	priority float64
}

type priorityQueue []*pqItem

func (pq priorityQueue) Len() int           { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool { return pq[i].priority < pq[j].priority }
func (pq priorityQueue) Swap(i, j int)      { pq[i], pq[j] = pq[j], pq[i] }

func (pq *priorityQueue) Push(x interface{}) {
	*pq = append(*pq, x.(*pqItem))
}

func (pq *priorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*pq = old[0 : n-1]
	return item
}

// ShortestPath runs a risk-penalised Dijkstra search from start to goal.
// The second return is false when goal is unreachable or either node is unknown.
func (g *Graph) ShortestPath(start, goal int64) (Path, bool) {
	if _, ok := g.nodes[start]; !ok {
		return Path{}, false
	}
	if _, ok := g.nodes[goal]; !ok {
		return Path{}, false
	}
	if start == goal {
		return Path{Nodes: []int64{start}, Cost: 0}, true
	}

	dist := map[int64]float64{start: 0}
	prev := make(map[int64]int64)
	visited := make(map[int64]bool)

	pq := &priorityQueue{}
	heap.Push(pq, &pqItem{node: start, priority: 0})

	for pq.Len() > 0 {
		item := heap.Pop(pq).(*pqItem)
		current := item.node
		if visited[current] {
			continue
		}
		visited[current] = true
		if current == goal {
			break
		}

		for _, nb := range g.adjacency[current] {
			if visited[nb.To] {
				continue
			}
			cost := g.cost.Cost(nb.Length, g.risk.EdgeRisk(current, nb.To), g.risk.NodeRisk(nb.To))
			tentative := item.priority + cost
			if old, ok := dist[nb.To]; !ok || tentative < old {
				dist[nb.To] = tentative
				prev[nb.To] = current
				heap.Push(pq, &pqItem{node: nb.To, priority: tentative})
			}
		}
	}

	if !visited[goal] {
		return Path{}, false
	}
	return Path{Nodes: reconstructPath(prev, start, goal), Cost: dist[goal]}, true
}

func reconstructPath(prev map[int64]int64, start, goal int64) []int64 {
	var reversed []int64
	for current := goal; ; {
		reversed = append(reversed, current)
		if current == start {
			break
		}
		current = prev[current]
	}
	path := make([]int64, len(reversed))
	for i, id := range reversed {
		path[len(reversed)-1-i] = id
	}
	return path
}
