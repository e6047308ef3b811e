package steps

// Graph is a renderable projection of the transition table. It never carries a node
// or edge that is not in the table.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

type Node struct {
	ID       State    `json:"id"`
	Label    string   `json:"label"`
	Active   bool     `json:"active"`
	Position Position `json:"position"`
}

type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type Edge struct {
	ID     string `json:"id"`
	Source State  `json:"source"`
	Target State  `json:"target"`
	Live   bool   `json:"live"`
}

const (
	layerWidth = 220
	rowHeight  = 100
)

// BuildTransitionGraph derives nodes and edges from the table. current defaults to idle;
// its node is active and only edges leaving it are live. An unknown current state
// yields a graph with nothing active.
func BuildTransitionGraph(current State) Graph {
	if current == "" {
		current = Idle
	}
	layers := layerOf()
	rows := map[int]int{}

	g := Graph{
		Nodes: make([]Node, 0, len(order)),
		Edges: []Edge{},
	}
	for _, s := range order {
		l := layers[s]
		g.Nodes = append(g.Nodes, Node{
			ID:       s,
			Label:    table[s].label,
			Active:   s == current,
			Position: Position{X: l * layerWidth, Y: rows[l] * rowHeight},
		})
		rows[l]++
	}
	for _, s := range order {
		for _, n := range table[s].next {
			g.Edges = append(g.Edges, Edge{
				ID:     string(s) + "->" + string(n),
				Source: s,
				Target: n,
				Live:   s == current,
			})
		}
	}
	return g
}

// layerOf assigns each state its breadth-first distance from idle.
func layerOf() map[State]int {
	layers := map[State]int{Idle: 0}
	queue := []State{Idle}
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		for _, n := range table[s].next {
			if _, seen := layers[n]; seen {
				continue
			}
			layers[n] = layers[s] + 1
			queue = append(queue, n)
		}
	}
	// Unreachable states would be a table bug; park them after the last layer.
	last := 0
	for _, l := range layers {
		if l > last {
			last = l
		}
	}
	for _, s := range order {
		if _, ok := layers[s]; !ok {
			layers[s] = last + 1
		}
	}
	return layers
}
