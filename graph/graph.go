// Package graph runs a state value through a small state machine of named
// nodes. Each node has at most one outgoing edge; condition nodes pick one of
// several successors from the state.
package graph

import (
	"context"
	"fmt"
)

// NodeType represents the type of a node in the graph
type NodeType string

const (
	NodeTypeStart     NodeType = "start"
	NodeTypeEnd       NodeType = "end"
	NodeTypeStage     NodeType = "stage"
	NodeTypeCondition NodeType = "condition"
)

// NodeFunc is the function executed by a node. It returns the state handed
// to the next node.
type NodeFunc[S any] func(context.Context, S) (S, error)

// ConditionFunc evaluates a condition and returns a key into the node's NextMap.
type ConditionFunc[S any] func(context.Context, S) (string, error)

// StepFunc observes every visited node after it ran.
type StepFunc[S any] func(ctx context.Context, node string, state S)

// Node represents a node in the execution graph
type Node[S any] struct {
	Name      string
	Type      NodeType
	Execute   NodeFunc[S]       // optional for start and end nodes
	Condition ConditionFunc[S]  // only for condition nodes
	Next      string            // the single outgoing edge
	NextMap   map[string]string // condition result -> next node
}

// Graph is an executable state machine over S.
type Graph[S any] struct {
	nodes     map[string]*Node[S]
	order     []string
	startNode string
	endNode   string
	maxSteps  int
	onStep    StepFunc[S]
}

// NewGraph creates an empty graph.
func NewGraph[S any]() *Graph[S] {
	return &Graph[S]{nodes: make(map[string]*Node[S])}
}

func (g *Graph[S]) validateNode(node *Node[S]) {
	if node.Name == "" {
		panic("node name cannot be empty")
	}

	switch node.Type {
	case NodeTypeCondition:
		if node.Condition == nil {
			panic(fmt.Sprintf("condition node %s must have non-nil Condition function", node.Name))
		}
	case NodeTypeStage:
		if node.Execute == nil {
			panic(fmt.Sprintf("node %s of type %s must have non-nil Execute function", node.Name, node.Type))
		}
	case NodeTypeStart, NodeTypeEnd:
	default:
		panic(fmt.Sprintf("node %s has unknown type %q", node.Name, node.Type))
	}
}

// AddNode adds a node to the graph. Start and end nodes register themselves.
func (g *Graph[S]) AddNode(node *Node[S]) {
	if _, exists := g.nodes[node.Name]; exists {
		panic(fmt.Sprintf("node %s already exists", node.Name))
	}
	g.validateNode(node)

	g.nodes[node.Name] = node
	g.order = append(g.order, node.Name)

	if node.Type == NodeTypeStart {
		g.startNode = node.Name
	}
	if node.Type == NodeTypeEnd {
		g.endNode = node.Name
	}
}

// GetNode returns a node by name
func (g *Graph[S]) GetNode(name string) (*Node[S], error) {
	node, exists := g.nodes[name]
	if !exists {
		return nil, fmt.Errorf("node %s not found", name)
	}
	return node, nil
}

// Nodes lists node names in insertion order.
func (g *Graph[S]) Nodes() []string {
	return append([]string(nil), g.order...)
}

// MaxSteps is the bound on visited nodes per execution. Unless set, it is
// the node count plus two.
func (g *Graph[S]) MaxSteps() int {
	if g.maxSteps > 0 {
		return g.maxSteps
	}
	return len(g.nodes) + 2
}

// Validate checks that every edge points at a known node and that start and
// end nodes exist.
func (g *Graph[S]) Validate() error {
	if g.startNode == "" {
		return fmt.Errorf("start node not set")
	}
	if g.endNode == "" {
		return fmt.Errorf("end node not set")
	}
	for _, name := range g.order {
		node := g.nodes[name]
		switch node.Type {
		case NodeTypeEnd:
			continue
		case NodeTypeCondition:
			if len(node.NextMap) == 0 {
				return fmt.Errorf("condition node %s has no branches", name)
			}
			for key, next := range node.NextMap {
				if _, ok := g.nodes[next]; !ok {
					return fmt.Errorf("node %s branch %q points at unknown node %s", name, key, next)
				}
			}
		default:
			if node.Next == "" {
				return fmt.Errorf("no next node specified for node %s", name)
			}
			if _, ok := g.nodes[node.Next]; !ok {
				return fmt.Errorf("node %s points at unknown node %s", name, node.Next)
			}
		}
	}
	return nil
}

// Execute walks the graph from the start node until the end node has run and
// returns the final state. Node errors abort the walk and are returned with
// the state as it was before the failing node.
func (g *Graph[S]) Execute(ctx context.Context, state S) (S, error) {
	if err := g.Validate(); err != nil {
		return state, err
	}

	limit := g.MaxSteps()
	current := g.startNode
	for step := 1; ; step++ {
		if step > limit {
			return state, fmt.Errorf("step limit %d exceeded at node %s", limit, current)
		}
		node := g.nodes[current]

		var next string
		switch node.Type {
		case NodeTypeCondition:
			key, err := node.Condition(ctx, state)
			if err != nil {
				return state, fmt.Errorf("error evaluating condition at node %s: %w", node.Name, err)
			}
			next = node.NextMap[key]
			if next == "" {
				return state, fmt.Errorf("node %s has no branch for %q", node.Name, key)
			}
		default:
			if node.Execute != nil {
				out, err := node.Execute(ctx, state)
				if err != nil {
					return state, fmt.Errorf("error executing node %s: %w", node.Name, err)
				}
				state = out
			}
			next = node.Next
		}

		if g.onStep != nil {
			g.onStep(ctx, node.Name, state)
		}
		if node.Type == NodeTypeEnd {
			return state, nil
		}
		current = next
	}
}

// Builder helps build graphs fluently
type Builder[S any] struct {
	graph *Graph[S]
}

// NewBuilder creates a new graph builder
func NewBuilder[S any]() *Builder[S] {
	return &Builder[S]{graph: NewGraph[S]()}
}

// AddStart adds the start node. execute may be nil.
func (b *Builder[S]) AddStart(name string, execute NodeFunc[S]) *Builder[S] {
	b.graph.AddNode(&Node[S]{Name: name, Type: NodeTypeStart, Execute: execute})
	return b
}

// AddEnd adds the end node. execute may be nil.
func (b *Builder[S]) AddEnd(name string, execute NodeFunc[S]) *Builder[S] {
	b.graph.AddNode(&Node[S]{Name: name, Type: NodeTypeEnd, Execute: execute})
	return b
}

// AddStage adds a stage node.
func (b *Builder[S]) AddStage(name string, execute NodeFunc[S]) *Builder[S] {
	b.graph.AddNode(&Node[S]{Name: name, Type: NodeTypeStage, Execute: execute})
	return b
}

// AddConditionNode adds a condition node
func (b *Builder[S]) AddConditionNode(name string, condition ConditionFunc[S], nextMap map[string]string) *Builder[S] {
	b.graph.AddNode(&Node[S]{Name: name, Type: NodeTypeCondition, Condition: condition, NextMap: nextMap})
	return b
}

// AddEdge connects two nodes. A node has one outgoing edge; adding a
// second one panics.
func (b *Builder[S]) AddEdge(from, to string) *Builder[S] {
	node, exists := b.graph.nodes[from]
	if !exists {
		panic(fmt.Sprintf("node %s not found", from))
	}
	if node.Type == NodeTypeCondition {
		panic(fmt.Sprintf("condition node %s takes branches, not edges", from))
	}
	if node.Next != "" && node.Next != to {
		panic(fmt.Sprintf("node %s already has an edge to %s", from, node.Next))
	}
	node.Next = to
	return b
}

// Chain adds edges between consecutive names.
func (b *Builder[S]) Chain(names ...string) *Builder[S] {
	for i := 1; i < len(names); i++ {
		b.AddEdge(names[i-1], names[i])
	}
	return b
}

// SetMaxSteps overrides the default step bound.
func (b *Builder[S]) SetMaxSteps(n int) *Builder[S] {
	b.graph.maxSteps = n
	return b
}

// OnStep registers an observer called after each node.
func (b *Builder[S]) OnStep(fn StepFunc[S]) *Builder[S] {
	b.graph.onStep = fn
	return b
}

// Build validates and returns the constructed graph.
func (b *Builder[S]) Build() (*Graph[S], error) {
	if err := b.graph.Validate(); err != nil {
		return nil, err
	}
	return b.graph, nil
}
