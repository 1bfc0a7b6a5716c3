// Package graph runs small named-state machines: each node transforms a shared
// State and hands control to exactly one successor until the end node runs.
package graph

import (
	"context"
	"errors"
	"fmt"
)

// NodeType represents the type of a node in the graph
type NodeType string

const (
	NodeTypeStart     NodeType = "start"
	NodeTypeEnd       NodeType = "end"
	NodeTypeStep      NodeType = "step"
	NodeTypeCondition NodeType = "condition"
)

// ErrMaxVisits is returned when a node is entered more often than the visit guard allows.
var ErrMaxVisits = errors.New("graph: node visit limit exceeded")

// State represents the execution state passed between nodes
type State map[string]any

// NodeFunc is the function executed by a node
type NodeFunc func(context.Context, State) (State, error)

// ConditionFunc evaluates a condition and returns the branch key to follow
type ConditionFunc func(context.Context, State) (string, error)

// TransitionFunc observes every move from one node to the next.
type TransitionFunc func(ctx context.Context, from, to string)

// Node represents a node in the execution graph
type Node struct {
	Name      string
	Type      NodeType
	Execute   NodeFunc
	Condition ConditionFunc     // Only for condition nodes
	Next      string            // Successor for non-condition nodes
	NextMap   map[string]string // For condition nodes: condition result -> next node
}

// Graph represents an execution flow graph
type Graph struct {
	nodes        map[string]*Node
	startNode    string
	endNode      string
	maxVisits    int
	onTransition TransitionFunc
}

// NewGraph creates a new graph
func NewGraph() *Graph {
	return &Graph{
		nodes:     make(map[string]*Node),
		maxVisits: 10,
	}
}

func (g *Graph) validateNode(node *Node) {
	if node.Name == "" {
		panic("node name cannot be empty")
	}

	switch node.Type {
	case NodeTypeCondition:
		if node.Condition == nil {
			panic(fmt.Sprintf("condition node %s must have non-nil Condition function", node.Name))
		}
	default:
		if node.Execute == nil {
			panic(fmt.Sprintf("node %s of type %s must have non-nil Execute function", node.Name, node.Type))
		}
	}
}

// AddNode adds a node to the graph
func (g *Graph) AddNode(node *Node) {
	if _, exists := g.nodes[node.Name]; exists {
		panic(fmt.Sprintf("node %s already exists", node.Name))
	}

	g.validateNode(node)
	g.nodes[node.Name] = node

	// Auto-set start and end nodes
	if node.Type == NodeTypeStart {
		g.startNode = node.Name
	}
	if node.Type == NodeTypeEnd {
		g.endNode = node.Name
	}
}

// SetStartNode sets the start node
func (g *Graph) SetStartNode(name string) {
	if _, exists := g.nodes[name]; !exists {
		panic(fmt.Sprintf("node %s not found", name))
	}
	g.startNode = name
}

// SetEndNode sets the end node
func (g *Graph) SetEndNode(name string) {
	if _, exists := g.nodes[name]; !exists {
		panic(fmt.Sprintf("node %s not found", name))
	}
	g.endNode = name
}

// Execute walks the graph from the start node until the end node has run.
// The context is checked before every step; a cancelled context stops the walk
// and returns the state reached so far together with the context error.
func (g *Graph) Execute(ctx context.Context, initialState State) (State, error) {
	if g.startNode == "" {
		return nil, fmt.Errorf("start node not set")
	}

	state := initialState
	if state == nil {
		state = make(State)
	}

	visited := make(map[string]int)
	current := g.startNode
	for {
		if err := ctx.Err(); err != nil {
			return state, err
		}

		node, exists := g.nodes[current]
		if !exists {
			return state, fmt.Errorf("node %s not found", current)
		}

		visited[current]++
		if visited[current] > g.maxVisits {
			return state, fmt.Errorf("%w: %s", ErrMaxVisits, current)
		}

		if node.Type == NodeTypeEnd || current == g.endNode {
			next, err := node.Execute(ctx, state)
			if err != nil {
				return state, fmt.Errorf("error executing node %s: %w", node.Name, err)
			}
			if next != nil {
				state = next
			}
			return state, nil
		}

		nextName, next, err := g.step(ctx, node, state)
		if err != nil {
			return state, err
		}
		if next != nil {
			state = next
		}
		if g.onTransition != nil {
			g.onTransition(ctx, current, nextName)
		}
		current = nextName
	}
}

func (g *Graph) step(ctx context.Context, node *Node, state State) (string, State, error) {
	switch node.Type {
	case NodeTypeCondition:
		result, err := node.Condition(ctx, state)
		if err != nil {
			return "", nil, fmt.Errorf("error evaluating condition at node %s: %w", node.Name, err)
		}
		nextNode := node.NextMap[result]
		if nextNode == "" {
			return "", nil, fmt.Errorf("no next node for result %q at node %s", result, node.Name)
		}
		return nextNode, state, nil
	default:
		next, err := node.Execute(ctx, state)
		if err != nil {
			return "", nil, fmt.Errorf("error executing node %s: %w", node.Name, err)
		}
		if node.Next == "" {
			return "", nil, fmt.Errorf("no next node specified for node %s", node.Name)
		}
		return node.Next, next, nil
	}
}

// GetNode returns a node by name
func (g *Graph) GetNode(name string) (*Node, error) {
	node, exists := g.nodes[name]
	if !exists {
		return nil, fmt.Errorf("node %s not found", name)
	}
	return node, nil
}

// SetMaxVisits sets the maximum number of visits to a node
func (g *Graph) SetMaxVisits(maxVisits int) {
	if maxVisits > 0 {
		g.maxVisits = maxVisits
	}
}

// Builder helps build graphs fluently
type Builder struct {
	graph *Graph
}

// NewBuilder creates a new graph builder
func NewBuilder() *Builder {
	return &Builder{
		graph: NewGraph(),
	}
}

// AddNode adds a node to the graph
func (b *Builder) AddNode(name string, nodeType NodeType, execute NodeFunc) *Builder {
	b.graph.AddNode(&Node{
		Name:    name,
		Type:    nodeType,
		Execute: execute,
	})
	return b
}

// AddConditionNode adds a condition node
func (b *Builder) AddConditionNode(name string, condition ConditionFunc, nextMap map[string]string) *Builder {
	b.graph.AddNode(&Node{
		Name:      name,
		Type:      NodeTypeCondition,
		Condition: condition,
		NextMap:   nextMap,
	})
	return b
}

// AddEdge connects two nodes. A node has a single successor; the last edge wins.
func (b *Builder) AddEdge(from, to string) *Builder {
	node, exists := b.graph.nodes[from]
	if !exists {
		panic(fmt.Sprintf("node %s not found", from))
	}
	if node.Type == NodeTypeCondition {
		panic(fmt.Sprintf("condition node %s routes through its NextMap", from))
	}
	node.Next = to
	return b
}

// OnTransition registers a hook invoked after every step.
func (b *Builder) OnTransition(fn TransitionFunc) *Builder {
	b.graph.onTransition = fn
	return b
}

// SetStart sets the start node
func (b *Builder) SetStart(name string) *Builder {
	b.graph.SetStartNode(name)
	return b
}

// SetEnd sets the end node
func (b *Builder) SetEnd(name string) *Builder {
	b.graph.SetEndNode(name)
	return b
}

// SetMaxVisits sets the maximum number of visits to a node
func (b *Builder) SetMaxVisits(maxVisits int) *Builder {
	b.graph.SetMaxVisits(maxVisits)
	return b
}

// Build validates edges and returns the constructed graph.
func (b *Builder) Build() (*Graph, error) {
	g := b.graph
	if g.startNode == "" {
		return nil, fmt.Errorf("start node not set")
	}
	if g.endNode == "" {
		return nil, fmt.Errorf("end node not set")
	}
	for name, node := range g.nodes {
		targets := []string{node.Next}
		if node.Type == NodeTypeCondition {
			targets = targets[:0]
			for _, t := range node.NextMap {
				targets = append(targets, t)
			}
		}
		for _, t := range targets {
			if t == "" {
				continue
			}
			if _, ok := g.nodes[t]; !ok {
				return nil, fmt.Errorf("node %s points to unknown node %s", name, t)
			}
		}
	}
	return g, nil
}
