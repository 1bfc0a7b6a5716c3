package graph

import (
	"context"
	"errors"
	"testing"
)

func passthrough(ctx context.Context, state State) (State, error) {
	return state, nil
}

func TestAddNodeEmptyName(t *testing.T) {
	g := NewGraph()

	defer func() {
		if r := recover(); r == nil {
			t.Errorf("Expected function to panic, but it did not")
		} else if r != "node name cannot be empty" {
			t.Errorf("Expected panic value to be 'node name cannot be empty', but got %v", r)
		}
	}()

	g.AddNode(&Node{Name: "", Type: NodeTypeStep, Execute: passthrough})
}

func TestAddNodeDuplicate(t *testing.T) {
	g := NewGraph()
	g.AddNode(&Node{Name: "dup_node", Type: NodeTypeStep, Execute: passthrough})

	defer func() {
		if r := recover(); r == nil {
			t.Errorf("Expected function to panic, but it did not")
		} else if r != "node dup_node already exists" {
			t.Errorf("Expected panic value to be 'node dup_node already exists', but got %v", r)
		}
	}()
	g.AddNode(&Node{Name: "dup_node", Type: NodeTypeStep, Execute: passthrough})
}

func TestAutoSetStartAndEndNode(t *testing.T) {
	g := NewGraph()
	g.AddNode(&Node{Name: "start", Type: NodeTypeStart, Execute: passthrough})
	g.AddNode(&Node{Name: "end", Type: NodeTypeEnd, Execute: passthrough})

	if g.startNode != "start" {
		t.Errorf("Start node not automatically set")
	}
	if g.endNode != "end" {
		t.Errorf("End node not automatically set")
	}
}

func TestExecuteSimpleLinearGraph(t *testing.T) {
	g := NewGraph()
	g.AddNode(&Node{
		Name: "start",
		Type: NodeTypeStart,
		Execute: func(ctx context.Context, state State) (State, error) {
			state["started"] = true
			return state, nil
		},
		Next: "node1",
	})
	g.AddNode(&Node{
		Name: "node1",
		Type: NodeTypeStep,
		Execute: func(ctx context.Context, state State) (State, error) {
			state["step1"] = true
			return state, nil
		},
		Next: "end",
	})
	g.AddNode(&Node{Name: "end", Type: NodeTypeEnd, Execute: passthrough})

	state, err := g.Execute(context.Background(), nil)
	if err != nil {
		t.Fatalf("Graph execution failed: %v", err)
	}
	if state["started"] != true || state["step1"] != true {
		t.Errorf("Nodes were not executed: %v", state)
	}
}

func TestExecuteWithCondition(t *testing.T) {
	graph, err := NewBuilder().
		AddNode("start", NodeTypeStart, func(ctx context.Context, state State) (State, error) {
			state["value"] = 5
			return state, nil
		}).
		AddConditionNode("decision", func(ctx context.Context, state State) (string, error) {
			if state["value"].(int) > 10 {
				return "high", nil
			}
			return "low", nil
		}, map[string]string{"high": "node_high", "low": "node_low"}).
		AddNode("node_high", NodeTypeStep, func(ctx context.Context, state State) (State, error) {
			state["branch"] = "high"
			return state, nil
		}).
		AddNode("node_low", NodeTypeStep, func(ctx context.Context, state State) (State, error) {
			state["branch"] = "low"
			return state, nil
		}).
		AddNode("end", NodeTypeEnd, passthrough).
		AddEdge("start", "decision").
		AddEdge("node_high", "end").
		AddEdge("node_low", "end").
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	state, err := graph.Execute(context.Background(), nil)
	if err != nil {
		t.Fatalf("Graph execution failed: %v", err)
	}
	if state["branch"] != "low" {
		t.Errorf("Expected low branch, got %v", state["branch"])
	}
}

func TestExecuteNoStartNode(t *testing.T) {
	g := NewGraph()
	g.AddNode(&Node{Name: "node", Type: NodeTypeStep, Execute: passthrough})

	if _, err := g.Execute(context.Background(), nil); err == nil {
		t.Errorf("Expected error when executing graph without start node")
	}
}

func TestExecuteNodeNotFound(t *testing.T) {
	g := NewGraph()
	g.AddNode(&Node{Name: "start", Type: NodeTypeStart, Execute: passthrough, Next: "nonexistent"})

	if _, err := g.Execute(context.Background(), nil); err == nil {
		t.Errorf("Expected error when executing with non-existent next node")
	}
}

func TestExecuteVisitGuard(t *testing.T) {
	g := NewGraph()
	g.SetMaxVisits(3)
	g.AddNode(&Node{Name: "start", Type: NodeTypeStart, Execute: passthrough, Next: "node1"})
	g.AddNode(&Node{Name: "node1", Type: NodeTypeStep, Execute: passthrough, Next: "start"})

	_, err := g.Execute(context.Background(), nil)
	if !errors.Is(err, ErrMaxVisits) {
		t.Errorf("Expected ErrMaxVisits, got %v", err)
	}
}

func TestExecuteStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	g := NewGraph()
	g.AddNode(&Node{
		Name: "start",
		Type: NodeTypeStart,
		Execute: func(_ context.Context, state State) (State, error) {
			state["ran"] = true
			cancel()
			return state, nil
		},
		Next: "end",
	})
	g.AddNode(&Node{
		Name: "end",
		Type: NodeTypeEnd,
		Execute: func(_ context.Context, state State) (State, error) {
			state["ended"] = true
			return state, nil
		},
	})

	state, err := g.Execute(ctx, State{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	if state["ran"] != true || state["ended"] == true {
		t.Errorf("Unexpected state after cancellation: %v", state)
	}
}

func TestBuilderTransitionsAndValidation(t *testing.T) {
	var path []string
	graph, err := NewBuilder().
		AddNode("start", NodeTypeStart, passthrough).
		AddNode("work", NodeTypeStep, passthrough).
		AddNode("end", NodeTypeEnd, passthrough).
		AddEdge("start", "work").
		AddEdge("work", "end").
		OnTransition(func(_ context.Context, from, to string) {
			path = append(path, from+">"+to)
		}).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if _, err := graph.Execute(context.Background(), nil); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if len(path) != 2 || path[0] != "start>work" || path[1] != "work>end" {
		t.Errorf("Unexpected transitions %v", path)
	}

	_, err = NewBuilder().
		AddNode("start", NodeTypeStart, passthrough).
		AddNode("end", NodeTypeEnd, passthrough).
		AddEdge("start", "missing").
		Build()
	if err == nil {
		t.Errorf("Expected Build to reject unknown edge target")
	}
}
