package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ctiforge/internal/domain/models"
)

func TestEvidenceGraph_ReasonsMergeOnOneEdge(t *testing.T) {
	g := NewEvidenceGraph()

	g.AddEdge("evt-a", "evt-b", models.ReasonSharedIOC)
	g.AddEdge("evt-b", "evt-a", models.ReasonTemporalWindow)
	g.SetSharedIOCWeight("evt-a", "evt-b", 3)

	assert.Equal(t, 1, g.EdgeCount())

	edge := g.EdgeBetween("evt-a", "evt-b")
	require.NotNil(t, edge)
	assert.True(t, edge.Reasons[models.ReasonSharedIOC])
	assert.True(t, edge.Reasons[models.ReasonTemporalWindow])
	assert.False(t, edge.Reasons[models.ReasonAnalysisCluster])
	assert.Equal(t, 3, edge.Weight)

	// Same edge regardless of argument order.
	assert.Equal(t, edge, g.EdgeBetween("evt-b", "evt-a"))
}

func TestEvidenceGraph_SelfLoopIgnored(t *testing.T) {
	g := NewEvidenceGraph()
	g.AddEdge("evt-a", "evt-a", models.ReasonSharedIOC)

	assert.Equal(t, 0, g.EdgeCount())
	assert.Nil(t, g.EdgeBetween("evt-a", "evt-a"))
}

func TestEvidenceGraph_Components(t *testing.T) {
	g := NewEvidenceGraph()
	for _, id := range []string{"evt-a", "evt-b", "evt-c", "evt-d", "evt-e", "evt-f"} {
		g.AddNode(id)
	}
	g.AddEdge("evt-c", "evt-b", models.ReasonSharedIOC)
	g.AddEdge("evt-a", "evt-b", models.ReasonAnalysisCluster)
	g.AddEdge("evt-e", "evt-d", models.ReasonTemporalWindow)

	components := g.Components()

	// Members sorted within each component, components ordered by smallest
	// member, isolated nodes as singletons.
	assert.Equal(t, [][]string{
		{"evt-a", "evt-b", "evt-c"},
		{"evt-d", "evt-e"},
		{"evt-f"},
	}, components)
}

func TestEvidenceGraph_ComponentsStableAcrossRuns(t *testing.T) {
	build := func() *EvidenceGraph {
		g := NewEvidenceGraph()
		g.AddEdge("evt-9", "evt-2", models.ReasonSharedIOC)
		g.AddEdge("evt-5", "evt-2", models.ReasonTemporalWindow)
		g.AddEdge("evt-7", "evt-3", models.ReasonAnalysisCluster)
		g.AddNode("evt-1")
		return g
	}

	first := build().Components()
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, build().Components())
	}
}

func TestEvidenceGraph_AddEdgeRegistersNodes(t *testing.T) {
	g := NewEvidenceGraph()
	g.AddEdge("evt-a", "evt-b", models.ReasonSharedIOC)

	assert.Equal(t, 2, g.NodeCount())
}
