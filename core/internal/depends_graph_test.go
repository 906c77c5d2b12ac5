package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDependsGraphOrder(t *testing.T) {
	g := NewDependsGraph()
	g.AddNode("http")
	g.AddNode("cron")
	g.AddNode("storage")
	g.AddNode("pipeline", "storage", "cron", "mailer")
	g.AddNode("mailer")

	order, err := g.Build()
	require.NoError(t, err)

	pos := make(map[string]int, len(order))
	for i, id := range order {
		pos[id] = i
	}

	assert.Len(t, order, 5)
	assert.Less(t, pos["storage"], pos["pipeline"])
	assert.Less(t, pos["cron"], pos["pipeline"])
	assert.Less(t, pos["mailer"], pos["pipeline"])
}

func TestDependsGraphCycle(t *testing.T) {
	g := NewDependsGraph()
	g.AddNode("a", "b")
	g.AddNode("b", "a")

	_, err := g.Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}

func TestDependsGraphMissingDependency(t *testing.T) {
	g := NewDependsGraph()
	g.AddNode("pipeline", "storage")

	_, err := g.Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dependency not found")
}
