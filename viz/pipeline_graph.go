// ABOUTME: Funnel pipeline graph generation
// ABOUTME: Renders a funnel's stages and their deals as graphviz DOT
package viz

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"
	"github.com/indik4/crm/models"
	"github.com/indik4/crm/store"
)

type GraphGenerator struct {
	store *store.Store
}

func NewGraphGenerator(s *store.Store) *GraphGenerator {
	return &GraphGenerator{store: s}
}

// GeneratePipelineGraph renders one funnel as a left-to-right stage chain
// with its deals attached to their stages. An empty funnelID picks the
// first funnel.
func (g *GraphGenerator) GeneratePipelineGraph(funnelID string) (string, error) {
	funnel, err := g.pickFunnel(funnelID)
	if err != nil {
		return "", err
	}

	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create graphviz: %w", err)
	}
	defer func() {
		if err := gv.Close(); err != nil {
			fmt.Printf("Error closing graphviz: %v\n", err)
		}
	}()

	graph, err := gv.Graph()
	if err != nil {
		return "", fmt.Errorf("failed to create graph: %w", err)
	}
	defer func() {
		if err := graph.Close(); err != nil {
			fmt.Printf("Error closing graph: %v\n", err)
		}
	}()

	graph.SetLabel(fmt.Sprintf("Pipeline: %s", funnel.Name))
	graph.SetRankDir(cgraph.LRRank)

	deals := g.store.Deals()
	byStage := make(map[string][]models.Deal)
	for _, deal := range deals {
		byStage[deal.Stage] = append(byStage[deal.Stage], deal)
	}

	// Stage chain
	stageNodes := make(map[string]*cgraph.Node)
	var prev *cgraph.Node
	for _, stage := range funnel.Stages {
		node, err := graph.CreateNodeByName(fmt.Sprintf("stage_%s", stage.ID))
		if err != nil {
			return "", fmt.Errorf("failed to create stage node: %w", err)
		}
		count := len(byStage[stage.ID])
		var amount float64
		for _, d := range byStage[stage.ID] {
			amount += d.Amount
		}
		node.SetLabel(fmt.Sprintf("%s\n%d deals / %.0fK", stage.Name, count, amount/1000))
		node.SetShape("box")
		node.SetStyle("filled")
		node.SetFillColor("lightblue")
		stageNodes[stage.ID] = node

		if prev != nil {
			edge, err := graph.CreateEdgeByName("next", prev, node)
			if err != nil {
				return "", fmt.Errorf("failed to create stage edge: %w", err)
			}
			edge.SetStyle("bold")
		}
		prev = node
	}

	// Deals hang off their stages
	for _, deal := range deals {
		stageNode, ok := stageNodes[deal.Stage]
		if !ok {
			continue
		}
		node, err := graph.CreateNodeByName(fmt.Sprintf("deal_%s", deal.ID.String()[:8]))
		if err != nil {
			return "", fmt.Errorf("failed to create deal node: %w", err)
		}
		node.SetLabel(fmt.Sprintf("%s\n%.0fK (%d%%)", deal.Title, deal.Amount/1000, deal.Probability))
		node.SetShape("diamond")
		node.SetStyle("filled")
		node.SetFillColor("lightyellow")

		edge, err := graph.CreateEdgeByName("in_stage", stageNode, node)
		if err != nil {
			return "", fmt.Errorf("failed to create deal edge: %w", err)
		}
		edge.SetStyle("dotted")
	}

	var buf bytes.Buffer
	if err := gv.Render(ctx, graph, graphviz.XDOT, &buf); err != nil {
		return "", fmt.Errorf("failed to render graph: %w", err)
	}

	return buf.String(), nil
}

func (g *GraphGenerator) pickFunnel(funnelID string) (models.Funnel, error) {
	funnels := g.store.Funnels()
	if len(funnels) == 0 {
		return models.Funnel{}, fmt.Errorf("no funnels configured")
	}
	if funnelID == "" {
		return funnels[0], nil
	}
	for _, f := range funnels {
		if f.ID == funnelID {
			return f, nil
		}
	}
	return models.Funnel{}, fmt.Errorf("funnel not found: %s", funnelID)
}
