package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/compose"

	"github.com/campfinder-assistant/server/internal/agent/dialogue"
	"github.com/campfinder-assistant/server/internal/agent/graph/conversations"
	"github.com/campfinder-assistant/server/internal/agent/graph/nodes"
	"github.com/campfinder-assistant/server/internal/agent/graph/observers"
	"github.com/campfinder-assistant/server/internal/agent/model"
	"github.com/campfinder-assistant/server/internal/agent/pipeline"
	errx "github.com/campfinder-assistant/server/internal/core/error"
	logx "github.com/campfinder-assistant/server/pkg/logger"
)

// maxRunSteps covers extract, one handler and finalize with headroom.
const maxRunSteps = 10

// Runner executes one conversation turn.
type Runner interface {
	Invoke(ctx context.Context, in model.TurnInput) (*model.TurnResult, error)
}

// GraphConfig holds all dependencies needed to build the turn graph.
type GraphConfig struct {
	Sessions *conversations.SessionManager
	Pipeline *pipeline.Pipeline
	Router   *dialogue.Router
}

// GraphBuilder handles the construction of the turn graph.
type GraphBuilder struct {
	config *GraphConfig
	graph  *compose.Graph[model.TurnInput, *model.TurnResult]
	errs   []error
}

type graphRunner struct {
	runnable compose.Runnable[model.TurnInput, *model.TurnResult]
}

// Invoke rejects an empty message before any session is touched.
func (r *graphRunner) Invoke(ctx context.Context, in model.TurnInput) (*model.TurnResult, error) {
	if strings.TrimSpace(in.Message) == "" {
		return nil, errx.Input("message is required")
	}
	if strings.TrimSpace(in.UserID) == "" {
		return nil, errx.Input("userId is required")
	}
	return r.runnable.Invoke(ctx, in, compose.WithCallbacks(observers.NewTurnCallbacks()...))
}

// BuildTurnGraph builds the graph and returns a Runner.
func BuildTurnGraph(ctx context.Context, config *GraphConfig) (Runner, error) {
	runnable, err := BuildGraph(ctx, config)
	if err != nil {
		return nil, err
	}
	logx.Debug().Msg("Turn graph built successfully")
	return &graphRunner{runnable: runnable}, nil
}

// BuildGraph constructs and returns the compiled turn graph:
//
//	START -> Extract -> {FAQ | Feedback | Comparison | Accumulate} -> Finalize -> END
func BuildGraph(ctx context.Context, config *GraphConfig) (compose.Runnable[model.TurnInput, *model.TurnResult], error) {
	if config == nil {
		return nil, fmt.Errorf("graph config is nil")
	}
	if config.Sessions == nil {
		return nil, fmt.Errorf("session manager is nil")
	}
	if config.Pipeline == nil {
		return nil, fmt.Errorf("entity pipeline is nil")
	}
	if config.Router == nil {
		return nil, fmt.Errorf("dialogue router is nil")
	}

	builder := &GraphBuilder{
		config: config,
		graph: compose.NewGraph[model.TurnInput, *model.TurnResult](
			compose.WithGenLocalState(func(ctx context.Context) *model.TurnState {
				return &model.TurnState{}
			}),
		),
	}

	builder.addNodes()
	builder.addEdges()
	builder.addBranches()
	if err := builder.err(); err != nil {
		return nil, err
	}

	return builder.compile(ctx)
}

// addNodes adds all processing nodes to the graph
func (b *GraphBuilder) addNodes() {
	r := b.config.Router
	handlers := map[string]func(*model.Turn){
		nodes.NodeFAQ:        r.HandleFAQ,
		nodes.NodeFeedback:   r.HandleFeedback,
		nodes.NodeComparison: r.HandleComparison,
		nodes.NodeAccumulate: r.HandleAccumulate,
	}

	b.collect(b.graph.AddLambdaNode(nodes.NodeExtract,
		nodes.NewExtractNode(b.config.Sessions, b.config.Pipeline),
		compose.WithStatePreHandler(nodes.NewExtractPreHandler()),
	))

	for name, handle := range handlers {
		b.collect(b.graph.AddLambdaNode(name,
			nodes.NewHandlerNode(handle),
			compose.WithStatePostHandler(nodes.NewHandlerPostHandler()),
		))
	}

	b.collect(b.graph.AddLambdaNode(nodes.NodeFinalize,
		nodes.NewFinalizeNode(b.config.Sessions, r),
		compose.WithStatePostHandler(nodes.NewFinalizePostHandler()),
	))
}

// addEdges creates the main flow connections between nodes
func (b *GraphBuilder) addEdges() {
	edges := [][2]string{
		{compose.START, nodes.NodeExtract},
		{nodes.NodeFAQ, nodes.NodeFinalize},
		{nodes.NodeFeedback, nodes.NodeFinalize},
		{nodes.NodeComparison, nodes.NodeFinalize},
		{nodes.NodeAccumulate, nodes.NodeFinalize},
		{nodes.NodeFinalize, compose.END},
	}

	for _, edge := range edges {
		b.collect(b.graph.AddEdge(edge[0], edge[1]))
	}
}

// addBranches creates the dialogue routing branch
func (b *GraphBuilder) addBranches() {
	dialogueBranch := compose.NewGraphBranch(
		nodes.NewBranchCondition(),
		map[string]bool{
			nodes.NodeFAQ:        true,
			nodes.NodeFeedback:   true,
			nodes.NodeComparison: true,
			nodes.NodeAccumulate: true,
		},
	)
	if err := b.graph.AddBranch(nodes.NodeExtract, dialogueBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding dialogue branch")
		b.collect(fmt.Errorf("error adding dialogue branch: %w", err))
	}
}

// compile finalizes and compiles the graph
func (b *GraphBuilder) compile(ctx context.Context) (compose.Runnable[model.TurnInput, *model.TurnResult], error) {
	runnable, err := b.graph.Compile(ctx, compose.WithMaxRunSteps(maxRunSteps))
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling graph")
		return nil, fmt.Errorf("error compiling graph: %w", err)
	}

	logx.Debug().Msg("Graph compiled successfully")
	return runnable, nil
}

func (b *GraphBuilder) collect(err error) {
	if err != nil {
		b.errs = append(b.errs, err)
	}
}

func (b *GraphBuilder) err() error {
	if len(b.errs) == 0 {
		return nil
	}
	return fmt.Errorf("build turn graph: %w", b.errs[0])
}
