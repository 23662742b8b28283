package portfolio

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tradecouncil/tradecouncil/internal/agents"
	"github.com/tradecouncil/tradecouncil/internal/audit"
	"github.com/tradecouncil/tradecouncil/internal/config"
	"github.com/tradecouncil/tradecouncil/internal/models"
)

// Pipeline node names.
const (
	nodeResearch    = "research"
	nodeTechnical   = "technical"
	nodeFundamental = "fundamental"
	nodeSentiment   = "sentiment"
	nodeAggregate   = "aggregate"
	nodeRisk        = "risk"
	nodeExecute     = "execute"
	nodeFinalize    = "finalize"
)

// Council is the set of agents the manager orchestrates.
type Council struct {
	Research    *agents.ResearchAgent
	Technical   *agents.TechnicalAgent
	Fundamental *agents.FundamentalAgent
	Sentiment   *agents.SentimentAgent
	Risk        *agents.RiskAgent
	Execution   *agents.ExecutionAgent
}

// Manager owns the compiled pipeline graph and runs one decision cycle per
// invocation. Every cycle ends in exactly one terminal decision, whatever
// fails along the way.
type Manager struct {
	cfg      *config.Config
	council  Council
	auditor  *audit.Logger
	log      zerolog.Logger
	runnable compose.Runnable[*models.CycleState, *models.CycleState]
}

// NewManager wires the council into the pipeline graph and compiles it.
func NewManager(ctx context.Context, cfg *config.Config, council Council, auditor *audit.Logger, log zerolog.Logger) (*Manager, error) {
	m := &Manager{
		cfg:     cfg,
		council: council,
		auditor: auditor,
		log:     log.With().Str("component", "portfolio").Logger(),
	}

	g := compose.NewGraph[*models.CycleState, *models.CycleState]()

	_ = g.AddLambdaNode(nodeResearch, compose.InvokableLambda(m.researchNode))
	_ = g.AddLambdaNode(nodeTechnical, compose.InvokableLambda(m.technicalNode))
	_ = g.AddLambdaNode(nodeFundamental, compose.InvokableLambda(m.fundamentalNode))
	_ = g.AddLambdaNode(nodeSentiment, compose.InvokableLambda(m.sentimentNode))
	_ = g.AddLambdaNode(nodeAggregate, compose.InvokableLambda(m.aggregateNode))
	_ = g.AddLambdaNode(nodeRisk, compose.InvokableLambda(m.riskNode))
	_ = g.AddLambdaNode(nodeExecute, compose.InvokableLambda(m.executeNode))
	_ = g.AddLambdaNode(nodeFinalize, compose.InvokableLambda(m.finalizeNode))

	_ = g.AddEdge(compose.START, nodeResearch)
	_ = g.AddBranch(nodeResearch, compose.NewGraphBranch(
		func(_ context.Context, s *models.CycleState) (string, error) {
			if s.Top == nil {
				return nodeFinalize, nil
			}
			return nodeTechnical, nil
		},
		map[string]bool{nodeTechnical: true, nodeFinalize: true},
	))
	_ = g.AddEdge(nodeTechnical, nodeFundamental)
	_ = g.AddEdge(nodeFundamental, nodeSentiment)
	_ = g.AddEdge(nodeSentiment, nodeAggregate)
	_ = g.AddBranch(nodeAggregate, compose.NewGraphBranch(
		func(_ context.Context, s *models.CycleState) (string, error) {
			if s.Proposed == nil {
				return nodeFinalize, nil
			}
			return nodeRisk, nil
		},
		map[string]bool{nodeRisk: true, nodeFinalize: true},
	))
	_ = g.AddBranch(nodeRisk, compose.NewGraphBranch(
		func(_ context.Context, s *models.CycleState) (string, error) {
			if s.Risk != nil && s.Risk.Recommendation == models.RecApprove {
				return nodeExecute, nil
			}
			return nodeFinalize, nil
		},
		map[string]bool{nodeExecute: true, nodeFinalize: true},
	))
	_ = g.AddEdge(nodeExecute, nodeFinalize)
	_ = g.AddEdge(nodeFinalize, compose.END)

	runnable, err := g.Compile(ctx,
		compose.WithGraphName("tradecouncil-pipeline"),
		compose.WithNodeTriggerMode(compose.AnyPredecessor),
	)
	if err != nil {
		return nil, fmt.Errorf("compile pipeline: %w", err)
	}
	m.runnable = runnable
	return m, nil
}

// RunCycle executes one full decision cycle and returns the terminal state.
func (m *Manager) RunCycle(ctx context.Context) (*models.CycleState, error) {
	runID := uuid.NewString()[:8]
	state := models.NewCycleState(runID, m.cfg.EnabledInstruments())

	m.log.Info().Str("run_id", runID).Int("instruments", len(state.Instruments)).Msg("cycle start")
	out, err := m.runnable.Invoke(ctx, state)
	if err != nil {
		return nil, fmt.Errorf("cycle %s: %w", runID, err)
	}
	m.log.Info().
		Str("run_id", runID).
		Str("symbol", out.Decision.Symbol).
		Str("recommendation", out.Decision.Recommendation).
		Float64("confidence", out.Decision.Confidence).
		Msg("cycle done")
	return out, nil
}

func (m *Manager) researchNode(ctx context.Context, s *models.CycleState) (*models.CycleState, error) {
	candidates, result := m.council.Research.Screen(ctx, s.Instruments)
	s.Candidates = candidates
	s.Research = result
	if len(candidates) > 0 {
		s.Top = &candidates[0]
	}
	return s, nil
}

func (m *Manager) technicalNode(ctx context.Context, s *models.CycleState) (*models.CycleState, error) {
	s.Technical = m.council.Technical.Analyze(ctx, s.RunID, s.Top)
	return s, nil
}

func (m *Manager) fundamentalNode(ctx context.Context, s *models.CycleState) (*models.CycleState, error) {
	s.Fundamental = m.council.Fundamental.Analyze(ctx, s.RunID, s.Top)
	return s, nil
}

func (m *Manager) sentimentNode(ctx context.Context, s *models.CycleState) (*models.CycleState, error) {
	s.Sentiment = m.council.Sentiment.Analyze(ctx, s.RunID, s.Top)
	return s, nil
}

func (m *Manager) aggregateNode(_ context.Context, s *models.CycleState) (*models.CycleState, error) {
	votes := s.Votes()
	rec, confidence, reasoning, source := Aggregate(votes, s.Technical, m.cfg)

	if rec == models.RecBuy || rec == models.RecSell {
		s.Proposed = &models.ProposedTrade{
			Instrument: s.Top.Symbol,
			Direction:  rec,
			Timeframe:  s.Top.Timeframe,
			Confidence: confidence,
			Source:     source,
		}
		return s, nil
	}

	s.Decision = &models.TradeDecision{
		Symbol:         s.Top.Symbol,
		Timeframe:      s.Top.Timeframe,
		Recommendation: models.RecHold,
		Confidence:     confidence,
		Reasoning:      reasoning,
		Votes:          votes,
	}
	return s, nil
}

// riskNode evaluates the proposal. A veto downgrades the decision to hold;
// it never upgrades anything.
func (m *Manager) riskNode(ctx context.Context, s *models.CycleState) (*models.CycleState, error) {
	s.Risk = m.council.Risk.Evaluate(ctx, s.RunID, s.Proposed)
	if s.Risk.Recommendation != models.RecApprove {
		s.Decision = &models.TradeDecision{
			Symbol:         s.Proposed.Instrument,
			Timeframe:      s.Proposed.Timeframe,
			Recommendation: models.RecHold,
			Confidence:     0.5,
			Reasoning:      fmt.Sprintf("risk manager veto: %s", s.Risk.Reasoning),
			Votes:          s.Votes(),
		}
	}
	return s, nil
}

func (m *Manager) executeNode(ctx context.Context, s *models.CycleState) (*models.CycleState, error) {
	s.Order = m.council.Execution.Execute(ctx, s.RunID, s.Proposed)

	reasoning := fmt.Sprintf("%s via %s", s.Proposed.Direction, s.Proposed.Source)
	if !s.Order.OK {
		// The decision stands even when the order fails; the journal
		// carries the failure.
		reasoning = fmt.Sprintf("%s, order failed: %s", reasoning, s.Order.Message)
	}
	s.Decision = &models.TradeDecision{
		Symbol:         s.Proposed.Instrument,
		Timeframe:      s.Proposed.Timeframe,
		Recommendation: s.Proposed.Direction,
		Confidence:     s.Proposed.Confidence,
		Reasoning:      reasoning,
		Votes:          s.Votes(),
		TradeDetails:   s.Order,
	}
	return s, nil
}

// finalizeNode guarantees the terminal decision and journals it.
func (m *Manager) finalizeNode(_ context.Context, s *models.CycleState) (*models.CycleState, error) {
	if s.Decision == nil {
		s.Decision = &models.TradeDecision{
			Recommendation: models.RecNoAction,
			Confidence:     0.5,
			Reasoning:      "no tradable opportunity this cycle",
			Votes:          map[string]string{},
		}
		if s.Research != nil {
			s.Decision.Reasoning = s.Research.Reasoning
		}
	}
	if m.auditor != nil {
		m.auditor.LogDecision(s.RunID, s.Decision)
	}
	return s, nil
}
