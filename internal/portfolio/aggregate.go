// Package portfolio is the orchestrator: it wires the analyst council into a
// compiled pipeline graph, aggregates their votes and carries the winning
// intent through the risk gate into execution.
package portfolio

import (
	"fmt"

	"github.com/tradecouncil/tradecouncil/internal/config"
	"github.com/tradecouncil/tradecouncil/internal/models"
)

const (
	sourceMajority = "majority voting"
	sourceTechOnly = "technical only"
)

// Aggregate folds the three analyst votes into one directional call. A
// direction wins only with a strict majority of at least two aligned votes;
// anything weaker is a hold. When the majority is a hold and the tech-alone
// policy is enabled, a sufficiently confident technical vote may carry alone.
func Aggregate(votes map[string]string, technical *models.AnalysisResult, cfg *config.Config) (rec string, confidence float64, reasoning, source string) {
	var buys, sells int
	for _, v := range votes {
		switch v {
		case models.RecBuy:
			buys++
		case models.RecSell:
			sells++
		}
	}

	switch {
	case buys > sells && buys >= 2:
		return models.RecBuy, 0.6, fmt.Sprintf("%d of %d analysts say buy", buys, len(votes)), sourceMajority
	case sells > buys && sells >= 2:
		return models.RecSell, 0.6, fmt.Sprintf("%d of %d analysts say sell", sells, len(votes)), sourceMajority
	}

	if cfg.TradeOnTechAlone && technical != nil && technical.IsDirectional() && technical.Confidence >= cfg.MinTechConf {
		return technical.Recommendation, technical.Confidence,
			fmt.Sprintf("no majority, technical alone at %.2f", technical.Confidence), sourceTechOnly
	}

	return models.RecHold, 0.5, "no analyst majority", sourceMajority
}
