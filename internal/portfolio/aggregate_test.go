package portfolio

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tradecouncil/tradecouncil/internal/config"
	"github.com/tradecouncil/tradecouncil/internal/models"
)

func votes(tech, fund, sent string) map[string]string {
	return map[string]string{"tech": tech, "fund": fund, "sent": sent}
}

func TestAggregateExhaustiveTriples(t *testing.T) {
	cfg := &config.Config{}
	options := []string{models.RecBuy, models.RecSell, models.RecHold}

	for _, a := range options {
		for _, b := range options {
			for _, c := range options {
				v := votes(a, b, c)
				rec, conf, _, source := Aggregate(v, nil, cfg)

				var buys, sells int
				for _, x := range []string{a, b, c} {
					switch x {
					case models.RecBuy:
						buys++
					case models.RecSell:
						sells++
					}
				}

				name := fmt.Sprintf("%s/%s/%s", a, b, c)
				switch {
				case buys > sells && buys >= 2:
					assert.Equal(t, models.RecBuy, rec, name)
					assert.Equal(t, 0.6, conf, name)
				case sells > buys && sells >= 2:
					assert.Equal(t, models.RecSell, rec, name)
					assert.Equal(t, 0.6, conf, name)
				default:
					assert.Equal(t, models.RecHold, rec, name)
					assert.Equal(t, 0.5, conf, name)
				}
				assert.Equal(t, sourceMajority, source, name)
			}
		}
	}
}

func TestAggregateSingleBuyIsNotEnough(t *testing.T) {
	rec, _, _, _ := Aggregate(votes(models.RecBuy, models.RecHold, models.RecHold), nil, &config.Config{})
	assert.Equal(t, models.RecHold, rec)
}

func TestAggregateTechAloneDisabledByDefault(t *testing.T) {
	tech := models.NewAnalysisResult("technical", models.RecBuy, 0.9, "strong trend", nil)
	rec, _, _, _ := Aggregate(votes(models.RecBuy, models.RecHold, models.RecHold), tech, &config.Config{MinTechConf: 0.65})
	assert.Equal(t, models.RecHold, rec)
}

func TestAggregateTechAloneCarries(t *testing.T) {
	cfg := &config.Config{TradeOnTechAlone: true, MinTechConf: 0.65}
	tech := models.NewAnalysisResult("technical", models.RecBuy, 0.7, "strong trend", nil)

	rec, conf, _, source := Aggregate(votes(models.RecBuy, models.RecHold, models.RecHold), tech, cfg)
	assert.Equal(t, models.RecBuy, rec)
	assert.Equal(t, 0.7, conf)
	assert.Equal(t, sourceTechOnly, source)
}

func TestAggregateTechAloneRequiresConfidence(t *testing.T) {
	cfg := &config.Config{TradeOnTechAlone: true, MinTechConf: 0.65}
	tech := models.NewAnalysisResult("technical", models.RecBuy, 0.6, "weak trend", nil)

	rec, _, _, _ := Aggregate(votes(models.RecBuy, models.RecHold, models.RecHold), tech, cfg)
	assert.Equal(t, models.RecHold, rec)
}

func TestAggregateTechAloneNeverOverridesMajority(t *testing.T) {
	// A sell majority stands even when the technical vote is a confident buy.
	cfg := &config.Config{TradeOnTechAlone: true, MinTechConf: 0.65}
	tech := models.NewAnalysisResult("technical", models.RecBuy, 0.9, "contrarian", nil)

	rec, _, _, _ := Aggregate(votes(models.RecBuy, models.RecSell, models.RecSell), tech, cfg)
	assert.Equal(t, models.RecSell, rec)
}

func TestAggregateTechAloneOnlyDirectional(t *testing.T) {
	cfg := &config.Config{TradeOnTechAlone: true, MinTechConf: 0.65}
	tech := models.NewAnalysisResult("technical", models.RecInsufficientData, 0.9, "no data", nil)

	rec, _, _, _ := Aggregate(votes(models.RecInsufficientData, models.RecHold, models.RecHold), tech, cfg)
	assert.Equal(t, models.RecHold, rec)
}
