package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tradecouncil/tradecouncil/internal/models"
)

// instrumentEntry accepts both forms the instruments file allows:
//
//	instruments:
//	  - {symbol: "EURUSD", timeframe: "H1", enabled: true}
//	  - "XAUUSD"            # bare string, default timeframe, enabled
type instrumentEntry struct {
	Symbol    string `yaml:"symbol"`
	Timeframe string `yaml:"timeframe"`
	Enabled   *bool  `yaml:"enabled"`
}

func (e *instrumentEntry) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		e.Symbol = node.Value
		return nil
	}
	type plain instrumentEntry
	return node.Decode((*plain)(e))
}

type instrumentsFile struct {
	Instruments []instrumentEntry `yaml:"instruments"`
}

// LoadInstruments reads the instrument universe. Order is preserved; it is
// the tie-breaker for research ranking. A missing or malformed file is a
// startup failure, not something to limp past.
func LoadInstruments(path string, defaultTF models.Timeframe) ([]models.Instrument, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read instruments file %s: %w", path, err)
	}

	var doc instrumentsFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse instruments file %s: %w", path, err)
	}

	out := make([]models.Instrument, 0, len(doc.Instruments))
	for i, e := range doc.Instruments {
		sym := strings.TrimSpace(e.Symbol)
		if sym == "" {
			return nil, fmt.Errorf("instruments[%d]: missing symbol", i)
		}
		tf := defaultTF
		if e.Timeframe != "" {
			tf = models.Timeframe(strings.ToUpper(e.Timeframe))
			if !tf.Valid() {
				return nil, fmt.Errorf("instruments[%d] %s: invalid timeframe %q", i, sym, e.Timeframe)
			}
		}
		enabled := true
		if e.Enabled != nil {
			enabled = *e.Enabled
		}
		out = append(out, models.Instrument{Symbol: sym, Timeframe: tf, Enabled: enabled})
	}
	return out, nil
}
