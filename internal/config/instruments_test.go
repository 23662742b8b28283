package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradecouncil/tradecouncil/internal/models"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "instruments.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadInstrumentsMixedForms(t *testing.T) {
	path := writeFile(t, `
instruments:
  - symbol: EURUSD
    timeframe: h1
    enabled: true
  - symbol: GBPUSD
    enabled: false
  - XAUUSD
`)

	got, err := LoadInstruments(path, models.TFH4)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, models.Instrument{Symbol: "EURUSD", Timeframe: models.TFH1, Enabled: true}, got[0])
	assert.Equal(t, models.Instrument{Symbol: "GBPUSD", Timeframe: models.TFH4, Enabled: false}, got[1])
	assert.Equal(t, models.Instrument{Symbol: "XAUUSD", Timeframe: models.TFH4, Enabled: true}, got[2])
}

func TestLoadInstrumentsPreservesOrder(t *testing.T) {
	path := writeFile(t, `
instruments: ["USDJPY", "EURUSD", "AUDUSD"]
`)
	got, err := LoadInstruments(path, models.TFH1)
	require.NoError(t, err)

	var symbols []string
	for _, in := range got {
		symbols = append(symbols, in.Symbol)
	}
	assert.Equal(t, []string{"USDJPY", "EURUSD", "AUDUSD"}, symbols)
}

func TestLoadInstrumentsInvalidTimeframe(t *testing.T) {
	path := writeFile(t, `
instruments:
  - symbol: EURUSD
    timeframe: H7
`)
	_, err := LoadInstruments(path, models.TFH1)
	assert.ErrorContains(t, err, "invalid timeframe")
}

func TestLoadInstrumentsMissingFile(t *testing.T) {
	_, err := LoadInstruments(filepath.Join(t.TempDir(), "nope.yaml"), models.TFH1)
	assert.Error(t, err)
}

func TestEnabledInstruments(t *testing.T) {
	cfg := &Config{Instruments: []models.Instrument{
		{Symbol: "EURUSD", Timeframe: models.TFH1, Enabled: true},
		{Symbol: "GBPUSD", Timeframe: models.TFH1, Enabled: false},
	}}
	got := cfg.EnabledInstruments()
	require.Len(t, got, 1)
	assert.Equal(t, "EURUSD", got[0].Symbol)
}
