// Package audit writes the append-only trail every decision cycle leaves
// behind: decisions, order attempts, reasoning-provider calls and runner
// errors, one JSON object per line, correlated by run id.
package audit

import (
	"bytes"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tradecouncil/tradecouncil/internal/models"
)

// Record kinds.
const (
	KindDecision    = "decision"
	KindOrder       = "order"
	KindLLMCall     = "llm_call"
	KindRunnerError = "runner_error"
)

// Record is one journal line. Kind-specific fields are pointers/omitempty so
// every kind round-trips through the same shape.
type Record struct {
	TS       time.Time             `json:"ts"`
	Kind     string                `json:"type"`
	RunID    string                `json:"run_id"`
	Symbol   string                `json:"symbol,omitempty"`
	Decision *models.TradeDecision `json:"decision,omitempty"`
	Order    *models.OrderResult   `json:"order,omitempty"`

	// llm_call fields
	Agent       string `json:"agent,omitempty"`
	Model       string `json:"model,omitempty"`
	PromptHash  string `json:"prompt_hash,omitempty"`
	PromptLen   int    `json:"prompt_len,omitempty"`
	ResponseLen int    `json:"response_len,omitempty"`

	// runner_error field
	Error string `json:"error,omitempty"`
}

// Logger appends to decisions.jsonl, orders.jsonl, orders.csv and the merged
// journal.jsonl under one base directory. Single writer; appends are
// serialized by a mutex, so lines never interleave.
type Logger struct {
	mu   sync.Mutex
	base string
	log  zerolog.Logger
}

// New creates the base directory and the orders.csv header if missing.
func New(baseDir string, log zerolog.Logger) (*Logger, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create audit dir: %w", err)
	}
	l := &Logger{base: baseDir, log: log.With().Str("component", "audit").Logger()}

	csvPath := l.path("orders.csv")
	if _, err := os.Stat(csvPath); os.IsNotExist(err) {
		f, err := os.OpenFile(csvPath, os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("create orders.csv: %w", err)
		}
		w := csv.NewWriter(f)
		_ = w.Write([]string{"ts", "run_id", "symbol", "side", "volume", "price", "ticket", "status", "message"})
		w.Flush()
		if err := f.Close(); err != nil {
			return nil, err
		}
	}
	return l, nil
}

func (l *Logger) path(name string) string { return filepath.Join(l.base, name) }

// JournalPath exposes the merged journal location for the dashboard reader.
func (l *Logger) JournalPath() string { return l.path("journal.jsonl") }

// LogDecision records the terminal decision of one cycle.
func (l *Logger) LogDecision(runID string, decision *models.TradeDecision) {
	l.append(Record{
		TS:       time.Now().UTC(),
		Kind:     KindDecision,
		RunID:    runID,
		Symbol:   decision.Symbol,
		Decision: decision,
	}, "decisions.jsonl")
}

// LogOrder records one order attempt, successful or not, and mirrors it into
// orders.csv.
func (l *Logger) LogOrder(runID string, order *models.OrderResult) {
	rec := Record{
		TS:     time.Now().UTC(),
		Kind:   KindOrder,
		RunID:  runID,
		Symbol: order.Symbol,
		Order:  order,
	}
	l.append(rec, "orders.jsonl")

	l.mu.Lock()
	defer l.mu.Unlock()
	f, err := os.OpenFile(l.path("orders.csv"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		l.log.Error().Err(err).Msg("open orders.csv")
		return
	}
	defer f.Close()
	w := csv.NewWriter(f)
	_ = w.Write([]string{
		rec.TS.Format(time.RFC3339),
		runID,
		order.Symbol,
		order.Side,
		order.Volume.String(),
		order.FillPrice.String(),
		strconv.FormatInt(order.Ticket, 10),
		order.Status,
		order.Message,
	})
	w.Flush()
}

// LogLLMCall traces one reasoning-provider exchange. Prompt content is not
// stored, only a hash and lengths.
func (l *Logger) LogLLMCall(runID, agent, model, system, user, response string) {
	sum := sha256.Sum256([]byte(system + "\n" + user))
	l.append(Record{
		TS:          time.Now().UTC(),
		Kind:        KindLLMCall,
		RunID:       runID,
		Agent:       agent,
		Model:       model,
		PromptHash:  hex.EncodeToString(sum[:8]),
		PromptLen:   len(system) + len(user),
		ResponseLen: len(response),
	}, "decisions.jsonl")
}

// LogRunnerError records an uncaught cycle failure so continuous mode can
// carry on without losing the evidence.
func (l *Logger) LogRunnerError(runID string, err error) {
	l.append(Record{
		TS:    time.Now().UTC(),
		Kind:  KindRunnerError,
		RunID: runID,
		Error: err.Error(),
	}, "decisions.jsonl")
}

// append writes the record to its kind file and mirrors it into the journal.
func (l *Logger) append(rec Record, file string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, name := range []string{file, "journal.jsonl"} {
		if err := appendLine(l.path(name), rec); err != nil {
			l.log.Error().Err(err).Str("file", name).Msg("journal append failed")
		}
	}
}

func appendLine(path string, rec Record) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(rec)
}

// Tail reads up to n most recent journal records, oldest first. Used by the
// read-only dashboard; never writes.
func Tail(journalPath string, n int) ([]Record, error) {
	raw, err := os.ReadFile(journalPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var records []Record
	dec := json.NewDecoder(bytes.NewReader(raw))
	for dec.More() {
		var rec Record
		if err := dec.Decode(&rec); err != nil {
			break
		}
		records = append(records, rec)
	}
	if n > 0 && len(records) > n {
		records = records[len(records)-n:]
	}
	return records, nil
}

// ByRunID filters journal records for one cycle.
func ByRunID(journalPath, runID string) ([]Record, error) {
	all, err := Tail(journalPath, 0)
	if err != nil {
		return nil, err
	}
	var out []Record
	for _, rec := range all {
		if rec.RunID == runID {
			out = append(out, rec)
		}
	}
	return out, nil
}
