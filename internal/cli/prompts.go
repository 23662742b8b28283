package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/AlecAivazis/survey/v2"
)

// Interactive menu choices.
const (
	choiceRunOnce   = "Run one decision cycle"
	choiceLoop      = "Run continuously"
	choiceDemo      = "Demo on simulated data"
	choiceDashboard = "Start the dashboard"
	choiceExit      = "Exit"
)

// promptForMode asks what to do when the binary is started without a
// subcommand.
func promptForMode() (string, error) {
	var choice string
	prompt := &survey.Select{
		Message: "What would you like to do?",
		Options: []string{choiceRunOnce, choiceLoop, choiceDemo, choiceDashboard, choiceExit},
		Default: choiceRunOnce,
	}
	if err := survey.AskOne(prompt, &choice); err != nil {
		return "", err
	}
	return choice, nil
}

// promptForInterval asks for the loop interval.
func promptForInterval(def time.Duration) (time.Duration, error) {
	var raw string
	prompt := &survey.Input{
		Message: "Cycle interval (e.g. 5m, 1h):",
		Default: def.String(),
		Help:    "Go duration syntax. One cycle runs per tick; overdue cycles skip the next tick.",
	}
	err := survey.AskOne(prompt, &raw, survey.WithValidator(func(val interface{}) error {
		str := strings.TrimSpace(val.(string))
		d, err := time.ParseDuration(str)
		if err != nil {
			return fmt.Errorf("invalid duration, use forms like 30s, 5m, 1h")
		}
		if d <= 0 {
			return fmt.Errorf("interval must be positive")
		}
		return nil
	}))
	if err != nil {
		return 0, err
	}
	return time.ParseDuration(strings.TrimSpace(raw))
}

// promptConfirmLive double-checks before placing real orders.
func promptConfirmLive() (bool, error) {
	var confirmed bool
	prompt := &survey.Confirm{
		Message: "Paper trading is OFF. Orders will reach the live bridge. Continue?",
		Default: false,
	}
	if err := survey.AskOne(prompt, &confirmed); err != nil {
		return false, err
	}
	return confirmed, nil
}
