package directory

import (
	"fmt"
	"strings"
)

// Outcome is the result of a single write against the destination.
type Outcome struct {
	Succeeded  bool
	Diagnostic string
}

// Success returns a successful outcome.
func Success() Outcome {
	return Outcome{Succeeded: true}
}

// Failure returns a failed outcome with a formatted diagnostic.
func Failure(format string, args ...any) Outcome {
	return Outcome{Diagnostic: fmt.Sprintf(format, args...)}
}

// FailureFromError returns a failed outcome carrying err's message.
func FailureFromError(err error) Outcome {
	return Outcome{Diagnostic: err.Error()}
}

// Fold is the AND of all outcomes. An empty list is a success.
func Fold(outcomes ...Outcome) bool {
	ok := true
	for _, o := range outcomes {
		ok = ok && o.Succeeded
	}
	return ok
}

// Combine folds outcomes and joins the diagnostics of the failed ones.
func Combine(outcomes ...Outcome) Outcome {
	var diags []string
	for _, o := range outcomes {
		if !o.Succeeded && o.Diagnostic != "" {
			diags = append(diags, o.Diagnostic)
		}
	}
	return Outcome{
		Succeeded:  Fold(outcomes...),
		Diagnostic: strings.Join(diags, "; "),
	}
}
