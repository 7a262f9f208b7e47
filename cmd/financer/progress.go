package main

import (
	"fmt"

	"invoice-financer/internal/usecase/flow"
)

// progress prints each flow step on stderr so stdout carries only results.
func (e *env) progress() flow.Progress {
	n := 0
	return func(step flow.Step, label string) {
		n++
		if step == flow.StepDone {
			fmt.Fprintf(e.stderr, "[%d] %s\n", n, label)
			return
		}
		fmt.Fprintf(e.stderr, "[%d] %-17s %s\n", n, step, label)
	}
}
