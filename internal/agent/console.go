// File: internal/agent/console.go
package agent

import (
	"fmt"
	"io"
	"strings"
	"sync"

	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/deskops/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Console renders the operator-facing narration of a run. It is deliberately
// plain text: the journal carries the structured record.
type Console struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsole writes narration to out.
func NewConsole(out io.Writer) *Console {
	return &Console{out: out}
}

func (c *Console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

// Greeting opens an interactive session.
func (c *Console) Greeting() {
	c.printf("DesktopOps Agent - type instructions. Use /stop to end.\n")
}

// Ack acknowledges a new instruction.
func (c *Console) Ack() {
	c.printf("Got it. Working step-by-step.\n")
}

// Step renders one completed step as a compact table row.
func (c *Console) Step(rec schemas.StepRecord) {
	args := "{}"
	if len(rec.Args) > 0 {
		if data, err := json.Marshal(rec.Args); err == nil {
			args = string(data)
		}
	}
	c.printf("[%3d] %-30s | %-13s | %s | %s\n",
		rec.StepIndex, truncate(rec.Plan, 30), rec.NextAction, truncate(args, 40), rec.Observation)
	if rec.Say != "" {
		c.printf("Agent: %s\n", rec.Say)
	}
}

// Finish announces the run's terminal state.
func (c *Console) Finish(status schemas.RunStatus) {
	if status == schemas.RunDone {
		c.printf("Task complete.\n")
		return
	}
	c.printf("Stopping (max steps or user stop).\n")
}

// LogsAt points the operator at the run artifacts.
func (c *Console) LogsAt(dir string) {
	c.printf("Logs at %s\n", dir)
}

// truncate shortens s to n characters. Counted in runes so multibyte plans
// and args are never cut mid-sequence.
func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
