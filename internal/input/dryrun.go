// File: internal/input/dryrun.go
package input

import (
	"context"
	"fmt"
	"strings"
)

// dryRunPrefix marks observations from simulated dispatch so every consumer,
// human or log reader, can tell them from real OS effects.
const dryRunPrefix = "(dry-run) "

// DryRun is an Executor that performs no OS effects and narrates what it
// would have done. It is the default backend: a fresh install drives nothing
// until the operator opts in.
type DryRun struct{}

// NewDryRun returns the simulated executor.
func NewDryRun() *DryRun {
	return &DryRun{}
}

func (d *DryRun) Move(ctx context.Context, x, y int, duration float64) (string, error) {
	return fmt.Sprintf("%smove to %d,%d (%gs)", dryRunPrefix, x, y, duration), nil
}

func (d *DryRun) Click(ctx context.Context, x, y int, button MouseButton, clicks int, interval float64) (string, error) {
	return fmt.Sprintf("%sclick %s %dx at %d,%d", dryRunPrefix, button, clicks, x, y), nil
}

func (d *DryRun) TypeText(ctx context.Context, text string, interval float64) (string, error) {
	return fmt.Sprintf("%stype '%s'", dryRunPrefix, text), nil
}

func (d *DryRun) Hotkey(ctx context.Context, keys []string) (string, error) {
	return fmt.Sprintf("%shotkey %s", dryRunPrefix, strings.Join(keys, "+")), nil
}

func (d *DryRun) Scroll(ctx context.Context, amount int) (string, error) {
	return fmt.Sprintf("%sscroll %d", dryRunPrefix, amount), nil
}

func (d *DryRun) Drag(ctx context.Context, x, y int, duration float64) (string, error) {
	return fmt.Sprintf("%sdrag to %d,%d (%gs)", dryRunPrefix, x, y, duration), nil
}

// Wait does not actually sleep: simulated runs should finish fast.
func (d *DryRun) Wait(ctx context.Context, seconds float64) (string, error) {
	return fmt.Sprintf("%swait %gs", dryRunPrefix, seconds), nil
}
