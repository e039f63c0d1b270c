package report

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Comparison is the phase-by-phase difference between two runs.
type Comparison struct {
	A, B   string // run ids
	Phases []PhaseComparison
}

// PhaseComparison describes one phase in both runs.
type PhaseComparison struct {
	Name       string
	StatusA    string
	StatusB    string
	ExitA      int
	ExitB      int
	StdoutDiff string // empty when identical
	StderrDiff string
}

// SameOutcome reports whether status and exit code match.
func (p PhaseComparison) SameOutcome() bool {
	return p.StatusA == p.StatusB && p.ExitA == p.ExitB
}

// SameOutcome reports whether both runs had the same phase-by-phase outcome.
// Output differences alone do not count.
func (c *Comparison) SameOutcome() bool {
	for _, p := range c.Phases {
		if !p.SameOutcome() {
			return false
		}
	}
	return true
}

// Compare compares run a against run b. Phases missing from one side are
// reported with an empty status.
func Compare(a, b *RunResult) *Comparison {
	c := &Comparison{A: a.ID, B: b.ID}

	names := make([]string, 0, len(a.Phases))
	seen := make(map[string]bool)
	for _, runs := range [][]PhaseRecord{a.Phases, b.Phases} {
		for _, p := range runs {
			if !seen[p.Name] {
				seen[p.Name] = true
				names = append(names, p.Name)
			}
		}
	}

	for _, name := range names {
		pa, _ := a.Phase(name)
		pb, _ := b.Phase(name)
		if pa == nil {
			pa = &PhaseRecord{}
		}
		if pb == nil {
			pb = &PhaseRecord{}
		}
		c.Phases = append(c.Phases, PhaseComparison{
			Name:       name,
			StatusA:    pa.Status,
			StatusB:    pb.Status,
			ExitA:      pa.ExitCode,
			ExitB:      pb.ExitCode,
			StdoutDiff: lineDiff(pa.Stdout, pb.Stdout),
			StderrDiff: lineDiff(pa.Stderr, pb.Stderr),
		})
	}
	return c
}

func (c *Comparison) String() string {
	var b strings.Builder

	if c.SameOutcome() {
		fmt.Fprintln(&b, "Same outcome")
	} else {
		fmt.Fprintln(&b, "Different outcome")
	}
	fmt.Fprintf(&b, "  a: %s\n  b: %s\n\n", c.A, c.B)

	for _, p := range c.Phases {
		if p.SameOutcome() {
			fmt.Fprintf(&b, "  %-6s %s (exit %d)\n", p.Name, orNone(p.StatusA), p.ExitA)
		} else {
			fmt.Fprintf(&b, "  %-6s %s (exit %d) -> %s (exit %d)\n", p.Name, orNone(p.StatusA), p.ExitA, orNone(p.StatusB), p.ExitB)
		}
	}

	for _, p := range c.Phases {
		if p.StdoutDiff != "" {
			fmt.Fprintf(&b, "\n%s stdout:\n%s", p.Name, p.StdoutDiff)
		}
		if p.StderrDiff != "" {
			fmt.Fprintf(&b, "\n%s stderr:\n%s", p.Name, p.StderrDiff)
		}
	}
	return b.String()
}

func orNone(status string) string {
	if status == "" {
		return "absent"
	}
	return status
}

// lineDiff renders a line-oriented diff of a and b, each line prefixed with
// "-", "+" or " ". It returns "" when a and b are equal.
func lineDiff(a, b string) string {
	if a == b {
		return ""
	}

	dmp := diffmatchpatch.New()
	ca, cb, lines := dmp.DiffLinesToChars(a, b)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(ca, cb, false), lines)

	var out strings.Builder
	for _, d := range diffs {
		prefix := " "
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			out.WriteString(prefix + line)
			if !strings.HasSuffix(line, "\n") {
				out.WriteString("\n")
			}
		}
	}
	return out.String()
}
