package worker

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	barWidth = 24
	// maxListedFailures caps the task keys named in a summary.
	maxListedFailures = 5
)

type recipeTally struct {
	total, done, failed int
}

// Progress observes pool results, draws a progress bar for the recipe being
// rendered and keeps per-recipe tallies plus the keys of failed tasks.
type Progress struct {
	mu       sync.Mutex
	out      io.Writer
	start    time.Time
	enabled  bool
	total    int
	done     int
	recipes  []string
	tallies  map[string]*recipeTally
	failures []string
	current  string
}

// NewProgress prepares tallies for tasks. When enabled, every observed result
// redraws the bar on stderr.
func NewProgress(tasks []Task, enabled bool) *Progress {
	p := &Progress{
		out:     os.Stderr,
		start:   time.Now(),
		enabled: enabled,
		total:   len(tasks),
		tallies: make(map[string]*recipeTally),
	}
	for _, t := range tasks {
		tl, ok := p.tallies[t.Recipe]
		if !ok {
			tl = &recipeTally{}
			p.tallies[t.Recipe] = tl
			p.recipes = append(p.recipes, t.Recipe)
		}
		tl.total++
	}
	return p
}

// Observe implements Observer.
func (p *Progress) Observe(r Result) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done++
	p.current = r.Task.Recipe
	tl, ok := p.tallies[r.Task.Recipe]
	if !ok {
		tl = &recipeTally{}
		p.tallies[r.Task.Recipe] = tl
		p.recipes = append(p.recipes, r.Task.Recipe)
		p.total++
		tl.total++
	}
	tl.done++
	if r.Err != nil {
		tl.failed++
		p.failures = append(p.failures, r.Task.Key())
	}

	if p.enabled {
		fmt.Fprint(p.out, "\r"+p.lineLocked())
	}
}

// Failures returns the keys of failed tasks, sorted.
func (p *Progress) Failures() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	keys := append([]string(nil), p.failures...)
	sort.Strings(keys)
	return keys
}

// Done ends the progress line.
func (p *Progress) Done() {
	if !p.enabled {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, "\r"+p.lineLocked())
}

// Summary reports totals, per-recipe counts and the first failed tasks.
func (p *Progress) Summary() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	elapsed := time.Since(p.start)
	var b strings.Builder
	fmt.Fprintf(&b, "Generated %d/%d maps in %s (%.1f maps/sec)",
		p.done-len(p.failures), p.total, formatDuration(elapsed), p.rateLocked(elapsed))

	parts := make([]string, 0, len(p.recipes))
	for _, name := range p.recipes {
		tl := p.tallies[name]
		parts = append(parts, fmt.Sprintf("%s %d/%d", name, tl.done-tl.failed, tl.total))
	}
	if len(parts) > 0 {
		b.WriteString("; " + strings.Join(parts, ", "))
	}

	if n := len(p.failures); n > 0 {
		keys := append([]string(nil), p.failures...)
		sort.Strings(keys)
		if n > maxListedFailures {
			keys = append(keys[:maxListedFailures], fmt.Sprintf("and %d more", n-maxListedFailures))
		}
		fmt.Fprintf(&b, "; %d failed: %s", n, strings.Join(keys, ", "))
	}
	return b.String()
}

// lineLocked renders the bar, e.g.
// "[==========>           ] 12/32 maps | islands 4/8 (1 failed) | 3.2 maps/sec | ETA 6s".
func (p *Progress) lineLocked() string {
	elapsed := time.Since(p.start)

	filled := 0
	if p.total > 0 {
		filled = p.done * barWidth / p.total
	}
	bar := strings.Repeat("=", filled)
	if filled < barWidth {
		bar += ">" + strings.Repeat(" ", barWidth-filled-1)
	}

	line := fmt.Sprintf("[%s] %d/%d maps", bar, p.done, p.total)
	if tl, ok := p.tallies[p.current]; ok {
		line += fmt.Sprintf(" | %s %d/%d", p.current, tl.done, tl.total)
		if tl.failed > 0 {
			line += fmt.Sprintf(" (%d failed)", tl.failed)
		}
	}

	rate := p.rateLocked(elapsed)
	line += fmt.Sprintf(" | %.1f maps/sec", rate)
	switch {
	case p.done >= p.total:
		line += " | done in " + formatDuration(elapsed)
	case rate > 0:
		eta := time.Duration(float64(p.total-p.done) / rate * float64(time.Second))
		line += " | ETA " + formatDuration(eta)
	}

	// Trailing spaces clear what a longer previous line left behind.
	return line + "        "
}

func (p *Progress) rateLocked(elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(p.done) / elapsed.Seconds()
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d/time.Second))
	case d < time.Hour:
		return fmt.Sprintf("%dm%02ds", int(d/time.Minute), int(d%time.Minute/time.Second))
	default:
		return fmt.Sprintf("%dh%02dm", int(d/time.Hour), int(d%time.Hour/time.Minute))
	}
}
