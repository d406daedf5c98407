package worker

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"
)

func mixedTasks() []Task {
	return append(seedTasks("islands", 4), seedTasks("ridges", 2)...)
}

func TestProgress_LineShowsCurrentRecipe(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(mixedTasks(), true)
	p.out = &buf
	p.start = time.Now().Add(-10 * time.Second)

	p.Observe(Result{Task: Task{Recipe: "islands", Seed: 0}})
	p.Observe(Result{Task: Task{Recipe: "islands", Seed: 1}, Err: errors.New("boom")})

	out := buf.String()
	for _, want := range []string{"2/6 maps", "islands 2/4 (1 failed)", "maps/sec", "ETA"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in progress output %q", want, out)
		}
	}
}

func TestProgress_Done(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(seedTasks("ridges", 2), true)
	p.out = &buf

	p.Observe(Result{Task: Task{Recipe: "ridges", Seed: 0}})
	p.Observe(Result{Task: Task{Recipe: "ridges", Seed: 1}})
	buf.Reset()
	p.Done()

	out := buf.String()
	if !strings.Contains(out, "done in") {
		t.Errorf("Expected completion marker in %q", out)
	}
	if !strings.HasSuffix(out, "\n") {
		t.Error("Expected trailing newline")
	}
}

func TestProgress_SummaryPerRecipe(t *testing.T) {
	p := NewProgress(mixedTasks(), false)
	for _, task := range mixedTasks() {
		var err error
		if task.Seed == 1 {
			err = errors.New("boom")
		}
		p.Observe(Result{Task: task, Err: err})
	}

	summary := p.Summary()
	for _, want := range []string{"Generated 4/6 maps", "islands 3/4", "ridges 1/2", "2 failed: islands_s1, ridges_s1"} {
		if !strings.Contains(summary, want) {
			t.Errorf("Expected %q in summary %q", want, summary)
		}
	}

	got := p.Failures()
	if len(got) != 2 || got[0] != "islands_s1" || got[1] != "ridges_s1" {
		t.Errorf("Unexpected failures %v", got)
	}
}

func TestProgress_SummaryCapsFailures(t *testing.T) {
	tasks := seedTasks("static", 8)
	p := NewProgress(tasks, false)
	for _, task := range tasks {
		p.Observe(Result{Task: task, Err: errors.New("boom")})
	}

	summary := p.Summary()
	if !strings.Contains(summary, "8 failed") || !strings.Contains(summary, "and 3 more") {
		t.Errorf("Expected capped failure list, got %q", summary)
	}
	if strings.Contains(summary, "static_s7") {
		t.Errorf("Expected static_s7 to be left out of %q", summary)
	}
}

func TestProgress_Disabled(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(seedTasks("static", 2), false)
	p.out = &buf

	p.Observe(Result{Task: Task{Recipe: "static", Seed: 0}})
	p.Done()

	if buf.Len() != 0 {
		t.Errorf("Disabled progress printed %q", buf.String())
	}
}

func TestProgress_UnplannedRecipe(t *testing.T) {
	p := NewProgress(nil, false)
	p.Observe(Result{Task: Task{Recipe: "coasts", Seed: 3}})

	if summary := p.Summary(); !strings.Contains(summary, "coasts 1/1") {
		t.Errorf("Expected coasts tally in %q", summary)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		expected string
		duration time.Duration
	}{
		{duration: 30 * time.Second, expected: "30s"},
		{duration: 1400 * time.Millisecond, expected: "1s"},
		{duration: 90 * time.Second, expected: "1m30s"},
		{duration: 125 * time.Second, expected: "2m05s"},
		{duration: 65 * time.Minute, expected: "1h05m"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := formatDuration(tt.duration); got != tt.expected {
				t.Errorf("formatDuration(%v) = %q, want %q", tt.duration, got, tt.expected)
			}
		})
	}
}
