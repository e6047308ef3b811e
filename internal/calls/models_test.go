package calls

import "testing"

func TestStatusValuesAreNonEmpty(t *testing.T) {
	for _, s := range Statuses() {
		if s == "" {
			t.Fatalf("expected non-empty status")
		}
	}
}

func TestStatus_Terminal(t *testing.T) {
	terminal := map[Status]bool{
		StatusCompleted: true,
		StatusFailed:    true,
		StatusBusy:      true,
		StatusNoAnswer:  true,
	}
	for _, s := range Statuses() {
		if got := s.IsTerminal(); got != terminal[s] {
			t.Fatalf("IsTerminal(%q) = %v, want %v", s, got, terminal[s])
		}
	}
}

func TestParseStatus_FallsBackToUnknown(t *testing.T) {
	if got := ParseStatus("in-progress"); got != StatusInProgress {
		t.Fatalf("expected in-progress, got %q", got)
	}
	if got := ParseStatus("canceled"); got != StatusUnknown {
		t.Fatalf("expected unknown, got %q", got)
	}
	if got := ParseStatus(""); got != StatusUnknown {
		t.Fatalf("expected unknown, got %q", got)
	}
}
