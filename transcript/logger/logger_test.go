package logger

import "testing"

func TestNew(t *testing.T) {
	t.Parallel()

	for _, mode := range []string{"", "dev", "prod", "off"} {
		l, err := New(mode, "debug")
		if err != nil {
			t.Fatalf("New(%q): %v", mode, err)
		}
		if l == nil {
			t.Fatalf("New(%q) returned nil logger", mode)
		}
	}

	if _, err := New("xml", ""); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
	if _, err := New("dev", "loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}
