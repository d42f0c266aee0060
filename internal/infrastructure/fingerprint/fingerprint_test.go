package fingerprint

import "testing"

func TestHashProperties(t *testing.T) {
	a := Hash("let x = 1")
	b := Hash("let x = 1")
	c := Hash("let x = 2")

	if a != b {
		t.Errorf("same content must hash identically: %s vs %s", a, b)
	}
	if a == c {
		t.Error("different content should not collide in this test")
	}
	if len(a) != 16 {
		t.Errorf("expected fixed-width 16-char hex digest, got %d chars", len(a))
	}
}

func TestHashEmpty(t *testing.T) {
	if got := Hash(""); len(got) != 16 {
		t.Errorf("empty content must still produce a full digest, got %q", got)
	}
}

func TestEqual(t *testing.T) {
	fp := Hash("struct Invoice {}")
	if !Equal("struct Invoice {}", fp) {
		t.Error("Equal must match content against its own fingerprint")
	}
	if Equal("struct Receipt {}", fp) {
		t.Error("Equal must reject different content")
	}
}
