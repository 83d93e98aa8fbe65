package checksum

import "testing"

func TestSum_Deterministic(t *testing.T) {
	a := Sum([]byte("# Post A\nsome body\n"))
	b := Sum([]byte("# Post A\nsome body\n"))
	if a != b {
		t.Errorf("same input produced different digests: %q vs %q", a, b)
	}
}

func TestSum_DistinctInputs(t *testing.T) {
	a := Sum([]byte("# Post A\n"))
	b := Sum([]byte("# Post B\n"))
	if a == b {
		t.Error("different inputs produced the same digest")
	}
}
