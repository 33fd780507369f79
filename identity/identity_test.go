package identity

import "testing"

func TestStatusRoundTrip(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusActive} {
		got, err := ParseStatus(s.String())
		if err != nil {
			t.Fatalf("ParseStatus(%q) failed: %v", s.String(), err)
		}
		if got != s {
			t.Fatalf("expected %v, got %v", s, got)
		}
	}
	if _, err := ParseStatus("disabled"); err == nil {
		t.Fatal("expected unknown status to fail")
	}
}

func TestPurposeValid(t *testing.T) {
	if !PurposeActivation.Valid() || !PurposeReset.Valid() {
		t.Fatal("expected known purposes to be valid")
	}
	if Purpose(0).Valid() || Purpose(9).Valid() {
		t.Fatal("expected unknown purposes to be invalid")
	}
	if PurposeReset.String() != "reset" {
		t.Fatalf("unexpected purpose name %q", PurposeReset.String())
	}
}
