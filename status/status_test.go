package status

import (
	"errors"
	"testing"
)

func TestSuccessClassification(t *testing.T) {
	for _, c := range []Code{OK, InfoHealed, InfoSparse} {
		if !c.Success() {
			t.Fatalf("%s.Success() = false, want true", c)
		}
	}
	if HWIO.Success() {
		t.Fatal("HWIO.Success() = true, want false")
	}
}

func TestCriticalClassification(t *testing.T) {
	for _, c := range []Code{HWIO, DataRot, MediaToxic, AtomicsTimeout} {
		if !c.Critical() {
			t.Fatalf("%s.Critical() = false, want true", c)
		}
	}
	for _, c := range []Code{OK, NotFound, AccessDenied} {
		if c.Critical() {
			t.Fatalf("%s.Critical() = true, want false", c)
		}
	}
}

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("pread failed")
	err := Wrap(HWIO, cause)
	if !errors.Is(err, cause) {
		t.Fatal("errors.Is did not find the wrapped cause")
	}
	if From(err) != HWIO {
		t.Fatalf("From(err) = %s, want HW_IO", From(err))
	}
}

func TestFromNilAndForeign(t *testing.T) {
	if From(nil) != OK {
		t.Fatal("From(nil) != OK")
	}
	if From(errors.New("boom")) != InvalidArgument {
		t.Fatal("From(foreign error) != InvalidArgument")
	}
}

func TestIs(t *testing.T) {
	err := New(Tombstone)
	if !Is(err, Tombstone) {
		t.Fatal("Is(err, Tombstone) = false")
	}
	if Is(err, NotFound) {
		t.Fatal("Is(err, NotFound) = true, want false")
	}
}
