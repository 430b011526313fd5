package errkind

import (
	"fmt"
	"testing"
)

func TestIs(t *testing.T) {
	base := New(FileSizeZero, "input has no data")
	wrapped := fmt.Errorf("split: %w", base)

	if !Is(wrapped, FileSizeZero) {
		t.Errorf("Is(wrapped, FileSizeZero) = false, want true")
	}
	if Is(wrapped, HeaderInvalid) {
		t.Errorf("Is(wrapped, HeaderInvalid) = true, want false")
	}
	if Is(nil, FileSizeZero) {
		t.Errorf("Is(nil, FileSizeZero) = true, want false")
	}
}

func TestErrorString(t *testing.T) {
	e := Wrap(InputReadFailed, fmt.Errorf("short read"), "reading header")
	want := "input read failed: reading header: short read"
	if got := e.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
