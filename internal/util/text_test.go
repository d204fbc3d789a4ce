package util

import "testing"

func TestFold(t *testing.T) {
	if got := Fold("Categoría ELECTRÓNICA"); got != "categoria electronica" {
		t.Fatalf("got %q", got)
	}
}

func TestTruncateCountsRunes(t *testing.T) {
	if got := Truncate("cafetería", 8); got != "cafeterí" {
		t.Fatalf("got %q", got)
	}
	if got := Truncate("luz", 200); got != "luz" {
		t.Fatalf("got %q", got)
	}
}

func TestSplitLines(t *testing.T) {
	lines := SplitLines("uno\r\n\n  dos  \n")
	if len(lines) != 2 || lines[1] != "dos" {
		t.Fatalf("lines=%v", lines)
	}
}
