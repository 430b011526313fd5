package csvreader

import (
	"strconv"
	"strings"
	"testing"
)

func intParser(cell string) (interface{}, error) {
	return strconv.Atoi(cell)
}

func stringParser(cell string) (interface{}, error) {
	return cell, nil
}

func TestReadExtractsRequestedColumns(t *testing.T) {
	data := "A,B,C\n1,x,10\n2,y,20\n"
	r := New([]Column{
		{Name: "C", Parser: intParser},
		{Name: "B", Parser: stringParser},
	})
	if err := r.Read(strings.NewReader(data)); err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if r.Rows() != 2 {
		t.Fatalf("Rows() = %d, want 2", r.Rows())
	}
	c := r.Column("C")
	if len(c) != 2 || c[0] != 10 || c[1] != 20 {
		t.Errorf("Column(C) = %v, want [10 20]", c)
	}
	b := r.Column("B")
	if len(b) != 2 || b[0] != "x" || b[1] != "y" {
		t.Errorf("Column(B) = %v, want [x y]", b)
	}
}

func TestReadSkipsMismatchedRows(t *testing.T) {
	data := "A,B\n1,2\n3\n4,5\n"
	r := New([]Column{{Name: "A", Parser: intParser}})
	if err := r.Read(strings.NewReader(data)); err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if r.Rows() != 2 {
		t.Errorf("Rows() = %d, want 2", r.Rows())
	}
	if r.Skipped() != 1 {
		t.Errorf("Skipped() = %d, want 1", r.Skipped())
	}
}

func TestReadMissingColumnErrors(t *testing.T) {
	data := "A,B\n1,2\n"
	r := New([]Column{{Name: "Z", Parser: intParser}})
	if err := r.Read(strings.NewReader(data)); err == nil {
		t.Fatal("Read() error = nil, want error for missing column")
	}
}

func TestReadHandlesMissingTrailingNewline(t *testing.T) {
	data := "A,B\n1,2\n3,4"
	r := New([]Column{{Name: "A", Parser: intParser}})
	if err := r.Read(strings.NewReader(data)); err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if r.Rows() != 2 {
		t.Fatalf("Rows() = %d, want 2", r.Rows())
	}
	a := r.Column("A")
	if a[1] != 3 {
		t.Errorf("Column(A)[1] = %v, want 3", a[1])
	}
}
