package utils

import (
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
)

func TestParseDecimal(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "0", want: "0"},
		{in: " 1234.5600 ", want: "1234.56"},
		{in: "-99.99", want: "-99.99"},
		{in: "0.0001", want: "0.0001"},
		{in: "", wantErr: true},
		{in: "   ", wantErr: true},
		{in: "12,000", wantErr: true},
		{in: "abc", wantErr: true},
	}
	for _, c := range cases {
		got, err := ParseDecimal(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("ParseDecimal(%q): expected error; got %s", c.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseDecimal(%q): %v", c.in, err)
			continue
		}
		if got.String() != c.want {
			t.Errorf("ParseDecimal(%q) = %s; want %s", c.in, got, c.want)
		}
	}
}

func TestIsValidGstin(t *testing.T) {
	valid := []string{"27AAPFU0939F1ZV", " 07aagcr4375j1z5 ", "29AAACB2894G1ZW"}
	for _, g := range valid {
		if !IsValidGstin(g) {
			t.Errorf("IsValidGstin(%q) = false; want true", g)
		}
	}
	invalid := []string{"", "27AAPFU0939F1XV", "27AAPFU0939FZV", "AAPFU0939F1ZV27", "27AAPFU0939F0ZV"}
	for _, g := range invalid {
		if IsValidGstin(g) {
			t.Errorf("IsValidGstin(%q) = true; want false", g)
		}
	}
}

func TestIsValidHsnCode(t *testing.T) {
	for _, hsn := range []string{"8536", "853610", "85361020"} {
		if !IsValidHsnCode(hsn) {
			t.Errorf("IsValidHsnCode(%q) = false; want true", hsn)
		}
	}
	for _, hsn := range []string{"", "85", "85361", "853610203", "85AB"} {
		if IsValidHsnCode(hsn) {
			t.Errorf("IsValidHsnCode(%q) = true; want false", hsn)
		}
	}
}

func TestProcessValidationErrors(t *testing.T) {
	type form struct {
		Name   string `validate:"required"`
		Email  string `validate:"required,email"`
		Amount int    `validate:"gt=0"`
	}

	err := validator.New().Struct(form{Email: "not-an-email"})
	if err == nil {
		t.Fatal("expected validation to fail")
	}

	fields := ProcessValidationErrors(err)
	if fields["Name"] != "required" {
		t.Errorf("Name: got %q; want required", fields["Name"])
	}
	if fields["Email"] != "email" {
		t.Errorf("Email: got %q; want email", fields["Email"])
	}
	if fields["Amount"] != "gt" {
		t.Errorf("Amount: got %q; want gt", fields["Amount"])
	}
}

func TestUniqueSlice(t *testing.T) {
	got := UniqueSlice([]int{3, 1, 3, 2, 1})
	want := []int{3, 1, 2}
	if len(got) != len(want) {
		t.Fatalf("UniqueSlice = %v; want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("UniqueSlice = %v; want %v", got, want)
		}
	}
}

func TestConvertToDate(t *testing.T) {
	// 2024-03-10 20:00 UTC is already 2024-03-11 in Kolkata
	in := time.Date(2024, 3, 10, 20, 0, 0, 0, time.UTC)

	got, err := ConvertToDate(in, "")
	if err != nil {
		t.Fatalf("ConvertToDate: %v", err)
	}
	if got.Year() != 2024 || got.Month() != time.March || got.Day() != 11 {
		t.Errorf("ConvertToDate(%v) = %v; want 2024-03-11", in, got)
	}
	if got.Hour() != 0 || got.Minute() != 0 || got.Second() != 0 {
		t.Errorf("expected midnight; got %v", got)
	}

	got, err = ConvertToDate(in, "UTC")
	if err != nil {
		t.Fatalf("ConvertToDate(UTC): %v", err)
	}
	if got.Day() != 10 {
		t.Errorf("ConvertToDate(%v, UTC) = %v; want 2024-03-10", in, got)
	}

	if _, err := ConvertToDate(in, "Mars/Olympus"); err == nil {
		t.Error("expected an error for an unknown timezone")
	}
}

func TestDereferencePtr(t *testing.T) {
	v := 7
	if got := DereferencePtr(&v); got != 7 {
		t.Errorf("DereferencePtr(&7) = %d; want 7", got)
	}
	if got := DereferencePtr[int](nil); got != 0 {
		t.Errorf("DereferencePtr(nil) = %d; want 0", got)
	}
	if got := DereferencePtr(nil, 42); got != 42 {
		t.Errorf("DereferencePtr(nil, 42) = %d; want 42", got)
	}
}
