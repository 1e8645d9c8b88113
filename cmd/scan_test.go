package cmd

import "testing"

func TestParseCities(t *testing.T) {
	t.Parallel()

	requests, err := parseCities([]string{"Ames,IA", " Boone , IA "})
	if err != nil {
		t.Fatalf("parseCities() error = %v", err)
	}
	if len(requests) != 2 {
		t.Fatalf("parseCities() returned %d requests, want 2", len(requests))
	}
	if requests[0].City != "Ames" || requests[0].State != "IA" {
		t.Errorf("requests[0] = %+v", requests[0])
	}
	if requests[1].City != "Boone" || requests[1].State != "IA" {
		t.Errorf("whitespace not trimmed: %+v", requests[1])
	}
}

func TestParseCitiesRejectsBadInput(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		raw  []string
	}{
		{"empty", nil},
		{"missing state", []string{"Ames"}},
		{"blank city", []string{",IA"}},
		{"blank state", []string{"Ames,"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := parseCities(tc.raw); err == nil {
				t.Fatalf("parseCities(%v) = nil error, want error", tc.raw)
			}
		})
	}
}
