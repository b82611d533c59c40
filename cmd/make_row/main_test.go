package main

import "testing"

func TestParseIndex(t *testing.T) {
	tests := []struct {
		args    []string
		want    int
		wantErr bool
	}{
		{nil, 0, false},
		{[]string{"42"}, 42, false},
		{[]string{"abc"}, 0, true},
		{[]string{"-1"}, 0, true},
		{[]string{"1", "2"}, 0, true},
	}
	for _, tt := range tests {
		got, err := parseIndex(tt.args)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseIndex(%v) error = %v, wantErr %v", tt.args, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseIndex(%v) = %d, want %d", tt.args, got, tt.want)
		}
	}
}
