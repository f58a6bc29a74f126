package google

import (
	"testing"
)

func TestNormalizeRange(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "Transactions!A:E", want: "Transactions!A:E"},
		{in: "Transactions", want: "Transactions!A:Z"},
		{in: " My Sheet !B2:D", want: "'My Sheet'!B2:D"},
		{in: "'Quoted Name'!A:C", want: "'Quoted Name'!A:C"},
		{in: "July's", want: "'July''s'!A:Z"},
		{in: "", wantErr: true},
		{in: "!A:B", wantErr: true},
		{in: "Sheet1!", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := normalizeRange(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("normalizeRange(%q) = %q, want error", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("normalizeRange(%q): %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("normalizeRange(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
