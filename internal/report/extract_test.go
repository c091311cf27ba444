package report

import "testing"

func TestExtractField(t *testing.T) {
	tests := []struct {
		name    string
		message string
		jmes    string
		want    string
		wantOK  bool
	}{
		{
			name:    "JSON field extraction",
			message: `{"user":{"id":"123"}}`,
			jmes:    "user.id",
			want:    "123",
			wantOK:  true,
		},
		{
			name:    "Non-JSON wraps as message",
			message: "WARN: something",
			jmes:    "message",
			want:    "WARN: something",
			wantOK:  true,
		},
		{
			name:    "Array result takes first element",
			message: `{"ids":["a","b"]}`,
			jmes:    "ids",
			want:    "a",
			wantOK:  true,
		},
		{
			name:    "Empty result returns not found",
			message: `{"user":{}}`,
			jmes:    "user.id",
			wantOK:  false,
		},
		{
			name:    "Invalid JMESPath is tolerated",
			message: `{"a":1}`,
			jmes:    "user.[",
			wantOK:  false,
		},
		{
			name:    "Non-string value marshaled to JSON",
			message: `{"n":42}`,
			jmes:    "n",
			want:    "42",
			wantOK:  true,
		},
		{
			name:    "Empty message yields not found",
			message: "",
			jmes:    "message",
			wantOK:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractField(tt.message, tt.jmes)
			if ok != tt.wantOK {
				t.Fatalf("ok mismatch: got %v want %v (value=%q)", ok, tt.wantOK, got)
			}
			if got != tt.want {
				t.Fatalf("value mismatch: got %q want %q", got, tt.want)
			}
		})
	}
}
