package agent

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
		wantErr bool
	}{
		{
			name:    "bare object",
			content: `{"answer": "yes"}`,
			want:    `{"answer": "yes"}`,
		},
		{
			name:    "object with surrounding prose",
			content: "Here is the result:\n{\"answer\": \"yes\"}\nHope that helps!",
			want:    `{"answer": "yes"}`,
		},
		{
			name:    "json code fence",
			content: "```json\n{\"answer\": \"yes\"}\n```",
			want:    `{"answer": "yes"}`,
		},
		{
			name:    "plain code fence",
			content: "```\n{\"answer\": \"yes\"}\n```",
			want:    `{"answer": "yes"}`,
		},
		{
			name:    "braces inside strings",
			content: `result: {"note": "use {curly} braces", "n": 1} trailing`,
			want:    `{"note": "use {curly} braces", "n": 1}`,
		},
		{
			name:    "escaped quotes inside strings",
			content: `{"note": "she said \"hi\" {ok}"}`,
			want:    `{"note": "she said \"hi\" {ok}"}`,
		},
		{
			name:    "no json at all",
			content: "I could not produce a structured answer.",
			wantErr: true,
		},
		{
			name:    "empty content",
			content: "   ",
			wantErr: true,
		},
		{
			name:    "unbalanced braces",
			content: `{"answer": "yes"`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.content)
			if tt.wantErr {
				if !errors.Is(err, ErrNoJSONFound) {
					t.Fatalf("expected ErrNoJSONFound, got %v (output %s)", err, got)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			var gotVal, wantVal any
			if err := json.Unmarshal(got, &gotVal); err != nil {
				t.Fatalf("extracted invalid JSON: %s", got)
			}
			if err := json.Unmarshal([]byte(tt.want), &wantVal); err != nil {
				t.Fatal(err)
			}
			gotNorm, _ := json.Marshal(gotVal)
			wantNorm, _ := json.Marshal(wantVal)
			if string(gotNorm) != string(wantNorm) {
				t.Errorf("got %s, want %s", gotNorm, wantNorm)
			}
		})
	}
}
