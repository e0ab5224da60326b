package capture

import (
	"testing"
)

func TestParseQA(t *testing.T) {
	tests := []struct {
		name         string
		raw          string
		wantQuestion string
		wantAnswer   string
		wantErr      bool
	}{
		{
			name:         "well formed response",
			raw:          "###QUESTION###What is 2+2?###ANSWER###4",
			wantQuestion: "What is 2+2?",
			wantAnswer:   "4",
		},
		{
			name:         "leading chatter before delimiters",
			raw:          "Sure, here you go: ###QUESTION###What is Go?###ANSWER###A programming language.",
			wantQuestion: "What is Go?",
			wantAnswer:   "A programming language.",
		},
		{
			name:         "segments are trimmed",
			raw:          "###QUESTION###  What is X?\n###ANSWER###\n X is Y. ",
			wantQuestion: "What is X?",
			wantAnswer:   "X is Y.",
		},
		{
			name:         "multiline answer runs to end of text",
			raw:          "###QUESTION###List them.###ANSWER###1. one\n2. two\n3. three",
			wantQuestion: "List them.",
			wantAnswer:   "1. one\n2. two\n3. three",
		},
		{
			name:    "no delimiters at all",
			raw:     "I could not produce a pair for this text.",
			wantErr: true,
		},
		{
			name:    "missing answer delimiter",
			raw:     "###QUESTION###What is X?",
			wantErr: true,
		},
		{
			name:    "missing question delimiter",
			raw:     "What is X?###ANSWER###Y",
			wantErr: true,
		},
		{
			name:    "answer delimiter before question delimiter",
			raw:     "###ANSWER###4###QUESTION###What is 2+2?",
			wantErr: true,
		},
		{
			name:         "empty segments are allowed",
			raw:          "###QUESTION######ANSWER###",
			wantQuestion: "",
			wantAnswer:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			question, answer, err := ParseQA(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got question=%q answer=%q", question, answer)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if question != tt.wantQuestion {
				t.Errorf("question = %q, want %q", question, tt.wantQuestion)
			}
			if answer != tt.wantAnswer {
				t.Errorf("answer = %q, want %q", answer, tt.wantAnswer)
			}
		})
	}
}
