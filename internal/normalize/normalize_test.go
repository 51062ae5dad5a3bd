package normalize

import (
	"testing"

	"stormlightlabs.org/rankcore/internal/core"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantAge    string
		wantGender core.Gender
		wantWords  []string
	}{
		{
			name:       "u-age with trailing gender letter",
			input:      "FC Dallas U14B Red",
			wantAge:    "u14",
			wantGender: core.GenderMale,
			wantWords:  []string{"fc", "dallas", "red"},
		},
		{
			name:       "birth year with gender prefix",
			input:      "Atletico Dallas B2014 Blue",
			wantAge:    "u11",
			wantGender: core.GenderMale,
			wantWords:  []string{"atletico", "dallas", "blue"},
		},
		{
			name:       "league marker stripped",
			input:      "Solar SC ECNL-RL 2014G",
			wantAge:    "u11",
			wantGender: core.GenderFemale,
			wantWords:  []string{"solar", "sc"},
		},
		{
			name:       "hyphenated age form",
			input:      "Dallas United U-14",
			wantAge:    "u14",
			wantGender: "",
			wantWords:  []string{"dallas", "united"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.input)
			if err != nil {
				t.Fatalf("Normalize(%q) returned error: %v", tt.input, err)
			}
			if got.Age != tt.wantAge {
				t.Errorf("Age = %q, want %q", got.Age, tt.wantAge)
			}
			if got.Gender != tt.wantGender {
				t.Errorf("Gender = %q, want %q", got.Gender, tt.wantGender)
			}
			if len(got.Words) != len(tt.wantWords) {
				t.Fatalf("Words = %v, want %v", got.Words, tt.wantWords)
			}
			for i, w := range tt.wantWords {
				if got.Words[i] != w {
					t.Errorf("Words[%d] = %q, want %q", i, got.Words[i], w)
				}
			}
		})
	}
}

func TestNormalizeEmptyInput(t *testing.T) {
	_, err := Normalize("   ")
	if err == nil {
		t.Fatal("expected NormalizationError for empty input")
	}
	if _, ok := err.(*core.NormalizationError); !ok {
		t.Fatalf("expected *core.NormalizationError, got %T", err)
	}
}
