package validation

import (
	"testing"
)

func TestValidateRuleID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		// Valid IDs
		{"functions prefix", "FUNC003", false},
		{"long prefix", "STRUCT001", false},
		{"misc prefix", "MISC010", false},
		{"long number", "STYLE1234", false},

		// Invalid IDs
		{"empty", "", true},
		{"lowercase", "func003", true},
		{"no number", "FUNC", true},
		{"short number", "FUNC03", true},
		{"path traversal", "../FUNC003", true},
		{"embedded slash", "FUNC/003", true},
		{"space", "FUNC 003", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRuleID(tt.id)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateRuleID(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
			}
		})
	}
}

func TestValidateCategory(t *testing.T) {
	tests := []struct {
		name     string
		category string
		wantErr  bool
	}{
		{"simple", "functions", false},
		{"underscored", "control_flow", false},
		{"empty", "", true},
		{"uppercase", "Functions", true},
		{"path traversal", "../functions", true},
		{"leading underscore", "_functions", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCategory(tt.category)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateCategory(%q) error = %v, wantErr %v", tt.category, err, tt.wantErr)
			}
		})
	}
}

func TestSanitizeRuleID(t *testing.T) {
	got, err := SanitizeRuleID("  func003 ")
	if err != nil {
		t.Fatalf("SanitizeRuleID failed: %v", err)
	}
	if got != "FUNC003" {
		t.Errorf("SanitizeRuleID = %q, want FUNC003", got)
	}

	if _, err := SanitizeRuleID("../etc/passwd"); err == nil {
		t.Error("SanitizeRuleID accepted a traversal attempt")
	}
}
