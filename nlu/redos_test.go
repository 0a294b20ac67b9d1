package nlu

import "testing"

func TestCheckPattern(t *testing.T) {
	tests := []struct {
		expr   string
		unsafe bool
	}{
		{`\b\d{3}\b`, false},
		{`(привет|здравствуй)`, false},
		{`^(a|b)c+$`, false},
		{`(a+)+`, true},
		{`(\d*){2,}`, true},
		{`([^"]*)*`, true},
		{`((a+)b)+`, true},
		{`\(a+\)+`, false},    // escaped parens are literals
		{`[(+*)]+`, false},    // metacharacters inside a class are literals
		{`(a{2,3})`, false},   // quantified body, group itself unquantified
		{`(a?)+`, false},      // ? alone does not blow up
	}

	for _, tt := range tests {
		err := CheckPattern(tt.expr)
		if (err != nil) != tt.unsafe {
			t.Errorf("CheckPattern(%q) = %v; want unsafe=%v", tt.expr, err, tt.unsafe)
		}
	}
}
