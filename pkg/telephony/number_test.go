package telephony

import "testing"

func TestValidNumber(t *testing.T) {
	tests := []struct {
		number string
		want   bool
	}{
		{"+14155552671", true},
		{"+33612345678", true},
		{"+861012345678", true},
		{"+15", true},
		{"", false},
		{"14155552671", false},      // missing plus
		{"+014155552671", false},    // leading zero
		{"+1415555267a", false},     // non-digit
		{"+1 415 555 2671", false},  // spaces
		{"+1234567890123456", false}, // 16 digits
	}

	for _, tc := range tests {
		if got := ValidNumber(tc.number); got != tc.want {
			t.Errorf("ValidNumber(%q) = %v; want %v", tc.number, got, tc.want)
		}
	}
}
