package gate

import "testing"

func TestShouldPrompt(t *testing.T) {
	cases := []struct {
		name            string
		total           int
		authenticated   bool
		alreadyShown    bool
		collectingEmail bool
		want            bool
	}{
		{"below threshold", 5, false, false, false, false},
		{"at threshold", 6, false, false, false, true},
		{"above threshold", 42, false, false, false, true},
		{"authenticated user", 10, true, false, false, false},
		{"already shown this session", 10, false, true, false, false},
		{"collecting email", 10, false, false, true, false},
		{"zero messages", 0, false, false, false, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ShouldPrompt(tc.total, tc.authenticated, tc.alreadyShown, tc.collectingEmail)
			if got != tc.want {
				t.Fatalf("ShouldPrompt(%d, %v, %v, %v) = %v, want %v",
					tc.total, tc.authenticated, tc.alreadyShown, tc.collectingEmail, got, tc.want)
			}
		})
	}
}
