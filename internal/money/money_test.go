package money

import "testing"

func TestApplyBpsRoundsHalfUp(t *testing.T) {
	cases := []struct {
		name   string
		amount Money
		bps    int64
		want   Money
	}{
		{"five percent of 135 rupees", 13500, 500, 675},
		{"five percent of 126 rupees", 12600, 500, 630},
		{"two and a half percent of 200 rupees", 20000, 250, 500},
		{"ten percent of 140 rupees", 14000, 1000, 1400},
		{"half paisa rounds up", 101, 50, 1},
		{"just below half rounds down", 99, 50, 0},
		{"zero amount", 0, 500, 0},
		{"zero rate", 10000, 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ApplyBps(tc.amount, tc.bps); got != tc.want {
				t.Fatalf("ApplyBps(%d, %d) = %d, want %d", tc.amount, tc.bps, got, tc.want)
			}
		})
	}
}

func TestFromMajor(t *testing.T) {
	cases := []struct {
		in      string
		want    Money
		wantErr bool
	}{
		{"90", 9000, false},
		{"140.50", 14050, false},
		{"0.5", 50, false},
		{".75", 75, false},
		{"-25", -2500, false},
		{"12.345", 0, true},
		{"", 0, true},
		{"abc", 0, true},
		{"1.-5", 0, true},
		{"+1.50", 0, true},
		{"1.+5", 0, true},
	}
	for _, tc := range cases {
		got, err := FromMajor(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("FromMajor(%q) expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("FromMajor(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("FromMajor(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestFormat(t *testing.T) {
	if got := Format(14175); got != "₹141.75" {
		t.Fatalf("Format(14175) = %q", got)
	}
	if got := Format(-500); got != "-₹5.00" {
		t.Fatalf("Format(-500) = %q", got)
	}
	if got := Format(5); got != "₹0.05" {
		t.Fatalf("Format(5) = %q", got)
	}
}
