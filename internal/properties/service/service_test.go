package service

import "testing"

func TestIsAbsentee(t *testing.T) {
	cases := []struct {
		name          string
		addressLine   string
		city          string
		mailing       string
		ownerOccupied bool
		want          bool
	}{
		{
			name:        "mailing matches situs and city",
			addressLine: "123 Main St",
			city:        "Phoenix",
			mailing:     "123 Main St, Phoenix, AZ 85032",
			want:        false,
		},
		{
			name:        "suffix spelled out still matches",
			addressLine: "123 Main Street",
			city:        "Phoenix",
			mailing:     "123 MAIN ST PHOENIX AZ 85032",
			want:        false,
		},
		{
			name:        "different mailing address",
			addressLine: "123 Main St",
			city:        "Phoenix",
			mailing:     "PO Box 500, Phoenix, AZ 85032",
			want:        true,
		},
		{
			name:        "same street line in a different city",
			addressLine: "123 Main St",
			city:        "Phoenix",
			mailing:     "123 Main St, Springfield, IL 62701",
			want:        true,
		},
		{
			name:          "assessor owner-occupied flag overrides",
			addressLine:   "123 Main St",
			city:          "Phoenix",
			mailing:       "PO Box 500, Denver, CO 80014",
			ownerOccupied: true,
			want:          false,
		},
		{
			name:        "empty mailing address is inconclusive",
			addressLine: "123 Main St",
			city:        "Phoenix",
			mailing:     "",
			want:        false,
		},
		{
			name:        "empty situs line is inconclusive",
			addressLine: "",
			city:        "Phoenix",
			mailing:     "123 Main St, Phoenix, AZ 85032",
			want:        false,
		},
		{
			name:        "unknown city falls back to the street line",
			addressLine: "123 Main St",
			city:        "",
			mailing:     "123 Main St, Springfield, IL 62701",
			want:        false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := IsAbsentee(tc.addressLine, tc.city, tc.mailing, tc.ownerOccupied)
			if got != tc.want {
				t.Fatalf("IsAbsentee(%q, %q, %q, %v) = %v, want %v",
					tc.addressLine, tc.city, tc.mailing, tc.ownerOccupied, got, tc.want)
			}
		})
	}
}

func TestEquityPercent(t *testing.T) {
	cases := []struct {
		name      string
		estimated int64
		mortgage  int64
		want      float64
	}{
		{"unknown value", 0, 10_000_000, 0},
		{"free and clear", 20_000_000, 0, 100},
		{"half equity", 20_000_000, 10_000_000, 50},
		{"underwater", 10_000_000, 15_000_000, -50},
		{"deep negative clamps", 10_000_000, 50_000_000, -100},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := EquityPercent(tc.estimated, tc.mortgage)
			if got != tc.want {
				t.Fatalf("EquityPercent(%d, %d) = %v, want %v", tc.estimated, tc.mortgage, got, tc.want)
			}
		})
	}
}
