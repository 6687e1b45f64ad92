package gateway

import "testing"

func TestMoneyToString(t *testing.T) {
	cases := []struct {
		amount float64
		want   string
	}{
		{19.995, "2000"},
		{19.994, "1999"},
		{0, "0"},
		{20.00, "2000"},
		{0.01, "1"},
		{1234.56, "123456"},
		{-1.005, "-101"},
	}

	for _, tc := range cases {
		if got := MoneyToString(tc.amount); got != tc.want {
			t.Errorf("MoneyToString(%v) = %q, want %q", tc.amount, got, tc.want)
		}
	}
}
