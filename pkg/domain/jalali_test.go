package domain

import (
	"sort"
	"testing"
	"time"
)

func TestParseJalaliDate(t *testing.T) {
	d, err := ParseJalaliDate("1402/07/09")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if d != (JalaliDate{Year: 1402, Month: 7, Day: 9}) {
		t.Fatalf("unexpected date %+v", d)
	}
	if d.String() != "1402/07/09" {
		t.Fatalf("expected zero padded format, got %s", d.String())
	}
}

func TestParseJalaliDateRejectsMalformed(t *testing.T) {
	cases := []string{"", "1402/7/09", "1402-07-09", "1402/13/01", "1402/00/10", "1402/01/32", "140/01/01", "abcd/01/01",
		"+999/01/01", "-999/01/01", "1403/+1/01", "1403/01/+1", "1403/ 1/01", "١٤٠٣/01/01"}
	for _, tc := range cases {
		if _, err := ParseJalaliDate(tc); err == nil {
			t.Fatalf("expected error for %q", tc)
		}
	}
}

func TestJalaliOrderingMatchesLexicographic(t *testing.T) {
	dates := []string{"1401/12/29", "1400/01/01", "1401/02/03", "1401/10/01", "1399/11/30"}
	byString := append([]string(nil), dates...)
	sort.Strings(byString)

	byDate := append([]string(nil), dates...)
	sort.Slice(byDate, func(i, j int) bool {
		return MustParseJalaliDate(byDate[i]).Before(MustParseJalaliDate(byDate[j]))
	})
	for i := range byString {
		if byString[i] != byDate[i] {
			t.Fatalf("ordering mismatch at %d: %s vs %s", i, byString[i], byDate[i])
		}
	}
	if CompareJalaliStrings("1401/02/03", "1401/02/03") != 0 {
		t.Fatalf("expected equal dates to compare equal")
	}
	if CompareJalaliStrings("bogus", "1401/02/03") <= 0 {
		t.Fatalf("expected raw string fallback ordering")
	}
}

func TestJalaliFromTime(t *testing.T) {
	cases := []struct {
		in   time.Time
		want string
	}{
		{time.Date(2021, 3, 21, 0, 0, 0, 0, time.UTC), "1400/01/01"},
		{time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC), "1403/01/01"},
		{time.Date(2024, 3, 19, 12, 0, 0, 0, time.UTC), "1402/12/29"},
	}
	for _, tc := range cases {
		if got := JalaliFromTime(tc.in).String(); got != tc.want {
			t.Fatalf("JalaliFromTime(%s) = %s, want %s", tc.in.Format("2006-01-02"), got, tc.want)
		}
	}
}

func TestClampJalaliInput(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"14", "14"},
		{"140212", "1402"},
		{"1402/1", "1402/1"},
		{"1402/13", "1402/12"},
		{"1402/00", "1402/01"},
		{"1402/0", "1402/0"},
		{"1402/05/40", "1402/05/31"},
		{"1402/05/00", "1402/05/01"},
		{"1402/05/123", "1402/05/12"},
		{"1402/05/07/99", "1402/05/07"},
		{"a1b4c0d2/x0y3", "1402/03"},
	}
	for _, tc := range cases {
		if got := ClampJalaliInput(tc.in); got != tc.want {
			t.Fatalf("ClampJalaliInput(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
