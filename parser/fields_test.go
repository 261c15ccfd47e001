package parser

import "testing"

func TestLinesFind(t *testing.T) {
	lines := SplitLines("alice\r\n  Time: 1.160 sec  \n3BV/sec: 2.5\n3BV: 3 / 194\nTime: 9.0 sec\ntime: 4 sec")

	tests := []struct {
		name    string
		prefix  string
		line    string
		present bool
	}{
		{name: "trimmed and first wins", prefix: PrefixTime, line: "Time: 1.160 sec", present: true},
		{name: "3bv not confused with 3bv/sec", prefix: Prefix3BV, line: "3BV: 3 / 194", present: true},
		{name: "3bv/sec", prefix: Prefix3BVPerSec, line: "3BV/sec: 2.5", present: true},
		{name: "absent", prefix: PrefixClicks, present: false},
		{name: "case sensitive", prefix: "time:", line: "time: 4 sec", present: true},
		{name: "prefix must lead the line", prefix: "sec", present: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := lines.Find(tt.prefix)
			if f.Present != tt.present {
				t.Fatalf("Find(%q).Present = %t, want %t", tt.prefix, f.Present, tt.present)
			}
			if f.Line != tt.line {
				t.Fatalf("Find(%q).Line = %q, want %q", tt.prefix, f.Line, tt.line)
			}
			if f.Prefix != tt.prefix {
				t.Fatalf("Find(%q).Prefix = %q", tt.prefix, f.Prefix)
			}
		})
	}
}

func TestFieldValue(t *testing.T) {
	f := Field{Prefix: PrefixEfficiency, Line: "Efficiency:   50% ", Present: true}
	if got := f.Value(); got != "50%" {
		t.Fatalf("Value() = %q, want %q", got, "50%")
	}
	if got := (Field{Prefix: PrefixEfficiency}).Value(); got != "" {
		t.Fatalf("absent Value() = %q, want empty", got)
	}
}

func TestSplitLinesKeepsOrder(t *testing.T) {
	lines := SplitLines("a\n\nb")
	if len(lines) != 3 || lines[0] != "a" || lines[1] != "" || lines[2] != "b" {
		t.Fatalf("SplitLines = %q", lines)
	}
}
