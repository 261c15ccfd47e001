package parser

import (
	"errors"
	"testing"

	"github.com/aluiziolira/go-scrape-minesweeper/models"
)

func field(prefix, line string) Field {
	return Field{Prefix: prefix, Line: line, Present: true}
}

func TestFloatFields(t *testing.T) {
	tests := []struct {
		name     string
		parse    func(Field) (float64, error)
		field    Field
		expected float64
		wantErr  bool
	}{
		{name: "time", parse: ParseElapsedTime, field: field(PrefixTime, "Time: 1.160 sec"), expected: 1.160},
		{name: "time without unit", parse: ParseElapsedTime, field: field(PrefixTime, "Time: 12"), expected: 12},
		{name: "time missing value", parse: ParseElapsedTime, field: field(PrefixTime, "Time:"), wantErr: true},
		{name: "time not numeric", parse: ParseElapsedTime, field: field(PrefixTime, "Time: abc sec"), wantErr: true},
		{name: "time negative", parse: ParseElapsedTime, field: field(PrefixTime, "Time: -3 sec"), wantErr: true},
		{name: "time absent", parse: ParseElapsedTime, field: Field{Prefix: PrefixTime}, expected: models.MissingFloat},
		{name: "estimated", parse: ParseEstimatedTime, field: field(PrefixEstimatedTime, "Estimated time: 75.013"), expected: 75.013},
		{name: "estimated no separator", parse: ParseEstimatedTime, field: field(PrefixEstimatedTime, "Estimated time:75"), wantErr: true},
		{name: "estimated NaN", parse: ParseEstimatedTime, field: field(PrefixEstimatedTime, "Estimated time: NaN"), wantErr: true},
		{name: "estimated absent", parse: ParseEstimatedTime, field: Field{Prefix: PrefixEstimatedTime}, expected: models.MissingFloat},
		{name: "3bv per sec", parse: Parse3BVPerSec, field: field(Prefix3BVPerSec, "3BV/sec: 2.5862"), expected: 2.5862},
		{name: "3bv per sec garbage", parse: Parse3BVPerSec, field: field(Prefix3BVPerSec, "3BV/sec: fast"), wantErr: true},
		{name: "3bv per sec absent", parse: Parse3BVPerSec, field: Field{Prefix: Prefix3BVPerSec}, expected: models.MissingFloat},
		{name: "efficiency", parse: ParseEfficiency, field: field(PrefixEfficiency, "Efficiency: 50%"), expected: 50},
		{name: "efficiency spaced", parse: ParseEfficiency, field: field(PrefixEfficiency, "Efficiency: 112 %"), expected: 112},
		{name: "efficiency only percent", parse: ParseEfficiency, field: field(PrefixEfficiency, "Efficiency: %"), wantErr: true},
		{name: "efficiency absent", parse: ParseEfficiency, field: Field{Prefix: PrefixEfficiency}, expected: models.MissingFloat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.parse(tt.field)
			if tt.wantErr {
				var fieldErr *FieldMalformedError
				if !errors.As(err, &fieldErr) {
					t.Fatalf("expected FieldMalformedError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Fatalf("got %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestParse3BV(t *testing.T) {
	tests := []struct {
		name     string
		field    Field
		expected BVCounts
		wantErr  error
	}{
		{name: "solved", field: field(Prefix3BV, "3BV: 194"), expected: BVCounts{Completed: 194, Board: 194, Solved: true, Present: true}},
		{name: "partial", field: field(Prefix3BV, "3BV: 3 / 194"), expected: BVCounts{Completed: 3, Board: 194, Present: true}},
		{name: "partial tight", field: field(Prefix3BV, "3BV: 3/194"), expected: BVCounts{Completed: 3, Board: 194, Present: true}},
		{name: "zero board", field: field(Prefix3BV, "3BV: 0 / 0"), expected: BVCounts{Completed: 0, Board: 0, Present: true}},
		{name: "absent", field: Field{Prefix: Prefix3BV}, expected: BVCounts{Completed: models.MissingInt, Board: models.MissingInt}},
		{name: "exceeds", field: field(Prefix3BV, "3BV: 200 / 194"), wantErr: errCompletedExceed},
		{name: "all done but unsolved", field: field(Prefix3BV, "3BV: 194 / 194"), wantErr: errUnsolvedFull},
		{name: "two separators", field: field(Prefix3BV, "3BV: 1 / 2 / 3"), wantErr: err3BVSeparator},
		{name: "missing half", field: field(Prefix3BV, "3BV: 3 /"), wantErr: errMissingValue},
		{name: "empty", field: field(Prefix3BV, "3BV:"), wantErr: errMissingValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse3BV(tt.field)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Fatalf("got %+v, want %+v", got, tt.expected)
			}
		})
	}
}

func TestParseClicks(t *testing.T) {
	tests := []struct {
		name    string
		field   Field
		useful  int
		wasted  int
		wantErr bool
	}{
		{name: "both", field: field(PrefixClicks, "Clicks: 6+0"), useful: 6, wasted: 0},
		{name: "spaced", field: field(PrefixClicks, "Clicks: 41 + 7"), useful: 41, wasted: 7},
		{name: "absent", field: Field{Prefix: PrefixClicks}, useful: models.MissingInt, wasted: models.MissingInt},
		{name: "no plus", field: field(PrefixClicks, "Clicks: 6"), wantErr: true},
		{name: "missing half", field: field(PrefixClicks, "Clicks: 6+"), wantErr: true},
		{name: "non numeric", field: field(PrefixClicks, "Clicks: six+0"), wantErr: true},
		{name: "extra plus", field: field(PrefixClicks, "Clicks: 1+2+3"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			useful, wasted, err := ParseClicks(tt.field)
			if tt.wantErr {
				var fieldErr *FieldMalformedError
				if !errors.As(err, &fieldErr) {
					t.Fatalf("expected FieldMalformedError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if useful != tt.useful || wasted != tt.wasted {
				t.Fatalf("got %d+%d, want %d+%d", useful, wasted, tt.useful, tt.wasted)
			}
		})
	}
}

func TestFieldMalformedErrorMessage(t *testing.T) {
	_, err := ParseElapsedTime(field(PrefixTime, "Time: abc sec"))
	if err == nil {
		t.Fatalf("expected error")
	}
	want := `field_malformed: Time: "Time: abc sec": strconv.ParseFloat: parsing "abc": invalid syntax`
	if err.Error() != want {
		t.Fatalf("message = %q, want %q", err.Error(), want)
	}
}
