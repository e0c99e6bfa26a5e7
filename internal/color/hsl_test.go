package color

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseCanonicalForms(t *testing.T) {
	cases := map[string]HSL{
		"hsl(360, 100%, 100%)":        {H: 360, S: 100, L: 100},
		"hsl(126, 88.68%, 36.57%)":    {H: 126, S: 88.68, L: 36.57},
		"  hsl( 10 ,20% , 30 % )  ":   {H: 10, S: 20, L: 30},
		"hsl(.5, 0.25%, 99.%)":        {H: 0.5, S: 0.25, L: 99},
		"hsl(-20, +15%, 0%)":          {H: -20, S: 15, L: 0},
		"hsl(359.999, 100.0%, 50.5%)": {H: 359.999, S: 100, L: 50.5},
	}
	for input, want := range cases {
		got, err := Parse(input)
		if err != nil {
			t.Fatalf("Parse(%q) returned error: %v", input, err)
		}
		if got != want {
			t.Fatalf("Parse(%q) = %+v, want %+v", input, got, want)
		}
	}
}

func TestParseRejectsMalformedInput(t *testing.T) {
	inputs := []string{
		"",
		"red",
		"#ffffff",
		"rgb(1, 2, 3)",
		"hsl(1, 2, 3)",
		"hsl(1, 2%)",
		"hsl(a, 2%, 3%)",
		"hsla(1, 2%, 3%, 0.5)",
		"hsl(1, 2%, 3%) trailing",
	}
	for _, input := range inputs {
		if _, err := Parse(input); !errors.Is(err, ErrInvalidColorFormat) {
			t.Fatalf("Parse(%q) error = %v, want ErrInvalidColorFormat", input, err)
		}
		if Valid(input) {
			t.Fatalf("Valid(%q) = true, want false", input)
		}
	}
}

func TestFormatIsCanonical(t *testing.T) {
	cases := []struct {
		in   HSL
		want string
	}{
		{Background, "hsl(360, 100%, 100%)"},
		{HSL{H: 126, S: 88.68, L: 36.57}, "hsl(126, 88.68%, 36.57%)"},
		{HSL{H: 10.0001, S: 33.333333, L: 66.666666}, "hsl(10, 33.33%, 66.67%)"},
		{HSL{H: -0.001, S: 0, L: 0}, "hsl(0, 0%, 0%)"},
	}
	for _, tc := range cases {
		if got := Format(tc.in); got != tc.want {
			t.Fatalf("Format(%+v) = %q, want %q", tc.in, got, tc.want)
		}
	}

	parsed, err := Parse(Format(HSL{H: 12.5, S: 40, L: 60}))
	if err != nil {
		t.Fatalf("round trip parse failed: %v", err)
	}
	if parsed != (HSL{H: 12.5, S: 40, L: 60}) {
		t.Fatalf("unexpected round trip result: %+v", parsed)
	}
}

func TestAverage(t *testing.T) {
	avg, err := Average([]HSL{
		{H: 0, S: 50, L: 20},
		{H: 90, S: 60, L: 40},
		{H: 180, S: 100, L: 60},
	})
	if err != nil {
		t.Fatalf("Average returned error: %v", err)
	}
	if avg != (HSL{H: 90, S: 70, L: 40}) {
		t.Fatalf("unexpected average: %+v", avg)
	}

	single, err := Average([]HSL{{H: 1, S: 2, L: 3}})
	if err != nil || single != (HSL{H: 1, S: 2, L: 3}) {
		t.Fatalf("single average = %+v, %v", single, err)
	}
}

func TestAverageRejectsEmptySet(t *testing.T) {
	if _, err := Average(nil); !errors.Is(err, ErrEmptyColorSet) {
		t.Fatalf("expected ErrEmptyColorSet, got %v", err)
	}
}

func TestJSONUsesTextForm(t *testing.T) {
	data, err := json.Marshal(HSL{H: 200, S: 50.5, L: 25})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(data) != `"hsl(200, 50.5%, 25%)"` {
		t.Fatalf("unexpected encoding: %s", data)
	}

	var decoded HSL
	if err := json.Unmarshal([]byte(`"hsl(1, 2%, 3%)"`), &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if decoded != (HSL{H: 1, S: 2, L: 3}) {
		t.Fatalf("unexpected decoded color: %+v", decoded)
	}

	if err := json.Unmarshal([]byte(`42`), &decoded); !errors.Is(err, ErrInvalidColorFormat) {
		t.Fatalf("expected ErrInvalidColorFormat for number, got %v", err)
	}
	if err := json.Unmarshal([]byte(`"blue"`), &decoded); !errors.Is(err, ErrInvalidColorFormat) {
		t.Fatalf("expected ErrInvalidColorFormat for name, got %v", err)
	}
}

func TestForAddressIsStableAndBright(t *testing.T) {
	first := ForAddress("10.0.0.1")
	if second := ForAddress("10.0.0.1"); first != second {
		t.Fatalf("expected stable color, got %+v and %+v", first, second)
	}
	for _, addr := range []string{"", "127.0.0.1", "::1", "203.0.113.7:5000"} {
		c := ForAddress(addr)
		if c.H < 0 || c.H >= 360 {
			t.Fatalf("hue out of range for %q: %+v", addr, c)
		}
		if c.S < 65 || c.S > 95 {
			t.Fatalf("saturation out of range for %q: %+v", addr, c)
		}
		if c.L < 45 || c.L > 60 {
			t.Fatalf("lightness out of range for %q: %+v", addr, c)
		}
		if !Valid(c.String()) {
			t.Fatalf("assigned color does not format validly: %s", c)
		}
	}
}
