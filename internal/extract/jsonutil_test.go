package extract

import "testing"

func TestStripCodeFences(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"fenced no lang", "```\n[1,2]\n```", `[1,2]`},
		{"padded", "  {\"a\":1}  ", `{"a":1}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := stripCodeFences(tc.in); got != tc.want {
				t.Fatalf("stripCodeFences(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestExtractFirstJSON(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"bare object", `{"candidates":[]}`, `{"candidates":[]}`},
		{"bare array", `[{"name":"A"}]`, `[{"name":"A"}]`},
		{"preamble", `Sure, here you go: {"candidates":[{"name":"A"}]} hope that helps`, `{"candidates":[{"name":"A"}]}`},
		{"fenced with preamble", "Here:\n```json\n{\"candidates\":[]}\n```", `{"candidates":[]}`},
		{"array before object", `[1,2] trailing {"a":1}`, `[1,2]`},
		{"no json", "nothing to see here", ""},
		{"unbalanced", `{"candidates":[`, ""},
		{"empty", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := extractFirstJSON(tc.in); got != tc.want {
				t.Fatalf("extractFirstJSON(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
