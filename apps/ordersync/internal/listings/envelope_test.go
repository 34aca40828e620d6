package listings

import "testing"

func TestParsePageEnvelopeVariants(t *testing.T) {
	cases := []struct {
		name        string
		body        string
		wantEntries int
		wantNext    string
	}{
		{"orders with next", `{"orders":[{"a":1},{"a":2}],"next":"abc"}`, 2, "abc"},
		{"listings with cursor", `{"listings":[{"a":1}],"cursor":"c1"}`, 1, "c1"},
		{"results with continuation", `{"results":[{}],"continuation":"k"}`, 1, "k"},
		{"bare array", `[{"a":1},{"a":2},{"a":3}]`, 3, ""},
		{"empty orders", `{"orders":[]}`, 0, ""},
		{"present but empty next", `{"orders":[{"a":1}],"next":""}`, 1, ""},
		{"null next", `{"orders":[{"a":1}],"next":null}`, 1, ""},
	}

	for _, tc := range cases {
		p, err := parsePage([]byte(tc.body))
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if len(p.entries) != tc.wantEntries {
			t.Errorf("%s: entries = %d, want %d", tc.name, len(p.entries), tc.wantEntries)
		}
		if p.next != tc.wantNext {
			t.Errorf("%s: next = %q, want %q", tc.name, p.next, tc.wantNext)
		}
	}
}

func TestParsePageRejectsMalformedBody(t *testing.T) {
	if _, err := parsePage([]byte(`{"orders": "nope"}`)); err == nil {
		t.Error("expected error for non-array orders field")
	}
	if _, err := parsePage([]byte(`[{"broken"`)); err == nil {
		t.Error("expected error for truncated array")
	}
}
