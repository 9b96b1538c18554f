package dataservice

import (
	"encoding/json"
	"testing"
)

func TestNormalizeSnakeCase(t *testing.T) {
	var wp wirePage
	body := `{"messages":[{"id":"m1"}],"pagination":{"has_next_page":true,"next_cursor":"abc"}}`
	if err := json.Unmarshal([]byte(body), &wp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	info := wp.Pagination.normalize()
	if !info.Primed || !info.HasNextPage || info.Cursor != "abc" {
		t.Fatalf("info: %+v", info)
	}
	if !info.More() {
		t.Fatalf("More() false")
	}
}

func TestNormalizeCamelCaseOverrides(t *testing.T) {
	var wp wirePage
	// when both dialects are present, the camelCase flag wins
	body := `{"pagination":{"has_next_page":true,"hasNextPage":false,"startCursor":"sc"}}`
	if err := json.Unmarshal([]byte(body), &wp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	info := wp.Pagination.normalize()
	if info.HasNextPage || info.Cursor != "sc" {
		t.Fatalf("info: %+v", info)
	}
}

func TestNormalizeCursorPrecedence(t *testing.T) {
	cases := []struct {
		name string
		wp   wirePagination
		want string
	}{
		{"next_cursor wins", wirePagination{NextCursor: "n", StartCursor: "s", EndCursorLegacy: "c"}, "n"},
		{"startCursor next", wirePagination{StartCursor: "s", EndCursorLegacy: "c"}, "s"},
		{"legacy cursor last", wirePagination{EndCursorLegacy: "c"}, "c"},
		{"no cursor", wirePagination{}, ""},
	}
	for _, tc := range cases {
		if got := tc.wp.normalize().Cursor; got != tc.want {
			t.Fatalf("%s: got %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestNormalizeAlwaysPrimes(t *testing.T) {
	info := wirePagination{}.normalize()
	if !info.Primed {
		t.Fatalf("empty pagination did not prime")
	}
	// primed with no next page means the history is exhausted
	if info.More() {
		t.Fatalf("exhausted page reports more")
	}
}

func TestFetchMessagesValidatesThreadID(t *testing.T) {
	c := New("http://localhost:0", 0)
	if _, err := c.FetchMessages("", "", 10); err == nil {
		t.Fatalf("empty thread id accepted")
	}
}
