package share

import (
	"net/url"
	"strconv"
	"strings"
	"testing"
)

func TestTextEmbedsScore(t *testing.T) {
	for _, score := range []int{0, 100, 12300} {
		text := Text(score)
		want := "I just hit " + strconv.Itoa(score) + " in Synergy"
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in %q", want, text)
		}
		if !strings.Contains(text, "#Synergy") {
			t.Error("Missing hashtag")
		}
	}
}

func TestIntentURLRoundTrips(t *testing.T) {
	raw := IntentURL(4200)

	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("Bad URL %q: %v", raw, err)
	}
	if u.Host != "twitter.com" || u.Path != "/intent/tweet" {
		t.Errorf("Unexpected intent target %s%s", u.Host, u.Path)
	}
	if got := u.Query().Get("text"); got != Text(4200) {
		t.Errorf("Decoded text mismatch:\n%q\n%q", got, Text(4200))
	}
	if strings.ContainsAny(u.RawQuery, " \n#") {
		t.Errorf("Query not escaped: %q", u.RawQuery)
	}
}
