package urlutil

import (
	"fmt"
	"strings"
	"testing"

	"pgregory.net/rapid"
)

func TestBuildAbsolute_GeneratesExpectedURLs(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		base := fmt.Sprintf(
			"https://%s.%s",
			rapid.StringMatching(`[a-z]{3,12}`).Draw(rt, "baseHost"),
			rapid.StringMatching(`[a-z]{2,8}`).Draw(rt, "baseTld"),
		)
		want := base
		if rapid.Bool().Draw(rt, "baseHasSlash") {
			base += "/"
		}

		segment := rapid.StringMatching(`[a-z]{1,12}`).Draw(rt, "segment")
		switch rapid.IntRange(0, 3).Draw(rt, "pathKind") {
		case 0:
			if got := BuildAbsolute(base, ""); got != want {
				rt.Fatalf("empty path: got=%s want=%s", got, want)
			}
		case 1:
			if got := BuildAbsolute(base, "/web/index.php/"+segment); got != want+"/web/index.php/"+segment {
				rt.Fatalf("rooted path: got=%s", got)
			}
		case 2:
			if got := BuildAbsolute(base, "web/"+segment); got != want+"/web/"+segment {
				rt.Fatalf("relative path: got=%s", got)
			}
		case 3:
			abs := "https://other.example/" + segment
			if got := BuildAbsolute(base, abs); got != abs {
				rt.Fatalf("absolute path rewritten: got=%s", got)
			}
		}
	})
}

func TestNormalizeBaseURL(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		host := rapid.StringMatching(`[a-z]{3,12}\.[a-z]{2,5}`).Draw(rt, "host")
		slashes := strings.Repeat("/", rapid.IntRange(0, 3).Draw(rt, "slashes"))
		got := NormalizeBaseURL("  https://" + host + slashes + " ")
		if got != "https://"+host {
			rt.Fatalf("got=%q", got)
		}
	})
	if NormalizeBaseURL("   ") != "" {
		t.Fatal("blank base should normalize to empty")
	}
}

func TestPathContains(t *testing.T) {
	cases := []struct {
		url  string
		want bool
	}{
		{"https://opensource-demo.orangehrmlive.com/web/index.php/dashboard/index", true},
		{"http://127.0.0.1:4321/web/index.php/dashboard/index#top", true},
		{"https://opensource-demo.orangehrmlive.com/web/index.php/auth/login", false},
		{"https://host/web/index.php/auth/login?redirect=/dashboard/index", false},
		{"::not a url", false},
	}
	for _, tc := range cases {
		if got := PathContains(tc.url, "/dashboard/index"); got != tc.want {
			t.Errorf("PathContains(%q) = %v, want %v", tc.url, got, tc.want)
		}
	}
}
