package crawler

import "testing"

func TestInScope(t *testing.T) {
	t.Parallel()

	sameDomain := Config{MaxDepth: 2, SameDomainOnly: true}
	anyDomain := Config{MaxDepth: 2, SameDomainOnly: false}

	tests := []struct {
		name  string
		url   string
		depth int
		cfg   Config
		want  bool
	}{
		{name: "same host within depth", url: "http://a.test/x", depth: 1, cfg: sameDomain, want: true},
		{name: "same host at max depth", url: "http://a.test/x", depth: 2, cfg: sameDomain, want: true},
		{name: "same host beyond depth", url: "http://a.test/x", depth: 3, cfg: sameDomain, want: false},
		{name: "other host same domain only", url: "http://b.test/x", depth: 0, cfg: sameDomain, want: false},
		{name: "subdomain is another host", url: "http://www.a.test/x", depth: 1, cfg: sameDomain, want: false},
		{name: "port is part of host", url: "http://a.test:8080/x", depth: 1, cfg: sameDomain, want: false},
		{name: "other host any domain", url: "http://b.test/x", depth: 1, cfg: anyDomain, want: true},
		{name: "other host beyond depth", url: "http://b.test/x", depth: 3, cfg: anyDomain, want: false},
		{name: "unparsable url same domain only", url: "http://[::1", depth: 0, cfg: sameDomain, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := InScope(tt.url, tt.depth, tt.cfg, "a.test"); got != tt.want {
				t.Errorf("InScope(%q, %d) = %v, want %v", tt.url, tt.depth, got, tt.want)
			}
		})
	}
}

func TestInScopeDepthCeilingIgnoresDomain(t *testing.T) {
	t.Parallel()

	for _, same := range []bool{true, false} {
		cfg := Config{MaxDepth: 0, SameDomainOnly: same}
		for _, u := range []string{"http://a.test/", "http://b.test/"} {
			if InScope(u, 1, cfg, "a.test") {
				t.Errorf("InScope(%q, 1) with max depth 0 and sameDomainOnly=%v should be false", u, same)
			}
		}
	}
}
