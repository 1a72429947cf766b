package routing

import (
	"slices"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// hostKey strips host-width suffixes so "1.2.3.4/32" and the "1.2.3.4" that
// netstat prints for a host route compare equal.
func hostKey(dest string) string {
	dest = strings.TrimSpace(dest)
	if s, ok := strings.CutSuffix(dest, "/32"); ok {
		return s
	}
	if s, ok := strings.CutSuffix(dest, "/128"); ok {
		return s
	}
	return dest
}

// Drift compares pinned destinations with live entries. missing are pinned
// but absent from the table; unexpected are live via the gateway but not pinned.
func Drift(pinned []string, live []LiveRouteEntry) (missing, unexpected []string) {
	liveKeys := make(map[string]bool, len(live))
	for _, e := range live {
		liveKeys[hostKey(e.Destination)] = true
	}
	pinnedKeys := make(map[string]bool, len(pinned))
	for _, p := range pinned {
		pinnedKeys[hostKey(p)] = true
		if !liveKeys[hostKey(p)] {
			missing = append(missing, p)
		}
	}
	for _, e := range live {
		if !pinnedKeys[hostKey(e.Destination)] {
			unexpected = append(unexpected, e.Destination)
		}
	}
	return missing, unexpected
}

// DriftReport renders a unified diff from pinned to live destinations. It
// returns "" when both sides agree.
func DriftReport(pinned []string, live []LiveRouteEntry) (string, error) {
	a := make([]string, 0, len(pinned))
	for _, p := range pinned {
		a = append(a, hostKey(p)+"\n")
	}
	b := make([]string, 0, len(live))
	for _, e := range live {
		b = append(b, hostKey(e.Destination)+"\n")
	}
	slices.Sort(a)
	slices.Sort(b)
	if slices.Equal(a, b) {
		return "", nil
	}

	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        a,
		B:        b,
		FromFile: "pinned",
		ToFile:   "live",
		Context:  1,
	})
}
