// Package version decides whether an installed tool is current.
package version

import (
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Unknown marks a version that could not be determined. It always forces an
// install or upgrade.
const Unknown = "unknown"

// Pair holds the installed and the newest available version of a tool.
type Pair struct {
	Current string
	Latest  string
}

// IsCurrent reports whether the installed version needs no action.
func (p Pair) IsCurrent() bool {
	return IsCurrent(p.Current, p.Latest)
}

// IsCurrent reports whether current >= latest. Either side being unknown or
// empty yields false so the caller goes down the install/upgrade path.
func IsCurrent(current, latest string) bool {
	if isUnknown(current) || isUnknown(latest) {
		return false
	}
	return Compare(current, latest) >= 0
}

func isUnknown(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || strings.EqualFold(v, Unknown)
}

var (
	// Homebrew revisions such as 1.21.3_1.
	revisionSuffix = regexp.MustCompile(`_\d+$`)
	leadingDigits  = regexp.MustCompile(`^\d+`)
)

// normalize strips decorations tools put around a version: "v1.2", "go1.21.0",
// "1.21.3_1".
func normalize(v string) string {
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(v, "go")
	v = strings.TrimPrefix(v, "v")
	return revisionSuffix.ReplaceAllString(v, "")
}

// Compare returns -1, 0 or 1 as a is older than, equal to or newer than b.
// Strict semantic versions are compared by semver rules; anything semver
// rejects falls back to a numeric segment-by-segment comparison where missing
// trailing segments count as zero and a pre-release tail ranks below the
// release it precedes.
func Compare(a, b string) int {
	a, b = normalize(a), normalize(b)

	va, errA := semver.NewVersion(a)
	vb, errB := semver.NewVersion(b)
	if errA == nil && errB == nil {
		return va.Compare(vb)
	}
	return compareSegments(a, b)
}

func compareSegments(a, b string) int {
	as, bs := segments(a), segments(b)
	n := len(as)
	if len(bs) > n {
		n = len(bs)
	}
	for i := 0; i < n; i++ {
		var x, y segment
		if i < len(as) {
			x = as[i]
		}
		if i < len(bs) {
			y = bs[i]
		}
		if c := x.compare(y); c != 0 {
			return c
		}
	}
	return 0
}

// segment is one dot-separated part: its leading digits and whatever
// pre-release text follows them ("12rc1" is digits "12", pre "rc1").
type segment struct {
	digits string
	pre    string
}

// compare orders numerically, then puts a pre-release tail below the bare
// number, so 1.21rc2 < 1.21.0. Digits are compared as strings so arbitrarily
// long numbers cannot overflow.
func (s segment) compare(o segment) int {
	x, y := strings.TrimLeft(s.digits, "0"), strings.TrimLeft(o.digits, "0")
	if len(x) != len(y) {
		if len(x) < len(y) {
			return -1
		}
		return 1
	}
	if c := strings.Compare(x, y); c != 0 {
		return c
	}
	switch {
	case s.pre == o.pre:
		return 0
	case s.pre == "":
		return 1
	case o.pre == "":
		return -1
	default:
		return strings.Compare(s.pre, o.pre)
	}
}

// segments splits on dots. Build metadata after "+" is ignored, so
// "17.0.2+8" becomes 17, 0, 2 and "3.12rc1" becomes 3, 12 (pre "rc1").
func segments(v string) []segment {
	if i := strings.IndexByte(v, '+'); i >= 0 {
		v = v[:i]
	}
	parts := strings.Split(v, ".")
	out := make([]segment, 0, len(parts))
	for _, p := range parts {
		d := leadingDigits.FindString(p)
		out = append(out, segment{digits: d, pre: strings.TrimLeft(p[len(d):], "-")})
	}
	return out
}

// Extract returns the first capture group of pattern (or the whole match when
// there is no group) found in text, or Unknown.
func Extract(text, pattern string) string {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Unknown
	}
	m := re.FindStringSubmatch(text)
	switch {
	case m == nil:
		return Unknown
	case len(m) > 1 && m[1] != "":
		return m[1]
	default:
		return m[0]
	}
}
