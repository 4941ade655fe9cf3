package value

import (
	"fmt"
	"strings"

	"github.com/dlclark/regexp2"
)

// regexCompiled is the lazily-populated compiled form of a Regex value.
// dlclark/regexp2 gives full ECMAScript-flavored regex semantics
// (lookaround, backreferences) that Go's RE2-based regexp package cannot
// express; PEX always compiles through it, since its flag set
// (g,i,m,s,u,v,y) is JS-shaped by definition and there is no RE2 fast path
// to fall back from.
type regexCompiled struct {
	re  *regexp2.Regexp
	err error
}

// Compile lazily compiles the regex's pattern+flags and memoizes the
// result (and any compile error) on the Regex value.
func (r *Regex) Compile() (*regexp2.Regexp, error) {
	if r.compiled.re == nil && r.compiled.err == nil {
		opts := regexp2.ECMAScript
		for _, f := range r.Flags {
			switch f {
			case 'i':
				opts |= regexp2.IgnoreCase
			case 'm':
				opts |= regexp2.Multiline
			case 's':
				opts |= regexp2.Singleline
			case 'g', 'u', 'v', 'y':
				// 'g' (global) is not a compile-time option: the replace
				// builtin reads it to replace every match. 'y' (sticky) is
				// accepted and has no effect. Go strings are already UTF-8
				// so 'u'/'v' (unicode mode) require no translation.
			default:
				r.compiled.err = fmt.Errorf("regex: unknown flag %q", f)
				return nil, r.compiled.err
			}
		}
		re, err := regexp2.Compile(r.Pattern, opts)
		r.compiled.re, r.compiled.err = re, err
	}
	return r.compiled.re, r.compiled.err
}

// HasFlag reports whether the regex was built with the given single-letter
// flag.
func (r *Regex) HasFlag(f byte) bool {
	return strings.IndexByte(r.Flags, f) >= 0
}
