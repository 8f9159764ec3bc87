package extract

import (
	"fmt"
	"regexp"
)

// defaultDenyPatterns match hostnames of login, banking and payment sites.
// Bank patterns need "bank" to end a label or to start one as bankof/banking.
var defaultDenyPatterns = []string{
	`(^|\.)(accounts|auth|login|signin|sign-in|sso|id|secure|myaccount)\.`,
	`bank([.-]|$)`,
	`(^|[.-])bank(of|ing)`,
	`paypal`,
	`checkout`,
	`wallet`,
	`(^|\.)stripe\.com$`,
	`venmo`,
	`coinbase`,
	`americanexpress`,
	`(^|\.)chase\.com$`,
	`wellsfargo`,
	`(^|\.)irs\.gov$`,
}

type denylist []*regexp.Regexp

func compileDenylist(extra []string) (denylist, error) {
	patterns := append(append([]string(nil), defaultDenyPatterns...), extra...)
	out := make(denylist, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("deny pattern %q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

func (d denylist) match(host string) (string, bool) {
	for _, re := range d {
		if re.MatchString(host) {
			return re.String(), true
		}
	}
	return "", false
}
