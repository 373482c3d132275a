package extract

import (
	"net/url"
	"strings"
)

// wrapperParams are the query parameters redirect services hide the real
// destination in, tried in order.
var wrapperParams = []string{"url", "u", "redirect", "target"}

// UnwrapURL resolves redirect-wrapped tracking links to their destination.
// Outlook SafeLinks and generic ?url=/?u=/?redirect=/?target= wrappers are
// recognized; anything else, including malformed input, passes through
// unchanged.
func UnwrapURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	query := parsed.Query()

	if strings.Contains(parsed.Host, "safelinks.protection.outlook.com") {
		if inner := query.Get("url"); inner != "" {
			return inner
		}
	}
	for _, key := range wrapperParams {
		if inner := query.Get(key); strings.HasPrefix(inner, "http") {
			return inner
		}
	}
	return raw
}
