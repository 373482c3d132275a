package textnorm

import (
	"regexp"
	"strings"
)

var domainPattern = regexp.MustCompile(`@([A-Za-z0-9.\-]+)`)

// infraPrefixes are host labels that carry no company identity.
var infraPrefixes = map[string]bool{
	"mail": true, "email": true, "webmail": true,
	"smtp": true, "pop": true, "imap": true, "www": true,
}

// DomainFromEmail returns the lowercased domain after the last @ in the
// address, or "" when there is none.
func DomainFromEmail(addr string) string {
	matches := domainPattern.FindAllStringSubmatch(addr, -1)
	if len(matches) == 0 {
		return ""
	}
	return strings.ToLower(strings.Trim(matches[len(matches)-1][1], "."))
}

// MainDomain extracts the organization label from a domain: infrastructure
// prefixes are dropped and the registrable label is chosen, stepping one
// label left when the second-to-last label is a short country-style suffix
// such as "co" in example.co.uk.
func MainDomain(domain string) string {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" {
		return ""
	}

	parts := strings.Split(domain, ".")
	for len(parts) > 2 && infraPrefixes[parts[0]] {
		parts = parts[1:]
	}
	if len(parts) < 2 {
		return parts[0]
	}

	main := parts[len(parts)-2]
	if len(main) <= 3 && len(parts) >= 3 {
		main = parts[len(parts)-3]
	}
	return main
}
