package dashboard

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/keydash/dashboard/internal/procedure"
)

var whitelistSeparator = regexp.MustCompile(`,|\n`)

// NormalizeIPWhitelist turns raw user input into the stored whitelist.
// nil and "" mean no whitelist (nil). Otherwise the input is split on commas
// and newlines, each entry trimmed and checked as an IPv4/IPv6 address, and the
// entries joined with ",". The first invalid entry is reported.
func NormalizeIPWhitelist(raw *string) (*string, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}

	parts := whitelistSeparator.Split(*raw, -1)
	ips := make([]string, 0, len(parts))
	for i, part := range parts {
		ip := strings.TrimSpace(part)
		if !procedure.ValidIP(ip) {
			return nil, procedure.BadRequest(procedure.Issue{
				Path:    fmt.Sprintf("ipWhitelist.%d", i),
				Message: fmt.Sprintf("invalid IP address %q", ip),
			})
		}
		ips = append(ips, ip)
	}

	joined := strings.Join(ips, ",")
	return &joined, nil
}
