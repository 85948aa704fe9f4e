package firewall

import (
	"fmt"
	"net/netip"
	"net/url"
	"strconv"
	"strings"
)

// DestinationCheck is the outcome of IsDestinationSafe. Reason is empty
// when Safe is true.
type DestinationCheck struct {
	Safe   bool
	Reason string
}

// internalSchemes address local files or browser/extension internals.
var internalSchemes = map[string]struct{}{
	"file":             {},
	"chrome":           {},
	"chrome-extension": {},
	"moz-extension":    {},
	"safari-extension": {},
	"edge":             {},
	"about":            {},
	"data":             {},
	"blob":             {},
	"javascript":       {},
	"view-source":      {},
	"devtools":         {},
	"filesystem":       {},
	"resource":         {},
}

// IsDestinationSafe rejects destinations that are oversized, not plain
// http(s), or that point at loopback, private or internal hosts.
func (f *Firewall) IsDestinationSafe(rawURL string) DestinationCheck {
	return checkDestination(rawURL, f.opts.MaxURLLength)
}

func checkDestination(rawURL string, maxLength int) DestinationCheck {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return unsafe("URL is empty")
	}
	if len(rawURL) > maxLength {
		return unsafe(fmt.Sprintf("URL exceeds maximum length of %d characters", maxLength))
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return unsafe("URL could not be parsed")
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme == "" {
		return unsafe("URL has no scheme")
	}
	if _, ok := internalSchemes[scheme]; ok {
		return unsafe(fmt.Sprintf("scheme %q targets local or extension-internal resources", scheme))
	}
	if scheme != "http" && scheme != "https" {
		return unsafe(fmt.Sprintf("scheme %q is not allowed; only http and https are permitted", scheme))
	}
	if u.User != nil {
		return unsafe("URL embeds user credentials")
	}
	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	if host == "" {
		return unsafe("URL has no host")
	}
	if reason := hostReason(host); reason != "" {
		return unsafe(reason)
	}
	return DestinationCheck{Safe: true}
}

func hostReason(host string) string {
	switch {
	case host == "localhost" || strings.HasSuffix(host, ".localhost"):
		return fmt.Sprintf("host %q is a loopback name", host)
	case strings.HasSuffix(host, ".local"), strings.HasSuffix(host, ".internal"), strings.HasSuffix(host, ".lan"):
		return fmt.Sprintf("host %q is an internal network name", host)
	}

	addr, err := netip.ParseAddr(host)
	if err != nil {
		var ok bool
		if addr, ok = parseLegacyIPv4(host); !ok {
			return ""
		}
	}
	addr = addr.Unmap()
	switch {
	case addr.IsUnspecified():
		return fmt.Sprintf("address %s is unspecified", addr)
	case addr.IsLoopback():
		return fmt.Sprintf("address %s is a loopback address", addr)
	case addr.IsPrivate():
		return fmt.Sprintf("address %s is in a private network range", addr)
	case addr.IsLinkLocalUnicast(), addr.IsLinkLocalMulticast():
		return fmt.Sprintf("address %s is link-local", addr)
	}
	return ""
}

// parseLegacyIPv4 accepts the inet_aton forms browsers and resolvers still
// honour: one to four parts, each decimal, octal (leading 0) or hex (0x),
// with the last part filling the remaining bytes ("127.1", "2130706433").
func parseLegacyIPv4(host string) (netip.Addr, bool) {
	parts := strings.Split(strings.TrimSuffix(host, "."), ".")
	if len(parts) > 4 {
		return netip.Addr{}, false
	}
	values := make([]uint64, len(parts))
	for i, part := range parts {
		v, ok := parseIPv4Part(part)
		if !ok {
			return netip.Addr{}, false
		}
		values[i] = v
	}
	var out uint64
	for _, v := range values[:len(values)-1] {
		if v > 0xff {
			return netip.Addr{}, false
		}
		out = out<<8 | v
	}
	tailBytes := uint(5 - len(values))
	last := values[len(values)-1]
	if last >= 1<<(8*tailBytes) {
		return netip.Addr{}, false
	}
	out = out<<(8*tailBytes) | last
	return netip.AddrFrom4([4]byte{byte(out >> 24), byte(out >> 16), byte(out >> 8), byte(out)}), true
}

func parseIPv4Part(part string) (uint64, bool) {
	if part == "" {
		return 0, false
	}
	base := 10
	switch {
	case len(part) > 1 && (part[:2] == "0x" || part[:2] == "0X"):
		base, part = 16, part[2:]
		if part == "" {
			return 0, true
		}
	case len(part) > 1 && part[0] == '0':
		base, part = 8, part[1:]
	}
	v, err := strconv.ParseUint(part, base, 32)
	if err != nil {
		return 0, false
	}
	return v, true
}

func unsafe(reason string) DestinationCheck {
	return DestinationCheck{Safe: false, Reason: reason}
}
