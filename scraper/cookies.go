package scraper

import (
	"strings"

	"github.com/go-rod/rod/lib/proto"
)

// ParseCookies splits a raw "name=value; name2=value2" cookie header into
// CDP cookie params scoped to domain with path "/".
//
// Values may themselves contain '=' (base64 tokens do); only the first '='
// separates name from value. Pairs without a name are dropped.
func ParseCookies(raw, domain string) []*proto.NetworkCookieParam {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := strings.Split(raw, ";")
	cookies := make([]*proto.NetworkCookieParam, 0, len(parts))
	for _, part := range parts {
		name, value, _ := strings.Cut(strings.TrimSpace(part), "=")
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		cookies = append(cookies, &proto.NetworkCookieParam{
			Name:   name,
			Value:  strings.TrimSpace(value),
			Domain: domain,
			Path:   "/",
		})
	}
	return cookies
}
