package validation

import (
	"net/url"
	"strings"

	"LinkClassifier/internal/domain"
)

// ValidateURL checks that raw is a well-formed absolute HTTP or HTTPS URL.
func ValidateURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return &domain.InvalidURLError{URL: raw, Reason: "URL cannot be empty"}
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return &domain.InvalidURLError{URL: raw, Reason: "Invalid URL format"}
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return &domain.InvalidURLError{URL: raw, Reason: "URL scheme must be http or https"}
	}
	if parsed.Host == "" {
		return &domain.InvalidURLError{URL: raw, Reason: "URL must include domain"}
	}

	return nil
}

// NormalizeURL lowercases scheme and host, strips default ports, drops the
// fragment, and removes the trailing slash on a bare "/" path.
// Normalizing an already-normalized URL yields the same string.
func NormalizeURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)
	parsed.Fragment = ""

	host := parsed.Host
	switch {
	case parsed.Scheme == "http" && strings.HasSuffix(host, ":80"):
		parsed.Host = strings.TrimSuffix(host, ":80")
	case parsed.Scheme == "https" && strings.HasSuffix(host, ":443"):
		parsed.Host = strings.TrimSuffix(host, ":443")
	}

	if parsed.Path == "/" && parsed.RawQuery == "" {
		parsed.Path = ""
	}

	return parsed.String()
}

// ExtractDomain returns the lowercase host of a URL, or "" when the URL
// does not parse.
func ExtractDomain(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Host)
}

// TitleFromURL derives a display title for an external URL: the last path
// segment with separators spaced out, falling back to the bare domain name.
func TitleFromURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}

	segments := strings.FieldsFunc(parsed.Path, func(r rune) bool { return r == '/' })
	if len(segments) > 0 {
		title := segments[len(segments)-1]
		title = strings.ReplaceAll(title, "-", " ")
		title = strings.ReplaceAll(title, "_", " ")
		return titleCase(title)
	}

	host := strings.ToLower(parsed.Host)
	host = strings.TrimPrefix(host, "www.")
	if i := strings.IndexByte(host, '.'); i > 0 {
		host = host[:i]
	}
	return titleCase(host)
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// SampleDomains collects up to domain.MaxSampleDomains distinct lowercase
// domains from the given links, preserving first-seen order.
func SampleDomains(links []domain.Link) []string {
	seen := map[string]struct{}{}
	var domains []string
	for _, link := range links {
		d := ExtractDomain(link.URL)
		if d == "" {
			continue
		}
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		domains = append(domains, d)
		if len(domains) == domain.MaxSampleDomains {
			break
		}
	}
	return domains
}
