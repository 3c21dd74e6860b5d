package validation

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// URLValidator checks URLs that newsdesk either calls (the provider API) or
// hands to the system browser (article links returned by the provider).
type URLValidator struct {
	// AllowLocalhost determines if localhost URLs are permitted
	AllowLocalhost bool
	// AllowPrivateIPs determines if private IP addresses are permitted
	AllowPrivateIPs bool
	// AddScheme prefixes https:// when the input has no scheme
	AddScheme bool
	// MaxLength is the maximum allowed URL length
	MaxLength int
}

// NewAPIURLValidator accepts the configured provider endpoint. Local proxies
// and self-hosted mirrors are legitimate here.
func NewAPIURLValidator() *URLValidator {
	return &URLValidator{
		AllowLocalhost:  true,
		AllowPrivateIPs: true,
		AddScheme:       true,
		MaxLength:       2048,
	}
}

// NewArticleURLValidator is used before opening provider supplied links.
func NewArticleURLValidator() *URLValidator {
	return &URLValidator{
		AllowLocalhost:  false,
		AllowPrivateIPs: false,
		AddScheme:       false,
		MaxLength:       4096,
	}
}

// ValidateAndNormalize validates a URL and returns the normalized version
func (v *URLValidator) ValidateAndNormalize(input string) (string, error) {
	input = strings.TrimSpace(input)

	if input == "" {
		return "", fmt.Errorf("URL cannot be empty")
	}
	if len(input) > v.MaxLength {
		return "", fmt.Errorf("URL too long (max %d characters)", v.MaxLength)
	}

	if strings.ContainsAny(input, "<>\"'` ") {
		return "", fmt.Errorf("URL contains invalid characters")
	}

	if v.AddScheme && !strings.Contains(input, "://") {
		input = "https://" + input
	}

	parsedURL, err := url.Parse(input)
	if err != nil {
		return "", fmt.Errorf("invalid URL format: %w", err)
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return "", fmt.Errorf("URL must use http or https protocol")
	}

	if parsedURL.Host == "" {
		return "", fmt.Errorf("URL must have a valid hostname")
	}

	if err := v.validateHostSecurity(parsedURL.Host); err != nil {
		return "", err
	}

	if err := validatePathSecurity(parsedURL); err != nil {
		return "", err
	}

	return parsedURL.String(), nil
}

// validateHostSecurity performs security checks on the hostname
func (v *URLValidator) validateHostSecurity(host string) error {
	hostname := host
	if strings.Contains(host, ":") && !strings.HasSuffix(host, "]") {
		var err error
		hostname, _, err = net.SplitHostPort(host)
		if err != nil {
			return fmt.Errorf("invalid host format: %w", err)
		}
	}
	hostname = strings.Trim(hostname, "[]")

	if !v.AllowLocalhost && isLocalhost(hostname) {
		return fmt.Errorf("localhost URLs are not permitted")
	}

	if !v.AllowPrivateIPs {
		if ip := net.ParseIP(hostname); ip != nil && isPrivateIP(ip) {
			return fmt.Errorf("private IP addresses are not permitted")
		}
	}

	if isObfuscatedHostname(hostname) {
		return fmt.Errorf("suspicious hostname detected")
	}

	return nil
}

// validatePathSecurity performs security checks on the URL path and query
func validatePathSecurity(parsedURL *url.URL) error {
	if strings.Contains(parsedURL.Path, "..") {
		return fmt.Errorf("directory traversal patterns not allowed in URL path")
	}

	query := strings.ToLower(parsedURL.RawQuery)
	if strings.Contains(query, "<script") || strings.Contains(query, "javascript:") {
		return fmt.Errorf("suspicious query parameters detected")
	}

	return nil
}

// isLocalhost checks if a hostname refers to localhost
func isLocalhost(hostname string) bool {
	hostname = strings.ToLower(hostname)
	return hostname == "localhost" ||
		hostname == "127.0.0.1" ||
		hostname == "::1" ||
		strings.HasSuffix(hostname, ".localhost")
}

var privateBlocks = func() []*net.IPNet {
	cidrs := []string{
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"169.254.0.0/16", // link-local
		"127.0.0.0/8",    // loopback
		"fc00::/7",       // unique local
		"fe80::/10",      // link-local
	}
	blocks := make([]*net.IPNet, 0, len(cidrs))
	for _, cidr := range cidrs {
		_, block, err := net.ParseCIDR(cidr)
		if err == nil {
			blocks = append(blocks, block)
		}
	}
	return blocks
}()

// isPrivateIP checks if an IP address is in a private range
func isPrivateIP(ip net.IP) bool {
	for _, block := range privateBlocks {
		if block.Contains(ip) {
			return true
		}
	}
	return false
}

// isObfuscatedHostname flags hosts made of long hex labels, a common way of
// hiding an address in a link.
func isObfuscatedHostname(hostname string) bool {
	hostname = strings.ToLower(hostname)
	if hostname == "0.0.0.0" || hostname == "255.255.255.255" {
		return true
	}
	if net.ParseIP(hostname) != nil {
		return false
	}
	if len(hostname) <= 8 || strings.Count(hostname, ".") != 3 {
		return false
	}
	for _, part := range strings.Split(hostname, ".") {
		if len(part) <= 6 || !isHexString(part) {
			return false
		}
	}
	return true
}

// isHexString checks if a string contains only hexadecimal characters
func isHexString(s string) bool {
	for _, char := range s {
		if !((char >= '0' && char <= '9') || (char >= 'a' && char <= 'f') || (char >= 'A' && char <= 'F')) {
			return false
		}
	}
	return true
}
