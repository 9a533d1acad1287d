package readiness

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Mode selects which matchers are evaluated for a process.
type Mode string

// Readiness modes.
const (
	ModeAddress         Mode = "address"          // strict scheme://host:port match
	ModeKeywords        Mode = "keywords"         // all keywords on one line
	ModeAddressKeywords Mode = "address+keywords" // address first, keywords as fallback
)

// Defaults for synthesized addresses.
const (
	DefaultScheme = "http"
	DefaultHost   = "localhost"
)

// ErrUnknownMode is returned by New for an unsupported Mode.
var ErrUnknownMode = errors.New("unknown readiness mode")

// ErrNoKeywords is returned by New when a keyword mode has no keywords.
var ErrNoKeywords = errors.New("keyword readiness requires at least one keyword")

// Matcher inspects a single output line for a readiness marker.
type Matcher interface {
	// Match returns the resolved address when the line signals readiness.
	Match(line string) (address string, ok bool)
}

// Config describes how readiness is detected for one process.
type Config struct {
	Mode     Mode
	Port     int
	Scheme   string   // scheme of the synthesized address, default "http"
	Host     string   // host of the synthesized address, default "localhost"
	Keywords []string // required for keyword modes
}

// DefaultAddress returns the address reported when the keyword rule fires.
func (c Config) DefaultAddress() string {
	scheme := c.Scheme
	if scheme == "" {
		scheme = DefaultScheme
	}
	host := c.Host
	if host == "" {
		host = DefaultHost
	}
	return fmt.Sprintf("%s://%s:%d", scheme, host, c.Port)
}

// New builds the matcher for cfg. The address matcher is always evaluated
// before the keyword matcher.
func New(cfg Config) (Matcher, error) {
	switch cfg.Mode {
	case ModeAddress, "":
		return NewAddressMatcher(cfg.Port), nil
	case ModeKeywords:
		if len(cfg.Keywords) == 0 {
			return nil, ErrNoKeywords
		}
		return NewKeywordMatcher(cfg.DefaultAddress(), cfg.Keywords...), nil
	case ModeAddressKeywords:
		if len(cfg.Keywords) == 0 {
			return nil, ErrNoKeywords
		}
		return Chain{
			NewAddressMatcher(cfg.Port),
			NewKeywordMatcher(cfg.DefaultAddress(), cfg.Keywords...),
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, cfg.Mode)
	}
}

// AddressMatcher matches a literal scheme://host:port address on the expected port.
type AddressMatcher struct {
	port int
	re   *regexp.Regexp
}

// NewAddressMatcher creates a matcher for addresses ending in the given port.
// Hosts may be names, IPv4 literals or bracketed IPv6 literals.
func NewAddressMatcher(port int) *AddressMatcher {
	pattern := fmt.Sprintf(`[A-Za-z][A-Za-z0-9+.-]*://(?:\[[0-9A-Fa-f:.]+\]|[^\s/:\[\]]+):%d\b`, port)
	return &AddressMatcher{
		port: port,
		re:   regexp.MustCompile(pattern),
	}
}

// Match implements Matcher.
func (m *AddressMatcher) Match(line string) (string, bool) {
	addr := m.re.FindString(line)
	return addr, addr != ""
}

// KeywordMatcher fires when every keyword appears on the same line,
// ignoring case, and reports a fixed address.
type KeywordMatcher struct {
	address  string
	keywords []string
}

// NewKeywordMatcher creates a keyword matcher reporting address on a hit.
func NewKeywordMatcher(address string, keywords ...string) *KeywordMatcher {
	upper := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if kw = strings.TrimSpace(kw); kw != "" {
			upper = append(upper, strings.ToUpper(kw))
		}
	}
	return &KeywordMatcher{address: address, keywords: upper}
}

// Match implements Matcher.
func (m *KeywordMatcher) Match(line string) (string, bool) {
	if len(m.keywords) == 0 {
		return "", false
	}
	upper := strings.ToUpper(line)
	for _, kw := range m.keywords {
		if !strings.Contains(upper, kw) {
			return "", false
		}
	}
	return m.address, true
}

// Chain evaluates matchers in order; the first match wins.
type Chain []Matcher

// Match implements Matcher.
func (c Chain) Match(line string) (string, bool) {
	for _, m := range c {
		if addr, ok := m.Match(line); ok {
			return addr, true
		}
	}
	return "", false
}

var ansiEscape = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]`)

// cleanLine strips terminal escape sequences and surrounding whitespace.
// Dev servers colorize their banners, often splitting host and port.
func cleanLine(line string) string {
	if strings.IndexByte(line, 0x1b) >= 0 {
		line = ansiEscape.ReplaceAllString(line, "")
	}
	return strings.TrimSpace(line)
}
