package detect

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// UrlResult is the URL analyzer's contribution to fusion.
type UrlResult struct {
	// URLs are all extracted URLs, scheme-normalized, in match order.
	URLs []string
	// SuspiciousURLs has set semantics: the same URL written with and
	// without a scheme collapses to one entry.
	SuspiciousURLs []string
	Reasons        []string
	// RiskScore is the clamped sum of every triggered check contribution.
	RiskScore float64
}

// Pre-compiled extraction and host patterns (compiled once, used per request)
var (
	// URL-like substrings: explicit scheme, www., or a bare domain whose
	// last label is alphabetic (rejects times and decimal numbers).
	reURL = regexp.MustCompile(`(?i)(?:https?://[^\s<>"']+|www\.[^\s<>"']+|\b[a-z0-9-]+(?:\.[a-z0-9-]+)*\.[a-z]{2,}(?:/[^\s<>"']*)?)`)

	// IPv4 host: validates octets 0-255, not just any 3-digit group
	reIPv4Host = regexp.MustCompile(`^(?:(?:25[0-5]|2[0-4][0-9]|1[0-9]{2}|[1-9]?[0-9])\.){3}(?:25[0-5]|2[0-4][0-9]|1[0-9]{2}|[1-9]?[0-9])$`)
)

// Risk contributions per check. Additive; the total is clamped to [0,1].
const (
	riskFreeTLD       = 0.4
	riskShortener     = 0.3
	riskPhishingTerm  = 0.25
	riskImpersonation = 0.5
	riskIPHost        = 0.4
	riskLongURL       = 0.2
	riskSpecialChars  = 0.2

	maxURLLength    = 150
	maxSpecialChars = 5
)

// freeTLDs are TLDs with free or near-free registration, heavily abused in
// smishing campaigns.
var freeTLDs = map[string]bool{
	"tk": true, "ml": true, "ga": true, "cf": true, "gq": true,
	"top": true, "xyz": true,
}

// shortenerDomains are known URL shorteners. A shortened link hides its
// destination, which is exactly what a scam link wants.
var shortenerDomains = map[string]bool{
	"bit.ly": true, "tinyurl.com": true, "t.co": true, "goo.gl": true,
	"is.gd": true, "ow.ly": true, "buff.ly": true,
	"han.gl": true, "me2.do": true, "url.kr": true, "vo.la": true,
}

// phishingTerms is vocabulary that phishing pages put into hosts and paths.
var phishingTerms = []string{
	"login", "signin", "verify", "secure", "account", "update",
	"suspended", "confirm", "claim", "prize", "bonus", "event", "auth",
}

// brandDomains maps a brand token to its whitelisted official registrable
// domains. Containment of the token is not enough to flag - and suffix
// matching must be on a dot boundary, so kbstar.com.attacker.net never
// passes as official.
var brandDomains = map[string][]string{
	"kbstar":   {"kbstar.com"},
	"kakao":    {"kakao.com", "kakaobank.com", "kakaopay.com"},
	"naver":    {"naver.com"},
	"toss":     {"toss.im"},
	"shinhan":  {"shinhan.com"},
	"woori":    {"wooribank.com"},
	"nonghyup": {"nonghyup.com"},
	"hana":     {"kebhana.com", "hanafn.com"},
	"ibk":      {"ibk.co.kr"},
	"samsung":  {"samsung.com", "samsungcard.com"},
	"coupang":  {"coupang.com"},
	"paypal":   {"paypal.com"},
	"apple":    {"apple.com"},
}

// UrlRiskAnalyzer extracts URLs from text and scores each against
// independent heuristics. Pure: no I/O, no mutable state.
type UrlRiskAnalyzer struct{}

// NewUrlRiskAnalyzer creates an analyzer.
func NewUrlRiskAnalyzer() *UrlRiskAnalyzer {
	return &UrlRiskAnalyzer{}
}

// Analyze extracts and scores every URL-like substring in text.
func (a *UrlRiskAnalyzer) Analyze(text string) UrlResult {
	result := UrlResult{}
	suspicious := make(map[string]struct{})
	reasonSet := make(map[string]struct{})

	addReason := func(r string) {
		if _, ok := reasonSet[r]; ok {
			return
		}
		reasonSet[r] = struct{}{}
		result.Reasons = append(result.Reasons, r)
	}

	seen := make(map[string]struct{})
	for _, raw := range reURL.FindAllString(text, -1) {
		normalized := normalizeURL(raw)
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		result.URLs = append(result.URLs, normalized)

		risk := a.scoreURL(normalized, addReason)
		if risk > 0 {
			suspicious[normalized] = struct{}{}
			result.RiskScore += risk
		}
	}

	for u := range suspicious {
		result.SuspiciousURLs = append(result.SuspiciousURLs, u)
	}
	result.RiskScore = clamp01(result.RiskScore)
	return result
}

// scoreURL applies every independent check to one URL and returns the sum
// of triggered contributions. Official brand domains are trusted and skip
// the remaining heuristics - a bank's own /login page is not phishing.
func (a *UrlRiskAnalyzer) scoreURL(rawURL string, addReason func(string)) float64 {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return 0
	}
	host := strings.ToLower(parsed.Hostname())

	official, impersonating, brand := checkBrand(host)
	if official {
		return 0
	}

	risk := 0.0

	if impersonating {
		risk += riskImpersonation
		addReason(fmt.Sprintf("URL impersonates %s: %s", brand, host))
	}

	if tld := lastLabel(host); freeTLDs[tld] {
		risk += riskFreeTLD
		addReason(fmt.Sprintf("URL uses a low-trust TLD (.%s): %s", tld, host))
	}

	if shortenerDomains[host] || shortenerDomains[stripWWW(host)] {
		risk += riskShortener
		addReason(fmt.Sprintf("URL uses a link shortener: %s", host))
	}

	hostAndPath := host + strings.ToLower(parsed.Path)
	for _, term := range phishingTerms {
		if strings.Contains(hostAndPath, term) {
			risk += riskPhishingTerm
			addReason(fmt.Sprintf("URL contains phishing vocabulary (%q)", term))
			break
		}
	}

	if reIPv4Host.MatchString(host) {
		risk += riskIPHost
		addReason(fmt.Sprintf("URL uses a raw IP address host: %s", host))
	}

	if len(rawURL) > maxURLLength {
		risk += riskLongURL
		addReason("URL is unusually long")
	}

	if specials := strings.Count(rawURL, "@") + strings.Count(rawURL, "%") + strings.Count(rawURL, "&"); specials > maxSpecialChars {
		risk += riskSpecialChars
		addReason("URL contains an unusual number of special characters")
	}

	return risk
}

// checkBrand reports whether the host is an official brand domain, or
// impersonates one (contains the brand token without being the official
// registrable domain or a dot-bounded subdomain of it).
func checkBrand(host string) (official bool, impersonating bool, brand string) {
	for token, domains := range brandDomains {
		if !strings.Contains(host, token) {
			continue
		}
		for _, d := range domains {
			if host == d || strings.HasSuffix(host, "."+d) {
				return true, false, token
			}
		}
		return false, true, token
	}
	return false, false, ""
}

// normalizeURL prefixes scheme-less URLs with https:// so the same link
// written either way collapses to one identity, and strips a trailing
// sentence terminator that the extractor may have captured.
func normalizeURL(raw string) string {
	trimmed := strings.TrimRight(raw, ".,;:!?)")
	if !strings.HasPrefix(strings.ToLower(trimmed), "http://") &&
		!strings.HasPrefix(strings.ToLower(trimmed), "https://") {
		return "https://" + trimmed
	}
	return trimmed
}

func lastLabel(host string) string {
	if i := strings.LastIndex(host, "."); i >= 0 {
		return host[i+1:]
	}
	return host
}

func stripWWW(host string) string {
	return strings.TrimPrefix(host, "www.")
}
