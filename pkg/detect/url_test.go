package detect

import (
	"strings"
	"testing"
)

func TestAnalyzeOfficialBrandDomainClean(t *testing.T) {
	a := NewUrlRiskAnalyzer()

	// The bank's own login page triggers nothing, including the phishing
	// vocabulary check.
	result := a.Analyze("확인하세요 https://www.kbstar.com/login")

	if result.RiskScore != 0 {
		t.Errorf("risk = %v for official domain, want 0 (reasons: %v)", result.RiskScore, result.Reasons)
	}
	if len(result.SuspiciousURLs) != 0 {
		t.Errorf("suspicious URLs = %v, want none", result.SuspiciousURLs)
	}
}

func TestAnalyzeBrandImpersonation(t *testing.T) {
	a := NewUrlRiskAnalyzer()

	result := a.Analyze("http://kbstar.com.evil.tk/login 에서 확인하세요")

	// Impersonation 0.5 + free TLD 0.4 + phishing vocabulary 0.25, clamped.
	if result.RiskScore != 1.0 {
		t.Errorf("risk = %v, want clamp at 1.0", result.RiskScore)
	}
	if len(result.SuspiciousURLs) != 1 {
		t.Fatalf("suspicious URLs = %v, want exactly 1", result.SuspiciousURLs)
	}

	wantReasons := []string{"impersonates", "low-trust TLD", "phishing vocabulary"}
	for _, want := range wantReasons {
		found := false
		for _, r := range result.Reasons {
			if strings.Contains(r, want) {
				found = true
			}
		}
		if !found {
			t.Errorf("reasons %v missing %q", result.Reasons, want)
		}
	}
}

func TestAnalyzeSubdomainOfOfficialDomain(t *testing.T) {
	a := NewUrlRiskAnalyzer()

	// A dot-bounded subdomain of the official registrable domain is official.
	result := a.Analyze("https://obank.kbstar.com/account")

	if result.RiskScore != 0 {
		t.Errorf("risk = %v for official subdomain, want 0", result.RiskScore)
	}
}

func TestAnalyzeShortener(t *testing.T) {
	a := NewUrlRiskAnalyzer()

	result := a.Analyze("이벤트 당첨! https://bit.ly/3xYz12")

	if result.RiskScore < 0.3 {
		t.Errorf("risk = %v, want >= 0.3 for a shortener", result.RiskScore)
	}
	if len(result.SuspiciousURLs) != 1 {
		t.Errorf("suspicious URLs = %v, want 1", result.SuspiciousURLs)
	}
}

func TestAnalyzeSchemeNormalizationDedupes(t *testing.T) {
	a := NewUrlRiskAnalyzer()

	// The same link with and without a scheme collapses to one identity.
	result := a.Analyze("bit.ly/abc 또는 https://bit.ly/abc")

	if len(result.URLs) != 1 {
		t.Errorf("URLs = %v, want the two spellings collapsed to 1", result.URLs)
	}
	if len(result.SuspiciousURLs) != 1 {
		t.Errorf("SuspiciousURLs = %v, want 1", result.SuspiciousURLs)
	}
}

func TestAnalyzeIPHost(t *testing.T) {
	a := NewUrlRiskAnalyzer()

	result := a.Analyze("http://211.45.33.10/pay")

	if result.RiskScore < 0.4 {
		t.Errorf("risk = %v, want >= 0.4 for raw IP host", result.RiskScore)
	}
}

func TestAnalyzeNoURLs(t *testing.T) {
	a := NewUrlRiskAnalyzer()

	result := a.Analyze("점심 먹으러 갈까요? 12시 30분에 봐요.")

	if len(result.URLs) != 0 {
		t.Errorf("URLs = %v, want none in plain text", result.URLs)
	}
	if result.RiskScore != 0 {
		t.Errorf("risk = %v, want 0", result.RiskScore)
	}
}

func TestAnalyzeFreeTLDBareDomain(t *testing.T) {
	a := NewUrlRiskAnalyzer()

	result := a.Analyze("자세한 내용은 event-prize.tk 를 확인하세요")

	if result.RiskScore < 0.4 {
		t.Errorf("risk = %v, want >= 0.4 for free TLD", result.RiskScore)
	}
}

func TestAnalyzeRiskClamped(t *testing.T) {
	a := NewUrlRiskAnalyzer()

	// Several bad URLs at once must still clamp to 1.
	result := a.Analyze("http://kakao.evil.tk/login http://bit.ly/x http://10.0.0.1/verify")

	if result.RiskScore != 1.0 {
		t.Errorf("risk = %v, want clamp at 1.0", result.RiskScore)
	}
}
