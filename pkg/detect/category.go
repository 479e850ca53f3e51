package detect

import (
	"strings"

	"github.com/mobiguard/scamshield/pkg/signals"
)

// categoryPriority orders signal categories by how specifically they name a
// scam type. Impersonation language outranks the generic money vocabulary
// that appears in nearly every scam.
var categoryPriority = []struct {
	signal signals.Category
	scam   ScamCategory
}{
	{signals.CategoryImpersonation, CategoryImpersonation},
	{signals.CategoryInvestment, CategoryInvestment},
	{signals.CategoryTradeFraud, CategoryTradeFraud},
	{signals.CategoryLoan, CategoryLoan},
	{signals.CategoryCredential, CategoryPhishing},
	{signals.CategoryContact, CategoryPhishing},
}

// InferCategory derives the scam category from the matched signals'
// structured tags, falling back to reason-text sniffing for evidence that
// arrives without tags (registry hits, URL findings).
func InferCategory(partial *PartialResult, reasons []string) ScamCategory {
	for _, cp := range categoryPriority {
		if partial != nil && partial.HasCategory(cp.signal) {
			return cp.scam
		}
	}

	joined := strings.ToLower(strings.Join(reasons, " "))
	switch {
	case strings.Contains(joined, "impersonat"):
		return CategoryImpersonation
	case strings.Contains(joined, "phishing") || strings.Contains(joined, "url"):
		return CategoryPhishing
	case strings.Contains(joined, "registry"):
		return CategoryPhishing
	}
	return CategoryUnknown
}

// signalCategoryFor maps a scam category back onto the signal tag space,
// so evidence that arrives pre-classified (semantic matches) participates
// in structured category inference.
func signalCategoryFor(sc ScamCategory) signals.Category {
	for _, cp := range categoryPriority {
		if cp.scam == sc {
			return cp.signal
		}
	}
	return ""
}

// advisoryMessages are the user-facing warnings per category. The product
// surface is Korean; reasons stay in English because they are developer
// diagnostics, these strings are what the user actually sees.
var advisoryMessages = map[ScamCategory]string{
	CategoryInvestment:    "원금 보장이나 고수익을 약속하는 투자 권유는 전형적인 투자 사기 수법입니다. 송금 전에 반드시 제도권 금융회사인지 확인하세요.",
	CategoryTradeFraud:    "직거래 전 선입금을 요구하는 것은 중고거래 사기의 대표적인 수법입니다. 안전결제를 사칭한 링크도 주의하세요.",
	CategoryPhishing:      "출처가 불분명한 링크나 인증번호 요구는 피싱일 가능성이 높습니다. 링크를 누르거나 번호를 알려주지 마세요.",
	CategoryImpersonation: "검찰, 금융감독원, 은행은 전화나 문자로 송금이나 개인정보를 요구하지 않습니다. 해당 기관 공식 번호로 직접 확인하세요.",
	CategoryLoan:          "정식 금융회사는 대출 승인 전에 수수료나 선입금을 요구하지 않습니다. 불법 대출 광고일 수 있습니다.",
	CategoryUnknown:       "사기 의심 징후가 감지되었습니다. 송금이나 개인정보 제공 전에 상대방을 다시 한번 확인하세요.",
}

// AdvisoryMessage returns the user-facing warning for a category. Safe
// verdicts carry no message.
func AdvisoryMessage(c ScamCategory) string {
	if c == CategorySafe {
		return ""
	}
	if msg, ok := advisoryMessages[c]; ok {
		return msg
	}
	return advisoryMessages[CategoryUnknown]
}
