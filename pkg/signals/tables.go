package signals

// =============================================================================
// DEFAULT SIGNAL TABLES
// Keyword vocabulary covers Korean and English scam language; the feature
// originally shipped in a Korean deployment, so the Korean tables are the
// richer ones. Matching is substring containment over normalized text.
// =============================================================================

// --- CRITICAL TIER ---
// One hit contributes 0.4 by default. Reserved for vocabulary that has
// essentially no legitimate use in a private message.
func (r *Registry) registerCriticalKeywords() {
	t := TierCritical

	// Money mule / laundering
	r.addKeyword("대포통장", t, CategoryMoneyMovement)
	r.addKeyword("돈세탁", t, CategoryMoneyMovement)

	// Credential and auth-code harvesting
	r.addKeyword("인증번호", t, CategoryCredential)
	r.addKeyword("보안카드", t, CategoryCredential)
	r.addKeyword("공인인증서", t, CategoryCredential)
	r.addKeyword("verification code", t, CategoryCredential)
	r.addKeyword("auth code", t, CategoryCredential)

	// Too-good-to-be-true investment
	r.addKeyword("원금보장", t, CategoryInvestment)
	r.addKeyword("guaranteed profit", t, CategoryInvestment)
	r.addKeyword("guaranteed return", t, CategoryInvestment)

	// Authority impersonation
	r.addKeyword("검찰청", t, CategoryImpersonation)
	r.addKeyword("금융감독원", t, CategoryImpersonation)
	r.addKeyword("구속영장", t, CategoryImpersonation)
	r.addKeyword("명의도용", t, CategoryImpersonation)
}

// --- HIGH TIER ---
// One hit contributes 0.25 by default. Strong scam vocabulary that can
// occasionally appear in legitimate financial conversations.
func (r *Registry) registerHighKeywords() {
	t := TierHigh

	// Urgency
	r.addKeyword("급전", t, CategoryUrgency)
	r.addKeyword("마감임박", t, CategoryUrgency)

	// Money movement
	r.addKeyword("계좌번호", t, CategoryMoneyMovement)
	r.addKeyword("송금", t, CategoryMoneyMovement)
	r.addKeyword("입금", t, CategoryMoneyMovement)
	r.addKeyword("계좌이체", t, CategoryMoneyMovement)
	r.addKeyword("wire transfer", t, CategoryMoneyMovement)
	r.addKeyword("send money", t, CategoryMoneyMovement)
	r.addKeyword("account number", t, CategoryMoneyMovement)

	// Credentials / identity
	r.addKeyword("비밀번호", t, CategoryCredential)
	r.addKeyword("주민등록번호", t, CategoryCredential)
	r.addKeyword("신분증 사진", t, CategoryCredential)
	r.addKeyword("password", t, CategoryCredential)

	// Investment
	r.addKeyword("고수익", t, CategoryInvestment)
	r.addKeyword("리딩방", t, CategoryInvestment)
	r.addKeyword("수익률 보장", t, CategoryInvestment)
	r.addKeyword("high return", t, CategoryInvestment)
	r.addKeyword("double your money", t, CategoryInvestment)

	// Impersonation
	r.addKeyword("수사관", t, CategoryImpersonation)
	r.addKeyword("검사입니다", t, CategoryImpersonation)
	r.addKeyword("국세청", t, CategoryImpersonation)
	r.addKeyword("prosecutor", t, CategoryImpersonation)

	// Loan
	r.addKeyword("대출승인", t, CategoryLoan)
	r.addKeyword("저금리", t, CategoryLoan)
	r.addKeyword("무담보", t, CategoryLoan)
	r.addKeyword("대환대출", t, CategoryLoan)

	// Trade fraud
	r.addKeyword("선입금", t, CategoryTradeFraud)
	r.addKeyword("안전거래", t, CategoryTradeFraud)
	r.addKeyword("에스크로", t, CategoryTradeFraud)
}

// --- MEDIUM TIER ---
// One hit contributes 0.15 by default - never enough to flag on its own.
// Ambient vocabulary that mostly matters in combination.
func (r *Registry) registerMediumKeywords() {
	t := TierMedium

	// Urgency
	r.addKeyword("긴급", t, CategoryUrgency)
	r.addKeyword("당장", t, CategoryUrgency)
	r.addKeyword("지금 바로", t, CategoryUrgency)
	r.addKeyword("오늘까지", t, CategoryUrgency)
	r.addKeyword("urgent", t, CategoryUrgency)
	r.addKeyword("immediately", t, CategoryUrgency)
	r.addKeyword("last chance", t, CategoryUrgency)

	// Money movement
	r.addKeyword("수수료", t, CategoryMoneyMovement)
	r.addKeyword("보증금", t, CategoryMoneyMovement)
	r.addKeyword("환급", t, CategoryMoneyMovement)
	r.addKeyword("상품권", t, CategoryMoneyMovement)
	r.addKeyword("gift card", t, CategoryMoneyMovement)
	r.addKeyword("refund", t, CategoryMoneyMovement)

	// Investment / loan
	r.addKeyword("투자", t, CategoryInvestment)
	r.addKeyword("코인", t, CategoryInvestment)
	r.addKeyword("상장", t, CategoryInvestment)
	r.addKeyword("대출", t, CategoryLoan)
	r.addKeyword("한도조회", t, CategoryLoan)

	// Impersonation
	r.addKeyword("미납관세", t, CategoryImpersonation)
	r.addKeyword("정부지원금", t, CategoryImpersonation)
	r.addKeyword("customs", t, CategoryImpersonation)

	// Trade fraud
	r.addKeyword("직거래", t, CategoryTradeFraud)
	r.addKeyword("택배비", t, CategoryTradeFraud)
	r.addKeyword("환불", t, CategoryTradeFraud)
}

func (r *Registry) registerDefaultKeywords() {
	r.registerCriticalKeywords()
	r.registerHighKeywords()
	r.registerMediumKeywords()
}

// --- STRUCTURAL PATTERNS ---
// Shapes, not words. Isolated numeric shapes occur constantly in legitimate
// UI noise (dialers, auto-fill, keyboards), so almost all of these require
// corroboration before their weight counts.
func (r *Registry) registerDefaultStructural() {
	// Korean mobile number: 010-1234-5678, 01012345678, 011 345 6789
	r.registerStructural("phone_shape",
		`\b01[016789][- ]?\d{3,4}[- ]?\d{4}\b`,
		0.15, true, CategoryContact)

	// Hyphenated bank account: 110-123-456789 and similar bank formats.
	// The third group needs 5+ digits so a 3-4-4 phone number does not
	// double-match. Contiguous 11-14 digit runs are covered as well.
	r.registerStructural("account_shape",
		`\b(?:\d{3,6}[- ]\d{2,4}[- ]\d{5,8}|\d{11,14})\b`,
		0.15, true, CategoryMoneyMovement)

	// Korean resident registration number: 901231-1234567
	r.registerStructural("national_id_shape",
		`\b\d{6}[- ]?[1-4]\d{6}\b`,
		0.15, true, CategoryCredential)

	// Money amounts: 1,000,000원 / 500만원 / ₩300,000 / $2,000
	r.registerStructural("money_amount",
		`\d{1,3}(?:,\d{3})+\s*원?|\d+\s*(?:만\s?원|억\s?원|천만\s?원)|[₩$]\s?\d[\d,]*`,
		0.15, true, CategoryMoneyMovement)

	// Shortened or throwaway-TLD link embedded directly in the text.
	// A shortener in a money conversation is suspicious even alone, so no
	// corroboration requirement.
	r.registerStructural("suspicious_link",
		`(?i)(?:https?://)?(?:bit\.ly|t\.co|tinyurl\.com|goo\.gl|is\.gd|han\.gl|me2\.do|url\.kr)/[^\s]+|(?:https?://)?[a-z0-9-]+(?:\.[a-z0-9-]+)*\.(?:tk|ml|ga|cf|gq)(?:/[^\s]*)?`,
		0.15, false, CategoryContact)
}
