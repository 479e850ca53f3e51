package detect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	chromem "github.com/philippgille/chromem-go"

	"github.com/mobiguard/scamshield/pkg/httputil"
)

// ScamSeed is one known scam script fragment with metadata.
type ScamSeed struct {
	Text     string
	Category ScamCategory
	Language string
}

// SemanticMatch is the result of a nearest-seed query.
type SemanticMatch struct {
	Score       float32
	Category    ScamCategory
	MatchedText string
	IsMatch     bool
}

// SemanticMatcher finds paraphrases of known scam scripts via embedding
// similarity. Keyword tables catch the literal vocabulary; this layer
// catches the reworded variants that evolve around keyword filters. Fully
// optional: the engine runs without it when no embedding source is up.
type SemanticMatcher struct {
	db         *chromem.DB
	collection *chromem.Collection
	threshold  float32
	mu         sync.RWMutex
	ready      bool
}

// newEmbeddingFunc creates a chromem embedding function backed by an
// Ollama-style /api/embeddings endpoint.
func newEmbeddingFunc(model, baseURL string) chromem.EmbeddingFunc {
	client := httputil.NewClient(30 * time.Second)

	return func(ctx context.Context, text string) ([]float32, error) {
		reqBody := map[string]string{
			"model":  model,
			"prompt": text,
		}
		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			strings.TrimRight(baseURL, "/")+"/api/embeddings", bytes.NewBuffer(jsonData))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("request failed: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			body, _ := httputil.ReadErrorBody(resp.Body)
			return nil, fmt.Errorf("embedding service error %d: %s", resp.StatusCode, string(body))
		}

		var result struct {
			Embedding []float32 `json:"embedding"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
		return result.Embedding, nil
	}
}

// NewSemanticMatcher creates a matcher using the given embedding endpoint
// and model. threshold <= 0 uses the default 0.72.
func NewSemanticMatcher(embeddingBaseURL, embeddingModel string, threshold float32) (*SemanticMatcher, error) {
	if embeddingModel == "" {
		embeddingModel = "nomic-embed-text"
	}
	if threshold <= 0 {
		threshold = 0.72
	}

	db := chromem.NewDB()
	collection, err := db.CreateCollection("scam_seeds", nil,
		newEmbeddingFunc(embeddingModel, embeddingBaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}

	return &SemanticMatcher{
		db:         db,
		collection: collection,
		threshold:  threshold,
	}, nil
}

// LoadSeeds embeds the curated scam seeds into the vector store. Must be
// called before Match; it performs network calls per seed, so it runs at
// startup, not per request.
func (sm *SemanticMatcher) LoadSeeds(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	seeds := scamSeeds()
	docs := make([]chromem.Document, len(seeds))
	for i, s := range seeds {
		docs[i] = chromem.Document{
			ID:      fmt.Sprintf("seed_%d", i),
			Content: s.Text,
			Metadata: map[string]string{
				"category": string(s.Category),
				"language": s.Language,
			},
		}
	}

	// One worker keeps the embedding endpoint from being flooded at boot.
	if err := sm.collection.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("failed to add seeds: %w", err)
	}

	sm.ready = true
	return nil
}

// IsReady reports whether the seeds were loaded.
func (sm *SemanticMatcher) IsReady() bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.ready
}

// Match queries the nearest scam seeds for the text. IsMatch is true only
// when the best non-benign seed clears the threshold.
func (sm *SemanticMatcher) Match(ctx context.Context, text string) (*SemanticMatch, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.ready {
		return nil, fmt.Errorf("semantic matcher not initialized - call LoadSeeds first")
	}

	results, err := sm.collection.Query(ctx, strings.ToLower(text), 3, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	if len(results) == 0 {
		return &SemanticMatch{Category: CategorySafe}, nil
	}

	best := results[0]
	category := ScamCategory(best.Metadata["category"])

	// A strong match on a benign seed is evidence of normality, not risk.
	if category == CategorySafe && best.Similarity > sm.threshold {
		return &SemanticMatch{Category: CategorySafe}, nil
	}

	return &SemanticMatch{
		Score:       best.Similarity,
		Category:    category,
		MatchedText: best.Content,
		IsMatch:     best.Similarity >= sm.threshold && category != CategorySafe,
	}, nil
}

// scamSeeds is the curated script database. Seeds are verbatim fragments of
// real scam playbooks; the benign seeds anchor ordinary money talk so near
// matches on everyday banking do not fire.
func scamSeeds() []ScamSeed {
	return []ScamSeed{
		// Impersonation (government / bank)
		{"서울중앙지검 수사관입니다. 귀하 명의의 계좌가 범죄에 연루되었습니다", CategoryImpersonation, "ko"},
		{"금융감독원입니다. 계좌 안전조치를 위해 자산을 이전해야 합니다", CategoryImpersonation, "ko"},
		{"고객님 명의로 개설된 대포통장이 발견되어 연락드렸습니다", CategoryImpersonation, "ko"},
		{"검찰청에서 구속영장이 발부되었으니 즉시 출석하시기 바랍니다", CategoryImpersonation, "ko"},
		{"This is the prosecutor's office. Your account is involved in a crime", CategoryImpersonation, "en"},

		// Phishing / smishing
		{"고객님의 계정이 정지되었습니다. 아래 링크에서 본인인증을 진행해주세요", CategoryPhishing, "ko"},
		{"택배 주소지가 불명확하여 배송이 보류되었습니다. 링크를 확인해주세요", CategoryPhishing, "ko"},
		{"인증번호를 알려주시면 본인 확인 후 처리해드리겠습니다", CategoryPhishing, "ko"},
		{"Your account has been suspended, verify your identity at this link", CategoryPhishing, "en"},

		// Investment fraud
		{"저희 리딩방에 들어오시면 원금보장에 매달 30% 수익을 드립니다", CategoryInvestment, "ko"},
		{"지금 상장 직전 코인에 투자하면 열배 수익이 확실합니다", CategoryInvestment, "ko"},
		{"전문가가 직접 종목을 찍어드립니다. 손실나면 전액 보상해드려요", CategoryInvestment, "ko"},
		{"Guaranteed returns, our trading experts double your money monthly", CategoryInvestment, "en"},

		// Trade fraud
		{"직거래는 어렵고 선입금 주시면 바로 택배로 보내드릴게요", CategoryTradeFraud, "ko"},
		{"안전거래 사이트 링크 드릴테니 거기로 결제해주세요", CategoryTradeFraud, "ko"},

		// Loan scams
		{"신용등급 관계없이 무담보 저금리 대출 당일 승인됩니다", CategoryLoan, "ko"},
		{"기존 대출 대환해드립니다. 수수료 선입금만 해주시면 진행됩니다", CategoryLoan, "ko"},

		// Family impersonation
		{"엄마 나 폰 액정 깨져서 임시폰이야. 문화상품권 좀 사줘", CategoryImpersonation, "ko"},
		{"아빠 지금 바빠? 급하게 송금할 데가 있는데 계좌이체 좀 해줘", CategoryImpersonation, "ko"},

		// Benign anchors
		{"점심 먹고 계좌로 밥값 보내줄게", CategorySafe, "ko"},
		{"이번 달 월세 입금했어요, 확인 부탁드려요", CategorySafe, "ko"},
		{"은행 정기예금 금리가 올랐다고 하니 알아봐야겠어요", CategorySafe, "ko"},
		{"I sent the rent to your account this morning", CategorySafe, "en"},
	}
}

// SeedCount returns the number of curated seeds.
func (sm *SemanticMatcher) SeedCount() int {
	return len(scamSeeds())
}
