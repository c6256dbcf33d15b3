package core

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const intentSystemPrompt = `Bạn là một AI chuyên phân loại ý định (intent) của người dùng trong lĩnh vực đăng ký kinh doanh tại Việt Nam.

Có 3 loại ý định chính:
1. **legal**: Câu hỏi về luật pháp, quy định, thông tư, nghị định liên quan đến đăng ký kinh doanh
   - Ví dụ: "Điều 15 Luật Doanh nghiệp quy định gì?", "Thông tư 02/2023 có hiệu lực khi nào?"

2. **business**: Yêu cầu hỗ trợ tạo hồ sơ, giấy tờ đăng ký kinh doanh cụ thể
   - Ví dụ: "Tôi muốn lập hồ sơ đăng ký công ty", "Hãy giúp tôi tạo đơn đăng ký kinh doanh"

3. **general**: Tư vấn chung về thành lập doanh nghiệp, quy trình, hướng dẫn tổng quan
   - Ví dụ: "Quy trình thành lập công ty như thế nào?", "Cần chuẩn bị gì để mở công ty?"

Hãy phân loại câu hỏi của người dùng và chỉ trả về một trong ba từ: legal, business, hoặc general`

// Confidence assigned by how cleanly the model's reply parses.
const (
	confidenceExact     = 0.9
	confidenceExtracted = 0.7
	confidenceFallback  = 0.5
)

// IntentClassifier maps raw user text plus recent context to an Intent.
// A reply that cannot be parsed, a backend error, or a confidence below
// the configured threshold all resolve to IntentGeneral: classification
// never fails a request.
type IntentClassifier struct {
	llm       GenerationService
	threshold float64
	logger    *zap.Logger
}

func NewIntentClassifier(llm GenerationService, threshold float64, logger *zap.Logger) *IntentClassifier {
	return &IntentClassifier{llm: llm, threshold: threshold, logger: logger}
}

func (c *IntentClassifier) Classify(ctx context.Context, text, recentContext string) (Intent, float64) {
	prompt := c.buildPrompt(text, recentContext)

	reply, err := c.llm.Complete(ctx, prompt)
	if err != nil {
		c.logger.Warn("intent classification failed, defaulting to general", zap.Error(err))
		return IntentGeneral, 0
	}

	intent, confidence := parseIntentReply(reply)
	if confidence < c.threshold {
		c.logger.Debug("intent confidence below threshold",
			zap.String("intent", string(intent)),
			zap.Float64("confidence", confidence),
			zap.Float64("threshold", c.threshold))
		return IntentGeneral, confidence
	}
	return intent, confidence
}

func (c *IntentClassifier) buildPrompt(text, recentContext string) string {
	var b strings.Builder
	b.WriteString(intentSystemPrompt)
	b.WriteString("\n\n")
	if recentContext != "" {
		fmt.Fprintf(&b, "Bối cảnh cuộc hội thoại trước:\n%s\n\n", recentContext)
	}
	fmt.Fprintf(&b, "Câu hỏi của người dùng: %q\n\nPhân loại ý định của câu hỏi này (chỉ trả về: legal, business, hoặc general):", text)
	return b.String()
}

func parseIntentReply(reply string) (Intent, float64) {
	token := strings.ToLower(strings.TrimSpace(reply))
	token = strings.Trim(token, ".\"'` ")

	if intent := Intent(token); intent.Valid() {
		return intent, confidenceExact
	}
	// The model sometimes wraps the label in a sentence; accept the
	// first recognizable label it contains.
	for _, intent := range []Intent{IntentLegal, IntentBusiness, IntentGeneral} {
		if strings.Contains(token, string(intent)) {
			return intent, confidenceExtracted
		}
	}
	return IntentGeneral, confidenceFallback
}
