package core

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Canned Vietnamese replies for the paths that must not depend on the
// generation backend.
const (
	NoSourceReply = "Xin lỗi, tôi không tìm thấy thông tin pháp luật liên quan đến câu hỏi của bạn."

	DegradedReply = "Xin lỗi, dịch vụ đang tạm thời gián đoạn. Vui lòng thử lại sau ít phút."

	ApologyReply = "Xin lỗi, tôi gặp lỗi khi xử lý yêu cầu của bạn. Vui lòng thử lại."

	FormCancelledReply = "Đã hủy quá trình tạo hồ sơ. Bạn cần hỗ trợ gì thêm không?"
)

// ResponseGenerator turns a routed request into natural-language text.
// Legal and general answers go through the generation backend; form
// prompts and summaries are rendered locally so the form path never
// depends on backend availability.
type ResponseGenerator struct {
	llm    GenerationService
	logger *zap.Logger
}

func NewResponseGenerator(llm GenerationService, logger *zap.Logger) *ResponseGenerator {
	return &ResponseGenerator{llm: llm, logger: logger}
}

// LegalAnswer grounds the reply in the supplied chunks and appends a
// numbered source list. With no results it answers plainly that no
// relevant source was found instead of letting the model invent law
// text.
func (g *ResponseGenerator) LegalAnswer(ctx context.Context, query, convContext string, results []RetrievalResult) (string, error) {
	if len(results) == 0 {
		return NoSourceReply, nil
	}

	var contextBlocks strings.Builder
	var sourceList strings.Builder
	for i, res := range results {
		label := res.Chunk.SourceLabel()
		fmt.Fprintf(&contextBlocks, "[%d] %s:\n%s\n\n", i+1, label, res.Chunk.Content)
		fmt.Fprintf(&sourceList, "[%d] %s\n", i+1, label)
	}

	prompt := fmt.Sprintf(`Dựa trên các tài liệu pháp luật được cung cấp, hãy trả lời câu hỏi của người dùng một cách chính xác và chi tiết.

Lưu ý:
- Trích dẫn cụ thể các điều luật, thông tư, nghị định liên quan, dùng ký hiệu [1], [2]... tương ứng với tài liệu
- Giải thích rõ ràng các quy định
- Chỉ dựa vào tài liệu được cung cấp, không bịa đặt nội dung luật
- Sử dụng tiếng Việt chính thức

Tài liệu:
%s
Lịch sử hội thoại: %s

Câu hỏi: %s`, contextBlocks.String(), convContext, query)

	answer, err := g.llm.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}
	return answer + "\n\nNguồn tham khảo:\n" + strings.TrimRight(sourceList.String(), "\n"), nil
}

// GeneralAnswer handles open consultation questions.
func (g *ResponseGenerator) GeneralAnswer(ctx context.Context, query, convContext string) (string, error) {
	prompt := fmt.Sprintf(`Hãy tư vấn cho người dùng về thành lập doanh nghiệp tại Việt Nam.
Cung cấp thông tin hữu ích, thực tế và dễ hiểu về quy trình, thủ tục, và lưu ý quan trọng.

Lịch sử hội thoại: %s

Câu hỏi: %s`, convContext, query)

	return g.llm.Complete(ctx, prompt)
}

// FormIntro announces the dossier that is about to be collected.
func (g *ResponseGenerator) FormIntro(tmpl *FormTemplate) string {
	return fmt.Sprintf("Tôi sẽ giúp bạn tạo bộ hồ sơ đăng ký kinh doanh (%s).\nTôi cần thu thập một số thông tin từ bạn. Gõ \"hủy\" bất cứ lúc nào để dừng lại.",
		tmpl.DisplayName)
}

// FormPrompt renders the question for a field, including its help text.
func (g *ResponseGenerator) FormPrompt(field FormField) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s:", field.DisplayName)
	if field.Help != "" {
		fmt.Fprintf(&b, "\n📝 %s", field.Help)
	}
	if field.Type == FieldEnum && len(field.Options) > 0 {
		fmt.Fprintf(&b, "\nCác lựa chọn: %s", strings.Join(field.Options, ", "))
	}
	return b.String()
}

// FieldSaved acknowledges a stored answer and asks the next question.
func (g *ResponseGenerator) FieldSaved(saved FormField, next FormField) string {
	return fmt.Sprintf("✅ Đã lưu: %s\n\nTiếp theo: %s", saved.DisplayName, g.FormPrompt(next))
}

// ValidationReply explains a rejected answer and re-asks the same field.
func (g *ResponseGenerator) ValidationReply(field FormField, verr *ValidationError) string {
	return fmt.Sprintf("❌ %s\n\nVui lòng nhập lại %s:", capitalize(verr.Reason), strings.ToLower(field.DisplayName))
}

// FormConfirmation summarizes every collected value and asks the user
// to confirm, edit, or cancel.
func (g *ResponseGenerator) FormConfirmation(tmpl *FormTemplate, session *FormSession) string {
	var b strings.Builder
	b.WriteString("🎉 Đã thu thập đủ thông tin! Dưới đây là tóm tắt:\n\n")
	for _, f := range tmpl.Fields {
		if v, ok := session.Values[f.Name]; ok {
			fmt.Fprintf(&b, "• %s: %s\n", f.DisplayName, v)
		}
	}
	b.WriteString("\nTrả lời \"xác nhận\" để hoàn tất, \"sửa <tên trường>\" để chỉnh sửa, hoặc \"hủy\" để dừng.")
	return b.String()
}

// FormCompleted closes out a confirmed dossier.
func (g *ResponseGenerator) FormCompleted(tmpl *FormTemplate) string {
	return fmt.Sprintf("📋 Bộ hồ sơ %s đã được chuẩn bị với thông tin trên. Cảm ơn bạn!", tmpl.DisplayName)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	return strings.ToUpper(string(runes[0])) + string(runes[1:])
}
