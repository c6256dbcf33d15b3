package core_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rato-kaz/vietnamese-business-rag-chatbot/internal/core"
)

type chatFixture struct {
	svc  *core.ChatService
	llm  *scriptedLLM
	repo *fakeRepo
}

func newChatFixture(t *testing.T, vectorStore *stubVectorStore) *chatFixture {
	t.Helper()
	if vectorStore == nil {
		vectorStore = &stubVectorStore{}
	}

	llm := &scriptedLLM{}
	repo := newFakeRepo()
	templateRepo := &stubTemplates{list: []*core.FormTemplate{companyTemplate()}}

	retriever := core.NewRetriever(&stubEmbedder{vector: []float32{1, 0}}, vectorStore, nil,
		core.RetrieverConfig{}, testLogger())
	classifier := core.NewIntentClassifier(llm, 0.6, testLogger())
	generator := core.NewResponseGenerator(llm, testLogger())
	forms := core.NewFormEngine(templateRepo, testLogger())

	svc := core.NewChatService(repo, templateRepo, classifier, retriever, generator, forms, core.ChatConfig{
		TopK:               3,
		HistoryWindow:      6,
		MaxRetries:         1,
		RetryInterval:      time.Millisecond,
		DefaultTemplate:    "dang_ky_cong_ty",
		LegalDocumentTypes: []string{"Luật", "Nghị định", "Thông tư", "Quyết định"},
	}, testLogger())

	return &chatFixture{svc: svc, llm: llm, repo: repo}
}

func TestChatServiceBusinessIntentStartsForm(t *testing.T) {
	fx := newChatFixture(t, nil)
	fx.llm.push("business", nil)

	resp, err := fx.svc.ProcessMessage(context.Background(), "s1", "Tôi muốn tạo hồ sơ đăng ký công ty")
	require.NoError(t, err)

	assert.Equal(t, core.IntentBusiness, resp.Intent)
	assert.True(t, resp.FormActive)
	assert.Equal(t, "ten_cong_ty", resp.CurrentField)
	assert.Equal(t, "0/4", resp.Progress)
	assert.Contains(t, resp.Message, "Tên công ty")

	stored, err := fx.repo.Load(context.Background(), "s1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.NotNil(t, stored.Form)
	assert.Equal(t, core.FormActive, stored.Form.Status)
	assert.Len(t, stored.Messages, 2)
	assert.Equal(t, core.RoleUser, stored.Messages[0].Role)
	assert.Equal(t, core.RoleAssistant, stored.Messages[1].Role)
}

func TestChatServiceFormBypassesClassification(t *testing.T) {
	fx := newChatFixture(t, nil)
	fx.llm.push("business", nil)
	ctx := context.Background()

	_, err := fx.svc.ProcessMessage(ctx, "s1", "tạo hồ sơ")
	require.NoError(t, err)
	classifierCalls := fx.llm.calls()

	// A free-text answer while the form is collecting never reaches the
	// classifier or the generation backend.
	resp, err := fx.svc.ProcessMessage(ctx, "s1", "Công ty TNHH ABC")
	require.NoError(t, err)

	assert.Equal(t, classifierCalls, fx.llm.calls())
	assert.True(t, resp.FormActive)
	assert.Equal(t, "von_dieu_le", resp.CurrentField)
	assert.Equal(t, "1/4", resp.Progress)
	assert.Contains(t, resp.Message, "Đã lưu")

	stored, _ := fx.repo.Load(ctx, "s1")
	assert.Equal(t, "Công ty TNHH ABC", stored.Form.Values["ten_cong_ty"])
}

func TestChatServiceFormCompletion(t *testing.T) {
	fx := newChatFixture(t, nil)
	fx.llm.push("business", nil)
	ctx := context.Background()

	_, err := fx.svc.ProcessMessage(ctx, "s1", "tạo hồ sơ giúp tôi")
	require.NoError(t, err)

	answers := []string{"Công ty TNHH ABC", "1.000.000.000", "30/01/2021", "TNHH"}
	var resp *core.ChatResponse
	for _, a := range answers {
		resp, err = fx.svc.ProcessMessage(ctx, "s1", a)
		require.NoError(t, err)
	}

	// Last required answer produced the confirmation summary.
	assert.True(t, resp.FormActive)
	assert.Equal(t, "4/4", resp.Progress)
	assert.Contains(t, resp.Message, "Công ty TNHH ABC")
	assert.Contains(t, resp.Message, "xác nhận")

	resp, err = fx.svc.ProcessMessage(ctx, "s1", "xác nhận")
	require.NoError(t, err)

	assert.False(t, resp.FormActive)
	assert.Equal(t, map[string]string{
		"ten_cong_ty":    "Công ty TNHH ABC",
		"von_dieu_le":    "1.000.000.000",
		"ngay_thanh_lap": "30/01/2021",
		"loai_hinh":      "TNHH",
	}, resp.CollectedData)

	stored, _ := fx.repo.Load(ctx, "s1")
	assert.Nil(t, stored.Form, "a completed session is not persisted")
}

func TestChatServiceFormInvalidAnswer(t *testing.T) {
	fx := newChatFixture(t, nil)
	fx.llm.push("business", nil)
	ctx := context.Background()

	_, err := fx.svc.ProcessMessage(ctx, "s1", "tạo hồ sơ")
	require.NoError(t, err)
	_, err = fx.svc.ProcessMessage(ctx, "s1", "Công ty TNHH ABC")
	require.NoError(t, err)

	resp, err := fx.svc.ProcessMessage(ctx, "s1", "mười tỷ đồng")
	require.NoError(t, err)

	assert.True(t, resp.FormActive)
	assert.Equal(t, "von_dieu_le", resp.CurrentField, "an invalid answer never advances the cursor")
	assert.Equal(t, "1/4", resp.Progress)
	assert.Contains(t, resp.Message, "Vui lòng nhập lại")
}

func TestChatServiceFormCancel(t *testing.T) {
	fx := newChatFixture(t, nil)
	fx.llm.push("business", nil)
	ctx := context.Background()

	_, err := fx.svc.ProcessMessage(ctx, "s1", "tạo hồ sơ")
	require.NoError(t, err)

	resp, err := fx.svc.ProcessMessage(ctx, "s1", "hủy")
	require.NoError(t, err)
	assert.Equal(t, core.FormCancelledReply, resp.Message)
	assert.False(t, resp.FormActive)

	stored, _ := fx.repo.Load(ctx, "s1")
	assert.Nil(t, stored.Form)

	// The next message is classified again.
	fx.llm.push("general", nil)
	fx.llm.push("Quy trình gồm các bước sau.", nil)
	resp, err = fx.svc.ProcessMessage(ctx, "s1", "quy trình thành lập công ty?")
	require.NoError(t, err)
	assert.Equal(t, core.IntentGeneral, resp.Intent)
}

func TestChatServiceFormEditFromConfirmation(t *testing.T) {
	fx := newChatFixture(t, nil)
	fx.llm.push("business", nil)
	ctx := context.Background()

	_, err := fx.svc.ProcessMessage(ctx, "s1", "tạo hồ sơ")
	require.NoError(t, err)
	for _, a := range []string{"Công ty TNHH ABC", "1.000.000", "30/01/2021", "TNHH"} {
		_, err = fx.svc.ProcessMessage(ctx, "s1", a)
		require.NoError(t, err)
	}

	resp, err := fx.svc.ProcessMessage(ctx, "s1", "sửa vốn điều lệ")
	require.NoError(t, err)
	assert.True(t, resp.FormActive)
	assert.Equal(t, "von_dieu_le", resp.CurrentField)
	assert.Equal(t, "3/4", resp.Progress)

	resp, err = fx.svc.ProcessMessage(ctx, "s1", "2.000.000")
	require.NoError(t, err)
	assert.Equal(t, "4/4", resp.Progress)
	assert.Contains(t, resp.Message, "2.000.000")
}

func TestChatServiceLegalIntent(t *testing.T) {
	vectorStore := &stubVectorStore{candidates: []core.ScoredChunk{
		{Chunk: core.DocumentChunk{
			ID:      "c1",
			Content: "Hồ sơ đăng ký công ty trách nhiệm hữu hạn gồm...",
			Metadata: core.ChunkMetadata{
				DocumentType:   "Luật",
				DocumentNumber: "59/2020/QH14",
				ArticleCode:    "dieu_21",
				ChunkTitle:     "Điều 21. Hồ sơ đăng ký công ty TNHH",
			},
		}, Similarity: 0.92},
	}}
	fx := newChatFixture(t, vectorStore)
	fx.llm.push("legal", nil)
	fx.llm.push("Theo Điều 21 [1], hồ sơ gồm giấy đề nghị đăng ký doanh nghiệp và điều lệ công ty.", nil)

	resp, err := fx.svc.ProcessMessage(context.Background(), "s1", "Điều 21 Luật Doanh nghiệp quy định gì?")
	require.NoError(t, err)

	assert.Equal(t, core.IntentLegal, resp.Intent)
	require.Len(t, resp.Citations, 1)
	assert.Equal(t, "59/2020/QH14", resp.Citations[0].DocumentNumber)
	assert.Equal(t, "dieu_21", resp.Citations[0].ArticleCode)
	assert.Contains(t, resp.Message, "Nguồn tham khảo")
	assert.Contains(t, resp.Message, "59/2020/QH14")

	// The grounded prompt carried the chunk content.
	require.Equal(t, 2, fx.llm.calls())
	assert.True(t, strings.Contains(fx.llm.prompts[1], "Hồ sơ đăng ký công ty trách nhiệm hữu hạn"))
}

func TestChatServiceLegalNoSources(t *testing.T) {
	fx := newChatFixture(t, nil) // empty corpus
	fx.llm.push("legal", nil)

	resp, err := fx.svc.ProcessMessage(context.Background(), "s1", "Điều 999 quy định gì?")
	require.NoError(t, err)

	assert.Equal(t, core.NoSourceReply, resp.Message)
	assert.Empty(t, resp.Citations)
	assert.NotNil(t, resp.Citations, "citations serialize as [], not null")
	// No generation call happens without sources.
	assert.Equal(t, 1, fx.llm.calls())
}

func TestChatServiceGenerationFailureDegrades(t *testing.T) {
	vectorStore := &stubVectorStore{candidates: []core.ScoredChunk{
		{Chunk: core.DocumentChunk{ID: "c1", Content: "nội dung"}, Similarity: 0.9},
	}}
	fx := newChatFixture(t, vectorStore)
	fx.llm.push("legal", nil)
	// MaxRetries=1 means the failing call runs twice before degrading.
	fx.llm.push("", core.ErrGenerationUnavailable)
	fx.llm.push("", core.ErrGenerationUnavailable)

	resp, err := fx.svc.ProcessMessage(context.Background(), "s1", "Điều 21 quy định gì?")
	require.NoError(t, err, "backend failure degrades the reply, never the request")

	assert.Equal(t, core.DegradedReply, resp.Message)
	assert.Empty(t, resp.Citations)
	assert.Equal(t, 3, fx.llm.calls())

	// The degraded turn is still persisted.
	stored, _ := fx.repo.Load(context.Background(), "s1")
	require.Len(t, stored.Messages, 2)
	assert.Equal(t, core.DegradedReply, stored.Messages[1].Content)
}

func TestChatServiceClassifierFailureFallsBackToGeneral(t *testing.T) {
	fx := newChatFixture(t, nil)
	fx.llm.push("", core.ErrGenerationUnavailable)
	fx.llm.push("Bạn cần chuẩn bị giấy tờ tùy thân và vốn điều lệ.", nil)

	resp, err := fx.svc.ProcessMessage(context.Background(), "s1", "cần gì để mở công ty?")
	require.NoError(t, err)
	assert.Equal(t, core.IntentGeneral, resp.Intent)
}

func TestChatServicePersistenceFailureDiscardsTurn(t *testing.T) {
	fx := newChatFixture(t, nil)
	fx.llm.push("business", nil)
	ctx := context.Background()

	_, err := fx.svc.ProcessMessage(ctx, "s1", "tạo hồ sơ")
	require.NoError(t, err)

	fx.repo.failSave = true
	_, err = fx.svc.ProcessMessage(ctx, "s1", "Công ty TNHH ABC")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrPersistence)

	// Durable state is the pre-turn snapshot.
	stored, _ := fx.repo.Load(ctx, "s1")
	assert.Len(t, stored.Messages, 2)
	assert.Equal(t, "ten_cong_ty", stored.Form.Cursor)
	assert.Empty(t, stored.Form.Values)

	// Retrying the same message replays cleanly.
	fx.repo.failSave = false
	resp, err := fx.svc.ProcessMessage(ctx, "s1", "Công ty TNHH ABC")
	require.NoError(t, err)
	assert.Equal(t, "von_dieu_le", resp.CurrentField)

	stored, _ = fx.repo.Load(ctx, "s1")
	assert.Equal(t, "Công ty TNHH ABC", stored.Form.Values["ten_cong_ty"])
	assert.Len(t, stored.Messages, 4)
}

func TestChatServiceHistoryAndReset(t *testing.T) {
	fx := newChatFixture(t, nil)
	ctx := context.Background()

	_, err := fx.svc.History(ctx, "chưa tồn tại")
	assert.ErrorIs(t, err, core.ErrConversationNotFound)

	fx.llm.push("general", nil)
	fx.llm.push("Chào bạn!", nil)
	_, err = fx.svc.ProcessMessage(ctx, "s1", "xin chào")
	require.NoError(t, err)

	messages, err := fx.svc.History(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "xin chào", messages[0].Content)
	assert.Equal(t, "Chào bạn!", messages[1].Content)

	require.NoError(t, fx.svc.Reset(ctx, "s1"))
	_, err = fx.svc.History(ctx, "s1")
	assert.ErrorIs(t, err, core.ErrConversationNotFound)
}
