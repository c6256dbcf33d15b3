package core_test

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/rato-kaz/vietnamese-business-rag-chatbot/internal/core"
)

// scriptedLLM replies from a fixed queue and records every prompt.
type scriptedLLM struct {
	mu      sync.Mutex
	replies []string
	errs    []error
	prompts []string
}

func (f *scriptedLLM) push(reply string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies = append(f.replies, reply)
	f.errs = append(f.errs, err)
}

func (f *scriptedLLM) Complete(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	if len(f.replies) == 0 {
		return "", fmt.Errorf("scriptedLLM: no reply queued for prompt %.60q", prompt)
	}
	reply, err := f.replies[0], f.errs[0]
	f.replies, f.errs = f.replies[1:], f.errs[1:]
	return reply, err
}

func (f *scriptedLLM) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

// stubEmbedder returns the same vector for every text.
type stubEmbedder struct {
	vector []float32
	err    error
}

func (f *stubEmbedder) Embed(context.Context, string) ([]float32, error) {
	return f.vector, f.err
}

// stubVectorStore serves a preset candidate list and records how it
// was queried.
type stubVectorStore struct {
	candidates []core.ScoredChunk
	err        error

	gotTopK   int
	gotFilter *core.ChunkFilter
}

func (f *stubVectorStore) Query(_ context.Context, _ []float32, topK int, filter *core.ChunkFilter) ([]core.ScoredChunk, error) {
	f.gotTopK = topK
	f.gotFilter = filter
	if f.err != nil {
		return nil, f.err
	}
	return f.candidates, nil
}

// stubReranker scores by chunk id; unknown ids get zero.
type stubReranker struct {
	scores map[string]float64
	err    error
}

func (f *stubReranker) Score(_ context.Context, _ string, chunkText string) (float64, error) {
	if f.err != nil {
		return 0, f.err
	}
	for id, score := range f.scores {
		if strings.Contains(chunkText, id) {
			return score, nil
		}
	}
	return 0, nil
}

// fakeRepo is an in-memory ConversationRepository whose Save can be
// made to fail.
type fakeRepo struct {
	mu       sync.Mutex
	stored   map[string]*core.Conversation
	failSave bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{stored: make(map[string]*core.Conversation)}
}

func (f *fakeRepo) Load(_ context.Context, id string) (*core.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	conv, ok := f.stored[id]
	if !ok {
		return nil, nil
	}
	return conv.Clone(), nil
}

func (f *fakeRepo) Save(_ context.Context, conv *core.Conversation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSave {
		return fmt.Errorf("disk full")
	}
	f.stored[conv.ID] = conv.Clone()
	return nil
}

func (f *fakeRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.stored, id)
	return nil
}

// stubTemplates serves templates from a slice.
type stubTemplates struct {
	list []*core.FormTemplate
}

func (f *stubTemplates) Get(name string) (*core.FormTemplate, error) {
	for _, t := range f.list {
		if t.Name == name {
			return t, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", core.ErrTemplateNotFound, name)
}

func (f *stubTemplates) List() []*core.FormTemplate {
	return f.list
}

// companyTemplate is the template used across orchestrator and form
// tests: one field of each type plus an optional field.
func companyTemplate() *core.FormTemplate {
	return &core.FormTemplate{
		Name:        "dang_ky_cong_ty",
		DisplayName: "Đăng ký công ty",
		Fields: []core.FormField{
			{Name: "ten_cong_ty", DisplayName: "Tên công ty", Type: core.FieldText, Required: true, Help: "Tên đầy đủ của công ty"},
			{Name: "von_dieu_le", DisplayName: "Vốn điều lệ", Type: core.FieldNumber, Required: true},
			{Name: "ngay_thanh_lap", DisplayName: "Ngày thành lập", Type: core.FieldDate, Required: true},
			{Name: "loai_hinh", DisplayName: "Loại hình", Type: core.FieldEnum, Required: true, Options: []string{"TNHH", "Cổ phần"}},
			{Name: "email", DisplayName: "Email", Type: core.FieldText, Pattern: `^\S+@\S+\.\S+$`},
		},
	}
}

// validAnswer produces an input that passes validation for a field.
func validAnswer(f core.FormField) string {
	switch f.Type {
	case core.FieldNumber:
		return "1.000.000"
	case core.FieldDate:
		return "02/03/1990"
	case core.FieldEnum:
		return f.Options[0]
	default:
		if f.Pattern != "" {
			return "123456789"
		}
		return "Công ty TNHH Một Mình Tôi"
	}
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}
