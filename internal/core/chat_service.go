package core

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ChatConfig struct {
	// TopK is the number of sources a legal answer is grounded in.
	TopK int
	// HistoryWindow bounds the messages passed as live context.
	HistoryWindow int
	// MaxRetries bounds retries of retrieval/generation calls before the
	// reply degrades.
	MaxRetries uint64
	// RetryInterval is the backoff between those retries.
	RetryInterval time.Duration
	// DefaultTemplate names the dossier started on a business intent.
	// Empty means the first template the repository lists.
	DefaultTemplate string
	// LegalDocumentTypes filters the vector store on the legal path.
	LegalDocumentTypes []string
	Commands           CommandSet
}

// ChatService is the orchestrator: it receives one message, routes it
// to the legal, business, or general path, and persists the updated
// conversation before replying. Each conversation id is serialized
// behind its own lock; distinct conversations proceed concurrently.
type ChatService struct {
	repo       ConversationRepository
	templates  TemplateRepository
	classifier *IntentClassifier
	retriever  *Retriever
	generator  *ResponseGenerator
	forms      *FormEngine
	cfg        ChatConfig
	logger     *zap.Logger

	sessionLocks sync.Map // conversation id -> *sync.Mutex
}

func NewChatService(
	repo ConversationRepository,
	templates TemplateRepository,
	classifier *IntentClassifier,
	retriever *Retriever,
	generator *ResponseGenerator,
	forms *FormEngine,
	cfg ChatConfig,
	logger *zap.Logger,
) *ChatService {
	if cfg.TopK <= 0 {
		cfg.TopK = 3
	}
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = 6
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = 500 * time.Millisecond
	}
	if len(cfg.Commands.CancelPhrases) == 0 {
		cfg.Commands = DefaultCommandSet()
	}
	return &ChatService{
		repo:       repo,
		templates:  templates,
		classifier: classifier,
		retriever:  retriever,
		generator:  generator,
		forms:      forms,
		cfg:        cfg,
		logger:     logger,
	}
}

// ProcessMessage is the single entry point for one user turn. The
// conversation mutation and its persistence form one logical unit: all
// changes happen on a clone, and a Save failure discards the turn so a
// retry replays against the last durable state.
func (s *ChatService) ProcessMessage(ctx context.Context, conversationID, text string) (*ChatResponse, error) {
	unlock := s.lockSession(conversationID)
	defer unlock()

	conv, err := s.repo.Load(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("%w: load: %v", ErrPersistence, err)
	}
	if conv == nil {
		conv = NewConversation(conversationID)
		s.logger.Info("conversation created", zap.String("conversation_id", conversationID))
	}

	work := conv.Clone()
	work.Append(Message{
		ID:        uuid.NewString(),
		Role:      RoleUser,
		Content:   text,
		Timestamp: time.Now(),
	})

	var resp *ChatResponse
	if work.Form.Collecting() {
		resp, err = s.formTurn(work, text)
	} else {
		resp, err = s.routeTurn(ctx, work, text)
	}
	if err != nil {
		return nil, err
	}

	work.Append(Message{
		ID:        uuid.NewString(),
		Role:      RoleAssistant,
		Content:   resp.Message,
		Intent:    resp.Intent,
		Citations: resp.Citations,
		Timestamp: time.Now(),
	})

	if err := s.repo.Save(ctx, work); err != nil {
		return nil, fmt.Errorf("%w: save: %v", ErrPersistence, err)
	}

	s.logger.Info("message processed",
		zap.String("conversation_id", conversationID),
		zap.String("intent", string(resp.Intent)),
		zap.Bool("form_active", resp.FormActive),
		zap.Int("citations", len(resp.Citations)))
	return resp, nil
}

// Reset deletes a conversation and any form session it owns.
func (s *ChatService) Reset(ctx context.Context, conversationID string) error {
	unlock := s.lockSession(conversationID)
	defer unlock()

	if err := s.repo.Delete(ctx, conversationID); err != nil {
		return fmt.Errorf("%w: delete: %v", ErrPersistence, err)
	}
	return nil
}

// History returns the full stored message history of a conversation.
func (s *ChatService) History(ctx context.Context, conversationID string) ([]Message, error) {
	conv, err := s.repo.Load(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("%w: load: %v", ErrPersistence, err)
	}
	if conv == nil {
		return nil, ErrConversationNotFound
	}
	return conv.Messages, nil
}

func (s *ChatService) lockSession(id string) func() {
	v, _ := s.sessionLocks.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// routeTurn classifies the message and dispatches it. The intent set is
// closed; the default arm only guards against an invalid classifier
// result.
func (s *ChatService) routeTurn(ctx context.Context, work *Conversation, text string) (*ChatResponse, error) {
	recent := work.Context(s.cfg.HistoryWindow)
	intent, confidence := s.classifier.Classify(ctx, text, recent)
	s.logger.Debug("intent classified",
		zap.String("conversation_id", work.ID),
		zap.String("intent", string(intent)),
		zap.Float64("confidence", confidence))

	switch intent {
	case IntentLegal:
		return s.legalTurn(ctx, work, text)
	case IntentBusiness:
		return s.startFormTurn(work)
	case IntentGeneral:
		return s.generalTurn(ctx, work, text)
	default:
		return s.generalTurn(ctx, work, text)
	}
}

// legalTurn runs retrieval + grounded generation. Backend failures get
// one bounded retry and then degrade to a service-unavailable reply;
// the request itself never fails.
func (s *ChatService) legalTurn(ctx context.Context, work *Conversation, query string) (*ChatResponse, error) {
	filter := &ChunkFilter{DocumentTypes: s.cfg.LegalDocumentTypes}

	var results []RetrievalResult
	err := s.withRetry(ctx, func() error {
		var serr error
		results, serr = s.retriever.Search(ctx, query, s.cfg.TopK, filter)
		return serr
	})
	if err != nil {
		s.logger.Warn("retrieval unavailable, degrading reply",
			zap.String("conversation_id", work.ID), zap.Error(err))
		return &ChatResponse{Message: DegradedReply, Intent: IntentLegal, Citations: []Citation{}}, nil
	}

	var answer string
	err = s.withRetry(ctx, func() error {
		var gerr error
		answer, gerr = s.generator.LegalAnswer(ctx, query, work.Context(s.cfg.HistoryWindow), results)
		return gerr
	})
	if err != nil {
		s.logger.Warn("generation unavailable, degrading reply",
			zap.String("conversation_id", work.ID), zap.Error(err))
		return &ChatResponse{Message: DegradedReply, Intent: IntentLegal, Citations: []Citation{}}, nil
	}

	citations := CitationsFromResults(results)
	if citations == nil {
		citations = []Citation{}
	}
	return &ChatResponse{Message: answer, Intent: IntentLegal, Citations: citations}, nil
}

func (s *ChatService) generalTurn(ctx context.Context, work *Conversation, query string) (*ChatResponse, error) {
	var answer string
	err := s.withRetry(ctx, func() error {
		var gerr error
		answer, gerr = s.generator.GeneralAnswer(ctx, query, work.Context(s.cfg.HistoryWindow))
		return gerr
	})
	if err != nil {
		s.logger.Warn("generation unavailable, degrading reply",
			zap.String("conversation_id", work.ID), zap.Error(err))
		answer = DegradedReply
	}
	return &ChatResponse{Message: answer, Intent: IntentGeneral, Citations: []Citation{}}, nil
}

// startFormTurn opens a form session on a business intent. A missing
// template is a configuration error surfaced as an apology, not a
// failed request.
func (s *ChatService) startFormTurn(work *Conversation) (*ChatResponse, error) {
	name := s.cfg.DefaultTemplate
	if name == "" {
		if all := s.templates.List(); len(all) > 0 {
			name = all[0].Name
		}
	}

	session, tmpl, err := s.forms.Start(name)
	if err != nil {
		s.logger.Error("form start failed",
			zap.String("conversation_id", work.ID),
			zap.String("template", name),
			zap.Error(err))
		return &ChatResponse{Message: ApologyReply, Intent: IntentBusiness, Citations: []Citation{}}, nil
	}
	work.Form = session

	var message string
	if session.Status == FormAwaitingConfirmation {
		message = s.generator.FormConfirmation(tmpl, session)
	} else {
		field, _ := tmpl.Field(session.Cursor)
		message = s.generator.FormIntro(tmpl) + "\n\n" + s.generator.FormPrompt(field)
	}

	return &ChatResponse{
		Message:      message,
		Intent:       IntentBusiness,
		Citations:    []Citation{},
		FormActive:   true,
		CurrentField: session.Cursor,
		Progress:     s.progress(tmpl, session),
	}, nil
}

// formTurn handles a message while a form session owns the
// conversation. Classification is bypassed; only the recognized cancel
// command escapes the form.
func (s *ChatService) formTurn(work *Conversation, text string) (*ChatResponse, error) {
	session := work.Form

	tmpl, err := s.templates.Get(session.TemplateName)
	if err != nil {
		// The template vanished mid-session: abandon the form.
		s.logger.Error("form template lost mid-session",
			zap.String("conversation_id", work.ID),
			zap.String("template", session.TemplateName),
			zap.Error(err))
		work.Form = nil
		return &ChatResponse{Message: ApologyReply, Intent: IntentBusiness, Citations: []Citation{}}, nil
	}

	if s.cfg.Commands.IsCancel(text) {
		if _, err := s.forms.Cancel(session); err != nil {
			return nil, err
		}
		work.Form = nil
		return &ChatResponse{Message: FormCancelledReply, Intent: IntentBusiness, Citations: []Citation{}}, nil
	}

	switch session.Status {
	case FormActive:
		return s.formAnswerTurn(work, tmpl, text)
	case FormAwaitingConfirmation:
		return s.formConfirmTurn(work, tmpl, text)
	default:
		return nil, fmt.Errorf("%w: form turn in status %q", ErrInvalidTransition, session.Status)
	}
}

func (s *ChatService) formAnswerTurn(work *Conversation, tmpl *FormTemplate, text string) (*ChatResponse, error) {
	session := work.Form
	answered := session.Cursor

	next, verr, err := s.forms.SubmitAnswer(session, text)
	if err != nil {
		return nil, err
	}
	work.Form = next

	if verr != nil {
		field, _ := tmpl.Field(verr.Field)
		return &ChatResponse{
			Message:      s.generator.ValidationReply(field, verr),
			Intent:       IntentBusiness,
			Citations:    []Citation{},
			FormActive:   true,
			CurrentField: next.Cursor,
			Progress:     s.progress(tmpl, next),
		}, nil
	}

	if next.Status == FormAwaitingConfirmation {
		return &ChatResponse{
			Message:    s.generator.FormConfirmation(tmpl, next),
			Intent:     IntentBusiness,
			Citations:  []Citation{},
			FormActive: true,
			Progress:   s.progress(tmpl, next),
		}, nil
	}

	savedField, _ := tmpl.Field(answered)
	nextField, _ := tmpl.Field(next.Cursor)
	return &ChatResponse{
		Message:      s.generator.FieldSaved(savedField, nextField),
		Intent:       IntentBusiness,
		Citations:    []Citation{},
		FormActive:   true,
		CurrentField: next.Cursor,
		Progress:     s.progress(tmpl, next),
	}, nil
}

func (s *ChatService) formConfirmTurn(work *Conversation, tmpl *FormTemplate, text string) (*ChatResponse, error) {
	session := work.Form

	if s.cfg.Commands.IsConfirm(text) {
		completed, err := s.forms.Confirm(session)
		if err != nil {
			return nil, err
		}
		// Session destroyed on completion; collected values travel in
		// the response.
		work.Form = nil
		return &ChatResponse{
			Message:       s.generator.FormCompleted(tmpl),
			Intent:        IntentBusiness,
			Citations:     []Citation{},
			CollectedData: completed.Values,
		}, nil
	}

	if fieldName, ok := ParseEditRequest(text, tmpl); ok {
		next, err := s.forms.Edit(session, fieldName)
		if err != nil {
			return nil, err
		}
		work.Form = next
		field, _ := tmpl.Field(next.Cursor)
		return &ChatResponse{
			Message:      s.generator.FormPrompt(field),
			Intent:       IntentBusiness,
			Citations:    []Citation{},
			FormActive:   true,
			CurrentField: next.Cursor,
			Progress:     s.progress(tmpl, next),
		}, nil
	}

	// Anything else re-shows the summary with the expected commands.
	return &ChatResponse{
		Message:    s.generator.FormConfirmation(tmpl, session),
		Intent:     IntentBusiness,
		Citations:  []Citation{},
		FormActive: true,
		Progress:   s.progress(tmpl, session),
	}, nil
}

func (s *ChatService) progress(tmpl *FormTemplate, session *FormSession) string {
	required := tmpl.RequiredFields()
	if len(required) == 0 {
		return ""
	}
	answered := 0
	for _, f := range required {
		if _, ok := session.Values[f.Name]; ok {
			answered++
		}
	}
	return strconv.Itoa(answered) + "/" + strconv.Itoa(len(required))
}

// withRetry wraps a backend call with the configured bounded retry.
// Context cancellation stops retrying immediately.
func (s *ChatService) withRetry(ctx context.Context, op func() error) error {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(s.cfg.RetryInterval), s.cfg.MaxRetries),
		ctx,
	)
	return backoff.Retry(func() error {
		err := op()
		if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
			return backoff.Permanent(err)
		}
		return err
	}, policy)
}
