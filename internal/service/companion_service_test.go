package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"sarathi-be/internal/dto"
	"sarathi-be/internal/entity"
	"sarathi-be/internal/repository/contract"
	"sarathi-be/pkg/embedding"
	"sarathi-be/pkg/flow"
	"sarathi-be/pkg/llm"
	"sarathi-be/pkg/rag/query"
	"sarathi-be/pkg/rag/rerank"
	"sarathi-be/pkg/rag/search"
	"sarathi-be/pkg/safety"
	"sarathi-be/pkg/session"
	"sarathi-be/pkg/signal"
	"sarathi-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Debug(string, string, map[string]interface{}) {}
func (nopLogger) Info(string, string, map[string]interface{})  {}
func (nopLogger) Warn(string, string, map[string]interface{})  {}
func (nopLogger) Error(string, string, map[string]interface{}) {}
func (nopLogger) Sync() error                                  { return nil }

type fakeEmbedder struct{}

func (fakeEmbedder) Generate(_ context.Context, _ string, _ string) (*embedding.EmbeddingResponse, error) {
	return &embedding.EmbeddingResponse{
		Embedding: embedding.EmbeddingResponseEmbedding{Values: []float32{0.1, 0.2, 0.3}},
	}, nil
}

type fakePassageRepo struct {
	semantic []*contract.ScoredPassage
	keyword  []*contract.ScoredPassage
	kwErr    error
}

func (f *fakePassageRepo) Create(context.Context, *entity.Passage) error       { return nil }
func (f *fakePassageRepo) CreateBulk(context.Context, []*entity.Passage) error { return nil }
func (f *fakePassageRepo) FindByRefKey(context.Context, string) (*entity.Passage, error) {
	return nil, nil
}
func (f *fakePassageRepo) Count(context.Context) (int64, error) { return int64(len(f.semantic)), nil }
func (f *fakePassageRepo) SemanticSearch(context.Context, []float32, int, []string) ([]*contract.ScoredPassage, error) {
	return f.semantic, nil
}
func (f *fakePassageRepo) KeywordSearch(context.Context, string, int, []string) ([]*contract.ScoredPassage, error) {
	if f.kwErr != nil {
		return nil, f.kwErr
	}
	return f.keyword, nil
}

type fakeLLM struct {
	reply string
	err   error
	calls int
}

func (f *fakeLLM) Chat(_ context.Context, _ []llm.Message, _ ...llm.Option) (string, error) {
	f.calls++
	return f.reply, f.err
}

func (f *fakeLLM) Generate(_ context.Context, _ string, _ ...llm.Option) (string, error) {
	f.calls++
	return f.reply, f.err
}

type fakeReranker struct {
	scores []rerank.Score
	err    error
}

func (f *fakeReranker) Rerank(_ context.Context, _ string, _ []store.RetrievalCandidate) ([]rerank.Score, error) {
	return f.scores, f.err
}

func scoredPassage(refKey, collection, text string, score float64) *contract.ScoredPassage {
	return &contract.ScoredPassage{
		Passage: &entity.Passage{RefKey: refKey, Collection: collection, Text: text},
		Score:   score,
	}
}

func newTestService(sessions session.Store, repo contract.PassageRepository, model llm.LLMProvider, rr rerank.Reranker) ICompanionService {
	return NewCompanionService(
		sessions,
		repo,
		fakeEmbedder{},
		model,
		rr,
		safety.NewDetector(nil, nil, nil),
		signal.NewExtractor(0.2, nil),
		flow.NewMachine(flow.Config{}),
		query.NewExpander(nil, 3),
		search.Config{CallTimeout: time.Second},
		rerank.Config{},
		nil,
		"TURN_PROCESSED",
		nil,
		nil,
		nopLogger{},
	)
}

func seedSession(t *testing.T, sessions session.Store, sess *store.Session) {
	t.Helper()
	require.NoError(t, sessions.Put(context.Background(), sess))
}

func TestChatCrisisShortCircuitLeavesSessionUntouched(t *testing.T) {
	sessions := session.NewMemoryStore(time.Hour)
	sess := store.NewSession("sess-crisis")
	sess.Phase = store.PhaseGuidance
	sess.TurnCount = 4
	sess.Signals["emotional_state"] = store.Signal{Key: "emotional_state", Value: "sadness", Confidence: 0.8}
	seedSession(t, sessions, sess)
	versionBefore := sess.Version

	model := &fakeLLM{reply: "should never be used"}
	svc := newTestService(sessions, &fakePassageRepo{}, model, &fakeReranker{})

	resp, err := svc.Chat(context.Background(), &dto.ChatRequest{
		SessionId: "sess-crisis",
		Message:   "I want to end it all",
	})
	require.NoError(t, err)

	assert.Equal(t, safety.CrisisResponse(), resp.Response)
	assert.Equal(t, "guidance", resp.Phase)
	assert.Equal(t, 4, resp.TurnCount)
	assert.Equal(t, "crisis_support", resp.FlowMetadata.GuidanceType)
	assert.Equal(t, 0, model.calls, "crisis path must never reach the model")

	stored, err := sessions.Get(context.Background(), "sess-crisis")
	require.NoError(t, err)
	assert.Equal(t, versionBefore, stored.Version, "crisis turn must not commit")
	assert.Equal(t, 4, stored.TurnCount)
	assert.Empty(t, stored.Turns)
}

func TestChatFirstTurnStartsSessionAndListens(t *testing.T) {
	sessions := session.NewMemoryStore(time.Hour)
	model := &fakeLLM{reply: "That sounds heavy. What has been hardest about it?"}
	svc := newTestService(sessions, &fakePassageRepo{}, model, &fakeReranker{})

	resp, err := svc.Chat(context.Background(), &dto.ChatRequest{
		Message:  "I feel sad lately",
		Language: "en",
		UserProfile: &dto.UserProfileDTO{
			Name: "Asha",
		},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.SessionId)
	assert.Equal(t, 1, resp.TurnCount)
	assert.Empty(t, resp.Citations)
	assert.Contains(t, resp.Response, "hardest")
	assert.Equal(t, "sadness", resp.SignalsCollected["emotional_state"])
	assert.Equal(t, "listening", resp.Phase)

	stored, err := sessions.Get(context.Background(), resp.SessionId)
	require.NoError(t, err)
	assert.Len(t, stored.Turns, 2)
	require.NotNil(t, stored.Profile)
	assert.Equal(t, "Asha", stored.Profile.Name)
}

func TestChatAnswersWithCitationsAfterEnoughSignals(t *testing.T) {
	sessions := session.NewMemoryStore(time.Hour)
	sess := store.NewSession("sess-answer")
	sess.Phase = store.PhaseClarification
	sess.TurnCount = 2
	sess.Signals["emotional_state"] = store.Signal{Key: "emotional_state", Value: "sadness", Confidence: 0.8}
	sess.Signals["life_area"] = store.Signal{Key: "life_area", Value: "work", Confidence: 0.8}
	sess.Signals["domain"] = store.Signal{Key: "domain", Value: "work", Confidence: 0.7}
	seedSession(t, sessions, sess)

	repo := &fakePassageRepo{
		semantic: []*contract.ScoredPassage{
			scoredPassage("BG 2.47", "Bhagavad Gita", "You have a right to action alone.", 0.92),
		},
		keyword: []*contract.ScoredPassage{
			scoredPassage("BG 2.47", "Bhagavad Gita", "You have a right to action alone.", 0.5),
		},
	}
	model := &fakeLLM{reply: `Your duty is yours alone. [VERSE]"You have a right to action alone."[/VERSE] (ref: BG 2.47) Focus on the effort, not the fruit. [TYPE]guidance[/TYPE]`}
	rr := &fakeReranker{scores: []rerank.Score{{RefKey: "BG 2.47", Relevance: 0.9}}}

	svc := newTestService(sessions, repo, model, rr)

	resp, err := svc.Chat(context.Background(), &dto.ChatRequest{
		SessionId: "sess-answer",
		Message:   "What should I do about all this pressure?",
	})
	require.NoError(t, err)

	assert.Equal(t, "guidance", resp.Phase)
	assert.Equal(t, 3, resp.TurnCount)
	assert.Equal(t, []string{"BG 2.47"}, resp.Citations)
	require.Len(t, resp.Verses, 1)
	assert.Contains(t, resp.Verses[0], "right to action alone")
	require.Len(t, resp.Sources, 1)
	assert.Equal(t, "Bhagavad Gita", resp.Sources[0].Scripture)
	assert.NotContains(t, resp.Response, "[VERSE]")
	assert.NotContains(t, resp.Response, "(ref:")
	assert.False(t, resp.FlowMetadata.RetrievalDegraded)
	assert.False(t, resp.FlowMetadata.RerankDegraded)
}

func TestChatResistanceRegressesGuidanceToListening(t *testing.T) {
	sessions := session.NewMemoryStore(time.Hour)
	sess := store.NewSession("sess-resist")
	sess.Phase = store.PhaseGuidance
	sess.TurnCount = 5
	seedSession(t, sessions, sess)

	model := &fakeLLM{reply: "I hear you. Let's start over, tell me what is really going on."}
	svc := newTestService(sessions, &fakePassageRepo{}, model, &fakeReranker{})

	resp, err := svc.Chat(context.Background(), &dto.ChatRequest{
		SessionId: "sess-resist",
		Message:   "that doesn't help me at all",
	})
	require.NoError(t, err)

	assert.Equal(t, "listening", resp.Phase)
	assert.Equal(t, 6, resp.TurnCount)
	assert.Empty(t, resp.Citations)
}

func TestChatKeywordChannelDownDegradesNotFails(t *testing.T) {
	sessions := session.NewMemoryStore(time.Hour)
	sess := store.NewSession("sess-degraded")
	sess.Phase = store.PhaseClarification
	sess.TurnCount = 2
	sess.Signals["emotional_state"] = store.Signal{Key: "emotional_state", Value: "anxiety", Confidence: 0.8}
	sess.Signals["life_area"] = store.Signal{Key: "life_area", Value: "family", Confidence: 0.8}
	sess.Signals["domain"] = store.Signal{Key: "domain", Value: "family", Confidence: 0.7}
	seedSession(t, sessions, sess)

	repo := &fakePassageRepo{
		semantic: []*contract.ScoredPassage{
			scoredPassage("BG 18.66", "Bhagavad Gita", "Abandon all varieties of duty and surrender.", 0.9),
		},
		kwErr: errors.New("fts unavailable"),
	}
	model := &fakeLLM{reply: `Surrender what you cannot carry. (ref: BG 18.66) [TYPE]guidance[/TYPE]`}
	rr := &fakeReranker{scores: []rerank.Score{{RefKey: "BG 18.66", Relevance: 0.8}}}

	svc := newTestService(sessions, repo, model, rr)

	resp, err := svc.Chat(context.Background(), &dto.ChatRequest{
		SessionId: "sess-degraded",
		Message:   "I cannot hold everything together anymore",
	})
	require.NoError(t, err)

	assert.Equal(t, "guidance", resp.Phase)
	assert.True(t, resp.FlowMetadata.RetrievalDegraded)
	assert.Equal(t, []string{"BG 18.66"}, resp.Citations)
}

func TestChatGenerationFailureRollsBackPhase(t *testing.T) {
	sessions := session.NewMemoryStore(time.Hour)
	sess := store.NewSession("sess-genfail")
	sess.Phase = store.PhaseClarification
	sess.TurnCount = 2
	sess.Signals["emotional_state"] = store.Signal{Key: "emotional_state", Value: "sadness", Confidence: 0.8}
	sess.Signals["life_area"] = store.Signal{Key: "life_area", Value: "work", Confidence: 0.8}
	sess.Signals["domain"] = store.Signal{Key: "domain", Value: "work", Confidence: 0.7}
	seedSession(t, sessions, sess)

	repo := &fakePassageRepo{
		semantic: []*contract.ScoredPassage{
			scoredPassage("BG 2.47", "Bhagavad Gita", "You have a right to action alone.", 0.9),
		},
	}
	model := &fakeLLM{err: errors.New("model timeout")}
	svc := newTestService(sessions, repo, model, &fakeReranker{scores: []rerank.Score{{RefKey: "BG 2.47", Relevance: 0.9}}})

	resp, err := svc.Chat(context.Background(), &dto.ChatRequest{
		SessionId: "sess-genfail",
		Message:   "please just tell me what to do",
	})
	require.NoError(t, err)

	assert.Equal(t, generationApology, resp.Response)
	assert.Equal(t, "clarification", resp.Phase, "failed synthesis must not advance the phase")
	assert.Equal(t, 3, resp.TurnCount, "an attempted turn is still a turn")
	assert.Empty(t, resp.Citations)
}

func TestChatSupportResourcesOfferedOnce(t *testing.T) {
	sessions := session.NewMemoryStore(time.Hour)
	model := &fakeLLM{reply: "Recovery takes courage. What led you here today?"}
	svc := newTestService(sessions, &fakePassageRepo{}, model, &fakeReranker{})

	first, err := svc.Chat(context.Background(), &dto.ChatRequest{
		Message: "I am struggling with addiction",
	})
	require.NoError(t, err)
	assert.Contains(t, first.Response, "Alcoholics Anonymous")

	second, err := svc.Chat(context.Background(), &dto.ChatRequest{
		SessionId: first.SessionId,
		Message:   "the addiction is getting worse",
	})
	require.NoError(t, err)
	assert.NotContains(t, second.Response, "Alcoholics Anonymous", "resource block is appended once per session")
}

type conflictStore struct {
	base *store.Session
}

func (c *conflictStore) Get(_ context.Context, id string) (*store.Session, error) {
	if c.base == nil || c.base.ID != id {
		return nil, session.ErrNotFound
	}
	return c.base.Clone(), nil
}

func (c *conflictStore) Put(context.Context, *store.Session) error {
	return session.ErrVersionConflict
}

func (c *conflictStore) Delete(context.Context, string) error { return nil }

func TestChatConflictAfterRetrySurfacesBusy(t *testing.T) {
	base := store.NewSession("sess-conflict")
	base.Version = 3
	sessions := &conflictStore{base: base}

	model := &fakeLLM{reply: "tell me more"}
	svc := newTestService(sessions, &fakePassageRepo{}, model, &fakeReranker{})

	_, err := svc.Chat(context.Background(), &dto.ChatRequest{
		SessionId: "sess-conflict",
		Message:   "hello there",
	})
	require.ErrorIs(t, err, ErrSessionBusy)
}

func TestChatUnknownSessionStartsFresh(t *testing.T) {
	sessions := session.NewMemoryStore(time.Hour)
	model := &fakeLLM{reply: "welcome, what brings you here?"}
	svc := newTestService(sessions, &fakePassageRepo{}, model, &fakeReranker{})

	resp, err := svc.Chat(context.Background(), &dto.ChatRequest{
		SessionId: "never-seen-before",
		Message:   "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, "never-seen-before", resp.SessionId)
	assert.Equal(t, 1, resp.TurnCount)
}

type chanMailer struct {
	sent chan string
}

func (m chanMailer) SendSafetyAlert(sessionID, category string) error {
	m.sent <- sessionID
	return nil
}

func TestChatCrisisMailsDirectlyWhenBusUnavailable(t *testing.T) {
	sessions := session.NewMemoryStore(time.Hour)
	mail := chanMailer{sent: make(chan string, 1)}
	model := &fakeLLM{reply: "should never be used"}
	svc := NewCompanionService(
		sessions,
		&fakePassageRepo{},
		fakeEmbedder{},
		model,
		&fakeReranker{},
		safety.NewDetector(nil, nil, nil),
		signal.NewExtractor(0.2, nil),
		flow.NewMachine(flow.Config{}),
		query.NewExpander(nil, 3),
		search.Config{CallTimeout: time.Second},
		rerank.Config{},
		nil,
		"TURN_PROCESSED",
		nil,
		mail,
		nopLogger{},
	)

	_, err := svc.Chat(context.Background(), &dto.ChatRequest{
		Message: "I want to end it all",
	})
	require.NoError(t, err)

	select {
	case id := <-mail.sent:
		assert.NotEmpty(t, id)
	case <-time.After(time.Second):
		t.Fatal("expected a direct safety mail when no event bus is wired")
	}
}
