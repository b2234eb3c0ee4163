package service

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"sarathi-be/internal/dto"
	"sarathi-be/internal/pkg/logger"
	"sarathi-be/internal/pkg/mailer"
	"sarathi-be/internal/repository/contract"
	"sarathi-be/pkg/embedding"
	"sarathi-be/pkg/events"
	"sarathi-be/pkg/flow"
	"sarathi-be/pkg/llm"
	appnats "sarathi-be/pkg/nats"
	"sarathi-be/pkg/rag/prompt"
	"sarathi-be/pkg/rag/query"
	"sarathi-be/pkg/rag/rerank"
	"sarathi-be/pkg/rag/response"
	"sarathi-be/pkg/rag/search"
	"sarathi-be/pkg/safety"
	"sarathi-be/pkg/session"
	"sarathi-be/pkg/signal"
	"sarathi-be/pkg/store"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

// ErrSessionBusy surfaces a write race that survived the single retry.
// The caller should ask the client to resend the turn.
var ErrSessionBusy = errors.New("session is being updated, please retry")

const (
	listeningFallback = "Thank you for sharing that with me. Could you tell me a little more about what's been weighing on you?"

	generationApology = "I'm having trouble finding the right words just now. What you shared matters, please give me a moment and tell me once more."

	retrievalApology = "I hear you, and I want to respond thoughtfully. I'm having a little difficulty gathering my thoughts right now, could you share that with me again in a moment?"
)

type ICompanionService interface {
	Chat(ctx context.Context, request *dto.ChatRequest) (*dto.ChatResponse, error)
	GetSession(ctx context.Context, sessionId string) (*dto.GetSessionResponse, error)
	DeleteSession(ctx context.Context, request *dto.DeleteSessionRequest) error
}

type companionService struct {
	sessions    session.Store
	passageRepo contract.PassageRepository
	embedder    embedding.EmbeddingProvider
	llmProvider llm.LLMProvider
	reranker    rerank.Reranker

	detector  *safety.Detector
	softener  *safety.Softener
	extractor *signal.Extractor
	machine   *flow.Machine
	expander  *query.Expander

	searchCfg   search.Config
	rerankCfg   rerank.Config
	callTimeout time.Duration

	pubSub    *gochannel.GoChannel
	topicName string
	alerts    *appnats.Publisher
	mail      mailer.IEmailService
	logger    logger.ILogger
}

func NewCompanionService(
	sessions session.Store,
	passageRepo contract.PassageRepository,
	embedder embedding.EmbeddingProvider,
	llmProvider llm.LLMProvider,
	reranker rerank.Reranker,
	detector *safety.Detector,
	extractor *signal.Extractor,
	machine *flow.Machine,
	expander *query.Expander,
	searchCfg search.Config,
	rerankCfg rerank.Config,
	pubSub *gochannel.GoChannel,
	topicName string,
	alerts *appnats.Publisher,
	mail mailer.IEmailService,
	log logger.ILogger,
) ICompanionService {
	callTimeout := searchCfg.CallTimeout
	if callTimeout <= 0 {
		callTimeout = 10 * time.Second
	}
	return &companionService{
		sessions:    sessions,
		passageRepo: passageRepo,
		embedder:    embedder,
		llmProvider: llmProvider,
		reranker:    reranker,
		detector:    detector,
		softener:    safety.NewSoftener(),
		extractor:   extractor,
		machine:     machine,
		expander:    expander,
		searchCfg:   searchCfg,
		rerankCfg:   rerankCfg,
		callTimeout: callTimeout,
		pubSub:      pubSub,
		topicName:   topicName,
		alerts:      alerts,
		mail:        mail,
		logger:      log,
	}
}

// turnResult carries everything a processed turn produced before the
// session commit.
type turnResult struct {
	reply        string
	verses       []string
	citations    []string
	sources      []dto.SourceDTO
	phase        store.Phase
	guidanceType string
	final        bool
	retrievalDeg bool
	rerankDeg    bool
}

func (s *companionService) Chat(ctx context.Context, request *dto.ChatRequest) (*dto.ChatResponse, error) {
	sess := s.loadOrCreate(ctx, request.SessionId)

	// The crisis detector runs before everything else and its path never
	// touches the session: no signal merge, no turn append, no commit.
	if hit := s.detector.Check(request.Message); hit.Triggered {
		s.handleSafetyOverride(ctx, sess.ID, hit)
		return s.crisisResponse(sess), nil
	}

	work := sess.Clone()
	if work.TurnCount == 0 {
		applyProfile(work, request)
	}
	if request.Language != "" {
		work.Language = request.Language
	}

	extracted := s.extractor.Extract(request.Message, work)
	resistance := false
	for _, sig := range extracted {
		if sig.Key == store.SignalResistance {
			resistance = true
			break
		}
	}
	work.Signals = signal.Merge(work.Signals, extracted)

	prePhase := work.Phase
	decision := s.machine.Evaluate(work.Phase, work.Signals, resistance, work.TurnCount)
	support := s.detector.CheckSupportNeed(request.Message)

	var result turnResult
	if decision.Answer {
		result = s.answerTurn(ctx, work, request.Message, prePhase)
	} else {
		result = s.listenTurn(ctx, work, request.Message, decision.Next)
	}

	helpOffered := work.HelpOffered
	if support.Triggered && !helpOffered {
		result.reply += safety.SupportSuffix(support.Category)
		helpOffered = true
	}

	now := time.Now().UTC()
	userTurn := store.Turn{Role: "user", Text: request.Message, CreatedAt: now}
	assistantTurn := store.Turn{Role: "assistant", Text: result.reply, Citations: result.citations, CreatedAt: now}

	apply := func(t *store.Session) {
		if t.TurnCount == 0 {
			applyProfile(t, request)
		}
		if request.Language != "" {
			t.Language = request.Language
		}
		t.Signals = signal.Merge(t.Signals, extracted)
		t.Turns = append(t.Turns, userTurn, assistantTurn)
		t.TurnCount++
		t.Phase = result.phase
		t.HelpOffered = t.HelpOffered || helpOffered
		if result.final {
			t.IsComplete = true
		}
		t.UpdatedAt = now
	}

	committed, err := s.commit(ctx, sess, apply)
	if err != nil {
		return nil, err
	}

	s.publishTurnProcessed(committed, result)

	return s.buildChatResponse(committed, result), nil
}

func (s *companionService) GetSession(ctx context.Context, sessionId string) (*dto.GetSessionResponse, error) {
	sess, err := s.sessions.Get(ctx, sessionId)
	if err != nil {
		return nil, err
	}

	turns := make([]dto.TurnDTO, len(sess.Turns))
	for i, t := range sess.Turns {
		turns[i] = dto.TurnDTO{
			Role:      t.Role,
			Text:      t.Text,
			Citations: t.Citations,
			CreatedAt: t.CreatedAt,
		}
	}

	return &dto.GetSessionResponse{
		SessionId:        sess.ID,
		Phase:            string(sess.Phase),
		TurnCount:        sess.TurnCount,
		IsComplete:       sess.IsComplete,
		SignalsCollected: signalValues(sess.Signals),
		Turns:            turns,
		CreatedAt:        sess.CreatedAt,
		UpdatedAt:        sess.UpdatedAt,
	}, nil
}

func (s *companionService) DeleteSession(ctx context.Context, request *dto.DeleteSessionRequest) error {
	return s.sessions.Delete(ctx, request.SessionId)
}

// loadOrCreate resolves the session for this turn. An unknown or empty
// id transparently starts a fresh session instead of erroring.
func (s *companionService) loadOrCreate(ctx context.Context, sessionId string) *store.Session {
	if sessionId == "" {
		return store.NewSession(uuid.New().String())
	}
	sess, err := s.sessions.Get(ctx, sessionId)
	if err != nil {
		if !errors.Is(err, session.ErrNotFound) {
			s.logger.Warn("companion_service", "session load failed, starting fresh", map[string]interface{}{
				"session_id": sessionId,
				"error":      err.Error(),
			})
		}
		return store.NewSession(sessionId)
	}
	return sess
}

// listenTurn produces a conversational reply without retrieval. A
// generation failure here degrades to a fixed gentle question.
func (s *companionService) listenTurn(ctx context.Context, work *store.Session, message string, next store.Phase) turnResult {
	promptText := prompt.NewBuilder(work, message, next, nil).Build()

	reply, err := s.generate(ctx, promptText)
	if err != nil {
		s.logger.Warn("companion_service", "listening generation failed", map[string]interface{}{
			"session_id": work.ID,
			"error":      err.Error(),
		})
		reply = listeningFallback
	} else {
		reply = s.softener.Soften(response.Parse(reply, nil).Text)
	}

	return turnResult{
		reply:        reply,
		phase:        next,
		guidanceType: string(next),
	}
}

// answerTurn runs the full retrieval pipeline: expand, retrieve, rerank,
// compose, generate, parse. Failures roll the phase back so a degraded
// turn does not silently advance the conversation.
func (s *companionService) answerTurn(ctx context.Context, work *store.Session, message string, prePhase store.Phase) turnResult {
	queries := s.expander.Expand(ctx, message, work.Signals)
	collections := query.AllowedCollections(work.Signals)

	retriever := search.NewHybridRetriever(
		newSemanticSearcher(s.passageRepo, s.embedder, collections),
		newKeywordSearcher(s.passageRepo, collections),
		s.searchCfg,
	)

	candidates, deg, err := retriever.Retrieve(ctx, queries)
	if err != nil {
		s.logger.Error("companion_service", "all retrieval channels failed", map[string]interface{}{
			"session_id": work.ID,
			"error":      err.Error(),
		})
		return turnResult{
			reply:        retrievalApology,
			phase:        s.machine.Rollback(prePhase),
			guidanceType: "degraded",
			retrievalDeg: true,
		}
	}

	docs, rerankDeg := rerank.Apply(ctx, s.reranker, s.rerankCfg, message, candidates)

	promptText := prompt.NewBuilder(work, message, store.PhaseSynthesis, docs).Build()
	raw, err := s.generate(ctx, promptText)
	if err != nil {
		s.logger.Error("companion_service", "generation failed", map[string]interface{}{
			"session_id": work.ID,
			"error":      err.Error(),
		})
		return turnResult{
			reply:        generationApology,
			phase:        s.machine.Rollback(prePhase),
			guidanceType: "degraded",
			retrievalDeg: deg.Any(),
			rerankDeg:    rerankDeg,
		}
	}

	offered := make([]string, len(docs))
	byKey := make(map[string]store.ScoredDocument, len(docs))
	for i, d := range docs {
		offered[i] = d.RefKey
		byKey[d.RefKey] = d
	}

	parsed := response.Parse(raw, offered)
	reply := s.softener.Soften(parsed.Text)

	sources := make([]dto.SourceDTO, 0, len(parsed.Citations))
	for _, key := range parsed.Citations {
		d := byKey[key]
		sources = append(sources, dto.SourceDTO{
			Scripture:      d.Source.Collection,
			Reference:      d.RefKey,
			ContextText:    d.Text,
			RelevanceScore: d.Relevance,
		})
	}

	final := parsed.GuidanceType == "closure"
	return turnResult{
		reply:        reply,
		verses:       parsed.Verses,
		citations:    parsed.Citations,
		sources:      sources,
		phase:        s.machine.Advance(store.PhaseSynthesis, final),
		guidanceType: parsed.GuidanceType,
		final:        final,
		retrievalDeg: deg.Any(),
		rerankDeg:    rerankDeg,
	}
}

// generate calls the model with a per-call timeout and one bounded
// retry on transient failure.
func (s *companionService) generate(ctx context.Context, promptText string) (string, error) {
	call := func() (string, error) {
		c, cancel := context.WithTimeout(ctx, s.callTimeout)
		defer cancel()
		return s.llmProvider.Generate(c, promptText, llm.WithTemperature(0.7))
	}

	out, err := call()
	if err == nil || ctx.Err() != nil {
		return out, err
	}
	return call()
}

// commit writes the turn with an optimistic version check. A conflict
// re-reads the fresh state, reapplies the turn and tries exactly once
// more before surfacing ErrSessionBusy.
func (s *companionService) commit(ctx context.Context, sess *store.Session, apply func(*store.Session)) (*store.Session, error) {
	work := sess.Clone()
	apply(work)

	err := s.sessions.Put(ctx, work)
	if err == nil {
		return work, nil
	}
	if !errors.Is(err, session.ErrVersionConflict) {
		return nil, err
	}

	fresh, err := s.sessions.Get(ctx, sess.ID)
	if err != nil {
		return nil, ErrSessionBusy
	}
	retry := fresh.Clone()
	apply(retry)

	if err := s.sessions.Put(ctx, retry); err != nil {
		s.logger.Warn("companion_service", "session commit lost race twice", map[string]interface{}{
			"session_id": sess.ID,
		})
		return nil, ErrSessionBusy
	}
	return retry, nil
}

func (s *companionService) handleSafetyOverride(ctx context.Context, sessionId string, hit safety.Result) {
	s.logger.Warn("companion_service", "safety override triggered", map[string]interface{}{
		"session_id": sessionId,
		"category":   string(hit.Category),
	})

	// The durable alert consumer owns the ops email once the event is
	// on the bus; direct mail is the fallback when publishing fails or
	// NATS is not configured.
	if s.alerts != nil {
		err := s.alerts.Publish(ctx, events.NewSafetyOverride(sessionId, string(hit.Category)))
		if err == nil {
			return
		}
		s.logger.Error("companion_service", "failed to publish safety alert", map[string]interface{}{
			"session_id": sessionId,
			"error":      err.Error(),
		})
	}
	if s.mail != nil {
		go func() {
			if err := s.mail.SendSafetyAlert(sessionId, string(hit.Category)); err != nil {
				s.logger.Error("companion_service", "failed to mail safety alert", map[string]interface{}{
					"session_id": sessionId,
					"error":      err.Error(),
				})
			}
		}()
	}
}

func (s *companionService) crisisResponse(sess *store.Session) *dto.ChatResponse {
	return &dto.ChatResponse{
		SessionId:        sess.ID,
		Phase:            string(sess.Phase),
		Response:         safety.CrisisResponse(),
		SignalsCollected: signalValues(sess.Signals),
		TurnCount:        sess.TurnCount,
		IsComplete:       sess.IsComplete,
		FlowMetadata: &dto.FlowMetadataDTO{
			ReadinessScore: readinessScore(sess.Signals),
			GuidanceType:   "crisis_support",
		},
	}
}

func (s *companionService) buildChatResponse(sess *store.Session, result turnResult) *dto.ChatResponse {
	return &dto.ChatResponse{
		SessionId:        sess.ID,
		Phase:            string(sess.Phase),
		Response:         result.reply,
		SignalsCollected: signalValues(sess.Signals),
		TurnCount:        sess.TurnCount,
		IsComplete:       sess.IsComplete,
		Verses:           result.verses,
		Citations:        result.citations,
		Sources:          result.sources,
		FlowMetadata: &dto.FlowMetadataDTO{
			DetectedDomain:    signalValue(sess.Signals, store.SignalDomain),
			EmotionalState:    signalValue(sess.Signals, store.SignalEmotionalState),
			Topics:            topics(sess.Signals),
			ReadinessScore:    readinessScore(sess.Signals),
			GuidanceType:      result.guidanceType,
			RetrievalDegraded: result.retrievalDeg,
			RerankDegraded:    result.rerankDeg,
		},
	}
}

func (s *companionService) publishTurnProcessed(sess *store.Session, result turnResult) {
	if s.pubSub == nil {
		return
	}

	payload := dto.TurnProcessedMessage{
		SessionId:         sess.ID,
		Phase:             string(sess.Phase),
		GuidanceType:      result.guidanceType,
		TurnCount:         sess.TurnCount,
		Citations:         result.citations,
		RetrievalDegraded: result.retrievalDeg,
		RerankDegraded:    result.rerankDeg,
		SignalsCollected:  signalValues(sess.Signals),
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return
	}

	msg := message.NewMessage(uuid.New().String(), raw)
	if err := s.pubSub.Publish(s.topicName, msg); err != nil {
		s.logger.Warn("companion_service", "failed to publish turn processed event", map[string]interface{}{
			"session_id": sess.ID,
			"error":      err.Error(),
		})
	}
}

func applyProfile(sess *store.Session, request *dto.ChatRequest) {
	if request.UserProfile == nil {
		return
	}
	sess.Profile = &store.UserProfile{
		Name:       request.UserProfile.Name,
		AgeGroup:   request.UserProfile.AgeGroup,
		Profession: request.UserProfile.Profession,
		Gender:     request.UserProfile.Gender,
	}
}

func signalValues(signals map[string]store.Signal) map[string]string {
	out := make(map[string]string, len(signals))
	for key, sig := range signals {
		out[key] = sig.Value
	}
	return out
}

func signalValue(signals map[string]store.Signal, key string) string {
	if sig, ok := signals[key]; ok && sig.Value != store.SignalPlaceholder {
		return sig.Value
	}
	return ""
}

func topics(signals map[string]store.Signal) []string {
	var out []string
	if v := signalValue(signals, store.SignalLifeArea); v != "" {
		out = append(out, v)
	}
	if v := signalValue(signals, store.SignalEmotionalState); v != "" {
		out = append(out, v)
	}
	return out
}

func readinessScore(signals map[string]store.Signal) float64 {
	sig, ok := signals[store.SignalReadiness]
	if !ok {
		return 0
	}
	v, err := strconv.ParseFloat(sig.Value, 64)
	if err != nil {
		return 0
	}
	return v
}
