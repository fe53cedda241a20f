package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"pcstore/internal/metrics"
	"pcstore/internal/model"
	"pcstore/internal/resilience"
	"pcstore/internal/taxonomy"
)

// NoProductsReply is the fixed reply when every rung of every slot is empty
const NoProductsReply = "Unfortunately, no products matching your criteria were found."

const fallbackPreface = "Here are the products that match your request:\n\n"

func fallbackReply(productList string) string {
	return fallbackPreface + productList
}

// AssistantStore is the catalog and log storage behind the assistant
type AssistantStore interface {
	CatalogStore
	GetProduct(ctx context.Context, id string) (*model.Product, error)
	LogRecommendation(ctx context.Context, rec model.RecommendationLog) error
	LogFeedback(ctx context.Context, recommendationID, productID, action string) error
}

// AssistantEventCallback is called for streaming assistant events
type AssistantEventCallback func(event string, data any) error

// AssistantOptions bound a single pipeline run
type AssistantOptions struct {
	DefaultLimit    int
	ExtractTimeout  time.Duration
	GenerateTimeout time.Duration
}

// AssistantDeps are the collaborators of the pipeline
type AssistantDeps struct {
	Store      AssistantStore
	Taxonomy   *taxonomy.Map
	Classifier *IntentClassifier
	Normalizer *PreferenceNormalizer
	Builder    *QueryBuilder
	Retriever  *CascadingRetriever
	Formatter  *ResultFormatter
	Extractor  PreferenceExtractor
	Generator  ResponseGenerator
	Metrics    *metrics.Metrics
}

// AssistantService runs message -> intent -> preferences -> filters ->
// retrieval -> numbered list -> reply
type AssistantService struct {
	store      AssistantStore
	taxonomy   *taxonomy.Map
	classifier *IntentClassifier
	normalizer *PreferenceNormalizer
	builder    *QueryBuilder
	retriever  *CascadingRetriever
	formatter  *ResultFormatter
	extractor  PreferenceExtractor
	generator  StreamingGenerator
	metrics    *metrics.Metrics
	opts       AssistantOptions

	pending sync.WaitGroup // background log writes
}

// NewAssistantService creates a new assistant service
func NewAssistantService(deps AssistantDeps, opts AssistantOptions) *AssistantService {
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = 10
	}
	if opts.ExtractTimeout <= 0 {
		opts.ExtractTimeout = 15 * time.Second
	}
	if opts.GenerateTimeout <= 0 {
		opts.GenerateTimeout = 60 * time.Second
	}

	extractor := deps.Extractor
	if extractor == nil {
		extractor = NoExtractor{}
	}

	var generator StreamingGenerator
	switch g := deps.Generator.(type) {
	case nil:
		generator = NewGuardedGenerator(ListGenerator{}, nil)
	case StreamingGenerator:
		generator = g
	default:
		generator = NewGuardedGenerator(g, nil)
	}

	classifier := deps.Classifier
	if classifier == nil {
		classifier = NewIntentClassifier()
	}
	normalizer := deps.Normalizer
	if normalizer == nil {
		normalizer = NewPreferenceNormalizer(classifier)
	}

	return &AssistantService{
		store:      deps.Store,
		taxonomy:   deps.Taxonomy,
		classifier: classifier,
		normalizer: normalizer,
		builder:    deps.Builder,
		retriever:  deps.Retriever,
		formatter:  deps.Formatter,
		extractor:  extractor,
		generator:  generator,
		metrics:    deps.Metrics,
		opts:       opts,
	}
}

// Recommend answers one chat message
func (s *AssistantService) Recommend(ctx context.Context, req *model.AssistantRequest) (*model.AssistantResponse, error) {
	return s.run(ctx, req, nil)
}

// RecommendStream answers one chat message and reports each stage through
// callback: start, intent, preferences, products, then content chunks
func (s *AssistantService) RecommendStream(ctx context.Context, req *model.AssistantRequest, callback AssistantEventCallback) (*model.AssistantResponse, error) {
	if callback == nil {
		return nil, errors.New("stream callback is nil")
	}
	return s.run(ctx, req, callback)
}

func (s *AssistantService) run(ctx context.Context, req *model.AssistantRequest, callback AssistantEventCallback) (*model.AssistantResponse, error) {
	if req == nil || strings.TrimSpace(req.Message) == "" {
		return nil, model.WrapError(model.ErrInvalidInput, "recommend", errors.New("message is required"))
	}
	message := strings.TrimSpace(req.Message)

	startTime := time.Now()
	recID := uuid.NewString()
	logger := zerolog.Ctx(ctx).With().Str("recommendation_id", recID).Logger()
	ctx = logger.WithContext(ctx)

	emit := func(event string, data any) error {
		if callback == nil {
			return nil
		}
		return callback(event, data)
	}

	if err := emit("start", map[string]any{"recommendation_id": recID}); err != nil {
		return nil, err
	}

	intent := s.classifier.Classify(message)
	if err := emit("intent", intent); err != nil {
		return nil, err
	}

	raw := s.extract(ctx, message)
	prefs := s.normalizer.Normalize(message, raw)
	if err := emit("preferences", prefs); err != nil {
		return nil, err
	}

	filters := s.builder.Build(intent, prefs)
	result := s.retriever.Retrieve(ctx, filters, s.opts.DefaultLimit)
	if err := emit("products", map[string]any{
		"products":   result.Products,
		"strategies": result.Slots,
	}); err != nil {
		return nil, err
	}

	logger.Info().
		Str("intent", string(intent.Kind)).
		Str("subtype", string(intent.Subtype)).
		Str("context", string(intent.Context)).
		Int("filters", len(filters)).
		Int("products", len(result.Products)).
		Msg("products retrieved")

	var reply string
	if result.Empty() {
		reply = NoProductsReply
		if err := emit("content", map[string]any{"content": reply}); err != nil {
			return nil, err
		}
	} else {
		var err error
		reply, err = s.reply(ctx, message, result.PlainProducts(), callback)
		if err != nil {
			return nil, err
		}
	}

	took := time.Since(startTime)
	s.metrics.RecordAssistantRequest(string(intent.Kind), string(intent.Context), took)

	resp := &model.AssistantResponse{
		RecommendationID: recID,
		Reply:            reply,
		Intent:           intent,
		Preferences:      prefs,
		Products:         result.Products,
		Strategies:       result.Slots,
		Took:             took.Milliseconds(),
	}
	s.logRecommendation(logger, message, resp)

	return resp, nil
}

// extract never fails: an extractor error degrades to no preferences
func (s *AssistantService) extract(ctx context.Context, message string) string {
	ectx, cancel := context.WithTimeout(ctx, s.opts.ExtractTimeout)
	defer cancel()

	raw, err := s.extractor.Extract(ectx, message)
	if err != nil {
		s.modelFailed(ctx, "extract", err, "preference extraction failed, continuing without preferences")
		return ""
	}
	return raw
}

func (s *AssistantService) modelFailed(ctx context.Context, stage string, err error, msg string) {
	s.metrics.RecordModelFailure(stage)
	event := zerolog.Ctx(ctx).Warn()
	if resilience.IsCircuitOpen(err) {
		// already reported on the state change
		event = zerolog.Ctx(ctx).Debug()
	}
	event.Err(err).Str("stage", stage).Msg(msg)
}

// reply formats the products and hands them to the generator. A generator
// failure falls back to the list itself. Only a failing callback is an error.
func (s *AssistantService) reply(ctx context.Context, message string, products []model.Product, callback AssistantEventCallback) (string, error) {
	logger := zerolog.Ctx(ctx)

	productList := s.formatter.Format(products)
	if err := VerifyNumbering(productList, products); err != nil {
		logger.Error().Err(err).Msg("formatted list failed numbering check")
		return "", model.WrapError(model.ErrTemporary, "format products", err)
	}

	gctx, cancel := context.WithTimeout(ctx, s.opts.GenerateTimeout)
	defer cancel()

	var (
		reply       string
		err         error
		callbackErr error
	)
	if callback == nil {
		reply, err = s.generator.Generate(gctx, message, productList)
	} else {
		reply, err = s.generator.GenerateStream(gctx, message, productList, func(chunk *StreamChunk) error {
			if chunk.ThinkingContent != "" {
				if cerr := callback("thinking", map[string]any{"content": chunk.ThinkingContent}); cerr != nil {
					callbackErr = cerr
					return cerr
				}
			}
			if chunk.Content != "" {
				if cerr := callback("content", map[string]any{"content": chunk.Content}); cerr != nil {
					callbackErr = cerr
					return cerr
				}
			}
			return nil
		})
	}
	if callbackErr != nil {
		return "", callbackErr
	}

	if err != nil || strings.TrimSpace(reply) == "" {
		if err == nil {
			err = errors.New("empty reply")
		}
		s.modelFailed(ctx, "generate", err, "reply generation failed, returning the product list")

		reply = fallbackReply(productList)
		if callback != nil {
			// replace tells the client to discard any partial content already shown
			if cerr := callback("content", map[string]any{"content": reply, "fallback": true, "replace": true}); cerr != nil {
				return "", cerr
			}
		}
		return reply, nil
	}

	if refs := OutOfRangeReferences(reply, len(products)); len(refs) > 0 {
		logger.Warn().Ints("products", refs).Msg("reply references products outside the list")
	}
	return reply, nil
}

// logRecommendation stores the answered request without blocking the caller
func (s *AssistantService) logRecommendation(logger zerolog.Logger, message string, resp *model.AssistantResponse) {
	if s.store == nil {
		return
	}

	productIDs := make([]string, len(resp.Products))
	for i, p := range resp.Products {
		productIDs[i] = p.ID
	}
	rec := model.RecommendationLog{
		ID:          resp.RecommendationID,
		Message:     message,
		Intent:      resp.Intent,
		Preferences: resp.Preferences,
		ProductIDs:  productIDs,
		Strategies:  resp.Strategies,
		Took:        resp.Took,
	}

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.store.LogRecommendation(ctx, rec); err != nil {
			logger.Warn().Err(err).Msg("failed to log recommendation")
		}
	}()
}

// Wait blocks until background log writes are done
func (s *AssistantService) Wait() {
	s.pending.Wait()
}

// GetProduct retrieves a single product by ID
func (s *AssistantService) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	if strings.TrimSpace(id) == "" {
		return nil, model.WrapError(model.ErrInvalidInput, "get product", errors.New("id is required"))
	}
	return s.store.GetProduct(ctx, id)
}

// Taxonomy returns the category entries the assistant knows
func (s *AssistantService) Taxonomy() []taxonomy.Entry {
	if s.taxonomy == nil {
		return []taxonomy.Entry{}
	}
	return s.taxonomy.Entries()
}

// LogFeedback logs user feedback/action on a recommended product
func (s *AssistantService) LogFeedback(ctx context.Context, req *model.FeedbackRequest) error {
	if !model.FeedbackActions[req.Action] {
		return model.WrapError(model.ErrInvalidInput, "log feedback", errors.New("unknown action "+req.Action))
	}
	if err := s.store.LogFeedback(ctx, req.RecommendationID, req.ProductID, req.Action); err != nil {
		return err
	}
	s.metrics.RecordFeedback(req.Action)
	return nil
}
