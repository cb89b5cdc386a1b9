package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	catalogdomain "github.com/scribehq/scribe/internal/catalog/domain"
	"github.com/scribehq/scribe/internal/clock"
	entitlementdomain "github.com/scribehq/scribe/internal/entitlement/domain"
	generationdomain "github.com/scribehq/scribe/internal/generation/domain"
	"github.com/scribehq/scribe/internal/generation/provider"
	plandomain "github.com/scribehq/scribe/internal/plan/domain"
	"github.com/scribehq/scribe/internal/quota"
	"github.com/scribehq/scribe/internal/ratelimit"
	usagedomain "github.com/scribehq/scribe/internal/usage/domain"
)

type ledgerStub struct {
	mu      sync.Mutex
	used    int64
	records []usagedomain.UsageRecord
	fail    error
}

func (l *ledgerStub) Append(ctx context.Context, record *usagedomain.UsageRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fail != nil {
		return l.fail
	}
	l.records = append(l.records, *record)
	return nil
}

func (l *ledgerStub) SumSince(ctx context.Context, ownerID string, serviceType catalogdomain.ServiceType, metric usagedomain.Metric, since time.Time) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.used, nil
}

func (l *ledgerStub) History(ctx context.Context, req usagedomain.HistoryRequest) (usagedomain.HistoryResponse, error) {
	return usagedomain.HistoryResponse{}, nil
}

func (l *ledgerStub) Summary(ctx context.Context, ownerID string, serviceType catalogdomain.ServiceType, at time.Time) (usagedomain.Summary, error) {
	return usagedomain.Summary{}, nil
}

func (l *ledgerStub) all() []usagedomain.UsageRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]usagedomain.UsageRecord, len(l.records))
	copy(out, l.records)
	return out
}

type resolverStub struct {
	grant *entitlementdomain.Grant
	err   error
}

func (r *resolverStub) Resolve(ctx context.Context, ownerID string) (*entitlementdomain.Grant, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.grant, nil
}

type catalogStub struct {
	mu       sync.Mutex
	attempts []catalogdomain.Attempt
}

func (c *catalogStub) List(ctx context.Context) ([]catalogdomain.Definition, error) {
	return nil, nil
}

func (c *catalogStub) GetByType(ctx context.Context, serviceType catalogdomain.ServiceType) (catalogdomain.Definition, error) {
	return catalogdomain.Definition{}, nil
}

func (c *catalogStub) RecordAttempt(ctx context.Context, attempt catalogdomain.Attempt) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.attempts = append(c.attempts, attempt)
	return nil
}

type generatorStub struct {
	mu      sync.Mutex
	calls   int
	content string
	err     error
	chunks  []provider.Chunk
}

func (g *generatorStub) Generate(ctx context.Context, req provider.Request) (provider.Result, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	if g.err != nil {
		return provider.Result{}, g.err
	}
	return provider.Result{Content: g.content, Model: "stub-writer"}, nil
}

func (g *generatorStub) Stream(ctx context.Context, req provider.Request) (<-chan provider.Chunk, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	out := make(chan provider.Chunk, len(g.chunks))
	for _, chunk := range g.chunks {
		out <- chunk
	}
	close(out)
	return out, nil
}

func (g *generatorStub) Model() string { return "stub-writer" }

func (g *generatorStub) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type emitterStub struct {
	mu     sync.Mutex
	events []string
}

func (e *emitterStub) EmitToUser(ownerID, event string, data any) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
	return true
}

func (e *emitterStub) EmitToRole(role, event string, data any) {}
func (e *emitterStub) EmitToAll(event string, data any)       {}
func (e *emitterStub) IsConnected(ownerID string) bool        { return true }

func (e *emitterStub) seen(event string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, name := range e.events {
		if name == event {
			return true
		}
	}
	return false
}

type fixture struct {
	service generationdomain.Service
	ledger  *ledgerStub
	catalog *catalogStub
	gen     *generatorStub
	emitter *emitterStub
}

func grantWithCap(max int64) *entitlementdomain.Grant {
	return &entitlementdomain.Grant{
		OwnerID:  "owner-1",
		Source:   entitlementdomain.GrantSourceFree,
		PlanType: plandomain.PlanFree,
		Limits: plandomain.FeatureSet{
			TextWriter: plandomain.FeatureLimit{Enabled: true, WordsPerDay: max, RequestsPerDay: 10},
		},
	}
}

func newFixture(t *testing.T, used, max int64, gen *generatorStub) *fixture {
	t.Helper()

	log := zap.NewNop()
	fake := clock.NewFakeClock(time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC))
	ledger := &ledgerStub{used: used}
	catalog := &catalogStub{}
	emitter := &emitterStub{}

	enforcer := quota.NewEnforcer(quota.EnforcerParam{
		Log:      log,
		Clock:    fake,
		UsageSvc: ledger,
	})
	guard := ratelimit.NewGenerationGuard(ratelimit.GenerationGuardParam{Log: log})

	service := NewService(ServiceParam{
		Log:        log,
		Clock:      fake,
		Resolver:   &resolverStub{grant: grantWithCap(max)},
		Enforcer:   enforcer,
		UsageSvc:   ledger,
		CatalogSvc: catalog,
		Generator:  gen,
		Guard:      guard,
		Emitter:    emitter,
	})

	return &fixture{service: service, ledger: ledger, catalog: catalog, gen: gen, emitter: emitter}
}

func validRequest() generationdomain.GenerateRequest {
	return generationdomain.GenerateRequest{
		Prompt:      "write a short post about lighthouses",
		ContentType: "blog_post",
	}
}

func TestGenerateMetersActualWords(t *testing.T) {
	gen := &generatorStub{content: "one two three four five"}
	f := newFixture(t, 100, 500, gen)

	out, err := f.service.Generate(context.Background(), "owner-1", validRequest())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if out.WordsGenerated != 5 {
		t.Fatalf("expected 5 words metered, got %d", out.WordsGenerated)
	}
	if out.Usage.Used != 105 || out.Usage.Remaining != 395 {
		t.Fatalf("unexpected snapshot %+v", out.Usage)
	}
	if out.Model != "stub-writer" {
		t.Fatalf("expected model in output, got %q", out.Model)
	}

	records := f.ledger.all()
	if len(records) != 1 {
		t.Fatalf("expected one ledger row, got %d", len(records))
	}
	if !records[0].Success || records[0].WordsGenerated != 5 {
		t.Fatalf("unexpected ledger row %+v", records[0])
	}
	if !f.emitter.seen("generation_completed") {
		t.Fatalf("expected generation_completed event, got %v", f.emitter.events)
	}
}

func TestGenerateDeniesBeforeCallingProvider(t *testing.T) {
	gen := &generatorStub{content: "should not run"}
	f := newFixture(t, 500, 500, gen)

	_, err := f.service.Generate(context.Background(), "owner-1", validRequest())
	if !errors.Is(err, generationdomain.ErrDailyLimitReached) {
		t.Fatalf("expected daily limit denial, got %v", err)
	}

	var denial *generationdomain.DenialError
	if !errors.As(err, &denial) {
		t.Fatalf("expected DenialError, got %T", err)
	}
	if denial.Usage.Used != 500 || denial.Usage.Remaining != 0 {
		t.Fatalf("unexpected denial snapshot %+v", denial.Usage)
	}
	if gen.callCount() != 0 {
		t.Fatalf("provider must not be called on denial")
	}
	if len(f.ledger.all()) != 0 {
		t.Fatalf("denials must not write ledger rows")
	}
	if !f.emitter.seen("usage_limit_exceeded") {
		t.Fatalf("expected usage_limit_exceeded event")
	}
}

func TestGenerateEstimatedOverage(t *testing.T) {
	gen := &generatorStub{content: "unused"}
	f := newFixture(t, 450, 500, gen)

	// Default medium length estimates 400 words against 50 remaining.
	_, err := f.service.Generate(context.Background(), "owner-1", validRequest())
	if !errors.Is(err, generationdomain.ErrEstimatedOverage) {
		t.Fatalf("expected estimated overage, got %v", err)
	}

	var denial *generationdomain.DenialError
	if !errors.As(err, &denial) {
		t.Fatalf("expected DenialError, got %T", err)
	}
	if denial.Usage.Remaining != 50 {
		t.Fatalf("expected 50 remaining in denial, got %d", denial.Usage.Remaining)
	}
	if denial.Estimate != 400 {
		t.Fatalf("expected estimate 400, got %d", denial.Estimate)
	}
	if gen.callCount() != 0 {
		t.Fatalf("provider must not be called on denial")
	}
}

func TestGenerateBoundaryEstimateAllowed(t *testing.T) {
	gen := &generatorStub{content: "fits exactly"}
	f := newFixture(t, 100, 500, gen)

	req := validRequest()
	req.Length = "medium"
	if _, err := f.service.Generate(context.Background(), "owner-1", req); err != nil {
		t.Fatalf("estimate landing exactly on the allowance must pass: %v", err)
	}
}

func TestGenerateProviderFailureRecordedNotCharged(t *testing.T) {
	gen := &generatorStub{err: errors.New("upstream exploded")}
	f := newFixture(t, 0, 500, gen)

	_, err := f.service.Generate(context.Background(), "owner-1", validRequest())
	if !errors.Is(err, generationdomain.ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got %v", err)
	}

	records := f.ledger.all()
	if len(records) != 1 {
		t.Fatalf("expected one failure row, got %d", len(records))
	}
	if records[0].Success {
		t.Fatalf("failure row must not be marked successful")
	}
	if records[0].WordsGenerated != 0 {
		t.Fatalf("failure row must not carry words")
	}
	if records[0].ErrorCode != "API_ERROR" {
		t.Fatalf("expected API_ERROR code, got %q", records[0].ErrorCode)
	}

	attempts := f.catalog.attempts
	if len(attempts) != 1 || attempts[0].Success {
		t.Fatalf("expected one failed stats attempt, got %+v", attempts)
	}
}

func TestGenerateFailedLedgerWriteRefusesOutput(t *testing.T) {
	gen := &generatorStub{content: "generated but unmeterable"}
	f := newFixture(t, 0, 500, gen)
	f.ledger.fail = errors.New("db down")

	_, err := f.service.Generate(context.Background(), "owner-1", validRequest())
	if err == nil {
		t.Fatalf("expected error when the ledger write fails")
	}
	if errors.Is(err, generationdomain.ErrGenerationFailed) {
		t.Fatalf("ledger failure must not masquerade as a provider failure")
	}
}

func TestGenerateRejectsInvalidRequests(t *testing.T) {
	gen := &generatorStub{content: "unused"}
	f := newFixture(t, 0, 500, gen)

	cases := []generationdomain.GenerateRequest{
		{Prompt: "too short", ContentType: "blog_post"},
		{Prompt: "a perfectly fine prompt about lighthouses", ContentType: "haiku"},
		{Prompt: "a perfectly fine prompt about lighthouses", ContentType: "blog_post", Length: "gigantic"},
	}
	for i, req := range cases {
		if _, err := f.service.Generate(context.Background(), "owner-1", req); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
	if gen.callCount() != 0 {
		t.Fatalf("provider must not run for invalid requests")
	}
}

func TestGenerateStreamAccumulatesAndMeters(t *testing.T) {
	gen := &generatorStub{chunks: []provider.Chunk{
		{Text: "The lighthouse "},
		{Text: "stands alone "},
		{Text: "at dusk"},
	}}
	f := newFixture(t, 0, 500, gen)

	events, err := f.service.GenerateStream(context.Background(), "owner-1", validRequest())
	if err != nil {
		t.Fatalf("stream: %v", err)
	}

	var chunks int
	var done *generationdomain.StreamDone
	for event := range events {
		switch ev := event.(type) {
		case generationdomain.StreamChunk:
			chunks++
		case generationdomain.StreamDone:
			done = &ev
		case generationdomain.StreamError:
			t.Fatalf("unexpected stream error: %+v", ev)
		}
	}

	if chunks != 3 {
		t.Fatalf("expected 3 chunks, got %d", chunks)
	}
	if done == nil {
		t.Fatalf("expected terminal done event")
	}
	if done.FullText != "The lighthouse stands alone at dusk" {
		t.Fatalf("unexpected full text %q", done.FullText)
	}
	if done.WordsGenerated != 6 {
		t.Fatalf("expected 6 words, got %d", done.WordsGenerated)
	}

	records := f.ledger.all()
	if len(records) != 1 {
		t.Fatalf("expected one ledger row, got %d", len(records))
	}
	if records[0].WordsGenerated != 6 {
		t.Fatalf("expected 6 metered words, got %d", records[0].WordsGenerated)
	}
}

func TestGenerateStreamEmptyWritesNoRow(t *testing.T) {
	gen := &generatorStub{chunks: nil}
	f := newFixture(t, 0, 500, gen)

	events, err := f.service.GenerateStream(context.Background(), "owner-1", validRequest())
	if err != nil {
		t.Fatalf("stream: %v", err)
	}

	var done *generationdomain.StreamDone
	for event := range events {
		if ev, ok := event.(generationdomain.StreamDone); ok {
			done = &ev
		}
	}
	if done == nil || done.WordsGenerated != 0 {
		t.Fatalf("expected empty done event, got %+v", done)
	}
	if len(f.ledger.all()) != 0 {
		t.Fatalf("empty stream must not write a ledger row")
	}
}

func TestGenerateStreamDeniedBeforeFirstByte(t *testing.T) {
	gen := &generatorStub{chunks: []provider.Chunk{{Text: "never sent"}}}
	f := newFixture(t, 500, 500, gen)

	_, err := f.service.GenerateStream(context.Background(), "owner-1", validRequest())
	if !errors.Is(err, generationdomain.ErrDailyLimitReached) {
		t.Fatalf("expected denial before first byte, got %v", err)
	}
	if gen.callCount() != 0 {
		t.Fatalf("provider must not be called on a denied stream")
	}
}

func TestGenerateStreamMidStreamFailure(t *testing.T) {
	gen := &generatorStub{chunks: []provider.Chunk{
		{Text: "partial text here "},
		{Err: errors.New("connection reset")},
	}}
	f := newFixture(t, 0, 500, gen)

	events, err := f.service.GenerateStream(context.Background(), "owner-1", validRequest())
	if err != nil {
		t.Fatalf("stream: %v", err)
	}

	var failed *generationdomain.StreamError
	for event := range events {
		if ev, ok := event.(generationdomain.StreamError); ok {
			failed = &ev
		}
	}
	if failed == nil {
		t.Fatalf("expected stream error event")
	}

	records := f.ledger.all()
	if len(records) != 1 || records[0].Success {
		t.Fatalf("expected one failure row, got %+v", records)
	}
}

func TestGenerateStreamClientCancelMetersAccumulated(t *testing.T) {
	gen := &generatorStub{chunks: []provider.Chunk{
		{Text: "words that made it "},
		{Text: "before the hangup"},
	}}
	f := newFixture(t, 0, 500, gen)

	ctx, cancel := context.WithCancel(context.Background())
	events, err := f.service.GenerateStream(ctx, "owner-1", validRequest())
	if err != nil {
		t.Fatalf("stream: %v", err)
	}

	// Consume the first chunk, then hang up.
	<-events
	cancel()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, open := <-events:
			if !open {
				records := f.ledger.all()
				if len(records) != 1 {
					t.Fatalf("expected accumulated text metered, got %d rows", len(records))
				}
				if !records[0].Success || records[0].WordsGenerated == 0 {
					t.Fatalf("unexpected cancel record %+v", records[0])
				}
				return
			}
		case <-deadline:
			t.Fatalf("stream did not terminate after cancel")
		}
	}
}

func TestOptionsListsClosedEnums(t *testing.T) {
	gen := &generatorStub{}
	f := newFixture(t, 0, 500, gen)

	opts := f.service.Options(context.Background())
	if len(opts.ContentTypes) != 6 {
		t.Fatalf("expected 6 content types, got %d", len(opts.ContentTypes))
	}
	if len(opts.Tones) != 6 {
		t.Fatalf("expected 6 tones, got %d", len(opts.Tones))
	}
	if len(opts.Lengths) != 3 {
		t.Fatalf("expected 3 lengths, got %d", len(opts.Lengths))
	}
}
