package roast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/edgard/roastme/internal/database"
	"github.com/edgard/roastme/internal/llm"
	"github.com/edgard/roastme/internal/logger"
)

// Provenance names the tier that produced a roast.
type Provenance string

const (
	ProvenanceGeneratedPrimary Provenance = "generated-primary"
	ProvenanceGeneratedBackup  Provenance = "generated-backup"
	ProvenanceCorpus           Provenance = "corpus"
	ProvenanceLocalFallback    Provenance = "local-fallback"
)

// RoastType records which personalization branch a request took.
type RoastType string

const (
	RoastTypePersonalized         RoastType = "personalized"
	RoastTypeAuthenticatedGeneric RoastType = "authenticated-generic"
	RoastTypeUnauthenticated      RoastType = "unauthenticated"
)

// Attempt outcomes reported to the Observer.
const (
	OutcomeAccepted    = "accepted"
	OutcomeRejected    = "rejected"
	OutcomeTimeout     = "timeout"
	OutcomeHTTPError   = "http_error"
	OutcomeMalformed   = "malformed"
	OutcomeCircuitOpen = "circuit_open"
	OutcomeError       = "error"
)

// DefaultMinAcceptLength is the acceptance floor used when none is configured.
const DefaultMinAcceptLength = 10

// ProbePrompt is sent by Probe.
const ProbePrompt = "Generate a funny roast for someone named John in a friendly style."

// ErrNoCredentials is returned by Probe when no generative backend is configured.
var ErrNoCredentials = errors.New("no generation credentials configured")

// Request is an inbound roast request.
type Request struct {
	Name        string
	Mode        string
	CallerToken string
}

// Result is the outcome of a roast request. Text is never empty and never
// contains Placeholder.
type Result struct {
	Text         string
	Provenance   Provenance
	RoastType    RoastType
	Tone         Tone
	Personalized bool
	CallerID     string
	PersonID     string
}

// Credential is one generative backend in the priority list.
type Credential struct {
	Name    string
	Model   string
	Backend llm.Backend
}

// IdentityResolver resolves the caller and the person profile being roasted.
type IdentityResolver interface {
	ResolveCaller(ctx context.Context, token string) (string, bool)
	ResolvePerson(ctx context.Context, callerID, name string) (*database.Person, bool)
}

// CorpusSampler draws a stored roast.
type CorpusSampler interface {
	Sample(ctx context.Context) (string, bool, error)
}

// Observer receives per-attempt and per-request outcomes.
type Observer interface {
	ObserveAttempt(credential, outcome string, elapsed time.Duration)
	ObserveResult(provenance Provenance, roastType RoastType)
}

type noopObserver struct{}

func (noopObserver) ObserveAttempt(string, string, time.Duration) {}
func (noopObserver) ObserveResult(Provenance, RoastType) {}

// Config tunes the orchestrator.
type Config struct {
	Timeout         time.Duration
	MinAcceptLength int
}

// Service orchestrates roast generation across the fallback tiers.
type Service struct {
	cfg         Config
	credentials []Credential
	resolver    IdentityResolver
	corpus      CorpusSampler
	observer    Observer
	intn        func(n int) int
	log         *slog.Logger
}

// Option customizes a Service.
type Option func(*Service)

// WithObserver reports attempt and result outcomes to o.
func WithObserver(o Observer) Option {
	return func(s *Service) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithIntn replaces the random source used to pick a local roast.
func WithIntn(intn func(n int) int) Option {
	return func(s *Service) {
		if intn != nil {
			s.intn = intn
		}
	}
}

// NewService creates a Service. credentials are tried in order; resolver and
// corpus may be nil.
func NewService(cfg Config, credentials []Credential, resolver IdentityResolver, corpus CorpusSampler, log *slog.Logger, opts ...Option) *Service {
	if cfg.MinAcceptLength < 0 {
		cfg.MinAcceptLength = DefaultMinAcceptLength
	}
	if log == nil {
		log = logger.Discard()
	}

	s := &Service{
		cfg:         cfg,
		credentials: append([]Credential(nil), credentials...),
		resolver:    resolver,
		corpus:      corpus,
		observer:    noopObserver{},
		intn:        rand.IntN,
		log:         log.With("component", "roast"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Generate produces a roast for req. It always returns non-empty text: each
// tier's failures are logged and the next tier is tried.
func (s *Service) Generate(ctx context.Context, req Request) Result {
	name := strings.TrimSpace(stripPlaceholder(req.Name))
	if name == "" {
		name = DefaultName
	}
	tone := ParseTone(req.Mode)

	res := Result{Tone: tone, RoastType: RoastTypeUnauthenticated}
	personalization := s.resolveIdentity(ctx, req.CallerToken, name, &res)

	prompt := Render(name, tone, personalization)

	if text, prov, ok := s.generate(ctx, prompt); ok {
		return s.finish(ctx, res, text, prov, name)
	}
	if text, ok := s.sampleCorpus(ctx); ok {
		return s.finish(ctx, res, text, ProvenanceCorpus, name)
	}
	return s.finish(ctx, res, s.localRoast(), ProvenanceLocalFallback, name)
}

func (s *Service) resolveIdentity(ctx context.Context, token, name string, res *Result) *Personalization {
	if s.resolver == nil || token == "" {
		return nil
	}

	callerID, ok := s.resolver.ResolveCaller(ctx, token)
	if !ok {
		return nil
	}
	res.CallerID = callerID
	res.RoastType = RoastTypeAuthenticatedGeneric

	person, ok := s.resolver.ResolvePerson(ctx, callerID, name)
	if !ok || person == nil {
		return nil
	}
	res.PersonID = person.ID
	res.RoastType = RoastTypePersonalized
	res.Personalized = true

	return &Personalization{
		Name:       person.Name,
		SkinColor:  person.SkinColor,
		AnimalType: person.AnimalType,
		Traits:     person.TraitNames(),
	}
}

// generate tries each credential in order and returns the first accepted text.
func (s *Service) generate(ctx context.Context, prompt string) (string, Provenance, bool) {
	for i, cred := range s.credentials {
		if cred.Backend == nil {
			continue
		}
		prov := ProvenanceGeneratedBackup
		if i == 0 {
			prov = ProvenanceGeneratedPrimary
		}

		start := time.Now()
		text, err := cred.Backend.Generate(ctx, llm.Attempt{
			Credential: cred.Name,
			Model:      cred.Model,
			Prompt:     prompt,
			Timeout:    s.cfg.Timeout,
		})
		elapsed := time.Since(start)

		if err != nil {
			s.observer.ObserveAttempt(cred.Name, attemptOutcome(err), elapsed)
			s.log.WarnContext(ctx, "Generation attempt failed",
				"credential", cred.Name, "model", cred.Model, "duration", elapsed, "error", err)
			continue
		}

		if !s.acceptable(text) {
			s.observer.ObserveAttempt(cred.Name, OutcomeRejected, elapsed)
			s.log.WarnContext(ctx, "Generated text rejected as too short",
				"credential", cred.Name, "length", utf8.RuneCountInString(text))
			continue
		}

		s.observer.ObserveAttempt(cred.Name, OutcomeAccepted, elapsed)
		return text, prov, true
	}
	return "", "", false
}

func (s *Service) acceptable(text string) bool {
	return utf8.RuneCountInString(text) > s.cfg.MinAcceptLength
}

func (s *Service) sampleCorpus(ctx context.Context) (string, bool) {
	if s.corpus == nil {
		return "", false
	}
	text, ok, err := s.corpus.Sample(ctx)
	if err != nil {
		s.log.WarnContext(ctx, "Corpus fallback failed", "error", err)
		return "", false
	}
	if !ok || strings.TrimSpace(text) == "" {
		s.log.DebugContext(ctx, "Corpus is empty")
		return "", false
	}
	return text, true
}

func (s *Service) localRoast() string {
	n := s.intn(len(localRoasts))
	if n < 0 || n >= len(localRoasts) {
		n = 0
	}
	return localRoasts[n]
}

// finish is the single exit path: every accepted candidate is substituted here.
func (s *Service) finish(ctx context.Context, res Result, text string, prov Provenance, name string) Result {
	res.Text = Substitute(text, name)
	res.Provenance = prov
	s.observer.ObserveResult(prov, res.RoastType)
	s.log.DebugContext(ctx, "Roast produced",
		"provenance", prov, "roast_type", res.RoastType, "tone", res.Tone.String())
	return res
}

// ProbeResult describes a diagnostic call to the primary credential.
type ProbeResult struct {
	Credential string
	Model      string
	Prompt     string
	Response   string
	Duration   time.Duration
}

// Probe sends ProbePrompt to the primary credential without any fallback and
// returns the raw normalized response.
func (s *Service) Probe(ctx context.Context) (ProbeResult, error) {
	var primary *Credential
	for i := range s.credentials {
		if s.credentials[i].Backend != nil {
			primary = &s.credentials[i]
			break
		}
	}
	if primary == nil {
		return ProbeResult{}, ErrNoCredentials
	}

	res := ProbeResult{Credential: primary.Name, Model: primary.Model, Prompt: ProbePrompt}
	start := time.Now()
	text, err := primary.Backend.Generate(ctx, llm.Attempt{
		Credential: primary.Name,
		Model:      primary.Model,
		Prompt:     ProbePrompt,
		Timeout:    s.cfg.Timeout,
	})
	res.Duration = time.Since(start)
	s.observer.ObserveAttempt(primary.Name, probeOutcome(err), res.Duration)
	if err != nil {
		return res, fmt.Errorf("probe of credential %s failed: %w", primary.Name, err)
	}
	res.Response = text
	return res, nil
}

func probeOutcome(err error) string {
	if err == nil {
		return OutcomeAccepted
	}
	return attemptOutcome(err)
}

func attemptOutcome(err error) string {
	var httpErr *llm.HTTPError
	switch {
	case errors.Is(err, llm.ErrTimeout):
		return OutcomeTimeout
	case errors.As(err, &httpErr):
		return OutcomeHTTPError
	case errors.Is(err, llm.ErrMalformedResponse):
		return OutcomeMalformed
	case errors.Is(err, llm.ErrCircuitOpen):
		return OutcomeCircuitOpen
	default:
		return OutcomeError
	}
}
