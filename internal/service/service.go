// Package service runs quote wizard sessions: it loads and stores the session
// state, drives the step sequencer, feeds submissions through the decoder and
// prices the result.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"privatize-quote/internal/decoder"
	"privatize-quote/internal/pricing"
	"privatize-quote/internal/quote"
	"privatize-quote/internal/steps"
	"privatize-quote/internal/storage"
	redisstore "privatize-quote/internal/storage/redis"
)

const defaultDistanceTimeout = 5 * time.Second

var ErrSessionNotFound = redisstore.ErrSessionNotFound

// SessionStore keeps one wizard per session id.
type SessionStore interface {
	SaveSession(ctx context.Context, sessionID string, w *steps.Wizard) error
	GetSession(ctx context.Context, sessionID string) (*steps.Wizard, error)
	DropSession(ctx context.Context, sessionID string) error
}

// ExportFunc writes the spreadsheet of a submitted quote.
type ExportFunc func(dir, reference string, m *quote.SelectionModel, b *quote.PriceBreakdown) (string, error)

// CatalogLoader reloads the catalog snapshot, bypassing any cache.
type CatalogLoader func(ctx context.Context) (*quote.CatalogSnapshot, error)

type Deps struct {
	Pricing         quote.PricingConfiguration
	Catalog         *quote.CatalogSnapshot
	Sessions        SessionStore
	Distance        quote.DistanceResolver
	Quotes          quote.QuoteStore
	Notifier        quote.Notifier
	Export          ExportFunc
	ReloadCatalog   CatalogLoader
	ReportsDir      string
	DistanceTimeout time.Duration
	Logger          *zap.Logger
}

type Option func(*Service)

// WithClock fixes the clock used by date validation.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDs replaces session id generation.
func WithIDs(next func() string) Option {
	return func(s *Service) { s.newID = next }
}

// engine bundles everything derived from one catalog snapshot.
type engine struct {
	catalog *quote.CatalogSnapshot
	seq     *steps.Sequencer
	dec     *decoder.Decoder
}

type Service struct {
	pricing         quote.PricingConfiguration
	engine          atomic.Pointer[engine]
	sessions        SessionStore
	distance        quote.DistanceResolver
	quotes          quote.QuoteStore
	notifier        quote.Notifier
	export          ExportFunc
	reload          CatalogLoader
	reportsDir      string
	distanceTimeout time.Duration
	locks           *sessionLocks
	now             func() time.Time
	newID           func() string
	logger          *zap.Logger
}

func New(d Deps, opts ...Option) (*Service, error) {
	const operation = "service.New"

	if d.Sessions == nil || d.Quotes == nil {
		return nil, fmt.Errorf("%s: session and quote stores are required", operation)
	}
	if err := d.Pricing.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}

	s := &Service{
		pricing:         d.Pricing,
		sessions:        d.Sessions,
		distance:        d.Distance,
		quotes:          d.Quotes,
		notifier:        d.Notifier,
		export:          d.Export,
		reload:          d.ReloadCatalog,
		reportsDir:      d.ReportsDir,
		distanceTimeout: d.DistanceTimeout,
		locks:           newSessionLocks(),
		now:             time.Now,
		newID:           uuid.NewString,
		logger:          d.Logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.export == nil {
		s.export = storage.ExportQuoteToExcel
	}
	if s.distanceTimeout <= 0 {
		s.distanceTimeout = defaultDistanceTimeout
	}
	s.setCatalog(d.Catalog)
	return s, nil
}

func (s *Service) setCatalog(c *quote.CatalogSnapshot) {
	if c == nil {
		c = quote.NewCatalogSnapshot(quote.CatalogData{})
	}
	s.engine.Store(&engine{
		catalog: c,
		seq:     steps.NewSequencer(s.pricing, c, steps.WithClock(s.now)),
		dec:     decoder.New(c, s.pricing.OptionAliases),
	})
}

// Catalog returns the snapshot currently used for decoding and pricing.
func (s *Service) Catalog() *quote.CatalogSnapshot {
	return s.engine.Load().catalog
}

// RefreshCatalog reloads the catalog. Sessions in flight keep their
// selections; they are checked against the new snapshot on their next step.
func (s *Service) RefreshCatalog(ctx context.Context) error {
	const operation = "service.RefreshCatalog"

	if s.reload == nil {
		return fmt.Errorf("%s: no catalog loader configured", operation)
	}
	c, err := s.reload(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", operation, err)
	}
	s.setCatalog(c)
	s.logger.Info("Catalog refreshed", zap.Int("products", len(c.Data().Products)))
	return nil
}

// View is what a client needs to render the current step.
type View struct {
	SessionID    string                `json:"session_id"`
	Step         steps.Step            `json:"step"`
	Steps        []steps.Step          `json:"steps"`
	CanAdvance   bool                  `json:"can_advance"`
	Selection    *quote.SelectionModel `json:"selection"`
	Fields       map[string]string     `json:"fields"`
	Unclassified map[string]string     `json:"unclassified,omitempty"`
}

// Receipt is the outcome of a successful submission.
type Receipt struct {
	Reference string                `json:"reference"`
	Breakdown *quote.PriceBreakdown `json:"breakdown"`
}

func (s *Service) view(id string, w *steps.Wizard, e *engine) *View {
	return &View{
		SessionID:  id,
		Step:       w.Current,
		Steps:      w.Steps(),
		CanAdvance: e.seq.CanAdvance(w.Current, w.Model),
		Selection:  w.Model,
		Fields:     decoder.Encode(w.Model),
	}
}

// Start opens a new session on the intro step.
func (s *Service) Start(ctx context.Context, variant string) (*View, error) {
	const operation = "service.Start"

	v, err := quote.ParseServiceVariant(variant)
	if err != nil {
		return nil, quote.NewValidationError(decoder.FieldServiceVariant, err.Error())
	}

	id := s.newID()
	w := steps.NewWizard(v)
	if err := s.sessions.SaveSession(ctx, id, w); err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}

	s.logger.Info("Session started",
		zap.String("session_id", id),
		zap.String("variant", string(v)))
	return s.view(id, w, s.engine.Load()), nil
}

// Get returns the session as stored.
func (s *Service) Get(ctx context.Context, id string) (*View, error) {
	w, err := s.sessions.GetSession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service.Get: %w", err)
	}
	return s.view(id, w, s.engine.Load()), nil
}

// mutate runs fn on the locked session and stores the wizard when fn
// succeeds.
func (s *Service) mutate(ctx context.Context, operation, id string, fn func(w *steps.Wizard, e *engine) error) (*View, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	w, err := s.sessions.GetSession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}

	e := s.engine.Load()
	if err := fn(w, e); err != nil {
		return nil, err
	}

	if err := s.sessions.SaveSession(ctx, id, w); err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}
	return s.view(id, w, e), nil
}

// Apply decodes a form submission and merges it into the selection. The
// step does not change.
func (s *Service) Apply(ctx context.Context, id string, fields map[string]string) (*View, error) {
	var unclassified map[string]string

	v, err := s.mutate(ctx, "service.Apply", id, func(w *steps.Wizard, e *engine) error {
		res, err := e.dec.Decode(fields)
		if err != nil {
			return err
		}
		updated, err := decoder.Apply(w.Model, res)
		if err != nil {
			return err
		}
		w.Model = updated
		unclassified = res.Unclassified
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(unclassified) > 0 {
		keys := make([]string, 0, len(unclassified))
		for k := range unclassified {
			keys = append(keys, k)
		}
		s.logger.Debug("Unclassified fields ignored",
			zap.String("session_id", id),
			zap.Strings("keys", keys))
		v.Unclassified = unclassified
	}
	return v, nil
}

func (s *Service) Next(ctx context.Context, id string) (*View, error) {
	return s.mutate(ctx, "service.Next", id, func(w *steps.Wizard, e *engine) error {
		_, err := e.seq.Next(w)
		return err
	})
}

func (s *Service) Back(ctx context.Context, id string) (*View, error) {
	return s.mutate(ctx, "service.Back", id, func(w *steps.Wizard, e *engine) error {
		_, err := e.seq.Back(w)
		return err
	})
}

func (s *Service) Goto(ctx context.Context, id, step string) (*View, error) {
	target, err := steps.ParseStep(step)
	if err != nil {
		return nil, quote.NewValidationError("step", err.Error())
	}
	return s.mutate(ctx, "service.Goto", id, func(w *steps.Wizard, e *engine) error {
		return e.seq.Goto(w, target)
	})
}

// SwitchVariant discards the selection and restarts the wizard for another
// variant.
func (s *Service) SwitchVariant(ctx context.Context, id, variant string) (*View, error) {
	v, err := quote.ParseServiceVariant(variant)
	if err != nil {
		return nil, quote.NewValidationError(decoder.FieldServiceVariant, err.Error())
	}
	return s.mutate(ctx, "service.SwitchVariant", id, func(w *steps.Wizard, _ *engine) error {
		if w.Model.Variant != v {
			s.logger.Info("Session switched variant",
				zap.String("session_id", id),
				zap.String("from", string(w.Model.Variant)),
				zap.String("to", string(v)))
		}
		w.SwitchVariant(v)
		return nil
	})
}

// Price prices the current, possibly partial, selection. The delivery
// supplement appears once a well formed postal code is known.
func (s *Service) Price(ctx context.Context, id string) (*quote.PriceBreakdown, error) {
	const operation = "service.Price"

	w, err := s.sessions.GetSession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}

	e := s.engine.Load()
	dist, err := s.resolveDistance(ctx, w.Model)
	if err != nil {
		return nil, err
	}
	return pricing.Calculate(w.Model, s.pricing, e.catalog, dist)
}

// Submit validates every step, prices the selection, stores the quote,
// exports and announces it, and closes the session.
func (s *Service) Submit(ctx context.Context, id string) (*Receipt, error) {
	const operation = "service.Submit"

	unlock := s.locks.lock(id)
	defer unlock()

	w, err := s.sessions.GetSession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}

	e := s.engine.Load()
	if err := e.seq.Complete(w); err != nil {
		return nil, err
	}

	dist, err := s.resolveDistance(ctx, w.Model)
	if err != nil {
		return nil, err
	}
	if w.Model.Variant.HasDelivery() && dist == nil {
		return nil, quote.NewValidationError(decoder.FieldPostalCode, "a valid postal code is required for delivery")
	}

	breakdown, err := pricing.Calculate(w.Model, s.pricing, e.catalog, dist)
	if err != nil {
		return nil, err
	}

	reference, err := s.quotes.SaveQuote(ctx, w.Model, breakdown)
	if err != nil {
		s.logger.Error("Failed to save quote",
			zap.String("session_id", id),
			zap.Error(err))
		return nil, &quote.ServiceUnavailableError{Service: "quote store", Err: err}
	}

	s.logger.Info("Quote submitted",
		zap.String("session_id", id),
		zap.String("reference", reference),
		zap.String("variant", string(w.Model.Variant)),
		zap.Stringer("grand_total", breakdown.GrandTotal))

	sub := quote.Submission{Reference: reference, Selection: w.Model, Breakdown: breakdown}
	if path, err := s.export(s.reportsDir, reference, w.Model, breakdown); err != nil {
		s.logger.Error("Failed to export quote",
			zap.String("reference", reference),
			zap.Error(err))
	} else {
		sub.ReportPath = path
	}

	if s.notifier != nil {
		s.notifier.NotifyQuote(ctx, sub)
	}

	if err := s.sessions.DropSession(ctx, id); err != nil {
		s.logger.Warn("Failed to drop submitted session",
			zap.String("session_id", id),
			zap.Error(err))
	}

	return &Receipt{Reference: reference, Breakdown: breakdown}, nil
}

// resolveDistance returns nil when there is nothing to resolve yet. A
// resolver failure is always a *quote.ServiceUnavailableError.
func (s *Service) resolveDistance(ctx context.Context, m *quote.SelectionModel) (*quote.Distance, error) {
	if !m.Variant.HasDelivery() || !steps.ValidPostalCode(m.PostalCode) {
		return nil, nil
	}
	if s.distance == nil {
		return nil, &quote.ServiceUnavailableError{Service: "distance", Err: errors.New("no resolver configured")}
	}

	ctx, cancel := context.WithTimeout(ctx, s.distanceTimeout)
	defer cancel()

	km, err := s.distance.ResolveDistanceKm(ctx, m.PostalCode)
	if err != nil {
		var su *quote.ServiceUnavailableError
		if errors.As(err, &su) {
			return nil, err
		}
		return nil, &quote.ServiceUnavailableError{Service: "distance", Err: err}
	}
	return &quote.Distance{PostalCode: m.PostalCode, Km: km}, nil
}
