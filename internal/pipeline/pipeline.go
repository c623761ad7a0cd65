// Package pipeline turns a website URL into a persisted, scored lead.
//
// Stages run in a fixed dependency order:
//
//	acquire -> (extract || analysis) -> score -> outreach -> persist -> notify
//
// Acquisition and persistence failures are terminal and returned to the
// caller. Analysis and outreach failures are absorbed by deterministic
// fallbacks and recorded on the lead. Notification is dispatched after the
// lead is stored and never blocks or fails the run.
package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/leadintel/internal/model"
	"github.com/sells-group/leadintel/internal/resilience"
	"github.com/sells-group/leadintel/internal/scoring"
	"github.com/sells-group/leadintel/internal/scrape"
)

// Acquirer fetches page content. scrape.Scraper satisfies it.
type Acquirer interface {
	Acquire(ctx context.Context, url string) (*model.AcquiredContent, error)
}

// ContactExtractor pulls contact data from page text and links.
type ContactExtractor interface {
	Extract(text string, links []string) model.ContactBundle
}

// ProfileAnalyzer derives a company profile. It always returns a usable
// profile; a non-nil error means the profile is a fallback.
type ProfileAnalyzer interface {
	Analyze(ctx context.Context, content *model.AcquiredContent) (model.CompanyProfile, error)
}

// EmailDrafter drafts an outreach email. It always returns a usable email;
// a non-nil error means the email is a fallback.
type EmailDrafter interface {
	Draft(ctx context.Context, profile model.CompanyProfile, score float64) (model.OutreachEmail, error)
}

// LeadWriter persists an assembled lead, assigning its ID.
type LeadWriter interface {
	CreateLead(ctx context.Context, lead *model.Lead) error
}

// Notifier hands a stored lead to external hooks without blocking.
type Notifier interface {
	Dispatch(ctx context.Context, lead model.Lead)
}

// RunObserver is told the outcome of every run. lead is nil when err is set.
type RunObserver interface {
	ObserveRun(lead *model.Lead, err error)
}

// Deps are the stage implementations. Notifier and Observer may be nil.
type Deps struct {
	Acquirer  Acquirer
	Extractor ContactExtractor
	Analyzer  ProfileAnalyzer
	Drafter   EmailDrafter
	Leads     LeadWriter
	Notifier  Notifier
	Observer  RunObserver
}

// Options bound bulk submissions.
type Options struct {
	MaxConcurrent int
	MaxURLs       int
}

const (
	defaultMaxConcurrent = 3
	defaultMaxURLs       = 50
)

// Pipeline runs lead analysis.
type Pipeline struct {
	deps     Deps
	opts     Options
	validate *validator.Validate
}

// New creates a Pipeline.
func New(deps Deps, opts Options) *Pipeline {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = defaultMaxConcurrent
	}
	if opts.MaxURLs <= 0 {
		opts.MaxURLs = defaultMaxURLs
	}
	return &Pipeline{deps: deps, opts: opts, validate: validator.New()}
}

// enrichment is the output of the concurrent extract and analysis stages.
type enrichment struct {
	contacts model.ContactBundle
	profile  model.CompanyProfile
	degraded []*DegradedError
}

// Analyze runs every stage for rawURL on behalf of ownerID. Apart from
// ErrOwnerRequired, the only errors returned are *scrape.AcquisitionError and
// *PersistenceError.
func (p *Pipeline) Analyze(ctx context.Context, rawURL, ownerID string) (*model.Lead, error) {
	lead, err := p.run(ctx, rawURL, ownerID)
	if p.deps.Observer != nil && !errors.Is(err, ErrOwnerRequired) {
		p.deps.Observer.ObserveRun(lead, err)
	}
	return lead, err
}

func (p *Pipeline) run(ctx context.Context, rawURL, ownerID string) (*model.Lead, error) {
	rawURL = strings.TrimSpace(rawURL)
	log := zap.L().With(zap.String("url", rawURL), zap.String("owner", ownerID))
	if ownerID == "" {
		return nil, ErrOwnerRequired
	}
	start := time.Now()

	content, err := p.acquire(ctx, log, rawURL)
	if err != nil {
		return nil, err
	}

	enr := p.enrich(ctx, log, content)

	var score float64
	p.stage(log, StageScore, func() error {
		score = scoring.Score(enr.profile, enr.contacts)
		return nil
	})

	email, draftErr := p.draft(ctx, log, enr.profile, score)
	if draftErr != nil {
		enr.degraded = append(enr.degraded, draftErr)
	}

	lead := assemble(rawURL, ownerID, content, enr, score, email)
	if err := p.persist(ctx, log, lead); err != nil {
		return nil, err
	}

	if p.deps.Notifier != nil {
		p.deps.Notifier.Dispatch(ctx, *lead)
	}

	log.Info("pipeline: lead analyzed",
		zap.String("lead_id", lead.ID),
		zap.Float64("score", lead.Score),
		zap.Strings("degraded", lead.Degraded),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return lead, nil
}

func (p *Pipeline) acquire(ctx context.Context, log *zap.Logger, rawURL string) (*model.AcquiredContent, error) {
	if err := p.validate.Var(rawURL, "required,http_url"); err != nil {
		aerr := &scrape.AcquisitionError{URL: rawURL, Reason: scrape.ReasonInvalidURL, Err: err}
		log.Error("pipeline: stage failed", zap.String("stage", StageAcquire), zap.Error(aerr))
		return nil, aerr
	}

	var content *model.AcquiredContent
	err := p.stage(log, StageAcquire, func() error {
		var err error
		content, err = p.deps.Acquirer.Acquire(ctx, rawURL)
		return err
	})
	if err != nil {
		return nil, err
	}
	return content, nil
}

// enrich runs contact extraction and company analysis concurrently.
func (p *Pipeline) enrich(ctx context.Context, log *zap.Logger, content *model.AcquiredContent) enrichment {
	var (
		enr        enrichment
		analyzeErr error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p.stage(log, StageExtract, func() error {
			enr.contacts = p.deps.Extractor.Extract(content.Content, content.Links)
			return nil
		})
		return nil
	})
	g.Go(func() error {
		analyzeErr = p.degradable(log, StageAnalysis, func() error {
			var err error
			enr.profile, err = p.deps.Analyzer.Analyze(gctx, content)
			return err
		})
		return nil
	})
	_ = g.Wait()

	if analyzeErr != nil {
		enr.degraded = append(enr.degraded, &DegradedError{Stage: StageAnalysis, Err: analyzeErr})
	}
	return enr
}

func (p *Pipeline) draft(ctx context.Context, log *zap.Logger, profile model.CompanyProfile, score float64) (model.OutreachEmail, *DegradedError) {
	var email model.OutreachEmail
	err := p.degradable(log, StageOutreach, func() error {
		var err error
		email, err = p.deps.Drafter.Draft(ctx, profile, score)
		return err
	})
	if err != nil {
		return email, &DegradedError{Stage: StageOutreach, Err: err}
	}
	return email, nil
}

func (p *Pipeline) persist(ctx context.Context, log *zap.Logger, lead *model.Lead) error {
	return p.stage(log, StagePersist, func() error {
		if err := p.deps.Leads.CreateLead(ctx, lead); err != nil {
			return &PersistenceError{Err: err}
		}
		return nil
	})
}

// stage times fn and logs its outcome. Failures are logged at error level.
func (p *Pipeline) stage(log *zap.Logger, name string, fn func() error) error {
	start := time.Now()
	err := fn()
	fields := []zap.Field{
		zap.String("stage", name),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	}
	if err != nil {
		log.Error("pipeline: stage failed", append(fields, zap.Bool("transient", resilience.IsTransient(err)), zap.Error(err))...)
		return err
	}
	log.Debug("pipeline: stage complete", append(fields, zap.Bool("degraded", false))...)
	return nil
}

// degradable is stage for steps whose failure is replaced by a fallback.
func (p *Pipeline) degradable(log *zap.Logger, name string, fn func() error) error {
	start := time.Now()
	err := fn()
	fields := []zap.Field{
		zap.String("stage", name),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		zap.Bool("degraded", err != nil),
	}
	if err != nil {
		log.Warn("pipeline: stage degraded", append(fields, zap.Bool("transient", resilience.IsTransient(err)), zap.Error(err))...)
		return err
	}
	log.Debug("pipeline: stage complete", fields...)
	return nil
}

func assemble(rawURL, ownerID string, content *model.AcquiredContent, enr enrichment, score float64, email model.OutreachEmail) *model.Lead {
	lead := &model.Lead{
		OwnerID:  ownerID,
		URL:      rawURL,
		Profile:  enr.profile,
		Score:    score,
		Contacts: enr.contacts,
		Email:    email,
		Scrape:   content.Snapshot(),
	}
	lead.Profile.Normalize()
	for _, d := range enr.degraded {
		lead.Degraded = append(lead.Degraded, d.Stage)
	}
	return lead
}
