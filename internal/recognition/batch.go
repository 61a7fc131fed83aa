// Package recognition answers "who is this?" for many faces at once without
// side effects: nothing is created, promoted or logged in.
package recognition

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/your-org/faceid/internal/biometric"
	"github.com/your-org/faceid/internal/identity"
	"github.com/your-org/faceid/internal/models"
	"github.com/your-org/faceid/internal/observability"
)

// Population is the read side of the identity store.
type Population interface {
	ListWithFeatures(ctx context.Context) ([]models.Identity, error)
}

// Subject is one face to recognize.
type Subject struct {
	FeatureVector []float32
	WantImage     bool
}

// Result is the outcome for one subject. Err is set when the subject's vector
// was unusable; other subjects are unaffected.
type Result struct {
	Registered bool
	Identity   models.Identity
	Score      float64
	// Image is the avatar, filled only when the subject asked for it.
	Image string
	Err   error
}

type Service struct {
	population   Population
	engine       *biometric.Engine
	workers      int
	storeTimeout time.Duration
}

func NewService(population Population, engine *biometric.Engine, workers int, storeTimeout time.Duration) *Service {
	if workers <= 0 {
		workers = 1
	}
	if storeTimeout <= 0 {
		storeTimeout = 5 * time.Second
	}
	return &Service{
		population:   population,
		engine:       engine,
		workers:      workers,
		storeTimeout: storeTimeout,
	}
}

// RecognizeBatch matches every subject against one population snapshot.
// A store failure fails the whole call; an invalid subject only marks its own result.
func (s *Service) RecognizeBatch(ctx context.Context, subjects map[string]Subject) (map[string]Result, error) {
	if len(subjects) == 0 {
		return nil, fmt.Errorf("%w: no subjects to recognize", models.ErrInvalidInput)
	}

	population, err := s.loadPopulation(ctx)
	if err != nil {
		return nil, err
	}

	type job struct {
		key     string
		subject Subject
	}
	type outcome struct {
		key    string
		result Result
	}

	jobs := make(chan job)
	outcomes := make(chan outcome, len(subjects))

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < s.workers; i++ {
		g.Go(func() error {
			for j := range jobs {
				outcomes <- outcome{key: j.key, result: s.recognize(j.subject, population)}
			}
			return nil
		})
	}

	g.Go(func() error {
		defer close(jobs)
		for key, subject := range subjects {
			select {
			case jobs <- job{key: key, subject: subject}:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	close(outcomes)
	observability.MatchDuration.WithLabelValues("batch").Observe(time.Since(start).Seconds())

	results := make(map[string]Result, len(subjects))
	for o := range outcomes {
		results[o.key] = o.result
	}

	slog.Debug("batch recognition done", "subjects", len(subjects), "population", len(population))
	return results, nil
}

func (s *Service) recognize(subject Subject, population []models.Identity) Result {
	if err := s.engine.ValidateInput(subject.FeatureVector); err != nil {
		observability.BatchSubjects.WithLabelValues("invalid").Inc()
		return Result{Err: err}
	}

	match, ok := s.engine.FindBestMatch(subject.FeatureVector, population)
	if !ok {
		observability.BatchSubjects.WithLabelValues("unregistered").Inc()
		return Result{}
	}

	observability.BatchSubjects.WithLabelValues("registered").Inc()
	r := Result{Registered: true, Identity: match.Identity, Score: match.Score}
	if subject.WantImage {
		r.Image = match.Identity.Avatar
	}
	return r
}

func (s *Service) loadPopulation(ctx context.Context) ([]models.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	population, err := s.population.ListWithFeatures(ctx)
	if err != nil {
		return nil, identity.StoreError("list population", err)
	}
	observability.PopulationSize.Set(float64(len(population)))
	return population, nil
}
