// Package alerts implements the alert log and the submission lifecycle.
package alerts

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/bissquit/alerty/internal/classifier"
	"github.com/bissquit/alerty/internal/domain"
	"github.com/bissquit/alerty/internal/pkg/ctxlog"
	"github.com/bissquit/alerty/internal/toast"
	"github.com/google/uuid"
)

// Classifier assigns a severity and formatted message. It never fails outward.
type Classifier interface {
	Classify(ctx context.Context, incident, location string) classifier.Result
}

// Notifier fans an alert out to the device.
type Notifier interface {
	Dispatch(ctx context.Context, alert domain.Alert, settings domain.NotificationSettings)
}

// SettingsSource provides the current notification settings.
type SettingsSource interface {
	Current(ctx context.Context) domain.NotificationSettings
}

// Toaster shows the in-app confirmation.
type Toaster interface {
	Show(message, subMessage string) toast.Toast
}

// State is the submission state.
type State string

// Submission states.
const (
	StateIdle        State = "idle"
	StateClassifying State = "classifying"
)

// SubmitInput is a new incident report.
type SubmitInput struct {
	Incident    string
	Location    string
	Notes       string
	Coordinates *domain.Coordinates
}

// View is the alert history as shown to the user.
type View struct {
	Alerts               []domain.Alert `json:"alerts"`
	Total                int            `json:"total"`
	UnhandledCount       int            `json:"unhandled_count"`
	HasCriticalUnhandled bool           `json:"has_critical_unhandled"`
}

// Service orchestrates alert submission and history mutations.
type Service struct {
	store      *MemoryStore
	classifier Classifier
	notifier   Notifier
	settings   SettingsSource
	toaster    Toaster
	now        func() time.Time
	newID      func() string

	mu         sync.Mutex
	state      State
	generation uint64
	cancel     context.CancelFunc
	closed     bool

	dispatches sync.WaitGroup
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the creation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides alert id generation.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

// NewService creates a new alerts service. notifier and toaster may be nil.
func NewService(
	store *MemoryStore,
	classifier Classifier,
	notifier Notifier,
	settings SettingsSource,
	toaster Toaster,
	opts ...Option,
) *Service {
	s := &Service{
		store:      store,
		classifier: classifier,
		notifier:   notifier,
		settings:   settings,
		toaster:    toaster,
		now:        time.Now,
		newID:      uuid.NewString,
		state:      StateIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit classifies, stores and dispatches a new alert.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*domain.Alert, error) {
	if strings.TrimSpace(in.Incident) == "" || strings.TrimSpace(in.Location) == "" {
		recordSubmission(resultInvalid)
		return nil, ErrValidation
	}

	gen, classifyCtx, cancel, err := s.begin(ctx)
	if err != nil {
		if errors.Is(err, ErrSubmissionInProgress) {
			recordSubmission(resultBusy)
		} else {
			recordSubmission(resultAbandoned)
		}
		return nil, err
	}
	defer s.finish(gen, cancel)

	result := s.classifier.Classify(classifyCtx, in.Incident, in.Location)

	alert := domain.Alert{
		ID:               s.newID(),
		Incident:         in.Incident,
		Location:         in.Location,
		Notes:            in.Notes,
		FormattedMessage: result.FormattedMessage,
		Severity:         result.Severity,
		CreatedAt:        s.now(),
		IsHandled:        false,
	}
	if in.Coordinates != nil {
		c := *in.Coordinates
		alert.Coordinates = &c
	}

	log := ctxlog.FromContext(ctx)

	s.mu.Lock()
	if s.generation != gen || s.closed || clientGone(ctx) {
		s.mu.Unlock()
		recordSubmission(resultAbandoned)
		log.Info("discarding abandoned submission", "incident", in.Incident)
		return nil, ErrSubmissionAbandoned
	}
	s.store.Insert(alert)
	if s.notifier != nil {
		s.dispatches.Add(1)
	}
	s.mu.Unlock()

	recordSubmission(resultAccepted)
	recordStoreState(s.store)
	log.Info("alert submitted",
		"alert_id", alert.ID,
		"severity", alert.Severity,
		"fallback", result.Fallback,
	)

	if s.notifier != nil {
		dispatchCtx := context.WithoutCancel(ctx)
		settings := s.settings.Current(dispatchCtx)
		dispatched := alert.Clone()
		go func() {
			defer s.dispatches.Done()
			s.notifier.Dispatch(dispatchCtx, dispatched, settings)
		}()
	}

	if s.toaster != nil {
		s.toaster.Show(alert.Incident, alert.Location)
	}

	return &alert, nil
}

func (s *Service) begin(ctx context.Context) (uint64, context.Context, context.CancelFunc, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, nil, nil, ErrSubmissionAbandoned
	}
	if s.state == StateClassifying {
		return 0, nil, nil, ErrSubmissionInProgress
	}

	// Classification is cancelled by a client disconnect, never by a deadline.
	classifyCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stop := context.AfterFunc(ctx, func() {
		if clientGone(ctx) {
			cancel()
		}
	})
	s.state = StateClassifying
	s.cancel = cancel
	return s.generation, classifyCtx, func() { stop(); cancel() }, nil
}

func clientGone(ctx context.Context) bool {
	return errors.Is(ctx.Err(), context.Canceled)
}

func (s *Service) finish(gen uint64, cancel context.CancelFunc) {
	cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	// A newer submission may already own the state after Abandon.
	if s.generation == gen {
		s.state = StateIdle
		s.cancel = nil
	}
}

// State reports whether a submission is being classified.
func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Abandon discards the result of any pending classification.
func (s *Service) Abandon() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.generation++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.state = StateIdle
}

// Close abandons pending work and waits for in-flight dispatches.
func (s *Service) Close() {
	s.Abandon()

	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.dispatches.Wait()
}

// List returns the alerts matching query, newest first.
func (s *Service) List(query string) View {
	alerts := s.store.View(query)
	return View{
		Alerts:               alerts,
		Total:                s.store.Len(),
		UnhandledCount:       s.store.UnhandledCount(),
		HasCriticalUnhandled: s.store.HasCriticalUnhandled(),
	}
}

// Get returns a single alert.
func (s *Service) Get(id string) (domain.Alert, error) {
	a, ok := s.store.Get(id)
	if !ok {
		return domain.Alert{}, ErrAlertNotFound
	}
	return a, nil
}

// Update edits the free-text fields of an alert. Unknown ids are a no-op.
// Incident and location cannot be cleared.
func (s *Service) Update(id string, patch domain.AlertPatch) (bool, error) {
	if patch.ClearsRequired() {
		return false, ErrValidation
	}
	return s.store.Update(id, patch), nil
}

// ToggleHandled flips the handled flag. Unknown ids are a no-op.
func (s *Service) ToggleHandled(id string) bool {
	ok := s.store.ToggleHandled(id)
	recordStoreState(s.store)
	return ok
}

// Delete removes an alert. Unknown ids are a no-op.
func (s *Service) Delete(id string) bool {
	ok := s.store.Delete(id)
	recordStoreState(s.store)
	return ok
}

// PurgeHandled removes every handled alert and returns how many were removed.
func (s *Service) PurgeHandled() int {
	n := s.store.PurgeHandled()
	recordStoreState(s.store)
	return n
}

// Share returns outbound links for an alert.
func (s *Service) Share(id string) (ShareLinks, error) {
	a, err := s.Get(id)
	if err != nil {
		return ShareLinks{}, err
	}
	return LinksFor(a)
}
