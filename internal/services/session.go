package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"

	"github.com/abrezinsky/tennisbracket/internal/bracket"
	"github.com/abrezinsky/tennisbracket/internal/errors"
	"github.com/abrezinsky/tennisbracket/internal/logger"
	"github.com/abrezinsky/tennisbracket/internal/models"
	"github.com/abrezinsky/tennisbracket/internal/repository"
	"github.com/abrezinsky/tennisbracket/internal/storage"
)

// Mode selects what a session allows.
type Mode string

const (
	ModeView    Mode = "view"
	ModePredict Mode = "predict"
)

// Broadcaster sends session events to connected clients
type Broadcaster interface {
	BroadcastToSession(session string, msg models.WSMessage)
}

// OpenRequest asks for a bracket session on a tournament page
type OpenRequest struct {
	Tournament string `json:"tournament"`
	Mode       Mode   `json:"mode"`
}

// Session is a copy of a session's state, safe to encode after the session
// has moved on.
type Session struct {
	ID               string               `json:"id"`
	Tournament       string               `json:"tournament"`
	Title            string               `json:"title"`
	Mode             Mode                 `json:"mode"`
	Method           Method               `json:"method"`
	Stage            *bracket.Stage       `json:"stage"`
	Champion         *bracket.Participant `json:"champion,omitempty"`
	CompletedThrough int                  `json:"completed_through"`
	Predictions      []bracket.Prediction `json:"predictions,omitempty"`
	Counters         bracket.Counters     `json:"counters"`
	PredictionRate   float64              `json:"prediction_rate"`
	Opened           time.Time            `json:"opened"`
}

// PredictResult is the recorded prediction and the session after it
type PredictResult struct {
	Prediction bracket.Prediction `json:"prediction"`
	Session    *Session           `json:"session"`
}

// RefreshResult summarizes one refresh of a session
type RefreshResult struct {
	Resolutions []bracket.Resolution `json:"resolutions"`
	Skipped     int                  `json:"skipped"`
	Counters    bracket.Counters     `json:"counters"`
}

// SaveResult describes a saved prediction bracket
type SaveResult struct {
	ID         int64  `json:"id"`
	Title      string `json:"title"`
	ArchiveKey string `json:"archive_key,omitempty"`
}

type session struct {
	mu         sync.Mutex
	id         string
	tournament string
	title      string
	mode       Mode
	method     Method
	stage      *bracket.Stage
	tracker    *bracket.Tracker
	projected  bool
	opened     time.Time
	events     []models.WSMessage
}

func (sess *session) emit(kind string, payload any) {
	sess.events = append(sess.events, models.WSMessage{Type: kind, Session: sess.id, Payload: payload})
}

func (sess *session) drain() []models.WSMessage {
	events := sess.events
	sess.events = nil
	return events
}

func (sess *session) handlers(listener bracket.ResolutionHandler) []bracket.ResolutionHandler {
	if sess.tracker != nil {
		return []bracket.ResolutionHandler{sess.tracker, listener}
	}
	return []bracket.ResolutionHandler{listener}
}

// checkProjection queues projection_ready the first time the quarterfinal
// projection can be built.
func (sess *session) checkProjection() {
	if sess.projected {
		return
	}
	proj, err := bracket.Project(sess.stage, bracket.QuarterfinalRound(sess.stage))
	if err != nil || !proj.Ready {
		return
	}
	sess.projected = true
	sess.emit(models.MessageProjectionReady, proj)
}

func (sess *session) view() *Session {
	stage := sess.stage.Clone()
	v := &Session{
		ID:               sess.id,
		Tournament:       sess.tournament,
		Title:            sess.title,
		Mode:             sess.mode,
		Method:           sess.method,
		Stage:            stage,
		CompletedThrough: stage.CompletedThrough(),
		Opened:           sess.opened,
	}
	if id, ok := stage.Champion(); ok {
		if p, ok := stage.Participant(id); ok {
			v.Champion = &p
		}
	}
	if sess.tracker != nil {
		v.Predictions = sess.tracker.Predictions()
		v.Counters = sess.tracker.Counters()
		v.PredictionRate = v.Counters.Rate()
	}
	return v
}

// sessionListener queues engine notifications as websocket messages. It is
// only called with the session locked.
type sessionListener struct {
	sess *session
}

func (l sessionListener) MatchResolved(res bracket.Resolution) {
	l.sess.emit(models.MessageMatchResolved, res)
}

func (l sessionListener) PredictionVerdict(out bracket.PredictionOutcome) {
	l.sess.emit(models.MessagePredictionVerdict, out)
}

// SessionService holds one bracket per open session. Each session has its own
// lock, so requests, scheduled refreshes and broadcasts never touch a stage
// concurrently.
type SessionService struct {
	log         logger.Logger
	roster      RosterProvider
	stored      RosterProvider
	records     RecordSource
	repo        repository.BracketRepository
	archiver    storage.Archiver
	settings    *SettingsService
	broadcaster Broadcaster
	publicURL   string

	mu       sync.RWMutex
	sessions map[string]*session

	newID func() string
	now   func() time.Time
}

// SessionRepository defines the repository methods needed by SessionService
type SessionRepository interface {
	repository.BracketRepository
	repository.SettingsRepository
}

// NewSessionService creates a new SessionService. Stored brackets in repo
// are the database roster provider for prediction sessions.
func NewSessionService(log logger.Logger, roster RosterProvider, records RecordSource, repo SessionRepository, archiver storage.Archiver) *SessionService {
	if archiver == nil {
		archiver = storage.NopArchiver{}
	}
	return &SessionService{
		log:      log,
		roster:   roster,
		stored:   NewDatabaseRoster(repo),
		records:  records,
		repo:     repo,
		archiver: archiver,
		settings: NewSettingsService(log, repo),
		sessions: make(map[string]*session),
		newID:    uuid.NewString,
		now:      time.Now,
	}
}

// SetBroadcaster sets the broadcaster for sending updates to clients
func (s *SessionService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// SetPublicURL sets the share link base used when no base_url setting exists
func (s *SessionService) SetPublicURL(url string) {
	s.publicURL = url
}

func (s *SessionService) publish(events []models.WSMessage) {
	if s.broadcaster == nil {
		return
	}
	for _, msg := range events {
		s.broadcaster.BroadcastToSession(msg.Session, msg)
	}
}

func (s *SessionService) session(id string) (*session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// withSession runs fn with the session locked, then publishes what it queued
func (s *SessionService) withSession(id string, fn func(*session) error) error {
	sess, err := s.session(id)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	err = fn(sess)
	events := sess.drain()
	sess.mu.Unlock()
	s.publish(events)
	return err
}

// Open fetches a tournament and builds its bracket. In predict mode a stored
// bracket with the same title is restored, predictions included, before the
// fresh results are applied. Nothing is built when a fetch fails.
func (s *SessionService) Open(ctx context.Context, req OpenRequest) (*Session, error) {
	tournament := strings.TrimSpace(req.Tournament)
	if tournament == "" {
		return nil, ErrMissingTournament
	}
	mode := req.Mode
	if mode == "" {
		mode = ModeView
	}
	if mode != ModeView && mode != ModePredict {
		return nil, errors.InvalidInputf("unknown mode %q", mode)
	}

	roster, err := s.roster.Roster(ctx, tournament)
	if err != nil {
		return nil, err
	}
	records, err := s.records.Records(ctx, tournament)
	if err != nil {
		return nil, err
	}

	sess := &session{
		id:         s.newID(),
		tournament: tournament,
		title:      roster.Title,
		mode:       mode,
		method:     roster.Method,
		opened:     s.now(),
	}
	listener := sessionListener{sess: sess}

	if mode == ModePredict {
		stored, err := s.stored.Roster(ctx, roster.Title)
		switch {
		case err == nil:
			stage, tracker, _, err := bracket.Restore(*stored.Snapshot, listener, listener)
			if err != nil {
				return nil, err
			}
			sess.stage, sess.tracker, sess.method = stage, tracker, MethodDatabase
		case errors.Is(err, errors.ErrNotFound):
		default:
			return nil, err
		}
	}
	if sess.stage == nil {
		stage, err := bracket.Build(roster.Seeds, bracket.WithOrdering(bracket.OrderNatural))
		if err != nil {
			return nil, err
		}
		sess.stage = stage
		if mode == ModePredict {
			sess.tracker = bracket.NewTracker(stage, listener)
		}
	}

	rep := bracket.NewReconciler(sess.handlers(listener)...).Reconcile(sess.stage, records)
	sess.checkProjection()
	// nobody can be subscribed to a session that does not exist yet
	sess.drain()

	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()

	s.log.Info("session opened", "session", sess.id, "tournament", tournament, "mode", mode,
		"method", sess.method, "resolutions", len(rep.Resolutions), "skipped", rep.Skipped)
	return sess.view(), nil
}

// Get returns the current state of a session
func (s *SessionService) Get(ctx context.Context, id string) (*Session, error) {
	var v *Session
	err := s.withSession(id, func(sess *session) error {
		v = sess.view()
		return nil
	})
	return v, err
}

// Projection returns the bracket from fromRound onward, or from the
// quarterfinals when fromRound is zero
func (s *SessionService) Projection(ctx context.Context, id string, fromRound int) (*bracket.Projection, error) {
	var proj *bracket.Projection
	err := s.withSession(id, func(sess *session) error {
		if fromRound == 0 {
			fromRound = bracket.QuarterfinalRound(sess.stage)
		}
		var err error
		proj, err = bracket.Project(sess.stage, fromRound)
		if err != nil {
			return err
		}
		sess.checkProjection()
		return nil
	})
	return proj, err
}

// Predict records a prediction in a predict-mode session
func (s *SessionService) Predict(ctx context.Context, id string, in bracket.PredictionInput) (*PredictResult, error) {
	var result *PredictResult
	err := s.withSession(id, func(sess *session) error {
		if sess.tracker == nil {
			return ErrViewOnly
		}
		pred, err := sess.tracker.Record(in)
		if err != nil {
			return err
		}
		result = &PredictResult{Prediction: pred, Session: sess.view()}
		return nil
	})
	return result, err
}

// Refresh fetches the latest results and reconciles the session against them
func (s *SessionService) Refresh(ctx context.Context, id string) (*RefreshResult, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}
	s.invalidate(sess.tournament)
	return s.refresh(ctx, sess)
}

func (s *SessionService) invalidate(tournament string) {
	if inv, ok := s.records.(interface{ Invalidate(string) }); ok {
		inv.Invalidate(tournament)
	}
}

func (s *SessionService) refresh(ctx context.Context, sess *session) (*RefreshResult, error) {
	records, err := s.records.Records(ctx, sess.tournament)
	if err != nil {
		return nil, err
	}

	var result *RefreshResult
	err = s.withSession(sess.id, func(sess *session) error {
		rep := bracket.NewReconciler(sess.handlers(sessionListener{sess: sess})...).Reconcile(sess.stage, records)
		sess.checkProjection()
		result = &RefreshResult{Resolutions: rep.Resolutions, Skipped: rep.Skipped}
		if sess.tracker != nil {
			result.Counters = sess.tracker.Counters()
		}
		return nil
	})
	if err == nil && len(result.Resolutions) > 0 {
		s.log.Info("session refreshed", "session", sess.id, "resolutions", len(result.Resolutions))
	}
	return result, err
}

// RefreshAll refreshes every open session, fetching each tournament once.
// Failures are logged and the rest carry on. It returns the number of
// sessions refreshed.
func (s *SessionService) RefreshAll(ctx context.Context) int {
	s.mu.RLock()
	byTournament := make(map[string][]*session)
	for _, sess := range s.sessions {
		byTournament[sess.tournament] = append(byTournament[sess.tournament], sess)
	}
	s.mu.RUnlock()

	tournaments := make([]string, 0, len(byTournament))
	for t := range byTournament {
		tournaments = append(tournaments, t)
	}
	sort.Strings(tournaments)

	refreshed := 0
	for _, t := range tournaments {
		s.invalidate(t)
		for _, sess := range byTournament[t] {
			if ctx.Err() != nil {
				return refreshed
			}
			if _, err := s.refresh(ctx, sess); err != nil {
				s.log.Warn("scheduled refresh failed", "session", sess.id, "tournament", t, "error", err)
				continue
			}
			refreshed++
		}
	}
	return refreshed
}

// Save stores the session's bracket, replacing an older save of the same
// tournament, and archives a copy. A failed archive is logged, not returned.
func (s *SessionService) Save(ctx context.Context, id string) (*SaveResult, error) {
	var snap bracket.Snapshot
	err := s.withSession(id, func(sess *session) error {
		if sess.tracker != nil {
			snap = sess.tracker.Snapshot(sess.title)
		} else {
			snap = sess.stage.Snapshot(sess.title)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	bracketID, err := s.repo.SaveBracket(ctx, snap)
	if err != nil {
		return nil, errors.Internal(err)
	}
	result := &SaveResult{ID: bracketID, Title: snap.Title}
	key, err := s.archiver.Archive(ctx, snap)
	if err != nil {
		s.log.Warn("bracket archive failed", "title", snap.Title, "error", err)
	} else {
		result.ArchiveKey = key
	}
	s.log.Info("bracket saved", "session", id, "title", snap.Title, "predictions", len(snap.Predictions))
	return result, nil
}

// Close forgets a session
func (s *SessionService) Close(ctx context.Context, id string) error {
	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	s.publish([]models.WSMessage{{Type: models.MessageSessionClosed, Session: id}})
	s.log.Info("session closed", "session", id)
	return nil
}

// Count returns the number of open sessions
func (s *SessionService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// ShareURL returns the link that opens the session in a browser
func (s *SessionService) ShareURL(ctx context.Context, id string) (string, error) {
	if _, err := s.session(id); err != nil {
		return "", err
	}
	baseURL, err := s.settings.GetBaseURL(ctx)
	if err != nil {
		return "", errors.Internal(err)
	}
	if baseURL == "" {
		baseURL = s.publicURL
	}
	if baseURL == "" {
		return "", ErrNoBaseURL
	}
	return strings.TrimSuffix(baseURL, "/") + "/?session=" + id, nil
}

// ShareQR returns a PNG QR code of the share link
func (s *SessionService) ShareQR(ctx context.Context, id string) ([]byte, error) {
	url, err := s.ShareURL(ctx, id)
	if err != nil {
		return nil, err
	}
	return qrcode.Encode(url, qrcode.Medium, 256)
}
