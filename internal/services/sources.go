package services

import (
	"context"
	stderrors "errors"

	"github.com/abrezinsky/tennisbracket/internal/bracket"
	"github.com/abrezinsky/tennisbracket/internal/cache"
	"github.com/abrezinsky/tennisbracket/internal/errors"
	"github.com/abrezinsky/tennisbracket/internal/logger"
	"github.com/abrezinsky/tennisbracket/internal/repository"
	"github.com/abrezinsky/tennisbracket/pkg/tennisabstract"
)

// Method records where a roster came from.
type Method string

const (
	MethodScraped  Method = "scraped"
	MethodDatabase Method = "database"
)

// Roster is a seeded draw ready to build. Database rosters also carry the
// stored snapshot they were read from.
type Roster struct {
	Title    string                 `json:"title"`
	Seeds    []*bracket.Participant `json:"seeds"`
	Method   Method                 `json:"method"`
	Snapshot *bracket.Snapshot      `json:"-"`
}

// RosterProvider supplies the roster of a tournament
type RosterProvider interface {
	Roster(ctx context.Context, tournament string) (*Roster, error)
}

// RecordSource supplies the completed results of a tournament
type RecordSource interface {
	Records(ctx context.Context, tournament string) ([]bracket.MatchRecord, error)
}

// ScrapedSource reads rosters and results from draw pages. Pages are cached
// so opening several sessions on one tournament fetches it once.
type ScrapedSource struct {
	log    logger.Logger
	client tennisabstract.Client
	loader *cache.Loader
}

// NewScrapedSource creates a ScrapedSource
func NewScrapedSource(log logger.Logger, client tennisabstract.Client, c cache.Cache) *ScrapedSource {
	return &ScrapedSource{log: log, client: client, loader: cache.NewLoader(c)}
}

func drawKey(path string) string {
	return "draw:" + path
}

func (s *ScrapedSource) draw(ctx context.Context, path string) (*tennisabstract.Draw, error) {
	v, err := s.loader.Load(ctx, drawKey(path), func(ctx context.Context) (any, error) {
		return s.client.FetchDraw(ctx, path)
	})
	if err != nil {
		s.log.Warn("draw fetch failed", "tournament", path, "error", err)
		return nil, errors.Unavailable("no data for "+path, err)
	}
	return v.(*tennisabstract.Draw), nil
}

// Roster returns the draw in page order, with byes as nil seeds
func (s *ScrapedSource) Roster(ctx context.Context, path string) (*Roster, error) {
	draw, err := s.draw(ctx, path)
	if err != nil {
		return nil, err
	}
	return &Roster{Title: draw.Title, Seeds: ToSeeds(draw.Roster), Method: MethodScraped}, nil
}

// Records returns the completed results of the draw
func (s *ScrapedSource) Records(ctx context.Context, path string) ([]bracket.MatchRecord, error) {
	draw, err := s.draw(ctx, path)
	if err != nil {
		return nil, err
	}
	return ToRecords(draw.Results), nil
}

// Invalidate drops the cached page so the next read fetches it again
func (s *ScrapedSource) Invalidate(path string) {
	s.loader.Forget(drawKey(path))
}

// ToSeeds converts a scraped roster to bracket seeds padded to a power of two.
func ToSeeds(roster []*tennisabstract.Player) []*bracket.Participant {
	seeds := make([]*bracket.Participant, len(roster))
	for i, p := range roster {
		if p != nil {
			seeds[i] = &bracket.Participant{ID: p.ID, Name: p.Name}
		}
	}
	return bracket.Pad(seeds)
}

// ToRecords converts scraped results to match records. Sets won are the
// score. Players missing from the roster leave the record incomplete so the
// reconciler skips it.
func ToRecords(results []tennisabstract.Result) []bracket.MatchRecord {
	records := make([]bracket.MatchRecord, 0, len(results))
	for _, r := range results {
		ws, ls := r.WinnerSets, r.LoserSets
		rec := bracket.MatchRecord{ScoreA: &ws, ScoreB: &ls}
		if r.WinnerID >= 0 {
			id := r.WinnerID
			rec.ParticipantA = &id
		}
		if r.LoserID >= 0 {
			id := r.LoserID
			rec.ParticipantB = &id
		}
		records = append(records, rec)
	}
	return records
}

// DatabaseRoster reads rosters from stored prediction brackets, keyed by
// title or slug.
type DatabaseRoster struct {
	repo repository.BracketRepository
}

// NewDatabaseRoster creates a DatabaseRoster
func NewDatabaseRoster(repo repository.BracketRepository) *DatabaseRoster {
	return &DatabaseRoster{repo: repo}
}

func (d *DatabaseRoster) Roster(ctx context.Context, title string) (*Roster, error) {
	snap, err := d.repo.GetBracket(ctx, title)
	if stderrors.Is(err, repository.ErrNotFound) {
		return nil, errors.NotFoundf("no stored bracket for %s", title)
	}
	if err != nil {
		return nil, errors.Internal(err)
	}
	return &Roster{Title: snap.Title, Seeds: snap.Roster, Method: MethodDatabase, Snapshot: snap}, nil
}

var (
	_ RosterProvider = (*ScrapedSource)(nil)
	_ RecordSource   = (*ScrapedSource)(nil)
	_ RosterProvider = (*DatabaseRoster)(nil)
)
