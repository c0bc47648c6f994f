package services

import (
	"context"
	"fmt"
	"perimeterd/internal/models"
	"perimeterd/internal/perimeter"
	"perimeterd/internal/providers"
	"perimeterd/internal/store"
	"perimeterd/internal/structures"
	"strings"
	"sync"

	json "github.com/goccy/go-json"
)

const stationCachePrefix = "stations:"

type StationServiceInterface interface {
	Search(ctx context.Context, query string) ([]models.Station, error)
	Select(index int) (models.Station, error)
	Results() []models.Station
}

// StationService filters directory results and keeps the last list around
// so the operator can pick one by number.
type StationService struct {
	mu         sync.Mutex
	results    []models.Station
	directory  perimeter.StationDirectory
	cache      providers.CacheProviderInterface
	matcher    *perimeter.Matcher
	store      store.StoreInterface
	logger     providers.Logger
	minBitrate int
}

func (ss *StationService) Search(ctx context.Context, query string) ([]models.Station, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, fmt.Errorf("%w: empty search query", perimeter.ErrInvalidArgument)
	}

	raw, err := ss.lookup(ctx, q)
	if err != nil {
		return nil, err
	}

	stations := make([]models.Station, 0, len(raw))
	for _, s := range raw {
		if s.Bitrate > 0 && s.Bitrate < ss.minBitrate {
			continue
		}
		if term, blocked := ss.matcher.MatchStation(s); blocked {
			ss.logger.Debugf(providers.TypeDirectory, "Filtered station %q (term %q)", s.Name, term)
			continue
		}
		stations = append(stations, s)
	}
	if len(stations) == 0 {
		return nil, fmt.Errorf("%w: no usable stations after filters", perimeter.ErrNoResults)
	}

	ss.mu.Lock()
	ss.results = stations
	ss.mu.Unlock()

	if err := ss.store.UpdateRestoreMemory(func(r *models.RestoreMemory) { r.LastSearchQuery = q }); err != nil {
		ss.logger.Errorf(providers.TypeStore, "Failed to persist last search query: %v", err)
	}

	out := make([]models.Station, len(stations))
	copy(out, stations)
	return out, nil
}

// lookup serves directory responses from the cache when possible.
func (ss *StationService) lookup(ctx context.Context, q string) ([]models.Station, error) {
	key := stationCachePrefix + strings.ToLower(q)
	if data, ok := ss.cache.Get(key); ok {
		var cached []models.Station
		if err := json.Unmarshal(data, &cached); err == nil {
			return cached, nil
		}
		ss.logger.Warnf(providers.TypeDirectory, "Discarding unreadable cache entry for %q", q)
	}

	raw, err := ss.directory.Search(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("searching stations for %q: %w", q, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: no stations found", perimeter.ErrNoResults)
	}

	if data, err := json.Marshal(raw); err == nil {
		ss.cache.Set(key, data)
	}
	return raw, nil
}

// Select returns the 1-based entry from the last search.
func (ss *StationService) Select(index int) (models.Station, error) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if len(ss.results) == 0 {
		return models.Station{}, fmt.Errorf("%w: run search first", perimeter.ErrNoResults)
	}
	if index < 1 || index > len(ss.results) {
		return models.Station{}, fmt.Errorf("%w: use 1-%d", perimeter.ErrInvalidSelection, len(ss.results))
	}
	return ss.results[index-1], nil
}

func (ss *StationService) Results() []models.Station {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	out := make([]models.Station, len(ss.results))
	copy(out, ss.results)
	return out
}

func NewStationService(
	conf *structures.Config,
	directory perimeter.StationDirectory,
	cache providers.CacheProviderInterface,
	matcher *perimeter.Matcher,
	st store.StoreInterface,
	logger providers.Logger,
) StationServiceInterface {
	return &StationService{
		directory:  directory,
		cache:      cache,
		matcher:    matcher,
		store:      st,
		logger:     logger,
		minBitrate: conf.Perimeter.MinBitrateKbps,
	}
}
