package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"geoassist-be/internal/config"
	"geoassist-be/internal/pkg/logger"
	"geoassist-be/pkg/geo"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

var ErrGeocoderDisabled = errors.New("geocoder api key not configured")

type IGeocoderService interface {
	ReverseGeocode(ctx context.Context, p geo.Point) (string, error)
}

// geocoderService resolves addresses through Geoapify. Answers are cached per
// rounded coordinate and outbound calls are throttled so a burst of location
// shares cannot exhaust the API quota.
type geocoderService struct {
	apiKey  string
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	cache   *cache.Cache
	logger  logger.ILogger
}

func NewGeocoderService(cfg config.GeocoderConfig, apiKey string, log logger.ILogger) IGeocoderService {
	return newGeocoderService(cfg, apiKey, &http.Client{Timeout: cfg.Timeout}, log)
}

func newGeocoderService(cfg config.GeocoderConfig, apiKey string, client *http.Client, log logger.ILogger) *geocoderService {
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	limit := rate.Limit(cfg.Rate)
	if cfg.Rate <= 0 {
		limit = rate.Inf
	}
	return &geocoderService{
		apiKey:  apiKey,
		baseURL: cfg.BaseURL,
		client:  client,
		limiter: rate.NewLimiter(limit, burst),
		cache:   cache.New(cfg.CacheTTL, 2*cfg.CacheTTL),
		logger:  log,
	}
}

// ~1 m precision is plenty for a street address
func cacheKey(p geo.Point) string {
	return fmt.Sprintf("%.5f,%.5f", p.Latitude, p.Longitude)
}

func (s *geocoderService) ReverseGeocode(ctx context.Context, p geo.Point) (string, error) {
	key := cacheKey(p)
	if val, ok := s.cache.Get(key); ok {
		return val.(string), nil
	}
	if s.apiKey == "" {
		return "", ErrGeocoderDisabled
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("geocoder rate limit: %w", err)
	}

	address, err := s.fetch(ctx, p)
	if err != nil {
		s.logger.Warn("GEOCODER", "Reverse geocoding failed", map[string]interface{}{
			"point": p.String(),
			"error": err.Error(),
		})
		return "", err
	}

	s.cache.Set(key, address, cache.DefaultExpiration)
	return address, nil
}

func (s *geocoderService) fetch(ctx context.Context, p geo.Point) (string, error) {
	params := url.Values{}
	params.Add("lat", strconv.FormatFloat(p.Latitude, 'f', 6, 64))
	params.Add("lon", strconv.FormatFloat(p.Longitude, 'f', 6, 64))
	params.Add("format", "json")
	params.Add("apiKey", s.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", err
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("geoapify returned status %d", resp.StatusCode)
	}

	var result struct {
		Results []struct {
			Formatted string `json:"formatted"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode geoapify response: %w", err)
	}
	if len(result.Results) == 0 || result.Results[0].Formatted == "" {
		return "", fmt.Errorf("no address found for %s", p.String())
	}

	s.logger.Debug("GEOCODER", "Address resolved", map[string]interface{}{
		"point":    p.String(),
		"duration": time.Since(start).String(),
	})
	return result.Results[0].Formatted, nil
}
