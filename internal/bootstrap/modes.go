package bootstrap

import (
	"geoassist-be/internal/config"
	"geoassist-be/internal/pkg/logger"
	"geoassist-be/internal/repository/memory"
	"geoassist-be/pkg/feature/archive"
	"geoassist-be/pkg/feature/geotag"
	"geoassist-be/pkg/feature/kml"
	"geoassist-be/pkg/feature/measurement"
	"geoassist-be/pkg/feature/ocr"
	"geoassist-be/pkg/feature/workbook"
	"geoassist-be/pkg/geo"
	"geoassist-be/pkg/mode"
	"geoassist-be/pkg/store"
	"geoassist-be/pkg/workflow"
)

// Collaborators are the outside services the mode workflows call.
type Collaborators struct {
	Geocoder    workflow.Geocoder
	Persistence workflow.Persistence
	Compressor  workflow.Compressor
	Extractor   workflow.TextExtractor
	Remover     workflow.FileRemover
	Observers   []mode.Observer
}

// NewModeManager builds the mode manager with every feature workflow
// registered and the configured TTLs applied.
func NewModeManager(cfg *config.Config, deps Collaborators, log logger.ILogger) *mode.Manager {
	opts := []mode.Option{
		mode.WithDefaultTTL(cfg.Session.DefaultTTL),
		mode.WithShards(cfg.Session.StoreShards),
		mode.WithLogger(log),
	}
	for name, ttl := range cfg.Session.ModeTTLs {
		m, err := store.ParseMode(name)
		if err != nil {
			continue
		}
		opts = append(opts, mode.WithTTL(m, ttl))
	}
	if deps.Geocoder != nil {
		opts = append(opts, mode.WithGeocoder(deps.Geocoder))
	}
	if deps.Persistence != nil {
		opts = append(opts, mode.WithPersistence(deps.Persistence))
	}
	for _, o := range deps.Observers {
		opts = append(opts, mode.WithObserver(o))
	}
	manager := mode.NewManager(opts...)

	profile, err := geo.ParseProfile(cfg.Session.DefaultProfile)
	if err != nil {
		log.Warn("BOOTSTRAP", "Unknown DEFAULT_TRAVEL_PROFILE, using CAR", map[string]interface{}{
			"value": cfg.Session.DefaultProfile,
		})
		profile = geo.ProfileCar
	}

	loc := cfg.App.Location()
	shards := memory.WithShards(cfg.Session.StoreShards)
	workflows := map[store.Mode]workflow.Workflow{
		store.ModeLocation: measurement.New(profile, shards),
		store.ModeWorkbook: workbook.New(loc, shards),
		store.ModeArchive:  archive.New(deps.Compressor, deps.Remover, shards),
		store.ModeGeotags:  geotag.New(deps.Remover, loc, shards),
		store.ModeKML:      kml.New(shards),
		store.ModeOCR:      ocr.New(deps.Extractor, deps.Remover, shards),
	}
	for m, wf := range workflows {
		if err := manager.RegisterMode(m, wf); err != nil {
			log.Error("BOOTSTRAP", "Failed to register mode", map[string]interface{}{
				"mode":  m,
				"error": err.Error(),
			})
		}
	}
	return manager
}
