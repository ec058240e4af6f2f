package datastore

import (
	"context"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"strings"
	"time"

	"github.com/tphakala/phishguard/internal/errors"
	"github.com/tphakala/phishguard/internal/logger"
	"github.com/tphakala/phishguard/internal/normalize"
	"github.com/tphakala/phishguard/internal/observability/metrics"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//go:embed seed.yaml
var seedData []byte

// SeedConfidence is the confidence of the built-in known scam URLs.
const SeedConfidence = 0.9

// HashURL returns the key under which url is stored: sha256 hex of the lowercased,
// trimmed URL with https:// prepended when no http(s) scheme is present.
func HashURL(url string) string {
	normalized := normalize.EnsureScheme(strings.ToLower(strings.TrimSpace(url)))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// Lookup returns the active record for url. A hit increments report_count and
// refreshes last_seen in the same transaction; the post-increment row is returned.
// A miss returns ErrThreatNotFound.
func (ds *DataStore) Lookup(ctx context.Context, url string) (*ThreatRecord, error) {
	const op = metrics.OpDbUpdate + ":scam_urls"
	start := time.Now()
	hash := HashURL(url)

	var record ThreatRecord
	err := ds.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&ThreatRecord{}).
			Where("url_hash = ? AND is_active = ?", hash, true).
			Updates(map[string]any{
				"report_count": gorm.Expr("report_count + ?", 1),
				"last_seen":    nowFunc(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrThreatNotFound
		}
		return tx.Where("url_hash = ?", hash).First(&record).Error
	})
	ds.observe(op, start, err)

	switch {
	case err == nil:
		return &record, nil
	case errors.Is(err, ErrThreatNotFound):
		return nil, ErrThreatNotFound
	default:
		return nil, dbError(err, "lookup", errors.PriorityMedium, "url_hash", hash)
	}
}

// InsertOrBump inserts a record for url, or when one already exists increments its
// report_count and refreshes last_seen. Provenance of the first insert is kept.
func (ds *DataStore) InsertOrBump(ctx context.Context, url, threatType, source string, confidence float64, tags []string) (*ThreatRecord, error) {
	const op = metrics.OpDbInsert + ":scam_urls"
	start := time.Now()

	record, err := insertOrBump(ds.DB.WithContext(ctx), url, threatType, source, confidence, tags)
	ds.observe(op, start, err)
	if err != nil {
		return nil, dbError(err, "insert_or_bump", errors.PriorityMedium,
			"threat_type", threatType,
			"source", source)
	}
	return record, nil
}

// insertOrBump runs the upsert on db, which may be a transaction.
func insertOrBump(db *gorm.DB, url, threatType, source string, confidence float64, tags []string) (*ThreatRecord, error) {
	now := nowFunc()
	hash := HashURL(url)
	record := ThreatRecord{
		URLHash:     hash,
		OriginalURL: url,
		Domain:      normalize.Netloc(url),
		ThreatType:  threatType,
		Confidence:  confidence,
		Source:      source,
		Tags:        StringList(tags),
		FirstSeen:   now,
		LastSeen:    now,
		ReportCount: 1,
		IsActive:    true,
	}

	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "url_hash"}},
		DoUpdates: clause.Assignments(map[string]any{
			"report_count": gorm.Expr("report_count + ?", 1),
			"last_seen":    now,
		}),
	}).Create(&record).Error
	if err != nil {
		return nil, err
	}

	var stored ThreatRecord
	if err := db.Where("url_hash = ?", hash).First(&stored).Error; err != nil {
		return nil, err
	}
	return &stored, nil
}

// Deactivate soft-deletes the record for url.
func (ds *DataStore) Deactivate(ctx context.Context, url string) error {
	const op = metrics.OpDbUpdate + ":scam_urls"
	start := time.Now()
	hash := HashURL(url)

	result := ds.DB.WithContext(ctx).Model(&ThreatRecord{}).
		Where("url_hash = ? AND is_active = ?", hash, true).
		Update("is_active", false)
	err := result.Error
	if err == nil && result.RowsAffected == 0 {
		err = ErrThreatNotFound
	}
	ds.observe(op, start, err)

	switch {
	case err == nil:
		GetLogger().Info("Threat record deactivated", logger.String("url_hash", hash))
		return nil
	case errors.Is(err, ErrThreatNotFound):
		return ErrThreatNotFound
	default:
		return dbError(err, "deactivate", errors.PriorityMedium, "url_hash", hash)
	}
}

// SearchByDomain returns active records whose domain contains domain, most reported
// first. limit <= 0 uses DefaultSearchLimit.
func (ds *DataStore) SearchByDomain(ctx context.Context, domain string, limit int) ([]ThreatRecord, error) {
	start := time.Now()
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	var records []ThreatRecord
	err := ds.DB.WithContext(ctx).
		Where("domain LIKE ? AND is_active = ?", "%"+domain+"%", true).
		Order("report_count DESC, first_seen DESC").
		Limit(limit).
		Find(&records).Error
	ds.observe(metrics.OpSearch, start, err)
	if err != nil {
		return nil, dbError(err, "search_by_domain", errors.PriorityLow, "domain", domain)
	}
	if ds.metrics != nil {
		ds.metrics.RecordSearchResultSize("domain", len(records))
	}
	return records, nil
}

// seedEntry is one built-in known scam URL.
type seedEntry struct {
	URL        string   `yaml:"url"`
	ThreatType string   `yaml:"threat_type"`
	Source     string   `yaml:"source"`
	Tags       []string `yaml:"tags"`
}

func loadSeed() ([]seedEntry, error) {
	var entries []seedEntry
	if err := yaml.Unmarshal(seedData, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// SeedDefaults loads the built-in known scam URLs. Reseeding bumps report counts
// of existing rows. It returns the number of entries processed.
func (ds *DataStore) SeedDefaults(ctx context.Context) (int, error) {
	const op = metrics.OpMaintenance + ":seed"
	start := time.Now()

	entries, err := loadSeed()
	if err != nil {
		return 0, errors.New(err).
			Component("datastore").
			Category(errors.CategoryParsing).
			Context("operation", "load_seed").
			Build()
	}

	err = ds.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, e := range entries {
			if _, err := insertOrBump(tx, e.URL, e.ThreatType, e.Source, SeedConfidence, e.Tags); err != nil {
				return err
			}
		}
		return nil
	})
	ds.observe(op, start, err)
	if err != nil {
		return 0, dbError(err, "seed_defaults", errors.PriorityMedium)
	}

	GetLogger().Info("Seeded default scam URLs", logger.Int("count", len(entries)))
	return len(entries), nil
}
