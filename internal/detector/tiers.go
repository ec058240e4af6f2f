package detector

import (
	"context"
	"fmt"

	"github.com/tphakala/phishguard/internal/datastore"
	"github.com/tphakala/phishguard/internal/errors"
	"github.com/tphakala/phishguard/internal/heuristics"
	"github.com/tphakala/phishguard/internal/logger"
	"github.com/tphakala/phishguard/internal/urlhaus"
)

// analysis is the per call working state threaded through the tiers.
type analysis struct {
	verdict      *Verdict
	url          string
	host         string
	urlhausClean bool
}

// tier is one detection stage. run reports whether the pipeline stops after it.
type tier struct {
	name string
	run  func(ctx context.Context, a *analysis) (terminal bool)
}

// tiers returns the detection stages in precedence order.
func (d *Detector) tiers() []tier {
	return []tier{
		{MethodLocalDatabase, d.localDatabaseTier},
		{MethodURLhaus, d.urlhausTier},
		{MethodURLhausHost, d.urlhausHostTier},
		{MethodPhishTank, d.phishTankTier},
		{MethodPatternAnalysis, d.patternTier},
		{MethodURLStructure, d.structureTier},
		{MethodRegionalSpecific, d.regionalTier},
	}
}

func (d *Detector) localDatabaseTier(ctx context.Context, a *analysis) bool {
	rec, err := d.store.Lookup(ctx, a.url)
	if err != nil {
		if !errors.Is(err, datastore.ErrThreatNotFound) {
			// read failures fail open
			GetLogger().WithContext(ctx).Warn("local threat lookup failed", logger.Error(err))
			if d.metrics != nil {
				d.metrics.RecordStoreFailOpen("lookup")
			}
		}
		return false
	}

	v := a.verdict
	v.escalate(LevelCritical)
	v.hit(MethodLocalDatabase, rec.Confidence, fmt.Sprintf("Local DB: %s - %s", rec.ThreatType, rec.Source))
	return true
}

func (d *Detector) intelEnabled() bool {
	return d.intel != nil && d.intel.Configured()
}

func (d *Detector) urlhausTier(ctx context.Context, a *analysis) bool {
	if !d.intelEnabled() {
		return false
	}

	r := d.intel.QueryURL(ctx, a.url)
	if !r.IsMalicious {
		a.urlhausClean = r.Status == urlhaus.StatusClean
		return false
	}

	v := a.verdict
	v.escalate(LevelCritical)
	v.hit(MethodURLhaus, weightURLhaus, "URLhaus: "+r.Detail)
	d.writeThrough(ctx, a.url, r)

	// host reputation as supplementary evidence
	if hr := d.intel.QueryHost(ctx, a.host); hr.IsMalicious {
		v.hit(MethodURLhausHost, weightURLhausHostExtra, hostWarning(hr))
	}
	return true
}

// writeThrough caches an intel hit locally so the next lookup is served by the
// local database tier. It runs to completion even if ctx is cancelled.
func (d *Detector) writeThrough(ctx context.Context, u string, r urlhaus.URLResult) {
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.writeThroughTimeout)
	defer cancel()

	if _, err := d.store.InsertOrBump(wctx, u, datastore.ThreatMalware, datastore.SourceURLhaus, r.Confidence, r.Tags); err != nil {
		GetLogger().WithContext(ctx).Warn("URLhaus write-through failed", logger.Error(err))
		if d.metrics != nil {
			d.metrics.RecordStoreFailOpen("write_through")
		}
	}
}

func hostWarning(hr urlhaus.HostResult) string {
	return fmt.Sprintf("URLhaus Host: %d malware URLs found on this domain", hr.URLCount)
}

func (d *Detector) urlhausHostTier(ctx context.Context, a *analysis) bool {
	if !d.intelEnabled() {
		return false
	}

	hr := d.intel.QueryHost(ctx, a.host)
	if !hr.IsMalicious {
		return false
	}

	v := a.verdict
	v.escalate(LevelHigh)
	v.hit(MethodURLhausHost, weightURLhausHost, hostWarning(hr))
	return false
}

func (d *Detector) phishTankTier(ctx context.Context, a *analysis) bool {
	if d.phish == nil || !d.phish.Enabled() {
		return false
	}

	r := d.phish.Check(ctx, a.url)
	if !r.IsPhishing {
		return false
	}

	v := a.verdict
	if v.ThreatLevel == LevelSafe || v.ThreatLevel == LevelHigh {
		v.escalate(LevelCritical)
	}
	v.hit(MethodPhishTank, weightPhishTank, "PhishTank: "+r.Detail)
	return false
}

func (d *Detector) patternTier(_ context.Context, a *analysis) bool {
	r := heuristics.Pattern(a.url)
	if r.Score <= d.thresholds.Pattern {
		return false
	}

	v := a.verdict
	if v.ThreatLevel == LevelSafe {
		if r.Score > patternHighScore {
			v.escalate(LevelHigh)
		} else {
			v.escalate(LevelMedium)
		}
	}
	v.hit(MethodPatternAnalysis, r.Score*weightPatternMultiplier, "")
	return false
}

func (d *Detector) structureTier(_ context.Context, a *analysis) bool {
	r := heuristics.Structure(a.url)
	if r.Score <= d.thresholds.Structure {
		return false
	}

	v := a.verdict
	if v.ThreatLevel == LevelSafe {
		v.escalate(LevelMedium)
	}
	v.hit(MethodURLStructure, weightURLStructure, "")
	return false
}

func (d *Detector) regionalTier(_ context.Context, a *analysis) bool {
	r := heuristics.Regional(a.url)
	if r.Score <= d.thresholds.Regional {
		return false
	}

	v := a.verdict
	if v.ThreatLevel == LevelSafe || v.ThreatLevel == LevelMedium {
		v.escalate(LevelHigh)
	}
	v.hit(MethodRegionalSpecific, weightRegional, warnRegional)
	return false
}
