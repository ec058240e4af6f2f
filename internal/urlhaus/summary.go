package urlhaus

import (
	"cmp"
	"context"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	summaryURLs     = 50
	summaryPayloads = 20
	topEntries      = 10
	topPayloadKinds = 5
)

// IntelligenceSummary fetches recent URLs and payloads concurrently and ranks
// threats, hosts, tags, file types and signatures.
func (c *Client) IntelligenceSummary(ctx context.Context) (*Summary, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	var urls []URLEntry
	var payloads []Payload

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		urls, err = c.RecentURLs(gctx, summaryURLs)
		return err
	})
	g.Go(func() error {
		var err error
		payloads, err = c.RecentPayloads(gctx, summaryPayloads)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return summarize(urls, payloads, c.now()), nil
}

func summarize(urls []URLEntry, payloads []Payload, now time.Time) *Summary {
	threats := map[string]int{}
	domains := map[string]int{}
	tags := map[string]int{}
	for _, u := range urls {
		threat := u.Threat
		if threat == "" {
			threat = "unknown"
		}
		threats[threat]++
		if u.Host != "" {
			domains[u.Host]++
		}
		for _, t := range u.Tags {
			tags[t]++
		}
	}

	fileTypes := map[string]int{}
	signatures := map[string]int{}
	for _, p := range payloads {
		ft := p.FileType
		if ft == "" {
			ft = "unknown"
		}
		fileTypes[ft]++
		if p.Signature != "" {
			signatures[p.Signature]++
		}
	}

	total := 0
	for _, n := range threats {
		total += n
	}

	return &Summary{
		Threats:    top(threats, topEntries),
		TopDomains: top(domains, topEntries),
		TopTags:    top(tags, topEntries),
		FileTypes:  top(fileTypes, topPayloadKinds),
		Signatures: top(signatures, topPayloadKinds),
		Stats: SummaryStats{
			RecentURLs:     len(urls),
			RecentPayloads: len(payloads),
			TotalThreats:   total,
			UniqueDomains:  len(domains),
			UniqueTags:     len(tags),
		},
		Timestamp: now.UTC(),
	}
}

// top returns the n most frequent names, ties broken alphabetically.
func top(counts map[string]int, n int) []Count {
	out := make([]Count, 0, len(counts))
	for name, c := range counts {
		out = append(out, Count{Name: name, Count: c})
	}
	slices.SortFunc(out, func(a, b Count) int {
		if a.Count != b.Count {
			return cmp.Compare(b.Count, a.Count)
		}
		return cmp.Compare(a.Name, b.Name)
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
