package urlhaus

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/antonholmquist/jason"
)

const (
	queryStatusOK        = "ok"
	queryStatusNoResults = "no_results"

	dateLayout = "2006-01-02 15:04:05"

	baseConfidence      = 0.9
	offlinePenalty      = 0.1
	unknownStatePenalty = 0.2
	stalePenalty        = 0.1
	staleAfter          = 30 * 24 * time.Hour
	malwareTagBonus     = 0.05
	maxTaggedConfidence = 0.95

	// hostConfidence is reported for hosts URLhaus lists as serving malware.
	hostConfidence = 0.85
)

var malwareTags = map[string]struct{}{
	"exe": {}, "dll": {}, "zip": {}, "rar": {},
	"malware": {}, "trojan": {}, "ransomware": {},
}

// Confidence scores a detected URL from its liveness, age and tags.
func Confidence(urlStatus string, dateAdded time.Time, tags []string, now time.Time) float64 {
	c := baseConfidence

	switch strings.ToLower(urlStatus) {
	case "online":
	case "offline":
		c -= offlinePenalty
	default:
		c -= unknownStatePenalty
	}

	if !dateAdded.IsZero() && now.Sub(dateAdded) > staleAfter {
		c -= stalePenalty
	}

	for _, tag := range tags {
		if _, ok := malwareTags[strings.ToLower(tag)]; ok {
			c = min(c+malwareTagBonus, maxTaggedConfidence)
			break
		}
	}

	return max(0, min(c, 1))
}

// parseTime reads URLhaus timestamps, "2006-01-02 15:04:05" with an optional
// " UTC" suffix. Unparseable input yields the zero time.
func parseTime(s string) time.Time {
	s = strings.TrimSuffix(strings.TrimSpace(s), " UTC")
	if s == "" {
		return time.Time{}
	}
	t, err := time.ParseInLocation(dateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}
	}
	return t
}

// str returns the first of keys holding a string or number.
func str(o *jason.Object, keys ...string) string {
	for _, k := range keys {
		v, err := o.GetValue(k)
		if err != nil {
			continue
		}
		if s, err := v.String(); err == nil {
			return s
		}
		if n, err := v.Number(); err == nil {
			return n.String()
		}
	}
	return ""
}

func integer(o *jason.Object, key string) int64 {
	n, err := strconv.ParseInt(str(o, key), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// stringList skips null and non-string entries; URLhaus sends "tags": null.
func stringList(o *jason.Object, key string) []string {
	arr, err := o.GetValueArray(key)
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, v := range arr {
		if s, err := v.String(); err == nil && s != "" {
			out = append(out, s)
		}
	}
	return out
}

func stringMap(o *jason.Object, key string) map[string]string {
	obj, err := o.GetObject(key)
	if err != nil {
		return nil
	}
	out := make(map[string]string)
	for k, v := range obj.Map() {
		if s, err := v.String(); err == nil {
			out[k] = s
		}
	}
	return out
}

func objects(o *jason.Object, key string) []*jason.Object {
	arr, err := o.GetObjectArray(key)
	if err != nil {
		return nil
	}
	return arr
}

// parseURLResponse translates a /url/ response. The v1 API answers with the
// entry at top level; an urls array is accepted as well.
func parseURLResponse(o *jason.Object, now time.Time) URLResult {
	switch qs := str(o, "query_status"); qs {
	case queryStatusOK:
		entry := o
		if list := objects(o, "urls"); len(list) > 0 {
			entry = list[0]
		}
		threat := str(entry, "threat")
		if threat == "" {
			threat = "unknown"
		}
		r := URLResult{
			IsMalicious: true,
			ThreatType:  threat,
			Status:      StatusDetected,
			Detail:      "MALWARE DETECTED - Threat: " + threat,
			URLStatus:   str(entry, "url_status"),
			Tags:        stringList(entry, "tags"),
			DateAdded:   parseTime(str(entry, "date_added", "dateadded")),
			Blacklists:  stringMap(entry, "blacklists"),
			Reference:   str(entry, "urlhaus_reference"),
		}
		r.Confidence = Confidence(r.URLStatus, r.DateAdded, r.Tags, now)
		return r
	case queryStatusNoResults:
		return URLResult{Status: StatusClean, Detail: "URL not found in malware database"}
	case "":
		return URLResult{Status: StatusMalformed, Detail: "response has no query_status"}
	default:
		return URLResult{Status: StatusAPIError, Detail: "API error: " + qs}
	}
}

func parseHostResponse(o *jason.Object, host string) HostResult {
	switch qs := str(o, "query_status"); qs {
	case queryStatusOK:
		r := HostResult{
			Host:        host,
			IsMalicious: true,
			Confidence:  hostConfidence,
			ThreatType:  "malware_download",
			Status:      StatusDetected,
			URLCount:    int(integer(o, "url_count")),
			Blacklists:  stringMap(o, "blacklists"),
			FirstSeen:   parseTime(str(o, "firstseen")),
			Reference:   str(o, "urlhaus_reference"),
		}
		if urls := objects(o, "urls"); len(urls) > 0 {
			if threat := str(urls[0], "threat"); threat != "" {
				r.ThreatType = threat
			}
			if r.URLCount == 0 {
				r.URLCount = len(urls)
			}
		}
		r.Detail = fmt.Sprintf("%d malware URLs found on this domain", r.URLCount)
		return r
	case queryStatusNoResults:
		return HostResult{Host: host, Status: StatusClean, Detail: "host not found in malware database"}
	case "":
		return HostResult{Host: host, Status: StatusMalformed, Detail: "response has no query_status"}
	default:
		return HostResult{Host: host, Status: StatusAPIError, Detail: "API error: " + qs}
	}
}

func parseURLEntries(list []*jason.Object) []URLEntry {
	entries := make([]URLEntry, 0, len(list))
	for _, o := range list {
		entries = append(entries, URLEntry{
			ID:        str(o, "id", "url_id"),
			URL:       str(o, "url"),
			Host:      str(o, "host"),
			URLStatus: str(o, "url_status"),
			Threat:    str(o, "threat"),
			Tags:      stringList(o, "tags"),
			DateAdded: parseTime(str(o, "date_added", "dateadded")),
			Reporter:  str(o, "reporter"),
			Reference: str(o, "urlhaus_reference"),
		})
	}
	return entries
}

func parsePayloads(list []*jason.Object) []Payload {
	payloads := make([]Payload, 0, len(list))
	for _, o := range list {
		payloads = append(payloads, Payload{
			MD5:       str(o, "md5_hash"),
			SHA256:    str(o, "sha256_hash"),
			FileType:  str(o, "file_type"),
			FileSize:  integer(o, "file_size"),
			Signature: str(o, "signature"),
			FirstSeen: parseTime(str(o, "firstseen")),
		})
	}
	return payloads
}
