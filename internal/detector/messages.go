package detector

import "slices"

const (
	msgCriticalMalware  = "CRITICAL WARNING: This link has been confirmed as MALWARE by URLhaus! Do NOT click it. Report it immediately."
	msgCriticalPhishing = "CRITICAL WARNING: This link has been confirmed as a phishing scam! Do NOT click it. Report it immediately."
	msgCritical         = "CRITICAL WARNING: This link has been confirmed as dangerous! Do NOT click it. Report it immediately."
	msgHighHost         = "HIGH RISK: This domain hosts multiple malware URLs. We strongly recommend avoiding this link."
	msgHighRegional     = "HIGH RISK: This link matches regional scam patterns. We recommend avoiding it and reporting it."
	msgHigh             = "HIGH RISK: This link shows strong signs of being a scam. We recommend avoiding it and reporting it."
	msgMediumPattern    = "SUSPICIOUS: This link has concerning characteristics (URL shortener, suspicious patterns). Please be very careful and verify the source."
	msgMedium           = "SUSPICIOUS: This link has some concerning characteristics. Please be very careful and verify the source."
	msgSafeChecked      = "SAFE: This link has been checked against URLhaus malware database and appears safe, but always remain cautious."
	msgSafe             = "SAFE: This link appears to be safe, but always remain cautious and verify the source."
	msgUnknown          = "UNKNOWN: We couldn't determine the safety of this link. Please use caution and verify the source."

	warnRegional = "Regional scam pattern detected"

	msgReportSuccess = "Scam reported successfully. Thank you for helping protect others!"
	msgReportFailure = "Failed to report scam. Please try again."
	msgReportInvalid = "Please provide a valid URL to report."
)

// phrasing picks the message for a level from the most specific method present.
type phrasing struct {
	method  string
	message string
}

var messageTable = map[ThreatLevel][]phrasing{
	LevelCritical: {
		{MethodURLhaus, msgCriticalMalware},
		{MethodPhishTank, msgCriticalPhishing},
		{"", msgCritical},
	},
	LevelHigh: {
		{MethodURLhausHost, msgHighHost},
		{MethodRegionalSpecific, msgHighRegional},
		{"", msgHigh},
	},
	LevelMedium: {
		{MethodPatternAnalysis, msgMediumPattern},
		{"", msgMedium},
	},
	LevelSafe: {
		{"", msgSafe},
	},
}

// renderMessage returns the user facing message for a finished verdict.
// urlhausClean marks a safe verdict that URLhaus positively cleared.
func renderMessage(level ThreatLevel, methods []string, urlhausClean bool) string {
	if level == LevelSafe && urlhausClean {
		return msgSafeChecked
	}
	for _, p := range messageTable[level] {
		if p.method == "" || slices.Contains(methods, p.method) {
			return p.message
		}
	}
	return msgUnknown
}

var safetyTips = []string{
	"Never click on links from unknown senders",
	"Check the URL carefully - look for misspellings",
	"Don't share personal information on suspicious websites",
	"Enable two-factor authentication on your accounts",
	"Keep your software and apps updated",
	"Be suspicious of urgent requests for money or information",
	"Verify bank communications directly with your bank",
	"Don't trust offers that seem too good to be true",
}
