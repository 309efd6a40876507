// Package secrets scans entry text for credential-shaped tokens via a
// signature catalogue and a statistical randomness detector.
package secrets

import "regexp"

// Severity levels for findings.
const (
	SeverityHigh   = "high"
	SeverityMedium = "medium"
	SeverityLow    = "low"
)

// signature is one compiled credential pattern.
type signature struct {
	Kind     string
	Severity string
	Re       *regexp.Regexp
}

// The catalogue covers the major cloud providers and common token formats.
// High severity marks credentials that grant standing access on their own.
var signatures = []signature{
	{"AWS_ACCESS_KEY_ID", SeverityMedium, regexp.MustCompile(`\b(A3T|AKIA|ASIA|ABIA|ACCA)[0-9A-Z]{16}\b`)},
	{"AWS_SECRET_ACCESS_KEY", SeverityHigh, regexp.MustCompile(`(?i)\baws(.{0,20})?(secret|sk|access.?key)\b.{0,3}([0-9A-Za-z/+]{40})`)},
	{"GITHUB_TOKEN", SeverityMedium, regexp.MustCompile(`\b(gh[pousr]_[A-Za-z0-9]{36,255}|github_pat_[A-Za-z0-9_]{82,})\b`)},
	{"SLACK_TOKEN", SeverityMedium, regexp.MustCompile(`\bxox[baprs]-[A-Za-z0-9-]{10,48}\b`)},
	{"SLACK_WEBHOOK", SeverityMedium, regexp.MustCompile(`https://hooks\.slack\.com/services/[A-Za-z0-9/_-]{20,}`)},
	{"GOOGLE_API_KEY", SeverityMedium, regexp.MustCompile(`\bAIza[0-9A-Za-z\-_]{35}\b`)},
	{"GOOGLE_OAUTH", SeverityMedium, regexp.MustCompile(`\bya29\.[0-9A-Za-z\-_]+\b`)},
	{"STRIPE_KEY", SeverityMedium, regexp.MustCompile(`\b(sk|rk|pk)_(live|test)_[0-9A-Za-z]{16,}\b`)},
	{"SENDGRID_KEY", SeverityMedium, regexp.MustCompile(`\bSG\.[A-Za-z0-9_\-]{16,}\.[A-Za-z0-9_\-]{16,}\b`)},
	{"AZURE_CONN", SeverityHigh, regexp.MustCompile(`DefaultEndpointsProtocol=https;AccountName=[^;]+;AccountKey=[^;]+;`)},
	{"PRIVATE_KEY", SeverityHigh, regexp.MustCompile(`-----BEGIN (RSA|OPENSSH|EC|DSA|PGP|PRIVATE)[A-Z ]* KEY( BLOCK)?-----`)},
	{"JWT_TOKEN", SeverityMedium, regexp.MustCompile(`\beyJ[0-9A-Za-z_-]{10,}\.[0-9A-Za-z_-]{10,}\.[0-9A-Za-z_-]{10,}\b`)},
	{"GENERIC_BEARER", SeverityMedium, regexp.MustCompile(`(?i)\bbearer\s+[A-Za-z0-9\-._~+/]{16,}=*\b`)},
}
