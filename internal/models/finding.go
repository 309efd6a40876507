package models

import "fmt"

// Severity classifies a finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityNotice  Severity = "notice"
)

// Code identifies the class of a validation finding.
type Code string

const (
	CodeParseError              Code = "ParseError"
	CodeIntegrityMismatch       Code = "IntegrityMismatch"
	CodeSchemaViolation         Code = "SchemaViolation"
	CodeSecurityViolation       Code = "SecurityViolation"
	CodeAttestationInsufficient Code = "AttestationInsufficient"
	CodeExceptionInvalid        Code = "ExceptionInvalid"
	CodeExceptionApplied        Code = "ExceptionApplied"
	CodeLinkUnresolved          Code = "LinkUnresolved"
	CodeIndexDrift              Code = "IndexDrift"
	CodeIncomplete              Code = "Incomplete"
)

// Finding is one validation outcome attached to an entry.
type Finding struct {
	Severity Severity `json:"severity"`
	Code     Code     `json:"code"`
	Path     string   `json:"path"`
	Line     int      `json:"line,omitempty"`
	// Field names the frontmatter requirement a SchemaViolation concerns;
	// exception waivers match against it.
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (f Finding) String() string {
	if f.Line > 0 {
		return fmt.Sprintf("[%s] %s:%d %s: %s", f.Severity, f.Path, f.Line, f.Code, f.Message)
	}
	return fmt.Sprintf("[%s] %s %s: %s", f.Severity, f.Path, f.Code, f.Message)
}

// Errorf builds an error-severity finding.
func Errorf(code Code, path string, line int, format string, args ...any) Finding {
	return Finding{Severity: SeverityError, Code: code, Path: path, Line: line, Message: fmt.Sprintf(format, args...)}
}

// Warnf builds a warning-severity finding.
func Warnf(code Code, path string, line int, format string, args ...any) Finding {
	return Finding{Severity: SeverityWarning, Code: code, Path: path, Line: line, Message: fmt.Sprintf(format, args...)}
}

// Noticef builds a notice-severity finding.
func Noticef(code Code, path string, line int, format string, args ...any) Finding {
	return Finding{Severity: SeverityNotice, Code: code, Path: path, Line: line, Message: fmt.Sprintf(format, args...)}
}
