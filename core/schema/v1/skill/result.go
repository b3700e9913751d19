package skill

import "fmt"

// Severity is a closed set; the zero value is not a valid severity.
type Severity int

const (
	SeverityError Severity = iota + 1
	SeverityWarning
	SeverityInfo
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

func (s Severity) Valid() bool {
	return s >= SeverityError && s <= SeverityInfo
}

func (s Severity) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid severity %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(text []byte) error {
	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func ParseSeverity(value string) (Severity, error) {
	switch value {
	case "error":
		return SeverityError, nil
	case "warning":
		return SeverityWarning, nil
	case "info":
		return SeverityInfo, nil
	default:
		return 0, fmt.Errorf("unknown severity %q", value)
	}
}

// Layer numbers label issues. Policy and injection findings share LayerPolicy.
type Layer int

const (
	LayerSchema    Layer = 1
	LayerGraph     Layer = 2
	LayerPolicy    Layer = 3
	LayerSignature Layer = 5
)

const (
	CodeSchemaError      = "SCHEMA_ERROR"
	CodeSchemaAdvisory   = "SCHEMA_ADVISORY"
	CodeDAGError         = "DAG_ERROR"
	CodeSecurityIssue    = "SEC_ISSUE"
	CodeSignatureInvalid = "SIG_INVALID"
	CodeSignatureError   = "SIG_ERROR"
	CodeKeyClass         = "SIG_KEY_CLASS"
	CodeHashMismatch     = "HASH_MISMATCH"
	CodeCosignUnverified = "COSIGN_UNVERIFIED"
)

type ValidationIssue struct {
	Layer    Layer    `json:"layer"`
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
}

type SignerInfo struct {
	Signer      string `json:"signer,omitempty"`
	KeyClass    string `json:"key_class"`
	Fingerprint string `json:"fingerprint,omitempty"`
	SignedAt    string `json:"signed_at,omitempty"`
}

type ValidationResult struct {
	Valid        bool              `json:"valid"`
	Issues       []ValidationIssue `json:"issues"`
	LayersPassed int               `json:"layers_passed"`
	SkillID      string            `json:"skill_id,omitempty"`
	ContentHash  string            `json:"content_hash,omitempty"`
	Signer       *SignerInfo       `json:"signer,omitempty"`
}

func (r ValidationResult) HasErrors() bool {
	for _, issue := range r.Issues {
		if issue.Severity == SeverityError {
			return true
		}
	}
	return false
}

func (r ValidationResult) Count(severity Severity) int {
	count := 0
	for _, issue := range r.Issues {
		if issue.Severity == severity {
			count++
		}
	}
	return count
}
