package verifier

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/davidahmann/jadegate/core/dag"
	"github.com/davidahmann/jadegate/core/manifest"
	"github.com/davidahmann/jadegate/core/policy"
	"github.com/davidahmann/jadegate/core/schema/v1/skill"
	"github.com/davidahmann/jadegate/core/sign"
)

type Options struct {
	// Tables replaces the built-in detection tables when set.
	Tables *policy.Tables
	// AllowedKeyClasses restricts which key classes may seal a manifest.
	// Empty allows every class.
	AllowedKeyClasses []sign.KeyClass
	Logger            *slog.Logger
}

// Verifier is stateless across calls and safe for concurrent use.
type Verifier struct {
	tables  policy.Tables
	allowed []sign.KeyClass
	logger  *slog.Logger
}

func New(opts Options) *Verifier {
	tables := policy.DefaultTables()
	if opts.Tables != nil {
		tables = *opts.Tables
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Verifier{
		tables:  tables,
		allowed: slices.Clone(opts.AllowedKeyClasses),
		logger:  logger,
	}
}

func (v *Verifier) Tables() policy.Tables {
	return v.tables
}

// Verify runs the layers in order and stops at the first layer that yields
// an error. layers_passed names the deepest gate satisfied: 0, 1, 2, 4 or 5.
func Verify(m skill.Manifest) skill.ValidationResult {
	return New(Options{}).Verify(m)
}

func (v *Verifier) Verify(m skill.Manifest) skill.ValidationResult {
	run := &pass{
		logger: v.logger.With("skill_id", m.SkillID),
		result: skill.ValidationResult{SkillID: m.SkillID, Issues: []skill.ValidationIssue{}},
	}

	if problems := manifest.CheckSchema(m); len(problems) > 0 {
		run.errors(skill.LayerSchema, skill.CodeSchemaError, problems)
		return run.finish(skill.LayerSchema)
	}
	run.advance(1)
	for _, advisory := range manifest.Advise(m) {
		run.add(skill.LayerSchema, skill.SeverityWarning, skill.CodeSchemaAdvisory, advisory)
	}

	content, contentErr := manifest.CanonicalContent(m)
	if contentErr == nil {
		run.result.ContentHash = sign.ContentHash(content)
	}

	if problems := dag.DetectCyclesAndOrphans(m.ExecutionGraph); len(problems) > 0 {
		run.errors(skill.LayerGraph, skill.CodeDAGError, problems)
		return run.finish(skill.LayerGraph)
	}
	run.advance(2)

	blocked := false
	for _, finding := range policy.Check(m, v.tables) {
		run.add(skill.LayerPolicy, finding.Severity, skill.CodeSecurityIssue, finding.Message)
		if finding.Severity == skill.SeverityError {
			blocked = true
		}
	}
	if blocked {
		return run.finish(skill.LayerPolicy)
	}
	run.advance(4)

	if m.Signature == nil {
		// Unsigned manifests are valid but not sealed.
		run.advance(5)
	} else {
		v.checkSignature(run, *m.Signature, content, contentErr)
	}
	if count := len(m.CommunitySignatures); count > 0 {
		run.add(skill.LayerSignature, skill.SeverityInfo, skill.CodeCosignUnverified,
			fmt.Sprintf("%d community signature(s) present; co-signatures are not verified", count))
	}
	return run.finish(skill.LayerSignature)
}

func (v *Verifier) checkSignature(run *pass, sig skill.Signature, content []byte, contentErr error) {
	key := sign.ParsePublicKey(sig.PublicKey)
	signer := &skill.SignerInfo{
		Signer:   sig.Signer,
		KeyClass: string(key.Class),
		SignedAt: sig.SignedAt,
	}
	if fingerprint, err := sign.KeyFingerprint(key.Material); err == nil {
		signer.Fingerprint = fingerprint
	}
	run.result.Signer = signer

	if contentErr != nil {
		run.add(skill.LayerSignature, skill.SeverityWarning, skill.CodeSignatureError,
			fmt.Sprintf("cannot verify signature: %v", contentErr))
		return
	}

	verified, err := sign.VerifySignature(key.Material, content, sig.Signature)
	switch {
	case err != nil:
		run.add(skill.LayerSignature, skill.SeverityWarning, skill.CodeSignatureError,
			fmt.Sprintf("cannot verify signature: %v", err))
	case !verified:
		run.add(skill.LayerSignature, skill.SeverityError, skill.CodeSignatureInvalid, "signature verification failed")
	case !v.classAllowed(key.Class):
		run.add(skill.LayerSignature, skill.SeverityError, skill.CodeKeyClass,
			fmt.Sprintf("key class %s is not allowed to seal manifests", key.Class))
	default:
		run.advance(5)
	}

	if sig.ContentHash != "" && !sign.MatchesContentHash(sig.ContentHash, content) {
		run.add(skill.LayerSignature, skill.SeverityWarning, skill.CodeHashMismatch,
			fmt.Sprintf("declared content_hash %s does not match %s", sig.ContentHash, sign.ContentHash(content)))
	}
}

func (v *Verifier) classAllowed(class sign.KeyClass) bool {
	return len(v.allowed) == 0 || slices.Contains(v.allowed, class)
}

type pass struct {
	logger *slog.Logger
	result skill.ValidationResult
}

func (p *pass) add(layer skill.Layer, severity skill.Severity, code, message string) {
	p.result.Issues = append(p.result.Issues, skill.ValidationIssue{
		Layer:    layer,
		Severity: severity,
		Code:     code,
		Message:  message,
	})
}

func (p *pass) errors(layer skill.Layer, code string, messages []string) {
	for _, message := range messages {
		p.add(layer, skill.SeverityError, code, message)
	}
}

func (p *pass) advance(layersPassed int) {
	p.result.LayersPassed = layersPassed
	p.logger.Debug("layer passed", "layers_passed", layersPassed)
}

func (p *pass) finish(last skill.Layer) skill.ValidationResult {
	p.result.Valid = !p.result.HasErrors()
	p.logger.Debug("verification finished",
		"layer", int(last),
		"layers_passed", p.result.LayersPassed,
		"valid", p.result.Valid,
		"issues", len(p.result.Issues),
	)
	return p.result
}
