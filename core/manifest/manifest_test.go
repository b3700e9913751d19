package manifest

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	coreerrors "github.com/davidahmann/jadegate/core/errors"
	"github.com/davidahmann/jadegate/core/schema/v1/skill"
	"github.com/davidahmann/jadegate/internal/testutil"
)

func TestReadFileFixture(t *testing.T) {
	m, err := ReadFile(filepath.Join("testdata", "weather_lookup.json"))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	if m.SkillID != "weather_lookup" || m.Metadata.Name != "Weather Lookup" {
		t.Fatalf("unexpected manifest identity: %+v", m.Metadata)
	}
	if len(m.ExecutionGraph.Nodes) != 3 || len(m.ExecutionGraph.Edges) != 2 {
		t.Fatalf("unexpected graph: %+v", m.ExecutionGraph)
	}
	if m.ExecutionGraph.Nodes[0].TimeoutMS == nil || *m.ExecutionGraph.Nodes[0].TimeoutMS != 10000 {
		t.Fatalf("expected fetch timeout to be parsed")
	}
	if m.ExecutionGraph.Nodes[2].Params != nil || m.ExecutionGraph.Nodes[2].TimeoutMS != nil {
		t.Fatalf("expected omitted node fields to default")
	}
	if m.ExecutionGraph.Edges[0].Condition == nil || *m.ExecutionGraph.Edges[0].Condition != "status == 200" {
		t.Fatalf("expected edge condition to be carried")
	}
	if m.Signature != nil || m.CommunitySignatures != nil {
		t.Fatalf("expected unsigned manifest")
	}
}

func TestParseDefaultsOptionalFields(t *testing.T) {
	raw := []byte(`{
		"jade_version": "1.0.0",
		"skill_id": "bare",
		"metadata": {"name": "Bare", "description": "", "version": "0.1.0"},
		"input_schema": {}, "output_schema": {},
		"execution_dag": {"nodes": [{"id": "only"}], "edges": []},
		"security": {"sandbox": "standard"}
	}`)
	m, err := Parse(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if m.Metadata.Author != "" || len(m.Metadata.Tags) != 0 {
		t.Fatalf("expected empty author and tags: %+v", m.Metadata)
	}
	if m.Security.MaxExecutionTimeMS != 0 || len(m.Security.NetworkWhitelist) != 0 {
		t.Fatalf("expected zero security defaults: %+v", m.Security)
	}
	if m.ExecutionGraph.Nodes[0].Action != "" {
		t.Fatalf("expected empty action")
	}
}

func TestParseFatalErrors(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		code string
	}{
		{name: "syntax", raw: `{"skill_id": `, code: CodeInvalidJSON},
		{name: "trailing_garbage", raw: `{} {}`, code: CodeInvalidJSON},
		{name: "not_object", raw: `["skill"]`, code: CodeInvalidShape},
		{name: "skill_id_number", raw: `{"skill_id": 42}`, code: CodeInvalidShape},
		{name: "negative_timeout", raw: `{"execution_dag": {"nodes": [{"id": "a", "timeout_ms": -1}]}}`, code: CodeInvalidShape},
		{name: "nodes_object", raw: `{"execution_dag": {"nodes": {"id": "a"}}}`, code: CodeInvalidShape},
		{name: "tags_numbers", raw: `{"metadata": {"tags": [1, 2]}}`, code: CodeInvalidShape},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.raw))
			if err == nil {
				t.Fatalf("expected parse error")
			}
			if got := coreerrors.CodeOf(err); got != tc.code {
				t.Fatalf("unexpected code: got=%s want=%s err=%v", got, tc.code, err)
			}
			if coreerrors.CategoryOf(err) != coreerrors.CategoryInvalidInput {
				t.Fatalf("unexpected category: %s", coreerrors.CategoryOf(err))
			}
		})
	}
}

func TestReadFileMissing(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "missing.json"))
	if err == nil {
		t.Fatalf("expected error for missing file")
	}
	if coreerrors.CategoryOf(err) != coreerrors.CategoryIOFailure || coreerrors.CodeOf(err) != CodeUnreadable {
		t.Fatalf("unexpected classification: %s/%s", coreerrors.CategoryOf(err), coreerrors.CodeOf(err))
	}
}

func TestCanonicalContentIgnoresSignatures(t *testing.T) {
	unsigned := testutil.MinimalManifest()
	signed := testutil.MinimalManifest()
	signed.Signature = &skill.Signature{Signer: "ops", Algorithm: "Ed25519", PublicKey: "k", Signature: "s"}
	signed.CommunitySignatures = []skill.CommunitySignature{{SignerFingerprint: "SHA256:x", TrustLevel: "community"}}

	a, err := CanonicalContent(unsigned)
	if err != nil {
		t.Fatalf("canonical unsigned: %v", err)
	}
	b, err := CanonicalContent(signed)
	if err != nil {
		t.Fatalf("canonical signed: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("signature fields leaked into canonical content")
	}
	if signed.Signature == nil || len(signed.CommunitySignatures) != 1 {
		t.Fatalf("canonical content must not mutate the manifest")
	}
	if !bytes.HasPrefix(a, []byte(`{"execution_dag":`)) {
		t.Fatalf("expected sorted keys, got %s", a)
	}
}

func TestCanonicalContentStableAcrossEncode(t *testing.T) {
	m := testutil.MinimalManifest()
	m.Metadata.Description = "returns <b>bold</b> & plain text"
	before, err := CanonicalContent(m)
	if err != nil {
		t.Fatalf("canonical: %v", err)
	}
	if !strings.Contains(string(before), "<b>bold</b> & plain") {
		t.Fatalf("expected markup to be preserved verbatim: %s", before)
	}

	encoded, err := Encode(m)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	reparsed, err := Parse(encoded)
	if err != nil {
		t.Fatalf("parse encoded: %v", err)
	}
	after, err := CanonicalContent(reparsed)
	if err != nil {
		t.Fatalf("canonical reparsed: %v", err)
	}
	if !bytes.Equal(before, after) {
		t.Fatalf("canonical content changed across encode/parse\nbefore=%s\nafter=%s", before, after)
	}
}

func TestWriteFileThenRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "weather_lookup.json")
	if err := WriteFile(path, testutil.MinimalManifest()); err != nil {
		t.Fatalf("write: %v", err)
	}
	m, err := ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if m.SkillID != "weather_lookup" {
		t.Fatalf("unexpected skill id: %s", m.SkillID)
	}
	var generic map[string]any
	if err := json.Unmarshal(testutil.MustReadFile(t, path), &generic); err != nil {
		t.Fatalf("decode written file: %v", err)
	}
	if _, ok := generic["jade_signature"]; ok {
		t.Fatalf("unsigned manifest should omit jade_signature")
	}
}
