package skill

import "encoding/json"

type Manifest struct {
	JadeVersion         string               `json:"jade_version"`
	SkillID             string               `json:"skill_id"`
	Metadata            Metadata             `json:"metadata"`
	InputSchema         json.RawMessage      `json:"input_schema"`
	OutputSchema        json.RawMessage      `json:"output_schema"`
	ExecutionGraph      ExecutionGraph       `json:"execution_dag"`
	Security            SecurityPolicy       `json:"security"`
	Signature           *Signature           `json:"jade_signature,omitempty"`
	CommunitySignatures []CommunitySignature `json:"community_signatures,omitempty"`
}

type Metadata struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Version     string   `json:"version"`
	Author      string   `json:"author"`
	Tags        []string `json:"tags"`
}

type ExecutionGraph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

type Node struct {
	ID        string                     `json:"id"`
	Action    string                     `json:"action"`
	Params    map[string]json.RawMessage `json:"params"`
	TimeoutMS *uint64                    `json:"timeout_ms,omitempty"`
}

// Edge conditions are carried verbatim and never evaluated.
type Edge struct {
	From      string  `json:"from"`
	To        string  `json:"to"`
	Condition *string `json:"condition,omitempty"`
}

type SecurityPolicy struct {
	Sandbox            string   `json:"sandbox"`
	NetworkWhitelist   []string `json:"network_whitelist"`
	MaxExecutionTimeMS uint64   `json:"max_execution_time_ms"`
	EnvWhitelist       []string `json:"env_whitelist"`
}

type Signature struct {
	Signer      string `json:"signer"`
	Algorithm   string `json:"algorithm"`
	PublicKey   string `json:"public_key"`
	ContentHash string `json:"content_hash"`
	Signature   string `json:"signature"`
	SignedAt    string `json:"signed_at"`
}

// CommunitySignature is parsed and carried but not verified.
type CommunitySignature struct {
	SignerFingerprint string `json:"signer_fingerprint"`
	PublicKey         string `json:"public_key"`
	ContentHash       string `json:"content_hash"`
	Signature         string `json:"signature"`
	SignedAt          string `json:"signed_at"`
	TrustLevel        string `json:"trust_level"`
}

// Signable returns a copy of the manifest with both signature fields cleared.
// Slices and maps are shared with the receiver; callers must not mutate them.
func (m Manifest) Signable() Manifest {
	signable := m
	signable.Signature = nil
	signable.CommunitySignatures = nil
	return signable
}

func (g ExecutionGraph) NodeIDs() []string {
	ids := make([]string, 0, len(g.Nodes))
	for _, node := range g.Nodes {
		ids = append(ids, node.ID)
	}
	return ids
}
