package policy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/davidahmann/jadegate/core/schema/v1/skill"
)

const (
	SandboxStrict   = "strict"
	SandboxStandard = "standard"
)

type Finding struct {
	Severity skill.Severity
	Message  string
}

// Check runs every policy and injection rule against m. No rule
// short-circuits another.
func Check(m skill.Manifest, tables Tables) []Finding {
	var findings []Finding
	findings = append(findings, checkSandbox(m.Security)...)
	findings = append(findings, checkNetwork(m.Security, tables)...)
	findings = append(findings, checkNodeDomains(m)...)
	findings = append(findings, checkTimeout(m.Security, tables)...)
	findings = append(findings, ScanInjection(m, tables)...)
	findings = append(findings, checkEnv(m.Security, tables)...)
	return findings
}

func checkSandbox(security skill.SecurityPolicy) []Finding {
	if security.Sandbox == SandboxStrict || security.Sandbox == SandboxStandard {
		return nil
	}
	return []Finding{{
		Severity: skill.SeverityError,
		Message:  fmt.Sprintf("unknown sandbox level %q: must be %q or %q", security.Sandbox, SandboxStrict, SandboxStandard),
	}}
}

func checkNetwork(security skill.SecurityPolicy, tables Tables) []Finding {
	var findings []Finding
	for _, domain := range security.NetworkWhitelist {
		if domain == "*" && security.Sandbox == SandboxStrict {
			findings = append(findings, Finding{
				Severity: skill.SeverityWarning,
				Message:  "wildcard '*' in network_whitelist undermines strict sandbox",
			})
		}
		if isPrivateTarget(domain, tables) {
			findings = append(findings, Finding{
				Severity: skill.SeverityWarning,
				Message:  fmt.Sprintf("suspicious internal network target in whitelist: %q", domain),
			})
		}
	}
	return findings
}

func isPrivateTarget(domain string, tables Tables) bool {
	lower := strings.ToLower(domain)
	for _, host := range tables.LoopbackHosts {
		if lower == host {
			return true
		}
	}
	for _, prefix := range tables.PrivateNetworkPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

func checkTimeout(security skill.SecurityPolicy, tables Tables) []Finding {
	switch {
	case security.MaxExecutionTimeMS == 0:
		return []Finding{{Severity: skill.SeverityWarning, Message: "no execution timeout set"}}
	case tables.MaxExecutionTimeMS > 0 && security.MaxExecutionTimeMS > tables.MaxExecutionTimeMS:
		return []Finding{{
			Severity: skill.SeverityWarning,
			Message:  fmt.Sprintf("very long execution timeout: %dms (limit %dms)", security.MaxExecutionTimeMS, tables.MaxExecutionTimeMS),
		}}
	default:
		return nil
	}
}

// ScanInjection serializes the whole manifest, signatures included, and
// reports one error per injection pattern present. The text is decoded and
// re-encoded first so escapes inside raw params and schemas cannot hide a
// pattern.
func ScanInjection(m skill.Manifest, tables Tables) []Finding {
	text, err := scanText(m)
	if err != nil {
		return []Finding{{
			Severity: skill.SeverityError,
			Message:  fmt.Sprintf("manifest could not be serialized for injection scan: %v", err),
		}}
	}

	var findings []Finding
	for _, pattern := range tables.InjectionPatterns {
		count := strings.Count(text, pattern)
		if count == 0 {
			continue
		}
		findings = append(findings, Finding{
			Severity: skill.SeverityError,
			Message:  fmt.Sprintf("potential code injection: pattern %q found %d time(s)", pattern, count),
		})
	}
	return findings
}

func scanText(m skill.Manifest) (string, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return "", err
	}
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	var value any
	if err := decoder.Decode(&value); err != nil {
		return "", err
	}
	var buffer bytes.Buffer
	encoder := json.NewEncoder(&buffer)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(value); err != nil {
		return "", err
	}
	return buffer.String(), nil
}

func checkEnv(security skill.SecurityPolicy, tables Tables) []Finding {
	var findings []Finding
	for _, name := range security.EnvWhitelist {
		upper := strings.ToUpper(name)
		for _, pattern := range tables.SensitiveEnvPatterns {
			if strings.Contains(upper, pattern) {
				findings = append(findings, Finding{
					Severity: skill.SeverityWarning,
					Message:  fmt.Sprintf("sensitive env var %q in env_whitelist matches %s", name, pattern),
				})
			}
		}
	}
	return findings
}

var templateVariable = regexp.MustCompile(`\{\{[^}]+\}\}`)

// checkNodeDomains warns about every URL in node params whose host is not
// covered by network_whitelist.
func checkNodeDomains(m skill.Manifest) []Finding {
	whitelist := m.Security.NetworkWhitelist
	for _, entry := range whitelist {
		if entry == "*" {
			return nil
		}
	}
	var findings []Finding
	for _, node := range m.ExecutionGraph.Nodes {
		for _, target := range paramURLs(node.Params) {
			domain := urlHost(target)
			if domain == "" || DomainMatchesWhitelist(domain, whitelist) {
				continue
			}
			findings = append(findings, Finding{
				Severity: skill.SeverityWarning,
				Message:  fmt.Sprintf("node %q accesses domain %q not in network_whitelist", node.ID, domain),
			})
		}
	}
	return findings
}

func paramURLs(params map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(params))
	for key := range params {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var urls []string
	for _, key := range keys {
		var value any
		if err := json.Unmarshal(params[key], &value); err != nil {
			continue
		}
		urls = collectURLs(value, urls)
	}
	return urls
}

func collectURLs(value any, urls []string) []string {
	switch typed := value.(type) {
	case string:
		if strings.Contains(typed, "://") {
			urls = append(urls, typed)
		}
	case []any:
		for _, item := range typed {
			urls = collectURLs(item, urls)
		}
	case map[string]any:
		keys := make([]string, 0, len(typed))
		for key := range typed {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			urls = collectURLs(typed[key], urls)
		}
	}
	return urls
}

// urlHost returns the lower-cased host of target, with {{...}} template
// variables replaced so "https://wttr.in/{{input.city}}" yields "wttr.in".
func urlHost(target string) string {
	parsed, err := url.Parse(templateVariable.ReplaceAllString(target, "placeholder"))
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Hostname())
}

// DomainMatchesWhitelist reports whether domain is allowed by a literal "*",
// an exact entry, or a "*.suffix" entry with domain ending in ".suffix".
func DomainMatchesWhitelist(domain string, whitelist []string) bool {
	for _, entry := range whitelist {
		if entry == "*" || entry == domain {
			return true
		}
		if suffix, ok := strings.CutPrefix(entry, "*."); ok && strings.HasSuffix(domain, "."+suffix) {
			return true
		}
	}
	return false
}
