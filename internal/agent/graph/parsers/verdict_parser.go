package parsers

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Verdict statuses after normalisation.
const (
	StatusCompliant    = "COMPLIANT"
	StatusNonCompliant = "NON-COMPLIANT"
	StatusUnknown      = "UNKNOWN"

	ActionApprove = "APPROVE"
	ActionDispute = "DISPUTE"
)

// reports longer than this are only scanned up to the limit
const maxContentLen = 64 * 1024

var fieldLine = regexp.MustCompile(`(?im)^\s*[-*]?\s*\[?(status|issue|reason|action)\]?\s*:\s*(.+?)\s*$`)

// Verdict is the best-effort structured reading of a free-text audit report.
type Verdict struct {
	Status string `json:"status"`
	Issue  string `json:"issue"`
	Action string `json:"action"`
}

// Compliant reports whether the verdict approves the invoice.
func (v Verdict) Compliant() bool {
	return v.Status == StatusCompliant
}

// ParseVerdict reads STATUS/ISSUE/ACTION from a model report, either as
// labelled lines or as a JSON object. ok is false when neither a status nor an
// action could be found. The report itself is never modified.
func ParseVerdict(report string) (v Verdict, ok bool) {
	content := report
	if len(content) > maxContentLen {
		content = content[:maxContentLen]
	}
	content = strings.ReplaceAll(content, "**", "")

	if parsed, found := parseJSONVerdict(content); found {
		v = parsed
	} else {
		for _, m := range fieldLine.FindAllStringSubmatch(content, -1) {
			val := strings.TrimSpace(m[2])
			switch strings.ToLower(m[1]) {
			case "status":
				if v.Status == "" {
					v.Status = val
				}
			case "issue", "reason":
				if v.Issue == "" {
					v.Issue = val
				}
			case "action":
				if v.Action == "" {
					v.Action = val
				}
			}
		}
	}

	v.Status = normalizeStatus(v.Status)
	v.Action = normalizeAction(v.Action)
	if v.Status == StatusUnknown && v.Action != "" {
		// an explicit action is enough to infer the status
		if v.Action == ActionApprove {
			v.Status = StatusCompliant
		} else if v.Action == ActionDispute {
			v.Status = StatusNonCompliant
		}
	}
	return v, v.Status != StatusUnknown || v.Action != ""
}

func parseJSONVerdict(content string) (Verdict, bool) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end <= start {
		return Verdict{}, false
	}

	var m map[string]any
	if err := json.Unmarshal([]byte(content[start:end+1]), &m); err != nil {
		return Verdict{}, false
	}

	fields := make(map[string]string, len(m))
	for k, raw := range m {
		if s, isString := raw.(string); isString {
			fields[strings.ToLower(k)] = s
		}
	}

	v := Verdict{Status: fields["status"], Issue: fields["issue"], Action: fields["action"]}
	if v.Issue == "" {
		v.Issue = fields["reason"]
	}
	return v, v.Status != "" || v.Action != ""
}

func normalizeStatus(s string) string {
	u := strings.ToUpper(strings.TrimSpace(s))
	u = strings.NewReplacer("_", "-", " ", "-").Replace(u)
	switch {
	case u == "":
		return StatusUnknown
	case strings.HasPrefix(u, "NON-COMPLIANT"), strings.HasPrefix(u, "NONCOMPLIANT"), strings.HasPrefix(u, "FAIL"):
		return StatusNonCompliant
	case strings.HasPrefix(u, "COMPLIANT"), strings.HasPrefix(u, "PASS"):
		return StatusCompliant
	default:
		return StatusUnknown
	}
}

func normalizeAction(s string) string {
	u := strings.ToUpper(strings.TrimSpace(s))
	switch {
	case strings.HasPrefix(u, "APPROVE"):
		return ActionApprove
	case strings.HasPrefix(u, "DISPUTE"):
		return ActionDispute
	default:
		return ""
	}
}
