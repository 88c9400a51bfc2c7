package parser

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/logboard/api/internal/model"
)

// MaxLineLen is the practical bound on a single log line. Anything
// longer is counted toward totalLines but treated as non-matching.
const MaxLineLen = 1 << 20 // 1 MiB

// lineRe matches the bracketed log grammar:
//
//	[<timestamp>] <LEVEL> <message> <optional-json-payload>
//
// The payload capture starts at "{" and runs to end of line.
var lineRe = regexp.MustCompile(`^\[(.*?)\] (\w+) (.*?)(?:\s+(\{.*\}))?$`)

// Line is a single log line matched against the grammar
type Line struct {
	Timestamp string
	Level     string
	Message   string
	// Details is the decoded JSON payload: a map for objects, any
	// other JSON value as decoded, or nil when absent/unrecoverable.
	Details any
}

// ParseLine matches one raw line against the grammar. The second
// return value is false for non-matching lines (including overlong
// ones), which callers count but otherwise ignore.
func ParseLine(raw string) (Line, bool) {
	if len(raw) > MaxLineLen {
		return Line{}, false
	}

	m := lineRe.FindStringSubmatch(raw)
	if m == nil {
		return Line{}, false
	}

	line := Line{
		Timestamp: m[1],
		Level:     m[2],
		Message:   m[3],
	}

	if payload := m[4]; payload != "" {
		line.Details = decodePayload(payload)
	}

	return line, true
}

// decodePayload parses the JSON payload, falling back to one repair
// pass for a common malformation. Returns nil when both fail; a bad
// payload never aborts the stream.
func decodePayload(payload string) any {
	var details any
	if err := json.Unmarshal([]byte(payload), &details); err == nil {
		return details
	}

	fixed := repairJSON(payload)
	if fixed == payload {
		return nil
	}
	if err := json.Unmarshal([]byte(fixed), &details); err == nil {
		return details
	}
	return nil
}

// missingCommaRe finds two adjacent quoted tokens with no separator,
// e.g. `"a": 1 "b": 2` or `"x" "y"`.
var missingCommaRe = regexp.MustCompile(`"\s+"([a-zA-Z])`)

// repairJSON inserts the comma (plus a space) that the most common
// handwritten-log defect drops between quoted key-value pairs.
func repairJSON(payload string) string {
	return missingCommaRe.ReplaceAllString(payload, `", "$1`)
}

// Parser accumulates a ParseResult while consuming lines strictly in
// order. It performs no I/O; callers feed it one line at a time.
type Parser struct {
	keywords []string

	result model.ParseResult
	ipSeen map[string]struct{}
}

// New returns a Parser tracking the given watch-keywords. Keyword
// matching is a case-sensitive substring test against the message.
func New(keywords []string) *Parser {
	return &Parser{
		keywords: keywords,
		ipSeen:   make(map[string]struct{}),
		result: model.ParseResult{
			Errors:   []model.LogError{},
			Keywords: []model.KeywordHit{},
			IPs:      []string{},
			Status:   model.ParseStatusProcessing,
		},
	}
}

// ConsumeLine processes one line. Non-matching lines only bump the
// line count.
func (p *Parser) ConsumeLine(raw string) {
	p.result.TotalLines++

	line, ok := ParseLine(raw)
	if !ok {
		return
	}

	if obj, ok := line.Details.(map[string]any); ok {
		if ip, ok := obj["ip"].(string); ok {
			p.addIP(ip)
		}
	}

	if line.Level == "ERROR" {
		p.result.ErrorCount++
		p.result.Errors = append(p.result.Errors, model.LogError{
			Timestamp: line.Timestamp,
			Message:   line.Message,
			Details:   line.Details,
		})
	}

	for _, keyword := range p.keywords {
		if strings.Contains(line.Message, keyword) {
			p.result.Keywords = append(p.result.Keywords, model.KeywordHit{
				Keyword:   keyword,
				Timestamp: line.Timestamp,
				Details:   line.Details,
			})
		}
	}
}

func (p *Parser) addIP(ip string) {
	if _, seen := p.ipSeen[ip]; seen {
		return
	}
	p.ipSeen[ip] = struct{}{}
	p.result.IPs = append(p.result.IPs, ip)
}

// TotalLines returns the number of lines consumed so far
func (p *Parser) TotalLines() int { return p.result.TotalLines }

// ErrorCount returns the number of ERROR lines seen so far
func (p *Parser) ErrorCount() int { return p.result.ErrorCount }

// Result returns a snapshot of the accumulated ParseResult with the
// given status.
func (p *Parser) Result(status model.ParseStatus) *model.ParseResult {
	snapshot := p.result
	snapshot.Status = status
	snapshot.Errors = append([]model.LogError{}, p.result.Errors...)
	snapshot.Keywords = append([]model.KeywordHit{}, p.result.Keywords...)
	snapshot.IPs = append([]string{}, p.result.IPs...)
	return &snapshot
}
