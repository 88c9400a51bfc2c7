package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logboard/api/internal/model"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Line
		matched bool
	}{
		{
			name: "with payload",
			raw:  `[2025-03-14T12:01:00Z] INFO User logged in {"userId": "u1", "ip": "192.168.1.1"}`,
			want: Line{
				Timestamp: "2025-03-14T12:01:00Z",
				Level:     "INFO",
				Message:   "User logged in",
				Details:   map[string]any{"userId": "u1", "ip": "192.168.1.1"},
			},
			matched: true,
		},
		{
			name: "without payload",
			raw:  "[2025-03-14T12:01:00Z] WARN Disk usage high",
			want: Line{
				Timestamp: "2025-03-14T12:01:00Z",
				Level:     "WARN",
				Message:   "Disk usage high",
			},
			matched: true,
		},
		{
			name:    "no brackets",
			raw:     "plain text line",
			matched: false,
		},
		{
			name:    "missing level",
			raw:     "[2025-03-14T12:01:00Z]",
			matched: false,
		},
		{
			name:    "empty line",
			raw:     "",
			matched: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseLine(tt.raw)
			require.Equal(t, tt.matched, ok)
			if tt.matched {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestParseLineOverlongLine(t *testing.T) {
	raw := "[ts] INFO " + strings.Repeat("x", MaxLineLen+1)
	_, ok := ParseLine(raw)
	assert.False(t, ok, "overlong line must be treated as non-matching")
}

func TestParseLinePayloadRepair(t *testing.T) {
	// Missing comma between quoted key-value pairs is repaired once.
	line, ok := ParseLine(`[ts] INFO did thing {"a": "1" "b": "2"}`)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"a": "1", "b": "2"}, line.Details)
}

func TestParseLineUnrecoverablePayload(t *testing.T) {
	line, ok := ParseLine(`[ts] INFO did thing {broken: json,}`)
	require.True(t, ok)
	assert.Nil(t, line.Details, "unrecoverable payload degrades to nil details")
}

func TestParseLineNonObjectPayload(t *testing.T) {
	line, ok := ParseLine(`[ts] INFO got values [1, 2] {"k": 1}`)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"k": float64(1)}, line.Details)

	// An array payload is valid details, just no ip extraction.
	line, ok = ParseLine(`[ts] INFO got list ["a", "b"]`)
	require.True(t, ok)
	assert.Nil(t, line.Details, "non-brace payload is part of the message")
	assert.Equal(t, `got list ["a", "b"]`, line.Message)
}

func TestParserEndToEnd(t *testing.T) {
	content := `[2025-03-14T12:01:00Z] INFO User logged in {"userId": "u1", "ip": "192.168.1.1"}
[2025-03-14T12:02:00Z] ERROR Database error {"service": "db", "ip": "10.0.0.1"}`

	p := New([]string{"error", "warning"})
	for _, line := range strings.Split(content, "\n") {
		p.ConsumeLine(line)
	}
	result := p.Result(model.ParseStatusCompleted)

	assert.Equal(t, 2, result.TotalLines)
	assert.Equal(t, 1, result.ErrorCount)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, model.LogError{
		Timestamp: "2025-03-14T12:02:00Z",
		Message:   "Database error",
		Details:   map[string]any{"service": "db", "ip": "10.0.0.1"},
	}, result.Errors[0])
	assert.Equal(t, []string{"192.168.1.1", "10.0.0.1"}, result.IPs)

	// Keyword matching is a case-sensitive substring test against the
	// message, so "Database error" hits the "error" watch-keyword.
	require.Len(t, result.Keywords, 1)
	assert.Equal(t, "error", result.Keywords[0].Keyword)
	assert.Equal(t, "2025-03-14T12:02:00Z", result.Keywords[0].Timestamp)

	assert.Equal(t, model.ParseStatusCompleted, result.Status)
}

func TestParserEmptyInput(t *testing.T) {
	p := New(nil)
	result := p.Result(model.ParseStatusCompleted)

	assert.Equal(t, 0, result.TotalLines)
	assert.Equal(t, 0, result.ErrorCount)
	assert.Empty(t, result.Errors)
	assert.Empty(t, result.Keywords)
	assert.Empty(t, result.IPs)
}

func TestParserCountsNonMatchingLines(t *testing.T) {
	p := New(nil)
	p.ConsumeLine("not a log line")
	p.ConsumeLine("[2025-03-14T12:01:00Z] INFO ok")
	p.ConsumeLine("")

	result := p.Result(model.ParseStatusCompleted)
	assert.Equal(t, 3, result.TotalLines)
	assert.Equal(t, 0, result.ErrorCount)
}

func TestParserErrorCountMatchesErrors(t *testing.T) {
	p := New(nil)
	p.ConsumeLine("[t1] ERROR first failure")
	p.ConsumeLine("[t2] INFO fine")
	p.ConsumeLine("[t3] ERROR second failure")
	p.ConsumeLine("[t4] error lowercase is not an ERROR level")

	result := p.Result(model.ParseStatusCompleted)
	assert.Equal(t, 2, result.ErrorCount)
	assert.Len(t, result.Errors, result.ErrorCount)
}

func TestParserDeduplicatesIPs(t *testing.T) {
	p := New(nil)
	p.ConsumeLine(`[t1] INFO a {"ip": "10.0.0.1"}`)
	p.ConsumeLine(`[t2] INFO b {"ip": "10.0.0.2"}`)
	p.ConsumeLine(`[t3] INFO c {"ip": "10.0.0.1"}`)

	result := p.Result(model.ParseStatusCompleted)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, result.IPs)
}

func TestParserDeterministic(t *testing.T) {
	lines := []string{
		`[t1] ERROR boom {"ip": "1.1.1.1"}`,
		"junk",
		`[t2] WARN watch this {"x" "y"}`,
		`[t3] INFO fine {"ip": "2.2.2.2"}`,
	}

	run := func() *model.ParseResult {
		p := New([]string{"watch"})
		for _, l := range lines {
			p.ConsumeLine(l)
		}
		return p.Result(model.ParseStatusCompleted)
	}

	assert.Equal(t, run(), run())
}
