package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindTimerStarts(t *testing.T) {
	m := NewMatcher(DefaultConfig())
	matches := m.Find(KindTimerStart, sampleHandlers)
	assert.Len(t, matches, 2)
	assert.Empty(t, m.TakeDiagnostics())
}

func TestFindErrorResponses(t *testing.T) {
	m := NewMatcher(DefaultConfig())
	matches := m.Find(KindErrorResponse, sampleHandlers)
	require.Len(t, matches, 3)

	var codes []string
	for _, match := range matches {
		codes = append(codes, match.Field("statusCode"))
	}
	assert.Equal(t, []string{"503", "500", "500"}, codes)
	assert.Empty(t, m.TakeDiagnostics())
}

func TestFindErrorResponsesCapturesNestedPayload(t *testing.T) {
	m := NewMatcher(DefaultConfig())
	matches := m.Find(KindErrorResponse, sampleHandlers)
	require.Len(t, matches, 3)

	// The second match has a payload with a depth-2 nested literal; a flat
	// pattern would truncate it at the first inner closing brace.
	payload := matches[1].Field("payload")
	assert.True(t, strings.HasPrefix(payload, "{"))
	assert.True(t, strings.HasSuffix(payload, "}"))
	assert.Contains(t, payload, `details: { hint: "check puppetserver connectivity" }`)
	assert.True(t, balancedBraces(payload))
}

func TestFindErrorResponsesIgnoresPlainResponses(t *testing.T) {
	m := NewMatcher(DefaultConfig())
	src := `res.status(200).json({ data: items });
res.json(result);`
	assert.Empty(t, m.Find(KindErrorResponse, src))
}

func TestFindErrorResponsesFailsClosedOnUnbalancedPayload(t *testing.T) {
	src := `res.status(404).json({ error: { code: "X" });
res.status(500).json({ error: { code: "Y" } });`

	m := NewMatcher(DefaultConfig())
	matches := m.Find(KindErrorResponse, src)

	// The malformed region is skipped and reported; the sibling still matches.
	require.Len(t, matches, 1)
	assert.Equal(t, "500", matches[0].Field("statusCode"))

	diags := m.TakeDiagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, KindErrorResponse, diags[0].Kind)
	assert.Contains(t, diags[0].Message, "unbalanced")
}

func TestFindErrorResponsesSkipsStringDelimiters(t *testing.T) {
	m := NewMatcher(DefaultConfig())
	src := `res.status(400).json({ error: { code: "BAD", message: "brace } and paren ) inside" } });`
	matches := m.Find(KindErrorResponse, src)
	require.Len(t, matches, 1)
	assert.Contains(t, matches[0].Field("payload"), `paren ) inside`)
	assert.Empty(t, m.TakeDiagnostics())
}

func TestFindCatchRegions(t *testing.T) {
	m := NewMatcher(DefaultConfig())
	matches := m.Find(KindCatchRegion, sampleHandlers)
	require.Len(t, matches, 2)
	assert.Equal(t, "error", matches[0].Field("errVar"))
	assert.Contains(t, matches[0].Field("body"), "logger.error")
}

func TestFindEarlyExits(t *testing.T) {
	m := NewMatcher(DefaultConfig())
	matches := m.Find(KindEarlyExit, sampleHandlers)
	require.Len(t, matches, 1)

	match := matches[0]
	assert.Equal(t, "puppetserverService", match.Field("condition"))
	assert.Equal(t, "503", match.Field("statusCode"))
	assert.True(t, strings.HasPrefix(match.Fields["response"].Text, "res.status(503)"))
}

func TestFindEarlyExitsHandlesCallConditions(t *testing.T) {
	src := `router.get("/x", handler);
if (!puppetserverService.isInitialized()) {
  logger.warn("not initialized");
  res.status(503).json({ error: { code: "NOT_INITIALIZED" } });
  return;
}`
	m := NewMatcher(DefaultConfig())
	matches := m.Find(KindEarlyExit, src)
	require.Len(t, matches, 1)
	assert.Equal(t, "puppetserverService.isInitialized()", matches[0].Field("condition"))
}

func TestFindEarlyExitsExcludesGuardsInsideTry(t *testing.T) {
	src := `router.get("/x", handler);
try {
  if (!thing) {
    logger.warn("missing");
    res.status(503).json({ error: { code: "MISSING" } });
  }
} catch (error) {}`
	m := NewMatcher(DefaultConfig())
	assert.Empty(t, m.Find(KindEarlyExit, src))
}

func TestFindEarlyExitsRequiresResponse(t *testing.T) {
	src := `if (!thing) {
  logger.warn("missing, but nothing emitted");
  return;
}`
	m := NewMatcher(DefaultConfig())
	assert.Empty(t, m.Find(KindEarlyExit, src))
}

func TestFindRouteDecls(t *testing.T) {
	m := NewMatcher(DefaultConfig())
	matches := m.Find(KindRouteDecl, sampleHandlers)
	require.Len(t, matches, 2)
	assert.Equal(t, "get", matches[0].Field("method"))
	assert.Equal(t, "/environments", matches[0].Field("path"))
	assert.Equal(t, "/unknown/route", matches[1].Field("path"))
}

func TestFindPlaceholders(t *testing.T) {
	cfg := DefaultConfig()
	m := NewMatcher(cfg)

	assert.Empty(t, m.Find(KindPlaceholder, sampleHandlers))

	src := "createDebugInfo('" + cfg.Placeholder + "', requestId, 0)"
	matches := m.Find(KindPlaceholder, src)
	require.Len(t, matches, 1)
	assert.Equal(t, cfg.Placeholder, src[matches[0].Start:matches[0].End])
}

func TestFindHelperCalls(t *testing.T) {
	m := NewMatcher(DefaultConfig())
	src := `const duration = Date.now() - startTime;
sendDebugResponse(req, res, responseData, 'GET /api/integrations/puppetserver/environments', duration, 'puppetserver', { environment: environmentName });
`
	matches := m.Find(KindHelperCall, src)
	require.Len(t, matches, 1)

	match := matches[0]
	assert.Equal(t, "responseData", match.Field("data"))
	assert.Equal(t, "GET /api/integrations/puppetserver/environments", match.Field("operation"))
	assert.Equal(t, "puppetserver", match.Field("integration"))
	assert.Equal(t, "environment: environmentName", strings.TrimSpace(match.Field("metadata")))
	assert.True(t, strings.HasSuffix(src[match.Start:match.End], ");"))
	assert.Empty(t, m.TakeDiagnostics())
}

func TestFindHelperCallsSpanningLines(t *testing.T) {
	m := NewMatcher(DefaultConfig())
	src := `sendDebugResponse(
  req,
  res,
  data,
  'GET /api/integrations/puppetserver/metrics',
  duration,
  'puppetserver',
  {}
);
`
	matches := m.Find(KindHelperCall, src)
	require.Len(t, matches, 1)
	assert.Equal(t, "data", matches[0].Field("data"))
	assert.Empty(t, strings.TrimSpace(matches[0].Field("metadata")))
}

func TestFindHelperCallsRequiresFixedArgumentOrder(t *testing.T) {
	m := NewMatcher(DefaultConfig())
	src := `sendDebugResponse(res, data);`

	assert.Empty(t, m.Find(KindHelperCall, src))

	diags := m.TakeDiagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, KindHelperCall, diags[0].Kind)
	assert.Contains(t, diags[0].Message, "fixed order")
}

func TestFindHelperCallsIgnoresImportList(t *testing.T) {
	m := NewMatcher(DefaultConfig())
	assert.Empty(t, m.Find(KindHelperCall, sampleHandlers))
	assert.Empty(t, m.TakeDiagnostics())
}

func TestFindUnknownKind(t *testing.T) {
	m := NewMatcher(DefaultConfig())
	assert.Nil(t, m.Find(Kind("bogus"), sampleHandlers))
}

func TestScanDelim(t *testing.T) {
	tests := []struct {
		name string
		src  string
		open int
		want int
		ok   bool
	}{
		{"flat parens", "f(a, b)", 1, 6, true},
		{"nested braces", "{a: {b: {c: 1}}}", 0, 15, true},
		{"string with close", `f("x)y")`, 1, 7, true},
		{"comment with close", "f(a // )\n)", 1, 9, true},
		{"unterminated", "f(a, {b", 1, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := scanDelim(tt.src, tt.open)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestBalancedBraces(t *testing.T) {
	assert.True(t, balancedBraces(`{ error: { code: "X" } }`))
	assert.True(t, balancedBraces(`{ msg: "stray } inside string" }`))
	assert.False(t, balancedBraces(`{ error: { code: "X" }`))
	assert.False(t, balancedBraces(`} {`))
}
