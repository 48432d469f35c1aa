package evaluate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procurewatch/bomrisk/internal/model"
	"github.com/procurewatch/bomrisk/pkg/anthropic"
)

type fakeClient struct {
	resp *anthropic.MessageResponse
	err  error
	last anthropic.MessageRequest
}

func (f *fakeClient) CreateMessage(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	f.last = req
	return f.resp, f.err
}

func textResponse(text string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		Model:   defaultModel,
		Content: []anthropic.ContentBlock{{Type: "text", Text: text}},
	}
}

const goodResponse = `{
	"summary": "Close electrical match, wider voltage rating.",
	"parameters": [
		{"parameterId": "Capacitance", "description": "Nominal capacitance", "targetValue": "4.7 µF", "candidateValue": "4.7 µF", "score": 100, "reason": "Identical."},
		{"parameterId": "Voltage - Rated", "description": "Rated voltage", "targetValue": "10V", "candidateValue": "16V", "score": 100, "reason": "Exceeds target."}
	]
}`

func target() model.UnifiedProduct {
	return model.UnifiedProduct{
		MPN:          "GRM188R61A475KE15D",
		Manufacturer: "Murata",
		Parameters: []model.Parameter{
			{Name: "Capacitance", Value: "4.7 µF"},
			{Name: "Voltage - Rated", Value: "10V"},
		},
	}
}

func candidate() model.UnifiedProduct {
	return model.UnifiedProduct{MPN: "CL10A475KO8NNNC", Manufacturer: "Samsung"}
}

func TestEvaluate(t *testing.T) {
	client := &fakeClient{resp: textResponse(goodResponse)}
	e := New(client)

	report, err := e.Evaluate(context.Background(), target(), candidate())
	require.NoError(t, err)
	assert.Equal(t, "GRM188R61A475KE15D", report.TargetID)
	assert.Equal(t, "CL10A475KO8NNNC", report.CandidateID)
	assert.NotZero(t, report.EvaluatedAt)
	require.Len(t, report.Parameters, 2)
	assert.Equal(t, "Capacitance", report.Parameters[0].ParameterID)
	assert.Equal(t, 100, report.Parameters[0].Score)

	// The prompt carries both parts and the system prompt is cached.
	assert.Contains(t, client.last.Messages[0].Content, "GRM188R61A475KE15D")
	assert.Contains(t, client.last.Messages[0].Content, "CL10A475KO8NNNC")
	require.Len(t, client.last.System, 1)
	require.NotNil(t, client.last.System[0].CacheControl)
}

func TestEvaluateFencedResponse(t *testing.T) {
	fenced := "```json\n" + goodResponse + "\n```"
	e := New(&fakeClient{resp: textResponse(fenced)})

	report, err := e.Evaluate(context.Background(), target(), candidate())
	require.NoError(t, err)
	assert.Len(t, report.Parameters, 2)
}

func TestEvaluateRejectsBadScores(t *testing.T) {
	bad := `{"summary": "x", "parameters": [{"parameterId": "ESR", "score": 140, "reason": "y"}]}`
	e := New(&fakeClient{resp: textResponse(bad)})

	_, err := e.Evaluate(context.Background(), target(), candidate())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside [0,100]")
}

func TestEvaluateRejectsEmptyParameters(t *testing.T) {
	e := New(&fakeClient{resp: textResponse(`{"summary": "x", "parameters": []}`)})

	_, err := e.Evaluate(context.Background(), target(), candidate())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no parameters")
}

func TestEvaluateRejectsMissingParameterID(t *testing.T) {
	bad := `{"summary": "x", "parameters": [{"score": 50, "reason": "y"}]}`
	e := New(&fakeClient{resp: textResponse(bad)})

	_, err := e.Evaluate(context.Background(), target(), candidate())
	require.Error(t, err)
}

func TestEvaluateMalformedJSON(t *testing.T) {
	e := New(&fakeClient{resp: textResponse("I cannot compare these parts.")})

	_, err := e.Evaluate(context.Background(), target(), candidate())
	require.Error(t, err)
}

func TestParseReportNullValues(t *testing.T) {
	text := `{"summary": "partial", "parameters": [
		{"parameterId": "ESR", "targetValue": "5 mΩ", "candidateValue": null, "score": 0, "reason": "Candidate does not list ESR."}
	]}`
	report, err := parseReport(text)
	require.NoError(t, err)
	require.Len(t, report.Parameters, 1)
	assert.Nil(t, report.Parameters[0].CandidateValue)
	require.NotNil(t, report.Parameters[0].TargetValue)
	assert.Equal(t, "5 mΩ", *report.Parameters[0].TargetValue)
}

func TestWithOptions(t *testing.T) {
	e := New(&fakeClient{}, WithModel("claude-haiku-4-5-20251001"), WithMaxTokens(512))
	assert.Equal(t, "claude-haiku-4-5-20251001", e.model)
	assert.Equal(t, int64(512), e.maxTokens)
}
