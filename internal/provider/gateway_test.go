package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doculoom/engine/internal/budget"
	"github.com/doculoom/engine/internal/model"
)

// fakeProvider returns a scripted sequence of results, one per call, and
// repeats the final entry once the sequence is exhausted.
type fakeProvider struct {
	name  string
	calls int
	results []struct {
		resp Response
		err  error
	}
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Generate(ctx context.Context, prompt string, deadline time.Time) (Response, error) {
	i := f.calls
	if i >= len(f.results) {
		i = len(f.results) - 1
	}
	f.calls++
	r := f.results[i]
	return r.resp, r.err
}

func newTALEForTest() *budget.TALE {
	partitions := map[model.Phase]float64{
		model.PhaseCharacterization: 1.0,
	}
	return budget.New(1_000_000, 0.0, partitions, model.EnforcementSoft, nil)
}

func TestChainFallsBackToSecondProviderOnTerminalFailure(t *testing.T) {
	primary := &fakeProvider{name: "primary", results: []struct {
		resp Response
		err  error
	}{{Response{}, &Error{Category: CategoryAuth, Provider: "primary", Err: errors.New("bad key")}}}}
	secondary := &fakeProvider{name: "secondary", results: []struct {
		resp Response
		err  error
	}{{Response{Text: `{"summary":"ok"}`, Provider: "secondary"}, nil}}}

	c := newChain([]Provider{primary, secondary})
	resp, err := c.Generate(context.Background(), "prompt", time.Now().Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, "secondary", resp.Provider)
}

func TestChainReturnsAllProvidersFailedWhenExhausted(t *testing.T) {
	p1 := &fakeProvider{name: "p1", results: []struct {
		resp Response
		err  error
	}{{Response{}, &Error{Category: CategoryAuth, Provider: "p1", Err: errors.New("no")}}}}
	p2 := &fakeProvider{name: "p2", results: []struct {
		resp Response
		err  error
	}{{Response{}, &Error{Category: CategoryAuth, Provider: "p2", Err: errors.New("no")}}}}

	c := newChain([]Provider{p1, p2})
	_, err := c.Generate(context.Background(), "prompt", time.Now().Add(time.Second))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAllProvidersFailed)
}

func TestGatewayGenerateValidatesAndCommitsBudget(t *testing.T) {
	p := &fakeProvider{name: "p", results: []struct {
		resp Response
		err  error
	}{{Response{Text: `{"summary": "a file"}`, InputTokens: 100, OutputTokens: 50, Provider: "p"}, nil}}}

	tale := newTALEForTest()
	schema, err := CompileSchema("gw-schema.json", []byte(testSchema))
	require.NoError(t, err)

	gw := NewGateway([]Provider{p}, tale, time.Second)
	obj, resp, err := gw.Generate(context.Background(), model.PhaseCharacterization, "prompt", 1000, schema)
	require.NoError(t, err)
	assert.Equal(t, "a file", obj["summary"])
	assert.Equal(t, "p", resp.Provider)

	remaining, err := tale.Remaining(model.PhaseCharacterization)
	require.NoError(t, err)
	assert.Less(t, remaining, int64(1_000_000))
}

func TestGatewayGenerateRepairsMalformedJSONOnce(t *testing.T) {
	p := &fakeProvider{name: "p", results: []struct {
		resp Response
		err  error
	}{{Response{Text: "```json\n{\"summary\": \"trimmed\",\n```", InputTokens: 10, OutputTokens: 10, Provider: "p"}, nil}}}

	tale := newTALEForTest()
	schema, err := CompileSchema("gw-schema-2.json", []byte(testSchema))
	require.NoError(t, err)

	gw := NewGateway([]Provider{p}, tale, time.Second)
	obj, _, err := gw.Generate(context.Background(), model.PhaseCharacterization, "prompt", 1000, schema)
	require.NoError(t, err)
	assert.Equal(t, "trimmed", obj["summary"])
}

func TestGatewayGenerateSurfacesParseErrorAfterFailedRepair(t *testing.T) {
	p := &fakeProvider{name: "p", results: []struct {
		resp Response
		err  error
	}{{Response{Text: "this is not json and cannot be repaired", InputTokens: 10, OutputTokens: 10, Provider: "p"}, nil}}}

	tale := newTALEForTest()
	schema, err := CompileSchema("gw-schema-3.json", []byte(testSchema))
	require.NoError(t, err)

	gw := NewGateway([]Provider{p}, tale, time.Second)
	_, _, err = gw.Generate(context.Background(), model.PhaseCharacterization, "prompt", 1000, schema)
	require.Error(t, err)
	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, CategoryParseError, perr.Category)
}
