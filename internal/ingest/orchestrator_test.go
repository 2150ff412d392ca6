package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dexiq/dexiq/internal/domain"
)

type stubSource struct {
	name     string
	inserted int
	err      error
	calls    int
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Fetch(context.Context, *domain.Token) (int, error) {
	s.calls++
	return s.inserted, s.err
}

func TestOrchestratorRunsAllSources(t *testing.T) {
	a := &stubSource{name: "ticker", inserted: 1}
	b := &stubSource{name: "metadata", inserted: 2}
	c := &stubSource{name: "candles", inserted: 10}
	o := NewOrchestrator([]Source{a, b, c}, &fakeMetadataStore{}, &fakeCandleStore{}, nil, testLogger())

	report := o.Run(context.Background(), testToken())
	assert.Equal(t, 13, report.Inserted)
	assert.Empty(t, report.Failed())
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, 1, b.calls)
	assert.Equal(t, 1, c.calls)
}

func TestOrchestratorIsolatesSourceFailures(t *testing.T) {
	a := &stubSource{name: "ticker", err: errors.New("rate limited")}
	b := &stubSource{name: "metadata", inserted: 2}
	o := NewOrchestrator([]Source{a, b}, &fakeMetadataStore{}, &fakeCandleStore{}, nil, testLogger())

	report := o.Run(context.Background(), testToken())
	assert.Equal(t, 2, report.Inserted)
	require.Len(t, report.Failed(), 1)
	assert.Equal(t, "ticker", report.Failed()[0].Source)
	assert.Equal(t, 1, b.calls)
}

func TestOrchestratorEnqueuesAnalysisWhenAnalyzable(t *testing.T) {
	metadata := &fakeMetadataStore{hasBase: true}
	candles := &fakeCandleStore{count: 3}
	enqueuer := &fakeEnqueuer{}
	o := NewOrchestrator(nil, metadata, candles, enqueuer, testLogger())

	token := testToken()
	report := o.Run(context.Background(), token)
	assert.True(t, report.AnalysisEnqueued)
	require.Len(t, enqueuer.tokens, 1)
	assert.Equal(t, token.ID, enqueuer.tokens[0].ID)
}

func TestOrchestratorSkipsAnalysisWithoutBaseMetadata(t *testing.T) {
	metadata := &fakeMetadataStore{hasBase: false}
	candles := &fakeCandleStore{count: 3}
	enqueuer := &fakeEnqueuer{}
	o := NewOrchestrator(nil, metadata, candles, enqueuer, testLogger())

	report := o.Run(context.Background(), testToken())
	assert.False(t, report.AnalysisEnqueued)
	assert.Empty(t, enqueuer.tokens)
}

func TestOrchestratorSkipsAnalysisWithoutCandles(t *testing.T) {
	metadata := &fakeMetadataStore{hasBase: true}
	candles := &fakeCandleStore{}
	enqueuer := &fakeEnqueuer{}
	o := NewOrchestrator(nil, metadata, candles, enqueuer, testLogger())

	report := o.Run(context.Background(), testToken())
	assert.False(t, report.AnalysisEnqueued)
}

func TestOrchestratorReportsDroppedAnalysisJob(t *testing.T) {
	metadata := &fakeMetadataStore{hasBase: true}
	candles := &fakeCandleStore{count: 1}
	enqueuer := &fakeEnqueuer{full: true}
	o := NewOrchestrator(nil, metadata, candles, enqueuer, testLogger())

	report := o.Run(context.Background(), testToken())
	assert.False(t, report.AnalysisEnqueued)
}
