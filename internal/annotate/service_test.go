package annotate

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polifund/fundscan/internal/receipt"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type step struct {
	raw []byte
	err error
}

// scriptedProvider replays a fixed sequence of responses, repeating the
// last step once the script runs out.
type scriptedProvider struct {
	steps []step
	calls int
}

func (p *scriptedProvider) Name() string  { return "scripted" }
func (p *scriptedProvider) Model() string { return "test-model" }

func (p *scriptedProvider) Annotate(_ context.Context, _ []byte) ([]byte, error) {
	i := p.calls
	p.calls++
	if i >= len(p.steps) {
		i = len(p.steps) - 1
	}
	return p.steps[i].raw, p.steps[i].err
}

var testRegion = receipt.Region{File: "a.pdf", Page: 1, Index: 1}

func TestServiceAnnotate(t *testing.T) {
	provider := &scriptedProvider{steps: []step{
		{raw: []byte(`{"payee_name":"株式会社サンプル","validity_score":0.9}`)},
	}}
	svc := NewService(provider, nil, testLogger())

	ann := svc.Annotate(context.Background(), testRegion, []byte("jpeg"))
	require.NotNil(t, ann)
	require.NotNil(t, ann.PayeeName)
	assert.Equal(t, "株式会社サンプル", *ann.PayeeName)
	require.NotNil(t, ann.ValidityScore)
	assert.Equal(t, 0.9, *ann.ValidityScore)
	assert.Nil(t, ann.Website)
	assert.Equal(t, 1, provider.calls)
}

func TestServiceAnnotateRetriesOnce(t *testing.T) {
	provider := &scriptedProvider{steps: []step{
		{err: errors.New("rate limited")},
		{raw: []byte(`{"payee_name":"a"}`)},
	}}
	svc := NewService(provider, nil, testLogger())

	ann := svc.Annotate(context.Background(), testRegion, []byte("jpeg"))
	require.NotNil(t, ann)
	assert.Equal(t, 2, provider.calls)
}

func TestServiceAnnotateGivesUp(t *testing.T) {
	provider := &scriptedProvider{steps: []step{
		{err: errors.New("down")},
	}}
	svc := NewService(provider, nil, testLogger())

	ann := svc.Annotate(context.Background(), testRegion, []byte("jpeg"))
	assert.Nil(t, ann)
	assert.Equal(t, 2, provider.calls)
}

func TestServiceAnnotateSanitizesResponse(t *testing.T) {
	provider := &scriptedProvider{steps: []step{
		{raw: []byte(`{"payee_name":"a","validity_score":3.5,"extra":"x"}`)},
	}}
	svc := NewService(provider, nil, testLogger())

	ann := svc.Annotate(context.Background(), testRegion, []byte("jpeg"))
	require.NotNil(t, ann)
	require.NotNil(t, ann.PayeeName)
	assert.Equal(t, "a", *ann.PayeeName)
	assert.Nil(t, ann.ValidityScore)
	assert.Equal(t, 1, provider.calls)
}

func TestServiceAnnotateUnparseableResponse(t *testing.T) {
	provider := &scriptedProvider{steps: []step{
		{raw: []byte(`the receipt says...`)},
	}}
	svc := NewService(provider, nil, testLogger())

	ann := svc.Annotate(context.Background(), testRegion, []byte("jpeg"))
	assert.Nil(t, ann)
	assert.Equal(t, 2, provider.calls)
}

func TestServiceAnnotateDisabled(t *testing.T) {
	svc := NewService(nil, nil, testLogger())
	assert.False(t, svc.Enabled())
	assert.Nil(t, svc.Annotate(context.Background(), testRegion, []byte("jpeg")))
}

func TestServiceAnnotateCancelled(t *testing.T) {
	provider := &scriptedProvider{steps: []step{
		{raw: []byte(`{"payee_name":"a"}`)},
	}}
	svc := NewService(provider, nil, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ann := svc.Annotate(ctx, testRegion, []byte("jpeg"))
	assert.Nil(t, ann)
	assert.Equal(t, 0, provider.calls)
}

func TestServiceAnnotateCacheHit(t *testing.T) {
	provider := &scriptedProvider{steps: []step{
		{raw: []byte(`{"payee_name":"a"}`)},
	}}
	cache := NewCache(time.Hour, nil, testLogger())
	svc := NewService(provider, cache, testLogger())

	first := svc.Annotate(context.Background(), testRegion, []byte("jpeg"))
	require.NotNil(t, first)
	second := svc.Annotate(context.Background(), testRegion, []byte("jpeg"))
	require.NotNil(t, second)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, provider.calls)
}

func TestServiceAnnotateCacheKeyedByImage(t *testing.T) {
	provider := &scriptedProvider{steps: []step{
		{raw: []byte(`{"payee_name":"a"}`)},
	}}
	cache := NewCache(time.Hour, nil, testLogger())
	svc := NewService(provider, cache, testLogger())

	svc.Annotate(context.Background(), testRegion, []byte("jpeg-one"))
	svc.Annotate(context.Background(), testRegion, []byte("jpeg-two"))
	assert.Equal(t, 2, provider.calls)
}

func TestServiceAnnotateCacheExpiry(t *testing.T) {
	provider := &scriptedProvider{steps: []step{
		{raw: []byte(`{"payee_name":"a"}`)},
	}}
	cache := NewCache(time.Hour, nil, testLogger())
	now := time.Now()
	cache.now = func() time.Time { return now }
	svc := NewService(provider, cache, testLogger())

	svc.Annotate(context.Background(), testRegion, []byte("jpeg"))
	assert.Equal(t, 1, provider.calls)

	now = now.Add(2 * time.Hour)
	svc.Annotate(context.Background(), testRegion, []byte("jpeg"))
	assert.Equal(t, 2, provider.calls)
}

func TestCacheKey(t *testing.T) {
	a := CacheKey("openai", "gpt-4o-mini", []byte("img"))
	assert.Equal(t, a, CacheKey("openai", "gpt-4o-mini", []byte("img")))
	assert.NotEqual(t, a, CacheKey("gemini", "gpt-4o-mini", []byte("img")))
	assert.NotEqual(t, a, CacheKey("openai", "gpt-4o", []byte("img")))
	assert.NotEqual(t, a, CacheKey("openai", "gpt-4o-mini", []byte("other")))
	assert.Len(t, a, 64)
}
