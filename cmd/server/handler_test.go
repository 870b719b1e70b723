package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/teatak/freqseg/cache"
	"github.com/teatak/freqseg/dictionary"
	"github.com/teatak/freqseg/metrics"
	"github.com/teatak/freqseg/segmenter"
)

func setupServer(t *testing.T, dict string) (*server, http.Handler, *metrics.Metrics) {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	seg := segmenter.New(dictionary.NewReaderSource("http", strings.NewReader(dict)), segmenter.WithObserver(m))
	s := &server{seg: seg, metrics: m, logger: zap.NewNop(), maxBody: 1 << 20}
	return s, s.routes(reg), m
}

func post(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/segment", strings.NewReader(body)))
	return rec
}

func TestHandleSegment(t *testing.T) {
	_, h, m := setupServer(t, "南京市 100\n长江大桥 100\n南京 10\n长江 10\n大桥 10\n")

	tests := []struct {
		body     string
		expected []string
	}{
		{`{"text":"南京市长江大桥"}`, []string{"南京市", "长江大桥"}},
		{`{"text":"南京市长江大桥","mode":"search"}`, []string{"南京", "南京市", "长江", "大桥", "长江大桥"}},
		{`{"text":"iPhone15"}`, []string{"iPhone15"}},
		{`{"text":""}`, []string{}},
	}
	for _, tt := range tests {
		rec := post(t, h, tt.body)
		require.Equal(t, http.StatusOK, rec.Code, tt.body)
		var resp SegResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, tt.expected, resp.Tokens, tt.body)
	}
	assert.Equal(t, 4.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("/v1/segment", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DictionaryLoads.WithLabelValues("ok")))
}

func TestHandleSegment_BadRequest(t *testing.T) {
	_, h, m := setupServer(t, "中文 10\n")

	for _, body := range []string{`{`, `{"text":"中文","mode":"crf"}`} {
		rec := post(t, h, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Contains(t, rec.Body.String(), `"error"`)
	}
	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("/v1/segment", "400")))
}

func TestHandleSegment_DictionaryError(t *testing.T) {
	_, h, _ := setupServer(t, "中文 10\n测试 lots\n")

	rec := post(t, h, `{"text":"中文"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "line 2")
}

func TestHandleSegment_Cached(t *testing.T) {
	s, h, m := setupServer(t, "中文 10\n")
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	s.cache = cache.New(rdb, cache.WithRecorder(m))

	var first, second SegResponse
	require.NoError(t, json.Unmarshal(post(t, h, `{"text":"中文测试"}`).Body.Bytes(), &first))
	require.NoError(t, json.Unmarshal(post(t, h, `{"text":"中文测试"}`).Body.Bytes(), &second))

	assert.False(t, first.Cached)
	assert.True(t, second.Cached)
	assert.Equal(t, []string{"中文", "测", "试"}, second.Tokens)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheHitsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheMissesTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SegmentRequests.WithLabelValues("cut")))
}

func TestHealthAndReady(t *testing.T) {
	s, h, _ := setupServer(t, "中文 10\n")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, s.seg.Initialized())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":10`)
	assert.True(t, s.seg.Initialized())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "freqseg_dictionary_total 10")
}

func TestReady_Unavailable(t *testing.T) {
	_, h, _ := setupServer(t, "中文\n")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
