package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"MarketPulse/internal/conf"
	pkgerrors "MarketPulse/pkg/errors"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/durationpb"
)

func completionResponse(content string) string {
	return `{"choices":[{"message":{"content":` + mustJSON(content) + `}}]}`
}

func mustJSON(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func TestAIClient_Complete(t *testing.T) {
	var gotAuth string
	var gotReq chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(completionResponse("BTC looks bullish.")))
	}))
	defer srv.Close()

	client, err := NewAIClient("openai", srv.URL, "gpt-4o-mini", []string{"key-1"}, time.Second, "")
	require.NoError(t, err)

	text, err := client.Complete(context.Background(), "key-1", "You are an analyst.", "What about BTC?")
	require.NoError(t, err)
	assert.Equal(t, "BTC looks bullish.", text)
	assert.Equal(t, "Bearer key-1", gotAuth)
	assert.Equal(t, "gpt-4o-mini", gotReq.Model)
	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, "system", gotReq.Messages[0].Role)
	assert.Equal(t, "user", gotReq.Messages[1].Role)
}

func TestAIClient_EmptySystemOmitsMessage(t *testing.T) {
	var gotReq chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Write([]byte(completionResponse("ok")))
	}))
	defer srv.Close()

	client, err := NewAIClient("openai", srv.URL, "gpt-4o-mini", nil, time.Second, "")
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), "key-1", "", "repair this")
	require.NoError(t, err)
	require.Len(t, gotReq.Messages, 1)
	assert.Equal(t, "user", gotReq.Messages[0].Role)
}

func TestAIClient_ThrottleIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limited","type":"rate_limit"}}`))
	}))
	defer srv.Close()

	client, err := NewAIClient("openai", srv.URL, "gpt-4o-mini", nil, time.Second, "")
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), "key-1", "sys", "prompt")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsTransient(err))
	assert.Contains(t, err.Error(), "rate limited")
}

func TestAIClient_AuthFailureIsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"invalid api key","type":"auth"}}`))
	}))
	defer srv.Close()

	client, err := NewAIClient("openai", srv.URL, "gpt-4o-mini", nil, time.Second, "")
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), "bad-key", "sys", "prompt")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsPermanent(err))
}

func TestAIClient_NoChoicesIsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	client, err := NewAIClient("openai", srv.URL, "gpt-4o-mini", nil, time.Second, "")
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), "key-1", "sys", "prompt")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsPermanent(err))
}

func TestAIClient_UnsupportedProxyScheme(t *testing.T) {
	_, err := NewAIClient("openai", "https://api.openai.com", "gpt-4o-mini", nil, time.Second, "ftp://proxy:21")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported proxy scheme")
}

func TestRegistry_SkipsUnconfiguredEntries(t *testing.T) {
	logger := log.NewStdLogger(os.Stdout)
	reg, err := NewRegistry(&conf.Providers{
		Market: []*conf.Providers_Market{
			{Name: "coingecko", BaseURL: "https://api.coingecko.example", Timeout: durationpb.New(time.Second)},
			{Name: "", BaseURL: "https://nameless.example", Timeout: durationpb.New(time.Second)},
		},
		AI: []*conf.Providers_AI{
			{Name: "openai", BaseURL: "https://api.openai.example", Model: "gpt-4o-mini", Timeout: durationpb.New(time.Second)},
			{Name: "gemini", BaseURL: "", Timeout: durationpb.New(time.Second)},
		},
	}, logger)
	require.NoError(t, err)

	assert.NotNil(t, reg.Market("coingecko"))
	assert.Nil(t, reg.Market("coincap"))
	assert.NotNil(t, reg.AI("openai"))
	assert.Nil(t, reg.AI("gemini"))
}

func TestRegistry_NilConfig(t *testing.T) {
	reg, err := NewRegistry(nil, log.NewStdLogger(os.Stdout))
	require.NoError(t, err)
	assert.Nil(t, reg.Market("coingecko"))
	assert.Nil(t, reg.AI("openai"))
}
