// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/jeranaias/rkai/internal/model"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

type capturedRequest struct {
	Path string
	Body map[string]any
}

func newTestServer(t *testing.T, status int, response string) (*httptest.Server, *[]capturedRequest) {
	t.Helper()
	var reqs []capturedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var decoded map[string]any
		_ = json.Unmarshal(body, &decoded)
		reqs = append(reqs, capturedRequest{Path: r.URL.Path, Body: decoded})

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(server.Close)
	return server, &reqs
}

func newTestGateway(url string) *GeminiGateway {
	return NewGeminiGateway("test-key").WithBaseURL(url).WithHTTPClient(http.DefaultClient)
}

// =============================================================================
// CONFIGURATION TESTS
// =============================================================================

func TestGeminiGateway_NotConfigured(t *testing.T) {
	gw := NewGeminiGateway("  ")
	assert.False(t, gw.IsConfigured())
	assert.Equal(t, "none", gw.KeyFingerprint())

	_, err := gw.CompleteText(context.Background(), "hello", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGenerationFailed)
	assert.ErrorIs(t, err, ErrNotConfigured)

	var ge *GenerationError
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, OpText, ge.Op)

	_, err = gw.CompleteImage(context.Background(), "a cat")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestGeminiGateway_Defaults(t *testing.T) {
	gw := NewGeminiGateway("abc").WithTextModel("").WithImageModel("custom-image")
	assert.Equal(t, DefaultTextModel, gw.TextModel())
	assert.Equal(t, "custom-image", gw.ImageModel())
	assert.Len(t, gw.KeyFingerprint(), 8)
	assert.NotContains(t, gw.KeyFingerprint(), "abc")
}

// =============================================================================
// TEXT TESTS
// =============================================================================

func TestGeminiGateway_CompleteText(t *testing.T) {
	server, reqs := newTestServer(t, http.StatusOK,
		`{"candidates":[{"content":{"role":"model","parts":[{"text":"Hello from RK AI"}]}}]}`)

	history := []model.Turn{
		model.NewUserTurn("hi"),
		model.NewModelTextTurn("hello"),
		model.NewModelImageTurn("data:image/png;base64,AA=="),
	}
	reply, err := newTestGateway(server.URL).CompleteText(context.Background(), "how are you?", history)
	require.NoError(t, err)
	assert.Equal(t, "Hello from RK AI", reply)

	require.Len(t, *reqs, 1)
	req := (*reqs)[0]
	assert.True(t, strings.HasSuffix(req.Path, DefaultTextModel+":generateContent"), req.Path)

	contents, ok := req.Body["contents"].([]any)
	require.True(t, ok, "request should carry contents")
	assert.Len(t, contents, 3, "two text turns plus the new prompt; image turn skipped")
	assert.Contains(t, req.Body, "systemInstruction")
}

func TestGeminiGateway_CompleteTextEmptyFallsBack(t *testing.T) {
	server, _ := newTestServer(t, http.StatusOK, `{"candidates":[{"content":{"role":"model","parts":[]}}]}`)

	reply, err := newTestGateway(server.URL).CompleteText(context.Background(), "hi", nil)
	require.NoError(t, err)
	assert.Equal(t, FallbackReply, reply)
}

func TestGeminiGateway_CompleteTextAPIError(t *testing.T) {
	server, _ := newTestServer(t, http.StatusInternalServerError,
		`{"error":{"code":500,"message":"backend exploded","status":"INTERNAL"}}`)

	_, err := newTestGateway(server.URL).CompleteText(context.Background(), "hi", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGenerationFailed)

	var ge *GenerationError
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, OpText, ge.Op)
	assert.NotEmpty(t, ge.Message())
}

func TestGeminiGateway_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	gw := newTestGateway(server.URL).WithTimeout(50 * time.Millisecond)
	_, err := gw.CompleteText(context.Background(), "hi", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGenerationFailed)
}

func TestGeminiGateway_RateLimitCancelled(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`))
	}))
	defer server.Close()

	// One request per hour, burst 1: the second call has to wait.
	gw := newTestGateway(server.URL).WithRateLimit(1.0/60, 1)
	_, err := gw.CompleteText(context.Background(), "first", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = gw.CompleteText(ctx, "second", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGenerationFailed)
	assert.Equal(t, int32(1), calls.Load())
}

// =============================================================================
// IMAGE TESTS
// =============================================================================

func TestGeminiGateway_CompleteImage(t *testing.T) {
	server, reqs := newTestServer(t, http.StatusOK, `{"candidates":[{"content":{"parts":[
		{"text":"Here is your image"},
		{"inlineData":{"mimeType":"image/png","data":"iVBORw0KGgo="}}
	]}}]}`)

	uri, err := newTestGateway(server.URL).CompleteImage(context.Background(), "a cat")
	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,iVBORw0KGgo=", uri)

	require.Len(t, *reqs, 1)
	assert.True(t, strings.HasSuffix((*reqs)[0].Path, DefaultImageModel+":generateContent"))
}

func TestGeminiGateway_CompleteImageNoData(t *testing.T) {
	server, _ := newTestServer(t, http.StatusOK, `{"candidates":[{"content":{"parts":[{"text":"I cannot draw that"}]}}]}`)

	_, err := newTestGateway(server.URL).CompleteImage(context.Background(), "a cat")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoImage)

	var ge *GenerationError
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, "No image generated", ge.Message())
}

// =============================================================================
// RESPONSE EXTRACTION TESTS
// =============================================================================

func TestImageFromResponse(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G'}

	tests := []struct {
		name string
		res  *genai.GenerateContentResponse
		want string
		ok   bool
	}{
		{"nil", nil, "", false},
		{"no candidates", &genai.GenerateContentResponse{}, "", false},
		{"nil content", &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{}}}, "", false},
		{
			"default mime",
			&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
				Content: &genai.Content{Parts: []*genai.Part{{InlineData: &genai.Blob{Data: png}}}},
			}}},
			"data:image/png;base64,iVBORw==", true,
		},
		{
			"jpeg after text",
			&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
				Content: &genai.Content{Parts: []*genai.Part{
					{Text: "caption"},
					{InlineData: &genai.Blob{MIMEType: "image/jpeg", Data: png}},
				}},
			}}},
			"data:image/jpeg;base64,iVBORw==", true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := imageFromResponse(tt.res)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildContents(t *testing.T) {
	history := []model.Turn{
		model.NewUserTurn("q1"),
		model.NewModelImageTurn("data:image/png;base64,AA=="),
		model.NewModelTextTurn("a1"),
	}
	contents := buildContents("q2", history)
	require.Len(t, contents, 3)
	assert.Equal(t, string(genai.RoleUser), contents[0].Role)
	assert.Equal(t, string(genai.RoleModel), contents[1].Role)
	assert.Equal(t, "a1", contents[1].Parts[0].Text)
	assert.Equal(t, "q2", contents[2].Parts[0].Text)
}

func TestGenerationError(t *testing.T) {
	cause := errors.New("boom")
	err := &GenerationError{Op: OpImage, Err: cause}
	assert.Equal(t, "image generation failed: boom", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrGenerationFailed)

	empty := &GenerationError{Op: OpText}
	assert.Equal(t, "Something went wrong.", empty.Message())
}
