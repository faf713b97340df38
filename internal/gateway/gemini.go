// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gateway

import (
	"context"
	"crypto/sha256"
	"crypto/tls"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/jeranaias/rkai/internal/model"
)

// Defaults for the Gemini API.
const (
	DefaultTextModel   = "gemini-3.1-pro-preview"
	DefaultImageModel  = "gemini-2.5-flash-image"
	DefaultAspectRatio = "1:1"

	// DefaultSystemInstruction is the persona sent with every text request.
	DefaultSystemInstruction = "You are RK AI, a highly advanced personal assistant. " +
		"You are professional, helpful, and concise. When asked for code, ensure it is " +
		"high-quality and error-free (especially for Pro users)."

	// FallbackReply is returned when the model answers with no text.
	FallbackReply = "I am sorry, I could not generate a response."

	// DefaultImageMIME is used when inline image data carries no MIME type.
	DefaultImageMIME = "image/png"
)

// sharedHTTPClient pools connections across requests. No client timeout;
// requests are bounded by context.
var sharedHTTPClient = &http.Client{
	Transport: &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	},
}

// =============================================================================
// GEMINI GATEWAY
// =============================================================================

// GeminiGateway implements Gateway over the Gemini API.
//
// The genai client is created on first use, so a missing API key surfaces
// as a GenerationError on the first request rather than at startup.
type GeminiGateway struct {
	apiKey            string
	baseURL           string
	textModel         string
	imageModel        string
	systemInstruction string
	aspectRatio       string
	timeout           time.Duration
	httpClient        *http.Client
	limiter           *rate.Limiter
	logger            zerolog.Logger

	mu     sync.Mutex
	client *genai.Client
}

// NewGeminiGateway creates a gateway with the default models and persona.
func NewGeminiGateway(apiKey string) *GeminiGateway {
	return &GeminiGateway{
		apiKey:            strings.TrimSpace(apiKey),
		textModel:         DefaultTextModel,
		imageModel:        DefaultImageModel,
		systemInstruction: DefaultSystemInstruction,
		aspectRatio:       DefaultAspectRatio,
		httpClient:        sharedHTTPClient,
		logger:            zerolog.Nop(),
	}
}

// WithBaseURL overrides the API endpoint (used for proxies and tests).
func (g *GeminiGateway) WithBaseURL(url string) *GeminiGateway {
	g.baseURL = strings.TrimRight(url, "/")
	return g
}

// WithTextModel sets the model used for text replies.
func (g *GeminiGateway) WithTextModel(name string) *GeminiGateway {
	if name != "" {
		g.textModel = name
	}
	return g
}

// WithImageModel sets the model used for image generation.
func (g *GeminiGateway) WithImageModel(name string) *GeminiGateway {
	if name != "" {
		g.imageModel = name
	}
	return g
}

// WithSystemInstruction replaces the persona sent with text requests.
func (g *GeminiGateway) WithSystemInstruction(s string) *GeminiGateway {
	if s != "" {
		g.systemInstruction = s
	}
	return g
}

// WithAspectRatio sets the requested image aspect ratio.
func (g *GeminiGateway) WithAspectRatio(ratio string) *GeminiGateway {
	if ratio != "" {
		g.aspectRatio = ratio
	}
	return g
}

// WithTimeout bounds each request. Zero means no timeout.
func (g *GeminiGateway) WithTimeout(d time.Duration) *GeminiGateway {
	g.timeout = d
	return g
}

// WithRateLimit allows at most perMinute requests per minute with the given
// burst. perMinute <= 0 disables limiting.
func (g *GeminiGateway) WithRateLimit(perMinute float64, burst int) *GeminiGateway {
	if perMinute <= 0 {
		g.limiter = nil
		return g
	}
	if burst < 1 {
		burst = 1
	}
	g.limiter = rate.NewLimiter(rate.Limit(perMinute/60), burst)
	return g
}

// WithHTTPClient sets the HTTP client used by the genai client.
func (g *GeminiGateway) WithHTTPClient(c *http.Client) *GeminiGateway {
	if c != nil {
		g.httpClient = c
	}
	return g
}

// WithLogger sets the logger.
func (g *GeminiGateway) WithLogger(l zerolog.Logger) *GeminiGateway {
	g.logger = l.With().Str("component", "gateway").Logger()
	return g
}

// IsConfigured reports whether an API key is set.
func (g *GeminiGateway) IsConfigured() bool {
	return g.apiKey != ""
}

// TextModel returns the text model name.
func (g *GeminiGateway) TextModel() string { return g.textModel }

// ImageModel returns the image model name.
func (g *GeminiGateway) ImageModel() string { return g.imageModel }

// KeyFingerprint returns the first 8 hex chars of the key's SHA-256, or "none".
func (g *GeminiGateway) KeyFingerprint() string {
	if g.apiKey == "" {
		return "none"
	}
	h := sha256.Sum256([]byte(g.apiKey))
	return hex.EncodeToString(h[:4])
}

// ensureClient returns the genai client, creating it on first use.
func (g *GeminiGateway) ensureClient(ctx context.Context) (*genai.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.client != nil {
		return g.client, nil
	}
	if g.apiKey == "" {
		return nil, ErrNotConfigured
	}

	cfg := &genai.ClientConfig{
		APIKey:     g.apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: g.httpClient,
	}
	if g.baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: g.baseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	g.client = client
	g.logger.Debug().Str("key", g.KeyFingerprint()).Msg("Gemini client created")
	return client, nil
}

// prepare resolves the client, waits for the rate limiter and applies the
// request timeout. The returned cancel func is never nil.
func (g *GeminiGateway) prepare(ctx context.Context, op string) (*genai.Client, context.Context, context.CancelFunc, error) {
	noop := func() {}

	client, err := g.ensureClient(ctx)
	if err != nil {
		return nil, ctx, noop, g.fail(op, err)
	}
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, ctx, noop, &GenerationError{Op: op, Reason: "request cancelled while rate limited", Err: err}
		}
	}
	if g.timeout > 0 {
		tctx, cancel := context.WithTimeout(ctx, g.timeout)
		return client, tctx, cancel, nil
	}
	return client, ctx, noop, nil
}

// =============================================================================
// TEXT
// =============================================================================

// CompleteText sends history plus prompt to the text model.
func (g *GeminiGateway) CompleteText(ctx context.Context, prompt string, history []model.Turn) (string, error) {
	client, ctx, cancel, err := g.prepare(ctx, OpText)
	defer cancel()
	if err != nil {
		return "", err
	}

	contents := buildContents(prompt, history)
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(g.systemInstruction, genai.RoleUser),
	}

	start := time.Now()
	res, err := client.Models.GenerateContent(ctx, g.textModel, contents, cfg)
	g.logCall(OpText, g.textModel, len(contents), start, err)
	if err != nil {
		return "", g.fail(OpText, err)
	}

	return textFromResponse(res), nil
}

// buildContents converts prior text turns and the new prompt to genai contents.
func buildContents(prompt string, history []model.Turn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, t := range history {
		if !t.IsText() {
			continue
		}
		role := genai.Role(genai.RoleUser)
		if t.Role == model.RoleModel {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(t.Content, role))
	}
	return append(contents, genai.NewContentFromText(prompt, genai.RoleUser))
}

// textFromResponse extracts the reply text, falling back when empty.
func textFromResponse(res *genai.GenerateContentResponse) string {
	if res == nil {
		return FallbackReply
	}
	text := res.Text()
	if strings.TrimSpace(text) == "" {
		return FallbackReply
	}
	return text
}

// =============================================================================
// IMAGE
// =============================================================================

// CompleteImage asks the image model for a single image and returns it as
// a data URI.
func (g *GeminiGateway) CompleteImage(ctx context.Context, prompt string) (string, error) {
	client, ctx, cancel, err := g.prepare(ctx, OpImage)
	defer cancel()
	if err != nil {
		return "", err
	}

	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	cfg := &genai.GenerateContentConfig{
		ImageConfig: &genai.ImageConfig{AspectRatio: g.aspectRatio},
	}

	start := time.Now()
	res, err := client.Models.GenerateContent(ctx, g.imageModel, contents, cfg)
	g.logCall(OpImage, g.imageModel, 1, start, err)
	if err != nil {
		return "", g.fail(OpImage, err)
	}

	uri, ok := imageFromResponse(res)
	if !ok {
		return "", &GenerationError{Op: OpImage, Reason: "No image generated", Err: ErrNoImage}
	}
	return uri, nil
}

// imageFromResponse returns the first inline image of the first candidate
// as a data URI.
func imageFromResponse(res *genai.GenerateContentResponse) (string, bool) {
	if res == nil || len(res.Candidates) == 0 {
		return "", false
	}
	cand := res.Candidates[0]
	if cand == nil || cand.Content == nil {
		return "", false
	}
	for _, part := range cand.Content.Parts {
		if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
			continue
		}
		mime := part.InlineData.MIMEType
		if mime == "" {
			mime = DefaultImageMIME
		}
		return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(part.InlineData.Data), true
	}
	return "", false
}

// =============================================================================
// ERRORS AND LOGGING
// =============================================================================

// fail wraps err as a GenerationError with a user-facing reason.
func (g *GeminiGateway) fail(op string, err error) error {
	var ge *GenerationError
	if errors.As(err, &ge) {
		return ge
	}
	return &GenerationError{Op: op, Reason: reasonFor(err), Err: err}
}

// reasonFor turns transport and API errors into a short message.
func reasonFor(err error) string {
	switch {
	case errors.Is(err, ErrNotConfigured):
		return "API key not configured. Set GEMINI_API_KEY or gemini.api_key in config."
	case errors.Is(err, context.DeadlineExceeded):
		return "The request timed out."
	case errors.Is(err, context.Canceled):
		return "The request was cancelled."
	}
	msg := strings.TrimSpace(err.Error())
	if msg == "" {
		return "Something went wrong."
	}
	return msg
}

// logCall records request metadata only; never prompts, replies or the key.
func (g *GeminiGateway) logCall(op, modelName string, contents int, start time.Time, err error) {
	evt := g.logger.Info()
	if err != nil {
		evt = g.logger.Warn().Err(err)
	}
	evt.Str("op", op).
		Str("model", modelName).
		Int("contents", contents).
		Dur("duration", time.Since(start)).
		Msg("Gemini request")
}
