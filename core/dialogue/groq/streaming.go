package groq

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/tkresnik/aria-core/core/dialogue"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	defaultURL   = "https://api.groq.com/openai/v1/chat/completions"
	defaultModel = "llama-3.3-70b-versatile"

	chunkPrefix = "data:"
	endMessage  = "[DONE]"
)

// Client streams assistant replies from the Groq chat-completions endpoint.
type Client struct {
	apiKey       string
	model        string
	systemPrompt string
	url          string

	httpClient *http.Client
}

var _ dialogue.StreamingClient = (*Client)(nil)

type ClientOption func(*Client)

func WithModel(model string) ClientOption {
	return func(c *Client) { c.model = model }
}

func WithSystemPrompt(systemPrompt string) ClientOption {
	return func(c *Client) { c.systemPrompt = systemPrompt }
}

// WithEndpoint overrides the completions URL, mainly for tests.
func WithEndpoint(url string) ClientOption {
	return func(c *Client) { c.url = url }
}

func NewClient(opts ...ClientOption) *Client {
	client := &Client{
		apiKey: os.Getenv("GROQ_API_KEY"),
		model:  defaultModel,
		url:    defaultURL,
		httpClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport,
			otelhttp.WithSpanNameFormatter(func(operationName string, request *http.Request) string {
				return operationName + " " + request.URL.Path
			}),
		)},
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

func (c *Client) StreamReply(_ context.Context, req dialogue.Request) dialogue.Stream {
	return &stream{
		client:   c,
		messages: toMessages(c.systemPrompt, req),
	}
}

type stream struct {
	client   *Client
	messages []message
}

func (s *stream) Fragments(ctx context.Context) func(yield func(string, error) bool) {
	return func(yield func(string, error) bool) {
		ctx, span := tracer.Start(ctx, "stream reply")
		defer span.End()
		span.SetAttributes(attribute.String("request.model", s.client.model))

		if s.client.apiKey == "" {
			err := fmt.Errorf("%w: GROQ_API_KEY not set", dialogue.ErrAuth)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			yield("", err)
			return
		}

		bodyBytes, err := json.Marshal(requestBody{
			Model:    s.client.model,
			Messages: s.messages,
			Stream:   true,
		})
		if err != nil {
			yield("", fmt.Errorf("error marshalling request body: %w", err))
			return
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.client.url, bytes.NewReader(bodyBytes))
		if err != nil {
			yield("", fmt.Errorf("error creating HTTP request: %w", err))
			return
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", "Bearer "+s.client.apiKey)

		requestStarted := time.Now()
		resp, err := s.client.httpClient.Do(httpReq)
		if err != nil {
			if ctx.Err() != nil {
				yield("", ctx.Err())
				return
			}
			err = fmt.Errorf("%w: %v", dialogue.ErrUpstream, err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			yield("", err)
			return
		}
		defer resp.Body.Close()

		span.SetAttributes(attribute.Int("response.status_code", resp.StatusCode))
		if resp.StatusCode != http.StatusOK {
			if errorBody, readErr := io.ReadAll(resp.Body); readErr == nil {
				span.SetAttributes(attribute.String("response.error", string(errorBody)))
			}

			err := fmt.Errorf("%w: non-OK HTTP status: %s", dialogue.ErrUpstream, resp.Status)
			if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
				err = fmt.Errorf("%w: non-OK HTTP status: %s", dialogue.ErrAuth, resp.Status)
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			yield("", err)
			return
		}

		firstFragment := true
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			chunk := strings.TrimSpace(strings.TrimPrefix(scanner.Text(), chunkPrefix))
			if len(chunk) == 0 {
				continue
			}
			if chunk == endMessage {
				break
			}

			var responseBody streamingResponseBody
			if err := json.Unmarshal([]byte(chunk), &responseBody); err != nil {
				err = fmt.Errorf("error unmarshalling stream chunk: %w", err)
				span.RecordError(err)
				logger.WarnContext(ctx, "dropping malformed stream chunk", "error", err)
				continue
			}

			if len(responseBody.Choices) == 0 {
				continue
			}
			content := responseBody.Choices[0].Delta.Content
			if content == "" {
				continue
			}

			if firstFragment {
				firstFragment = false
				span.SetAttributes(attribute.Float64("response.request_to_first_token_time",
					time.Since(requestStarted).Seconds()))
				span.AddEvent("received first fragment")
			}

			if ctx.Err() != nil {
				yield("", ctx.Err())
				return
			}
			if !yield(content, nil) {
				return
			}
		}

		if err := scanner.Err(); err != nil {
			if ctx.Err() != nil {
				yield("", ctx.Err())
				return
			}
			yield("", fmt.Errorf("%w: error reading streamed response: %v", dialogue.ErrUpstream, err))
		}
	}
}
