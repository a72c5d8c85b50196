package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gomarketplace_hub/metrics"
)

var tracer = otel.Tracer("gomarketplace_hub/adapters")

// ClientOptions: параметры подключения к API конкретного поставщика или маркетплейса.
type ClientOptions struct {
	BaseURL       string
	Timeout       time.Duration
	RatePerSecond float64
	Burst         int
	Log           *zap.Logger
}

// RequestOption дополняет запрос (заголовки авторизации, query-параметры).
type RequestOption func(r *resty.Request)

func WithQuery(params map[string]string) RequestOption {
	return func(r *resty.Request) {
		for k, v := range params {
			if v != "" {
				r.SetQueryParam(k, v)
			}
		}
	}
}

func WithHeader(key, value string) RequestOption {
	return func(r *resty.Request) {
		r.SetHeader(key, value)
	}
}

// BaseClient: общий HTTP-клиент адаптеров. Ретраев нет: любая ошибка сети или API
// сразу возвращается вызывающему как *ConnectionError.
type BaseClient struct {
	adapter Type
	http    *resty.Client
	limiter *rate.Limiter
	log     *zap.Logger
}

func NewBaseClient(adapter Type, opts ClientOptions) *BaseClient {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RatePerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), burst)
	}

	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}

	return &BaseClient{
		adapter: adapter,
		http:    client,
		limiter: limiter,
		log:     log.Named(string(adapter)),
	}
}

// SetHeader задаёт заголовок для всех запросов клиента.
func (c *BaseClient) SetHeader(key, value string) *BaseClient {
	c.http.SetHeader(key, value)
	return c
}

func (c *BaseClient) Adapter() Type {
	return c.adapter
}

func (c *BaseClient) Log() *zap.Logger {
	return c.log
}

// Do выполняет запрос и декодирует JSON-ответ в result (если он не nil).
func (c *BaseClient) Do(ctx context.Context, op, method, path string, body, result any, opts ...RequestOption) error {
	ctx, span := tracer.Start(ctx, string(c.adapter)+"."+op)
	defer span.End()
	span.SetAttributes(attribute.String("adapter", string(c.adapter)), attribute.String("http.path", path))

	start := time.Now()
	err := c.do(ctx, op, method, path, body, result, opts...)
	metrics.RecordAdapterCall(string(c.adapter), op, err, time.Since(start))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.log.Warn("Adapter call failed", zap.String("op", op), zap.String("path", path), zap.Error(err))
	}
	return err
}

func (c *BaseClient) do(ctx context.Context, op, method, path string, body, result any, opts ...RequestOption) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &ConnectionError{Adapter: c.adapter, Op: op, Err: err}
	}

	req := c.http.R().SetContext(ctx)
	if body != nil {
		req.SetBody(body)
	}
	for _, opt := range opts {
		opt(req)
	}

	c.log.Debug("Sending request", zap.String("op", op), zap.String("method", method), zap.String("path", path))
	resp, err := req.Execute(method, path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return &ConnectionError{Adapter: c.adapter, Op: op, Message: "request was cancelled", Err: ctxErr}
		}
		return &ConnectionError{Adapter: c.adapter, Op: op, Err: err}
	}

	if resp.IsError() {
		return &ConnectionError{
			Adapter:    c.adapter,
			Op:         op,
			StatusCode: resp.StatusCode(),
			Message:    vendorMessage(resp.Body(), resp.Status()),
		}
	}

	if result == nil || len(resp.Body()) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body(), result); err != nil {
		return &ConnectionError{Adapter: c.adapter, Op: op, StatusCode: resp.StatusCode(),
			Message: "failed to unmarshal response", Err: err}
	}
	return nil
}

// vendorMessage достаёт текст ошибки из типичных полей ответа.
func vendorMessage(body []byte, status string) string {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err == nil {
		for _, key := range []string{"message", "error", "errorText", "detail", "title", "msg"} {
			switch v := payload[key].(type) {
			case string:
				if v != "" {
					return v
				}
			case map[string]any:
				if m, ok := v["message"].(string); ok && m != "" {
					return m
				}
			}
		}
	}
	text := strings.TrimSpace(string(body))
	if text == "" {
		return status
	}
	if len(text) > 300 {
		text = text[:300]
	}
	return text
}

// StatusCode возвращает HTTP-статус из ConnectionError, если он есть.
func StatusCode(err error) int {
	var ce *ConnectionError
	if errors.As(err, &ce) {
		return ce.StatusCode
	}
	return 0
}

// Chunk делит идентификаторы на пачки не больше size.
func Chunk(ids []string, size int) [][]string {
	if size <= 0 {
		size = len(ids)
	}
	var out [][]string
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		out = append(out, ids[start:end])
	}
	return out
}

// Ping: типовая реализация TestConnection: замер времени ответа на лёгкий запрос.
func (c *BaseClient) Ping(ctx context.Context, call func(ctx context.Context) error) (ConnectionResult, error) {
	start := time.Now()
	err := call(ctx)
	elapsed := time.Since(start)
	if err != nil {
		return ConnectionResult{Success: false, Message: err.Error(), ResponseTime: elapsed}, err
	}
	return ConnectionResult{Success: true, Message: fmt.Sprintf("%s connection ok", c.adapter), ResponseTime: elapsed}, nil
}
