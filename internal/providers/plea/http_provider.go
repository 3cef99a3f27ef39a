package plea

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/plea-submit/internal/apperrors"
	"github.com/example/plea-submit/internal/attachment"
	"github.com/example/plea-submit/internal/config"
	"github.com/example/plea-submit/internal/models"
)

const (
	headerOrigin  = "https://www.securityeb.com"
	headerReferer = "https://www.securityeb.com/?state=ebupt"
	headerAccept  = "application/json, text/plain, */*"

	acceptLanguageAddPlea = "zh-CN,zh;q=0.9,fr;q=0.8,de;q=0.7,en;q=0.6"
	acceptLanguageUpload  = "zh-CN,zh-Hans;q=0.9"

	defaultBodyLimit = 64 * 1024
)

// HTTPClient abstracts the http.Client Do method for easier testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPOption customises the behaviour of the HTTP provider.
type HTTPOption func(*HTTPProvider)

// WithHTTPClient overrides the HTTP client used to talk to the service.
func WithHTTPClient(client HTTPClient) HTTPOption {
	return func(p *HTTPProvider) {
		if client != nil {
			p.httpClient = client
		}
	}
}

// WithBodyLimit adjusts how many bytes are read from a response body.
func WithBodyLimit(limit int64) HTTPOption {
	return func(p *HTTPProvider) {
		if limit > 0 {
			p.maxBodyBytes = limit
		}
	}
}

// HTTPProvider implements Provider against the live service.
type HTTPProvider struct {
	logger       zerolog.Logger
	cfg          config.ServiceConfig
	httpClient   HTTPClient
	maxBodyBytes int64
}

// NewHTTPProvider constructs an HTTP-backed plea provider. Zero timeouts and
// user agents fall back to the defaults.
func NewHTTPProvider(cfg config.ServiceConfig, logger zerolog.Logger, opts ...HTTPOption) (*HTTPProvider, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("plea http provider: base url is required")
	}
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}

	defaults := config.DefaultServiceConfig()
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.UserAgentAddPlea == "" {
		cfg.UserAgentAddPlea = defaults.UserAgentAddPlea
	}
	if cfg.UserAgentUpload == "" {
		cfg.UserAgentUpload = defaults.UserAgentUpload
	}
	if cfg.AddPleaTimeout <= 0 {
		cfg.AddPleaTimeout = defaults.AddPleaTimeout
	}
	if cfg.UploadTimeout <= 0 {
		cfg.UploadTimeout = defaults.UploadTimeout
	}
	if cfg.PreCheckTimeout <= 0 {
		cfg.PreCheckTimeout = defaults.PreCheckTimeout
	}

	provider := &HTTPProvider{
		logger:       logger,
		cfg:          cfg,
		httpClient:   &http.Client{},
		maxBodyBytes: defaultBodyLimit,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(provider)
		}
	}
	return provider, nil
}

// QueryPhone performs the pre-check lookup for an encrypted phone number.
func (p *HTTPProvider) QueryPhone(ctx context.Context, cipherPhone string) (*models.APIResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.PreCheckTimeout)
	defer cancel()

	endpoint := p.cfg.BaseURL + PathQueryPhone + "?" + url.Values{"phone": {cipherPhone}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("plea http provider: new request: %w", err)
	}
	req.Header.Set("User-Agent", p.cfg.UserAgentAddPlea)
	p.setCommonHeaders(req, acceptLanguageAddPlea)

	status, body, err := p.do(req, "query_phone")
	if err != nil {
		return nil, err
	}
	return decodeAPIResponse(status, body)
}

// AddPlea posts the complaint metadata as JSON.
func (p *HTTPProvider) AddPlea(ctx context.Context, complaint *models.ComplaintRequest) (*models.APIResponse, error) {
	if complaint == nil {
		return nil, errors.New("plea http provider: complaint is required")
	}
	payload, err := json.Marshal(complaint)
	if err != nil {
		return nil, fmt.Errorf("plea http provider: encode complaint: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.AddPleaTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+PathAddPlea, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("plea http provider: new request: %w", err)
	}
	req.Header.Set("User-Agent", p.cfg.UserAgentAddPlea)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")
	p.setCommonHeaders(req, acceptLanguageAddPlea)

	status, body, err := p.do(req, "add_plea")
	if err != nil {
		return nil, err
	}
	return decodeAPIResponse(status, body)
}

// Upload posts the attachment as multipart form data. On a non-2xx status
// both the raw response and an error are returned.
func (p *HTTPProvider) Upload(ctx context.Context, filename string, att *attachment.Attachment) (*models.UploadResponse, error) {
	if att == nil {
		return nil, errors.New("plea http provider: attachment is required")
	}
	body, contentType, err := encodeUpload(filename, att)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.UploadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+PathUpload, body)
	if err != nil {
		return nil, fmt.Errorf("plea http provider: new request: %w", err)
	}
	req.Header.Set("User-Agent", p.cfg.UserAgentUpload)
	req.Header.Set("Content-Type", contentType)
	p.setCommonHeaders(req, acceptLanguageUpload)

	status, raw, err := p.send(req, "upload")
	if err != nil {
		return nil, err
	}
	resp := newUploadResponse(status, raw)
	if !isSuccess(status) {
		return resp, apperrors.WrapNetwork(fmt.Errorf("upload: http %d", status))
	}
	return resp, nil
}

func (p *HTTPProvider) setCommonHeaders(req *http.Request, acceptLanguage string) {
	req.Header.Set("Accept", headerAccept)
	req.Header.Set("Accept-Language", acceptLanguage)
	req.Header.Set("Origin", headerOrigin)
	req.Header.Set("Referer", headerReferer)
}

// do sends req and fails on any non-2xx status.
func (p *HTTPProvider) do(req *http.Request, op string) (int, []byte, error) {
	status, body, err := p.send(req, op)
	if err != nil {
		return status, body, err
	}
	if !isSuccess(status) {
		return status, body, apperrors.WrapNetwork(fmt.Errorf("%s: http %d: %s", op, status, summarize(body, status)))
	}
	return status, body, nil
}

func (p *HTTPProvider) send(req *http.Request, op string) (int, []byte, error) {
	started := time.Now()
	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.logger.Warn().
			Err(err).
			Str("operation", op).
			Dur("elapsed", time.Since(started)).
			Msg("plea request failed")
		return 0, nil, apperrors.WrapNetwork(fmt.Errorf("%s: %w", op, err))
	}
	defer resp.Body.Close()

	body, err := p.readBody(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, apperrors.WrapNetwork(fmt.Errorf("%s: %w", op, err))
	}

	p.logger.Debug().
		Str("operation", op).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(started)).
		Msg("plea request completed")
	return resp.StatusCode, body, nil
}

func (p *HTTPProvider) readBody(rc io.ReadCloser) ([]byte, error) {
	if rc == nil {
		return nil, nil
	}
	limit := p.maxBodyBytes
	if limit <= 0 {
		limit = defaultBodyLimit
	}
	data, err := io.ReadAll(io.LimitReader(rc, limit))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return data, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func encodeUpload(filename string, att *attachment.Attachment) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(att.Name)))
	contentType := att.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)

	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("plea http provider: create file part: %w", err)
	}
	if _, err := part.Write(att.Data); err != nil {
		return nil, "", fmt.Errorf("plea http provider: write file part: %w", err)
	}
	if err := w.WriteField("filename", filename); err != nil {
		return nil, "", fmt.Errorf("plea http provider: write filename field: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("plea http provider: close multipart: %w", err)
	}
	return buf, w.FormDataContentType(), nil
}

func decodeAPIResponse(status int, body []byte) (*models.APIResponse, error) {
	var resp models.APIResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, apperrors.WrapNetwork(fmt.Errorf("decode response (http %d): %w", status, err))
	}
	return &resp, nil
}

func newUploadResponse(status int, body []byte) *models.UploadResponse {
	resp := &models.UploadResponse{StatusCode: status}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && json.Valid(trimmed) {
		resp.JSON = json.RawMessage(trimmed)
		return resp
	}
	resp.Text = string(body)
	return resp
}

func summarize(body []byte, status int) string {
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(status)
	}
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
