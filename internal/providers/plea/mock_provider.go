package plea

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/plea-submit/internal/apperrors"
	"github.com/example/plea-submit/internal/attachment"
	"github.com/example/plea-submit/internal/models"
)

// Scenario enumerates the mock behaviours supported by the plea provider.
type Scenario string

const (
	// ScenarioSuccess accepts every call.
	ScenarioSuccess Scenario = "success"
	// ScenarioReject answers addPlea with code 500.
	ScenarioReject Scenario = "reject"
	// ScenarioUploadFail accepts the metadata but fails the upload.
	ScenarioUploadFail Scenario = "upload_fail"
	// ScenarioTimeout fails every call once its timeout or the context ends.
	ScenarioTimeout Scenario = "timeout"
	// ScenarioNotFlagged reports the queried number as not flagged.
	ScenarioNotFlagged Scenario = "not_flagged"
)

// RejectMessage is the msg returned by ScenarioReject.
const RejectMessage = "mock: plea rejected"

// ParseScenario maps a name onto a known scenario.
func ParseScenario(name string) (Scenario, error) {
	s := Scenario(name)
	switch s {
	case ScenarioSuccess, ScenarioReject, ScenarioUploadFail, ScenarioTimeout, ScenarioNotFlagged:
		return s, nil
	case "":
		return ScenarioSuccess, nil
	default:
		return "", fmt.Errorf("plea mock: unknown scenario %q", name)
	}
}

// MockOption customises the mock provider.
type MockOption func(*MockProvider)

// WithScenario sets the scenario every call follows.
func WithScenario(s Scenario) MockOption {
	return func(p *MockProvider) {
		p.scenario = s
	}
}

// WithLatency configures the artificial latency injected before answering.
func WithLatency(d time.Duration) MockOption {
	return func(p *MockProvider) {
		if d < 0 {
			d = 0
		}
		p.latency = d
	}
}

// WithTimeout sets how long ScenarioTimeout blocks before failing.
func WithTimeout(d time.Duration) MockOption {
	return func(p *MockProvider) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// Calls records what the mock has received.
type Calls struct {
	QueryPhone []string
	AddPlea    []models.ComplaintRequest
	Upload     []string
}

// MockProvider is a deterministic plea provider for dry runs and tests.
type MockProvider struct {
	logger   zerolog.Logger
	scenario Scenario
	latency  time.Duration
	timeout  time.Duration

	mu    sync.Mutex
	calls Calls
}

// NewMockProvider constructs a mock plea provider.
func NewMockProvider(logger zerolog.Logger, opts ...MockOption) *MockProvider {
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}
	p := &MockProvider{
		logger:   logger,
		scenario: ScenarioSuccess,
		timeout:  2 * time.Second,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Calls returns a copy of the recorded calls.
func (p *MockProvider) Calls() Calls {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Calls{
		QueryPhone: append([]string(nil), p.calls.QueryPhone...),
		AddPlea:    append([]models.ComplaintRequest(nil), p.calls.AddPlea...),
		Upload:     append([]string(nil), p.calls.Upload...),
	}
}

// QueryPhone answers the pre-check.
func (p *MockProvider) QueryPhone(ctx context.Context, cipherPhone string) (*models.APIResponse, error) {
	p.mu.Lock()
	p.calls.QueryPhone = append(p.calls.QueryPhone, cipherPhone)
	p.mu.Unlock()

	if err := p.wait(ctx); err != nil {
		return nil, err
	}
	data := `"1"`
	if p.scenario == ScenarioNotFlagged {
		data = `"0"`
	}
	return &models.APIResponse{Code: models.CodeOK, Data: json.RawMessage(data)}, nil
}

// AddPlea answers the metadata submission.
func (p *MockProvider) AddPlea(ctx context.Context, req *models.ComplaintRequest) (*models.APIResponse, error) {
	if req == nil {
		return nil, errors.New("plea mock: complaint is required")
	}
	p.mu.Lock()
	p.calls.AddPlea = append(p.calls.AddPlea, *req)
	p.mu.Unlock()

	if err := p.wait(ctx); err != nil {
		return nil, err
	}
	if p.scenario == ScenarioReject {
		return &models.APIResponse{Code: http.StatusInternalServerError, Msg: RejectMessage}, nil
	}
	p.logger.Debug().Str("filename", req.Filename).Msg("mock plea accepted")
	return &models.APIResponse{Code: models.CodeOK, Msg: "success"}, nil
}

// Upload answers the file upload.
func (p *MockProvider) Upload(ctx context.Context, filename string, att *attachment.Attachment) (*models.UploadResponse, error) {
	if att == nil {
		return nil, errors.New("plea mock: attachment is required")
	}
	p.mu.Lock()
	p.calls.Upload = append(p.calls.Upload, filename)
	p.mu.Unlock()

	if err := p.wait(ctx); err != nil {
		return nil, err
	}
	if p.scenario == ScenarioUploadFail {
		resp := &models.UploadResponse{StatusCode: http.StatusBadGateway, Text: "mock: upload failed"}
		return resp, apperrors.WrapNetwork(fmt.Errorf("upload: http %d", resp.StatusCode))
	}
	return &models.UploadResponse{
		StatusCode: http.StatusOK,
		JSON:       json.RawMessage(`{"code":200,"msg":"success"}`),
	}, nil
}

func (p *MockProvider) wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return apperrors.WrapNetwork(ctx.Err())
	default:
	}

	if p.scenario == ScenarioTimeout {
		timer := time.NewTimer(p.timeout)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return apperrors.WrapNetwork(ctx.Err())
		case <-timer.C:
			return apperrors.WrapNetwork(context.DeadlineExceeded)
		}
	}

	if p.latency > 0 {
		timer := time.NewTimer(p.latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return apperrors.WrapNetwork(ctx.Err())
		case <-timer.C:
		}
	}
	return nil
}
