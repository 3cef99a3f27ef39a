package plea

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/plea-submit/internal/apperrors"
	"github.com/example/plea-submit/internal/attachment"
	"github.com/example/plea-submit/internal/models"
)

func TestMockProviderSuccess(t *testing.T) {
	provider := NewMockProvider(zerolog.Nop())

	resp, err := provider.AddPlea(context.Background(), &models.ComplaintRequest{Filename: "a.jpg"})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if !resp.OK() {
		t.Fatalf("unexpected response: %+v", resp)
	}

	upload, err := provider.Upload(context.Background(), "a.jpg", attachment.New("a.png", pngHeader))
	if err != nil {
		t.Fatalf("expected upload success, got %v", err)
	}
	if upload.StatusCode != 200 {
		t.Fatalf("unexpected upload response: %+v", upload)
	}

	calls := provider.Calls()
	if len(calls.AddPlea) != 1 || calls.AddPlea[0].Filename != "a.jpg" {
		t.Fatalf("unexpected recorded addPlea calls: %+v", calls.AddPlea)
	}
	if len(calls.Upload) != 1 || calls.Upload[0] != "a.jpg" {
		t.Fatalf("unexpected recorded upload calls: %+v", calls.Upload)
	}
}

func TestMockProviderReject(t *testing.T) {
	provider := NewMockProvider(zerolog.Nop(), WithScenario(ScenarioReject))

	resp, err := provider.AddPlea(context.Background(), &models.ComplaintRequest{})
	if err != nil {
		t.Fatalf("reject is a well-formed response, got %v", err)
	}
	if resp.Code != 500 || resp.Msg != RejectMessage {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestMockProviderUploadFail(t *testing.T) {
	provider := NewMockProvider(zerolog.Nop(), WithScenario(ScenarioUploadFail))

	if _, err := provider.AddPlea(context.Background(), &models.ComplaintRequest{}); err != nil {
		t.Fatalf("expected metadata success, got %v", err)
	}
	resp, err := provider.Upload(context.Background(), "a.jpg", attachment.New("a.png", pngHeader))
	if !errors.Is(err, apperrors.ErrNetwork) {
		t.Fatalf("expected network error, got %v", err)
	}
	if resp == nil || resp.StatusCode != 502 {
		t.Fatalf("expected raw failure response, got %+v", resp)
	}
}

func TestMockProviderTimeout(t *testing.T) {
	provider := NewMockProvider(zerolog.Nop(), WithScenario(ScenarioTimeout), WithTimeout(10*time.Millisecond))

	_, err := provider.AddPlea(context.Background(), &models.ComplaintRequest{})
	if !errors.Is(err, apperrors.ErrNetwork) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected timeout network error, got %v", err)
	}
}

func TestMockProviderHonoursCancellation(t *testing.T) {
	provider := NewMockProvider(zerolog.Nop(), WithLatency(time.Second))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := provider.QueryPhone(ctx, "cipher"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}

func TestMockProviderQueryPhone(t *testing.T) {
	flagged := NewMockProvider(zerolog.Nop())
	resp, err := flagged.QueryPhone(context.Background(), "cipher")
	if err != nil || resp.DataString() != "1" {
		t.Fatalf("expected flagged number, got %+v %v", resp, err)
	}

	notFlagged := NewMockProvider(zerolog.Nop(), WithScenario(ScenarioNotFlagged))
	resp, err = notFlagged.QueryPhone(context.Background(), "cipher")
	if err != nil || resp.DataString() != "0" {
		t.Fatalf("expected unflagged number, got %+v %v", resp, err)
	}
	if got := notFlagged.Calls().QueryPhone; len(got) != 1 || got[0] != "cipher" {
		t.Fatalf("unexpected recorded queries: %v", got)
	}
}

func TestParseScenario(t *testing.T) {
	if s, err := ParseScenario(""); err != nil || s != ScenarioSuccess {
		t.Fatalf("expected default success scenario, got %q %v", s, err)
	}
	if s, err := ParseScenario("upload_fail"); err != nil || s != ScenarioUploadFail {
		t.Fatalf("unexpected scenario %q %v", s, err)
	}
	if _, err := ParseScenario("explode"); err == nil {
		t.Fatalf("expected unknown scenario error")
	}
}
