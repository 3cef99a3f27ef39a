package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/plea-submit/internal/apperrors"
	"github.com/example/plea-submit/internal/attachment"
	"github.com/example/plea-submit/internal/config"
	"github.com/example/plea-submit/internal/logger"
	"github.com/example/plea-submit/internal/models"
	"github.com/example/plea-submit/internal/providers/factory"
	"github.com/example/plea-submit/internal/validator"
	"github.com/example/plea-submit/internal/workflow"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Load(args)
	if err != nil {
		if config.IsHelp(err) {
			return 0
		}
		return fail(stderr, "config load", err)
	}

	baseLogger, err := logger.New(cfg.App.Env, cfg.App.LogLevel)
	if err != nil {
		return fail(stderr, "logger init", err)
	}
	log := baseLogger.With().Str("service", "plea-submit").Logger()

	provider, err := factory.Plea(cfg, logger.Component(log, "plea-provider"))
	if err != nil {
		return fail(stderr, "provider init", err)
	}

	session, err := workflow.NewSession(workflow.Dependencies{
		Provider:  provider,
		Validator: validator.New(logger.Component(log, "validator")),
		Observer: workflow.ObserverFunc(func(event models.StateEvent) {
			log.Debug().
				Str("attempt_id", event.AttemptID).
				Str("state", string(event.State)).
				Str("error", event.Error).
				Msg("state changed")
		}),
		Logger: log,
	})
	if err != nil {
		return fail(stderr, "session init", err)
	}
	defer session.Close()

	var att *attachment.Attachment
	var loadErr error
	if cfg.Submission.FilePath != "" {
		att, loadErr = attachment.Load(cfg.Submission.FilePath)
	}
	session.SetForm(models.Form{
		OpenID:         cfg.Submission.OpenID,
		ComplaintPhone: cfg.Submission.ComplaintPhone,
		UserPhone:      cfg.Submission.UserPhone,
		CompanyID:      cfg.Submission.CompanyID,
		CompanyName:    cfg.Submission.CompanyName,
		PleaReason:     cfg.Submission.PleaReason,
		FilePath:       cfg.Submission.FilePath,
	}, att)

	if cfg.PreCheck {
		if err := session.PreCheck(ctx, cfg.Submission.ComplaintPhone); err != nil {
			return fail(stderr, "pre-check", err)
		}
		log.Info().Msg("complaint phone is flagged, submitting")
	}

	result, err := session.Submit(ctx)
	if err != nil {
		var ve *apperrors.ValidationError
		if loadErr != nil && errors.As(err, &ve) && ve.Check == validator.CheckAttachment {
			err = apperrors.NewValidationCause(validator.CheckAttachment, loadErr)
		}
		return fail(stderr, "submit", err)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fail(stderr, "encode result", err)
	}
	fmt.Fprintln(stdout, string(out))
	if result.UploadErr != "" {
		log.Warn().Str("filename", result.Filename).Msg("plea accepted but the file upload failed")
	}
	return 0
}

func fail(stderr io.Writer, stage string, err error) int {
	kind := apperrors.Kind(err)
	if kind == "" || kind == "unknown" {
		fmt.Fprintf(stderr, "plea-submit: %s failed: %v\n", stage, err)
	} else {
		fmt.Fprintf(stderr, "plea-submit: %s failed (%s): %v\n", stage, kind, err)
	}
	return 1
}
