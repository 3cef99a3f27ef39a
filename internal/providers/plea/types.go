package plea

import (
	"context"

	"github.com/example/plea-submit/internal/attachment"
	"github.com/example/plea-submit/internal/models"
)

// Service paths relative to the configured base URL.
const (
	PathQueryPhone = "/sysblack/querySysphone"
	PathAddPlea    = "/pleaphone/addPlea"
	PathUpload     = "/pleaphone/upload"
)

// Provider talks to the plea service. Implementations never retry.
type Provider interface {
	// QueryPhone asks whether an encrypted phone number is flagged.
	QueryPhone(ctx context.Context, cipherPhone string) (*models.APIResponse, error)
	// AddPlea posts the complaint metadata.
	AddPlea(ctx context.Context, req *models.ComplaintRequest) (*models.APIResponse, error)
	// Upload sends the attachment bound to filename. The response is returned
	// as received.
	Upload(ctx context.Context, filename string, att *attachment.Attachment) (*models.UploadResponse, error)
}
