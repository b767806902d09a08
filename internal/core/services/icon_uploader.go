package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/thomassicaud/teams-portal/internal/core/domain"
	"github.com/thomassicaud/teams-portal/internal/core/ports/driven"
	"github.com/thomassicaud/teams-portal/internal/imaging"
	"github.com/thomassicaud/teams-portal/internal/logger"
)

var allowedIconTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/gif":  true,
}

// IconUploader sets the team picture.
type IconUploader struct {
	gw       driven.TeamsGateway
	retrier  *Retrier
	maxBytes int64
	size     int
}

// NewIconUploader creates an icon uploader.
func NewIconUploader(gw driven.TeamsGateway, opts Options) *IconUploader {
	opts = opts.withDefaults()
	return &IconUploader{
		gw:       gw,
		retrier:  NewRetrier(opts.RetryAttempts, opts.RetryBaseDelay, opts.Sleep),
		maxBytes: opts.IconMaxBytes,
		size:     opts.IconSize,
	}
}

// Validate checks size and type without touching the network. It returns the
// normalised content type.
func (u *IconUploader) Validate(icon domain.Icon) (string, error) {
	if len(icon.Data) == 0 {
		return "", &domain.Error{Kind: domain.KindInvalidInput, Message: "no image provided", Err: domain.ErrInvalidInput}
	}
	if int64(len(icon.Data)) > u.maxBytes {
		return "", &domain.Error{
			Kind:       domain.KindPayloadTooLarge,
			StatusCode: http.StatusRequestEntityTooLarge,
			Message:    fmt.Sprintf("image is %d bytes, the limit is %d", len(icon.Data), u.maxBytes),
		}
	}

	ct := normaliseContentType(icon.ContentType)
	if ct == "" || ct == "application/octet-stream" {
		ct = normaliseContentType(http.DetectContentType(icon.Data))
	}
	if !allowedIconTypes[ct] {
		return "", &domain.Error{
			Kind:       domain.KindUnsupportedType,
			StatusCode: http.StatusUnsupportedMediaType,
			Message:    fmt.Sprintf("unsupported image type %q, use JPEG, PNG or GIF", ct),
		}
	}
	return ct, nil
}

// Upload validates the icon, checks the team exists, squares and resizes the
// picture and uploads it. When the picture cannot be decoded the original
// bytes are sent unchanged.
func (u *IconUploader) Upload(ctx context.Context, teamID string, icon domain.Icon) (*domain.IconResult, error) {
	ct, err := u.Validate(icon)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(teamID) == "" {
		return nil, &domain.Error{Kind: domain.KindInvalidInput, Message: "team id is required", Err: domain.ErrInvalidInput}
	}

	if err := u.ensureExists(ctx, teamID); err != nil {
		return nil, err
	}

	data, recoded := icon.Data, false
	if out, nerr := imaging.Normalise(icon.Data, u.size); nerr != nil {
		logger.Warn("icon: could not normalise picture for %s, uploading original: %v", teamID, nerr)
	} else {
		data, ct, recoded = out, imaging.PNGContentType, true
	}

	err = u.retrier.Do(ctx, "upload photo", func(ctx context.Context) error {
		return u.gw.UploadPhoto(ctx, teamID, data, ct)
	})
	if err != nil {
		return nil, uploadError(teamID, err)
	}

	logger.Info("icon: uploaded %d bytes (%s) to %s", len(data), ct, teamID)
	return &domain.IconResult{TeamID: teamID, ContentType: ct, Bytes: len(data), Recoded: recoded}, nil
}

// CheckAccess probes whether the caller can see the team, its group and its
// current photo. Probe failures are reported, not returned.
func (u *IconUploader) CheckAccess(ctx context.Context, teamID string) (*domain.IconAccessReport, error) {
	if strings.TrimSpace(teamID) == "" {
		return nil, &domain.Error{Kind: domain.KindInvalidInput, Message: "team id is required", Err: domain.ErrInvalidInput}
	}
	report := &domain.IconAccessReport{TeamID: teamID}

	if _, err := u.gw.GetTeam(ctx, teamID); err == nil {
		report.TeamFound = true
	} else {
		report.AccessError = err.Error()
	}
	if _, err := u.gw.GetGroup(ctx, teamID); err == nil {
		report.GroupFound = true
	} else if report.AccessError == "" {
		report.AccessError = err.Error()
	}

	photo, err := u.gw.GetPhoto(ctx, teamID)
	if err != nil {
		report.PhotoError = err.Error()
	} else {
		report.Photo = photo
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

func (u *IconUploader) ensureExists(ctx context.Context, teamID string) error {
	_, err := u.gw.GetTeam(ctx, teamID)
	if err == nil {
		return nil
	}
	if _, gerr := u.gw.GetGroup(ctx, teamID); gerr == nil {
		return nil
	}
	if domain.IsKind(err, domain.KindNotFound) {
		return &domain.Error{
			Kind:       domain.KindNotFound,
			StatusCode: http.StatusNotFound,
			Message:    fmt.Sprintf("team %s was not found or is not provisioned yet", teamID),
			Err:        err,
		}
	}
	return err
}

// uploadError rewrites Graph failures into messages a user can act on.
func uploadError(teamID string, err error) error {
	derr, ok := domain.AsError(err)
	if !ok {
		return fmt.Errorf("upload picture for %s: %w", teamID, err)
	}
	out := *derr
	out.Err = err
	switch derr.Kind {
	case domain.KindNotFound:
		out.Message = "the team is not fully provisioned yet, retry in a few minutes"
	case domain.KindPermissionDenied:
		out.Message = "you are not allowed to change this team's picture, only owners can"
	case domain.KindPayloadTooLarge:
		out.Message = "the picture is too large for Microsoft Graph, use an image under 4 MB"
	default:
		out.Message = fmt.Sprintf("could not upload the team picture: %s", derr.Message)
	}
	return &out
}

func normaliseContentType(ct string) string {
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}
