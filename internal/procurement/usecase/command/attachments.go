package command

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/tair/plantops/internal/integration/attachments"
	"github.com/tair/plantops/internal/organization/access"
	orgdomain "github.com/tair/plantops/internal/organization/domain"
	"github.com/tair/plantops/internal/procurement/domain"
	"github.com/tair/plantops/pkg/apperr"
	"github.com/tair/plantops/pkg/logger"
)

// AttachCommand represents an uploaded file for a quote request or order
type AttachCommand struct {
	EntityType  string
	EntityID    uint
	FileName    string
	ContentType string
	Description string
	Data        []byte
}

// AttachHandler stores a file and records its metadata
type AttachHandler struct {
	d *Dependencies
}

// NewAttachHandler creates a new attach handler
func NewAttachHandler(d *Dependencies) *AttachHandler {
	return &AttachHandler{d: d}
}

// Handle executes the attach command
func (h *AttachHandler) Handle(ctx context.Context, actor *orgdomain.Employee, cmd AttachCommand) (*domain.Attachment, error) {
	if err := h.d.Guard.Entity(ctx, actor, cmd.EntityType, cmd.EntityID); err != nil {
		return nil, err
	}
	permission := orgdomain.PermissionCreateOrders
	if cmd.EntityType == domain.EntityQuoteRequest {
		permission = orgdomain.PermissionManageQuotes
	}
	if err := access.Require(actor, permission); err != nil {
		return nil, err
	}

	name := path.Base(strings.ReplaceAll(strings.TrimSpace(cmd.FileName), "\\", "/"))
	if name == "." || name == "/" {
		return nil, apperr.Validation("file name is required")
	}
	if len(cmd.Data) == 0 {
		return nil, apperr.Validation("file is empty")
	}
	contentType := cmd.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := attachments.ObjectKey(cmd.EntityType, cmd.EntityID, name)
	if err := h.d.Store.Put(ctx, key, cmd.Data, contentType); err != nil {
		return nil, fmt.Errorf("failed to store attachment: %w", err)
	}

	attachment := &domain.Attachment{
		EntityType:   cmd.EntityType,
		EntityID:     cmd.EntityID,
		FileName:     name,
		StorageKey:   key,
		ContentType:  contentType,
		Size:         int64(len(cmd.Data)),
		Description:  strings.TrimSpace(cmd.Description),
		UploadedByID: actor.ID,
	}
	if err := h.d.Repo.CreateAttachment(ctx, attachment); err != nil {
		// The stored object stays behind without metadata.
		logger.Error(ctx).Err(err).Str("storage_key", key).Msg("Attachment stored but metadata was not saved")
		return nil, err
	}

	logger.Info(ctx).
		Uint("attachment_id", attachment.ID).
		Str("entity_type", attachment.EntityType).
		Uint("entity_id", attachment.EntityID).
		Int64("size", attachment.Size).
		Msg("Attachment uploaded")
	return attachment, nil
}
