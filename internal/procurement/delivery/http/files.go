package http

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/tair/plantops/internal/procurement/domain"
	"github.com/tair/plantops/internal/procurement/usecase/command"
	"github.com/tair/plantops/pkg/apperr"
	"github.com/tair/plantops/pkg/httputil"
	"github.com/tair/plantops/pkg/logger"
)

// MaxUploadSize caps a single attachment upload
const MaxUploadSize = 25 << 20

var entityTypes = map[string]string{
	"quotes": domain.EntityQuoteRequest,
	"orders": domain.EntityPurchaseOrder,
}

// UploadAttachment handles POST /api/{quotes|orders}/{id}/attachments
func (h *ProcurementHandler) UploadAttachment(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := target(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize+1<<20)
	if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
		httputil.RespondError(w, r, apperr.Validation("invalid upload: %v", err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.RespondError(w, r, apperr.Validation("form field file is required"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, MaxUploadSize+1))
	if err != nil {
		httputil.RespondError(w, r, fmt.Errorf("failed to read upload: %w", err))
		return
	}
	if len(data) > MaxUploadSize {
		httputil.RespondError(w, r, apperr.Validation("file exceeds %d bytes", MaxUploadSize))
		return
	}

	attachment, err := h.commands.Attach.Handle(r.Context(), actor, command.AttachCommand{
		EntityType:  entityTypes[mux.Vars(r)["entity"]],
		EntityID:    id,
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Description: r.FormValue("description"),
		Data:        data,
	})
	if err != nil {
		httputil.RespondError(w, r, err)
		return
	}
	httputil.RespondOK(w, http.StatusCreated, "Attachment uploaded", attachment)
}

// ListAttachments handles GET /api/{quotes|orders}/{id}/attachments
func (h *ProcurementHandler) ListAttachments(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := target(w, r)
	if !ok {
		return
	}

	list, err := h.queries.Attachments.List(r.Context(), actor, entityTypes[mux.Vars(r)["entity"]], id)
	if err != nil {
		httputil.RespondError(w, r, err)
		return
	}
	httputil.RespondOK(w, http.StatusOK, "", list)
}

// DownloadAttachment handles GET /api/attachments/{id}
func (h *ProcurementHandler) DownloadAttachment(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := target(w, r)
	if !ok {
		return
	}

	attachment, data, err := h.queries.Attachments.Download(r.Context(), actor, id)
	if err != nil {
		httputil.RespondError(w, r, err)
		return
	}
	writeFile(w, r, attachment.FileName, attachment.ContentType, data)
}

// ExportQuote handles GET /api/quotes/{id}/export
func (h *ProcurementHandler) ExportQuote(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := target(w, r)
	if !ok {
		return
	}

	doc, err := h.queries.Export.Quote(r.Context(), actor, id)
	if err != nil {
		httputil.RespondError(w, r, err)
		return
	}
	writeFile(w, r, doc.FileName, doc.ContentType, doc.Data)
}

// ExportOrder handles GET /api/orders/{id}/export
func (h *ProcurementHandler) ExportOrder(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := target(w, r)
	if !ok {
		return
	}

	doc, err := h.queries.Export.Order(r.Context(), actor, id)
	if err != nil {
		httputil.RespondError(w, r, err)
		return
	}
	writeFile(w, r, doc.FileName, doc.ContentType, doc.Data)
}

func writeFile(w http.ResponseWriter, r *http.Request, name, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		logger.Warn(r.Context()).Err(err).Str("file", name).Msg("Failed to write download")
	}
}
