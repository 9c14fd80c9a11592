package http

// CreateQuote godoc
// @Summary Create quote request
// @Description Start a quote request for a supplier. Lines referencing a part take their defaults from the catalog.
// @Tags Quotes
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body object{supplier_id=int,note=string,lines=[]object} true "Quote request"
// @Success 201 {object} object{success=bool,message=string,data=object}
// @Failure 400 {object} object{success=bool,error=string}
// @Failure 403 {object} object{success=bool,error=string}
// @Router /api/quotes [post]
func (h *ProcurementHandler) CreateQuoteDoc() {}

// ListQuotes godoc
// @Summary List visible quote requests
// @Tags Quotes
// @Security BearerAuth
// @Produce json
// @Param status query string false "Status filter"
// @Param limit query int false "Limit"
// @Param offset query int false "Offset"
// @Success 200 {object} object{success=bool,data=array}
// @Router /api/quotes [get]
func (h *ProcurementHandler) ListQuotesDoc() {}

// GetQuote godoc
// @Summary Get quote request
// @Tags Quotes
// @Security BearerAuth
// @Produce json
// @Param id path int true "Quote request ID"
// @Success 200 {object} object{success=bool,data=object}
// @Failure 404 {object} object{success=bool,error=string}
// @Router /api/quotes/{id} [get]
func (h *ProcurementHandler) GetQuoteDoc() {}

// SetQuotedPrice godoc
// @Summary Record a supplier price on a quote line
// @Tags Quotes
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Quote request ID"
// @Param lineID path int true "Line ID"
// @Param request body object{price=string,currency=string} true "Quoted price"
// @Success 200 {object} object{success=bool,data=object}
// @Failure 409 {object} object{success=bool,error=string}
// @Router /api/quotes/{id}/lines/{lineID}/price [put]
func (h *ProcurementHandler) SetQuotedPriceDoc() {}

// SendQuote godoc
// @Summary Mark a quote request as sent
// @Tags Quotes
// @Security BearerAuth
// @Produce json
// @Param id path int true "Quote request ID"
// @Success 200 {object} object{success=bool,data=object}
// @Failure 409 {object} object{success=bool,error=string}
// @Router /api/quotes/{id}/send [post]
func (h *ProcurementHandler) SendQuoteDoc() {}

// AcceptQuotedPrices godoc
// @Summary Copy quoted prices into the part catalog
// @Tags Quotes
// @Security BearerAuth
// @Produce json
// @Param id path int true "Quote request ID"
// @Success 200 {object} object{success=bool,data=object}
// @Failure 400 {object} object{success=bool,error=string}
// @Failure 409 {object} object{success=bool,error=string}
// @Router /api/quotes/{id}/accept-prices [post]
func (h *ProcurementHandler) AcceptQuotedPricesDoc() {}

// CreateOrderFromQuote godoc
// @Summary Create a purchase order from a received quote
// @Description Copies the quote lines with their quoted prices and closes the quote request.
// @Tags Quotes
// @Security BearerAuth
// @Produce json
// @Param id path int true "Quote request ID"
// @Success 201 {object} object{success=bool,data=object}
// @Failure 409 {object} object{success=bool,error=string}
// @Router /api/quotes/{id}/purchase-order [post]
func (h *ProcurementHandler) CreateOrderFromQuoteDoc() {}

// CreateOrder godoc
// @Summary Create purchase order
// @Tags Orders
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body object{supplier_id=int,order_number=string,department_ids=[]int,lines=[]object} true "Purchase order"
// @Success 201 {object} object{success=bool,message=string,data=object}
// @Failure 400 {object} object{success=bool,error=string}
// @Failure 403 {object} object{success=bool,error=string}
// @Router /api/orders [post]
func (h *ProcurementHandler) CreateOrderDoc() {}

// ListOrders godoc
// @Summary List visible purchase orders
// @Tags Orders
// @Security BearerAuth
// @Produce json
// @Param status query string false "Status filter"
// @Param limit query int false "Limit"
// @Param offset query int false "Offset"
// @Success 200 {object} object{success=bool,data=array}
// @Router /api/orders [get]
func (h *ProcurementHandler) ListOrdersDoc() {}

// GetOrder godoc
// @Summary Get purchase order
// @Tags Orders
// @Security BearerAuth
// @Produce json
// @Param id path int true "Purchase order ID"
// @Success 200 {object} object{success=bool,data=object}
// @Failure 404 {object} object{success=bool,error=string}
// @Router /api/orders/{id} [get]
func (h *ProcurementHandler) GetOrderDoc() {}

// ApproveOrder godoc
// @Summary Approve a submitted purchase order
// @Tags Orders
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Purchase order ID"
// @Param request body object{signature=string} true "Base64 signature image"
// @Success 200 {object} object{success=bool,data=object}
// @Failure 403 {object} object{success=bool,error=string}
// @Failure 409 {object} object{success=bool,error=string}
// @Router /api/orders/{id}/approve [post]
func (h *ProcurementHandler) ApproveOrderDoc() {}

// ReceiveGoods godoc
// @Summary Book a goods receipt against a purchase order
// @Description Validates the whole batch, posts inbound stock movements and advances the order status.
// @Tags Orders
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Purchase order ID"
// @Param request body object{delivery_note=string,lines=[]object{line_id=int,quantity=string}} true "Received quantities"
// @Success 201 {object} object{success=bool,data=object}
// @Failure 400 {object} object{success=bool,error=string}
// @Failure 409 {object} object{success=bool,error=string}
// @Router /api/orders/{id}/receipts [post]
func (h *ProcurementHandler) ReceiveGoodsDoc() {}

// UploadAttachment godoc
// @Summary Upload an attachment
// @Tags Attachments
// @Security BearerAuth
// @Accept multipart/form-data
// @Produce json
// @Param entity path string true "quotes or orders"
// @Param id path int true "Entity ID"
// @Param file formData file true "File"
// @Param description formData string false "Description"
// @Success 201 {object} object{success=bool,data=object}
// @Failure 400 {object} object{success=bool,error=string}
// @Router /api/{entity}/{id}/attachments [post]
func (h *ProcurementHandler) UploadAttachmentDoc() {}

// DownloadAttachment godoc
// @Summary Download an attachment
// @Tags Attachments
// @Security BearerAuth
// @Produce octet-stream
// @Param id path int true "Attachment ID"
// @Success 200 {file} file
// @Failure 404 {object} object{success=bool,error=string}
// @Router /api/attachments/{id} [get]
func (h *ProcurementHandler) DownloadAttachmentDoc() {}

// ExportOrder godoc
// @Summary Export a purchase order as a spreadsheet
// @Tags Orders
// @Security BearerAuth
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path int true "Purchase order ID"
// @Success 200 {file} file
// @Router /api/orders/{id}/export [get]
func (h *ProcurementHandler) ExportOrderDoc() {}
