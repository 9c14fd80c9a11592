package http

// CreatePart godoc
// @Summary Create part
// @Description Create a catalog part. The department ACL defaults to the caller's primary department.
// @Tags Parts
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body object{part_number=string,name=string,unit=string,minimum_stock=string,price=string,department_ids=[]int,initial_quantity=string} true "Part data"
// @Success 201 {object} object{success=bool,message=string,data=object}
// @Failure 400 {object} object{success=bool,error=string}
// @Failure 403 {object} object{success=bool,error=string}
// @Router /api/parts [post]
func (h *InventoryHandler) CreatePartDoc() {}

// ListParts godoc
// @Summary List visible parts
// @Tags Parts
// @Security BearerAuth
// @Produce json
// @Param search query string false "Part number or name"
// @Param limit query int false "Limit"
// @Param offset query int false "Offset"
// @Success 200 {object} object{success=bool,data=array}
// @Router /api/parts [get]
func (h *InventoryHandler) ListPartsDoc() {}

// GetPart godoc
// @Summary Get part
// @Tags Parts
// @Security BearerAuth
// @Produce json
// @Param id path int true "Part ID"
// @Success 200 {object} object{success=bool,data=object}
// @Failure 404 {object} object{success=bool,error=string}
// @Router /api/parts/{id} [get]
func (h *InventoryHandler) GetPartDoc() {}

// SetSuccessor godoc
// @Summary Set or clear the successor part
// @Tags Parts
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Part ID"
// @Param request body object{successor_id=int} true "Successor"
// @Success 200 {object} object{success=bool,data=object}
// @Failure 400 {object} object{success=bool,error=string}
// @Failure 404 {object} object{success=bool,error=string}
// @Router /api/parts/{id}/successor [put]
func (h *InventoryHandler) SetSuccessorDoc() {}

// SetDepartments godoc
// @Summary Replace the department ACL of a part
// @Tags Parts
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Part ID"
// @Param request body object{department_ids=[]int} true "Departments"
// @Success 200 {object} object{success=bool,data=object}
// @Router /api/parts/{id}/departments [put]
func (h *InventoryHandler) SetDepartmentsDoc() {}

// BookStock godoc
// @Summary Post a stock movement
// @Description Inbound and outbound quantities must be positive; a recount sets the absolute stock.
// @Tags Ledger
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Part ID"
// @Param request body object{kind=string,quantity=string,reference=string,cost_center=string} true "Posting"
// @Success 201 {object} object{success=bool,data=object{movement=object,part=object,below_minimum=bool}}
// @Failure 400 {object} object{success=bool,error=string}
// @Failure 404 {object} object{success=bool,error=string}
// @Failure 422 {object} object{success=bool,error=string}
// @Router /api/parts/{id}/movements [post]
func (h *InventoryHandler) BookStockDoc() {}

// ListMovements godoc
// @Summary List the movements of a part in replay order
// @Tags Ledger
// @Security BearerAuth
// @Produce json
// @Param id path int true "Part ID"
// @Success 200 {object} object{success=bool,data=array}
// @Router /api/parts/{id}/movements [get]
func (h *InventoryHandler) ListMovementsDoc() {}

// Replay godoc
// @Summary Replay the journal of a part
// @Tags Ledger
// @Security BearerAuth
// @Produce json
// @Param id path int true "Part ID"
// @Success 200 {object} object{success=bool,data=object{part_id=int,projected=string,replayed=string,consistent=bool}}
// @Router /api/parts/{id}/replay [get]
func (h *InventoryHandler) ReplayDoc() {}

// ReverseMovement godoc
// @Summary Reverse a movement
// @Tags Ledger
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "Movement ID"
// @Param request body object{reason=string} true "Reason"
// @Success 201 {object} object{success=bool,data=object}
// @Failure 409 {object} object{success=bool,error=string}
// @Router /api/movements/{id}/reversal [post]
func (h *InventoryHandler) ReverseMovementDoc() {}

// Audit godoc
// @Summary Replay every part and list projection drift (Admin only)
// @Tags Ledger
// @Security BearerAuth
// @Produce json
// @Success 200 {object} object{success=bool,data=array}
// @Failure 403 {object} object{success=bool,error=string}
// @Router /api/ledger/audit [get]
func (h *InventoryHandler) AuditDoc() {}
