package public

import (
	"errors"
	"strconv"

	"github.com/refermark/refermark/internal/http/response"
	"github.com/refermark/refermark/internal/service"

	"github.com/gin-gonic/gin"
)

// CustomerCreateRequest 录入客户请求
type CustomerCreateRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required"`
	Phone string `json:"phone"`
}

// CustomerCreate 手工录入客户
func (h *Handler) CustomerCreate(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	var req CustomerCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	customer, err := h.CustomerService.Create(userID, service.CustomerInput{
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
	})
	if err != nil {
		respondWithMappedError(c, err, customerCreateErrorRules, response.CodeInternal, "error.save_failed")
		return
	}
	response.Success(c, customer)
}

// CustomerGet 获取单个客户
func (h *Handler) CustomerGet(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	customer, serr := h.CustomerService.GetByID(userID, uint(id))
	if serr != nil {
		if errors.Is(serr, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "error.customer_not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.fetch_failed", serr)
		return
	}
	response.Success(c, customer)
}

// CustomerDelete 删除客户
func (h *Handler) CustomerDelete(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	if serr := h.CustomerService.Delete(userID, uint(id)); serr != nil {
		if errors.Is(serr, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "error.customer_not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.save_failed", serr)
		return
	}
	response.Success(c, gin.H{"deleted": true})
}

// CustomerCampaigns 按邮箱查询客户可参与的进行中活动
func (h *Handler) CustomerCampaigns(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	email := c.Query("email")
	items, err := h.CustomerService.ActiveCampaigns(userID, email)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrCustomerInvalid):
			respondError(c, response.CodeBadRequest, "error.customer_invalid", nil)
		case errors.Is(err, service.ErrNotFound):
			respondError(c, response.CodeNotFound, "error.customer_not_found", nil)
		default:
			respondError(c, response.CodeInternal, "error.fetch_failed", err)
		}
		return
	}
	response.Success(c, gin.H{"campaigns": items})
}
