package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/formpilot/internal/form"
	"github.com/xxxsen/formpilot/internal/model"
	"github.com/xxxsen/formpilot/internal/pkg/errcode"
	"github.com/xxxsen/formpilot/internal/pkg/response"
	"github.com/xxxsen/formpilot/internal/service"
)

type FormHandler struct {
	ingest    *service.IngestService
	retrieval *service.RetrievalService
	deletes   *service.DeleteService
	suggest   *service.SuggestService
	pilot     *service.PilotService
}

func NewFormHandler(
	ingest *service.IngestService,
	retrieval *service.RetrievalService,
	deletes *service.DeleteService,
	suggest *service.SuggestService,
	pilot *service.PilotService,
) *FormHandler {
	return &FormHandler{
		ingest:    ingest,
		retrieval: retrieval,
		deletes:   deletes,
		suggest:   suggest,
		pilot:     pilot,
	}
}

type formRequest struct {
	Domain string    `json:"domain"`
	Form   *form.Map `json:"form"`
	Schema *form.Map `json:"schema"`
}

func (r formRequest) input() model.FormInput {
	return model.FormInput{Domain: r.Domain, Form: r.Form}
}

type deleteRequest struct {
	Property string   `json:"property"`
	Values   []string `json:"values"`
}

func (h *FormHandler) bindForm(c *gin.Context) (formRequest, bool) {
	var req formRequest
	if err := bindJSON(c, &req); err != nil || req.Form == nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return req, false
	}
	return req, true
}

func (h *FormHandler) Ingest(c *gin.Context) {
	req, ok := h.bindForm(c)
	if !ok {
		return
	}
	response.Success(c, h.ingest.Ingest(c.Request.Context(), req.Domain, req.Form))
}

func (h *FormHandler) Retrieve(c *gin.Context) {
	req, ok := h.bindForm(c)
	if !ok {
		return
	}
	forms, err := h.retrieval.Retrieve(c.Request.Context(), req.input())
	if err != nil {
		handleError(c, err)
		return
	}
	if forms == nil {
		forms = []model.FormInput{}
	}
	response.Success(c, gin.H{"forms": forms})
}

func (h *FormHandler) Delete(c *gin.Context) {
	var req deleteRequest
	if err := bindJSON(c, &req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	response.Success(c, h.deletes.Delete(c.Request.Context(), req.Property, req.Values))
}

func (h *FormHandler) Suggest(c *gin.Context) {
	req, ok := h.bindForm(c)
	if !ok {
		return
	}
	res, err := h.suggest.Suggest(c.Request.Context(), req.input(), req.Schema)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, res)
}

func (h *FormHandler) Pilot(c *gin.Context) {
	req, ok := h.bindForm(c)
	if !ok {
		return
	}
	res, err := h.pilot.Handle(c.Request.Context(), req.input(), req.Schema)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, res)
}
