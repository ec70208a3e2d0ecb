package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"contractrisk/internal/app"
	"contractrisk/internal/model"
	"contractrisk/internal/session"
	"contractrisk/internal/transport/http/middleware"
)

type ContractHandler struct {
	contractService *app.ContractService
}

type dashboardPage struct {
	Contracts []model.Contract
}

func NewContractHandler(contractService *app.ContractService) *ContractHandler {
	return &ContractHandler{contractService: contractService}
}

func (h *ContractHandler) Dashboard(c *gin.Context) {
	contracts, err := h.contractService.List(c.Request.Context(), middleware.CurrentClient(c))
	if err != nil && fail(c, err) {
		return
	}
	render(c, http.StatusOK, "dashboard", "Dashboard", dashboardPage{Contracts: contracts})
}

func (h *ContractHandler) Upload(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		flash(c, session.NoticeError, "Please select a PDF file.")
		back(c, "/dashboard")
		return
	}
	file, err := header.Open()
	if err != nil {
		flash(c, session.NoticeError, "The selected file could not be read.")
		back(c, "/dashboard")
		return
	}
	defer file.Close()

	contract, err := h.contractService.Upload(c.Request.Context(), middleware.CurrentClient(c), header.Filename, file)
	if err != nil {
		if !fail(c, err) {
			back(c, "/dashboard")
		}
		return
	}
	flash(c, session.NoticeSuccess, "Upload Complete!")
	if contract != nil && contract.ID != "" {
		back(c, "/contracts/"+contract.ID)
		return
	}
	back(c, "/dashboard")
}

func (h *ContractHandler) Details(c *gin.Context) {
	details, err := h.contractService.Details(c.Request.Context(), middleware.CurrentClient(c), c.Param("id"))
	if err != nil {
		if !fail(c, err) {
			c.Redirect(http.StatusFound, "/dashboard")
		}
		return
	}
	render(c, http.StatusOK, "contract", details.Contract.Filename, details)
}

// Report buffers the PDF so a failed download can still redirect with a notice.
func (h *ContractHandler) Report(c *gin.Context) {
	id := c.Param("id")
	var buf bytes.Buffer
	if _, err := h.contractService.Report(c.Request.Context(), middleware.CurrentClient(c), id, &buf); err != nil {
		if !fail(c, err) {
			flash(c, session.NoticeError, "Failed to download PDF report.")
			c.Redirect(http.StatusFound, "/contracts/"+id)
		}
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, reportFilename(c.Query("name"))))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

func (h *ContractHandler) Delete(c *gin.Context) {
	if err := h.contractService.Delete(c.Request.Context(), middleware.CurrentClient(c), c.Param("id")); err != nil {
		if !fail(c, err) {
			back(c, "/contracts/"+c.Param("id"))
		}
		return
	}
	flash(c, session.NoticeSuccess, "Contract deleted.")
	back(c, "/dashboard")
}

func reportFilename(name string) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ' || r == '.':
			return '_'
		}
		return -1
	}, base)
	if base == "" {
		base = "contract"
	}
	return "Analysis_Report_" + base + ".pdf"
}
