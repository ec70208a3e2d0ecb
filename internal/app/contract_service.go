package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"contractrisk/internal/apiclient"
	"contractrisk/internal/model"
	"contractrisk/internal/pkg/pdfcheck"
)

type ContractService struct {
	maxUploadBytes int64
}

// ContractDetails is a contract plus its decoded analysis. Analysis is nil when
// the backend has none or it could not be read.
type ContractDetails struct {
	Contract model.Contract
	Analysis *model.Analysis
	Severity string
}

func NewContractService(maxUploadBytes int64) *ContractService {
	return &ContractService{maxUploadBytes: maxUploadBytes}
}

func (s *ContractService) List(ctx context.Context, api *apiclient.Client) ([]model.Contract, error) {
	return api.ListContracts(ctx)
}

// Upload rejects anything that is not a readable PDF before it reaches the network.
func (s *ContractService) Upload(ctx context.Context, api *apiclient.Client, filename string, file io.Reader) (*model.Contract, error) {
	checked, err := pdfcheck.Check(filename, file, s.maxUploadBytes)
	if err != nil {
		return nil, uploadError(err)
	}
	return api.UploadContract(ctx, filename, bytes.NewReader(checked.Data))
}

func (s *ContractService) Details(ctx context.Context, api *apiclient.Client, id string) (*ContractDetails, error) {
	if strings.TrimSpace(id) == "" {
		return nil, invalid("id", "Contract not found.")
	}
	contract, err := api.GetContract(ctx, id)
	if err != nil {
		return nil, err
	}
	out := &ContractDetails{Contract: *contract}
	if analysis, ok := DecodeAnalysis(contract.AnalysisJSON); ok {
		out.Analysis = analysis
	}
	level := contract.RiskLevel
	if out.Analysis != nil && out.Analysis.RiskLevel != "" {
		level = out.Analysis.RiskLevel
	}
	out.Severity = model.Severity(level)
	return out, nil
}

func (s *ContractService) Report(ctx context.Context, api *apiclient.Client, id string, w io.Writer) (int64, error) {
	return api.DownloadReport(ctx, id, w)
}

func (s *ContractService) Delete(ctx context.Context, api *apiclient.Client, id string) error {
	if strings.TrimSpace(id) == "" {
		return invalid("id", "Contract not found.")
	}
	return api.DeleteContract(ctx, id)
}

// DecodeAnalysis reads the analysis string stored with a contract. Model output is
// sometimes wrapped in a markdown code fence; that is stripped first.
func DecodeAnalysis(raw string) (*model.Analysis, bool) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSuffix(strings.TrimSpace(raw), "```")
		raw = strings.TrimSpace(raw)
	}
	if raw == "" {
		return nil, false
	}
	var analysis model.Analysis
	if err := json.Unmarshal([]byte(raw), &analysis); err != nil {
		return nil, false
	}
	return &analysis, true
}

func uploadError(err error) error {
	switch {
	case errors.Is(err, pdfcheck.ErrEmpty):
		return invalid("file", "The selected file is empty.")
	case errors.Is(err, pdfcheck.ErrTooLarge):
		return invalid("file", "The selected file is too large.")
	case errors.Is(err, pdfcheck.ErrNotPDF):
		return invalid("file", "Please select a PDF file.")
	case errors.Is(err, pdfcheck.ErrNoPages):
		return invalid("file", "The PDF has no pages.")
	}
	return err
}
