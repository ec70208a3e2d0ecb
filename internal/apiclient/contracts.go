package apiclient

import (
	"context"
	"io"
	"net/http"
	"net/url"

	"contractrisk/internal/model"
)

func (c *Client) ListContracts(ctx context.Context) ([]model.Contract, error) {
	var out []model.Contract
	if err := c.Do(ctx, http.MethodGet, "/contracts", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UploadContract sends a PDF for extraction and analysis. The backend analyses
// synchronously, so this call can take a while.
func (c *Client) UploadContract(ctx context.Context, filename string, file io.Reader) (*model.Contract, error) {
	var out model.Contract
	if err := c.Upload(ctx, "/contracts/upload", "file", filename, file, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetContract(ctx context.Context, id string) (*model.Contract, error) {
	var out model.Contract
	if err := c.Do(ctx, http.MethodGet, "/contracts/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteContract(ctx context.Context, id string) error {
	return c.Do(ctx, http.MethodDelete, "/contracts/"+url.PathEscape(id), nil, nil)
}

// DownloadReport writes the generated PDF report for a contract to w.
func (c *Client) DownloadReport(ctx context.Context, id string, w io.Writer) (int64, error) {
	return c.Download(ctx, "/contracts/"+url.PathEscape(id)+"/download-report", w)
}
