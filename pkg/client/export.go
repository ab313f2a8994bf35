package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"regexp"
	"strings"
)

// Source - каким путем получен PDF
type Source string

const (
	SourceServer Source = "server"
	SourceClient Source = "client"
)

// Rasterizer превращает HTML в PDF на стороне клиента (chromedp renderer)
type Rasterizer interface {
	RenderHTMLToPDF(ctx context.Context, html string) ([]byte, error)
}

var ErrNoRasterizer = errors.New("server PDF unavailable and no local rasterizer configured")

type PDFResult struct {
	Data     []byte
	FileName string
	Source   Source
	// ServerErr - почему серверный путь не сработал (только для SourceClient)
	ServerErr error
}

const maxPDFSize = 50 << 20

// ExportPDF сначала запрашивает PDF у сервера. При сетевой ошибке, не-PDF ответе
// или любом не-2xx статусе, кроме 401, собирает HTML из JSON резюме и растеризует локально.
// Повторов нет. 401 возвращается как есть.
func (c *Client) ExportPDF(ctx context.Context, cvID string, rasterizer Rasterizer) (*PDFResult, error) {
	res, serverErr := c.serverPDF(ctx, cvID)
	if serverErr == nil {
		return res, nil
	}
	if errors.Is(serverErr, ErrUnauthorized) || ctx.Err() != nil {
		return nil, serverErr
	}

	if rasterizer == nil {
		return nil, fmt.Errorf("%w: %v", ErrNoRasterizer, serverErr)
	}

	cv, err := c.GetCVRaw(ctx, cvID)
	if err != nil {
		return nil, err
	}
	data, err := rasterizer.RenderHTMLToPDF(ctx, BuildHTML(cv))
	if err != nil {
		return nil, fmt.Errorf("local pdf render: %w", err)
	}
	return &PDFResult{
		Data:      data,
		FileName:  fileNameFromTitle(stringAt(cv, "title")),
		Source:    SourceClient,
		ServerErr: serverErr,
	}, nil
}

func (c *Client) serverPDF(ctx context.Context, cvID string) (*PDFResult, error) {
	req, err := c.newRequest(ctx, http.MethodGet, cvPath(cvID)+"/pdf", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/pdf")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("server pdf: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newAPIError(resp)
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType != "application/pdf" {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("server pdf: unexpected content type %q", resp.Header.Get("Content-Type"))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPDFSize))
	if err != nil {
		return nil, fmt.Errorf("server pdf: read body: %w", err)
	}

	name := "cv.pdf"
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil && params["filename"] != "" {
		name = params["filename"]
	}
	return &PDFResult{Data: data, FileName: name, Source: SourceServer}, nil
}

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

func fileNameFromTitle(title string) string {
	name := strings.Trim(unsafeNameChars.ReplaceAllString(strings.TrimSpace(title), "_"), "_")
	if name == "" {
		name = "cv"
	}
	return name + ".pdf"
}
