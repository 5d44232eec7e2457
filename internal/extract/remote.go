package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gdkds12/translatePDF/internal/logger"
	"github.com/gdkds12/translatePDF/internal/types"
)

const (
	analyzePath       = "/documentintelligence/documentModels/prebuilt-layout:analyze"
	analyzeAPIVersion = "2024-02-29-preview"

	defaultPollInterval = 2 * time.Second
)

// RemoteClient extracts text blocks through a layout-analysis HTTP service.
// The protocol is asynchronous: a submit call returns an operation URL which
// is polled until the analysis succeeds or fails.
type RemoteClient struct {
	endpoint     string
	apiKey       string
	httpClient   *http.Client
	pollInterval time.Duration
}

// NewRemoteClient creates a client for the given endpoint. timeoutSeconds
// bounds each individual HTTP call, not the whole analysis.
func NewRemoteClient(endpoint, apiKey string, timeoutSeconds int) *RemoteClient {
	if timeoutSeconds <= 0 {
		timeoutSeconds = 30
	}
	return &RemoteClient{
		endpoint:     strings.TrimRight(endpoint, "/"),
		apiKey:       apiKey,
		httpClient:   &http.Client{Timeout: time.Duration(timeoutSeconds) * time.Second},
		pollInterval: defaultPollInterval,
	}
}

// analyzeResponse is the poll result envelope.
type analyzeResponse struct {
	Status        string         `json:"status"`
	Error         *analyzeError  `json:"error,omitempty"`
	AnalyzeResult *analyzeResult `json:"analyzeResult,omitempty"`
}

type analyzeError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type analyzeResult struct {
	Pages []analyzePage `json:"pages"`
}

type analyzePage struct {
	PageNumber int           `json:"pageNumber"`
	Unit       string        `json:"unit"`
	Lines      []analyzeLine `json:"lines"`
}

type analyzeLine struct {
	Content string    `json:"content"`
	Polygon []float64 `json:"polygon"`
}

// Extract submits the document for layout analysis restricted to the chunk's
// page range and converts the returned lines into blocks.
func (c *RemoteClient) Extract(ctx context.Context, pdfPath string, chunk types.Chunk) ([]types.Block, error) {
	data, err := os.ReadFile(pdfPath)
	if err != nil {
		return nil, types.NewPipeError(types.ErrInternal, "failed to read input for extraction", err)
	}

	opURL, err := c.submit(ctx, data, chunk)
	if err != nil {
		return nil, err
	}

	result, err := c.poll(ctx, opURL)
	if err != nil {
		return nil, err
	}

	return blocksFromResult(result, chunk), nil
}

// submit starts the analysis and returns the operation URL to poll.
func (c *RemoteClient) submit(ctx context.Context, pdfData []byte, chunk types.Chunk) (string, error) {
	url := fmt.Sprintf("%s%s?api-version=%s&pages=%d-%d",
		c.endpoint, analyzePath, analyzeAPIVersion, chunk.StartPage, chunk.EndPage)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(pdfData))
	if err != nil {
		return "", types.NewPipeError(types.ErrInternal, "failed to build extraction request", err)
	}
	req.Header.Set("Content-Type", "application/pdf")
	req.Header.Set("x-ms-client-request-id", uuid.NewString())
	if c.apiKey != "" {
		req.Header.Set("Ocp-Apim-Subscription-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", types.NewPipeError(types.ErrRetryableService, "extraction request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusOK {
		return "", classifyStatus(resp, "extraction submit")
	}

	opURL := resp.Header.Get("Operation-Location")
	if opURL == "" {
		return "", types.NewPipeError(types.ErrFatalService,
			"extraction service returned no operation location", nil)
	}
	return opURL, nil
}

// poll waits for the analysis operation to finish.
func (c *RemoteClient) poll(ctx context.Context, opURL string) (*analyzeResult, error) {
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, opURL, nil)
		if err != nil {
			return nil, types.NewPipeError(types.ErrInternal, "failed to build poll request", err)
		}
		if c.apiKey != "" {
			req.Header.Set("Ocp-Apim-Subscription-Key", c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, types.NewPipeError(types.ErrRetryableService, "extraction poll failed", err)
		}

		if resp.StatusCode != http.StatusOK {
			defer resp.Body.Close()
			return nil, classifyStatus(resp, "extraction poll")
		}

		var envelope analyzeResponse
		err = json.NewDecoder(resp.Body).Decode(&envelope)
		resp.Body.Close()
		if err != nil {
			return nil, types.NewPipeError(types.ErrRetryableService,
				"extraction service returned unreadable response", err)
		}

		switch envelope.Status {
		case "succeeded":
			if envelope.AnalyzeResult == nil {
				return nil, types.NewPipeError(types.ErrFatalService,
					"extraction succeeded without a result", nil)
			}
			return envelope.AnalyzeResult, nil
		case "failed":
			msg := "extraction analysis failed"
			if envelope.Error != nil {
				msg = fmt.Sprintf("extraction analysis failed: %s: %s",
					envelope.Error.Code, envelope.Error.Message)
			}
			return nil, types.NewPipeError(types.ErrFatalService, msg, nil)
		}

		select {
		case <-ctx.Done():
			return nil, types.NewPipeError(types.ErrRetryableService, "extraction canceled while polling", ctx.Err())
		case <-time.After(c.pollInterval):
		}
	}
}

// blocksFromResult converts analysis lines into blocks. Line polygons arrive
// in inches with a top-left origin, so only the bounding rectangle needs
// computing.
func blocksFromResult(result *analyzeResult, chunk types.Chunk) []types.Block {
	var blocks []types.Block
	for _, page := range result.Pages {
		if page.PageNumber < chunk.StartPage || page.PageNumber > chunk.EndPage {
			logger.Warn("extraction returned page outside chunk range",
				logger.Int("page", page.PageNumber), logger.Int("chunk", chunk.ID))
			continue
		}
		for i, line := range page.Lines {
			text := strings.TrimSpace(line.Content)
			if text == "" {
				continue
			}
			blocks = append(blocks, types.Block{
				ID:         fmt.Sprintf("p%d_l%d", page.PageNumber, i+1),
				PageNumber: page.PageNumber,
				Text:       text,
				BBox:       polygonBounds(line.Polygon),
			})
		}
	}
	return blocks
}

// polygonBounds computes the axis-aligned bounding box of a polygon given as
// alternating x,y coordinates.
func polygonBounds(polygon []float64) types.BoundingBox {
	if len(polygon) < 4 {
		return types.BoundingBox{}
	}
	minX, minY := polygon[0], polygon[1]
	maxX, maxY := polygon[0], polygon[1]
	for i := 2; i+1 < len(polygon); i += 2 {
		x, y := polygon[i], polygon[i+1]
		if x < minX {
			minX = x
		}
		if x > maxX {
			maxX = x
		}
		if y < minY {
			minY = y
		}
		if y > maxY {
			maxY = y
		}
	}
	return types.BoundingBox{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// classifyStatus maps an HTTP failure status to retryable or fatal. Rate
// limits, timeouts and server errors are transient; authentication and
// request errors are not.
func classifyStatus(resp *http.Response, operation string) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	msg := fmt.Sprintf("%s returned HTTP %d", operation, resp.StatusCode)
	if len(body) > 0 {
		msg += ": " + strings.TrimSpace(string(body))
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode == http.StatusRequestTimeout,
		resp.StatusCode >= 500:
		return types.NewPipeError(types.ErrRetryableService, msg, nil)
	default:
		return types.NewPipeError(types.ErrFatalService, msg, nil)
	}
}
