package qualer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
)

// ErrUploadRejected is returned when Qualer accepts the request but reports
// a non-successful result in its JSON body.
var ErrUploadRejected = errors.New("upload rejected")

// hiddenTokenRe matches the fresh verification token embedded as a hidden
// form input on the SOP page. The cookie token from login is not accepted by
// the upload endpoint; each form post needs the page's own token.
var hiddenTokenRe = regexp.MustCompile(`<input name="__RequestVerificationToken" type="hidden" value="([^"]+)"`)

// UploadResult is the decoded response of the SaveSopFile endpoint.
type UploadResult struct {
	Success bool   `json:"Success"`
	Message string `json:"Message,omitempty"`
}

// UploadSOP attaches the file at filePath to the SOP with the given id. The
// session must already be authenticated via Login. The SOP page is fetched
// first to obtain a fresh verification token, then the file is posted as
// multipart form data.
func (c *Client) UploadSOP(ctx context.Context, sopID int, filePath string) (*UploadResult, error) {
	token, err := c.fetchUploadToken(ctx, sopID)
	if err != nil {
		return nil, err
	}

	body, contentType, err := buildUploadForm(sopID, filePath, token)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/Sop/SaveSopFile", body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("POST /Sop/SaveSopFile: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upload failed: status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read upload response: %w", err)
	}

	var result UploadResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode upload response: %w", err)
	}

	if !result.Success {
		return &result, fmt.Errorf("%w: %s", ErrUploadRejected, string(raw))
	}

	return &result, nil
}

// fetchUploadToken loads the SOP page and extracts the hidden verification
// token from its markup.
func (c *Client) fetchUploadToken(ctx context.Context, sopID int) (string, error) {
	resp, err := c.get(ctx, "/Sop/Sop?sopId="+strconv.Itoa(sopID))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch SOP page: status %d", resp.StatusCode)
	}

	page, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read SOP page: %w", err)
	}

	m := hiddenTokenRe.FindSubmatch(page)
	if m == nil {
		return "", fmt.Errorf("%w: no hidden input on SOP page", ErrNoVerificationToken)
	}

	return string(m[1]), nil
}

// buildUploadForm assembles the multipart body for SaveSopFile: the file
// under the Documents field plus the sopId and verification token fields.
func buildUploadForm(sopID int, filePath, token string) (io.Reader, string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, "", fmt.Errorf("open upload file: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer

	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("Documents", filepath.Base(filePath))
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}

	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("copy upload file: %w", err)
	}

	if err := w.WriteField("sopId", strconv.Itoa(sopID)); err != nil {
		return nil, "", fmt.Errorf("write sopId field: %w", err)
	}

	if err := w.WriteField("__RequestVerificationToken", token); err != nil {
		return nil, "", fmt.Errorf("write token field: %w", err)
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("finalize multipart body: %w", err)
	}

	return &buf, w.FormDataContentType(), nil
}
