package platform

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
)

// Submit uploads a solution file for a problem, authenticating as the team
// itself rather than the admin. When a team submits on its own behalf the
// platform derives the team from the credentials, so no team id is sent in
// the body.
func (c *Client) Submit(ctx context.Context, cid, teamID, teamPassword, problemID, languageID, artifactPath string) error {
	code, err := os.ReadFile(artifactPath)
	if err != nil {
		return fmt.Errorf("read artifact %s: %w", artifactPath, err)
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("problem", problemID); err != nil {
		return err
	}
	if err := w.WriteField("language", languageID); err != nil {
		return err
	}
	part, err := w.CreateFormFile("code", filepath.Base(artifactPath))
	if err != nil {
		return err
	}
	if _, err := part.Write(code); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	payload := buf.Bytes()

	_, err = c.do(ctx, requestSpec{
		method:      http.MethodPost,
		endpoint:    "contests/" + cid + "/submissions",
		contentType: w.FormDataContentType(),
		newBody: func() (io.Reader, error) {
			return bytes.NewReader(payload), nil
		},
		user: teamID,
		pass: teamPassword,
	})
	if err != nil {
		return fmt.Errorf("submit %s for team %s: %w", problemID, teamID, err)
	}
	return nil
}
