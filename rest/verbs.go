package rest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

// Get fetches path with the given query parameters.
func (c *Client) Get(ctx context.Context, path string, params map[string]any, out any) error {
	return c.Do(ctx, http.MethodGet, path, &RequestOptions{Params: params}, out)
}

// Post sends a JSON body to path.
func (c *Client) Post(ctx context.Context, path string, body any, out any) error {
	return c.Do(ctx, http.MethodPost, path, &RequestOptions{Body: body}, out)
}

// Patch sends a partial JSON update to path.
func (c *Client) Patch(ctx context.Context, path string, body any, out any) error {
	return c.Do(ctx, http.MethodPatch, path, &RequestOptions{Body: body}, out)
}

// Put sends a full JSON replacement to path.
func (c *Client) Put(ctx context.Context, path string, body any, out any) error {
	return c.Do(ctx, http.MethodPut, path, &RequestOptions{Body: body}, out)
}

// Delete removes the resource at path.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil)
}

// UploadFile is one part of a multipart upload.
type UploadFile struct {
	Field    string
	Name     string
	Contents io.Reader
}

// Upload sends a multipart body to path. Extra fields are written before the
// file parts. The multipart writer supplies the content type (boundary
// included); the pipeline's JSON default is not applied.
func (c *Client) Upload(ctx context.Context, path string, fields map[string]string, files []UploadFile, out any) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for key, value := range fields {
		if err := w.WriteField(key, value); err != nil {
			return fmt.Errorf("failed to write multipart field %q: %w", key, err)
		}
	}
	for _, f := range files {
		field := f.Field
		if field == "" {
			field = "file"
		}
		part, err := w.CreateFormFile(field, f.Name)
		if err != nil {
			return fmt.Errorf("failed to create multipart part %q: %w", f.Name, err)
		}
		if _, err := io.Copy(part, f.Contents); err != nil {
			return fmt.Errorf("failed to read upload %q: %w", f.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		return err
	}

	opts := &RequestOptions{
		RawBody:     buf.Bytes(),
		ContentType: w.FormDataContentType(),
	}
	return c.Do(ctx, http.MethodPost, path, opts, out)
}
