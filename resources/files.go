package resources

import (
	"context"
	"io"
	"net/url"

	"github.com/craterhq/crater-go/rest"
)

// File is the metadata record of a stored asset.
type File struct {
	ID       string `json:"id"`
	Title    string `json:"title,omitempty"`
	Filename string `json:"filename_download,omitempty"`
	Type     string `json:"type,omitempty"`
	Folder   string `json:"folder,omitempty"`
	Filesize int64  `json:"filesize,omitempty"`
}

type Files struct {
	c *rest.Client
}

func NewFiles(c *rest.Client) *Files {
	return &Files{c: c}
}

func (f *Files) List(ctx context.Context, q *Query) ([]File, error) {
	return list[File](ctx, f.c, "/files", q)
}

func (f *Files) Get(ctx context.Context, id string, q *Query) (File, error) {
	return get[File](ctx, f.c, "/files/"+url.PathEscape(id), q)
}

// Upload streams a file as a multipart body. Metadata fields accompany the
// file part; the server derives anything not supplied.
func (f *Files) Upload(ctx context.Context, name string, contents io.Reader, fields map[string]string) (File, error) {
	var resp envelope[File]
	files := []rest.UploadFile{{Field: "file", Name: name, Contents: contents}}
	if err := f.c.Upload(ctx, "/files", fields, files, &resp); err != nil {
		return File{}, err
	}
	return resp.Data, nil
}

// Import asks the server to fetch a file from a URL.
func (f *Files) Import(ctx context.Context, fileURL string, fields map[string]string) (File, error) {
	body := map[string]any{"url": fileURL}
	if len(fields) > 0 {
		body["data"] = fields
	}
	return create[File](ctx, f.c, "/files/import", body)
}

func (f *Files) Update(ctx context.Context, id string, patch Item) (File, error) {
	return update[File](ctx, f.c, "/files/"+url.PathEscape(id), patch)
}

func (f *Files) Delete(ctx context.Context, id string) error {
	return f.c.Delete(ctx, "/files/"+url.PathEscape(id))
}
