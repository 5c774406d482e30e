package onedrivefs

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/torviolento/fs.onedrivefs/api"
	"github.com/torviolento/fs.onedrivefs/fserrors"
	"github.com/torviolento/fs.onedrivefs/lib/rest"
)

// Open returns a reader for the content of the file at path. The
// remote answers the content route with a redirect to a pre-signed
// download URL which the HTTP client follows transparently.
//
// The caller must close the returned reader.
func (f *Fs) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	return f.open(ctx, path, "")
}

// OpenRange returns a reader for length bytes of the file at path
// starting at offset. A length < 0 reads from offset to the end.
func (f *Fs) OpenRange(ctx context.Context, path string, offset, length int64) (io.ReadCloser, error) {
	if offset < 0 {
		return nil, fmt.Errorf("%w: negative offset %d", fserrors.ErrInvalidArgument, offset)
	}
	rangeHeader := fmt.Sprintf("bytes=%d-", offset)
	if length >= 0 {
		rangeHeader = fmt.Sprintf("bytes=%d-%d", offset, offset+length-1)
	}
	return f.open(ctx, path, rangeHeader)
}

func (f *Fs) open(ctx context.Context, path string, rangeHeader string) (io.ReadCloser, error) {
	path, err := normalizePath(path)
	if err != nil {
		return nil, err
	}
	item, err := f.resolveItem(ctx, path)
	if err != nil {
		return nil, fserrors.Translate(err, fserrors.OpOther)
	}
	if item.IsFolder() {
		return nil, fmt.Errorf("%w: %q", fserrors.ErrIsDir, path)
	}
	if item.Package != nil && item.Package.Type == api.PackageTypeOneNote {
		return nil, fmt.Errorf("%w: %q is a OneNote item and can't be downloaded", fserrors.ErrInvalidArgument, path)
	}

	opts := rest.Opts{
		Method: "GET",
		Path:   "/items/" + item.ID + "/content",
	}
	if rangeHeader != "" {
		opts.ExtraHeaders = map[string]string{"Range": rangeHeader}
	}
	var resp *http.Response
	err = f.pacer.Call(func() (bool, error) {
		resp, err = f.srv.Call(ctx, &opts)
		return f.shouldRetry(ctx, resp, err)
	})
	if err != nil {
		return nil, fserrors.Translate(err, fserrors.OpOther)
	}
	return resp.Body, nil
}
