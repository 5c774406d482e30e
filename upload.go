package onedrivefs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/torviolento/fs.onedrivefs/api"
	"github.com/torviolento/fs.onedrivefs/fserrors"
	"github.com/torviolento/fs.onedrivefs/lib/rest"
)

// ConflictPolicy controls what WriteFile does when the target name is
// already taken.
type ConflictPolicy int

const (
	// ConflictFail refuses to overwrite an existing item.
	ConflictFail ConflictPolicy = iota
	// ConflictReplace overwrites an existing item unconditionally.
	ConflictReplace
	// ConflictReplaceIfUnchanged overwrites only while the existing
	// item's ETag still matches WriteOptions.ETag. A concurrent change
	// fails the write with ErrConflict.
	ConflictReplaceIfUnchanged
)

func (p ConflictPolicy) conflictBehavior() string {
	if p == ConflictFail {
		return "fail"
	}
	return "replace"
}

// WriteOptions modifies how WriteFile stores the content.
type WriteOptions struct {
	Policy  ConflictPolicy
	ETag    string    // required for ConflictReplaceIfUnchanged
	ModTime time.Time // zero means time.Now()
}

// WriteFile stores size bytes read from in as the file at path,
// creating parent directories as needed. Small files go up in a
// single request; anything above the configured cutoff is sent
// through an upload session in chunks so a dropped connection only
// costs the chunk in flight.
//
// size must be known in advance and in must deliver exactly that many
// bytes.
func (f *Fs) WriteFile(ctx context.Context, path string, in io.Reader, size int64, options WriteOptions) (*FileInfo, error) {
	path, err := normalizePath(path)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return nil, fmt.Errorf("%w: can't write to the root directory", fserrors.ErrIsDir)
	}
	if size < 0 {
		return nil, fmt.Errorf("%w: unknown size", fserrors.ErrInvalidArgument)
	}
	if options.Policy == ConflictReplaceIfUnchanged && options.ETag == "" {
		return nil, fmt.Errorf("%w: conditional replace needs an etag", fserrors.ErrInvalidArgument)
	}
	if options.ModTime.IsZero() {
		options.ModTime = time.Now()
	}
	leaf, dirID, err := f.findPath(ctx, path, true)
	if err != nil {
		return nil, fserrors.Translate(err, fserrors.OpCreate)
	}

	var info *api.Item
	if size <= f.opt.UploadCutoff {
		info, err = f.uploadSinglepart(ctx, in, size, dirID, leaf, options)
	} else {
		info, err = f.uploadMultipart(ctx, in, size, dirID, leaf, options)
	}
	if err != nil {
		op := fserrors.OpReplace
		if options.Policy == ConflictFail {
			op = fserrors.OpCreate
		}
		err = fserrors.Translate(err, op)
		if errors.Is(err, fserrors.ErrNotFound) {
			// The cached parent ID we uploaded to is dead. The content
			// has been consumed so the upload can't be replayed here,
			// but dropping the branch lets the caller's next attempt
			// resolve a live one.
			f.flushBranch(path)
		}
		return nil, err
	}

	// The simple upload can't carry timestamps, so patch them on
	// afterwards. The session upload sets them at creation time.
	if size <= f.opt.UploadCutoff {
		patched, err := f.patchTimes(ctx, info.ID, options.ModTime)
		if err != nil {
			return nil, fserrors.Translate(err, fserrors.OpOther)
		}
		info = patched
	}
	return f.itemToFileInfo(info), nil
}

// pathRoute builds the colon-addressed route for the item named leaf
// inside the directory with ID dirID, e.g.
// /items/{dirID}:/Some%20Name.txt:/content
func pathRoute(dirID, leaf, route string) string {
	return "/items/" + dirID + ":/" + url.PathEscape(leaf) + ":" + route
}

// uploadSinglepart uploads content in a single request. It is not
// retried at this level: the body has been consumed by the time an
// error surfaces, so a failed attempt is reported to the caller.
func (f *Fs) uploadSinglepart(ctx context.Context, in io.Reader, size int64, dirID, leaf string, options WriteOptions) (info *api.Item, err error) {
	opts := rest.Opts{
		Method:        "PUT",
		Path:          pathRoute(dirID, leaf, "/content"),
		ContentLength: &size,
		Body:          in,
		Parameters: url.Values{
			"@microsoft.graph.conflictBehavior": {options.Policy.conflictBehavior()},
		},
	}
	if options.Policy == ConflictReplaceIfUnchanged {
		opts.ExtraHeaders = map[string]string{"If-Match": options.ETag}
	}
	var resp *http.Response
	err = f.pacer.CallNoRetry(func() (bool, error) {
		resp, err = f.srv.CallJSON(ctx, &opts, nil, &info)
		return f.shouldRetry(ctx, resp, err)
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

// patchTimes updates the filesystem timestamps on the item id and
// returns the refreshed item.
func (f *Fs) patchTimes(ctx context.Context, id string, modTime time.Time) (info *api.Item, err error) {
	opts := rest.Opts{
		Method: "PATCH",
		Path:   "/items/" + id,
	}
	update := toFileSystemInfoPatch(time.Time{}, modTime)
	var resp *http.Response
	err = f.pacer.Call(func() (bool, error) {
		resp, err = f.srv.CallJSON(ctx, &opts, &update, &info)
		return f.shouldRetry(ctx, resp, err)
	})
	return info, err
}

// createUploadSession creates an upload session for the object
func (f *Fs) createUploadSession(ctx context.Context, dirID, leaf string, options WriteOptions) (response *api.CreateUploadResponse, err error) {
	opts := rest.Opts{
		Method: "POST",
		Path:   pathRoute(dirID, leaf, "/createUploadSession"),
	}
	if options.Policy == ConflictReplaceIfUnchanged {
		opts.ExtraHeaders = map[string]string{"If-Match": options.ETag}
	}
	fsi := toFileSystemInfoPatch(time.Time{}, options.ModTime).FileSystemInfo
	createRequest := api.CreateUploadRequest{}
	createRequest.Item.ConflictBehavior = options.Policy.conflictBehavior()
	createRequest.Item.FileSystemInfo = &fsi
	var resp *http.Response
	err = f.pacer.Call(func() (bool, error) {
		resp, err = f.srv.CallJSON(ctx, &opts, &createRequest, &response)
		return f.shouldRetry(ctx, resp, err)
	})
	return response, err
}

// getPosition reads the current position of an upload session
func (f *Fs) getPosition(ctx context.Context, uploadURL string) (pos int64, err error) {
	opts := rest.Opts{
		Method:  "GET",
		RootURL: uploadURL,
	}
	var info api.CreateUploadResponse
	var resp *http.Response
	err = f.pacer.Call(func() (bool, error) {
		resp, err = f.unAuth.CallJSON(ctx, &opts, nil, &info)
		return f.shouldRetry(ctx, resp, err)
	})
	if err != nil {
		return 0, err
	}
	if len(info.NextExpectedRanges) != 1 {
		return 0, fmt.Errorf("bad number of ranges in upload position: %v", info.NextExpectedRanges)
	}
	position := info.NextExpectedRanges[0]
	if i := strings.IndexByte(position, '-'); i >= 0 {
		position = position[:i]
	}
	pos, err = strconv.ParseInt(position, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad expected range in upload position: %q: %w", info.NextExpectedRanges[0], err)
	}
	return pos, nil
}

// uploadFragment uploads a part of a multipart upload to the session
// URL. The session URL is pre-signed so fragments go out without
// credentials.
//
// 416 from the remote means a previous attempt of this fragment (or a
// part of it) did land; the session is asked where it got to and the
// already stored prefix is skipped.
func (f *Fs) uploadFragment(ctx context.Context, uploadURL string, start int64, totalSize int64, chunk io.ReadSeeker, chunkSize int64) (info *api.Item, err error) {
	var skip = int64(0)
	var resp *http.Response
	var body []byte
	err = f.pacer.Call(func() (bool, error) {
		toSend := chunkSize - skip
		opts := rest.Opts{
			Method:        "PUT",
			RootURL:       uploadURL,
			ContentLength: &toSend,
			ContentRange:  fmt.Sprintf("bytes %d-%d/%d", start+skip, start+chunkSize-1, totalSize),
			Body:          chunk,
		}
		if _, err = chunk.Seek(skip, io.SeekStart); err != nil {
			return false, err
		}
		resp, err = f.unAuth.Call(ctx, &opts)
		if err != nil && resp != nil && resp.StatusCode == http.StatusRequestedRangeNotSatisfiable {
			pos, posErr := f.getPosition(ctx, uploadURL)
			if posErr != nil {
				f.logger.Debug().Err(posErr).Msg("couldn't read position for retry")
				return false, err
			}
			skip = pos - start
			switch {
			case skip < 0 || skip > chunkSize:
				return false, fmt.Errorf("can't seek to position %d in fragment %d-%d: %w", pos, start, start+chunkSize, err)
			case skip == chunkSize:
				// The whole fragment landed on the attempt whose
				// response we lost. Nothing left to send.
				f.logger.Debug().Int64("start", start).Msg("skipping fragment as already sent")
				return false, nil
			}
			return true, fmt.Errorf("retry this fragment skipping %d bytes: %w", skip, err)
		}
		if err != nil {
			return f.shouldRetry(ctx, resp, err)
		}
		body, err = rest.ReadBody(resp)
		if err != nil {
			return f.shouldRetry(ctx, resp, err)
		}
		if resp.StatusCode == http.StatusCreated || resp.StatusCode == http.StatusOK {
			// The last fragment's response carries the final item.
			if len(body) > 0 && body[0] == '{' {
				err = json.Unmarshal(body, &info)
				if err != nil {
					return false, fmt.Errorf("couldn't decode item from upload response: %w", err)
				}
			}
		}
		return false, nil
	})
	return info, err
}

// cancelUploadSession cancels an upload session
func (f *Fs) cancelUploadSession(ctx context.Context, uploadURL string) error {
	opts := rest.Opts{
		Method:     "DELETE",
		RootURL:    uploadURL,
		NoResponse: true,
	}
	return f.pacer.Call(func() (bool, error) {
		resp, err := f.unAuth.Call(ctx, &opts)
		return f.shouldRetry(ctx, resp, err)
	})
}

// uploadMultipart uploads the content through an upload session,
// chunk by chunk. Each chunk is buffered in memory so a transport
// failure can replay it.
func (f *Fs) uploadMultipart(ctx context.Context, in io.Reader, size int64, dirID, leaf string, options WriteOptions) (info *api.Item, err error) {
	session, err := f.createUploadSession(ctx, dirID, leaf, options)
	if err != nil {
		return nil, err
	}
	uploadURL := session.UploadURL

	defer func() {
		if err != nil {
			f.logger.Debug().Err(err).Msg("cancelling upload session")
			if cancelErr := f.cancelUploadSession(ctx, uploadURL); cancelErr != nil {
				f.logger.Debug().Err(cancelErr).Msg("failed to cancel upload session")
			}
		}
	}()

	buf := make([]byte, f.opt.ChunkSize)
	var position int64
	for position < size {
		n := f.opt.ChunkSize
		if remaining := size - position; remaining < n {
			n = remaining
		}
		if _, err = io.ReadFull(in, buf[:n]); err != nil {
			return nil, fmt.Errorf("content ended %d bytes short: %w", size-position, err)
		}
		seg := bytes.NewReader(buf[:n])
		f.logger.Debug().Int64("offset", position).Int64("length", n).Msg("uploading fragment")
		info, err = f.uploadFragment(ctx, uploadURL, position, size, seg, n)
		if err != nil {
			return nil, err
		}
		position += n
	}
	if info == nil {
		// The final fragment committed on an attempt whose response was
		// lost, so fetch the item it produced.
		info, err = f.findLeafItem(ctx, dirID, leaf)
		if err != nil {
			return nil, fmt.Errorf("couldn't read back uploaded item: %w", err)
		}
	}
	return info, nil
}
