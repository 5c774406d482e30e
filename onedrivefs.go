// Package onedrivefs adapts the Microsoft OneDrive object graph, where
// every item is addressed by an opaque ID, onto a conventional
// path-addressed filesystem surface.
//
// All operations are safe for concurrent use of one *Fs. The only
// long-lived shared state is the path to item-ID cache; everything
// else is per call.
package onedrivefs

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/torviolento/fs.onedrivefs/api"
	"github.com/torviolento/fs.onedrivefs/fserrors"
	"github.com/torviolento/fs.onedrivefs/lib/dircache"
	"github.com/torviolento/fs.onedrivefs/lib/oauthutil"
	"github.com/torviolento/fs.onedrivefs/lib/pacer"
	"github.com/torviolento/fs.onedrivefs/lib/rest"
)

// Fs represents a remote OneDrive
type Fs struct {
	opt       Options
	logger    zerolog.Logger
	srv       *rest.Client           // authenticated connection to the server
	unAuth    *rest.Client           // unauthenticated connection, for pre-signed URLs
	dirCache  *dircache.DirCache     // map of directory path to directory id
	pacer     *pacer.Pacer           // pacer for API calls
	ts        *oauthutil.TokenSource // may be nil when the caller supplied a bare client
	driveType string                 // personal | business | documentLibrary
	hashKind  HashKind
}

// NewFs constructs an Fs over an already authenticated http.Client.
// The client is expected to attach bearer credentials itself, e.g. an
// oauth2 client; with a bare client every call will come back 401.
func NewFs(ctx context.Context, client *http.Client, opt Options) (*Fs, error) {
	opt, err := opt.withDefaults()
	if err != nil {
		return nil, err
	}
	f := &Fs{
		opt:    opt,
		logger: *opt.Logger,
		srv:    rest.NewClient(client).SetRoot(opt.rootURL()),
		unAuth: rest.NewClient(&http.Client{}),
		pacer: pacer.New(
			pacer.MinSleep(opt.MinSleep),
			pacer.MaxSleep(opt.MaxSleep),
			pacer.Retries(opt.Retries),
		),
	}
	f.srv.SetErrorHandler(errorHandler)
	f.unAuth.SetErrorHandler(errorHandler)

	// Get the drive metadata to learn the drive type and check the
	// credential actually works.
	var drive api.Drive
	opts := rest.Opts{
		Method: "GET",
		Path:   "",
	}
	err = f.pacer.Call(func() (bool, error) {
		resp, err := f.srv.CallJSON(ctx, &opts, nil, &drive)
		return f.shouldRetry(ctx, resp, err)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get drive: %w", fserrors.Translate(err, fserrors.OpOther))
	}
	f.driveType = drive.DriveType
	f.hashKind = HashSHA1
	if f.driveType != driveTypePersonal {
		f.hashKind = HashQuickXor
	}

	// Resolve the root item so the cache starts from a real reference.
	rootInfo, _, err := f.readMetaDataForID(ctx, "root")
	if err != nil {
		return nil, fmt.Errorf("failed to get root: %w", fserrors.Translate(err, fserrors.OpOther))
	}
	f.dirCache = dircache.New(rootInfo.ID, f)
	return f, nil
}

// NewFsWithToken constructs an Fs from an oauth2 configuration and a
// previously obtained token, wiring up transparent token refresh. The
// storage may be nil to keep refreshed tokens in memory only.
func NewFsWithToken(ctx context.Context, config *oauth2.Config, token *oauth2.Token, storage oauthutil.TokenStorage, opt Options) (*Fs, error) {
	client, ts, err := oauthutil.NewClient(ctx, config, token, storage)
	if err != nil {
		return nil, fmt.Errorf("failed to configure OneDrive: %w", err)
	}
	f, err := NewFs(ctx, client, opt)
	if err != nil {
		return nil, err
	}
	f.ts = ts
	return f, nil
}

// String converts this Fs to a string
func (f *Fs) String() string {
	if f.opt.DriveID == "" {
		return "OneDrive default drive"
	}
	return fmt.Sprintf("OneDrive drive %q", f.opt.DriveID)
}

// HashKind returns the content hash algorithm this drive reports.
func (f *Fs) HashKind() HashKind {
	return f.hashKind
}

// shouldRetry returns a boolean as to whether this resp and err deserve
// to be retried. It returns the err as a convenience.
func (f *Fs) shouldRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if fserrors.ContextError(ctx, &err) {
		return false, err
	}
	retry := false
	if resp != nil {
		switch resp.StatusCode {
		case http.StatusUnauthorized:
			// The remote considers the token stale even though the
			// local expiry didn't. Mark it expired so the transport
			// refreshes it, then retry this one call. Concurrent 401s
			// share the single refresh behind the token source lock.
			if f.ts != nil {
				f.ts.Expire()
				retry = true
				f.logger.Debug().Msg("token rejected, marked expired for refresh")
			}
		case http.StatusTooManyRequests, http.StatusServiceUnavailable:
			if values := resp.Header["Retry-After"]; len(values) == 1 && values[0] != "" {
				retryAfter, parseErr := strconv.Atoi(values[0])
				if parseErr != nil {
					f.logger.Debug().Str("retry-after", values[0]).Err(parseErr).Msg("failed to parse Retry-After")
				} else {
					err = pacer.RetryAfterError(err, time.Duration(retryAfter)*time.Second)
					retry = true
				}
			}
		case http.StatusInsufficientStorage:
			return false, fserrors.NoRetryError(err)
		}
	}
	return retry || fserrors.ShouldRetry(err) || fserrors.ShouldRetryHTTP(resp), err
}

// errorHandler parses a non 2xx error response into an error
func errorHandler(resp *http.Response) error {
	// Decode error response
	errResponse := new(api.Error)
	err := rest.DecodeJSON(resp, &errResponse)
	if err != nil {
		errResponse.ErrorInfo.Message = fmt.Sprintf("undecodable error response: %v", err)
	}
	errResponse.StatusCode = resp.StatusCode
	if errResponse.ErrorInfo.Code == "" {
		errResponse.ErrorInfo.Code = resp.Status
	}
	return errResponse
}

// normalizePath turns a caller supplied path into the internal form:
// no leading or trailing slash, "" for the root. "." and ".." segments
// and empty segments are rejected.
func normalizePath(p string) (string, error) {
	trimmed := strings.Trim(p, "/")
	if trimmed == "" {
		return "", nil
	}
	for _, segment := range strings.Split(trimmed, "/") {
		switch segment {
		case "", ".", "..":
			return "", fmt.Errorf("%w: invalid path %q", fserrors.ErrInvalidArgument, p)
		}
	}
	return trimmed, nil
}

// ------------------------------------------------------------

// readMetaDataForID reads the metadata for the item with the given ID
func (f *Fs) readMetaDataForID(ctx context.Context, id string) (info *api.Item, resp *http.Response, err error) {
	opts := rest.Opts{
		Method: "GET",
		Path:   "/items/" + id,
	}
	err = f.pacer.Call(func() (bool, error) {
		resp, err = f.srv.CallJSON(ctx, &opts, nil, &info)
		return f.shouldRetry(ctx, resp, err)
	})
	return info, resp, err
}

// listAllFn is called for each item found by listAll. Returning an
// error stops the listing.
type listAllFn func(*api.Item) error

// listAll lists the children of the directory with ID dirID, calling
// fn on each one. Each call starts a fresh pagination sequence and
// follows continuation links until a page arrives without one.
//
// Items the remote reports more than once across adjacent pages are
// delivered only once, and deleted items are skipped.
func (f *Fs) listAll(ctx context.Context, dirID string, fn listAllFn) error {
	opts := rest.Opts{
		Method:     "GET",
		Path:       "/items/" + dirID + "/children",
		Parameters: url.Values{"$top": {strconv.FormatInt(f.opt.ListChunk, 10)}},
	}
	seen := make(map[string]struct{})
	for {
		var result api.ListChildrenResponse
		var resp *http.Response
		var err error
		err = f.pacer.Call(func() (bool, error) {
			resp, err = f.srv.CallJSON(ctx, &opts, nil, &result)
			return f.shouldRetry(ctx, resp, err)
		})
		if err != nil {
			return fmt.Errorf("couldn't list files: %w", err)
		}
		for i := range result.Value {
			item := &result.Value[i]
			if item.Deleted != nil {
				continue
			}
			if _, dup := seen[item.ID]; dup {
				continue
			}
			seen[item.ID] = struct{}{}
			if err := fn(item); err != nil {
				return err
			}
		}
		if result.NextLink == "" {
			break
		}
		opts.Path = ""
		opts.Parameters = nil
		opts.RootURL = result.NextLink
	}
	return nil
}

// findLeafItem finds the item named leaf in the directory with ID
// dirID, matching names the way OneDrive does, case-insensitively but
// preferring an exact match. Two distinct items claiming the same name
// should not happen server side; when it does the lookup fails rather
// than guesses.
func (f *Fs) findLeafItem(ctx context.Context, dirID, leaf string) (*api.Item, error) {
	var exact, folded []*api.Item
	err := f.listAll(ctx, dirID, func(item *api.Item) error {
		if item.Name == leaf {
			exact = append(exact, item)
		} else if strings.EqualFold(item.Name, leaf) {
			folded = append(folded, item)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	switch {
	case len(exact) == 1:
		return exact[0], nil
	case len(exact) > 1:
		return nil, fmt.Errorf("%w: %d items named %q in directory %s", fserrors.ErrIntegrity, len(exact), leaf, dirID)
	case len(folded) == 1:
		return folded[0], nil
	case len(folded) > 1:
		return nil, fmt.Errorf("%w: %d items case-folding to %q in directory %s", fserrors.ErrIntegrity, len(folded), leaf, dirID)
	}
	return nil, fmt.Errorf("%w: %q", fserrors.ErrNotFound, leaf)
}

// FindLeaf finds a directory of name leaf in the directory with ID
// dirID. It implements dircache.DirCacher.
func (f *Fs) FindLeaf(ctx context.Context, dirID, leaf string) (string, bool, error) {
	item, err := f.findLeafItem(ctx, dirID, leaf)
	if err != nil {
		if errors.Is(err, fserrors.ErrNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	if !item.IsFolder() {
		return "", false, fmt.Errorf("%w: %q is a file", fserrors.ErrNotDir, leaf)
	}
	return item.ID, true, nil
}

// CreateDir makes a directory with dirID as parent and name leaf. It
// implements dircache.DirCacher.
func (f *Fs) CreateDir(ctx context.Context, dirID, leaf string) (string, error) {
	var resp *http.Response
	var info *api.Item
	opts := rest.Opts{
		Method: "POST",
		Path:   "/items/" + dirID + "/children",
	}
	mkdir := api.CreateItemRequest{
		Name:             leaf,
		ConflictBehavior: "fail",
	}
	var err error
	err = f.pacer.Call(func() (bool, error) {
		resp, err = f.srv.CallJSON(ctx, &opts, &mkdir, &info)
		return f.shouldRetry(ctx, resp, err)
	})
	if err != nil {
		return "", err
	}
	return info.ID, nil
}

// hasCachedPrefix reports whether dir or any of its ancestors below
// the root is held in the path cache. When nothing was cached the
// whole resolution came fresh off the server and a NotFound from it is
// authoritative.
func (f *Fs) hasCachedPrefix(dir string) bool {
	for dir != "" {
		if _, ok := f.dirCache.Get(dir); ok {
			return true
		}
		dir, _ = dircache.SplitPath(dir)
	}
	return false
}

// flushBranch invalidates the whole cached branch containing path, so
// that a retry re-resolves every level from the root reference. Any
// entry on the branch may be the stale one, not just the deepest.
func (f *Fs) flushBranch(path string) {
	if path == "" {
		return
	}
	if i := strings.Index(path, "/"); i >= 0 {
		path = path[:i]
	}
	f.dirCache.FlushDir(path)
}

// withDirID resolves dir to its ID and hands it to fn.
//
// If the resolution or fn reports NotFound even though part of the
// path was served from the cache, a cached directory may have been
// deleted or moved behind our back: the branch is dropped and the
// whole thing retried once against fresh lookups.
func (f *Fs) withDirID(ctx context.Context, dir string, create bool, fn func(directoryID string) error) error {
	cached := f.hasCachedPrefix(dir)
	dirID, err := f.dirCache.FindDir(ctx, dir, create)
	if err == nil {
		if err = fn(dirID); err == nil {
			return nil
		}
	}
	if !cached || !errors.Is(fserrors.Translate(err, fserrors.OpOther), fserrors.ErrNotFound) {
		return err
	}
	f.logger.Debug().Str("dir", dir).Msg("stale cache suspected, re-resolving")
	f.flushBranch(dir)
	dirID, err = f.dirCache.FindDir(ctx, dir, create)
	if err != nil {
		return err
	}
	return fn(dirID)
}

// withParent resolves path's parent directory and hands fn the leaf
// name and the parent ID, with the same stale branch retry as
// withDirID.
func (f *Fs) withParent(ctx context.Context, path string, create bool, fn func(leaf, directoryID string) error) error {
	dir, leaf := dircache.SplitPath(path)
	return f.withDirID(ctx, dir, create, func(directoryID string) error {
		return fn(leaf, directoryID)
	})
}

// findPath resolves path's parent directory, returning the leaf name
// and the parent ID. Unlike the resolution fused into withParent this
// doesn't dereference the ID, so a cache hit is returned as is; use it
// where the follow-up call can't be replayed, and pair it with
// flushBranch when that call comes back NotFound.
func (f *Fs) findPath(ctx context.Context, path string, create bool) (leaf, directoryID string, err error) {
	err = f.withParent(ctx, path, create, func(l, id string) error {
		leaf, directoryID = l, id
		return nil
	})
	return leaf, directoryID, err
}

// resolveItem resolves a normalized path to its remote item record,
// retrying once through withParent when the cache turns out stale.
func (f *Fs) resolveItem(ctx context.Context, path string) (*api.Item, error) {
	if path == "" {
		info, _, err := f.readMetaDataForID(ctx, f.dirCache.RootID())
		return info, err
	}
	var item *api.Item
	err := f.withParent(ctx, path, false, func(leaf, directoryID string) error {
		var err error
		item, err = f.findLeafItem(ctx, directoryID, leaf)
		return err
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// deleteObject removes an object by ID
func (f *Fs) deleteObject(ctx context.Context, id string) error {
	opts := rest.Opts{
		Method:     "DELETE",
		Path:       "/items/" + id,
		NoResponse: true,
	}
	return f.pacer.Call(func() (bool, error) {
		resp, err := f.srv.Call(ctx, &opts)
		return f.shouldRetry(ctx, resp, err)
	})
}

// ------------------------------------------------------------

// List enumerates the directory at dir, returning an entry for each
// child. Subdirectory IDs found on the way are cached for later path
// resolution.
func (f *Fs) List(ctx context.Context, dir string) (entries []*FileInfo, err error) {
	dir, err = normalizePath(dir)
	if err != nil {
		return nil, err
	}
	err = f.withDirID(ctx, dir, false, func(directoryID string) error {
		entries = entries[:0]
		return f.listAll(ctx, directoryID, func(item *api.Item) error {
			if item.Package != nil && item.Package.Type == api.PackageTypeOneNote {
				// OneNote items have no downloadable content, so
				// pretend they aren't there.
				return nil
			}
			if item.IsFolder() {
				remote := item.Name
				if dir != "" {
					remote = dir + "/" + item.Name
				}
				f.dirCache.Put(remote, item.ID)
			}
			entries = append(entries, f.itemToFileInfo(item))
			return nil
		})
	})
	if err != nil {
		return nil, fserrors.Translate(err, fserrors.OpOther)
	}
	return entries, nil
}

// Stat returns the metadata for the item at path.
func (f *Fs) Stat(ctx context.Context, path string) (*FileInfo, error) {
	path, err := normalizePath(path)
	if err != nil {
		return nil, err
	}
	item, err := f.resolveItem(ctx, path)
	if err != nil {
		return nil, fserrors.Translate(err, fserrors.OpOther)
	}
	info := f.itemToFileInfo(item)
	if path == "" {
		info.IsRoot = true
		info.Name = "/"
	}
	return info, nil
}

// Exists reports whether an item exists at path.
func (f *Fs) Exists(ctx context.Context, path string) (bool, error) {
	_, err := f.Stat(ctx, path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fserrors.ErrNotFound) {
		return false, nil
	}
	return false, err
}

// Mkdir creates the directory at dir, making parents as needed.
// Creating a directory which already exists is not an error, but a
// file occupying the name fails with ErrNotDir.
func (f *Fs) Mkdir(ctx context.Context, dir string) error {
	dir, err := normalizePath(dir)
	if err != nil {
		return err
	}
	err = f.withDirID(ctx, dir, true, func(string) error { return nil })
	return fserrors.Translate(err, fserrors.OpCreate)
}

// Remove deletes the file at path. Directories fail with ErrIsDir;
// use Rmdir or Purge for those.
func (f *Fs) Remove(ctx context.Context, path string) error {
	path, err := normalizePath(path)
	if err != nil {
		return err
	}
	item, err := f.resolveItem(ctx, path)
	if err != nil {
		return fserrors.Translate(err, fserrors.OpOther)
	}
	if item.IsFolder() {
		return fmt.Errorf("%w: %q", fserrors.ErrIsDir, path)
	}
	return fserrors.Translate(f.deleteObject(ctx, item.ID), fserrors.OpOther)
}

// purgeCheck removes the directory dir. If check is set it refuses to
// do so if it has anything in.
func (f *Fs) purgeCheck(ctx context.Context, dir string, check bool) error {
	dir, err := normalizePath(dir)
	if err != nil {
		return err
	}
	if dir == "" {
		return fmt.Errorf("%w: can't remove root directory", fserrors.ErrInvalidArgument)
	}
	item, err := f.resolveItem(ctx, dir)
	if err != nil {
		return fserrors.Translate(err, fserrors.OpOther)
	}
	if !item.IsFolder() {
		return fmt.Errorf("%w: %q", fserrors.ErrNotDir, dir)
	}
	if check {
		err = f.listAll(ctx, item.ID, func(*api.Item) error {
			return fserrors.ErrDirNotEmpty
		})
		if err != nil {
			return fserrors.Translate(err, fserrors.OpOther)
		}
	}
	err = f.deleteObject(ctx, item.ID)
	if err != nil {
		return fserrors.Translate(err, fserrors.OpOther)
	}
	f.dirCache.FlushDir(dir)
	return nil
}

// Rmdir removes the directory at dir. It must be empty.
func (f *Fs) Rmdir(ctx context.Context, dir string) error {
	return f.purgeCheck(ctx, dir, true)
}

// Purge removes the directory at dir and everything in it.
func (f *Fs) Purge(ctx context.Context, dir string) error {
	return f.purgeCheck(ctx, dir, false)
}

// Move renames or reparents the item at src to dst. The timestamps
// are preserved through the move. Cached entries under src are
// invalidated and the moved item is re-registered under dst.
func (f *Fs) Move(ctx context.Context, src, dst string) error {
	src, err := normalizePath(src)
	if err != nil {
		return err
	}
	dst, err = normalizePath(dst)
	if err != nil {
		return err
	}
	if src == "" || dst == "" {
		return fmt.Errorf("%w: can't move the root directory", fserrors.ErrInvalidArgument)
	}
	srcItem, err := f.resolveItem(ctx, src)
	if err != nil {
		return fserrors.Translate(err, fserrors.OpOther)
	}
	dstLeaf, dstDirID, err := f.findPath(ctx, dst, true)
	if err != nil {
		return fserrors.Translate(err, fserrors.OpCreate)
	}

	opts := rest.Opts{
		Method: "PATCH",
		Path:   "/items/" + srcItem.ID,
	}
	move := api.MoveItemRequest{
		Name:            dstLeaf,
		ParentReference: &api.ItemReference{ID: dstDirID},
		// The mod time gets reset otherwise
		FileSystemInfo: &api.FileSystemInfoFacet{
			CreatedDateTime:      srcItem.CreatedDateTime,
			LastModifiedDateTime: srcItem.LastModifiedDateTime,
		},
	}
	if fsi := srcItem.FileSystemInfo; fsi != nil {
		move.FileSystemInfo = fsi
	}
	var resp *http.Response
	var info api.Item
	err = f.pacer.Call(func() (bool, error) {
		resp, err = f.srv.CallJSON(ctx, &opts, &move, &info)
		return f.shouldRetry(ctx, resp, err)
	})
	if err != nil {
		err = fserrors.Translate(err, fserrors.OpMove)
		if errors.Is(err, fserrors.ErrNotFound) {
			// Either the source vanished or the cached destination
			// parent is dead; drop the branch so the next call
			// re-resolves it.
			f.flushBranch(dst)
		}
		return err
	}

	if srcItem.IsFolder() {
		f.dirCache.FlushDir(src)
		f.dirCache.Put(dst, info.ID)
	}
	return nil
}

// Copy copies the file at src to dst using a server side copy. The
// remote runs the copy as an asynchronous job which is polled until
// it finishes.
func (f *Fs) Copy(ctx context.Context, src, dst string) error {
	src, err := normalizePath(src)
	if err != nil {
		return err
	}
	dst, err = normalizePath(dst)
	if err != nil {
		return err
	}
	if strings.EqualFold(src, dst) {
		return fmt.Errorf("%w: can't copy %q onto itself", fserrors.ErrInvalidArgument, src)
	}
	srcItem, err := f.resolveItem(ctx, src)
	if err != nil {
		return fserrors.Translate(err, fserrors.OpOther)
	}
	if srcItem.IsFolder() {
		return fmt.Errorf("%w: %q", fserrors.ErrIsDir, src)
	}
	dstLeaf, dstDirID, err := f.findPath(ctx, dst, true)
	if err != nil {
		return fserrors.Translate(err, fserrors.OpCreate)
	}

	opts := rest.Opts{
		Method:       "POST",
		Path:         "/items/" + srcItem.ID + "/copy",
		ExtraHeaders: map[string]string{"Prefer": "respond-async"},
		NoResponse:   true,
	}
	copyReq := api.CopyItemRequest{
		Name:            &dstLeaf,
		ParentReference: api.ItemReference{ID: dstDirID},
	}
	var resp *http.Response
	err = f.pacer.Call(func() (bool, error) {
		resp, err = f.srv.CallJSON(ctx, &opts, &copyReq, nil)
		return f.shouldRetry(ctx, resp, err)
	})
	if err != nil {
		err = fserrors.Translate(err, fserrors.OpMove)
		if errors.Is(err, fserrors.ErrNotFound) {
			f.flushBranch(dst)
		}
		return err
	}

	location := resp.Header.Get("Location")
	if location == "" {
		return fmt.Errorf("%w: didn't receive location header in copy response", fserrors.ErrIntegrity)
	}
	if err := f.waitForJob(ctx, location); err != nil {
		return fserrors.Translate(err, fserrors.OpOther)
	}
	return nil
}

// waitForJob polls the async job monitor URL until the job completes
// or the job timeout passes. The monitor URL is pre-signed so it is
// fetched without credentials.
func (f *Fs) waitForJob(ctx context.Context, location string) error {
	deadline := time.Now().Add(f.opt.JobTimeout)
	for time.Now().Before(deadline) {
		opts := rest.Opts{
			Method:       "GET",
			RootURL:      location,
			IgnoreStatus: true,
		}
		var status api.AsyncOperationStatus
		var resp *http.Response
		var err error
		err = f.pacer.Call(func() (bool, error) {
			resp, err = f.unAuth.CallJSON(ctx, &opts, nil, &status)
			return f.shouldRetry(ctx, resp, err)
		})
		if err != nil {
			return err
		}
		switch status.Status {
		case "failed", "deleteFailed":
			return fmt.Errorf("%w: async operation returned %q (%s)", fserrors.ErrUnavailable, status.Status, status.ErrorCode)
		case "completed":
			return nil
		}
		f.logger.Debug().Stringer("status", status).Msg("waiting for async job")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
	return fmt.Errorf("%w: async operation didn't complete after %v", fserrors.ErrUnavailable, f.opt.JobTimeout)
}

// SetModTime sets the modification time on the item at path.
func (f *Fs) SetModTime(ctx context.Context, path string, modTime time.Time) error {
	path, err := normalizePath(path)
	if err != nil {
		return err
	}
	item, err := f.resolveItem(ctx, path)
	if err != nil {
		return fserrors.Translate(err, fserrors.OpOther)
	}
	opts := rest.Opts{
		Method: "PATCH",
		Path:   "/items/" + item.ID,
	}
	update := toFileSystemInfoPatch(time.Time{}, modTime)
	err = f.pacer.Call(func() (bool, error) {
		resp, err := f.srv.CallJSON(ctx, &opts, &update, nil)
		return f.shouldRetry(ctx, resp, err)
	})
	return fserrors.Translate(err, fserrors.OpOther)
}

// About gets quota information for the drive.
func (f *Fs) About(ctx context.Context) (*Usage, error) {
	var drive api.Drive
	opts := rest.Opts{
		Method: "GET",
		Path:   "",
	}
	var resp *http.Response
	var err error
	err = f.pacer.Call(func() (bool, error) {
		resp, err = f.srv.CallJSON(ctx, &opts, nil, &drive)
		return f.shouldRetry(ctx, resp, err)
	})
	if err != nil {
		return nil, fserrors.Translate(err, fserrors.OpOther)
	}
	q := drive.Quota
	usage := &Usage{
		Total:   q.Total,
		Used:    q.Used,
		Trashed: q.Deleted,
		Free:    q.Remaining,
	}
	return usage, nil
}

// DirCacheFlush resets the directory cache. Mostly useful in testing
// and when another client is known to have changed the remote.
func (f *Fs) DirCacheFlush() {
	f.dirCache.Flush()
}
