// Package dircache provides a simple cache for caching directory ID
// to path lookups and the other way around.
package dircache

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/torviolento/fs.onedrivefs/fserrors"
)

// DirCache caches paths to directory IDs and vice versa
//
// Paths are relative to the root, do not start or end with a "/" and
// the root itself is the empty string.
type DirCache struct {
	mu       sync.RWMutex
	cache    map[string]string
	invCache map[string]string
	fs       DirCacher // interface to find and make directories
	rootID   string    // ID of the root directory
}

// DirCacher describes the interface for doing the low level directory work
type DirCacher interface {
	FindLeaf(ctx context.Context, pathID, leaf string) (pathIDOut string, found bool, err error)
	CreateDir(ctx context.Context, pathID, leaf string) (newID string, err error)
}

// New makes a DirCache rooted at the directory with the well known ID
// rootID. No remote calls are made for the root.
//
// The cache is safe for concurrent use.
func New(rootID string, fs DirCacher) *DirCache {
	dc := &DirCache{
		rootID: rootID,
		fs:     fs,
	}
	dc.Flush()
	return dc
}

// Get an ID given a path
func (dc *DirCache) Get(path string) (id string, ok bool) {
	dc.mu.RLock()
	id, ok = dc.cache[path]
	dc.mu.RUnlock()
	return id, ok
}

// GetInv gets a path given an ID
func (dc *DirCache) GetInv(id string) (path string, ok bool) {
	dc.mu.RLock()
	path, ok = dc.invCache[id]
	dc.mu.RUnlock()
	return path, ok
}

// _put a path, id into the map without the lock
func (dc *DirCache) _put(path, id string) {
	dc.cache[path] = id
	dc.invCache[id] = path
}

// Put a known-fresh path, id pair into the cache. Used straight after a
// create or move to avoid a redundant lookup.
func (dc *DirCache) Put(path, id string) {
	dc.mu.Lock()
	dc._put(path, id)
	dc.mu.Unlock()
}

// _flush the map of all data without the lock
func (dc *DirCache) _flush() {
	dc.cache = make(map[string]string)
	dc.invCache = make(map[string]string)
	dc._put("", dc.rootID)
}

// Flush the map of all data
func (dc *DirCache) Flush() {
	dc.mu.Lock()
	dc._flush()
	dc.mu.Unlock()
}

// FlushDir removes the entry for dir and every cached entry below it.
// Once a directory has been deleted or moved the parent linkage of its
// descendants can't be trusted any more.
func (dc *DirCache) FlushDir(dir string) {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	if dir == "" {
		dc._flush()
		return
	}
	if id, ok := dc.cache[dir]; ok {
		delete(dc.cache, dir)
		delete(dc.invCache, id)
	}
	prefix := dir + "/"
	for path, id := range dc.cache {
		if strings.HasPrefix(path, prefix) {
			delete(dc.cache, path)
			delete(dc.invCache, id)
		}
	}
}

// RootID returns the ID of the root directory
func (dc *DirCache) RootID() string {
	return dc.rootID
}

// SplitPath splits a path into directory, leaf
//
// Path shouldn't start or end with a /
//
// If there are no slashes then directory will be "" and leaf = path
func SplitPath(path string) (directory, leaf string) {
	lastSlash := strings.LastIndex(path, "/")
	if lastSlash >= 0 {
		directory = path[:lastSlash]
		leaf = path[lastSlash+1:]
	} else {
		directory = ""
		leaf = path
	}
	return directory, leaf
}

// FindDir finds the directory passed in returning its ID. The empty
// path means the root.
//
// If create is set it will make the directory (and any missing parents)
// if not found.
//
// Algorithm:
//
//	Look in the cache for the path, if found return the pathID
//	If not found strip the last path off the path and recurse
//	Now have a parent directory id, so look in the parent for self and return it
func (dc *DirCache) FindDir(ctx context.Context, path string, create bool) (pathID string, err error) {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	return dc._findDir(ctx, path, create)
}

// Unlocked findDir - must hold the lock
func (dc *DirCache) _findDir(ctx context.Context, path string, create bool) (pathID string, err error) {
	// If it is in the cache then return it
	if pathID, ok := dc.cache[path]; ok {
		return pathID, nil
	}

	// Split the path into directory, leaf
	directory, leaf := SplitPath(path)

	// Recurse and find pathID for the parent directory
	parentPathID, err := dc._findDir(ctx, directory, create)
	if err != nil {
		return "", err
	}

	// Find the leaf in parentPathID
	pathID, found, err := dc.fs.FindLeaf(ctx, parentPathID, leaf)
	if err != nil {
		return "", err
	}

	// If not found create the directory if required or return an error
	if !found {
		if !create {
			return "", fmt.Errorf("%w: directory %q", fserrors.ErrNotFound, path)
		}
		pathID, err = dc.fs.CreateDir(ctx, parentPathID, leaf)
		if err != nil {
			return "", fmt.Errorf("failed to make directory %q: %w", path, err)
		}
	}

	// Store the leaf directory in the cache
	dc._put(path, pathID)

	return pathID, nil
}

// FindPath finds the leaf and directoryID from a path
//
// If create is set parent directories will be created if they don't exist
func (dc *DirCache) FindPath(ctx context.Context, path string, create bool) (leaf, directoryID string, err error) {
	directory, leaf := SplitPath(path)
	directoryID, err = dc.FindDir(ctx, directory, create)
	if err != nil {
		return "", "", fmt.Errorf("couldn't find directory %q: %w", directory, err)
	}
	return leaf, directoryID, nil
}
