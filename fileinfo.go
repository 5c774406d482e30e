package onedrivefs

import (
	"encoding/base64"
	"encoding/hex"
	"strings"
	"time"

	"github.com/torviolento/fs.onedrivefs/api"
)

// HashKind names the content hash OneDrive reports for a drive.
// Personal drives report SHA-1, business drives QuickXorHash.
type HashKind string

// Hash kinds
const (
	HashNone     HashKind = ""
	HashSHA1     HashKind = "sha1"
	HashQuickXor HashKind = "quickXorHash"
)

// PhotoInfo carries the EXIF style metadata OneDrive extracts from
// photos. All fields are optional.
type PhotoInfo struct {
	TakenTime           time.Time
	CameraMake          string
	CameraModel         string
	ExposureDenominator float64
	ExposureNumerator   float64
	FNumber             float64
	FocalLength         float64
	ISO                 int64
}

// LocationInfo is the geographic position recorded on an item.
type LocationInfo struct {
	Altitude  float64
	Latitude  float64
	Longitude float64
}

// FileInfo is the canonical, provider-agnostic description of one
// remote file or directory. It is derived from a remote item record
// and never independently persisted.
type FileInfo struct {
	Name     string
	IsDir    bool
	IsRoot   bool
	Size     int64 // bytes, 0 for directories
	Created  time.Time
	Modified time.Time

	// Hash is the lowercase hex content hash, empty when the remote
	// did not report one. HashKind says which algorithm it is.
	Hash     string
	HashKind HashKind

	// ID and ETag identify this exact item and item version remotely.
	ID   string
	ETag string

	MimeType   string
	ChildCount int64 // number of children, directories only

	Photo    *PhotoInfo    // optional
	Location *LocationInfo // optional
}

// itemToFileInfo converts a remote item record into a FileInfo. It is
// total: missing optional fields come out as zero values.
func (f *Fs) itemToFileInfo(item *api.Item) *FileInfo {
	info := &FileInfo{
		Name:     item.Name,
		IsDir:    item.IsFolder(),
		Size:     item.Size,
		Created:  time.Time(item.CreatedDateTime),
		Modified: time.Time(item.LastModifiedDateTime),
		ID:       item.ID,
		ETag:     item.ETag,
	}
	if fsi := item.FileSystemInfo; fsi != nil {
		if t := time.Time(fsi.CreatedDateTime); !t.IsZero() {
			info.Created = t
		}
		if t := time.Time(fsi.LastModifiedDateTime); !t.IsZero() {
			info.Modified = t
		}
	}
	if folder := item.Folder; folder != nil {
		info.Size = 0
		info.ChildCount = folder.ChildCount
	}
	if file := item.File; file != nil {
		info.MimeType = file.MimeType
		info.Hash, info.HashKind = f.itemHash(file)
	}
	if photo := item.Photo; photo != nil {
		info.Photo = &PhotoInfo{
			TakenTime:           time.Time(photo.TakenDateTime),
			CameraMake:          photo.CameraMake,
			CameraModel:         photo.CameraModel,
			ExposureDenominator: photo.ExposureDenominator,
			ExposureNumerator:   photo.ExposureNumerator,
			FNumber:             photo.FNumber,
			FocalLength:         photo.FocalLength,
			ISO:                 photo.ISO,
		}
	}
	if loc := item.Location; loc != nil {
		info.Location = &LocationInfo{
			Altitude:  loc.Altitude,
			Latitude:  loc.Latitude,
			Longitude: loc.Longitude,
		}
	}
	return info
}

// itemHash picks the hash this drive type supports out of the file
// facet, normalising it to lowercase hex.
//
// The QuickXorHash arrives base64 encoded, SHA-1 as uppercase hex. A
// hash that fails to decode is reported as absent rather than wrong.
func (f *Fs) itemHash(file *api.FileFacet) (string, HashKind) {
	if f.hashKind == HashQuickXor {
		if file.Hashes.QuickXorHash == "" {
			return "", HashNone
		}
		h, err := base64.StdEncoding.DecodeString(file.Hashes.QuickXorHash)
		if err != nil {
			f.logger.Debug().Str("hash", file.Hashes.QuickXorHash).Err(err).Msg("failed to decode QuickXorHash")
			return "", HashNone
		}
		return hex.EncodeToString(h), HashQuickXor
	}
	if file.Hashes.Sha1Hash == "" {
		return "", HashNone
	}
	return strings.ToLower(file.Hashes.Sha1Hash), HashSHA1
}

// toFileSystemInfoPatch builds the remote patch payload for the only
// metadata OneDrive allows mutating, the timestamps. OneDrive resets
// timestamps that are left out of the patch, so both are always sent.
func toFileSystemInfoPatch(created, modified time.Time) api.SetFileSystemInfo {
	if created.IsZero() {
		created = modified
	}
	return api.SetFileSystemInfo{
		FileSystemInfo: api.FileSystemInfoFacet{
			CreatedDateTime:      api.Timestamp(created),
			LastModifiedDateTime: api.Timestamp(modified),
		},
	}
}

// Usage describes the quota state of a drive.
type Usage struct {
	Total   int64 // total bytes the drive can hold
	Used    int64 // bytes in use
	Trashed int64 // bytes in the recycle bin
	Free    int64 // bytes remaining
}
