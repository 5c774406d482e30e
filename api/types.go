// Package api provides types used by the OneDrive Microsoft Graph API.
package api

import (
	"fmt"
	"time"
)

const (
	timeFormat = `"` + "2006-01-02T15:04:05.999Z" + `"`

	// PackageTypeOneNote is the package type value for OneNote files
	PackageTypeOneNote = "oneNote"
)

// Error is returned from OneDrive when things go wrong
type Error struct {
	ErrorInfo struct {
		Code       string `json:"code"`
		Message    string `json:"message"`
		InnerError struct {
			Code string `json:"code"`
		} `json:"innererror"`
	} `json:"error"`
	// StatusCode is the HTTP status the error arrived with. It is not
	// part of the JSON payload so the error handler fills it in.
	StatusCode int `json:"-"`
}

// Error returns a string for the error and satisfies the error interface
func (e *Error) Error() string {
	out := e.ErrorInfo.Code
	if e.ErrorInfo.InnerError.Code != "" {
		out += ": " + e.ErrorInfo.InnerError.Code
	}
	out += ": " + e.ErrorInfo.Message
	return out
}

// HTTPStatus returns the HTTP status code the error arrived with
func (e *Error) HTTPStatus() int {
	return e.StatusCode
}

// ErrorCode returns the OneDrive error code out of the payload
func (e *Error) ErrorCode() string {
	return e.ErrorInfo.Code
}

// Identity represents an identity of an actor
type Identity struct {
	DisplayName string `json:"displayName,omitempty"`
	ID          string `json:"id,omitempty"`
}

// IdentitySet is a keyed collection of Identity objects
type IdentitySet struct {
	User        Identity `json:"user,omitempty"`
	Application Identity `json:"application,omitempty"`
	Device      Identity `json:"device,omitempty"`
}

// Quota groups storage space quota-related information on a drive
type Quota struct {
	Total     int64  `json:"total"`
	Used      int64  `json:"used"`
	Remaining int64  `json:"remaining"`
	Deleted   int64  `json:"deleted"`
	State     string `json:"state"`
}

// Drive is the top level object representing a user's OneDrive
type Drive struct {
	ID        string      `json:"id"`
	DriveType string      `json:"driveType"`
	Owner     IdentitySet `json:"owner"`
	Quota     Quota       `json:"quota"`
}

// Timestamp represents date and time information for the OneDrive API,
// by using ISO 8601 and is always in UTC time.
type Timestamp time.Time

// MarshalJSON turns a Timestamp into JSON (in UTC)
func (t *Timestamp) MarshalJSON() (out []byte, err error) {
	timeString := (*time.Time)(t).UTC().Format(timeFormat)
	return []byte(timeString), nil
}

// UnmarshalJSON turns JSON into a Timestamp
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" || string(data) == `""` {
		*t = Timestamp(time.Time{})
		return nil
	}
	newT, err := time.Parse(timeFormat, string(data))
	if err != nil {
		return err
	}
	*t = Timestamp(newT)
	return nil
}

// ItemReference groups data needed to reference a OneDrive item across
// the service into a single structure.
type ItemReference struct {
	DriveID string `json:"driveId,omitempty"` // Unique identifier for the Drive that contains the item.
	ID      string `json:"id,omitempty"`      // Unique identifier for the item.
	Path    string `json:"path,omitempty"`    // Path that used to navigate to the item.
}

// FolderFacet groups folder-related data on OneDrive into a single structure
type FolderFacet struct {
	ChildCount int64 `json:"childCount"` // Number of children contained immediately within this container.
}

// HashesType groups different types of hashes into a single structure
type HashesType struct {
	Sha1Hash     string `json:"sha1Hash,omitempty"`
	Sha256Hash   string `json:"sha256Hash,omitempty"`
	Crc32Hash    string `json:"crc32Hash,omitempty"`
	QuickXorHash string `json:"quickXorHash,omitempty"`
}

// FileFacet groups file-related data on OneDrive into a single structure
type FileFacet struct {
	MimeType string     `json:"mimeType"` // The MIME type for the file.
	Hashes   HashesType `json:"hashes"`   // Hashes of the file's binary content, if available.
}

// FileSystemInfoFacet contains properties that are reported by the
// device's local file system for the local version of an item.
type FileSystemInfoFacet struct {
	CreatedDateTime      Timestamp `json:"createdDateTime,omitempty"`
	LastModifiedDateTime Timestamp `json:"lastModifiedDateTime,omitempty"`
}

// DeletedFacet indicates that the item on OneDrive has been deleted.
type DeletedFacet struct {
	State string `json:"state"` // Represents the state of the deleted item.
}

// PackageType indicates that a DriveItem is the top level item in a
// "package" such as a OneNote notebook.
type PackageType struct {
	Type string `json:"type"`
}

// PhotoFacet groups photo-related data, e.g. EXIF metadata.
type PhotoFacet struct {
	TakenDateTime       Timestamp `json:"takenDateTime,omitempty"`
	CameraMake          string    `json:"cameraMake,omitempty"`
	CameraModel         string    `json:"cameraModel,omitempty"`
	ExposureDenominator float64   `json:"exposureDenominator,omitempty"`
	ExposureNumerator   float64   `json:"exposureNumerator,omitempty"`
	FNumber             float64   `json:"fNumber,omitempty"`
	FocalLength         float64   `json:"focalLength,omitempty"`
	ISO                 int64     `json:"iso,omitempty"`
}

// LocationFacet groups geographic location data of an item.
type LocationFacet struct {
	Altitude  float64 `json:"altitude,omitempty"`
	Latitude  float64 `json:"latitude,omitempty"`
	Longitude float64 `json:"longitude,omitempty"`
}

// Item represents metadata for an item in OneDrive
type Item struct {
	ID                   string               `json:"id"`   // The unique identifier of the item within the Drive.
	Name                 string               `json:"name"` // The name of the item (filename and extension).
	ETag                 string               `json:"eTag"` // eTag for the entire item (metadata + content).
	CTag                 string               `json:"cTag"` // An eTag for the content of the item.
	CreatedBy            IdentitySet          `json:"createdBy,omitempty"`
	CreatedDateTime      Timestamp            `json:"createdDateTime"`
	LastModifiedDateTime Timestamp            `json:"lastModifiedDateTime"`
	Size                 int64                `json:"size"` // Size of the item in bytes.
	ParentReference      *ItemReference       `json:"parentReference"`
	WebURL               string               `json:"webUrl,omitempty"`
	Description          string               `json:"description,omitempty"`
	Folder               *FolderFacet         `json:"folder,omitempty"`
	File                 *FileFacet           `json:"file,omitempty"`
	FileSystemInfo       *FileSystemInfoFacet `json:"fileSystemInfo,omitempty"`
	Deleted              *DeletedFacet        `json:"deleted,omitempty"`
	Package              *PackageType         `json:"package,omitempty"`
	Photo                *PhotoFacet          `json:"photo,omitempty"`
	Location             *LocationFacet       `json:"location,omitempty"`
}

// IsFolder reports whether the item carries the folder facet
func (i *Item) IsFolder() bool {
	return i.Folder != nil
}

// ListChildrenResponse is the response to the list children method
type ListChildrenResponse struct {
	Value    []Item `json:"value"`
	NextLink string `json:"@odata.nextLink,omitempty"`
}

// CreateItemRequest is the request to create an item object
type CreateItemRequest struct {
	Name             string      `json:"name"` // Name of the folder to be created.
	Folder           FolderFacet `json:"folder"`
	ConflictBehavior string      `json:"@microsoft.graph.conflictBehavior"` // fail, replace, or rename
}

// SetFileSystemInfo is used to Update an object's FileSystemInfo.
type SetFileSystemInfo struct {
	FileSystemInfo FileSystemInfoFacet `json:"fileSystemInfo"`
}

// CreateUploadRequest is used by CreateUploadSession to set the
// conflict behaviour and the dates on the uploaded item.
type CreateUploadRequest struct {
	Item struct {
		ConflictBehavior string               `json:"@microsoft.graph.conflictBehavior"`
		FileSystemInfo   *FileSystemInfoFacet `json:"fileSystemInfo,omitempty"`
	} `json:"item"`
}

// CreateUploadResponse is the response from creating an upload session
type CreateUploadResponse struct {
	UploadURL          string   `json:"uploadUrl"`          // URL to submit byte ranges to
	ExpirationDateTime string   `json:"expirationDateTime"` // when the session expires server side
	NextExpectedRanges []string `json:"nextExpectedRanges"`
}

// UploadFragmentResponse is the response from uploading a fragment
type UploadFragmentResponse struct {
	ExpirationDateTime string   `json:"expirationDateTime"`
	NextExpectedRanges []string `json:"nextExpectedRanges"`
}

// CopyItemRequest is the request to copy an item object
//
// Note: The parentReference should include either an id or path but
// not both.
type CopyItemRequest struct {
	ParentReference ItemReference `json:"parentReference"` // Reference to the parent item the copy will be created in.
	Name            *string       `json:"name,omitempty"`  // Optional The new name for the copy.
}

// MoveItemRequest is the request to move an item object
type MoveItemRequest struct {
	ParentReference *ItemReference       `json:"parentReference,omitempty"` // Reference to the destination parent directory
	Name            string               `json:"name,omitempty"`            // Optional The new name for the moved item
	FileSystemInfo  *FileSystemInfoFacet `json:"fileSystemInfo,omitempty"`  // Preserve the timestamps through the move
}

// AsyncOperationStatus provides information on the status of an
// asynchronous job progress, e.g. a server side copy.
type AsyncOperationStatus struct {
	PercentageComplete float64 `json:"percentageComplete"` // A value between 0 and 100 that indicates the percentage complete.
	Status             string  `json:"status"`             // notStarted | inProgress | completed | updating | failed | deletePending | deleteFailed | waiting
	ErrorCode          string  `json:"errorCode"`          // Set on failure
}

// String returns a debugging representation of the status
func (s AsyncOperationStatus) String() string {
	return fmt.Sprintf("%s (%.0f%%)", s.Status, s.PercentageComplete)
}
