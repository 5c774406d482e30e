package onedrivefs

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

const (
	graphURL = "https://graph.microsoft.com/v1.0"

	// Uploads above this size must go through an upload session. The
	// Graph simple upload endpoint accepts at most 4 MiB in one PUT.
	maxSinglePartSize = int64(4 * 1024 * 1024)

	// Upload session fragments must be multiples of 320 KiB.
	chunkSizeMultiple = int64(320 * 1024)

	defaultChunkSize    = int64(10 * 1024 * 1024)
	defaultUploadCutoff = maxSinglePartSize
	defaultListChunk    = 1000
	defaultRetries      = 3
	defaultMinSleep     = 10 * time.Millisecond
	defaultMaxSleep     = 2 * time.Second
	defaultJobTimeout   = 5 * time.Minute

	driveTypePersonal = "personal"
)

// Options defines the configuration for this backend
type Options struct {
	// Endpoint is the Graph API root URL. Defaults to the worldwide
	// endpoint; national clouds use a different one.
	Endpoint string

	// DriveID selects the drive to operate on. When empty the signed
	// in user's default drive is used.
	DriveID string

	// ChunkSize is the fragment size for chunked uploads. Must be a
	// multiple of 320 KiB. Defaults to 10 MiB.
	ChunkSize int64

	// UploadCutoff is the size above which uploads switch to a
	// session-based chunked transfer. At most 4 MiB.
	UploadCutoff int64

	// ListChunk is the page size requested when listing children.
	ListChunk int64

	// Retries is the ceiling on transport level retries per call.
	Retries int

	// MinSleep and MaxSleep bound the backoff between retries.
	MinSleep time.Duration
	MaxSleep time.Duration

	// JobTimeout bounds polling for asynchronous remote jobs such as
	// server side copies.
	JobTimeout time.Duration

	// Logger receives debug output. Defaults to a no-op logger.
	Logger *zerolog.Logger
}

// withDefaults fills in zero fields and validates the result.
func (o Options) withDefaults() (Options, error) {
	if o.Endpoint == "" {
		o.Endpoint = graphURL
	}
	if o.ChunkSize == 0 {
		o.ChunkSize = defaultChunkSize
	}
	if o.UploadCutoff == 0 {
		o.UploadCutoff = defaultUploadCutoff
	}
	if o.ListChunk == 0 {
		o.ListChunk = defaultListChunk
	}
	if o.Retries == 0 {
		o.Retries = defaultRetries
	}
	if o.MinSleep == 0 {
		o.MinSleep = defaultMinSleep
	}
	if o.MaxSleep == 0 {
		o.MaxSleep = defaultMaxSleep
	}
	if o.JobTimeout == 0 {
		o.JobTimeout = defaultJobTimeout
	}
	if o.ChunkSize%chunkSizeMultiple != 0 {
		return o, fmt.Errorf("chunk size %d is not a multiple of %d", o.ChunkSize, chunkSizeMultiple)
	}
	if o.ChunkSize <= 0 {
		return o, fmt.Errorf("chunk size %d must be positive", o.ChunkSize)
	}
	if o.UploadCutoff > maxSinglePartSize {
		return o, fmt.Errorf("upload cutoff %d is bigger than the maximum single part upload %d", o.UploadCutoff, maxSinglePartSize)
	}
	if o.Logger == nil {
		nop := zerolog.Nop()
		o.Logger = &nop
	}
	return o, nil
}

// rootURL returns the URL all drive relative paths hang off.
func (o Options) rootURL() string {
	if o.DriveID == "" {
		return o.Endpoint + "/me/drive"
	}
	return o.Endpoint + "/drives/" + o.DriveID
}
