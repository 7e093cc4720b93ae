package adapter

import "context"

// ByteObserver receives transfer deltas from a single download.
type ByteObserver interface {
	OnBytesTransferred(delta int64)
}

// ObjectStorage is the port for the remote object store holding the dataset
// and model packages.
type ObjectStorage interface {
	// HeadSize probes the object size without transferring it.
	HeadSize(ctx context.Context, key string) (int64, error)
	// Download writes the object to localPath, reporting progress to obs.
	Download(ctx context.Context, key, localPath string, obs ByteObserver) error
}
