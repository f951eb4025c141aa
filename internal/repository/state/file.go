package state

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/gpufan/internal/config"
	"github.com/oshokin/gpufan/internal/domain/fan"
)

// Repository defines persistence operations for the takeover marker.
type Repository interface {
	Load(ctx context.Context) (*fan.Takeover, error)
	Save(ctx context.Context, takeover *fan.Takeover) error
	Remove(ctx context.Context) error
}

// FileRepository persists the takeover marker to a JSON file on disk.
// The document is a google.protobuf.Struct rendered with protojson.
type FileRepository struct {
	// path is the filesystem location of the marker.
	path string
	// mu protects concurrent access to the marker file.
	mu sync.Mutex
}

const (
	fieldTimestamp   = "timestamp"
	fieldPID         = "pid"
	fieldHostname    = "hostname"
	fieldDeviceCount = "device_count"
)

var (
	// ErrNotFound is returned when no marker exists.
	ErrNotFound = errors.New("takeover marker not found")
	// errMalformed is returned when the marker misses required fields.
	errMalformed = errors.New("malformed takeover marker")
)

// NewFileRepository creates a repository that reads/writes JSON at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Load reads the marker from disk.
func (r *FileRepository) Load(_ context.Context) (*fan.Takeover, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read takeover marker: %w", err)
	}

	var document structpb.Struct
	if err = protojson.Unmarshal(contents, &document); err != nil {
		return nil, fmt.Errorf("decode takeover marker: %w", err)
	}

	return fromStruct(&document)
}

// Save writes the marker to disk.
func (r *FileRepository) Save(_ context.Context, takeover *fan.Takeover) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	document, err := toStruct(takeover)
	if err != nil {
		return fmt.Errorf("encode takeover marker: %w", err)
	}

	marshalOptions := protojson.MarshalOptions{
		Multiline: true,
	}

	data, err := marshalOptions.Marshal(document)
	if err != nil {
		return fmt.Errorf("encode takeover marker: %w", err)
	}

	if err = os.WriteFile(r.path, data, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write takeover marker: %w", err)
	}

	return nil
}

// Remove deletes the marker. A missing marker is not an error.
func (r *FileRepository) Remove(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.Remove(r.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove takeover marker: %w", err)
	}

	return nil
}

// toStruct converts the takeover into a protobuf Struct.
func toStruct(takeover *fan.Takeover) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		fieldTimestamp:   takeover.Timestamp.UTC().Format(time.RFC3339Nano),
		fieldPID:         takeover.PID,
		fieldHostname:    takeover.Hostname,
		fieldDeviceCount: takeover.DeviceCount,
	})
}

// fromStruct converts a protobuf Struct into the takeover.
func fromStruct(document *structpb.Struct) (*fan.Takeover, error) {
	fields := document.GetFields()

	pid, ok := fields[fieldPID]
	if !ok {
		return nil, fmt.Errorf("%w: %s is missing", errMalformed, fieldPID)
	}

	deviceCount, ok := fields[fieldDeviceCount]
	if !ok {
		return nil, fmt.Errorf("%w: %s is missing", errMalformed, fieldDeviceCount)
	}

	takeover := &fan.Takeover{
		PID:         int(pid.GetNumberValue()),
		Hostname:    fields[fieldHostname].GetStringValue(),
		DeviceCount: int(deviceCount.GetNumberValue()),
	}

	if ts := fields[fieldTimestamp].GetStringValue(); ts != "" {
		timestamp, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", errMalformed, fieldTimestamp, err)
		}

		takeover.Timestamp = timestamp
	}

	return takeover, nil
}
