package img

import "fmt"

// DatasetLayoutError is returned when an expected split or class directory
// is missing from the dataset root, or present but holds no images.
type DatasetLayoutError struct {
	Root    string
	Missing string
	Empty   bool
}

func (e *DatasetLayoutError) Error() string {
	if e.Empty {
		return fmt.Sprintf("dataset layout: no images in %s under %s", e.Missing, e.Root)
	}
	return fmt.Sprintf("dataset layout: %s not found under %s", e.Missing, e.Root)
}

// ImageDecodeError is returned when an image file cannot be read or decoded.
type ImageDecodeError struct {
	Path string
	Err  error
}

func (e *ImageDecodeError) Error() string {
	return fmt.Sprintf("decode image %s: %v", e.Path, e.Err)
}

func (e *ImageDecodeError) Unwrap() error { return e.Err }
