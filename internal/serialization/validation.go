package serialization

import (
	"fmt"
	"sort"
	"strings"
)

// Validation limits for resource protection.
const (
	MaxHeaderSize    = 100 * 1024 * 1024 // 100MB - maximum header size
	MaxTensorCount   = 100_000           // Maximum number of tensors in a file
	MaxTensorNameLen = 4096              // Maximum tensor name length
)

// validateOffsets checks for negative, out-of-bounds and overlapping tensor
// regions and for data sizes that disagree with dtype and shape.
func validateOffsets(tensors map[string]TensorInfo, dataSize int64) error {
	if len(tensors) > MaxTensorCount {
		return &ValidationError{
			Type:    "too_many_tensors",
			Details: fmt.Sprintf("got %d, max %d", len(tensors), MaxTensorCount),
		}
	}

	names := make([]string, 0, len(tensors))
	for name := range tensors {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := tensors[names[i]].DataOffsets, tensors[names[j]].DataOffsets
		if a[0] != b[0] {
			return a[0] < b[0]
		}
		return names[i] < names[j]
	})

	for i, name := range names {
		info := tensors[name]
		start, end := info.DataOffsets[0], info.DataOffsets[1]
		if start < 0 || end < start {
			return &ValidationError{
				Type:    "negative_offset",
				Tensor:  name,
				Details: fmt.Sprintf("offsets [%d, %d]", start, end),
			}
		}
		if end > dataSize {
			return &ValidationError{
				Type:    "out_of_bounds",
				Tensor:  name,
				Details: fmt.Sprintf("end %d > data_size %d", end, dataSize),
			}
		}
		if want, ok := info.byteSize(); ok && want != end-start {
			return &ValidationError{
				Type:    "size_mismatch",
				Tensor:  name,
				Details: fmt.Sprintf("%s %v needs %d bytes, region holds %d", info.DType, info.Shape, want, end-start),
			}
		}
		if i < len(names)-1 {
			next := names[i+1]
			if end > tensors[next].DataOffsets[0] {
				return &ValidationError{
					Type:    "offset_overlap",
					Tensor:  name,
					Tensor2: next,
					Details: fmt.Sprintf("region [%d-%d] overlaps start %d", start, end, tensors[next].DataOffsets[0]),
				}
			}
		}
	}
	return nil
}

// ValidateTensorName rejects names that are empty, too long or carry control bytes.
// Parameter names such as "layer1.0.conv1.weight" are accepted.
func ValidateTensorName(name string) error {
	if name == "" {
		return &ValidationError{Type: "invalid_name", Details: "empty tensor name"}
	}
	if len(name) > MaxTensorNameLen {
		return &ValidationError{
			Type:    "name_too_long",
			Tensor:  name,
			Details: fmt.Sprintf("length %d > max %d", len(name), MaxTensorNameLen),
		}
	}
	if strings.Contains(name, "\x00") {
		return &ValidationError{
			Type:    "invalid_name",
			Tensor:  name,
			Details: "contains null byte",
		}
	}
	return nil
}
