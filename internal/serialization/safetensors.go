package serialization

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/born-ml/born-prune/internal/tensor"
)

// SafeTensors format:
// [8 bytes: header_size (uint64 LE)]
// [header_size bytes: JSON header]
// [tensor data: raw bytes]

// DType is a SafeTensors dtype tag.
type DType string

// Supported SafeTensors dtypes.
const (
	F32 DType = "F32"
	F64 DType = "F64"
)

const metadataKey = "__metadata__"

// TensorInfo describes a tensor in the SafeTensors header.
type TensorInfo struct {
	DType       DType    `json:"dtype"`
	Shape       []int    `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"` // [start, end]
}

func (i TensorInfo) byteSize() (int64, bool) {
	dt, err := i.DType.dataType()
	if err != nil {
		return 0, false
	}
	return int64(tensor.Shape(i.Shape).NumElements() * dt.Size()), true
}

func (d DType) dataType() (tensor.DataType, error) {
	switch d {
	case F32:
		return tensor.Float32, nil
	case F64:
		return tensor.Float64, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedDType, d)
	}
}

func dtypeOf(dt tensor.DataType) (DType, error) {
	switch dt {
	case tensor.Float32:
		return F32, nil
	case tensor.Float64:
		return F64, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedDType, dt)
	}
}

// Header is the parsed JSON header of a SafeTensors file.
type Header struct {
	Metadata map[string]string
	Tensors  map[string]TensorInfo
}

// UnmarshalJSON splits the flat header object into metadata and tensor entries.
func (h *Header) UnmarshalJSON(data []byte) error {
	var rawMap map[string]json.RawMessage
	if err := json.Unmarshal(data, &rawMap); err != nil {
		return err
	}

	if metadataRaw, ok := rawMap[metadataKey]; ok {
		if err := json.Unmarshal(metadataRaw, &h.Metadata); err != nil {
			return fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	h.Tensors = make(map[string]TensorInfo, len(rawMap))
	for key, value := range rawMap {
		if key == metadataKey {
			continue
		}
		var info TensorInfo
		if err := json.Unmarshal(value, &info); err != nil {
			return fmt.Errorf("failed to unmarshal tensor %s: %w", key, err)
		}
		h.Tensors[key] = info
	}
	return nil
}

// MarshalJSON writes metadata and tensor entries as one flat object.
func (h Header) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(h.Tensors)+1)
	if len(h.Metadata) > 0 {
		flat[metadataKey] = h.Metadata
	}
	for name, info := range h.Tensors {
		flat[name] = info
	}
	return json.Marshal(flat)
}

// Reader reads tensors from a SafeTensors file.
type Reader struct {
	file       *os.File
	header     Header
	dataOffset int64 // Offset where tensor data starts
}

// NewReader opens path and validates its header.
func NewReader(path string) (*Reader, error) {
	//nolint:gosec // G304: weight files are named by the user
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	r, err := newReader(file)
	if err != nil {
		_ = file.Close() // Best effort close on error
		return nil, err
	}
	return r, nil
}

func newReader(file *os.File) (*Reader, error) {
	stat, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	var headerSize uint64
	if err := binary.Read(file, binary.LittleEndian, &headerSize); err != nil {
		return nil, fmt.Errorf("failed to read header size: %w", err)
	}
	if headerSize > MaxHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrHeaderTooLarge, headerSize)
	}
	//nolint:gosec // G115: bounded by MaxHeaderSize above
	dataOffset := int64(8 + headerSize)
	if dataOffset > stat.Size() {
		return nil, &ValidationError{
			Type:    "truncated",
			Details: fmt.Sprintf("header of %d bytes exceeds file size %d", headerSize, stat.Size()),
		}
	}

	headerBytes := make([]byte, headerSize)
	if _, err := io.ReadFull(file, headerBytes); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	var header Header
	if err := json.Unmarshal(headerBytes, &header); err != nil {
		return nil, fmt.Errorf("failed to parse header JSON: %w", err)
	}
	for name := range header.Tensors {
		if err := ValidateTensorName(name); err != nil {
			return nil, err
		}
	}
	if err := validateOffsets(header.Tensors, stat.Size()-dataOffset); err != nil {
		return nil, err
	}

	return &Reader{file: file, header: header, dataOffset: dataOffset}, nil
}

// Close closes the SafeTensors file.
func (r *Reader) Close() error {
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}

// Metadata returns the metadata map from the header.
func (r *Reader) Metadata() map[string]string {
	return r.header.Metadata
}

// TensorNames returns all tensor names in the file, sorted.
func (r *Reader) TensorNames() []string {
	names := make([]string, 0, len(r.header.Tensors))
	for name := range r.header.Tensors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TensorInfo returns the header entry of a tensor.
func (r *Reader) TensorInfo(name string) (TensorInfo, error) {
	info, ok := r.header.Tensors[name]
	if !ok {
		return TensorInfo{}, fmt.Errorf("%w: %s", ErrTensorNotFound, name)
	}
	return info, nil
}

// LoadTensor reads a tensor as float32. F64 data is narrowed.
func (r *Reader) LoadTensor(name string) (*tensor.RawTensor, error) {
	info, err := r.TensorInfo(name)
	if err != nil {
		return nil, err
	}
	dtype, err := info.DType.dataType()
	if err != nil {
		return nil, fmt.Errorf("tensor %s: %w", name, err)
	}
	shape := tensor.Shape(info.Shape)
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("invalid shape for tensor %s: %w", name, err)
	}

	raw, err := tensor.NewRaw(shape, dtype, tensor.CPU)
	if err != nil {
		return nil, fmt.Errorf("failed to create tensor %s: %w", name, err)
	}
	start := r.dataOffset + info.DataOffsets[0]
	if _, err := r.file.ReadAt(raw.Data(), start); err != nil {
		return nil, fmt.Errorf("failed to read tensor %s: %w", name, err)
	}
	return raw.ToFloat32(), nil
}

// ReadFile loads every tensor of a SafeTensors file.
func ReadFile(path string) (map[string]*tensor.RawTensor, map[string]string, error) {
	r, err := NewReader(path)
	if err != nil {
		return nil, nil, err
	}
	defer func() {
		_ = r.Close() // Best effort close
	}()

	tensors := make(map[string]*tensor.RawTensor, len(r.header.Tensors))
	for _, name := range r.TensorNames() {
		t, err := r.LoadTensor(name)
		if err != nil {
			return nil, nil, err
		}
		tensors[name] = t
	}
	return tensors, r.Metadata(), nil
}

// Writer writes tensors in SafeTensors format.
type Writer struct {
	file   *os.File
	closed bool
}

// NewWriter creates path for writing.
func NewWriter(path string) (*Writer, error) {
	//nolint:gosec // G304: output path is chosen by the user
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	return &Writer{file: file}, nil
}

// WriteFile writes tensors and metadata to path.
func WriteFile(path string, tensors map[string]*tensor.RawTensor, metadata map[string]string) error {
	w, err := NewWriter(path)
	if err != nil {
		return err
	}
	if err := w.WriteStateDict(tensors, metadata); err != nil {
		_ = w.Close() // Best effort close on error
		return err
	}
	return w.Close()
}

// WriteStateDict writes a name-to-tensor map.
// Tensors are laid out in alphabetical order by name.
func (w *Writer) WriteStateDict(stateDict map[string]*tensor.RawTensor, metadata map[string]string) error {
	if w.closed {
		return ErrWriterClosed
	}

	names := make([]string, 0, len(stateDict))
	for name := range stateDict {
		if err := ValidateTensorName(name); err != nil {
			return err
		}
		names = append(names, name)
	}
	sort.Strings(names)

	header := Header{Metadata: metadata, Tensors: make(map[string]TensorInfo, len(names))}
	var offset int64
	for _, name := range names {
		raw := stateDict[name]
		dt, err := dtypeOf(raw.DType())
		if err != nil {
			return fmt.Errorf("tensor %s: %w", name, err)
		}
		size := int64(raw.ByteSize())
		header.Tensors[name] = TensorInfo{
			DType:       dt,
			Shape:       append([]int{}, raw.Shape()...),
			DataOffsets: [2]int64{offset, offset + size},
		}
		offset += size
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}
	if err := binary.Write(w.file, binary.LittleEndian, uint64(len(headerJSON))); err != nil {
		return fmt.Errorf("failed to write header size: %w", err)
	}
	if _, err := w.file.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, name := range names {
		if _, err := w.file.Write(stateDict[name].Data()); err != nil {
			return fmt.Errorf("failed to write tensor %s: %w", name, err)
		}
	}
	return nil
}

// Close closes the writer and the underlying file.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.file.Close()
}
