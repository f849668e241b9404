// Package autodiff holds the gradient-recording state shared by a training
// loop and the importance scorer.
//
// The scorer never differentiates anything. It only has to make sure that the
// tensors it materializes (reshaped views, merged LoRA weights) are not
// recorded on the tape that the surrounding training loop replays in its
// backward pass.
package autodiff

import "github.com/born-ml/born-prune/internal/tensor"

// Operation is a recorded tensor operation.
type Operation interface {
	// Kind names the operation (e.g. "reshape", "add", "matmul").
	Kind() string

	// Inputs returns the input tensors for this operation.
	Inputs() []*tensor.RawTensor

	// Output returns the output tensor produced by this operation.
	Output() *tensor.RawTensor
}

type op struct {
	kind   string
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
}

func (o *op) Kind() string                { return o.kind }
func (o *op) Inputs() []*tensor.RawTensor { return o.inputs }
func (o *op) Output() *tensor.RawTensor   { return o.output }

// NewOp returns an Operation describing output = kind(inputs...).
func NewOp(kind string, output *tensor.RawTensor, inputs ...*tensor.RawTensor) Operation {
	return &op{kind: kind, inputs: inputs, output: output}
}

// GradientTape records operations during the forward pass.
//
// Usage:
//
//	tape := NewGradientTape()
//	tape.StartRecording()
//	// ... perform operations ...
//	err := NoGrad(tape, func() error { return scoreSomething() })
type GradientTape struct {
	operations []Operation // Recorded operations (in execution order)
	recording  bool        // Whether tape is currently recording
}

// NewGradientTape creates a new gradient tape.
func NewGradientTape() *GradientTape {
	return &GradientTape{
		operations: make([]Operation, 0, 64), // Pre-allocate for common case
		recording:  false,
	}
}

// StartRecording enables operation recording.
func (t *GradientTape) StartRecording() {
	t.recording = true
}

// StopRecording disables operation recording.
func (t *GradientTape) StopRecording() {
	t.recording = false
}

// IsRecording returns true if the tape is currently recording operations.
// A nil tape never records.
func (t *GradientTape) IsRecording() bool {
	return t != nil && t.recording
}

// Record adds an operation to the tape.
// Only records if the tape is currently recording. Safe on a nil tape.
func (t *GradientTape) Record(op Operation) {
	if t.IsRecording() {
		t.operations = append(t.operations, op)
	}
}

// Len returns the number of recorded operations.
func (t *GradientTape) Len() int {
	if t == nil {
		return 0
	}
	return len(t.operations)
}

// Operations returns the recorded operations in execution order.
func (t *GradientTape) Operations() []Operation {
	if t == nil {
		return nil
	}
	return t.operations
}

// Clear resets the tape, removing all recorded operations.
// Recording state is preserved.
func (t *GradientTape) Clear() {
	t.operations = t.operations[:0]
}

// NoGrad runs fn with recording disabled on tape.
//
// The previous recording state is restored when fn returns, fails or panics.
// A nil tape runs fn unchanged.
func NoGrad(tape *GradientTape, fn func() error) error {
	if tape == nil {
		return fn()
	}

	wasRecording := tape.recording
	tape.recording = false
	defer func() {
		tape.recording = wasRecording
	}()

	return fn()
}
