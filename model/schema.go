package model

// Schema is the flat, position-independent reader the core consumes a
// serialized model through (spec.md §6, "Serialized model (consumed)").
// The wire format itself — FlatBuffers, GGUF, or anything else a host
// chooses — is an external collaborator; this repository only defines the
// shape a reader must expose.
type Schema interface {
	// SubgraphCount returns the number of subgraphs in the model. The
	// allocator only supports exactly one (spec.md §1, Non-goals); more
	// than one is ErrUnsupportedModel.
	SubgraphCount() int
	Subgraph(index int) SubgraphView

	// OpcodeCount and Opcode resolve an operator's OpcodeIndex (see
	// OperatorView) to the actual op code an OpResolver understands.
	OpcodeCount() int
	Opcode(index int) int32

	// Metadata looks up a named metadata entry's raw bytes, such as the
	// "OfflineMemoryAllocation" table (spec.md §6).
	Metadata(name string) ([]byte, bool)
}

// SubgraphView exposes one subgraph's tensors and operators.
type SubgraphView interface {
	TensorCount() int
	Tensor(index int) TensorView

	OperatorCount() int
	Operator(index int) OperatorView

	// Inputs and Outputs are subgraph-level tensor indices: inputs get
	// FirstUseStep=0, outputs get LastUseStep=last operator index
	// (spec.md §4.2).
	Inputs() []int32
	Outputs() []int32
}

// TensorView describes one tensor as stored in the model.
type TensorView interface {
	Type() ElementType
	Shape() []int32
	Name() string
	IsVariable() bool
	Quantization() QuantizationParams

	// Buffer returns the tensor's constant bytes, or nil if this tensor
	// has no associated buffer (spec.md §3, "a tensor is constant iff the
	// model supplies a non-empty byte buffer for it").
	Buffer() []byte
}

// OperatorView describes one operator invocation within a subgraph.
type OperatorView interface {
	OpcodeIndex() int32
	Inputs() []int32
	Outputs() []int32

	HasBuiltinOptions() bool
	BuiltinOptions() []byte

	HasCustomOptions() bool
	CustomOptions() []byte
}

// OfflineAllocationMetadataName is the metadata entry name the builder
// looks for to find an offline-planned offset table (spec.md §6).
const OfflineAllocationMetadataName = "OfflineMemoryAllocation"
