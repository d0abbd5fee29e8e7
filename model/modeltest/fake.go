// Package modeltest provides a small hand-built model.Schema
// implementation for tests, in place of a mocking framework — the same
// "fake" naming convention the teacher uses for its own test doubles
// (memutils/metadata/fake_granularity_test.go).
package modeltest

import "github.com/tensorarena/arena/model"

// Tensor is a fake model.TensorView.
type Tensor struct {
	ElemType     model.ElementType
	Dims         []int32
	Buf          []byte
	Variable     bool
	TensorName   string
	QuantParams  model.QuantizationParams
}

func (t Tensor) Type() model.ElementType               { return t.ElemType }
func (t Tensor) Shape() []int32                        { return t.Dims }
func (t Tensor) Name() string                          { return t.TensorName }
func (t Tensor) IsVariable() bool                       { return t.Variable }
func (t Tensor) Quantization() model.QuantizationParams { return t.QuantParams }
func (t Tensor) Buffer() []byte                         { return t.Buf }

// Operator is a fake model.OperatorView.
type Operator struct {
	Opcode  int32
	In      []int32
	Out     []int32
	Builtin []byte
	Custom  []byte
}

func (o Operator) OpcodeIndex() int32      { return o.Opcode }
func (o Operator) Inputs() []int32         { return o.In }
func (o Operator) Outputs() []int32        { return o.Out }
func (o Operator) HasBuiltinOptions() bool { return o.Builtin != nil }
func (o Operator) BuiltinOptions() []byte  { return o.Builtin }
func (o Operator) HasCustomOptions() bool  { return o.Custom != nil }
func (o Operator) CustomOptions() []byte   { return o.Custom }

// Subgraph is a fake model.SubgraphView.
type Subgraph struct {
	Tensors   []Tensor
	Operators []Operator
	In        []int32
	Out       []int32
}

func (s Subgraph) TensorCount() int                     { return len(s.Tensors) }
func (s Subgraph) Tensor(i int) model.TensorView         { return s.Tensors[i] }
func (s Subgraph) OperatorCount() int                    { return len(s.Operators) }
func (s Subgraph) Operator(i int) model.OperatorView     { return s.Operators[i] }
func (s Subgraph) Inputs() []int32                       { return s.In }
func (s Subgraph) Outputs() []int32                      { return s.Out }

// Schema is a fake model.Schema backed by in-memory subgraphs.
type Schema struct {
	Subgraphs []Subgraph
	Opcodes   []int32
	Meta      map[string][]byte
}

func (s Schema) SubgraphCount() int                { return len(s.Subgraphs) }
func (s Schema) Subgraph(i int) model.SubgraphView  { return s.Subgraphs[i] }
func (s Schema) OpcodeCount() int                  { return len(s.Opcodes) }
func (s Schema) Opcode(i int) int32                { return s.Opcodes[i] }

func (s Schema) Metadata(name string) ([]byte, bool) {
	b, ok := s.Meta[name]
	return b, ok
}

var _ model.Schema = Schema{}
var _ model.SubgraphView = Subgraph{}
var _ model.TensorView = Tensor{}
var _ model.OperatorView = Operator{}

// Resolver is a fake model.OpResolver backed by a fixed table from opcode
// to registration. Each entry carries its own Prepare (nil for none);
// nothing is shared between entries.
type Resolver struct {
	ByOpCode map[int32]*model.KernelRegistration
}

func (r Resolver) FindOp(opCode int32) (*model.KernelRegistration, error) {
	reg, ok := r.ByOpCode[opCode]
	if !ok {
		return nil, errNotFound(opCode)
	}
	return reg, nil
}

type errNotFound int32

func (e errNotFound) Error() string { return "modeltest: no registration for opcode" }

var _ model.OpResolver = Resolver{}
