package allocator

import "github.com/launchdarkly/go-jsonstream/v3/jwriter"

// JSONDiagnostics writes a snapshot of the allocator's current state to w:
// lifecycle state, committed byte counters, and one entry per tensor/scratch
// buffer noting whether it has been resolved to a live pointer yet. This is
// the structured form of the "used-bytes counter for diagnostics" named in
// spec.md §6.
func (a *Allocator) JSONDiagnostics(w *jwriter.Writer) {
	obj := w.Object()
	defer obj.End()

	obj.Name("State").String(a.state.String())
	obj.Name("UsedBytes").Int(a.usedBytes)
	obj.Name("HeadBytes").Int(a.arena.HeadUsed())
	obj.Name("TailBytes").Int(a.arena.TailUsed())
	obj.Name("TempBytes").Int(a.arena.TempUsed())
	obj.Name("ScratchCount").Int(len(a.scratchHandles))

	tensors := obj.Name("Tensors").Array()
	for i := range a.evalTensors {
		t := tensors.Object()
		t.Name("Index").Int(i)
		t.Name("IsVariable").Bool(a.evalTensors[i].IsVariable)
		t.Name("IsConstant").Bool(a.evalTensors[i].IsConstant(a.modelBase, a.modelEnd))
		t.Name("HasData").Bool(a.evalTensors[i].Data != nil)
		t.End()
	}
	tensors.End()

	scratch := obj.Name("ScratchBuffers").Array()
	for i := range a.scratchHandles {
		s := scratch.Object()
		s.Name("Index").Int(i)
		s.Name("Bytes").Int(a.scratchHandles[i].Bytes)
		s.Name("OwningOperatorIndex").Int(a.scratchHandles[i].OwningOperatorIndex)
		s.Name("HasData").Bool(a.scratchHandles[i].Data != nil)
		s.End()
	}
	scratch.End()

	suballocations := obj.Name("Suballocations").Array()
	for _, sub := range a.suballocations {
		s := suballocations.Object()
		s.Name("Offset").Int(sub.Offset)
		s.Name("Size").Int(sub.Size)
		s.Name("Kind").String(sub.Kind.String())
		s.End()
	}
	suballocations.End()
}
