package model

import "unsafe"

// ScratchBufferHandle is the bookkeeping record behind a scratch buffer
// request made during operator preparation (spec.md §3,
// "ScratchBufferHandle"). Data is nil until the planner commits an offset
// for it.
type ScratchBufferHandle struct {
	Bytes               int
	OwningOperatorIndex int
	Data                unsafe.Pointer
}
