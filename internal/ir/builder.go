package ir

import "go/token"

// Builder appends instructions to the end of a block.
type Builder struct {
	block *Block
	pos   token.Pos
}

// NewBuilder returns a builder appending to b.
func NewBuilder(b *Block) *Builder { return &Builder{block: b} }

// SetBlock moves the insertion point to the end of b.
func (b *Builder) SetBlock(blk *Block) { b.block = blk }

// SetPos sets the source position given to subsequent instructions.
func (b *Builder) SetPos(pos token.Pos) { b.pos = pos }

func (b *Builder) insert(i *Instruction, typ *Type) *Instruction {
	i.typ = typ
	i.Pos = b.pos
	i.Block = b.block
	if typ != nil && typ.Kind != VoidKind {
		i.name = b.block.Parent.newName()
	}
	b.block.Instrs = append(b.block.Instrs, i)
	return i
}

// Alloca reserves stack memory for a value of type t.
func (b *Builder) Alloca(t *Type, align uint64) *Instruction {
	return b.insert(&Instruction{Op: OpAlloca, Alloc: t, Align: align}, Ptr)
}

// Load reads a value of type t from ptr.
func (b *Builder) Load(t *Type, ptr Value, align uint64) *Instruction {
	return b.insert(&Instruction{Op: OpLoad, Operands: []Value{ptr}, Align: align}, t)
}

// AtomicLoad is Load with atomic ordering.
func (b *Builder) AtomicLoad(t *Type, ptr Value, align uint64) *Instruction {
	i := b.Load(t, ptr, align)
	i.Atomic = true
	return i
}

// Store writes val to ptr.
func (b *Builder) Store(val, ptr Value, align uint64) *Instruction {
	return b.insert(&Instruction{Op: OpStore, Operands: []Value{val, ptr}, Align: align}, Void)
}

// AtomicStore is Store with atomic ordering.
func (b *Builder) AtomicStore(val, ptr Value, align uint64) *Instruction {
	i := b.Store(val, ptr, align)
	i.Atomic = true
	return i
}

// GEP computes an address derived from base. align is the alignment known to
// hold for the result.
func (b *Builder) GEP(base Value, align uint64, indices ...Value) *Instruction {
	ops := append([]Value{base}, indices...)
	return b.insert(&Instruction{Op: OpGEP, Operands: ops, Align: align}, Ptr)
}

// MemCpy copies length bytes from src to dst; the regions must not overlap.
func (b *Builder) MemCpy(dst, src, length Value, align uint64) *Instruction {
	return b.insert(&Instruction{Op: OpMemCpy, Operands: []Value{dst, src, length}, Align: align}, Void)
}

// MemMove copies length bytes from src to dst; the regions may overlap.
func (b *Builder) MemMove(dst, src, length Value, align uint64) *Instruction {
	return b.insert(&Instruction{Op: OpMemMove, Operands: []Value{dst, src, length}, Align: align}, Void)
}

// MemSet fills length bytes at dst with val.
func (b *Builder) MemSet(dst, val, length Value, align uint64) *Instruction {
	return b.insert(&Instruction{Op: OpMemSet, Operands: []Value{dst, val, length}, Align: align}, Void)
}

// CmpXchg atomically replaces the value at ptr with newVal if it equals cmp.
// The result is the success flag.
func (b *Builder) CmpXchg(ptr, cmp, newVal Value) *Instruction {
	return b.insert(&Instruction{Op: OpCmpXchg, Operands: []Value{ptr, cmp, newVal}}, I1)
}

// AtomicRMW atomically applies op to the value at ptr and returns the old
// value.
func (b *Builder) AtomicRMW(op RMWOp, ptr, val Value) *Instruction {
	return b.insert(&Instruction{Op: OpAtomicRMW, Operands: []Value{ptr, val}, RMW: op}, val.Type())
}

// Call calls fn with args.
func (b *Builder) Call(fn *Function, args ...Value) *Instruction {
	ops := append([]Value{fn}, args...)
	return b.insert(&Instruction{Op: OpCall, Operands: ops}, fn.Sig.result())
}

// Binary computes op(x, y).
func (b *Builder) Binary(op BinOp, x, y Value) *Instruction {
	return b.insert(&Instruction{Op: OpBinary, Operands: []Value{x, y}, Bin: op}, x.Type())
}

// Other appends an instruction without memory semantics.
func (b *Builder) Other(text string, t *Type, operands ...Value) *Instruction {
	return b.insert(&Instruction{Op: OpOther, Operands: operands, Text: text}, t)
}

// Ret returns from the function.
func (b *Builder) Ret(vals ...Value) *Instruction {
	return b.insert(&Instruction{Op: OpRet, Operands: vals}, Void)
}
