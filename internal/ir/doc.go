// Package ir is a small intermediate representation used by memaccess to
// describe the memory behaviour of a compilation unit.
//
// # Structure
//
//	Module
//	 ├── DataLayout      (type sizes, alignments, legal integer widths)
//	 ├── Globals
//	 └── Functions
//	      ├── Params     (Arguments)
//	      └── Blocks
//	           └── Instructions
//
// Instructions form a closed set of shapes identified by [Opcode]. Operand
// positions are fixed per opcode and exposed through shape-specific accessors
// such as [Instruction.PointerOperand] and [Instruction.Length], which return
// nil for instructions of a different shape.
//
// # Ownership
//
// A Module owns its functions, a Function owns its blocks and a Block owns its
// instructions. Operands are borrowed references to values owned elsewhere in
// the same module. Nothing in this package is safe for concurrent mutation.
package ir
