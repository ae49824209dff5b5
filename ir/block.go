package ir

// Block is a basic block: a phi prefix, straight-line instructions, and a
// terminator as the final instruction.
type Block struct {
	Nam   string
	Insts []*Instr
	fn    *Func
}

func (b *Block) Name() string  { return b.Nam }
func (b *Block) Parent() *Func { return b.fn }

// Term returns the block terminator, or nil if the block is unterminated.
func (b *Block) Term() *Instr {
	if n := len(b.Insts); n > 0 && b.Insts[n-1].IsTerm() {
		return b.Insts[n-1]
	}
	return nil
}

// Succs returns the successor blocks.
func (b *Block) Succs() []*Block {
	if t := b.Term(); t != nil {
		return t.Blocks
	}
	return nil
}

// Phis returns the phi prefix of the block.
func (b *Block) Phis() []*Instr {
	return b.Insts[:b.FirstNonPhi()]
}

// FirstNonPhi returns the index of the first non-phi instruction.
func (b *Block) FirstNonPhi() int {
	for i, in := range b.Insts {
		if !in.IsPhi() {
			return i
		}
	}
	return len(b.Insts)
}

// FirstInsertion returns the first instruction new code may be inserted
// before: the first non-phi, or nil for an empty block.
func (b *Block) FirstInsertion() *Instr {
	if i := b.FirstNonPhi(); i < len(b.Insts) {
		return b.Insts[i]
	}
	return nil
}

// Append adds i at the end of the block and claims ownership.
func (b *Block) Append(i *Instr) *Instr {
	i.blk = b
	b.Insts = append(b.Insts, i)
	return i
}

// IndexOf returns the position of i in the block, or -1.
func (b *Block) IndexOf(i *Instr) int {
	for k, in := range b.Insts {
		if in == i {
			return k
		}
	}
	return -1
}

// InsertBefore inserts i immediately before point, which must be in b.
func (b *Block) InsertBefore(i, point *Instr) *Instr {
	k := b.IndexOf(point)
	if k < 0 {
		panic("ir: insertion point not in block")
	}
	i.blk = b
	b.Insts = append(b.Insts, nil)
	copy(b.Insts[k+1:], b.Insts[k:])
	b.Insts[k] = i
	return i
}

// InsertFront inserts i at the start of the block (before any phis).
func (b *Block) InsertFront(i *Instr) *Instr {
	i.blk = b
	b.Insts = append([]*Instr{i}, b.Insts...)
	return i
}

// Remove detaches i from the block. The instruction keeps its operands so it
// can be re-inserted elsewhere.
func (b *Block) Remove(i *Instr) {
	k := b.IndexOf(i)
	if k < 0 {
		return
	}
	b.Insts = append(b.Insts[:k], b.Insts[k+1:]...)
	i.blk = nil
}
