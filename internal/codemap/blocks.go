package codemap

import (
	"fmt"

	"github.com/covlang/scriptcov/internal/langast"
	"github.com/covlang/scriptcov/internal/model"
)

// blockFrame pairs a node awaiting traversal with the id of the block its
// emitted children should attach to.
type blockFrame struct {
	node     *langast.Node
	parentID string
}

// blockBuilder accumulates the block forest for one file. It is
// stack-local to one collectBlocks call (never package-level state), since
// the Reconciler's late-parsing phase runs the builder concurrently across
// files via errgroup.
type blockBuilder struct {
	blocks []model.Block
	byID   map[string]int
	file   *langast.File
	seq    int
}

func (b *blockBuilder) add(blk model.Block) {
	b.byID[blk.ID] = len(b.blocks)
	b.blocks = append(b.blocks, blk)

	if blk.ParentID != "" {
		if idx, ok := b.byID[blk.ParentID]; ok {
			b.blocks[idx].Children = append(b.blocks[idx].Children, blk.ID)
		}
	}
}

func (b *blockBuilder) setBranches(blockID string, branches []string) {
	if idx, ok := b.byID[blockID]; ok {
		b.blocks[idx].Branches = branches
	}
}

func (b *blockBuilder) nextSeq() int {
	b.seq++
	return b.seq
}

func (b *blockBuilder) emitSpan(kind model.BlockKind, startLine, endLine int, seq int, parentID string) (model.Block, bool) {
	if startLine >= endLine {
		return model.Block{}, false
	}

	return model.Block{
		ID:        fmt.Sprintf("block_%d_%s_%d", startLine, kind, seq),
		Kind:      kind,
		StartLine: startLine,
		EndLine:   endLine,
		ParentID:  parentID,
	}, true
}

// collectBlocks builds the block forest with a second non-recursive
// traversal (spec.md §4.C), rooted at a synthetic Do block spanning the
// whole file.
func collectBlocks(root *langast.Node, file *langast.File, lineCount int) []model.Block {
	b := &blockBuilder{byID: make(map[string]int), file: file}

	rootBlock := model.Block{ID: "block_root", Kind: model.BlockDo, StartLine: 1, EndLine: lineCount}
	b.add(rootBlock)

	stack := []blockFrame{{root, rootBlock.ID}}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := f.node
		if n == nil {
			continue
		}

		parent := f.parentID

		switch n.Kind {
		case langast.KindIf:
			parent = b.emitIfChain(n, f.parentID)
		case langast.KindWhile:
			parent = b.emitWhile(n, f.parentID)
		case langast.KindRepeat:
			parent = b.emitRepeat(n, f.parentID)
		case langast.KindNumericFor, langast.KindGenericFor:
			parent = b.emitFor(n, f.parentID)
		case langast.KindFunctionDecl, langast.KindLocalFunctionDecl, langast.KindFunctionExpr:
			parent = b.emitFunctionBlock(n, f.parentID)
		}

		for _, c := range n.Children {
			stack = append(stack, blockFrame{c, parent})
		}

		for _, c := range []*langast.Node{n.Condition, n.Then, n.Else, n.Body} {
			stack = append(stack, blockFrame{c, parent})
		}
	}

	return b.blocks
}

// emitIfChain emits the If block plus IfCondition/Then/Else branches. An
// elseif is represented in the AST as a nested If inside Else; that nested
// node is pushed back onto collectBlocks' stack with the outer If block as
// its parent and handled by its own call to emitIfChain in a later iteration.
func (b *blockBuilder) emitIfChain(n *langast.Node, parentID string) string {
	seq := b.nextSeq()
	startLine := b.file.LineOf(n.Pos)
	endLine := b.file.LineOf(n.EndPos)

	ifBlock, ok := b.emitSpan(model.BlockIf, startLine, endLine, seq, parentID)
	if !ok {
		return parentID
	}

	b.add(ifBlock)

	var branches []string

	if n.Condition != nil {
		cs, ce := b.file.LineOf(n.Condition.Pos), b.file.LineOf(n.Condition.EndPos)
		if bl, ok := b.emitSpan(model.BlockIfCondition, cs, ce, seq, ifBlock.ID); ok {
			b.add(bl)
			branches = append(branches, bl.ID)
		}
	}

	if n.Then != nil {
		ts, te := b.file.LineOf(n.Then.Pos), b.file.LineOf(n.Then.EndPos)
		if bl, ok := b.emitSpan(model.BlockThen, ts, te, seq, ifBlock.ID); ok {
			b.add(bl)
			branches = append(branches, bl.ID)
		}
	}

	if n.Else != nil {
		es, ee := b.file.LineOf(n.Else.Pos), b.file.LineOf(n.Else.EndPos)
		if bl, ok := b.emitSpan(model.BlockElse, es, ee, seq, ifBlock.ID); ok {
			b.add(bl)
			branches = append(branches, bl.ID)
		}
	}

	b.setBranches(ifBlock.ID, branches)

	return ifBlock.ID
}

func (b *blockBuilder) emitWhile(n *langast.Node, parentID string) string {
	seq := b.nextSeq()
	startLine := b.file.LineOf(n.Pos)
	endLine := b.file.LineOf(n.EndPos)

	whileBlock, ok := b.emitSpan(model.BlockWhile, startLine, endLine, seq, parentID)
	if !ok {
		return parentID
	}

	b.add(whileBlock)

	var branches []string

	if n.Condition != nil {
		cs, ce := b.file.LineOf(n.Condition.Pos), b.file.LineOf(n.Condition.EndPos)
		if bl, ok := b.emitSpan(model.BlockWhileCond, cs, ce, seq, whileBlock.ID); ok {
			b.add(bl)
			branches = append(branches, bl.ID)
		}
	}

	if n.Body != nil {
		bs, be := b.file.LineOf(n.Body.Pos), b.file.LineOf(n.Body.EndPos)
		if bl, ok := b.emitSpan(model.BlockWhileBody, bs, be, seq, whileBlock.ID); ok {
			b.add(bl)
			branches = append(branches, bl.ID)
		}
	}

	b.setBranches(whileBlock.ID, branches)

	return whileBlock.ID
}

func (b *blockBuilder) emitRepeat(n *langast.Node, parentID string) string {
	seq := b.nextSeq()
	startLine := b.file.LineOf(n.Pos)
	endLine := b.file.LineOf(n.EndPos)

	repeatBlock, ok := b.emitSpan(model.BlockRepeat, startLine, endLine, seq, parentID)
	if !ok {
		return parentID
	}

	b.add(repeatBlock)

	var branches []string

	if n.Body != nil {
		bs, be := b.file.LineOf(n.Body.Pos), b.file.LineOf(n.Body.EndPos)
		if bl, ok := b.emitSpan(model.BlockRepeatBody, bs, be, seq, repeatBlock.ID); ok {
			b.add(bl)
			branches = append(branches, bl.ID)
		}
	}

	// The until-clause condition is referenced by the condition forest, not
	// emitted as its own block (spec.md §4.C: "a trailing-condition reference").
	b.setBranches(repeatBlock.ID, branches)

	return repeatBlock.ID
}

func (b *blockBuilder) emitFor(n *langast.Node, parentID string) string {
	kind := model.BlockForNumeric
	if n.Kind == langast.KindGenericFor {
		kind = model.BlockForIn
	}

	seq := b.nextSeq()
	startLine := b.file.LineOf(n.Pos)
	endLine := b.file.LineOf(n.EndPos)

	forBlock, ok := b.emitSpan(kind, startLine, endLine, seq, parentID)
	if !ok {
		return parentID
	}

	b.add(forBlock)

	var branches []string

	if n.Body != nil {
		rangeEnd := b.file.LineOf(n.Body.Pos)
		if bl, ok := b.emitSpan(model.BlockForRange, startLine, rangeEnd, seq, forBlock.ID); ok {
			b.add(bl)
			branches = append(branches, bl.ID)
		}

		bs, be := b.file.LineOf(n.Body.Pos), b.file.LineOf(n.Body.EndPos)
		if bl, ok := b.emitSpan(model.BlockForBody, bs, be, seq, forBlock.ID); ok {
			b.add(bl)
			branches = append(branches, bl.ID)
		}
	}

	b.setBranches(forBlock.ID, branches)

	return forBlock.ID
}

func (b *blockBuilder) emitFunctionBlock(n *langast.Node, parentID string) string {
	if n.Body == nil {
		return parentID
	}

	seq := b.nextSeq()
	bs, be := b.file.LineOf(n.Body.Pos), b.file.LineOf(n.Body.EndPos)

	fnBlock, ok := b.emitSpan(model.BlockFunction, bs, be, seq, parentID)
	if !ok {
		return parentID
	}

	b.add(fnBlock)

	return fnBlock.ID
}
