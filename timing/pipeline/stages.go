package pipeline

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/lizard/emu"
	"github.com/sarchlab/lizard/timing/commit"
	"github.com/sarchlab/lizard/timing/control"
	"github.com/sarchlab/lizard/timing/rename"
)

// retire pops the head group the commit unit will retire this cycle. It
// performs stores, trains the predictor and starts a rollback when the
// group ends in an exception or, in commit recovery, a misprediction. The
// tag commits and the window advance come from the commit unit's tick.
func (p *Pipeline) retire(req *tickRequests) {
	group := p.commitUnit.Retire(req.commit.Head, req.commit.Count)

	for _, wb := range group.Retired {
		u := p.window[0]
		if u.seq != wb.Seq {
			panic(fmt.Sprintf("pipeline: retiring seq %d, window head is seq %d",
				wb.Seq, u.seq))
		}
		p.window = p.window[1:]

		req.retired++
		p.stats.Instructions++
		p.notifyRetire(u, wb)

		if wb.Status == commit.StatusException {
			p.stats.Exceptions++
			p.log.WithFields(logrus.Fields{
				"cycle": p.cycle,
				"seq":   wb.Seq,
				"pc":    fmt.Sprintf("0x%x", wb.PC),
				"cause": wb.Cause.String(),
			}).Debug("exception retired")
			p.rollback(req, p.config.TrapVector)
			return
		}

		if wb.StoreValid {
			p.memory.Write(wb.StoreAddr, wb.StoreData)
		}

		if u.op.IsControlFlow() {
			p.stats.Branches++
			if wb.Mispredicted {
				p.stats.Mispredictions++
			}
			p.predictor.Update(u.op, u.out.Taken, u.out.NextPC, wb.Mispredicted)
		}

		if wb.Mispredicted && p.config.Recovery == RecoverAtCommit {
			p.log.WithFields(logrus.Fields{
				"cycle":  p.cycle,
				"seq":    wb.Seq,
				"pc":     fmt.Sprintf("0x%x", wb.PC),
				"target": fmt.Sprintf("0x%x", wb.Target),
			}).Debug("mispredict retired")
			p.rollback(req, wb.Target)
			return
		}
	}
}

func (p *Pipeline) notifyRetire(u *uop, wb commit.Writeback) {
	if p.retireHook == nil {
		return
	}

	event := RetireEvent{
		Cycle: p.cycle,
		Seq:   wb.Seq,
		Op:    u.op,
		Cause: wb.Cause,
	}
	if wb.RdValid {
		event.Value = u.out.Value
	}
	p.retireHook(event)
}

// rollback returns the renaming unit to the committed mapping, empties
// the window and redirects fetch to target.
func (p *Pipeline) rollback(req *tickRequests, target uint64) {
	req.recovering = true
	req.dataFlow.Rollback = true
	req.controlFlow.Flush = true
	req.controlFlow.Redirect = control.RedirectRequest{Call: true, Target: target}
	req.commit.Flush = true

	p.stats.Rollbacks++
	p.stats.Squashed += uint64(len(p.window))
	p.window = nil
	p.fetchBuffer = p.fetchBuffer[:0]
}

// restore repairs a misprediction detected at writeback. Everything
// younger than u is squashed and the renaming unit returns to the
// snapshot u took at dispatch.
func (p *Pipeline) restore(req *tickRequests, u *uop) {
	req.recovering = true
	req.dataFlow.Restore = rename.RestoreRequest{Call: true, ID: u.specIdx}
	req.controlFlow.Squash = control.SquashRequest{Call: true, Seq: u.seq}
	req.controlFlow.Redirect = control.RedirectRequest{
		Call:   true,
		Target: u.out.NextPC,
	}
	req.commit.Squash = control.SquashRequest{Call: true, Seq: u.seq}

	for i, w := range p.window {
		if w == u {
			p.stats.Squashed += uint64(len(p.window) - i - 1)
			p.window = p.window[:i+1]
			break
		}
	}

	p.stats.Restores++
	p.fetchBuffer = p.fetchBuffer[:0]

	p.log.WithFields(logrus.Fields{
		"cycle":    p.cycle,
		"seq":      u.seq,
		"pc":       fmt.Sprintf("0x%x", u.op.PC),
		"target":   fmt.Sprintf("0x%x", u.out.NextPC),
		"snapshot": u.specIdx,
	}).Debug("mispredict, restoring snapshot")
}

// writeback sends finished results to the register file and the reorder
// buffer, oldest first. Resolved control flow ops release their snapshot.
// The oldest mispredicted one, in execute recovery, ends the group.
func (p *Pipeline) writeback(req *tickRequests) {
	snapshotPorts := p.config.ResolveWidth

	for _, u := range p.window {
		if len(req.commit.Writeback) == p.config.WritebackWidth {
			return
		}
		if u.state != uopExecuting || u.doneAt > p.cycle {
			continue
		}
		if u.speculative {
			if snapshotPorts == 0 {
				continue
			}
			snapshotPorts--
		}

		u.state = uopWritten
		wb := p.writebackRecord(u)
		req.commit.Writeback = append(req.commit.Writeback, wb)

		if wb.RdValid {
			req.dataFlow.WriteTag = append(req.dataFlow.WriteTag,
				rename.WriteTagRequest{Tag: u.dst, Value: u.out.Value})
		}
		if u.speculative {
			req.dataFlow.FreeSnapshot = append(req.dataFlow.FreeSnapshot,
				u.specIdx)
		}

		if wb.Mispredicted && p.config.Recovery == RecoverAtExecute {
			p.restore(req, u)
			return
		}
	}
}

func (p *Pipeline) writebackRecord(u *uop) commit.Writeback {
	wb := commit.Writeback{
		Seq:         u.seq,
		PC:          u.op.PC,
		Speculative: u.speculative,
		SpecIdx:     u.specIdx,
	}

	if u.out.Faulted() {
		wb.Status = commit.StatusException
		wb.Cause = u.out.Cause
		return wb
	}

	wb.RdValid = u.hasDst
	wb.Rd = u.dst
	wb.Mispredicted = u.mispredicted()
	wb.Target = u.out.NextPC

	if u.op.IsStore() {
		wb.StoreValid = true
		wb.StoreAddr = u.out.Addr
		wb.StoreData = u.out.StoreData
	}

	return wb
}

// selectIssue picks the oldest waiting ops and reads their operands. A
// load is held back while an older store has not retired.
func (p *Pipeline) selectIssue(req *tickRequests) {
	olderStore := false

	for _, u := range p.window {
		if len(req.issue) == p.config.IssueWindow {
			return
		}

		waiting := u.state == uopWaiting
		blocked := u.op.IsLoad() && olderStore
		if u.op.IsStore() {
			olderStore = true
		}
		if !waiting || blocked {
			continue
		}

		req.issue = append(req.issue, u)
		req.dataFlow.ReadTag = append(req.dataFlow.ReadTag, u.src[0], u.src[1])
	}
}

// finishIssue starts the candidates whose operands were ready, oldest
// first, up to the issue width.
func (p *Pipeline) finishIssue(req *tickRequests, out rename.DataFlowOutputs) {
	started := 0
	for i, u := range req.issue {
		if started == p.config.IssueWidth {
			return
		}

		rs1, rs2 := out.ReadTag[2*i], out.ReadTag[2*i+1]
		if !rs1.Ready || !rs2.Ready {
			continue
		}

		u.out = emu.Execute(u.op, rs1.Value, rs2.Value)
		if u.op.IsLoad() && !u.out.Faulted() {
			u.out.Value = p.memory.Read(u.out.Addr)
		}
		u.state = uopExecuting
		u.doneAt = p.cycle + p.latencyTable.GetLatency(u.op)
		started++
	}
}

// dispatch renames and registers ops from the fetch buffer in order. A
// group ends early when a resource is short, when an op reads a register
// written earlier in the group, or after a control flow op that takes a
// snapshot.
func (p *Pipeline) dispatch(req *tickRequests) {
	if len(p.fetchBuffer) == 0 {
		p.stats.FetchBufferEmpty++
		return
	}

	var written [NumAregs]bool
	allocs := 0
	n := 0

	for n < len(p.fetchBuffer) && n < p.config.DispatchWidth {
		entry := p.fetchBuffer[n]
		op := entry.op
		snapshot := op.IsControlFlow() &&
			p.config.Recovery == RecoverAtExecute

		if !p.controlFlow.CanRegister(n + 1) {
			p.stats.StallWindowFull++
			break
		}
		if (op.ReadsRs1() && written[op.Rs1]) ||
			(op.ReadsRs2() && written[op.Rs2]) {
			p.stats.StallSameGroup++
			break
		}
		if op.HasRd() && !p.dataFlow.CanAllocate(allocs+1) {
			p.stats.StallNoFreeRegs++
			break
		}
		if snapshot && !p.dataFlow.CanSnapshot() {
			p.stats.StallNoSnapshot++
			break
		}

		u := &uop{
			op:          op,
			predicted:   entry.predicted,
			speculative: snapshot,
		}
		u.src[0] = p.lookupSource(req, u, 0, op.ReadsRs1(), op.Rs1)
		u.src[1] = p.lookupSource(req, u, 1, op.ReadsRs2(), op.Rs2)

		if op.HasRd() {
			u.hasDst = true
			req.dataFlow.GetDst = append(req.dataFlow.GetDst, rename.Areg(op.Rd))
			req.dstRefs = append(req.dstRefs, u)
			written[op.Rd] = true
			allocs++
		}

		req.controlFlow.Register = append(req.controlFlow.Register,
			control.RegisterRequest{PC: op.PC, Speculative: snapshot})
		req.dispatched = append(req.dispatched, u)
		n++

		if snapshot {
			req.dataFlow.Snapshot = true
			break
		}
	}

	p.fetchBuffer = append(p.fetchBuffer[:0], p.fetchBuffer[n:]...)
}

// lookupSource queues a source lookup and returns the zero tag as a
// placeholder. Register 0 and unread sources keep the zero tag.
func (p *Pipeline) lookupSource(
	req *tickRequests,
	u *uop,
	slot int,
	reads bool,
	areg uint8,
) rename.Preg {
	if reads && areg != 0 {
		req.dataFlow.GetSrc = append(req.dataFlow.GetSrc, rename.Areg(areg))
		req.srcRefs = append(req.srcRefs, srcRef{u: u, slot: slot})
	}
	return p.dataFlow.ZeroTag()
}

// finishDispatch fills in the sequence numbers and tags granted to the
// dispatched ops and adds them to the window.
func (p *Pipeline) finishDispatch(
	req *tickRequests,
	dataFlowOut rename.DataFlowOutputs,
	controlFlowOut control.Outputs,
) {
	for i, ref := range req.srcRefs {
		ref.u.src[ref.slot] = dataFlowOut.GetSrc[i]
	}

	for i, u := range req.dstRefs {
		res := dataFlowOut.GetDst[i]
		if !res.Success {
			panic(fmt.Sprintf("pipeline: rename of %s failed", u.op))
		}
		u.dst = res.Tag
	}

	for i, u := range req.dispatched {
		res := controlFlowOut.Register[i]
		if !res.Success {
			panic(fmt.Sprintf("pipeline: register of %s failed", u.op))
		}
		u.seq = res.Seq

		if u.speculative {
			if !dataFlowOut.Snapshot.Ready {
				panic(fmt.Sprintf("pipeline: snapshot for %s failed", u.op))
			}
			u.specIdx = dataFlowOut.Snapshot.ID
		}

		p.window = append(p.window, u)
	}
}

// fetch reads up to FetchWidth ops along the predicted path. It stops at
// a PC with no op and after a predicted-taken control flow op.
func (p *Pipeline) fetch() {
	for i := 0; i < p.config.FetchWidth; i++ {
		if len(p.fetchBuffer) == p.config.FetchBufferSize {
			return
		}

		op := p.program.At(p.pc)
		if op == nil {
			return
		}

		next := p.predictor.Predict(op)
		p.fetchBuffer = append(p.fetchBuffer, fetchEntry{op: op, predicted: next})
		p.pc = next

		if next != op.FallThrough() {
			return
		}
	}
}
