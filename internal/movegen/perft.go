//
//
// MIT License
//
// Copyright (c) 2018-2020 Frank Kopp
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.
//

package movegen

import (
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/TobiasAlexanderWulff/chess-engine/internal/position"
	. "github.com/TobiasAlexanderWulff/chess-engine/internal/types"
)

var out = message.NewPrinter(language.German)

// Perft is class to test move generation of the chess engine.
type Perft struct {
	Nodes            uint64
	CheckCounter     uint64
	CheckMateCounter uint64
	CaptureCounter   uint64
	EnpassantCounter uint64
	CastleCounter    uint64
	PromotionCounter uint64
	stopFlag         *int32
}

// NewPerft creates a new empty Perft instance
func NewPerft() *Perft {
	return &Perft{stopFlag: new(int32)}
}

// Stop can be used when perft has been started
// in a goroutine to stop the currently running
// perft test. The flag is shared with every root-move worker
// spawned by StartPerft so a single call halts the whole fan-out.
func (perft *Perft) Stop() {
	perft.ensureStopFlag()
	atomic.StoreInt32(perft.stopFlag, 1)
}

func (perft *Perft) stopped() bool {
	if perft.stopFlag == nil {
		return false
	}
	return atomic.LoadInt32(perft.stopFlag) != 0
}

// ensureStopFlag lazily allocates the flag so a zero-value Perft
// (declared with var, not NewPerft) works without panicking.
func (perft *Perft) ensureStopFlag() {
	if perft.stopFlag == nil {
		perft.stopFlag = new(int32)
	}
}

// StartPerftMulti is using normal or on demand move generation and doesn't
// divide the the perft depths. It iterates through the given start to end depths.
// If this has been started in a go routine it can be stopped via Stop()
func (perft *Perft) StartPerftMulti(fen string, startDepth int, endDepth int, onDemandFlag bool) {
	perft.ensureStopFlag()
	atomic.StoreInt32(perft.stopFlag, 0)
	for i := startDepth; i <= endDepth; i++ {
		if perft.stopped() {
			out.Print("Perft multi depth stopped\n")
			return
		}
		perft.StartPerft(fen, i, onDemandFlag)
	}
}

// StartPerft is using normal or on demand move generation and doesn't
// divide the the perft depths.
// If this has been started in a go routine it can be stopped via Stop()
func (perft *Perft) StartPerft(fen string, depth int, onDemandFlag bool) {
	perft.ensureStopFlag()
	atomic.StoreInt32(perft.stopFlag, 0)

	// set 1 as minimum
	if depth <= 0 {
		depth = 1
	}

	// prepare
	perft.resetCounter()

	out.Printf("Performing PERFT Test for Depth %d\n", depth)
	out.Printf("FEN: %s\n", fen)
	out.Printf("-----------------------------------------\n")

	// the actual perft call
	start := time.Now()
	result := perft.fanOutRoot(fen, depth, onDemandFlag)
	elapsed := time.Since(start)

	if result == 0 {
		out.Print("Perft stopped\n")
		return
	}

	perft.Nodes = result

	out.Printf("Time         : %s\n", elapsed)
	out.Printf("NPS          : %d nps\n", (perft.Nodes*uint64(time.Second.Nanoseconds()))/uint64(elapsed.Nanoseconds()+1))
	out.Printf("Results:\n")
	out.Printf("   Nodes     : %d\n", perft.Nodes)
	out.Printf("   Captures  : %d\n", perft.CaptureCounter)
	out.Printf("   EnPassant : %d\n", perft.EnpassantCounter)
	out.Printf("   Checks    : %d\n", perft.CheckCounter)
	out.Printf("   CheckMates: %d\n", perft.CheckMateCounter)
	out.Printf("   Castles   : %d\n", perft.CastleCounter)
	out.Printf("   Promotions: %d\n", perft.PromotionCounter)
	out.Printf("-----------------------------------------\n")
	out.Printf("Finished PERFT Test for Depth %d\n\n", depth)
}

// fanOutRoot splits the root ply across one goroutine per pseudo-legal
// root move, joined by errgroup.Group; a goroutine whose move turns out
// to be illegal adds nothing. Each goroutine parses its own
// Position from fen rather than sharing one, since DoMove /
// UndoMove mutate a Position in place and is not safe for concurrent
// recursion from several goroutines. Depth 1 (nothing left to fan out)
// is walked single-threaded on one Position parsed from fen, and a
// position with no moves returns 0.
func (perft *Perft) fanOutRoot(fen string, depth int, onDemandFlag bool) uint64 {
	rootPos, err := position.NewPositionFen(fen)
	if err != nil {
		return 0
	}

	if depth == 1 {
		mgList := []*Movegen{NewMoveGen(), NewMoveGen()}
		if onDemandFlag {
			return perft.miniMaxOD(1, rootPos, &mgList)
		}
		return perft.miniMax(1, rootPos, &mgList)
	}

	rootMoves := *NewMoveGen().GeneratePseudoLegalMoves(rootPos, GenAll)
	if len(rootMoves) == 0 {
		return 0
	}

	subtrees := make([]*Perft, len(rootMoves))
	var group errgroup.Group
	for i, move := range rootMoves {
		i, move := i, move
		group.Go(func() error {
			if perft.stopped() {
				return nil
			}
			workerPos, err := position.NewPositionFen(fen)
			if err != nil {
				return err
			}
			workerPos.DoMove(move)
			if !workerPos.WasLegalMove() {
				return nil
			}
			sub := NewPerft()
			sub.stopFlag = perft.stopFlag // shares Stop() signal with the root
			mgList := make([]*Movegen, depth)
			for d := range mgList {
				mgList[d] = NewMoveGen()
			}
			if onDemandFlag {
				sub.Nodes = sub.miniMaxOD(depth-1, workerPos, &mgList)
			} else {
				sub.Nodes = sub.miniMax(depth-1, workerPos, &mgList)
			}
			subtrees[i] = sub
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return 0
	}

	var total uint64
	for _, sub := range subtrees {
		if sub == nil {
			continue
		}
		total += sub.Nodes
		perft.CheckCounter += sub.CheckCounter
		perft.CheckMateCounter += sub.CheckMateCounter
		perft.CaptureCounter += sub.CaptureCounter
		perft.EnpassantCounter += sub.EnpassantCounter
		perft.CastleCounter += sub.CastleCounter
		perft.PromotionCounter += sub.PromotionCounter
	}
	if perft.stopped() {
		return 0
	}
	return total
}

func (perft *Perft) miniMax(depth int, p *position.Position, mgListPtr *[]*Movegen) uint64 {
	totalNodes := uint64(0)
	movegens := *mgListPtr
	// moves to search recursively
	movesPtr := movegens[depth].GeneratePseudoLegalMoves(p, GenAll)
	for _, move := range *movesPtr {
		if perft.stopped() {
			return 0
		}
		if depth > 1 {
			p.DoMove(move)
			if p.WasLegalMove() {
				totalNodes += perft.miniMax(depth-1, p, mgListPtr)
			}
			p.UndoMove()
		} else {
			capture := p.GetPiece(move.To()) != PieceNone
			enpassant := move.MoveType() == EnPassant
			castling := move.MoveType() == Castling
			promotion := move.MoveType() == Promotion
			p.DoMove(move)
			if p.WasLegalMove() {
				totalNodes++
				if enpassant {
					perft.EnpassantCounter++
					perft.CaptureCounter++
				}
				if capture {
					perft.CaptureCounter++
				}
				if castling {
					perft.CastleCounter++
				}
				if promotion {
					perft.PromotionCounter++
				}
				if p.HasCheck() {
					perft.CheckCounter++
				}
				if !movegens[0].HasLegalMove(p) {
					perft.CheckMateCounter++
				}
			}
			p.UndoMove()
		}
	}
	return totalNodes
}

func (perft *Perft) miniMaxOD(depth int, p *position.Position, mgListPtr *[]*Movegen) uint64 {
	totalNodes := uint64(0)
	movegens := *mgListPtr
	// moves to search recursively
	mg := movegens[depth]
	for move := mg.GetNextMove(p, GenAll); move != MoveNone; move = mg.GetNextMove(p, GenAll) {
		if perft.stopped() {
			return 0
		}
		if depth > 1 {
			p.DoMove(move)
			if p.WasLegalMove() {
				totalNodes += perft.miniMaxOD(depth-1, p, mgListPtr)
			}
			p.UndoMove()
		} else {
			capture := p.GetPiece(move.To()) != PieceNone
			enpassant := move.MoveType() == EnPassant
			castling := move.MoveType() == Castling
			promotion := move.MoveType() == Promotion
			p.DoMove(move)
			if p.WasLegalMove() {
				totalNodes++
				if enpassant {
					perft.EnpassantCounter++
					perft.CaptureCounter++
				}
				if capture {
					perft.CaptureCounter++
				}
				if castling {
					perft.CastleCounter++
				}
				if promotion {
					perft.PromotionCounter++
				}
				if p.HasCheck() {
					perft.CheckCounter++
				}
				if !movegens[0].HasLegalMove(p) {
					perft.CheckMateCounter++
				}
			}
			p.UndoMove()
		}
	}
	return totalNodes
}

func (perft *Perft) resetCounter() {
	perft.Nodes = 0
	perft.CheckCounter = 0
	perft.CheckMateCounter = 0
	perft.CaptureCounter = 0
	perft.EnpassantCounter = 0
	perft.CastleCounter = 0
	perft.PromotionCounter = 0
}
