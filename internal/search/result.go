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

package search

import (
	"time"

	"github.com/TobiasAlexanderWulff/chess-engine/internal/moveslice"
	. "github.com/TobiasAlexanderWulff/chess-engine/internal/types"
)

// Result carries everything a caller needs from a finished (or aborted)
// search: the move to play, its score, the line behind it and the
// telemetry the engine-to-host contract exposes.
type Result struct {
	BestMove    Move
	BestValue   Value
	PonderMove  Move
	Pv          moveslice.MoveSlice
	SearchTime  time.Duration
	SearchDepth int
	ExtraDepth  int

	// Aborted is true when the search was cut short by the stop flag
	// while it was still in its first (depth 1) iteration.
	Aborted bool
}

func (r *Result) String() string {
	return out.Sprintf("Best Move: %s Value: %s Ponder: %s Depth: %d/%d Time: %s PV: %s",
		r.BestMove.StringUci(), r.BestValue.String(), r.PonderMove.StringUci(),
		r.SearchDepth, r.ExtraDepth, r.SearchTime, r.Pv.StringUci())
}
