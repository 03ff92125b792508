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

// Package search implements iterative-deepening alpha-beta negamax search
// over a Position, backed by a transposition table and quiescence search.
// The package has no knowledge of any host protocol: it is driven entirely
// through StartSearch/StopSearch and reports results through Result.
package search

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/op/go-logging"

	"github.com/TobiasAlexanderWulff/chess-engine/internal/config"
	"github.com/TobiasAlexanderWulff/chess-engine/internal/evaluator"
	"github.com/TobiasAlexanderWulff/chess-engine/internal/history"
	myLogging "github.com/TobiasAlexanderWulff/chess-engine/internal/logging"
	"github.com/TobiasAlexanderWulff/chess-engine/internal/movegen"
	"github.com/TobiasAlexanderWulff/chess-engine/internal/moveslice"
	"github.com/TobiasAlexanderWulff/chess-engine/internal/position"
	"github.com/TobiasAlexanderWulff/chess-engine/internal/transpositiontable"
	. "github.com/TobiasAlexanderWulff/chess-engine/internal/types"
	"github.com/TobiasAlexanderWulff/chess-engine/internal/util"
)

var out = message.NewPrinter(language.German)

// Search represents the data structure for a chess engine search.
// Create new instance with NewSearch().
type Search struct {
	log  *logging.Logger
	slog *logging.Logger

	initSemaphore *semaphore.Weighted
	isRunning     *semaphore.Weighted

	tt   *transpositiontable.TtTable
	eval *evaluator.Evaluator

	// history heuristics
	history *history.History

	// previous search
	lastSearchResult *Result

	// current search state
	stopFlag        bool
	startTime       time.Time
	hasResult       bool
	currentPosition *position.Position
	searchLimits    *Limits
	timeLimit       time.Duration
	nodesVisited    uint64
	mg              []*movegen.Movegen
	pv              []*moveslice.MoveSlice
	rootMoves       *moveslice.MoveSlice
	statistics      Statistics
}

// //////////////////////////////////////////////////////
// // Public
// //////////////////////////////////////////////////////

// NewSearch creates a new Search instance.
func NewSearch() *Search {
	return &Search{
		log:           myLogging.GetLog(),
		slog:          getSearchTraceLog(),
		initSemaphore: semaphore.NewWeighted(int64(1)),
		isRunning:     semaphore.NewWeighted(int64(1)),
		eval:          evaluator.NewEvaluator(),
		history:       history.NewHistory(),
	}
}

// NewGame resets the search state to be ready for a different game.
// Any caches or states will be reset.
func (s *Search) NewGame() {
	s.StopSearch()
	if s.tt != nil {
		s.tt.Clear()
	}
	s.history = history.NewHistory()
}

// StartSearch starts the search on the given position with the given
// search limits. Search can be stopped with StopSearch(). Search status
// can be checked with IsSearching(). This takes a copy of the position
// and the search limits.
func (s *Search) StartSearch(p position.Position, sl Limits) {
	// acquire init phase lock
	_ = s.initSemaphore.Acquire(context.TODO(), 1)
	s.currentPosition = &p
	s.searchLimits = &sl
	go s.run(&p, &sl)
	// wait until search is running and initialization is done
	_ = s.initSemaphore.Acquire(context.TODO(), 1)
	s.initSemaphore.Release(1)
}

// StopSearch stops a running search as quickly as possible and waits for
// it to finish before returning.
func (s *Search) StopSearch() {
	s.stopFlag = true
	s.WaitWhileSearching()
}

// IsSearching checks if search is running.
func (s *Search) IsSearching() bool {
	if !s.isRunning.TryAcquire(1) {
		return true
	}
	s.isRunning.Release(1)
	return false
}

// WaitWhileSearching blocks until a running search has stopped.
func (s *Search) WaitWhileSearching() {
	_ = s.isRunning.Acquire(context.TODO(), 1)
	s.isRunning.Release(1)
}

// IsReady makes sure the search's internal structures (transposition
// table, etc.) are initialized before the first search is started.
func (s *Search) IsReady() {
	s.initialize()
}

// ClearHash clears the transposition table. Ignored with a warning while
// searching.
func (s *Search) ClearHash() {
	if s.IsSearching() {
		s.log.Warning("Can't clear hash while searching.")
		return
	}
	if s.tt != nil {
		s.tt.Clear()
	}
}

// ResizeCache resizes and clears the transposition table. Ignored with a
// warning while searching.
func (s *Search) ResizeCache() {
	if s.IsSearching() {
		s.log.Warning("Can't resize hash while searching.")
		return
	}
	s.tt = nil
	s.initialize()
	s.log.Debug(util.GcWithStats())
}

// //////////////////////////////////////////////////////
// // Private
// //////////////////////////////////////////////////////

// run is called by StartSearch() in a separate goroutine. It runs the
// actual search until a search limit is reached or the search has been
// stopped by StopSearch().
func (s *Search) run(p *position.Position, sl *Limits) {
	if !s.isRunning.TryAcquire(1) {
		s.log.Error("Search already running")
		return
	}
	defer s.isRunning.Release(1)

	s.startTime = time.Now()
	s.log.Infof("Searching: %s", p.StringFen())

	s.stopFlag = false
	s.hasResult = false
	s.timeLimit = 0
	s.nodesVisited = 0
	s.statistics = Statistics{}
	s.initialize()
	s.setupSearchLimits(p, sl)

	if s.searchLimits.TimeControl {
		s.startTimer()
	}

	if s.tt != nil {
		s.log.Infof("Transposition Table: Using TT (%s)", s.tt.String())
		s.tt.AgeEntries()
	} else {
		s.log.Info("Transposition Table: Not using TT")
	}

	s.mg = make([]*movegen.Movegen, 0, MaxDepth+1)
	s.pv = make([]*moveslice.MoveSlice, 0, MaxDepth+1)
	for i := 0; i <= MaxDepth; i++ {
		newMoveGen := movegen.NewMoveGen()
		s.mg = append(s.mg, newMoveGen)
		s.pv = append(s.pv, moveslice.NewMoveSlice(MaxDepth+1))
	}

	s.log.Infof("Search using: PVS=%t ASP=%t", config.Settings.Search.UsePVS, config.Settings.Search.UseAspiration)

	// release the init phase lock so StartSearch() can return to the caller
	s.initSemaphore.Release(1)

	searchResult := s.iterativeDeepening(p)
	searchResult.SearchTime = time.Since(s.startTime)
	searchResult.Pv = *s.pv[0]

	s.log.Info(out.Sprintf("Search finished after %s", searchResult.SearchTime))
	s.log.Info(out.Sprintf("Search depth was %d(%d) with %d nodes visited. NPS = %d nps",
		s.statistics.CurrentSearchDepth, s.statistics.CurrentExtraSearchDepth, s.nodesVisited,
		util.Nps(s.nodesVisited, searchResult.SearchTime)))
	s.log.Debugf("Search stats: %s", s.statistics.String())
	s.log.Infof("Search result: %s", searchResult.String())

	s.lastSearchResult = searchResult
	s.hasResult = true
	s.stopFlag = true
}

// iterativeDeepening runs depth 1..maxDepth alpha-beta searches, each
// seeded by the best move found at the previous depth, until a search
// limit stops the loop.
func (s *Search) iterativeDeepening(p *position.Position) *Result {
	if s.checkDrawRepAnd50(p, 2) {
		s.log.Warning("Search called on DRAW by Repetition or 50-moves-rule")
		return &Result{BestValue: ValueDraw}
	}

	s.rootMoves = s.mg[0].GenerateLegalMoves(p, movegen.GenAll)
	if s.rootMoves.Len() == 0 {
		if p.HasCheck() {
			s.statistics.Checkmates++
			s.log.Warning("Search called on a mate position")
			return &Result{BestValue: -ValueCheckMate}
		}
		s.statistics.Stalemates++
		s.log.Warning("Search called on a stalemate position")
		return &Result{BestValue: ValueDraw}
	}

	maxDepth := MaxDepth
	if s.searchLimits.Depth > 0 {
		maxDepth = s.searchLimits.Depth
	}

	alpha := ValueMin
	beta := ValueMax
	bestValue := ValueNA

	for iterationDepth := 0; iterationDepth < maxDepth; {
		iterationDepth++

		s.statistics.CurrentIterationDepth = iterationDepth
		s.statistics.CurrentSearchDepth = iterationDepth
		if s.statistics.CurrentExtraSearchDepth < iterationDepth {
			s.statistics.CurrentExtraSearchDepth = iterationDepth
		}

		if config.Settings.Search.UseAspiration && iterationDepth > 4 && bestValue != ValueNA {
			bestValue = s.aspirationSearch(p, iterationDepth, bestValue)
		} else {
			s.rootSearch(p, iterationDepth, alpha, beta)
			bestValue = s.pv[0].At(0).ValueOf()
		}

		if !s.stopConditions() && s.rootMoves.Len() > 1 {
			s.rootMoves.Sort()
			s.statistics.CurrentBestRootMove = s.pv[0].At(0)
			s.statistics.CurrentBestRootMoveValue = s.pv[0].At(0).ValueOf()
			s.logIterationEnd()
		} else {
			break
		}
	}

	result := &Result{
		BestMove:    s.pv[0].At(0).MoveOf(),
		BestValue:   s.pv[0].At(0).ValueOf(),
		PonderMove:  MoveNone,
		SearchDepth: s.statistics.CurrentIterationDepth,
		ExtraDepth:  s.statistics.CurrentExtraSearchDepth,
		Aborted:     s.stopFlag && s.statistics.CurrentIterationDepth <= 1,
	}

	if s.pv[0].Len() > 1 {
		result.PonderMove = s.pv[0].At(1).MoveOf()
	} else if config.Settings.Search.UseTT && s.tt != nil {
		p.DoMove(result.BestMove)
		if ttEntry := s.tt.Probe(p.ZobristKey()); ttEntry != nil {
			s.statistics.TTHit++
			result.PonderMove = ttEntry.Move()
		}
		p.UndoMove()
	}

	return result
}

// aspirationSearch re-searches the root with a window centered on the
// previous iteration's score, widening on fail-high/fail-low per
// aspirationSteps until the true score is bracketed or the window has
// opened to the full value range.
func (s *Search) aspirationSearch(p *position.Position, depth int, previousBestValue Value) Value {
	halfWidth := Value(config.Settings.Search.AspirationHalfWidth)
	if halfWidth <= 0 {
		halfWidth = 25
	}

	for _, widen := range aspirationSteps {
		alpha := previousBestValue - halfWidth
		beta := previousBestValue + halfWidth
		if alpha < ValueMin {
			alpha = ValueMin
		}
		if beta > ValueMax {
			beta = ValueMax
		}

		s.rootSearch(p, depth, alpha, beta)
		if s.stopConditions() {
			return s.pv[0].At(0).ValueOf()
		}

		value := s.pv[0].At(0).ValueOf()
		switch {
		case value <= alpha:
			s.statistics.AspirationResearches++
			s.logAspirationResearch("fail-low")
		case value >= beta:
			s.statistics.AspirationResearches++
			s.logAspirationResearch("fail-high")
		default:
			return value
		}

		if widen == ValueMax {
			// last step: search with the unrestricted window and accept
			// whatever comes back
			s.rootSearch(p, depth, ValueMin, ValueMax)
			return s.pv[0].At(0).ValueOf()
		}
		halfWidth = widen
	}

	return s.pv[0].At(0).ValueOf()
}

// initialize sets up the transposition table and other potentially
// time-consuming setup tasks. Can be called several times without
// repeating the work.
func (s *Search) initialize() {
	if config.Settings.Search.UseTT {
		if s.tt == nil {
			sizeInMByte := config.Settings.Search.TTSize
			if sizeInMByte == 0 {
				sizeInMByte = 64
			}
			s.tt = transpositiontable.NewTtTable(sizeInMByte)
		}
	} else {
		s.log.Info("Transposition Table is disabled in configuration")
	}
}

// stopConditions checks if stopFlag is set or if nodesVisited have
// reached a potential maximum set in the search limits.
func (s *Search) stopConditions() bool {
	if s.stopFlag {
		return true
	}
	if s.searchLimits.Nodes > 0 && s.nodesVisited >= s.searchLimits.Nodes {
		s.stopFlag = true
	}
	return s.stopFlag
}

// setupSearchLimits reports search limits to the log and sets up time
// control.
func (s *Search) setupSearchLimits(p *position.Position, sl *Limits) {
	if sl.Infinite {
		s.log.Info("Search mode: Infinite")
	}
	if sl.Mate > 0 {
		s.log.Infof("Search mode: Search for mate in %d", sl.Mate)
	}
	if sl.TimeControl {
		s.timeLimit = s.setupTimeControl(p, sl)
		if sl.MoveTime > 0 {
			s.log.Infof("Search mode: Time controlled: Time per move %s", sl.MoveTime)
		} else {
			s.log.Info(out.Sprintf("Search mode: Time controlled: White = %s (inc %s) Black = %s (inc %s) Moves to go: %d",
				sl.WhiteTime, sl.WhiteInc, sl.BlackTime, sl.BlackInc, sl.MovesToGo))
			s.log.Info(out.Sprintf("Search mode: Time limit     : %s", s.timeLimit))
		}
	} else {
		s.log.Info("Search mode: No time control")
	}
	if sl.Depth > 0 {
		s.log.Debugf("Search mode: Depth limited  : %d", sl.Depth)
	}
	if sl.Nodes > 0 {
		s.log.Infof(out.Sprintf("Search mode: Nodes limited  : %d", sl.Nodes))
	}
}

// setupTimeControl sets up time control according to the given search
// limits and returns a limit on the duration for the current search.
func (s *Search) setupTimeControl(p *position.Position, sl *Limits) time.Duration {
	if sl.MoveTime > 0 {
		duration := sl.MoveTime - (20 * time.Millisecond)
		if duration < 0 {
			s.log.Warningf("Very short move time: %s. ", sl.MoveTime)
			return sl.MoveTime
		}
		return duration
	}
	movesLeft := int64(sl.MovesToGo)
	if movesLeft == 0 {
		movesLeft = int64(15 + (25 * p.GamePhaseFactor()))
	}
	var timeLeft time.Duration
	switch p.NextPlayer() {
	case White:
		timeLeft = sl.WhiteTime + time.Duration(movesLeft*sl.WhiteInc.Nanoseconds())
	case Black:
		timeLeft = sl.BlackTime + time.Duration(movesLeft*sl.BlackInc.Nanoseconds())
	}
	timeLimit := time.Duration(timeLeft.Nanoseconds() / movesLeft)
	if timeLimit.Milliseconds() < 100 {
		timeLimit = time.Duration(int64(0.8 * float64(timeLimit.Nanoseconds())))
	} else {
		timeLimit = time.Duration(int64(0.9 * float64(timeLimit.Nanoseconds())))
	}
	return timeLimit
}

// startTimer starts a goroutine which regularly checks the elapsed time
// against the time limit. If the time limit is reached this sets the
// stopFlag and terminates itself.
func (s *Search) startTimer() {
	go func() {
		timerStart := time.Now()
		s.log.Debugf("Timer started with time limit of %s", s.timeLimit)
		for time.Since(timerStart) < s.timeLimit && !s.stopFlag {
			time.Sleep(5 * time.Millisecond)
		}
		if !s.stopFlag {
			s.log.Debugf("Timer stops search after wall time: %s (time limit %s)", time.Since(timerStart), s.timeLimit)
			s.stopFlag = true
		}
	}()
}

// checkDrawRepAnd50 checks repetitions and the 50-moves rule.
func (s *Search) checkDrawRepAnd50(p *position.Position, i int) bool {
	return p.CheckRepetitions(i) || p.HalfMoveClock() >= 100
}

// logIterationEnd logs telemetry after each completed depth iteration.
func (s *Search) logIterationEnd() {
	s.log.Infof(out.Sprintf("depth %d seldepth %d value %s nodes %d nps %d time %d pv %s",
		s.statistics.CurrentSearchDepth,
		s.statistics.CurrentExtraSearchDepth,
		s.statistics.CurrentBestRootMoveValue.String(),
		s.nodesVisited,
		s.getNps(),
		time.Since(s.startTime).Milliseconds(),
		s.pv[0].StringUci()))
}

// logAspirationResearch logs a fail-high/fail-low aspiration re-search.
func (s *Search) logAspirationResearch(bound string) {
	s.log.Infof(out.Sprintf("depth %d seldepth %d value %s %s nodes %d nps %d time %d pv %s",
		s.statistics.CurrentSearchDepth,
		s.statistics.CurrentExtraSearchDepth,
		s.statistics.CurrentBestRootMoveValue.String(),
		bound,
		s.nodesVisited,
		s.getNps(),
		time.Since(s.startTime).Milliseconds(),
		s.pv[0].StringUci()))
}

// getNps calculates current nodes-per-second relative to s.startTime.
// Values above 15,000,000 nps, which only occur for very short times,
// are reported as 0.
func (s *Search) getNps() uint64 {
	nps := util.Nps(s.nodesVisited, time.Since(s.startTime)+100)
	if nps > 15_000_000 {
		nps = 0
	}
	return nps
}

// //////////////////////////////////////////////////////
// Getter and Setter
// //////////////////////////////////////////////////////

// LastSearchResult returns a copy of the last search result.
func (s *Search) LastSearchResult() Result {
	return *s.lastSearchResult
}

// NodesVisited returns the number of visited nodes in the last search.
func (s *Search) NodesVisited() uint64 {
	return s.nodesVisited
}

// Statistics returns a pointer to the search statistics of the last search.
func (s *Search) Statistics() *Statistics {
	return &s.statistics
}
