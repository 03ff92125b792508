// Package engine is the engine-to-host contract: a single Game type that
// wraps position, move generation, and search behind a small surface a
// host process can drive without reaching into any internal package
// itself. It implements no transport of its own; a protocol loop on top
// of it is out of scope here.
package engine

import (
	"github.com/TobiasAlexanderWulff/chess-engine/corechess"
	"github.com/TobiasAlexanderWulff/chess-engine/internal/movegen"
	"github.com/TobiasAlexanderWulff/chess-engine/internal/moveslice"
	"github.com/TobiasAlexanderWulff/chess-engine/internal/position"
	"github.com/TobiasAlexanderWulff/chess-engine/internal/search"
	. "github.com/TobiasAlexanderWulff/chess-engine/internal/types"
)

// Status summarises the game-theoretic state of a Game's current
// position.
type Status int

const (
	// Ongoing means the game has at least one legal move and is not
	// drawn by the fifty-move rule, repetition, or insufficient material.
	Ongoing Status = iota
	// Check means the side to move is in check but has a legal reply.
	Check
	// Checkmate means the side to move is in check with no legal reply.
	Checkmate
	// Stalemate means the side to move has no legal move and is not in
	// check.
	Stalemate
	// DrawByRepetition means the current position has occurred three
	// times with the same side to move.
	DrawByRepetition
	// DrawByFiftyMoves means fifty full moves have passed without a pawn
	// move or capture.
	DrawByFiftyMoves
	// DrawByInsufficientMaterial means neither side has enough material
	// left to force checkmate.
	DrawByInsufficientMaterial
)

func (s Status) String() string {
	switch s {
	case Ongoing:
		return "Ongoing"
	case Check:
		return "Check"
	case Checkmate:
		return "Checkmate"
	case Stalemate:
		return "Stalemate"
	case DrawByRepetition:
		return "DrawByRepetition"
	case DrawByFiftyMoves:
		return "DrawByFiftyMoves"
	case DrawByInsufficientMaterial:
		return "DrawByInsufficientMaterial"
	default:
		return "Unknown"
	}
}

// Game owns a position and the move generation and search work-areas
// needed to drive it. It is not safe for concurrent use by multiple
// goroutines other than the concurrency search.Search already manages
// internally for StartSearch/StopSearch.
type Game struct {
	pos    *position.Position
	mg     *movegen.Movegen
	search *search.Search
}

// NewGame creates a Game starting from the standard chess starting
// position.
func NewGame() *Game {
	return &Game{
		pos:    position.NewPosition(),
		mg:     movegen.NewMoveGen(),
		search: search.NewSearch(),
	}
}

// NewGameFromFEN creates a Game from a FEN string. It returns a
// *corechess.Error of kind InvalidFen if the string does not parse.
func NewGameFromFEN(fen string) (*Game, error) {
	p, err := position.NewPositionFen(fen)
	if err != nil {
		return nil, corechess.Wrap(corechess.InvalidFen, err, "invalid fen %q", fen)
	}
	return &Game{
		pos:    p,
		mg:     movegen.NewMoveGen(),
		search: search.NewSearch(),
	}, nil
}

// FEN returns the FEN string of the current position.
func (g *Game) FEN() string {
	return g.pos.StringFen()
}

// LegalMoves returns every legal move in the current position in UCI
// notation.
func (g *Game) LegalMoves() []string {
	legal := g.mg.GenerateLegalMoves(g.pos, movegen.GenAll)
	moves := make([]string, 0, len(*legal))
	for _, m := range *legal {
		moves = append(moves, m.StringUci())
	}
	return moves
}

// ApplyMove plays the move identified by its UCI notation (e.g. "e2e4",
// "e7e8q"). It returns a *corechess.Error of kind IllegalMove if the
// string does not match a legal move in the current position.
func (g *Game) ApplyMove(uciMove string) error {
	move := g.mg.GetMoveFromUci(g.pos, uciMove)
	if move == MoveNone {
		return corechess.New(corechess.IllegalMove, "move %q is not legal in position %s", uciMove, g.pos.StringFen())
	}
	g.pos.DoMove(move)
	return nil
}

// UndoMove reverts the most recently applied move. It returns a
// *corechess.Error of kind HistoryEmpty if there is nothing to undo.
func (g *Game) UndoMove() error {
	if g.pos.LastMove() == MoveNone {
		return corechess.New(corechess.HistoryEmpty, "no move to undo")
	}
	g.pos.UndoMove()
	return nil
}

// Status reports the game-theoretic state of the current position.
func (g *Game) Status() Status {
	hasLegalMove := g.mg.HasLegalMove(g.pos)
	inCheck := g.pos.HasCheck()
	switch {
	case inCheck && !hasLegalMove:
		return Checkmate
	case !inCheck && !hasLegalMove:
		return Stalemate
	case g.pos.CheckRepetitions(2):
		return DrawByRepetition
	case g.pos.HalfMoveClock() >= 100:
		return DrawByFiftyMoves
	case g.pos.HasInsufficientMaterial():
		return DrawByInsufficientMaterial
	case inCheck:
		return Check
	default:
		return Ongoing
	}
}

// Search runs the search on the current position under the given
// limits and blocks until it finishes or is stopped. It returns a
// *corechess.Error of kind SearchAborted if the search did not produce
// a usable move, which can happen if StopSearch is called before the
// first iteration completes.
func (g *Game) Search(limits search.Limits) (search.Result, error) {
	g.search.StartSearch(*g.pos, limits)
	g.search.WaitWhileSearching()
	result := g.search.LastSearchResult()
	if result.BestMove == MoveNone {
		return result, corechess.New(corechess.SearchAborted, "search produced no move")
	}
	return result, nil
}

// StopSearch requests an in-progress Search call to stop as soon as
// possible.
func (g *Game) StopSearch() {
	g.search.StopSearch()
}

// Perft runs a node-count move generation benchmark to the given depth
// from the current position. StartPerft builds its own working position
// from the FEN it is given, so the caller's position is never touched.
func (g *Game) Perft(depth int, onDemand bool) *movegen.Perft {
	perft := movegen.NewPerft()
	perft.StartPerft(g.pos.StringFen(), depth, onDemand)
	return perft
}

// MovesFromUci resolves a list of UCI move strings against the current
// position's legal moves, skipping any that do not match. Useful for
// building search.Limits.Moves restricting a search to a subset of
// candidates.
func (g *Game) MovesFromUci(uciMoves []string) moveslice.MoveSlice {
	ml := make(moveslice.MoveSlice, 0, len(uciMoves))
	for _, u := range uciMoves {
		if m := g.mg.GetMoveFromUci(g.pos, u); m != MoveNone {
			ml = append(ml, m)
		}
	}
	return ml
}
