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

// Command engine is a small demo binary driving the chess-engine core
// directly: perft node counting, a timed nodes-per-second benchmark, and
// a one-shot search on a given position. It speaks to no protocol and
// runs no loop; it exists to exercise internal/engine from the command
// line the way a host process eventually would.
package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/pkg/profile"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/TobiasAlexanderWulff/chess-engine/internal/config"
	"github.com/TobiasAlexanderWulff/chess-engine/internal/engine"
	"github.com/TobiasAlexanderWulff/chess-engine/internal/logging"
	"github.com/TobiasAlexanderWulff/chess-engine/internal/position"
	"github.com/TobiasAlexanderWulff/chess-engine/internal/search"
	"github.com/TobiasAlexanderWulff/chess-engine/internal/util"
)

var out = message.NewPrinter(language.German)

func main() {
	versionInfo := flag.Bool("version", false, "prints version and exits")
	configFile := flag.String("config", "./config.toml", "path to configuration settings file")
	logLvl := flag.String("loglvl", "info", "standard log level\n(critical|error|warning|notice|info|debug)")
	searchLogLvl := flag.String("searchloglvl", "", "search log level\n(critical|error|warning|notice|info|debug)")
	logPath := flag.String("logpath", "./logs", "path where to write the search trace log file to")
	perft := flag.Int("perft", 0, "starts perft on the start position with the given depth\nuse -fen to provide a different position")
	fen := flag.String("fen", position.StartFen, "fen for perft, nps and search")
	nps := flag.Int("nps", 0, "starts a nodes per second test on the given position for this many seconds")
	depth := flag.Int("depth", 0, "runs a single search to the given depth and prints the result\nuse -fen to provide a different position")
	cpuProfile := flag.Bool("profile", false, "wraps the requested benchmark in a CPU profile written to the working directory")
	flag.Parse()

	if *versionInfo {
		printVersionInfo()
		return
	}

	if *cpuProfile {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
	}

	config.ConfFile = *configFile
	config.Setup()

	if *logPath != "" {
		config.Settings.Log.LogPath = *logPath
	}
	if lvl, found := config.LogLevels[*logLvl]; found {
		config.LogLevel = lvl
	}
	if lvl, found := config.LogLevels[*searchLogLvl]; found {
		config.SearchLogLevel = lvl
	}
	// reset the standard logger now that the cmd line overrides are applied;
	// packages grab the default-level logger as a package var before main runs.
	logging.GetLog()

	switch {
	case *nps != 0:
		runNps(*fen, *nps)
	case *perft != 0:
		runPerft(*fen, *perft)
	case *depth != 0:
		runSearch(*fen, *depth)
	default:
		flag.Usage()
	}
}

func runNps(fen string, seconds int) {
	s := search.NewSearch()
	p := position.NewPosition(fen)
	sl := search.NewSearchLimits()
	sl.TimeControl = true
	sl.MoveTime = time.Duration(seconds) * time.Second
	s.StartSearch(*p, *sl)
	s.WaitWhileSearching()
	out.Println()
	out.Println("NPS : ", util.Nps(s.NodesVisited(), s.LastSearchResult().SearchTime))
}

func runPerft(fen string, maxDepth int) {
	g, err := engine.NewGameFromFEN(fen)
	if err != nil {
		fmt.Println(err)
		return
	}
	for d := 1; d <= maxDepth; d++ {
		_ = g.Perft(d, true)
	}
}

func runSearch(fen string, depth int) {
	g, err := engine.NewGameFromFEN(fen)
	if err != nil {
		fmt.Println(err)
		return
	}
	sl := search.NewSearchLimits()
	sl.Depth = depth
	result, err := g.Search(*sl)
	if err != nil {
		fmt.Println(err)
		return
	}
	out.Printf("bestmove %s  value %d  depth %d  pv length %d  pv %s\n",
		result.BestMove.StringUci(), result.BestValue, result.SearchDepth, result.Pv.Len(), result.Pv.StringUci())
}

func printVersionInfo() {
	out.Println("chess-engine")
	out.Println("Environment:")
	out.Printf("  Using GO version %s\n", runtime.Version())
	out.Printf("  Running %s using %s as a compiler\n", runtime.GOARCH, runtime.Compiler)
	out.Printf("  Number of CPU: %d\n", runtime.NumCPU())
	cwd, _ := os.Getwd()
	out.Printf("  Working directory: %s\n", cwd)
}
