// Package uci implements the client side of the Universal Chess Interface
// protocol, used to query an external engine process for evaluations.
package uci

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrProtocol is returned for engine output that does not follow UCI.
var ErrProtocol = errors.New("uci: protocol error")

// Score is the score from an "info" line. It is relative to the side to
// move, as UCI engines report it.
type Score struct {
	CP         int
	Mate       int
	IsMate     bool
	LowerBound bool
	UpperBound bool
}

// IsBound reports whether the score is only a search window bound.
func (s Score) IsBound() bool {
	return s.LowerBound || s.UpperBound
}

// Info holds the fields of one "info" line.
type Info struct {
	Depth    int
	SelDepth int
	MultiPV  int
	Nodes    uint64
	Time     int // milliseconds
	HasScore bool
	Score    Score
	PV       []string
}

// ParseInfo parses an engine "info" line. Unknown tokens are skipped; a
// malformed value for a known numeric field is an error.
func ParseInfo(line string) (Info, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 || fields[0] != "info" {
		return Info{}, fmt.Errorf("%w: not an info line: %q", ErrProtocol, line)
	}
	args := fields[1:]

	var info Info
	intArg := func(i int) (int, error) {
		if i+1 >= len(args) {
			return 0, fmt.Errorf("%w: %q missing value in %q", ErrProtocol, args[i], line)
		}
		n, err := strconv.Atoi(args[i+1])
		if err != nil {
			return 0, fmt.Errorf("%w: bad %s value in %q", ErrProtocol, args[i], line)
		}
		return n, nil
	}

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "depth", "seldepth", "multipv", "time":
			n, err := intArg(i)
			if err != nil {
				return Info{}, err
			}
			switch args[i] {
			case "depth":
				info.Depth = n
			case "seldepth":
				info.SelDepth = n
			case "multipv":
				info.MultiPV = n
			case "time":
				info.Time = n
			}
			i++
		case "nodes":
			if i+1 >= len(args) {
				return Info{}, fmt.Errorf("%w: nodes missing value in %q", ErrProtocol, line)
			}
			n, err := strconv.ParseUint(args[i+1], 10, 64)
			if err != nil {
				return Info{}, fmt.Errorf("%w: bad nodes value in %q", ErrProtocol, line)
			}
			info.Nodes = n
			i++
		case "score":
			if i+2 >= len(args) {
				return Info{}, fmt.Errorf("%w: truncated score in %q", ErrProtocol, line)
			}
			n, err := strconv.Atoi(args[i+2])
			if err != nil {
				return Info{}, fmt.Errorf("%w: bad score value in %q", ErrProtocol, line)
			}
			switch args[i+1] {
			case "cp":
				info.Score.CP = n
			case "mate":
				info.Score.Mate = n
				info.Score.IsMate = true
			default:
				return Info{}, fmt.Errorf("%w: unknown score type %q in %q", ErrProtocol, args[i+1], line)
			}
			info.HasScore = true
			i += 2
		case "lowerbound":
			info.Score.LowerBound = true
		case "upperbound":
			info.Score.UpperBound = true
		case "wdl":
			i += 3
		case "pv":
			info.PV = append([]string(nil), args[i+1:]...)
			return info, nil
		case "string":
			// Free text runs to the end of the line.
			return info, nil
		}
	}

	return info, nil
}
