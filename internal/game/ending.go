package game

import (
	"encoding/json"
	"fmt"

	"github.com/hailam/chesslink/internal/board"
)

// EndingKind classifies how a game concluded.
type EndingKind uint8

const (
	Checkmate EndingKind = iota
	Resignation
	OutOfTime
	Stalemate
	DrawByThreefoldRepetition
	DrawByFiftyMoveRule
	DrawByInsufficientMaterial
	DrawByMutualAgreement
)

// endingNames is indexed by EndingKind.
var endingNames = [8]string{
	"checkmate",
	"resignation",
	"out-of-time",
	"stalemate",
	"draw-by-threefold-repetition",
	"draw-by-fifty-move-rule",
	"draw-by-insufficient-material",
	"draw-by-mutual-agreement",
}

// hasLoser reports whether the kind carries a losing color.
func (k EndingKind) hasLoser() bool {
	return k == Checkmate || k == Resignation || k == OutOfTime
}

func (k EndingKind) String() string {
	if int(k) >= len(endingNames) {
		return "unknown"
	}
	return endingNames[k]
}

// Ending is a concluded game's classification. Loser is set for the
// kinds decided against one side and nil for stalemate and draws.
type Ending struct {
	Kind  EndingKind
	Loser *board.Color
}

// Lost builds an ending decided against the given color.
func Lost(kind EndingKind, loser board.Color) Ending {
	return Ending{Kind: kind, Loser: &loser}
}

// Winner returns the winning color, or nil for endings without one.
func (e Ending) Winner() *board.Color {
	if !e.Kind.hasLoser() || e.Loser == nil {
		return nil
	}
	w := e.Loser.Other()
	return &w
}

// MarshalJSON encodes loser-carrying kinds as a single-key object like
// {"checkmate":"white"} and the rest as bare kebab-case strings.
func (e Ending) MarshalJSON() ([]byte, error) {
	if e.Kind.hasLoser() {
		if e.Loser == nil {
			return nil, fmt.Errorf("ending %s requires a loser", e.Kind)
		}
		return json.Marshal(map[string]board.Color{e.Kind.String(): *e.Loser})
	}
	return json.Marshal(e.Kind.String())
}

// UnmarshalJSON reverses MarshalJSON.
func (e *Ending) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		for i, n := range endingNames {
			if n == name && !EndingKind(i).hasLoser() {
				*e = Ending{Kind: EndingKind(i)}
				return nil
			}
		}
		return fmt.Errorf("%q is not a valid game ending", name)
	}

	var tagged map[string]board.Color
	if err := json.Unmarshal(data, &tagged); err != nil {
		return err
	}
	if len(tagged) != 1 {
		return fmt.Errorf("game ending must have exactly one variant")
	}
	for name, loser := range tagged {
		for i, n := range endingNames {
			if n == name && EndingKind(i).hasLoser() {
				l := loser
				*e = Ending{Kind: EndingKind(i), Loser: &l}
				return nil
			}
		}
		return fmt.Errorf("%q is not a valid game ending", name)
	}
	return nil
}

// Phase is the lifecycle stage of a game.
type Phase uint8

const (
	NotStarted Phase = iota
	InProgress
	Finished
)

const (
	phaseNotStarted = "not-started"
	phaseInProgress = "in-progress"
	phaseFinished   = "finished"
)

// Status pairs a phase with its ending once finished.
type Status struct {
	Phase  Phase
	Ending *Ending
}

// FinishedStatus builds a finished status with the given ending.
func FinishedStatus(e Ending) Status {
	return Status{Phase: Finished, Ending: &e}
}

// MarshalJSON encodes the open phases as bare strings and the finished
// phase as {"finished": <ending>}.
func (s Status) MarshalJSON() ([]byte, error) {
	switch s.Phase {
	case NotStarted:
		return json.Marshal(phaseNotStarted)
	case InProgress:
		return json.Marshal(phaseInProgress)
	case Finished:
		if s.Ending == nil {
			return nil, fmt.Errorf("finished status requires an ending")
		}
		return json.Marshal(map[string]Ending{phaseFinished: *s.Ending})
	}
	return nil, fmt.Errorf("unknown phase %d", s.Phase)
}

// UnmarshalJSON reverses MarshalJSON.
func (s *Status) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		switch name {
		case phaseNotStarted:
			*s = Status{Phase: NotStarted}
		case phaseInProgress:
			*s = Status{Phase: InProgress}
		default:
			return fmt.Errorf("%q is not a valid game state", name)
		}
		return nil
	}

	var tagged map[string]Ending
	if err := json.Unmarshal(data, &tagged); err != nil {
		return err
	}
	ending, ok := tagged[phaseFinished]
	if !ok || len(tagged) != 1 {
		return fmt.Errorf("invalid game state object")
	}
	*s = FinishedStatus(ending)
	return nil
}
