package dispatcher

import (
	"strconv"
	"strings"

	"github.com/cas-centre/stagecore/internal/stageerr"
	"github.com/cas-centre/stagecore/internal/topology"
)

// Kind identifies which of the closed command set a Command is. Modeling
// the grammar as a tagged variant parsed once up front (SPEC_FULL.md §9,
// "Dynamic-dispatch command handling") removes string comparisons from the
// dispatch switch. Go does not check that switch for exhaustiveness.
type Kind int

const (
	CmdStatus Kind = iota
	CmdSetRate
	CmdSetAmp
	CmdSetFreq
	CmdMove
	CmdStop
)

func (k Kind) String() string {
	switch k {
	case CmdStatus:
		return "STATUS"
	case CmdSetRate:
		return "SET_RATE"
	case CmdSetAmp:
		return "SET_AMP"
	case CmdSetFreq:
		return "SET_FREQ"
	case CmdMove:
		return "MOVE"
	case CmdStop:
		return "STOP"
	default:
		return "UNKNOWN"
	}
}

// Command is a parsed bus command (SPEC_FULL.md §4.6 grammar).
type Command struct {
	Kind   Kind
	Axis   topology.AxisId // set for axis-scoped commands
	IntArg int32           // rate (Hz), amplitude (mV), frequency (mHz), or target position
}

// ParseCommand parses a raw command-topic payload into a Command. Syntax
// errors are reported as *stageerr.StageError with ErrCodeInvalidParameters,
// matching the "FAILED/Invalid <CMD> command format" result text.
func ParseCommand(payload string) (Command, error) {
	parts := strings.Split(payload, "/")
	if len(parts) == 0 || parts[0] == "" {
		return Command{}, stageerr.New("parse", stageerr.ErrCodeInvalidParameters, "empty command")
	}

	switch parts[0] {
	case "STATUS":
		if len(parts) != 1 {
			return Command{}, invalidFormat("STATUS")
		}
		return Command{Kind: CmdStatus}, nil

	case "SET_RATE":
		if len(parts) != 2 {
			return Command{}, invalidFormat("SET_RATE")
		}
		rate, err := strconv.Atoi(parts[1])
		if err != nil {
			return Command{}, invalidFormat("SET_RATE")
		}
		return Command{Kind: CmdSetRate, IntArg: int32(rate)}, nil

	case "SET_AMP":
		if len(parts) != 3 {
			return Command{}, invalidFormat("SET_AMP")
		}
		axis, err := parseAxis(parts[1])
		if err != nil {
			return Command{}, invalidFormat("SET_AMP")
		}
		mv, err := strconv.Atoi(parts[2])
		if err != nil {
			return Command{}, invalidFormat("SET_AMP")
		}
		return Command{Kind: CmdSetAmp, Axis: axis, IntArg: int32(mv)}, nil

	case "SET_FREQ":
		if len(parts) != 3 {
			return Command{}, invalidFormat("SET_FREQ")
		}
		axis, err := parseAxis(parts[1])
		if err != nil {
			return Command{}, invalidFormat("SET_FREQ")
		}
		mhz, err := strconv.Atoi(parts[2])
		if err != nil {
			return Command{}, invalidFormat("SET_FREQ")
		}
		return Command{Kind: CmdSetFreq, Axis: axis, IntArg: int32(mhz)}, nil

	case "MOVE":
		if len(parts) != 3 {
			return Command{}, invalidFormat("MOVE")
		}
		axis, err := parseAxis(parts[1])
		if err != nil {
			return Command{}, invalidFormat("MOVE")
		}
		pos, err := strconv.Atoi(parts[2])
		if err != nil {
			return Command{}, invalidFormat("MOVE")
		}
		return Command{Kind: CmdMove, Axis: axis, IntArg: int32(pos)}, nil

	case "STOP":
		if len(parts) != 2 {
			return Command{}, invalidFormat("STOP")
		}
		axis, err := parseAxis(parts[1])
		if err != nil {
			return Command{}, invalidFormat("STOP")
		}
		return Command{Kind: CmdStop, Axis: axis}, nil

	default:
		return Command{}, stageerr.New("parse", stageerr.ErrCodeInvalidParameters, "unknown command "+parts[0])
	}
}

func parseAxis(s string) (topology.AxisId, error) {
	switch topology.AxisId(s) {
	case topology.AxisX, topology.AxisY, topology.AxisZ, topology.AxisR:
		return topology.AxisId(s), nil
	default:
		return "", stageerr.New("parse", stageerr.ErrCodeInvalidParameters, "unknown axis "+s)
	}
}

func invalidFormat(cmd string) error {
	return stageerr.New("parse", stageerr.ErrCodeInvalidParameters, "Invalid "+cmd+" command format")
}
