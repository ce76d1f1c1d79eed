package completion

import (
	"sort"

	"tradejournal/src/model"

	logger "github.com/sirupsen/logrus"
)

// GroupKey identifies the instrument a cycle is tracked on.
type GroupKey struct {
	Symbol         string
	InstrumentType string
	OptionKey      string
}

func groupKeyOf(exec *model.Execution) GroupKey {
	return GroupKey{
		Symbol:         exec.Symbol,
		InstrumentType: exec.InstrumentType,
		OptionKey:      exec.Option.Key(),
	}
}

// Cycle is the ordered list of fills taking one instrument from flat back to flat.
type Cycle struct {
	Key   GroupKey
	Fills []model.Execution
}

// DetectCycles groups unlinked fills by instrument and cuts every group into
// closed round trips. Fills of a cycle still open at the end of a group are
// returned in none of the cycles and stay unlinked.
func DetectCycles(fills []model.Execution) []Cycle {
	groups := make(map[GroupKey][]model.Execution)
	var order []GroupKey

	for i := range fills {
		key := groupKeyOf(&fills[i])
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], fills[i])
	}

	var cycles []Cycle
	for _, key := range order {
		cycles = append(cycles, detectGroupCycles(key, groups[key])...)
	}

	return cycles
}

func detectGroupCycles(key GroupKey, fills []model.Execution) []Cycle {
	sort.SliceStable(fills, func(i, j int) bool {
		if fills[i].ExecTimestamp.Equal(fills[j].ExecTimestamp) {
			return fills[i].ID < fills[j].ID
		}
		return fills[i].ExecTimestamp.Before(fills[j].ExecTimestamp)
	})

	var (
		cycles  []Cycle
		buffer  []model.Execution
		running int64
	)

	for i := range fills {
		exec := fills[i]

		if exec.CompletedTradeID != nil {
			continue
		}

		if exec.PosEffect == model.PosEffectToClose && len(buffer) == 0 {
			logger.WithFields(logger.Fields{
				"component": "TradeCompletion",
				"symbol":    key.Symbol,
				"exec_id":   exec.ID,
			}).Warn("closing fill before any open in this scan, skipped")
			continue
		}

		buffer = append(buffer, exec)
		running += exec.SignedQty()

		if running == 0 {
			cycles = append(cycles, Cycle{Key: key, Fills: buffer})
			buffer = nil
		}
	}

	if len(buffer) > 0 {
		logger.WithFields(logger.Fields{
			"component": "TradeCompletion",
			"symbol":    key.Symbol,
			"open_qty":  running,
			"fills":     len(buffer),
		}).Debug("cycle still open, left unlinked")
	}

	return cycles
}
