package datasets

import (
	"context"
	"fmt"
	"strconv"

	"github.com/JonMunkholm/histnorm/internal/core"
	"github.com/JonMunkholm/histnorm/internal/frame"
	"github.com/JonMunkholm/histnorm/internal/logging"
	"github.com/JonMunkholm/histnorm/internal/units"
)

// T001 is coastal shipping freight activity from the International
// Transport Forum (OECD ITF_GOODS_TRANSPORT).
//
// Upstream values for China in 1986-2001 are two orders of magnitude too
// low; the transform multiplies them by 100.
var T001 = core.Dataset{
	Info: core.Info{
		ID:          "T001",
		Name:        "Coastal shipping (national transport)",
		Description: "ITF freight activity, coastal shipping, converted to Gt km / year",
	},
	Check: func(raw *frame.Frame) error {
		return core.Checks(raw,
			func(f *frame.Frame) error {
				return core.ExpectValues(f, "Variable", "Coastal shipping (national transport)")
			},
			func(f *frame.Frame) error { return core.ExpectValues(f, "PowerCode", "Millions") },
			func(f *frame.Frame) error { return core.ExpectValues(f, "Unit", "Tonnes-kilometres") },
		)
	},
	Columns: &core.ColumnConfig{
		Drop: []string{
			"COUNTRY",
			"VARIABLE",
			"YEAR",
			"Flag Codes",
			"Flags",
			"PowerCode Code",
			"PowerCode",
			"Reference Period Code",
			"Reference Period",
			"Unit Code",
			"Unit",
		},
	},
	Transform: transformT001,
	CommonDims: map[string]string{
		"variable":     "Freight Activity",
		"source":       "International Transport Forum",
		"service":      "Freight",
		"technology":   "All",
		"fuel":         "All",
		"mode":         "Shipping",
		"vehicle_type": "Coastal",
	},
}

func init() {
	core.Register(T001)
}

// China rows with chinaFirstBadYear <= Year <= chinaLastBadYear are scaled
// by chinaCorrection.
const (
	chinaFirstBadYear = 1986
	chinaLastBadYear  = 2001
	chinaCorrection   = 100.0
)

func transformT001(ctx context.Context, raw *frame.Frame) (*frame.Frame, error) {
	logger := logging.FromContext(ctx)

	table, err := core.DropEmpty(ctx, raw, "Value", "Country")
	if err != nil {
		return nil, err
	}
	table = core.DropIncomplete(table)

	if err := units.ConvertColumn(table, "Value", "Unit", "Mt km / year", "Gt km / year"); err != nil {
		return nil, err
	}

	corrected := 0
	for i := 0; i < table.Len(); i++ {
		if table.Get(i, "Country") != "China" {
			continue
		}
		year, err := strconv.Atoi(table.Get(i, "Year"))
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid year %q", i+1, table.Get(i, "Year"))
		}
		if year < chinaFirstBadYear || year > chinaLastBadYear {
			continue
		}
		v, err := units.ParseValue(table.Get(i, "Value"))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		if err := table.Set(i, "Value", units.FormatValue(v*chinaCorrection)); err != nil {
			return nil, err
		}
		corrected++
	}
	logger.Debug("china values corrected", "rows", corrected)

	return table, nil
}
