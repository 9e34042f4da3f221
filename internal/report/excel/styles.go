package excel

import (
	"github.com/xuri/excelize/v2"

	"resell-reports/internal/model"
)

var formatKinds = []model.FormatKind{
	model.FormatText,
	model.FormatNumber,
	model.FormatCurrency,
	model.FormatPercent,
	model.FormatDate,
}

// styleSet holds the style IDs registered on one workbook.
type styleSet struct {
	title    int
	subtitle int
	header   int
	// data is indexed by kind, then by stripe (0 plain, 1 shaded).
	data  map[model.FormatKind][2]int
	total map[model.FormatKind]int
}

func newStyleSet(f *excelize.File, currencySymbol string) (*styleSet, error) {
	s := &styleSet{
		data:  make(map[model.FormatKind][2]int, len(formatKinds)),
		total: make(map[model.FormatKind]int, len(formatKinds)),
	}

	var err error
	if s.title, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
			Size: 14,
		},
		Alignment: &excelize.Alignment{
			Vertical: "center",
		},
	}); err != nil {
		return nil, err
	}

	if s.subtitle, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Italic: true,
			Color:  colorMutedFg,
		},
	}); err != nil {
		return nil, err
	}

	if s.header, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold:  true,
			Size:  11,
			Color: colorHeaderFg,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{colorHeaderBg},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	}); err != nil {
		return nil, err
	}

	for _, kind := range formatKinds {
		numFmt := numberFormat(kind, currencySymbol)

		plain, err := f.NewStyle(&excelize.Style{CustomNumFmt: numFmt})
		if err != nil {
			return nil, err
		}
		shaded, err := f.NewStyle(&excelize.Style{
			CustomNumFmt: numFmt,
			Fill: excelize.Fill{
				Type:    "pattern",
				Color:   []string{colorStripeBg},
				Pattern: 1,
			},
		})
		if err != nil {
			return nil, err
		}
		s.data[kind] = [2]int{plain, shaded}

		total, err := f.NewStyle(&excelize.Style{
			CustomNumFmt: numFmt,
			Font: &excelize.Font{
				Bold: true,
			},
			Fill: excelize.Fill{
				Type:    "pattern",
				Color:   []string{colorTotalBg},
				Pattern: 1,
			},
			Border: []excelize.Border{
				{Type: "top", Color: "000000", Style: 1},
			},
		})
		if err != nil {
			return nil, err
		}
		s.total[kind] = total
	}

	return s, nil
}

// numberFormat returns the custom number format for a column kind, or nil
// for text.
func numberFormat(kind model.FormatKind, currencySymbol string) *string {
	var code string
	switch kind {
	case model.FormatCurrency:
		code = `"` + currencySymbol + `"#,##0.00`
	case model.FormatNumber:
		code = numFmtNumber
	case model.FormatPercent:
		code = numFmtPercent
	case model.FormatDate:
		code = numFmtDate
	default:
		return nil
	}
	return &code
}
