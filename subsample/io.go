package subsample

import (
	"io"
	"strconv"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/tsv"
)

// statsHeader lists the stats TSV columns, one row per fraction.
const statsHeader = "fraction\ttotal_frag_count\tmean_frag_per_bc\tmedian_uniq_frag_per_bc\tcell_barcode_count"

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteTSV writes the table in the stats TSV layout. NaN statistics are
// written literally as NaN and survive a reload.
func (t *Table) WriteTSV(w io.Writer) (err error) {
	tw := tsv.NewWriter(w)
	setErr := func(e error) {
		if e != nil && err == nil {
			err = e
		}
	}
	tw.WriteString(statsHeader)
	setErr(tw.EndLine())
	for _, row := range t.Rows {
		tw.WriteString(formatFloat(row.Fraction))
		tw.WriteInt64(row.TotalFragCount)
		tw.WriteString(formatFloat(row.MeanFragPerBC))
		tw.WriteString(formatFloat(row.MedianUniqFragPerBC))
		tw.WriteInt64(row.CellBarcodeCount)
		setErr(tw.EndLine())
	}
	setErr(tw.Flush())
	return err
}

// ReadTSV reads a table previously written by WriteTSV, so the curve fitter
// can run on saved statistics without redoing the sampling.
func ReadTSV(r io.Reader) (*Table, error) {
	tr := tsv.NewReader(r)
	tr.HasHeaderRow = true
	t := &Table{}
	for {
		var row Row
		if err := tr.Read(&row); err != nil {
			if err == io.EOF {
				break
			}
			return nil, errors.E(err, "reading stats table")
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}
