// Package fragments provides the in-memory model of a single-cell ATAC
// fragment population: one record per distinct (location, barcode) fragment,
// weighted by the number of physical reads collapsed into it, plus readers
// for the fragments BED and barcode whitelist formats.
package fragments

// BarcodeID is a dense sequence number (0, 1, 2, ...) assigned to a cell
// barcode string. IDs are valid only within one process invocation.
type BarcodeID int32

// ChromID is a dense sequence number assigned to a chromosome name.
type ChromID int32

// Record is one distinct (location, barcode) fragment observation. Count is
// the number of physical reads the upstream duplicate marker collapsed into
// the record, so a well-formed record has Count >= 1. Records are immutable
// once loaded.
type Record struct {
	Chrom   ChromID
	Start   int32
	End     int32
	Barcode BarcodeID
	Count   int32
}

// Dict interns strings as dense int32 IDs, assigned in first-seen order.
// The zero value is ready to use. Thread compatible.
type Dict struct {
	ids  map[string]int32
	strs []string
}

// Intern finds or assigns the ID for s.
func (d *Dict) Intern(s string) int32 {
	if id, ok := d.ids[s]; ok {
		return id
	}
	if d.ids == nil {
		d.ids = make(map[string]int32)
	}
	id := int32(len(d.strs))
	d.ids[s] = id
	d.strs = append(d.strs, s)
	return id
}

// InternBytes is Intern for a byte slice. The bytes are copied only when b
// has not been seen before, so the caller may reuse its buffer.
func (d *Dict) InternBytes(b []byte) int32 {
	if id, ok := d.ids[string(b)]; ok {
		return id
	}
	return d.Intern(string(b))
}

// Lookup returns the ID for s without interning it.
func (d *Dict) Lookup(s string) (int32, bool) {
	id, ok := d.ids[s]
	return id, ok
}

// Name returns the string interned as id.
//
// REQUIRES: id was returned by Intern on this Dict.
func (d *Dict) Name(id int32) string { return d.strs[id] }

// Len returns the number of distinct strings interned so far.
func (d *Dict) Len() int { return len(d.strs) }

// Table is a fragment population together with the dictionaries that the
// records' Barcode and Chrom fields index into. It is read-only input to the
// subsampling engine; nothing downstream mutates it.
type Table struct {
	Recs     []Record
	Barcodes Dict
	Chroms   Dict
}

// TotalReads returns the duplicate-expanded size of the population, i.e. the
// sum of Count over all records.
func (t *Table) TotalReads() int64 {
	var n int64
	for i := range t.Recs {
		n += int64(t.Recs[i].Count)
	}
	return n
}

// Subset returns a table restricted to records whose barcode appears in
// whitelist. The dictionaries are shared with t, so IDs remain comparable
// across the two tables.
func (t *Table) Subset(whitelist map[string]struct{}) *Table {
	keep := make([]bool, t.Barcodes.Len())
	for i := range keep {
		_, keep[i] = whitelist[t.Barcodes.Name(int32(i))]
	}
	sub := &Table{Barcodes: t.Barcodes, Chroms: t.Chroms}
	for _, rec := range t.Recs {
		if keep[rec.Barcode] {
			sub.Recs = append(sub.Recs, rec)
		}
	}
	return sub
}
