/*
bio-saturation estimates how close a single-cell ATAC library is to
sequencing saturation, given a fragments BED file (chrom, start, end, cell
barcode, read count per fragment).

The tool subsamples the reads at a series of fractions, recomputes
per-barcode fragment statistics at each depth, fits a Michaelis-Menten curve
(median unique fragments per barcode as a function of total read count), and
reports the sequencing depth required to reach the requested saturation
percentages. It writes a TSV of the subsampling statistics and a PNG of the
fitted curve.

Sample usage:
bio-saturation \
    -input fragments.tsv.gz \
    -output sample1 \
    -percentages 0.3,0.6,0.9

A previously written statistics table can be refit without resampling:
bio-saturation \
    -stats sample1.sampling_stats.tsv \
    -output sample1-refit
*/
package main
