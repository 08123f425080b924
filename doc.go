/*

Package sas7bdat decodes tables stored in the proprietary SAS7BDAT
binary format without requiring a SAS installation.  There is no
official documentation of the format; this code is based on previous
efforts to reverse-engineer it, in particular:

https://cran.r-project.org/web/packages/sas7bdat/vignettes/sas7bdat.pdf

A file is opened with Open or OpenFile, which parses the file header
and all metadata pages and produces an immutable column schema.  Row
data is then exposed as a lazy, forward-only iteration over decoded
rows.  Both of the compression schemes used by the format (the RLE
scheme tagged SASYZCRL and the Ross Data Compression scheme tagged
SASYZCR2) are supported, for both 32- and 64-bit files of either byte
order.

The package also includes a delimited-text exporter and a simple
column-oriented container (Series/Frame) for callers that want the
data by column rather than by row.

*/
package sas7bdat
