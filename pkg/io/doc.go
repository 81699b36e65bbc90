// Package io reads person records from CSV and imports and exports
// generation-labeled family graphs as JSON.
//
// # CSV Format
//
// The record source is a delimited file with a header row. Columns are
// positional; header names are ignored:
//
//	id,first,middle,last,mother,father,birth,death
//	1,Ada,,Lovelace,2,3,1815,1852
//	2,Anne,Isabella,Milbanke,,,1792,1860
//
// The middle-name column is ignored. Fields are trimmed and rows may have
// fewer columns than the header: missing name and date columns read as "?",
// missing parent columns as "no parent". A blank or non-numeric parent field
// is also "no parent", never id 0. Rows with an empty first and last name are
// skipped. A missing or non-numeric id is an [errors.ErrCodeInvalidRecord]
// error.
//
// # JSON Format
//
// Exported graphs carry each person's record, its generation (null when
// unresolved), the derived parent edges, and optional run metadata:
//
//	{
//	  "run_id": "5c1d...",
//	  "anchor": 1,
//	  "people": [
//	    {"id": 1, "first_name": "Ada", ..., "mother": 2, "generation": 0},
//	    {"id": 2, "first_name": "Anne", ..., "generation": 1}
//	  ],
//	  "edges": [{"from": 1, "to": 2, "relation": "mother"}]
//	}
//
// [ReadJSON] rebuilds the graph from the people array and restores their
// generations; the edges array is informational.
package io
