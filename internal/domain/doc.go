// Package domain models the sensor-network snapshot published by the
// Quezon City iRISE UP dashboard.
//
// # Data Source
//
// The dashboard at https://web.iriseup.ph/sensor_networks renders a single HTML
// table client-side; there is no JSON API behind it. A renderer adapter loads the
// page in a headless browser, waits for "table tbody tr", and hands this package
// the visible cell text as a [Table]. Everything downstream of that is plain
// string processing.
//
// # Table Conventions
//
// Column order (observed, legacy positional layout):
//
//	SENSOR NAME | OBS TIME | NORMAL LEVEL | CURRENT | DESCRIPTION
//
// The upstream site has reordered and renamed columns before, so [Records]
// prefers a header row when one exists and matches cells case-insensitively
// against the recognized field names ("sensor name", "current", "normal",
// "obs time", "description"). A header cell matches a field when it equals the
// name or starts with it followed by a space, so "NORMAL LEVEL" maps to normal.
// Without a header the positional layout applies and rows shorter than five
// cells are skipped.
//
// Missing values:
//
//	"N/A" ([NotAvailable]) stands in for every field the table did not provide.
//	Empty cells are treated the same as missing ones.
//
// Readings:
//
//	Street-flood gauges report depth with a unit suffix: "0.35m".
//	Rain gauges, flood gauges, the flood risk index and the seismic network
//	report bare numbers, sometimes with a trailing unit ("12.5 mm").
//	Numeric categories keep the leading number; unparseable text is carried
//	through unchanged because readings are not validated semantically.
//
// # Classification
//
// The [Taxonomy] lists every sensor per category. Some stations appear in more
// than one category (the street-flood gauges and the flood risk index share all
// thirteen identifiers, and several also carry a rain gauge). [Classifier] picks
// exactly one category per row:
//
//	current contains "m"  →  a candidate whose shape has NORMAL LEVEL/DESCRIPTION
//	otherwise             →  a candidate with a bare-value shape
//	neither available     →  candidates in declaration order
//
// Within the chosen kind a category paired with another candidate through
// [CategorySpec.Counterpart] comes first, so a bare reading for a street-flood
// station lands in the flood risk index rather than its rain gauge. A category
// that already holds the station this cycle is skipped, which lets a second
// bare row for the same station fill the rain gauge. Only when every eligible
// category is filled is the row dropped as a duplicate.
//
// This is a substring test on the reading text, not a structural signal: a rain
// gauge reporting "12.5 mm" routes to a street-flood category if it shares an
// identifier with one. The rule is kept exactly as the dashboard consumers expect.
//
// Every identifier the taxonomy declares is present in every [Snapshot]. Sensors
// missing from the table get a default record (current 0.0, or "0.0m" for
// unit-suffixed categories) with [ClassifiedRecord.Defaulted] set.
package domain
