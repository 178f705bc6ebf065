// Package domain models Romanian National Meteorological Administration (ANM)
// weather warnings as they reach the alert map card.
//
// # Data Source
//
// Warnings originate from the ANM public API at
// https://www.meteoromania.ro/wp-json/meteoapi/v2/. The "avertizari-generale"
// endpoint lists active warnings, each naming the counties (judete) it covers
// and the colour code assigned to every county. A Home Assistant sensor (or the
// built-in ANM feed adapter) reshapes that payload into an entity state whose
// attributes the card consumes.
//
// # Entity Attributes
//
// The card reads one entity from the host state table. Its attributes carry
// either a sequence of maps:
//
//	{"maps": [{"shapes": [{"id": "AB", "culoare": "2"}], "meta": {...}}, ...]}
//
// or a single flat map:
//
//	{"shapes": [{"id": "AB", "culoare": "2"}], "meta": {...}}
//
// "maps" may also be a keyed object; its values are taken in JavaScript
// property order (integer-like keys ascending, then insertion order) because
// that is how the dashboard host enumerates them.
//
// # Colour Codes
//
// ANM colours map onto four mutually exclusive severity classes:
//
//	no warning  -> cod0 (baseline)
//	"1" yellow  -> cod1
//	"2" orange  -> cod2
//	"3" red     -> cod3
//
// Any other value, including a missing one, is rendered as cod1. ANM has
// published "9" for unclassified warnings; those are deliberately shown at the
// lowest alert level rather than rejected.
//
// # Region Identifiers
//
// Shape ids are county codes (e.g. "AB", "CJ", "B"). Map regions carry the code
// in data-judet / data-munte attributes, the element id or a class token,
// often with a prefix ("RO_AB", "judet-AB"). Matching is therefore a
// case-insensitive suffix match performed by the matcher package.
package domain
