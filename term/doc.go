// Package term defines the unified identity scheme of the zukunft core.
//
// Four entity kinds (word, triple, formula, verb) share one global name
// space and are addressed through a single signed integer "term id". Words
// and triples additionally share the signed "phrase id" space used wherever
// a numeric value is attributed to a concept. The two encodings are distinct
// and must never be mixed: phrase id -5 means triple #5, while term id -5
// means triple #3.
//
// The codec functions are pure and total over their documented domains:
// decoding always reproduces the exact kind and native id that encoding
// consumed.
package term
