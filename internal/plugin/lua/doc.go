// Package lua runs language feature providers written in Lua.
//
// Each script gets its own sandboxed gopher-lua state with the base,
// table, string and math libraries. Functions that load code or modules
// are removed and print goes to the host log. A script provides features
// by defining globals:
//
//	function diagnostics(doc) return { {range = {0, 0, 0, 4}, message = "..."} } end
//	function format(doc, opts) return { {range = r, text = "..."} } end
//	function format_range(doc, range, opts) return { ... } end
//	function hover(doc, pos) return "markdown" end
//
// Documents are read-only tables; see documentTable for their fields and
// methods. Positions are zero-based and count UTF-16 code units, like the
// rest of the document model. The exthost global offers log(level, msg)
// and the severity constants.
//
// Scripts are declared in the [[scripts]] configuration section and bound
// to a languages.Registry with LoadAll.
package lua
