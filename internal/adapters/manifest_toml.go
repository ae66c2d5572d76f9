package adapters

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/pelletier/go-toml/v2"
	"github.com/pelletier/go-toml/v2/unstable"

	"cargo-vendor-one/internal/ports"
	"cargo-vendor-one/internal/shared"
)

// ManifestTOMLAdapter edits Cargo.toml files in place, touching only the
// bytes of the entries it sets.
type ManifestTOMLAdapter struct{}

func NewManifestTOMLAdapter() ManifestTOMLAdapter {
	return ManifestTOMLAdapter{}
}

func (a ManifestTOMLAdapter) Open(path string) (ports.ManifestEditor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ioError("failed to read manifest "+path, err)
	}
	var probe map[string]any
	if err := toml.Unmarshal(data, &probe); err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("invalid manifest " + path).
			WithCause(err)
	}
	return &ManifestDocument{path: path, data: data, newline: detectNewline(data)}, nil
}

type ManifestDocument struct {
	path    string
	data    []byte
	newline string
}

func (d *ManifestDocument) SetPatch(source string, name string, path string, version string) error {
	if err := d.setString([]string{"patch", source, name, "path"}, path); err != nil {
		return err
	}
	if version == "" {
		return nil
	}
	return d.setString([]string{"patch", source, name, "version"}, version)
}

// PatchSource finds the patch table under which name is redirected to
// dir. Relative patch paths are taken from the manifest's directory.
func (d *ManifestDocument) PatchSource(name string, dir string) (string, bool) {
	var doc struct {
		Patch map[string]map[string]any `toml:"patch"`
	}
	if err := toml.Unmarshal(d.data, &doc); err != nil {
		return "", false
	}
	sources := make([]string, 0, len(doc.Patch))
	for source := range doc.Patch {
		sources = append(sources, source)
	}
	sort.Strings(sources)

	want := comparablePath(dir)
	for _, source := range sources {
		entry, ok := doc.Patch[source][name].(map[string]any)
		if !ok {
			continue
		}
		patched, ok := entry["path"].(string)
		if !ok {
			continue
		}
		if !filepath.IsAbs(patched) {
			patched = filepath.Join(filepath.Dir(d.path), patched)
		}
		if comparablePath(patched) == want {
			return source, true
		}
	}
	return "", false
}

func (d *ManifestDocument) Bytes() []byte {
	return d.data
}

func (d *ManifestDocument) Commit() error {
	if err := shared.AtomicWriteFile(d.path, d.data, 0644); err != nil {
		return ioError("failed to write manifest "+d.path, err)
	}
	return nil
}

func (d *ManifestDocument) setString(path []string, value string) error {
	idx, err := indexDocument(d.data)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("invalid manifest " + d.path).
			WithCause(err)
	}
	edited, err := d.edit(idx, path, quoteTOMLString(value))
	if err != nil {
		return err
	}
	if err := verifyString(edited, path, value); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to set " + strings.Join(path, ".") + " in " + d.path).
			WithCause(err)
	}
	d.data = edited
	return nil
}

func (d *ManifestDocument) edit(idx tomlIndex, path []string, quoted string) ([]byte, error) {
	parent := path[:len(path)-1]
	field := path[len(path)-1]

	for _, entry := range idx.entries {
		if !keyEqual(entry.key, path) {
			continue
		}
		if entry.kind != unstable.String {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeFailedPrecondition).
				WithMsg("cannot set " + strings.Join(path, ".") + ": existing value is not a string")
		}
		return splice(d.data, entry.start, entry.end, quoted), nil
	}

	inline := -1
	for i, entry := range idx.entries {
		if len(entry.key) >= len(path) || !hasKeyPrefix(path, entry.key) {
			continue
		}
		if entry.kind != unstable.InlineTable {
			return nil, notATable(path, entry.key)
		}
		if inline < 0 || len(entry.key) > len(idx.entries[inline].key) {
			inline = i
		}
	}
	for _, table := range idx.tables {
		if table.array && hasKeyPrefix(path, table.key) {
			return nil, notATable(path, table.key)
		}
	}
	if inline >= 0 {
		entry := idx.entries[inline]
		return insertInline(d.data, entry, formatKeyPath(path[len(entry.key):])+" = "+quoted), nil
	}

	for i, table := range idx.tables {
		if !table.array && keyEqual(table.key, parent) {
			return d.insertLine(idx.insertionPoint(d.data, i), formatKey(field)+" = "+quoted), nil
		}
	}

	for _, entry := range idx.entries {
		if entry.inline || !hasKeyPrefix(entry.key, parent) {
			continue
		}
		owner := idx.tableKey(entry.table)
		if len(owner) > len(parent) || !hasKeyPrefix(path, owner) {
			continue
		}
		return d.insertLine(idx.insertionPoint(d.data, entry.table), formatKeyPath(path[len(owner):])+" = "+quoted), nil
	}

	if len(path) >= 2 && !idx.definesTablesUnder(parent) {
		grandparent := path[:len(path)-2]
		for i, table := range idx.tables {
			if !table.array && keyEqual(table.key, grandparent) {
				line := formatKey(path[len(path)-2]) + " = { " + formatKey(field) + " = " + quoted + " }"
				return d.insertLine(idx.insertionPoint(d.data, i), line), nil
			}
		}
	}

	return d.appendTable(parent, formatKey(field)+" = "+quoted), nil
}

func (d *ManifestDocument) insertLine(pos int, line string) []byte {
	var buf bytes.Buffer
	buf.Grow(len(d.data) + len(line) + 2*len(d.newline))
	buf.Write(d.data[:pos])
	if pos > 0 && d.data[pos-1] != '\n' {
		buf.WriteString(d.newline)
	}
	buf.WriteString(line)
	buf.WriteString(d.newline)
	buf.Write(d.data[pos:])
	return buf.Bytes()
}

func (d *ManifestDocument) appendTable(key []string, line string) []byte {
	var buf bytes.Buffer
	buf.Write(d.data)
	if len(d.data) > 0 {
		if !bytes.HasSuffix(d.data, []byte("\n")) {
			buf.WriteString(d.newline)
		}
		if !bytes.HasSuffix(d.data, []byte("\n\n")) && !bytes.HasSuffix(d.data, []byte("\r\n\r\n")) {
			buf.WriteString(d.newline)
		}
	}
	buf.WriteString("[" + formatKeyPath(key) + "]" + d.newline)
	buf.WriteString(line + d.newline)
	return buf.Bytes()
}

func notATable(path []string, key []string) error {
	return errbuilder.New().
		WithCode(errbuilder.CodeFailedPrecondition).
		WithMsg(fmt.Sprintf("cannot set %s: %s is already set to a value that is not a table",
			strings.Join(path, "."), strings.Join(key, ".")))
}

func verifyString(data []byte, path []string, want string) error {
	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		return err
	}
	var current any = doc
	for _, key := range path {
		table, ok := current.(map[string]any)
		if !ok {
			return fmt.Errorf("%s is not a table after the edit", key)
		}
		current = table[key]
	}
	if got, ok := current.(string); !ok || got != want {
		return fmt.Errorf("edited value reads back as %v", current)
	}
	return nil
}

// tomlIndex records where tables and values live in a document.
type tomlIndex struct {
	tables  []tomlTable
	entries []tomlEntry
	rootEnd int
}

type tomlTable struct {
	key       []string
	array     bool
	bodyStart int
	bodyEnd   int
}

// tomlEntry is a value with its full key. For strings start/end span the
// quoted literal; for inline tables start is '{' and end is '}'.
type tomlEntry struct {
	key    []string
	kind   unstable.Kind
	start  int
	end    int
	table  int
	inline bool
}

func indexDocument(data []byte) (tomlIndex, error) {
	idx := tomlIndex{rootEnd: len(data)}
	parser := unstable.Parser{}
	parser.Reset(data)
	current := -1
	for parser.NextExpression() {
		expr := parser.Expression()
		switch expr.Kind {
		case unstable.Table, unstable.ArrayTable:
			key, first, last := collectKey(expr.Key())
			start := lineStart(data, first)
			if current < 0 {
				idx.rootEnd = start
			} else {
				idx.tables[current].bodyEnd = start
			}
			idx.tables = append(idx.tables, tomlTable{
				key:       key,
				array:     expr.Kind == unstable.ArrayTable,
				bodyStart: lineEnd(data, last),
				bodyEnd:   len(data),
			})
			current = len(idx.tables) - 1
		case unstable.KeyValue:
			if current >= 0 && idx.tables[current].array {
				continue
			}
			key, _, _ := collectKey(expr.Key())
			if err := idx.addValue(data, joinKey(idx.tableKey(current), key), expr.Value(), current, false); err != nil {
				return idx, err
			}
		}
	}
	if err := parser.Error(); err != nil {
		return idx, err
	}
	return idx, nil
}

func (idx *tomlIndex) addValue(data []byte, key []string, node *unstable.Node, table int, inline bool) error {
	entry := tomlEntry{key: key, kind: node.Kind, start: -1, end: -1, table: table, inline: inline}
	switch node.Kind {
	case unstable.String:
		entry.start = int(node.Raw.Offset)
		entry.end = entry.start + int(node.Raw.Length)
		idx.entries = append(idx.entries, entry)
	case unstable.InlineTable:
		entry.start = int(node.Raw.Offset)
		closing, err := findClosingBrace(data, entry.start)
		if err != nil {
			return err
		}
		entry.end = closing
		idx.entries = append(idx.entries, entry)
		children := node.Children()
		for children.Next() {
			child := children.Node()
			childKey, _, _ := collectKey(child.Key())
			if err := idx.addValue(data, joinKey(key, childKey), child.Value(), table, true); err != nil {
				return err
			}
		}
	default:
		idx.entries = append(idx.entries, entry)
	}
	return nil
}

func (idx tomlIndex) tableKey(table int) []string {
	if table < 0 {
		return nil
	}
	return idx.tables[table].key
}

func (idx tomlIndex) definesTablesUnder(key []string) bool {
	for _, table := range idx.tables {
		if len(table.key) > len(key) && hasKeyPrefix(table.key, key) {
			return true
		}
	}
	return false
}

// insertionPoint is the line start after the last statement of a table,
// ahead of any trailing blank or comment lines.
func (idx tomlIndex) insertionPoint(data []byte, table int) int {
	start, end := 0, idx.rootEnd
	if table >= 0 {
		start, end = idx.tables[table].bodyStart, idx.tables[table].bodyEnd
	}
	pos := end
	for pos > start {
		prev := lineStart(data, pos-1)
		if prev < start {
			break
		}
		line := strings.TrimSpace(string(data[prev:pos]))
		if line != "" && !strings.HasPrefix(line, "#") {
			break
		}
		pos = prev
	}
	return pos
}

func collectKey(it unstable.Iterator) ([]string, int, int) {
	var key []string
	first, last := -1, 0
	for it.Next() {
		node := it.Node()
		key = append(key, string(node.Data))
		if first < 0 {
			first = int(node.Raw.Offset)
		}
		last = int(node.Raw.Offset + node.Raw.Length)
	}
	if first < 0 {
		first = 0
	}
	return key, first, last
}

func insertInline(data []byte, entry tomlEntry, pair string) []byte {
	inner := data[entry.start+1 : entry.end]
	if len(bytes.TrimSpace(inner)) == 0 {
		return splice(data, entry.start+1, entry.end, " "+pair+" ")
	}
	pos := entry.end
	for pos > entry.start+1 && isTOMLSpace(data[pos-1]) {
		pos--
	}
	return splice(data, pos, pos, ", "+pair)
}

func findClosingBrace(data []byte, open int) (int, error) {
	depth := 0
	for i := open; i < len(data); i++ {
		switch data[i] {
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return i, nil
			}
		case '"', '\'':
			end := skipString(data, i)
			if end < 0 {
				return -1, fmt.Errorf("unterminated string at offset %d", i)
			}
			i = end - 1
		case '#':
			for i < len(data) && data[i] != '\n' {
				i++
			}
		}
	}
	return -1, fmt.Errorf("unterminated inline table at offset %d", open)
}

// skipString returns the offset just past the string literal at start.
func skipString(data []byte, start int) int {
	quote := data[start]
	delim := data[start : start+1]
	if bytes.HasPrefix(data[start:], []byte{quote, quote, quote}) {
		delim = data[start : start+3]
	}
	for i := start + len(delim); i < len(data); i++ {
		if quote == '"' && data[i] == '\\' {
			i++
			continue
		}
		if !bytes.HasPrefix(data[i:], delim) {
			continue
		}
		end := i + len(delim)
		if len(delim) == 3 {
			for extra := 0; extra < 2 && end < len(data) && data[end] == quote; extra++ {
				end++
			}
		}
		return end
	}
	return -1
}

func splice(data []byte, start int, end int, text string) []byte {
	out := make([]byte, 0, len(data)-(end-start)+len(text))
	out = append(out, data[:start]...)
	out = append(out, text...)
	return append(out, data[end:]...)
}

func lineStart(data []byte, offset int) int {
	for offset > 0 && data[offset-1] != '\n' {
		offset--
	}
	return offset
}

func lineEnd(data []byte, offset int) int {
	i := bytes.IndexByte(data[offset:], '\n')
	if i < 0 {
		return len(data)
	}
	return offset + i + 1
}

func isTOMLSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func detectNewline(data []byte) string {
	if bytes.Contains(data, []byte("\r\n")) {
		return "\r\n"
	}
	return "\n"
}

func joinKey(prefix []string, key []string) []string {
	out := make([]string, 0, len(prefix)+len(key))
	out = append(out, prefix...)
	return append(out, key...)
}

func keyEqual(a []string, b []string) bool {
	return len(a) == len(b) && hasKeyPrefix(a, b)
}

func hasKeyPrefix(key []string, prefix []string) bool {
	if len(prefix) > len(key) {
		return false
	}
	for i := range prefix {
		if key[i] != prefix[i] {
			return false
		}
	}
	return true
}

func formatKeyPath(key []string) string {
	parts := make([]string, len(key))
	for i, part := range key {
		parts[i] = formatKey(part)
	}
	return strings.Join(parts, ".")
}

func formatKey(key string) string {
	if key == "" {
		return `""`
	}
	for _, r := range key {
		bare := r == '-' || r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if !bare {
			return quoteTOMLString(key)
		}
	}
	return key
}

func quoteTOMLString(value string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range value {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\b':
			b.WriteString(`\b`)
		case '\t':
			b.WriteString(`\t`)
		case '\n':
			b.WriteString(`\n`)
		case '\f':
			b.WriteString(`\f`)
		case '\r':
			b.WriteString(`\r`)
		default:
			if r < 0x20 || r == 0x7f {
				fmt.Fprintf(&b, `\u%04X`, r)
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}

func comparablePath(path string) string {
	if resolved, err := canonicalPath(path); err == nil {
		return resolved
	}
	return filepath.Clean(path)
}

var _ ports.ManifestPort = ManifestTOMLAdapter{}
