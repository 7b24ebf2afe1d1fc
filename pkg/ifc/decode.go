package ifc

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/pb40development/ifc-normalizer/pkg/errors"
)

const (
	stepMagic   = "ISO-10303-21"
	stepEnd     = "END-ISO-10303-21"
	sectionEnd  = "ENDSEC"
	sectionData = "DATA"
)

// New creates an empty document with the given FILE_SCHEMA identifier,
// for building models programmatically.
func New(schema string) *Document {
	if schema == "" {
		schema = "IFC4"
	}
	return &Document{
		schema:  schema,
		records: make(map[int]*Record),
		byType:  make(map[string][]int),
	}
}

// decode parses a STEP payload into a document arena.
func decode(data []byte) (*Document, error) {
	stmts := splitStatements(string(data))
	if len(stmts) == 0 || !strings.EqualFold(stmts[0], stepMagic) {
		return nil, errors.NewDocumentError("open", 0, "missing ISO-10303-21 header", nil)
	}

	doc := &Document{
		records: make(map[int]*Record),
		byType:  make(map[string][]int),
	}

	inData := false
	for _, stmt := range stmts[1:] {
		upper := strings.ToUpper(stmt)
		switch {
		case upper == stepEnd:
			// done
		case upper == "HEADER":
			// header section marker, entries follow
		case upper == sectionEnd:
			inData = false
		case strings.HasPrefix(upper, sectionData):
			inData = true
		case inData:
			rec, err := parseDataLine(stmt)
			if err != nil {
				return nil, err
			}
			if rec == nil {
				continue
			}
			if _, dup := doc.records[rec.ExpressID]; dup {
				return nil, errors.NewDocumentError("open", rec.ExpressID, "duplicate express ID", nil)
			}
			doc.records[rec.ExpressID] = rec
			doc.order = append(doc.order, rec.ExpressID)
			doc.byType[rec.Type] = append(doc.byType[rec.Type], rec.ExpressID)
			if rec.ExpressID > doc.maxID {
				doc.maxID = rec.ExpressID
			}
		default:
			doc.header = append(doc.header, stmt)
			if strings.HasPrefix(upper, "FILE_SCHEMA") {
				doc.schema = extractSchema(stmt)
			}
		}
	}

	if doc.schema == "" {
		return nil, errors.NewDocumentError("open", 0, "missing FILE_SCHEMA", nil)
	}

	doc.linkInverses()
	return doc, nil
}

// splitStatements cuts a STEP file into semicolon-terminated statements,
// honoring quoted strings (a doubled apostrophe escapes a quote) and
// /* */ comments.
func splitStatements(text string) []string {
	var stmts []string
	var sb strings.Builder

	inString := false
	i := 0
	for i < len(text) {
		c := text[i]
		switch {
		case inString:
			sb.WriteByte(c)
			if c == '\'' {
				if i+1 < len(text) && text[i+1] == '\'' {
					sb.WriteByte('\'')
					i++
				} else {
					inString = false
				}
			}
		case c == '\'':
			inString = true
			sb.WriteByte(c)
		case c == '/' && i+1 < len(text) && text[i+1] == '*':
			end := strings.Index(text[i+2:], "*/")
			if end < 0 {
				i = len(text)
				continue
			}
			i += 2 + end + 1
		case c == ';':
			stmt := strings.TrimSpace(sb.String())
			if stmt != "" {
				stmts = append(stmts, stmt)
			}
			sb.Reset()
		default:
			sb.WriteByte(c)
		}
		i++
	}
	return stmts
}

var dataLineRe = regexp.MustCompile(`^#(\d+)\s*=\s*([A-Za-z0-9_]+)\s*\(`)

// parseDataLine parses one DATA statement. Entity types the engine does not
// model are kept as opaque raw records.
func parseDataLine(stmt string) (*Record, error) {
	m := dataLineRe.FindStringSubmatch(stmt)
	if m == nil {
		return nil, errors.NewDocumentError("open", 0, "malformed data line: "+truncate(stmt, 60), nil)
	}
	id, err := strconv.Atoi(m[1])
	if err != nil || id <= 0 {
		return nil, errors.NewDocumentError("open", 0, "invalid express ID in: "+truncate(stmt, 60), nil)
	}

	entityType := strings.ToUpper(m[2])
	rec := &Record{ExpressID: id, Type: entityType, raw: stmt}

	switch entityType {
	case TypeWall, TypeWallStandardCase, TypePropertySet, TypePropertySingleValue, TypeRelDefinesByProperties:
	default:
		return rec, nil
	}

	open := strings.Index(stmt, "(")
	close_ := strings.LastIndex(stmt, ")")
	if open < 0 || close_ < open {
		return rec, nil
	}
	args, err := parseArgs(stmt[open+1 : close_])
	if err != nil {
		// A known entity we cannot parse is carried through untouched; the
		// collector treats it as malformed and skips it.
		return rec, nil
	}

	switch entityType {
	case TypeWall, TypeWallStandardCase:
		rec.GlobalID = argString(args, 0)
		rec.Name = argString(args, 2)
	case TypePropertySet:
		rec.GlobalID = argString(args, 0)
		rec.Name = argString(args, 2)
		rec.HasProperties = argRefs(args, 4)
	case TypePropertySingleValue:
		rec.Name = argString(args, 0)
		rec.NominalValue = argValue(args, 2)
	case TypeRelDefinesByProperties:
		rec.GlobalID = argString(args, 0)
		rec.Name = argString(args, 2)
		rec.RelatedObjects = argRefs(args, 4)
		rec.RelatingPropertyDefinition = argRef(args, 5)
	}
	return rec, nil
}

var schemaRe = regexp.MustCompile(`'([^']+)'`)

func extractSchema(stmt string) string {
	if m := schemaRe.FindStringSubmatch(stmt); m != nil {
		return m[1]
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
