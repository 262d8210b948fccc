package vertec

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// AccessDenied is the sentinel the server substitutes for any field the
// authenticated caller is not permitted to view. Records whose aktiv field
// carries it are invisible to this caller and are dropped during decoding.
const AccessDenied = "accessdenied"

// Record is one flattened result row. Fields holds the flattened field
// values; a key that is absent was not part of the result definition, an
// empty value means the field was present but empty.
type Record struct {
	Datatype string
	Fields   map[string]string
}

// Get looks a field up by its response tag. Vertec echoes member names in
// their canonical casing (minutenInt for minutenint), so an exact match is
// tried first and a case-insensitive one second.
func (r Record) Get(name string) string {
	if v, ok := r.Fields[name]; ok {
		return v
	}
	for k, v := range r.Fields {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

// Fault is the structured rejection of a submitted query. The call itself
// succeeded at the transport level; the server parsed the query and refused
// it. Distinct from ExecutionError.
type Fault struct {
	Code    string
	Message string
	Details []string
	Query   string
}

func (f *Fault) Error() string {
	return fmt.Sprintf("service fault %s: %s (%d detail(s))", f.Code, f.Message, len(f.Details))
}

// QueryResult is the outcome of a transport-level successful query: either
// a sequence of records in document order, or exactly one fault.
type QueryResult struct {
	Records []Record
	Fault   *Fault
}

func (r *QueryResult) Faulted() bool {
	return r.Fault != nil
}

type faultXML struct {
	Code    string   `xml:"faultcode"`
	Message string   `xml:"faultstring"`
	Details []string `xml:"details>detailitem"`
}

// xmlNode is a generic parsed element subtree, used to flatten result
// fields whose shape is not known up front.
type xmlNode struct {
	XMLName  xml.Name
	Text     string    `xml:",chardata"`
	Children []xmlNode `xml:",any"`
}

// walk appends node and all its descendants in document order.
func (n *xmlNode) walk(acc []*xmlNode) []*xmlNode {
	acc = append(acc, n)
	for i := range n.Children {
		acc = n.Children[i].walk(acc)
	}
	return acc
}

// flatten reduces a field subtree to its scalar value:
//   - a childless field yields its own trimmed text;
//   - a field whose last node in document order is an accessdenied marker
//     yields the AccessDenied sentinel regardless of sibling content;
//   - otherwise the last node's trimmed text wins (the single nested
//     reference case, e.g. <projekt><objref>123</objref></projekt>).
func (n *xmlNode) flatten() string {
	nodes := n.walk(nil)
	if len(nodes) == 1 {
		return strings.TrimSpace(n.Text)
	}
	last := nodes[len(nodes)-1]
	if last.XMLName.Local == AccessDenied {
		return AccessDenied
	}
	return strings.TrimSpace(last.Text)
}

// DecodeResponse parses a response envelope into records or a fault. The
// decoder walks tokens until it finds the Body element and dispatches on
// the first meaningful child: a Fault produces exactly one Fault value and
// no records, a QueryResponse yields one record per direct child element.
func DecodeResponse(r io.Reader, query string) (*QueryResult, error) {
	decoder := xml.NewDecoder(r)

	if err := skipToElement(decoder, "Body"); err != nil {
		return nil, fmt.Errorf("locating Body element: %w", err)
	}

	for {
		t, err := decoder.Token()
		if err != nil {
			return nil, fmt.Errorf("reading Body content: %w", err)
		}

		switch tok := t.(type) {
		case xml.StartElement:
			switch tok.Name.Local {
			case "Fault":
				var fx faultXML
				if err := decoder.DecodeElement(&fx, &tok); err != nil {
					return nil, fmt.Errorf("decoding Fault element: %w", err)
				}
				return &QueryResult{Fault: &Fault{
					Code:    strings.TrimSpace(fx.Code),
					Message: strings.TrimSpace(fx.Message),
					Details: fx.Details,
					Query:   query,
				}}, nil
			case "QueryResponse":
				return decodeQueryResponse(decoder, &tok)
			default:
				if err := decoder.Skip(); err != nil {
					return nil, fmt.Errorf("skipping %s element: %w", tok.Name.Local, err)
				}
			}
		case xml.EndElement:
			if tok.Name.Local == "Body" {
				// an empty Body carries no records
				return &QueryResult{}, nil
			}
		}
	}
}

// decodeQueryResponse consumes the QueryResponse element, turning each
// direct child into one Record. Records for objects the caller cannot
// access carry the sentinel in their aktiv field and are dropped here so
// they never surface as real data.
func decodeQueryResponse(decoder *xml.Decoder, start *xml.StartElement) (*QueryResult, error) {
	result := &QueryResult{Records: []Record{}}

	for {
		t, err := decoder.Token()
		if err != nil {
			return nil, fmt.Errorf("reading QueryResponse content: %w", err)
		}

		switch tok := t.(type) {
		case xml.StartElement:
			var node xmlNode
			if err := decoder.DecodeElement(&node, &tok); err != nil {
				return nil, fmt.Errorf("decoding %s record: %w", tok.Name.Local, err)
			}

			record := Record{
				Datatype: node.XMLName.Local,
				Fields:   make(map[string]string, len(node.Children)),
			}
			for i := range node.Children {
				field := &node.Children[i]
				record.Fields[field.XMLName.Local] = field.flatten()
			}

			if record.Get("aktiv") == AccessDenied {
				continue
			}
			result.Records = append(result.Records, record)
		case xml.EndElement:
			if tok.Name.Local == start.Name.Local {
				return result, nil
			}
		}
	}
}

func skipToElement(decoder *xml.Decoder, name string) error {
	for {
		t, err := decoder.Token()
		if err != nil {
			return err
		}
		if start, ok := t.(xml.StartElement); ok && start.Name.Local == name {
			return nil
		}
	}
}
