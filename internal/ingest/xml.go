package ingest

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"

	"bulwark/internal/admission"
)

// XMLStats reports what a guarded XML walk consumed.
type XMLStats struct {
	Tokens   int `json:"tokens"`
	MaxDepth int `json:"max_depth"`
}

// DecodeXML walks an untrusted XML document token by token, enforcing the
// guard's expansion limits. It validates structure without building a
// document tree, so a hostile document costs at most the budgets below:
//
//   - DTDs and other <!...> directives are rejected outright: Go's decoder
//     does not expand custom entities, but a document that declares them is
//     asking for amplification and gets refused at the door. Processing
//     instructions like the <?xml ...?> declaration pass through.
//   - max_xml_tokens bounds total decoder work per document.
//   - max_xml_depth bounds element nesting.
//   - max_input_bytes bounds raw bytes consumed.
//
// Undefined entity references fail in the decoder itself (Strict mode, no
// entity table). The token loop is bounded by max_xml_tokens, so a decoder
// bug that stopped advancing on malformed input still terminates.
func (g *Guard) DecodeXML(ctx context.Context, src io.Reader, source string) (stats XMLStats, err error) {
	defer func() { g.record(ctx, "xml", source, err) }()

	bounded := LimitedReader(src, g.limits.MaxInputBytes, "input_bytes")
	d := xml.NewDecoder(bounded)
	d.Strict = true
	d.Entity = nil // predefined entities only (&lt; &amp; ...)

	depth := 0
	for {
		if cerr := ctx.Err(); cerr != nil {
			return stats, cerr
		}

		tok, terr := d.Token()
		if terr == io.EOF {
			break
		}
		if terr != nil {
			return stats, fmt.Errorf("xml: %w", terr)
		}

		if aerr := admission.Admit(int64(stats.Tokens), int64(g.limits.MaxXMLTokens), 1); aerr != nil {
			le := aerr.(*admission.LimitError)
			le.Resource = "xml_tokens"
			return stats, le
		}
		stats.Tokens++

		switch tok.(type) {
		case xml.StartElement:
			if aerr := admission.Admit(int64(depth), int64(g.limits.MaxXMLDepth), 1); aerr != nil {
				le := aerr.(*admission.LimitError)
				le.Resource = "xml_depth"
				return stats, le
			}
			depth++
			if depth > stats.MaxDepth {
				stats.MaxDepth = depth
			}
		case xml.EndElement:
			depth--
		case xml.Directive:
			// <!DOCTYPE ...> and friends. Zero budget.
			return stats, &admission.LimitError{
				Resource: "xml_directives", Current: 0, Requested: 1, Limit: 0,
			}
		}
	}

	return stats, nil
}
