// internal/display/display.go
//
// Console rendering for list and describe output.
//
// Context
// -------
// Tables are aligned with text/tabwriter, one header row and no rule lines.
// Bodies print as indented JSON when they parse as JSON, raw otherwise.
//
//	Requests:  ID  Method  Url  Namespace
//	Responses: ID  Request  Status  Response Body  Namespace
//
// Notes
// -----
//   - Table cells are single-line; long bodies are cut at cellWidth runes.
//   - Base64-stored bodies never print as text in tables.
package display

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/yanizio/apibot/internal/record"
)

const cellWidth = 60

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

// Requests renders request rows as a table.
func Requests(w io.Writer, rows []record.RequestRecord) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tMethod\tUrl\tNamespace")
	for _, r := range rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", r.ID, r.Method, r.URL, r.Namespace)
	}
	return tw.Flush()
}

// Responses renders response rows as a table.
func Responses(w io.Writer, rows []record.ResponseRecord) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tRequest\tStatus\tResponse Body\tNamespace")
	for _, r := range rows {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%s\t%s\n", r.ID, r.RequestID, r.StatusCode, cell(r), r.Namespace)
	}
	return tw.Flush()
}

// Body writes body as indented JSON when it parses, raw otherwise, followed
// by a newline.
func Body(w io.Writer, body []byte) error {
	if len(bytes.TrimSpace(body)) > 0 && json.Valid(body) {
		var buf bytes.Buffer
		if err := json.Indent(&buf, body, "", "  "); err == nil {
			buf.WriteByte('\n')
			_, err := w.Write(buf.Bytes())
			return err
		}
	}
	if _, err := w.Write(body); err != nil {
		return err
	}
	if len(body) == 0 || body[len(body)-1] != '\n' {
		_, err := io.WriteString(w, "\n")
		return err
	}
	return nil
}

// Request renders one request row followed by every response it produced.
func Request(w io.Writer, rec record.RequestRecord, responses []record.ResponseRecord) error {
	tw := newTable(w)
	fmt.Fprintf(tw, "ID:\t%d\n", rec.ID)
	fmt.Fprintf(tw, "Namespace:\t%s\n", rec.Namespace)
	fmt.Fprintf(tw, "Method:\t%s\n", rec.Method)
	fmt.Fprintf(tw, "Url:\t%s\n", rec.URL)
	fmt.Fprintf(tw, "HTTP:\t%s\n", rec.Version)
	fmt.Fprintf(tw, "Created:\t%s\n", rec.CreatedAt)
	if err := tw.Flush(); err != nil {
		return err
	}
	if err := headers(w, rec.Header); err != nil {
		return err
	}
	if rec.Body != "" {
		fmt.Fprintln(w, "Body:")
		if err := storedBody(w, rec.Body, rec.BodyEncoding); err != nil {
			return err
		}
	}

	fmt.Fprintf(w, "\nResponses (%d):\n", len(responses))
	if len(responses) == 0 {
		return nil
	}
	return Responses(w, responses)
}

// Response renders one response row with its full body.
func Response(w io.Writer, rec record.ResponseRecord) error {
	tw := newTable(w)
	fmt.Fprintf(tw, "ID:\t%d\n", rec.ID)
	fmt.Fprintf(tw, "Request:\t%d\n", rec.RequestID)
	fmt.Fprintf(tw, "Namespace:\t%s\n", rec.Namespace)
	fmt.Fprintf(tw, "Status:\t%d\n", rec.StatusCode)
	fmt.Fprintf(tw, "Received:\t%s\n", rec.ReceivedAt)
	if err := tw.Flush(); err != nil {
		return err
	}
	if err := headers(w, rec.Header); err != nil {
		return err
	}
	fmt.Fprintln(w, "Body:")
	return storedBody(w, rec.Body, rec.BodyEncoding)
}

func headers(w io.Writer, blob string) error {
	h, err := record.DecodeHeader(blob)
	if err != nil {
		return err
	}
	if len(h) == 0 {
		return nil
	}
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(w, "Headers:")
	for _, name := range names {
		fmt.Fprintf(w, "  %s: %s\n", name, h.Get(name))
	}
	return nil
}

func storedBody(w io.Writer, text, encoding string) error {
	if encoding == record.EncodingBase64 {
		raw, err := base64.StdEncoding.DecodeString(text)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "<%d bytes binary, base64>\n%s\n", len(raw), text)
		return err
	}
	return Body(w, []byte(text))
}

func cell(r record.ResponseRecord) string {
	if r.Binary() {
		return "<" + strconv.Itoa(binaryLen(r.Body)) + " bytes binary>"
	}
	s := strings.Join(strings.Fields(r.Body), " ")
	if rs := []rune(s); len(rs) > cellWidth {
		s = string(rs[:cellWidth-1]) + "…"
	}
	return s
}

// binaryLen is the decoded size of a base64 body.  DecodedLen alone counts
// padding, so the trailing '=' are subtracted.
func binaryLen(text string) int {
	return base64.StdEncoding.DecodedLen(len(text)) - (len(text) - len(strings.TrimRight(text, "=")))
}
