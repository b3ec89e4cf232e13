// Package tokenwriter encodes typed values into the MDL text format.
//
// A Writer accumulates complete tokens in memory and commits them into a
// caller supplied buffer in one step (Save). Write operations never fail; the
// only failure mode is the buffer refusing the final resize.
package tokenwriter

import (
	"strconv"
	"strings"

	"github.com/starford/mdlforge/internal/buffer"
	"github.com/starford/mdlforge/internal/types"
)

const (
	lineBreak = "\r\n"
	ruleLine  = "//+-----------------------------------------------------------------------------"
)

// Writer accumulates formatted MDL text. It is not safe for concurrent use;
// every export pass owns its own Writer.
type Writer struct {
	sb       strings.Builder
	fileName string
}

// New creates an empty writer.
func New() *Writer {
	return &Writer{}
}

// SetFileName sets the label reported in save errors.
func (w *Writer) SetFileName(name string) {
	w.fileName = name
}

// FileName returns the diagnostic label.
func (w *Writer) FileName() string {
	return w.fileName
}

// Clear discards the accumulated text. The file name is kept.
func (w *Writer) Clear() {
	w.sb.Reset()
}

// Len returns the number of accumulated bytes.
func (w *Writer) Len() int {
	return w.sb.Len()
}

// String returns the accumulated text.
func (w *Writer) String() string {
	return w.sb.String()
}

// Save resizes buf to exactly the accumulated length and copies the text into
// it. When the resize fails buf and the accumulator are left as they were.
func (w *Writer) Save(buf buffer.Resizer) error {
	n := w.sb.Len()
	if err := buf.Resize(n); err != nil {
		return &BufferResizeError{FileName: w.fileName, Capacity: n, Err: err}
	}
	copy(buf.Data(), w.sb.String())
	return nil
}

// WriteBool writes True or False.
func (w *Writer) WriteBool(v bool) {
	if v {
		w.sb.WriteString("True")
	} else {
		w.sb.WriteString("False")
	}
}

// WriteChar writes a single byte verbatim.
func (w *Writer) WriteChar(c byte) {
	w.sb.WriteByte(c)
}

// WriteInt writes the decimal form of v.
func (w *Writer) WriteInt(v int) {
	w.sb.WriteString(strconv.Itoa(v))
}

// WriteFloat writes the shortest decimal form that round-trips to v.
func (w *Writer) WriteFloat(v float32) {
	w.sb.WriteString(strconv.FormatFloat(float64(v), 'g', -1, 32))
}

// WriteDouble writes the shortest decimal form that round-trips to v.
func (w *Writer) WriteDouble(v float64) {
	w.sb.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
}

// WriteWord writes s verbatim.
func (w *Writer) WriteWord(s string) {
	w.sb.WriteString(s)
}

// WriteLine writes s followed by CRLF.
func (w *Writer) WriteLine(s string) {
	w.sb.WriteString(s)
	w.sb.WriteString(lineBreak)
}

// WriteString writes s in double quotes. Embedded quotes are not escaped.
func (w *Writer) WriteString(s string) {
	w.sb.WriteByte('"')
	w.sb.WriteString(s)
	w.sb.WriteByte('"')
}

// WriteVector2 writes { x, y }.
func (w *Writer) WriteVector2(v types.Vec2) {
	w.writeVector(v[:])
}

// WriteVector3 writes { x, y, z }.
func (w *Writer) WriteVector3(v types.Vec3) {
	w.writeVector(v[:])
}

// WriteVector4 writes { x, y, z, w }.
func (w *Writer) WriteVector4(v types.Vec4) {
	w.writeVector(v[:])
}

// WriteVector4As2 writes the leading two components of v.
func (w *Writer) WriteVector4As2(v types.Vec4) {
	w.writeVector(v[:2])
}

// WriteVector4As3 writes the leading three components of v.
func (w *Writer) WriteVector4As3(v types.Vec4) {
	w.writeVector(v[:3])
}

func (w *Writer) writeVector(components []float32) {
	w.sb.WriteString("{ ")
	for i, c := range components {
		if i > 0 {
			w.sb.WriteString(", ")
		}
		w.WriteFloat(c)
	}
	w.sb.WriteString(" }")
}

// WriteHeader writes a three line comment block around title.
func (w *Writer) WriteHeader(title string) {
	w.WriteLine(ruleLine)
	w.WriteLine("//|" + title)
	w.WriteLine(ruleLine)
}

// WriteBreak writes n line breaks.
func (w *Writer) WriteBreak(n int) {
	for ; n > 0; n-- {
		w.sb.WriteString(lineBreak)
	}
}

// WriteTab writes n horizontal tabs.
func (w *Writer) WriteTab(n int) {
	for ; n > 0; n-- {
		w.sb.WriteByte('\t')
	}
}
