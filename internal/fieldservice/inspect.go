package fieldservice

import (
	"bytes"

	"github.com/ledongthuc/pdf"
)

// InspectPDF returns the page count of a PDF payload, or 0 when the payload
// is not a readable PDF. It never fails the caller.
func InspectPDF(data []byte) (pages int) {
	if !bytes.HasPrefix(bytes.TrimLeft(data, "\x00\t\r\n "), []byte("%PDF")) {
		return 0
	}
	defer func() {
		if recover() != nil {
			pages = 0
		}
	}()
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0
	}
	return reader.NumPage()
}
