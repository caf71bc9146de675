// Package label renders thermal labels for articles: a QR code encoding
// the article id composited onto a 40x20 mm page with the product name
// and the configured price string.
package label

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
	qrcode "github.com/skip2/go-qrcode"
)

const (
	pageWidthMM  = 40.0
	pageHeightMM = 20.0
	qrSideMM     = 20.0
	qrSidePX     = 256
)

// Render produces the PDF bytes of a single label.
func Render(articleID string, productName string, price string) ([]byte, error) {
	png, err := qrcode.Encode(articleID, qrcode.Low, qrSidePX)
	if err != nil {
		return nil, fmt.Errorf("label: encode qr: %w", err)
	}

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "mm",
		Size:    gofpdf.SizeType{Wd: pageWidthMM, Ht: pageHeightMM},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("qr", opts, bytes.NewReader(png))
	pdf.ImageOptions("qr", 0, 0, qrSideMM, qrSideMM, false, opts, 0, "")

	// Text block sits to the right of the QR code: price above, product
	// name near the bottom edge.
	pdf.SetFont("Helvetica", "", 20)
	pdf.Text(qrSideMM, pageHeightMM*5/8, price)
	pdf.SetFont("Helvetica", "", 12)
	pdf.Text(qrSideMM, pageHeightMM*7/8, strings.ToUpper(productName))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("label: write pdf: %w", err)
	}
	return buf.Bytes(), nil
}
