package sales

import (
	"html/template"
	"io"
)

// receiptTmpl is a standalone printable document: truncated sale id, full
// timestamp, line items, grand total, and a QR image whose payload is the
// full sale id for later lookup.
var receiptTmpl = template.Must(template.New("receipt").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Receipt #{{.Sale.ShortID}}</title>
<style>
body { font-family: monospace; max-width: 320px; margin: 0 auto; }
table { width: 100%; border-collapse: collapse; }
td { padding: 2px 0; }
.num { text-align: right; }
.total td { border-top: 1px dashed #000; font-weight: bold; }
.qr { text-align: center; margin-top: 12px; }
</style>
</head>
<body>
<h3>Receipt #{{.Sale.ShortID}}</h3>
<p>{{.Sale.Date.Format "2006-01-02 15:04:05"}}</p>
<table>
{{range .Sale.Items}}<tr>
  <td>{{.Name}}</td>
  <td class="num">{{.Qty}} × {{printf "%.2f" .Price}}</td>
  <td class="num">{{printf "%.2f" .LineTotal}}</td>
</tr>
{{end}}<tr class="total">
  <td colspan="2">TOTAL</td>
  <td class="num">{{printf "%.2f" .Sale.Total}}</td>
</tr>
</table>
<div class="qr"><img src="{{.QRImageURL}}" alt="{{.Sale.ID}}"></div>
</body>
</html>
`))

type receiptData struct {
	Sale       *Sale
	QRImageURL string
}

// RenderReceipt writes the printable receipt document for s.
func RenderReceipt(w io.Writer, s *Sale, qrImageURL string) error {
	return receiptTmpl.Execute(w, receiptData{Sale: s, QRImageURL: qrImageURL})
}
