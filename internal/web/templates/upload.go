// Package templates renders the server's HTML pages.
package templates

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

// UploadPageParams configures the upload page.
type UploadPageParams struct {
	Formats       []string
	DefaultFormat string
	MaxFileSize   int64
	StoreEnabled  bool
}

// UploadPage is the single-page form posting a template to /api/convert.
func UploadPage(p UploadPageParams) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, pageHead); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, `<p class="hint">CSV or TSV, up to %s.`, humanSize(p.MaxFileSize)); err != nil {
			return err
		}
		if p.StoreEnabled {
			if _, err := io.WriteString(w, ` Converted records are also saved to the record store.`); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, `</p>
<form id="convert" method="post" action="/api/convert" enctype="multipart/form-data">
<label>Template <input type="file" name="file" accept=".csv,.tsv" required></label>
<label>Format <select name="format">`); err != nil {
			return err
		}
		for _, f := range p.Formats {
			selected := ""
			if f == p.DefaultFormat {
				selected = " selected"
			}
			if _, err := fmt.Fprintf(w, `<option value="%s"%s>%s</option>`,
				templ.EscapeString(f), selected, templ.EscapeString(f)); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, pageTail); err != nil {
			return err
		}
		return nil
	})
}

func humanSize(n int64) string {
	const mb = 1 << 20
	if n >= mb {
		return fmt.Sprintf("%d MB", n/mb)
	}
	return fmt.Sprintf("%d bytes", n)
}

const pageHead = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>pifcsv</title>
<style>
body{font-family:system-ui,sans-serif;max-width:40rem;margin:3rem auto;padding:0 1rem;color:#1f2937}
label{display:block;margin:.75rem 0}
.hint{color:#6b7280}
#result{white-space:pre-wrap;background:#f3f4f6;padding:1rem;border-radius:.375rem}
.error{color:#b91c1c}
</style>
</head>
<body>
<h1>Convert a template</h1>
`

const pageTail = `</select></label>
<label><input type="checkbox" name="merge" value="true"> Merge repeated properties</label>
<button type="submit">Convert</button>
</form>
<div id="result" hidden></div>
<script>
document.getElementById("convert").addEventListener("submit", async (ev) => {
  ev.preventDefault();
  const out = document.getElementById("result");
  const resp = await fetch("/api/convert", {method: "POST", body: new FormData(ev.target)});
  out.hidden = false;
  if (!resp.ok) {
    const err = await resp.json();
    out.className = "error";
    out.textContent = err.error + (err.action ? "\n" + err.action : "") + " (" + err.code + ")";
    return;
  }
  const blob = await resp.blob();
  const name = (resp.headers.get("Content-Disposition") || "").split("filename=")[1] || "records";
  const link = document.createElement("a");
  link.href = URL.createObjectURL(blob);
  link.download = name.replaceAll('"', "");
  link.click();
  out.className = "";
  out.textContent = resp.headers.get("X-Pifcsv-Records") + " records converted.";
});
</script>
</body>
</html>
`
