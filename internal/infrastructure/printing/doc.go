// Package printing renders quotes to paginated A4 PDF documents.
//
// Rendering is split in two passes. Layout positions every element of the
// document (header, client block, wrapped line-item rows, closing block,
// footers) on pages, using the core font metrics to wrap descriptions.
// Painter then draws the positioned Document with gofpdf into memory.
//
// Line-item rows are never split across pages. The closing block (totals,
// general conditions, bank details and signature area) is placed once,
// right after the last row, and moves to a new page as a whole when it
// does not fit.
//
// Example usage:
//
//	engine := printing.NewEngine(printing.EngineConfig{
//	    Company: printing.DefaultCompanyProfile(),
//	    Logger:  logger,
//	})
//	doc, err := engine.Render(ctx, q, q.Number)
//	if err != nil {
//	    return err
//	}
//	w.Write(doc.PDF)
//
// The package also provides FileSystemArchive, which keeps copies of
// rendered documents under {year}/devis_{number}.pdf.
package printing
