package ports

import (
	"io"

	"cargo-vendor-one/internal/types"
)

type ReportPort interface {
	WriteReport(w io.Writer, report types.VendorReport) error
}
