package adapters

import (
	"fmt"
	"io"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"gopkg.in/yaml.v3"

	"cargo-vendor-one/internal/ports"
	"cargo-vendor-one/internal/types"
)

type ReportAdapter struct {
	Format types.OutputFormat
}

func NewReportAdapter(format types.OutputFormat) (ReportAdapter, error) {
	switch format {
	case "":
		return ReportAdapter{Format: types.OutputFormatText}, nil
	case types.OutputFormatText, types.OutputFormatYAML:
		return ReportAdapter{Format: format}, nil
	default:
		return ReportAdapter{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("unsupported output format %q (expected text or yaml)", format))
	}
}

func (a ReportAdapter) WriteReport(w io.Writer, report types.VendorReport) error {
	if a.Format == types.OutputFormatYAML {
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(report); err != nil {
			return ioError("failed to encode report", err)
		}
		return encoder.Close()
	}
	if _, err := fmt.Fprintf(w, "Vendored %d packages\n", report.Count); err != nil {
		return err
	}
	for _, info := range report.Packages {
		if _, err := fmt.Fprintf(w, "%s => %s\n", info.Request, info.Path); err != nil {
			return err
		}
	}
	return nil
}

var _ ports.ReportPort = ReportAdapter{}
