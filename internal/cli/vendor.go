package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"cargo-vendor-one/internal/adapters"
	"cargo-vendor-one/internal/app"
	"cargo-vendor-one/internal/types"
)

// subcommandName is the argument cargo passes first when the binary is
// run as `cargo vendor-one`.
const subcommandName = "vendor-one"

type vendorOptions struct {
	ManifestPath string
	Resolver     string
	Cargo        string
	CargoHome    string
	Offline      bool
	Locked       bool
	VendorDir    string
	OnAmbiguity  string
	Format       string
}

func bindVendorFlags(cmd *cobra.Command, opts *vendorOptions) {
	cmd.Flags().StringVar(&opts.ManifestPath, "manifest-path", "", "Path to Cargo.toml (default: discovered from the working directory)")
	cmd.Flags().StringVar(&opts.Resolver, "resolver", string(types.ResolverKindMetadata), "Resolution engine: metadata or lockfile")
	cmd.Flags().StringVar(&opts.Cargo, "cargo", defaultCargo(), "Cargo executable used by the metadata resolver")
	cmd.Flags().StringVar(&opts.CargoHome, "cargo-home", "", "Cargo home (default: $CARGO_HOME or ~/.cargo)")
	cmd.Flags().BoolVar(&opts.Offline, "offline", false, "Resolve without network access")
	cmd.Flags().BoolVar(&opts.Locked, "locked", false, "Require Cargo.lock to be up to date")
	cmd.Flags().StringVar(&opts.VendorDir, "vendor-dir", adapters.DefaultVendorDir, "Directory that receives vendored packages")
	cmd.Flags().StringVar(&opts.OnAmbiguity, "on-ambiguity", string(types.AmbiguityModeWarn), "What to do when a request matches several packages: warn or fail")
	cmd.Flags().StringVar(&opts.Format, "format", string(types.OutputFormatText), "Report format: text or yaml")
	_ = viper.BindPFlag("manifest_path", cmd.Flags().Lookup("manifest-path"))
	_ = viper.BindPFlag("resolver", cmd.Flags().Lookup("resolver"))
	_ = viper.BindPFlag("cargo", cmd.Flags().Lookup("cargo"))
	_ = viper.BindPFlag("cargo_home", cmd.Flags().Lookup("cargo-home"))
	_ = viper.BindPFlag("offline", cmd.Flags().Lookup("offline"))
	_ = viper.BindPFlag("locked", cmd.Flags().Lookup("locked"))
	_ = viper.BindPFlag("vendor_dir", cmd.Flags().Lookup("vendor-dir"))
	_ = viper.BindPFlag("on_ambiguity", cmd.Flags().Lookup("on-ambiguity"))
	_ = viper.BindPFlag("format", cmd.Flags().Lookup("format"))
}

func runVendor(ctx context.Context, cmd *cobra.Command, opts vendorOptions, args []string) error {
	tokens := packageTokens(args)
	if len(tokens) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), usageLine)
		return nil
	}

	report, err := adapters.NewReportAdapter(types.OutputFormat(resolveString(cmd, opts.Format, "format", "format")))
	if err != nil {
		return err
	}
	service, err := app.NewService(app.Config{
		Resolver:    types.ResolverKind(resolveString(cmd, opts.Resolver, "resolver", "resolver")),
		Cargo:       resolveString(cmd, opts.Cargo, "cargo", "cargo"),
		CargoHome:   resolveString(cmd, opts.CargoHome, "cargo_home", "cargo-home"),
		Offline:     resolveBool(cmd, opts.Offline, "offline", "offline"),
		Locked:      resolveBool(cmd, opts.Locked, "locked", "locked"),
		VendorDir:   resolveString(cmd, opts.VendorDir, "vendor_dir", "vendor-dir"),
		OnAmbiguity: types.AmbiguityMode(resolveString(cmd, opts.OnAmbiguity, "on_ambiguity", "on-ambiguity")),
	})
	if err != nil {
		return err
	}
	result, err := service.Vendor(ctx, app.VendorRequest{
		Tokens:       tokens,
		ManifestPath: resolveString(cmd, opts.ManifestPath, "manifest_path", "manifest-path"),
	})
	if err != nil {
		return err
	}
	return report.WriteReport(cmd.OutOrStdout(), result.Report())
}

// packageTokens drops the subcommand name cargo inserts.
func packageTokens(args []string) []string {
	tokens := make([]string, 0, len(args))
	for _, arg := range args {
		if arg == subcommandName {
			continue
		}
		tokens = append(tokens, arg)
	}
	return tokens
}

func defaultCargo() string {
	if cargo := os.Getenv("CARGO"); cargo != "" {
		return cargo
	}
	return "cargo"
}
