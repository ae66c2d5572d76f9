package policies

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"cargo-vendor-one/internal/types"
)

// AmbiguityPolicy decides what happens when a request matches more than
// one resolved package. The first candidate is always the one selected.
// Under warn the advisory goes to Out (stderr when nil) regardless of the
// log level.
type AmbiguityPolicy struct {
	Mode types.AmbiguityMode
	Out  io.Writer
}

func NewAmbiguityPolicy(mode string) (AmbiguityPolicy, error) {
	switch types.AmbiguityMode(strings.ToLower(strings.TrimSpace(mode))) {
	case types.AmbiguityModeWarn, "":
		return AmbiguityPolicy{Mode: types.AmbiguityModeWarn}, nil
	case types.AmbiguityModeFail:
		return AmbiguityPolicy{Mode: types.AmbiguityModeFail}, nil
	default:
		return AmbiguityPolicy{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("unknown ambiguity mode: %s (must be warn or fail)", mode))
	}
}

func (p AmbiguityPolicy) Apply(name string, candidates []types.PackageID) error {
	if len(candidates) < 2 {
		return nil
	}
	labels := make([]string, 0, len(candidates))
	for _, id := range candidates {
		labels = append(labels, id.String())
	}
	if p.Mode == types.AmbiguityModeFail {
		return errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg(fmt.Sprintf("ambiguous package: %s matches %d resolved packages (%s)",
				name, len(candidates), strings.Join(labels, ", ")))
	}
	fmt.Fprintf(p.out(), "There are multiple versions of %s available. Try specifying a version.\n", name)
	log.Debug().
		Str("package", name).
		Str("selected", labels[0]).
		Strs("candidates", labels).
		Msg("ambiguous request")
	return nil
}

func (p AmbiguityPolicy) out() io.Writer {
	if p.Out == nil {
		return os.Stderr
	}
	return p.Out
}
