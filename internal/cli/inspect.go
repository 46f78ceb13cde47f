package cli

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/walletstore/internal/codec"
	"github.com/roach88/walletstore/internal/wallet"
)

// InspectResult summarizes a stored wallet without printing key material.
type InspectResult struct {
	Kind       string   `json:"kind"`
	Backend    string   `json:"backend"`
	Version    int      `json:"version"`
	Digest     string   `json:"digest"`
	Counter    *int     `json:"counter,omitempty"`
	Identities []string `json:"identities,omitempty"`
	Current    string   `json:"current,omitempty"`
	HasSeed    bool     `json:"has_seed"`
	Encryption string   `json:"encryption,omitempty"`
	Extension  []string `json:"extension,omitempty"`
	Warnings   []string `json:"warnings,omitempty"`
}

func (r InspectResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Kind:       %s\n", r.Kind)
	fmt.Fprintf(&b, "Backend:    %s\n", r.Backend)
	fmt.Fprintf(&b, "Version:    %d\n", r.Version)
	fmt.Fprintf(&b, "Digest:     %s\n", r.Digest)
	if r.Counter != nil {
		fmt.Fprintf(&b, "Counter:    %d\n", *r.Counter)
	}
	if r.Encryption != "" {
		fmt.Fprintf(&b, "Encryption: %s\n", r.Encryption)
	}
	fmt.Fprintf(&b, "Seed:       %t\n", r.HasSeed)
	if len(r.Identities) > 0 {
		fmt.Fprintf(&b, "Identities: %s\n", strings.Join(r.Identities, ", "))
	}
	if r.Current != "" {
		fmt.Fprintf(&b, "Current:    %s\n", r.Current)
	}
	if len(r.Extension) > 0 {
		fmt.Fprintf(&b, "Extension:  %s\n", strings.Join(r.Extension, ", "))
	}
	for _, w := range r.Warnings {
		fmt.Fprintf(&b, "Warning:    %s\n", w)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Summarize the stored wallet",
		Long: `Print a summary of the stored wallet: variant, schema version, content
digest, identity names and the keys of unrecognized fields. Key material and
ciphertext are never printed.

Identity names that are not in Unicode NFC form are reported as warnings;
they are stored as-is but may not match a visually identical name.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(rootOpts, cmd)
		},
	}

	return cmd
}

func runInspect(opts *RootOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	st, err := opts.openStore()
	if err != nil {
		return formatter.failStore("open", err)
	}
	defer st.Close()

	w, ok, err := st.Load()
	if err != nil {
		return formatter.failStore("load", err)
	}
	if !ok {
		return formatter.Fail(ExitFailure, ErrCodeNoWallet, "no wallet stored", nil)
	}

	result, err := inspectWallet(w)
	if err != nil {
		return formatter.failStore("inspect", err)
	}
	result.Backend = string(st.Kind())
	return formatter.Success(result)
}

func inspectWallet(w wallet.Wallet) (InspectResult, error) {
	digest, err := codec.Digest(w)
	if err != nil {
		return InspectResult{}, err
	}

	result := InspectResult{
		Kind:      w.Kind().String(),
		Version:   w.SchemaVersion(),
		Digest:    digest,
		Extension: w.Extra().Keys(),
	}

	switch v := w.(type) {
	case *wallet.PlainWallet:
		counter := v.Counter
		result.Counter = &counter
		result.HasSeed = true
		result.Identities = sortedIdentityNames(v)
		if v.Current != nil {
			result.Current = *v.Current
		}
		result.Warnings = plainWarnings(v)
	case *wallet.EncryptedWallet:
		result.HasSeed = v.Seed != nil
		result.Encryption = v.Enc
	}

	return result, nil
}

// plainWarnings reports problems that are legal to store but likely bugs.
func plainWarnings(w *wallet.PlainWallet) []string {
	var warnings []string
	for _, name := range sortedIdentityNames(w) {
		if !norm.NFC.IsNormalString(name) {
			warnings = append(warnings, fmt.Sprintf("identity name %q is not NFC-normalized", name))
		}
	}
	if w.Current != nil {
		if _, ok := w.Identities[*w.Current]; !ok {
			warnings = append(warnings, fmt.Sprintf("current identity %q does not exist", *w.Current))
		}
	}
	return warnings
}

func sortedIdentityNames(w *wallet.PlainWallet) []string {
	names := make([]string, 0, len(w.Identities))
	for name := range w.Identities {
		names = append(names, name)
	}
	slices.SortFunc(names, wallet.CompareKeys)
	return names
}
