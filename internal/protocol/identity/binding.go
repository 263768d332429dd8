// Package identity derives the long-term key pair from wallet signatures
// and builds, parses and verifies the binding message that ties the keys to
// an address.
package identity

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"verbeth/internal/domain"
)

const (
	// BindingHeader is the first line of every binding message.
	BindingHeader = "VerbEth Key Binding v1"

	// BindingContextValue and BindingVersionValue are the accepted
	// constants for the context and version fields.
	BindingContextValue = "verbeth"
	BindingVersionValue = "1"
)

// Binding is the parsed form of a binding message.
type Binding struct {
	Address common.Address
	PKX25519 domain.X25519Public
	PKEd25519 domain.Ed25519Public
	Context string
	Version string
	ChainID uint64
	RPID    string
}

// BuildBindingMessage lays the binding out as the header followed by one
// key-value pair per line. The exact text is signed by the wallet, so the
// layout is frozen.
func BuildBindingMessage(addr common.Address, x25519Pub domain.X25519Public, edPub domain.Ed25519Public, chainID uint64, rpID string) string {
	var b strings.Builder
	b.WriteString(BindingHeader)
	b.WriteString("\naddress: ")
	b.WriteString(strings.ToLower(addr.Hex()))
	b.WriteString("\nx25519: ")
	b.WriteString(hexutil.Encode(x25519Pub[:]))
	b.WriteString("\ned25519: ")
	b.WriteString(hexutil.Encode(edPub[:]))
	b.WriteString("\ncontext: ")
	b.WriteString(BindingContextValue)
	b.WriteString("\nversion: ")
	b.WriteString(BindingVersionValue)
	b.WriteString("\nchainId: ")
	b.WriteString(strconv.FormatUint(chainID, 10))
	b.WriteString("\nrpId: ")
	b.WriteString(rpID)
	return b.String()
}

// ParseBindingMessage reads a binding message back into its fields. It
// returns an error only for structural problems; semantic checks are the
// verifier's job.
func ParseBindingMessage(msg string) (*Binding, error) {
	lines := strings.Split(msg, "\n")
	if len(lines) < 1 || lines[0] != BindingHeader {
		return nil, fmt.Errorf("identity: %w: bad binding header", domain.ErrProtocolMismatch)
	}
	fields := make(map[string]string, len(lines)-1)
	for _, line := range lines[1:] {
		if line == "" {
			continue
		}
		key, value, found := strings.Cut(line, ": ")
		if !found {
			return nil, fmt.Errorf("identity: %w: bad binding line %q", domain.ErrProtocolMismatch, line)
		}
		fields[key] = value
	}

	out := &Binding{
		Context: fields["context"],
		Version: fields["version"],
		RPID:    fields["rpId"],
	}
	if !common.IsHexAddress(fields["address"]) {
		return nil, fmt.Errorf("identity: %w: bad binding address", domain.ErrProtocolMismatch)
	}
	out.Address = common.HexToAddress(fields["address"])

	xb, err := hexutil.Decode(fields["x25519"])
	if err != nil || len(xb) != 32 {
		return nil, fmt.Errorf("identity: %w: bad x25519 field", domain.ErrProtocolMismatch)
	}
	out.PKX25519 = domain.MustX25519Public(xb)

	eb, err := hexutil.Decode(fields["ed25519"])
	if err != nil || len(eb) != 32 {
		return nil, fmt.Errorf("identity: %w: bad ed25519 field", domain.ErrProtocolMismatch)
	}
	out.PKEd25519 = domain.MustEd25519Public(eb)

	if raw, ok := fields["chainId"]; ok {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("identity: %w: bad chainId field", domain.ErrProtocolMismatch)
		}
		out.ChainID = id
	}
	return out, nil
}
