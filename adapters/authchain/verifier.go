package authchain

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/layer-3/linker/core"
	"github.com/layer-3/linker/internal/eth"
	"github.com/layer-3/linker/ports"
)

const (
	ephemeralAddressPrefix = "Ephemeral address: "
	expirationPrefix       = "Expiration: "
)

// Verifier validates AuthChains using Ethereum personal signatures
type Verifier struct {
	now func() time.Time
}

// NewVerifier creates a new chain verifier
func NewVerifier() ports.ChainVerifier {
	return &Verifier{now: time.Now}
}

// NewVerifierWithClock creates a verifier that evaluates ephemeral expirations against now
func NewVerifierWithClock(now func() time.Time) ports.ChainVerifier {
	return &Verifier{now: now}
}

// Verify walks the chain from its root SIGNER, checking that every link is
// signed by the authority established by the previous one
func (v *Verifier) Verify(chain core.AuthChain, finalPayload string) error {
	if len(chain) == 0 {
		return core.ErrNoSignature
	}

	var authority common.Address
	for i, link := range chain {
		last := i == len(chain)-1

		switch link.Type {
		case core.AuthLinkSigner:
			if i != 0 {
				return fmt.Errorf("signer link at position %d: %w", i, core.ErrInvalidSignature)
			}
			if !common.IsHexAddress(link.Payload) {
				return core.ErrInvalidOwner
			}
			authority = common.HexToAddress(link.Payload)

		case core.AuthLinkEphemeral:
			if i == 0 || last {
				return fmt.Errorf("ephemeral link at position %d: %w", i, core.ErrInvalidSignature)
			}
			if err := verifySignedBy(link, authority); err != nil {
				return err
			}
			next, err := v.parseEphemeral(link.Payload)
			if err != nil {
				return err
			}
			authority = next

		case core.AuthLinkPersonalSignedEntity:
			if i == 0 || !last {
				return fmt.Errorf("signed entity link at position %d: %w", i, core.ErrInvalidSignature)
			}
			if link.Payload != finalPayload {
				return core.ErrUnexpectedPayload
			}
			if err := verifySignedBy(link, authority); err != nil {
				return err
			}
			return nil

		case core.AuthLinkEIP1654Ephemeral, core.AuthLinkEIP1654SignedEntity:
			// contract wallets need an RPC provider, which this service does not configure
			return fmt.Errorf("%s: %w", link.Type, core.ErrUnsupportedLinkType)

		default:
			return fmt.Errorf("%q: %w", link.Type, core.ErrUnsupportedLinkType)
		}
	}

	return core.ErrNoSignature
}

func verifySignedBy(link core.AuthLink, authority common.Address) error {
	if link.Signature == "" {
		return core.ErrNoSignature
	}
	ok, err := eth.VerifyPersonal(link.Payload, link.Signature, authority)
	if err != nil {
		return fmt.Errorf("%v: %w", err, core.ErrInvalidSignature)
	}
	if !ok {
		return core.ErrInvalidSignature
	}
	return nil
}

// parseEphemeral extracts the delegated address from a payload of the form
//
//	Decentraland Login
//	Ephemeral address: 0x...
//	Expiration: 2030-01-01T00:00:00.000Z
func (v *Verifier) parseEphemeral(payload string) (common.Address, error) {
	var address, expiration string
	for _, line := range strings.Split(strings.ReplaceAll(payload, "\r\n", "\n"), "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, ephemeralAddressPrefix):
			address = strings.TrimPrefix(line, ephemeralAddressPrefix)
		case strings.HasPrefix(line, expirationPrefix):
			expiration = strings.TrimPrefix(line, expirationPrefix)
		}
	}

	if !common.IsHexAddress(address) || expiration == "" {
		return common.Address{}, core.ErrMalformedEphemeral
	}
	expiresAt, err := time.Parse(time.RFC3339Nano, expiration)
	if err != nil {
		return common.Address{}, fmt.Errorf("expiration %q: %w", expiration, core.ErrMalformedEphemeral)
	}
	if !expiresAt.After(v.now()) {
		return common.Address{}, core.ErrEphemeralExpired
	}

	return common.HexToAddress(address), nil
}
