package ports

import "github.com/layer-3/linker/core"

// ChainVerifier performs full cryptographic verification of an AuthChain
type ChainVerifier interface {
	// Verify checks every link of chain, which must terminate in a signed
	// entity link whose payload equals finalPayload
	Verify(chain core.AuthChain, finalPayload string) error
}

// Signer signs messages with the server wallet
type Signer interface {
	Address() string
	SignMessage(message string) (string, error)
}
