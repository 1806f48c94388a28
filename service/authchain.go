package service

import (
	"github.com/layer-3/linker/core"
	"github.com/layer-3/linker/ports"
)

const (
	validationNoSignature      = "No signature"
	validationInvalidSignature = "Invalid signature"
)

// AuthChainValidator derives the signer of a request from its AuthChain
type AuthChainValidator struct {
	verifier ports.ChainVerifier
}

// NewAuthChainValidator creates a validator backed by the given verification primitive
func NewAuthChainValidator(verifier ports.ChainVerifier) *AuthChainValidator {
	return &AuthChainValidator{verifier: verifier}
}

// Validate never fails; every problem is reported through ValidationResult.OK
func (v *AuthChainValidator) Validate(chain core.AuthChain) core.ValidationResult {
	signed, ok := chain.SignedEntity()
	if !ok || signed.Signature == "" {
		return core.ValidationResult{OK: false, Error: validationNoSignature}
	}

	for _, link := range chain {
		if !link.Type.Known() {
			return core.ValidationResult{OK: false, Error: validationInvalidSignature}
		}
	}

	if err := v.verifier.Verify(chain, signed.Payload); err != nil {
		return core.ValidationResult{OK: false, Error: validationInvalidSignature}
	}

	owner, ok := chain.OwnerAddress()
	if !ok {
		return core.ValidationResult{OK: false, Error: validationInvalidSignature}
	}

	return core.ValidationResult{OK: true, SignerAddress: owner}
}
