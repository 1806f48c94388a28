package core

import (
	"strings"
)

// AuthLinkType identifies the kind of attestation carried by an AuthLink
type AuthLinkType string

const (
	AuthLinkSigner               AuthLinkType = "SIGNER"
	AuthLinkEphemeral            AuthLinkType = "ECDSA_EPHEMERAL"
	AuthLinkPersonalSignedEntity AuthLinkType = "ECDSA_PERSONAL_SIGNED_ENTITY"
	AuthLinkEIP1654Ephemeral     AuthLinkType = "ECDSA_EIP_1654_EPHEMERAL"
	AuthLinkEIP1654SignedEntity  AuthLinkType = "ECDSA_EIP_1654_SIGNED_ENTITY"
)

// Known reports whether t is one of the link kinds this service understands
func (t AuthLinkType) Known() bool {
	switch t {
	case AuthLinkSigner, AuthLinkEphemeral, AuthLinkPersonalSignedEntity,
		AuthLinkEIP1654Ephemeral, AuthLinkEIP1654SignedEntity:
		return true
	}
	return false
}

// AuthLink is one attestation step of an AuthChain
type AuthLink struct {
	Type      AuthLinkType `json:"type"`
	Payload   string       `json:"payload"`
	Signature string       `json:"signature"`
}

// AuthChain is the ordered sequence of attestations proving who authored a payload.
// Order matters: each link is signed by the authority established by the previous one.
type AuthChain []AuthLink

// SignedEntity returns the final signed-entity link of the chain, if any
func (c AuthChain) SignedEntity() (AuthLink, bool) {
	for _, link := range c {
		if link.Type == AuthLinkPersonalSignedEntity {
			return link, true
		}
	}
	return AuthLink{}, false
}

// OwnerAddress returns the lowercased address declared by the root SIGNER link
func (c AuthChain) OwnerAddress() (string, bool) {
	if len(c) == 0 || c[0].Type != AuthLinkSigner {
		return "", false
	}
	return strings.ToLower(c[0].Payload), true
}

// SimpleAuthChain builds the two-link chain asserting that owner signed payload directly
func SimpleAuthChain(payload, owner, signature string) AuthChain {
	return AuthChain{
		{Type: AuthLinkSigner, Payload: owner, Signature: ""},
		{Type: AuthLinkPersonalSignedEntity, Payload: payload, Signature: signature},
	}
}

// ValidationResult is the outcome of validating an AuthChain.
// SignerAddress is only meaningful when OK is true.
type ValidationResult struct {
	OK            bool   `json:"ok"`
	SignerAddress string `json:"signerAddress"`
	Error         string `json:"error,omitempty"`
}
