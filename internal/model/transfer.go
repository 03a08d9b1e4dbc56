package model

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// DecodedTransfer holds the indexed fields of an ERC-721 Transfer event.
type DecodedTransfer struct {
	From        common.Address
	To          common.Address
	TokenID     *big.Int
	BlockNumber uint64
}

// Identity is the public part of an IdentityRecord attached to a transfer.
type Identity struct {
	Nickname string `json:"nickname"`
	Address  string `json:"address"`
}

// TransferEvent is one enriched, privacy-filtered transfer ready for broadcast and replay.
type TransferEvent struct {
	ID             string    `json:"id"`
	From           string    `json:"from"`
	To             string    `json:"to"`
	FromIdentity   *Identity `json:"fromIdentity,omitempty"`
	ToIdentity     *Identity `json:"toIdentity,omitempty"`
	TokenID        string    `json:"tokenId"`
	BlockNumber    uint64    `json:"blockNumber"`
	BlockTimestamp time.Time `json:"blockTimestamp"`
	Objekt         Objekt    `json:"objekt"`
}
