package decoder

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// TransferSignature is the canonical signature of the ERC-721 Transfer event.
const TransferSignature = "Transfer(address,address,uint256)"

const erc721TransferABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "internalType": "address", "name": "from", "type": "address"},
      {"indexed": true, "internalType": "address", "name": "to", "type": "address"},
      {"indexed": true, "internalType": "uint256", "name": "tokenId", "type": "uint256"}
    ],
    "name": "Transfer",
    "type": "event"
  }
]`

var (
	erc721ABI     abi.ABI
	erc721ABIOnce sync.Once
	erc721ABIErr  error
)

// ERC721ABI returns the parsed Transfer event ABI.
func ERC721ABI() (abi.ABI, error) {
	erc721ABIOnce.Do(func() {
		erc721ABI, erc721ABIErr = abi.JSON(strings.NewReader(erc721TransferABIJSON))
	})
	return erc721ABI, erc721ABIErr
}
