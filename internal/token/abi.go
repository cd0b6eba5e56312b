package token

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// ERC20ABI covers the calls the payment flow makes plus the OpenZeppelin custom
// errors, so that reverts can be decoded into readable reasons.
const ERC20ABI = `[
	{"type":"function","name":"balanceOf","stateMutability":"view",
	 "inputs":[{"name":"account","type":"address"}],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"decimals","stateMutability":"view",
	 "inputs":[],"outputs":[{"name":"","type":"uint8"}]},
	{"type":"function","name":"symbol","stateMutability":"view",
	 "inputs":[],"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"transfer","stateMutability":"nonpayable",
	 "inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"}],
	 "outputs":[{"name":"","type":"bool"}]},
	{"type":"event","name":"Transfer","anonymous":false,
	 "inputs":[{"name":"from","type":"address","indexed":true},
	           {"name":"to","type":"address","indexed":true},
	           {"name":"value","type":"uint256","indexed":false}]},
	{"type":"error","name":"ERC20InsufficientBalance",
	 "inputs":[{"name":"sender","type":"address"},{"name":"balance","type":"uint256"},{"name":"needed","type":"uint256"}]},
	{"type":"error","name":"ERC20InvalidReceiver",
	 "inputs":[{"name":"receiver","type":"address"}]},
	{"type":"error","name":"ERC20InvalidSender",
	 "inputs":[{"name":"sender","type":"address"}]}
]`

var (
	parsedOnce sync.Once
	parsedABI  abi.ABI
	parsedErr  error
)

// ParsedABI returns the parsed ERC20ABI.
func ParsedABI() (abi.ABI, error) {
	parsedOnce.Do(func() {
		parsedABI, parsedErr = abi.JSON(strings.NewReader(ERC20ABI))
	})
	return parsedABI, parsedErr
}
