package parser

import (
	"fmt"
	"regexp"
	"strings"
)

// SendCommand is a parsed transfer command
type SendCommand struct {
	Amount      string
	Symbol      string
	Destination string
}

// Pattern: [send] <amount> [symbol] to <address>
// Matches: "0.5 ETH to 0xabc...", "send 1 to 0xabc...", "SEND .25 eth TO 0xabc..."
var sendPattern = regexp.MustCompile(`(?i)^(?:send\s+)?(\d*\.?\d+)\s+(?:([A-Za-z0-9]+)\s+)?to\s+(\S+)$`)

// ParseSendCommand parses a natural language transfer command
// Examples:
//   - "send 0.5 ETH to 0x2222..."
//   - "1 to 0x2222..."
func ParseSendCommand(command string) (*SendCommand, error) {
	command = strings.Join(strings.Fields(command), " ")

	matches := sendPattern.FindStringSubmatch(command)
	if matches == nil {
		return nil, fmt.Errorf("invalid send command format. Expected: 'send <amount> [symbol] to <address>' (e.g., 'send 0.1 ETH to 0x...')")
	}

	return &SendCommand{
		Amount:      matches[1],
		Symbol:      strings.ToUpper(matches[2]),
		Destination: matches[3],
	}, nil
}

// CheckSymbol verifies the command's symbol, if any, is the network's native token
func (c *SendCommand) CheckSymbol(native string) error {
	if c.Symbol == "" || strings.EqualFold(c.Symbol, native) {
		return nil
	}
	return fmt.Errorf("only native %s transfers are supported, got %s", strings.ToUpper(native), c.Symbol)
}
