package device

import "strings"

// NormalizeAddress lowercases a SAS address and strips the 0x prefix and
// any separators, so "0x5000CCA2-3B35-9649" and "5000cca23b359649" compare
// equal. "<not available>" and similar placeholders normalize to "".
func NormalizeAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	if strings.HasPrefix(addr, "<") {
		return ""
	}
	addr = strings.TrimPrefix(strings.ToLower(addr), "0x")
	addr = strings.ReplaceAll(addr, "-", "")
	addr = strings.ReplaceAll(addr, ":", "")
	return addr
}
